package distributororders

import (
	"time"

	"github.com/google/uuid"

	"github.com/finishpro/admin-backend/pkg/db/models"
	"github.com/finishpro/admin-backend/pkg/enums"
	"github.com/finishpro/admin-backend/pkg/types"
)

// ListFilters narrows the review queue.
type ListFilters struct {
	Status    *enums.DistributorOrderStatus
	CompanyID *uuid.UUID
}

// OrderSummary is the review queue row.
type OrderSummary struct {
	ID          uuid.UUID                    `json:"id"`
	OrderNumber int64                        `json:"order_number"`
	CompanyID   uuid.UUID                    `json:"company_id"`
	CompanyName string                       `json:"company_name"`
	Status      enums.DistributorOrderStatus `json:"status"`
	Currency    enums.Currency               `json:"currency"`
	PONumber    *string                      `json:"po_number,omitempty"`
	TotalCents  int64                        `json:"total_cents"`
	ItemCount   int                          `json:"item_count"`
	CreatedAt   time.Time                    `json:"created_at"`
	ReviewedAt  *time.Time                   `json:"reviewed_at,omitempty"`
}

// OrderList wraps a page of summaries plus the next cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// CompanySummary is the distributor account shown alongside an order.
type CompanySummary struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	VATNumber        *string   `json:"vat_number,omitempty"`
	StripeCustomerID *string   `json:"stripe_customer_id,omitempty"`
}

// OrderItemDetail is a single order line.
type OrderItemDetail struct {
	ID                    uuid.UUID                        `json:"id"`
	Position              int                              `json:"position"`
	ProductCode           string                           `json:"product_code"`
	Description           string                           `json:"description"`
	Qty                   int64                            `json:"qty"`
	UnitPriceCents        int64                            `json:"unit_price_cents"`
	LineTotalCents        int64                            `json:"line_total_cents"`
	Status                enums.DistributorOrderItemStatus `json:"status"`
	PredictedDeliveryDate *time.Time                       `json:"predicted_delivery_date,omitempty"`
	BackOrderNote         *string                          `json:"back_order_note,omitempty"`
}

// OrderDetail is the full review view of one order.
type OrderDetail struct {
	ID                     uuid.UUID                    `json:"id"`
	OrderNumber            int64                        `json:"order_number"`
	Status                 enums.DistributorOrderStatus `json:"status"`
	Currency               enums.Currency               `json:"currency"`
	PONumber               *string                      `json:"po_number,omitempty"`
	Company                *CompanySummary              `json:"company,omitempty"`
	BillingAddress         types.Address                `json:"billing_address"`
	ShippingAddress        types.Address                `json:"shipping_address"`
	BillingOverride        *types.Address               `json:"billing_override,omitempty"`
	ShippingOverride       *types.Address               `json:"shipping_override,omitempty"`
	SubtotalCents          int64                        `json:"subtotal_cents"`
	ShippingCents          int64                        `json:"shipping_cents"`
	VATCents               int64                        `json:"vat_cents"`
	TotalCents             int64                        `json:"total_cents"`
	Notes                  *string                      `json:"notes,omitempty"`
	ShippingOverrideCents  *int64                       `json:"shipping_override_cents,omitempty"`
	ShippingOverrideReason *string                      `json:"shipping_override_reason,omitempty"`
	RejectionReason        *string                      `json:"rejection_reason,omitempty"`
	ReviewedBy             *uuid.UUID                   `json:"reviewed_by,omitempty"`
	ReviewedAt             *time.Time                   `json:"reviewed_at,omitempty"`
	CreatedAt              time.Time                    `json:"created_at"`
	Items                  []OrderItemDetail            `json:"items"`
}

// ReviewClaim is the conditional pending_review transition written once per order.
type ReviewClaim struct {
	OrderID                uuid.UUID
	Status                 enums.DistributorOrderStatus
	ReviewedBy             uuid.UUID
	ReviewedAt             time.Time
	BillingOverride        *types.Address
	ShippingOverride       *types.Address
	ShippingOverrideCents  *int64
	ShippingOverrideReason *string
	RejectionReason        *string
}

// ItemUpdate records the reviewer's fulfillment outcome for one line.
type ItemUpdate struct {
	ItemID                uuid.UUID
	Status                enums.DistributorOrderItemStatus
	PredictedDeliveryDate *time.Time
	BackOrderNote         *string
}

// RejectInput carries an outright rejection of a pending order.
type RejectInput struct {
	OrderID    uuid.UUID
	ReviewerID uuid.UUID
	Reason     string
}

// RejectResult is returned after a successful rejection.
type RejectResult struct {
	OrderID uuid.UUID                    `json:"order_id"`
	Status  enums.DistributorOrderStatus `json:"status"`
}

func toDetail(order *models.DistributorOrder) *OrderDetail {
	detail := &OrderDetail{
		ID:                     order.ID,
		OrderNumber:            order.OrderNumber,
		Status:                 order.Status,
		Currency:               order.Currency,
		PONumber:               order.PONumber,
		BillingAddress:         order.BillingAddress,
		ShippingAddress:        order.ShippingAddress,
		BillingOverride:        order.BillingOverride,
		ShippingOverride:       order.ShippingOverride,
		SubtotalCents:          order.SubtotalCents,
		ShippingCents:          order.ShippingCents,
		VATCents:               order.VATCents,
		TotalCents:             order.TotalCents,
		Notes:                  order.Notes,
		ShippingOverrideCents:  order.ShippingOverrideCents,
		ShippingOverrideReason: order.ShippingOverrideReason,
		RejectionReason:        order.RejectionReason,
		ReviewedBy:             order.ReviewedBy,
		ReviewedAt:             order.ReviewedAt,
		CreatedAt:              order.CreatedAt,
		Items:                  make([]OrderItemDetail, 0, len(order.Items)),
	}
	if order.Company != nil {
		detail.Company = &CompanySummary{
			ID:               order.Company.ID,
			Name:             order.Company.Name,
			Email:            order.Company.Email,
			VATNumber:        order.Company.VATNumber,
			StripeCustomerID: order.Company.StripeCustomerID,
		}
	}
	for _, item := range order.Items {
		detail.Items = append(detail.Items, OrderItemDetail{
			ID:                    item.ID,
			Position:              item.Position,
			ProductCode:           item.ProductCode,
			Description:           item.Description,
			Qty:                   item.Qty,
			UnitPriceCents:        item.UnitPriceCents,
			LineTotalCents:        item.LineTotalCents,
			Status:                item.Status,
			PredictedDeliveryDate: item.PredictedDeliveryDate,
			BackOrderNote:         item.BackOrderNote,
		})
	}
	return detail
}
