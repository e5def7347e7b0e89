package approval

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/finishpro/admin-backend/pkg/enums"
	"github.com/finishpro/admin-backend/pkg/types"
)

// ItemDecision is the reviewer's call for one order line.
type ItemDecision struct {
	Decision              enums.FulfillmentDecision
	PredictedDeliveryDate *time.Time
	Note                  *string
}

// ApproveInput carries an admin's review of a pending distributor order.
type ApproveInput struct {
	OrderID                uuid.UUID
	ReviewerID             uuid.UUID
	Decisions              map[uuid.UUID]ItemDecision
	BillingOverride        *types.AddressOverride
	ShippingOverride       *types.AddressOverride
	ShippingOverrideCents  *int64
	ShippingOverrideReason *string
}

// ApproveResult is returned once the invoice is issued and recorded.
type ApproveResult struct {
	Success           bool                         `json:"success"`
	InvoiceID         uuid.UUID                    `json:"invoice_id"`
	ExternalInvoiceID string                       `json:"external_invoice_id"`
	InvoiceNumber     string                       `json:"invoice_number,omitempty"`
	HostedInvoiceURL  string                       `json:"hosted_invoice_url,omitempty"`
	Status            enums.DistributorOrderStatus `json:"status"`
	InStockCount      int                          `json:"in_stock_count"`
	BackOrderCount    int                          `json:"back_order_count"`
	Currency          enums.Currency               `json:"currency"`
	SubtotalCents     int64                        `json:"subtotal_cents"`
	ShippingCents     int64                        `json:"shipping_cents"`
	VATCents          int64                        `json:"vat_cents"`
	TotalCents        int64                        `json:"total_cents"`
}

// IdempotencyKey is the provider key for one approval attempt of an order.
func IdempotencyKey(orderID uuid.UUID, attempt int) string {
	return fmt.Sprintf("distributor-order:%s:attempt:%d", orderID, attempt)
}
