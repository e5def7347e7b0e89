package invoices

import (
	"time"

	"github.com/google/uuid"

	"github.com/finishpro/admin-backend/pkg/db/models"
	"github.com/finishpro/admin-backend/pkg/enums"
	"github.com/finishpro/admin-backend/pkg/types"
)

// ListFilters narrows the invoice list.
type ListFilters struct {
	OrderID   *uuid.UUID
	CompanyID *uuid.UUID
	Status    *enums.InvoiceStatus
}

// InvoiceSummary is a row of the invoice list.
type InvoiceSummary struct {
	ID              uuid.UUID           `json:"id"`
	OrderID         uuid.UUID           `json:"order_id"`
	CompanyID       uuid.UUID           `json:"company_id"`
	StripeInvoiceID string              `json:"stripe_invoice_id"`
	InvoiceNumber   *string             `json:"invoice_number,omitempty"`
	Status          enums.InvoiceStatus `json:"status"`
	Currency        enums.Currency      `json:"currency"`
	TotalCents      int64               `json:"total_cents"`
	IssuedAt        time.Time           `json:"issued_at"`
	PaidAt          *time.Time          `json:"paid_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

// InvoiceList wraps a page of invoices.
type InvoiceList struct {
	Invoices   []InvoiceSummary `json:"invoices"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// InvoiceItemDetail is one invoiced line.
type InvoiceItemDetail struct {
	ID             uuid.UUID `json:"id"`
	OrderItemID    uuid.UUID `json:"order_item_id"`
	LineNumber     int       `json:"line_number"`
	ProductCode    string    `json:"product_code"`
	Description    string    `json:"description"`
	Qty            int64     `json:"qty"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	LineTotalCents int64     `json:"line_total_cents"`
}

// InvoiceDetail is the full invoice with its lines in line-number order.
type InvoiceDetail struct {
	InvoiceSummary
	IntentID         *uuid.UUID          `json:"intent_id,omitempty"`
	PONumber         *string             `json:"po_number,omitempty"`
	SubtotalCents    int64               `json:"subtotal_cents"`
	ShippingCents    int64               `json:"shipping_cents"`
	VATCents         int64               `json:"vat_cents"`
	BillingAddress   types.Address       `json:"billing_address"`
	ShippingAddress  types.Address       `json:"shipping_address"`
	HostedInvoiceURL *string             `json:"hosted_invoice_url,omitempty"`
	InvoicePDFURL    *string             `json:"invoice_pdf_url,omitempty"`
	IssuedBy         uuid.UUID           `json:"issued_by"`
	Items            []InvoiceItemDetail `json:"items"`
}

// IntentFilters narrows the operator view of approval attempts.
type IntentFilters struct {
	Status  *enums.InvoiceIntentStatus
	OrderID *uuid.UUID
}

// IntentSummary is an approval attempt as shown to operators.
type IntentSummary struct {
	ID              uuid.UUID                 `json:"id"`
	OrderID         uuid.UUID                 `json:"order_id"`
	CompanyID       uuid.UUID                 `json:"company_id"`
	Attempt         int                       `json:"attempt"`
	IdempotencyKey  string                    `json:"idempotency_key"`
	Status          enums.InvoiceIntentStatus `json:"status"`
	StripeInvoiceID *string                   `json:"stripe_invoice_id,omitempty"`
	TotalCents      int64                     `json:"total_cents"`
	LastError       *string                   `json:"last_error,omitempty"`
	CreatedBy       uuid.UUID                 `json:"created_by"`
	CommittedAt     *time.Time                `json:"committed_at,omitempty"`
	ResolvedAt      *time.Time                `json:"resolved_at,omitempty"`
	ResolvedBy      *uuid.UUID                `json:"resolved_by,omitempty"`
	CreatedAt       time.Time                 `json:"created_at"`
	UpdatedAt       time.Time                 `json:"updated_at"`
}

// IntentList wraps a page of intents.
type IntentList struct {
	Intents    []IntentSummary `json:"intents"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// ResolveIntentInput marks a void_failed intent as handled by an operator.
type ResolveIntentInput struct {
	IntentID   uuid.UUID
	OperatorID uuid.UUID
}

func toSummary(inv *models.Invoice) InvoiceSummary {
	return InvoiceSummary{
		ID:              inv.ID,
		OrderID:         inv.OrderID,
		CompanyID:       inv.CompanyID,
		StripeInvoiceID: inv.StripeInvoiceID,
		InvoiceNumber:   inv.InvoiceNumber,
		Status:          inv.Status,
		Currency:        inv.Currency,
		TotalCents:      inv.TotalCents,
		IssuedAt:        inv.IssuedAt,
		PaidAt:          inv.PaidAt,
		CreatedAt:       inv.CreatedAt,
	}
}

func toDetail(inv *models.Invoice) *InvoiceDetail {
	detail := &InvoiceDetail{
		InvoiceSummary:   toSummary(inv),
		IntentID:         inv.IntentID,
		PONumber:         inv.PONumber,
		SubtotalCents:    inv.SubtotalCents,
		ShippingCents:    inv.ShippingCents,
		VATCents:         inv.VATCents,
		BillingAddress:   inv.BillingAddress,
		ShippingAddress:  inv.ShippingAddress,
		HostedInvoiceURL: inv.HostedInvoiceURL,
		InvoicePDFURL:    inv.InvoicePDFURL,
		IssuedBy:         inv.IssuedBy,
		Items:            make([]InvoiceItemDetail, 0, len(inv.Items)),
	}
	for _, item := range inv.Items {
		detail.Items = append(detail.Items, InvoiceItemDetail{
			ID:             item.ID,
			OrderItemID:    item.OrderItemID,
			LineNumber:     item.LineNumber,
			ProductCode:    item.ProductCode,
			Description:    item.Description,
			Qty:            item.Qty,
			UnitPriceCents: item.UnitPriceCents,
			LineTotalCents: item.LineTotalCents,
		})
	}
	return detail
}

func toIntentSummary(intent *models.InvoiceIntent) IntentSummary {
	return IntentSummary{
		ID:              intent.ID,
		OrderID:         intent.OrderID,
		CompanyID:       intent.CompanyID,
		Attempt:         intent.Attempt,
		IdempotencyKey:  intent.IdempotencyKey,
		Status:          intent.Status,
		StripeInvoiceID: intent.StripeInvoiceID,
		TotalCents:      intent.TotalCents,
		LastError:       intent.LastError,
		CreatedBy:       intent.CreatedBy,
		CommittedAt:     intent.CommittedAt,
		ResolvedAt:      intent.ResolvedAt,
		ResolvedBy:      intent.ResolvedBy,
		CreatedAt:       intent.CreatedAt,
		UpdatedAt:       intent.UpdatedAt,
	}
}
