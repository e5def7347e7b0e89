package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/finishpro/admin-backend/pkg/enums"
)

// DistributorOrderApprovedEvent is emitted in the same transaction that records the invoice.
type DistributorOrderApprovedEvent struct {
	OrderID         uuid.UUID                    `json:"order_id"`
	CompanyID       uuid.UUID                    `json:"company_id"`
	OrderNumber     int64                        `json:"order_number"`
	InvoiceID       uuid.UUID                    `json:"invoice_id"`
	StripeInvoiceID string                       `json:"stripe_invoice_id"`
	Status          enums.DistributorOrderStatus `json:"status"`
	InStockCount    int                          `json:"in_stock_count"`
	BackOrderCount  int                          `json:"back_order_count"`
	TotalCents      int64                        `json:"total_cents"`
	Currency        enums.Currency               `json:"currency"`
	ReviewedBy      uuid.UUID                    `json:"reviewed_by"`
	ReviewedAt      time.Time                    `json:"reviewed_at"`
}

// DistributorOrderRejectedEvent is emitted when an admin rejects an order outright.
type DistributorOrderRejectedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	CompanyID   uuid.UUID `json:"company_id"`
	OrderNumber int64     `json:"order_number"`
	Reason      string    `json:"reason"`
	ReviewedBy  uuid.UUID `json:"reviewed_by"`
	ReviewedAt  time.Time `json:"reviewed_at"`
}

// InvoiceCompensationFailedEvent flags a provider invoice that could not be voided.
type InvoiceCompensationFailedEvent struct {
	IntentID        uuid.UUID `json:"intent_id"`
	OrderID         uuid.UUID `json:"order_id"`
	CompanyID       uuid.UUID `json:"company_id"`
	StripeInvoiceID string    `json:"stripe_invoice_id"`
	Error           string    `json:"error"`
	Source          string    `json:"source"`
}

// InvoicePaymentEvent reports a payment status change received from Stripe.
type InvoicePaymentEvent struct {
	InvoiceID       uuid.UUID           `json:"invoice_id"`
	OrderID         uuid.UUID           `json:"order_id"`
	CompanyID       uuid.UUID           `json:"company_id"`
	StripeInvoiceID string              `json:"stripe_invoice_id"`
	Status          enums.InvoiceStatus `json:"status"`
	AmountCents     int64               `json:"amount_cents"`
	OccurredAt      time.Time           `json:"occurred_at"`
}
