package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/finishpro/admin-backend/pkg/enums"
	"github.com/finishpro/admin-backend/pkg/types"
)

// Invoice is the local audit record of a provider invoice issued on approval.
// OrderID references the originating order without a foreign key.
type Invoice struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID           `gorm:"column:order_id;type:uuid;not null"`
	CompanyID        uuid.UUID           `gorm:"column:company_id;type:uuid;not null"`
	IntentID         *uuid.UUID          `gorm:"column:intent_id;type:uuid"`
	StripeInvoiceID  string              `gorm:"column:stripe_invoice_id;not null;uniqueIndex"`
	InvoiceNumber    *string             `gorm:"column:invoice_number"`
	Status           enums.InvoiceStatus `gorm:"column:status;type:invoice_status;not null;default:'open'"`
	Currency         enums.Currency      `gorm:"column:currency;type:text;not null"`
	PONumber         *string             `gorm:"column:po_number"`
	SubtotalCents    int64               `gorm:"column:subtotal_cents;not null"`
	ShippingCents    int64               `gorm:"column:shipping_cents;not null"`
	VATCents         int64               `gorm:"column:vat_cents;not null"`
	TotalCents       int64               `gorm:"column:total_cents;not null"`
	BillingAddress   types.Address       `gorm:"column:billing_address;type:jsonb;serializer:json;not null"`
	ShippingAddress  types.Address       `gorm:"column:shipping_address;type:jsonb;serializer:json;not null"`
	HostedInvoiceURL *string             `gorm:"column:hosted_invoice_url"`
	InvoicePDFURL    *string             `gorm:"column:invoice_pdf_url"`
	IssuedBy         uuid.UUID           `gorm:"column:issued_by;type:uuid;not null"`
	IssuedAt         time.Time           `gorm:"column:issued_at;not null"`
	PaidAt           *time.Time          `gorm:"column:paid_at"`
	Items            []InvoiceItem       `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// InvoiceItem copies a fulfilled order line onto the invoice.
type InvoiceItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InvoiceID      uuid.UUID `gorm:"column:invoice_id;type:uuid;not null"`
	OrderItemID    uuid.UUID `gorm:"column:order_item_id;type:uuid;not null"`
	LineNumber     int       `gorm:"column:line_number;not null"`
	ProductCode    string    `gorm:"column:product_code;not null"`
	Description    string    `gorm:"column:description;not null"`
	Qty            int64     `gorm:"column:qty;not null"`
	UnitPriceCents int64     `gorm:"column:unit_price_cents;not null"`
	LineTotalCents int64     `gorm:"column:line_total_cents;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
