package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/finishpro/admin-backend/pkg/enums"
)

// InvoiceIntent records an approval attempt before the provider is called so an
// unfinished attempt can be found and compensated later.
type InvoiceIntent struct {
	ID              uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID                 `gorm:"column:order_id;type:uuid;not null"`
	CompanyID       uuid.UUID                 `gorm:"column:company_id;type:uuid;not null"`
	Attempt         int                       `gorm:"column:attempt;not null"`
	IdempotencyKey  string                    `gorm:"column:idempotency_key;not null;uniqueIndex"`
	Status          enums.InvoiceIntentStatus `gorm:"column:status;type:invoice_intent_status;not null;default:'pending'"`
	StripeInvoiceID *string                   `gorm:"column:stripe_invoice_id"`
	TotalCents      int64                     `gorm:"column:total_cents;not null"`
	LastError       *string                   `gorm:"column:last_error"`
	CreatedBy       uuid.UUID                 `gorm:"column:created_by;type:uuid;not null"`
	CommittedAt     *time.Time                `gorm:"column:committed_at"`
	ResolvedAt      *time.Time                `gorm:"column:resolved_at"`
	ResolvedBy      *uuid.UUID                `gorm:"column:resolved_by;type:uuid"`
	CreatedAt       time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}
