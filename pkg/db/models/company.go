package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/finishpro/admin-backend/pkg/types"
)

// Company is a distributor account that places wholesale orders.
type Company struct {
	ID               uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name             string         `gorm:"column:name;not null"`
	Email            string         `gorm:"column:email;not null"`
	Phone            *string        `gorm:"column:phone"`
	VATNumber        *string        `gorm:"column:vat_number"`
	BillingAddress   *types.Address `gorm:"column:billing_address;type:jsonb;serializer:json"`
	ShippingAddress  *types.Address `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	StripeCustomerID *string        `gorm:"column:stripe_customer_id"`
	CreatedAt        time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
