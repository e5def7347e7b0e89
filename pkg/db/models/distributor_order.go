package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/finishpro/admin-backend/pkg/enums"
	"github.com/finishpro/admin-backend/pkg/types"
)

// DistributorOrder is a wholesale order awaiting or past admin review.
type DistributorOrder struct {
	ID                     uuid.UUID                    `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CompanyID              uuid.UUID                    `gorm:"column:company_id;type:uuid;not null"`
	OrderNumber            int64                        `gorm:"column:order_number;not null"`
	Status                 enums.DistributorOrderStatus `gorm:"column:status;type:distributor_order_status;not null;default:'pending_review'"`
	Currency               enums.Currency               `gorm:"column:currency;type:text;not null;default:'GBP'"`
	PONumber               *string                      `gorm:"column:po_number"`
	BillingAddress         types.Address                `gorm:"column:billing_address;type:jsonb;serializer:json;not null"`
	ShippingAddress        types.Address                `gorm:"column:shipping_address;type:jsonb;serializer:json;not null"`
	SubtotalCents          int64                        `gorm:"column:subtotal_cents;not null"`
	ShippingCents          int64                        `gorm:"column:shipping_cents;not null;default:0"`
	VATCents               int64                        `gorm:"column:vat_cents;not null;default:0"`
	TotalCents             int64                        `gorm:"column:total_cents;not null"`
	Notes                  *string                      `gorm:"column:notes"`
	BillingOverride        *types.Address               `gorm:"column:billing_override;type:jsonb;serializer:json"`
	ShippingOverride       *types.Address               `gorm:"column:shipping_override;type:jsonb;serializer:json"`
	ShippingOverrideCents  *int64                       `gorm:"column:shipping_override_cents"`
	ShippingOverrideReason *string                      `gorm:"column:shipping_override_reason"`
	RejectionReason        *string                      `gorm:"column:rejection_reason"`
	ReviewedBy             *uuid.UUID                   `gorm:"column:reviewed_by;type:uuid"`
	ReviewedAt             *time.Time                   `gorm:"column:reviewed_at"`
	Items                  []DistributorOrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Company                *Company                     `gorm:"foreignKey:CompanyID"`
	CreatedAt              time.Time                    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time                    `gorm:"column:updated_at;autoUpdateTime"`
}

// DistributorOrderItem is one line of a DistributorOrder.
type DistributorOrderItem struct {
	ID                    uuid.UUID                        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID               uuid.UUID                        `gorm:"column:order_id;type:uuid;not null"`
	Position              int                              `gorm:"column:position;not null;default:0"`
	ProductCode           string                           `gorm:"column:product_code;not null"`
	Description           string                           `gorm:"column:description;not null"`
	Qty                   int64                            `gorm:"column:qty;not null"`
	UnitPriceCents        int64                            `gorm:"column:unit_price_cents;not null"`
	LineTotalCents        int64                            `gorm:"column:line_total_cents;not null"`
	Status                enums.DistributorOrderItemStatus `gorm:"column:status;type:distributor_order_item_status;not null;default:'pending'"`
	PredictedDeliveryDate *time.Time                       `gorm:"column:predicted_delivery_date;type:date"`
	BackOrderNote         *string                          `gorm:"column:back_order_note"`
	CreatedAt             time.Time                        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time                        `gorm:"column:updated_at;autoUpdateTime"`
}
