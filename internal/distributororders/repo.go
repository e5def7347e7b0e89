package distributororders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/finishpro/admin-backend/pkg/db/models"
	"github.com/finishpro/admin-backend/pkg/enums"
	"github.com/finishpro/admin-backend/pkg/pagination"
)

// Repository defines persistence operations for distributor orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.DistributorOrder, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error)
	ClaimForReview(ctx context.Context, claim ReviewClaim) (bool, error)
	UpdateItems(ctx context.Context, orderID uuid.UUID, updates []ItemUpdate) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a distributor orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, orderID uuid.UUID) (*models.DistributorOrder, error) {
	var order models.DistributorOrder
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC").Order("id ASC")
		}).
		Preload("Company").
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

type orderSummaryRow struct {
	ID          uuid.UUID                    `gorm:"column:id"`
	OrderNumber int64                        `gorm:"column:order_number"`
	CompanyID   uuid.UUID                    `gorm:"column:company_id"`
	CompanyName *string                      `gorm:"column:company_name"`
	Status      enums.DistributorOrderStatus `gorm:"column:status"`
	Currency    enums.Currency               `gorm:"column:currency"`
	PONumber    *string                      `gorm:"column:po_number"`
	TotalCents  int64                        `gorm:"column:total_cents"`
	ItemCount   int                          `gorm:"column:item_count"`
	CreatedAt   time.Time                    `gorm:"column:created_at"`
	ReviewedAt  *time.Time                   `gorm:"column:reviewed_at"`
}

func (r *repository) List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).
		Table("distributor_orders AS o").
		Select(`o.id, o.order_number, o.company_id, c.name AS company_name, o.status, o.currency,
o.po_number, o.total_cents, o.created_at, o.reviewed_at,
(SELECT COUNT(*) FROM distributor_order_items i WHERE i.order_id = o.id) AS item_count`).
		Joins("LEFT JOIN companies c ON c.id = o.company_id")

	if filters.Status != nil {
		query = query.Where("o.status = ?", *filters.Status)
	}
	if filters.CompanyID != nil {
		query = query.Where("o.company_id = ?", *filters.CompanyID)
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, fmt.Errorf("parse cursor: %w", err)
	}

	var rows []orderSummaryRow
	if err := pagination.Keyset(query, "o.", cursor, limit).Scan(&rows).Error; err != nil {
		return nil, err
	}

	rows, next := pagination.Trim(rows, limit, func(row orderSummaryRow) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	list := &OrderList{Orders: make([]OrderSummary, 0, len(rows)), NextCursor: next.Encode()}
	for _, row := range rows {
		summary := OrderSummary{
			ID:          row.ID,
			OrderNumber: row.OrderNumber,
			CompanyID:   row.CompanyID,
			Status:      row.Status,
			Currency:    row.Currency,
			PONumber:    row.PONumber,
			TotalCents:  row.TotalCents,
			ItemCount:   row.ItemCount,
			CreatedAt:   row.CreatedAt,
			ReviewedAt:  row.ReviewedAt,
		}
		if row.CompanyName != nil {
			summary.CompanyName = *row.CompanyName
		}
		list.Orders = append(list.Orders, summary)
	}
	return list, nil
}

// ClaimForReview moves the order out of pending_review in a single conditional
// update. It reports false when another reviewer already moved it.
func (r *repository) ClaimForReview(ctx context.Context, claim ReviewClaim) (bool, error) {
	reviewedBy := claim.ReviewedBy
	reviewedAt := claim.ReviewedAt
	values := models.DistributorOrder{
		Status:                 claim.Status,
		ReviewedBy:             &reviewedBy,
		ReviewedAt:             &reviewedAt,
		BillingOverride:        claim.BillingOverride,
		ShippingOverride:       claim.ShippingOverride,
		ShippingOverrideCents:  claim.ShippingOverrideCents,
		ShippingOverrideReason: claim.ShippingOverrideReason,
		RejectionReason:        claim.RejectionReason,
		UpdatedAt:              reviewedAt,
	}
	result := r.db.WithContext(ctx).
		Model(&models.DistributorOrder{}).
		Where("id = ? AND status = ?", claim.OrderID, enums.DistributorOrderStatusPendingReview).
		Select(
			"status",
			"reviewed_by",
			"reviewed_at",
			"billing_override",
			"shipping_override",
			"shipping_override_cents",
			"shipping_override_reason",
			"rejection_reason",
			"updated_at",
		).
		Updates(&values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) UpdateItems(ctx context.Context, orderID uuid.UUID, updates []ItemUpdate) error {
	now := time.Now().UTC()
	for _, update := range updates {
		result := r.db.WithContext(ctx).
			Model(&models.DistributorOrderItem{}).
			Where("id = ? AND order_id = ?", update.ItemID, orderID).
			Updates(map[string]any{
				"status":                  update.Status,
				"predicted_delivery_date": update.PredictedDeliveryDate,
				"back_order_note":         update.BackOrderNote,
				"updated_at":              now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != 1 {
			return fmt.Errorf("order item %s not updated", update.ItemID)
		}
	}
	return nil
}
