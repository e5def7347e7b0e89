package invoices

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

// IntentRepository persists the saga rows written around each approval attempt.
type IntentRepository interface {
	WithTx(tx *gorm.DB) IntentRepository
	CountForOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
	Create(ctx context.Context, intent *models.InvoiceIntent) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.InvoiceIntent, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Transition(ctx context.Context, id uuid.UUID, from []enums.InvoiceIntentStatus, updates map[string]any) (bool, error)
	List(ctx context.Context, params pagination.Params, filters IntentFilters) (*IntentList, error)
	ListStale(ctx context.Context, before time.Time, limit int) ([]models.InvoiceIntent, error)
	HasActiveForStripeInvoice(ctx context.Context, stripeInvoiceID string) (bool, error)
}

type intentRepository struct {
	db *gorm.DB
}

// NewIntentRepository builds an intent repository bound to the provided DB.
func NewIntentRepository(db *gorm.DB) IntentRepository {
	return &intentRepository{db: db}
}

func (r *intentRepository) WithTx(tx *gorm.DB) IntentRepository {
	if tx == nil {
		return r
	}
	return &intentRepository{db: tx}
}

func (r *intentRepository) CountForOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.InvoiceIntent{}).
		Where("order_id = ?", orderID).
		Count(&count).Error
	return count, err
}

// Create inserts the intent. The open-intent unique index rejects a second
// blocking intent for the same order.
func (r *intentRepository) Create(ctx context.Context, intent *models.InvoiceIntent) error {
	if intent == nil {
		return fmt.Errorf("intent required")
	}
	if intent.ID == uuid.Nil {
		intent.ID = uuid.New()
	}
	if intent.Status == "" {
		intent.Status = enums.InvoiceIntentStatusPending
	}
	return r.db.WithContext(ctx).Create(intent).Error
}

func (r *intentRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.InvoiceIntent, error) {
	var intent models.InvoiceIntent
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&intent).Error; err != nil {
		return nil, err
	}
	return &intent, nil
}

func (r *intentRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&models.InvoiceIntent{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Transition applies updates only while the intent is in one of the from states.
func (r *intentRepository) Transition(ctx context.Context, id uuid.UUID, from []enums.InvoiceIntentStatus, updates map[string]any) (bool, error) {
	if len(from) == 0 {
		return false, fmt.Errorf("source states required")
	}
	updates["updated_at"] = time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&models.InvoiceIntent{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *intentRepository) List(ctx context.Context, params pagination.Params, filters IntentFilters) (*IntentList, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.InvoiceIntent{})

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.OrderID != nil {
		query = query.Where("order_id = ?", *filters.OrderID)
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, fmt.Errorf("parse cursor: %w", err)
	}

	var rows []models.InvoiceIntent
	if err := pagination.Keyset(query, "", cursor, limit).Find(&rows).Error; err != nil {
		return nil, err
	}

	rows, next := pagination.Trim(rows, limit, func(row models.InvoiceIntent) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	list := &IntentList{Intents: make([]IntentSummary, 0, len(rows)), NextCursor: next.Encode()}
	for i := range rows {
		list.Intents = append(list.Intents, toIntentSummary(&rows[i]))
	}
	return list, nil
}

// HasActiveForStripeInvoice reports whether an approval that produced
// stripeInvoiceID is still in flight.
func (r *intentRepository) HasActiveForStripeInvoice(ctx context.Context, stripeInvoiceID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.InvoiceIntent{}).
		Where("stripe_invoice_id = ? AND status IN ?", stripeInvoiceID, enums.ActiveInvoiceIntentStatuses).
		Count(&count).Error
	return count > 0, err
}

// ListStale returns in-flight intents untouched since before, oldest first.
func (r *intentRepository) ListStale(ctx context.Context, before time.Time, limit int) ([]models.InvoiceIntent, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.InvoiceIntent
	err := r.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?", enums.ActiveInvoiceIntentStatuses, before).
		Order("updated_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
