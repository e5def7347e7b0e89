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

// Repository persists local invoice records and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateInvoice(ctx context.Context, invoice *models.Invoice) (*models.Invoice, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	FindByStripeInvoiceID(ctx context.Context, stripeInvoiceID string) (*models.Invoice, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*InvoiceList, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status enums.InvoiceStatus, paidAt *time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an invoice repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// CreateInvoice inserts the invoice header followed by its lines.
func (r *repository) CreateInvoice(ctx context.Context, invoice *models.Invoice) (*models.Invoice, error) {
	if invoice == nil {
		return nil, fmt.Errorf("invoice required")
	}
	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	items := invoice.Items
	if err := r.db.WithContext(ctx).Omit("Items").Create(invoice).Error; err != nil {
		return nil, err
	}
	if len(items) > 0 {
		for i := range items {
			if items[i].ID == uuid.Nil {
				items[i].ID = uuid.New()
			}
			items[i].InvoiceID = invoice.ID
		}
		if err := r.db.WithContext(ctx).Create(&items).Error; err != nil {
			return nil, err
		}
	}
	invoice.Items = items
	return invoice, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("line_number ASC")
		}).
		Where("id = ?", id).
		First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) FindByStripeInvoiceID(ctx context.Context, stripeInvoiceID string) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.WithContext(ctx).Where("stripe_invoice_id = ?", stripeInvoiceID).First(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) List(ctx context.Context, params pagination.Params, filters ListFilters) (*InvoiceList, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Invoice{})

	if filters.OrderID != nil {
		query = query.Where("order_id = ?", *filters.OrderID)
	}
	if filters.CompanyID != nil {
		query = query.Where("company_id = ?", *filters.CompanyID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, fmt.Errorf("parse cursor: %w", err)
	}

	var rows []models.Invoice
	if err := pagination.Keyset(query, "", cursor, limit).Find(&rows).Error; err != nil {
		return nil, err
	}

	rows, next := pagination.Trim(rows, limit, func(row models.Invoice) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	list := &InvoiceList{Invoices: make([]InvoiceSummary, 0, len(rows)), NextCursor: next.Encode()}
	for i := range rows {
		list.Invoices = append(list.Invoices, toSummary(&rows[i]))
	}
	return list, nil
}

func (r *repository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status enums.InvoiceStatus, paidAt *time.Time) error {
	updates := map[string]any{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}
	if paidAt != nil {
		updates["paid_at"] = *paidAt
	}
	result := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
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
