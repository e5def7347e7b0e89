package companies

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/finishpro/admin-backend/pkg/db/models"
)

// Repository exposes the company reads and the provider customer link used during approval.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Company, error)
	SetStripeCustomerID(ctx context.Context, companyID uuid.UUID, customerID string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a company repository backed by the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	var company models.Company
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&company).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

// SetStripeCustomerID links the provider customer only when none is stored yet.
// It reports false when another approval linked a customer first.
func (r *repository) SetStripeCustomerID(ctx context.Context, companyID uuid.UUID, customerID string) (bool, error) {
	customerID = strings.TrimSpace(customerID)
	result := r.db.WithContext(ctx).
		Model(&models.Company{}).
		Where("id = ? AND stripe_customer_id IS NULL", companyID).
		Update("stripe_customer_id", customerID)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
