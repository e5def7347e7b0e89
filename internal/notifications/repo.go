package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/finishpro/admin-backend/pkg/db/models"
	"github.com/finishpro/admin-backend/pkg/enums"
	"github.com/finishpro/admin-backend/pkg/pagination"
)

// Repository exposes persistence helpers for admin notifications.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.AdminNotification) error
	List(ctx context.Context, params listNotificationsParams) ([]models.AdminNotification, *pagination.Cursor, error)
	MarkRead(ctx context.Context, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error)
	MarkAllRead(ctx context.Context, now time.Time) (int64, error)
	CountUnread(ctx context.Context) (int64, error)
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a notifications repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listNotificationsParams struct {
	Limit      int
	Cursor     *pagination.Cursor
	UnreadOnly bool
	Type       *enums.NotificationType
}

type notificationMarkResult struct {
	Updated bool
	Found   bool
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, notification *models.AdminNotification) error {
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(notification).Error
}

// List returns newest first. Limit already includes the look-ahead row.
func (r *repositoryImpl) List(ctx context.Context, params listNotificationsParams) ([]models.AdminNotification, *pagination.Cursor, error) {
	pageSize := params.Limit - 1
	if pageSize <= 0 {
		pageSize = pagination.DefaultLimit
	}
	query := r.db.WithContext(ctx).Model(&models.AdminNotification{})
	if params.UnreadOnly {
		query = query.Where("read_at IS NULL")
	}
	if params.Type != nil {
		query = query.Where("type = ?", *params.Type)
	}
	var rows []models.AdminNotification
	if err := pagination.Keyset(query, "", params.Cursor, pageSize).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	rows, next := pagination.Trim(rows, pageSize, func(n models.AdminNotification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	})
	return rows, next, nil
}

func (r *repositoryImpl) MarkRead(ctx context.Context, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
	result := r.db.WithContext(ctx).
		Model(&models.AdminNotification{}).
		Where("id = ? AND read_at IS NULL", notificationID).
		UpdateColumn("read_at", now)
	if result.Error != nil {
		return notificationMarkResult{}, result.Error
	}
	if result.RowsAffected > 0 {
		return notificationMarkResult{Updated: true, Found: true}, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.AdminNotification{}).
		Where("id = ?", notificationID).
		Count(&count).Error; err != nil {
		return notificationMarkResult{}, err
	}
	return notificationMarkResult{Found: count > 0}, nil
}

func (r *repositoryImpl) MarkAllRead(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.AdminNotification{}).
		Where("read_at IS NULL").
		UpdateColumn("read_at", now)
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) CountUnread(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AdminNotification{}).
		Where("read_at IS NULL").
		Count(&count).Error
	return count, err
}

// DeleteOlderThan removes notifications created before cutoff, read or not.
func (r *repositoryImpl) DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	conn := tx
	if conn == nil {
		conn = r.db
	}
	result := conn.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.AdminNotification{})
	return result.RowsAffected, result.Error
}
