package outbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/finishpro/admin-backend/pkg/db/models"
	"github.com/finishpro/admin-backend/pkg/enums"
)

const (
	maxDLQErrorLen  = 1024
	defaultDLQLimit = 50
	maxDLQListLimit = 500
)

// ErrDLQEntryNotFound is returned by Requeue when no dead letter exists for the event.
var ErrDLQEntryNotFound = errors.New("dlq entry not found")

// DLQFilter narrows List. A zero value lists the newest entries of every reason.
type DLQFilter struct {
	Reason *enums.OutboxDLQErrorReason
	Limit  int
}

type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.ErrorMessage != nil && len(*entry.ErrorMessage) > maxDLQErrorLen {
		msg := (*entry.ErrorMessage)[:maxDLQErrorLen]
		entry.ErrorMessage = &msg
	}
	return tx.Create(&entry).Error
}

// FindByEventID returns nil without error when the event was never dead-lettered.
func (r *DLQRepository) FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error) {
	var entry models.OutboxDLQ
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).Take(&entry).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return &entry, nil
}

func (r *DLQRepository) List(ctx context.Context, filter DLQFilter) ([]models.OutboxDLQ, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultDLQLimit
	}
	limit = min(limit, maxDLQListLimit)

	query := r.db.WithContext(ctx).Model(&models.OutboxDLQ{})
	if filter.Reason != nil {
		query = query.Where("error_reason = ?", *filter.Reason)
	}
	var rows []models.OutboxDLQ
	err := query.Order("failed_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// Requeue removes the dead letter for eventID and hands the event back to the
// publisher with a fresh attempt budget. When retention already purged the
// outbox row it is recreated from the DLQ snapshot.
func (r *DLQRepository) Requeue(ctx context.Context, eventID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.OutboxDLQ
		err := tx.Where("event_id = ?", eventID).Take(&entry).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDLQEntryNotFound
		}
		if err != nil {
			return fmt.Errorf("load dlq entry: %w", err)
		}

		res := tx.Model(&models.OutboxEvent{}).
			Where("id = ?", eventID).
			Updates(map[string]any{
				"attempt_count": 0,
				"last_error":    nil,
				"published_at":  nil,
			})
		if res.Error != nil {
			return fmt.Errorf("reset outbox event: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			restored := models.OutboxEvent{
				ID:            entry.EventID,
				EventType:     entry.EventType,
				AggregateType: entry.AggregateType,
				AggregateID:   entry.AggregateID,
				Payload:       entry.Payload,
			}
			if err := tx.Create(&restored).Error; err != nil {
				return fmt.Errorf("restore outbox event: %w", err)
			}
		}

		return tx.Where("event_id = ?", eventID).Delete(&models.OutboxDLQ{}).Error
	})
}
