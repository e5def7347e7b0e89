package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/finishpro/admin-backend/pkg/enums"
)

// OutboxEvent is one pending or published domain event row. Payload holds the
// full versioned envelope, not just the event data.
type OutboxEvent struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;type:event_type_enum;not null"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;type:aggregate_type_enum;not null"`
	AggregateID   uuid.UUID                 `gorm:"column:aggregate_id;type:uuid;not null"`
	Payload       json.RawMessage           `gorm:"column:payload;type:jsonb;not null"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime"`
	PublishedAt   *time.Time                `gorm:"column:published_at"`
	AttemptCount  int                       `gorm:"column:attempt_count;not null;default:0"`
	LastError     *string                   `gorm:"column:last_error"`
}

func (OutboxEvent) TableName() string { return "outbox_events" }

// Published reports whether the publisher already acknowledged the row.
func (e OutboxEvent) Published() bool { return e.PublishedAt != nil }

// DeadLetter snapshots the event into a DLQ row recording why it was parked.
func (e OutboxEvent) DeadLetter(reason enums.OutboxDLQErrorReason, cause error, failedAt time.Time) OutboxDLQ {
	entry := OutboxDLQ{
		ID:            uuid.New(),
		EventID:       e.ID,
		EventType:     e.EventType,
		AggregateType: e.AggregateType,
		AggregateID:   e.AggregateID,
		Payload:       e.Payload,
		ErrorReason:   reason,
		AttemptCount:  e.AttemptCount,
		FailedAt:      failedAt.UTC(),
	}
	if cause != nil {
		msg := cause.Error()
		entry.ErrorMessage = &msg
	}
	return entry
}
