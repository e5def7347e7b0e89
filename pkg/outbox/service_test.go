package outbox

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/finishpro/admin-backend/pkg/db/dbtest"
	"github.com/finishpro/admin-backend/pkg/db/models"
	"github.com/finishpro/admin-backend/pkg/enums"
)

func TestEmitWritesEnvelope(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(NewRepository(db), nil)
	orderID := uuid.New()
	actorID := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventDistributorOrderRejected,
			AggregateType: enums.AggregateDistributorOrder,
			AggregateID:   orderID,
			Actor:         AdminActor(actorID),
			Data:          map[string]string{"reason": "duplicate order"},
		})
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, orderID, rows[0].AggregateID)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)
	require.NotNil(t, envelope.Actor)
	assert.Equal(t, actorID, envelope.Actor.UserID)
	assert.JSONEq(t, `{"reason":"duplicate order"}`, string(envelope.Data))
}

func TestEmitRejectsUnknownEventType(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(NewRepository(db), nil)

	err := svc.Emit(context.Background(), db, DomainEvent{
		EventType:     enums.OutboxEventType("order_shipped"),
		AggregateType: enums.AggregateDistributorOrder,
		AggregateID:   uuid.New(),
	})
	require.Error(t, err)
}

func TestEmitIfNotExistsSkipsDuplicates(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(NewRepository(db), nil)
	invoiceID := uuid.New()
	event := DomainEvent{
		EventType:     enums.EventInvoicePaid,
		AggregateType: enums.AggregateInvoice,
		AggregateID:   invoiceID,
		Data:          map[string]any{"invoice_id": invoiceID},
	}

	for i := 0; i < 2; i++ {
		require.NoError(t, svc.EmitIfNotExists(context.Background(), db, event))
	}

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestDeletePublishedBefore(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	now := time.Now().UTC()
	old := now.Add(-40 * 24 * time.Hour)
	cutoff := now.Add(-30 * 24 * time.Hour)

	seed := []models.OutboxEvent{
		{ID: uuid.New(), PublishedAt: &old, CreatedAt: old},
		{ID: uuid.New(), PublishedAt: &now, CreatedAt: now},
		{ID: uuid.New(), AttemptCount: 6, CreatedAt: old},
		{ID: uuid.New(), AttemptCount: 1, CreatedAt: old},
	}
	for i := range seed {
		seed[i].EventType = enums.EventInvoicePaid
		seed[i].AggregateType = enums.AggregateInvoice
		seed[i].AggregateID = uuid.New()
		seed[i].Payload = json.RawMessage(`{}`)
		require.NoError(t, db.Create(&seed[i]).Error)
	}

	deleted, err := repo.DeletePublishedBefore(context.Background(), nil, cutoff, 5)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	rows, err := repo.FetchUnpublished(context.Background(), 10, 5)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, seed[3].ID, rows[0].ID)
}

func TestEmitValidatesEvent(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(NewRepository(db), nil)

	cases := map[string]DomainEvent{
		"aggregate type": {EventType: enums.EventInvoicePaid, AggregateType: "customer", AggregateID: uuid.New()},
		"aggregate id":   {EventType: enums.EventInvoicePaid, AggregateType: enums.AggregateInvoice},
	}
	for name, event := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, svc.Emit(context.Background(), db, event))
		})
	}
	assert.Error(t, svc.Emit(context.Background(), nil, DomainEvent{}))

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEmitKeepsExplicitVersionAndTime(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(NewRepository(db), nil)
	at := time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)

	require.NoError(t, svc.Emit(context.Background(), db, DomainEvent{
		EventType:     enums.EventInvoicePaymentFailed,
		AggregateType: enums.AggregateInvoice,
		AggregateID:   uuid.New(),
		Actor:         SystemActor("stripe-webhook"),
		Version:       2,
		OccurredAt:    at,
	}))

	var row models.OutboxEvent
	require.NoError(t, db.Take(&row).Error)
	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(row.Payload, &envelope))
	assert.Equal(t, 2, envelope.Version)
	assert.True(t, at.Equal(envelope.OccurredAt))
	require.NotNil(t, envelope.Actor)
	assert.Equal(t, "stripe-webhook", envelope.Actor.System)
	assert.JSONEq(t, `null`, string(envelope.Data))
}
