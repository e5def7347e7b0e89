package outbox

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finishpro/admin-backend/pkg/db/dbtest"
	"github.com/finishpro/admin-backend/pkg/db/models"
	"github.com/finishpro/admin-backend/pkg/enums"
)

func failedEvent(attempts int) models.OutboxEvent {
	lastErr := "publish timeout"
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventInvoicePaid,
		AggregateType: enums.AggregateInvoice,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{"version":1,"data":{}}`),
		AttemptCount:  attempts,
		LastError:     &lastErr,
	}
}

func TestDLQInsertTruncatesErrorMessage(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewDLQRepository(db)
	event := failedEvent(5)

	entry := event.DeadLetter(enums.OutboxDLQReasonMaxAttempts, errors.New(strings.Repeat("x", 3000)), time.Now())
	require.NoError(t, repo.InsertTx(db, entry))

	stored, err := repo.FindByEventID(context.Background(), event.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.NotNil(t, stored.ErrorMessage)
	assert.Len(t, *stored.ErrorMessage, maxDLQErrorLen)
	assert.Equal(t, 5, stored.AttemptCount)
}

func TestDLQFindByEventIDMissing(t *testing.T) {
	repo := NewDLQRepository(dbtest.Open(t))

	entry, err := repo.FindByEventID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestDLQListFiltersByReason(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewDLQRepository(db)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	older := failedEvent(5).DeadLetter(enums.OutboxDLQReasonMaxAttempts, errors.New("timeout"), base)
	newer := failedEvent(5).DeadLetter(enums.OutboxDLQReasonMaxAttempts, errors.New("timeout"), base.Add(time.Hour))
	other := failedEvent(0).DeadLetter(enums.OutboxDLQReasonNonRetryable, errors.New("bad payload"), base)
	for _, entry := range []models.OutboxDLQ{older, newer, other} {
		require.NoError(t, repo.InsertTx(db, entry))
	}

	all, err := repo.List(context.Background(), DLQFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	reason := enums.OutboxDLQReasonMaxAttempts
	rows, err := repo.List(context.Background(), DLQFilter{Reason: &reason})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, newer.EventID, rows[0].EventID)
	assert.Equal(t, older.EventID, rows[1].EventID)

	limited, err := repo.List(context.Background(), DLQFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestDLQRequeueResetsOutboxRow(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewDLQRepository(db)
	event := failedEvent(5)
	require.NoError(t, NewRepository(db).Insert(db, event))
	require.NoError(t, repo.InsertTx(db, event.DeadLetter(enums.OutboxDLQReasonMaxAttempts, errors.New("timeout"), time.Now())))

	require.NoError(t, repo.Requeue(context.Background(), event.ID))

	var row models.OutboxEvent
	require.NoError(t, db.Where("id = ?", event.ID).Take(&row).Error)
	assert.Zero(t, row.AttemptCount)
	assert.Nil(t, row.LastError)
	assert.False(t, row.Published())

	entry, err := repo.FindByEventID(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Nil(t, entry)

	pending, err := NewRepository(db).FetchUnpublished(context.Background(), 10, 5)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, event.ID, pending[0].ID)
}

func TestDLQRequeueRestoresPurgedEvent(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewDLQRepository(db)
	event := failedEvent(5)
	require.NoError(t, repo.InsertTx(db, event.DeadLetter(enums.OutboxDLQReasonNonRetryable, errors.New("bad payload"), time.Now())))

	require.NoError(t, repo.Requeue(context.Background(), event.ID))

	var row models.OutboxEvent
	require.NoError(t, db.Where("id = ?", event.ID).Take(&row).Error)
	assert.Equal(t, event.EventType, row.EventType)
	assert.Equal(t, event.AggregateID, row.AggregateID)
	assert.JSONEq(t, string(event.Payload), string(row.Payload))
	assert.Zero(t, row.AttemptCount)
}

func TestDLQRequeueUnknownEvent(t *testing.T) {
	repo := NewDLQRepository(dbtest.Open(t))

	err := repo.Requeue(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrDLQEntryNotFound)
}
