package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/finishpro/admin-backend/pkg/db/models"
	"github.com/finishpro/admin-backend/pkg/enums"
	"github.com/finishpro/admin-backend/pkg/logger"
	"github.com/finishpro/admin-backend/pkg/outbox"
	"github.com/finishpro/admin-backend/pkg/outbox/payloads"
)

type recordingWriter struct {
	created []*models.AdminNotification
	err     error
}

func (r *recordingWriter) Create(ctx context.Context, notification *models.AdminNotification) error {
	if r.err != nil {
		return r.err
	}
	r.created = append(r.created, notification)
	return nil
}

type memoryTracker struct {
	seen    map[string]bool
	deleted int
}

func (m *memoryTracker) Claim(_ context.Context, consumer, id string) (bool, error) {
	if m.seen[consumer+":"+id] {
		return false, nil
	}
	m.seen[consumer+":"+id] = true
	return true, nil
}

func (m *memoryTracker) Release(_ context.Context, consumer, id string) error {
	delete(m.seen, consumer+":"+id)
	m.deleted++
	return nil
}

func newTestConsumer(t *testing.T, writer *recordingWriter) (*Consumer, *memoryTracker) {
	t.Helper()
	tracker := &memoryTracker{seen: map[string]bool{}}
	consumer, err := newConsumer(writer, nil, tracker, logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}}))
	if err != nil {
		t.Fatalf("newConsumer: %v", err)
	}
	return consumer, tracker
}

func envelopeBytes(t *testing.T, eventID uuid.UUID, data any) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	out, err := json.Marshal(outbox.PayloadEnvelope{Version: 1, EventID: eventID.String(), Data: raw})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return out
}

func TestConsumerNotifiesOnCompensationFailureOnce(t *testing.T) {
	writer := &recordingWriter{}
	consumer, _ := newTestConsumer(t, writer)
	eventID := uuid.New()
	intentID := uuid.New()
	data := envelopeBytes(t, eventID, payloads.InvoiceCompensationFailedEvent{
		IntentID:        intentID,
		OrderID:         uuid.New(),
		StripeInvoiceID: "in_123",
		Error:           "stripe unavailable",
		Source:          "approval",
	})
	attrs := map[string]string{"event_type": string(enums.EventInvoiceCompensationFailed)}

	if nack := consumer.process(context.Background(), "m1", attrs, data); nack {
		t.Fatal("expected ack")
	}
	if nack := consumer.process(context.Background(), "m2", attrs, data); nack {
		t.Fatal("expected ack on redelivery")
	}
	if len(writer.created) != 1 {
		t.Fatalf("expected one notification, got %d", len(writer.created))
	}
	n := writer.created[0]
	if n.Type != enums.NotificationTypeCompensationFailed {
		t.Fatalf("unexpected type %s", n.Type)
	}
	if n.Link == nil || *n.Link != "/invoice-intents/"+intentID.String() {
		t.Fatalf("unexpected link %v", n.Link)
	}
	if !strings.Contains(n.Message, "in_123") {
		t.Fatalf("message should name the invoice: %s", n.Message)
	}
}

func TestConsumerApprovedMessageMentionsBackOrders(t *testing.T) {
	writer := &recordingWriter{}
	consumer, _ := newTestConsumer(t, writer)
	data := envelopeBytes(t, uuid.New(), payloads.DistributorOrderApprovedEvent{
		OrderID:         uuid.New(),
		OrderNumber:     1042,
		StripeInvoiceID: "in_9",
		BackOrderCount:  2,
		TotalCents:      3000,
		Currency:        enums.CurrencyGBP,
	})

	consumer.process(context.Background(), "m1", map[string]string{"event_type": string(enums.EventDistributorOrderApproved)}, data)

	if len(writer.created) != 1 {
		t.Fatalf("expected notification")
	}
	n := writer.created[0]
	if n.Title != "Order #1042 approved" {
		t.Fatalf("unexpected title %q", n.Title)
	}
	if n.Message != "Invoice in_9 for 30.00 GBP sent. 2 item(s) back-ordered." {
		t.Fatalf("unexpected message %q", n.Message)
	}
}

func TestConsumerNacksAndClearsMarkerOnWriteFailure(t *testing.T) {
	writer := &recordingWriter{err: errors.New("db down")}
	consumer, tracker := newTestConsumer(t, writer)
	data := envelopeBytes(t, uuid.New(), payloads.InvoicePaymentEvent{InvoiceID: uuid.New(), StripeInvoiceID: "in_1", AmountCents: 100})

	if nack := consumer.process(context.Background(), "m1", map[string]string{"event_type": string(enums.EventInvoicePaid)}, data); !nack {
		t.Fatal("expected nack")
	}
	if tracker.deleted != 1 || len(tracker.seen) != 0 {
		t.Fatalf("idempotency marker should be cleared")
	}
}

func TestConsumerAcksUnknownAndMalformedEvents(t *testing.T) {
	writer := &recordingWriter{}
	consumer, _ := newTestConsumer(t, writer)

	if nack := consumer.process(context.Background(), "m1", map[string]string{"event_type": "store_created"}, []byte(`{}`)); nack {
		t.Fatal("unknown events should be acked")
	}
	if nack := consumer.process(context.Background(), "m2", map[string]string{"event_type": string(enums.EventInvoicePaid)}, []byte(`not json`)); nack {
		t.Fatal("malformed envelopes should be acked")
	}
	if len(writer.created) != 0 {
		t.Fatal("nothing should be written")
	}
}
