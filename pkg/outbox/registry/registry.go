package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/finishpro/admin-backend/pkg/config"
	"github.com/finishpro/admin-backend/pkg/db/models"
	"github.com/finishpro/admin-backend/pkg/enums"
	"github.com/finishpro/admin-backend/pkg/outbox"
	"github.com/finishpro/admin-backend/pkg/outbox/payloads"
)

// EventDescriptor binds an outbox event type to the aggregate it belongs to,
// the topic it goes out on and the payload schema it must decode into.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// EventRegistry is the publisher-side catalogue of publishable events.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

func describe[T any](event enums.OutboxEventType, aggregate enums.OutboxAggregateType, topic string) EventDescriptor {
	return EventDescriptor{
		EventType:      event,
		AggregateType:  aggregate,
		Topic:          topic,
		PayloadFactory: func() any { return new(T) },
	}
}

// NewEventRegistry routes every domain event to FINISHPRO_PUBSUB_DOMAIN_TOPIC.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	topic := cfg.DomainTopic
	if topic == "" {
		return nil, errors.New("domain topic is required")
	}

	descriptors := []EventDescriptor{
		describe[payloads.DistributorOrderApprovedEvent](enums.EventDistributorOrderApproved, enums.AggregateDistributorOrder, topic),
		describe[payloads.DistributorOrderRejectedEvent](enums.EventDistributorOrderRejected, enums.AggregateDistributorOrder, topic),
		describe[payloads.InvoiceCompensationFailedEvent](enums.EventInvoiceCompensationFailed, enums.AggregateInvoiceIntent, topic),
		describe[payloads.InvoicePaymentEvent](enums.EventInvoicePaid, enums.AggregateInvoice, topic),
		describe[payloads.InvoicePaymentEvent](enums.EventInvoicePaymentFailed, enums.AggregateInvoice, topic),
	}
	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor, len(descriptors))}
	for _, desc := range descriptors {
		reg.entries[desc.EventType] = desc
	}
	return reg, nil
}

// Topics returns the distinct topics in sorted order.
func (r *EventRegistry) Topics() []string {
	set := make(map[string]struct{}, len(r.entries))
	for _, desc := range r.entries {
		set[desc.Topic] = struct{}{}
	}
	return slices.Sorted(maps.Keys(set))
}

// Resolve checks the row against its descriptor and decodes the payload. Every
// failure is a NonRetryableError since republishing the same row cannot fix it.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, err := r.descriptorFor(event)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}
	if data := bytes.TrimSpace(envelope.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("payload missing for %s", event.EventType))
	}

	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}

func (r *EventRegistry) descriptorFor(event models.OutboxEvent) (EventDescriptor, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return desc, fmt.Errorf("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return desc, fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return desc, errors.New("missing aggregate_id")
	}
	return desc, nil
}
