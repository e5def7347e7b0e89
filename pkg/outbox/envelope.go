package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ActorRef names who caused an event: an admin user or a background job.
type ActorRef struct {
	UserID uuid.UUID `json:"userId"`
	Role   string    `json:"role,omitempty"`
	System string    `json:"system,omitempty"`
}

// PayloadEnvelope is what outbox_events.payload holds and what subscribers
// receive as the Pub/Sub message body. Data is the versioned event payload.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// AdminActor is nil for uuid.Nil so anonymous callers leave actor unset.
func AdminActor(userID uuid.UUID) *ActorRef {
	if userID == uuid.Nil {
		return nil
	}
	return &ActorRef{UserID: userID, Role: "admin"}
}

func SystemActor(name string) *ActorRef {
	return &ActorRef{System: name}
}

func sealEnvelope(event DomainEvent, occurredAt time.Time) (PayloadEnvelope, json.RawMessage, error) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return PayloadEnvelope{}, nil, fmt.Errorf("marshal %s data: %w", event.EventType, err)
	}
	env := PayloadEnvelope{
		Version:    max(event.Version, 1),
		EventID:    uuid.NewString(),
		OccurredAt: occurredAt.UTC(),
		Actor:      event.Actor,
		Data:       data,
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return PayloadEnvelope{}, nil, fmt.Errorf("marshal %s envelope: %w", event.EventType, err)
	}
	return env, raw, nil
}
