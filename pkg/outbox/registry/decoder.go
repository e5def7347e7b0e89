package registry

import (
	"encoding/json"
	"fmt"

	"github.com/finishpro/admin-backend/pkg/enums"
)

// DecodeFunc turns an envelope's data into a typed payload value.
type DecodeFunc func(data json.RawMessage) (any, error)

type decoderKey struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry maps (event type, envelope version) to a payload decoder on
// the consuming side. It is built once at startup and read-only afterwards.
type DecoderRegistry struct {
	decoders map[decoderKey]DecodeFunc
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{decoders: map[decoderKey]DecodeFunc{}}
}

func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decode DecodeFunc) {
	r.decoders[decoderKey{eventType, version}] = decode
}

// Register binds eventType@version to plain JSON decoding into T. The decoded
// value is a T, not a *T.
func Register[T any](r *DecoderRegistry, eventType enums.OutboxEventType, version int) {
	r.Register(eventType, version, func(data json.RawMessage) (any, error) {
		var payload T
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("decode %s@v%d: %w", eventType, version, err)
		}
		return payload, nil
	})
}

func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, data json.RawMessage) (any, error) {
	decode, ok := r.decoders[decoderKey{eventType, version}]
	if !ok {
		return nil, fmt.Errorf("no decoder for %s@v%d", eventType, version)
	}
	return decode(data)
}
