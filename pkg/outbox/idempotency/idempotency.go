// Package idempotency records which deliveries a consumer already handled so
// at-least-once transports (Pub/Sub, Stripe webhooks) take effect once.
package idempotency

import (
	"context"
	"errors"
	"strings"
	"time"
)

type markerStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Ledger claims delivery ids per consumer. A claim lives for the ledger TTL;
// zero keeps it until Release.
type Ledger struct {
	store markerStore
	ttl   time.Duration
}

func NewLedger(store markerStore, ttl time.Duration) (*Ledger, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("idempotency ttl must not be negative")
	}
	return &Ledger{store: store, ttl: ttl}, nil
}

// Claim reports true when this call is the first to see id for consumer. A
// false result means another delivery already claimed it.
func (l *Ledger) Claim(ctx context.Context, consumer, id string) (bool, error) {
	key, err := l.key(consumer, id)
	if err != nil {
		return false, err
	}
	return l.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), l.ttl)
}

// Release drops a claim so a redelivery is handled again. Call it when
// processing failed after Claim succeeded.
func (l *Ledger) Release(ctx context.Context, consumer, id string) error {
	key, err := l.key(consumer, id)
	if err != nil {
		return err
	}
	return l.store.Del(ctx, key)
}

func (l *Ledger) key(consumer, id string) (string, error) {
	consumer, id = strings.TrimSpace(consumer), strings.TrimSpace(id)
	switch {
	case consumer == "":
		return "", errors.New("consumer name is required")
	case id == "":
		return "", errors.New("delivery id is required")
	}
	return l.store.IdempotencyKey("seen:"+consumer, id), nil
}
