package main

import (
	"context"
	"math/rand/v2"
	"time"
)

const (
	maxBackoff   = 10 * time.Second
	jitterWindow = 250 * time.Millisecond
)

// pacer decides how long the loop waits between batches: nothing after a
// full batch, the poll interval when idle, and a doubling delay after errors.
type pacer struct {
	interval time.Duration
	backoff  time.Duration
}

func newPacer(interval time.Duration) *pacer {
	return &pacer{interval: interval, backoff: interval}
}

func (p *pacer) next(processed bool, err error) time.Duration {
	switch {
	case err != nil:
		p.backoff = nextBackoff(p.backoff, p.interval, maxBackoff)
		return withJitter(p.backoff)
	case processed:
		p.backoff = p.interval
		return 0
	default:
		p.backoff = p.interval
		return withJitter(p.interval)
	}
}

func nextBackoff(current, base, ceiling time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	return min(current*2, ceiling)
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
