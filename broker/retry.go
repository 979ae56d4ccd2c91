package broker

import (
	"context"
	"time"
)

// Backoff retries an operation on transient faults with exponentially
// growing sleeps. Non-transient errors abort immediately.
type Backoff struct {
	Initial  time.Duration
	Max      time.Duration
	Factor   float64
	Attempts int
}

// DefaultBackoff suits polling-cadence calls: a failed round must not
// stall the loop for long.
func DefaultBackoff() Backoff {
	return Backoff{
		Initial:  500 * time.Millisecond,
		Max:      8 * time.Second,
		Factor:   2.0,
		Attempts: 4,
	}
}

// Do runs op until it succeeds, returns a non-transient error, or the
// attempt budget is spent. The last error is returned on exhaustion.
func (b Backoff) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := b.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := b.Initial
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = op(ctx); err == nil || !IsTransient(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * b.Factor)
		if b.Max > 0 && delay > b.Max {
			delay = b.Max
		}
	}
	return err
}
