// Package retry runs idempotent operations a bounded number of times with a
// fixed pause between attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Policy bounds a retry loop.
type Policy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultPolicy tolerates a cold-starting backend: 4 attempts, 1.5s apart.
var DefaultPolicy = Policy{Attempts: 4, Delay: 1500 * time.Millisecond}

// ErrExhausted is wrapped by the error returned once every attempt failed.
var ErrExhausted = errors.New("retries exhausted")

// permanent marks an error that must not be retried.
type permanent struct{ err error }

func (p permanent) Error() string { return p.err.Error() }
func (p permanent) Unwrap() error { return p.err }

// Permanent wraps err so Do returns it immediately without further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanent{err: err}
}

// Do calls fn until it succeeds, returns a Permanent error, the attempts are
// used up, or ctx is cancelled. The last attempt's error is wrapped together
// with ErrExhausted.
func Do(ctx context.Context, p Policy, op string, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		var perm permanent
		if errors.As(err, &perm) {
			return perm.err
		}

		lastErr = err
		slog.Debug("Attempt failed", "op", op, "attempt", attempt, "of", attempts, "err", err)

		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Delay):
		}
	}

	return fmt.Errorf("%s: %w after %d attempts: %w", op, ErrExhausted, attempts, lastErr)
}
