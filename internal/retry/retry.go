// Package retry runs calls to external services with a per-attempt deadline
// and bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Defaults applied to zero-valued Policy fields.
const (
	DefaultAttempts        = 3
	DefaultTimeout         = 30 * time.Second
	DefaultInitialInterval = 500 * time.Millisecond
	DefaultMaxInterval     = 10 * time.Second
)

// Policy bounds how an operation is retried.
type Policy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int

	// Timeout bounds every single attempt.
	Timeout time.Duration

	InitialInterval time.Duration
	MaxInterval     time.Duration

	// Permanent reports errors that must not be retried.
	Permanent func(error) bool

	Logger *slog.Logger
}

func (p Policy) withDefaults() Policy {
	if p.Attempts <= 0 {
		p.Attempts = DefaultAttempts
	}
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeout
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = DefaultInitialInterval
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = DefaultMaxInterval
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	return p
}

// Do calls fn until it succeeds, returns a permanent error, the attempts
// are used up, or ctx ends. Each call receives a context bounded by the
// policy timeout. The last error is returned.
func (p Policy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	p = p.withDefaults()

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	eb.MaxInterval = p.MaxInterval
	eb.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(p.Attempts-1)), ctx)

	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		callCtx, cancel := context.WithTimeout(ctx, p.Timeout)
		defer cancel()

		err := fn(callCtx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || (p.Permanent != nil && p.Permanent(err)) {
			return backoff.Permanent(err)
		}
		return err
	}, b, func(err error, wait time.Duration) {
		p.Logger.Warn("retrying external call",
			"op", op, "attempt", attempt, "wait", wait, "error", err)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			return fmt.Errorf("%s: %w (%v)", op, err, ctxErr)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
