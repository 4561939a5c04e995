// Package retry runs an operation under a fixed-delay retry policy.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	pkglog "github.com/weiawesome/cdc-search/pkg/log"
)

// ErrExhausted is returned when a bounded policy runs out of attempts.
var ErrExhausted = errors.New("retry attempts exhausted")

// Policy describes how often and how far apart an operation is attempted.
// MaxAttempts of 0 means retry until the context is cancelled.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

// Bounded gives up after attempts tries.
func Bounded(attempts int, delay time.Duration) Policy {
	if attempts < 1 {
		attempts = 1
	}
	return Policy{MaxAttempts: attempts, Delay: delay}
}

// Unbounded retries until the context is done.
func Unbounded(delay time.Duration) Policy {
	return Policy{Delay: delay}
}

// IsBounded reports whether the policy can run out of attempts.
func (p Policy) IsBounded() bool {
	return p.MaxAttempts > 0
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	var b backoff.BackOff = backoff.NewConstantBackOff(p.Delay)
	if p.IsBounded() {
		b = backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1))
	}
	return backoff.WithContext(b, ctx)
}

// Do calls fn until it succeeds, the policy is exhausted, or ctx is done.
// attempt starts at 1. On exhaustion the returned error wraps both
// ErrExhausted and the last error from fn.
func Do(ctx context.Context, name string, p Policy, fn func(attempt int) error) error {
	l := pkglog.L()

	attempt := 0
	op := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		attempt++
		return fn(attempt)
	}

	notify := func(err error, next time.Duration) {
		evt := l.Warn().Err(err).Str("operation", name).Int("attempt", attempt).Dur("retry_in", next)
		if p.IsBounded() {
			evt = evt.Int("max_attempts", p.MaxAttempts)
		}
		evt.Msg("attempt failed, retrying")
	}

	err := backoff.RetryNotify(op, p.backOff(ctx), notify)
	if err == nil {
		return nil
	}
	if cerr := ctx.Err(); cerr != nil {
		return cerr
	}
	return fmt.Errorf("%s: %w after %d attempts: %w", name, ErrExhausted, attempt, err)
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
