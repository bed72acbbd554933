// Package retry implements a bounded exponential backoff policy.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy describes how many times an operation is attempted and how long to
// wait between attempts. The wait starts at InitialDelay and is multiplied by
// Multiplier after every failed attempt.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	// MaxDelay caps a single wait (0 = uncapped).
	MaxDelay time.Duration
	// OnRetry, if set, is called after a failed attempt and before the wait.
	OnRetry func(attempt int, err error, wait time.Duration)

	sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy is three attempts starting at one second and doubling.
var DefaultPolicy = Policy{
	MaxAttempts:  3,
	InitialDelay: time.Second,
	Multiplier:   2,
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying. Do returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.InitialDelay < 0 {
		p.InitialDelay = 0
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	if p.sleep == nil {
		p.sleep = sleepContext
	}
	return p
}

// Delays returns the waits Do would perform between attempts if every
// attempt failed.
func (p Policy) Delays() []time.Duration {
	p = p.normalized()
	out := make([]time.Duration, 0, p.MaxAttempts-1)
	wait := p.InitialDelay
	for i := 1; i < p.MaxAttempts; i++ {
		out = append(out, p.cap(wait))
		wait = time.Duration(float64(wait) * p.Multiplier)
	}
	return out
}

func (p Policy) cap(d time.Duration) time.Duration {
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Do calls f until it returns nil, returns a Permanent error, the attempts
// are exhausted or ctx is done. The returned error wraps the last failure.
func (p Policy) Do(ctx context.Context, f func(ctx context.Context, attempt int) error) error {
	p = p.normalized()
	wait := p.InitialDelay

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry aborted: %w", err)
		}

		lastErr = f(ctx, attempt)
		if lastErr == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}
		if attempt == p.MaxAttempts {
			break
		}

		d := p.cap(wait)
		if p.OnRetry != nil {
			p.OnRetry(attempt, lastErr, d)
		}
		if err := p.sleep(ctx, d); err != nil {
			return fmt.Errorf("retry aborted: %w", err)
		}
		wait = time.Duration(float64(wait) * p.Multiplier)
	}

	return fmt.Errorf("after %d attempts: %w", p.MaxAttempts, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
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
