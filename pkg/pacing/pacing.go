// Package pacing produces human-like pauses between consecutive actions.
package pacing

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Pacer draws a delay uniformly from [min, max] and sleeps for it.
// It is safe for concurrent use by multiple goroutines.
type Pacer struct {
	min time.Duration
	max time.Duration

	mu    sync.Mutex
	rng   *rand.Rand
	sleep func(ctx context.Context, d time.Duration) error
}

// Option customises a Pacer.
type Option func(*Pacer)

// WithRand sets the random source used to draw delays.
func WithRand(r *rand.Rand) Option {
	return func(p *Pacer) {
		if r != nil {
			p.rng = r
		}
	}
}

// WithSleep replaces the function used to wait. Tests use it to avoid real
// sleeps.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Pacer) {
		if fn != nil {
			p.sleep = fn
		}
	}
}

// New creates a pacer for the interval [min, max]. Negative bounds are
// clamped to zero and a max below min collapses the interval to min.
func New(min, max time.Duration, opts ...Option) *Pacer {
	if min < 0 {
		min = 0
	}
	if max < min {
		max = min
	}

	p := &Pacer{
		min:   min,
		max:   max,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep: sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Bounds returns the configured interval.
func (p *Pacer) Bounds() (min, max time.Duration) {
	return p.min, p.max
}

// Next draws the next delay without sleeping.
func (p *Pacer) Next() time.Duration {
	span := int64(p.max - p.min)
	if span <= 0 {
		return p.min
	}

	p.mu.Lock()
	offset := p.rng.Int63n(span + 1)
	p.mu.Unlock()

	return p.min + time.Duration(offset)
}

// Wait sleeps for a freshly drawn delay, or until ctx is done. It returns the
// drawn delay either way.
func (p *Pacer) Wait(ctx context.Context) (time.Duration, error) {
	d := p.Next()
	if err := p.sleep(ctx, d); err != nil {
		return d, err
	}
	return d, nil
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
