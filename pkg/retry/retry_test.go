package retry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func recordingSleep(waits *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return ctx.Err()
	}
}

func TestPolicy_SucceedsAfterRetries(t *testing.T) {
	var waits []time.Duration
	p := Policy{MaxAttempts: 3, InitialDelay: time.Second, Multiplier: 2, sleep: recordingSleep(&waits)}

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		if attempt < 3 {
			return errors.New("boom")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	if len(waits) != 2 || waits[0] != time.Second || waits[1] != 2*time.Second {
		t.Errorf("expected waits [1s 2s], got %v", waits)
	}
}

func TestPolicy_ExhaustsAttempts(t *testing.T) {
	var waits []time.Duration
	p := Policy{MaxAttempts: 3, InitialDelay: 10 * time.Millisecond, Multiplier: 2, sleep: recordingSleep(&waits)}
	sentinel := errors.New("upstream down")

	err := p.Do(context.Background(), func(ctx context.Context, attempt int) error {
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped sentinel, got %v", err)
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("expected attempt count in error, got %q", err.Error())
	}
	if len(waits) != 2 {
		t.Errorf("expected 2 waits, got %d", len(waits))
	}
}

func TestPolicy_PermanentStopsImmediately(t *testing.T) {
	var waits []time.Duration
	p := Policy{MaxAttempts: 5, InitialDelay: time.Second, Multiplier: 2, sleep: recordingSleep(&waits)}
	sentinel := errors.New("bad key")

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return Permanent(sentinel)
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel, got %v", err)
	}
	if calls != 1 || len(waits) != 0 {
		t.Errorf("expected a single call with no waits, got calls=%d waits=%v", calls, waits)
	}
}

func TestPolicy_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := Policy{MaxAttempts: 3, InitialDelay: time.Hour, Multiplier: 2}
	err := p.Do(ctx, func(ctx context.Context, attempt int) error {
		t.Fatal("f should not be called with a cancelled context")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestPolicy_Delays(t *testing.T) {
	p := Policy{MaxAttempts: 4, InitialDelay: time.Second, Multiplier: 2, MaxDelay: 3 * time.Second}
	got := p.Delays()
	want := []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("delay %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestPolicy_ZeroValueRunsOnce(t *testing.T) {
	calls := 0
	err := Policy{}.Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return errors.New("fail")
	})
	if err == nil || calls != 1 {
		t.Errorf("expected one failing call, got calls=%d err=%v", calls, err)
	}
}

func TestPolicy_OnRetryHook(t *testing.T) {
	var attempts []int
	p := Policy{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		Multiplier:   2,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			attempts = append(attempts, attempt)
		},
	}
	_ = p.Do(context.Background(), func(ctx context.Context, attempt int) error {
		return errors.New("fail")
	})
	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("expected OnRetry for attempts [1 2], got %v", attempts)
	}
}
