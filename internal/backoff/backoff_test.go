package backoff

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

var errFlaky = errors.New("flaky")

func TestDelayGrowsExponentially(t *testing.T) {
	p := Policy{Initial: time.Second, Max: time.Minute, Factor: 2, Jitter: 0}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
	}
	for _, tc := range cases {
		if got := p.Delay(tc.attempt); got != tc.want {
			t.Errorf("Delay(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestDelayClampedToMax(t *testing.T) {
	p := Policy{Initial: time.Second, Max: 5 * time.Second, Factor: 2, Jitter: 0}
	if got := p.Delay(10); got != 5*time.Second {
		t.Errorf("Delay(10) = %v, want 5s", got)
	}
}

func TestDelayJitterBounded(t *testing.T) {
	p := Policy{Initial: time.Second, Max: time.Minute, Factor: 2, Jitter: 0.5}
	got := p.delayWithRand(1, 1.0)
	if got != 1500*time.Millisecond {
		t.Errorf("delayWithRand(1, 1.0) = %v, want 1.5s", got)
	}
	if got := p.delayWithRand(1, 0); got != time.Second {
		t.Errorf("delayWithRand(1, 0) = %v, want 1s", got)
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	var calls int32
	got, err := Do(context.Background(), fastPolicy(), 3, func(attempt int) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v, want nil", err)
	}
	if got != "ok" {
		t.Errorf("Do() = %q, want ok", got)
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	var calls int32
	got, err := Do(context.Background(), fastPolicy(), 3, func(attempt int) (int, error) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			return 0, errFlaky
		}
		return int(n), nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v, want nil", err)
	}
	if got != 3 {
		t.Errorf("Do() = %d, want 3", got)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	var calls int32
	_, err := Do(context.Background(), fastPolicy(), 3, func(attempt int) (struct{}, error) {
		atomic.AddInt32(&calls, 1)
		return struct{}{}, errFlaky
	})
	if !errors.Is(err, ErrAttemptsExhausted) {
		t.Errorf("Do() error = %v, want ErrAttemptsExhausted", err)
	}
	if !errors.Is(err, errFlaky) {
		t.Errorf("Do() error should wrap the last failure, got %v", err)
	}
	if calls != 3 {
		t.Errorf("fn called %d times, want 3", calls)
	}
}

func TestDoStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int32
	_, err := Do(ctx, Policy{Initial: time.Hour, Max: time.Hour, Factor: 2}, 3, func(attempt int) (struct{}, error) {
		atomic.AddInt32(&calls, 1)
		cancel()
		return struct{}{}, errFlaky
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Do() error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
}

func fastPolicy() Policy {
	return Policy{Initial: time.Millisecond, Max: 10 * time.Millisecond, Factor: 2}
}
