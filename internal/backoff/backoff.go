// Package backoff provides exponential backoff with jitter and a small
// context-aware retry helper used by the outbound delivery paths.
package backoff

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// ErrAttemptsExhausted is returned when every retry attempt has failed.
var ErrAttemptsExhausted = errors.New("retry attempts exhausted")

// Policy defines the exponential backoff curve between attempts.
type Policy struct {
	// Initial is the delay before the first retry.
	Initial time.Duration
	// Max caps the computed delay.
	Max time.Duration
	// Factor is the exponential growth factor per attempt.
	Factor float64
	// Jitter is the randomization fraction (0.0 to 1.0) added to each delay.
	Jitter float64
}

// DefaultPolicy matches the delivery retry contract: 1s initial delay,
// doubling per attempt, capped at 30s with 10% jitter.
func DefaultPolicy() Policy {
	return Policy{
		Initial: time.Second,
		Max:     30 * time.Second,
		Factor:  2,
		Jitter:  0.1,
	}
}

// Delay computes the backoff duration before retry number attempt.
// Attempt numbers start at 1.
func (p Policy) Delay(attempt int) time.Duration {
	return p.delayWithRand(attempt, rand.Float64()) // #nosec G404 -- jitter does not need crypto randomness
}

func (p Policy) delayWithRand(attempt int, random float64) time.Duration {
	exp := math.Max(float64(attempt-1), 0)
	base := float64(p.Initial) * math.Pow(p.Factor, exp)
	total := base + base*p.Jitter*random
	if max := float64(p.Max); p.Max > 0 && total > max {
		total = max
	}
	return time.Duration(total)
}

// Sleep waits for the backoff delay of the given attempt, returning early
// with the context error if the context is cancelled.
func Sleep(ctx context.Context, policy Policy, attempt int) error {
	timer := time.NewTimer(policy.Delay(attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do runs fn up to maxAttempts times, sleeping between attempts according to
// the policy. fn receives the 1-indexed attempt number. The last error is
// wrapped under ErrAttemptsExhausted when every attempt fails; context
// cancellation aborts immediately with the context error.
func Do[T any](ctx context.Context, policy Policy, maxAttempts int, fn func(attempt int) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		value, err := fn(attempt)
		if err == nil {
			return value, nil
		}
		lastErr = err

		if attempt < maxAttempts {
			if err := Sleep(ctx, policy, attempt); err != nil {
				return zero, err
			}
		}
	}

	return zero, errors.Join(ErrAttemptsExhausted, lastErr)
}
