// Package errors provides retry utilities for Sable.
package errors

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// ============================================================
// Retry Configuration
// ============================================================

// Policy defines retry behavior.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first
	MaxAttempts int

	// InitialDelay is the delay before the first retry
	InitialDelay time.Duration

	// MaxDelay is the maximum delay between retries
	MaxDelay time.Duration

	// Multiplier is the backoff multiplier (default: 2)
	Multiplier float64

	// Linear makes the delay grow as InitialDelay * attempt (3s, 6s, ...)
	// instead of multiplying; this is what the model vendors expect
	Linear bool

	// Jitter enables randomized jitter to prevent thundering herd
	Jitter bool

	// RetryIf determines if an error is retryable
	RetryIf func(error) bool

	// Sleep is injectable for tests; nil means real sleeping
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy returns a reasonable default retry policy.
func DefaultPolicy() *Policy {
	return &Policy{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
		RetryIf:      IsRetryable,
	}
}

// ProviderPolicy returns the retry policy for model vendor calls:
// two extra attempts with linearly increasing backoff (3s, 6s).
func ProviderPolicy() *Policy {
	return &Policy{
		MaxAttempts:  3,
		InitialDelay: 3 * time.Second,
		MaxDelay:     30 * time.Second,
		Linear:       true,
		RetryIf:      IsRetryable,
	}
}

// NoRetry returns a policy that never retries.
func NoRetry() *Policy {
	return &Policy{
		MaxAttempts: 1,
		RetryIf:     func(error) bool { return false },
	}
}

// delayFor computes the wait before retry number `attempt` (1-based).
func (p *Policy) delayFor(attempt int) time.Duration {
	var delay time.Duration
	if p.Linear {
		delay = time.Duration(attempt) * p.InitialDelay
	} else {
		delay = p.InitialDelay
		for i := 1; i < attempt; i++ {
			delay = time.Duration(float64(delay) * p.Multiplier)
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	if p.Jitter {
		delay += time.Duration(rand.Float64() * float64(delay) * 0.1)
	}
	return delay
}

func (p *Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// ============================================================
// Retry Functions
// ============================================================

// Do executes a function with retry logic.
func Do(ctx context.Context, policy *Policy, fn func() error) error {
	_, err := DoWithResult(ctx, policy, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoWithResult executes a function that returns a result with retry logic.
func DoWithResult[T any](ctx context.Context, policy *Policy, fn func() (T, error)) (T, error) {
	var zero T

	if policy == nil {
		policy = DefaultPolicy()
	}

	var result T
	var lastErr error

	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := policy.sleep(ctx, policy.delayFor(attempt)); err != nil {
				return zero, fmt.Errorf("retry canceled: %w", err)
			}
		}

		result, lastErr = fn()
		if lastErr == nil {
			return result, nil
		}

		if policy.RetryIf != nil && !policy.RetryIf(lastErr) {
			return zero, lastErr
		}
	}

	return zero, fmt.Errorf("max retries exceeded: %w", lastErr)
}
