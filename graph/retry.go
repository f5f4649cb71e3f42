package graph

import (
	"context"
	"time"
)

// RetryPolicy configures exponential backoff retries for a node execution
// attempt (spec §2, §4.2).
type RetryPolicy struct {
	// MaxRetries is the number of retries attempted after the first failure.
	// A value of 0 means the action is invoked exactly once.
	MaxRetries int

	// InitialDelay is the sleep before the first retry.
	InitialDelay time.Duration

	// BackoffMultiplier scales the delay after each subsequent retry.
	BackoffMultiplier float64
}

// DefaultRetryPolicy runs an action exactly once, with no retries.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 0, InitialDelay: 0, BackoffMultiplier: 1}
}

// executeWithRetry implements spec §4.2's execute_with_retry: invoke fn, and
// on failure sleep and retry up to policy.MaxRetries times with exponential
// backoff. Retries are counted per execution attempt, not per superstep.
func executeWithRetry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) (State, error)) (State, int, error) {
	delay := policy.InitialDelay
	var lastErr error
	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, attempt + 1, nil
		}
		lastErr = err
		if attempt == policy.MaxRetries {
			return State{}, attempt + 1, lastErr
		}
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return State{}, attempt + 1, ctx.Err()
			case <-timer.C:
			}
		}
		mult := policy.BackoffMultiplier
		if mult <= 0 {
			mult = 1
		}
		delay = time.Duration(float64(delay) * mult)
	}
}
