package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteWithRetry_SucceedsOnFirstAttempt(t *testing.T) {
	calls := 0
	result, attempts, err := executeWithRetry(context.Background(), DefaultRetryPolicy(), func(context.Context) (State, error) {
		calls++
		return NewState("ok"), nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "ok", result.Last())
}

func TestExecuteWithRetry_RetriesUpToMaxThenSucceeds(t *testing.T) {
	calls := 0
	policy := RetryPolicy{MaxRetries: 3, InitialDelay: time.Millisecond, BackoffMultiplier: 1}

	result, attempts, err := executeWithRetry(context.Background(), policy, func(context.Context) (State, error) {
		calls++
		if calls < 3 {
			return State{}, errors.New("transient")
		}
		return NewState("recovered"), nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, "recovered", result.Last())
}

func TestExecuteWithRetry_ExhaustsRetriesAndReturnsLastError(t *testing.T) {
	calls := 0
	policy := RetryPolicy{MaxRetries: 2, InitialDelay: 0, BackoffMultiplier: 1}

	_, attempts, err := executeWithRetry(context.Background(), policy, func(context.Context) (State, error) {
		calls++
		return State{}, errors.New("permanent")
	})

	assert.Error(t, err)
	assert.Equal(t, 3, attempts) // first attempt + 2 retries
	assert.Equal(t, 3, calls)
}

func TestExecuteWithRetry_ContextCancelledDuringBackoffAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{MaxRetries: 5, InitialDelay: 50 * time.Millisecond, BackoffMultiplier: 1}

	calls := 0
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	_, _, err := executeWithRetry(ctx, policy, func(context.Context) (State, error) {
		calls++
		return State{}, errors.New("fail")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, calls, 6)
}

func TestDefaultRetryPolicy_RunsExactlyOnce(t *testing.T) {
	p := DefaultRetryPolicy()
	assert.Equal(t, 0, p.MaxRetries)
}
