package llm

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingClock captures sleep requests without waiting.
type recordingClock struct {
	slept []time.Duration
	err   error
}

func (c *recordingClock) Sleep(_ context.Context, d time.Duration) error {
	c.slept = append(c.slept, d)
	return c.err
}

func TestRetryPolicyBackoff(t *testing.T) {
	p := RetryPolicy{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
		Multiplier:      2.0,
	}

	t.Run("exponential growth capped at max", func(t *testing.T) {
		assert.Equal(t, 100*time.Millisecond, p.Backoff(1))
		assert.Equal(t, 200*time.Millisecond, p.Backoff(2))
		assert.Equal(t, 400*time.Millisecond, p.Backoff(3))
		assert.Equal(t, time.Second, p.Backoff(10))
	})

	t.Run("non-positive attempt yields zero", func(t *testing.T) {
		assert.Equal(t, time.Duration(0), p.Backoff(0))
	})

	t.Run("jitter stays within the exponential envelope", func(t *testing.T) {
		jp := p
		jp.UseJitter = true
		jp.Rand = func(n int64) int64 { return n - 1 } // worst case draw
		assert.LessOrEqual(t, jp.Backoff(3), 400*time.Millisecond)

		jp.Rand = func(int64) int64 { return 0 }
		assert.Equal(t, time.Duration(0), jp.Backoff(3))
	})
}

func TestRetryPolicyDo(t *testing.T) {
	retryableErr := &ProviderError{Provider: "openai", StatusCode: http.StatusInternalServerError, Message: "boom"}

	t.Run("retries transient failures up to the cap", func(t *testing.T) {
		clock := &recordingClock{}
		p := RetryPolicy{MaxAttempts: 3, InitialInterval: 10 * time.Millisecond, Multiplier: 2, Clock: clock}

		calls := 0
		err := p.Do(context.Background(), func(context.Context) error {
			calls++
			return retryableErr
		})

		require.Error(t, err)
		assert.Equal(t, 3, calls)
		assert.Len(t, clock.slept, 2, "sleeps happen between attempts only")
	})

	t.Run("succeeds after transient failure", func(t *testing.T) {
		clock := &recordingClock{}
		p := RetryPolicy{MaxAttempts: 3, InitialInterval: 10 * time.Millisecond, Multiplier: 2, Clock: clock}

		calls := 0
		err := p.Do(context.Background(), func(context.Context) error {
			calls++
			if calls == 1 {
				return retryableErr
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("non-retryable error stops immediately", func(t *testing.T) {
		clock := &recordingClock{}
		p := RetryPolicy{MaxAttempts: 5, Clock: clock}

		calls := 0
		err := p.Do(context.Background(), func(context.Context) error {
			calls++
			return &ProviderError{Provider: "openai", StatusCode: http.StatusUnauthorized, Message: "bad key"}
		})

		require.Error(t, err)
		assert.Equal(t, 1, calls)
		assert.Empty(t, clock.slept)
	})

	t.Run("cancelled context aborts the backoff wait", func(t *testing.T) {
		clock := &recordingClock{err: context.Canceled}
		p := RetryPolicy{MaxAttempts: 3, Clock: clock}

		calls := 0
		err := p.Do(context.Background(), func(context.Context) error {
			calls++
			return retryableErr
		})

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}

func TestRetryable(t *testing.T) {
	assert.False(t, Retryable(nil))
	assert.False(t, Retryable(ErrNoContent))
	assert.False(t, Retryable(ErrUnknownProvider))
	assert.True(t, Retryable(errors.New("connection reset")))
	assert.True(t, Retryable(&ProviderError{StatusCode: http.StatusTooManyRequests}))
	assert.False(t, Retryable(&ProviderError{StatusCode: http.StatusBadRequest}))
}
