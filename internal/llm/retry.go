package llm

import (
	"context"
	"math/rand/v2"
	"time"
)

// Clock abstracts sleeping so retry behavior is testable without real waits.
type Clock interface {
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the
	// latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RetryPolicy is an explicit bounded-retry policy with exponential backoff
// and full jitter. Agent implementations own their own policy; the
// reconciliation engine never retries.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	UseJitter       bool

	// Clock and Rand are injectable for tests. Nil values use the real
	// clock and math/rand/v2.
	Clock Clock
	Rand  func(n int64) int64
}

// DefaultRetryPolicy returns the production settings: three
// attempts, 250ms initial backoff doubling to a 5s cap, full jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 250 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2.0,
		UseJitter:       true,
	}
}

// Backoff computes the delay before the given 1-based attempt. Full jitter
// picks uniformly in [0, backoff] for distributed retry timing.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	backoff := p.InitialInterval
	if backoff <= 0 {
		backoff = time.Millisecond // floor prevents hot looping
	}
	for i := 1; i < attempt; i++ {
		mult := p.Multiplier
		if mult < 1.0 {
			mult = 1.0
		}
		backoff = time.Duration(float64(backoff) * mult)
		if p.MaxInterval > 0 && backoff > p.MaxInterval {
			backoff = p.MaxInterval
			break
		}
	}

	if !p.UseJitter {
		return backoff
	}
	randInt := p.Rand
	if randInt == nil {
		randInt = rand.Int64N
	}
	ms := backoff.Milliseconds()
	if ms <= 0 {
		return backoff
	}
	return time.Duration(randInt(ms+1)) * time.Millisecond
}

// Do runs op up to MaxAttempts times, sleeping the backoff between attempts.
// Non-retryable errors and context cancellation stop immediately. Returns the
// last error when all attempts fail.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	clock := p.Clock
	if clock == nil {
		clock = realClock{}
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := clock.Sleep(ctx, p.Backoff(attempt-1)); err != nil {
				return err
			}
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !Retryable(lastErr) {
			return lastErr
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return lastErr
}
