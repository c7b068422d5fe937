package execution

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrRetriesExhausted wraps the last error after all attempts failed.
var ErrRetriesExhausted = errors.New("retries exhausted")

// RetryPolicy drives repeated attempts of a fallible operation. Sleep is a
// field so tests can run without waiting.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
	Sleep       func(ctx context.Context, d time.Duration) error
}

// LinearBackoff waits base*(attempt+1) between tries.
func LinearBackoff(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return base * time.Duration(attempt+1)
	}
}

// ExponentialBackoff doubles the wait on each try.
func ExponentialBackoff(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return base * time.Duration(1<<attempt)
	}
}

// NewRetryPolicy returns a policy with a context-aware sleep.
func NewRetryPolicy(maxAttempts int, backoff func(int) time.Duration) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		Backoff:     backoff,
		Sleep:       sleepCtx,
	}
}

// Do runs fn up to MaxAttempts times. It stops early when the context is
// cancelled, and never sleeps after the final attempt.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt < p.MaxAttempts-1 {
			if err := p.Sleep(ctx, p.Backoff(attempt)); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrRetriesExhausted, p.MaxAttempts, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
