package agent

import (
	"context"
	"fmt"
	"log"
	"time"
)

// RetryManager wraps agent invocation with a bounded retry and exponential
// backoff policy. Only errors declaring themselves transient are retried;
// everything else propagates immediately. Backoff waits are the sole
// blocking point here and are cancelled with the context.
type RetryManager struct {
	// MaxAttempts is the total attempt bound, first attempt included.
	MaxAttempts int
	// BackoffBase is the wait before the first retry.
	BackoffBase time.Duration
	// BackoffCap bounds the doubled wait.
	BackoffCap time.Duration
}

// NewRetryManager creates a retry manager with the default policy:
// 3 total attempts, 1s base backoff doubling up to 30s.
func NewRetryManager() *RetryManager {
	return &RetryManager{
		MaxAttempts: 3,
		BackoffBase: time.Second,
		BackoffCap:  30 * time.Second,
	}
}

// Do runs fn, retrying transient failures up to the attempt bound.
// onRetry is called before each wait with the 1-indexed attempt that just
// failed; the controller uses it to record the retrying transition. On bound
// exhaustion the last error is wrapped in *RetryExhaustedError.
func (m *RetryManager) Do(ctx context.Context, taskID string, fn func(ctx context.Context) (*Result, error), onRetry func(attempt int, err error) error) (*Result, error) {
	maxAttempts := m.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if !IsTransient(err) {
			return nil, err
		}
		lastErr = err

		if attempt == maxAttempts {
			break
		}

		log.Printf("[retry] task %s: attempt %d failed transiently: %v", taskID, attempt, err)
		if onRetry != nil {
			if rerr := onRetry(attempt, err); rerr != nil {
				return nil, rerr
			}
		}
		if err := m.wait(ctx, attempt); err != nil {
			return nil, err
		}
	}

	log.Printf("[retry] task %s: bound of %d attempts exhausted", taskID, maxAttempts)
	return nil, &RetryExhaustedError{Attempts: maxAttempts, Last: lastErr}
}

// wait sleeps for the backoff of the given attempt, or returns early if the
// context is cancelled mid-wait.
func (m *RetryManager) wait(ctx context.Context, attempt int) error {
	backoff := m.BackoffBase
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if backoff >= m.BackoffCap {
			backoff = m.BackoffCap
			break
		}
	}
	if backoff <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(backoff)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("retry wait interrupted: %w", ctx.Err())
	}
}
