package agent

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastRetryManager(attempts int) *RetryManager {
	return &RetryManager{
		MaxAttempts: attempts,
		BackoffBase: time.Millisecond,
		BackoffCap:  5 * time.Millisecond,
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	m := fastRetryManager(3)
	calls := 0

	result, err := m.Do(context.Background(), "task_001",
		func(ctx context.Context) (*Result, error) {
			calls++
			return &Result{Outputs: map[string]any{"ok": true}}, nil
		}, nil)

	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
	if result.Outputs["ok"] != true {
		t.Errorf("result not propagated: %v", result.Outputs)
	}
}

func TestDo_RetriesTransientThenSucceeds(t *testing.T) {
	m := fastRetryManager(3)
	calls := 0
	retries := 0

	result, err := m.Do(context.Background(), "task_001",
		func(ctx context.Context) (*Result, error) {
			calls++
			if calls < 3 {
				return nil, &TransientError{Err: errors.New("rate limit")}
			}
			return &Result{}, nil
		},
		func(attempt int, err error) error {
			retries++
			return nil
		})

	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if result == nil {
		t.Fatal("expected result after recovery")
	}
	if calls != 3 {
		t.Errorf("fn called %d times, want 3", calls)
	}
	if retries != 2 {
		t.Errorf("onRetry called %d times, want 2", retries)
	}
}

func TestDo_PermanentNotRetried(t *testing.T) {
	m := fastRetryManager(3)
	calls := 0
	permanent := errors.New("invalid credentials")

	_, err := m.Do(context.Background(), "task_001",
		func(ctx context.Context) (*Result, error) {
			calls++
			return nil, permanent
		}, nil)

	if !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("permanent failure retried: %d calls", calls)
	}
}

func TestDo_ExhaustionWrapsLastError(t *testing.T) {
	m := fastRetryManager(3)
	calls := 0

	_, err := m.Do(context.Background(), "task_001",
		func(ctx context.Context) (*Result, error) {
			calls++
			return nil, &TransientError{Err: errors.New("overloaded")}
		}, nil)

	var exhausted *RetryExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected RetryExhaustedError, got %v", err)
	}
	if exhausted.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", exhausted.Attempts)
	}
	if calls != 3 {
		t.Errorf("fn called %d times, want 3", calls)
	}
}

func TestDo_CancelledDuringBackoff(t *testing.T) {
	m := &RetryManager{MaxAttempts: 3, BackoffBase: time.Minute, BackoffCap: time.Minute}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := m.Do(ctx, "task_001",
			func(ctx context.Context) (*Result, error) {
				return nil, &TransientError{Err: errors.New("timeout")}
			}, nil)
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}

func TestDo_OnRetryErrorAborts(t *testing.T) {
	m := fastRetryManager(3)
	abort := errors.New("persist failed")

	_, err := m.Do(context.Background(), "task_001",
		func(ctx context.Context) (*Result, error) {
			return nil, &TransientError{Err: errors.New("connection reset")}
		},
		func(attempt int, err error) error {
			return abort
		})

	if !errors.Is(err, abort) {
		t.Fatalf("expected onRetry error, got %v", err)
	}
}

func TestIsTransient(t *testing.T) {
	if !IsTransient(&TransientError{Err: errors.New("x")}) {
		t.Error("TransientError should be transient")
	}
	if IsTransient(errors.New("plain")) {
		t.Error("plain error should not be transient")
	}
	wrapped := &TransientError{Err: errors.New("inner")}
	if !IsTransient(wrap(wrapped)) {
		t.Error("wrapped TransientError should be transient")
	}
}

func wrap(err error) error {
	return &wrapper{err}
}

type wrapper struct{ err error }

func (w *wrapper) Error() string { return "wrapped: " + w.err.Error() }
func (w *wrapper) Unwrap() error { return w.err }
