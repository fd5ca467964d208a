// Package policy defines configurable policy parameters for run execution.
// This centralizes threshold values so they can be configured per run and
// exercised directly in tests.
package policy

import "time"

// Config contains the configurable policy parameters for one run.
type Config struct {
	// Retry controls transient-failure retry behavior.
	Retry RetryPolicy

	// FailFast makes the first permanent task failure fail the whole run.
	// When false, independent branches keep progressing until no ready task
	// remains, yielding completed_with_failures.
	FailFast bool

	// MaxParallel bounds how many independent ready tasks a batch dispatch
	// may claim at once. 1 preserves the single-task-per-invocation baseline.
	MaxParallel int
}

// RetryPolicy controls the retry manager wrapping agent dispatch.
type RetryPolicy struct {
	// MaxAttempts is the total attempt bound, first attempt included.
	MaxAttempts int

	// BackoffBase is the wait before the first retry.
	BackoffBase time.Duration

	// BackoffCap bounds the doubled backoff wait.
	BackoffCap time.Duration
}

// Default returns the default policy configuration.
func Default() *Config {
	return &Config{
		Retry: RetryPolicy{
			MaxAttempts: 3,
			BackoffBase: time.Second,
			BackoffCap:  30 * time.Second,
		},
		FailFast:    false,
		MaxParallel: 1,
	}
}

// Validate clamps out-of-range values to sane minimums.
func (c *Config) Validate() {
	if c.Retry.MaxAttempts < 1 {
		c.Retry.MaxAttempts = 1
	}
	if c.Retry.BackoffBase < 0 {
		c.Retry.BackoffBase = 0
	}
	if c.Retry.BackoffCap < c.Retry.BackoffBase {
		c.Retry.BackoffCap = c.Retry.BackoffBase
	}
	if c.MaxParallel < 1 {
		c.MaxParallel = 1
	}
}
