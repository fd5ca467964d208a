// Package agent provides the agent capability contract, the registry the
// dispatcher resolves against, and the retry manager that wraps dispatch.
package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/Gnoscenti/founder-autopilot/pkg/models"
)

// Result is what an agent produces for a completed task.
type Result struct {
	// Outputs is the structured output mapping readable by dependent tasks.
	Outputs map[string]any
	// Artifacts lists paths to files the agent produced.
	Artifacts []string
}

// ToolSession is the agent's only path to tools. Every Invoke call is
// re-checked against the permission gate, so mid-task revocation takes
// effect at the next call boundary.
type ToolSession interface {
	Invoke(ctx context.Context, toolName, operation string, params map[string]any) (map[string]any, error)
}

// RunContext carries everything an agent needs to execute one task.
type RunContext struct {
	// RunID is the owning run.
	RunID string
	// Goal is the run's high-level objective.
	Goal string
	// Constraints are the run's user-supplied constraints.
	Constraints map[string]any
	// DependencyOutputs maps each completed ancestor's task ID to its outputs.
	// Transitively available: any ancestor, not just direct parents.
	DependencyOutputs map[string]map[string]any
	// Permissions lists the tools this task's agent may use.
	Permissions []string
	// Prompt is the prompt library text for the task, if any.
	Prompt string
	// WorkspacePath is the run's sandboxed working directory.
	WorkspacePath string
	// ArtifactsPath is where the agent should write artifacts.
	ArtifactsPath string
	// Tools is the gated tool session for this invocation.
	Tools ToolSession
}

// Agent executes one task type. Any component satisfying this capability
// qualifies; there is no agent base type.
type Agent interface {
	// Name returns the registered agent name.
	Name() string
	// Execute performs the task and returns its outputs and artifacts.
	// Agents must be idempotent-on-retry: an approved or retried task is
	// re-invoked from scratch.
	Execute(ctx context.Context, task *models.Task, rc *RunContext) (*Result, error)
}

// TransientError marks a failure the retry manager may retry: network
// flakes, timeouts, rate limits. Agents and tools declare transience;
// the orchestrator never guesses.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient marks this error as retryable.
func (e *TransientError) IsTransient() bool { return true }

// RetryExhaustedError is the terminal wrapper around repeated transient
// failures once the retry bound is spent.
type RetryExhaustedError struct {
	Attempts int
	Last     error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Last }

// transienter is the error capability consulted for retry classification.
type transienter interface {
	IsTransient() bool
}

// IsTransient reports whether any error in the chain declares itself
// transient. Permission, validation, and malformed-input failures do not,
// and are never retried.
func IsTransient(err error) bool {
	var t transienter
	if errors.As(err, &t) {
		return t.IsTransient()
	}
	return false
}
