package models

import "time"

// RunStatus represents the overall state of a run.
type RunStatus string

const (
	// RunStatusPending indicates the run has been created but not started.
	RunStatusPending RunStatus = "pending"
	// RunStatusRunning indicates at least one task has been dispatched.
	RunStatusRunning RunStatus = "running"
	// RunStatusCompleted indicates every task completed successfully.
	RunStatusCompleted RunStatus = "completed"
	// RunStatusCompletedWithFailures indicates no more tasks can run and at
	// least one branch failed while others completed.
	RunStatusCompletedWithFailures RunStatus = "completed_with_failures"
	// RunStatusFailed indicates the run stopped because of task failure.
	RunStatusFailed RunStatus = "failed"
	// RunStatusCancelled indicates the run was cancelled.
	RunStatusCancelled RunStatus = "cancelled"
)

// Valid returns true if the status is a known value.
func (s RunStatus) Valid() bool {
	switch s {
	case RunStatusPending, RunStatusRunning, RunStatusCompleted,
		RunStatusCompletedWithFailures, RunStatusFailed, RunStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal returns true if the run can no longer make progress.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusCompletedWithFailures, RunStatusFailed, RunStatusCancelled:
		return true
	default:
		return false
	}
}

// Run is one end-to-end execution of a goal, owning exactly one task graph.
type Run struct {
	// ID is the unique identifier for this run.
	ID string `json:"id"`
	// Goal is the high-level objective, e.g. "Launch a $10k/mo SaaS".
	Goal string `json:"goal"`
	// Constraints holds user-supplied key/value constraints merged into every
	// task's execution context.
	Constraints map[string]any `json:"constraints,omitempty"`
	// Status is the overall run state.
	Status RunStatus `json:"status"`
	// CurrentTaskID is the last dispatched task, not necessarily still running.
	CurrentTaskID string `json:"current_task_id,omitempty"`
	// FailFast makes the first permanent task failure fail the whole run.
	// When false, independent branches keep progressing until nothing is ready.
	FailFast bool `json:"fail_fast,omitempty"`
	// WorkspacePath is the sandboxed filesystem subtree owned by this run.
	WorkspacePath string `json:"workspace_path,omitempty"`
	// ArtifactsPath is where task artifacts are written.
	ArtifactsPath string `json:"artifacts_path,omitempty"`
	// TotalTokens is the cumulative LLM token usage for this run.
	TotalTokens int64 `json:"total_tokens,omitempty"`
	// TotalCostUSD is the cumulative LLM cost for this run.
	TotalCostUSD float64 `json:"total_cost_usd,omitempty"`
	// CreatedAt is when the run was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the run last changed.
	UpdatedAt time.Time `json:"updated_at"`
}
