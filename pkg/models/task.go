// Package models defines the shared data types for runs and tasks.
package models

import "time"

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has not started and is waiting on dependencies.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusReady indicates the task has been selected for dispatch.
	TaskStatusReady TaskStatus = "ready"
	// TaskStatusRunning indicates an agent is executing the task.
	TaskStatusRunning TaskStatus = "running"
	// TaskStatusRetrying indicates the task failed transiently and is waiting to retry.
	TaskStatusRetrying TaskStatus = "retrying"
	// TaskStatusAwaitingApproval indicates the task is paused on a dangerous
	// operation that needs explicit human approval.
	TaskStatusAwaitingApproval TaskStatus = "awaiting_approval"
	// TaskStatusCompleted indicates the task finished successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task failed permanently.
	TaskStatusFailed TaskStatus = "failed"
	// TaskStatusCancelled indicates the task was cancelled before or during execution.
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusReady, TaskStatusRunning, TaskStatusRetrying,
		TaskStatusAwaitingApproval, TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal returns true if no further transitions are allowed from this status.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// TaskType identifies which agent handles a task.
type TaskType string

const (
	TaskTypeInterview         TaskType = "interview"
	TaskTypeConceptGeneration TaskType = "concept_generation"
	TaskTypeValidation        TaskType = "validation"
	TaskTypePositioning       TaskType = "positioning"
	TaskTypeOfferDesign       TaskType = "offer_design"
	TaskTypeBrandCreation     TaskType = "brand_creation"
	TaskTypeWebsiteCopy       TaskType = "website_copy"
	TaskTypeProductBuild      TaskType = "product_build"
	TaskTypeAutomationSetup   TaskType = "automation_setup"
	TaskTypeMarketingPlan     TaskType = "marketing_plan"
	TaskTypeDeployment        TaskType = "deployment"
)

// Valid returns true if the type is a known value.
func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeInterview, TaskTypeConceptGeneration, TaskTypeValidation,
		TaskTypePositioning, TaskTypeOfferDesign, TaskTypeBrandCreation,
		TaskTypeWebsiteCopy, TaskTypeProductBuild, TaskTypeAutomationSetup,
		TaskTypeMarketingPlan, TaskTypeDeployment:
		return true
	default:
		return false
	}
}

// Task represents a unit of work in a run's execution graph.
type Task struct {
	// ID is the unique identifier for this task within its run.
	ID string `json:"id"`
	// Type selects the agent that executes this task.
	Type TaskType `json:"type"`
	// Title is the short description of the task.
	Title string `json:"title"`
	// Description provides detailed information about the task.
	Description string `json:"description,omitempty"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status"`
	// DependsOn lists task IDs that must complete before this task.
	DependsOn []string `json:"depends_on,omitempty"`
	// AgentName is the name of the agent assigned to this task.
	AgentName string `json:"agent_name,omitempty"`
	// ToolPermissions lists the tools this task is expected to use.
	ToolPermissions []string `json:"tool_permissions,omitempty"`
	// PromptID references the prompt library entry driving this task.
	PromptID string `json:"prompt_id,omitempty"`
	// Inputs holds values supplied at graph-build time.
	Inputs map[string]any `json:"inputs,omitempty"`
	// Outputs holds values produced on completion, readable by dependents.
	Outputs map[string]any `json:"outputs,omitempty"`
	// Artifacts lists opaque paths or URIs to generated artifacts.
	Artifacts []string `json:"artifacts,omitempty"`
	// PendingOperation describes the flagged operation when the task is
	// awaiting approval.
	PendingOperation string `json:"pending_operation,omitempty"`
	// Error contains the failure cause if the task failed.
	Error string `json:"error,omitempty"`
	// RetryCount is the number of retry attempts made after the first.
	RetryCount int `json:"retry_count,omitempty"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
	// TransitionedAt is when the task last changed status.
	TransitionedAt time.Time `json:"transitioned_at"`
	// CompletedAt is when the task reached a terminal state, if it has.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Clone returns a deep copy of the task. Snapshots and projections are
// built from clones so serialization never reads a task another goroutine
// is transitioning.
func (t *Task) Clone() *Task {
	c := *t
	if t.DependsOn != nil {
		c.DependsOn = append([]string(nil), t.DependsOn...)
	}
	if t.ToolPermissions != nil {
		c.ToolPermissions = append([]string(nil), t.ToolPermissions...)
	}
	if t.Artifacts != nil {
		c.Artifacts = append([]string(nil), t.Artifacts...)
	}
	if t.Inputs != nil {
		c.Inputs = make(map[string]any, len(t.Inputs))
		for k, v := range t.Inputs {
			c.Inputs[k] = v
		}
	}
	if t.Outputs != nil {
		c.Outputs = make(map[string]any, len(t.Outputs))
		for k, v := range t.Outputs {
			c.Outputs[k] = v
		}
	}
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	return &c
}
