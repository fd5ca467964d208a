// Package orchestrator coordinates runs: it owns the run controller, the
// agent dispatcher, and the glue between the task graph, the permission
// gate, and persistence.
package orchestrator

import (
	"time"
)

// EventType represents the type of run event.
type EventType string

const (
	// EventRunCreated indicates a run was created with a validated graph.
	EventRunCreated EventType = "run_created"
	// EventTaskStarted indicates a task has started execution.
	EventTaskStarted EventType = "task_started"
	// EventTaskCompleted indicates a task completed successfully.
	EventTaskCompleted EventType = "task_completed"
	// EventTaskFailed indicates a task failed permanently.
	EventTaskFailed EventType = "task_failed"
	// EventTaskRetrying indicates a task failed transiently and will retry.
	EventTaskRetrying EventType = "task_retrying"
	// EventTaskAwaitingApproval indicates a task paused on a dangerous operation.
	EventTaskAwaitingApproval EventType = "task_awaiting_approval"
	// EventTaskCancelled indicates a task was cancelled.
	EventTaskCancelled EventType = "task_cancelled"
	// EventRunDone indicates the run reached a terminal status.
	EventRunDone EventType = "run_done"
)

// Event represents a state change emitted by the controller. Consumers such
// as the dashboard subscribe through Events().
type Event struct {
	// Type is the kind of event.
	Type EventType
	// RunID is the run this event belongs to.
	RunID string
	// TaskID is the related task, if any.
	TaskID string
	// Message provides additional context.
	Message string
	// Err contains error details for failure events.
	Err error
	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// emit sends an event without blocking; slow consumers drop events rather
// than stalling scheduling.
func (c *Controller) emit(ev Event) {
	ev.Timestamp = time.Now().UTC()
	select {
	case c.events <- ev:
	default:
	}
}

// Events returns the controller's event stream.
func (c *Controller) Events() <-chan Event {
	return c.events
}
