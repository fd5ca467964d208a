package graph

import (
	"errors"
	"fmt"
	"time"

	"github.com/Gnoscenti/founder-autopilot/pkg/models"
)

// ErrInvalidTransition indicates an illegal task status transition was
// attempted. This is always an orchestrator bug, never a user error, and
// must not be retried.
var ErrInvalidTransition = errors.New("invalid task transition")

// TransitionOpts carries optional data recorded alongside a transition.
type TransitionOpts struct {
	// Outputs replaces the task's output mapping (completion only).
	Outputs map[string]any
	// Artifacts replaces the task's artifact references (completion only).
	Artifacts []string
	// Error is the failure cause (failed only).
	Error string
	// PendingOperation describes the flagged operation (awaiting_approval only).
	PendingOperation string
}

// allowed returns true if a task may move from one status to another.
//
//	pending  -> ready | cancelled
//	ready    -> running | cancelled
//	running  -> completed | failed | retrying | awaiting_approval | cancelled
//	retrying -> running | cancelled
//	awaiting_approval -> running | cancelled
//
// completed, failed, cancelled are terminal.
func allowed(from, to models.TaskStatus) bool {
	switch from {
	case models.TaskStatusPending:
		return to == models.TaskStatusReady || to == models.TaskStatusCancelled
	case models.TaskStatusReady:
		return to == models.TaskStatusRunning || to == models.TaskStatusCancelled
	case models.TaskStatusRunning:
		switch to {
		case models.TaskStatusCompleted, models.TaskStatusFailed, models.TaskStatusRetrying,
			models.TaskStatusAwaitingApproval, models.TaskStatusCancelled:
			return true
		}
		return false
	case models.TaskStatusRetrying:
		return to == models.TaskStatusRunning || to == models.TaskStatusCancelled
	case models.TaskStatusAwaitingApproval:
		return to == models.TaskStatusRunning || to == models.TaskStatusCancelled
	default:
		return false
	}
}

// Transition moves a task to a new status, enforcing the legal transition
// table. Illegal transitions return ErrInvalidTransition and leave the task
// untouched.
func (g *TaskGraph) Transition(taskID string, to models.TaskStatus, opts *TransitionOpts) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	task, ok := g.nodes[taskID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	if !to.Valid() {
		return fmt.Errorf("%w: task %s: unknown status %q", ErrInvalidTransition, taskID, to)
	}
	if !allowed(task.Status, to) {
		return fmt.Errorf("%w: task %s: %s -> %s", ErrInvalidTransition, taskID, task.Status, to)
	}

	now := time.Now().UTC()
	task.Status = to
	task.TransitionedAt = now

	if opts != nil {
		if opts.Outputs != nil {
			task.Outputs = opts.Outputs
		}
		if opts.Artifacts != nil {
			task.Artifacts = opts.Artifacts
		}
		if opts.Error != "" {
			task.Error = opts.Error
		}
		task.PendingOperation = opts.PendingOperation
	}

	switch to {
	case models.TaskStatusCompleted, models.TaskStatusFailed, models.TaskStatusCancelled:
		task.CompletedAt = &now
	case models.TaskStatusRetrying:
		task.RetryCount++
	case models.TaskStatusRunning:
		// Clear a stale failure cause when a retry or approval re-runs the task.
		task.Error = ""
	}

	g.debugLog("[graph] task %s -> %s", taskID, to)
	return nil
}

// CancelPending marks every non-terminal, non-running task cancelled.
// Running tasks are left to finish cooperatively. Returns the IDs cancelled.
func (g *TaskGraph) CancelPending() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var cancelled []string
	now := time.Now().UTC()
	for _, id := range g.order {
		task := g.nodes[id]
		switch task.Status {
		case models.TaskStatusPending, models.TaskStatusReady,
			models.TaskStatusRetrying, models.TaskStatusAwaitingApproval:
			task.Status = models.TaskStatusCancelled
			task.TransitionedAt = now
			task.CompletedAt = &now
			cancelled = append(cancelled, id)
		}
	}
	return cancelled
}
