package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Gnoscenti/founder-autopilot/internal/agent"
	"github.com/Gnoscenti/founder-autopilot/internal/graph"
	"github.com/Gnoscenti/founder-autopilot/internal/llm"
	"github.com/Gnoscenti/founder-autopilot/internal/orchestrator/policy"
	"github.com/Gnoscenti/founder-autopilot/internal/permission"
	"github.com/Gnoscenti/founder-autopilot/internal/state"
	"github.com/Gnoscenti/founder-autopilot/pkg/models"
)

// ErrRunNotFound indicates the run is neither active nor persisted.
var ErrRunNotFound = errors.New("run not found")

// ErrNotAwaitingApproval indicates an approve or reject call targeted a task
// that is not paused on a dangerous operation.
var ErrNotAwaitingApproval = errors.New("task not awaiting approval")

// Outcome classifies the result of one ExecuteNext call.
type Outcome string

const (
	// OutcomeTaskExecuted means one task was dispatched and completed.
	OutcomeTaskExecuted Outcome = "task_executed"
	// OutcomeTaskFailed means the dispatched task failed permanently.
	OutcomeTaskFailed Outcome = "task_failed"
	// OutcomeTaskPaused means the dispatched task is awaiting human approval.
	OutcomeTaskPaused Outcome = "task_paused"
	// OutcomeTaskCancelled means the dispatched task was cancelled mid-flight.
	OutcomeTaskCancelled Outcome = "task_cancelled"
	// OutcomeNothingReady means no task is ready but the run is still in
	// progress, e.g. waiting on an approval. Not an error.
	OutcomeNothingReady Outcome = "nothing_ready"
	// OutcomeRunComplete means the run has reached a terminal status.
	OutcomeRunComplete Outcome = "run_complete"
)

// TaskResult is the projection returned by ExecuteNext.
type TaskResult struct {
	Outcome    Outcome           `json:"outcome"`
	TaskID     string            `json:"task_id,omitempty"`
	TaskStatus models.TaskStatus `json:"task_status,omitempty"`
	RunStatus  models.RunStatus  `json:"run_status"`
	Progress   float64           `json:"progress"`
	Error      string            `json:"error,omitempty"`
}

// TaskView is the task projection surfaced to callers, with the derived
// blocked flag for pending tasks whose ancestors failed.
type TaskView struct {
	models.Task
	Blocked bool `json:"blocked"`
}

// ControllerConfig configures a Controller.
type ControllerConfig struct {
	// Repository persists run snapshots. Required.
	Repository state.RunRepository
	// Dispatcher routes tasks to agents. Required.
	Dispatcher *Dispatcher
	// Gate is the permission gate shared with the dispatcher. Required.
	Gate *permission.Gate
	// Policy holds run policy defaults. Nil uses policy.Default().
	Policy *policy.Config
	// WorkspaceRoot is the directory under which per-run workspaces live.
	WorkspaceRoot string
	// ArtifactsRoot is the directory under which per-run artifacts live.
	ArtifactsRoot string
	// Tracker, when set, attributes LLM token usage to runs.
	Tracker *llm.TokenTracker
}

// Controller is the top-level façade over run lifecycle: creation,
// scheduling, approval, cancellation, persistence, and resumption.
type Controller struct {
	repo       state.RunRepository
	dispatcher *Dispatcher
	gate       *permission.Gate
	policy     *policy.Config
	retries    *agent.RetryManager
	tracker    *llm.TokenTracker

	workspaceRoot string
	artifactsRoot string

	mu   sync.Mutex
	runs map[string]*runState

	events chan Event
}

// runState is the in-memory execution state for one active run.
type runState struct {
	// mu serializes scheduling for this run: ExecuteNext is the only
	// mutator of a run's graph and must not race with itself.
	mu sync.Mutex
	// stateMu guards run-record mutation and persistence during parallel
	// batch dispatch.
	stateMu sync.Mutex

	run   *models.Run
	graph *graph.TaskGraph

	cancelled atomic.Bool

	ctlMu        sync.Mutex
	activeCancel map[string]context.CancelFunc
}

// NewController creates a run controller.
func NewController(cfg ControllerConfig) *Controller {
	pol := cfg.Policy
	if pol == nil {
		pol = policy.Default()
	}
	pol.Validate()

	return &Controller{
		repo:       cfg.Repository,
		dispatcher: cfg.Dispatcher,
		gate:       cfg.Gate,
		policy:     pol,
		retries: &agent.RetryManager{
			MaxAttempts: pol.Retry.MaxAttempts,
			BackoffBase: pol.Retry.BackoffBase,
			BackoffCap:  pol.Retry.BackoffCap,
		},
		tracker:       cfg.Tracker,
		workspaceRoot: cfg.WorkspaceRoot,
		artifactsRoot: cfg.ArtifactsRoot,
		runs:          make(map[string]*runState),
		events:        make(chan Event, 64),
	}
}

// CreateRun builds a validated run from the goal, constraints, and task
// template. A nil template uses the stock business-building graph. Cycle
// or unknown-dependency errors reject the whole run; nothing is persisted.
func (c *Controller) CreateRun(goal string, constraints map[string]any, tasks []*models.Task) (*models.Run, error) {
	if tasks == nil {
		tasks = DefaultTasks()
	}

	g := graph.New()
	g.SetDebugLog(debugLog)
	if err := g.Build(tasks); err != nil {
		return nil, fmt.Errorf("build task graph: %w", err)
	}

	runID := fmt.Sprintf("run_%s", uuid.New().String()[:8])
	now := time.Now().UTC()
	run := &models.Run{
		ID:          runID,
		Goal:        goal,
		Constraints: constraints,
		Status:      models.RunStatusPending,
		FailFast:    c.policy.FailFast,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if c.workspaceRoot != "" {
		run.WorkspacePath = filepath.Join(c.workspaceRoot, runID)
		run.ArtifactsPath = filepath.Join(run.WorkspacePath, "artifacts")
		if err := os.MkdirAll(run.ArtifactsPath, 0755); err != nil {
			return nil, fmt.Errorf("create workspace: %w", err)
		}
	}

	snap := &state.Snapshot{Run: *run, Tasks: tasks}
	if err := c.repo.CreateRun(snap); err != nil {
		return nil, fmt.Errorf("persist run: %w", err)
	}

	rs := &runState{run: run, graph: g, activeCancel: make(map[string]context.CancelFunc)}
	c.mu.Lock()
	c.runs[runID] = rs
	c.mu.Unlock()

	log.Printf("[controller] created run %s with %d tasks", runID, len(tasks))
	c.emit(Event{Type: EventRunCreated, RunID: runID})
	return copyRun(run), nil
}

// ExecuteNext selects exactly one ready task, dispatches it, and records the
// result. When no task is ready it reports either "nothing to do" (run still
// in progress, e.g. awaiting approval) or run completion. Calls for the same
// run are serialized.
func (c *Controller) ExecuteNext(ctx context.Context, runID string) (*TaskResult, error) {
	rs, err := c.runState(runID)
	if err != nil {
		return nil, err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.run.Status.Terminal() {
		return &TaskResult{Outcome: OutcomeRunComplete, RunStatus: rs.run.Status, Progress: rs.graph.Progress()}, nil
	}

	ready := rs.graph.Ready()
	if len(ready) == 0 {
		return c.settle(rs)
	}

	task := ready[0]
	if err := c.claim(rs, task); err != nil {
		return nil, err
	}
	return c.runTask(ctx, rs, task)
}

// ExecuteBatch dispatches up to the policy's MaxParallel independent ready
// tasks concurrently. Claims happen under the run lock so two workers never
// pick the same task.
func (c *Controller) ExecuteBatch(ctx context.Context, runID string) ([]*TaskResult, error) {
	rs, err := c.runState(runID)
	if err != nil {
		return nil, err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.run.Status.Terminal() {
		return []*TaskResult{{Outcome: OutcomeRunComplete, RunStatus: rs.run.Status, Progress: rs.graph.Progress()}}, nil
	}

	ready := rs.graph.Ready()
	if len(ready) == 0 {
		res, err := c.settle(rs)
		if err != nil {
			return nil, err
		}
		return []*TaskResult{res}, nil
	}

	n := c.policy.MaxParallel
	if n > len(ready) {
		n = len(ready)
	}
	claimed := ready[:n]
	for _, task := range claimed {
		if err := c.claim(rs, task); err != nil {
			return nil, err
		}
	}

	results := make([]*TaskResult, len(claimed))
	var eg errgroup.Group
	eg.SetLimit(n)
	for i, task := range claimed {
		i, task := i, task
		eg.Go(func() error {
			res, err := c.runTask(ctx, rs, task)
			if err != nil {
				return fmt.Errorf("task %s: %w", task.ID, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// claim moves a pending task through ready into running and persists.
func (c *Controller) claim(rs *runState, task *models.Task) error {
	if err := rs.graph.Transition(task.ID, models.TaskStatusReady, nil); err != nil {
		return err
	}
	if err := rs.graph.Transition(task.ID, models.TaskStatusRunning, nil); err != nil {
		return err
	}

	rs.stateMu.Lock()
	rs.run.Status = models.RunStatusRunning
	rs.run.CurrentTaskID = task.ID
	rs.stateMu.Unlock()

	if err := c.persist(rs); err != nil {
		return err
	}
	c.emit(Event{Type: EventTaskStarted, RunID: rs.run.ID, TaskID: task.ID})
	return nil
}

// runTask drives one claimed task through dispatch, retry, and terminal
// recording. The task is already in running status.
func (c *Controller) runTask(ctx context.Context, rs *runState, task *models.Task) (*TaskResult, error) {
	dispatchCtx, cancel := context.WithCancel(ctx)
	rs.registerCancel(task.ID, cancel)
	defer func() {
		rs.unregisterCancel(task.ID)
		cancel()
	}()

	var inBefore, outBefore int64
	if c.tracker != nil {
		inBefore, outBefore = c.tracker.Total()
	}

	result, err := c.retries.Do(dispatchCtx, task.ID,
		func(fnCtx context.Context) (*agent.Result, error) {
			if task.Status == models.TaskStatusRetrying {
				if terr := rs.graph.Transition(task.ID, models.TaskStatusRunning, nil); terr != nil {
					return nil, terr
				}
				if perr := c.persist(rs); perr != nil {
					return nil, perr
				}
			}
			return c.dispatcher.Dispatch(fnCtx, rs.run, rs.graph, task)
		},
		func(attempt int, ferr error) error {
			if terr := rs.graph.Transition(task.ID, models.TaskStatusRetrying, nil); terr != nil {
				return terr
			}
			c.emit(Event{Type: EventTaskRetrying, RunID: rs.run.ID, TaskID: task.ID, Err: ferr})
			return c.persist(rs)
		})

	if c.tracker != nil {
		inAfter, outAfter := c.tracker.Total()
		rs.stateMu.Lock()
		rs.run.TotalTokens += (inAfter - inBefore) + (outAfter - outBefore)
		rs.run.TotalCostUSD = c.tracker.Cost()
		rs.stateMu.Unlock()
	}

	switch {
	case err == nil:
		if terr := rs.graph.Transition(task.ID, models.TaskStatusCompleted, &graph.TransitionOpts{
			Outputs:   result.Outputs,
			Artifacts: result.Artifacts,
		}); terr != nil {
			return nil, terr
		}
		c.gate.ClearApprovals(task.ID)
		c.emit(Event{Type: EventTaskCompleted, RunID: rs.run.ID, TaskID: task.ID})
		return c.finish(rs, task, OutcomeTaskExecuted, "")

	case isApprovalRequired(err):
		var areq *permission.ApprovalRequiredError
		errors.As(err, &areq)
		if terr := rs.graph.Transition(task.ID, models.TaskStatusAwaitingApproval, &graph.TransitionOpts{
			PendingOperation: areq.Tool + "." + areq.Operation,
		}); terr != nil {
			return nil, terr
		}
		log.Printf("[controller] task %s awaiting approval: %s", task.ID, areq.Description)
		c.emit(Event{Type: EventTaskAwaitingApproval, RunID: rs.run.ID, TaskID: task.ID, Message: areq.Description})
		return c.finish(rs, task, OutcomeTaskPaused, "")

	case errors.Is(err, context.Canceled) || rs.cancelled.Load():
		if terr := rs.graph.Transition(task.ID, models.TaskStatusCancelled, nil); terr != nil {
			return nil, terr
		}
		c.gate.ClearApprovals(task.ID)
		c.emit(Event{Type: EventTaskCancelled, RunID: rs.run.ID, TaskID: task.ID})
		return c.finish(rs, task, OutcomeTaskCancelled, err.Error())

	default:
		if terr := rs.graph.Transition(task.ID, models.TaskStatusFailed, &graph.TransitionOpts{
			Error: err.Error(),
		}); terr != nil {
			return nil, terr
		}
		c.gate.ClearApprovals(task.ID)
		log.Printf("[controller] task %s failed: %v", task.ID, err)
		c.emit(Event{Type: EventTaskFailed, RunID: rs.run.ID, TaskID: task.ID, Err: err})

		if rs.run.FailFast {
			rs.graph.CancelPending()
			rs.stateMu.Lock()
			rs.run.Status = models.RunStatusFailed
			rs.stateMu.Unlock()
		}
		return c.finish(rs, task, OutcomeTaskFailed, err.Error())
	}
}

// finish recomputes the run status, persists the snapshot, and builds the
// projection for one settled task.
func (c *Controller) finish(rs *runState, task *models.Task, outcome Outcome, errMsg string) (*TaskResult, error) {
	c.recompute(rs)
	if err := c.persist(rs); err != nil {
		return nil, err
	}
	rs.stateMu.Lock()
	status := rs.run.Status
	rs.stateMu.Unlock()
	if status.Terminal() {
		c.emit(Event{Type: EventRunDone, RunID: rs.run.ID})
	}
	return &TaskResult{
		Outcome:    outcome,
		TaskID:     task.ID,
		TaskStatus: task.Status,
		RunStatus:  status,
		Progress:   rs.graph.Progress(),
		Error:      errMsg,
	}, nil
}

// settle handles an ExecuteNext call that found nothing ready: either the
// run is still in progress (waiting on approval or in-flight work) or it has
// reached a terminal status.
func (c *Controller) settle(rs *runState) (*TaskResult, error) {
	c.recompute(rs)
	rs.stateMu.Lock()
	status := rs.run.Status
	rs.stateMu.Unlock()

	if status.Terminal() {
		if err := c.persist(rs); err != nil {
			return nil, err
		}
		c.emit(Event{Type: EventRunDone, RunID: rs.run.ID})
		return &TaskResult{Outcome: OutcomeRunComplete, RunStatus: status, Progress: rs.graph.Progress()}, nil
	}
	return &TaskResult{Outcome: OutcomeNothingReady, RunStatus: status, Progress: rs.graph.Progress()}, nil
}

// recompute derives the run status from the task graph.
func (c *Controller) recompute(rs *runState) {
	rs.stateMu.Lock()
	defer rs.stateMu.Unlock()

	if rs.run.Status.Terminal() {
		return
	}
	if rs.cancelled.Load() {
		rs.run.Status = models.RunStatusCancelled
		return
	}
	if len(rs.graph.Ready()) > 0 {
		return
	}

	allCompleted := true
	anyNotDone := false
	for _, t := range rs.graph.Snapshot() {
		switch t.Status {
		case models.TaskStatusCompleted:
		case models.TaskStatusFailed, models.TaskStatusCancelled:
			allCompleted = false
			anyNotDone = true
		case models.TaskStatusPending:
			// Pending with nothing ready means blocked behind a failure.
			allCompleted = false
			anyNotDone = true
		default:
			// In-flight work remains; the run is not settled.
			return
		}
	}

	switch {
	case allCompleted:
		rs.run.Status = models.RunStatusCompleted
	case anyNotDone:
		rs.run.Status = models.RunStatusCompletedWithFailures
	}
}

// Approve releases a task paused on a dangerous operation. The approval is
// recorded in the gate and the agent is re-invoked from scratch; agents make
// prior tool calls idempotent, so the re-run converges at the approved step.
func (c *Controller) Approve(ctx context.Context, runID, taskID string) (*TaskResult, error) {
	rs, err := c.runState(runID)
	if err != nil {
		return nil, err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	task, err := rs.graph.Task(taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != models.TaskStatusAwaitingApproval {
		return nil, fmt.Errorf("%w: task %s is %s", ErrNotAwaitingApproval, taskID, task.Status)
	}

	toolName, operation, ok := strings.Cut(task.PendingOperation, ".")
	if !ok {
		return nil, fmt.Errorf("task %s has malformed pending operation %q", taskID, task.PendingOperation)
	}
	c.gate.GrantApproval(taskID, toolName, operation)

	if err := rs.graph.Transition(taskID, models.TaskStatusRunning, nil); err != nil {
		return nil, err
	}
	rs.stateMu.Lock()
	rs.run.CurrentTaskID = taskID
	rs.stateMu.Unlock()
	if err := c.persist(rs); err != nil {
		return nil, err
	}

	log.Printf("[controller] task %s approved for %s", taskID, task.PendingOperation)
	return c.runTask(ctx, rs, task)
}

// Reject refuses a pending dangerous operation. The task is cancelled and
// its dependents stay blocked.
func (c *Controller) Reject(runID, taskID string) (*TaskResult, error) {
	rs, err := c.runState(runID)
	if err != nil {
		return nil, err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	task, err := rs.graph.Task(taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != models.TaskStatusAwaitingApproval {
		return nil, fmt.Errorf("%w: task %s is %s", ErrNotAwaitingApproval, taskID, task.Status)
	}

	if err := rs.graph.Transition(taskID, models.TaskStatusCancelled, &graph.TransitionOpts{
		Error: "operation rejected: " + task.PendingOperation,
	}); err != nil {
		return nil, err
	}
	c.gate.ClearApprovals(taskID)
	c.emit(Event{Type: EventTaskCancelled, RunID: runID, TaskID: taskID})
	log.Printf("[controller] task %s rejected (%s)", taskID, task.PendingOperation)
	return c.finish(rs, task, OutcomeTaskCancelled, "")
}

// CancelRun cancels a run. The cancellation is level-triggered: in-flight
// dispatches observe their context and wind down on their own; every task
// not yet dispatched is cancelled immediately.
func (c *Controller) CancelRun(runID string) error {
	rs, err := c.runState(runID)
	if err != nil {
		return err
	}

	rs.cancelled.Store(true)
	rs.cancelAll()

	// Waits for any in-flight ExecuteNext to settle its task first.
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.graph.CancelPending()
	rs.stateMu.Lock()
	if !rs.run.Status.Terminal() {
		rs.run.Status = models.RunStatusCancelled
	}
	rs.stateMu.Unlock()
	if err := c.persist(rs); err != nil {
		return err
	}
	log.Printf("[controller] run %s cancelled", runID)
	c.emit(Event{Type: EventRunDone, RunID: runID})
	return nil
}

// GetRun returns a copy of the run's current state.
func (c *Controller) GetRun(runID string) (*models.Run, error) {
	rs, err := c.runState(runID)
	if err != nil {
		return nil, err
	}
	rs.stateMu.Lock()
	defer rs.stateMu.Unlock()
	return copyRun(rs.run), nil
}

// Progress returns the run's completed/total ratio.
func (c *Controller) Progress(runID string) (float64, error) {
	rs, err := c.runState(runID)
	if err != nil {
		return 0, err
	}
	return rs.graph.Progress(), nil
}

// Tasks returns projections of the run's tasks in creation order, with the
// derived blocked flag set on pending tasks behind a failed or cancelled
// ancestor.
func (c *Controller) Tasks(runID string) ([]TaskView, error) {
	rs, err := c.runState(runID)
	if err != nil {
		return nil, err
	}

	blocked := make(map[string]bool)
	for _, id := range rs.graph.Blocked() {
		blocked[id] = true
	}

	var views []TaskView
	for _, t := range rs.graph.Snapshot() {
		views = append(views, TaskView{Task: *t, Blocked: blocked[t.ID]})
	}
	return views, nil
}

// ListRuns returns summaries of every persisted run.
func (c *Controller) ListRuns() ([]state.RunSummary, error) {
	return c.repo.ListRuns()
}

// PermissionTable returns the gate's agent capability table.
func (c *Controller) PermissionTable() map[string][]string {
	return c.gate.Table()
}

// ResumeRun loads the latest snapshot for a run and makes it active again.
// Tasks persisted mid-flight (ready, running, retrying) are reset to pending
// so they re-execute; completed tasks are never re-executed.
func (c *Controller) ResumeRun(runID string) (*models.Run, error) {
	c.mu.Lock()
	if rs, ok := c.runs[runID]; ok {
		c.mu.Unlock()
		return copyRun(rs.run), nil
	}
	c.mu.Unlock()

	snap, err := c.repo.GetRun(runID)
	if err != nil {
		if errors.Is(err, state.ErrRunNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	for _, t := range snap.Tasks {
		switch t.Status {
		case models.TaskStatusReady, models.TaskStatusRunning, models.TaskStatusRetrying:
			t.Status = models.TaskStatusPending
		}
	}

	g := graph.New()
	g.SetDebugLog(debugLog)
	if err := g.Build(snap.Tasks); err != nil {
		return nil, fmt.Errorf("rebuild task graph: %w", err)
	}

	run := snap.Run
	rs := &runState{run: &run, graph: g, activeCancel: make(map[string]context.CancelFunc)}
	if run.Status == models.RunStatusCancelled {
		rs.cancelled.Store(true)
	}

	c.mu.Lock()
	c.runs[runID] = rs
	c.mu.Unlock()

	log.Printf("[controller] resumed run %s at %.0f%% progress", runID, g.Progress()*100)
	return copyRun(&run), nil
}

// persist writes the full run snapshot through the repository. Called only
// after a transition has committed, so the stored state is always valid.
// The snapshot holds deep task copies: the repository marshals it outside
// the graph lock, where a sibling batch worker may still be transitioning.
func (c *Controller) persist(rs *runState) error {
	rs.stateMu.Lock()
	rs.run.UpdatedAt = time.Now().UTC()
	snap := &state.Snapshot{Run: *rs.run, Tasks: rs.graph.Snapshot()}
	rs.stateMu.Unlock()

	if err := c.repo.UpdateRun(snap); err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}
	return nil
}

// runState finds the active state for a run, resuming it from the
// repository if the process restarted since it was created.
func (c *Controller) runState(runID string) (*runState, error) {
	c.mu.Lock()
	rs, ok := c.runs[runID]
	c.mu.Unlock()
	if ok {
		return rs, nil
	}

	if _, err := c.ResumeRun(runID); err != nil {
		return nil, err
	}
	c.mu.Lock()
	rs = c.runs[runID]
	c.mu.Unlock()
	return rs, nil
}

func (rs *runState) registerCancel(taskID string, cancel context.CancelFunc) {
	rs.ctlMu.Lock()
	defer rs.ctlMu.Unlock()
	rs.activeCancel[taskID] = cancel
}

func (rs *runState) unregisterCancel(taskID string) {
	rs.ctlMu.Lock()
	defer rs.ctlMu.Unlock()
	delete(rs.activeCancel, taskID)
}

// cancelAll cancels every in-flight dispatch context, which also interrupts
// any backoff wait in the retry manager.
func (rs *runState) cancelAll() {
	rs.ctlMu.Lock()
	defer rs.ctlMu.Unlock()
	for _, cancel := range rs.activeCancel {
		cancel()
	}
}

func isApprovalRequired(err error) bool {
	var areq *permission.ApprovalRequiredError
	return errors.As(err, &areq)
}

func copyRun(run *models.Run) *models.Run {
	cp := *run
	return &cp
}
