package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Gnoscenti/founder-autopilot/internal/agent"
	"github.com/Gnoscenti/founder-autopilot/internal/orchestrator/policy"
	"github.com/Gnoscenti/founder-autopilot/internal/permission"
	"github.com/Gnoscenti/founder-autopilot/internal/prompts"
	"github.com/Gnoscenti/founder-autopilot/internal/state"
	"github.com/Gnoscenti/founder-autopilot/internal/tool"
	"github.com/Gnoscenti/founder-autopilot/pkg/models"
)

// memRepo is an in-memory RunRepository for controller tests.
type memRepo struct {
	mu    sync.Mutex
	snaps map[string][]byte
}

func newMemRepo() *memRepo {
	return &memRepo{snaps: make(map[string][]byte)}
}

func (r *memRepo) Migrate() error { return nil }
func (r *memRepo) Close() error   { return nil }

func (r *memRepo) CreateRun(snap *state.Snapshot) error {
	return r.UpdateRun(snap)
}

func (r *memRepo) UpdateRun(snap *state.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps[snap.Run.ID] = data
	return nil
}

func (r *memRepo) GetRun(runID string) (*state.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.snaps[runID]
	if !ok {
		return nil, state.ErrRunNotFound
	}
	var snap state.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (r *memRepo) ListRuns() ([]state.RunSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []state.RunSummary
	for _, data := range r.snaps {
		var snap state.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, err
		}
		out = append(out, state.RunSummary{ID: snap.Run.ID, Goal: snap.Run.Goal, Status: snap.Run.Status})
	}
	return out, nil
}

// scriptedAgent runs a per-task function and counts invocations.
type scriptedAgent struct {
	name string

	mu    sync.Mutex
	calls map[string]int
	fns   map[string]func(ctx context.Context, task *models.Task, rc *agent.RunContext) (*agent.Result, error)
}

func newScriptedAgent(name string) *scriptedAgent {
	return &scriptedAgent{
		name:  name,
		calls: make(map[string]int),
		fns:   make(map[string]func(context.Context, *models.Task, *agent.RunContext) (*agent.Result, error)),
	}
}

func (a *scriptedAgent) Name() string { return a.name }

func (a *scriptedAgent) Execute(ctx context.Context, task *models.Task, rc *agent.RunContext) (*agent.Result, error) {
	a.mu.Lock()
	a.calls[task.ID]++
	fn := a.fns[task.ID]
	a.mu.Unlock()

	if fn == nil {
		return &agent.Result{Outputs: map[string]any{"done": task.ID}}, nil
	}
	return fn(ctx, task, rc)
}

func (a *scriptedAgent) callCount(taskID string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[taskID]
}

// countingTool is a fake stripe tool with a dangerous operation.
type countingTool struct {
	mu    sync.Mutex
	calls int
}

func (t *countingTool) Name() string { return "stripe" }

func (t *countingTool) Operations() []tool.Operation {
	return []tool.Operation{{Name: "create_product", Dangerous: true}}
}

func (t *countingTool) Invoke(ctx context.Context, operation string, params map[string]any) (map[string]any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
	return map[string]any{"product_id": "prod_123"}, nil
}

func (t *countingTool) callCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// testHarness wires a controller around scripted agents for one test.
type testHarness struct {
	ctrl   *Controller
	repo   *memRepo
	agent  *scriptedAgent
	stripe *countingTool
	gate   *permission.Gate
}

func newHarness(t *testing.T, pol *policy.Config) *testHarness {
	t.Helper()

	repo := newMemRepo()
	sa := newScriptedAgent("scripted")
	stripe := &countingTool{}

	gate := permission.NewGate()
	gate.Grant("scripted", "stripe")

	tools := tool.NewRegistry()
	if err := tools.Register(stripe); err != nil {
		t.Fatalf("register tool: %v", err)
	}

	agents := agent.NewRegistry()
	agents.Register(sa)

	if pol == nil {
		pol = &policy.Config{
			Retry:       policy.RetryPolicy{MaxAttempts: 3, BackoffBase: time.Millisecond, BackoffCap: 5 * time.Millisecond},
			MaxParallel: 2,
		}
	}

	ctrl := NewController(ControllerConfig{
		Repository: repo,
		Dispatcher: NewDispatcher(agents, tools, gate, prompts.Library{}),
		Gate:       gate,
		Policy:     pol,
	})
	return &testHarness{ctrl: ctrl, repo: repo, agent: sa, stripe: stripe, gate: gate}
}

func chainTasks(ids ...string) []*models.Task {
	var tasks []*models.Task
	for i, id := range ids {
		task := &models.Task{
			ID:        id,
			Title:     "Task " + id,
			Status:    models.TaskStatusPending,
			AgentName: "scripted",
			CreatedAt: time.Now(),
		}
		if i > 0 {
			task.DependsOn = []string{ids[i-1]}
		}
		tasks = append(tasks, task)
	}
	return tasks
}

func TestCreateRun_RejectsCycle(t *testing.T) {
	h := newHarness(t, nil)

	tasks := chainTasks("a", "b")
	tasks[0].DependsOn = []string{"b"}

	if _, err := h.ctrl.CreateRun("goal", nil, tasks); err == nil {
		t.Fatal("expected cycle rejection")
	}
	if len(h.repo.snaps) != 0 {
		t.Error("rejected run was persisted")
	}
}

func TestExecuteNext_LinearChain(t *testing.T) {
	h := newHarness(t, nil)
	run, err := h.ctrl.CreateRun("launch", nil, chainTasks("a", "b", "c"))
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	wantProgress := []float64{1.0 / 3, 2.0 / 3, 1.0}
	for i := 0; i < 3; i++ {
		result, err := h.ctrl.ExecuteNext(context.Background(), run.ID)
		if err != nil {
			t.Fatalf("ExecuteNext %d: %v", i, err)
		}
		if result.Outcome != OutcomeTaskExecuted {
			t.Fatalf("step %d outcome = %s", i, result.Outcome)
		}
		if diff := result.Progress - wantProgress[i]; diff > 0.01 || diff < -0.01 {
			t.Errorf("step %d progress = %v, want %v", i, result.Progress, wantProgress[i])
		}
	}

	got, err := h.ctrl.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != models.RunStatusCompleted {
		t.Errorf("run status = %s, want completed", got.Status)
	}

	result, err := h.ctrl.ExecuteNext(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("ExecuteNext after completion: %v", err)
	}
	if result.Outcome != OutcomeRunComplete {
		t.Errorf("outcome = %s, want run_complete", result.Outcome)
	}
}

func TestExecuteNext_DependencyOutputsFlow(t *testing.T) {
	h := newHarness(t, nil)

	var seen map[string]map[string]any
	h.agent.fns["a"] = func(ctx context.Context, task *models.Task, rc *agent.RunContext) (*agent.Result, error) {
		return &agent.Result{Outputs: map[string]any{"concept": "meal prep"}}, nil
	}
	h.agent.fns["c"] = func(ctx context.Context, task *models.Task, rc *agent.RunContext) (*agent.Result, error) {
		seen = rc.DependencyOutputs
		return &agent.Result{}, nil
	}

	run, _ := h.ctrl.CreateRun("launch", nil, chainTasks("a", "b", "c"))
	for i := 0; i < 3; i++ {
		if _, err := h.ctrl.ExecuteNext(context.Background(), run.ID); err != nil {
			t.Fatalf("ExecuteNext: %v", err)
		}
	}

	if seen == nil {
		t.Fatal("task c never saw dependency outputs")
	}
	if _, ok := seen["a"]; !ok {
		t.Error("transitive ancestor a missing from dependency outputs")
	}
	if seen["a"]["concept"] != "meal prep" {
		t.Errorf("outputs of a = %v", seen["a"])
	}
}

func TestExecuteNext_TransientRetry(t *testing.T) {
	h := newHarness(t, nil)

	attempts := 0
	h.agent.fns["a"] = func(ctx context.Context, task *models.Task, rc *agent.RunContext) (*agent.Result, error) {
		attempts++
		if attempts < 3 {
			return nil, &agent.TransientError{Err: errors.New("rate limit")}
		}
		return &agent.Result{}, nil
	}

	run, _ := h.ctrl.CreateRun("launch", nil, chainTasks("a"))
	result, err := h.ctrl.ExecuteNext(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("ExecuteNext: %v", err)
	}
	if result.Outcome != OutcomeTaskExecuted {
		t.Fatalf("outcome = %s", result.Outcome)
	}

	tasks, _ := h.ctrl.Tasks(run.ID)
	if tasks[0].RetryCount != 2 {
		t.Errorf("RetryCount = %d, want 2", tasks[0].RetryCount)
	}
	if tasks[0].Status != models.TaskStatusCompleted {
		t.Errorf("status = %s, want completed", tasks[0].Status)
	}
}

func TestExecuteNext_PermanentFailureBlocksDependents(t *testing.T) {
	h := newHarness(t, nil)

	h.agent.fns["a"] = func(ctx context.Context, task *models.Task, rc *agent.RunContext) (*agent.Result, error) {
		return nil, errors.New("invalid input")
	}

	tasks := chainTasks("a", "b")
	tasks = append(tasks, &models.Task{
		ID: "d", Title: "independent", Status: models.TaskStatusPending,
		AgentName: "scripted", CreatedAt: time.Now(),
	})

	run, _ := h.ctrl.CreateRun("launch", nil, tasks)

	result, err := h.ctrl.ExecuteNext(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("ExecuteNext: %v", err)
	}
	if result.Outcome != OutcomeTaskFailed {
		t.Fatalf("outcome = %s, want task_failed", result.Outcome)
	}
	if h.agent.callCount("a") != 1 {
		t.Errorf("permanent failure retried: %d calls", h.agent.callCount("a"))
	}

	// The independent branch keeps executing.
	result, err = h.ctrl.ExecuteNext(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("ExecuteNext: %v", err)
	}
	if result.TaskID != "d" || result.Outcome != OutcomeTaskExecuted {
		t.Fatalf("result = %+v, want d executed", result)
	}
	if result.RunStatus != models.RunStatusCompletedWithFailures {
		t.Errorf("run status = %s, want completed_with_failures", result.RunStatus)
	}

	views, _ := h.ctrl.Tasks(run.ID)
	for _, v := range views {
		if v.ID == "b" && !v.Blocked {
			t.Error("dependent of failed task not reported blocked")
		}
	}
}

func TestExecuteNext_FailFastCancelsRest(t *testing.T) {
	h := newHarness(t, &policy.Config{
		Retry:       policy.RetryPolicy{MaxAttempts: 1, BackoffBase: time.Millisecond, BackoffCap: time.Millisecond},
		FailFast:    true,
		MaxParallel: 1,
	})

	h.agent.fns["a"] = func(ctx context.Context, task *models.Task, rc *agent.RunContext) (*agent.Result, error) {
		return nil, errors.New("boom")
	}

	tasks := chainTasks("a")
	tasks = append(tasks, &models.Task{
		ID: "d", Title: "independent", Status: models.TaskStatusPending,
		AgentName: "scripted", CreatedAt: time.Now(),
	})

	run, _ := h.ctrl.CreateRun("launch", nil, tasks)
	result, err := h.ctrl.ExecuteNext(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("ExecuteNext: %v", err)
	}
	if result.RunStatus != models.RunStatusFailed {
		t.Errorf("run status = %s, want failed", result.RunStatus)
	}

	views, _ := h.ctrl.Tasks(run.ID)
	for _, v := range views {
		if v.ID == "d" && v.Status != models.TaskStatusCancelled {
			t.Errorf("independent task %s = %s, want cancelled under fail-fast", v.ID, v.Status)
		}
	}
}

func approvalScript(h *testHarness, taskID string) {
	h.agent.fns[taskID] = func(ctx context.Context, task *models.Task, rc *agent.RunContext) (*agent.Result, error) {
		out, err := rc.Tools.Invoke(ctx, "stripe", "create_product", map[string]any{"name": "Course"})
		if err != nil {
			return nil, err
		}
		return &agent.Result{Outputs: out}, nil
	}
}

func TestApprovalFlow(t *testing.T) {
	h := newHarness(t, nil)
	approvalScript(h, "a")

	run, _ := h.ctrl.CreateRun("launch", nil, chainTasks("a", "b"))

	result, err := h.ctrl.ExecuteNext(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("ExecuteNext: %v", err)
	}
	if result.Outcome != OutcomeTaskPaused {
		t.Fatalf("outcome = %s, want task_paused", result.Outcome)
	}
	if h.stripe.callCount() != 0 {
		t.Fatalf("dangerous op executed before approval: %d calls", h.stripe.callCount())
	}

	views, _ := h.ctrl.Tasks(run.ID)
	if views[0].Status != models.TaskStatusAwaitingApproval {
		t.Fatalf("task status = %s", views[0].Status)
	}
	if views[0].PendingOperation != "stripe.create_product" {
		t.Errorf("pending operation = %q", views[0].PendingOperation)
	}

	// No forward progress while paused.
	result, err = h.ctrl.ExecuteNext(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("ExecuteNext while paused: %v", err)
	}
	if result.Outcome != OutcomeNothingReady {
		t.Fatalf("outcome while paused = %s, want nothing_ready", result.Outcome)
	}

	result, err = h.ctrl.Approve(context.Background(), run.ID, "a")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if result.Outcome != OutcomeTaskExecuted {
		t.Fatalf("outcome after approve = %s", result.Outcome)
	}
	if h.stripe.callCount() != 1 {
		t.Errorf("dangerous op calls = %d, want 1", h.stripe.callCount())
	}
	if h.agent.callCount("a") != 2 {
		t.Errorf("agent re-invocations = %d, want 2", h.agent.callCount("a"))
	}
	if h.gate.HasApproval("a", "stripe", "create_product") {
		t.Error("approval grant survived task completion")
	}
}

func TestRejectFlow(t *testing.T) {
	h := newHarness(t, nil)
	approvalScript(h, "a")

	run, _ := h.ctrl.CreateRun("launch", nil, chainTasks("a", "b"))
	if _, err := h.ctrl.ExecuteNext(context.Background(), run.ID); err != nil {
		t.Fatalf("ExecuteNext: %v", err)
	}

	result, err := h.ctrl.Reject(run.ID, "a")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if result.Outcome != OutcomeTaskCancelled {
		t.Fatalf("outcome = %s", result.Outcome)
	}
	if result.RunStatus != models.RunStatusCompletedWithFailures {
		t.Errorf("run status = %s, want completed_with_failures", result.RunStatus)
	}
	if h.stripe.callCount() != 0 {
		t.Errorf("rejected op executed: %d calls", h.stripe.callCount())
	}

	views, _ := h.ctrl.Tasks(run.ID)
	if !views[1].Blocked {
		t.Error("dependent of rejected task not blocked")
	}
}

func TestApprove_WrongState(t *testing.T) {
	h := newHarness(t, nil)
	run, _ := h.ctrl.CreateRun("launch", nil, chainTasks("a"))

	if _, err := h.ctrl.Approve(context.Background(), run.ID, "a"); !errors.Is(err, ErrNotAwaitingApproval) {
		t.Fatalf("expected ErrNotAwaitingApproval, got %v", err)
	}
}

func TestCancelRun(t *testing.T) {
	h := newHarness(t, nil)
	run, _ := h.ctrl.CreateRun("launch", nil, chainTasks("a", "b", "c"))

	if _, err := h.ctrl.ExecuteNext(context.Background(), run.ID); err != nil {
		t.Fatalf("ExecuteNext: %v", err)
	}
	if err := h.ctrl.CancelRun(run.ID); err != nil {
		t.Fatalf("CancelRun: %v", err)
	}

	got, _ := h.ctrl.GetRun(run.ID)
	if got.Status != models.RunStatusCancelled {
		t.Errorf("run status = %s, want cancelled", got.Status)
	}

	views, _ := h.ctrl.Tasks(run.ID)
	if views[0].Status != models.TaskStatusCompleted {
		t.Errorf("completed task was disturbed: %s", views[0].Status)
	}
	for _, v := range views[1:] {
		if v.Status != models.TaskStatusCancelled {
			t.Errorf("task %s = %s, want cancelled", v.ID, v.Status)
		}
	}

	result, err := h.ctrl.ExecuteNext(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("ExecuteNext after cancel: %v", err)
	}
	if result.Outcome != OutcomeRunComplete {
		t.Errorf("outcome = %s, want run_complete", result.Outcome)
	}
}

func TestResume_CompletedWorkNotRepeated(t *testing.T) {
	repo := newMemRepo()

	h1 := newHarness(t, nil)
	h1.ctrl.repo = repo
	run, err := h1.ctrl.CreateRun("launch", nil, chainTasks("a", "b"))
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if _, err := h1.ctrl.ExecuteNext(context.Background(), run.ID); err != nil {
		t.Fatalf("ExecuteNext: %v", err)
	}

	// Fresh controller over the same repository simulates a restart.
	h2 := newHarness(t, nil)
	h2.ctrl.repo = repo
	h2.agent.calls = h1.agent.calls
	h2.agent.fns = h1.agent.fns

	resumed, err := h2.ctrl.ResumeRun(run.ID)
	if err != nil {
		t.Fatalf("ResumeRun: %v", err)
	}
	if resumed.ID != run.ID {
		t.Fatalf("resumed wrong run: %s", resumed.ID)
	}

	if _, err := h2.ctrl.ExecuteNext(context.Background(), run.ID); err != nil {
		t.Fatalf("ExecuteNext after resume: %v", err)
	}

	if h2.agent.callCount("a") != 1 {
		t.Errorf("completed task re-executed after resume: %d calls", h2.agent.callCount("a"))
	}
	if h2.agent.callCount("b") != 1 {
		t.Errorf("task b calls = %d, want 1", h2.agent.callCount("b"))
	}

	got, _ := h2.ctrl.GetRun(run.ID)
	if got.Status != models.RunStatusCompleted {
		t.Errorf("run status = %s, want completed", got.Status)
	}
}

func TestResume_InFlightResetToPending(t *testing.T) {
	repo := newMemRepo()

	// Persist a snapshot whose task died mid-flight.
	tasks := chainTasks("a")
	tasks[0].Status = models.TaskStatusRunning
	snap := &state.Snapshot{
		Run:   models.Run{ID: "run_dead", Goal: "launch", Status: models.RunStatusRunning},
		Tasks: tasks,
	}
	if err := repo.CreateRun(snap); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}

	h := newHarness(t, nil)
	h.ctrl.repo = repo

	if _, err := h.ctrl.ResumeRun("run_dead"); err != nil {
		t.Fatalf("ResumeRun: %v", err)
	}

	views, _ := h.ctrl.Tasks("run_dead")
	if views[0].Status != models.TaskStatusPending {
		t.Errorf("in-flight task = %s after resume, want pending", views[0].Status)
	}

	result, err := h.ctrl.ExecuteNext(context.Background(), "run_dead")
	if err != nil {
		t.Fatalf("ExecuteNext: %v", err)
	}
	if result.Outcome != OutcomeTaskExecuted {
		t.Errorf("outcome = %s", result.Outcome)
	}
}

func TestExecuteBatch_ParallelIndependentTasks(t *testing.T) {
	h := newHarness(t, nil)

	var tasks []*models.Task
	for _, id := range []string{"a", "b", "c"} {
		tasks = append(tasks, &models.Task{
			ID: id, Title: "Task " + id, Status: models.TaskStatusPending,
			AgentName: "scripted", CreatedAt: time.Now(),
		})
	}

	run, _ := h.ctrl.CreateRun("launch", nil, tasks)

	// MaxParallel is 2, so the first batch claims exactly two tasks.
	results, err := h.ctrl.ExecuteBatch(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("ExecuteBatch: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("batch size = %d, want 2", len(results))
	}
	seen := map[string]bool{}
	for _, r := range results {
		if r.Outcome != OutcomeTaskExecuted {
			t.Errorf("outcome = %s", r.Outcome)
		}
		if seen[r.TaskID] {
			t.Errorf("task %s claimed twice", r.TaskID)
		}
		seen[r.TaskID] = true
	}

	results, err = h.ctrl.ExecuteBatch(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("second ExecuteBatch: %v", err)
	}
	if len(results) != 1 || results[0].TaskID != "c" {
		t.Fatalf("second batch = %+v, want [c]", results)
	}
	if results[0].RunStatus != models.RunStatusCompleted {
		t.Errorf("run status = %s, want completed", results[0].RunStatus)
	}
}

func TestDefaultTasks_GraphIsValid(t *testing.T) {
	h := newHarness(t, nil)

	run, err := h.ctrl.CreateRun("launch", nil, nil)
	if err != nil {
		t.Fatalf("CreateRun with template: %v", err)
	}

	views, err := h.ctrl.Tasks(run.ID)
	if err != nil {
		t.Fatalf("Tasks: %v", err)
	}
	if len(views) != 11 {
		t.Errorf("template size = %d, want 11", len(views))
	}
	for _, v := range views {
		if v.Status != models.TaskStatusPending {
			t.Errorf("task %s starts as %s, want pending", v.ID, v.Status)
		}
	}
}

func ExampleController_ExecuteNext() {
	repo := newMemRepo()
	gate := permission.NewGate()
	agents := agent.NewRegistry()
	agents.Register(newScriptedAgent("scripted"))

	ctrl := NewController(ControllerConfig{
		Repository: repo,
		Dispatcher: NewDispatcher(agents, tool.NewRegistry(), gate, prompts.Library{}),
		Gate:       gate,
	})

	run, _ := ctrl.CreateRun("Launch a newsletter", nil, chainTasks("plan"))
	result, _ := ctrl.ExecuteNext(context.Background(), run.ID)
	fmt.Println(result.Outcome, result.RunStatus)
	// Output: task_executed completed
}

func TestPermissionDenied_TaskFailsWithoutToolCall(t *testing.T) {
	h := newHarness(t, nil)
	approvalScript(h, "a")
	h.gate.Revoke("scripted", "stripe")

	run, _ := h.ctrl.CreateRun("launch", nil, chainTasks("a"))

	result, err := h.ctrl.ExecuteNext(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("ExecuteNext: %v", err)
	}
	if result.Outcome != OutcomeTaskFailed {
		t.Fatalf("outcome = %s, want task_failed", result.Outcome)
	}
	if h.stripe.callCount() != 0 {
		t.Errorf("tool invoked despite denial: %d calls", h.stripe.callCount())
	}

	views, _ := h.ctrl.Tasks(run.ID)
	if views[0].Status != models.TaskStatusFailed {
		t.Errorf("task status = %s, want failed", views[0].Status)
	}
	if views[0].RetryCount != 0 {
		t.Errorf("denial was retried %d times", views[0].RetryCount)
	}
	if !strings.Contains(views[0].Error, "not permitted") {
		t.Errorf("task error = %q", views[0].Error)
	}
}

func TestConcurrentRuns_ToolWritesStayInOwnWorkspace(t *testing.T) {
	h := newHarness(t, nil)
	root := t.TempDir()
	h.ctrl.workspaceRoot = root
	if err := h.ctrl.dispatcher.tools.Register(tool.NewFilesystemTool(root)); err != nil {
		t.Fatalf("register tool: %v", err)
	}
	h.gate.Grant("scripted", "filesystem")

	h.agent.fns["a"] = func(ctx context.Context, task *models.Task, rc *agent.RunContext) (*agent.Result, error) {
		if _, err := rc.Tools.Invoke(ctx, "filesystem", "write_file", map[string]any{
			"path":    "artifacts/a.md",
			"content": rc.Goal,
		}); err != nil {
			return nil, err
		}
		return &agent.Result{Outputs: map[string]any{"done": task.ID}}, nil
	}

	run1, err := h.ctrl.CreateRun("goal one", nil, chainTasks("a"))
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	run2, err := h.ctrl.CreateRun("goal two", nil, chainTasks("a"))
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	for _, run := range []*models.Run{run1, run2} {
		result, err := h.ctrl.ExecuteNext(context.Background(), run.ID)
		if err != nil {
			t.Fatalf("ExecuteNext(%s): %v", run.ID, err)
		}
		if result.Outcome != OutcomeTaskExecuted {
			t.Fatalf("ExecuteNext(%s) outcome = %s", run.ID, result.Outcome)
		}
	}

	for _, tc := range []struct {
		run  *models.Run
		want string
	}{
		{run1, "goal one"},
		{run2, "goal two"},
	} {
		data, err := os.ReadFile(filepath.Join(tc.run.WorkspacePath, "artifacts", "a.md"))
		if err != nil {
			t.Fatalf("read artifact for %s: %v", tc.run.ID, err)
		}
		if string(data) != tc.want {
			t.Errorf("run %s artifact = %q, want %q", tc.run.ID, data, tc.want)
		}
	}
	if _, err := os.Stat(filepath.Join(root, "artifacts")); !os.IsNotExist(err) {
		t.Error("artifact written at the shared root instead of the run workspace")
	}
}
