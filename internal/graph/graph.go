// Package graph provides the validated task dependency graph for a run.
package graph

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Gnoscenti/founder-autopilot/pkg/models"
)

// ErrCycleDetected indicates a circular dependency was found in the task graph.
var ErrCycleDetected = errors.New("circular dependency detected")

// ErrTaskNotFound indicates a task ID that does not exist in the graph.
var ErrTaskNotFound = errors.New("task not found in graph")

// TaskGraph is a directed acyclic graph of tasks for one run.
// Nodes are tasks, edges point from a task to the tasks it depends on.
// A graph is built once at run creation and validated for acyclicity;
// task injection after Build is not supported.
type TaskGraph struct {
	mu sync.RWMutex
	// nodes maps task ID to the task itself.
	nodes map[string]*models.Task
	// edges maps task ID to the IDs of tasks it depends on.
	edges map[string][]string
	// order holds task IDs in creation order, used for deterministic scheduling.
	order []string
	// debugLog is an optional logging function.
	debugLog func(format string, args ...interface{})
}

// New creates a new empty task graph.
func New() *TaskGraph {
	return &TaskGraph{
		nodes:    make(map[string]*models.Task),
		edges:    make(map[string][]string),
		debugLog: func(format string, args ...interface{}) {},
	}
}

// SetDebugLog sets the debug logging function.
func (g *TaskGraph) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		g.debugLog = fn
	}
}

// Build constructs and validates the graph from a slice of tasks.
// It fails the whole build, leaving no task registered, if a dependency
// references an unknown task or the dependency relation contains a cycle.
func (g *TaskGraph) Build(tasks []*models.Task) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	nodes := make(map[string]*models.Task, len(tasks))
	edges := make(map[string][]string, len(tasks))
	order := make([]string, 0, len(tasks))

	for _, task := range tasks {
		if _, dup := nodes[task.ID]; dup {
			return fmt.Errorf("duplicate task id %s", task.ID)
		}
		nodes[task.ID] = task
		edges[task.ID] = nil
		order = append(order, task.ID)
	}

	for _, task := range tasks {
		for _, depID := range task.DependsOn {
			if _, exists := nodes[depID]; !exists {
				return fmt.Errorf("task %s depends on unknown task %s", task.ID, depID)
			}
			edges[task.ID] = append(edges[task.ID], depID)
		}
	}

	if err := checkAcyclic(order, edges); err != nil {
		return err
	}

	g.nodes = nodes
	g.edges = edges
	g.order = order
	g.debugLog("[graph] built graph with %d tasks", len(nodes))
	return nil
}

// checkAcyclic validates the dependency relation with Kahn's algorithm:
// compute in-degree per task, repeatedly remove zero-in-degree nodes; if
// nodes remain when none has zero in-degree, the graph has a cycle.
func checkAcyclic(order []string, edges map[string][]string) error {
	indegree := make(map[string]int, len(order))
	dependents := make(map[string][]string, len(order))
	for id := range edges {
		indegree[id] = len(edges[id])
		for _, depID := range edges[id] {
			dependents[depID] = append(dependents[depID], id)
		}
	}

	// Seed the queue in creation order so peeling is deterministic.
	var queue []string
	for _, id := range order {
		if indegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	removed := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		removed++
		for _, depID := range dependents[id] {
			indegree[depID]--
			if indegree[depID] == 0 {
				queue = append(queue, depID)
			}
		}
	}

	if removed != len(order) {
		var stuck []string
		for _, id := range order {
			if indegree[id] > 0 {
				stuck = append(stuck, id)
			}
		}
		return fmt.Errorf("%w: involving tasks %v", ErrCycleDetected, stuck)
	}
	return nil
}

// Ready returns the tasks that can be dispatched right now: status pending
// with every dependency completed. Results are in creation order.
func (g *TaskGraph) Ready() []*models.Task {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var ready []*models.Task
	for _, id := range g.order {
		task := g.nodes[id]
		if task.Status != models.TaskStatusPending {
			continue
		}
		allDone := true
		for _, depID := range g.edges[id] {
			if g.nodes[depID].Status != models.TaskStatusCompleted {
				allDone = false
				break
			}
		}
		if allDone {
			ready = append(ready, task)
		}
	}
	return ready
}

// Task returns the task for a given ID.
func (g *TaskGraph) Task(taskID string) (*models.Task, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	task, ok := g.nodes[taskID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	return task, nil
}

// Tasks returns all tasks in creation order.
func (g *TaskGraph) Tasks() []*models.Task {
	g.mu.RLock()
	defer g.mu.RUnlock()
	tasks := make([]*models.Task, 0, len(g.order))
	for _, id := range g.order {
		tasks = append(tasks, g.nodes[id])
	}
	return tasks
}

// Snapshot returns deep copies of all tasks in creation order. Unlike
// Tasks, the result shares nothing with the live graph, so it can be
// marshaled or handed to callers while other goroutines keep transitioning.
func (g *TaskGraph) Snapshot() []*models.Task {
	g.mu.RLock()
	defer g.mu.RUnlock()
	tasks := make([]*models.Task, 0, len(g.order))
	for _, id := range g.order {
		tasks = append(tasks, g.nodes[id].Clone())
	}
	return tasks
}

// Size returns the number of tasks in the graph.
func (g *TaskGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Dependencies returns the IDs of tasks the given task depends on directly.
func (g *TaskGraph) Dependencies(taskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.edges[taskID]...)
}

// Ancestors returns every transitive dependency of the given task, in
// creation order. A dependent task may read any ancestor's outputs, not
// just its direct parents.
func (g *TaskGraph) Ancestors(taskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := g.ancestorSetLocked(taskID)
	var ancestors []string
	for _, id := range g.order {
		if seen[id] {
			ancestors = append(ancestors, id)
		}
	}
	return ancestors
}

func (g *TaskGraph) ancestorSetLocked(taskID string) map[string]bool {
	seen := make(map[string]bool)
	var visit func(id string)
	visit = func(id string) {
		for _, depID := range g.edges[id] {
			if !seen[depID] {
				seen[depID] = true
				visit(depID)
			}
		}
	}
	visit(taskID)
	return seen
}

// Dependents returns the IDs of tasks that directly depend on the given task.
func (g *TaskGraph) Dependents(taskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var dependents []string
	for _, id := range g.order {
		for _, depID := range g.edges[id] {
			if depID == taskID {
				dependents = append(dependents, id)
				break
			}
		}
	}
	return dependents
}

// Blocked returns the IDs of pending tasks that can never become ready
// because some transitive dependency reached failed or cancelled.
func (g *TaskGraph) Blocked() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var blocked []string
	for _, id := range g.order {
		if g.nodes[id].Status != models.TaskStatusPending {
			continue
		}
		for depID := range g.ancestorSetLocked(id) {
			status := g.nodes[depID].Status
			if status == models.TaskStatusFailed || status == models.TaskStatusCancelled {
				blocked = append(blocked, id)
				break
			}
		}
	}
	return blocked
}

// Progress returns completed-task-count / total-task-count, 0 when empty.
func (g *TaskGraph) Progress() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if len(g.nodes) == 0 {
		return 0
	}
	completed := 0
	for _, task := range g.nodes {
		if task.Status == models.TaskStatusCompleted {
			completed++
		}
	}
	return float64(completed) / float64(len(g.nodes))
}
