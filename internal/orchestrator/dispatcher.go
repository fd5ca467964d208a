package orchestrator

import (
	"context"
	"fmt"

	"github.com/Gnoscenti/founder-autopilot/internal/agent"
	"github.com/Gnoscenti/founder-autopilot/internal/graph"
	"github.com/Gnoscenti/founder-autopilot/internal/permission"
	"github.com/Gnoscenti/founder-autopilot/internal/prompts"
	"github.com/Gnoscenti/founder-autopilot/internal/tool"
	"github.com/Gnoscenti/founder-autopilot/pkg/models"
)

// Dispatcher routes a task to its registered agent with assembled context.
// It performs no rollback of partial side effects; agents are expected to be
// idempotent-on-retry.
type Dispatcher struct {
	agents  *agent.Registry
	tools   *tool.Registry
	gate    *permission.Gate
	prompts prompts.Library
}

// NewDispatcher creates a dispatcher over the given registries and gate.
func NewDispatcher(agents *agent.Registry, tools *tool.Registry, gate *permission.Gate, lib prompts.Library) *Dispatcher {
	return &Dispatcher{agents: agents, tools: tools, gate: gate, prompts: lib}
}

// Dispatch resolves the task's agent and invokes it. The execution context
// merges the run's constraints with the outputs of every completed ancestor,
// keyed by that ancestor's task ID.
func (d *Dispatcher) Dispatch(ctx context.Context, run *models.Run, g *graph.TaskGraph, task *models.Task) (*agent.Result, error) {
	agentName := task.AgentName
	if agentName == "" {
		agentName = agentForType(task.Type)
	}

	a, err := d.agents.Get(agentName)
	if err != nil {
		return nil, fmt.Errorf("resolve agent for task %s: %w", task.ID, err)
	}

	rc := &agent.RunContext{
		RunID:             run.ID,
		Goal:              run.Goal,
		Constraints:       run.Constraints,
		DependencyOutputs: d.collectOutputs(g, task.ID),
		Permissions:       d.gate.AgentPermissions(agentName),
		WorkspacePath:     run.WorkspacePath,
		ArtifactsPath:     run.ArtifactsPath,
		Tools: &toolSession{
			gate:      d.gate,
			tools:     d.tools,
			agentName: agentName,
			taskID:    task.ID,
			workspace: run.WorkspacePath,
		},
	}
	if task.PromptID != "" {
		rc.Prompt, _ = d.prompts.Get(task.PromptID)
	}

	debugLog("[dispatcher] task %s -> agent %s", task.ID, agentName)
	return a.Execute(ctx, task, rc)
}

// collectOutputs gathers the outputs of every completed transitive ancestor,
// keyed by ancestor task ID.
func (d *Dispatcher) collectOutputs(g *graph.TaskGraph, taskID string) map[string]map[string]any {
	outputs := make(map[string]map[string]any)
	for _, ancestorID := range g.Ancestors(taskID) {
		ancestor, err := g.Task(ancestorID)
		if err != nil {
			continue
		}
		if ancestor.Status == models.TaskStatusCompleted && ancestor.Outputs != nil {
			outputs[ancestorID] = ancestor.Outputs
		}
	}
	return outputs
}
