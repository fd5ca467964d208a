// Package permission implements the least-privilege gate between agents and
// tools. It is the sole authorization chokepoint: every tool call is checked
// here before any side effect, and dangerous operations are held for explicit
// human approval.
package permission

import (
	"fmt"
	"sort"
	"sync"
)

// DeniedError indicates an agent attempted to use a tool outside its
// capability set. Denial is terminal for the task and never retried.
type DeniedError struct {
	Agent string
	Tool  string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("agent %q is not permitted to use tool %q", e.Agent, e.Tool)
}

// ApprovalRequiredError signals that an operation is flagged dangerous and
// needs explicit human approval before it may proceed. It is a control-flow
// signal that pauses the task, not a failure.
type ApprovalRequiredError struct {
	Tool        string
	Operation   string
	Description string
}

func (e *ApprovalRequiredError) Error() string {
	return fmt.Sprintf("operation %s.%s requires human approval", e.Tool, e.Operation)
}

// Gate maps agents to the tools they may invoke and operations to their
// approval requirement. The table is read-mostly process-wide configuration;
// per-task approval grants are the only frequently mutated state.
type Gate struct {
	mu sync.RWMutex
	// agents maps agent name to its allowed tool set.
	agents map[string]map[string]bool
	// approvalOps holds "tool_operation" keys that require human approval.
	approvalOps map[string]bool
	// grants maps task ID to the operations a human has approved for it.
	grants map[string]map[string]bool
}

// NewGate creates a gate with the default agent capability table and
// dangerous-operation set.
func NewGate() *Gate {
	g := &Gate{
		agents:      make(map[string]map[string]bool),
		approvalOps: make(map[string]bool),
		grants:      make(map[string]map[string]bool),
	}
	for agent, tools := range defaultAgentPermissions {
		set := make(map[string]bool, len(tools))
		for _, t := range tools {
			set[t] = true
		}
		g.agents[agent] = set
	}
	for _, op := range defaultApprovalOps {
		g.approvalOps[op] = true
	}
	return g
}

// defaultAgentPermissions is the built-in capability table.
var defaultAgentPermissions = map[string][]string{
	"orchestrator":     {"filesystem", "shell", "git"},
	"business_builder": {"filesystem"},
	"webdev":           {"filesystem", "shell", "git", "playwright"},
	"stripe_agent":     {"filesystem", "stripe", "playwright"},
	"marketing":        {"filesystem", "email", "social", "playwright"},
	"reviewer":         {"filesystem"},
}

// defaultApprovalOps are operations that always require human approval,
// keyed as tool_operation.
var defaultApprovalOps = []string{
	"stripe_create_product",
	"stripe_create_price",
	"stripe_create_webhook",
	"email_send_campaign",
	"social_post_content",
	"shell_sudo",
	"git_push",
	"playwright_submit_form",
}

// Authorize checks whether the named agent may invoke the named tool.
// Returns a *DeniedError when not allowed.
func (g *Gate) Authorize(agentName, toolName string) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	tools, ok := g.agents[agentName]
	if !ok || !tools[toolName] {
		return &DeniedError{Agent: agentName, Tool: toolName}
	}
	return nil
}

// RequiresApproval reports whether the given tool operation is flagged
// dangerous. The check key is tool_operation, e.g. "git_push".
func (g *Gate) RequiresApproval(toolName, operation string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.approvalOps[opKey(toolName, operation)]
}

// Grant adds a tool to an agent's capability set.
func (g *Gate) Grant(agentName, toolName string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.agents[agentName] == nil {
		g.agents[agentName] = make(map[string]bool)
	}
	g.agents[agentName][toolName] = true
}

// Revoke removes a tool from an agent's capability set. The next call-boundary
// check observes the revocation; in-flight calls are not interrupted.
func (g *Gate) Revoke(agentName, toolName string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.agents[agentName], toolName)
}

// AgentPermissions returns the sorted tool names the agent may use.
func (g *Gate) AgentPermissions(agentName string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var tools []string
	for t := range g.agents[agentName] {
		tools = append(tools, t)
	}
	sort.Strings(tools)
	return tools
}

// Table returns the full agent capability table, for operator inspection.
func (g *Gate) Table() map[string][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	table := make(map[string][]string, len(g.agents))
	for agent, tools := range g.agents {
		var names []string
		for t := range tools {
			names = append(names, t)
		}
		sort.Strings(names)
		table[agent] = names
	}
	return table
}

// ApprovalOps returns the sorted list of operations requiring human approval.
func (g *Gate) ApprovalOps() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var ops []string
	for op := range g.approvalOps {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// GrantApproval records that a human approved the flagged operation for the
// given task. A re-invoked agent passes the gate at that operation.
func (g *Gate) GrantApproval(taskID, toolName, operation string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.grants[taskID] == nil {
		g.grants[taskID] = make(map[string]bool)
	}
	g.grants[taskID][opKey(toolName, operation)] = true
}

// HasApproval reports whether the operation was already approved for the task.
func (g *Gate) HasApproval(taskID, toolName, operation string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.grants[taskID][opKey(toolName, operation)]
}

// ClearApprovals drops all approval grants for a task. Called when the task
// reaches a terminal state so grants never outlive the work they covered.
func (g *Gate) ClearApprovals(taskID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.grants, taskID)
}

func opKey(toolName, operation string) string {
	return toolName + "_" + operation
}
