package orchestrator

import (
	"context"
	"fmt"

	"github.com/Gnoscenti/founder-autopilot/internal/permission"
	"github.com/Gnoscenti/founder-autopilot/internal/tool"
)

// toolSession is the gated tool access handed to one agent invocation.
// Authorization is evaluated on every single call, never cached, so a
// mid-task revocation is honored at the next call boundary.
type toolSession struct {
	gate      *permission.Gate
	tools     *tool.Registry
	agentName string
	taskID    string
	workspace string
}

// Invoke authorizes and performs one tool operation. The permission check
// happens before any side effect; a flagged dangerous operation without a
// recorded approval pauses the task instead of executing.
func (s *toolSession) Invoke(ctx context.Context, toolName, operation string, params map[string]any) (map[string]any, error) {
	if err := s.gate.Authorize(s.agentName, toolName); err != nil {
		return nil, err
	}

	if s.gate.RequiresApproval(toolName, operation) && !s.gate.HasApproval(s.taskID, toolName, operation) {
		return nil, &permission.ApprovalRequiredError{
			Tool:        toolName,
			Operation:   operation,
			Description: fmt.Sprintf("agent %s wants to run %s.%s", s.agentName, toolName, operation),
		}
	}

	t, err := s.tools.Get(toolName)
	if err != nil {
		return nil, err
	}
	// Directory-backed tools are registered at a shared root; re-root them
	// so this run's writes stay inside its own workspace.
	if rooted, ok := t.(tool.Rooted); ok && s.workspace != "" {
		t = rooted.ForWorkspace(s.workspace)
	}
	return t.Invoke(ctx, operation, params)
}
