package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	osexec "github.com/Gnoscenti/founder-autopilot/internal/exec"
)

// GitTool performs version control operations in a run's workspace.
// Push is flagged dangerous because it publishes work outside the sandbox.
type GitTool struct {
	runner  osexec.CommandRunner
	workDir string
}

// NewGitTool creates a git tool for the given workspace directory.
func NewGitTool(runner osexec.CommandRunner, workDir string) *GitTool {
	return &GitTool{runner: runner, workDir: workDir}
}

// Name returns "git".
func (t *GitTool) Name() string { return "git" }

// ForWorkspace returns a copy of the tool operating in the given directory.
func (t *GitTool) ForWorkspace(dir string) Tool {
	return NewGitTool(t.runner, dir)
}

// Operations returns the supported git operations.
func (t *GitTool) Operations() []Operation {
	return []Operation{
		{Name: "init"},
		{Name: "add"},
		{Name: "commit"},
		{Name: "status"},
		{Name: "push", Dangerous: true},
	}
}

// Invoke performs one git operation.
func (t *GitTool) Invoke(ctx context.Context, operation string, params map[string]any) (map[string]any, error) {
	var args []string
	switch operation {
	case "init":
		args = []string{"init"}
	case "add":
		pathspec, _ := params["pathspec"].(string)
		if pathspec == "" {
			pathspec = "."
		}
		args = []string{"add", pathspec}
	case "commit":
		message, _ := params["message"].(string)
		if message == "" {
			return nil, &Error{Tool: t.Name(), Operation: operation, Err: errors.New("commit message required")}
		}
		args = []string{"commit", "-m", message}
	case "status":
		args = []string{"status", "--porcelain"}
	case "push":
		remote, _ := params["remote"].(string)
		branch, _ := params["branch"].(string)
		if remote == "" {
			remote = "origin"
		}
		args = []string{"push", remote}
		if branch != "" {
			args = append(args, branch)
		}
	default:
		return nil, &Error{Tool: t.Name(), Operation: operation, Err: ErrUnknownOperation}
	}

	output, err := t.runner.Run(ctx, t.workDir, "git", args...)
	if err != nil {
		// Pushes hit the network; everything else is local and permanent.
		transient := operation == "push" || errors.Is(err, context.DeadlineExceeded)
		return nil, &Error{Tool: t.Name(), Operation: operation, Transient: transient,
			Err: fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))}
	}
	return map[string]any{"output": string(output)}, nil
}

var (
	_ Tool   = (*GitTool)(nil)
	_ Rooted = (*GitTool)(nil)
)
