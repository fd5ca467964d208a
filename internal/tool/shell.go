package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	osexec "github.com/Gnoscenti/founder-autopilot/internal/exec"
)

// defaultAllowedCommands are the base commands the shell tool will run.
var defaultAllowedCommands = []string{
	"npm", "pnpm", "yarn", "node",
	"python", "pip",
	"git",
	"vercel", "netlify",
	"gcloud",
	"ls", "cat", "mkdir", "cp", "mv",
}

// ShellTool executes shell commands in a run's workspace, restricted to an
// allowlist of base commands. The sudo operation is flagged dangerous.
type ShellTool struct {
	runner  osexec.CommandRunner
	workDir string
	allowed map[string]bool
}

// NewShellTool creates a shell tool for the given workspace directory.
// A nil allowlist uses the defaults.
func NewShellTool(runner osexec.CommandRunner, workDir string, allowed []string) *ShellTool {
	if allowed == nil {
		allowed = defaultAllowedCommands
	}
	set := make(map[string]bool, len(allowed))
	for _, c := range allowed {
		set[c] = true
	}
	return &ShellTool{runner: runner, workDir: workDir, allowed: set}
}

// Name returns "shell".
func (t *ShellTool) Name() string { return "shell" }

// ForWorkspace returns a copy of the tool running commands in the given
// directory, keeping the runner and allowlist.
func (t *ShellTool) ForWorkspace(dir string) Tool {
	return &ShellTool{runner: t.runner, workDir: dir, allowed: t.allowed}
}

// Operations returns the supported shell operations.
func (t *ShellTool) Operations() []Operation {
	return []Operation{
		{Name: "run"},
		{Name: "sudo", Dangerous: true},
	}
}

// Invoke runs a shell command. The base command must be on the allowlist;
// rejected commands never reach the runner.
func (t *ShellTool) Invoke(ctx context.Context, operation string, params map[string]any) (map[string]any, error) {
	if !hasOperation(t.Operations(), operation) {
		return nil, &Error{Tool: t.Name(), Operation: operation, Err: ErrUnknownOperation}
	}

	command, _ := params["command"].(string)
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return nil, &Error{Tool: t.Name(), Operation: operation, Err: errors.New("empty command")}
	}
	if !t.allowed[parts[0]] {
		return nil, &Error{Tool: t.Name(), Operation: operation,
			Err: fmt.Errorf("command %q not allowed", parts[0])}
	}

	if operation == "sudo" {
		command = "sudo " + command
	}

	output, err := t.runner.RunShell(ctx, t.workDir, command)
	if err != nil {
		// Timeouts may clear on retry; a non-zero exit will not.
		transient := errors.Is(err, context.DeadlineExceeded)
		return nil, &Error{Tool: t.Name(), Operation: operation, Transient: transient,
			Err: fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))}
	}
	return map[string]any{"output": string(output)}, nil
}

var (
	_ Tool   = (*ShellTool)(nil)
	_ Rooted = (*ShellTool)(nil)
)
