// Package exec provides an interface for running external commands, so the
// shell and git tools can be tested without spawning processes.
package exec

import (
	"context"
	"os/exec"
	"time"
)

// CommandRunner defines the interface for running external commands.
type CommandRunner interface {
	// Run executes a command and returns combined stdout/stderr output.
	// The working directory is set to workDir if non-empty.
	Run(ctx context.Context, workDir string, name string, args ...string) (output []byte, err error)

	// RunShell executes a shell command through "sh -c".
	RunShell(ctx context.Context, workDir string, command string) (output []byte, err error)
}

// Runner implements CommandRunner using os/exec.
type Runner struct {
	// Timeout bounds each command when non-zero.
	Timeout time.Duration
}

// NewRunner creates a Runner with the given per-command timeout.
// A zero timeout means commands are bounded only by the caller's context.
func NewRunner(timeout time.Duration) *Runner {
	return &Runner{Timeout: timeout}
}

// Run executes a command and returns combined stdout/stderr output.
func (r *Runner) Run(ctx context.Context, workDir string, name string, args ...string) ([]byte, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, name, args...)
	if workDir != "" {
		cmd.Dir = workDir
	}
	return cmd.CombinedOutput()
}

// RunShell executes a shell command through "sh -c".
func (r *Runner) RunShell(ctx context.Context, workDir string, command string) ([]byte, error) {
	return r.Run(ctx, workDir, "sh", "-c", command)
}

var _ CommandRunner = (*Runner)(nil)
