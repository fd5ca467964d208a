package tool

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestGitTool_Operations(t *testing.T) {
	tests := []struct {
		operation string
		params    map[string]any
		want      string
	}{
		{"init", nil, "git init"},
		{"add", nil, "git add ."},
		{"add", map[string]any{"pathspec": "src/"}, "git add src/"},
		{"commit", map[string]any{"message": "initial site"}, "git commit -m initial site"},
		{"status", nil, "git status --porcelain"},
		{"push", nil, "git push origin"},
		{"push", map[string]any{"remote": "prod", "branch": "main"}, "git push prod main"},
	}

	for _, tc := range tests {
		runner := &fakeRunner{output: []byte("ok")}
		g := NewGitTool(runner, t.TempDir())
		if _, err := g.Invoke(context.Background(), tc.operation, tc.params); err != nil {
			t.Errorf("%s: Invoke failed: %v", tc.operation, err)
			continue
		}
		if runner.commands[0] != tc.want {
			t.Errorf("%s: command = %q, want %q", tc.operation, runner.commands[0], tc.want)
		}
	}
}

func TestGitTool_CommitRequiresMessage(t *testing.T) {
	runner := &fakeRunner{}
	g := NewGitTool(runner, t.TempDir())

	_, err := g.Invoke(context.Background(), "commit", nil)
	if err == nil || !strings.Contains(err.Error(), "commit message required") {
		t.Fatalf("expected message error, got %v", err)
	}
	if len(runner.commands) != 0 {
		t.Error("commit without message reached the runner")
	}
}

func TestGitTool_PushFailureIsTransient(t *testing.T) {
	runner := &fakeRunner{output: []byte("remote hung up"), err: errors.New("exit status 128")}
	g := NewGitTool(runner, t.TempDir())

	_, err := g.Invoke(context.Background(), "push", nil)
	var terr *Error
	if !errors.As(err, &terr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if !terr.IsTransient() {
		t.Error("push failure should classify as transient")
	}
}

func TestGitTool_LocalFailureIsPermanent(t *testing.T) {
	runner := &fakeRunner{output: []byte("nothing to commit"), err: errors.New("exit status 1")}
	g := NewGitTool(runner, t.TempDir())

	_, err := g.Invoke(context.Background(), "commit", map[string]any{"message": "x"})
	var terr *Error
	if !errors.As(err, &terr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if terr.IsTransient() {
		t.Error("local commit failure should not classify as transient")
	}
}
