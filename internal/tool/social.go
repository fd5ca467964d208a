package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SocialTool prepares social media content. Drafts land in the workspace for
// review; post_content is flagged dangerous because it publishes publicly.
// Publishing goes through a queue directory that a downstream poster drains,
// so the orchestrator never holds platform credentials itself.
type SocialTool struct {
	draftDir string
	queueDir string
}

// NewSocialTool creates a social tool writing under the given directories.
func NewSocialTool(draftDir, queueDir string) *SocialTool {
	return &SocialTool{draftDir: draftDir, queueDir: queueDir}
}

// Name returns "social".
func (t *SocialTool) Name() string { return "social" }

// ForWorkspace returns a copy of the tool writing into the given run
// workspace.
func (t *SocialTool) ForWorkspace(dir string) Tool {
	return NewSocialTool(filepath.Join(dir, "social_drafts"), filepath.Join(dir, "social_queue"))
}

// Operations returns the supported social operations.
func (t *SocialTool) Operations() []Operation {
	return []Operation{
		{Name: "draft_content"},
		{Name: "post_content", Dangerous: true},
	}
}

// Invoke performs one social operation.
func (t *SocialTool) Invoke(ctx context.Context, operation string, params map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Tool: t.Name(), Operation: operation, Err: err}
	}

	platform, _ := params["platform"].(string)
	content, _ := params["content"].(string)
	if platform == "" {
		platform = "generic"
	}

	var dir string
	switch operation {
	case "draft_content":
		dir = t.draftDir
	case "post_content":
		dir = t.queueDir
	default:
		return nil, &Error{Tool: t.Name(), Operation: operation, Err: ErrUnknownOperation}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &Error{Tool: t.Name(), Operation: operation, Err: err}
	}
	name := fmt.Sprintf("%s_%d.md", platform, time.Now().UnixNano())
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return nil, &Error{Tool: t.Name(), Operation: operation, Err: err}
	}
	return map[string]any{"path": path, "platform": platform}, nil
}

var (
	_ Tool   = (*SocialTool)(nil)
	_ Rooted = (*SocialTool)(nil)
)
