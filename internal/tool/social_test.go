package tool

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestSocialTool_DraftAndQueue(t *testing.T) {
	draftDir := filepath.Join(t.TempDir(), "drafts")
	queueDir := filepath.Join(t.TempDir(), "queue")
	so := NewSocialTool(draftDir, queueDir)
	ctx := context.Background()

	out, err := so.Invoke(ctx, "draft_content", map[string]any{
		"platform": "twitter",
		"content":  "Launching today!",
	})
	if err != nil {
		t.Fatalf("draft_content failed: %v", err)
	}
	path, _ := out["path"].(string)
	if filepath.Dir(path) != draftDir {
		t.Errorf("draft landed in %q, want %q", filepath.Dir(path), draftDir)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "Launching today!" {
		t.Errorf("draft content = %q, err %v", data, err)
	}

	out, err = so.Invoke(ctx, "post_content", map[string]any{
		"platform": "linkedin",
		"content":  "We shipped.",
	})
	if err != nil {
		t.Fatalf("post_content failed: %v", err)
	}
	path, _ = out["path"].(string)
	if filepath.Dir(path) != queueDir {
		t.Errorf("post landed in %q, want %q", filepath.Dir(path), queueDir)
	}
}

func TestSocialTool_DefaultPlatform(t *testing.T) {
	so := NewSocialTool(t.TempDir(), t.TempDir())

	out, err := so.Invoke(context.Background(), "draft_content", map[string]any{"content": "hi"})
	if err != nil {
		t.Fatalf("draft_content failed: %v", err)
	}
	if out["platform"] != "generic" {
		t.Errorf("platform = %v, want generic", out["platform"])
	}
}

func TestSocialTool_PostIsDangerous(t *testing.T) {
	so := NewSocialTool(t.TempDir(), t.TempDir())
	for _, op := range so.Operations() {
		if op.Name == "post_content" && !op.Dangerous {
			t.Error("post_content should be flagged dangerous")
		}
		if op.Name == "draft_content" && op.Dangerous {
			t.Error("draft_content should not be flagged dangerous")
		}
	}
}
