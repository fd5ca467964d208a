package prompts

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.json")
	content := `{
  "packs": [
    {
      "name": "launch",
      "prompts": [
        {"id": "market_research", "prompt": "Research the market for the goal."},
        {"id": "landing_copy", "prompt": "Write landing page copy."}
      ]
    },
    {
      "name": "growth",
      "prompts": [
        {"id": "email_welcome", "prompt": "Draft a welcome email."}
      ]
    }
  ]
}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write prompts file: %v", err)
	}

	lib, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if lib.Len() != 3 {
		t.Errorf("Len = %d, want 3", lib.Len())
	}

	text, ok := lib.Get("market_research")
	if !ok || text != "Research the market for the goal." {
		t.Errorf("Get(market_research) = %q, %v", text, ok)
	}
	if _, ok := lib.Get("nonexistent"); ok {
		t.Error("Get of unknown ID should report missing")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	lib, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("missing file should not error, got %v", err)
	}
	if lib.Len() != 0 {
		t.Errorf("Len = %d, want 0", lib.Len())
	}
}

func TestLoad_MalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("write prompts file: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
