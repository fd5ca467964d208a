package orchestrator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Gnoscenti/founder-autopilot/pkg/models"
)

func TestLoadTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	content := `tasks:
  - id: research
    type: validation
    title: Validate demand
    prompt_id: prompt_2_validation
  - id: copy
    type: website_copy
    title: Landing copy
    agent: marketing
    depends_on: [research]
    tool_permissions: [filesystem]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write template: %v", err)
	}

	tasks, err := LoadTemplate(path)
	if err != nil {
		t.Fatalf("LoadTemplate failed: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("tasks = %d, want 2", len(tasks))
	}

	research := tasks[0]
	if research.ID != "research" || research.Type != models.TaskTypeValidation {
		t.Errorf("first task = %s/%s", research.ID, research.Type)
	}
	if research.Status != models.TaskStatusPending {
		t.Errorf("status = %s", research.Status)
	}
	// No agent in the file, so the type default applies.
	if research.AgentName != "business_builder" {
		t.Errorf("agent = %q", research.AgentName)
	}

	copyTask := tasks[1]
	if copyTask.AgentName != "marketing" {
		t.Errorf("explicit agent = %q", copyTask.AgentName)
	}
	if len(copyTask.DependsOn) != 1 || copyTask.DependsOn[0] != "research" {
		t.Errorf("depends_on = %v", copyTask.DependsOn)
	}
	if len(copyTask.ToolPermissions) != 1 || copyTask.ToolPermissions[0] != "filesystem" {
		t.Errorf("tool_permissions = %v", copyTask.ToolPermissions)
	}
}

func TestLoadTemplate_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	if err := os.WriteFile(path, []byte("tasks: []\n"), 0644); err != nil {
		t.Fatalf("write template: %v", err)
	}

	if _, err := LoadTemplate(path); err == nil {
		t.Fatal("expected error for empty template")
	}
}

func TestLoadTemplate_MissingFile(t *testing.T) {
	if _, err := LoadTemplate(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestAgentForType(t *testing.T) {
	tests := []struct {
		typ  models.TaskType
		want string
	}{
		{models.TaskTypeInterview, "orchestrator"},
		{models.TaskTypeAutomationSetup, "orchestrator"},
		{models.TaskTypeMarketingPlan, "marketing"},
		{models.TaskTypeDeployment, "webdev"},
		{models.TaskTypeValidation, "business_builder"},
		{models.TaskTypeBrandCreation, "business_builder"},
	}
	for _, tc := range tests {
		if got := agentForType(tc.typ); got != tc.want {
			t.Errorf("agentForType(%s) = %q, want %q", tc.typ, got, tc.want)
		}
	}
}
