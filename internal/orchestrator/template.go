package orchestrator

import (
	"fmt"
	"os"
	"time"

	yaml "go.yaml.in/yaml/v3"

	"github.com/Gnoscenti/founder-autopilot/pkg/models"
)

// agentForType maps a task type to its default agent when a template entry
// does not assign one explicitly.
func agentForType(t models.TaskType) string {
	switch t {
	case models.TaskTypeInterview, models.TaskTypeAutomationSetup:
		return "orchestrator"
	case models.TaskTypeMarketingPlan:
		return "marketing"
	case models.TaskTypeDeployment:
		return "webdev"
	default:
		return "business_builder"
	}
}

// DefaultTasks returns the standard business-building task graph: interview
// through deployment, with the dependency edges, agent assignments, tool
// permissions, and prompt IDs of the stock plan.
func DefaultTasks() []*models.Task {
	now := time.Now().UTC()
	mk := func(id string, typ models.TaskType, title, description, agentName, promptID string, deps []string, toolPerms []string) *models.Task {
		return &models.Task{
			ID:              id,
			Type:            typ,
			Title:           title,
			Description:     description,
			Status:          models.TaskStatusPending,
			DependsOn:       deps,
			AgentName:       agentName,
			ToolPermissions: toolPerms,
			PromptID:        promptID,
			CreatedAt:       now,
			TransitionedAt:  now,
		}
	}

	return []*models.Task{
		mk("task_001", models.TaskTypeInterview, "Interview and Build Spec",
			"Conduct 12-question interview to capture constraints and create Build Spec",
			"orchestrator", "prompt_0_setup", nil, nil),
		mk("task_002", models.TaskTypeConceptGeneration, "Generate 3 Business Concepts",
			"Propose 3 optimized business concepts based on Build Spec",
			"business_builder", "prompt_1_concepts", []string{"task_001"}, nil),
		mk("task_003", models.TaskTypeValidation, "Validation Plan",
			"Create 7-day validation plan with testable hypotheses",
			"business_builder", "prompt_2_validation", []string{"task_002"}, nil),
		mk("task_004", models.TaskTypePositioning, "Competitive Positioning",
			"Build competitor map and positioning wedge",
			"business_builder", "prompt_3_positioning", []string{"task_002"}, nil),
		mk("task_005", models.TaskTypeOfferDesign, "Design Core Offer",
			"Design irresistible offer with boundaries",
			"business_builder", "prompt_4_offer", []string{"task_003", "task_004"}, nil),
		mk("task_006", models.TaskTypeBrandCreation, "Brand Identity",
			"Create brand name, tagline, and identity kit",
			"business_builder", "prompt_5_brand", []string{"task_004"}, nil),
		mk("task_007", models.TaskTypeWebsiteCopy, "Website Copy",
			"Write high-converting landing page and pricing page copy",
			"business_builder", "prompt_7_home_copy", []string{"task_005", "task_006"}, nil),
		mk("task_008", models.TaskTypeProductBuild, "Product Blueprint",
			"Create MVP to V2 product roadmap",
			"business_builder", "prompt_10_product_blueprint", []string{"task_005"}, nil),
		mk("task_009", models.TaskTypeAutomationSetup, "Automation Architecture",
			"Design automation plan for fulfillment and support",
			"orchestrator", "prompt_14_automation_nocode", []string{"task_008"},
			[]string{"stripe", "email", "filesystem"}),
		mk("task_010", models.TaskTypeMarketingPlan, "Go-to-Market Plan",
			"Choose primary channel and create 60-day execution plan",
			"marketing", "prompt_18_channel_focus", []string{"task_007"}, nil),
		mk("task_011", models.TaskTypeDeployment, "Deploy Website",
			"Build and deploy website with Stripe integration",
			"webdev", "", []string{"task_007", "task_009"},
			[]string{"filesystem", "shell", "git", "stripe", "playwright"}),
	}
}

// templateFile is the YAML shape of a task template override.
type templateFile struct {
	Tasks []struct {
		ID              string   `yaml:"id"`
		Type            string   `yaml:"type"`
		Title           string   `yaml:"title"`
		Description     string   `yaml:"description"`
		Agent           string   `yaml:"agent"`
		PromptID        string   `yaml:"prompt_id"`
		DependsOn       []string `yaml:"depends_on"`
		ToolPermissions []string `yaml:"tool_permissions"`
	} `yaml:"tasks"`
}

// LoadTemplate reads a task template from a YAML file. Validation happens
// later at graph build, where unknown dependencies and cycles reject the run.
func LoadTemplate(path string) ([]*models.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}

	var tf templateFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	if len(tf.Tasks) == 0 {
		return nil, fmt.Errorf("template %s defines no tasks", path)
	}

	now := time.Now().UTC()
	tasks := make([]*models.Task, 0, len(tf.Tasks))
	for _, t := range tf.Tasks {
		agentName := t.Agent
		if agentName == "" {
			agentName = agentForType(models.TaskType(t.Type))
		}
		tasks = append(tasks, &models.Task{
			ID:              t.ID,
			Type:            models.TaskType(t.Type),
			Title:           t.Title,
			Description:     t.Description,
			Status:          models.TaskStatusPending,
			DependsOn:       t.DependsOn,
			AgentName:       agentName,
			ToolPermissions: t.ToolPermissions,
			PromptID:        t.PromptID,
			CreatedAt:       now,
			TransitionedAt:  now,
		})
	}
	return tasks, nil
}
