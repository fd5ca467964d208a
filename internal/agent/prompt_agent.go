package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Gnoscenti/founder-autopilot/internal/llm"
	"github.com/Gnoscenti/founder-autopilot/pkg/models"
)

// PromptAgent executes tasks by running the task's library prompt through
// the language model and parsing structured output. It covers every task
// type whose work is producing a document or plan; agents with external
// effects layer tool calls on top of the same flow.
//
// PromptAgent is idempotent-on-retry: re-running regenerates the same
// artifact path, overwriting rather than duplicating.
type PromptAgent struct {
	name      string
	generator llm.Generator
}

// NewPromptAgent creates a prompt agent with the given registered name.
func NewPromptAgent(name string, generator llm.Generator) *PromptAgent {
	return &PromptAgent{name: name, generator: generator}
}

// Name returns the agent's registered name.
func (a *PromptAgent) Name() string { return a.name }

// Execute runs the task prompt through the model, parses outputs, and saves
// the raw response as an artifact when the agent may use the filesystem.
func (a *PromptAgent) Execute(ctx context.Context, task *models.Task, rc *RunContext) (*Result, error) {
	system := a.buildSystemMessage(task, rc)
	user := a.buildUserMessage(task, rc)

	response, err := a.generator.Generate(ctx, system, user)
	if err != nil {
		return nil, classifyGenerateError(err)
	}

	outputs := ParseOutputs(response)

	result := &Result{Outputs: outputs}

	// Persist the raw response through the gated filesystem tool so the
	// artifact survives retries and restarts.
	if rc.Tools != nil && hasPermission(rc.Permissions, "filesystem") {
		artifact := fmt.Sprintf("artifacts/%s.md", task.ID)
		out, err := rc.Tools.Invoke(ctx, "filesystem", "write_file", map[string]any{
			"path":    artifact,
			"content": response,
		})
		if err != nil {
			return nil, err
		}
		if path, ok := out["path"].(string); ok {
			result.Artifacts = []string{path}
		}
	}

	return result, nil
}

func (a *PromptAgent) buildSystemMessage(task *models.Task, rc *RunContext) string {
	return fmt.Sprintf(`You are the %s agent in the Founder Autopilot system.

Your role: %s

Available tools: %s

Guidelines:
- Be practical and implementation-focused
- Optimize for automation and low-touch operations
- Consider real-world constraints and risks
- Provide specific, actionable outputs
- Use clear structure and formatting
- Avoid fluff and generic advice

Current task: %s
`, a.name, task.Description, strings.Join(rc.Permissions, ", "), task.Title)
}

func (a *PromptAgent) buildUserMessage(task *models.Task, rc *RunContext) string {
	var b strings.Builder
	if rc.Prompt != "" {
		b.WriteString(rc.Prompt)
		b.WriteString("\n")
	} else {
		b.WriteString(task.Description)
		b.WriteString("\n")
	}

	b.WriteString(fmt.Sprintf("\nGoal: %s\n", rc.Goal))

	if len(rc.Constraints) > 0 {
		b.WriteString("\nConstraints:\n")
		writeJSONSection(&b, rc.Constraints)
	}

	if len(rc.DependencyOutputs) > 0 {
		b.WriteString("\nContext from previous tasks:\n")
		for depID, outputs := range rc.DependencyOutputs {
			b.WriteString(fmt.Sprintf("\n%s:\n", depID))
			writeJSONSection(&b, outputs)
		}
	}

	if len(task.Inputs) > 0 {
		b.WriteString("\nTask inputs:\n")
		writeJSONSection(&b, task.Inputs)
	}

	b.WriteString("\nPlease provide your response in a structured format that can be easily parsed and used by subsequent tasks.\n")
	return b.String()
}

func writeJSONSection(b *strings.Builder, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(b, "%v\n", v)
		return
	}
	b.Write(data)
	b.WriteString("\n")
}

// ParseOutputs extracts a fenced ```json block from a model response into
// the output mapping. The raw response is always preserved under
// "raw_response" so downstream tasks lose nothing when parsing fails.
func ParseOutputs(response string) map[string]any {
	outputs := map[string]any{"raw_response": response}

	start := strings.Index(response, "```json")
	if start < 0 {
		return outputs
	}
	start += len("```json")
	end := strings.Index(response[start:], "```")
	if end < 0 {
		return outputs
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(response[start:start+end])), &parsed); err != nil {
		return outputs
	}
	for k, v := range parsed {
		outputs[k] = v
	}
	return outputs
}

// classifyGenerateError wraps model-call failures that look like rate limits,
// overload, or timeouts as transient.
func classifyGenerateError(err error) error {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"rate limit", "429", "529", "overloaded", "timeout", "deadline exceeded", "connection"} {
		if strings.Contains(msg, marker) {
			return &TransientError{Err: err}
		}
	}
	return err
}

func hasPermission(permissions []string, tool string) bool {
	for _, p := range permissions {
		if p == tool {
			return true
		}
	}
	return false
}

var _ Agent = (*PromptAgent)(nil)
