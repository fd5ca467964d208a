package main

import (
	"fmt"
	"path/filepath"

	"github.com/Gnoscenti/founder-autopilot/internal/agent"
	"github.com/Gnoscenti/founder-autopilot/internal/config"
	"github.com/Gnoscenti/founder-autopilot/internal/exec"
	"github.com/Gnoscenti/founder-autopilot/internal/llm"
	"github.com/Gnoscenti/founder-autopilot/internal/orchestrator"
	"github.com/Gnoscenti/founder-autopilot/internal/orchestrator/policy"
	"github.com/Gnoscenti/founder-autopilot/internal/permission"
	"github.com/Gnoscenti/founder-autopilot/internal/prompts"
	"github.com/Gnoscenti/founder-autopilot/internal/state"
	"github.com/Gnoscenti/founder-autopilot/internal/tool"
	"github.com/Gnoscenti/founder-autopilot/internal/vault"
	"github.com/Gnoscenti/founder-autopilot/pkg/models"
)

// app bundles the wired controller with the resources it owns.
type app struct {
	cfg    *config.Config
	ctrl   *orchestrator.Controller
	db     *state.DB
	vault  *vault.Vault
	logger *orchestrator.DebugLogger
}

// buildApp wires the full stack: config, persistence, vault, LLM client,
// tools, agents, permission gate, and the run controller.
func buildApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return buildAppFromConfig(cfg)
}

func buildAppFromConfig(cfg *config.Config) (*app, error) {
	logger, err := orchestrator.NewDebugLogger(filepath.Join(cfg.Paths.Workspace, ".autopilot", "debug.log"))
	if err != nil {
		logger = orchestrator.NopLogger()
	}
	orchestrator.SetPackageLogger(logger)

	db, err := state.Open(cfg.Paths.Database)
	if err != nil {
		return nil, fmt.Errorf("open run store: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate run store: %w", err)
	}

	vlt, err := vault.Open(cfg.Paths.Vault)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open vault: %w", err)
	}

	client, err := llm.NewClient(llm.ClientConfig{
		Model:         cfg.Anthropic.Model,
		APIKey:        cfg.Anthropic.APIKey,
		MaxTokens:     cfg.Anthropic.MaxTokens,
		UseAWSBedrock: cfg.Anthropic.UseAWSBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create LLM client: %w", err)
	}

	gate := permission.NewGate()
	if cfg.Paths.Permissions != "" {
		if err := gate.LoadFile(cfg.Paths.Permissions); err != nil {
			db.Close()
			return nil, fmt.Errorf("load permission overrides: %w", err)
		}
	}

	lib, err := prompts.Load(cfg.Paths.Prompts)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load prompt library: %w", err)
	}

	tools, err := buildTools(cfg, vlt)
	if err != nil {
		db.Close()
		return nil, err
	}

	agents := agent.NewRegistry()
	for name := range gate.Table() {
		agents.Register(agent.NewPromptAgent(name, client))
	}

	dispatcher := orchestrator.NewDispatcher(agents, tools, gate, lib)
	ctrl := orchestrator.NewController(orchestrator.ControllerConfig{
		Repository: db,
		Dispatcher: dispatcher,
		Gate:       gate,
		Policy: &policy.Config{
			Retry: policy.RetryPolicy{
				MaxAttempts: cfg.Retry.MaxAttempts,
				BackoffBase: cfg.Retry.BackoffBase,
				BackoffCap:  cfg.Retry.BackoffCap,
			},
			FailFast:    cfg.Run.FailFast,
			MaxParallel: cfg.Run.MaxParallel,
		},
		WorkspaceRoot: cfg.Paths.Workspace,
		ArtifactsRoot: cfg.Paths.Artifacts,
		Tracker:       client.Tracker(),
	})

	return &app{cfg: cfg, ctrl: ctrl, db: db, vault: vlt, logger: logger}, nil
}

// buildTools registers every tool the agents can reach through the gate.
// Directory-backed tools are registered at the shared workspace root only as
// a fallback; each dispatch re-roots them under the run's own workspace.
func buildTools(cfg *config.Config, vlt *vault.Vault) (*tool.Registry, error) {
	workspace := cfg.Paths.Workspace

	shellRunner := exec.NewRunner(cfg.Timeouts.Shell)
	gitRunner := exec.NewRunner(cfg.Timeouts.Git)

	registry := tool.NewRegistry()
	for _, t := range []tool.Tool{
		tool.NewFilesystemTool(workspace),
		tool.NewShellTool(shellRunner, workspace, nil),
		tool.NewGitTool(gitRunner, workspace),
		tool.NewStripeTool(vlt),
		tool.NewEmailTool(vlt, filepath.Join(workspace, "email_drafts"), cfg.Email.Host, cfg.Email.Port),
		tool.NewSocialTool(filepath.Join(workspace, "social_drafts"), filepath.Join(workspace, "social_queue")),
	} {
		if err := registry.Register(t); err != nil {
			return nil, fmt.Errorf("register tool: %w", err)
		}
	}
	return registry, nil
}

// loadTemplate resolves the task template override, if configured or passed.
func (a *app) loadTemplate(path string) ([]*models.Task, error) {
	if path == "" {
		path = a.cfg.Paths.Template
	}
	if path == "" {
		return nil, nil
	}
	tasks, err := orchestrator.LoadTemplate(path)
	if err != nil {
		return nil, fmt.Errorf("load task template: %w", err)
	}
	return tasks, nil
}

// Close releases the app's resources.
func (a *app) Close() {
	a.db.Close()
	a.logger.Close()
}
