// Package config handles configuration loading for Founder Autopilot.
// It supports XDG config paths, project-level overrides, and environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the autopilot.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Paths     PathsConfig     `mapstructure:"paths"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Run       RunConfig       `mapstructure:"run"`
	Server    ServerConfig    `mapstructure:"server"`
	Email     EmailConfig     `mapstructure:"email"`
	Timeouts  TimeoutsConfig  `mapstructure:"timeouts"`
}

// AnthropicConfig holds language model settings.
type AnthropicConfig struct {
	APIKey        string `mapstructure:"api_key"`
	Model         string `mapstructure:"model"`
	MaxTokens     int64  `mapstructure:"max_tokens"`
	UseAWSBedrock bool   `mapstructure:"use_aws_bedrock"`
	AWSRegion     string `mapstructure:"aws_region"`
	AWSProfile    string `mapstructure:"aws_profile"`
}

// PathsConfig holds filesystem locations.
type PathsConfig struct {
	// Workspace is the root under which each run gets its own subtree.
	Workspace string `mapstructure:"workspace"`
	// Artifacts is the root for per-run artifact directories.
	Artifacts string `mapstructure:"artifacts"`
	// Prompts is the prompt library JSON file.
	Prompts string `mapstructure:"prompts"`
	// Database is the SQLite run store location.
	Database string `mapstructure:"database"`
	// Vault is the encrypted secret store location.
	Vault string `mapstructure:"vault"`
	// Permissions optionally overrides the built-in permission table (YAML).
	Permissions string `mapstructure:"permissions"`
	// Template optionally overrides the built-in task template (YAML).
	Template string `mapstructure:"template"`
}

// RetryConfig holds retry and backoff settings.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BackoffBase time.Duration `mapstructure:"backoff_base"`
	BackoffCap  time.Duration `mapstructure:"backoff_cap"`
}

// RunConfig holds per-run policy defaults.
type RunConfig struct {
	// FailFast fails the whole run on the first permanent task failure.
	FailFast bool `mapstructure:"fail_fast"`
	// MaxParallel bounds batch dispatch of independent ready tasks.
	MaxParallel int `mapstructure:"max_parallel"`
}

// ServerConfig holds HTTP service settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// EmailConfig holds SMTP settings for the email tool.
type EmailConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// TimeoutsConfig holds per-tool call timeouts.
type TimeoutsConfig struct {
	Shell time.Duration `mapstructure:"shell"`
	Git   time.Duration `mapstructure:"git"`
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables. Precedence (highest to lowest):
//  1. Environment variables (ANTHROPIC_API_KEY, AUTOPILOT_*)
//  2. Project config (.autopilot.yaml in current directory or parent)
//  3. User config (~/.config/autopilot/config.yaml)
//  4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("AUTOPILOT")
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("server.addr", "AUTOPILOT_SERVER_ADDR")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	return cfg, nil
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.use_aws_bedrock", false)

	v.SetDefault("paths.workspace", "./data/workspace")
	v.SetDefault("paths.artifacts", "./data/artifacts")
	v.SetDefault("paths.prompts", "./data/prompts/business_prompts.json")
	v.SetDefault("paths.database", "./data/runs.db")
	v.SetDefault("paths.vault", "./data/vault.enc")
	v.SetDefault("paths.permissions", "")
	v.SetDefault("paths.template", "")

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.backoff_base", "1s")
	v.SetDefault("retry.backoff_cap", "30s")

	v.SetDefault("run.fail_fast", false)
	v.SetDefault("run.max_parallel", 1)

	v.SetDefault("server.addr", ":8001")

	v.SetDefault("email.host", "")
	v.SetDefault("email.port", 587)

	v.SetDefault("timeouts.shell", "60s")
	v.SetDefault("timeouts.git", "60s")
}

// getUserConfigDir returns the XDG config directory for the autopilot.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "autopilot")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "autopilot")
	}
	return filepath.Join(home, ".config", "autopilot")
}

// findProjectConfig searches for .autopilot.yaml in the current directory
// and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".autopilot.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}
	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Anthropic: AnthropicConfig{MaxTokens: 4096},
		Paths: PathsConfig{
			Workspace: "./data/workspace",
			Artifacts: "./data/artifacts",
			Prompts:   "./data/prompts/business_prompts.json",
			Database:  "./data/runs.db",
			Vault:     "./data/vault.enc",
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BackoffBase: time.Second,
			BackoffCap:  30 * time.Second,
		},
		Run:    RunConfig{FailFast: false, MaxParallel: 1},
		Server: ServerConfig{Addr: ":8001"},
		Email:  EmailConfig{Port: 587},
		Timeouts: TimeoutsConfig{
			Shell: 60 * time.Second,
			Git:   60 * time.Second,
		},
	}
}
