package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Gnoscenti/founder-autopilot/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "autopilot",
	Short: "Agent-driven business launch orchestrator",
	Long: `Founder Autopilot executes a dependency-ordered graph of business-building
tasks through capability-scoped agents: market validation, brand creation,
product build, payment setup, marketing, and deployment.

Dangerous operations (charging customers, sending campaigns, publishing)
always pause for explicit human approval before they run.

Typical flow:
  autopilot new "Launch a course for indie hackers"
  autopilot run <run-id>
  autopilot approve <run-id> <task-id>   # when a task pauses
  autopilot status <run-id>`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads configuration, honoring --config when set.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromPath(configPath)
	}
	return config.Load()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")

	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(stepCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(rejectCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(permissionsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(secretCmd)
	rootCmd.AddCommand(versionCmd)
}
