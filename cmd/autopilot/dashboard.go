package main

import (
	"github.com/spf13/cobra"

	"github.com/Gnoscenti/founder-autopilot/internal/tui"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard <run-id>",
	Short: "Watch and steer a run in the terminal",
	Long: `Open the interactive dashboard for a run. The dashboard drives execution,
shows live task statuses and token spend, and lets you approve or reject
paused tasks with a keypress.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.ctrl.ResumeRun(args[0]); err != nil {
			return err
		}
		return tui.Run(a.ctrl, args[0])
	},
}
