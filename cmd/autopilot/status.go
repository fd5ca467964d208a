package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Gnoscenti/founder-autopilot/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status [run-id]",
	Short: "Show run state",
	Long: `Without arguments, lists all persisted runs. With a run ID, shows the
run's tasks with their statuses, retries, and pending approvals.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 0 {
		return listRuns(a)
	}
	return showRun(a, args[0])
}

func listRuns(a *app) error {
	runs, err := a.ctrl.ListRuns()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs yet. Create one with 'autopilot new <goal>'.")
		return nil
	}

	fmt.Printf("%-14s %-26s %-22s %s\n", "RUN", "STATUS", "UPDATED", "GOAL")
	for _, r := range runs {
		fmt.Printf("%-14s %-26s %-22s %s\n",
			r.ID, colorRunStatus(string(r.Status)), r.UpdatedAt, truncate(r.Goal, 50))
	}
	return nil
}

func showRun(a *app, runID string) error {
	run, err := a.ctrl.GetRun(runID)
	if err != nil {
		return err
	}
	tasks, err := a.ctrl.Tasks(runID)
	if err != nil {
		return err
	}
	progress, err := a.ctrl.Progress(runID)
	if err != nil {
		return err
	}

	fmt.Printf("Run %s: %s\n", color.CyanString(run.ID), run.Goal)
	fmt.Printf("Status: %s  Progress: %.0f%%  Tokens: %d ($%.4f)\n\n",
		colorRunStatus(string(run.Status)), progress*100, run.TotalTokens, run.TotalCostUSD)

	for _, t := range tasks {
		label := string(t.Status)
		if t.Blocked {
			label = "blocked"
		}
		line := fmt.Sprintf("%s %-10s %-18s %s", taskGlyph(t.Task.Status, t.Blocked), t.ID, label, t.Title)
		fmt.Println(line)

		if t.Status == models.TaskStatusAwaitingApproval {
			fmt.Printf("           %s pending: %s\n", color.YellowString("⏸"), t.PendingOperation)
		}
		if t.Error != "" {
			fmt.Printf("           %s %s\n", color.RedString("error:"), truncate(t.Error, 80))
		}
		if t.RetryCount > 0 {
			fmt.Printf("           retries: %d\n", t.RetryCount)
		}
	}
	return nil
}

func taskGlyph(status models.TaskStatus, blocked bool) string {
	if blocked {
		return color.HiBlackString("⊘")
	}
	switch status {
	case models.TaskStatusCompleted:
		return color.GreenString("✓")
	case models.TaskStatusFailed:
		return color.RedString("✗")
	case models.TaskStatusCancelled:
		return color.HiBlackString("⊘")
	case models.TaskStatusRunning, models.TaskStatusRetrying:
		return color.YellowString("▶")
	case models.TaskStatusAwaitingApproval:
		return color.YellowString("⏸")
	default:
		return "·"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
