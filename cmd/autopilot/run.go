package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Gnoscenti/founder-autopilot/internal/orchestrator"
	"github.com/Gnoscenti/founder-autopilot/internal/watch"
)

var runBatch bool

var runCmd = &cobra.Command{
	Use:   "run <run-id>",
	Short: "Execute a run until it completes or pauses",
	Long: `Execute the run's ready tasks in dependency order until the run reaches a
terminal status or pauses on a task that needs human approval.

Ctrl-C cancels the run cooperatively: the in-flight task winds down and
everything not yet dispatched is cancelled. A cancel signal file dropped in
the run workspace (see 'autopilot cancel --signal') has the same effect.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runBatch, "batch", false, "Dispatch independent tasks in parallel")
}

func runRun(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	runID := args[0]
	run, err := a.ctrl.ResumeRun(runID)
	if err != nil {
		return err
	}

	signals, err := watch.NewSignalManager(run.WorkspacePath)
	if err == nil {
		defer signals.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		_ = a.ctrl.CancelRun(runID)
	}()

	fmt.Printf("Executing run %s: %s\n\n", color.CyanString(runID), run.Goal)

	for {
		if signals != nil && signals.ShouldCancel() {
			fmt.Println(color.YellowString("Cancel signal received"))
			return a.ctrl.CancelRun(runID)
		}
		if signals != nil && signals.ShouldPause() {
			fmt.Println(color.YellowString("Pause signal received, stopping after current task"))
			return nil
		}

		results, err := executeOnce(ctx, a, runID)
		if err != nil {
			return err
		}

		done := false
		for _, result := range results {
			printResult(result)
			switch result.Outcome {
			case orchestrator.OutcomeTaskPaused:
				fmt.Printf("\n%s Run paused. Approve or reject with:\n", color.YellowString("⏸"))
				fmt.Printf("  autopilot approve %s %s\n", runID, result.TaskID)
				fmt.Printf("  autopilot reject  %s %s\n", runID, result.TaskID)
				done = true
			case orchestrator.OutcomeRunComplete, orchestrator.OutcomeNothingReady,
				orchestrator.OutcomeTaskCancelled:
				done = true
			}
		}
		if done {
			break
		}
	}

	return printRunSummary(a, runID)
}

func executeOnce(ctx context.Context, a *app, runID string) ([]*orchestrator.TaskResult, error) {
	if runBatch {
		return a.ctrl.ExecuteBatch(ctx, runID)
	}
	result, err := a.ctrl.ExecuteNext(ctx, runID)
	if err != nil {
		return nil, err
	}
	return []*orchestrator.TaskResult{result}, nil
}

func printResult(result *orchestrator.TaskResult) {
	switch result.Outcome {
	case orchestrator.OutcomeTaskExecuted:
		fmt.Printf("%s %s completed (%.0f%%)\n", color.GreenString("✓"), result.TaskID, result.Progress*100)
	case orchestrator.OutcomeTaskFailed:
		fmt.Printf("%s %s failed: %s\n", color.RedString("✗"), result.TaskID, result.Error)
	case orchestrator.OutcomeTaskPaused:
		fmt.Printf("%s %s awaiting approval\n", color.YellowString("⏸"), result.TaskID)
	case orchestrator.OutcomeTaskCancelled:
		fmt.Printf("%s %s cancelled\n", color.YellowString("⊘"), result.TaskID)
	case orchestrator.OutcomeRunComplete:
		fmt.Printf("\nRun finished: %s\n", colorRunStatus(string(result.RunStatus)))
	}
}

func printRunSummary(a *app, runID string) error {
	run, err := a.ctrl.GetRun(runID)
	if err != nil {
		return err
	}
	progress, err := a.ctrl.Progress(runID)
	if err != nil {
		return err
	}

	fmt.Printf("\nRun %s: %s (%.0f%% complete)\n", runID, colorRunStatus(string(run.Status)), progress*100)
	if run.TotalTokens > 0 {
		fmt.Printf("Tokens: %d ($%.4f)\n", run.TotalTokens, run.TotalCostUSD)
	}
	return nil
}

func colorRunStatus(status string) string {
	switch status {
	case "completed":
		return color.GreenString(status)
	case "failed", "completed_with_failures":
		return color.RedString(status)
	case "cancelled":
		return color.YellowString(status)
	default:
		return status
	}
}
