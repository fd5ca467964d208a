package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Gnoscenti/founder-autopilot/internal/watch"
)

var approveCmd = &cobra.Command{
	Use:   "approve <run-id> <task-id>",
	Short: "Approve a task's pending dangerous operation",
	Long: `Approve the flagged operation of a task paused in awaiting_approval. The
agent re-runs the task with the approval recorded, so the flagged operation
executes this time. The approval covers only that task and operation.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return decide(args[0], args[1], true)
	},
}

var rejectCmd = &cobra.Command{
	Use:   "reject <run-id> <task-id>",
	Short: "Reject a task's pending dangerous operation",
	Long: `Reject the flagged operation of a paused task. The task is cancelled and
its dependents stay blocked; independent branches keep executing.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return decide(args[0], args[1], false)
	},
}

func decide(runID, taskID string, approved bool) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	run, err := a.ctrl.ResumeRun(runID)
	if err != nil {
		return err
	}

	var verb string
	if approved {
		verb = "approved"
		res, err := a.ctrl.Approve(context.Background(), runID, taskID)
		if err != nil {
			return err
		}
		printResult(res)
	} else {
		verb = "rejected"
		res, err := a.ctrl.Reject(runID, taskID)
		if err != nil {
			return err
		}
		printResult(res)
	}

	if signals, serr := watch.NewSignalManager(run.WorkspacePath); serr == nil {
		_ = signals.RecordDecision(fmt.Sprintf("task %s %s", taskID, verb))
		signals.Close()
	}

	if approved {
		fmt.Printf("%s Task %s approved and re-executed\n", color.GreenString("✓"), taskID)
	} else {
		fmt.Printf("%s Task %s rejected\n", color.YellowString("⊘"), taskID)
	}
	return nil
}
