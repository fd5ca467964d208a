package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Gnoscenti/founder-autopilot/internal/watch"
)

var cancelViaSignal bool

var cancelCmd = &cobra.Command{
	Use:   "cancel <run-id>",
	Short: "Cancel a run",
	Long: `Cancel a run. Tasks not yet dispatched are cancelled immediately; an
in-flight task winds down cooperatively.

With --signal, only a cancel signal file is written to the run workspace, for
reaching a run loop driven by another process.`,
	Args: cobra.ExactArgs(1),
	RunE: runCancel,
}

func init() {
	cancelCmd.Flags().BoolVar(&cancelViaSignal, "signal", false, "Write a cancel signal file instead of cancelling directly")
}

func runCancel(cmd *cobra.Command, args []string) error {
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

	if cancelViaSignal {
		signals, err := watch.NewSignalManager(run.WorkspacePath)
		if err != nil {
			return err
		}
		defer signals.Close()
		if err := signals.SendCancel(); err != nil {
			return err
		}
		fmt.Printf("%s Cancel signal written for run %s\n", color.YellowString("⊘"), runID)
		return nil
	}

	if err := a.ctrl.CancelRun(runID); err != nil {
		return err
	}
	fmt.Printf("%s Run %s cancelled\n", color.YellowString("⊘"), runID)
	return nil
}
