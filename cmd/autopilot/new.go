package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	newConstraints []string
	newTemplate    string
)

var newCmd = &cobra.Command{
	Use:   "new <goal>",
	Short: "Create a run from a goal",
	Long: `Create a new run for the given business goal. The run starts with the
stock business-building task graph unless a template override is configured
or passed with --template.

Constraints are free-form key=value pairs handed to every agent, e.g.:
  autopilot new "Launch a meal-prep SaaS" -c budget=500 -c audience="busy parents"`,
	Args: cobra.ExactArgs(1),
	RunE: runNew,
}

func init() {
	newCmd.Flags().StringArrayVarP(&newConstraints, "constraint", "c", nil, "Constraint as key=value (repeatable)")
	newCmd.Flags().StringVar(&newTemplate, "template", "", "Task template YAML file")
}

func runNew(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	constraints := make(map[string]any)
	for _, pair := range newConstraints {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("invalid constraint %q, expected key=value", pair)
		}
		constraints[key] = value
	}

	tasks, err := a.loadTemplate(newTemplate)
	if err != nil {
		return err
	}

	run, err := a.ctrl.CreateRun(args[0], constraints, tasks)
	if err != nil {
		return err
	}

	fmt.Printf("%s Created run %s\n", color.GreenString("✓"), color.CyanString(run.ID))
	fmt.Printf("  Goal:      %s\n", run.Goal)
	fmt.Printf("  Workspace: %s\n", run.WorkspacePath)
	fmt.Printf("\nStart it with:\n  autopilot run %s\n", run.ID)
	return nil
}
