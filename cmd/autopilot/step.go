package main

import (
	"context"

	"github.com/spf13/cobra"
)

var stepCmd = &cobra.Command{
	Use:   "step <run-id>",
	Short: "Execute exactly one ready task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.ctrl.ExecuteNext(context.Background(), args[0])
		if err != nil {
			return err
		}
		printResult(result)
		return nil
	},
}
