package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Gnoscenti/founder-autopilot/internal/permission"
)

var permissionsCmd = &cobra.Command{
	Use:   "permissions",
	Short: "Show the agent capability table",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		gate := permission.NewGate()
		if cfg.Paths.Permissions != "" {
			if err := gate.LoadFile(cfg.Paths.Permissions); err != nil {
				return fmt.Errorf("load permission overrides: %w", err)
			}
		}

		table := gate.Table()
		agents := make([]string, 0, len(table))
		for name := range table {
			agents = append(agents, name)
		}
		sort.Strings(agents)

		fmt.Println("Agent capabilities:")
		for _, name := range agents {
			fmt.Printf("  %-18s %s\n", name, strings.Join(table[name], ", "))
		}

		fmt.Printf("\nOperations requiring human approval (%s):\n", color.YellowString("always"))
		for _, op := range gate.ApprovalOps() {
			fmt.Printf("  %s\n", op)
		}
		return nil
	},
}
