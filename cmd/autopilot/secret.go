package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Gnoscenti/founder-autopilot/internal/vault"
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage vaulted credentials",
	Long: `Manage the encrypted credential vault used by the stripe and email tools.
Environment variables with the upper-cased key name take precedence over
vaulted values at read time.`,
}

var secretSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a secret",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openVault()
		if err != nil {
			return err
		}
		if err := v.Set(args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("%s Stored %s\n", color.GreenString("✓"), args[0])
		return nil
	},
}

var secretListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored secret keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openVault()
		if err != nil {
			return err
		}
		keys := v.Keys()
		if len(keys) == 0 {
			fmt.Println("Vault is empty.")
			return nil
		}
		for _, key := range keys {
			fmt.Println(key)
		}
		return nil
	},
}

var secretDeleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Remove a secret",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openVault()
		if err != nil {
			return err
		}
		if err := v.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("%s Removed %s\n", color.GreenString("✓"), args[0])
		return nil
	},
}

func openVault() (*vault.Vault, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return vault.Open(cfg.Paths.Vault)
}

func init() {
	secretCmd.AddCommand(secretSetCmd)
	secretCmd.AddCommand(secretListCmd)
	secretCmd.AddCommand(secretDeleteCmd)
}
