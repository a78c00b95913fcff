package main

import (
	"github.com/spf13/cobra"

	"github.com/skillxpress/skillxpress/internal/observability"
)

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "List the job requirement catalog",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		roles, err := loadCatalog(cfg)
		if err != nil {
			return err
		}
		observability.NewPrinter(cmd.OutOrStdout()).PrintRoles(roles.Roles())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rolesCmd)
}
