package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skillxpress/skillxpress/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded database schema",
	RunE:  runMigrate,
}

var migrateList bool

func init() {
	migrateCmd.Flags().BoolVar(&migrateList, "list", false, "List embedded migrations without applying them")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	if migrateList {
		migrations, err := db.Migrations()
		if err != nil {
			return err
		}
		for _, m := range migrations {
			_, _ = fmt.Fprintln(out, m.Name)
		}
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	database, err := db.Connect(ctx, cfg.DatabaseURL, cfg.DatabaseTimeout())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	applied, err := database.Migrate(ctx)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		_, _ = fmt.Fprintln(out, "schema is up to date")
		return nil
	}
	for _, name := range applied {
		_, _ = fmt.Fprintf(out, "applied %s\n", name)
	}
	return nil
}
