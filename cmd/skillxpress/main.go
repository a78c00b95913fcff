// Package main provides the skillxpress command: the HTTP API server and
// local tools for scoring, matching and schema migration.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/skillxpress/skillxpress/internal/config"
	"github.com/skillxpress/skillxpress/internal/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "skillxpress",
	Short: "SkillXpress skill scoring and roadmap service",
	Long: "SkillXpress scores a user's skills from code-hosting activity and uploaded documents, " +
		"compares them against job roles and generates a month-by-month learning roadmap.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a JSON config file (optional)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	if cfg.LogHashSalt != "" {
		log = log.WithHashSalt(cfg.LogHashSalt)
	}
	return log, nil
}
