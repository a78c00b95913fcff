package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/skillxpress/skillxpress/internal/observability"
	"github.com/skillxpress/skillxpress/internal/ranking"
	"github.com/skillxpress/skillxpress/internal/types"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match a skill score map against catalog roles",
	Long:  "Reads a SkillScoreMap JSON file and prints the match percentage and complete gap table for each role.",
	RunE:  runMatch,
}

var (
	matchSkills     string
	matchRoles      []string
	matchActionable bool
	matchTop        int
)

func init() {
	matchCmd.Flags().StringVarP(&matchSkills, "skills", "s", "", "Path to a SkillScoreMap JSON file (required)")
	matchCmd.Flags().StringSliceVarP(&matchRoles, "role", "r", nil, "Role name, repeatable (required)")
	matchCmd.Flags().BoolVar(&matchActionable, "actionable", false, "Only show gaps with a positive shortfall")
	matchCmd.Flags().IntVar(&matchTop, "top", 0, "Show at most this many gaps (0 = all)")

	if err := matchCmd.MarkFlagRequired("skills"); err != nil {
		panic(fmt.Sprintf("failed to mark skills flag as required: %v", err))
	}
	if err := matchCmd.MarkFlagRequired("role"); err != nil {
		panic(fmt.Sprintf("failed to mark role flag as required: %v", err))
	}
	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, _ []string) error {
	data, err := os.ReadFile(matchSkills)
	if err != nil {
		return fmt.Errorf("failed to read skills file %s: %w", matchSkills, err)
	}
	var scores types.SkillScoreMap
	if err := json.Unmarshal(data, &scores); err != nil {
		return fmt.Errorf("failed to parse skills JSON: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	roles, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	resolved := make([]types.Role, 0, len(matchRoles))
	for _, name := range matchRoles {
		role, err := roles.Lookup(name)
		if err != nil {
			return err
		}
		resolved = append(resolved, role)
	}

	printer := observability.NewPrinter(cmd.OutOrStdout())
	for _, role := range resolved {
		result := ranking.MatchRole(scores, role)
		if matchActionable {
			result.Gaps = ranking.Actionable(result.Gaps)
		}
		result.Gaps = ranking.TopN(result.Gaps, matchTop)
		printer.PrintMatch(result)
	}
	return nil
}
