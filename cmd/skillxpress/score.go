package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/skillxpress/skillxpress/internal/db"
	"github.com/skillxpress/skillxpress/internal/observability"
	"github.com/skillxpress/skillxpress/internal/pipeline"
	"github.com/skillxpress/skillxpress/internal/types"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Compute a skill score map",
	Long: "Scores the repositories of a code-hosting account and, with --user, that user's uploaded documents. " +
		"Nothing is persisted unless --save is given.",
	RunE: runScore,
}

var (
	scoreGitHub string
	scoreUser   string
	scoreSave   bool
	scoreJSON   bool
)

func init() {
	scoreCmd.Flags().StringVar(&scoreGitHub, "github", "", "Code-hosting username to score")
	scoreCmd.Flags().StringVar(&scoreUser, "user", "", "User id whose uploads are scored (requires DATABASE_URL)")
	scoreCmd.Flags().BoolVar(&scoreSave, "save", false, "Persist the snapshot for --user, honoring the recompute window")
	scoreCmd.Flags().BoolVar(&scoreJSON, "json", false, "Print the score map as JSON")
	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, _ []string) error {
	if scoreGitHub == "" && scoreUser == "" {
		return fmt.Errorf("either --github or --user is required")
	}
	if scoreSave && scoreUser == "" {
		return fmt.Errorf("--save requires --user")
	}
	var userID uuid.UUID
	if scoreUser != "" {
		id, err := uuid.Parse(scoreUser)
		if err != nil {
			return fmt.Errorf("invalid --user: %w", err)
		}
		userID = id
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	var closers cleanup
	defer closers.run()

	printer := observability.NewPrinter(cmd.OutOrStdout())
	deps := scorerDeps{
		signals: newGitHubClient(ctx, cfg, log, &closers),
	}
	if !scoreJSON {
		deps.progress = func(e pipeline.ProgressEvent) { printer.PrintProgress(e.Step, e.Message) }
	}

	var uploads []types.UploadedDocument
	if userID != uuid.Nil {
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required with --user")
		}
		database, err := db.Connect(ctx, cfg.DatabaseURL, cfg.DatabaseTimeout())
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		closers.add(database.Close)
		objects, err := newStorage(ctx, cfg)
		if err != nil {
			return err
		}
		deps.store = database
		deps.documents = objects
		deps.extractor = newExtractor(ctx, cfg, log, &closers)
		if scoreSave {
			deps.publisher = newPublisher(cfg, log, &closers)
		} else if uploads, err = database.ListUploads(ctx, userID); err != nil {
			return fmt.Errorf("failed to list uploads: %w", err)
		}
	}
	scorer := newScorer(cfg, deps, log)

	var scores types.SkillScoreMap
	if scoreSave {
		snapshot, err := scorer.Refresh(ctx, userID, scoreGitHub)
		if err != nil {
			return err
		}
		scores = snapshot.Skills
	} else {
		scores, err = scorer.Compute(ctx, scoreGitHub, uploads)
		if err != nil {
			return err
		}
	}

	if scoreJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(scores)
	}
	printer.PrintSkills("SKILL SCORES", scores)
	return nil
}
