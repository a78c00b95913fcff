package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/skillxpress/skillxpress/internal/db"
	"github.com/skillxpress/skillxpress/internal/llm"
	"github.com/skillxpress/skillxpress/internal/microtest"
	"github.com/skillxpress/skillxpress/internal/openings"
	"github.com/skillxpress/skillxpress/internal/rendering"
	"github.com/skillxpress/skillxpress/internal/roadmap"
	"github.com/skillxpress/skillxpress/internal/server"
	"github.com/skillxpress/skillxpress/internal/server/ratelimit"
	"github.com/skillxpress/skillxpress/internal/skills"
	"github.com/skillxpress/skillxpress/internal/validation"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server exposing skill refresh, role matching, roadmap generation and the openings feed.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Port = servePort
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
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

	roles, err := loadCatalog(cfg)
	if err != nil {
		return err
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
	publisher := newPublisher(cfg, log, &closers)

	scorer := newScorer(cfg, scorerDeps{
		store:     database,
		signals:   newGitHubClient(ctx, cfg, log, &closers),
		documents: objects,
		extractor: newExtractor(ctx, cfg, log, &closers),
		publisher: publisher,
	}, log)

	gemini, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.Roadmap.Model)
	if err != nil {
		return err
	}
	closers.add(func() { _ = gemini.Close() })

	genOpts := []roadmap.Option{
		roadmap.WithDocuments(rendering.NewPDFRenderer("SkillXpress Roadmap"), objects),
	}
	if publisher != nil {
		genOpts = append(genOpts, roadmap.WithPublisher(publisher))
	}
	generator := roadmap.NewGenerator(database, roles, gemini, roadmap.Options{
		Rules: validation.Rules{
			MinLength:        cfg.Roadmap.MinContentLength,
			RequiredMarkers:  cfg.Roadmap.RequiredMarkers,
			ForbiddenPhrases: validation.DefaultForbiddenPhrases,
		},
		Generate: llm.GenerateOptions{
			MaxTokens:   cfg.Roadmap.MaxTokens,
			Temperature: cfg.Roadmap.Temperature,
			Timeout:     cfg.GenerationTimeout(),
		},
		FocusSize:    cfg.Roadmap.FocusSize,
		Bucket:       cfg.Storage.RoadmapsBucket,
		SignedURLTTL: cfg.SignedURLTTL(),
	}, log, genOpts...)

	var microOpts []microtest.Option
	if publisher != nil {
		microOpts = append(microOpts, microtest.WithPublisher(publisher))
	}
	microTests := microtest.NewService(database, log, microOpts...)

	var feed server.OpeningsFeed
	if cfg.Openings.URL != "" {
		feed = openings.NewService(openings.Options{
			URL:      cfg.Openings.URL,
			Limit:    cfg.Openings.Limit,
			Timeout:  cfg.UpstreamTimeout(),
			Keywords: skills.DefaultKeywords(),
		}, log)
	}

	srv, err := server.New(server.Config{
		Port:            cfg.Port,
		UploadsBucket:   cfg.Storage.UploadsBucket,
		RoadmapsBucket:  cfg.Storage.RoadmapsBucket,
		SignedURLTTL:    cfg.SignedURLTTL(),
		RecomputeWindow: cfg.RecomputeWindow(),
		RateLimit:       ratelimit.LoadConfig(os.Getenv),
	}, server.Deps{
		Store:      database,
		Scorer:     scorer,
		Roadmaps:   generator,
		Catalog:    roles,
		Signer:     objects,
		Openings:   feed,
		MicroTests: microTests,
		Logger:     log,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Start()
}
