package main

import (
	"context"
	"fmt"
	"time"

	"github.com/skillxpress/skillxpress/internal/catalog"
	"github.com/skillxpress/skillxpress/internal/config"
	"github.com/skillxpress/skillxpress/internal/events"
	"github.com/skillxpress/skillxpress/internal/github"
	"github.com/skillxpress/skillxpress/internal/ingestion"
	"github.com/skillxpress/skillxpress/internal/logger"
	"github.com/skillxpress/skillxpress/internal/pipeline"
	"github.com/skillxpress/skillxpress/internal/skills"
	"github.com/skillxpress/skillxpress/internal/storage"
)

// cleanup collects close functions and runs them in reverse order.
type cleanup []func()

func (c *cleanup) add(f func()) { *c = append(*c, f) }

func (c cleanup) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.CatalogPath != "" {
		return catalog.LoadFile(cfg.CatalogPath)
	}
	return catalog.Default()
}

// newGitHubClient builds the code-hosting client, with the Redis language
// cache when configured. A cache that cannot be reached is skipped.
func newGitHubClient(ctx context.Context, cfg *config.Config, log *logger.Logger, closers *cleanup) *github.Client {
	opts := github.Options{
		BaseURL:           cfg.GitHub.BaseURL,
		Token:             cfg.GitHub.Token,
		Timeout:           cfg.UpstreamTimeout(),
		RequestsPerSecond: cfg.GitHub.RequestsPerSecond,
		Concurrency:       cfg.GitHub.Concurrency,
		Logger:            log,
	}
	if cfg.RedisURL != "" {
		ttl := time.Duration(cfg.GitHub.CacheTTLMinutes) * time.Minute
		cache, err := github.NewRedisCache(ctx, cfg.RedisURL, ttl, log)
		if err != nil {
			log.Warn("language cache disabled", "error", err)
		} else {
			opts.Cache = cache
			closers.add(func() { _ = cache.Close() })
		}
	}
	return github.NewClient(opts)
}

// newExtractor builds the document text extractor. OCR is attached only
// when enabled and the Vision client can be created.
func newExtractor(ctx context.Context, cfg *config.Config, log *logger.Logger, closers *cleanup) *ingestion.Extractor {
	var ocr ingestion.OCR
	if cfg.OCR.Enabled {
		v, err := ingestion.NewVisionOCR(ctx, cfg.OCR.CredentialsFile)
		if err != nil {
			log.Warn("ocr disabled", "error", err)
		} else {
			ocr = v
			closers.add(func() { _ = v.Close() })
		}
	}
	return ingestion.NewExtractor(ocr, cfg.ExtractionTimeout(), log)
}

func newStorage(ctx context.Context, cfg *config.Config) (*storage.Client, error) {
	client, err := storage.New(ctx, cfg.Storage, cfg.UpstreamTimeout())
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return client, nil
}

// newPublisher connects to the broker when AMQP is configured. It returns
// nil when events are disabled or the broker is unreachable.
func newPublisher(cfg *config.Config, log *logger.Logger, closers *cleanup) *events.Publisher {
	if cfg.AMQP.URL == "" {
		return nil
	}
	p, err := events.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, log)
	if err != nil {
		log.Warn("event publishing disabled", "error", err)
		return nil
	}
	closers.add(func() { _ = p.Close() })
	return p
}

type scorerDeps struct {
	store     pipeline.Store
	signals   pipeline.SignalSource
	documents pipeline.DocumentSource
	extractor pipeline.TextExtractor
	publisher *events.Publisher
	progress  pipeline.ProgressCallback
}

func newScorer(cfg *config.Config, d scorerDeps, log *logger.Logger) *pipeline.Scorer {
	engine := skills.NewEngine(cfg.Scoring, skills.DefaultKeywords())
	var opts []pipeline.Option
	if d.documents != nil && d.extractor != nil {
		opts = append(opts, pipeline.WithDocuments(d.documents, d.extractor))
	}
	if d.publisher != nil {
		opts = append(opts, pipeline.WithPublisher(d.publisher))
	}
	return pipeline.NewScorer(engine, d.store, d.signals, pipeline.Options{
		UploadsBucket: cfg.Storage.UploadsBucket,
		Window:        cfg.RecomputeWindow(),
		OnProgress:    d.progress,
	}, log, opts...)
}
