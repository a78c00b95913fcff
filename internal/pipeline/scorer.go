// Package pipeline orchestrates a skill scoring run: repository signals and
// uploaded documents are collected, scored by the engine and persisted as
// the user's snapshot.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/skillxpress/skillxpress/internal/logger"
	"github.com/skillxpress/skillxpress/internal/skills"
	"github.com/skillxpress/skillxpress/internal/types"
)

// Steps reported through ProgressCallback.
const (
	StepSignals   = "signals"
	StepDocuments = "documents"
	StepScoring   = "scoring"
	StepPersist   = "persist"
)

// SkillsScoredEvent is the routing key published after a snapshot is stored.
const SkillsScoredEvent = "skills.scored"

// ProgressEvent represents a progress update during a scoring run
type ProgressEvent struct {
	Step    string `json:"step"`
	Message string `json:"message"`
	Content any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// Store is the durable state a scoring run reads and writes.
type Store interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*types.Profile, error)
	GetSkillSnapshot(ctx context.Context, userID uuid.UUID) (*types.SkillSnapshot, error)
	ListUploads(ctx context.Context, userID uuid.UUID) ([]types.UploadedDocument, error)
	// SaveSkillSnapshot writes only when the stored snapshot is at least
	// window old and reports whether it wrote.
	SaveSkillSnapshot(ctx context.Context, userID uuid.UUID, skills types.SkillScoreMap, at time.Time, window time.Duration) (bool, error)
}

// SignalSource returns the non-fork repositories of a code-hosting account.
type SignalSource interface {
	CollectSignals(ctx context.Context, username string) ([]types.RepositorySignal, error)
}

// DocumentSource downloads stored uploads.
type DocumentSource interface {
	Download(ctx context.Context, bucket, key string) ([]byte, error)
}

// TextExtractor turns document bytes into text.
type TextExtractor interface {
	Extract(ctx context.Context, path string, data []byte) (string, error)
}

// Publisher emits best-effort domain events.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// Options configures a Scorer.
type Options struct {
	UploadsBucket string
	Window        time.Duration
	OnProgress    ProgressCallback
}

// Scorer is safe for concurrent use.
type Scorer struct {
	engine    *skills.Engine
	store     Store
	signals   SignalSource
	documents DocumentSource
	extractor TextExtractor
	publisher Publisher
	opts      Options
	log       *logger.Logger
	now       func() time.Time
}

// Option configures optional collaborators.
type Option func(*Scorer)

// WithDocuments enables text extraction of stored certificates and resumes.
func WithDocuments(src DocumentSource, ex TextExtractor) Option {
	return func(s *Scorer) { s.documents, s.extractor = src, ex }
}

// WithPublisher enables the skills.scored event.
func WithPublisher(p Publisher) Option {
	return func(s *Scorer) { s.publisher = p }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) { s.now = now }
}

// NewScorer creates a Scorer. store may be nil for one-off Compute calls.
func NewScorer(engine *skills.Engine, store Store, signals SignalSource, opts Options, log *logger.Logger, options ...Option) *Scorer {
	if opts.Window <= 0 {
		opts.Window = 7 * 24 * time.Hour
	}
	if log == nil {
		log = logger.Nop()
	}
	s := &Scorer{
		engine:  engine,
		store:   store,
		signals: signals,
		opts:    opts,
		log:     log.With("component", "scorer"),
		now:     time.Now,
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// Refresh recomputes and persists the snapshot of userID. githubUsername
// overrides the profile's account when non-empty. Inside the recompute
// window it fails with *types.TooSoonError without calling any upstream.
func (s *Scorer) Refresh(ctx context.Context, userID uuid.UUID, githubUsername string) (*types.SkillSnapshot, error) {
	now := s.now()
	log := s.log.With("user_id", userID, "operation", "refresh_skills")

	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if profile == nil {
		return nil, &types.IncompleteProfileError{Message: "profile not found"}
	}
	if githubUsername == "" {
		githubUsername = profile.GitHubUsername
	}

	existing, err := s.store.GetSkillSnapshot(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load skill snapshot: %w", err)
	}
	if existing != nil {
		if next := existing.NextRefreshAt(s.opts.Window); now.Before(next) {
			log.Info("skill refresh locked", "next_refresh_at", next)
			return nil, &types.TooSoonError{Operation: "skill refresh", Remaining: next.Sub(now)}
		}
	}

	uploads, err := s.store.ListUploads(ctx, userID)
	if err != nil {
		return nil, &types.UpstreamUnavailableError{Service: "document store", Message: "failed to list uploads", Cause: err}
	}

	scores, err := s.Compute(ctx, githubUsername, uploads)
	if err != nil {
		log.Warn("skill scoring failed", "error", err)
		return nil, err
	}

	s.progress(StepPersist, "saving snapshot", nil)
	won, err := s.store.SaveSkillSnapshot(ctx, userID, scores, now, s.opts.Window)
	if err != nil {
		return nil, fmt.Errorf("failed to persist skill snapshot: %w", err)
	}
	if !won {
		log.Info("concurrent skill refresh detected")
		return nil, &types.TooSoonError{Operation: "skill refresh", Remaining: s.opts.Window}
	}
	log.Info("skill snapshot persisted", "skills", len(scores))

	snapshot := &types.SkillSnapshot{UserID: userID, Skills: scores, UpdatedAt: now}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, SkillsScoredEvent, map[string]any{
			"user_id": userID.String(),
			"skills":  len(scores),
		}); err != nil {
			log.Warn("failed to publish event", "routing_key", SkillsScoredEvent, "error", err)
		}
	}
	return snapshot, nil
}

// Compute scores githubUsername's repositories and the given uploads
// without persisting anything. An empty username skips repository signals.
// Documents whose text cannot be extracted are skipped entirely.
func (s *Scorer) Compute(ctx context.Context, githubUsername string, uploads []types.UploadedDocument) (types.SkillScoreMap, error) {
	var repos []types.RepositorySignal
	if githubUsername != "" {
		s.progress(StepSignals, "collecting repository signals for "+githubUsername, nil)
		var err error
		repos, err = s.signals.CollectSignals(ctx, githubUsername)
		if err != nil {
			return nil, err
		}
	}

	s.progress(StepDocuments, fmt.Sprintf("reading %d uploads", len(uploads)), nil)
	docs := make([]skills.ScoredDocument, 0, len(uploads))
	for _, u := range uploads {
		doc, ok, err := s.documentText(ctx, u)
		if err != nil {
			return nil, err
		}
		if ok {
			docs = append(docs, doc)
		}
	}

	s.progress(StepScoring, fmt.Sprintf("scoring %d repositories and %d documents", len(repos), len(docs)), nil)
	scores := s.engine.Compute(repos, docs, s.now())
	s.progress(StepScoring, "scored", scores)
	return scores, nil
}

// documentText resolves the text of one upload. It reports false when the
// document must be skipped; only a cancelled context is returned as error.
func (s *Scorer) documentText(ctx context.Context, u types.UploadedDocument) (skills.ScoredDocument, bool, error) {
	doc := skills.ScoredDocument{Type: u.Type}
	if !u.Type.Valid() {
		s.log.Warn("skipping upload with unknown type", "upload_id", u.ID, "type", u.Type)
		return doc, false, nil
	}
	if u.Type == types.DocumentProject || u.FilePath == "" || s.documents == nil || s.extractor == nil {
		doc.Text = u.Description
		return doc, true, nil
	}

	data, err := s.documents.Download(ctx, s.opts.UploadsBucket, u.FilePath)
	if err == nil {
		doc.Text, err = s.extractor.Extract(ctx, u.FilePath, data)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return doc, false, ctxErr
		}
		var ef *types.ExtractionFailedError
		if !errors.As(err, &ef) {
			err = &types.ExtractionFailedError{Path: u.FilePath, Cause: err}
		}
		s.log.Warn("skipping document", "upload_id", u.ID, "error", err)
		return doc, false, nil
	}
	if u.Description != "" {
		doc.Text = doc.Text + "\n" + u.Description
	}
	return doc, true, nil
}

func (s *Scorer) progress(step, message string, content any) {
	if s.opts.OnProgress != nil {
		s.opts.OnProgress(ProgressEvent{Step: step, Message: message, Content: content})
	}
}
