// Package roadmap generates month-by-month learning roadmaps. Each request
// resolves the user's roles once, checks the monthly lock, asks the text
// generator for the month plan (retrying once on weak output) and commits
// the month with a compare-and-swap on the persisted state.
package roadmap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/skillxpress/skillxpress/internal/llm"
	"github.com/skillxpress/skillxpress/internal/logger"
	"github.com/skillxpress/skillxpress/internal/ranking"
	"github.com/skillxpress/skillxpress/internal/types"
	"github.com/skillxpress/skillxpress/internal/validation"
)

// Store is the durable state the generator reads and conditionally writes.
type Store interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*types.Profile, error)
	GetSkillSnapshot(ctx context.Context, userID uuid.UUID) (*types.SkillSnapshot, error)
	GetRoadmapState(ctx context.Context, userID uuid.UUID) (*types.RoadmapState, error)
	// CommitRoadmapMonth stores month and advances the month index only if the
	// persisted version still equals expectedVersion. It reports whether it won.
	CommitRoadmapMonth(ctx context.Context, userID uuid.UUID, expectedVersion int64, month types.RoadmapMonth, at time.Time) (bool, error)
	AttachRoadmapPDF(ctx context.Context, userID uuid.UUID, monthIndex int, ref string) error
}

// RoleResolver turns profile interests into a single requirement vector.
type RoleResolver interface {
	Resolve(names []string) (types.Role, error)
}

// Renderer produces a printable document for a month.
type Renderer interface {
	RenderMonth(month types.RoadmapMonth) ([]byte, error)
}

// ObjectStore uploads rendered documents and issues signed URLs.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, key string, data []byte, contentType string) error
	SignedURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

// Publisher emits best-effort domain events.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// Options tunes generation and validation.
type Options struct {
	Rules        validation.Rules
	Generate     llm.GenerateOptions
	FocusSize    int
	Bucket       string
	SignedURLTTL time.Duration
}

// Generator is safe for concurrent use; all per-user state lives in Store.
type Generator struct {
	store     Store
	roles     RoleResolver
	llm       llm.Client
	renderer  Renderer
	objects   ObjectStore
	publisher Publisher
	opts      Options
	log       *logger.Logger
	now       func() time.Time
}

// Option configures optional collaborators.
type Option func(*Generator)

// WithDocuments enables PDF rendering and upload of generated months.
func WithDocuments(r Renderer, o ObjectStore) Option {
	return func(g *Generator) { g.renderer, g.objects = r, o }
}

// WithPublisher enables event publishing.
func WithPublisher(p Publisher) Option {
	return func(g *Generator) { g.publisher = p }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// NewGenerator creates a Generator.
func NewGenerator(store Store, roles RoleResolver, client llm.Client, opts Options, log *logger.Logger, options ...Option) *Generator {
	if opts.FocusSize <= 0 {
		opts.FocusSize = ranking.DefaultFocusSize
	}
	if log == nil {
		log = logger.Nop()
	}
	g := &Generator{
		store: store,
		roles: roles,
		llm:   client,
		opts:  opts,
		log:   log.With("component", "roadmap"),
		now:   time.Now,
	}
	for _, o := range options {
		o(g)
	}
	return g
}

// Generate produces and persists the next month for userID. A failure at
// any step leaves the persisted state untouched.
func (g *Generator) Generate(ctx context.Context, userID uuid.UUID) (*types.GenerateRoadmapResponse, error) {
	now := g.now()
	log := g.log.With("user_id", userID, "operation", "generate_roadmap")

	profile, err := g.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if profile == nil || len(profile.Interests) == 0 {
		return nil, &types.IncompleteProfileError{Message: "no target roles selected"}
	}
	// Resolved once; later profile edits do not affect this request.
	role, err := g.roles.Resolve(profile.Interests)
	if err != nil {
		return nil, err
	}

	snapshot, err := g.store.GetSkillSnapshot(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load skill snapshot: %w", err)
	}
	if snapshot == nil {
		return nil, &types.IncompleteProfileError{Message: "skills have not been computed"}
	}

	state, err := g.store.GetRoadmapState(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roadmap state: %w", err)
	}
	if state == nil {
		state = types.NewRoadmapState(userID)
	}

	phase, ok := PhaseFor(state.CurrentMonthIndex)
	if !ok {
		return &types.GenerateRoadmapResponse{Done: true}, nil
	}
	if err := CheckMonthlyLock(state, now); err != nil {
		log.Info("roadmap locked", "month", state.CurrentMonthIndex)
		return nil, err
	}

	match := ranking.MatchRole(snapshot.Skills, role)
	focusGaps := ranking.TopN(ranking.Actionable(match.Gaps), g.opts.FocusSize)
	prompt, err := BuildPrompt(PromptInput{
		Role:   role.Name,
		Month:  state.CurrentMonthIndex,
		Phase:  phase,
		Gaps:   focusGaps,
		Skills: snapshot.Skills,
	})
	if err != nil {
		return nil, err
	}

	log.Debug("generating roadmap month", "month", state.CurrentMonthIndex, "phase", phase.Name)
	content, err := g.generateValidated(ctx, prompt, log)
	if err != nil {
		return nil, err
	}

	month := types.RoadmapMonth{
		MonthIndex:  state.CurrentMonthIndex,
		Phase:       phase.Name,
		Role:        role.Name,
		Focus:       ranking.FocusSkills(match, g.opts.FocusSize),
		Project:     phase.Project,
		Content:     content,
		GeneratedAt: now,
	}

	won, err := g.store.CommitRoadmapMonth(ctx, userID, state.Version, month, now)
	if err != nil {
		return nil, fmt.Errorf("failed to persist roadmap month: %w", err)
	}
	if !won {
		log.Info("concurrent roadmap advance detected", "month", month.MonthIndex)
		return nil, tooSoon(now)
	}
	log.Info("roadmap month persisted", "month", month.MonthIndex, "phase", month.Phase)

	resp := &types.GenerateRoadmapResponse{
		Month:   month.MonthIndex,
		Role:    month.Role,
		Phase:   month.Phase,
		Focus:   month.Focus,
		Project: month.Project,
		Content: month.Content,
	}
	resp.PDFURL = g.attachDocument(ctx, userID, month, log)
	g.publish(ctx, "roadmap.generated", map[string]any{
		"user_id": userID.String(),
		"month":   month.MonthIndex,
		"phase":   month.Phase,
		"role":    month.Role,
	}, log)
	return resp, nil
}

// generateValidated calls the generator and retries once when the content
// is weak. Provider errors are returned immediately without a retry.
func (g *Generator) generateValidated(ctx context.Context, prompt string, log *logger.Logger) (string, error) {
	content, err := g.llm.Generate(ctx, prompt, g.opts.Generate)
	if err != nil {
		return "", err
	}
	first := validation.Validate(content, g.opts.Rules)
	if first == nil {
		return content, nil
	}
	log.Warn("weak generation, retrying once", "reason", first.Error())

	retryPrompt, err := RetryPrompt(prompt)
	if err != nil {
		return "", err
	}
	content, err = g.llm.Generate(ctx, retryPrompt, g.opts.Generate)
	if err != nil {
		return "", err
	}
	if second := validation.Validate(content, g.opts.Rules); second != nil {
		var vErr *validation.Error
		reason := second.Error()
		if errors.As(second, &vErr) && len(vErr.Violations) > 0 {
			reason = vErr.Violations[0].Details
		}
		return "", &types.WeakGenerationError{Reason: reason}
	}
	return content, nil
}

// attachDocument renders and uploads the month PDF after the commit. Any
// failure is logged and the month stays persisted without a reference.
func (g *Generator) attachDocument(ctx context.Context, userID uuid.UUID, month types.RoadmapMonth, log *logger.Logger) string {
	if g.renderer == nil || g.objects == nil {
		return ""
	}
	data, err := g.renderer.RenderMonth(month)
	if err != nil {
		log.Warn("failed to render roadmap pdf", "month", month.MonthIndex, "error", err)
		return ""
	}
	key := PDFKey(userID, month.MonthIndex)
	if err := g.objects.Upload(ctx, g.opts.Bucket, key, data, "application/pdf"); err != nil {
		log.Warn("failed to upload roadmap pdf", "month", month.MonthIndex, "error", err)
		return ""
	}
	if err := g.store.AttachRoadmapPDF(ctx, userID, month.MonthIndex, key); err != nil {
		log.Warn("failed to record roadmap pdf", "month", month.MonthIndex, "error", err)
		return ""
	}
	url, err := g.objects.SignedURL(ctx, g.opts.Bucket, key, g.opts.SignedURLTTL)
	if err != nil {
		log.Warn("failed to sign roadmap pdf url", "month", month.MonthIndex, "error", err)
		return ""
	}
	return url
}

func (g *Generator) publish(ctx context.Context, routingKey string, payload any, log *logger.Logger) {
	if g.publisher == nil {
		return
	}
	if err := g.publisher.Publish(ctx, routingKey, payload); err != nil {
		log.Warn("failed to publish event", "routing_key", routingKey, "error", err)
	}
}

// PDFKey is the object key of a month's rendered document.
func PDFKey(userID uuid.UUID, month int) string {
	return fmt.Sprintf("%s/roadmap-month-%d.pdf", userID, month)
}
