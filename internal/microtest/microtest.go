// Package microtest scores short aptitude tests. Each correct answer credits
// its question's section; brain efficiency is the share of the whole
// question bank answered correctly.
package microtest

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/skillxpress/skillxpress/internal/logger"
	"github.com/skillxpress/skillxpress/internal/types"
)

// Store holds the question bank and the submitted results.
type Store interface {
	ListMicroTestQuestions(ctx context.Context) ([]types.MicroTestQuestion, error)
	SaveMicroTestResult(ctx context.Context, r *types.MicroTestResult) error
	LatestMicroTestResult(ctx context.Context, userID uuid.UUID) (*types.MicroTestResult, error)
}

// Publisher emits best-effort domain events.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// Score grades answers against questions. Answers to unknown question IDs
// are ignored and unanswered questions count as wrong. An empty bank scores 0.
func Score(questions []types.MicroTestQuestion, answers map[string]string) types.MicroTestResult {
	r := types.MicroTestResult{
		Scores:         make(map[types.MicroTestSection]int, len(types.MicroTestSections)),
		TotalQuestions: len(questions),
	}
	for _, section := range types.MicroTestSections {
		r.Scores[section] = 0
	}
	for _, q := range questions {
		answer, ok := answers[q.ID]
		if !ok || answer != q.CorrectOption {
			continue
		}
		r.CorrectAnswers++
		if q.Section.Valid() {
			r.Scores[q.Section]++
		}
	}
	if r.TotalQuestions > 0 {
		r.BrainEfficiency = int(math.Round(100 * float64(r.CorrectAnswers) / float64(r.TotalQuestions)))
	}
	return r
}

// Service is safe for concurrent use.
type Service struct {
	store     Store
	publisher Publisher
	log       *logger.Logger
	now       func() time.Time
}

// Option configures optional collaborators.
type Option func(*Service)

// WithPublisher enables event publishing.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service.
func NewService(store Store, log *logger.Logger, options ...Option) *Service {
	if log == nil {
		log = logger.Nop()
	}
	s := &Service{
		store: store,
		log:   log.With("component", "microtest"),
		now:   time.Now,
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// Questions returns the question bank.
func (s *Service) Questions(ctx context.Context) ([]types.MicroTestQuestion, error) {
	return s.store.ListMicroTestQuestions(ctx)
}

// Submit grades sub against the current question bank and stores the result.
func (s *Service) Submit(ctx context.Context, userID uuid.UUID, sub types.MicroTestSubmission) (*types.MicroTestResult, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	questions, err := s.store.ListMicroTestQuestions(ctx)
	if err != nil {
		return nil, err
	}

	result := Score(questions, sub.Answers)
	result.ID = uuid.New()
	result.UserID = userID
	result.TimeTakenSeconds = sub.TimeTakenSeconds
	result.CreatedAt = s.now().UTC()
	if err := s.store.SaveMicroTestResult(ctx, &result); err != nil {
		return nil, err
	}

	log := s.log.With("user_id", userID)
	log.Info("micro test scored", "brain_efficiency", result.BrainEfficiency, "correct", result.CorrectAnswers, "total", result.TotalQuestions)
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, "microtest.scored", map[string]any{
			"user_id":          userID,
			"brain_efficiency": result.BrainEfficiency,
			"scores":           result.Scores,
		}); err != nil {
			log.Warn("failed to publish event", "routing_key", "microtest.scored", "error", err)
		}
	}
	return &result, nil
}

// Latest returns the user's most recent result, or nil when none exists.
func (s *Service) Latest(ctx context.Context, userID uuid.UUID) (*types.MicroTestResult, error) {
	return s.store.LatestMicroTestResult(ctx, userID)
}
