package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// MicroTestSection groups micro-test questions by the ability they measure.
type MicroTestSection string

const (
	SectionAttention MicroTestSection = "attention"
	SectionMemory    MicroTestSection = "memory"
	SectionLogic     MicroTestSection = "logic"
	SectionDecision  MicroTestSection = "decision"
	SectionBehaviour MicroTestSection = "behaviour"
)

// MicroTestSections lists every section in report order.
var MicroTestSections = []MicroTestSection{
	SectionAttention, SectionMemory, SectionLogic, SectionDecision, SectionBehaviour,
}

// Valid reports whether s is a known section.
func (s MicroTestSection) Valid() bool {
	for _, known := range MicroTestSections {
		if s == known {
			return true
		}
	}
	return false
}

// MicroTestQuestion is one multiple-choice question. The correct option is
// never serialized to clients.
type MicroTestQuestion struct {
	ID            string           `json:"id"`
	Section       MicroTestSection `json:"section"`
	Prompt        string           `json:"prompt"`
	Options       []string         `json:"options"`
	CorrectOption string           `json:"-"`
}

// MicroTestResult is one scored submission. Scores counts correct answers
// per section; BrainEfficiency is the rounded percentage of all questions
// answered correctly.
type MicroTestResult struct {
	ID               uuid.UUID                `json:"id"`
	UserID           uuid.UUID                `json:"user_id"`
	Scores           map[MicroTestSection]int `json:"scores"`
	BrainEfficiency  int                      `json:"brain_efficiency"`
	TotalQuestions   int                      `json:"total_questions"`
	CorrectAnswers   int                      `json:"correct_answers"`
	TimeTakenSeconds int                      `json:"time_taken_seconds"`
	CreatedAt        time.Time                `json:"created_at"`
}

// MicroTestSubmission is the body of POST /users/{id}/micro-tests. Answers
// maps question ID to the chosen option.
type MicroTestSubmission struct {
	Answers          map[string]string `json:"answers" validate:"required"`
	TimeTakenSeconds int               `json:"time_taken_seconds" validate:"gte=0,lte=86400"`
}

// Validate validates the MicroTestSubmission using the validator.
func (r *MicroTestSubmission) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
