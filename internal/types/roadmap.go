package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// RoadmapMonth is one generated month. It is immutable once written.
type RoadmapMonth struct {
	MonthIndex  int       `json:"month_index"`
	Phase       string    `json:"phase"`
	Role        string    `json:"role"`
	Focus       []string  `json:"focus"`
	Project     string    `json:"project,omitempty"`
	Content     string    `json:"content"`
	PDFRef      string    `json:"pdf_ref,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// RoadmapState is the per-user roadmap progress record.
// Version increments on every successful advance and guards concurrent writers.
type RoadmapState struct {
	UserID            uuid.UUID            `json:"user_id"`
	CurrentMonthIndex int                  `json:"current_month_index"`
	LastGeneratedAt   *time.Time           `json:"last_generated_at,omitempty"`
	Months            map[int]RoadmapMonth `json:"months"`
	Version           int64                `json:"version"`
}

// NewRoadmapState returns the initial state for a user who never generated a month.
func NewRoadmapState(userID uuid.UUID) *RoadmapState {
	return &RoadmapState{
		UserID:            userID,
		CurrentMonthIndex: 1,
		Months:            map[int]RoadmapMonth{},
	}
}

// GenerateRoadmapRequest is the body of POST /roadmap/generate.
type GenerateRoadmapRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

// Validate validates the GenerateRoadmapRequest using the validator.
func (r *GenerateRoadmapRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// GenerateRoadmapResponse is returned after a month was generated,
// or with Done set once every phase has been completed.
type GenerateRoadmapResponse struct {
	Done    bool     `json:"done,omitempty"`
	Month   int      `json:"month,omitempty"`
	Role    string   `json:"role,omitempty"`
	Phase   string   `json:"phase,omitempty"`
	Focus   []string `json:"focus,omitempty"`
	Project string   `json:"project,omitempty"`
	Content string   `json:"content,omitempty"`
	PDFURL  string   `json:"pdf_url,omitempty"`
}
