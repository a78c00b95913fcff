// Package types provides type definitions for structured data used throughout the skillxpress service.
package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// SkillScoreMap maps a canonical skill name to a proficiency score.
// Once normalized every value lies in [0, 100].
type SkillScoreMap map[string]float64

// DocumentType enumerates the kinds of user uploads that feed scoring.
type DocumentType string

const (
	DocumentCertificate DocumentType = "certificate"
	DocumentProject     DocumentType = "project"
	DocumentResume      DocumentType = "resume"
)

// Valid reports whether t is one of the known document types.
func (t DocumentType) Valid() bool {
	switch t {
	case DocumentCertificate, DocumentProject, DocumentResume:
		return true
	}
	return false
}

// RepositorySignal is the scoring input derived from one non-fork repository.
type RepositorySignal struct {
	Name      string           `json:"name"`
	Stars     int              `json:"stars"`
	Forks     int              `json:"forks"`
	SizeKB    int              `json:"size_kb"`
	LastPush  time.Time        `json:"last_push"`
	Languages map[string]int64 `json:"languages"`
}

// UploadedDocument is a user upload record as held by the document store.
type UploadedDocument struct {
	ID          uuid.UUID    `json:"id"`
	UserID      uuid.UUID    `json:"user_id"`
	Type        DocumentType `json:"type"`
	Description string       `json:"description,omitempty"`
	FilePath    string       `json:"file_path,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// SkillSnapshot is the persisted result of the most recent scoring run.
type SkillSnapshot struct {
	UserID    uuid.UUID     `json:"user_id"`
	Skills    SkillScoreMap `json:"skills"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NextRefreshAt returns the earliest time another recompute is allowed.
func (s *SkillSnapshot) NextRefreshAt(window time.Duration) time.Time {
	return s.UpdatedAt.Add(window)
}

// Profile holds the per-user settings that scoring and roadmap generation read.
type Profile struct {
	UserID         uuid.UUID `json:"user_id"`
	Name           string    `json:"name"`
	GitHubUsername string    `json:"github_username,omitempty"`
	Interests      []string  `json:"interests"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// RoleRequirement is a single (skill, required score) pair of a role.
type RoleRequirement struct {
	Skill    string  `json:"skill"`
	Required float64 `json:"required"`
}

// Role is a named requirement vector. Requirement order is the
// authoring priority and is used to break ties between equal gaps.
type Role struct {
	Name         string            `json:"name"`
	Requirements []RoleRequirement `json:"requirements"`
}

// GapEntry compares one required skill against the user's current score.
type GapEntry struct {
	Skill    string  `json:"skill"`
	Current  float64 `json:"current"`
	Required float64 `json:"required"`
	Gap      float64 `json:"gap"`
}

// MatchResult is the outcome of comparing a user against one role.
type MatchResult struct {
	Role         string     `json:"role"`
	MatchPercent int        `json:"match_percent"`
	Gaps         []GapEntry `json:"gaps"`
}

// MatchRequest is the body of POST /match.
type MatchRequest struct {
	Skills SkillScoreMap `json:"skills" validate:"required"`
	Roles  []string      `json:"roles" validate:"required,min=1,dive,required"`
}

// GapRequest is the body of POST /match/gaps.
type GapRequest struct {
	Skills         SkillScoreMap `json:"skills" validate:"required"`
	Role           string        `json:"role" validate:"required"`
	ActionableOnly bool          `json:"actionable_only,omitempty"`
	Top            int           `json:"top,omitempty" validate:"gte=0"`
}

// RefreshSkillsRequest is the optional body of POST /users/{id}/skills/refresh.
type RefreshSkillsRequest struct {
	GitHubUsername string `json:"github_username,omitempty" validate:"omitempty,max=39"`
}

// Validate validates the MatchRequest using the validator.
func (r *MatchRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the GapRequest using the validator.
func (r *GapRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the RefreshSkillsRequest using the validator.
func (r *RefreshSkillsRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
