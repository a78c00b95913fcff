package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/skillxpress/skillxpress/internal/openings"
	"github.com/skillxpress/skillxpress/internal/ranking"
	"github.com/skillxpress/skillxpress/internal/skills"
	"github.com/skillxpress/skillxpress/internal/types"
)

const maxBodyBytes = 1 << 20

// SkillsResponse is returned by the snapshot routes.
type SkillsResponse struct {
	UserID        uuid.UUID           `json:"user_id"`
	Skills        types.SkillScoreMap `json:"skills"`
	UpdatedAt     time.Time           `json:"updated_at"`
	NextRefreshAt time.Time           `json:"next_refresh_at"`
}

// MatchResponse maps each requested role to its match percentage.
type MatchResponse struct {
	Results map[string]int `json:"results"`
}

// GapsResponse is the gap table of one role.
type GapsResponse struct {
	Role         string           `json:"role"`
	MatchPercent int              `json:"match_percent"`
	Gaps         []types.GapEntry `json:"gaps"`
}

// RoadmapResponse is the roadmap state plus signed links to rendered months.
type RoadmapResponse struct {
	*types.RoadmapState
	PDFURLs map[int]string `json:"pdf_urls,omitempty"`
}

// UploadURLResponse carries a short-lived download link.
type UploadURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// OpeningsResponse lists annotated job openings.
type OpeningsResponse struct {
	Count    int                `json:"count"`
	Openings []openings.Opening `json:"openings"`
}

// handleHealth reports whether the durable store is reachable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.deps.Store.Ping(ctx); err != nil {
		s.log.Warn("health check failed", "error", err)
		s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListRoles(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string][]string{"roles": s.deps.Catalog.Names()})
}

func (s *Server) handleRefreshSkills(w http.ResponseWriter, r *http.Request) {
	const op = "refresh_skills"
	userID, err := pathUUID(r, "id")
	if err != nil {
		s.writeError(w, err, op, r.PathValue("id"))
		return
	}

	var req types.RefreshSkillsRequest
	if err := decodeJSON(r, &req, true); err != nil {
		s.writeError(w, err, op, userID.String())
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, err, op, userID.String())
		return
	}

	snapshot, err := s.deps.Scorer.Refresh(r.Context(), userID, req.GitHubUsername)
	if err != nil {
		s.writeError(w, err, op, userID.String())
		return
	}
	s.jsonResponse(w, http.StatusOK, s.skillsResponse(snapshot))
}

func (s *Server) handleGetSkills(w http.ResponseWriter, r *http.Request) {
	const op = "get_skills"
	userID, err := pathUUID(r, "id")
	if err != nil {
		s.writeError(w, err, op, r.PathValue("id"))
		return
	}
	snapshot, err := s.deps.Store.GetSkillSnapshot(r.Context(), userID)
	if err != nil {
		s.writeError(w, err, op, userID.String())
		return
	}
	if snapshot == nil {
		s.errorResponse(w, http.StatusNotFound, "skills have not been computed")
		return
	}
	s.jsonResponse(w, http.StatusOK, s.skillsResponse(snapshot))
}

func (s *Server) skillsResponse(snap *types.SkillSnapshot) SkillsResponse {
	return SkillsResponse{
		UserID:        snap.UserID,
		Skills:        snap.Skills,
		UpdatedAt:     snap.UpdatedAt,
		NextRefreshAt: snap.NextRefreshAt(s.cfg.RecomputeWindow),
	}
}

// handleMatch resolves every role before computing anything, so one
// unknown role rejects the whole request.
func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	const op = "match"
	var req types.MatchRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.writeError(w, err, op, "")
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, err, op, "")
		return
	}

	roles := make([]types.Role, 0, len(req.Roles))
	for _, name := range req.Roles {
		role, err := s.deps.Catalog.Lookup(name)
		if err != nil {
			s.writeError(w, err, op, "")
			return
		}
		roles = append(roles, role)
	}

	userSkills := skills.Normalize(req.Skills)
	resp := MatchResponse{Results: make(map[string]int, len(roles))}
	for _, role := range roles {
		resp.Results[role.Name] = ranking.MatchPercent(userSkills, role)
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleGaps(w http.ResponseWriter, r *http.Request) {
	const op = "match_gaps"
	var req types.GapRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.writeError(w, err, op, "")
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, err, op, "")
		return
	}
	role, err := s.deps.Catalog.Lookup(req.Role)
	if err != nil {
		s.writeError(w, err, op, "")
		return
	}

	result := ranking.MatchRole(skills.Normalize(req.Skills), role)
	gaps := result.Gaps
	if req.ActionableOnly {
		gaps = ranking.Actionable(gaps)
	}
	if req.Top > 0 {
		gaps = ranking.TopN(gaps, req.Top)
	}
	if gaps == nil {
		gaps = []types.GapEntry{}
	}
	s.jsonResponse(w, http.StatusOK, GapsResponse{
		Role:         result.Role,
		MatchPercent: result.MatchPercent,
		Gaps:         gaps,
	})
}

func (s *Server) handleGenerateRoadmap(w http.ResponseWriter, r *http.Request) {
	const op = "generate_roadmap"
	var req types.GenerateRoadmapRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.writeError(w, err, op, "")
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, err, op, req.UserID)
		return
	}
	userID := uuid.MustParse(req.UserID)

	resp, err := s.deps.Roadmaps.Generate(r.Context(), userID)
	if err != nil {
		s.writeError(w, err, op, req.UserID)
		return
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleGetRoadmap(w http.ResponseWriter, r *http.Request) {
	const op = "get_roadmap"
	userID, err := pathUUID(r, "id")
	if err != nil {
		s.writeError(w, err, op, r.PathValue("id"))
		return
	}
	state, err := s.deps.Store.GetRoadmapState(r.Context(), userID)
	if err != nil {
		s.writeError(w, err, op, userID.String())
		return
	}
	if state == nil {
		state = types.NewRoadmapState(userID)
	}

	resp := RoadmapResponse{RoadmapState: state}
	if s.deps.Signer != nil {
		for idx, month := range state.Months {
			if month.PDFRef == "" {
				continue
			}
			u, err := s.deps.Signer.SignedURL(r.Context(), s.cfg.RoadmapsBucket, month.PDFRef, s.cfg.SignedURLTTL)
			if err != nil {
				s.log.Warn("failed to sign roadmap pdf", "user_id", userID, "month", idx, "error", err)
				continue
			}
			if resp.PDFURLs == nil {
				resp.PDFURLs = map[int]string{}
			}
			resp.PDFURLs[idx] = u
		}
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleUploadURL(w http.ResponseWriter, r *http.Request) {
	const op = "upload_url"
	userID, err := pathUUID(r, "id")
	if err != nil {
		s.writeError(w, err, op, r.PathValue("id"))
		return
	}
	uploadID, err := pathUUID(r, "upload_id")
	if err != nil {
		s.writeError(w, err, op, userID.String())
		return
	}
	if s.deps.Signer == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "document store is not configured")
		return
	}

	upload, err := s.deps.Store.GetUpload(r.Context(), userID, uploadID)
	if err != nil {
		s.writeError(w, err, op, userID.String())
		return
	}
	if upload == nil || upload.FilePath == "" {
		s.errorResponse(w, http.StatusNotFound, "upload not found")
		return
	}

	expires := time.Now().Add(s.cfg.SignedURLTTL)
	u, err := s.deps.Signer.SignedURL(r.Context(), s.cfg.UploadsBucket, upload.FilePath, s.cfg.SignedURLTTL)
	if err != nil {
		s.writeError(w, err, op, userID.String())
		return
	}
	s.jsonResponse(w, http.StatusOK, UploadURLResponse{URL: u, ExpiresAt: expires.UTC()})
}

// handleOpenings lists openings; with ?user_id= each listing is annotated
// with the skills of that user's snapshot.
func (s *Server) handleOpenings(w http.ResponseWriter, r *http.Request) {
	const op = "openings"
	if s.deps.Openings == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "openings feed is not configured")
		return
	}

	var known types.SkillScoreMap
	rawID := r.URL.Query().Get("user_id")
	if rawID != "" {
		userID, err := uuid.Parse(rawID)
		if err != nil {
			s.writeError(w, &types.ValidationError{Field: "user_id", Message: "must be a UUID"}, op, rawID)
			return
		}
		snapshot, err := s.deps.Store.GetSkillSnapshot(r.Context(), userID)
		if err != nil {
			s.writeError(w, err, op, rawID)
			return
		}
		if snapshot != nil {
			known = snapshot.Skills
		}
	}

	list, err := s.deps.Openings.List(r.Context(), known)
	if err != nil {
		s.writeError(w, err, op, rawID)
		return
	}
	if list == nil {
		list = []openings.Opening{}
	}
	s.jsonResponse(w, http.StatusOK, OpeningsResponse{Count: len(list), Openings: list})
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, &types.ValidationError{Field: name, Message: "must be a UUID"}
	}
	return id, nil
}

// decodeJSON reads a bounded JSON body into v. With optional set an empty
// body leaves v untouched.
func decodeJSON(r *http.Request, v any, optional bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return &types.ValidationError{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	return nil
}
