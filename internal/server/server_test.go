package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillxpress/skillxpress/internal/catalog"
	"github.com/skillxpress/skillxpress/internal/openings"
	"github.com/skillxpress/skillxpress/internal/server/ratelimit"
	"github.com/skillxpress/skillxpress/internal/types"
)

type fakeStore struct {
	pingErr   error
	snapshots map[uuid.UUID]*types.SkillSnapshot
	roadmaps  map[uuid.UUID]*types.RoadmapState
	uploads   map[uuid.UUID]*types.UploadedDocument
	err       error
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) GetSkillSnapshot(_ context.Context, id uuid.UUID) (*types.SkillSnapshot, error) {
	return f.snapshots[id], f.err
}

func (f *fakeStore) GetRoadmapState(_ context.Context, id uuid.UUID) (*types.RoadmapState, error) {
	return f.roadmaps[id], f.err
}

func (f *fakeStore) GetUpload(_ context.Context, userID, uploadID uuid.UUID) (*types.UploadedDocument, error) {
	u := f.uploads[uploadID]
	if u == nil || u.UserID != userID {
		return nil, f.err
	}
	return u, f.err
}

type fakeScorer struct {
	mu       sync.Mutex
	calls    int
	username string
	snapshot *types.SkillSnapshot
	err      error
}

func (f *fakeScorer) Refresh(_ context.Context, userID uuid.UUID, githubUsername string) (*types.SkillSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.username = githubUsername
	if f.err != nil {
		return nil, f.err
	}
	snap := *f.snapshot
	snap.UserID = userID
	return &snap, nil
}

type fakeRoadmaps struct {
	calls int
	resp  *types.GenerateRoadmapResponse
	err   error
}

func (f *fakeRoadmaps) Generate(context.Context, uuid.UUID) (*types.GenerateRoadmapResponse, error) {
	f.calls++
	return f.resp, f.err
}

type fakeSigner struct {
	err  error
	keys []string
}

func (f *fakeSigner) SignedURL(_ context.Context, bucket, key string, ttl time.Duration) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.keys = append(f.keys, bucket+"/"+key)
	return "https://files.test/" + bucket + "/" + key + "?ttl=" + ttl.String(), nil
}

type fakeOpenings struct {
	known types.SkillScoreMap
	list  []openings.Opening
	err   error
}

func (f *fakeOpenings) List(_ context.Context, known types.SkillScoreMap) ([]openings.Opening, error) {
	f.known = known
	return f.list, f.err
}

type testServer struct {
	*Server
	store    *fakeStore
	scorer   *fakeScorer
	roadmaps *fakeRoadmaps
	signer   *fakeSigner
	openings *fakeOpenings
	micro    *fakeMicroTests
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]types.Role{
		{Name: "Backend Developer", Requirements: []types.RoleRequirement{
			{Skill: "Python", Required: 80},
			{Skill: "SQL", Required: 60},
			{Skill: "Docker", Required: 50},
		}},
		{Name: "Frontend Developer", Requirements: []types.RoleRequirement{
			{Skill: "React", Required: 70},
		}},
	})
	require.NoError(t, err)
	return c
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		store: &fakeStore{
			snapshots: map[uuid.UUID]*types.SkillSnapshot{},
			roadmaps:  map[uuid.UUID]*types.RoadmapState{},
			uploads:   map[uuid.UUID]*types.UploadedDocument{},
		},
		scorer:   &fakeScorer{snapshot: &types.SkillSnapshot{Skills: types.SkillScoreMap{"Go": 40}}},
		roadmaps: &fakeRoadmaps{},
		signer:   &fakeSigner{},
		openings: &fakeOpenings{},
		micro:    &fakeMicroTests{results: map[uuid.UUID]*types.MicroTestResult{}},
	}
	s, err := New(Config{
		UploadsBucket:   "uploads",
		RoadmapsBucket:  "roadmaps",
		SignedURLTTL:    5 * time.Minute,
		RecomputeWindow: 7 * 24 * time.Hour,
		RateLimit:       &ratelimit.Config{Enabled: false},
	}, Deps{
		Store:      ts.store,
		Scorer:     ts.scorer,
		Roadmaps:   ts.roadmaps,
		Catalog:    testCatalog(t),
		Signer:     ts.signer,
		Openings:   ts.openings,
		MicroTests: ts.micro,
	})
	require.NoError(t, err)
	t.Cleanup(s.rateLimiter.Stop)
	ts.Server = s
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	ts.Handler().ServeHTTP(w, req)

	var decoded map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	}
	return w, decoded
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Config{}, Deps{})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	w, body := ts.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])

	ts.store.pingErr = errors.New("down")
	w, body = ts.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unavailable", body["status"])
}

func TestListRoles(t *testing.T) {
	ts := newTestServer(t)
	w, body := ts.do(t, http.MethodGet, "/roles", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"Backend Developer", "Frontend Developer"}, body["roles"])
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)
	w, _ := ts.do(t, http.MethodOptions, "/match", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRefreshSkills(t *testing.T) {
	userID := uuid.New()

	t.Run("returns snapshot and next refresh", func(t *testing.T) {
		ts := newTestServer(t)
		at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
		ts.scorer.snapshot.UpdatedAt = at

		w, body := ts.do(t, http.MethodPost, "/users/"+userID.String()+"/skills/refresh", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, map[string]any{"Go": float64(40)}, body["skills"])
		assert.Equal(t, userID.String(), body["user_id"])
		assert.Equal(t, "2026-05-08T10:00:00Z", body["next_refresh_at"])
		assert.Empty(t, ts.scorer.username)
	})

	t.Run("username override", func(t *testing.T) {
		ts := newTestServer(t)
		w, _ := ts.do(t, http.MethodPost, "/users/"+userID.String()+"/skills/refresh", `{"github_username":"octocat"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "octocat", ts.scorer.username)
	})

	t.Run("locked window is 403 with wait", func(t *testing.T) {
		ts := newTestServer(t)
		ts.scorer.err = &types.TooSoonError{Operation: "skill refresh", Remaining: 5 * 24 * time.Hour}
		w, body := ts.do(t, http.MethodPost, "/users/"+userID.String()+"/skills/refresh", "")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, float64(5*24*3600), body["retry_after_seconds"])
	})

	t.Run("bad id fails before scoring", func(t *testing.T) {
		ts := newTestServer(t)
		w, _ := ts.do(t, http.MethodPost, "/users/not-a-uuid/skills/refresh", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Zero(t, ts.scorer.calls)
	})

	t.Run("malformed body", func(t *testing.T) {
		ts := newTestServer(t)
		w, _ := ts.do(t, http.MethodPost, "/users/"+userID.String()+"/skills/refresh", `{"github_username":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Zero(t, ts.scorer.calls)
	})

	t.Run("upstream failure is 502", func(t *testing.T) {
		ts := newTestServer(t)
		ts.scorer.err = &types.UpstreamUnavailableError{Service: "code hosting", Message: "Not Found"}
		w, body := ts.do(t, http.MethodPost, "/users/"+userID.String()+"/skills/refresh", "")
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.NotContains(t, body["error"], "Not Found")
	})
}

func TestGetSkills(t *testing.T) {
	ts := newTestServer(t)
	userID := uuid.New()

	w, _ := ts.do(t, http.MethodGet, "/users/"+userID.String()+"/skills", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	ts.store.snapshots[userID] = &types.SkillSnapshot{
		UserID:    userID,
		Skills:    types.SkillScoreMap{"Python": 55.5},
		UpdatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	w, body := ts.do(t, http.MethodGet, "/users/"+userID.String()+"/skills", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 55.5, body["skills"].(map[string]any)["Python"])
	assert.Equal(t, "2026-01-08T00:00:00Z", body["next_refresh_at"])
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		want   map[string]any
	}{
		{
			name:   "multiple roles",
			body:   `{"skills":{"python":40,"SQL":60},"roles":["backend developer","Frontend Developer"]}`,
			status: http.StatusOK,
			want:   map[string]any{"Backend Developer": float64(53), "Frontend Developer": float64(0)},
		},
		{
			name:   "empty skills",
			body:   `{"skills":{},"roles":["Frontend Developer"]}`,
			status: http.StatusOK,
			want:   map[string]any{"Frontend Developer": float64(0)},
		},
		{
			name:   "out of range scores are clamped",
			body:   `{"skills":{"Python":150,"sql":-20},"roles":["Backend Developer"]}`,
			status: http.StatusOK,
			want:   map[string]any{"Backend Developer": float64(42)},
		},
		{name: "unknown role rejects all", body: `{"skills":{},"roles":["Frontend Developer","Astronaut"]}`, status: http.StatusBadRequest},
		{name: "missing roles", body: `{"skills":{}}`, status: http.StatusBadRequest},
		{name: "missing skills", body: `{"roles":["Frontend Developer"]}`, status: http.StatusBadRequest},
		{name: "not json", body: `roles=x`, status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			w, body := ts.do(t, http.MethodPost, "/match", tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.want != nil {
				assert.Equal(t, tt.want, body["results"])
			} else {
				assert.NotEmpty(t, body["error"])
			}
		})
	}
}

func TestGaps(t *testing.T) {
	skillsJSON := `{"python":40,"SQL":60}`
	tests := []struct {
		name  string
		body  string
		gaps  []string
		match float64
	}{
		{"full table", `{"skills":` + skillsJSON + `,"role":"Backend Developer"}`, []string{"Docker", "Python", "SQL"}, 53},
		{"actionable only", `{"skills":` + skillsJSON + `,"role":"Backend Developer","actionable_only":true}`, []string{"Docker", "Python"}, 53},
		{"top one", `{"skills":` + skillsJSON + `,"role":"Backend Developer","actionable_only":true,"top":1}`, []string{"Docker"}, 53},
		{"nothing actionable", `{"skills":{"React":90},"role":"Frontend Developer","actionable_only":true}`, []string{}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			w, body := ts.do(t, http.MethodPost, "/match/gaps", tt.body)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, tt.match, body["match_percent"])
			got := []string{}
			for _, g := range body["gaps"].([]any) {
				got = append(got, g.(map[string]any)["skill"].(string))
			}
			assert.Equal(t, tt.gaps, got)
		})
	}

	t.Run("out of range scores are clamped", func(t *testing.T) {
		ts := newTestServer(t)
		w, body := ts.do(t, http.MethodPost, "/match/gaps", `{"skills":{"python":150,"SQL":-20},"role":"Backend Developer"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, float64(42), body["match_percent"])
		current := map[string]any{}
		for _, g := range body["gaps"].([]any) {
			entry := g.(map[string]any)
			current[entry["skill"].(string)] = entry["current"]
		}
		assert.Equal(t, map[string]any{"Python": float64(100), "SQL": float64(0), "Docker": float64(0)}, current)
	})

	t.Run("negative top", func(t *testing.T) {
		ts := newTestServer(t)
		w, _ := ts.do(t, http.MethodPost, "/match/gaps", `{"skills":{},"role":"Backend Developer","top":-1}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown role", func(t *testing.T) {
		ts := newTestServer(t)
		w, body := ts.do(t, http.MethodPost, "/match/gaps", `{"skills":{},"role":"Astronaut"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, `unknown role: "Astronaut"`, body["error"])
	})
}

func TestGenerateRoadmap(t *testing.T) {
	userID := uuid.New().String()

	t.Run("success", func(t *testing.T) {
		ts := newTestServer(t)
		ts.roadmaps.resp = &types.GenerateRoadmapResponse{Month: 1, Role: "Backend Developer", Phase: "Foundation", Content: "## Goals"}
		w, body := ts.do(t, http.MethodPost, "/roadmap/generate", `{"user_id":"`+userID+`"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(1), body["month"])
		assert.Equal(t, "Foundation", body["phase"])
	})

	t.Run("done", func(t *testing.T) {
		ts := newTestServer(t)
		ts.roadmaps.resp = &types.GenerateRoadmapResponse{Done: true}
		w, body := ts.do(t, http.MethodPost, "/roadmap/generate", `{"user_id":"`+userID+`"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, body["done"])
	})

	errorCases := []struct {
		name   string
		err    error
		status int
	}{
		{"monthly lock", &types.TooSoonError{Operation: "roadmap generation", Remaining: 48 * time.Hour}, http.StatusForbidden},
		{"incomplete profile", &types.IncompleteProfileError{Message: "skills have not been computed"}, http.StatusBadRequest},
		{"weak generation", &types.WeakGenerationError{Reason: "too short"}, http.StatusServiceUnavailable},
		{"generator timeout", &types.UpstreamTimeoutError{Service: "text generation", Timeout: time.Minute}, http.StatusGatewayTimeout},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.roadmaps.err = tt.err
			w, _ := ts.do(t, http.MethodPost, "/roadmap/generate", `{"user_id":"`+userID+`"}`)
			assert.Equal(t, tt.status, w.Code)
		})
	}

	t.Run("invalid user id fails fast", func(t *testing.T) {
		ts := newTestServer(t)
		for _, body := range []string{`{}`, `{"user_id":"abc"}`} {
			w, _ := ts.do(t, http.MethodPost, "/roadmap/generate", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		}
		assert.Zero(t, ts.roadmaps.calls)
	})
}

func TestGetRoadmap(t *testing.T) {
	ts := newTestServer(t)
	userID := uuid.New()

	w, body := ts.do(t, http.MethodGet, "/users/"+userID.String()+"/roadmap", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["current_month_index"])
	assert.NotContains(t, body, "pdf_urls")

	ts.store.roadmaps[userID] = &types.RoadmapState{
		UserID:            userID,
		CurrentMonthIndex: 3,
		Version:           2,
		Months: map[int]types.RoadmapMonth{
			1: {MonthIndex: 1, Phase: "Foundation", PDFRef: userID.String() + "/roadmap-month-1.pdf"},
			2: {MonthIndex: 2, Phase: "Foundation"},
		},
	}
	w, body = ts.do(t, http.MethodGet, "/users/"+userID.String()+"/roadmap", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), body["current_month_index"])
	assert.Len(t, body["months"], 2)
	urls := body["pdf_urls"].(map[string]any)
	assert.Len(t, urls, 1)
	assert.Contains(t, urls["1"], "roadmaps/"+userID.String()+"/roadmap-month-1.pdf")
}

func TestUploadURL(t *testing.T) {
	userID, uploadID := uuid.New(), uuid.New()

	ts := newTestServer(t)
	ts.store.uploads[uploadID] = &types.UploadedDocument{ID: uploadID, UserID: userID, Type: types.DocumentResume, FilePath: userID.String() + "/resume.pdf"}

	w, body := ts.do(t, http.MethodGet, "/users/"+userID.String()+"/uploads/"+uploadID.String()+"/url", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://files.test/uploads/"+userID.String()+"/resume.pdf?ttl=5m0s", body["url"])
	assert.NotEmpty(t, body["expires_at"])

	// Another user's upload is not visible.
	w, _ = ts.do(t, http.MethodGet, "/users/"+uuid.NewString()+"/uploads/"+uploadID.String()+"/url", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = ts.do(t, http.MethodGet, "/users/"+userID.String()+"/uploads/nope/url", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	ts.signer.err = &types.UpstreamUnavailableError{Service: "object storage"}
	w, _ = ts.do(t, http.MethodGet, "/users/"+userID.String()+"/uploads/"+uploadID.String()+"/url", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestOpenings(t *testing.T) {
	userID := uuid.New()
	ts := newTestServer(t)
	ts.store.snapshots[userID] = &types.SkillSnapshot{UserID: userID, Skills: types.SkillScoreMap{"Python": 30}}
	ts.openings.list = []openings.Opening{{Title: "Backend Engineer", MatchedSkills: []string{"Python"}}}

	w, body := ts.do(t, http.MethodGet, "/openings?user_id="+userID.String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["count"])
	assert.Equal(t, types.SkillScoreMap{"Python": 30}, ts.openings.known)

	w, _ = ts.do(t, http.MethodGet, "/openings", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, ts.openings.known)

	w, _ = ts.do(t, http.MethodGet, "/openings?user_id=bad", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	ts.openings.err = &types.UpstreamTimeoutError{Service: "openings feed", Timeout: time.Second}
	w, _ = ts.do(t, http.MethodGet, "/openings", "")
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	ts := newTestServer(t)
	ts.rateLimiter.Stop()
	ts.rateLimiter = ratelimit.NewLimiter(&ratelimit.Config{
		Enabled: true,
		EndpointConfigs: []ratelimit.EndpointConfig{
			{Path: "/roadmap/generate", Method: "POST", Limit: 60, Window: time.Minute, Burst: 1},
		},
		DefaultLimit:  100,
		DefaultWindow: time.Minute,
	})
	t.Cleanup(ts.rateLimiter.Stop)

	ts.roadmaps.resp = &types.GenerateRoadmapResponse{Month: 1}
	body := `{"user_id":"` + uuid.NewString() + `"}`

	w, _ := ts.do(t, http.MethodPost, "/roadmap/generate", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "60", w.Header().Get("X-RateLimit-Limit"))

	w, resp := ts.do(t, http.MethodPost, "/roadmap/generate", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "rate_limit_exceeded", resp["error"])
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Equal(t, 1, ts.roadmaps.calls)
}
