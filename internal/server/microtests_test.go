package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillxpress/skillxpress/internal/types"
)

type fakeMicroTests struct {
	questions []types.MicroTestQuestion
	results   map[uuid.UUID]*types.MicroTestResult
	submitted *types.MicroTestSubmission
	err       error
}

func (f *fakeMicroTests) Questions(context.Context) ([]types.MicroTestQuestion, error) {
	return f.questions, f.err
}

func (f *fakeMicroTests) Submit(_ context.Context, userID uuid.UUID, sub types.MicroTestSubmission) (*types.MicroTestResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.submitted = &sub
	r := &types.MicroTestResult{
		ID:               uuid.New(),
		UserID:           userID,
		Scores:           map[types.MicroTestSection]int{types.SectionLogic: len(sub.Answers)},
		BrainEfficiency:  60,
		TimeTakenSeconds: sub.TimeTakenSeconds,
	}
	f.results[userID] = r
	return r, nil
}

func (f *fakeMicroTests) Latest(_ context.Context, userID uuid.UUID) (*types.MicroTestResult, error) {
	return f.results[userID], f.err
}

func TestMicroTestQuestions_HidesAnswers(t *testing.T) {
	ts := newTestServer(t)
	ts.micro.questions = []types.MicroTestQuestion{
		{ID: "log-1", Section: types.SectionLogic, Prompt: "2, 6, 12, 20, ?", Options: []string{"28", "30"}, CorrectOption: "30"},
	}

	w, body := ts.do(t, http.MethodGet, "/micro-tests/questions", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["count"])
	q := body["questions"].([]any)[0].(map[string]any)
	assert.Equal(t, "log-1", q["id"])
	assert.Equal(t, "logic", q["section"])
	assert.NotContains(t, q, "correct_option")
	assert.NotContains(t, w.Body.String(), `"CorrectOption"`)
}

func TestSubmitMicroTest(t *testing.T) {
	userID := uuid.New()
	tests := []struct {
		name   string
		path   string
		body   string
		err    error
		status int
	}{
		{"scored", "/users/" + userID.String() + "/micro-tests", `{"answers":{"log-1":"30","mem-1":"9"},"time_taken_seconds":95}`, nil, http.StatusOK},
		{"bad user id", "/users/nope/micro-tests", `{"answers":{}}`, nil, http.StatusBadRequest},
		{"missing answers", "/users/" + userID.String() + "/micro-tests", `{"time_taken_seconds":5}`, nil, http.StatusBadRequest},
		{"negative time", "/users/" + userID.String() + "/micro-tests", `{"answers":{},"time_taken_seconds":-1}`, nil, http.StatusBadRequest},
		{"not json", "/users/" + userID.String() + "/micro-tests", `answers`, nil, http.StatusBadRequest},
		{"unknown profile", "/users/" + userID.String() + "/micro-tests", `{"answers":{}}`, &types.ValidationError{Field: "user_id", Message: "profile not found"}, http.StatusBadRequest},
		{"database timeout", "/users/" + userID.String() + "/micro-tests", `{"answers":{}}`, &types.UpstreamTimeoutError{Service: "database", Timeout: time.Second}, http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.micro.err = tt.err

			w, body := ts.do(t, http.MethodPost, tt.path, tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.status != http.StatusOK {
				assert.NotEmpty(t, body["error"])
				return
			}
			assert.Equal(t, float64(60), body["brain_efficiency"])
			assert.Equal(t, float64(95), body["time_taken_seconds"])
			assert.Equal(t, map[string]any{"logic": float64(2)}, body["scores"])
			require.NotNil(t, ts.micro.submitted)
			assert.Equal(t, "30", ts.micro.submitted.Answers["log-1"])
		})
	}
}

func TestLatestMicroTest(t *testing.T) {
	ts := newTestServer(t)
	userID := uuid.New()

	w, body := ts.do(t, http.MethodGet, "/users/"+userID.String()+"/micro-tests/latest", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "no micro test results", body["error"])

	ts.micro.results[userID] = &types.MicroTestResult{UserID: userID, BrainEfficiency: 80}
	w, body = ts.do(t, http.MethodGet, "/users/"+userID.String()+"/micro-tests/latest", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(80), body["brain_efficiency"])
	assert.Equal(t, userID.String(), body["user_id"])
}

func TestMicroTests_NotConfigured(t *testing.T) {
	ts := newTestServer(t)
	ts.deps.MicroTests = nil
	userID := uuid.New().String()

	for _, req := range []struct{ method, path, body string }{
		{http.MethodGet, "/micro-tests/questions", ""},
		{http.MethodPost, "/users/" + userID + "/micro-tests", `{"answers":{}}`},
		{http.MethodGet, "/users/" + userID + "/micro-tests/latest", ""},
	} {
		w, _ := ts.do(t, req.method, req.path, req.body)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, req.path)
	}
}
