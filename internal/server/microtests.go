package server

import (
	"net/http"

	"github.com/skillxpress/skillxpress/internal/types"
)

// MicroTestQuestionsResponse lists the question bank without answers.
type MicroTestQuestionsResponse struct {
	Count     int                       `json:"count"`
	Questions []types.MicroTestQuestion `json:"questions"`
}

func (s *Server) handleMicroTestQuestions(w http.ResponseWriter, r *http.Request) {
	const op = "micro_test_questions"
	if s.deps.MicroTests == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "micro tests are not configured")
		return
	}
	questions, err := s.deps.MicroTests.Questions(r.Context())
	if err != nil {
		s.writeError(w, err, op, "")
		return
	}
	if questions == nil {
		questions = []types.MicroTestQuestion{}
	}
	s.jsonResponse(w, http.StatusOK, MicroTestQuestionsResponse{Count: len(questions), Questions: questions})
}

func (s *Server) handleSubmitMicroTest(w http.ResponseWriter, r *http.Request) {
	const op = "submit_micro_test"
	userID, err := pathUUID(r, "id")
	if err != nil {
		s.writeError(w, err, op, r.PathValue("id"))
		return
	}
	if s.deps.MicroTests == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "micro tests are not configured")
		return
	}

	var req types.MicroTestSubmission
	if err := decodeJSON(r, &req, false); err != nil {
		s.writeError(w, err, op, userID.String())
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, err, op, userID.String())
		return
	}

	result, err := s.deps.MicroTests.Submit(r.Context(), userID, req)
	if err != nil {
		s.writeError(w, err, op, userID.String())
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleLatestMicroTest(w http.ResponseWriter, r *http.Request) {
	const op = "latest_micro_test"
	userID, err := pathUUID(r, "id")
	if err != nil {
		s.writeError(w, err, op, r.PathValue("id"))
		return
	}
	if s.deps.MicroTests == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "micro tests are not configured")
		return
	}

	result, err := s.deps.MicroTests.Latest(r.Context(), userID)
	if err != nil {
		s.writeError(w, err, op, userID.String())
		return
	}
	if result == nil {
		s.errorResponse(w, http.StatusNotFound, "no micro test results")
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}
