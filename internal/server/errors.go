package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/skillxpress/skillxpress/internal/types"
)

// HTTPStatus returns the HTTP status code for err. Wrapped errors are
// unwrapped, so a timeout inside an upstream failure still maps to 504.
func HTTPStatus(err error) int {
	var (
		unknownRole *types.UnknownRoleError
		validation  *types.ValidationError
		fieldErrs   validator.ValidationErrors
		incomplete  *types.IncompleteProfileError
		tooSoon     *types.TooSoonError
		weak        *types.WeakGenerationError
		timeout     *types.UpstreamTimeoutError
		unavailable *types.UpstreamUnavailableError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &unknownRole), errors.As(err, &validation),
		errors.As(err, &fieldErrs), errors.As(err, &incomplete):
		return http.StatusBadRequest
	case errors.As(err, &tooSoon):
		return http.StatusForbidden
	case errors.As(err, &weak):
		return http.StatusServiceUnavailable
	case errors.As(err, &timeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &unavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status and a client-safe body. Server-side
// failures are logged with the operation and user; clients get a generic
// message.
func (s *Server) writeError(w http.ResponseWriter, err error, operation, userID string) {
	status := HTTPStatus(err)
	log := s.log.With("operation", operation, "user_id", userID)

	body := map[string]any{}
	switch status {
	case http.StatusBadRequest:
		body["error"] = clientMessage(err)
	case http.StatusForbidden:
		var tooSoon *types.TooSoonError
		errors.As(err, &tooSoon)
		body["error"] = tooSoon.Error()
		body["retry_after_seconds"] = retrySeconds(tooSoon.Remaining)
	case http.StatusServiceUnavailable:
		body["error"] = "generation produced unusable content, please try again"
	case http.StatusGatewayTimeout:
		body["error"] = "an upstream service timed out"
	case http.StatusBadGateway:
		body["error"] = "an upstream service is unavailable"
	default:
		body["error"] = "internal server error"
	}

	if status >= http.StatusInternalServerError {
		log.Error("request failed", "status", status, "error", err)
	} else {
		log.Info("request rejected", "status", status, "error", err)
	}
	s.jsonResponse(w, status, body)
}

// clientMessage renders a 4xx error. Validator errors are flattened to
// "field: tag" pairs instead of their Go struct paths.
func clientMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		parts := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			parts = append(parts, strings.ToLower(fe.Field())+": "+fe.Tag())
		}
		return "invalid request: " + strings.Join(parts, ", ")
	}
	return err.Error()
}
