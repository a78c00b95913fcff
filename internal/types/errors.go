package types

import (
	"fmt"
	"time"
)

// UpstreamUnavailableError indicates an external collaborator failed or
// answered with a malformed payload. Fatal for the enclosing operation.
type UpstreamUnavailableError struct {
	Service string
	Message string
	Cause   error
}

func (e *UpstreamUnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s unavailable: %s: %v", e.Service, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s unavailable: %s", e.Service, e.Message)
}

func (e *UpstreamUnavailableError) Unwrap() error {
	return e.Cause
}

// UpstreamTimeoutError indicates an external call exceeded its deadline.
type UpstreamTimeoutError struct {
	Service string
	Timeout time.Duration
	Cause   error
}

func (e *UpstreamTimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Service, e.Timeout)
}

func (e *UpstreamTimeoutError) Unwrap() error {
	return e.Cause
}

// ExtractionFailedError indicates text could not be extracted from one document.
// Scoring skips the document and continues.
type ExtractionFailedError struct {
	Path  string
	Cause error
}

func (e *ExtractionFailedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("text extraction failed for %s: %v", e.Path, e.Cause)
	}
	return fmt.Sprintf("text extraction failed for %s", e.Path)
}

func (e *ExtractionFailedError) Unwrap() error {
	return e.Cause
}

// UnknownRoleError indicates the requested role is absent from the catalog.
type UnknownRoleError struct {
	Role string
}

func (e *UnknownRoleError) Error() string {
	return fmt.Sprintf("unknown role: %q", e.Role)
}

// TooSoonError indicates a rate lock (snapshot window or monthly roadmap lock) is active.
type TooSoonError struct {
	Operation string
	Remaining time.Duration
}

func (e *TooSoonError) Error() string {
	return fmt.Sprintf("%s not allowed yet, retry in %s", e.Operation, e.Remaining.Round(time.Minute))
}

// WeakGenerationError indicates generated content stayed empty, too short
// or structurally invalid after the bounded retry.
type WeakGenerationError struct {
	Reason string
}

func (e *WeakGenerationError) Error() string {
	return fmt.Sprintf("generated content rejected: %s", e.Reason)
}

// IncompleteProfileError indicates the user lacks data needed for the operation.
type IncompleteProfileError struct {
	Message string
}

func (e *IncompleteProfileError) Error() string {
	return fmt.Sprintf("profile incomplete: %s", e.Message)
}

// ValidationError indicates malformed client input that is not covered by
// struct tag validation, such as an unparsable path identifier.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
