// Package validation checks generated roadmap content for length, required
// structure and refusal phrases before it may be persisted.
package validation

import (
	"fmt"
	"strings"
)

// Error summarizes the violations that made content unacceptable.
type Error struct {
	Violations []Violation
}

func (e *Error) Error() string {
	details := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		details = append(details, v.Details)
	}
	return fmt.Sprintf("content validation failed: %s", strings.Join(details, "; "))
}
