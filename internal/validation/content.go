package validation

import (
	"bufio"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Violation types.
const (
	ViolationEmpty           = "empty"
	ViolationTooShort        = "too_short"
	ViolationMissingMarker   = "missing_marker"
	ViolationForbiddenPhrase = "forbidden_phrase"
)

// Violation describes one problem found in generated content.
type Violation struct {
	Type       string `json:"type"`
	Details    string `json:"details"`
	LineNumber *int   `json:"line_number,omitempty"`
}

// Rules configures content checks.
type Rules struct {
	MinLength        int      // minimum length in runes after trimming
	RequiredMarkers  []string // headings that must each start a line
	ForbiddenPhrases []string // refusal boilerplate, matched case-insensitively
}

// DefaultForbiddenPhrases catches refusals and meta commentary.
var DefaultForbiddenPhrases = []string{
	"as an ai",
	"i cannot help",
	"i can't help",
	"i'm sorry, but",
}

// Check returns every violation in content. No violations means acceptable.
func Check(content string, rules Rules) []Violation {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return []Violation{{Type: ViolationEmpty, Details: "content is empty"}}
	}

	var violations []Violation
	if n := utf8.RuneCountInString(trimmed); n < rules.MinLength {
		violations = append(violations, Violation{
			Type:    ViolationTooShort,
			Details: fmt.Sprintf("content has %d characters, minimum is %d", n, rules.MinLength),
		})
	}

	headings := lineStarts(trimmed)
	for _, marker := range rules.RequiredMarkers {
		m := strings.ToLower(strings.TrimSpace(marker))
		if m == "" {
			continue
		}
		if !hasPrefixLine(headings, m) {
			violations = append(violations, Violation{
				Type:    ViolationMissingMarker,
				Details: fmt.Sprintf("missing section %q", marker),
			})
		}
	}

	violations = append(violations, forbiddenPhrases(trimmed, rules.ForbiddenPhrases)...)
	return violations
}

// Validate wraps Check and returns an *Error when content is unacceptable.
func Validate(content string, rules Rules) error {
	if v := Check(content, rules); len(v) > 0 {
		return &Error{Violations: v}
	}
	return nil
}

func lineStarts(text string) []string {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.ToLower(strings.TrimSpace(scanner.Text())))
	}
	return lines
}

func hasPrefixLine(lines []string, marker string) bool {
	for _, line := range lines {
		if strings.HasPrefix(line, marker) {
			return true
		}
	}
	return false
}

// forbiddenPhrases reports at most one violation per line (first match).
func forbiddenPhrases(text string, phrases []string) []Violation {
	if len(phrases) == 0 {
		return nil
	}
	var violations []Violation
	for i, line := range lineStarts(text) {
		for _, phrase := range phrases {
			p := strings.ToLower(strings.TrimSpace(phrase))
			if p != "" && strings.Contains(line, p) {
				lineNum := i + 1
				violations = append(violations, Violation{
					Type:       ViolationForbiddenPhrase,
					Details:    fmt.Sprintf("line %d contains forbidden phrase: %s", lineNum, phrase),
					LineNumber: &lineNum,
				})
				break
			}
		}
	}
	return violations
}
