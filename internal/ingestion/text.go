// Package ingestion turns stored user documents into plain text for keyword
// scoring. PDFs and DOCX files are parsed locally; images and scanned PDFs
// fall back to OCR when it is configured.
package ingestion

import (
	"regexp"
	"strings"
)

var (
	innerSpace  = regexp.MustCompile(`[ \t\f\v\x{00a0}]+`)
	blankRuns   = regexp.MustCompile(`\n{3,}`)
	hyphenBreak = regexp.MustCompile(`(\p{L})-\n(\p{Ll})`)
)

// CleanText normalizes extracted text while keeping line structure:
// CRLF becomes LF, runs of spaces collapse, words hyphenated across a line
// break are rejoined and at most one blank line separates paragraphs.
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = strings.ReplaceAll(content, "\x00", "")
	content = hyphenBreak.ReplaceAllString(content, "$1$2")

	lines := strings.Split(content, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		cleaned = append(cleaned, cleanLine(line))
	}

	result := blankRuns.ReplaceAllString(strings.Join(cleaned, "\n"), "\n\n")
	return strings.TrimSpace(result)
}

func cleanLine(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return ""
	}
	if isBulletLine(trimmed) {
		// Normalize PDF bullet glyphs so keyword boundaries stay intact.
		trimmed = "- " + strings.TrimSpace(trimmed[strings.IndexAny(trimmed, " \t")+1:])
	}
	return innerSpace.ReplaceAllString(trimmed, " ")
}

func isBulletLine(line string) bool {
	return strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") ||
		strings.HasPrefix(line, "• ") || strings.HasPrefix(line, "· ") ||
		strings.HasPrefix(line, "▪ ")
}
