package rendering

import "strings"

// inlineMarkup lists markdown emphasis markers removed from PDF text.
var inlineMarkup = strings.NewReplacer("**", "", "__", "", "`", "")

// lineKind classifies one line of generated markdown.
type lineKind int

const (
	lineText lineKind = iota
	lineHeading
	lineBullet
	lineBlank
)

// classifyLine returns the kind of a markdown line and its display text
// with markup removed.
func classifyLine(line string) (lineKind, string) {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		return lineBlank, ""
	case strings.HasPrefix(trimmed, "#"):
		return lineHeading, plainText(strings.TrimLeft(trimmed, "# "))
	case strings.HasPrefix(trimmed, "- "), strings.HasPrefix(trimmed, "* "):
		return lineBullet, plainText(trimmed[2:])
	default:
		return lineText, plainText(trimmed)
	}
}

func plainText(s string) string {
	return strings.TrimSpace(inlineMarkup.Replace(s))
}
