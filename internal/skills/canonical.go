// Package skills implements the skill scoring engine: canonical skill names,
// keyword triggers for free text, and the weighted accumulation of
// repository and document signals into a normalized SkillScoreMap.
package skills

import "strings"

// aliases maps lower-cased skill variants to canonical names. Catalog
// entries, GitHub language names and keyword buckets all pass through it so
// that "NODEJS", "nodejs" and "Node.js" land in the same bucket.
var aliases = map[string]string{
	"golang":           "Go",
	"go lang":          "Go",
	"javascript":       "JavaScript",
	"js":               "JavaScript",
	"typescript":       "TypeScript",
	"ts":               "TypeScript",
	"k8s":              "Kubernetes",
	"kubernetes":       "Kubernetes",
	"react.js":         "React",
	"reactjs":          "React",
	"react":            "React",
	"react native":     "ReactNative",
	"vue.js":           "Vue",
	"vuejs":            "Vue",
	"node.js":          "Node.js",
	"nodejs":           "Node.js",
	"node":             "Node.js",
	"html":             "HTML",
	"html5":            "HTML",
	"css":              "CSS",
	"css3":             "CSS",
	"scss":             "CSS",
	"sql":              "SQL",
	"plpgsql":          "SQL",
	"tsql":             "SQL",
	"python":           "Python",
	"jupyter notebook": "Python",
	"java":             "Java",
	"c":                "C/C++",
	"c++":              "C/C++",
	"dockerfile":       "Docker",
	"docker":           "Docker",
	"git":              "Git",
	"mongodb":          "MongoDB",
	"express":          "Express",
	"express.js":       "Express",
}

// Canonical returns the canonical display name for a skill. Unknown names
// are returned trimmed but otherwise untouched.
func Canonical(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}
	if canonical, ok := aliases[strings.ToLower(trimmed)]; ok {
		return canonical
	}
	return trimmed
}

// Key returns the case-insensitive identity of a skill name.
func Key(name string) string {
	return strings.ToLower(Canonical(name))
}
