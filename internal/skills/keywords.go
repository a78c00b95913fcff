package skills

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Bucket is one skill and the phrases that trigger it in free text.
type Bucket struct {
	Skill    string   `json:"skill"`
	Keywords []string `json:"keywords"`
}

// KeywordMap is the ordered set of skill buckets used for text matching.
// Every bucket is evaluated independently against the same text, so one
// phrase may credit several skills ("react native" feeds React and ReactNative).
type KeywordMap []Bucket

// DefaultKeywords returns the built-in keyword map. Skill names follow the
// role catalog so that document credit lands on required skills.
func DefaultKeywords() KeywordMap {
	return KeywordMap{
		{Skill: "HTML", Keywords: []string{"html", "html5"}},
		{Skill: "CSS", Keywords: []string{"css", "css3", "sass", "tailwind", "bootstrap"}},
		{Skill: "JavaScript", Keywords: []string{"javascript", "es6", "ecmascript"}},
		{Skill: "TypeScript", Keywords: []string{"typescript"}},
		{Skill: "React", Keywords: []string{"react", "react.js", "reactjs", "redux", "next.js"}},
		{Skill: "ReactNative", Keywords: []string{"react native"}},
		{Skill: "Angular", Keywords: []string{"angular"}},
		{Skill: "Node.js", Keywords: []string{"node.js", "nodejs"}},
		{Skill: "Express", Keywords: []string{"express.js", "expressjs"}},
		{Skill: "Python", Keywords: []string{"python", "django", "flask", "pandas", "numpy"}},
		{Skill: "Java", Keywords: []string{"java", "spring boot"}},
		{Skill: "Kotlin", Keywords: []string{"kotlin"}},
		{Skill: "Swift", Keywords: []string{"swift", "swiftui"}},
		{Skill: "Dart", Keywords: []string{"dart"}},
		{Skill: "Flutter", Keywords: []string{"flutter"}},
		{Skill: "C/C++", Keywords: []string{"c++", "cpp"}},
		{Skill: "SQL", Keywords: []string{"sql", "mysql", "postgresql", "postgres", "sqlite"}},
		{Skill: "MongoDB", Keywords: []string{"mongodb", "mongoose"}},
		{Skill: "Git", Keywords: []string{"git", "github", "gitlab"}},
		{Skill: "Docker", Keywords: []string{"docker", "containers"}},
		{Skill: "Kubernetes", Keywords: []string{"kubernetes", "k8s"}},
		{Skill: "AWS", Keywords: []string{"aws", "amazon web services", "ec2", "lambda"}},
		{Skill: "Cloud", Keywords: []string{"cloud", "azure", "gcp", "google cloud"}},
		{Skill: "Linux", Keywords: []string{"linux", "ubuntu", "bash"}},
		{Skill: "MachineLearning", Keywords: []string{"machine learning", "deep learning", "tensorflow", "pytorch", "scikit-learn"}},
		{Skill: "DataAnalysis", Keywords: []string{"data analysis", "power bi", "tableau"}},
		{Skill: "Excel", Keywords: []string{"excel", "spreadsheets"}},
		{Skill: "Statistics", Keywords: []string{"statistics", "statistical"}},
		{Skill: "DSA", Keywords: []string{"dsa", "data structures", "algorithms", "leetcode"}},
		{Skill: "OOP", Keywords: []string{"oop", "object oriented", "object-oriented"}},
		{Skill: "APIs", Keywords: []string{"api", "apis", "rest api", "restful", "graphql"}},
		{Skill: "Testing", Keywords: []string{"testing", "unit tests", "jest", "selenium"}},
		{Skill: "Figma", Keywords: []string{"figma"}},
		{Skill: "Security", Keywords: []string{"security", "cybersecurity", "owasp"}},
		{Skill: "Networking", Keywords: []string{"networking", "tcp/ip", "ccna"}},
	}
}

// Count returns, per skill, the number of whole-word keyword occurrences in text.
// Skills without a match are omitted.
func (m KeywordMap) Count(text string) map[string]int {
	lower := strings.ToLower(text)
	out := make(map[string]int)
	for _, b := range m {
		if n := countBucket(lower, b.Keywords); n > 0 {
			out[Canonical(b.Skill)] += n
		}
	}
	return out
}

// Present returns the skills with at least one whole-word keyword hit in text.
func (m KeywordMap) Present(text string) []string {
	counts := m.Count(text)
	out := make([]string, 0, len(counts))
	for skill := range counts {
		out = append(out, skill)
	}
	sort.Strings(out)
	return out
}

type span struct{ start, end int }

// countBucket counts whole-word hits of any keyword. Longer keywords are
// matched first and a shorter keyword never re-counts text already claimed,
// so "react native" is one hit rather than a hit for "react native" and one
// for "react".
func countBucket(lower string, keywords []string) int {
	kws := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			kws = append(kws, kw)
		}
	}
	sort.SliceStable(kws, func(i, j int) bool { return len(kws[i]) > len(kws[j]) })

	var claimed []span
	for _, kw := range kws {
		for _, s := range wholeWordSpans(lower, kw) {
			if !overlaps(claimed, s) {
				claimed = append(claimed, s)
			}
		}
	}
	return len(claimed)
}

func overlaps(claimed []span, s span) bool {
	for _, c := range claimed {
		if s.start < c.end && c.start < s.end {
			return true
		}
	}
	return false
}

// wholeWordSpans finds non-overlapping occurrences of kw in text that are
// not embedded inside a longer word.
func wholeWordSpans(text, kw string) []span {
	var spans []span
	offset := 0
	for offset <= len(text)-len(kw) {
		idx := strings.Index(text[offset:], kw)
		if idx < 0 {
			break
		}
		start := offset + idx
		end := start + len(kw)
		if boundaryBefore(text, start) && boundaryAfter(text, end, kw) {
			spans = append(spans, span{start, end})
			offset = end
			continue
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}
	return spans
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

// boundaryAfter reports whether kw ending at i is a whole word. A keyword
// that ends in a symbol, like "c++", may be followed by a version number.
func boundaryAfter(text string, i int, kw string) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	if !isWordRune(r) {
		return true
	}
	last, _ := utf8.DecodeLastRuneInString(kw)
	return unicode.IsDigit(r) && !isWordRune(last)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
