package skills

import (
	"math"
	"strings"
	"time"

	"github.com/skillxpress/skillxpress/internal/types"
)

// Generic credits granted per credential document, independent of keywords.
const (
	ReadinessSkill = "Professional Readiness"
	LearningSkill  = "Learning"
)

// MaxScore is the upper bound of a normalized skill score.
const MaxScore = 100

// Weights holds every tunable constant of the scoring formula.
type Weights struct {
	StarWeight    float64 `json:"star_weight"`
	PopularityCap float64 `json:"popularity_cap"`
	ForkWeight    float64 `json:"fork_weight"`
	ForkCap       float64 `json:"fork_cap"`
	SizeDivisor   float64 `json:"size_divisor"`
	SubstanceCap  float64 `json:"substance_cap"`

	RecentDays    int     `json:"recent_days"`
	ActiveDays    int     `json:"active_days"`
	RecentCredit  float64 `json:"recent_credit"`
	ActiveCredit  float64 `json:"active_credit"`
	DormantCredit float64 `json:"dormant_credit"`

	ResumeWeight      float64 `json:"resume_weight"`
	CertificateWeight float64 `json:"certificate_weight"`
	ProjectIncrement  float64 `json:"project_increment"`
	ReadinessCredit   float64 `json:"readiness_credit"`
	LearningCredit    float64 `json:"learning_credit"`
}

// DefaultWeights returns the production scoring weights.
func DefaultWeights() Weights {
	return Weights{
		StarWeight:    6,
		PopularityCap: 30,
		ForkWeight:    1,
		ForkCap:       10,
		SizeDivisor:   500,
		SubstanceCap:  20,

		RecentDays:    30,
		ActiveDays:    90,
		RecentCredit:  15,
		ActiveCredit:  8,
		DormantCredit: 3,

		ResumeWeight:      5,
		CertificateWeight: 3,
		ProjectIncrement:  10,
		ReadinessCredit:   15,
		LearningCredit:    10,
	}
}

// ScoredDocument is an upload whose text is already available.
type ScoredDocument struct {
	Type types.DocumentType
	Text string
}

// Engine turns repository and document signals into a SkillScoreMap.
// It holds only immutable configuration and is safe for concurrent use.
type Engine struct {
	weights  Weights
	keywords KeywordMap
}

// NewEngine creates an Engine. A nil keyword map selects DefaultKeywords.
func NewEngine(weights Weights, keywords KeywordMap) *Engine {
	if keywords == nil {
		keywords = DefaultKeywords()
	}
	if weights.SizeDivisor <= 0 {
		weights.SizeDivisor = DefaultWeights().SizeDivisor
	}
	return &Engine{weights: weights, keywords: keywords}
}

// Keywords returns the keyword map the engine matches text against.
func (e *Engine) Keywords() KeywordMap {
	return e.keywords
}

// Compute scores repositories and documents and returns the normalized map.
// Contributions are accumulated as integer milli-points, so the result does
// not depend on the order of either input slice.
func (e *Engine) Compute(repos []types.RepositorySignal, docs []ScoredDocument, now time.Time) types.SkillScoreMap {
	acc := newAccumulator()
	for _, repo := range repos {
		e.addRepository(acc, repo, now)
	}
	for _, doc := range docs {
		e.addDocument(acc, doc)
	}
	return acc.normalize()
}

// RepositoryBase returns the language-independent score of one repository.
func (e *Engine) RepositoryBase(repo types.RepositorySignal, now time.Time) float64 {
	w := e.weights
	popularity := math.Min(math.Log(float64(nonNegative(repo.Stars))+1)*w.StarWeight, w.PopularityCap)
	collaboration := math.Min(float64(nonNegative(repo.Forks))*w.ForkWeight, w.ForkCap)
	substance := math.Min(float64(nonNegative(repo.SizeKB))/w.SizeDivisor, w.SubstanceCap)
	return popularity + collaboration + substance + e.Recency(repo.LastPush, now)
}

// Recency returns the step credit for the time since the last push. It is
// never below DormantCredit, including for repositories without a push date.
func (e *Engine) Recency(lastPush, now time.Time) float64 {
	w := e.weights
	if lastPush.IsZero() {
		return w.DormantCredit
	}
	days := now.Sub(lastPush).Hours() / 24
	switch {
	case days <= float64(w.RecentDays):
		return w.RecentCredit
	case days <= float64(w.ActiveDays):
		return w.ActiveCredit
	default:
		return w.DormantCredit
	}
}

func (e *Engine) addRepository(acc *accumulator, repo types.RepositorySignal, now time.Time) {
	var total int64
	for _, bytes := range repo.Languages {
		if bytes > 0 {
			total += bytes
		}
	}
	if total == 0 {
		return
	}
	base := e.RepositoryBase(repo, now)
	for lang, bytes := range repo.Languages {
		if bytes <= 0 {
			continue
		}
		acc.add(lang, base*float64(bytes)/float64(total))
	}
}

func (e *Engine) addDocument(acc *accumulator, doc ScoredDocument) {
	w := e.weights
	switch doc.Type {
	case types.DocumentResume:
		acc.add(ReadinessSkill, w.ReadinessCredit)
		for skill, n := range e.keywords.Count(doc.Text) {
			acc.add(skill, float64(n)*w.ResumeWeight)
		}
	case types.DocumentCertificate:
		acc.add(LearningSkill, w.LearningCredit)
		for skill, n := range e.keywords.Count(doc.Text) {
			acc.add(skill, float64(n)*w.CertificateWeight)
		}
	case types.DocumentProject:
		for _, skill := range e.keywords.Present(doc.Text) {
			acc.add(skill, w.ProjectIncrement)
		}
	}
}

// accumulator sums milli-points keyed case-insensitively. The display name
// kept for a key is the lexicographically smallest spelling seen.
type accumulator struct {
	milli map[string]int64
	names map[string]string
}

func newAccumulator() *accumulator {
	return &accumulator{milli: map[string]int64{}, names: map[string]string{}}
}

func (a *accumulator) add(skill string, points float64) {
	name := Canonical(skill)
	if name == "" || points <= 0 || math.IsNaN(points) || math.IsInf(points, 0) {
		return
	}
	key := strings.ToLower(name)
	if prev, ok := a.names[key]; !ok || name < prev {
		a.names[key] = name
	}
	a.milli[key] += int64(math.Round(points * 1000))
}

func (a *accumulator) normalize() types.SkillScoreMap {
	out := make(types.SkillScoreMap, len(a.milli))
	for key, m := range a.milli {
		out[a.names[key]] = Clamp(float64(m) / 1000)
	}
	return out
}

// Clamp bounds a raw score to [0, MaxScore].
func Clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > MaxScore:
		return MaxScore
	}
	return v
}

// Normalize canonicalizes the keys of an externally supplied map and clamps
// every value. Spellings that fold to the same skill keep the highest score.
func Normalize(m types.SkillScoreMap) types.SkillScoreMap {
	out := make(types.SkillScoreMap, len(m))
	names := make(map[string]string, len(m))
	for skill, v := range m {
		name := Canonical(skill)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		v = Clamp(v)
		if prev, ok := names[key]; ok {
			if cur := out[prev]; cur > v || (cur == v && prev <= name) {
				continue
			}
			delete(out, prev)
		}
		names[key] = name
		out[name] = v
	}
	return out
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
