// Package ranking compares a user's skill scores against role requirement
// vectors: overall match percentage and gaps ordered by priority.
package ranking

import (
	"math"
	"sort"

	"github.com/skillxpress/skillxpress/internal/skills"
	"github.com/skillxpress/skillxpress/internal/types"
)

// DefaultFocusSize is the number of actionable gaps used as roadmap focus.
const DefaultFocusSize = 4

// MatchRole computes the match percentage and the complete gap table of a
// user against one role. Required skills missing from the user's map count
// as zero. An empty or all-zero requirement vector yields 0 percent.
func MatchRole(userSkills types.SkillScoreMap, role types.Role) types.MatchResult {
	index := indexSkills(userSkills)

	var matched, total float64
	gaps := make([]types.GapEntry, 0, len(role.Requirements))
	for _, req := range role.Requirements {
		required := math.Max(req.Required, 0)
		current := index[skills.Key(req.Skill)]
		matched += math.Min(current, required)
		total += required
		gaps = append(gaps, types.GapEntry{
			Skill:    req.Skill,
			Current:  current,
			Required: required,
			Gap:      required - current,
		})
	}

	sortGaps(gaps)

	return types.MatchResult{
		Role:         role.Name,
		MatchPercent: percent(matched, total),
		Gaps:         gaps,
	}
}

// MatchPercent is MatchRole without the gap table.
func MatchPercent(userSkills types.SkillScoreMap, role types.Role) int {
	return MatchRole(userSkills, role).MatchPercent
}

// Actionable keeps only gaps with a positive shortfall, preserving order.
func Actionable(gaps []types.GapEntry) []types.GapEntry {
	out := make([]types.GapEntry, 0, len(gaps))
	for _, g := range gaps {
		if g.Gap > 0 {
			out = append(out, g)
		}
	}
	return out
}

// TopN returns at most n leading gaps. n <= 0 returns all of them.
func TopN(gaps []types.GapEntry, n int) []types.GapEntry {
	if n <= 0 || n >= len(gaps) {
		return gaps
	}
	return gaps[:n]
}

// FocusSkills returns the skill names of the top n actionable gaps.
func FocusSkills(result types.MatchResult, n int) []string {
	top := TopN(Actionable(result.Gaps), n)
	out := make([]string, len(top))
	for i, g := range top {
		out[i] = g.Skill
	}
	return out
}

// sortGaps orders by descending gap. The sort is stable so equal gaps keep
// requirement declaration order.
func sortGaps(gaps []types.GapEntry) {
	sort.SliceStable(gaps, func(i, j int) bool {
		return gaps[i].Gap > gaps[j].Gap
	})
}

func percent(matched, total float64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * matched / total))
}

// indexSkills keys user scores case-insensitively through the alias table.
// Scores are clamped to [0, 100]; the highest wins when spellings collide.
func indexSkills(m types.SkillScoreMap) map[string]float64 {
	index := make(map[string]float64, len(m))
	for skill, v := range m {
		key := skills.Key(skill)
		if key == "" {
			continue
		}
		v = skills.Clamp(v)
		if prev, ok := index[key]; !ok || v > prev {
			index[key] = v
		}
	}
	return index
}
