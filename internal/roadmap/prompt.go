package roadmap

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/skillxpress/skillxpress/internal/prompts"
	"github.com/skillxpress/skillxpress/internal/skills"
	"github.com/skillxpress/skillxpress/internal/types"
)

const (
	promptFile     = "roadmap.json"
	promptKey      = "month-plan"
	retrySuffixKey = "retry-suffix"
	maxStrengths   = 8
)

// PromptInput holds everything the month prompt depends on.
type PromptInput struct {
	Role   string
	Month  int
	Phase  Phase
	Gaps   []types.GapEntry // ranked focus gaps
	Skills types.SkillScoreMap
}

// BuildPrompt assembles the instruction block for one month. It is a pure
// function of its input; equal inputs always produce identical prompts.
func BuildPrompt(in PromptInput) (string, error) {
	return prompts.Render(promptFile, promptKey, map[string]string{
		"Month":     strconv.Itoa(in.Month),
		"Role":      in.Role,
		"Phase":     in.Phase.Name,
		"Project":   in.Phase.Project,
		"Gaps":      formatGaps(in.Gaps),
		"Strengths": formatStrengths(in.Skills, in.Gaps),
	})
}

// RetryPrompt returns the prompt used for the single retry after weak output.
func RetryPrompt(prompt string) (string, error) {
	suffix, err := prompts.Text(promptFile, retrySuffixKey)
	if err != nil {
		return "", err
	}
	return prompt + suffix, nil
}

func formatGaps(gaps []types.GapEntry) string {
	if len(gaps) == 0 {
		return "- none: every requirement is met, deepen existing skills through portfolio work"
	}
	var sb strings.Builder
	for i, g := range gaps {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%d. %s (%s / %s)", i+1, g.Skill, formatScore(g.Current), formatScore(g.Required))
	}
	return sb.String()
}

// formatStrengths lists the strongest skills that are not focus gaps,
// ordered by score then name.
func formatStrengths(scores types.SkillScoreMap, gaps []types.GapEntry) string {
	focus := make(map[string]bool, len(gaps))
	for _, g := range gaps {
		focus[skills.Key(g.Skill)] = true
	}
	type entry struct {
		skill string
		score float64
	}
	entries := make([]entry, 0, len(scores))
	for skill, score := range scores {
		if score <= 0 || focus[skills.Key(skill)] {
			continue
		}
		entries = append(entries, entry{skill, score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		return entries[i].skill < entries[j].skill
	})
	if len(entries) > maxStrengths {
		entries = entries[:maxStrengths]
	}
	if len(entries) == 0 {
		return "- none yet"
	}
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("- %s (%s)", e.skill, formatScore(e.score))
	}
	return strings.Join(parts, "\n")
}

func formatScore(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}
