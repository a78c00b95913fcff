// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/skillxpress/skillxpress/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// barWidth is the number of cells of a 0-100 score bar
	barWidth = 20
)

// Printer handles formatted output for the CLI.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		if len([]rune(line)) > boxWidth-4 {
			line = string([]rune(line)[:boxWidth-7]) + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintProgress prints one scoring step line.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintProgress(step, message string) {
	fmt.Fprintf(p.out, "[%s] %s\n", step, message)
}

// PrintSkills prints a score map, highest first, with a bar per skill.
func (p *Printer) PrintSkills(title string, scores types.SkillScoreMap) {
	if len(scores) == 0 {
		p.printBox(title, "No skills detected")
		return
	}
	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if scores[names[i]] != scores[names[j]] {
			return scores[names[i]] > scores[names[j]]
		}
		return names[i] < names[j]
	})

	var sb strings.Builder
	for _, name := range names {
		sb.WriteString(fmt.Sprintf("%-22s %s %6.2f\n", name, bar(scores[name]), scores[name]))
	}
	p.printBox(title, strings.TrimSuffix(sb.String(), "\n"))
}

// PrintMatch prints the match percentage and the complete gap table of one role.
func (p *Printer) PrintMatch(result types.MatchResult) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Match: %d%%\n\n", result.MatchPercent))
	sb.WriteString(fmt.Sprintf("%-22s %8s %8s %8s\n", "Skill", "Current", "Required", "Gap"))
	for _, g := range result.Gaps {
		sb.WriteString(fmt.Sprintf("%-22s %8.2f %8.2f %8.2f\n", g.Skill, g.Current, g.Required, g.Gap))
	}
	p.printBox(strings.ToUpper(result.Role), strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRoles lists catalog roles with their requirement vectors.
func (p *Printer) PrintRoles(roles []types.Role) {
	var sb strings.Builder
	for i, role := range roles {
		reqs := make([]string, len(role.Requirements))
		for j, r := range role.Requirements {
			reqs[j] = fmt.Sprintf("%s %.0f", r.Skill, r.Required)
		}
		sb.WriteString(role.Name + "\n")
		sb.WriteString("    " + strings.Join(reqs, ", "))
		if i < len(roles)-1 {
			sb.WriteString("\n")
		}
	}
	p.printBox(fmt.Sprintf("ROLES (%d)", len(roles)), sb.String())
}

func bar(score float64) string {
	filled := int(score/100*barWidth + 0.5)
	filled = max(0, min(barWidth, filled))
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}
