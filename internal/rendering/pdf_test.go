package rendering

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillxpress/skillxpress/internal/types"
)

func TestRenderMonth(t *testing.T) {
	month := types.RoadmapMonth{
		MonthIndex:  2,
		Phase:       "Foundation",
		Role:        "Frontend Developer",
		Focus:       []string{"React", "JavaScript"},
		Project:     "Mini practice project",
		Content:     "## Goals\nLearn **React** basics.\n\n## Weekly Plan\n- Week 1: `useState`\n* Week 2: effects",
		GeneratedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	data, err := NewPDFRenderer("").RenderMonth(month)
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	assert.Greater(t, len(data), 500)
}

func TestRenderMonth_EmptyContent(t *testing.T) {
	data, err := NewPDFRenderer("Custom").RenderMonth(types.RoadmapMonth{MonthIndex: 1, Phase: "Foundation"})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestClassifyLine(t *testing.T) {
	tests := []struct {
		line string
		kind lineKind
		text string
	}{
		{"## Goals", lineHeading, "Goals"},
		{"# **Month** plan", lineHeading, "Month plan"},
		{"- Week 1: `hooks`", lineBullet, "Week 1: hooks"},
		{"* item", lineBullet, "item"},
		{"   ", lineBlank, ""},
		{"plain __text__", lineText, "plain text"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			kind, text := classifyLine(tt.line)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.text, text)
		})
	}
}

func TestMonthError(t *testing.T) {
	err := &MonthError{Month: 3, Stage: "layout", Cause: assert.AnError}
	assert.Equal(t, "render month 3: layout: "+assert.AnError.Error(), err.Error())
	assert.ErrorIs(t, err, assert.AnError)
}
