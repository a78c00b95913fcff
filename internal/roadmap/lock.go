package roadmap

import (
	"time"

	"github.com/skillxpress/skillxpress/internal/types"
)

// SameCalendarMonth reports whether a and b fall in the same UTC calendar month.
func SameCalendarMonth(a, b time.Time) bool {
	a, b = a.UTC(), b.UTC()
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// UntilNextMonth returns the time left before the next UTC calendar month starts.
func UntilNextMonth(now time.Time) time.Duration {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	return next.Sub(now)
}

// CheckMonthlyLock rejects generation when the last month was generated in
// the current calendar month.
func CheckMonthlyLock(state *types.RoadmapState, now time.Time) error {
	if state == nil || state.LastGeneratedAt == nil {
		return nil
	}
	if SameCalendarMonth(*state.LastGeneratedAt, now) {
		return tooSoon(now)
	}
	return nil
}

func tooSoon(now time.Time) error {
	return &types.TooSoonError{Operation: "roadmap generation", Remaining: UntilNextMonth(now)}
}
