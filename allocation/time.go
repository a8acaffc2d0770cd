package allocation

import (
	"time"
)

// =============================================================================
// CALENDAR DAYS - Canonical YYYY-MM-DD strings
// =============================================================================

// DateLayout is the canonical calendar-day layout used on the wire and in storage.
const DateLayout = "2006-01-02"

// CalendarDay returns the calendar day of t in loc, in canonical form.
func CalendarDay(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateLayout)
}

// ParseDay parses a canonical calendar day.
func ParseDay(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

func DaysBetween(from, to time.Time) int {
	from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	to = time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// Duration returns end minus start in days when both dates are present and
// parse, otherwise 1.
func Duration(start, end string) int {
	if start == "" || end == "" {
		return 1
	}
	s, err := ParseDay(start)
	if err != nil {
		return 1
	}
	e, err := ParseDay(end)
	if err != nil {
		return 1
	}
	return DaysBetween(s, e)
}

// =============================================================================
// PERIOD - Inclusive window of calendar days
// =============================================================================

// Period is the inclusive window [Start, End]. An empty bound is open.
type Period struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// Contains reports whether day falls inside the window. Canonical days order
// lexicographically, so plain string comparison is enough.
func (p Period) Contains(day string) bool {
	if p.Start != "" && day < p.Start {
		return false
	}
	if p.End != "" && day > p.End {
		return false
	}
	return true
}

func (p Period) IsOpen() bool { return p.Start == "" && p.End == "" }

func (p Period) String() string {
	return "[" + p.Start + ", " + p.End + "]"
}

// EffectiveDay is the day used to place a workforce allocation in a window:
// its start date, or the day it was created when no start date was given.
func (w WorkforceAllocation) EffectiveDay() string {
	if w.StartDate != "" {
		return w.StartDate
	}
	return w.CreatedAt.UTC().Format(DateLayout)
}

// EffectiveDay is the day a material allocation was recorded.
func (m MaterialAllocation) EffectiveDay() string {
	return m.CreatedAt.UTC().Format(DateLayout)
}
