/*
Package filter normalizes report filter controls into a canonical state.

PURPOSE:
  The report screens drive their queries from a filter object assembled by
  many controls: date preset buttons, multi-select toggles and dropdowns.
  This package owns that object: its defaults, the preset expansion, the
  membership toggle, a tolerant decoder for partially populated input, the
  canonical query form and the "active filters" summary.

KEY TYPES:
  State:  The canonical filter state
  Raw:    Wire form where every sub-field may be absent
  Badge:  One entry of the active-filters summary

LIFECYCLE:
  Created with Defaults when a report screen opens, mutated by user
  interaction, never persisted beyond the session. The server side receives
  it either as a Raw JSON body or as a canonical query string.

SEE ALSO:
  - report/service.go: Uses State.Window to select allocations
  - api/handlers.go: HTTP surface (NormalizeFilter, ApplyFilterPreset, ToggleFilterValue)
*/
package filter

import (
	"time"

	"github.com/warp/textile-ops/allocation"
)

// Preset is a named relative date range.
type Preset string

const (
	Preset7Days   Preset = "7d"
	Preset30Days  Preset = "30d"
	Preset3Months Preset = "3m"
	Preset6Months Preset = "6m"
	Preset1Year   Preset = "1y"
	PresetCustom  Preset = "custom"
)

// Presets lists the presets in button order.
var Presets = []Preset{Preset7Days, Preset30Days, Preset3Months, Preset6Months, Preset1Year, PresetCustom}

func (p Preset) Valid() bool {
	for _, known := range Presets {
		if p == known {
			return true
		}
	}
	return false
}

// Label is the human-readable name of the preset.
func (p Preset) Label() string {
	switch p {
	case Preset7Days:
		return "Last 7 days"
	case Preset30Days:
		return "Last 30 days"
	case Preset3Months:
		return "Last 3 months"
	case Preset6Months:
		return "Last 6 months"
	case Preset1Year:
		return "Last year"
	case PresetCustom:
		return "Custom range"
	default:
		return string(p)
	}
}

// startFrom subtracts the preset's calendar interval from now.
func (p Preset) startFrom(now time.Time) (time.Time, bool) {
	switch p {
	case Preset7Days:
		return now.AddDate(0, 0, -7), true
	case Preset30Days:
		return now.AddDate(0, 0, -30), true
	case Preset3Months:
		return now.AddDate(0, -3, 0), true
	case Preset6Months:
		return now.AddDate(0, -6, 0), true
	case Preset1Year:
		return now.AddDate(-1, 0, 0), true
	default:
		return time.Time{}, false
	}
}

// Defaults for the single-select controls.
const (
	ShiftAll           = "all"
	DefaultGranularity = "daily"
	DefaultExport      = "pdf"
	DefaultPreset      = Preset30Days
)

// DateRange is the selected window. Start and End are canonical days.
type DateRange struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Preset Preset `json:"preset"`
}

// State is the canonical report filter state.
type State struct {
	DateRange          DateRange `json:"dateRange"`
	ReportTypes        []string  `json:"reportTypes"`
	Departments        []string  `json:"departments"`
	Priorities         []string  `json:"priorities"`
	ProcessTypes       []string  `json:"processTypes"`
	Shift              string    `json:"shifts"`
	Granularity        string    `json:"granularity"`
	ExportFormat       string    `json:"exportFormat"`
	IncludeComparisons bool      `json:"includeComparisons"`
}

// Defaults returns the state a report screen opens with: the last 30 days,
// every shift, daily granularity, PDF export.
func Defaults(now time.Time) State {
	s := State{
		ReportTypes:  []string{},
		Departments:  []string{},
		Priorities:   []string{},
		ProcessTypes: []string{},
		Shift:        ShiftAll,
		Granularity:  DefaultGranularity,
		ExportFormat: DefaultExport,
	}
	s.ApplyPreset(DefaultPreset, now)
	return s
}

// ApplyPreset selects p. A non-custom preset recomputes Start and End from
// now; custom only changes the tag and keeps the current dates. It returns
// false, leaving s unchanged, for an unknown preset.
func (s *State) ApplyPreset(p Preset, now time.Time) bool {
	if p == PresetCustom {
		s.DateRange.Preset = p
		return true
	}
	start, ok := p.startFrom(now)
	if !ok {
		return false
	}
	s.DateRange = DateRange{
		Start:  start.Format(allocation.DateLayout),
		End:    now.Format(allocation.DateLayout),
		Preset: p,
	}
	return true
}

// SetCustomRange sets explicit dates and switches the preset to custom.
func (s *State) SetCustomRange(start, end string) {
	s.DateRange = DateRange{Start: start, End: end, Preset: PresetCustom}
}

// Window returns the date range as an allocation period.
func (s State) Window() allocation.Period {
	return allocation.Period{Start: s.DateRange.Start, End: s.DateRange.End}
}
