package filter

import (
	"strings"
)

// Badge is one entry of the active-filters summary.
type Badge struct {
	Dimension string `json:"dimension"`
	Label     string `json:"label"`
}

// ActiveFilters projects s into summary badges. The date range is always
// shown; report types, departments and priorities only with a non-empty
// selection; the shift only when it is not every shift.
func (s State) ActiveFilters() []Badge {
	badges := []Badge{{Dimension: "dateRange", Label: s.dateLabel()}}

	if len(s.ReportTypes) > 0 {
		badges = append(badges, Badge{Dimension: string(DimReportTypes), Label: "Report types: " + strings.Join(s.ReportTypes, ", ")})
	}
	if len(s.Departments) > 0 {
		badges = append(badges, Badge{Dimension: string(DimDepartments), Label: "Departments: " + strings.Join(s.Departments, ", ")})
	}
	if len(s.Priorities) > 0 {
		badges = append(badges, Badge{Dimension: string(DimPriorities), Label: "Priorities: " + strings.Join(s.Priorities, ", ")})
	}
	if s.Shift != "" && s.Shift != ShiftAll {
		badges = append(badges, Badge{Dimension: "shifts", Label: "Shift: " + s.Shift})
	}
	return badges
}

func (s State) dateLabel() string {
	dr := s.DateRange
	if dr.Preset != "" && dr.Preset != PresetCustom {
		return dr.Preset.Label()
	}
	switch {
	case dr.Start != "" && dr.End != "":
		return dr.Start + " to " + dr.End
	case dr.Start != "":
		return "From " + dr.Start
	case dr.End != "":
		return "Until " + dr.End
	default:
		return "All dates"
	}
}
