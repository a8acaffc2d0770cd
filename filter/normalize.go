package filter

import (
	"net/url"
	"sort"
	"strings"
)

// =============================================================================
// TOGGLE
// =============================================================================

// Toggle removes value from selection when present and appends it otherwise.
// Membership decides, not position, so the result never holds duplicates of
// value. selection is not modified.
func Toggle(selection []string, value string) []string {
	out := make([]string, 0, len(selection)+1)
	found := false
	for _, v := range selection {
		if v == value {
			found = true
			continue
		}
		out = append(out, v)
	}
	if !found {
		out = append(out, value)
	}
	return out
}

// Dimension names a multi-select control.
type Dimension string

const (
	DimReportTypes  Dimension = "reportTypes"
	DimDepartments  Dimension = "departments"
	DimPriorities   Dimension = "priorities"
	DimProcessTypes Dimension = "processTypes"
)

func (s *State) selection(d Dimension) *[]string {
	switch d {
	case DimReportTypes:
		return &s.ReportTypes
	case DimDepartments:
		return &s.Departments
	case DimPriorities:
		return &s.Priorities
	case DimProcessTypes:
		return &s.ProcessTypes
	default:
		return nil
	}
}

// ToggleDimension toggles value in the selection for d. It returns false for
// an unknown dimension.
func (s *State) ToggleDimension(d Dimension, value string) bool {
	sel := s.selection(d)
	if sel == nil {
		return false
	}
	*sel = Toggle(*sel, value)
	return true
}

// =============================================================================
// TOLERANT DECODING
// =============================================================================

// Raw is the filter object as different callers send it: any sub-field may
// be missing.
type Raw struct {
	DateRange          *DateRange `json:"dateRange,omitempty"`
	ReportTypes        []string   `json:"reportTypes,omitempty"`
	Departments        []string   `json:"departments,omitempty"`
	Priorities         []string   `json:"priorities,omitempty"`
	ProcessTypes       []string   `json:"processTypes,omitempty"`
	Shifts             *string    `json:"shifts,omitempty"`
	Granularity        *string    `json:"granularity,omitempty"`
	ExportFormat       *string    `json:"exportFormat,omitempty"`
	IncludeComparisons *bool      `json:"includeComparisons,omitempty"`
}

// Normalize builds a State from raw, substituting "" and [] for absent
// fields. Multi-select values are trimmed, blanks dropped and duplicates
// collapsed to their first occurrence.
func Normalize(raw Raw) State {
	s := State{
		ReportTypes:  clean(raw.ReportTypes),
		Departments:  clean(raw.Departments),
		Priorities:   clean(raw.Priorities),
		ProcessTypes: clean(raw.ProcessTypes),
		Shift:        deref(raw.Shifts),
		Granularity:  deref(raw.Granularity),
		ExportFormat: deref(raw.ExportFormat),
	}
	if raw.DateRange != nil {
		s.DateRange = DateRange{
			Start:  strings.TrimSpace(raw.DateRange.Start),
			End:    strings.TrimSpace(raw.DateRange.End),
			Preset: raw.DateRange.Preset,
		}
	}
	if raw.IncludeComparisons != nil {
		s.IncludeComparisons = *raw.IncludeComparisons
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func clean(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// =============================================================================
// CANONICAL QUERY
// =============================================================================

const (
	qStart       = "start_date"
	qEnd         = "end_date"
	qPreset      = "preset"
	qReportTypes = "report_types"
	qDepartments = "departments"
	qPriorities  = "priorities"
	qProcesses   = "process_types"
	qShift       = "shift"
	qGranularity = "granularity"
	qExport      = "export_format"
	qComparisons = "include_comparisons"
)

// Query renders s as canonical query parameters: empty values and the
// default shift are omitted and multi-select values are sorted and
// comma-joined, so equal selections yield equal queries.
func (s State) Query() url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set(qStart, s.DateRange.Start)
	set(qEnd, s.DateRange.End)
	set(qPreset, string(s.DateRange.Preset))
	set(qReportTypes, joinSorted(s.ReportTypes))
	set(qDepartments, joinSorted(s.Departments))
	set(qPriorities, joinSorted(s.Priorities))
	set(qProcesses, joinSorted(s.ProcessTypes))
	if s.Shift != ShiftAll {
		set(qShift, s.Shift)
	}
	set(qGranularity, s.Granularity)
	set(qExport, s.ExportFormat)
	if s.IncludeComparisons {
		q.Set(qComparisons, "true")
	}
	return q
}

// FromQuery is the inverse of Query. A missing shift means every shift.
func FromQuery(q url.Values) State {
	s := State{
		DateRange: DateRange{
			Start:  strings.TrimSpace(q.Get(qStart)),
			End:    strings.TrimSpace(q.Get(qEnd)),
			Preset: Preset(q.Get(qPreset)),
		},
		ReportTypes:  splitList(q.Get(qReportTypes)),
		Departments:  splitList(q.Get(qDepartments)),
		Priorities:   splitList(q.Get(qPriorities)),
		ProcessTypes: splitList(q.Get(qProcesses)),
		Shift:        q.Get(qShift),
		Granularity:  q.Get(qGranularity),
		ExportFormat: q.Get(qExport),
	}
	if s.Shift == "" {
		s.Shift = ShiftAll
	}
	s.IncludeComparisons = q.Get(qComparisons) == "true"
	return s
}

func joinSorted(values []string) string {
	sorted := append([]string(nil), values...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

func splitList(v string) []string {
	if v == "" {
		return []string{}
	}
	return clean(strings.Split(v, ","))
}
