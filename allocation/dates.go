/*
dates.go - Date range validation for workforce allocations

PURPOSE:
  Normalizes loose start/end date input into canonical YYYY-MM-DD days and
  checks the two rules an allocation window must satisfy before submission.

NORMALIZATION:
  - Already canonical (YYYY-MM-DD): accepted as-is
  - Otherwise: tried against a fixed list of common layouts; the parsed
    instant is converted to the validator's location and its calendar day
    is used
  - Nothing matches: the field fails with ErrMsgDateFormat

RULES:
  1. No past dates: a day strictly before today fails
  2. Ordering: when both days are present and individually valid and
     start > end, BOTH fields fail. The UI flags both inputs, so the
     failure is never collapsed onto a single field.

RESULT:
  Failures are returned as data, never as an error. Valid is true iff no
  field failed, so supplying no dates at all is valid.

SEE ALSO:
  - payload.go: Uses the validator when preparing allocations
*/
package allocation

import (
	"regexp"
	"strings"
	"time"
)

const (
	ErrMsgDateFormat     = "Date has wrong format. Use YYYY-MM-DD (e.g., 2025-12-31)."
	ErrMsgStartInPast    = "Start date cannot be in the past."
	ErrMsgEndInPast      = "End date cannot be in the past."
	ErrMsgStartAfterEnd  = "Start date cannot be after end date."
	ErrMsgEndBeforeStart = "End date cannot be before start date."
)

var canonicalDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Layouts tried, in order, for input that is not already canonical.
var looseLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.UnixDate,
	time.ANSIC,
}

// DateErrors holds per-field messages. Empty means the field is valid.
type DateErrors struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

func (e DateErrors) Empty() bool { return e.Start == "" && e.End == "" }

// NormalizedDates holds canonical days. Empty means absent or unparseable.
type NormalizedDates struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// DateValidation is the outcome of ValidateDates.
type DateValidation struct {
	Valid      bool            `json:"valid"`
	Errors     DateErrors      `json:"errors"`
	Normalized NormalizedDates `json:"normalized"`
}

// Validator checks allocation date ranges against "today" in a location.
type Validator struct {
	loc *time.Location
	now func() time.Time
}

// NewValidator returns a validator for loc. A nil loc means time.Local.
func NewValidator(loc *time.Location) *Validator {
	if loc == nil {
		loc = time.Local
	}
	return &Validator{loc: loc, now: time.Now}
}

// WithClock returns a copy of v that reads the current time from now.
func (v *Validator) WithClock(now func() time.Time) *Validator {
	return &Validator{loc: v.loc, now: now}
}

// Today is the current calendar day in the validator's location.
func (v *Validator) Today() string {
	return CalendarDay(v.now(), v.loc)
}

// Normalize converts raw into a canonical day. ok is false when raw cannot
// be parsed.
func (v *Validator) Normalize(raw string) (day string, ok bool) {
	raw = strings.TrimSpace(raw)
	if canonicalDate.MatchString(raw) {
		return raw, true
	}
	for _, layout := range looseLayouts {
		t, err := time.ParseInLocation(layout, raw, v.loc)
		if err == nil {
			return CalendarDay(t, v.loc), true
		}
	}
	return "", false
}

// ValidateDates validates an optional start/end pair. A nil or blank value
// is treated as absent.
func (v *Validator) ValidateDates(startRaw, endRaw *string) DateValidation {
	var (
		result DateValidation
		today  = v.Today()
	)

	start, startPresent := v.field(startRaw, ErrMsgStartInPast, today, &result.Normalized.Start, &result.Errors.Start)
	end, endPresent := v.field(endRaw, ErrMsgEndInPast, today, &result.Normalized.End, &result.Errors.End)

	if startPresent && endPresent &&
		result.Errors.Start == "" && result.Errors.End == "" &&
		start > end {
		result.Errors.Start = ErrMsgStartAfterEnd
		result.Errors.End = ErrMsgEndBeforeStart
	}

	result.Valid = result.Errors.Empty()
	return result
}

func (v *Validator) field(raw *string, pastMsg, today string, normalized, errMsg *string) (string, bool) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return "", false
	}
	day, ok := v.Normalize(*raw)
	if !ok {
		*errMsg = ErrMsgDateFormat
		return "", true
	}
	*normalized = day
	if day < today {
		*errMsg = pastMsg
	}
	return day, true
}
