package allocation_test

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/textile-ops/allocation"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// newTestValidator returns a UTC validator whose "today" is 2025-01-01.
func newTestValidator() *allocation.Validator {
	now := time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC)
	return allocation.NewValidator(time.UTC).WithClock(func() time.Time { return now })
}

func strp(s string) *string { return &s }

// =============================================================================
// ORDERING
// =============================================================================

func TestValidateDates_StartAfterEnd_FlagsBothFields(t *testing.T) {
	// GIVEN: today is 2025-01-01
	// WHEN: start 2025-01-10 is after end 2025-01-05
	// THEN: both fields carry the cross-field messages
	v := newTestValidator()

	res := v.ValidateDates(strp("2025-01-10"), strp("2025-01-05"))

	assert.False(t, res.Valid)
	assert.Equal(t, allocation.ErrMsgStartAfterEnd, res.Errors.Start)
	assert.Equal(t, allocation.ErrMsgEndBeforeStart, res.Errors.End)
	assert.Equal(t, "2025-01-10", res.Normalized.Start)
	assert.Equal(t, "2025-01-05", res.Normalized.End)
}

func TestValidateDates_OrderedRange_Valid(t *testing.T) {
	v := newTestValidator()

	res := v.ValidateDates(strp("2025-01-05"), strp("2025-01-10"))

	assert.True(t, res.Valid)
	assert.True(t, res.Errors.Empty())
	assert.LessOrEqual(t, res.Normalized.Start, res.Normalized.End)
}

func TestValidateDates_SameDay_Valid(t *testing.T) {
	v := newTestValidator()

	res := v.ValidateDates(strp("2025-02-01"), strp("2025-02-01"))

	assert.True(t, res.Valid)
}

func TestValidateDates_PastDatesInWrongOrder_OnlyPastErrors(t *testing.T) {
	// GIVEN: both dates are in the past and out of order
	// THEN: each field reports the past-date rule; ordering is only checked
	//       between individually valid dates
	v := newTestValidator()

	res := v.ValidateDates(strp("2024-12-30"), strp("2024-12-29"))

	assert.False(t, res.Valid)
	assert.Equal(t, allocation.ErrMsgStartInPast, res.Errors.Start)
	assert.Equal(t, allocation.ErrMsgEndInPast, res.Errors.End)
}

// =============================================================================
// PAST DATES
// =============================================================================

func TestValidateDates_PastDate_RejectedInEitherField(t *testing.T) {
	v := newTestValidator()

	start := v.ValidateDates(strp("2024-12-31"), nil)
	assert.False(t, start.Valid)
	assert.Equal(t, allocation.ErrMsgStartInPast, start.Errors.Start)
	assert.Empty(t, start.Errors.End)

	end := v.ValidateDates(nil, strp("2024-06-15"))
	assert.False(t, end.Valid)
	assert.Equal(t, allocation.ErrMsgEndInPast, end.Errors.End)
	assert.Empty(t, end.Errors.Start)
}

func TestValidateDates_Today_IsNotPast(t *testing.T) {
	v := newTestValidator()

	res := v.ValidateDates(strp("2025-01-01"), nil)

	assert.True(t, res.Valid)
}

func TestValidateDates_TodayFollowsValidatorLocation(t *testing.T) {
	// GIVEN: 2025-01-01 02:00 UTC is still 2024-12-31 in New York
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	now := time.Date(2025, 1, 1, 2, 0, 0, 0, time.UTC)
	v := allocation.NewValidator(loc).WithClock(func() time.Time { return now })

	// THEN: 2024-12-31 is today there, not the past
	assert.Equal(t, "2024-12-31", v.Today())
	assert.True(t, v.ValidateDates(strp("2024-12-31"), nil).Valid)
}

// =============================================================================
// FORMAT
// =============================================================================

func TestValidateDates_NonISOFormat_Rejected(t *testing.T) {
	v := newTestValidator()

	res := v.ValidateDates(strp("31/12/2025"), nil)

	assert.False(t, res.Valid)
	assert.Equal(t, allocation.ErrMsgDateFormat, res.Errors.Start)
	assert.Empty(t, res.Normalized.Start)
}

func TestValidateDates_Garbage_Rejected(t *testing.T) {
	v := newTestValidator()

	res := v.ValidateDates(strp("2025-01-10"), strp("next tuesday"))

	assert.False(t, res.Valid)
	assert.Empty(t, res.Errors.Start)
	assert.Equal(t, allocation.ErrMsgDateFormat, res.Errors.End)
}

func TestNormalize_LooseFormats(t *testing.T) {
	v := newTestValidator()

	cases := map[string]string{
		"2025-03-01T10:00:00Z":      "2025-03-01",
		"2025-03-01T23:30:00-05:00": "2025-03-02", // converted to UTC first
		"2025-03-01 08:15:00":       "2025-03-01",
		"2025/03/01":                "2025-03-01",
		"12/31/2025":                "2025-12-31",
		"Mar 1, 2025":               "2025-03-01",
		"  2025-03-01  ":            "2025-03-01",
	}
	for raw, want := range cases {
		got, ok := v.Normalize(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}
}

func TestNormalize_CanonicalIsIdempotent(t *testing.T) {
	v := newTestValidator()

	for _, d := range []string{"2025-01-01", "2030-12-31", "1999-02-28", "2024-02-29"} {
		once, ok := v.Normalize(d)
		require.True(t, ok)
		assert.Equal(t, d, once)

		twice, ok := v.Normalize(once)
		require.True(t, ok)
		assert.Equal(t, once, twice)
	}
}

// =============================================================================
// ABSENT VALUES
// =============================================================================

func TestValidateDates_NoDates_TriviallyValid(t *testing.T) {
	v := newTestValidator()

	res := v.ValidateDates(nil, nil)

	assert.True(t, res.Valid)
	assert.Empty(t, res.Normalized.Start)
	assert.Empty(t, res.Normalized.End)
}

func TestValidateDates_BlankTreatedAsAbsent(t *testing.T) {
	v := newTestValidator()

	res := v.ValidateDates(strp(""), strp("   "))

	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors.Start)
	assert.Empty(t, res.Errors.End)
	assert.Empty(t, res.Normalized.Start)
	assert.Empty(t, res.Normalized.End)
}
