package allocation_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warp/textile-ops/allocation"
)

func TestFieldErrors_Flatten(t *testing.T) {
	errs := allocation.FieldErrors{}
	errs.Add("quantity", "Ensure this value is greater than or equal to 0.")
	errs.Add("batch", "This field is required.")
	errs.Add("batch", "Batch not found.")

	got := errs.Flatten(" | ")

	assert.Equal(t, "batch: This field is required. Batch not found. | quantity: Ensure this value is greater than or equal to 0.", got)
}

func TestFieldErrors_FlattenEmpty(t *testing.T) {
	assert.Equal(t, "", allocation.FieldErrors{}.Flatten("; "))
}

func TestErrorHelpers(t *testing.T) {
	wrapped := fmt.Errorf("load batch: %w", allocation.ErrBatchNotFound)
	assert.True(t, allocation.IsNotFound(wrapped))
	assert.False(t, allocation.IsClientError(wrapped))

	assert.True(t, allocation.IsClientError(allocation.FieldErrors{"unit": {"bad"}}))
	assert.True(t, allocation.IsClientError(fmt.Errorf("append: %w", allocation.ErrDuplicateID)))
}

func TestPeriod_Contains(t *testing.T) {
	p := allocation.Period{Start: "2025-01-01", End: "2025-01-31"}

	assert.True(t, p.Contains("2025-01-01"))
	assert.True(t, p.Contains("2025-01-31"))
	assert.False(t, p.Contains("2024-12-31"))
	assert.False(t, p.Contains("2025-02-01"))
	assert.True(t, allocation.Period{}.Contains("1970-01-01"))
	assert.True(t, allocation.Period{}.IsOpen())
}

func TestDuration(t *testing.T) {
	assert.Equal(t, 9, allocation.Duration("2025-03-01", "2025-03-10"))
	assert.Equal(t, 0, allocation.Duration("2025-03-01", "2025-03-01"))
	assert.Equal(t, 1, allocation.Duration("2025-03-01", ""))
	assert.Equal(t, 1, allocation.Duration("", ""))
	assert.Equal(t, 29, allocation.Duration("2024-02-01", "2024-03-01"))
}
