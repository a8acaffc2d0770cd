/*
errors.go - Error types for allocation persistence and submission

PURPOSE:
  Validation inside this package never fails with an error value; its
  outcome is data (DateValidation, FieldErrors). The errors here are for
  the layers around it: stores and the HTTP API.

ERROR CATEGORIES:
  1. Store errors - missing references, duplicate ids
  2. Field errors - per-field messages, flattened for display

SEE ALSO:
  - store.go: Interfaces returning these errors
  - api/handlers.go: Maps them to HTTP status codes
*/
package allocation

import (
	"errors"
	"sort"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrBatchNotFound is returned when a referenced batch doesn't exist.
	ErrBatchNotFound = errors.New("batch not found")

	// ErrUserNotFound is returned when a referenced user doesn't exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateID is returned when a record with the same id already exists.
	ErrDuplicateID = errors.New("duplicate id")

	// ErrInvalidAllocation is returned when a payload fails field validation.
	ErrInvalidAllocation = errors.New("invalid allocation")
)

// =============================================================================
// FIELD ERRORS
// =============================================================================

// FieldErrors maps a field name to one or more messages.
type FieldErrors map[string][]string

// Add appends a message for field.
func (fe FieldErrors) Add(field, message string) {
	fe[field] = append(fe[field], message)
}

func (fe FieldErrors) Empty() bool { return len(fe) == 0 }

// Flatten joins "field: message" pairs with sep, fields sorted by name and
// multiple messages for a field joined with a space.
func (fe FieldErrors) Flatten(sep string) string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+strings.Join(fe[f], " "))
	}
	return strings.Join(parts, sep)
}

// Error makes FieldErrors usable as an error; it unwraps to ErrInvalidAllocation.
func (fe FieldErrors) Error() string { return fe.Flatten("; ") }

func (fe FieldErrors) Unwrap() error { return ErrInvalidAllocation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing reference.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrBatchNotFound) || errors.Is(err, ErrUserNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAllocation) || errors.Is(err, ErrDuplicateID)
}
