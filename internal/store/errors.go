package store

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors. Callers wrap them with detail and match with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation error")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrConflict          = errors.New("conflict")
)

// newID returns a fresh opaque identifier.
func newID() string {
	return uuid.NewString()
}

// now returns the current time in UTC; overridden in tests.
var now = func() time.Time {
	return time.Now().UTC()
}

// boolInt converts a bool to SQLite's integer representation.
func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
