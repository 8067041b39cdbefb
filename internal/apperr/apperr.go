package apperr

import (
	"errors"
	"fmt"
)

// Sentinel errors forming the service taxonomy. Services wrap these with
// context via fmt.Errorf("...: %w", ...); the HTTP layer maps them to
// status codes in one place.
var (
	// ErrAuthRequired: a caller-scoped operation ran without an
	// authenticated user. Always propagated, never defaulted.
	ErrAuthRequired = errors.New("authentication required")

	// ErrNotFound: a referenced profile/conversation is absent.
	ErrNotFound = errors.New("not found")

	// ErrValidation: bad input (empty message text, missing fields,
	// self-like).
	ErrValidation = errors.New("validation failed")

	// ErrConflict: a uniqueness constraint rejected the write
	// (duplicate email).
	ErrConflict = errors.New("conflict")

	// ErrStoreUnavailable: transient backend failure. Read paths swallow
	// it and return empty results; write paths surface it.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Validation wraps ErrValidation with a reason.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// NotFound wraps ErrNotFound with a reason.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
}

// Conflict wraps ErrConflict with a reason.
func Conflict(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConflict}, args...)...)
}
