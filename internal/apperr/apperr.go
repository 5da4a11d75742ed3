// Package apperr defines the failure categories every service returns.
// Callers classify with errors.Is against the sentinels; the wrapped
// message carries the human-readable reason.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized: the actor lacks the role or relationship for the
	// action (not the poster, not a party to the task, not an admin).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidState: the action was attempted outside its legal status
	// set, e.g. confirming an already-completed task.
	ErrInvalidState = errors.New("invalid state")

	// ErrValidation: malformed input (non-positive reward, past due
	// date, out-of-range score, missing fields).
	ErrValidation = errors.New("validation failed")

	// ErrConflict: a concurrent-update loser or duplicate insert
	// (duplicate pending request, approve race, duplicate title).
	ErrConflict = errors.New("conflict")

	// ErrNotFound: the referenced task, request, or user is absent.
	ErrNotFound = errors.New("not found")
)

func Unauthorized(format string, args ...any) error {
	return wrap(ErrUnauthorized, format, args...)
}

func InvalidState(format string, args ...any) error {
	return wrap(ErrInvalidState, format, args...)
}

func Validation(format string, args ...any) error {
	return wrap(ErrValidation, format, args...)
}

func Conflict(format string, args ...any) error {
	return wrap(ErrConflict, format, args...)
}

func NotFound(format string, args ...any) error {
	return wrap(ErrNotFound, format, args...)
}

func wrap(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), sentinel)
}
