package domain

import "errors"

var (
	// ErrValidation marks malformed or semantically invalid input.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a missing entity lookup.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a state transition rejected by current entity state.
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized marks a failed webhook signature check.
	ErrUnauthorized = errors.New("unauthorized")
)
