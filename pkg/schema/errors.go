package schema

import "errors"

var (
	// ErrAccessDenied is returned when the caller lacks the requested capability.
	ErrAccessDenied = errors.New("access denied")
	// ErrInvalidTransition is returned when a status change is not allowed by the workflow.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrGrantExpired is returned when a requested grant exists but has expired.
	ErrGrantExpired = errors.New("grant expired")
	// ErrNotFound is returned when a document, grant or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation is returned for malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict is returned when an optimistic version check fails or a
	// resource is in a state that forbids the operation.
	ErrConflict = errors.New("conflict")
	// ErrUnauthenticated is returned when no identity could be resolved for a request.
	ErrUnauthenticated = errors.New("unauthenticated")
)
