package domain

import "errors"

var (
	// ErrNotFound is returned when a list or entry does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned when an operation requires an identity
	// and none was provided.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrPermissionDenied is returned when the resolved role lacks the
	// required capability.
	ErrPermissionDenied = errors.New("permission denied")
)
