package types

import "errors"

var (
	// ErrNotFound is returned when a task or member id is unknown.
	ErrNotFound = errors.New("not found")

	// ErrInvalid marks input that failed validation.
	ErrInvalid = errors.New("invalid input")

	// ErrOffline is returned by operations that need the remote store
	// while it is unreachable.
	ErrOffline = errors.New("remote store unreachable")
)
