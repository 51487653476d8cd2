package jobs

import "errors"

var (
	// ErrNotFound is returned when no job exists for the given id.
	ErrNotFound = errors.New("job not found")

	// ErrInvalidRequest is returned for an unknown kind or a subject
	// count that does not match the kind.
	ErrInvalidRequest = errors.New("invalid job request")

	// ErrClosed is returned when scheduling after shutdown.
	ErrClosed = errors.New("scheduler closed")
)
