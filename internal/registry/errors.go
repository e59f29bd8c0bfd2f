package registry

import "errors"

var (
	// ErrStopped is returned when an operation is submitted after Run has
	// returned.
	ErrStopped = errors.New("registry: stopped")

	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("registry: already running")
)
