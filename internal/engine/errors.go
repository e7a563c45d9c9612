package engine

import "errors"

// Domain errors for the engine package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, engine.ErrStopped) {
//	    // engine has shut down, command was not applied
//	}
var (
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("engine: already started")

	// ErrNotStarted is returned when a command arrives before Start.
	ErrNotStarted = errors.New("engine: not started")

	// ErrStopped is returned when a command arrives after shutdown.
	ErrStopped = errors.New("engine: stopped")
)
