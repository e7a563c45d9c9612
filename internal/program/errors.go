package program

import "errors"

// Domain errors for the program package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, program.ErrValidation) {
//	    // reject the submission, nothing was started
//	}
var (
	// ErrValidation is the umbrella error for malformed programs.
	// Start rejects these synchronously before any state mutation.
	ErrValidation = errors.New("program: validation failed")

	// ErrNotRunning is returned by Pause and Cancel when no program
	// is active.
	ErrNotRunning = errors.New("program: not running")

	// ErrNotPaused is returned by Resume when the program is not
	// paused.
	ErrNotPaused = errors.New("program: not paused")
)
