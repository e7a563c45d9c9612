package history

import "errors"

// Sentinel errors returned by repository operations.
//
// Callers should use errors.Is for comparison:
//
//	if errors.Is(err, history.ErrExecutionNotFound) {
//	    // handle missing execution
//	}
var (
	// ErrExecutionNotFound is returned when an execution ID does not
	// exist in the store.
	ErrExecutionNotFound = errors.New("history: execution not found")
)
