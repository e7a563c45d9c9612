package history

import (
	"context"
	"time"
)

// Listing limits applied by repository implementations.
const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// PatternEvent is one completed pattern run: the pattern started at
// StartedAt and stopped (or finished on its own) at StoppedAt.
type PatternEvent struct {
	// ID is the auto-incremented primary key for the event row.
	ID int64 `json:"id"`

	// Pattern is the pattern name that ran.
	Pattern string `json:"pattern"`

	// Params holds the parameters the pattern was started with.
	Params map[string]any `json:"params,omitempty"`

	// StartedAt is when the pattern began (UTC).
	StartedAt time.Time `json:"started_at"`

	// StoppedAt is when the pattern stopped (UTC).
	StoppedAt time.Time `json:"stopped_at"`
}

// Execution is the persisted record of one program run. A row is
// created when the program starts and finalised when it completes or
// is cancelled; a row whose EndedAt is nil never reached a terminal
// state before shutdown.
type Execution struct {
	// ID is the unique execution identifier assigned at start.
	ID string `json:"id"`

	// ProgramName is the name of the program that ran.
	ProgramName string `json:"program_name"`

	// Status mirrors the scheduler's view (running, completed, cancelled).
	Status string `json:"status"`

	// StartedAt is when the execution began (UTC).
	StartedAt time.Time `json:"started_at"`

	// EndedAt is when the execution reached a terminal state, nil while
	// running.
	EndedAt *time.Time `json:"ended_at,omitempty"`

	// StepsRun counts step entries over the whole execution.
	StepsRun int `json:"steps_run"`

	// LoopIterations is the final loop pass count, zero for loop-free
	// programs.
	LoopIterations int `json:"loop_iterations"`
}

// Repository stores and retrieves lamp activity history.
// This abstraction allows different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
//
// Implementations must be safe for concurrent use and store UTC
// timestamps.
type Repository interface {
	// Pattern runs
	RecordPatternEvent(ctx context.Context, ev PatternEvent) error
	ListPatternEvents(ctx context.Context, limit int) ([]PatternEvent, error)

	// Program executions
	CreateExecution(ctx context.Context, exec Execution) error
	UpdateExecution(ctx context.Context, exec Execution) error
	GetExecution(ctx context.Context, id string) (Execution, error)
	ListExecutions(ctx context.Context, limit int) ([]Execution, error)

	// Prune deletes rows older than the given retention window and
	// returns how many were removed.
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}
