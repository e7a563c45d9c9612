package program

import (
	"github.com/lumen-labs/lumen-core/internal/command"
)

// Status is the lifecycle state of a program execution.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Step is one program entry: a command plus how long to hold it. A
// nil Duration holds the step until something external intervenes;
// the one exception is a pulse pattern step, which advances when the
// pulse finishes.
type Step struct {
	ID       string          `json:"id"`
	Command  command.Command `json:"command"`
	Duration *int64          `json:"duration"` // milliseconds, null for indefinite
}

// Loop repeats the window [StartStep, EndStep]. Count 0 repeats the
// window forever; Count N runs it N times in total before execution
// falls through to the step after EndStep.
type Loop struct {
	Count     int    `json:"count"`
	StartStep string `json:"start_step"`
	EndStep   string `json:"end_step"`
}

// Hook wraps the command run when a program completes or is
// cancelled.
type Hook struct {
	Command command.Command `json:"command"`
}

// Program is a named sequence of timed steps with an optional loop
// window and completion hooks.
type Program struct {
	Name       string `json:"name"`
	Steps      []Step `json:"steps"`
	Loop       *Loop  `json:"loop,omitempty"`
	OnComplete *Hook  `json:"on_complete,omitempty"`
	OnCancel   *Hook  `json:"on_cancel,omitempty"`
}

// Envelope is the wire wrapper around a program submission.
type Envelope struct {
	Program Program `json:"program"`
}

// StatusView is the scheduler's answer to a status query.
type StatusView struct {
	Status          Status `json:"status"`
	ExecutionID     string `json:"execution_id,omitempty"`
	ProgramName     string `json:"program_name,omitempty"`
	CurrentStepID   string `json:"current_step_id,omitempty"`
	LoopIteration   int    `json:"loop_iteration"`
	ElapsedMsInStep int64  `json:"elapsed_ms_in_step"`
}
