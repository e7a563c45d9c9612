package program

import "time"

// EventKind names a program lifecycle moment.
type EventKind string

const (
	EventStarted   EventKind = "started"
	EventStep      EventKind = "step"
	EventPaused    EventKind = "paused"
	EventResumed   EventKind = "resumed"
	EventCompleted EventKind = "completed"
	EventCancelled EventKind = "cancelled"
)

// StatusEvent describes one lifecycle moment of one execution.
// StepsRun and LoopIteration are running totals, so terminal events
// carry the final tallies.
type StatusEvent struct {
	Kind          EventKind `json:"kind"`
	ExecutionID   string    `json:"execution_id"`
	Program       string    `json:"program"`
	Status        Status    `json:"status"`
	StepID        string    `json:"step_id,omitempty"`
	LoopIteration int       `json:"loop_iteration,omitempty"`
	StepsRun      int       `json:"steps_run,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Notifier receives program lifecycle events. Calls happen inside the
// scheduler's critical section: implementations must return quickly
// and must not call back into the scheduler.
type Notifier interface {
	ProgramEvent(ev StatusEvent)
}

// Notifiers fans one event out to several notifiers in order.
type Notifiers []Notifier

func (n Notifiers) ProgramEvent(ev StatusEvent) {
	for _, notifier := range n {
		if notifier != nil {
			notifier.ProgramEvent(ev)
		}
	}
}
