// Package program schedules multi-step lamp programs: named
// sequences of commands with per-step durations, an optional loop
// window and completion/cancellation hooks.
//
// Lifecycle:
//
//	Idle ──start──▶ Running ◀─resume/pause─▶ Paused
//	                  │  │
//	                  │  └──cancel──▶ Cancelled
//	                  └──last step──▶ Completed
//
// A fresh start always wins: whatever is in flight is torn down
// first, so at most one program runs at a time.
//
// # Key Types
//
//   - Program, Step, Loop, Hook: the wire model of a submission
//   - Scheduler: the timer-driven state machine executing a program
//   - CommandSink: what the scheduler needs from the lamp engine
//   - Notifier, StatusEvent: lifecycle event fan-out for observers
//
// # Timing Model
//
// Steps advance on wall-clock timers armed per step. A step with a
// null duration holds indefinitely, except a pulse pattern step,
// which advances when the engine reports the pulse finished. Pausing
// freezes both the step timer and the pattern clock; resuming re-arms
// the remaining time and continues the pattern from its frozen phase.
// Timers carry a generation number and a fired timer from a
// superseded generation does nothing, so cancellation is total the
// moment Cancel returns.
//
// # Thread Safety
//
// All Scheduler methods are safe for concurrent use; everything runs
// under one mutex. Notifier implementations are called inside that
// critical section and must not call back into the scheduler.
//
// # Usage
//
//	sched := program.New(eng, notifiers, log)
//	eng.SetOnPatternDone(sched.HandlePatternDone)
//
//	execID, err := sched.Start(ctx, prog)
//	if errors.Is(err, program.ErrValidation) {
//	    // reject the submission
//	}
package program
