package program

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lumen-labs/lumen-core/internal/command"
	"github.com/lumen-labs/lumen-core/internal/pattern"
)

// Logger defines the logging interface used by the scheduler.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// CommandSink is what the scheduler needs from the lamp engine:
// synchronous command application plus pattern clock control for
// pause and resume.
type CommandSink interface {
	Apply(ctx context.Context, cmd command.Command) error
	PausePattern(ctx context.Context) error
	ResumePattern(ctx context.Context) error
}

// Scheduler runs one program at a time as a timer-driven state
// machine: Idle -> Running <-> Paused -> Completed or Cancelled. A
// fresh Start unconditionally displaces whatever is in flight.
//
// Every mutation happens under one mutex, and each execution carries
// a generation counter; a timer that fires for a superseded
// generation finds the counter moved on and does nothing. That keeps
// a stale step-advance from a cancelled program off a freshly started
// one.
type Scheduler struct {
	sink     CommandSink
	notifier Notifier
	logger   Logger
	now      func() time.Time

	mu          sync.Mutex
	gen         uint64
	status      Status
	prog        Program
	execID      string
	stepIdx     int
	hasLoop     bool
	loopStart   int
	loopEnd     int
	iteration   int
	stepsRun    int
	stepStarted time.Time
	stepElapsed time.Duration  // accumulated across pauses
	remaining   *time.Duration // frozen timer amount while paused
	timer       *time.Timer
	pulseStep   bool
	pulseDone   bool // pulse finished while paused; advance on resume
}

// New creates an idle scheduler. notifier may be nil.
func New(sink CommandSink, notifier Notifier, logger Logger) *Scheduler {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Scheduler{
		sink:     sink,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		status:   StatusIdle,
	}
}

// Start validates prog, tears down any in-flight execution and begins
// running the first step. It returns the new execution id. Validation
// failures reject synchronously; nothing on the lamp changes.
func (s *Scheduler) Start(ctx context.Context, prog Program) (string, error) {
	if err := prog.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusRunning || s.status == StatusPaused {
		// A displaced program is torn down without its cancel hook;
		// it was replaced, not cancelled by an operator.
		s.teardownLocked(ctx, false, "replaced")
	}

	s.gen++
	s.prog = prog
	s.execID = uuid.New().String()
	s.status = StatusRunning
	s.stepIdx = 0
	s.stepsRun = 0
	s.stepElapsed = 0
	s.loopStart, s.loopEnd, s.hasLoop = resolveLoop(prog, s.logger)
	if s.hasLoop {
		s.iteration = 1
	} else {
		s.iteration = 0
	}

	s.logger.Info("program started",
		"program", prog.Name,
		"execution_id", s.execID,
		"steps", len(prog.Steps),
	)
	s.notifyLocked(EventStarted)
	s.enterStepLocked(ctx)
	return s.execID, nil
}

// Pause freezes the step timer and the pattern clock. The lamp keeps
// showing its last frame.
func (s *Scheduler) Pause(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusRunning {
		return ErrNotRunning
	}

	s.gen++
	s.stepElapsed += s.now().Sub(s.stepStarted)
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
		step := s.prog.Steps[s.stepIdx]
		if step.Duration != nil {
			rem := time.Duration(*step.Duration)*time.Millisecond - s.stepElapsed
			if rem < 0 {
				rem = 0
			}
			s.remaining = &rem
		}
	}
	if err := s.sink.PausePattern(ctx); err != nil {
		s.logger.Warn("pattern not paused", "error", err)
	}
	s.status = StatusPaused

	s.logger.Info("program paused",
		"program", s.prog.Name,
		"step", s.currentStepIDLocked(),
		"elapsed_in_step", s.stepElapsed,
	)
	s.notifyLocked(EventPaused)
	return nil
}

// Resume re-arms the frozen step timer and restarts the pattern clock
// from the phase it was paused at.
func (s *Scheduler) Resume(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusPaused {
		return ErrNotPaused
	}

	s.status = StatusRunning
	s.stepStarted = s.now()
	if s.remaining != nil {
		s.armTimerLocked(*s.remaining)
		s.remaining = nil
	}
	if err := s.sink.ResumePattern(ctx); err != nil {
		s.logger.Warn("pattern not resumed", "error", err)
	}

	s.logger.Info("program resumed",
		"program", s.prog.Name,
		"step", s.currentStepIDLocked(),
	)
	s.notifyLocked(EventResumed)

	// A pulse that finished in the instant between its completion
	// callback and Pause taking the lock was held back; advance now.
	if s.pulseDone {
		s.pulseDone = false
		s.advanceLocked(ctx)
	}
	return nil
}

// Cancel tears down the active execution, stops the pattern and runs
// the program's cancel hook. Once Cancel returns, no further frames
// or step advances can occur.
func (s *Scheduler) Cancel(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusRunning && s.status != StatusPaused {
		return ErrNotRunning
	}
	s.teardownLocked(ctx, true, "cancel")
	return nil
}

// Status reports the current execution state. After a terminal event
// it keeps describing the finished execution until the next Start.
func (s *Scheduler) Status() StatusView {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := StatusView{Status: s.status, LoopIteration: s.iteration}
	if s.status == StatusIdle {
		return v
	}

	v.ExecutionID = s.execID
	v.ProgramName = s.prog.Name
	v.CurrentStepID = s.currentStepIDLocked()
	elapsed := s.stepElapsed
	if s.status == StatusRunning {
		elapsed += s.now().Sub(s.stepStarted)
	}
	v.ElapsedMsInStep = elapsed.Milliseconds()
	return v
}

// HandlePatternDone advances past a pulse step when its pattern
// reports completion. Wire this as the engine's pattern-done
// callback; for any other step shape it is a no-op.
func (s *Scheduler) HandlePatternDone(patternName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.pulseStep {
		return
	}
	if s.status == StatusPaused {
		// The pulse ended just as Pause took the lock. Remember it so
		// Resume advances instead of parking on a finished step.
		s.pulseDone = true
		return
	}
	if s.status != StatusRunning {
		return
	}
	s.logger.Debug("pulse step finished",
		"program", s.prog.Name,
		"step", s.currentStepIDLocked(),
		"pattern", patternName,
	)
	s.advanceLocked(context.Background())
}

// Close invalidates all timers and marks any active execution
// cancelled without touching the lamp. Meant for process shutdown,
// where the engine is going down with it.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	s.stopTimerLocked()
	if s.status == StatusRunning || s.status == StatusPaused {
		s.status = StatusCancelled
		s.logger.Info("program cancelled",
			"program", s.prog.Name,
			"execution_id", s.execID,
			"reason", "shutdown",
		)
		s.notifyLocked(EventCancelled)
	}
}

// enterStepLocked applies the step at stepIdx and arms its timer.
func (s *Scheduler) enterStepLocked(ctx context.Context) {
	step := s.prog.Steps[s.stepIdx]
	s.stepStarted = s.now()
	s.stepElapsed = 0
	s.remaining = nil
	s.pulseDone = false
	s.pulseStep = step.Duration == nil &&
		step.Command.Type == command.TypePattern &&
		step.Command.Name == pattern.Pulse

	// Stop before start: the previous step's pattern must never tick
	// over freshly applied state.
	s.applyLocked(ctx, command.Command{Type: command.TypeStop})
	s.applyLocked(ctx, step.Command)
	s.stepsRun++

	if step.Duration != nil {
		s.armTimerLocked(time.Duration(*step.Duration) * time.Millisecond)
	}

	s.logger.Debug("step entered",
		"program", s.prog.Name,
		"step", step.ID,
		"iteration", s.iteration,
	)
	s.notifyLocked(EventStep)
}

// advanceLocked moves to the next step, honouring the loop window.
func (s *Scheduler) advanceLocked(ctx context.Context) {
	cur := s.stepIdx

	if s.hasLoop && cur == s.loopEnd &&
		(s.prog.Loop.Count == 0 || s.iteration < s.prog.Loop.Count) {
		s.iteration++
		s.stepIdx = s.loopStart
		s.logger.Debug("loop repeat",
			"program", s.prog.Name,
			"iteration", s.iteration,
		)
		s.enterStepLocked(ctx)
		return
	}

	if cur+1 >= len(s.prog.Steps) {
		s.completeLocked(ctx)
		return
	}

	s.stepIdx = cur + 1
	s.enterStepLocked(ctx)
}

// completeLocked finishes the program and runs its completion hook.
// Without a hook the lamp keeps whatever the last step left running.
func (s *Scheduler) completeLocked(ctx context.Context) {
	s.gen++
	s.stopTimerLocked()

	if s.prog.OnComplete != nil {
		s.applyLocked(ctx, command.Command{Type: command.TypeStop})
		s.applyLocked(ctx, s.prog.OnComplete.Command)
	}
	s.status = StatusCompleted

	s.logger.Info("program completed",
		"program", s.prog.Name,
		"execution_id", s.execID,
		"steps_run", s.stepsRun,
	)
	s.notifyLocked(EventCompleted)
}

// teardownLocked ends the active execution as cancelled. The cancel
// hook runs only for operator cancellation, not displacement.
func (s *Scheduler) teardownLocked(ctx context.Context, runHook bool, reason string) {
	s.gen++
	s.stopTimerLocked()

	s.applyLocked(ctx, command.Command{Type: command.TypeStop})
	if runHook && s.prog.OnCancel != nil {
		s.applyLocked(ctx, s.prog.OnCancel.Command)
	}
	s.status = StatusCancelled

	s.logger.Info("program cancelled",
		"program", s.prog.Name,
		"execution_id", s.execID,
		"reason", reason,
	)
	s.notifyLocked(EventCancelled)
}

// advanceTimer is the AfterFunc target for step timers.
func (s *Scheduler) advanceTimer(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || s.status != StatusRunning {
		return
	}
	s.advanceLocked(context.Background())
}

func (s *Scheduler) armTimerLocked(d time.Duration) {
	gen := s.gen
	s.timer = time.AfterFunc(d, func() { s.advanceTimer(gen) })
}

func (s *Scheduler) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.remaining = nil
}

// applyLocked sends one command to the engine. Failures are logged,
// not propagated; a bad step must not abort the program.
func (s *Scheduler) applyLocked(ctx context.Context, cmd command.Command) {
	if err := s.sink.Apply(ctx, cmd); err != nil {
		s.logger.Warn("command not applied", "type", cmd.Type, "error", err)
	}
}

func (s *Scheduler) currentStepIDLocked() string {
	if len(s.prog.Steps) == 0 {
		return ""
	}
	return s.prog.Steps[s.stepIdx].ID
}

func (s *Scheduler) notifyLocked(kind EventKind) {
	if s.notifier == nil {
		return
	}
	s.notifier.ProgramEvent(StatusEvent{
		Kind:          kind,
		ExecutionID:   s.execID,
		Program:       s.prog.Name,
		Status:        s.status,
		StepID:        s.currentStepIDLocked(),
		LoopIteration: s.iteration,
		StepsRun:      s.stepsRun,
		Timestamp:     s.now(),
	})
}
