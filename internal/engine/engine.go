package engine

import (
	"context"
	"sync"
	"time"

	"github.com/lumen-labs/lumen-core/internal/command"
	"github.com/lumen-labs/lumen-core/internal/led"
	"github.com/lumen-labs/lumen-core/internal/pattern"
	"github.com/lumen-labs/lumen-core/internal/render"
)

// DefaultTickInterval is the pattern frame interval used when the
// configuration does not supply one. 50 ms gives 20 frames a second,
// plenty for a 172-cell lamp.
const DefaultTickInterval = 50 * time.Millisecond

// Logger defines the logging interface used by the engine.
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

// PatternRun is one finished animation span, reported to the Recorder
// when a pattern stops, is replaced, or terminates on its own.
type PatternRun struct {
	Name      string
	Params    map[string]any
	StartedAt time.Time
	StoppedAt time.Time
}

// Recorder persists pattern runs. Implementations must tolerate being
// called from short-lived goroutines and do their own error logging;
// by the time a run is recorded there is nothing the engine could do
// about a storage failure.
type Recorder interface {
	RecordPatternRun(run PatternRun)
}

// View is a caller-facing copy of the lamp at one instant.
type View struct {
	Seq     uint64      `json:"seq"`
	Cells   []led.Color `json:"cells"`
	Pattern string      `json:"pattern,omitempty"`
	Paused  bool        `json:"paused,omitempty"`
}

// Engine owns the LED state and executes commands against it from a
// single goroutine. Every mutation, whether a direct write, a pattern
// frame or a rendered scene, happens on that goroutine, so the state
// needs no locking and observers always see fully-applied writes.
//
// Callers talk to the engine through Apply/View/PausePattern/
// ResumePattern, which hand work to the engine goroutine and wait for
// it, and through Subscribe, which streams change events out.
type Engine struct {
	tick     time.Duration
	logger   Logger
	recorder Recorder
	now      func() time.Time

	// onPatternDone is invoked on its own goroutine when a one-shot
	// pattern finishes by itself. Set before Start.
	onPatternDone func(patternName string)

	ops      chan func()
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	started bool
	stopped bool
	subs    map[int]*subscriber
	nextSub int

	// Owned by the engine goroutine. Tests in this package call the
	// methods that touch these directly instead of starting the loop.
	state         *led.State
	renderer      *render.Renderer
	seq           uint64
	active        pattern.Generator
	patternName   string
	patternParams map[string]any
	patternSince  time.Time
	patternStart  time.Time
	frozen        time.Duration
	paused        bool
}

// New creates an engine ticking at the given interval. A non-positive
// tick falls back to DefaultTickInterval; recorder may be nil when
// pattern history is not wanted.
func New(tick time.Duration, recorder Recorder, logger Logger) *Engine {
	if logger == nil {
		logger = noopLogger{}
	}
	if tick <= 0 {
		tick = DefaultTickInterval
	}
	return &Engine{
		tick:     tick,
		logger:   logger,
		recorder: recorder,
		now:      time.Now,
		ops:      make(chan func()),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		subs:     make(map[int]*subscriber),
		state:    led.NewState(logger),
		renderer: render.New(logger),
	}
}

// SetOnPatternDone registers the handler called when a one-shot
// pattern ends on its own. Must be called before Start. The handler
// runs on a fresh goroutine and may issue further engine commands.
func (e *Engine) SetOnPatternDone(fn func(patternName string)) {
	e.onPatternDone = fn
}

// Start launches the engine goroutine. The engine runs until Stop is
// called or ctx is cancelled.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return ErrAlreadyStarted
	}
	e.started = true
	e.mu.Unlock()

	e.logger.Info("engine started", "tick", e.tick)
	go e.run(ctx)
	return nil
}

// Stop halts the engine goroutine, records any active pattern run and
// closes all subscriber channels. It returns once the goroutine has
// exited. Calling Stop again is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	e.stopOnce.Do(func() { close(e.stopCh) })
	<-e.doneCh
}

// Apply executes one command on the engine goroutine and returns once
// it has been applied and its change event published. Semantic
// problems inside the command, an unknown type, an unknown pattern
// name, an out-of-range id, are logged no-ops, not errors; the only
// errors here are lifecycle ones.
func (e *Engine) Apply(ctx context.Context, cmd command.Command) error {
	return e.do(ctx, func() { e.applyCommand(cmd) })
}

// View returns a copy of the current lamp state.
func (e *Engine) View(ctx context.Context) (View, error) {
	var v View
	err := e.do(ctx, func() { v = e.view() })
	return v, err
}

// PausePattern freezes the active pattern's clock so its phase
// survives until ResumePattern. No-op when nothing is running or the
// pattern is already paused.
func (e *Engine) PausePattern(ctx context.Context) error {
	return e.do(ctx, func() { e.pausePattern() })
}

// ResumePattern restarts a paused pattern from its frozen phase.
func (e *Engine) ResumePattern(ctx context.Context) error {
	return e.do(ctx, func() { e.resumePattern() })
}

// do runs op on the engine goroutine and waits for it to finish. Once
// op is accepted it will run; cancellation is only honoured while
// waiting for a slot.
func (e *Engine) do(ctx context.Context, op func()) error {
	e.mu.Lock()
	switch {
	case !e.started:
		e.mu.Unlock()
		return ErrNotStarted
	case e.stopped:
		e.mu.Unlock()
		return ErrStopped
	}
	e.mu.Unlock()

	done := make(chan struct{})
	wrapped := func() {
		op()
		close(done)
	}

	select {
	case e.ops <- wrapped:
	case <-e.stopCh:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-e.stopCh:
		// The loop may still have run the op on its way out.
		select {
		case <-done:
			return nil
		default:
			return ErrStopped
		}
	}
}

// run is the engine goroutine: commands and pattern ticks interleave
// here and nowhere else.
func (e *Engine) run(ctx context.Context) {
	defer close(e.doneCh)
	defer e.shutdown()

	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stopCh:
			return
		case op := <-e.ops:
			op()
		case <-ticker.C:
			e.tickPattern()
		}
	}
}

// shutdown runs on the engine goroutine after the loop exits.
func (e *Engine) shutdown() {
	e.stopOnce.Do(func() { close(e.stopCh) })

	e.mu.Lock()
	e.stopped = true
	for id, sub := range e.subs {
		close(sub.ch)
		delete(e.subs, id)
	}
	e.mu.Unlock()

	e.stopPattern("shutdown")
	e.logger.Info("engine stopped")
}

// applyCommand dispatches one decoded command. Unknown type tags fall
// through to a logged no-op so old recorded programs stay playable
// when the command set grows.
func (e *Engine) applyCommand(cmd command.Command) {
	switch cmd.Type {
	case command.TypeLed:
		if cmd.ID == nil {
			e.logger.Warn("led command missing id")
			return
		}
		if !e.state.SetCell(*cmd.ID, cmd.Color) {
			e.logger.Warn("led command addressed out-of-range cell", "id", *cmd.ID)
		}

	case command.TypeBulk:
		applied := e.state.SetCells(cmd.Leds)
		if applied < len(cmd.Leds) {
			e.logger.Warn("bulk command skipped out-of-range cells",
				"applied", applied,
				"total", len(cmd.Leds),
			)
		}

	case command.TypeGradient:
		if cmd.Direction != "" && cmd.Direction != "radial" {
			e.logger.Debug("unsupported gradient direction, using radial", "direction", cmd.Direction)
		}
		center, edge := cmd.GradientColors()
		e.state.SetRadialGradient(center, edge)

	case command.TypeRender:
		e.state.SetCells(e.renderer.Render(cmd.Elements))

	case command.TypePattern:
		gen, err := pattern.New(cmd.Name, cmd.Params, e.logger)
		if err != nil {
			e.logger.Warn("ignoring unknown pattern", "pattern", cmd.Name)
			return
		}
		e.startPattern(gen, cmd.Params)

	case command.TypeStop:
		e.stopPattern("stop command")

	default:
		e.logger.Warn("ignoring unknown command type", "type", cmd.Type)
		return
	}

	e.flush()
}

// startPattern replaces any running pattern and paints the new one's
// first frame immediately, so the lamp changes on the command, not on
// the next tick.
func (e *Engine) startPattern(gen pattern.Generator, params map[string]any) {
	e.stopPattern("replaced")

	e.active = gen
	e.patternName = gen.Name()
	e.patternParams = params
	e.patternSince = e.now()
	e.patternStart = e.patternSince
	e.frozen = 0
	e.paused = false

	e.logger.Info("pattern started", "pattern", gen.Name())
	if done := gen.Frame(e.state, 0); done {
		e.finishPattern()
	}
}

// stopPattern ends the active pattern, if any, and records its run.
func (e *Engine) stopPattern(reason string) {
	if e.active == nil {
		return
	}
	e.recordPatternRun()
	e.logger.Info("pattern stopped", "pattern", e.patternName, "reason", reason)
	e.clearPattern()
}

// finishPattern handles a one-shot pattern ending on its own clock.
func (e *Engine) finishPattern() {
	name := e.patternName
	e.recordPatternRun()
	e.clearPattern()
	e.logger.Info("pattern finished", "pattern", name)

	if e.onPatternDone != nil {
		// Dispatched off the engine goroutine so the handler can issue
		// commands without deadlocking against the mailbox.
		go e.onPatternDone(name)
	}
}

func (e *Engine) clearPattern() {
	e.active = nil
	e.patternName = ""
	e.patternParams = nil
	e.frozen = 0
	e.paused = false
}

func (e *Engine) recordPatternRun() {
	if e.recorder == nil || e.active == nil {
		return
	}
	run := PatternRun{
		Name:      e.patternName,
		Params:    e.patternParams,
		StartedAt: e.patternSince,
		StoppedAt: e.now(),
	}
	// Storage must never hold up the frame clock.
	go e.recorder.RecordPatternRun(run)
}

// tickPattern advances the active pattern by one frame. Paused and
// static patterns do not consume ticks.
func (e *Engine) tickPattern() {
	if e.active == nil || e.paused || e.active.Static() {
		return
	}
	elapsed := e.frozen + e.now().Sub(e.patternStart)
	if done := e.active.Frame(e.state, elapsed); done {
		e.finishPattern()
	}
	e.flush()
}

func (e *Engine) pausePattern() {
	if e.active == nil || e.paused {
		return
	}
	e.frozen += e.now().Sub(e.patternStart)
	e.paused = true
	e.logger.Debug("pattern paused", "pattern", e.patternName, "elapsed", e.frozen)
}

func (e *Engine) resumePattern() {
	if e.active == nil || !e.paused {
		return
	}
	e.patternStart = e.now()
	e.paused = false
	e.logger.Debug("pattern resumed", "pattern", e.patternName, "elapsed", e.frozen)
}

func (e *Engine) view() View {
	return View{
		Seq:     e.seq,
		Cells:   e.state.Snapshot(),
		Pattern: e.patternName,
		Paused:  e.paused,
	}
}

// flush publishes the cells changed since the last flush as one delta
// event. Nothing is published when nothing changed.
func (e *Engine) flush() {
	changes := e.state.Flush()
	if len(changes) == 0 {
		return
	}
	e.seq++
	e.publish(Event{Seq: e.seq, Cells: changes})
}
