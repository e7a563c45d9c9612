package program

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lumen-labs/lumen-core/internal/command"
	"github.com/lumen-labs/lumen-core/internal/led"
	"github.com/lumen-labs/lumen-core/internal/pattern"
)

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

// fakeSink records every command the scheduler sends.
type fakeSink struct {
	mu      sync.Mutex
	applied []command.Command
	paused  int
	resumed int
}

func (f *fakeSink) Apply(_ context.Context, cmd command.Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied = append(f.applied, cmd)
	return nil
}

func (f *fakeSink) PausePattern(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused++
	return nil
}

func (f *fakeSink) ResumePattern(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumed++
	return nil
}

// ledSequence returns the cell ids of applied led commands. The tests
// give each step a distinct cell id, so this is the step order the
// lamp actually saw.
func (f *fakeSink) ledSequence() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []int
	for _, cmd := range f.applied {
		if cmd.Type == command.TypeLed && cmd.ID != nil {
			out = append(out, *cmd.ID)
		}
	}
	return out
}

func (f *fakeSink) commandCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.applied)
}

func (f *fakeSink) commandAt(i int) command.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.applied[i]
}

type captureNotifier struct {
	mu     sync.Mutex
	events []StatusEvent
}

func (n *captureNotifier) ProgramEvent(ev StatusEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *captureNotifier) kinds() []EventKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]EventKind, len(n.events))
	for i, ev := range n.events {
		out[i] = ev.Kind
	}
	return out
}

func (n *captureNotifier) all() []StatusEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]StatusEvent(nil), n.events...)
}

// ledStep builds a step that writes one marker cell.
func ledStep(id string, cell int, durationMs int64) Step {
	return Step{
		ID:       id,
		Command:  command.Command{Type: command.TypeLed, ID: intPtr(cell), Color: led.Color{R: 255}},
		Duration: int64Ptr(durationMs),
	}
}

// holdStep builds an indefinite marker step.
func holdStep(id string, cell int) Step {
	return Step{
		ID:      id,
		Command: command.Command{Type: command.TypeLed, ID: intPtr(cell), Color: led.Color{R: 255}},
	}
}

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestStartRejectsInvalidProgram(t *testing.T) {
	sink := &fakeSink{}
	s := New(sink, nil, nil)

	_, err := s.Start(context.Background(), Program{Name: "empty"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Start() error = %v, want ErrValidation", err)
	}
	if sink.commandCount() != 0 {
		t.Errorf("rejected program still sent %d commands", sink.commandCount())
	}
	if got := s.Status().Status; got != StatusIdle {
		t.Errorf("Status = %v, want idle", got)
	}
}

func TestSingleStepProgramCompletes(t *testing.T) {
	sink := &fakeSink{}
	notes := &captureNotifier{}
	s := New(sink, notes, nil)

	execID, err := s.Start(context.Background(), Program{
		Name:  "blink",
		Steps: []Step{ledStep("a", 0, 30)},
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if execID == "" {
		t.Fatal("Start() returned empty execution id")
	}

	waitFor(t, 2*time.Second, "completion", func() bool {
		return s.Status().Status == StatusCompleted
	})

	if got := sink.ledSequence(); !equalInts(got, []int{0}) {
		t.Errorf("led sequence = %v, want [0]", got)
	}
	kinds := notes.kinds()
	want := []EventKind{EventStarted, EventStep, EventCompleted}
	if len(kinds) != len(want) {
		t.Fatalf("event kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("event kinds = %v, want %v", kinds, want)
		}
	}
	for _, ev := range notes.all() {
		if ev.ExecutionID != execID {
			t.Errorf("event execution id = %q, want %q", ev.ExecutionID, execID)
		}
	}
}

func TestLoopRunsWindowCountTimes(t *testing.T) {
	sink := &fakeSink{}
	s := New(sink, nil, nil)

	_, err := s.Start(context.Background(), Program{
		Name: "looped",
		Steps: []Step{
			ledStep("a", 0, 25),
			ledStep("b", 1, 25),
			ledStep("c", 2, 25),
		},
		Loop: &Loop{Count: 2, StartStep: "a", EndStep: "b"},
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	waitFor(t, 3*time.Second, "completion", func() bool {
		return s.Status().Status == StatusCompleted
	})

	if got := sink.ledSequence(); !equalInts(got, []int{0, 1, 0, 1, 2}) {
		t.Errorf("led sequence = %v, want [0 1 0 1 2]", got)
	}
	if got := s.Status().LoopIteration; got != 2 {
		t.Errorf("LoopIteration = %d, want 2", got)
	}
}

func TestInfiniteLoopRunsUntilCancelled(t *testing.T) {
	sink := &fakeSink{}
	s := New(sink, nil, nil)

	_, err := s.Start(context.Background(), Program{
		Name: "forever",
		Steps: []Step{
			ledStep("a", 0, 20),
			ledStep("b", 1, 20),
		},
		Loop: &Loop{Count: 0, StartStep: "a", EndStep: "b"},
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	waitFor(t, 3*time.Second, "three full passes", func() bool {
		return len(sink.ledSequence()) >= 6
	})
	if err := s.Cancel(context.Background()); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}

	seq := sink.ledSequence()
	for i, cell := range seq {
		if cell != i%2 {
			t.Fatalf("led sequence = %v, want strict a,b alternation", seq)
		}
	}
	if got := s.Status().Status; got != StatusCancelled {
		t.Errorf("Status = %v, want cancelled", got)
	}
}

func TestLoopRepairCoversWholeProgram(t *testing.T) {
	sink := &fakeSink{}
	s := New(sink, nil, nil)

	_, err := s.Start(context.Background(), Program{
		Name: "repaired",
		Steps: []Step{
			ledStep("a", 0, 20),
			ledStep("b", 1, 20),
		},
		Loop: &Loop{Count: 2, StartStep: "missing", EndStep: "also-missing"},
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	waitFor(t, 3*time.Second, "completion", func() bool {
		return s.Status().Status == StatusCompleted
	})
	if got := sink.ledSequence(); !equalInts(got, []int{0, 1, 0, 1}) {
		t.Errorf("led sequence = %v, want [0 1 0 1]", got)
	}
}

func TestIndefiniteStepHolds(t *testing.T) {
	sink := &fakeSink{}
	s := New(sink, nil, nil)

	_, err := s.Start(context.Background(), Program{
		Name:  "hold",
		Steps: []Step{ledStep("a", 0, 50), holdStep("b", 1)},
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	waitFor(t, 2*time.Second, "second step", func() bool {
		return s.Status().CurrentStepID == "b"
	})

	time.Sleep(150 * time.Millisecond)
	st := s.Status()
	if st.Status != StatusRunning || st.CurrentStepID != "b" {
		t.Errorf("status = %+v, want still running on b", st)
	}
	if got := sink.ledSequence(); !equalInts(got, []int{0, 1}) {
		t.Errorf("led sequence = %v, want [0 1]", got)
	}
}

func TestStepsStopPatternBeforeApplying(t *testing.T) {
	sink := &fakeSink{}
	s := New(sink, nil, nil)

	_, err := s.Start(context.Background(), Program{
		Name:  "discipline",
		Steps: []Step{holdStep("a", 0)},
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if got := sink.commandCount(); got != 2 {
		t.Fatalf("command count = %d, want stop then step", got)
	}
	if got := sink.commandAt(0).Type; got != command.TypeStop {
		t.Errorf("first command = %q, want stop", got)
	}
	if got := sink.commandAt(1).Type; got != command.TypeLed {
		t.Errorf("second command = %q, want led", got)
	}
}

func TestPauseFreezesStepTimer(t *testing.T) {
	sink := &fakeSink{}
	s := New(sink, nil, nil)

	_, err := s.Start(context.Background(), Program{
		Name:  "pausable",
		Steps: []Step{ledStep("a", 0, 100), ledStep("b", 1, 20)},
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	time.Sleep(30 * time.Millisecond)
	if err := s.Pause(context.Background()); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if sink.paused != 1 {
		t.Errorf("PausePattern calls = %d, want 1", sink.paused)
	}

	// Long past the step's would-be deadline, nothing advances and the
	// elapsed clock stands still.
	time.Sleep(200 * time.Millisecond)
	st := s.Status()
	if st.Status != StatusPaused || st.CurrentStepID != "a" {
		t.Fatalf("status = %+v, want paused on a", st)
	}
	if again := s.Status().ElapsedMsInStep; again != st.ElapsedMsInStep {
		t.Errorf("elapsed moved while paused: %d -> %d", st.ElapsedMsInStep, again)
	}
	if got := sink.ledSequence(); !equalInts(got, []int{0}) {
		t.Errorf("led sequence = %v, want [0] while paused", got)
	}

	if err := s.Resume(context.Background()); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if sink.resumed != 1 {
		t.Errorf("ResumePattern calls = %d, want 1", sink.resumed)
	}

	waitFor(t, 2*time.Second, "completion after resume", func() bool {
		return s.Status().Status == StatusCompleted
	})
	if got := sink.ledSequence(); !equalInts(got, []int{0, 1}) {
		t.Errorf("led sequence = %v, want [0 1]", got)
	}
}

func TestLifecycleErrors(t *testing.T) {
	s := New(&fakeSink{}, nil, nil)
	ctx := context.Background()

	if err := s.Pause(ctx); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Pause on idle error = %v, want ErrNotRunning", err)
	}
	if err := s.Resume(ctx); !errors.Is(err, ErrNotPaused) {
		t.Errorf("Resume on idle error = %v, want ErrNotPaused", err)
	}
	if err := s.Cancel(ctx); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Cancel on idle error = %v, want ErrNotRunning", err)
	}

	if _, err := s.Start(ctx, Program{Name: "p", Steps: []Step{holdStep("a", 0)}}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Resume(ctx); !errors.Is(err, ErrNotPaused) {
		t.Errorf("Resume on running error = %v, want ErrNotPaused", err)
	}
}

func TestCancelRunsHookThenGoesQuiet(t *testing.T) {
	sink := &fakeSink{}
	notes := &captureNotifier{}
	s := New(sink, notes, nil)

	_, err := s.Start(context.Background(), Program{
		Name:     "cancellable",
		Steps:    []Step{holdStep("a", 0)},
		OnCancel: &Hook{Command: command.Command{Type: command.TypeLed, ID: intPtr(99), Color: led.Black}},
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := s.Cancel(context.Background()); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}

	n := sink.commandCount()
	if sink.commandAt(n-2).Type != command.TypeStop || sink.commandAt(n-1).Type != command.TypeLed {
		t.Errorf("cancel tail = %q, %q, want stop then hook", sink.commandAt(n-2).Type, sink.commandAt(n-1).Type)
	}
	if got := sink.ledSequence(); got[len(got)-1] != 99 {
		t.Errorf("led sequence = %v, want cancel hook cell 99 last", got)
	}

	// Nothing more after Cancel returns.
	time.Sleep(60 * time.Millisecond)
	if got := sink.commandCount(); got != n {
		t.Errorf("command count grew from %d to %d after cancel", n, got)
	}

	kinds := notes.kinds()
	if kinds[len(kinds)-1] != EventCancelled {
		t.Errorf("last event = %v, want cancelled", kinds[len(kinds)-1])
	}
}

func TestCompleteRunsHook(t *testing.T) {
	sink := &fakeSink{}
	notes := &captureNotifier{}
	s := New(sink, notes, nil)

	_, err := s.Start(context.Background(), Program{
		Name:       "hooked",
		Steps:      []Step{ledStep("a", 0, 25)},
		OnComplete: &Hook{Command: command.Command{Type: command.TypeLed, ID: intPtr(50), Color: led.Black}},
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	waitFor(t, 2*time.Second, "completion", func() bool {
		return s.Status().Status == StatusCompleted
	})

	if got := sink.ledSequence(); !equalInts(got, []int{0, 50}) {
		t.Errorf("led sequence = %v, want [0 50]", got)
	}
	final := notes.all()[len(notes.all())-1]
	if final.Kind != EventCompleted || final.StepsRun != 1 {
		t.Errorf("final event = %+v, want completed with 1 step run", final)
	}
}

func TestStartReplacesRunningProgram(t *testing.T) {
	sink := &fakeSink{}
	notes := &captureNotifier{}
	s := New(sink, notes, nil)
	ctx := context.Background()

	first, err := s.Start(ctx, Program{
		Name:     "first",
		Steps:    []Step{holdStep("a", 0)},
		OnCancel: &Hook{Command: command.Command{Type: command.TypeLed, ID: intPtr(99), Color: led.Black}},
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	second, err := s.Start(ctx, Program{
		Name:  "second",
		Steps: []Step{ledStep("b", 1, 25)},
	})
	if err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	if first == second {
		t.Error("replacement reused the execution id")
	}

	waitFor(t, 2*time.Second, "second program completion", func() bool {
		return s.Status().Status == StatusCompleted
	})

	// The displaced program is cancelled without its hook.
	for _, cell := range sink.ledSequence() {
		if cell == 99 {
			t.Error("displaced program's cancel hook ran")
		}
	}
	sawCancelled := false
	for _, ev := range notes.all() {
		if ev.Kind == EventCancelled && ev.ExecutionID == first {
			sawCancelled = true
		}
	}
	if !sawCancelled {
		t.Error("displacement emitted no cancelled event for the first execution")
	}
}

func TestPulseStepAdvancesOnPatternDone(t *testing.T) {
	sink := &fakeSink{}
	s := New(sink, nil, nil)

	_, err := s.Start(context.Background(), Program{
		Name: "flash",
		Steps: []Step{
			{
				ID: "flash",
				Command: command.Command{
					Type:   command.TypePattern,
					Name:   pattern.Pulse,
					Params: map[string]any{"speed": 500},
				},
			},
			ledStep("after", 1, 20),
		},
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if got := s.Status().CurrentStepID; got != "flash" {
		t.Fatalf("CurrentStepID = %q, want flash", got)
	}

	s.HandlePatternDone(pattern.Pulse)

	waitFor(t, 2*time.Second, "completion", func() bool {
		return s.Status().Status == StatusCompleted
	})
	if got := sink.ledSequence(); !equalInts(got, []int{1}) {
		t.Errorf("led sequence = %v, want [1]", got)
	}
}

func TestPatternDoneIgnoredOffPulseSteps(t *testing.T) {
	sink := &fakeSink{}
	s := New(sink, nil, nil)

	// An indefinite non-pulse step must not advance on a pattern-done
	// report.
	_, err := s.Start(context.Background(), Program{
		Name:  "steady",
		Steps: []Step{holdStep("a", 0), ledStep("b", 1, 20)},
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	s.HandlePatternDone(pattern.Pulse)
	time.Sleep(30 * time.Millisecond)
	if got := s.Status().CurrentStepID; got != "a" {
		t.Errorf("CurrentStepID = %q, want still a", got)
	}

	// A pulse step with an explicit duration advances on its timer,
	// not on the done report.
	_, err = s.Start(context.Background(), Program{
		Name: "timed-flash",
		Steps: []Step{
			{
				ID: "flash",
				Command: command.Command{
					Type:   command.TypePattern,
					Name:   pattern.Pulse,
					Params: map[string]any{"speed": 5000},
				},
				Duration: int64Ptr(40),
			},
		},
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	s.HandlePatternDone(pattern.Pulse)
	if got := s.Status().Status; got != StatusRunning {
		t.Fatalf("Status = %v, want running until the timer fires", got)
	}
	waitFor(t, 2*time.Second, "timer-driven completion", func() bool {
		return s.Status().Status == StatusCompleted
	})
}

func TestPulseDoneWhilePausedAdvancesOnResume(t *testing.T) {
	sink := &fakeSink{}
	s := New(sink, nil, nil)
	ctx := context.Background()

	_, err := s.Start(ctx, Program{
		Name: "raced-flash",
		Steps: []Step{
			{
				ID: "flash",
				Command: command.Command{
					Type:   command.TypePattern,
					Name:   pattern.Pulse,
					Params: map[string]any{"speed": 500},
				},
			},
			ledStep("after", 1, 20),
		},
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// The done report lands after Pause has taken over; it must be
	// honoured on Resume, not lost.
	if err := s.Pause(ctx); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	s.HandlePatternDone(pattern.Pulse)
	if got := s.Status().CurrentStepID; got != "flash" {
		t.Fatalf("CurrentStepID = %q, want flash while paused", got)
	}

	if err := s.Resume(ctx); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	waitFor(t, 2*time.Second, "completion", func() bool {
		return s.Status().Status == StatusCompleted
	})
	if got := sink.ledSequence(); !equalInts(got, []int{1}) {
		t.Errorf("led sequence = %v, want [1]", got)
	}
}

func TestZeroDurationStepAdvancesImmediately(t *testing.T) {
	sink := &fakeSink{}
	s := New(sink, nil, nil)

	_, err := s.Start(context.Background(), Program{
		Name:  "instant",
		Steps: []Step{ledStep("a", 0, 0), ledStep("b", 1, 20)},
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	waitFor(t, 2*time.Second, "completion", func() bool {
		return s.Status().Status == StatusCompleted
	})
	if got := sink.ledSequence(); !equalInts(got, []int{0, 1}) {
		t.Errorf("led sequence = %v, want [0 1]", got)
	}
}

func TestStatusFieldsWhileRunning(t *testing.T) {
	s := New(&fakeSink{}, nil, nil)

	execID, err := s.Start(context.Background(), Program{
		Name:  "status",
		Steps: []Step{holdStep("a", 0)},
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	time.Sleep(30 * time.Millisecond)
	st := s.Status()
	if st.Status != StatusRunning {
		t.Errorf("Status = %v, want running", st.Status)
	}
	if st.ExecutionID != execID || st.ProgramName != "status" || st.CurrentStepID != "a" {
		t.Errorf("status = %+v, want execution %q on step a", st, execID)
	}
	if st.ElapsedMsInStep < 20 {
		t.Errorf("ElapsedMsInStep = %d, want at least 20", st.ElapsedMsInStep)
	}
}

func TestCloseCancelsWithoutTouchingLamp(t *testing.T) {
	sink := &fakeSink{}
	notes := &captureNotifier{}
	s := New(sink, notes, nil)

	_, err := s.Start(context.Background(), Program{
		Name:  "shutdown",
		Steps: []Step{holdStep("a", 0)},
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	before := sink.commandCount()

	s.Close()

	if got := s.Status().Status; got != StatusCancelled {
		t.Errorf("Status = %v, want cancelled", got)
	}
	if got := sink.commandCount(); got != before {
		t.Errorf("Close sent %d commands to the lamp", got-before)
	}
	kinds := notes.kinds()
	if kinds[len(kinds)-1] != EventCancelled {
		t.Errorf("last event = %v, want cancelled", kinds[len(kinds)-1])
	}
}
