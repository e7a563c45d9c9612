package history

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lumen-labs/lumen-core/internal/engine"
	"github.com/lumen-labs/lumen-core/internal/program"
)

// memRepo is an in-memory Repository for recorder tests.
type memRepo struct {
	mu         sync.Mutex
	events     []PatternEvent
	executions map[string]Execution
}

func newMemRepo() *memRepo {
	return &memRepo{executions: make(map[string]Execution)}
}

func (m *memRepo) RecordPatternEvent(_ context.Context, ev PatternEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev.ID = int64(len(m.events) + 1)
	m.events = append(m.events, ev)
	return nil
}

func (m *memRepo) ListPatternEvents(context.Context, int) ([]PatternEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PatternEvent(nil), m.events...), nil
}

func (m *memRepo) CreateExecution(_ context.Context, exec Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executions[exec.ID] = exec
	return nil
}

func (m *memRepo) UpdateExecution(_ context.Context, exec Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.executions[exec.ID]
	if !ok {
		return ErrExecutionNotFound
	}
	current.Status = exec.Status
	current.EndedAt = exec.EndedAt
	current.StepsRun = exec.StepsRun
	current.LoopIterations = exec.LoopIterations
	m.executions[exec.ID] = current
	return nil
}

func (m *memRepo) GetExecution(_ context.Context, id string) (Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exec, ok := m.executions[id]
	if !ok {
		return Execution{}, ErrExecutionNotFound
	}
	return exec, nil
}

func (m *memRepo) ListExecutions(context.Context, int) ([]Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Execution, 0, len(m.executions))
	for _, exec := range m.executions {
		out = append(out, exec)
	}
	return out, nil
}

func (m *memRepo) Prune(context.Context, time.Duration) (int64, error) {
	return 0, nil
}

func (m *memRepo) eventCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func (m *memRepo) execution(id string) (Execution, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exec, ok := m.executions[id]
	return exec, ok
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

func TestRecorderPersistsPatternRun(t *testing.T) {
	repo := newMemRepo()
	rec := NewRecorder(repo, 0, nil)
	defer rec.Close()

	start := time.Now().UTC().Truncate(time.Second)
	rec.RecordPatternRun(engine.PatternRun{
		Name:      "sparkle",
		Params:    map[string]any{"density": 0.5},
		StartedAt: start,
		StoppedAt: start.Add(3 * time.Second),
	})

	waitFor(t, 2*time.Second, "pattern event write", func() bool {
		return repo.eventCount() == 1
	})

	events, _ := repo.ListPatternEvents(context.Background(), 10)
	got := events[0]
	if got.Pattern != "sparkle" {
		t.Errorf("Pattern = %q, want sparkle", got.Pattern)
	}
	if density, ok := got.Params["density"].(float64); !ok || density != 0.5 {
		t.Errorf("Params[\"density\"] = %v, want 0.5", got.Params["density"])
	}
	if !got.StoppedAt.Equal(start.Add(3 * time.Second)) {
		t.Errorf("StoppedAt = %s, want %s", got.StoppedAt, start.Add(3*time.Second))
	}
}

func TestRecorderTracksExecutionLifecycle(t *testing.T) {
	repo := newMemRepo()
	rec := NewRecorder(repo, 0, nil)
	defer rec.Close()

	start := time.Now().UTC().Truncate(time.Second)
	rec.ProgramEvent(program.StatusEvent{
		Kind:        program.EventStarted,
		ExecutionID: "exec-1",
		Program:     "sunrise",
		Status:      program.StatusRunning,
		Timestamp:   start,
	})

	waitFor(t, 2*time.Second, "execution row", func() bool {
		exec, ok := repo.execution("exec-1")
		return ok && exec.Status == "running"
	})

	end := start.Add(time.Minute)
	rec.ProgramEvent(program.StatusEvent{
		Kind:          program.EventCompleted,
		ExecutionID:   "exec-1",
		Program:       "sunrise",
		Status:        program.StatusCompleted,
		StepsRun:      4,
		LoopIteration: 2,
		Timestamp:     end,
	})

	waitFor(t, 2*time.Second, "execution finalised", func() bool {
		exec, _ := repo.execution("exec-1")
		return exec.Status == "completed"
	})

	exec, _ := repo.execution("exec-1")
	if exec.ProgramName != "sunrise" {
		t.Errorf("ProgramName = %q, want sunrise", exec.ProgramName)
	}
	if exec.StepsRun != 4 || exec.LoopIterations != 2 {
		t.Errorf("tallies = %d steps, %d passes, want 4 and 2", exec.StepsRun, exec.LoopIterations)
	}
	if exec.EndedAt == nil || !exec.EndedAt.Equal(end) {
		t.Errorf("EndedAt = %v, want %s", exec.EndedAt, end)
	}
}

func TestRecorderIgnoresIntermediateEvents(t *testing.T) {
	repo := newMemRepo()
	rec := NewRecorder(repo, 0, nil)
	defer rec.Close()

	for _, kind := range []program.EventKind{program.EventStep, program.EventPaused, program.EventResumed} {
		rec.ProgramEvent(program.StatusEvent{
			Kind:        kind,
			ExecutionID: "exec-1",
			Program:     "p",
			Timestamp:   time.Now(),
		})
	}

	time.Sleep(50 * time.Millisecond)
	if _, ok := repo.execution("exec-1"); ok {
		t.Error("intermediate events created an execution row")
	}
	if repo.eventCount() != 0 {
		t.Errorf("event count = %d, want 0", repo.eventCount())
	}
}

func TestRecorderCloseDrainsQueue(t *testing.T) {
	repo := newMemRepo()
	rec := NewRecorder(repo, 0, nil)

	now := time.Now()
	for i := 0; i < 5; i++ {
		rec.RecordPatternRun(engine.PatternRun{Name: "solid", StartedAt: now, StoppedAt: now})
	}
	rec.Close()

	if got := repo.eventCount(); got != 5 {
		t.Errorf("event count after Close = %d, want 5", got)
	}

	// Records after Close are dropped, not queued.
	rec.RecordPatternRun(engine.PatternRun{Name: "solid", StartedAt: now, StoppedAt: now})
	time.Sleep(20 * time.Millisecond)
	if got := repo.eventCount(); got != 5 {
		t.Errorf("event count after post-Close record = %d, want 5", got)
	}
}

func TestRecorderWithSQLiteRepository(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	rec := NewRecorder(repo, 0, nil)
	defer rec.Close()

	start := time.Now().UTC().Truncate(time.Second)
	rec.ProgramEvent(program.StatusEvent{
		Kind:        program.EventStarted,
		ExecutionID: "exec-db",
		Program:     "pomodoro",
		Status:      program.StatusRunning,
		Timestamp:   start,
	})
	end := start.Add(25 * time.Minute)
	rec.ProgramEvent(program.StatusEvent{
		Kind:          program.EventCancelled,
		ExecutionID:   "exec-db",
		Program:       "pomodoro",
		Status:        program.StatusCancelled,
		StepsRun:      2,
		LoopIteration: 1,
		Timestamp:     end,
	})

	waitFor(t, 2*time.Second, "finalised row in sqlite", func() bool {
		exec, err := repo.GetExecution(context.Background(), "exec-db")
		return err == nil && exec.Status == "cancelled"
	})

	exec, err := repo.GetExecution(context.Background(), "exec-db")
	if err != nil {
		t.Fatalf("GetExecution() error = %v", err)
	}
	if exec.ProgramName != "pomodoro" || exec.StepsRun != 2 {
		t.Errorf("execution = %+v, want pomodoro with 2 steps", exec)
	}
	if exec.EndedAt == nil || !exec.EndedAt.Equal(end) {
		t.Errorf("EndedAt = %v, want %s", exec.EndedAt, end)
	}
}
