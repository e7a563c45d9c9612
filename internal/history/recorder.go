package history

import (
	"context"
	"sync"
	"time"

	"github.com/lumen-labs/lumen-core/internal/engine"
	"github.com/lumen-labs/lumen-core/internal/program"
)

const (
	// defaultQueueSize bounds how many pending writes the recorder
	// holds before dropping new ones.
	defaultQueueSize = 64

	// writeTimeout bounds each database write.
	writeTimeout = 5 * time.Second

	// pruneInterval is how often the retention window is enforced.
	pruneInterval = time.Hour
)

// Logger is the minimal logging interface the recorder needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Recorder feeds lamp activity into a Repository from a single writer
// goroutine, so callers never block on database I/O. It accepts
// pattern runs from the engine and lifecycle events from the program
// scheduler; both enqueue and return immediately.
//
// Step, pause and resume events are not persisted. Live consumers get
// those over MQTT and WebSocket; the store keeps one row per
// execution, finalised on completion or cancellation.
//
// When retention is positive, rows older than the window are pruned
// hourly.
type Recorder struct {
	repo      Repository
	logger    Logger
	retention time.Duration

	jobs     chan func(context.Context)
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewRecorder creates a recorder over the given repository and starts
// its writer goroutine. A retention of zero disables pruning. Close
// must be called to release the goroutine.
func NewRecorder(repo Repository, retention time.Duration, logger Logger) *Recorder {
	if logger == nil {
		logger = noopLogger{}
	}
	r := &Recorder{
		repo:      repo,
		logger:    logger,
		retention: retention,
		jobs:      make(chan func(context.Context), defaultQueueSize),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	go r.run()
	return r
}

// RecordPatternRun persists one completed pattern run.
func (r *Recorder) RecordPatternRun(run engine.PatternRun) {
	r.enqueue(func(ctx context.Context) {
		ev := PatternEvent{
			Pattern:   run.Name,
			Params:    run.Params,
			StartedAt: run.StartedAt,
			StoppedAt: run.StoppedAt,
		}
		if err := r.repo.RecordPatternEvent(ctx, ev); err != nil {
			r.logger.Error("recording pattern event failed",
				"pattern", run.Name,
				"error", err,
			)
		}
	})
}

// ProgramEvent tracks execution rows from scheduler lifecycle events:
// started opens a row, completed and cancelled finalise it.
func (r *Recorder) ProgramEvent(ev program.StatusEvent) {
	switch ev.Kind {
	case program.EventStarted:
		exec := Execution{
			ID:          ev.ExecutionID,
			ProgramName: ev.Program,
			Status:      string(ev.Status),
			StartedAt:   ev.Timestamp,
		}
		r.enqueue(func(ctx context.Context) {
			if err := r.repo.CreateExecution(ctx, exec); err != nil {
				r.logger.Error("recording execution start failed",
					"execution_id", exec.ID,
					"error", err,
				)
			}
		})

	case program.EventCompleted, program.EventCancelled:
		ended := ev.Timestamp
		exec := Execution{
			ID:             ev.ExecutionID,
			Status:         string(ev.Status),
			EndedAt:        &ended,
			StepsRun:       ev.StepsRun,
			LoopIterations: ev.LoopIteration,
		}
		r.enqueue(func(ctx context.Context) {
			if err := r.repo.UpdateExecution(ctx, exec); err != nil {
				r.logger.Error("finalising execution failed",
					"execution_id", exec.ID,
					"error", err,
				)
			}
		})
	}
}

// Close stops the writer after draining queued writes.
func (r *Recorder) Close() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	<-r.doneCh
}

func (r *Recorder) enqueue(job func(context.Context)) {
	select {
	case <-r.stopCh:
		return
	default:
	}

	select {
	case r.jobs <- job:
	default:
		r.logger.Warn("history writer backlogged, dropping record")
	}
}

func (r *Recorder) run() {
	defer close(r.doneCh)

	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			r.drain()
			return
		case job := <-r.jobs:
			r.exec(job)
		case <-ticker.C:
			r.prune()
		}
	}
}

// drain runs whatever is already queued, then returns.
func (r *Recorder) drain() {
	for {
		select {
		case job := <-r.jobs:
			r.exec(job)
		default:
			return
		}
	}
}

func (r *Recorder) exec(job func(context.Context)) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	job(ctx)
}

func (r *Recorder) prune() {
	if r.retention <= 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	deleted, err := r.repo.Prune(ctx, r.retention)
	if err != nil {
		r.logger.Error("history prune failed", "error", err)
		return
	}
	if deleted > 0 {
		r.logger.Debug("history pruned", "rows", deleted)
	}
}
