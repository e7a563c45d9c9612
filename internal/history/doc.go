// Package history persists lamp activity to SQLite: every pattern run
// and every program execution leaves a row behind, giving the REST API
// an activity log that survives restarts.
//
// # Key Types
//
//   - PatternEvent: one completed pattern run with its parameters
//   - Execution: one program run from start to terminal state
//   - Repository: storage interface, implemented by SQLiteRepository
//   - Recorder: async adapter between the engine/scheduler and the store
//
// # Write Path
//
// The engine and scheduler never touch the database directly. They
// hand events to the Recorder, which queues them for a single writer
// goroutine:
//
//	engine ──RecordPatternRun──▶ ┌──────────┐
//	                             │ Recorder │──▶ Repository (SQLite)
//	scheduler ──ProgramEvent───▶ └──────────┘
//
// One writer keeps inserts ordered (an execution's start row always
// lands before its finalising update) and suits SQLite's single-writer
// model. If the queue backs up the Recorder drops records rather than
// stall the animation path.
//
// # Thread Safety
//
// SQLiteRepository is safe for concurrent use; the Recorder may be fed
// from any goroutine.
//
// # Usage
//
//	repo := history.NewSQLiteRepository(db.DB)
//	rec := history.NewRecorder(repo, 30*24*time.Hour, logger)
//	defer rec.Close()
//
//	eng := engine.New(tick, rec, engineLogger)
//	sched := program.New(eng, rec, schedLogger)
package history
