// Package engine executes lamp commands against the LED state from a
// single goroutine and broadcasts the resulting changes.
//
// Architecture:
//
//	┌─────────────────────────────────────────────────────┐
//	│                Engine (engine.go)                    │
//	│                                                      │
//	│   Apply/View/Pause/Resume ──▶ mailbox (chan func())  │
//	│                                    │                 │
//	│   frame ticker ────────────────────┤                 │
//	│                                    ▼                 │
//	│            ┌───────── engine goroutine ─────────┐    │
//	│            │  dispatch on command type tag      │    │
//	│            │  led.State writes (single writer)  │    │
//	│            │  pattern frames / render scenes    │    │
//	│            │  flush dirty cells ──▶ publish     │    │
//	│            └────────────────────────────────────┘    │
//	│                                    │                 │
//	│   Subscribe ◀── Event stream ──────┘ (events.go)     │
//	└─────────────────────────────────────────────────────┘
//
// # Key Types
//
//   - Engine: single-writer command executor and pattern clock
//   - Event: one change notification, sparse delta or full snapshot
//   - View: synchronous copy of the lamp for request/response callers
//   - Recorder: sink for finished pattern runs
//
// # Command Semantics
//
// Commands dispatch on their type tag. Direct writes (led, bulk,
// gradient, render) mutate cells immediately; while a pattern is
// running its next frame may paint over them, which is the intended
// last-writer-wins behaviour. A pattern command replaces the running
// pattern after stopping it, a stop command stops it and leaves the
// lamp as it was. Unknown command types, unknown pattern names and
// out-of-range ids are logged and skipped, never errors.
//
// # Thread Safety
//
// All exported methods are safe for concurrent use. State mutation is
// confined to the engine goroutine; Apply and friends hand it work
// and wait, Subscribe hands events out through buffered channels that
// never block it.
//
// # Usage
//
//	eng := engine.New(50*time.Millisecond, historyRepo, log)
//	eng.SetOnPatternDone(scheduler.HandlePatternDone)
//	if err := eng.Start(ctx); err != nil {
//	    return err
//	}
//	defer eng.Stop()
//
//	events, cancel := eng.Subscribe(32)
//	defer cancel()
//	err := eng.Apply(ctx, command.Command{Type: command.TypePattern, Name: "breathing"})
package engine
