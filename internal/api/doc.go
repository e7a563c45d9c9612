// Package api implements the HTTP control surface and WebSocket server for
// Lumen Core.
//
// This package provides:
//   - REST endpoints for LED writes, gradients, patterns, rendered scenes
//     and program control
//   - WebSocket hub streaming state deltas, snapshots and program events
//   - Middleware stack (request ID, logging, recovery, CORS, body limits)
//   - TLS support for deployments beyond the workbench
//
// # Architecture
//
// The API server sits between clients (the browser emulator, curl, home
// dashboards) and the animation engine + program scheduler. Commands flow
// from handlers into the engine's mailbox; state changes flow back through
// the engine's event stream, which the server relays to every connected
// WebSocket client.
//
// # Wire Contract
//
// Command endpoints are deliberately forgiving: out-of-range cell ids are
// dropped rather than rejected, and unparseable colours decode to black.
// A misassembled frame dims a few cells; it never takes the lamp offline.
//
// # Graceful Degradation
//
// The server operates without history storage: command and program
// endpoints work, only GET /executions reports an empty set.
package api
