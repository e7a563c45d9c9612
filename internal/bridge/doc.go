// Package bridge connects the lamp to an MQTT broker.
//
// The bridge mirrors the WebSocket surface onto broker topics so
// headless clients (dashboards, scripts, other daemons) can drive and
// observe the lamp without holding an HTTP connection:
//
//   - lumen/state/snapshot carries the latest full lamp state,
//     published retained so a subscriber sees the lamp immediately.
//   - lumen/state/delta carries the sparse per-frame changes.
//   - lumen/program/status carries scheduler lifecycle events.
//   - lumen/command is subscribed: inbound command envelopes are
//     applied to the engine and acknowledged on lumen/command/ack.
//   - lumen/program is subscribed: inbound program envelopes start
//     executions exactly as POST /program does.
//
// Presence on the broker (lumen/system/status, retained, with a last
// will) is handled by the MQTT client itself, not here.
//
// The bridge is optional. When MQTT is disabled in configuration the
// daemon simply never constructs one.
package bridge
