// Package led models the lamp's cell array: 172 RGB cells split into
// a 10x14 front grid (ids 0-139, row-major from the top-left) and a
// 32-cell ambient ring (ids 140-171).
//
// # Key Types
//
//   - Color: one RGB value with wire decoding for all accepted colour
//     forms (hex string, rgb() string, {r,g,b} object)
//   - State: the authoritative cell array with dirty tracking
//   - CellChange: one id/colour pair, used for bulk writes and for
//     sparse delta reporting
//
// # Geometry
//
// Front-grid ids map to positions as id = row*10 + col. Row 0 is the
// top row, column 0 the left edge, so id 0 is top-left, id 9 is
// top-right and id 139 bottom-right. Ambient cells have ids but no
// position; draw operations never touch them.
//
// # Thread Safety
//
// State is deliberately not synchronised. The engine goroutine owns
// the single instance and is the only writer; other goroutines only
// ever see copies (Snapshot) or flushed deltas relayed through the
// engine's change events.
//
// # Usage
//
//	state := led.NewState(logger)
//	state.SetCell(42, led.Color{R: 255, G: 136, B: 0})
//	delta := state.Flush() // [{42 {255 136 0}}]
//
// Colour parsing is forgiving: anything unparseable decodes to black
// and never produces an error, so a malformed colour in a command
// dims a cell instead of faulting the lamp.
package led
