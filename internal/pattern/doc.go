// Package pattern implements the lamp's animation library: seven
// named effects that paint a led.State as a pure function of elapsed
// time.
//
// # Key Types
//
//   - Generator: one running pattern. Frame(state, elapsed) paints the
//     appearance for that instant and reports whether a one-shot
//     pattern has finished.
//   - New: resolves a wire name plus a raw parameter map into a
//     Generator with all defaults applied.
//
// # Determinism
//
// Frame depends only on the elapsed time it is handed, never on wall
// clock or call count, so tests drive animations by passing times
// directly. The one exception is sparkle, which is stochastic on
// purpose and is exercised statistically.
//
// # Parameters
//
// Patterns take their parameters from the untyped map that arrives on
// the wire. Missing values fall back to defaults (white foreground,
// black secondary and background, 3000 ms period, 0.3 sparkle
// density); malformed colours normalize to black and malformed
// numbers to their defaults, with a warning either way. Bad input
// dims the lamp, it never takes the service down.
//
// # Usage
//
//	gen, err := pattern.New("breathing", map[string]any{
//		"color": "#ff6400",
//		"speed": 2000,
//	}, logger)
//	if err != nil {
//		// unknown pattern name, treat as a no-op
//	}
//	done := gen.Frame(state, 500*time.Millisecond)
package pattern
