package pattern

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/lumen-labs/lumen-core/internal/led"
)

// Pattern names as they appear on the wire.
const (
	Solid     = "solid"
	Gradient  = "gradient"
	Breathing = "breathing"
	Wave      = "wave"
	Rainbow   = "rainbow"
	Pulse     = "pulse"
	Sparkle   = "sparkle"
)

// Parameter defaults, applied when the wire omits a field or sends
// something unusable.
const (
	// DefaultSpeedMs is the fallback animation period.
	DefaultSpeedMs = 3000.0

	// DefaultDensity is the fallback sparkle density.
	DefaultDensity = 0.3

	// bgChance is the fixed per-tick probability that a sparkle cell
	// not chosen for the foreground colour resets to the background.
	bgChance = 0.3
)

// ErrUnknownPattern marks a pattern name outside the supported set.
// Callers treat it as a no-op, not a failure.
var ErrUnknownPattern = errors.New("pattern: unknown pattern")

// Logger defines the logging interface used during parameter parsing.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Generator produces a pattern's appearance as a pure function of
// elapsed time, so tests can drive the clock directly.
type Generator interface {
	// Name returns the pattern's wire name.
	Name() string

	// Static reports whether the first frame is also the last; the
	// engine paints static patterns once and skips further ticks.
	Static() bool

	// Frame paints the pattern at the given elapsed time into st and
	// reports whether the pattern has finished. Continuous patterns
	// always return false; a one-shot pattern returns true without
	// painting once its envelope is spent.
	Frame(st *led.State, elapsed time.Duration) (done bool)
}

// New builds a Generator for the named pattern, resolving parameter
// defaults up front so generators carry only final values. Unknown
// names return ErrUnknownPattern.
func New(name string, p map[string]any, logger Logger) (Generator, error) {
	if logger == nil {
		logger = noopLogger{}
	}
	pp := params(p)

	switch name {
	case Solid:
		return &solid{color: pp.color("color", led.White, logger)}, nil
	case Gradient:
		return &gradient{
			center: pp.color("color", led.White, logger),
			edge:   pp.color("color2", led.Black, logger),
		}, nil
	case Breathing:
		return &breathing{
			color: pp.color("color", led.White, logger),
			speed: pp.speed(logger),
		}, nil
	case Wave:
		return &wave{
			a:     pp.color("color", led.White, logger),
			b:     pp.color("color2", led.Black, logger),
			speed: pp.speed(logger),
		}, nil
	case Rainbow:
		return &rainbow{speed: pp.speed(logger)}, nil
	case Pulse:
		return &pulse{
			color: pp.color("color", led.White, logger),
			speed: pp.speed(logger),
		}, nil
	case Sparkle:
		return &sparkle{
			color:   pp.color("color", led.White, logger),
			bg:      pp.color("bgColor", led.Black, logger),
			density: pp.density(logger),
			rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPattern, name)
	}
}

// Names returns the supported pattern names, for diagnostics.
func Names() []string {
	return []string{Solid, Gradient, Breathing, Wave, Rainbow, Pulse, Sparkle}
}

// params wraps the raw wire map with typed, default-applying lookups.
type params map[string]any

// color resolves a colour parameter. Missing keys take the fallback;
// present-but-unparseable values normalize to black with a warning,
// matching how colour mistakes behave everywhere else.
func (p params) color(key string, fallback led.Color, logger Logger) led.Color {
	v, ok := p[key]
	if !ok || v == nil {
		return fallback
	}
	c, parsed := led.ColorFromAny(v)
	if !parsed {
		logger.Warn("unparseable colour parameter, using black", "param", key, "value", v)
		return led.Black
	}
	return c
}

func (p params) number(key string, fallback float64) (float64, bool) {
	v, ok := p[key]
	if !ok {
		return fallback, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return fallback, false
	}
}

// speed resolves the animation period in milliseconds. Zero and
// negative periods would divide the maths to bits, so they fall back
// to the default with a warning.
func (p params) speed(logger Logger) float64 {
	speed, present := p.number("speed", DefaultSpeedMs)
	if speed <= 0 {
		if present {
			logger.Warn("non-positive speed parameter, using default", "speed", speed)
		}
		return DefaultSpeedMs
	}
	return speed
}

// density resolves the sparkle density, clamped to [0,1].
func (p params) density(logger Logger) float64 {
	d, present := p.number("density", DefaultDensity)
	switch {
	case d < 0, d > 1:
		if present {
			logger.Warn("density parameter out of range, using default", "density", d)
		}
		return DefaultDensity
	default:
		return d
	}
}
