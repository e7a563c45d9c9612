package pattern

import (
	"math"
	"math/rand"
	"time"

	"github.com/lumen-labs/lumen-core/internal/led"
)

// solid floods every cell with one colour.
type solid struct {
	color led.Color
}

func (s *solid) Name() string { return Solid }
func (s *solid) Static() bool { return true }

func (s *solid) Frame(st *led.State, _ time.Duration) bool {
	st.SetAll(s.color)
	return false
}

// gradient paints a radial blend from the front-grid centre outwards.
type gradient struct {
	center led.Color
	edge   led.Color
}

func (g *gradient) Name() string { return Gradient }
func (g *gradient) Static() bool { return true }

func (g *gradient) Frame(st *led.State, _ time.Duration) bool {
	st.SetRadialGradient(g.center, g.edge)
	return false
}

// breathing swells the whole lamp between 30% and full brightness.
// The curve starts at the trough and peaks a quarter period in, so a
// freshly started pattern visibly inhales rather than popping on at
// two-thirds brightness.
type breathing struct {
	color led.Color
	speed float64
}

func (b *breathing) Name() string { return Breathing }
func (b *breathing) Static() bool { return false }

func (b *breathing) Frame(st *led.State, elapsed time.Duration) bool {
	s := math.Sin(2 * math.Pi * millis(elapsed) / b.speed)
	factor := 0.3 + 0.7*s*s
	st.SetAll(led.Scale(b.color, factor))
	return false
}

// wave rolls a blend between two colours down the front grid one row
// at a time. The ambient ring holds the midpoint so the sides stay
// calm while the face moves.
type wave struct {
	a     led.Color
	b     led.Color
	speed float64
}

func (w *wave) Name() string { return Wave }
func (w *wave) Static() bool { return false }

func (w *wave) Frame(st *led.State, elapsed time.Duration) bool {
	phase := 2 * math.Pi * millis(elapsed) / w.speed
	for row := 0; row < led.GridHeight; row++ {
		f := (math.Sin(phase+float64(row)*0.5) + 1) / 2
		rowColor := led.Lerp(w.a, w.b, f)
		for col := 0; col < led.GridWidth; col++ {
			st.SetCell(led.CellID(col, row), rowColor)
		}
	}
	st.SetAmbient(led.Lerp(w.a, w.b, 0.5))
	return false
}

// rainbow cycles the hue wheel with a slight diagonal offset across
// the front grid. The ambient ring follows the base hue at lower
// saturation so it reads as a glow, not a second display.
type rainbow struct {
	speed float64
}

func (r *rainbow) Name() string { return Rainbow }
func (r *rainbow) Static() bool { return false }

func (r *rainbow) Frame(st *led.State, elapsed time.Duration) bool {
	baseHue := math.Mod(millis(elapsed)/r.speed, 1)
	for row := 0; row < led.GridHeight; row++ {
		for col := 0; col < led.GridWidth; col++ {
			hue := math.Mod(baseHue+float64(row)/led.GridHeight*0.3+float64(col)/led.GridWidth*0.1, 1)
			st.SetCell(led.CellID(col, row), led.FromHSL(hue*360, 0.8, 0.6))
		}
	}
	st.SetAmbient(led.FromHSL(baseHue*360, 0.7, 0.5))
	return false
}

// pulse is the only one-shot pattern: a single flash that rises over
// the first fifth of its duration and fades out over the rest. Once
// the envelope is spent Frame reports done without painting, and the
// engine tells whoever started it.
type pulse struct {
	color led.Color
	speed float64
}

func (p *pulse) Name() string { return Pulse }
func (p *pulse) Static() bool { return false }

func (p *pulse) Frame(st *led.State, elapsed time.Duration) bool {
	t := millis(elapsed)
	if t >= p.speed {
		return true
	}
	rise := 0.2 * p.speed
	var bright float64
	if t < rise {
		bright = t / rise
	} else {
		bright = 1 - (t-rise)/(p.speed-rise)
	}
	st.SetAll(led.Scale(p.color, bright))
	return false
}

// sparkle flickers the front grid stochastically. Each tick every
// front cell independently lights with probability density, otherwise
// falls back to the background with probability bgChance, otherwise
// keeps whatever it showed last tick. The ambient ring is left alone.
type sparkle struct {
	color   led.Color
	bg      led.Color
	density float64
	rnd     *rand.Rand
}

func (s *sparkle) Name() string { return Sparkle }
func (s *sparkle) Static() bool { return false }

func (s *sparkle) Frame(st *led.State, _ time.Duration) bool {
	for id := 0; id < led.FrontCount; id++ {
		switch {
		case s.rnd.Float64() < s.density:
			st.SetCell(id, s.color)
		case s.rnd.Float64() < bgChance:
			st.SetCell(id, s.bg)
		}
	}
	return false
}

// millis converts a duration to fractional milliseconds, keeping
// sub-millisecond precision for the trig arguments.
func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
