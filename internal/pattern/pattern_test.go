package pattern

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/lumen-labs/lumen-core/internal/led"
)

// assertCellRange fails unless every cell in [from, to) shows want.
func assertCellRange(t *testing.T, st *led.State, from, to int, want led.Color) {
	t.Helper()
	for id := from; id < to; id++ {
		got, ok := st.Cell(id)
		if !ok {
			t.Fatalf("Cell(%d) out of range", id)
		}
		if got != want {
			t.Fatalf("cell %d = %v, want %v", id, got, want)
		}
	}
}

func TestNewUnknownPattern(t *testing.T) {
	gen, err := New("disco", nil, nil)
	if !errors.Is(err, ErrUnknownPattern) {
		t.Fatalf("New(disco) error = %v, want ErrUnknownPattern", err)
	}
	if gen != nil {
		t.Fatalf("New(disco) generator = %v, want nil", gen)
	}
}

func TestNamesCoverFactory(t *testing.T) {
	for _, name := range Names() {
		gen, err := New(name, nil, nil)
		if err != nil {
			t.Fatalf("New(%q) error = %v", name, err)
		}
		if gen.Name() != name {
			t.Errorf("Name() = %q, want %q", gen.Name(), name)
		}
	}
}

func TestSolid(t *testing.T) {
	gen, err := New(Solid, map[string]any{"color": "#ff0000"}, nil)
	if err != nil {
		t.Fatalf("New(solid) error = %v", err)
	}
	if !gen.Static() {
		t.Error("solid Static() = false, want true")
	}

	st := led.NewState(nil)
	if done := gen.Frame(st, 0); done {
		t.Error("solid Frame() done = true, want false")
	}
	assertCellRange(t, st, 0, led.CellCount, led.Color{R: 255})
}

func TestSolidDefaultsToWhite(t *testing.T) {
	gen, err := New(Solid, nil, nil)
	if err != nil {
		t.Fatalf("New(solid) error = %v", err)
	}
	st := led.NewState(nil)
	gen.Frame(st, 0)
	assertCellRange(t, st, 0, led.CellCount, led.White)
}

func TestGradient(t *testing.T) {
	center := led.Color{R: 255, G: 200, B: 100}
	edge := led.Color{B: 255}
	gen, err := New(Gradient, map[string]any{
		"color":  center.Hex(),
		"color2": edge.Hex(),
	}, nil)
	if err != nil {
		t.Fatalf("New(gradient) error = %v", err)
	}
	if !gen.Static() {
		t.Error("gradient Static() = false, want true")
	}

	st := led.NewState(nil)
	gen.Frame(st, 0)

	// Corners sit at the maximum distance from the centre and take the
	// pure edge colour.
	corner, _ := st.Cell(led.CellID(0, 0))
	if corner != edge {
		t.Errorf("corner cell = %v, want %v", corner, edge)
	}
	assertCellRange(t, st, led.AmbientStart, led.CellCount, led.Lerp(center, edge, 0.5))
}

func TestBreathingEnvelope(t *testing.T) {
	color := led.Color{R: 200, G: 100, B: 50}
	speed := 2000 * time.Millisecond
	gen, err := New(Breathing, map[string]any{
		"color": color.Hex(),
		"speed": 2000,
	}, nil)
	if err != nil {
		t.Fatalf("New(breathing) error = %v", err)
	}
	if gen.Static() {
		t.Error("breathing Static() = true, want false")
	}

	tests := []struct {
		name    string
		elapsed time.Duration
		want    led.Color
	}{
		{"trough at start", 0, led.Scale(color, 0.3)},
		{"peak at quarter period", speed / 4, color},
		{"trough again at half period", speed / 2, led.Scale(color, 0.3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := led.NewState(nil)
			if done := gen.Frame(st, tt.elapsed); done {
				t.Fatal("breathing Frame() done = true, want false")
			}
			assertCellRange(t, st, 0, led.CellCount, tt.want)
		})
	}
}

func TestWave(t *testing.T) {
	a := led.Color{R: 255}
	b := led.Color{B: 255}
	gen, err := New(Wave, map[string]any{
		"color":  a.Hex(),
		"color2": b.Hex(),
		"speed":  2000,
	}, nil)
	if err != nil {
		t.Fatalf("New(wave) error = %v", err)
	}

	st := led.NewState(nil)
	gen.Frame(st, 0)

	// At t=0 the top row's sine term is zero, so the row and the
	// ambient ring both show the exact midpoint blend.
	mid := led.Lerp(a, b, 0.5)
	assertCellRange(t, st, 0, led.GridWidth, mid)
	assertCellRange(t, st, led.AmbientStart, led.CellCount, mid)

	// Rows further down carry a different phase offset.
	top, _ := st.Cell(led.CellID(0, 0))
	lower, _ := st.Cell(led.CellID(0, 3))
	if top == lower {
		t.Errorf("rows 0 and 3 both = %v, want distinct colours", top)
	}

	// Cells within one row all match.
	for col := 1; col < led.GridWidth; col++ {
		got, _ := st.Cell(led.CellID(col, 3))
		if got != lower {
			t.Errorf("row 3 col %d = %v, want %v", col, got, lower)
		}
	}
}

func TestRainbow(t *testing.T) {
	gen, err := New(Rainbow, map[string]any{"speed": 2000}, nil)
	if err != nil {
		t.Fatalf("New(rainbow) error = %v", err)
	}

	st := led.NewState(nil)
	gen.Frame(st, 0)

	// At t=0 the base hue is zero, so the origin cell is pure red
	// territory and the ambient ring follows the base hue at its own
	// saturation and lightness.
	origin, _ := st.Cell(led.CellID(0, 0))
	if want := led.FromHSL(0, 0.8, 0.6); origin != want {
		t.Errorf("origin cell = %v, want %v", origin, want)
	}
	assertCellRange(t, st, led.AmbientStart, led.CellCount, led.FromHSL(0, 0.7, 0.5))

	// The diagonal offset spreads hue across the grid.
	far, _ := st.Cell(led.CellID(led.GridWidth-1, led.GridHeight-1))
	if far == origin {
		t.Errorf("opposite corners both = %v, want distinct hues", origin)
	}

	// Half a period later the base hue has rotated 180 degrees.
	gen.Frame(st, 1000*time.Millisecond)
	shifted, _ := st.Cell(led.CellID(0, 0))
	if want := led.FromHSL(180, 0.8, 0.6); shifted != want {
		t.Errorf("origin cell at half period = %v, want %v", shifted, want)
	}
}

func TestPulseEnvelope(t *testing.T) {
	color := led.Color{R: 200, G: 100, B: 50}
	gen, err := New(Pulse, map[string]any{
		"color": color.Hex(),
		"speed": 1000,
	}, nil)
	if err != nil {
		t.Fatalf("New(pulse) error = %v", err)
	}

	tests := []struct {
		name    string
		elapsed time.Duration
		want    led.Color
	}{
		{"dark at start", 0, led.Black},
		{"half way up the rise", 100 * time.Millisecond, led.Scale(color, 0.5)},
		{"peak at end of rise", 200 * time.Millisecond, color},
		{"half way down the fade", 600 * time.Millisecond, led.Scale(color, 0.5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := led.NewState(nil)
			if done := gen.Frame(st, tt.elapsed); done {
				t.Fatal("pulse Frame() done = true, want false")
			}
			assertCellRange(t, st, 0, led.CellCount, tt.want)
		})
	}
}

func TestPulseSelfTerminates(t *testing.T) {
	gen, err := New(Pulse, map[string]any{"speed": 1000}, nil)
	if err != nil {
		t.Fatalf("New(pulse) error = %v", err)
	}

	st := led.NewState(nil)
	gen.Frame(st, 600*time.Millisecond)
	before := st.Snapshot()
	st.Flush()

	for _, elapsed := range []time.Duration{time.Second, 1500 * time.Millisecond, time.Hour} {
		if done := gen.Frame(st, elapsed); !done {
			t.Fatalf("pulse Frame(%v) done = false, want true", elapsed)
		}
	}
	if st.DirtyCount() != 0 {
		t.Errorf("pulse painted %d cells after its envelope ended", st.DirtyCount())
	}
	after := st.Snapshot()
	for id := range after {
		if after[id] != before[id] {
			t.Fatalf("cell %d changed after pulse ended: %v -> %v", id, before[id], after[id])
		}
	}
}

func TestSparkleFullDensity(t *testing.T) {
	green := led.Color{G: 255}
	gen, err := New(Sparkle, map[string]any{
		"color":   green.Hex(),
		"density": 1.0,
	}, nil)
	if err != nil {
		t.Fatalf("New(sparkle) error = %v", err)
	}

	st := led.NewState(nil)
	ambient := led.Color{B: 40}
	st.SetAmbient(ambient)

	// Density 1.0 removes the randomness: every front cell lights on
	// every tick, and the ambient ring is never touched.
	for tick := 0; tick < 3; tick++ {
		if done := gen.Frame(st, time.Duration(tick)*50*time.Millisecond); done {
			t.Fatal("sparkle Frame() done = true, want false")
		}
		assertCellRange(t, st, 0, led.FrontCount, green)
		assertCellRange(t, st, led.AmbientStart, led.CellCount, ambient)
	}
}

func TestSparkleZeroDensity(t *testing.T) {
	gen, err := New(Sparkle, map[string]any{
		"color":   "#ffffff",
		"density": 0.0,
	}, nil)
	if err != nil {
		t.Fatalf("New(sparkle) error = %v", err)
	}

	st := led.NewState(nil)
	for tick := 0; tick < 5; tick++ {
		gen.Frame(st, 0)
	}
	for id := 0; id < led.FrontCount; id++ {
		if got, _ := st.Cell(id); got == led.White {
			t.Fatalf("cell %d lit at density 0", id)
		}
	}
}

func TestSparkleStatistical(t *testing.T) {
	// Fixed seed keeps the run reproducible; the bounds are still wide
	// enough that any correct implementation passes.
	gen := &sparkle{
		color:   led.White,
		bg:      led.Black,
		density: 0.5,
		rnd:     rand.New(rand.NewSource(1)),
	}

	st := led.NewState(nil)
	gen.Frame(st, 0)

	lit := 0
	for id := 0; id < led.FrontCount; id++ {
		if got, _ := st.Cell(id); got == led.White {
			lit++
		}
	}
	// Binomial(140, 0.5): mean 70, far outside [40, 100] is broken.
	if lit < 40 || lit > 100 {
		t.Errorf("lit %d of %d cells at density 0.5, want roughly half", lit, led.FrontCount)
	}

	// Consecutive ticks must not repeat the same frame.
	before := st.Snapshot()
	gen.Frame(st, 50*time.Millisecond)
	after := st.Snapshot()
	same := true
	for id := 0; id < led.FrontCount; id++ {
		if before[id] != after[id] {
			same = false
			break
		}
	}
	if same {
		t.Error("two sparkle ticks produced identical frames")
	}
}

func TestParamSpeed(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
		want   float64
	}{
		{"missing", nil, DefaultSpeedMs},
		{"explicit", map[string]any{"speed": 1500.0}, 1500},
		{"integer literal", map[string]any{"speed": 1500}, 1500},
		{"zero", map[string]any{"speed": 0.0}, DefaultSpeedMs},
		{"negative", map[string]any{"speed": -20.0}, DefaultSpeedMs},
		{"not a number", map[string]any{"speed": "fast"}, DefaultSpeedMs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := params(tt.params).speed(noopLogger{}); got != tt.want {
				t.Errorf("speed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParamDensity(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
		want   float64
	}{
		{"missing", nil, DefaultDensity},
		{"explicit", map[string]any{"density": 0.8}, 0.8},
		{"zero is valid", map[string]any{"density": 0.0}, 0},
		{"one is valid", map[string]any{"density": 1.0}, 1},
		{"above range", map[string]any{"density": 1.5}, DefaultDensity},
		{"below range", map[string]any{"density": -0.5}, DefaultDensity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := params(tt.params).density(noopLogger{}); got != tt.want {
				t.Errorf("density() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParamColor(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
		want   led.Color
	}{
		{"missing takes fallback", nil, led.White},
		{"hex string", map[string]any{"color": "#102030"}, led.Color{R: 0x10, G: 0x20, B: 0x30}},
		{"record form", map[string]any{"color": map[string]any{"r": 10.0, "g": 20.0, "b": 30.0}}, led.Color{R: 10, G: 20, B: 30}},
		{"unparseable normalizes to black", map[string]any{"color": "notacolour"}, led.Black},
		{"wrong type normalizes to black", map[string]any{"color": 42}, led.Black},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := params(tt.params).color("color", led.White, noopLogger{})
			if got != tt.want {
				t.Errorf("color() = %v, want %v", got, tt.want)
			}
		})
	}
}

func BenchmarkRainbowFrame(b *testing.B) {
	gen, err := New(Rainbow, nil, nil)
	if err != nil {
		b.Fatal(err)
	}
	st := led.NewState(nil)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		gen.Frame(st, time.Duration(i)*50*time.Millisecond)
		st.Flush()
	}
}
