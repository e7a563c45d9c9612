package led

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// ErrInvalidColor is returned by ParseColor for input that matches no
// accepted colour form.
var ErrInvalidColor = errors.New("led: invalid color")

// Color is a single cell value. Channels run 0-255.
//
// On the wire a colour may arrive as a hex string ("#ff8800", "f80"),
// an "rgb(255,136,0)" string, or an object {"r":255,"g":136,"b":0}.
// All three decode into this struct; it marshals as the object form.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Common colours used as parameter defaults.
var (
	Black = Color{}
	White = Color{R: 255, G: 255, B: 255}
)

// rgbFuncRe matches the functional form "rgb(r, g, b)" with optional
// whitespace. Channels are decimal and clamped after matching.
var rgbFuncRe = regexp.MustCompile(`^rgb\(\s*(\d{1,3})\s*,\s*(\d{1,3})\s*,\s*(\d{1,3})\s*\)$`)

// ParseColor converts a textual colour into a Color.
//
// Accepted forms (case-insensitive):
//   - "#ff8800" or "ff8800" (six hex digits)
//   - "#f80" or "f80" (three hex digits, each doubled)
//   - "rgb(255, 136, 0)" (decimal channels, clamped to 0-255)
//
// Returns ErrInvalidColor for anything else.
func ParseColor(s string) (Color, error) {
	in := strings.ToLower(strings.TrimSpace(s))

	if m := rgbFuncRe.FindStringSubmatch(in); m != nil {
		r, _ := strconv.Atoi(m[1])
		g, _ := strconv.Atoi(m[2])
		b, _ := strconv.Atoi(m[3])
		return Color{clampChannel(r), clampChannel(g), clampChannel(b)}, nil
	}

	hex := strings.TrimPrefix(in, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// UnmarshalJSON accepts any wire colour form. Unparseable input
// decodes to black rather than failing the surrounding message; a bad
// colour never rejects a command.
func (c *Color) UnmarshalJSON(data []byte) error {
	if parsed, ok := colorFromJSON(data); ok {
		*c = parsed
		return nil
	}
	*c = Black
	return nil
}

// colorFromJSON decodes raw JSON as either the string or record form.
func colorFromJSON(data []byte) (Color, bool) {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := ParseColor(s)
		if err != nil {
			return Color{}, false
		}
		return parsed, true
	}

	var rec struct {
		R *float64 `json:"r"`
		G *float64 `json:"g"`
		B *float64 `json:"b"`
	}
	if err := json.Unmarshal(data, &rec); err == nil {
		if rec.R != nil || rec.G != nil || rec.B != nil {
			return Color{clampFloat(rec.R), clampFloat(rec.G), clampFloat(rec.B)}, true
		}
	}
	return Color{}, false
}

// ColorFromAny resolves a colour from an already-decoded JSON value,
// as found in pattern parameter maps. ok is false when the value is
// absent or matches no accepted form; callers decide whether that
// warrants a warning or a default.
func ColorFromAny(v any) (Color, bool) {
	switch val := v.(type) {
	case string:
		c, err := ParseColor(val)
		if err != nil {
			return Color{}, false
		}
		return c, true
	case map[string]any:
		r, rok := numField(val, "r")
		g, gok := numField(val, "g")
		b, bok := numField(val, "b")
		if !rok && !gok && !bok {
			return Color{}, false
		}
		return Color{clampChannelF(r), clampChannelF(g), clampChannelF(b)}, true
	default:
		return Color{}, false
	}
}

// Hex returns the colour as "#rrggbb".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Lerp returns the colour a fraction t of the way from a to b,
// interpolated per channel. t is clamped to [0,1].
func Lerp(a, b Color, t float64) Color {
	t = clamp01(t)
	return Color{
		R: lerpChannel(a.R, b.R, t),
		G: lerpChannel(a.G, b.G, t),
		B: lerpChannel(a.B, b.B, t),
	}
}

// Scale multiplies every channel by factor f, clamped to [0,1].
// Scale(c, 0) is black; Scale(c, 1) is c unchanged.
func Scale(c Color, f float64) Color {
	f = clamp01(f)
	return Color{
		R: uint8(math.Round(float64(c.R) * f)),
		G: uint8(math.Round(float64(c.G) * f)),
		B: uint8(math.Round(float64(c.B) * f)),
	}
}

// FromHSL converts hue (degrees, wrapped into [0,360)), saturation
// and lightness (both 0-1) into an RGB Color.
func FromHSL(h, s, l float64) Color {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	c := colorful.Hsl(h, clamp01(s), clamp01(l)).Clamped()
	r, g, b := c.RGB255()
	return Color{R: r, G: g, B: b}
}

func lerpChannel(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}

func clampChannel(v int) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return uint8(v)
	}
}

// clampChannelF truncates fractional channel values before clamping,
// matching how the wire protocol treats {"r":254.9} as 254.
func clampChannelF(f float64) uint8 {
	if math.IsNaN(f) {
		return 0
	}
	return clampChannel(int(f))
}

func clampFloat(f *float64) uint8 {
	if f == nil {
		return 0
	}
	return clampChannelF(*f)
}

func numField(m map[string]any, key string) (float64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}
