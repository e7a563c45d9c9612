package render

import "github.com/lumen-labs/lumen-core/internal/led"

// Element type tags as they appear on the wire.
const (
	ElementFill     = "fill"
	ElementPixel    = "pixel"
	ElementRect     = "rect"
	ElementLine     = "line"
	ElementText     = "text"
	ElementCircle   = "circle"
	ElementTriangle = "triangle"
	ElementStar     = "star"
	ElementDiamond  = "diamond"
	ElementHeart    = "heart"
)

// Triangle directions. The direction names where the apex points.
const (
	DirectionUp    = "up"
	DirectionDown  = "down"
	DirectionLeft  = "left"
	DirectionRight = "right"
)

// Element is one drawing instruction for the front grid, dispatched
// on Type. Fields a given type does not use are simply ignored, which
// keeps decoding total: a malformed element draws wrongly rather than
// rejecting the whole render command.
//
// Numeric fields are float64 because the upstream program generator
// emits fractional centres and sizes freely; integer positions are
// rounded at draw time.
type Element struct {
	Type string `json:"type"`

	// Shared colour; every element kind uses it.
	Color led.Color `json:"color"`

	// pixel, rect, text origin.
	X float64 `json:"x"`
	Y float64 `json:"y"`

	// rect extent.
	W float64 `json:"w"`
	H float64 `json:"h"`

	// line endpoints.
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`

	// text payload.
	Content string `json:"content"`

	// circle, triangle, star, diamond, heart centre.
	CX float64 `json:"cx"`
	CY float64 `json:"cy"`

	// circle, star, diamond radius.
	R float64 `json:"r"`

	// triangle, heart size.
	Size float64 `json:"size"`

	// triangle apex direction.
	Direction string `json:"direction"`

	// circle, triangle, diamond fill flag; absent means filled.
	Fill *bool `json:"fill"`
}

// Filled reports the element's fill flag, defaulting to filled when
// the wire omitted it.
func (e Element) Filled() bool {
	return e.Fill == nil || *e.Fill
}
