// Package command defines the tagged union carried by every control
// surface: HTTP bodies, MQTT payloads and program steps all decode
// into the same Command struct, and the engine dispatches on its Type
// tag. Unknown tags are deliberately not an error here; the engine
// treats them as logged no-ops so yesterday's recorded programs keep
// replaying on tomorrow's firmware.
package command

import (
	"errors"
	"fmt"

	"github.com/lumen-labs/lumen-core/internal/led"
	"github.com/lumen-labs/lumen-core/internal/render"
)

// Wire type tags.
const (
	TypeLed      = "led"
	TypeBulk     = "bulk"
	TypeGradient = "gradient"
	TypePattern  = "pattern"
	TypeRender   = "render"
	TypeStop     = "stop"
)

// ErrInvalid marks a command that fails structural validation.
var ErrInvalid = errors.New("command: invalid command")

// Command is one decoded control command. Type selects which of the
// remaining fields carry meaning; the others stay at their zero
// values and are ignored.
type Command struct {
	Type string `json:"type"`

	// Single-cell write (type "led"). ID is a pointer so a missing id
	// can be told apart from cell zero.
	ID    *int      `json:"id,omitempty"`
	Color led.Color `json:"color"`

	// Batch write (type "bulk").
	Leds []led.CellChange `json:"leds,omitempty"`

	// Radial gradient (type "gradient"): colors[0] is the centre,
	// colors[1] the edge. Missing entries fall back to white and
	// black. Direction is accepted for forward compatibility; radial
	// is the only supported value.
	Colors    []led.Color `json:"colors,omitempty"`
	Direction string      `json:"direction,omitempty"`

	// Animation start (type "pattern").
	Name   string         `json:"name,omitempty"`
	Params map[string]any `json:"params,omitempty"`

	// Declarative drawing (type "render").
	Elements []render.Element `json:"elements,omitempty"`
}

// Validate checks the structure a command must have before it is
// accepted onto a control surface. It stays deliberately loose:
// unknown types pass so the engine can no-op them, and semantic
// problems like out-of-range ids or unknown pattern names are handled
// downstream where they can be logged against live state.
func (c Command) Validate() error {
	if c.Type == "" {
		return fmt.Errorf("%w: missing type", ErrInvalid)
	}
	if c.Type == TypeLed && c.ID == nil {
		return fmt.Errorf("%w: led command requires an id", ErrInvalid)
	}
	return nil
}

// GradientColors resolves the centre and edge colours of a gradient
// command, applying defaults for missing entries.
func (c Command) GradientColors() (center, edge led.Color) {
	center, edge = led.White, led.Black
	if len(c.Colors) > 0 {
		center = c.Colors[0]
	}
	if len(c.Colors) > 1 {
		edge = c.Colors[1]
	}
	return center, edge
}
