package render

import (
	"math"
	"sort"

	"github.com/lumen-labs/lumen-core/internal/led"
)

// Logger defines the logging interface used by the Renderer.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Renderer rasterizes draw elements onto the front grid.
//
// Render is a pure function of its input: the Renderer holds no
// mutable state and is safe to call from multiple goroutines.
type Renderer struct {
	logger Logger
}

// New returns a Renderer. A nil logger falls back to a no-op logger.
func New(logger Logger) *Renderer {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Renderer{logger: logger}
}

// canvas collects painted front-grid pixels, keyed by cell id. Writes
// through set clip silently at the grid edges, and later writes
// overwrite earlier ones, which is the whole painter's algorithm.
type canvas map[int]led.Color

func (c canvas) set(x, y int, col led.Color) {
	if id := led.CellID(x, y); id >= 0 {
		c[id] = col
	}
}

// span paints the horizontal run [x1,x2] on row y.
func (c canvas) span(x1, x2, y int, col led.Color) {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	for x := x1; x <= x2; x++ {
		c.set(x, y, col)
	}
}

// vspan paints the vertical run [y1,y2] on column x.
func (c canvas) vspan(x, y1, y2 int, col led.Color) {
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	for y := y1; y <= y2; y++ {
		c.set(x, y, col)
	}
}

// Render rasterizes elements in list order and returns the touched
// front-grid cells as a sparse delta sorted by id. Cells no element
// painted are absent from the result, so callers composite the frame
// over whatever the grid already shows. Unknown element types are
// skipped with a warning.
func (r *Renderer) Render(elements []Element) []led.CellChange {
	c := make(canvas)
	for _, e := range elements {
		switch e.Type {
		case ElementFill:
			for y := 0; y < led.GridHeight; y++ {
				c.span(0, led.GridWidth-1, y, e.Color)
			}
		case ElementPixel:
			c.set(round(e.X), round(e.Y), e.Color)
		case ElementRect:
			r.drawRect(c, e)
		case ElementLine:
			r.drawLine(c, e)
		case ElementText:
			r.drawText(c, e)
		case ElementCircle:
			drawCircle(c, e.CX, e.CY, e.R, e.Color, e.Filled())
		case ElementTriangle:
			r.drawTriangle(c, e)
		case ElementStar:
			drawStar(c, e)
		case ElementDiamond:
			drawDiamond(c, e)
		case ElementHeart:
			drawHeart(c, e)
		default:
			r.logger.Warn("skipping unknown draw element", "type", e.Type)
		}
	}

	out := make([]led.CellChange, 0, len(c))
	for id, col := range c {
		out = append(out, led.CellChange{ID: id, Color: col})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// drawRect fills [x, x+w) x [y, y+h), clipped at the grid edges.
func (r *Renderer) drawRect(c canvas, e Element) {
	x, y := round(e.X), round(e.Y)
	w, h := round(e.W), round(e.H)
	for dy := 0; dy < h; dy++ {
		c.span(x, x+w-1, y+dy, e.Color)
	}
}

// drawLine walks integer Bresenham between the endpoints; all octants
// and degenerate single-point lines work.
func (r *Renderer) drawLine(c canvas, e Element) {
	x1, y1 := round(e.X1), round(e.Y1)
	x2, y2 := round(e.X2), round(e.Y2)

	dx := abs(x2 - x1)
	dy := -abs(y2 - y1)
	sx := 1
	if x1 > x2 {
		sx = -1
	}
	sy := 1
	if y1 > y2 {
		sy = -1
	}
	err := dx + dy

	for {
		c.set(x1, y1, e.Color)
		if x1 == x2 && y1 == y2 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x1 += sx
		}
		if e2 <= dx {
			err += dx
			y1 += sy
		}
	}
}

// drawCircle runs a per-pixel Euclidean distance test over the whole
// grid. Filled keeps everything inside r+0.5; outline keeps the ring
// within half a pixel of the radius.
func drawCircle(c canvas, cx, cy, r float64, col led.Color, filled bool) {
	for y := 0; y < led.GridHeight; y++ {
		for x := 0; x < led.GridWidth; x++ {
			d := math.Hypot(float64(x)-cx, float64(y)-cy)
			if filled {
				if d <= r+0.5 {
					c.set(x, y, col)
				}
			} else if math.Abs(d-r) <= 0.5 {
				c.set(x, y, col)
			}
		}
	}
}

// drawTriangle rasterizes a symmetric isoceles triangle by scanline.
// The half-width grows linearly from the apex toward the base, so a
// triangle of size s spans s scanlines and a base of 2s-1 pixels.
// Outline mode keeps the two boundary pixels per scanline plus the
// full base.
func (r *Renderer) drawTriangle(c canvas, e Element) {
	size := round(e.Size)
	if size < 1 {
		return
	}
	cx, cy := round(e.CX), round(e.CY)
	filled := e.Filled()

	dir := e.Direction
	switch dir {
	case DirectionUp, DirectionDown, DirectionLeft, DirectionRight:
	case "":
		dir = DirectionUp
	default:
		r.logger.Debug("unknown triangle direction, drawing up", "direction", dir)
		dir = DirectionUp
	}

	for i := 0; i < size; i++ {
		half := i
		if dir == DirectionDown || dir == DirectionRight {
			half = size - 1 - i
		}
		isBase := half == size-1

		switch dir {
		case DirectionUp, DirectionDown:
			y := cy - size/2 + i
			if filled || isBase {
				c.span(cx-half, cx+half, y, e.Color)
			} else {
				c.set(cx-half, y, e.Color)
				c.set(cx+half, y, e.Color)
			}
		case DirectionLeft, DirectionRight:
			x := cx - size/2 + i
			if filled || isBase {
				c.vspan(x, cy-half, cy+half, e.Color)
			} else {
				c.set(x, cy-half, e.Color)
				c.set(x, cy+half, e.Color)
			}
		}
	}
}

// drawDiamond rasterizes per row with half-width r-|dy|. Outline mode
// keeps only the two endpoints of each row.
func drawDiamond(c canvas, e Element) {
	r := round(e.R)
	if r < 0 {
		return
	}
	cx, cy := round(e.CX), round(e.CY)
	for dy := -r; dy <= r; dy++ {
		half := r - abs(dy)
		if e.Filled() {
			c.span(cx-half, cx+half, cy+dy, e.Color)
		} else {
			c.set(cx-half, cy+dy, e.Color)
			c.set(cx+half, cy+dy, e.Color)
		}
	}
}

func round(f float64) int {
	return int(math.Round(f))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
