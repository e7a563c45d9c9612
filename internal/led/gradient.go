package led

import "math"

// SetRadialGradient paints the front grid with a radial blend: pure
// center colour at the grid centre, pure edge colour at the corner
// cells, interpolated by normalized Euclidean distance in between.
// Every ambient ring cell receives the even 50% mix of the two.
func (s *State) SetRadialGradient(center, edge Color) {
	// Geometric centre of the cell grid, in cell coordinates.
	cx := float64(GridWidth-1) / 2
	cy := float64(GridHeight-1) / 2
	maxDist := math.Hypot(cx, cy)

	for row := 0; row < GridHeight; row++ {
		for col := 0; col < GridWidth; col++ {
			t := math.Hypot(float64(col)-cx, float64(row)-cy) / maxDist
			s.SetCell(CellID(col, row), Lerp(center, edge, t))
		}
	}

	s.SetAmbient(Lerp(center, edge, 0.5))
}
