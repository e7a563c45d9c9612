package led

import (
	"math"
	"testing"
)

func TestSetRadialGradient(t *testing.T) {
	s := NewState(nil)
	center := Color{255, 100, 0}
	edge := Color{0, 0, 255}
	s.SetRadialGradient(center, edge)

	// The four cells around the geometric centre (4.5, 6.5) share the
	// smallest distance and sit close to the pure center colour.
	for _, id := range []int{CellID(4, 6), CellID(5, 6), CellID(4, 7), CellID(5, 7)} {
		got, _ := s.Cell(id)
		if d := channelDistance(got, center); d > 40 {
			t.Errorf("near-centre cell %d = %v, want close to %v", id, got, center)
		}
	}

	// Corner cells are at exactly the normalizing distance, so they
	// carry the pure edge colour.
	for _, id := range []int{CellID(0, 0), CellID(9, 0), CellID(0, 13), CellID(9, 13)} {
		if got, _ := s.Cell(id); got != edge {
			t.Errorf("corner cell %d = %v, want %v", id, got, edge)
		}
	}

	// Every ambient cell gets the even blend.
	mid := Lerp(center, edge, 0.5)
	for id := AmbientStart; id < CellCount; id++ {
		if got, _ := s.Cell(id); got != mid {
			t.Errorf("ambient cell %d = %v, want %v", id, got, mid)
		}
	}
}

func TestSetRadialGradientMonotonicAlongRow(t *testing.T) {
	s := NewState(nil)
	s.SetRadialGradient(Color{255, 255, 255}, Color{})

	// Walking row 6 from col 4 outward to col 0, brightness must not
	// increase: distance from the centre only grows.
	prev, _ := s.Cell(CellID(4, 6))
	for col := 3; col >= 0; col-- {
		cur, _ := s.Cell(CellID(col, 6))
		if cur.R > prev.R {
			t.Fatalf("brightness increased outward at col %d: %d > %d", col, cur.R, prev.R)
		}
		prev = cur
	}
}

// channelDistance is the max per-channel difference between colours.
func channelDistance(a, b Color) float64 {
	dr := math.Abs(float64(a.R) - float64(b.R))
	dg := math.Abs(float64(a.G) - float64(b.G))
	db := math.Abs(float64(a.B) - float64(b.B))
	return math.Max(dr, math.Max(dg, db))
}
