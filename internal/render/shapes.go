package render

// Hand-tuned pixel shapes. At 10x14 there is no resolution to derive
// these geometrically; the offset tables below were eyeballed until
// they read well on the panel. They are a visual-fidelity knob, not a
// numeric contract; retune freely but update the pinned tests.

// starOffsets places each pixel of a five-pointed star at
// (cx + fx*r, cy + fy*r), rounded.
var starOffsets = [][2]float64{
	{0, -1}, {0, -0.75}, {0, -0.5}, // top point
	{-1, -0.2}, {-0.6, -0.1}, {-0.3, 0}, // left arm
	{1, -0.2}, {0.6, -0.1}, {0.3, 0}, // right arm
	{-0.7, 0.9}, {-0.45, 0.55}, // left leg
	{0.7, 0.9}, {0.45, 0.55}, // right leg
	{0, 0.1}, {0, 0.35}, // body
}

func drawStar(c canvas, e Element) {
	for _, off := range starOffsets {
		c.set(round(e.CX+off[0]*e.R), round(e.CY+off[1]*e.R), e.Color)
	}
}

// drawHeart builds the shape from two filled circle lobes of radius
// size/3 and a tapering point that narrows to a single pixel at
// cy + size/2.
func drawHeart(c canvas, e Element) {
	size := e.Size
	if size <= 0 {
		return
	}
	lobeR := size / 3
	lobeDX := size / 4
	lobeY := e.CY - size/6

	drawCircle(c, e.CX-lobeDX, lobeY, lobeR, e.Color, true)
	drawCircle(c, e.CX+lobeDX, lobeY, lobeR, e.Color, true)

	top := round(lobeY)
	bottom := round(e.CY + size/2)
	if bottom <= top {
		return
	}
	halfTop := lobeDX + lobeR
	for y := top; y <= bottom; y++ {
		frac := float64(y-top) / float64(bottom-top)
		half := round(halfTop * (1 - frac))
		c.span(round(e.CX)-half, round(e.CX)+half, y, e.Color)
	}
}
