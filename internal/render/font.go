package render

import (
	"strings"

	"github.com/lumen-labs/lumen-core/internal/led"
)

// glyphRows is the fixed glyph height in pixels.
const glyphRows = 5

// unknownAdvance is the cursor advance for characters outside the
// glyph table; nothing is drawn for them.
const unknownAdvance = 2

// glyphs maps each supported character to its bitmap: five rows of
// '#' (lit) and '.' (transparent). Most glyphs are three columns
// wide, punctuation narrower; the advance is always width+1 columns.
// Lower-case input is folded to upper before lookup.
var glyphs = map[rune][glyphRows]string{
	'0': {"###", "#.#", "#.#", "#.#", "###"},
	'1': {".#.", "##.", ".#.", ".#.", "###"},
	'2': {"###", "..#", "###", "#..", "###"},
	'3': {"###", "..#", "###", "..#", "###"},
	'4': {"#.#", "#.#", "###", "..#", "..#"},
	'5': {"###", "#..", "###", "..#", "###"},
	'6': {"###", "#..", "###", "#.#", "###"},
	'7': {"###", "..#", ".#.", ".#.", ".#."},
	'8': {"###", "#.#", "###", "#.#", "###"},
	'9': {"###", "#.#", "###", "..#", "###"},
	'A': {".#.", "#.#", "###", "#.#", "#.#"},
	'B': {"##.", "#.#", "##.", "#.#", "##."},
	'C': {".##", "#..", "#..", "#..", ".##"},
	'D': {"##.", "#.#", "#.#", "#.#", "##."},
	'E': {"###", "#..", "###", "#..", "###"},
	'F': {"###", "#..", "###", "#..", "#.."},
	'G': {".##", "#..", "#.#", "#.#", ".##"},
	'H': {"#.#", "#.#", "###", "#.#", "#.#"},
	'I': {"###", ".#.", ".#.", ".#.", "###"},
	'J': {"..#", "..#", "..#", "#.#", ".#."},
	'K': {"#.#", "#.#", "##.", "#.#", "#.#"},
	'L': {"#..", "#..", "#..", "#..", "###"},
	'M': {"#.#", "###", "###", "#.#", "#.#"},
	'N': {"##.", "#.#", "#.#", "#.#", "#.#"},
	'O': {"###", "#.#", "#.#", "#.#", "###"},
	'P': {"###", "#.#", "###", "#..", "#.."},
	'Q': {"###", "#.#", "#.#", "###", "..#"},
	'R': {"###", "#.#", "##.", "#.#", "#.#"},
	'S': {".##", "#..", ".#.", "..#", "##."},
	'T': {"###", ".#.", ".#.", ".#.", ".#."},
	'U': {"#.#", "#.#", "#.#", "#.#", "###"},
	'V': {"#.#", "#.#", "#.#", "#.#", ".#."},
	'W': {"#.#", "#.#", "###", "###", "#.#"},
	'X': {"#.#", "#.#", ".#.", "#.#", "#.#"},
	'Y': {"#.#", "#.#", ".#.", ".#.", ".#."},
	'Z': {"###", "..#", ".#.", "#..", "###"},
	' ': {".", ".", ".", ".", "."},
	':': {".", "#", ".", "#", "."},
	'.': {".", ".", ".", ".", "#"},
	'!': {"#", "#", "#", ".", "#"},
	'-': {"...", "...", "###", "...", "..."},
	'+': {"...", ".#.", "###", ".#.", "..."},
}

// drawText stamps content left to right starting at (x, y), which is
// the top-left corner of the first glyph. There is no wrapping; what
// runs off the grid edge clips.
func (r *Renderer) drawText(c canvas, e Element) {
	x, y := round(e.X), round(e.Y)
	cursor := x

	for _, ch := range strings.ToUpper(e.Content) {
		g, ok := glyphs[ch]
		if !ok {
			r.logger.Debug("no glyph for character", "char", string(ch))
			cursor += unknownAdvance
			continue
		}
		width := len(g[0])
		for row := 0; row < glyphRows; row++ {
			for col := 0; col < width; col++ {
				if g[row][col] == '#' {
					c.set(cursor+col, y+row, e.Color)
				}
			}
		}
		cursor += width + 1
		if cursor >= led.GridWidth {
			return
		}
	}
}
