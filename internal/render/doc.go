// Package render rasterizes declarative draw elements into front-grid
// pixels.
//
// Render is a pure function: an ordered element list goes in, a
// sparse sorted (id, colour) delta comes out. Later elements
// overwrite earlier ones where they overlap (painter's algorithm) and
// anything outside the 10x14 grid clips silently. Cells no element
// touches are absent from the result, so the caller composites the
// frame over whatever the grid already shows; by convention a leading
// fill element sets the baseline.
//
// # Element Kinds
//
//   - fill, pixel, rect, line: flat primitives
//   - text: 3x5 bitmap glyphs (digits, A-Z, a little punctuation)
//   - circle, triangle, diamond: parametric, optional outline mode
//   - star, heart: hand-tuned offset patterns (see shapes.go)
//
// Unknown element types are skipped with a warning, never an error.
//
// # Usage
//
//	r := render.New(logger)
//	delta := r.Render([]render.Element{
//	    {Type: render.ElementFill, Color: led.Color{R: 10, G: 10, B: 42}},
//	    {Type: render.ElementText, Content: "HI", X: 2, Y: 4, Color: led.White},
//	})
//	state.SetCells(delta)
package render
