package blur

import "go-gblur/pkg/common"

// Expand fills the border of g by replicating the nearest interior pixel
// into every border cell, corners included. It must run before Convolve.
//
// Left and right borders are filled first for every interior row; the rows
// above and below are then copies of the first and last (already widened)
// interior rows, which gives the corners the value of the nearest interior
// corner pixel.
func Expand(g *common.Grid) {
	e := g.Expansion
	if e == 0 || g.Width == 0 || g.Height == 0 {
		return
	}

	for y := e; y < e+g.Height; y++ {
		row := g.Row(y)
		left, right := row[e], row[e+g.Width-1]
		for i := 0; i < e; i++ {
			row[i] = left
			row[e+g.Width+i] = right
		}
	}

	top, bottom := g.Row(e), g.Row(e+g.Height-1)
	for i := 0; i < e; i++ {
		copy(g.Row(e-1-i), top)
		copy(g.Row(e+g.Height+i), bottom)
	}
}
