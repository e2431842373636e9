package blur

import (
	"testing"

	"go-gblur/pkg/common"
)

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func patternGrid(width, height, e int) *common.Grid {
	g := common.NewGrid(width, height, e)
	for y := 0; y < height; y++ {
		row := g.InteriorRow(y)
		for x := range row {
			row[x] = common.Pixel{R: uint8(x), G: uint8(y), B: uint8(x*16 + y)}
		}
	}
	return g
}

func TestExpandReplicatesNearestEdge(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		e             int
	}{
		{"e1", 4, 3, 1},
		{"e3", 5, 4, 3},
		{"e10", 3, 6, 10},
		{"single pixel", 1, 1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := patternGrid(tt.width, tt.height, tt.e)
			Expand(g)

			for row := 0; row < g.Rows(); row++ {
				for col := 0; col < g.Cols(); col++ {
					nr := clamp(row, tt.e, tt.e+tt.height-1)
					nc := clamp(col, tt.e, tt.e+tt.width-1)
					if got, want := g.At(row, col), g.At(nr, nc); got != want {
						t.Fatalf("cell (%d,%d) = %+v, want %+v from (%d,%d)", row, col, got, want, nr, nc)
					}
				}
			}
		})
	}
}

func TestExpandKeepsInterior(t *testing.T) {
	g := patternGrid(6, 5, 3)
	want := g.Clone()
	Expand(g)
	for y := 0; y < g.Height; y++ {
		for x, p := range g.InteriorRow(y) {
			if p != want.InteriorRow(y)[x] {
				t.Fatalf("interior (%d,%d) changed", x, y)
			}
		}
	}
}

func TestExpandZeroExpansion(t *testing.T) {
	g := patternGrid(3, 3, 0)
	want := g.Clone()
	Expand(g)
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			if g.At(y, x) != want.At(y, x) {
				t.Fatalf("cell (%d,%d) changed", y, x)
			}
		}
	}
}
