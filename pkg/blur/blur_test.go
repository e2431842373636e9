package blur

import (
	"errors"
	"math/rand"
	"testing"

	"go-gblur/pkg/common"
)

func uniformGrid(width, height, e int, p common.Pixel) *common.Grid {
	g := common.NewGrid(width, height, e)
	for y := 0; y < height; y++ {
		row := g.InteriorRow(y)
		for x := range row {
			row[x] = p
		}
	}
	Expand(g)
	return g
}

func TestConvolveUniformIsFixedPoint(t *testing.T) {
	colors := []common.Pixel{
		{R: 255},
		{R: 255, G: 255, B: 255},
		{R: 17, G: 128, B: 3},
		{},
	}
	modes := map[string]Options{
		"standard": {},
		"in-place": {Buffering: InPlace},
		"wrap":     {Overflow: Wrap},
	}

	for name, opts := range modes {
		for _, size := range []int{1, 3, 7, 15} {
			k, err := NewKernel(size, rand.New(rand.NewSource(int64(size))))
			if err != nil {
				t.Fatal(err)
			}
			for _, c := range colors {
				g := uniformGrid(5, 4, size/2, c)
				if err := Convolve(g, k, opts); err != nil {
					t.Fatal(err)
				}
				for y := 0; y < g.Height; y++ {
					for x, p := range g.InteriorRow(y) {
						if p != c {
							t.Fatalf("%s size %d: pixel (%d,%d) = %+v, want %+v", name, size, x, y, p, c)
						}
					}
				}
			}
		}
	}
}

func TestConvolveLegacyUniformWithinRounding(t *testing.T) {
	k, _ := NewKernel(7, rand.New(rand.NewSource(9)))
	c := common.Pixel{R: 200, G: 100, B: 50}
	g := uniformGrid(6, 6, 3, c)
	if err := Convolve(g, k, LegacyOptions()); err != nil {
		t.Fatal(err)
	}
	for y := 0; y < g.Height; y++ {
		for x, p := range g.InteriorRow(y) {
			if absDiff(p.R, c.R) > 1 || absDiff(p.G, c.G) > 1 || absDiff(p.B, c.B) > 1 {
				t.Fatalf("pixel (%d,%d) = %+v, want about %+v", x, y, p, c)
			}
		}
	}
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func TestConvolveBoxKernel(t *testing.T) {
	// A 1x3 box kernel over a single bright pixel spreads it evenly.
	box := Kernel{1.0 / 3, 1.0 / 3, 1.0 / 3}
	g := common.NewGrid(3, 3, 1)
	g.InteriorRow(1)[1] = common.Pixel{R: 90, G: 90, B: 90}
	Expand(g)

	if err := Convolve(g, box, Options{}); err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 3; y++ {
		for x, p := range g.InteriorRow(y) {
			if p.R != 10 {
				t.Errorf("pixel (%d,%d) = %d, want 10", x, y, p.R)
			}
		}
	}
}

func TestConvolveInPlaceReadsBlurredNeighbours(t *testing.T) {
	box := Kernel{1.0 / 3, 1.0 / 3, 1.0 / 3}
	build := func() *common.Grid {
		g := common.NewGrid(4, 1, 1)
		g.InteriorRow(0)[0] = common.Pixel{R: 90}
		Expand(g)
		return g
	}

	double := build()
	convolvePass(double, double.Clone(), box, Options{}, true)
	inPlace := build()
	convolvePass(inPlace, nil, box, Options{Buffering: InPlace}, true)

	// The left border repeats 90, so pixel 0 becomes 60 either way. Pixel 1
	// reads the original 90 from the snapshot but the blurred 60 in place.
	if got := double.InteriorRow(0)[0].R; got != 60 {
		t.Errorf("double-buffered pixel 0 = %d, want 60", got)
	}
	if got := double.InteriorRow(0)[1].R; got != 30 {
		t.Errorf("double-buffered pixel 1 = %d, want 30", got)
	}
	if got := inPlace.InteriorRow(0)[1].R; got != 20 {
		t.Errorf("in-place pixel 1 = %d, want 20", got)
	}
}

func TestConvolveOverflow(t *testing.T) {
	heavy := Kernel{0, 2, 0}
	for _, tt := range []struct {
		overflow Overflow
		want     uint8
	}{
		{Saturate, 255},
		{Wrap, 400 - 256},
	} {
		g := uniformGrid(2, 1, 1, common.Pixel{R: 200})
		convolvePass(g, g.Clone(), heavy, Options{Overflow: tt.overflow}, true)
		if got := g.InteriorRow(0)[0].R; got != tt.want {
			t.Errorf("overflow %d: got %d, want %d", tt.overflow, got, tt.want)
		}
	}
}

func TestConvolveLegacyWindow(t *testing.T) {
	tests := []struct {
		e      int
		lo, hi int
	}{
		{0, 0, 0},
		{1, -1, 1},
		{3, -3, 3},
		{5, -3, 5},
	}
	for _, tt := range tests {
		lo, hi := LegacyOptions().taps(tt.e)
		if lo != tt.lo || hi != tt.hi {
			t.Errorf("legacy taps(%d) = [%d,%d], want [%d,%d]", tt.e, lo, hi, tt.lo, tt.hi)
		}
		lo, hi = Options{}.taps(tt.e)
		if lo != -tt.e || hi != tt.e {
			t.Errorf("symmetric taps(%d) = [%d,%d]", tt.e, lo, hi)
		}
	}
}

func TestConvolveKernelMismatch(t *testing.T) {
	g := common.NewGrid(3, 3, 3)
	err := Convolve(g, Kernel{1}, Options{})
	if !errors.Is(err, ErrKernelSize) {
		t.Errorf("Convolve error = %v, want ErrKernelSize", err)
	}
}
