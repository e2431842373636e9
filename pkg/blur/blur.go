package blur

import (
	"fmt"
	"math"

	"go-gblur/pkg/common"
)

// Window selects the taps used by each convolution pass.
type Window int

const (
	// WindowSymmetric sums taps [-e, e].
	WindowSymmetric Window = iota
	// WindowLegacy sums taps [-min(3, e), e]. For e > 3 the kernel's left
	// tail is ignored and the result is darker than the input.
	WindowLegacy
)

// legacyLowerTaps is the fixed lower bound of the legacy window.
const legacyLowerTaps = 3

// Buffering selects where a pass reads its neighbours from.
type Buffering int

const (
	// DoubleBuffered reads every neighbour from a snapshot taken before the
	// pass, so each output depends only on the pass input.
	DoubleBuffered Buffering = iota
	// InPlace reads from the grid being written: cells later in the scan
	// see neighbours that were already blurred by the same pass.
	InPlace
)

// Overflow selects how an out-of-range channel sum is stored.
type Overflow int

const (
	// Saturate clamps to [0, 255].
	Saturate Overflow = iota
	// Wrap keeps the low 8 bits.
	Wrap
)

// roundingEpsilon keeps a sum that is an integer up to floating error from
// being floored to the integer below.
const roundingEpsilon = 1e-6

// Options configures Convolve. The zero value is the recommended setting.
type Options struct {
	Window    Window
	Buffering Buffering
	Overflow  Overflow
}

// LegacyOptions selects the asymmetric window, in-place
// passes and 8-bit wraparound.
func LegacyOptions() Options {
	return Options{Window: WindowLegacy, Buffering: InPlace, Overflow: Wrap}
}

func (o Options) String() string {
	if o == LegacyOptions() {
		return "legacy"
	}
	if o == (Options{}) {
		return "standard"
	}
	return fmt.Sprintf("window=%d buffering=%d overflow=%d", o.Window, o.Buffering, o.Overflow)
}

// taps returns the inclusive tap range for expansion e.
func (o Options) taps(e int) (lo, hi int) {
	if o.Window == WindowLegacy {
		return -min(legacyLowerTaps, e), e
	}
	return -e, e
}

// Convolve blurs the interior of g with k, first along rows and then along
// columns. The border of g must already be filled by Expand; it is read but
// never written. k must have exactly 2*g.Expansion+1 coefficients.
func Convolve(g *common.Grid, k Kernel, opts Options) error {
	if len(k) != 2*g.Expansion+1 {
		return fmt.Errorf("%w: kernel has %d taps, grid expansion %d needs %d",
			ErrKernelSize, len(k), g.Expansion, 2*g.Expansion+1)
	}
	if g.Width == 0 || g.Height == 0 {
		return nil
	}

	var scratch *common.Grid
	if opts.Buffering == DoubleBuffered {
		scratch = g.Clone()
	}

	convolvePass(g, scratch, k, opts, true)
	if scratch != nil {
		scratch.CopyFrom(g)
	}
	convolvePass(g, scratch, k, opts, false)
	return nil
}

// convolvePass runs one 1-D pass over the interior of dst. Neighbours are
// read from src, or from dst itself when src is nil.
func convolvePass(dst, src *common.Grid, k Kernel, opts Options, horizontal bool) {
	if src == nil {
		src = dst
	}
	e := dst.Expansion
	lo, hi := opts.taps(e)

	for y := e; y < e+dst.Height; y++ {
		for x := e; x < e+dst.Width; x++ {
			var sumR, sumG, sumB float64
			for t := lo; t <= hi; t++ {
				var p common.Pixel
				if horizontal {
					p = src.At(y, x+t)
				} else {
					p = src.At(y+t, x)
				}
				w := k[t+e]
				sumR += float64(p.R) * w
				sumG += float64(p.G) * w
				sumB += float64(p.B) * w
			}
			dst.Set(y, x, common.Pixel{
				R: quantize(sumR, opts.Overflow),
				G: quantize(sumG, opts.Overflow),
				B: quantize(sumB, opts.Overflow),
			})
		}
	}
}

func quantize(sum float64, o Overflow) uint8 {
	v := math.Floor(sum + roundingEpsilon)
	if o == Wrap {
		return uint8(int64(v))
	}
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v)
}
