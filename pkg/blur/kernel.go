package blur

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/exp/slices"
)

// samplesPerTap is the number of uniform draws summed for each kernel
// coefficient. By the central limit theorem the sums are close to normally
// distributed.
const samplesPerTap = 1024

// ErrKernelSize is returned for kernel sizes that are not positive and odd.
var ErrKernelSize = errors.New("blur: kernel size must be a positive odd number")

// Source supplies the random integers used to build a kernel.
// *rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
}

// NewSource returns a Source seeded from the wall clock.
func NewSource() Source {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// Kernel is a normalized, symmetric 1-D convolution filter.
type Kernel []float64

// Center returns the index of the middle coefficient.
func (k Kernel) Center() int { return len(k) / 2 }

// Sum returns the sum of all coefficients.
func (k Kernel) Sum() float64 {
	s := 0.0
	for _, v := range k {
		s += v
	}
	return s
}

// NewKernel builds a Gaussian-shaped kernel of the given size.
//
// Each coefficient of the left half (center included) is the sum of
// samplesPerTap values drawn from {0.00, 0.01, ..., 0.99}. The half is
// sorted ascending and mirrored onto the right half, so the coefficients
// rise monotonically toward the center. Finally the kernel is normalized
// to sum to 1. The exact values depend on rng; only the shape is stable.
func NewKernel(size int, rng Source) (Kernel, error) {
	if size < 1 || size%2 == 0 {
		return nil, fmt.Errorf("%w: got %d", ErrKernelSize, size)
	}
	if rng == nil {
		rng = NewSource()
	}

	k := make(Kernel, size)
	half := size / 2
	for i := 0; i <= half; i++ {
		for j := 0; j < samplesPerTap; j++ {
			k[i] += float64(rng.Intn(100)) / 100
		}
	}
	slices.Sort(k[:half+1])

	for i := half + 1; i < size; i++ {
		k[i] = k[size-i-1]
	}

	sum := k.Sum()
	for i := range k {
		k[i] /= sum
	}

	return k, nil
}
