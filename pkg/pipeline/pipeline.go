// Package pipeline runs the complete blur of one bitmap file: read, border
// expansion, kernel generation, separable convolution and write.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	xbmp "golang.org/x/image/bmp"

	"go-gblur/pkg/blur"
	"go-gblur/pkg/bmp"
)

// DefaultRadius is the kernel size used when Config.Radius is zero.
const DefaultRadius = 7

// Config describes one blur invocation.
type Config struct {
	InputPath  string
	OutputPath string
	// Radius is the kernel size; it must be odd. Zero means DefaultRadius.
	Radius  int
	Options blur.Options
	// Verify decodes the produced file with an independent bitmap decoder
	// and checks its dimensions before it replaces OutputPath.
	Verify bool
	// Rand drives kernel generation. Nil means a wall-clock seeded source.
	Rand blur.Source
}

// Result describes a completed invocation.
type Result struct {
	Width, Height int
	Kernel        blur.Kernel
	ReadTime      time.Duration
	BlurTime      time.Duration
	WriteTime     time.Duration
}

// Total returns the time spent in all stages.
func (r Result) Total() time.Duration {
	return r.ReadTime + r.BlurTime + r.WriteTime
}

// Run blurs cfg.InputPath into cfg.OutputPath.
//
// The output is written to a temporary file in the output directory and
// renamed over OutputPath only after every stage succeeded; on failure
// OutputPath is left untouched.
func Run(ctx context.Context, cfg Config) (Result, error) {
	var res Result
	radius := cfg.Radius
	if radius == 0 {
		radius = DefaultRadius
	}
	log := Logger().With("input", cfg.InputPath)

	in, err := os.Open(cfg.InputPath)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrOpenInput, err)
	}
	defer in.Close()

	out, err := createTemp(cfg.OutputPath)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrOpenOutput, err)
	}
	committed := false
	defer func() {
		if !committed {
			out.Close()
			os.Remove(out.Name())
		}
	}()

	start := time.Now()
	img, err := bmp.Decode(in, radius)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrReadInput, err)
	}
	res.Width, res.Height = img.Width(), img.Height()
	res.ReadTime = time.Since(start)
	log.Debug("bitmap read", "width", res.Width, "height", res.Height,
		"pixel_offset", img.PixelOffset, "elapsed", res.ReadTime)

	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("%w: %w", ErrCanceled, err)
	}

	start = time.Now()
	blur.Expand(img.Grid)
	k, err := blur.NewKernel(radius, cfg.Rand)
	if err != nil {
		return res, err
	}
	res.Kernel = k
	if err := blur.Convolve(img.Grid, k, cfg.Options); err != nil {
		return res, err
	}
	res.BlurTime = time.Since(start)
	log.Debug("bitmap blurred", "radius", radius, "mode", cfg.Options.String(), "elapsed", res.BlurTime)

	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("%w: %w", ErrCanceled, err)
	}

	start = time.Now()
	if err := bmp.Encode(out, img); err != nil {
		return res, fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}
	if err := out.Sync(); err != nil {
		return res, fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}
	if err := out.Close(); err != nil {
		return res, fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}
	if cfg.Verify {
		if err := verify(out.Name(), res.Width, res.Height); err != nil {
			return res, err
		}
	}
	if err := os.Rename(out.Name(), cfg.OutputPath); err != nil {
		return res, fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}
	committed = true
	res.WriteTime = time.Since(start)

	log.Info("bitmap written", "output", cfg.OutputPath, "elapsed", res.Total())
	return res, nil
}

func createTemp(path string) (*os.File, error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return nil, err
	}
	if err := f.Chmod(0o644); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, err
	}
	return f, nil
}

func verify(path string, width, height int) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrVerify, err)
	}
	defer f.Close()

	cfg, err := xbmp.DecodeConfig(f)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrVerify, err)
	}
	if cfg.Width != width || cfg.Height != height {
		return fmt.Errorf("%w: decoded %dx%d, want %dx%d", ErrVerify, cfg.Width, cfg.Height, width, height)
	}
	return nil
}
