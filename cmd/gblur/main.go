// Command gblur applies an approximate Gaussian blur to an uncompressed
// 24-bit bitmap.
//
//	gblur [flags] <input.bmp> <output.bmp>
//
// Exit status: 0 success, 1 input failure, 2 output failure, 3 invalid file
// type, 4 wrong arguments.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"go-gblur/pkg/blur"
	"go-gblur/pkg/pipeline"
	"go-gblur/pkg/stats"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("gblur", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		legacy   = fs.Bool("legacy", false, "Use the legacy in-place, asymmetric-window convolution")
		verify   = fs.Bool("verify", false, "Decode the result before replacing the output file")
		statsDir = fs.String("stats", "", "Directory to write a timing report to (optional)")
		verbose  = fs.Bool("v", false, "Log pipeline stages")
	)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: gblur [flags] <input.bmp> <output.bmp>\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return pipeline.ExitOK
		}
		return pipeline.ExitUsage
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(stderr, "Wrong argument number!")
		fs.Usage()
		return pipeline.ExitUsage
	}

	logger := log.New(stderr, "", log.LstdFlags)
	if *verbose {
		pipeline.SetLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
		defer pipeline.SetLogger(nil)
	}

	opts := blur.Options{}
	if *legacy {
		opts = blur.LegacyOptions()
	}

	startTime := time.Now()
	res, err := pipeline.Run(context.Background(), pipeline.Config{
		InputPath:  fs.Arg(0),
		OutputPath: fs.Arg(1),
		Radius:     pipeline.DefaultRadius,
		Options:    opts,
		Verify:     *verify,
	})
	if err != nil {
		logger.Printf("gblur: %v", err)
		return pipeline.ExitCode(err)
	}

	if *statsDir != "" {
		readTime := res.ReadTime.Seconds()
		blurTime := res.BlurTime.Seconds()
		writeTime := res.WriteTime.Seconds()
		total := time.Since(startTime).Seconds()
		path, err := stats.WriteResults(*statsDir, "gblur_", []stats.PerformanceData{{
			Mode:            opts.String(),
			ImagesProcessed: 1,
			KernelSize:      pipeline.DefaultRadius,
			TotalTime:       total,
			AverageTime:     total,
			InputPaths:      []string{fs.Arg(0)},
			OutputPaths:     []string{fs.Arg(1)},
			Timestamp:       startTime,
			ReadTime:        &readTime,
			BlurTime:        &blurTime,
			WriteTime:       &writeTime,
		}})
		if err != nil {
			logger.Printf("Failed to write stats: %v", err)
		} else {
			logger.Printf("Performance results written to %s", path)
		}
	}
	return pipeline.ExitOK
}
