package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go-gblur/pkg/common"
	"go-gblur/pkg/pipeline"
	"go-gblur/pkg/queue"
	"go-gblur/pkg/stats"
)

func main() {
	var (
		redisAddr  = flag.String("redis", "localhost:6379", "Redis address")
		prefix     = flag.String("prefix", "gblur", "Redis key prefix")
		inputPath  = flag.String("input", "/data/input", "Input directory path")
		outputPath = flag.String("output", "/data/output", "Output directory path")
		legacy     = flag.Bool("legacy", false, "Request legacy in-place, asymmetric-window convolution")
		verify     = flag.Bool("verify", false, "Ask workers to verify every output")
		wait       = flag.Duration("wait", 10*time.Minute, "How long to wait for results (0 to only enqueue)")
		statsDir   = flag.String("stats", "logs", "Directory for the timing report")
	)
	flag.Parse()

	startTime := time.Now()
	log.Printf("=== Starting Queued Bitmap Blur ===")
	log.Printf("Input path: %s", *inputPath)
	log.Printf("Output path: %s", *outputPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(*outputPath, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	paths, err := findBitmaps(*inputPath)
	if err != nil {
		log.Fatalf("Failed to find input files: %v", err)
	}
	if len(paths) == 0 {
		log.Printf("No bitmap files found in %s", *inputPath)
		return
	}

	client, err := queue.NewClient(ctx, *redisAddr, *prefix)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer client.Close()
	if err := client.EnsureGroups(ctx); err != nil {
		log.Fatalf("Failed to ensure Redis groups: %v", err)
	}

	jobs := make([]*common.JobMessage, 0, len(paths))
	for i, p := range paths {
		jobs = append(jobs, &common.JobMessage{
			JobID:      fmt.Sprintf("%d-%d", startTime.Unix(), i),
			InputPath:  p,
			OutputPath: outputFor(*outputPath, p),
			Legacy:     *legacy,
			Verify:     *verify,
			QueuedAt:   time.Now(),
		})
	}
	pending := enqueueJobs(ctx, client, jobs)
	log.Printf("Enqueued %d jobs", len(pending))

	if *wait == 0 {
		return
	}

	results := collectResults(ctx, client, pending, *wait)

	mode := "standard"
	if *legacy {
		mode = "legacy"
	}
	report := stats.FromResults(mode, pipeline.DefaultRadius, results, startTime)
	log.Printf("=== Processing Complete ===")
	log.Printf("Images processed: %d, failed: %d, missing: %d",
		report.ImagesProcessed, report.ImagesFailed, len(pending))

	path, err := stats.WriteResults(*statsDir, "queue_", []stats.PerformanceData{report})
	if err != nil {
		log.Printf("Failed to write stats: %v", err)
	} else {
		log.Printf("Performance results written to %s", path)
	}
}

type jobSink interface {
	AddJob(ctx context.Context, job *common.JobMessage) (string, error)
	SetStatus(ctx context.Context, jobID, status string) error
}

type resultSource interface {
	ReadResult(ctx context.Context, consumer string, block time.Duration) (string, *common.ResultMessage, error)
	AckResult(ctx context.Context, id string) error
}

var (
	_ jobSink      = (*queue.Client)(nil)
	_ resultSource = (*queue.Client)(nil)
)

// enqueueJobs adds jobs to q and returns the IDs of those that were queued.
// A job whose status could not be recorded is still pending.
func enqueueJobs(ctx context.Context, q jobSink, jobs []*common.JobMessage) map[string]bool {
	pending := make(map[string]bool, len(jobs))
	for _, job := range jobs {
		if _, err := q.AddJob(ctx, job); err != nil {
			log.Printf("Failed to enqueue %s: %v", job.InputPath, err)
			continue
		}
		if err := q.SetStatus(ctx, job.JobID, common.StatusQueued); err != nil {
			log.Printf("Failed to record status of job %s: %v", job.JobID, err)
		}
		pending[job.JobID] = true
	}
	return pending
}

// collectResults reads results until every pending job reported back, the
// wait expires or ctx is cancelled. Reported jobs are removed from pending.
func collectResults(ctx context.Context, client resultSource, pending map[string]bool, wait time.Duration) []*common.ResultMessage {
	hostname, _ := os.Hostname()
	consumer := fmt.Sprintf("coordinator-%s-%d", hostname, os.Getpid())
	deadline := time.Now().Add(wait)

	var results []*common.ResultMessage
	for len(pending) > 0 && time.Now().Before(deadline) && ctx.Err() == nil {
		id, res, err := client.ReadResult(ctx, consumer, 2*time.Second)
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("Read result: %v", err)
			}
			continue
		}
		if res == nil {
			continue
		}
		if err := client.AckResult(ctx, id); err != nil {
			// The result stays in the group's pending list; it is still counted here.
			log.Printf("Failed to ack result %s: %v", id, err)
		}
		if !pending[res.JobID] {
			continue
		}
		delete(pending, res.JobID)
		results = append(results, res)
		if res.OK() {
			log.Printf("Job %s done by %s in %.3fs", res.JobID, res.WorkerID, res.ProcessTime)
		} else {
			log.Printf("Job %s failed (exit %d): %s", res.JobID, res.ExitCode, res.Error)
		}
	}
	return results
}

// findBitmaps returns the .bmp files in dir, skipping earlier outputs.
func findBitmaps(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.ToLower(filepath.Ext(name)) != ".bmp" || strings.Contains(name, "_blurred") {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	return paths, nil
}

func outputFor(outputDir, inputPath string) string {
	base := filepath.Base(inputPath)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outputDir, name+"_blurred.bmp")
}
