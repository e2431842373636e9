package stats

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go-gblur/pkg/common"
)

// PerformanceData holds timing and metadata for a batch of blurred files
type PerformanceData struct {
	Mode            string // "standard" or "legacy"
	ImagesProcessed int
	ImagesFailed    int
	KernelSize      int
	TotalTime       float64
	AverageTime     float64
	InputPaths      []string
	OutputPaths     []string
	Timestamp       time.Time

	// Stage totals, in seconds
	ReadTime  *float64
	BlurTime  *float64
	WriteTime *float64
	Workers   *int // set for queued batches
}

// WriteResults writes results to dir/<prefix><timestamp>.txt and returns the
// path of the file.
func WriteResults(dir, prefix string, results []PerformanceData) (string, error) {
	if len(results) == 0 {
		return "", nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create stats directory: %w", err)
	}

	// Use timestamp from first result
	timestamp := results[0].Timestamp.Format("2006-01-02_15-04-05")
	resultsFile := filepath.Join(dir, fmt.Sprintf("%s%s.txt", prefix, timestamp))

	file, err := os.Create(resultsFile)
	if err != nil {
		return "", fmt.Errorf("failed to create results file: %w", err)
	}
	defer file.Close()

	if err := Format(file, results); err != nil {
		return "", err
	}
	return resultsFile, file.Close()
}

// Format writes the human readable report for results to w.
func Format(w io.Writer, results []PerformanceData) error {
	if len(results) == 0 {
		return nil
	}
	ew := &errWriter{w: w}

	ew.printf("=== Gaussian Blur Results ===\n")
	ew.printf("Timestamp: %s\n\n", results[0].Timestamp.Format("2006-01-02 15:04:05"))

	for _, result := range results {
		ew.printf("=== %s Results ===\n", result.Mode)
		ew.printf("Images processed: %d\n", result.ImagesProcessed)
		if result.ImagesFailed > 0 {
			ew.printf("Images failed: %d\n", result.ImagesFailed)
		}
		ew.printf("Kernel size: %d\n", result.KernelSize)

		if result.ReadTime != nil {
			ew.printf("Total read time: %.3fs\n", *result.ReadTime)
		}
		if result.BlurTime != nil {
			ew.printf("Total blur time: %.3fs\n", *result.BlurTime)
		}
		if result.WriteTime != nil {
			ew.printf("Total write time: %.3fs\n", *result.WriteTime)
		}

		ew.printf("Total execution time: %.3fs\n", result.TotalTime)
		ew.printf("Average time per image: %.3fs\n", result.AverageTime)

		if result.Workers != nil {
			ew.printf("Workers: %d\n", *result.Workers)
		}

		ew.printf("\nInput files:\n")
		for i, path := range result.InputPaths {
			ew.printf("  %d. %s\n", i+1, path)
		}

		ew.printf("\nOutput files:\n")
		for i, path := range result.OutputPaths {
			ew.printf("  %d. %s\n", i+1, path)
		}

		ew.printf("\n")
	}
	return ew.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

// FromResults summarizes the results of queued jobs that started at start.
func FromResults(mode string, kernelSize int, results []*common.ResultMessage, start time.Time) PerformanceData {
	data := PerformanceData{
		Mode:       mode,
		KernelSize: kernelSize,
		Timestamp:  start,
		TotalTime:  time.Since(start).Seconds(),
	}

	workers := map[string]bool{}
	processTime := 0.0
	for _, r := range results {
		workers[r.WorkerID] = true
		if !r.OK() {
			data.ImagesFailed++
			continue
		}
		data.ImagesProcessed++
		processTime += r.ProcessTime
		data.InputPaths = append(data.InputPaths, r.InputPath)
		data.OutputPaths = append(data.OutputPaths, r.OutputPath)
	}

	if data.ImagesProcessed > 0 {
		data.AverageTime = processTime / float64(data.ImagesProcessed)
	}
	n := len(workers)
	data.Workers = &n
	data.BlurTime = &processTime
	return data
}
