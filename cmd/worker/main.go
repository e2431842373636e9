package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-gblur/pkg/processor"
	"go-gblur/pkg/queue"
)

func main() {
	var (
		redisAddr  = flag.String("redis", "localhost:6379", "Redis address")
		prefix     = flag.String("prefix", "gblur", "Redis key prefix")
		timeout    = flag.Duration("timeout", 5*time.Second, "Stream read block timeout")
		visTimeout = flag.Duration("visibility", 30*time.Second, "Visibility timeout for retries")
	)
	flag.Parse()

	hostname, _ := os.Hostname()
	workerID := fmt.Sprintf("worker-%s-%d", hostname, os.Getpid())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := queue.NewClient(ctx, *redisAddr, *prefix)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer client.Close()

	if err := client.EnsureGroups(ctx); err != nil {
		log.Fatalf("Failed to ensure Redis groups: %v", err)
	}

	w := processor.NewWorker(client, processor.Config{
		WorkerID:   workerID,
		Block:      *timeout,
		Visibility: *visTimeout,
	})
	if err := w.Run(ctx); err != nil {
		log.Fatalf("Worker failed: %v", err)
	}
}
