package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quicktools/file-processor/config"
	"github.com/quicktools/file-processor/internal/service/jobs"
	"github.com/quicktools/file-processor/pkg/logger"
	"github.com/quicktools/file-processor/pkg/worker"
)

func main() {
	log, err := logger.NewLogger(
		logger.WithLevel("info"),
		logger.WithEncoding("json"),
		logger.WithOutputPaths([]string{"stdout", "logs/worker.log"}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	jobService, err := jobs.GetService(log)
	if err != nil {
		log.Error("Failed to create job service", logger.Error(err))
		os.Exit(1)
	}

	redisCfg := config.GetRedisConfig()
	workerCfg := &worker.Config{
		RedisAddr:   redisCfg.Addr,
		RedisDB:     redisCfg.DB,
		Concurrency: 10,
		Queues: map[string]int{
			"critical": 6,
			"default":  3,
			"low":      1,
		},
	}

	fileWorker, err := worker.NewFileWorker(workerCfg, jobService, log)
	if err != nil {
		log.Error("Failed to create file worker", logger.Error(err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := fileWorker.Start(ctx); err != nil {
		log.Error("Failed to start worker", logger.Error(err))
		os.Exit(1)
	}

	// Expired uploads, results and manifests are swept hourly.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := jobService.Cleanup(ctx); err != nil {
					log.Error("Storage cleanup failed", logger.Error(err))
				}
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down worker...")
	fileWorker.Stop()
	log.Info("Worker stopped")
}
