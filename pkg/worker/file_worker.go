package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/quicktools/file-processor/internal/errs"
	"github.com/quicktools/file-processor/internal/service/jobs"
	"github.com/quicktools/file-processor/pkg/logger"
	"github.com/quicktools/file-processor/pkg/queue"
)

// FileWorker consumes tool-processing tasks from the queue and runs them
// through the job service.
type FileWorker struct {
	BaseWorker
	jobService jobs.Service
}

func NewFileWorker(cfg *Config, jobService jobs.Service, log logger.Logger) (*FileWorker, error) {
	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB},
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues:      cfg.Queues,
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				return time.Duration(n) * time.Minute
			},
		},
	)

	w := &FileWorker{
		BaseWorker: BaseWorker{
			server:   server,
			mux:      asynq.NewServeMux(),
			logger:   log,
			stopChan: make(chan struct{}),
		},
		jobService: jobService,
	}

	w.mux.HandleFunc(queue.TaskTypeToolProcess, w.handleToolProcess)
	return w, nil
}

func (w *FileWorker) handleToolProcess(ctx context.Context, t *asynq.Task) error {
	var task queue.Task
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		w.logger.Error("Failed to unmarshal task",
			logger.Error(err),
			logger.String("payload", string(t.Payload())),
		)
		return fmt.Errorf("failed to unmarshal task: %w", asynq.SkipRetry)
	}

	ctx = context.WithValue(ctx, logger.CtxJobID, task.ID)
	log := logger.FromContext(ctx, w.logger)

	log.Info("Received task",
		logger.String("tool", task.Tool),
		logger.String("filename", task.FileName),
	)

	if task.ID == "" || task.FileKey == "" {
		log.Error("Invalid task data")
		return fmt.Errorf("invalid task data: missing required fields: %w", asynq.SkipRetry)
	}

	if err := w.jobService.Handle(ctx, &task); err != nil {
		// Validation and unsupported-input failures will not pass on a
		// retry; only transient failures go back to the queue.
		var pe *errs.ProcessingError
		if errors.As(err, &pe) && !retryable(pe) {
			return fmt.Errorf("%s: %w", pe.Message, asynq.SkipRetry)
		}
		return err
	}

	return nil
}

func retryable(pe *errs.ProcessingError) bool {
	switch pe.Code {
	case errs.CodeValidation, errs.CodeToolNotFound, errs.CodeCorrupted,
		errs.CodeUnsupported, errs.CodeOutOfMemory:
		return false
	}
	return true
}

func (w *FileWorker) Start(ctx context.Context) error {
	go func() {
		if err := w.server.Run(w.mux); err != nil {
			w.logger.Error("Worker server stopped", logger.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		w.Stop()
	}()

	return nil
}
