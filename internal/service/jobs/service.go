package jobs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quicktools/file-processor/config"
	"github.com/quicktools/file-processor/internal/errs"
	"github.com/quicktools/file-processor/internal/models"
	"github.com/quicktools/file-processor/internal/service/processor"
	"github.com/quicktools/file-processor/internal/tools"
	"github.com/quicktools/file-processor/pkg/logger"
	"github.com/quicktools/file-processor/pkg/manifest"
	"github.com/quicktools/file-processor/pkg/queue"
	"github.com/quicktools/file-processor/pkg/storage"
)

// Service is the async job boundary consumed by the API handlers and the
// worker.
type Service interface {
	Submit(ctx context.Context, input models.FileInput, toolID string, opts models.Options) (*models.ProcessingTask, error)
	Status(ctx context.Context, taskID string) (*models.ProcessingTask, error)
	Result(ctx context.Context, taskID string) (*models.ProcessedFile, *manifest.Manifest, error)
	Handle(ctx context.Context, task *queue.Task) error
	Cancel(ctx context.Context, taskID string) error
	Cleanup(ctx context.Context) error
}

// ServiceConfig tunes the job service.
type ServiceConfig struct {
	QueuePriority   int
	RetentionPeriod time.Duration
}

// JobService stores inputs in object storage, queues work, and runs the
// processing pipeline on the worker side.
type JobService struct {
	processor *processor.FileProcessor
	queue     queue.Queue
	storage   storage.Storage
	logger    logger.Logger
	config    ServiceConfig
}

// NewService wires a JobService from explicit collaborators.
func NewService(fp *processor.FileProcessor, q queue.Queue, store storage.Storage, log logger.Logger, cfg ServiceConfig) *JobService {
	if cfg.RetentionPeriod == 0 {
		cfg.RetentionPeriod = 24 * time.Hour
	}
	if cfg.QueuePriority == 0 {
		cfg.QueuePriority = 2
	}
	return &JobService{
		processor: fp,
		queue:     q,
		storage:   store,
		logger:    log,
		config:    cfg,
	}
}

// GetService builds the production service from environment configuration.
func GetService(log logger.Logger) (*JobService, error) {
	store, err := storage.GetStorage(log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	q, err := queue.GetQueue()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize queue: %w", err)
	}

	configs, err := config.LoadToolConfigs("")
	if err != nil {
		return nil, fmt.Errorf("failed to load tool configs: %w", err)
	}

	fp := processor.New(processor.Config{
		Registry: tools.NewRegistry(configs),
		Routines: processor.DefaultRoutines(log),
	}, log)

	return NewService(fp, q, store, log, ServiceConfig{}), nil
}

// Processor exposes the underlying pipeline for the synchronous path.
func (s *JobService) Processor() *processor.FileProcessor {
	return s.processor
}

// Submit stores the input files and enqueues a processing task. The tool
// identifier is parsed here, at the external boundary, so the queue never
// carries an unknown tool.
func (s *JobService) Submit(ctx context.Context, input models.FileInput, toolID string, opts models.Options) (*models.ProcessingTask, error) {
	if _, ok := tools.ParseTool(toolID); !ok {
		return nil, errs.NewToolNotFound(toolID)
	}

	taskID := uuid.New().String()
	log := s.logger.With(
		logger.String("taskId", taskID),
		logger.String("tool", toolID),
		logger.String("filename", input.Name),
	)

	if _, err := s.storage.Store(ctx, bytes.NewReader(input.Data), storage.UploadKey(taskID, 0), input.MimeType); err != nil {
		log.Error("Failed to store upload", logger.Error(err))
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	extraFiles := make([]queue.TaskFile, 0, len(opts.AdditionalFiles))
	for i, extra := range opts.AdditionalFiles {
		key := storage.UploadKey(taskID, i+1)
		if _, err := s.storage.Store(ctx, bytes.NewReader(extra.Data), key, extra.MimeType); err != nil {
			log.Error("Failed to store additional upload", logger.Error(err))
			return nil, fmt.Errorf("failed to store upload: %w", err)
		}
		extraFiles = append(extraFiles, queue.TaskFile{
			Key:      key,
			Name:     extra.Name,
			MimeType: extra.MimeType,
		})
	}

	now := time.Now()
	task := &queue.Task{
		ID:         taskID,
		Tool:       toolID,
		FileKey:    storage.UploadKey(taskID, 0),
		FileName:   input.Name,
		MimeType:   input.MimeType,
		Size:       input.Size(),
		Options:    opts,
		ExtraFiles: extraFiles,
		Priority:   s.config.QueuePriority,
		CreatedAt:  now,
	}

	if err := s.queue.Enqueue(ctx, task); err != nil {
		log.Error("Failed to enqueue task", logger.Error(err))
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	if err := s.queue.SaveStatus(ctx, &queue.TaskStatus{
		TaskID:    taskID,
		Status:    string(models.StatusPending),
		StartedAt: now,
	}); err != nil {
		log.Error("Failed to save initial status", logger.Error(err))
	}

	log.Info("Processing task created")

	return &models.ProcessingTask{
		ID:        taskID,
		Tool:      toolID,
		Status:    models.StatusPending,
		Priority:  s.config.QueuePriority,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata: map[string]string{
			"filename": input.Name,
			"size":     fmt.Sprintf("%d", input.Size()),
			"mimeType": input.MimeType,
		},
	}, nil
}

// Handle runs one queued task on the worker side: fetch inputs, process,
// store result and manifest, persist final status.
func (s *JobService) Handle(ctx context.Context, task *queue.Task) error {
	if task == nil || task.ID == "" || task.FileKey == "" {
		return fmt.Errorf("invalid task: missing required data")
	}

	log := s.logger.With(
		logger.String("taskId", task.ID),
		logger.String("tool", task.Tool),
		logger.String("filename", task.FileName),
	)
	log.Info("Processing task")

	start := time.Now()

	data, err := storage.ReadAll(ctx, s.storage, task.FileKey)
	if err != nil {
		return fmt.Errorf("failed to get input: %w", err)
	}
	input := models.FileInput{Name: task.FileName, MimeType: task.MimeType, Data: data}

	opts := task.Options
	opts.AdditionalFiles = opts.AdditionalFiles[:0]
	for _, ef := range task.ExtraFiles {
		data, err := storage.ReadAll(ctx, s.storage, ef.Key)
		if err != nil {
			return fmt.Errorf("failed to get additional input: %w", err)
		}
		opts.AdditionalFiles = append(opts.AdditionalFiles, models.FileInput{
			Name:     ef.Name,
			MimeType: ef.MimeType,
			Data:     data,
		})
	}

	s.saveStatus(ctx, &queue.TaskStatus{
		TaskID:    task.ID,
		Status:    string(models.StatusRunning),
		StartedAt: start,
	})

	result, err := s.processor.Process(ctx, input, task.Tool, opts, func(pct int) {
		s.saveStatus(ctx, &queue.TaskStatus{
			TaskID:    task.ID,
			Status:    string(models.StatusRunning),
			Progress:  float64(pct),
			StartedAt: start,
		})
	})
	if err != nil {
		status := &queue.TaskStatus{
			TaskID:     task.ID,
			Status:     string(models.StatusFailed),
			Error:      err.Error(),
			StartedAt:  start,
			FinishedAt: time.Now(),
		}
		var pe *errs.ProcessingError
		if errors.As(err, &pe) {
			status.ErrorCode = pe.Code
			status.Recoverable = pe.Recoverable
			status.Error = pe.Message
		}
		s.saveStatus(ctx, status)
		return err
	}

	resultKey := storage.ResultKey(task.ID)
	if _, err := s.storage.Store(ctx, bytes.NewReader(result.Data), resultKey, result.MimeType); err != nil {
		return fmt.Errorf("failed to store result: %w", err)
	}

	m, err := manifest.Build(task.ID, task.Tool, input, result, time.Since(start))
	if err != nil {
		return fmt.Errorf("failed to build manifest: %w", err)
	}
	manifestData, err := m.JSON()
	if err != nil {
		return err
	}
	manifestKey := storage.ManifestKey(task.ID)
	if _, err := s.storage.Store(ctx, bytes.NewReader(manifestData), manifestKey, "application/json"); err != nil {
		return fmt.Errorf("failed to store manifest: %w", err)
	}

	s.saveStatus(ctx, &queue.TaskStatus{
		TaskID:      task.ID,
		Status:      string(models.StatusCompleted),
		Progress:    100,
		ResultKey:   resultKey,
		ManifestKey: manifestKey,
		StartedAt:   start,
		FinishedAt:  time.Now(),
	})

	log.Info("Task completed",
		logger.String("resultKey", resultKey),
		logger.Int64("outputSize", result.Size),
		logger.Duration("elapsed", time.Since(start)),
	)

	return nil
}

// Status maps the persisted queue status onto a ProcessingTask.
func (s *JobService) Status(ctx context.Context, taskID string) (*models.ProcessingTask, error) {
	status, err := s.queue.GetTaskStatus(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task status: %w", err)
	}

	var taskStatus models.ProcessingStatus
	switch status.Status {
	case string(models.StatusRunning), "active":
		taskStatus = models.StatusRunning
	case string(models.StatusCompleted):
		taskStatus = models.StatusCompleted
	case string(models.StatusFailed):
		taskStatus = models.StatusFailed
	case string(models.StatusCancelled):
		taskStatus = models.StatusCancelled
	default:
		taskStatus = models.StatusPending
	}

	task := &models.ProcessingTask{
		ID:        status.TaskID,
		Status:    taskStatus,
		Progress:  status.Progress,
		Error:     status.Error,
		Metadata:  make(map[string]string),
		CreatedAt: status.StartedAt,
		UpdatedAt: status.FinishedAt,
	}
	if status.ErrorCode != "" {
		task.Metadata["errorCode"] = status.ErrorCode
		task.Metadata["recoverable"] = fmt.Sprintf("%t", status.Recoverable)
	}
	return task, nil
}

// Result returns the stored output and its manifest for a completed task.
func (s *JobService) Result(ctx context.Context, taskID string) (*models.ProcessedFile, *manifest.Manifest, error) {
	status, err := s.queue.GetTaskStatus(ctx, taskID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get task status: %w", err)
	}
	if status.Status != string(models.StatusCompleted) {
		return nil, nil, fmt.Errorf("task is not completed: %s", status.Status)
	}

	rc, err := s.storage.Get(ctx, status.ManifestKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get manifest: %w", err)
	}
	m, err := manifest.Decode(rc)
	rc.Close()
	if err != nil {
		return nil, nil, err
	}

	data, err := storage.ReadAll(ctx, s.storage, status.ResultKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get result: %w", err)
	}

	return &models.ProcessedFile{
		Data:     data,
		FileName: m.FileName,
		MimeType: m.MimeType,
		Size:     int64(len(data)),
	}, m, nil
}

// Cancel removes a pending task from the queue.
func (s *JobService) Cancel(ctx context.Context, taskID string) error {
	if err := s.queue.CancelTask(ctx, taskID); err != nil {
		return fmt.Errorf("failed to cancel task: %w", err)
	}

	s.logger.Info("Task cancelled", logger.String("taskId", taskID))
	return nil
}

// Cleanup removes stored objects older than the retention period.
func (s *JobService) Cleanup(ctx context.Context) error {
	threshold := time.Now().Add(-s.config.RetentionPeriod)

	if err := s.storage.CleanupBefore(ctx, threshold); err != nil {
		return fmt.Errorf("failed to cleanup storage: %w", err)
	}

	s.logger.Info("Completed storage cleanup", logger.Time("threshold", threshold))
	return nil
}

func (s *JobService) saveStatus(ctx context.Context, status *queue.TaskStatus) {
	if err := s.queue.SaveStatus(ctx, status); err != nil {
		s.logger.Error("Failed to save task status",
			logger.String("taskId", status.TaskID),
			logger.Error(err),
		)
	}
}
