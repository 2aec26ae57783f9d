package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/quicktools/file-processor/config"
	"github.com/quicktools/file-processor/internal/models"
)

// TaskTypeToolProcess is the asynq task type for tool invocations.
const TaskTypeToolProcess = "tool:process"

// Queue is the job-queue boundary used by the API and the worker.
type Queue interface {
	Enqueue(ctx context.Context, task *Task) error
	GetTaskStatus(ctx context.Context, taskID string) (*TaskStatus, error)
	CancelTask(ctx context.Context, taskID string) error
	SaveStatus(ctx context.Context, status *TaskStatus) error
}

// Task describes one queued tool invocation. File bytes live in object
// storage; the task carries only their keys.
type Task struct {
	ID         string         `json:"id"`
	Tool       string         `json:"tool"`
	FileKey    string         `json:"fileKey"`
	FileName   string         `json:"fileName"`
	MimeType   string         `json:"mimeType"`
	Size       int64          `json:"size"`
	Options    models.Options `json:"options"`
	ExtraFiles []TaskFile     `json:"extraFiles,omitempty"`
	Priority   int            `json:"priority"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// TaskFile references one additional input of a multi-file tool, keeping its
// own name and type so validation reports the right file.
type TaskFile struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
}

// TaskStatus is the persisted state of a queued task.
type TaskStatus struct {
	TaskID      string    `json:"taskId"`
	Status      string    `json:"status"`
	Progress    float64   `json:"progress"`
	Error       string    `json:"error,omitempty"`
	ErrorCode   string    `json:"errorCode,omitempty"`
	Recoverable bool      `json:"recoverable,omitempty"`
	ResultKey   string    `json:"resultKey,omitempty"`
	ManifestKey string    `json:"manifestKey,omitempty"`
	StartedAt   time.Time `json:"startedAt"`
	FinishedAt  time.Time `json:"finishedAt,omitempty"`
}

// AsynqQueue implements Queue on asynq with Redis-backed status records.
type AsynqQueue struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	redis     *redis.Client
}

// QueueConfig defines queue connection settings.
type QueueConfig struct {
	RedisAddr      string
	RedisDB        int
	MaxRetries     int
	ProcessTimeout time.Duration
	StatusTTL      time.Duration
}

// GetQueue builds a queue from the environment configuration.
func GetQueue() (*AsynqQueue, error) {
	redisCfg := config.GetRedisConfig()
	return NewAsynqQueue(&QueueConfig{
		RedisAddr:      redisCfg.Addr,
		RedisDB:        redisCfg.DB,
		MaxRetries:     3,
		ProcessTimeout: 30 * time.Minute,
		StatusTTL:      24 * time.Hour,
	})
}

// NewAsynqQueue creates a queue instance.
func NewAsynqQueue(cfg *QueueConfig) (*AsynqQueue, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})

	return &AsynqQueue{
		client:    asynq.NewClient(redisOpt),
		inspector: asynq.NewInspector(redisOpt),
		redis:     redisClient,
	}, nil
}

// Enqueue submits the task, routed to a priority queue.
func (q *AsynqQueue) Enqueue(ctx context.Context, task *Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	opts := []asynq.Option{
		asynq.MaxRetry(3),
		asynq.Timeout(30 * time.Minute),
		asynq.TaskID(task.ID),
	}

	switch task.Priority {
	case 1:
		opts = append(opts, asynq.Queue("critical"))
	case 2:
		opts = append(opts, asynq.Queue("default"))
	default:
		opts = append(opts, asynq.Queue("low"))
	}

	t := asynq.NewTask(TaskTypeToolProcess, payload, opts...)
	if _, err := q.client.EnqueueContext(ctx, t); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	return nil
}

// GetTaskStatus returns the persisted status record, falling back to asynq's
// own task state for tasks the worker has not touched yet.
func (q *AsynqQueue) GetTaskStatus(ctx context.Context, taskID string) (*TaskStatus, error) {
	key := statusKey(taskID)
	data, err := q.redis.Get(ctx, key).Bytes()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to get status from redis: %w", err)
	}

	if err == nil {
		var status TaskStatus
		if err := json.Unmarshal(data, &status); err != nil {
			return nil, fmt.Errorf("failed to unmarshal status: %w", err)
		}
		return &status, nil
	}

	queues := []string{"critical", "default", "low"}
	var info *asynq.TaskInfo
	var lastErr error
	for _, queueName := range queues {
		info, err = q.inspector.GetTaskInfo(queueName, taskID)
		if err == nil {
			break
		}
		lastErr = err
	}
	if lastErr != nil && info == nil {
		return nil, fmt.Errorf("task not found in any queue: %w", lastErr)
	}

	return convertAsynqStatus(info), nil
}

// CancelTask removes the task from whichever queue holds it and records the
// cancelled state.
func (q *AsynqQueue) CancelTask(ctx context.Context, taskID string) error {
	queues := []string{"critical", "default", "low"}
	var lastErr error

	for _, queue := range queues {
		err := q.inspector.DeleteTask(queue, taskID)
		if err == nil {
			return q.SaveStatus(ctx, &TaskStatus{
				TaskID:     taskID,
				Status:     string(models.StatusCancelled),
				FinishedAt: time.Now(),
			})
		}
		lastErr = err
	}

	return fmt.Errorf("failed to cancel task: %w", lastErr)
}

// SaveStatus persists the status record with a bounded TTL.
func (q *AsynqQueue) SaveStatus(ctx context.Context, status *TaskStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	if err := q.redis.Set(ctx, statusKey(status.TaskID), data, 24*time.Hour).Err(); err != nil {
		return fmt.Errorf("failed to save status: %w", err)
	}

	return nil
}

func statusKey(taskID string) string {
	return fmt.Sprintf("task_status:%s", taskID)
}

func convertAsynqStatus(info *asynq.TaskInfo) *TaskStatus {
	status := &TaskStatus{
		TaskID:    info.ID,
		StartedAt: info.NextProcessAt,
	}

	switch info.State {
	case asynq.TaskStatePending:
		status.Status = string(models.StatusPending)
	case asynq.TaskStateActive:
		status.Status = string(models.StatusRunning)
	case asynq.TaskStateCompleted:
		status.Status = string(models.StatusCompleted)
		status.Progress = 100
		status.FinishedAt = info.CompletedAt
	case asynq.TaskStateRetry:
		status.Status = string(models.StatusFailed)
		status.Error = info.LastErr
	default:
		status.Status = string(models.StatusPending)
	}

	return status
}
