package worker

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quicktools/file-processor/internal/errs"
	"github.com/quicktools/file-processor/internal/models"
	"github.com/quicktools/file-processor/pkg/logger"
	"github.com/quicktools/file-processor/pkg/manifest"
	"github.com/quicktools/file-processor/pkg/queue"
)

// fakeJobService lets Handle fail on demand.
type fakeJobService struct {
	handleErr error
	handled   []*queue.Task
}

func (f *fakeJobService) Submit(ctx context.Context, input models.FileInput, toolID string, opts models.Options) (*models.ProcessingTask, error) {
	return nil, nil
}

func (f *fakeJobService) Status(ctx context.Context, taskID string) (*models.ProcessingTask, error) {
	return nil, nil
}

func (f *fakeJobService) Result(ctx context.Context, taskID string) (*models.ProcessedFile, *manifest.Manifest, error) {
	return nil, nil, nil
}

func (f *fakeJobService) Handle(ctx context.Context, task *queue.Task) error {
	f.handled = append(f.handled, task)
	return f.handleErr
}

func (f *fakeJobService) Cancel(ctx context.Context, taskID string) error {
	return nil
}

func (f *fakeJobService) Cleanup(ctx context.Context) error {
	return nil
}

func newTestWorker(t *testing.T, svc *fakeJobService) *FileWorker {
	t.Helper()
	w, err := NewFileWorker(&Config{
		RedisAddr:   "localhost:6379",
		Concurrency: 1,
		Queues:      map[string]int{"default": 1},
	}, svc, logger.NewTestLogger())
	require.NoError(t, err)
	return w
}

func taskPayload(t *testing.T) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(queue.Task{
		ID:       "task-1",
		Tool:     "merge-pdf",
		FileKey:  "uploads/task-1",
		FileName: "report.pdf",
	})
	require.NoError(t, err)
	return asynq.NewTask(queue.TaskTypeToolProcess, payload)
}

func TestHandleToolProcessSuccess(t *testing.T) {
	svc := &fakeJobService{}
	w := newTestWorker(t, svc)

	require.NoError(t, w.handleToolProcess(context.Background(), taskPayload(t)))
	require.Len(t, svc.handled, 1)
	assert.Equal(t, "task-1", svc.handled[0].ID)
}

func TestHandleToolProcessBadPayload(t *testing.T) {
	w := newTestWorker(t, &fakeJobService{})

	err := w.handleToolProcess(context.Background(), asynq.NewTask(queue.TaskTypeToolProcess, []byte("{broken")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleToolProcessMissingFields(t *testing.T) {
	w := newTestWorker(t, &fakeJobService{})

	payload, err := json.Marshal(queue.Task{ID: "task-2"})
	require.NoError(t, err)

	err = w.handleToolProcess(context.Background(), asynq.NewTask(queue.TaskTypeToolProcess, payload))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleToolProcessNonRetryableFailure(t *testing.T) {
	svc := &fakeJobService{handleErr: errs.NewValidation("File extension .exe is not allowed", nil)}
	w := newTestWorker(t, svc)

	err := w.handleToolProcess(context.Background(), taskPayload(t))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleToolProcessRetryableFailure(t *testing.T) {
	timeout := &errs.ProcessingError{Code: errs.CodeTimeout, Message: "processing took too long", Recoverable: true}
	svc := &fakeJobService{handleErr: timeout}
	w := newTestWorker(t, svc)

	err := w.handleToolProcess(context.Background(), taskPayload(t))
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		code string
		want bool
	}{
		{errs.CodeValidation, false},
		{errs.CodeToolNotFound, false},
		{errs.CodeCorrupted, false},
		{errs.CodeUnsupported, false},
		{errs.CodeOutOfMemory, false},
		{errs.CodeTimeout, true},
		{errs.CodeProcessing, true},
	}

	for _, tc := range cases {
		pe := &errs.ProcessingError{Code: tc.code}
		assert.Equal(t, tc.want, retryable(pe), "code %s", tc.code)
	}
}

func TestStopIdempotent(t *testing.T) {
	w := newTestWorker(t, &fakeJobService{})

	assert.NotPanics(t, func() {
		require.NoError(t, w.Stop())
		require.NoError(t, w.Stop())
	})
}
