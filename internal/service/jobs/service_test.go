package jobs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quicktools/file-processor/internal/errs"
	"github.com/quicktools/file-processor/internal/models"
	"github.com/quicktools/file-processor/internal/service/processor"
	"github.com/quicktools/file-processor/internal/tools"
	"github.com/quicktools/file-processor/pkg/logger"
	"github.com/quicktools/file-processor/pkg/manifest"
	"github.com/quicktools/file-processor/pkg/queue"
	"github.com/quicktools/file-processor/pkg/storage"
)

// fakeStorage keeps objects in memory.
type fakeStorage struct {
	mu        sync.Mutex
	objects   map[string][]byte
	threshold time.Time
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (f *fakeStorage) Store(ctx context.Context, reader io.Reader, key, contentType string) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	f.objects[key] = data
	f.mu.Unlock()
	return key, nil
}

func (f *fakeStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	data, ok := f.objects[key]
	f.mu.Unlock()
	if !ok {
		return nil, errors.New("object not found: " + key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeStorage) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	delete(f.objects, key)
	f.mu.Unlock()
	return nil
}

func (f *fakeStorage) CleanupBefore(ctx context.Context, threshold time.Time) error {
	f.mu.Lock()
	f.threshold = threshold
	f.mu.Unlock()
	return nil
}

// fakeQueue records enqueued tasks and every saved status.
type fakeQueue struct {
	mu       sync.Mutex
	tasks    []*queue.Task
	statuses []*queue.TaskStatus
	latest   map[string]*queue.TaskStatus
	canceled []string
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{latest: make(map[string]*queue.TaskStatus)}
}

func (f *fakeQueue) Enqueue(ctx context.Context, task *queue.Task) error {
	f.mu.Lock()
	f.tasks = append(f.tasks, task)
	f.mu.Unlock()
	return nil
}

func (f *fakeQueue) GetTaskStatus(ctx context.Context, taskID string) (*queue.TaskStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status, ok := f.latest[taskID]
	if !ok {
		return nil, errors.New("status not found")
	}
	return status, nil
}

func (f *fakeQueue) CancelTask(ctx context.Context, taskID string) error {
	f.mu.Lock()
	f.canceled = append(f.canceled, taskID)
	f.mu.Unlock()
	return nil
}

func (f *fakeQueue) SaveStatus(ctx context.Context, status *queue.TaskStatus) error {
	f.mu.Lock()
	f.statuses = append(f.statuses, status)
	f.latest[status.TaskID] = status
	f.mu.Unlock()
	return nil
}

// stubRoutine returns a fixed output.
type stubRoutine struct {
	result *models.ProcessedFile
	err    error
}

func (s *stubRoutine) Process(ctx context.Context, input models.FileInput, opts models.Options, report func(pct int)) (*models.ProcessedFile, error) {
	report(50)
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

var pdfBytes = []byte("%PDF-1.4\nstub document body\n%%EOF\n")

func newTestService(routine tools.Routine) (*JobService, *fakeQueue, *fakeStorage) {
	log := logger.NewTestLogger()
	fp := processor.New(processor.Config{
		Registry: tools.NewRegistry(tools.BuiltinConfigs()),
		Routines: map[tools.Tool]tools.Routine{tools.MergePDF: routine},
	}, log)
	q := newFakeQueue()
	store := newFakeStorage()
	return NewService(fp, q, store, log, ServiceConfig{}), q, store
}

func pdfInput(name string) models.FileInput {
	return models.FileInput{Name: name, MimeType: "application/pdf", Data: pdfBytes}
}

func TestSubmitStoresAndEnqueues(t *testing.T) {
	svc, q, store := newTestService(&stubRoutine{})

	opts := models.Options{AdditionalFiles: []models.FileInput{pdfInput("appendix.pdf")}}
	task, err := svc.Submit(context.Background(), pdfInput("report.pdf"), "merge-pdf", opts)

	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, task.Status)

	require.Len(t, q.tasks, 1)
	queued := q.tasks[0]
	assert.Equal(t, task.ID, queued.ID)
	assert.Equal(t, "merge-pdf", queued.Tool)
	assert.Equal(t, storage.UploadKey(task.ID, 0), queued.FileKey)

	// Extra files keep their own identity on the queued task.
	require.Len(t, queued.ExtraFiles, 1)
	assert.Equal(t, storage.UploadKey(task.ID, 1), queued.ExtraFiles[0].Key)
	assert.Equal(t, "appendix.pdf", queued.ExtraFiles[0].Name)
	assert.Equal(t, "application/pdf", queued.ExtraFiles[0].MimeType)

	assert.Contains(t, store.objects, queued.FileKey)
	assert.Contains(t, store.objects, queued.ExtraFiles[0].Key)

	require.Len(t, q.statuses, 1)
	assert.Equal(t, string(models.StatusPending), q.statuses[0].Status)
}

func TestSubmitUnknownTool(t *testing.T) {
	svc, q, _ := newTestService(&stubRoutine{})

	_, err := svc.Submit(context.Background(), pdfInput("report.pdf"), "rotate-pdf", models.Options{})

	var pe *errs.ProcessingError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, errs.CodeToolNotFound, pe.Code)
	assert.Empty(t, q.tasks)
}

func TestHandleSuccess(t *testing.T) {
	routine := &stubRoutine{result: &models.ProcessedFile{
		Data:     []byte("merged output"),
		FileName: "report-merged.pdf",
		MimeType: "application/pdf",
		Size:     13,
	}}
	svc, q, store := newTestService(routine)

	submitted, err := svc.Submit(context.Background(), pdfInput("report.pdf"), "merge-pdf", models.Options{})
	require.NoError(t, err)

	require.NoError(t, svc.Handle(context.Background(), q.tasks[0]))

	// Progress callbacks landed as running statuses before the final one.
	var sawRunning bool
	for _, st := range q.statuses {
		if st.Status == string(models.StatusRunning) && st.Progress > 0 {
			sawRunning = true
		}
	}
	assert.True(t, sawRunning)

	final := q.latest[submitted.ID]
	require.NotNil(t, final)
	assert.Equal(t, string(models.StatusCompleted), final.Status)
	assert.Equal(t, float64(100), final.Progress)
	assert.Equal(t, storage.ResultKey(submitted.ID), final.ResultKey)
	assert.Equal(t, storage.ManifestKey(submitted.ID), final.ManifestKey)

	assert.Equal(t, []byte("merged output"), store.objects[final.ResultKey])

	m, err := manifest.Decode(bytes.NewReader(store.objects[final.ManifestKey]))
	require.NoError(t, err)
	assert.Equal(t, submitted.ID, m.TaskID)
	assert.Equal(t, "report-merged.pdf", m.FileName)
	assert.Equal(t, "report.pdf", m.SourceName)
}

func TestHandleClassifiedFailure(t *testing.T) {
	routine := &stubRoutine{err: errs.Classify(errs.KindCorrupted, errors.New("xref broken"))}
	svc, q, _ := newTestService(routine)

	submitted, err := svc.Submit(context.Background(), pdfInput("report.pdf"), "merge-pdf", models.Options{})
	require.NoError(t, err)

	err = svc.Handle(context.Background(), q.tasks[0])
	require.Error(t, err)

	final := q.latest[submitted.ID]
	require.NotNil(t, final)
	assert.Equal(t, string(models.StatusFailed), final.Status)
	assert.Equal(t, errs.CodeCorrupted, final.ErrorCode)
	assert.True(t, final.Recoverable)
	// The persisted error is the user-facing message, not the vendor text.
	assert.NotContains(t, final.Error, "xref")
}

func TestHandleValidatesExtraFilesByName(t *testing.T) {
	svc, q, _ := newTestService(&stubRoutine{result: &models.ProcessedFile{FileName: "out.pdf"}})

	extra := models.FileInput{Name: "payload.exe", MimeType: "application/pdf", Data: pdfBytes}
	_, err := svc.Submit(context.Background(), pdfInput("report.pdf"), "merge-pdf",
		models.Options{AdditionalFiles: []models.FileInput{extra}})
	require.NoError(t, err)

	err = svc.Handle(context.Background(), q.tasks[0])
	require.Error(t, err)

	var pe *errs.ProcessingError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, errs.CodeValidation, pe.Code)
	// The extra file is judged under its own name, not the primary's.
	assert.Contains(t, pe.Message, ".exe")
}

func TestHandleInvalidTask(t *testing.T) {
	svc, _, _ := newTestService(&stubRoutine{})

	assert.Error(t, svc.Handle(context.Background(), nil))
	assert.Error(t, svc.Handle(context.Background(), &queue.Task{ID: "x"}))
}

func TestStatusMapsQueueStates(t *testing.T) {
	svc, q, _ := newTestService(&stubRoutine{})

	cases := []struct {
		saved string
		want  models.ProcessingStatus
	}{
		{"active", models.StatusRunning},
		{string(models.StatusRunning), models.StatusRunning},
		{string(models.StatusCompleted), models.StatusCompleted},
		{string(models.StatusFailed), models.StatusFailed},
		{string(models.StatusCancelled), models.StatusCancelled},
		{"scheduled", models.StatusPending},
	}

	for _, tc := range cases {
		require.NoError(t, q.SaveStatus(context.Background(), &queue.TaskStatus{TaskID: "t1", Status: tc.saved}))
		task, err := svc.Status(context.Background(), "t1")
		require.NoError(t, err)
		assert.Equal(t, tc.want, task.Status, "queue state %q", tc.saved)
	}
}

func TestStatusExposesErrorCode(t *testing.T) {
	svc, q, _ := newTestService(&stubRoutine{})

	require.NoError(t, q.SaveStatus(context.Background(), &queue.TaskStatus{
		TaskID:      "t2",
		Status:      string(models.StatusFailed),
		ErrorCode:   errs.CodeCorrupted,
		Recoverable: true,
	}))

	task, err := svc.Status(context.Background(), "t2")
	require.NoError(t, err)
	assert.Equal(t, errs.CodeCorrupted, task.Metadata["errorCode"])
	assert.Equal(t, "true", task.Metadata["recoverable"])
}

func TestResultRequiresCompletion(t *testing.T) {
	svc, q, _ := newTestService(&stubRoutine{})

	require.NoError(t, q.SaveStatus(context.Background(), &queue.TaskStatus{
		TaskID: "t3",
		Status: string(models.StatusRunning),
	}))

	_, _, err := svc.Result(context.Background(), "t3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not completed")
}

func TestResultRoundTrip(t *testing.T) {
	routine := &stubRoutine{result: &models.ProcessedFile{
		Data:     []byte("text body"),
		FileName: "report.txt",
		MimeType: "text/plain",
		Size:     9,
	}}
	svc, q, _ := newTestService(routine)

	submitted, err := svc.Submit(context.Background(), pdfInput("report.pdf"), "merge-pdf", models.Options{})
	require.NoError(t, err)
	require.NoError(t, svc.Handle(context.Background(), q.tasks[0]))

	file, m, err := svc.Result(context.Background(), submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("text body"), file.Data)
	assert.Equal(t, "report.txt", file.FileName)
	assert.Equal(t, submitted.ID, m.TaskID)
}

func TestCancelDelegates(t *testing.T) {
	svc, q, _ := newTestService(&stubRoutine{})

	require.NoError(t, svc.Cancel(context.Background(), "t4"))
	assert.Equal(t, []string{"t4"}, q.canceled)
}

func TestCleanupUsesRetentionPeriod(t *testing.T) {
	svc, _, store := newTestService(&stubRoutine{})

	require.NoError(t, svc.Cleanup(context.Background()))

	// Default retention is 24 hours.
	want := time.Now().Add(-24 * time.Hour)
	assert.WithinDuration(t, want, store.threshold, time.Minute)
}

func TestCleanupCustomRetention(t *testing.T) {
	log := logger.NewTestLogger()
	fp := processor.New(processor.Config{
		Registry: tools.NewRegistry(tools.BuiltinConfigs()),
		Routines: map[tools.Tool]tools.Routine{},
	}, log)
	store := newFakeStorage()
	svc := NewService(fp, newFakeQueue(), store, log, ServiceConfig{RetentionPeriod: time.Hour})

	require.NoError(t, svc.Cleanup(context.Background()))
	assert.WithinDuration(t, time.Now().Add(-time.Hour), store.threshold, time.Minute)
}
