package processor

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/quicktools/file-processor/internal/errs"
	"github.com/quicktools/file-processor/internal/metrics"
	"github.com/quicktools/file-processor/internal/models"
	"github.com/quicktools/file-processor/internal/progress"
	"github.com/quicktools/file-processor/internal/tools"
	"github.com/quicktools/file-processor/internal/utils/validator"
	"github.com/quicktools/file-processor/pkg/logger"
)

// FileProcessor validates an input, dispatches it to the matching tool
// routine, tracks progress, and returns a ProcessedFile or a classified
// ProcessingError. Jobs are ephemeral: a job id lives only for the duration
// of one Process call and nothing is persisted here.
type FileProcessor struct {
	registry   *tools.Registry
	routines   map[tools.Tool]tools.Routine
	tracker    *progress.Tracker
	logger     logger.Logger
	maxWorkers int
}

// Config wires a FileProcessor's collaborators. Registry and Routines are
// required; Tracker defaults to a fresh tracker, MaxWorkers to NumCPU.
type Config struct {
	Registry   *tools.Registry
	Routines   map[tools.Tool]tools.Routine
	Tracker    *progress.Tracker
	MaxWorkers int
}

// New creates a FileProcessor from explicit collaborators.
func New(cfg Config, log logger.Logger) *FileProcessor {
	tracker := cfg.Tracker
	if tracker == nil {
		tracker = progress.NewTracker()
	}
	workers := cfg.MaxWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &FileProcessor{
		registry:   cfg.Registry,
		routines:   cfg.Routines,
		tracker:    tracker,
		logger:     log,
		maxWorkers: workers,
	}
}

// Tracker exposes the progress tracker so callers can subscribe to jobs they
// started through Process.
func (p *FileProcessor) Tracker() *progress.Tracker {
	return p.tracker
}

// ProcessFile runs one tool invocation without progress reporting.
func (p *FileProcessor) ProcessFile(ctx context.Context, input models.FileInput, toolID string, opts models.Options) (*models.ProcessedFile, error) {
	return p.Process(ctx, input, toolID, opts, nil)
}

// Process runs one tool invocation, reporting milestones to onProgress when
// given. Validation failures never reach a tool routine; routine failures are
// always wrapped before they reach the caller.
func (p *FileProcessor) Process(ctx context.Context, input models.FileInput, toolID string, opts models.Options, onProgress progress.Callback) (*models.ProcessedFile, error) {
	start := time.Now()
	jobID := uuid.New().String()
	log := p.logger.With(
		logger.String("jobId", jobID),
		logger.String("tool", toolID),
		logger.String("filename", input.Name),
	)

	tool, ok := tools.ParseTool(toolID)
	if !ok {
		log.Warn("Unknown tool requested")
		metrics.ObserveJob(toolID, "rejected", time.Since(start))
		return nil, errs.NewToolNotFound(toolID)
	}

	cfg := p.registry.Lookup(tool)
	merged := opts.Merged(cfg.Defaults)

	if err := p.validate(input, merged, cfg); err != nil {
		log.Warn("File validation failed", logger.Error(err))
		metrics.ObserveJob(toolID, "rejected", time.Since(start))
		return nil, err
	}

	routine, ok := p.routines[tool]
	if !ok {
		log.Error("No routine registered for tool")
		metrics.ObserveJob(toolID, "rejected", time.Since(start))
		return nil, errs.NewToolNotFound(toolID)
	}

	if onProgress != nil {
		p.tracker.Track(jobID, onProgress)
	}
	p.tracker.Update(jobID, 0)

	result, err := routine.Process(ctx, input, merged, func(pct int) {
		p.tracker.Update(jobID, pct)
	})
	if err != nil {
		p.tracker.Remove(jobID)
		log.Error("Tool routine failed", logger.Error(err))
		metrics.ObserveJob(toolID, "failed", time.Since(start))
		return nil, errs.Wrap(err, map[string]string{
			"jobId":    jobID,
			"tool":     toolID,
			"filename": input.Name,
		})
	}

	p.tracker.Complete(jobID)
	metrics.ObserveJob(toolID, "completed", time.Since(start))
	log.Info("File processed",
		logger.String("output", result.FileName),
		logger.Int64("outputSize", result.Size),
		logger.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

// validate runs the content check and the metadata check, collecting every
// failure into a single recoverable ProcessingError.
func (p *FileProcessor) validate(input models.FileInput, opts models.Options, cfg tools.Config) error {
	var failures []string

	if res := validator.ValidateContent(input); !res.IsValid {
		failures = append(failures, res.Errors...)
	}
	if res := validator.ValidateFile(input, cfg.AllowedTypes, cfg.MaxSize); !res.IsValid {
		failures = append(failures, res.Errors...)
	}
	for _, extra := range opts.AdditionalFiles {
		if res := validator.ValidateFile(extra, cfg.AllowedTypes, cfg.MaxSize); !res.IsValid {
			failures = append(failures, res.Errors...)
		}
	}

	if len(failures) == 0 {
		return nil
	}
	return errs.NewValidation(strings.Join(failures, "; "), map[string]string{
		"filename": input.Name,
	})
}

// BatchJob is one independent unit of a batch submission.
type BatchJob struct {
	Input   models.FileInput
	ToolID  string
	Options models.Options
}

// BatchResult pairs a batch job's outcome with its failure, if any.
type BatchResult struct {
	File *models.ProcessedFile
	Err  error
}

// ProcessBatch runs independent jobs in parallel, bounded by the configured
// worker count. Results come back in submission order; one job failing does
// not abort its siblings.
func (p *FileProcessor) ProcessBatch(ctx context.Context, jobs []BatchJob) []BatchResult {
	results := make([]BatchResult, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, p.maxWorkers)

	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = BatchResult{Err: errs.Wrap(ctx.Err(), nil)}
				return nil
			}

			file, err := p.ProcessFile(ctx, job.Input, job.ToolID, job.Options)
			results[i] = BatchResult{File: file, Err: err}
			return nil
		})
	}

	// Goroutines never return errors; Wait is just the join point.
	if err := g.Wait(); err != nil {
		p.logger.Error("Batch wait failed", logger.Error(fmt.Errorf("unexpected: %w", err)))
	}

	return results
}
