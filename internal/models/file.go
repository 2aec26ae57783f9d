package models

import (
	"time"
)

// Quality selects the encode quality tier for lossy outputs.
type Quality string

const (
	QualityHigh   Quality = "high"
	QualityMedium Quality = "medium"
	QualityLow    Quality = "low"
)

// JPEGQuality maps a quality tier to an encoder percentage.
func (q Quality) JPEGQuality() int {
	switch q {
	case QualityHigh:
		return 92
	case QualityLow:
		return 55
	default:
		return 75
	}
}

// FileInput is an in-memory file handed to the processing pipeline.
type FileInput struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Data     []byte `json:"-"`
}

// Size returns the byte length of the input.
func (f FileInput) Size() int64 {
	return int64(len(f.Data))
}

// Options is the per-job configuration bag. Unknown JSON keys are ignored on
// decode; zero-valued fields fall back to the tool's declared defaults.
type Options struct {
	Quality         Quality     `json:"quality,omitempty" yaml:"quality,omitempty"`
	Compression     bool        `json:"compression,omitempty" yaml:"compression,omitempty"`
	Format          string      `json:"format,omitempty" yaml:"format,omitempty"`
	Pages           []int       `json:"pages,omitempty" yaml:"pages,omitempty"`
	Width           int         `json:"width,omitempty" yaml:"width,omitempty"`
	Height          int         `json:"height,omitempty" yaml:"height,omitempty"`
	Language        string      `json:"language,omitempty" yaml:"language,omitempty"`
	AdditionalFiles []FileInput `json:"-" yaml:"-"`
}

// Merged returns o with zero-valued fields filled from defaults.
func (o Options) Merged(defaults Options) Options {
	if o.Quality == "" {
		o.Quality = defaults.Quality
	}
	if o.Format == "" {
		o.Format = defaults.Format
	}
	if len(o.Pages) == 0 {
		o.Pages = defaults.Pages
	}
	if o.Width == 0 {
		o.Width = defaults.Width
	}
	if o.Height == 0 {
		o.Height = defaults.Height
	}
	if o.Language == "" {
		o.Language = defaults.Language
	}
	if !o.Compression {
		o.Compression = defaults.Compression
	}
	return o
}

// ProcessedFile is the result of one tool invocation. The caller owns the
// buffer exclusively after return.
type ProcessedFile struct {
	Data     []byte `json:"-"`
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

// ProcessingStatus is the lifecycle state of an async job.
type ProcessingStatus string

const (
	StatusPending   ProcessingStatus = "pending"
	StatusRunning   ProcessingStatus = "running"
	StatusCompleted ProcessingStatus = "completed"
	StatusFailed    ProcessingStatus = "failed"
	StatusCancelled ProcessingStatus = "cancelled"
)

// ProcessingTask tracks one queued tool invocation.
type ProcessingTask struct {
	ID        string            `json:"id"`
	Tool      string            `json:"tool"`
	Status    ProcessingStatus  `json:"status"`
	Priority  int               `json:"priority"`
	Progress  float64           `json:"progress"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt,omitempty"`
}
