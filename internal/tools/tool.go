package tools

import (
	"context"

	"github.com/quicktools/file-processor/internal/models"
)

// Tool identifies one file-transformation operation. Values are produced only
// by ParseTool, so dispatch never sees an unknown tag.
type Tool string

const (
	MergePDF      Tool = "merge-pdf"
	CompressPDF   Tool = "compress-pdf"
	SplitPDF      Tool = "split-pdf"
	PDFToText     Tool = "pdf-to-text"
	ResizeImage   Tool = "resize-image"
	CompressImage Tool = "compress-image"
	ConvertImage  Tool = "convert-image"
	OCRImage      Tool = "ocr-image"
)

var known = map[Tool]struct{}{
	MergePDF:      {},
	CompressPDF:   {},
	SplitPDF:      {},
	PDFToText:     {},
	ResizeImage:   {},
	CompressImage: {},
	ConvertImage:  {},
	OCRImage:      {},
}

// ParseTool converts an externally supplied identifier into a Tool. This is
// the only place an unknown identifier can surface.
func ParseTool(id string) (Tool, bool) {
	t := Tool(id)
	_, ok := known[t]
	return t, ok
}

// All returns every registered tool identifier.
func All() []Tool {
	ts := make([]Tool, 0, len(known))
	for t := range known {
		ts = append(ts, t)
	}
	return ts
}

// Routine is one tool-specific transformation. Implementations share no
// mutable state; multi-input tools receive extra files via
// opts.AdditionalFiles. Vendor failures must be classified with errs.Classify
// before they leave the routine.
type Routine interface {
	Process(ctx context.Context, input models.FileInput, opts models.Options, report func(pct int)) (*models.ProcessedFile, error)
}

// Config constrains what a tool accepts and supplies its option defaults.
type Config struct {
	AllowedTypes []string       `yaml:"allowedTypes" validate:"required,min=1"`
	MaxSize      int64          `yaml:"maxSize" validate:"required,gt=0"`
	Defaults     models.Options `yaml:"defaults"`
}

// DefaultConfig is the permissive fallback applied when a tool has no
// registered configuration. The fallback is deliberate policy, not an error.
var DefaultConfig = Config{
	AllowedTypes: []string{"*/*"},
	MaxSize:      100 * 1024 * 1024,
}

// Registry is an immutable tool-to-config table constructed at startup and
// passed into the orchestrator.
type Registry struct {
	configs map[Tool]Config
}

// NewRegistry copies the given table into a fresh registry.
func NewRegistry(configs map[Tool]Config) *Registry {
	copied := make(map[Tool]Config, len(configs))
	for t, c := range configs {
		copied[t] = c
	}
	return &Registry{configs: copied}
}

// Lookup returns the tool's configuration, or DefaultConfig when absent.
func (r *Registry) Lookup(tool Tool) Config {
	if c, ok := r.configs[tool]; ok {
		return c
	}
	return DefaultConfig
}
