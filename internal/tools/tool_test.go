package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quicktools/file-processor/internal/models"
)

func TestParseTool(t *testing.T) {
	tool, ok := ParseTool("merge-pdf")
	require.True(t, ok)
	assert.Equal(t, MergePDF, tool)

	_, ok = ParseTool("rotate-pdf")
	assert.False(t, ok)

	// Identifiers are case sensitive.
	_, ok = ParseTool("Merge-PDF")
	assert.False(t, ok)
}

func TestAllCoversEveryTool(t *testing.T) {
	all := All()
	assert.Len(t, all, 8)
	assert.Contains(t, all, OCRImage)
}

func TestRegistryLookup(t *testing.T) {
	registry := NewRegistry(BuiltinConfigs())

	cfg := registry.Lookup(MergePDF)
	assert.Equal(t, []string{"application/pdf"}, cfg.AllowedTypes)
	assert.Equal(t, int64(50*1024*1024), cfg.MaxSize)
}

func TestRegistryLookupFallback(t *testing.T) {
	registry := NewRegistry(nil)

	cfg := registry.Lookup(MergePDF)
	assert.Equal(t, DefaultConfig, cfg)
}

func TestRegistryCopiesInput(t *testing.T) {
	configs := map[Tool]Config{
		MergePDF: {AllowedTypes: []string{"application/pdf"}, MaxSize: 1024},
	}
	registry := NewRegistry(configs)

	// Mutating the source table after construction has no effect.
	configs[MergePDF] = Config{AllowedTypes: []string{"*/*"}, MaxSize: 9999}

	assert.Equal(t, int64(1024), registry.Lookup(MergePDF).MaxSize)
}

func TestBuiltinDefaults(t *testing.T) {
	configs := BuiltinConfigs()

	resize := configs[ResizeImage]
	assert.Equal(t, models.QualityHigh, resize.Defaults.Quality)
	assert.Equal(t, 1920, resize.Defaults.Width)

	ocr := configs[OCRImage]
	assert.Equal(t, "eng", ocr.Defaults.Language)
	assert.NotContains(t, ocr.AllowedTypes, "image/gif")
}
