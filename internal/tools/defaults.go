package tools

import (
	"github.com/quicktools/file-processor/internal/models"
)

var pdfTypes = []string{"application/pdf"}

var imageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/tiff", "image/bmp"}

// BuiltinConfigs returns the default tool configuration table. Callers may
// layer overrides on top before constructing a Registry.
func BuiltinConfigs() map[Tool]Config {
	return map[Tool]Config{
		MergePDF: {
			AllowedTypes: pdfTypes,
			MaxSize:      50 * 1024 * 1024,
		},
		CompressPDF: {
			AllowedTypes: pdfTypes,
			MaxSize:      50 * 1024 * 1024,
		},
		SplitPDF: {
			AllowedTypes: pdfTypes,
			MaxSize:      50 * 1024 * 1024,
		},
		PDFToText: {
			AllowedTypes: pdfTypes,
			MaxSize:      50 * 1024 * 1024,
		},
		ResizeImage: {
			AllowedTypes: imageTypes,
			MaxSize:      25 * 1024 * 1024,
			Defaults: models.Options{
				Quality: models.QualityHigh,
				Width:   1920,
			},
		},
		CompressImage: {
			AllowedTypes: imageTypes,
			MaxSize:      25 * 1024 * 1024,
			Defaults: models.Options{
				Quality: models.QualityMedium,
			},
		},
		ConvertImage: {
			AllowedTypes: imageTypes,
			MaxSize:      25 * 1024 * 1024,
			Defaults: models.Options{
				Quality: models.QualityHigh,
			},
		},
		OCRImage: {
			AllowedTypes: []string{"image/jpeg", "image/png", "image/tiff"},
			MaxSize:      25 * 1024 * 1024,
			Defaults: models.Options{
				Language: "eng",
			},
		},
	}
}
