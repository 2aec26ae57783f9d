package processor

import (
	"github.com/quicktools/file-processor/internal/tools"
	"github.com/quicktools/file-processor/internal/tools/image"
	"github.com/quicktools/file-processor/internal/tools/ocr"
	"github.com/quicktools/file-processor/internal/tools/pdf"
	"github.com/quicktools/file-processor/pkg/logger"
)

// DefaultRoutines builds the production routine set, one per tool.
func DefaultRoutines(log logger.Logger) map[tools.Tool]tools.Routine {
	return map[tools.Tool]tools.Routine{
		tools.MergePDF:      pdf.NewMerger(log),
		tools.CompressPDF:   pdf.NewOptimizer(log),
		tools.SplitPDF:      pdf.NewSplitter(log),
		tools.PDFToText:     pdf.NewTextExtractor(log),
		tools.ResizeImage:   image.NewResizer(log),
		tools.CompressImage: image.NewCompressor(log),
		tools.ConvertImage:  image.NewConverter(log),
		tools.OCRImage:      ocr.NewRecognizer(log),
	}
}
