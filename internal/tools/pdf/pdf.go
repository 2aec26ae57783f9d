package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/quicktools/file-processor/internal/errs"
	"github.com/quicktools/file-processor/internal/models"
	"github.com/quicktools/file-processor/pkg/logger"
)

const mimePDF = "application/pdf"

func configuration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

func outputName(input string, suffix, ext string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	if base == "" {
		base = "output"
	}
	return base + suffix + ext
}

// Merger concatenates the primary input with opts.AdditionalFiles into a
// single PDF, preserving input order.
type Merger struct {
	logger logger.Logger
}

func NewMerger(log logger.Logger) *Merger {
	return &Merger{logger: log}
}

func (m *Merger) Process(ctx context.Context, input models.FileInput, opts models.Options, report func(pct int)) (*models.ProcessedFile, error) {
	report(10)

	readers := make([]io.ReadSeeker, 0, 1+len(opts.AdditionalFiles))
	readers = append(readers, bytes.NewReader(input.Data))
	for _, f := range opts.AdditionalFiles {
		readers = append(readers, bytes.NewReader(f.Data))
	}
	report(30)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := api.MergeRaw(readers, &out, false, configuration()); err != nil {
		return nil, errs.Classify(errs.KindCorrupted, fmt.Errorf("merge pdfs: %w", err))
	}
	report(90)

	m.logger.Debug("Merged PDF files",
		logger.Int("inputs", len(readers)),
		logger.Int("outputBytes", out.Len()),
	)
	report(95)

	return &models.ProcessedFile{
		Data:     out.Bytes(),
		FileName: outputName(input.Name, "-merged", ".pdf"),
		MimeType: mimePDF,
		Size:     int64(out.Len()),
	}, nil
}

// Optimizer re-writes a PDF through pdfcpu's optimizer, pruning redundant
// objects. The output is not guaranteed to be smaller than the input.
type Optimizer struct {
	logger logger.Logger
}

func NewOptimizer(log logger.Logger) *Optimizer {
	return &Optimizer{logger: log}
}

func (o *Optimizer) Process(ctx context.Context, input models.FileInput, opts models.Options, report func(pct int)) (*models.ProcessedFile, error) {
	report(10)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	report(30)

	var out bytes.Buffer
	if err := api.Optimize(bytes.NewReader(input.Data), &out, configuration()); err != nil {
		return nil, errs.Classify(errs.KindCorrupted, fmt.Errorf("optimize pdf: %w", err))
	}
	report(90)

	o.logger.Debug("Optimized PDF",
		logger.Int("inputBytes", len(input.Data)),
		logger.Int("outputBytes", out.Len()),
	)
	report(95)

	return &models.ProcessedFile{
		Data:     out.Bytes(),
		FileName: outputName(input.Name, "-compressed", ".pdf"),
		MimeType: mimePDF,
		Size:     int64(out.Len()),
	}, nil
}

// Splitter extracts the pages named in opts.Pages into a new PDF.
type Splitter struct {
	logger logger.Logger
}

func NewSplitter(log logger.Logger) *Splitter {
	return &Splitter{logger: log}
}

func (s *Splitter) Process(ctx context.Context, input models.FileInput, opts models.Options, report func(pct int)) (*models.ProcessedFile, error) {
	if len(opts.Pages) == 0 {
		return nil, errs.Classify(errs.KindUnsupported, fmt.Errorf("split-pdf requires a pages option"))
	}
	report(10)

	selected := make([]string, len(opts.Pages))
	for i, p := range opts.Pages {
		if p < 1 {
			return nil, errs.Classify(errs.KindUnsupported, fmt.Errorf("invalid page number %d", p))
		}
		selected[i] = strconv.Itoa(p)
	}
	report(30)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := api.Trim(bytes.NewReader(input.Data), &out, selected, configuration()); err != nil {
		return nil, errs.Classify(errs.KindCorrupted, fmt.Errorf("extract pages: %w", err))
	}
	report(90)

	s.logger.Debug("Extracted PDF pages",
		logger.Int("pages", len(selected)),
		logger.Int("outputBytes", out.Len()),
	)
	report(95)

	return &models.ProcessedFile{
		Data:     out.Bytes(),
		FileName: outputName(input.Name, "-pages", ".pdf"),
		MimeType: mimePDF,
		Size:     int64(out.Len()),
	}, nil
}

// TextExtractor pulls the plain text out of every page.
type TextExtractor struct {
	logger logger.Logger
}

func NewTextExtractor(log logger.Logger) *TextExtractor {
	return &TextExtractor{logger: log}
}

func (t *TextExtractor) Process(ctx context.Context, input models.FileInput, opts models.Options, report func(pct int)) (*models.ProcessedFile, error) {
	report(10)

	reader := bytes.NewReader(input.Data)
	pdfReader, err := pdf.NewReader(reader, reader.Size())
	if err != nil {
		return nil, errs.Classify(errs.KindCorrupted, fmt.Errorf("open pdf: %w", err))
	}
	report(30)

	numPages := pdfReader.NumPage()
	var text strings.Builder
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			// Pages without extractable text (scans, pure images) are skipped
			// rather than failing the whole document.
			t.logger.Warn("Skipping page without extractable text",
				logger.Int("page", i),
				logger.Error(err),
			)
			continue
		}

		if text.Len() > 0 {
			text.WriteString("\n\n")
		}
		text.WriteString(strings.TrimSpace(content))

		report(30 + (60*i)/numPages)
	}
	report(95)

	data := []byte(text.String())
	return &models.ProcessedFile{
		Data:     data,
		FileName: outputName(input.Name, "", ".txt"),
		MimeType: "text/plain",
		Size:     int64(len(data)),
	}, nil
}
