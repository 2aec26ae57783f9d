package ocr

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"github.com/quicktools/file-processor/internal/errs"
	"github.com/quicktools/file-processor/internal/models"
	"github.com/quicktools/file-processor/pkg/logger"
)

// Recognizer runs Tesseract text recognition over an image. Each invocation
// creates its own client; gosseract clients are not safe for concurrent use.
type Recognizer struct {
	logger logger.Logger
}

func NewRecognizer(log logger.Logger) *Recognizer {
	return &Recognizer{logger: log}
}

func (r *Recognizer) Process(ctx context.Context, input models.FileInput, opts models.Options, report func(pct int)) (*models.ProcessedFile, error) {
	report(10)

	client := gosseract.NewClient()
	defer client.Close()

	if opts.Language != "" {
		if err := client.SetLanguage(opts.Language); err != nil {
			return nil, errs.Classify(errs.KindUnsupported, fmt.Errorf("set ocr language %q: %w", opts.Language, err))
		}
	}

	if err := client.SetImageFromBytes(preprocess(input.Data)); err != nil {
		return nil, errs.Classify(errs.KindCorrupted, fmt.Errorf("load image for ocr: %w", err))
	}
	report(30)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text, err := client.Text()
	if err != nil {
		return nil, errs.Classify(errs.KindUnknown, fmt.Errorf("recognize text: %w", err))
	}
	report(90)

	r.logger.Debug("Recognized text from image",
		logger.String("language", opts.Language),
		logger.Int("chars", len(text)),
	)
	report(95)

	base := strings.TrimSuffix(filepath.Base(input.Name), filepath.Ext(input.Name))
	if base == "" {
		base = "output"
	}
	data := []byte(text)
	return &models.ProcessedFile{
		Data:     data,
		FileName: base + ".txt",
		MimeType: "text/plain",
		Size:     int64(len(data)),
	}, nil
}

// preprocess converts the image to grayscale before recognition, which
// improves accuracy on colored scans. Inputs that imaging cannot decode are
// passed through unchanged and left for Tesseract to reject.
func preprocess(data []byte) []byte {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return data
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.Grayscale(img), imaging.PNG); err != nil {
		return data
	}
	return buf.Bytes()
}
