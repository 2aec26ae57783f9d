package image

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/quicktools/file-processor/internal/errs"
	"github.com/quicktools/file-processor/internal/models"
	"github.com/quicktools/file-processor/pkg/logger"
)

var formatMIME = map[imaging.Format]string{
	imaging.JPEG: "image/jpeg",
	imaging.PNG:  "image/png",
	imaging.GIF:  "image/gif",
	imaging.TIFF: "image/tiff",
	imaging.BMP:  "image/bmp",
}

var formatExt = map[imaging.Format]string{
	imaging.JPEG: ".jpg",
	imaging.PNG:  ".png",
	imaging.GIF:  ".gif",
	imaging.TIFF: ".tiff",
	imaging.BMP:  ".bmp",
}

// Resizer scales an image to the requested width/height. A zero dimension
// preserves the aspect ratio.
type Resizer struct {
	logger logger.Logger
}

func NewResizer(log logger.Logger) *Resizer {
	return &Resizer{logger: log}
}

func (r *Resizer) Process(ctx context.Context, input models.FileInput, opts models.Options, report func(pct int)) (*models.ProcessedFile, error) {
	report(10)

	src, err := imaging.Decode(bytes.NewReader(input.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, errs.Classify(errs.KindCorrupted, fmt.Errorf("decode image: %w", err))
	}
	report(30)

	if opts.Width == 0 && opts.Height == 0 {
		return nil, errs.Classify(errs.KindUnsupported, fmt.Errorf("resize-image requires a width or height option"))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resized := imaging.Resize(src, opts.Width, opts.Height, imaging.Lanczos)
	report(70)

	format := formatFor(input.Name, opts.Format)

	var out bytes.Buffer
	if err := imaging.Encode(&out, resized, format, imaging.JPEGQuality(opts.Quality.JPEGQuality())); err != nil {
		return nil, errs.Classify(errs.KindUnknown, fmt.Errorf("encode image: %w", err))
	}
	report(90)

	r.logger.Debug("Resized image",
		logger.Int("width", resized.Bounds().Dx()),
		logger.Int("height", resized.Bounds().Dy()),
		logger.Int("outputBytes", out.Len()),
	)
	report(95)

	return result(input.Name, "-resized", format, out.Bytes()), nil
}

// Compressor re-encodes an image as JPEG at the requested quality tier.
type Compressor struct {
	logger logger.Logger
}

func NewCompressor(log logger.Logger) *Compressor {
	return &Compressor{logger: log}
}

func (c *Compressor) Process(ctx context.Context, input models.FileInput, opts models.Options, report func(pct int)) (*models.ProcessedFile, error) {
	report(10)

	src, err := imaging.Decode(bytes.NewReader(input.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, errs.Classify(errs.KindCorrupted, fmt.Errorf("decode image: %w", err))
	}
	report(50)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := imaging.Encode(&out, src, imaging.JPEG, imaging.JPEGQuality(opts.Quality.JPEGQuality())); err != nil {
		return nil, errs.Classify(errs.KindUnknown, fmt.Errorf("encode image: %w", err))
	}
	report(90)

	c.logger.Debug("Compressed image",
		logger.String("quality", string(opts.Quality)),
		logger.Int("inputBytes", len(input.Data)),
		logger.Int("outputBytes", out.Len()),
	)
	report(95)

	return result(input.Name, "-compressed", imaging.JPEG, out.Bytes()), nil
}

// Converter re-encodes an image into the format named by opts.Format.
type Converter struct {
	logger logger.Logger
}

func NewConverter(log logger.Logger) *Converter {
	return &Converter{logger: log}
}

func (c *Converter) Process(ctx context.Context, input models.FileInput, opts models.Options, report func(pct int)) (*models.ProcessedFile, error) {
	if opts.Format == "" {
		return nil, errs.Classify(errs.KindUnsupported, fmt.Errorf("convert-image requires a format option"))
	}
	report(10)

	src, err := imaging.Decode(bytes.NewReader(input.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, errs.Classify(errs.KindCorrupted, fmt.Errorf("decode image: %w", err))
	}
	report(50)

	format, err := imaging.FormatFromExtension(opts.Format)
	if err != nil {
		return nil, errs.Classify(errs.KindUnsupported, fmt.Errorf("unsupported target format %q: %w", opts.Format, err))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := imaging.Encode(&out, src, format, imaging.JPEGQuality(opts.Quality.JPEGQuality())); err != nil {
		return nil, errs.Classify(errs.KindUnknown, fmt.Errorf("encode image: %w", err))
	}
	report(90)

	c.logger.Debug("Converted image",
		logger.String("format", opts.Format),
		logger.Int("outputBytes", out.Len()),
	)
	report(95)

	return result(input.Name, "", format, out.Bytes()), nil
}

func formatFor(name, override string) imaging.Format {
	ext := override
	if ext == "" {
		ext = filepath.Ext(name)
	}
	format, err := imaging.FormatFromExtension(ext)
	if err != nil {
		// Fall back to JPEG for inputs whose extension imaging cannot map.
		return imaging.JPEG
	}
	return format
}

func result(inputName, suffix string, format imaging.Format, data []byte) *models.ProcessedFile {
	base := strings.TrimSuffix(filepath.Base(inputName), filepath.Ext(inputName))
	if base == "" {
		base = "output"
	}
	return &models.ProcessedFile{
		Data:     data,
		FileName: base + suffix + formatExt[format],
		MimeType: formatMIME[format],
		Size:     int64(len(data)),
	}
}
