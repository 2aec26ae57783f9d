package image

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quicktools/file-processor/internal/errs"
	"github.com/quicktools/file-processor/internal/models"
	"github.com/quicktools/file-processor/pkg/logger"
)

func discard(int) {}

// testImage encodes a solid-color image of the given size in the given format.
func testImage(t *testing.T, width, height int, format imaging.Format) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 30, B: 60, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, format))
	return buf.Bytes()
}

func decodeSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	img, err := imaging.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	b := img.Bounds()
	return b.Dx(), b.Dy()
}

func TestResizerScalesToWidth(t *testing.T) {
	resizer := NewResizer(logger.NewTestLogger())

	input := models.FileInput{
		Name:     "photo.png",
		MimeType: "image/png",
		Data:     testImage(t, 800, 400, imaging.PNG),
	}
	out, err := resizer.Process(context.Background(), input, models.Options{Width: 200}, discard)

	require.NoError(t, err)
	w, h := decodeSize(t, out.Data)
	assert.Equal(t, 200, w)
	assert.Equal(t, 100, h, "zero height preserves aspect ratio")
	assert.Equal(t, "photo-resized.png", out.FileName)
	assert.Equal(t, "image/png", out.MimeType)
}

func TestResizerRequiresDimension(t *testing.T) {
	resizer := NewResizer(logger.NewTestLogger())

	input := models.FileInput{Name: "photo.png", Data: testImage(t, 10, 10, imaging.PNG)}
	_, err := resizer.Process(context.Background(), input, models.Options{}, discard)

	var te *errs.ToolError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, errs.KindUnsupported, te.Kind)
}

func TestResizerCorruptedInput(t *testing.T) {
	resizer := NewResizer(logger.NewTestLogger())

	input := models.FileInput{Name: "photo.png", Data: []byte("not an image")}
	_, err := resizer.Process(context.Background(), input, models.Options{Width: 100}, discard)

	var te *errs.ToolError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, errs.KindCorrupted, te.Kind)
}

func TestResizerFormatOverride(t *testing.T) {
	resizer := NewResizer(logger.NewTestLogger())

	input := models.FileInput{Name: "photo.png", Data: testImage(t, 50, 50, imaging.PNG)}
	out, err := resizer.Process(context.Background(), input, models.Options{Width: 25, Format: "jpg", Quality: models.QualityHigh}, discard)

	require.NoError(t, err)
	assert.Equal(t, "photo-resized.jpg", out.FileName)
	assert.Equal(t, "image/jpeg", out.MimeType)
}

func TestResizerUnknownExtensionFallsBackToJPEG(t *testing.T) {
	resizer := NewResizer(logger.NewTestLogger())

	input := models.FileInput{Name: "frame.xyz", Data: testImage(t, 20, 20, imaging.PNG)}
	out, err := resizer.Process(context.Background(), input, models.Options{Width: 10}, discard)

	require.NoError(t, err)
	assert.Equal(t, "frame-resized.jpg", out.FileName)
	assert.True(t, bytes.HasPrefix(out.Data, []byte{0xFF, 0xD8, 0xFF}))
}

func TestCompressorReencodesAsJPEG(t *testing.T) {
	compressor := NewCompressor(logger.NewTestLogger())

	input := models.FileInput{
		Name:     "scan.png",
		MimeType: "image/png",
		Data:     testImage(t, 120, 80, imaging.PNG),
	}
	out, err := compressor.Process(context.Background(), input, models.Options{Quality: models.QualityLow}, discard)

	require.NoError(t, err)
	assert.Equal(t, "scan-compressed.jpg", out.FileName)
	assert.Equal(t, "image/jpeg", out.MimeType)
	assert.True(t, bytes.HasPrefix(out.Data, []byte{0xFF, 0xD8, 0xFF}))

	w, h := decodeSize(t, out.Data)
	assert.Equal(t, 120, w)
	assert.Equal(t, 80, h)
}

func TestConverterPNGToJPEG(t *testing.T) {
	converter := NewConverter(logger.NewTestLogger())

	input := models.FileInput{Name: "diagram.png", Data: testImage(t, 40, 40, imaging.PNG)}
	out, err := converter.Process(context.Background(), input, models.Options{Format: "jpg", Quality: models.QualityMedium}, discard)

	require.NoError(t, err)
	assert.Equal(t, "diagram.jpg", out.FileName)
	assert.True(t, bytes.HasPrefix(out.Data, []byte{0xFF, 0xD8, 0xFF}))
}

func TestConverterJPEGToPNG(t *testing.T) {
	converter := NewConverter(logger.NewTestLogger())

	input := models.FileInput{Name: "photo.jpg", Data: testImage(t, 40, 40, imaging.JPEG)}
	out, err := converter.Process(context.Background(), input, models.Options{Format: "png"}, discard)

	require.NoError(t, err)
	assert.Equal(t, "photo.png", out.FileName)
	assert.True(t, bytes.HasPrefix(out.Data, []byte{0x89, 0x50, 0x4E, 0x47}))
}

func TestConverterRequiresFormat(t *testing.T) {
	converter := NewConverter(logger.NewTestLogger())

	input := models.FileInput{Name: "photo.png", Data: testImage(t, 10, 10, imaging.PNG)}
	_, err := converter.Process(context.Background(), input, models.Options{}, discard)

	var te *errs.ToolError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, errs.KindUnsupported, te.Kind)
}

func TestConverterUnknownFormat(t *testing.T) {
	converter := NewConverter(logger.NewTestLogger())

	input := models.FileInput{Name: "photo.png", Data: testImage(t, 10, 10, imaging.PNG)}
	_, err := converter.Process(context.Background(), input, models.Options{Format: "webp"}, discard)

	var te *errs.ToolError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, errs.KindUnsupported, te.Kind)
}

func TestMilestonesOrdered(t *testing.T) {
	compressor := NewCompressor(logger.NewTestLogger())

	input := models.FileInput{Name: "scan.png", Data: testImage(t, 10, 10, imaging.PNG)}

	var milestones []int
	_, err := compressor.Process(context.Background(), input, models.Options{}, func(pct int) {
		milestones = append(milestones, pct)
	})

	require.NoError(t, err)
	assert.Equal(t, []int{10, 50, 90, 95}, milestones)
}
