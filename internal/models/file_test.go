package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJPEGQuality(t *testing.T) {
	assert.Equal(t, 92, QualityHigh.JPEGQuality())
	assert.Equal(t, 75, QualityMedium.JPEGQuality())
	assert.Equal(t, 55, QualityLow.JPEGQuality())
	assert.Equal(t, 75, Quality("").JPEGQuality())
}

func TestOptionsMerged(t *testing.T) {
	defaults := Options{
		Quality:  QualityHigh,
		Width:    1920,
		Language: "eng",
	}

	merged := Options{Quality: QualityLow}.Merged(defaults)
	assert.Equal(t, QualityLow, merged.Quality)
	assert.Equal(t, 1920, merged.Width)
	assert.Equal(t, "eng", merged.Language)

	merged = Options{Width: 640, Height: 480}.Merged(defaults)
	assert.Equal(t, QualityHigh, merged.Quality)
	assert.Equal(t, 640, merged.Width)
	assert.Equal(t, 480, merged.Height)
}

func TestOptionsMergedDoesNotClearExplicit(t *testing.T) {
	set := Options{
		Quality: QualityMedium,
		Format:  "png",
		Pages:   []int{1, 3},
	}
	merged := set.Merged(Options{Quality: QualityHigh, Format: "jpeg"})

	assert.Equal(t, set.Quality, merged.Quality)
	assert.Equal(t, set.Format, merged.Format)
	assert.Equal(t, set.Pages, merged.Pages)
}
