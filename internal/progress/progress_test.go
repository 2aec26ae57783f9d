package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpdateClamps(t *testing.T) {
	tracker := NewTracker()

	var got []int
	tracker.Track("job-1", func(pct int) {
		got = append(got, pct)
	})

	tracker.Update("job-1", -10)
	tracker.Update("job-1", 42)
	tracker.Update("job-1", 150)

	assert.Equal(t, []int{0, 42, 100}, got)
}

func TestUpdateUnknownJobNoop(t *testing.T) {
	tracker := NewTracker()
	assert.NotPanics(t, func() {
		tracker.Update("missing", 50)
	})
}

func TestTrackReplacesCallback(t *testing.T) {
	tracker := NewTracker()

	var first, second []int
	tracker.Track("job-1", func(pct int) { first = append(first, pct) })
	tracker.Track("job-1", func(pct int) { second = append(second, pct) })

	tracker.Update("job-1", 30)

	assert.Empty(t, first)
	assert.Equal(t, []int{30}, second)
}

func TestTrackNilCallbackIgnored(t *testing.T) {
	tracker := NewTracker()
	tracker.Track("job-1", nil)
	assert.NotPanics(t, func() {
		tracker.Update("job-1", 10)
	})
}

func TestCompleteEmitsFinalAndRemoves(t *testing.T) {
	tracker := NewTracker()

	var got []int
	tracker.Track("job-1", func(pct int) { got = append(got, pct) })

	tracker.Update("job-1", 70)
	tracker.Complete("job-1")

	// Updates after completion reach nothing.
	tracker.Update("job-1", 10)

	assert.Equal(t, []int{70, 100}, got)
}

func TestRemoveSilent(t *testing.T) {
	tracker := NewTracker()

	var got []int
	tracker.Track("job-1", func(pct int) { got = append(got, pct) })

	tracker.Update("job-1", 40)
	tracker.Remove("job-1")
	tracker.Update("job-1", 90)

	assert.Equal(t, []int{40}, got)
}
