package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timelineMCs(t *Timeline) []int {
	var mcs []int
	for _, e := range t.Entries {
		mcs = append(mcs, e.MC)
	}
	return mcs
}

func TestPlaybackTimelineRepeat(t *testing.T) {
	score := parseFixture(t, plainRepeatScore())
	timeline := score.PlaybackTimeline()

	assert.Equal(t, []int{0, 1, 2, 3, 0, 1, 2, 3}, timelineMCs(timeline))
	assert.True(t, timeline.Total.Equal(NewFrac(8, 1)))

	require.Len(t, timeline.Entries, 8)
	assert.Equal(t, 1, timeline.Entries[0].Pass)
	assert.Equal(t, 2, timeline.Entries[4].Pass)
	assert.True(t, timeline.Entries[4].Onset.Equal(NewFrac(4, 1)))
}

func TestPlaybackTimelineVoltas(t *testing.T) {
	score := parseFixture(t, twoVoltaScore())
	timeline := score.PlaybackTimeline()

	// first pass takes volta 1 (MC 6), second pass volta 2 (MC 7)
	want := []int{0, 1, 2, 3, 4, 5, 6, 0, 1, 2, 3, 4, 5, 7}
	assert.Equal(t, want, timelineMCs(timeline))
	assert.True(t, timeline.Total.Equal(NewFrac(14, 1)))
}

func TestPlaybackTimelinePickupLength(t *testing.T) {
	score := parseFixture(t, pickupScore())
	timeline := score.PlaybackTimeline()

	require.Len(t, timeline.Entries, 3)
	// the pickup contributes only its actual quarter-note length
	assert.True(t, timeline.Entries[1].Onset.Equal(NewFrac(1, 4)))
	assert.True(t, timeline.Total.Equal(NewFrac(9, 4)))
}

func TestTimelineEntryAt(t *testing.T) {
	score := parseFixture(t, plainRepeatScore())
	timeline := score.PlaybackTimeline()

	entry := timeline.EntryAt(NewFrac(9, 2))
	require.NotNil(t, entry)
	assert.Equal(t, 0, entry.MC)
	assert.Equal(t, 2, entry.Pass)

	assert.Nil(t, timeline.EntryAt(NewFrac(-1, 2)))
}
