package components

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollis/cantata/internal/domain"
)

func listFixture() []domain.Track {
	return []domain.Track{
		{ID: 0, Title: "Morning Raga", Artist: "Asha", FileName: "morning_raga.mp3"},
		{ID: 1, Title: "Evening Jazz", Artist: "Bill", FileName: "evening_jazz.mp3"},
		{ID: 2, Title: "Night Drive", Artist: "Cleo", FileName: "night_drive.mp3"},
	}
}

func TestTrackList_IncrementalFilter(t *testing.T) {
	l := NewTrackList()
	l.SetTracks(listFixture())

	l.FilterInput.SetValue("jazz")
	l.UpdateFilter(nil)

	selected, ok := l.Selected()
	require.True(t, ok)
	assert.Equal(t, "Evening Jazz", selected.Title)

	l.ClearFilter()
	assert.Empty(t, l.Query())
	l.cursor = 0
	selected, ok = l.Selected()
	require.True(t, ok)
	assert.Equal(t, "Morning Raga", selected.Title)
}

func TestTrackList_Query(t *testing.T) {
	l := NewTrackList()
	l.FilterInput.SetValue("  jazz ")
	assert.Equal(t, "jazz", l.Query())
}

func TestTrackList_ShowRanked(t *testing.T) {
	l := NewTrackList()
	tracks := listFixture()
	l.SetTracks(tracks)
	l.cursor = 2

	l.ShowRanked(tracks[1:2])

	selected, ok := l.Selected()
	require.True(t, ok)
	assert.Equal(t, "Evening Jazz", selected.Title)

	// Clearing the filter restores the full local list.
	l.ClearFilter()
	assert.Len(t, l.filtered, 3)
}

func TestTrackList_RemoveKeepsCursorInRange(t *testing.T) {
	l := NewTrackList()
	l.SetTracks(listFixture())
	l.cursor = 2

	l.Remove("night_drive.mp3")

	selected, ok := l.Selected()
	require.True(t, ok)
	assert.Equal(t, "Evening Jazz", selected.Title)
}
