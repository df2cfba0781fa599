package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawList(t *testing.T, entries ...string) []json.RawMessage {
	t.Helper()
	raw := make([]json.RawMessage, len(entries))
	for i, e := range entries {
		raw[i] = json.RawMessage(e)
	}
	return raw
}

func TestMapTracks_PlainFileNames(t *testing.T) {
	tracks := MapTracks(rawList(t, `"song_one.mp3"`, `"another-track.ogg"`))
	require.Len(t, tracks, 2)

	assert.Equal(t, "song one", tracks[0].Title)
	assert.Equal(t, "song_one.mp3", tracks[0].FileName)
	assert.Equal(t, "Unknown Artist", tracks[0].Artist)
	assert.Equal(t, "--:--", tracks[0].Duration)
	assert.Equal(t, 0, tracks[0].ID)

	assert.Equal(t, "another track", tracks[1].Title)
	assert.Equal(t, 1, tracks[1].ID)
}

func TestMapTracks_MetadataEntries(t *testing.T) {
	tracks := MapTracks(rawList(t,
		`{"file_name":"live.mp3","title":"Live Set","artist":"DJ A","category":"music","audio_length":83}`,
		`{"filename":"raw.mp3"}`,
	))
	require.Len(t, tracks, 2)

	assert.Equal(t, "Live Set", tracks[0].Title)
	assert.Equal(t, "DJ A", tracks[0].Artist)
	assert.Equal(t, "music", tracks[0].Category)
	assert.Equal(t, "1:23", tracks[0].Duration)

	// Absent metadata falls back to defaults
	assert.Equal(t, "raw", tracks[1].Title)
	assert.Equal(t, "Unknown Artist", tracks[1].Artist)
	assert.Equal(t, "--:--", tracks[1].Duration)
}

func TestMapTracks_PathQualifiedNames(t *testing.T) {
	tracks := MapTracks(rawList(t, `{"path":"uploads/audio/deep_cut.mp3"}`))
	require.Len(t, tracks, 1)
	assert.Equal(t, "deep_cut.mp3", tracks[0].FileName)
	assert.Equal(t, "deep cut", tracks[0].Title)
	assert.Equal(t, "uploads/audio/deep_cut.mp3", tracks[0].FilePath)
}

func TestMapTracks_SkipsUnusableEntries(t *testing.T) {
	tracks := MapTracks(rawList(t, `{}`, `42`, `"good.mp3"`))
	require.Len(t, tracks, 1)
	assert.Equal(t, "good.mp3", tracks[0].FileName)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0:07", formatDuration(7))
	assert.Equal(t, "1:23", formatDuration(83))
	assert.Equal(t, "10:00", formatDuration(600))
	assert.Equal(t, "--:--", formatDuration(0))
}
