package api

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/hollis/cantata/internal/domain"
)

const (
	unknownArtist   = "Unknown Artist"
	unknownDuration = "--:--"
)

// MapTracks normalizes the raw /list-files entries into domain tracks.
// Entries may be plain file name strings or metadata objects; absent
// fields fall back to defaults. The result replaces any previous list
// wholesale.
func MapTracks(raw []json.RawMessage) []domain.Track {
	tracks := make([]domain.Track, 0, len(raw))
	for i, entry := range raw {
		track := mapTrack(entry)
		if track == nil {
			continue
		}
		track.ID = i
		tracks = append(tracks, *track)
	}
	return tracks
}

func mapTrack(raw json.RawMessage) *domain.Track {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return trackFromName(name, "")
	}

	var entry fileEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil
	}

	fileName := firstNonEmpty(entry.FileName, entry.Filename, entry.Name, path.Base(entry.Path), path.Base(entry.FilePath))
	if fileName == "" || fileName == "." {
		return nil
	}

	track := trackFromName(fileName, firstNonEmpty(entry.Path, entry.FilePath))
	if entry.Title != "" {
		track.Title = entry.Title
	}
	if entry.Artist != "" {
		track.Artist = entry.Artist
	}
	track.Description = entry.Description
	track.Category = entry.Category
	if entry.AudioLength > 0 {
		track.Duration = formatDuration(entry.AudioLength)
	}
	return track
}

// trackFromName builds a descriptor with defaults for a bare file name.
func trackFromName(fileName, filePath string) *domain.Track {
	fileName = path.Base(strings.TrimSpace(fileName))
	return &domain.Track{
		Title:    titleFromFileName(fileName),
		Artist:   unknownArtist,
		Duration: unknownDuration,
		FileName: fileName,
		FilePath: filePath,
	}
}

// titleFromFileName synthesizes a display title: extension stripped,
// separators turned into spaces ("song_one.mp3" -> "song one").
func titleFromFileName(fileName string) string {
	title := strings.TrimSuffix(fileName, path.Ext(fileName))
	title = strings.NewReplacer("_", " ", "-", " ").Replace(title)
	return strings.Join(strings.Fields(title), " ")
}

// formatDuration renders seconds as m:ss
func formatDuration(seconds float64) string {
	total := int(seconds)
	if total <= 0 {
		return unknownDuration
	}
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" && v != "." {
			return v
		}
	}
	return ""
}
