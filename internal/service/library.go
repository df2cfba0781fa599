package service

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/hollis/cantata/internal/domain"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// discarder releases the audio handle tied to a deleted file.
type discarder interface {
	Discard(fileName string)
}

// LibraryService holds the in-memory track list. The list is replaced
// wholesale on every refresh and mutated only by a confirmed delete.
type LibraryService struct {
	repo    domain.TrackRepository
	sources discarder
	logger  *slog.Logger

	mu     sync.RWMutex
	tracks []domain.Track
}

// NewLibraryService creates the track list service.
func NewLibraryService(repo domain.TrackRepository, sources discarder, logger *slog.Logger) *LibraryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LibraryService{
		repo:    repo,
		sources: sources,
		logger:  logger,
	}
}

// Refresh fetches the server list and replaces the cached one.
func (s *LibraryService) Refresh(ctx context.Context) ([]domain.Track, error) {
	tracks, err := s.repo.ListTracks(ctx)
	if err != nil {
		s.logger.Error("failed to load track list", "error", err)
		return nil, err
	}

	s.mu.Lock()
	s.tracks = tracks
	s.mu.Unlock()

	s.logger.Info("track list loaded", "count", len(tracks))
	return tracks, nil
}

// Tracks returns the current list.
func (s *LibraryService) Tracks() []domain.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Track, len(s.tracks))
	copy(out, s.tracks)
	return out
}

// Filter ranks tracks against the query by title and artist. An empty
// query returns the full list.
func (s *LibraryService) Filter(query string) []domain.Track {
	query = strings.TrimSpace(query)
	all := s.Tracks()
	if query == "" {
		return all
	}

	type ranked struct {
		track domain.Track
		rank  int
	}
	var matches []ranked
	for _, t := range all {
		target := t.Title + " " + t.Artist
		if r := fuzzy.RankMatchNormalizedFold(query, target); r >= 0 {
			matches = append(matches, ranked{track: t, rank: r})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].rank < matches[j].rank })

	out := make([]domain.Track, len(matches))
	for i, m := range matches {
		out[i] = m.track
	}
	return out
}

// Delete removes the file on the server, then drops it from the list and
// releases its handle. A failed delete leaves everything untouched.
func (s *LibraryService) Delete(ctx context.Context, fileName string) error {
	if err := s.repo.DeleteTrack(ctx, fileName); err != nil {
		s.logger.Error("delete failed", "file", fileName, "error", err)
		return err
	}

	base := bareName(fileName)
	s.mu.Lock()
	kept := s.tracks[:0]
	for _, t := range s.tracks {
		if bareName(t.FileName) != base {
			kept = append(kept, t)
		}
	}
	s.tracks = kept
	s.mu.Unlock()

	s.sources.Discard(fileName)
	s.logger.Info("track deleted", "file", base)
	return nil
}
