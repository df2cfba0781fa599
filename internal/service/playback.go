package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hollis/cantata/internal/domain"
)

// fetchTimeout bounds each stream/download fetch; expiry is recoverable.
const fetchTimeout = 30 * time.Second

// Player starts and stops local audio playback.
type Player interface {
	Play(path string) error
	Stop()
}

// SourceManager owns the audio source lifecycle for the track view:
// fetched audio lives as temp files keyed by file name (at most one live
// handle per name), concurrent fetches for the same name are rejected,
// and every handle is removed on replacement, delete, or teardown.
type SourceManager struct {
	repo   domain.TrackRepository
	player Player
	logger *slog.Logger

	timeout     time.Duration
	downloadDir string
	dir         string // per-run temp dir holding all handles

	mu       sync.Mutex
	handles  map[string]string   // file name -> temp file path
	pending  map[string]struct{} // file names with a fetch in flight
	expanded string              // file name of the expanded track, "" when collapsed
}

// NewSourceManager creates a manager with a fresh temp directory for
// its handles.
func NewSourceManager(repo domain.TrackRepository, player Player, downloadDir string, logger *slog.Logger) (*SourceManager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dir, err := os.MkdirTemp("", "cantata-media-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create media dir: %w", err)
	}
	return &SourceManager{
		repo:        repo,
		player:      player,
		logger:      logger,
		timeout:     fetchTimeout,
		downloadDir: downloadDir,
		dir:         dir,
		handles:     make(map[string]string),
		pending:     make(map[string]struct{}),
	}, nil
}

// FetchSource fetches the audio for fileName and returns the local handle
// path. A second call for the same name while one is in flight returns
// ErrFetchInFlight; callers re-invoke after the first completes if still
// needed. Timeout is reported as ErrStreamTimeout and is not a blocking
// error. The pending-set entry is cleared on every exit path.
func (m *SourceManager) FetchSource(ctx context.Context, fileName string) (string, error) {
	base := bareName(fileName)
	if base == "" {
		return "", domain.ErrTrackNotFound
	}

	m.mu.Lock()
	if _, busy := m.pending[base]; busy {
		m.mu.Unlock()
		return "", domain.ErrFetchInFlight
	}
	m.pending[base] = struct{}{}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.pending, base)
		m.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	data, err := m.repo.Stream(ctx, base)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			m.logger.Warn("stream fetch timed out", "file", base)
			return "", domain.ErrStreamTimeout
		}
		return "", err
	}

	handle := filepath.Join(m.dir, uuid.NewString()+filepath.Ext(base))
	if err := os.WriteFile(handle, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write audio handle: %w", err)
	}

	// Never two live handles for one name: drop the old one as the new
	// one is installed.
	m.mu.Lock()
	old := m.handles[base]
	m.handles[base] = handle
	m.mu.Unlock()
	if old != "" {
		os.Remove(old)
	}

	m.logger.Debug("source ready", "file", base)
	return handle, nil
}

// Handle returns the live handle path for a file name, empty when none.
func (m *SourceManager) Handle(fileName string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handles[bareName(fileName)]
}

// Expanded returns the file name of the expanded track, empty when
// collapsed.
func (m *SourceManager) Expanded() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expanded
}

// Toggle runs the expand/collapse state machine. At most one track is
// expanded and playing: toggling the expanded track stops and collapses
// it; toggling another stops the current one first, then expands the new
// track and starts playback, fetching the source if no handle is cached.
// Returns whether the track ended up expanded.
func (m *SourceManager) Toggle(ctx context.Context, track domain.Track) (bool, error) {
	base := bareName(track.FileName)

	m.mu.Lock()
	current := m.expanded
	m.mu.Unlock()

	if current == base {
		m.player.Stop()
		m.setExpanded("")
		return false, nil
	}

	if current != "" {
		m.player.Stop()
	}
	m.setExpanded(base)

	handle := m.Handle(base)
	if handle == "" {
		var err error
		handle, err = m.FetchSource(ctx, track.FileName)
		if err != nil {
			return true, err
		}
	}
	if err := m.player.Play(handle); err != nil {
		return true, fmt.Errorf("%w: %v", domain.ErrPlaybackFailed, err)
	}
	return true, nil
}

// RecoverPlayback handles a playback failure: the cached handle is
// presumed corrupt, so it is revoked and fetched once more, still gated
// by the in-flight guard. On success playback restarts.
func (m *SourceManager) RecoverPlayback(ctx context.Context, track domain.Track) error {
	base := bareName(track.FileName)

	m.mu.Lock()
	if _, busy := m.pending[base]; busy {
		m.mu.Unlock()
		return domain.ErrFetchInFlight
	}
	old := m.handles[base]
	delete(m.handles, base)
	m.mu.Unlock()
	if old != "" {
		os.Remove(old)
	}

	handle, err := m.FetchSource(ctx, track.FileName)
	if err != nil {
		return err
	}
	return m.player.Play(handle)
}

// Discard revokes the handle for a file name and, if that track was
// expanded, stops playback and collapses it. Called after a confirmed
// server-side delete and never before.
func (m *SourceManager) Discard(fileName string) {
	base := bareName(fileName)

	m.mu.Lock()
	handle := m.handles[base]
	delete(m.handles, base)
	wasExpanded := m.expanded == base
	if wasExpanded {
		m.expanded = ""
	}
	m.mu.Unlock()

	if wasExpanded {
		m.player.Stop()
	}
	if handle != "" {
		os.Remove(handle)
	}
}

// DownloadTrack fetches the file with the same timeout pattern as
// streaming and writes it into the downloads directory under a name
// synthesized from the title. The result is one-shot: it is never
// retained in the handle map.
func (m *SourceManager) DownloadTrack(ctx context.Context, track domain.Track) (string, error) {
	base := bareName(track.FileName)

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	data, err := m.repo.Download(ctx, base)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			m.logger.Warn("download timed out", "file", base)
			return "", domain.ErrStreamTimeout
		}
		return "", err
	}

	if err := os.MkdirAll(m.downloadDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create downloads dir: %w", err)
	}
	dest := filepath.Join(m.downloadDir, downloadName(track))
	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(dest)
		dest = strings.TrimSuffix(dest, ext) + "-" + uuid.NewString()[:8] + ext
	}
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write download: %w", err)
	}

	m.logger.Info("track downloaded", "file", base, "dest", dest)
	return dest, nil
}

// ReleaseAll stops playback and revokes every live handle. Called when
// the track view is torn down (logout, quit); no handle outlives its
// owning view.
func (m *SourceManager) ReleaseAll() {
	m.player.Stop()

	m.mu.Lock()
	handles := m.handles
	m.handles = make(map[string]string)
	m.expanded = ""
	m.mu.Unlock()

	for _, handle := range handles {
		os.Remove(handle)
	}
}

// Close releases everything and removes the temp directory.
func (m *SourceManager) Close() {
	m.ReleaseAll()
	os.RemoveAll(m.dir)
}

func (m *SourceManager) setExpanded(fileName string) {
	m.mu.Lock()
	m.expanded = fileName
	m.mu.Unlock()
}

// bareName strips any path qualification from server-provided names.
func bareName(fileName string) string {
	base := path.Base(strings.TrimSpace(fileName))
	if base == "." || base == "/" {
		return ""
	}
	return base
}

// downloadName builds the saved file name from the display title, keeping
// the original extension.
func downloadName(track domain.Track) string {
	title := strings.TrimSpace(track.Title)
	if title == "" {
		return bareName(track.FileName)
	}
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, title)
	return safe + filepath.Ext(track.FileName)
}
