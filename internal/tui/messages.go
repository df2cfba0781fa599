package tui

import (
	"github.com/hollis/cantata/internal/domain"
	"github.com/hollis/cantata/internal/session"
)

// Message types for the TUI

// ErrMsg represents an error from an async operation
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// TracksLoadedMsg signals that the track list has been loaded
type TracksLoadedMsg struct {
	Tracks []domain.Track
}

// TracksFilteredMsg carries service-ranked results for a committed query
type TracksFilteredMsg struct {
	Query  string
	Tracks []domain.Track
}

// TrackToggledMsg signals the outcome of an expand/collapse toggle
type TrackToggledMsg struct {
	FileName string
	Expanded bool
}

// PlaybackFailedMsg signals that the player failed to start on a cached
// handle; the handle is revoked and refetched once in response
type PlaybackFailedMsg struct {
	Track domain.Track
}

// PlaybackRecoveredMsg signals that a play-error refetch finished
type PlaybackRecoveredMsg struct {
	FileName string
}

// TrackDeletedMsg signals a confirmed server-side delete
type TrackDeletedMsg struct {
	FileName string
	Title    string
}

// DownloadDoneMsg signals that a track was saved locally
type DownloadDoneMsg struct {
	Path string
}

// LoginResultMsg signals the outcome of a login attempt
type LoginResultMsg struct {
	Username string
	Err      error
}

// UploadProgressMsg carries an integer upload percentage
type UploadProgressMsg struct {
	Percent int
}

// UploadDoneMsg signals a finished upload with the stored file name
type UploadDoneMsg struct {
	Filename string
}

// UploadFailedMsg signals a terminal upload failure (including
// cancellation, distinguished by the sentinel inside)
type UploadFailedMsg struct {
	Err error
}

// UsersLoadedMsg signals that the admin user list has been loaded
type UsersLoadedMsg struct {
	Users []domain.User
}

// UserSavedMsg signals a created or updated account
type UserSavedMsg struct {
	Username string
	Created  bool
}

// UserDeletedMsg signals a removed account
type UserDeletedMsg struct {
	Username string
}

// SessionSignalMsg carries a login/logout signal from the session bus
type SessionSignalMsg struct {
	Signal session.Signal
}
