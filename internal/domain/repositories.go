package domain

import (
	"context"
	"io"
)

// AuthRepository covers the unauthenticated login call and the
// current-user check that backs the session caches.
type AuthRepository interface {
	// Login exchanges credentials for a bearer token.
	Login(ctx context.Context, username, password string) (string, error)

	// Me returns the account behind the current token.
	// Returns ErrAuthFailed on 401.
	Me(ctx context.Context) (*User, error)
}

// TrackRepository covers the audio file operations.
type TrackRepository interface {
	// ListTracks fetches and normalizes the full file list.
	ListTracks(ctx context.Context) ([]Track, error)

	// Stream fetches the raw audio bytes for playback.
	Stream(ctx context.Context, fileName string) ([]byte, error)

	// Download fetches the raw audio bytes for saving locally.
	Download(ctx context.Context, fileName string) ([]byte, error)

	// DeleteTrack removes a file on the server.
	DeleteTrack(ctx context.Context, fileName string) error

	// Upload sends an audio file with its metadata. progress, when non-nil,
	// receives integer percentages as body bytes go out. Returns the
	// server-assigned file name.
	Upload(ctx context.Context, req UploadRequest, content io.Reader, size int64, progress func(percent int)) (string, error)
}

// UserRepository covers the admin user management endpoints.
type UserRepository interface {
	ListUsers(ctx context.Context) ([]User, error)
	CreateUser(ctx context.Context, account UserAccount) error
	UpdateUser(ctx context.Context, account UserAccount) error
	DeleteUser(ctx context.Context, username string) error
}
