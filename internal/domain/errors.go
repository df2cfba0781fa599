package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrAuthFailed indicates the server rejected the credentials or token
	ErrAuthFailed = errors.New("authentication token is invalid")

	// ErrServerOffline indicates the server is unreachable
	ErrServerOffline = errors.New("audio server is unreachable")

	// ErrTrackNotFound indicates the requested file does not exist on the server
	ErrTrackNotFound = errors.New("track not found")

	// ErrFetchInFlight indicates a fetch for the same file is already running;
	// callers treat this as a quiet no-op rather than queueing a duplicate
	ErrFetchInFlight = errors.New("fetch already in flight")

	// ErrStreamTimeout indicates a stream or download fetch hit its deadline;
	// recoverable, never surfaced as a blocking error
	ErrStreamTimeout = errors.New("stream request timed out")

	// ErrPlaybackFailed indicates the local player failed to start on a
	// cached handle; the handle is presumed corrupt and refetched once
	ErrPlaybackFailed = errors.New("playback failed to start")

	// ErrUploadCancelled indicates the user cancelled an in-progress upload
	ErrUploadCancelled = errors.New("upload cancelled")

	// Local upload validation failures, raised before any network call
	ErrNoFileSelected = errors.New("no file selected")
	ErrNotAudioFile   = errors.New("selected file is not an audio file")
	ErrNoCategory     = errors.New("no category selected")
)
