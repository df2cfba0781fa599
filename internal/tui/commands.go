package tui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hollis/cantata/internal/domain"
	"github.com/hollis/cantata/internal/service"
	"github.com/hollis/cantata/internal/session"
)

// Command factories for async operations

// LoadTracksCmd refreshes the track list
func LoadTracksCmd(svc *service.LibraryService) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		tracks, err := svc.Refresh(ctx)
		if err != nil {
			return ErrMsg{Err: err, Context: "loading tracks"}
		}
		return TracksLoadedMsg{Tracks: tracks}
	}
}

// ToggleTrackCmd expands or collapses a track, fetching its source and
// starting playback as needed. The 30s stream deadline lives inside the
// source manager. A player-start failure maps to PlaybackFailedMsg so the
// update loop can revoke the handle and refetch once.
func ToggleTrackCmd(sources *service.SourceManager, track domain.Track) tea.Cmd {
	return func() tea.Msg {
		expanded, err := sources.Toggle(context.Background(), track)
		if err != nil {
			if errors.Is(err, domain.ErrPlaybackFailed) {
				return PlaybackFailedMsg{Track: track}
			}
			return ErrMsg{Err: err, Context: "playing " + track.Title}
		}
		return TrackToggledMsg{FileName: track.FileName, Expanded: expanded}
	}
}

// RecoverPlaybackCmd revokes a bad handle and refetches once
func RecoverPlaybackCmd(sources *service.SourceManager, track domain.Track) tea.Cmd {
	return func() tea.Msg {
		if err := sources.RecoverPlayback(context.Background(), track); err != nil {
			return ErrMsg{Err: err, Context: "recovering " + track.Title}
		}
		return PlaybackRecoveredMsg{FileName: track.FileName}
	}
}

// FilterTracksCmd ranks the loaded list against a committed query
func FilterTracksCmd(svc *service.LibraryService, query string) tea.Cmd {
	return func() tea.Msg {
		return TracksFilteredMsg{Query: query, Tracks: svc.Filter(query)}
	}
}

// DeleteTrackCmd deletes a file server-side, then cleans up locally
func DeleteTrackCmd(svc *service.LibraryService, track domain.Track) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := svc.Delete(ctx, track.FileName); err != nil {
			return ErrMsg{Err: err, Context: "deleting " + track.Title}
		}
		return TrackDeletedMsg{FileName: track.FileName, Title: track.Title}
	}
}

// DownloadTrackCmd saves a track into the downloads directory
func DownloadTrackCmd(sources *service.SourceManager, track domain.Track) tea.Cmd {
	return func() tea.Msg {
		path, err := sources.DownloadTrack(context.Background(), track)
		if err != nil {
			return ErrMsg{Err: err, Context: "downloading " + track.Title}
		}
		return DownloadDoneMsg{Path: path}
	}
}

// LoginCmd attempts a login with the entered credentials
func LoginCmd(sess *session.Session, username, password string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := sess.Login(ctx, username, password)
		return LoginResultMsg{Username: username, Err: err}
	}
}

// StartUploadCmd runs the upload, reporting progress through ch. The
// returned command ends with the terminal upload message; progress is
// drained separately via WaitForUploadCmd.
func StartUploadCmd(ctx context.Context, svc *service.UploadService, req domain.UploadRequest, ch chan int) tea.Cmd {
	return func() tea.Msg {
		defer close(ch)
		name, err := svc.Upload(ctx, req, func(pct int) {
			select {
			case ch <- pct:
			default: // Drop intermediate ticks rather than block the body writer
			}
		})
		if err != nil {
			return UploadFailedMsg{Err: err}
		}
		return UploadDoneMsg{Filename: name}
	}
}

// WaitForUploadCmd delivers the next progress tick; re-issue after each
// UploadProgressMsg
func WaitForUploadCmd(ch <-chan int) tea.Cmd {
	return func() tea.Msg {
		pct, ok := <-ch
		if !ok {
			return nil
		}
		return UploadProgressMsg{Percent: pct}
	}
}

// LoadUsersCmd loads the admin user list
func LoadUsersCmd(svc *service.UsersService) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		users, err := svc.List(ctx)
		if err != nil {
			return ErrMsg{Err: err, Context: "loading users"}
		}
		return UsersLoadedMsg{Users: users}
	}
}

// SaveUserCmd creates or updates an account
func SaveUserCmd(svc *service.UsersService, account domain.UserAccount, create bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		var err error
		if create {
			err = svc.Create(ctx, account)
		} else {
			err = svc.Update(ctx, account)
		}
		if err != nil {
			return ErrMsg{Err: err, Context: "saving user " + account.Username}
		}
		return UserSavedMsg{Username: account.Username, Created: create}
	}
}

// DeleteUserCmd removes an account
func DeleteUserCmd(svc *service.UsersService, username string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := svc.Delete(ctx, username); err != nil {
			return ErrMsg{Err: err, Context: "deleting user " + username}
		}
		return UserDeletedMsg{Username: username}
	}
}
