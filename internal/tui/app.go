package tui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/hollis/cantata/internal/domain"
	"github.com/hollis/cantata/internal/service"
	"github.com/hollis/cantata/internal/session"
	"github.com/hollis/cantata/internal/tui/components"
	"github.com/hollis/cantata/internal/tui/styles"
)

// ApplicationState represents the current view
type ApplicationState int

const (
	StateLogin ApplicationState = iota
	StateBrowsing
	StateUpload
	StateUsers
	StateUserForm
	StateConfirmDelete
	StateConfirmUserDelete
)

// AuthCheckedMsg carries the startup session check result
type AuthCheckedMsg struct {
	OK bool
}

// CurrentUserMsg carries the verified current user record
type CurrentUserMsg struct {
	User *domain.User
}

// Model is the main Bubble Tea model for the application
type Model struct {
	State ApplicationState

	// Services
	Session    *session.Session
	LibrarySvc *service.LibraryService
	Sources    *service.SourceManager
	UploadSvc  *service.UploadService
	UsersSvc   *service.UsersService

	// UI components
	Keys       KeyMap
	TrackList  components.TrackList
	LoginForm  components.LoginForm
	UploadForm components.UploadForm
	UserForm   components.UserForm
	UserTable  components.UserTable
	Spinner    spinner.Model

	// Session bus bridge
	Relay *SignalRelay

	// Data
	CurrentUser *domain.User

	// Dimensions
	Width  int
	Height int

	// UI state
	StatusMsg   string
	StatusIsErr bool
	Loading     bool

	pendingDelete     domain.Track
	pendingUserDelete string
	uploadCancel      context.CancelFunc
	uploadCh          chan int
}

// NewModel creates the application model
func NewModel(sess *session.Session, library *service.LibraryService, sources *service.SourceManager, uploads *service.UploadService, users *service.UsersService) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.AccentStyle

	return Model{
		State:      StateLogin,
		Session:    sess,
		LibrarySvc: library,
		Sources:    sources,
		UploadSvc:  uploads,
		UsersSvc:   users,
		Keys:       DefaultKeyMap(),
		TrackList:  components.NewTrackList(),
		LoginForm:  components.NewLoginForm(),
		UploadForm: components.NewUploadForm(),
		UserForm:   components.NewUserForm(),
		UserTable:  components.NewUserTable(),
		Spinner:    sp,
		Relay:      NewSignalRelay(sess.Bus()),
		Loading:    true,
	}
}

// Init kicks off the startup auth check and the session-signal listener
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.checkAuthCmd(),
		m.Relay.WaitCmd(),
		m.Spinner.Tick,
	)
}

func (m Model) checkAuthCmd() tea.Cmd {
	sess := m.Session
	return func() tea.Msg {
		return AuthCheckedMsg{OK: sess.CheckStatus()}
	}
}

func (m Model) loadCurrentUserCmd() tea.Cmd {
	sess := m.Session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		user, _ := sess.CurrentUser(ctx, false)
		return CurrentUserMsg{User: user}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.TrackList.Height = max(4, msg.Height-8)
		return m, nil

	case spinner.TickMsg:
		if !m.Loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)

	case AuthCheckedMsg:
		m.Loading = false
		if msg.OK {
			m.State = StateBrowsing
			m.Loading = true
			return m, tea.Batch(LoadTracksCmd(m.LibrarySvc), m.loadCurrentUserCmd(), m.Spinner.Tick)
		}
		m.State = StateLogin
		return m, nil

	case SessionSignalMsg:
		return m.handleSignal(msg)

	case CurrentUserMsg:
		m.CurrentUser = msg.User
		return m, nil

	case TracksLoadedMsg:
		m.Loading = false
		m.TrackList.SetTracks(msg.Tracks)
		return m, nil

	case TracksFilteredMsg:
		m.TrackList.ShowRanked(msg.Tracks)
		return m, nil

	case TrackToggledMsg:
		if msg.Expanded {
			m.setStatus("playing "+msg.FileName, false)
		} else {
			m.setStatus("stopped", false)
		}
		return m, nil

	case PlaybackFailedMsg:
		// The cached handle is presumed corrupt; revoke and refetch once.
		// The in-flight guard inside the source manager stops retry storms.
		m.setStatus("playback failed, refetching "+msg.Track.Title, false)
		return m, RecoverPlaybackCmd(m.Sources, msg.Track)

	case PlaybackRecoveredMsg:
		m.setStatus("playback recovered for "+msg.FileName, false)
		return m, nil

	case TrackDeletedMsg:
		m.State = StateBrowsing
		m.TrackList.Remove(msg.FileName)
		m.setStatus("deleted "+msg.Title, false)
		return m, nil

	case DownloadDoneMsg:
		m.setStatus("saved to "+msg.Path, false)
		return m, nil

	case LoginResultMsg:
		return m.handleLoginResult(msg)

	case UploadProgressMsg:
		m.UploadForm.Percent = msg.Percent
		return m, WaitForUploadCmd(m.uploadCh)

	case UploadDoneMsg:
		m.UploadForm.Reset()
		m.uploadCancel = nil
		m.setStatus("uploaded as "+msg.Filename, false)
		return m, nil

	case UploadFailedMsg:
		return m.handleUploadFailed(msg)

	case UsersLoadedMsg:
		m.Loading = false
		m.UserTable.SetUsers(msg.Users)
		return m, nil

	case UserSavedMsg:
		m.State = StateUsers
		if msg.Created {
			m.setStatus("created user "+msg.Username, false)
		} else {
			m.setStatus("updated user "+msg.Username, false)
		}
		return m, LoadUsersCmd(m.UsersSvc)

	case UserDeletedMsg:
		m.State = StateUsers
		m.setStatus("deleted user "+msg.Username, false)
		return m, LoadUsersCmd(m.UsersSvc)

	case ErrMsg:
		return m.handleErr(msg)
	}

	return m, nil
}

// handleSignal reacts to session bus signals so every view stays
// consistent with the auth state.
func (m Model) handleSignal(msg SessionSignalMsg) (tea.Model, tea.Cmd) {
	switch msg.Signal {
	case session.SignalLoggedOut:
		// The track view is gone; none of its handles may survive it.
		m.Sources.ReleaseAll()
		m.CurrentUser = nil
		m.State = StateLogin
		m.LoginForm.Reset()
		m.setStatus("signed out", false)
	case session.SignalLoggedIn:
		m.setStatus("signed in as "+m.Session.Username(), false)
	}
	return m, m.Relay.WaitCmd()
}

func (m Model) handleLoginResult(msg LoginResultMsg) (tea.Model, tea.Cmd) {
	m.Loading = false
	if msg.Err != nil {
		if errors.Is(msg.Err, domain.ErrAuthFailed) {
			m.setStatus("invalid username or password", true)
		} else {
			m.setStatus(msg.Err.Error(), true)
		}
		return m, nil
	}
	m.State = StateBrowsing
	m.Loading = true
	return m, tea.Batch(LoadTracksCmd(m.LibrarySvc), m.loadCurrentUserCmd(), m.Spinner.Tick)
}

func (m Model) handleUploadFailed(msg UploadFailedMsg) (tea.Model, tea.Cmd) {
	m.UploadForm.Uploading = false
	m.uploadCancel = nil
	switch {
	case errors.Is(msg.Err, domain.ErrUploadCancelled):
		m.setStatus("upload cancelled", false)
	case errors.Is(msg.Err, domain.ErrAuthFailed):
		m.State = StateLogin
		m.setStatus("session expired, sign in again", true)
	case errors.Is(msg.Err, domain.ErrNoFileSelected),
		errors.Is(msg.Err, domain.ErrNoCategory),
		errors.Is(msg.Err, domain.ErrNotAudioFile):
		m.setStatus(msg.Err.Error(), true)
	default:
		m.setStatus("upload failed: "+msg.Err.Error(), true)
	}
	return m, nil
}

// handleErr maps error kinds to their user-visible treatment: quiet
// recoverable ones stay informational, auth failures redirect, the rest
// become error banners. State is never half-mutated by then.
func (m Model) handleErr(msg ErrMsg) (tea.Model, tea.Cmd) {
	m.Loading = false

	// A failed confirm action returns to its parent view rather than
	// leaving the dialog up behind the banner.
	switch m.State {
	case StateConfirmDelete:
		m.State = StateBrowsing
	case StateConfirmUserDelete:
		m.State = StateUsers
	}

	switch {
	case errors.Is(msg.Err, domain.ErrFetchInFlight):
		m.setStatus("already fetching, hold on", false)
	case errors.Is(msg.Err, domain.ErrStreamTimeout):
		m.setStatus("request timed out, try again", false)
	case errors.Is(msg.Err, domain.ErrAuthFailed):
		m.State = StateLogin
		m.setStatus("session expired, sign in again", true)
	default:
		m.setStatus(msg.Error(), true)
	}
	return m, nil
}

func (m *Model) setStatus(text string, isErr bool) {
	m.StatusMsg = text
	m.StatusIsErr = isErr
}

// handleKey routes key events by view
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Global quit, except while typing into a form field
	if key.Matches(msg, m.Keys.Quit) && !m.typing() {
		return m.quit()
	}

	switch m.State {
	case StateLogin:
		return m.handleLoginKey(msg)
	case StateBrowsing:
		return m.handleBrowsingKey(msg)
	case StateUpload:
		return m.handleUploadKey(msg)
	case StateUsers:
		return m.handleUsersKey(msg)
	case StateUserForm:
		return m.handleUserFormKey(msg)
	case StateConfirmDelete:
		return m.handleConfirmDeleteKey(msg)
	case StateConfirmUserDelete:
		return m.handleConfirmUserDeleteKey(msg)
	}
	return m, nil
}

// typing reports whether a text field currently owns the keyboard
func (m Model) typing() bool {
	switch m.State {
	case StateLogin, StateUserForm:
		return true
	case StateUpload:
		return !m.UploadForm.Uploading
	case StateBrowsing:
		return m.TrackList.Filtering
	}
	return false
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.uploadCancel != nil {
		m.uploadCancel()
	}
	m.Sources.Close()
	m.Relay.Close()
	return m, tea.Quit
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m.quit()
	case "tab", "shift+tab":
		return m, m.LoginForm.Next()
	case "enter":
		username, password := m.LoginForm.Values()
		if username == "" || password == "" {
			m.setStatus("enter username and password", true)
			return m, nil
		}
		m.Loading = true
		return m, tea.Batch(LoginCmd(m.Session, username, password), m.Spinner.Tick)
	}
	return m, m.LoginForm.Update(msg)
}

func (m Model) handleBrowsingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.TrackList.Filtering {
		switch msg.String() {
		case "enter":
			// Committing the query swaps the incremental view for the
			// service-ranked result order.
			query := m.TrackList.Query()
			m.TrackList.StopFilter()
			if query == "" {
				return m, nil
			}
			return m, FilterTracksCmd(m.LibrarySvc, query)
		case "esc":
			m.TrackList.ClearFilter()
			return m, nil
		case "ctrl+c":
			return m.quit()
		}
		return m, m.TrackList.UpdateFilter(msg)
	}

	switch {
	case key.Matches(msg, m.Keys.Up):
		m.TrackList.MoveUp()
	case key.Matches(msg, m.Keys.Down):
		m.TrackList.MoveDown()
	case key.Matches(msg, m.Keys.Filter):
		return m, m.TrackList.StartFilter()
	case key.Matches(msg, m.Keys.Refresh):
		m.Loading = true
		return m, tea.Batch(LoadTracksCmd(m.LibrarySvc), m.Spinner.Tick)
	case key.Matches(msg, m.Keys.Toggle):
		if track, ok := m.TrackList.Selected(); ok {
			return m, ToggleTrackCmd(m.Sources, track)
		}
	case key.Matches(msg, m.Keys.Download):
		if track, ok := m.TrackList.Selected(); ok {
			m.setStatus("downloading "+track.Title+"…", false)
			return m, DownloadTrackCmd(m.Sources, track)
		}
	case key.Matches(msg, m.Keys.Delete):
		if track, ok := m.TrackList.Selected(); ok {
			m.pendingDelete = track
			m.State = StateConfirmDelete
		}
	case key.Matches(msg, m.Keys.Upload):
		m.State = StateUpload
	case key.Matches(msg, m.Keys.Users):
		if m.CurrentUser.IsAdmin() {
			m.State = StateUsers
			m.Loading = true
			return m, tea.Batch(LoadUsersCmd(m.UsersSvc), m.Spinner.Tick)
		}
		m.setStatus("admin access required", true)
	case key.Matches(msg, m.Keys.Logout):
		m.Session.Logout()
	}
	return m, nil
}

func (m Model) handleUploadKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.UploadForm.Uploading {
		if msg.String() == "esc" {
			if m.uploadCancel != nil {
				m.uploadCancel()
			}
			return m, nil
		}
		return m, nil
	}

	switch msg.String() {
	case "esc":
		m.State = StateBrowsing
		return m, nil
	case "tab", "shift+tab":
		return m, m.UploadForm.Next()
	case "c":
		m.UploadForm.CycleCategory()
		return m, nil
	case "enter":
		return m.startUpload()
	}
	return m, m.UploadForm.Update(msg)
}

func (m Model) startUpload() (tea.Model, tea.Cmd) {
	req := m.UploadForm.Request()

	ctx, cancel := context.WithCancel(context.Background())
	m.uploadCancel = cancel
	m.uploadCh = make(chan int, 16)
	m.UploadForm.Uploading = true
	m.UploadForm.Percent = 0

	return m, tea.Batch(
		StartUploadCmd(ctx, m.UploadSvc, req, m.uploadCh),
		WaitForUploadCmd(m.uploadCh),
	)
}

func (m Model) handleUsersKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Back):
		m.State = StateBrowsing
		return m, nil
	case key.Matches(msg, m.Keys.Refresh):
		m.Loading = true
		return m, tea.Batch(LoadUsersCmd(m.UsersSvc), m.Spinner.Tick)
	case key.Matches(msg, m.Keys.New):
		m.State = StateUserForm
		return m, m.UserForm.Load(nil)
	case key.Matches(msg, m.Keys.Edit):
		if user, ok := m.UserTable.Selected(); ok {
			m.State = StateUserForm
			return m, m.UserForm.Load(&user)
		}
		return m, nil
	case key.Matches(msg, m.Keys.Delete):
		if user, ok := m.UserTable.Selected(); ok {
			m.pendingUserDelete = user.Username
			m.State = StateConfirmUserDelete
		}
		return m, nil
	}
	return m, m.UserTable.Update(msg)
}

func (m Model) handleUserFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m.quit()
	case "esc":
		m.State = StateUsers
		return m, nil
	case "tab", "shift+tab":
		return m, m.UserForm.Next()
	case "ctrl+a":
		m.UserForm.ToggleAdmin()
		return m, nil
	case "enter":
		account := m.UserForm.Account()
		if account.Username == "" {
			m.setStatus("username is required", true)
			return m, nil
		}
		if m.UserForm.Create && account.Password == "" {
			m.setStatus("password is required", true)
			return m, nil
		}
		return m, SaveUserCmd(m.UsersSvc, account, m.UserForm.Create)
	}
	return m, m.UserForm.Update(msg)
}

func (m Model) handleConfirmDeleteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Confirm):
		return m, DeleteTrackCmd(m.LibrarySvc, m.pendingDelete)
	case key.Matches(msg, m.Keys.Cancel):
		m.State = StateBrowsing
	}
	return m, nil
}

func (m Model) handleConfirmUserDeleteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Confirm):
		return m, DeleteUserCmd(m.UsersSvc, m.pendingUserDelete)
	case key.Matches(msg, m.Keys.Cancel):
		m.State = StateUsers
	}
	return m, nil
}
