// Package session owns the client-side session state: the token store,
// the time-windowed auth and user caches, and the signal bus that keeps
// independent UI regions consistent. All cache state lives on one Session
// value with an explicit lifetime instead of package globals.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hollis/cantata/internal/domain"
)

const (
	// authTTL is how long a verified "authenticated" answer is trusted
	// before a background re-verification is triggered.
	authTTL = 60 * time.Second

	// userTTL is how long a fetched current-user record is trusted.
	userTTL = 5 * time.Minute

	// verifyTimeout bounds the synchronous verification call.
	verifyTimeout = 10 * time.Second
)

// Session is the session context shared by the UI: token access, cached
// authentication checks, the cached current user, and login/logout
// orchestration.
type Session struct {
	store  *Store
	bus    *Bus
	repo   domain.AuthRepository
	logger *slog.Logger

	// now is swapped in tests to move the cache windows.
	now func() time.Time

	authMu      sync.Mutex
	lastChecked time.Time
	verifying   bool

	userMu        sync.Mutex
	user          *domain.User
	userFetchedAt time.Time
}

// New creates a session over the given store, bus, and auth endpoint.
func New(store *Store, bus *Bus, repo domain.AuthRepository, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		store:  store,
		bus:    bus,
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// Store exposes the underlying token store for wiring (the API client's
// token provider reads through it).
func (s *Session) Store() *Store { return s.store }

// Bus exposes the signal bus for UI subscriptions.
func (s *Session) Bus() *Bus { return s.bus }

// Token returns the current bearer token, empty when logged out.
func (s *Session) Token() string { return s.store.Token() }

// Username returns the stored display username.
func (s *Session) Username() string { return s.store.Username() }

// Login exchanges credentials for a token and installs the session.
// The login signal is emitted here and marked dispatched so racing
// verification calls never emit it a second time.
func (s *Session) Login(ctx context.Context, username, password string) error {
	token, err := s.repo.Login(ctx, username, password)
	if err != nil {
		return err
	}

	s.store.SetSession(token, username)

	s.authMu.Lock()
	s.lastChecked = s.now()
	dispatched := s.store.EventDispatched()
	if !dispatched {
		s.store.MarkEventDispatched()
	}
	s.authMu.Unlock()

	s.logger.Info("logged in", "username", username)
	if !dispatched {
		s.bus.Emit(SignalLoggedIn)
	}
	return nil
}

// Logout clears every session field and both caches, then signals the UI.
func (s *Session) Logout() {
	s.store.ClearSession()
	s.invalidateUser()

	s.authMu.Lock()
	s.lastChecked = time.Time{}
	s.authMu.Unlock()

	s.logger.Info("logged out")
	s.bus.Emit(SignalLoggedOut)
}

func (s *Session) invalidateUser() {
	s.userMu.Lock()
	s.user = nil
	s.userFetchedAt = time.Time{}
	s.userMu.Unlock()
}

// tokenExpired reports whether the token is a JWT whose exp claim has
// elapsed. Opaque (non-JWT) tokens never expire client-side.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(now)
}
