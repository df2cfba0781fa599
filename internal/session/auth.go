package session

import (
	"context"
	"errors"

	"github.com/hollis/cantata/internal/domain"
)

// CheckStatus returns the best-effort authentication status. It is cheap
// to call often:
//
//   - no token (or a client-side expired JWT): false, session flags
//     cleared as a side effect
//   - stored flag true and checked within the last 60 s: true, no network
//   - stored flag true but the window elapsed: true immediately, with a
//     fire-and-forget background re-verification that corrects the flag
//     for the next call
//   - no stored flag: synchronous verification
func (s *Session) CheckStatus() bool {
	token := s.store.Token()
	if token == "" || tokenExpired(token, s.now()) {
		// Self-heal stale flags left behind by a vanished token.
		s.store.ClearSession()
		s.invalidateUser()
		return false
	}

	if s.store.Authenticated() {
		s.authMu.Lock()
		fresh := s.now().Sub(s.lastChecked) < authTTL
		startVerify := !fresh && !s.verifying
		if startVerify {
			s.verifying = true
		}
		s.authMu.Unlock()

		if startVerify {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
				defer cancel()
				s.verify(ctx)
			}()
		}
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
	defer cancel()
	return s.verify(ctx)
}

// verify calls the current-user endpoint and settles the session state.
// A definitive 401 clears everything; transport failures fall back to the
// stored flag so a flaky network does not force a logout.
func (s *Session) verify(ctx context.Context) bool {
	user, err := s.repo.Me(ctx)

	s.authMu.Lock()
	s.verifying = false
	s.authMu.Unlock()

	switch {
	case err == nil:
		s.authMu.Lock()
		s.lastChecked = s.now()
		s.authMu.Unlock()

		s.store.SetAuthenticated(true)
		s.store.SetUsername(user.Username)
		s.setUser(user)

		s.authMu.Lock()
		dispatched := s.store.EventDispatched()
		if !dispatched {
			s.store.MarkEventDispatched()
		}
		s.authMu.Unlock()
		if !dispatched {
			s.bus.Emit(SignalLoggedIn)
		}
		return true

	case errors.Is(err, domain.ErrAuthFailed):
		s.logger.Info("session rejected by server")
		s.store.ClearSession()
		s.invalidateUser()
		return false

	default:
		// Transport or parse error: trust the last known flag.
		s.logger.Warn("auth verification failed, keeping stored status", "error", err)
		return s.store.Authenticated()
	}
}
