package session

import (
	"context"
	"errors"

	"github.com/hollis/cantata/internal/domain"
)

// CurrentUser returns the cached current-user record, refreshing it when
// forced or stale (5-minute window). A nil user with a nil error means
// "not logged in" or a transient failure; a 401 performs a full logout
// and returns ErrAuthFailed so callers can redirect to the login view.
func (s *Session) CurrentUser(ctx context.Context, force bool) (*domain.User, error) {
	if s.store.Token() == "" {
		return nil, nil
	}
	if !s.CheckStatus() {
		return nil, nil
	}

	if !force {
		s.userMu.Lock()
		fresh := s.user != nil && s.now().Sub(s.userFetchedAt) < userTTL
		user := s.user
		s.userMu.Unlock()
		if fresh {
			return user, nil
		}
	}

	user, err := s.repo.Me(ctx)
	switch {
	case err == nil:
		s.setUser(user)
		return user, nil

	case errors.Is(err, domain.ErrAuthFailed):
		s.Logout()
		return nil, domain.ErrAuthFailed

	default:
		s.logger.Warn("current-user fetch failed", "error", err)
		s.invalidateUser()
		return nil, nil
	}
}

func (s *Session) setUser(user *domain.User) {
	s.userMu.Lock()
	s.user = user
	s.userFetchedAt = s.now()
	s.userMu.Unlock()
}
