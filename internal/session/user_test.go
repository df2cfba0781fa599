package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollis/cantata/internal/domain"
)

func TestCurrentUser_NoToken(t *testing.T) {
	repo := &fakeAuthRepo{}
	s, _, _ := newTestSession(t, repo)

	user, err := s.CurrentUser(context.Background(), false)
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.Zero(t, repo.meCalls())
}

func TestCurrentUser_CachesWithinWindow(t *testing.T) {
	repo := &fakeAuthRepo{meUser: &domain.User{Username: "alice", Role: "admin"}}
	s, store, _ := newTestSession(t, repo)
	store.SetSession("opaque-token", "alice")
	store.MarkEventDispatched()
	s.lastChecked = s.now()

	user, err := s.CurrentUser(context.Background(), false)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "alice", user.Username)
	assert.True(t, user.IsAdmin())
	assert.Equal(t, 1, repo.meCalls())

	// Repeat calls inside the window serve the cache.
	for i := 0; i < 3; i++ {
		user, err = s.CurrentUser(context.Background(), false)
		require.NoError(t, err)
		require.NotNil(t, user)
	}
	assert.Equal(t, 1, repo.meCalls())
}

func TestCurrentUser_ForceBypassesCache(t *testing.T) {
	repo := &fakeAuthRepo{meUser: &domain.User{Username: "alice"}}
	s, store, _ := newTestSession(t, repo)
	store.SetSession("opaque-token", "alice")
	store.MarkEventDispatched()
	s.lastChecked = s.now()

	_, err := s.CurrentUser(context.Background(), false)
	require.NoError(t, err)
	_, err = s.CurrentUser(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.meCalls())
}

func TestCurrentUser_RefetchesAfterWindow(t *testing.T) {
	repo := &fakeAuthRepo{meUser: &domain.User{Username: "alice"}}
	s, store, _ := newTestSession(t, repo)
	store.SetSession("opaque-token", "alice")
	store.MarkEventDispatched()

	current := time.Now()
	s.now = func() time.Time { return current }
	s.lastChecked = current

	_, err := s.CurrentUser(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 1, repo.meCalls())

	// Move past the user window; keep the auth window fresh so the only
	// network call is the user refetch.
	current = current.Add(userTTL + time.Second)
	s.lastChecked = current

	_, err = s.CurrentUser(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.meCalls())
}

func TestCurrentUser_RejectedTokenLogsOut(t *testing.T) {
	repo := &fakeAuthRepo{meUser: &domain.User{Username: "alice"}}
	s, store, bus := newTestSession(t, repo)
	logouts := countSignal(bus, SignalLoggedOut)

	store.SetSession("opaque-token", "alice")
	store.MarkEventDispatched()
	s.lastChecked = s.now()

	repo.setMeErr(domain.ErrAuthFailed)

	user, err := s.CurrentUser(context.Background(), false)
	assert.ErrorIs(t, err, domain.ErrAuthFailed)
	assert.Nil(t, user)
	assert.Empty(t, store.Token())
	assert.Equal(t, 1, *logouts)
}

func TestCurrentUser_TransientFailureKeepsSession(t *testing.T) {
	repo := &fakeAuthRepo{meErr: domain.ErrServerOffline}
	s, store, _ := newTestSession(t, repo)
	store.SetSession("opaque-token", "alice")
	store.MarkEventDispatched()
	s.lastChecked = s.now()

	user, err := s.CurrentUser(context.Background(), false)
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.Equal(t, "opaque-token", store.Token())

	// The failed fetch leaves no poisoned cache entry behind.
	repo.setMeErr(nil)
	repo.mu.Lock()
	repo.meUser = &domain.User{Username: "alice"}
	repo.mu.Unlock()

	user, err = s.CurrentUser(context.Background(), false)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "alice", user.Username)
}
