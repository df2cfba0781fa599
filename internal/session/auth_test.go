package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollis/cantata/internal/domain"
	"github.com/hollis/cantata/internal/log"
)

// fakeAuthRepo counts calls so tests can assert the cache windows suppress
// network traffic.
type fakeAuthRepo struct {
	mu         sync.Mutex
	loginToken string
	loginErr   error
	meUser     *domain.User
	meErr      error
	meCount    int
	// gate, when non-nil, blocks Me until closed
	gate chan struct{}
}

func (f *fakeAuthRepo) Login(ctx context.Context, username, password string) (string, error) {
	if f.loginErr != nil {
		return "", f.loginErr
	}
	return f.loginToken, nil
}

func (f *fakeAuthRepo) Me(ctx context.Context) (*domain.User, error) {
	f.mu.Lock()
	f.meCount++
	gate := f.gate
	user, err := f.meUser, f.meErr
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (f *fakeAuthRepo) meCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.meCount
}

func (f *fakeAuthRepo) setMeErr(err error) {
	f.mu.Lock()
	f.meErr = err
	f.mu.Unlock()
}

func newTestSession(t *testing.T, repo *fakeAuthRepo) (*Session, *Store, *Bus) {
	t.Helper()
	store, err := NewStore("", "")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	bus := NewBus()
	return New(store, bus, repo, log.NullLogger()), store, bus
}

func countSignal(bus *Bus, want Signal) *int {
	n := new(int)
	bus.Subscribe(func(sig Signal) {
		if sig == want {
			*n++
		}
	})
	return n
}

func expiredJWT(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "alice",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-key"))
	require.NoError(t, err)
	return signed
}

func TestCheckStatus_NoToken(t *testing.T) {
	repo := &fakeAuthRepo{}
	s, store, _ := newTestSession(t, repo)

	// A stale flag with no token must self-heal, not verify.
	store.SetAuthenticated(true)

	assert.False(t, s.CheckStatus())
	assert.False(t, store.Authenticated())
	assert.Zero(t, repo.meCalls())
}

func TestCheckStatus_ExpiredTokenClearsSession(t *testing.T) {
	repo := &fakeAuthRepo{}
	s, store, _ := newTestSession(t, repo)
	store.SetSession(expiredJWT(t), "alice")

	assert.False(t, s.CheckStatus())
	assert.Empty(t, store.Token())
	assert.Zero(t, repo.meCalls())
}

func TestCheckStatus_FreshWindowSkipsNetwork(t *testing.T) {
	repo := &fakeAuthRepo{meUser: &domain.User{Username: "alice"}}
	s, store, _ := newTestSession(t, repo)
	store.SetSession("opaque-token", "alice")
	s.lastChecked = s.now()

	for i := 0; i < 5; i++ {
		assert.True(t, s.CheckStatus())
	}
	assert.Zero(t, repo.meCalls())
}

func TestCheckStatus_StaleWindowVerifiesAtMostOnce(t *testing.T) {
	repo := &fakeAuthRepo{
		meUser: &domain.User{Username: "alice"},
		gate:   make(chan struct{}),
	}
	s, store, _ := newTestSession(t, repo)
	store.SetSession("opaque-token", "alice")
	store.MarkEventDispatched()
	s.lastChecked = s.now().Add(-2 * authTTL)

	// Both calls answer optimistically while one verification is in flight.
	assert.True(t, s.CheckStatus())
	assert.True(t, s.CheckStatus())

	require.Eventually(t, func() bool { return repo.meCalls() == 1 }, time.Second, 5*time.Millisecond)
	close(repo.gate)

	require.Eventually(t, func() bool {
		s.authMu.Lock()
		defer s.authMu.Unlock()
		return !s.verifying
	}, time.Second, 5*time.Millisecond)

	// The refreshed window suppresses further calls.
	assert.True(t, s.CheckStatus())
	assert.Equal(t, 1, repo.meCalls())
	assert.True(t, store.Authenticated())
}

func TestCheckStatus_SyncVerifyWhenFlagMissing(t *testing.T) {
	repo := &fakeAuthRepo{meUser: &domain.User{Username: "alice", Role: "admin"}}
	s, store, bus := newTestSession(t, repo)
	logins := countSignal(bus, SignalLoggedIn)

	store.SetSession("opaque-token", "")
	store.SetAuthenticated(false)

	assert.True(t, s.CheckStatus())
	assert.Equal(t, 1, repo.meCalls())
	assert.True(t, store.Authenticated())
	assert.Equal(t, "alice", store.Username())
	assert.Equal(t, 1, *logins)

	// The one-shot marker stops a repeat emission on the next verify.
	store.SetAuthenticated(false)
	assert.True(t, s.CheckStatus())
	assert.Equal(t, 1, *logins)
}

func TestCheckStatus_RejectedTokenClearsEverything(t *testing.T) {
	repo := &fakeAuthRepo{meErr: domain.ErrAuthFailed}
	s, store, _ := newTestSession(t, repo)
	store.SetSession("opaque-token", "alice")
	store.SetAuthenticated(false)

	assert.False(t, s.CheckStatus())
	assert.Empty(t, store.Token())
	assert.False(t, store.Authenticated())
}

func TestCheckStatus_TransportErrorKeepsStoredFlag(t *testing.T) {
	repo := &fakeAuthRepo{meErr: domain.ErrServerOffline}
	s, store, _ := newTestSession(t, repo)
	store.SetSession("opaque-token", "alice")
	s.lastChecked = s.now().Add(-2 * authTTL)

	assert.True(t, s.CheckStatus())

	require.Eventually(t, func() bool { return repo.meCalls() == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		s.authMu.Lock()
		defer s.authMu.Unlock()
		return !s.verifying
	}, time.Second, 5*time.Millisecond)

	// A flaky network never downgrades the stored status.
	assert.True(t, store.Authenticated())
	assert.Equal(t, "opaque-token", store.Token())
}

func TestLogin_InstallsSessionAndSignalsOnce(t *testing.T) {
	repo := &fakeAuthRepo{loginToken: "tok123", meUser: &domain.User{Username: "alice"}}
	s, store, bus := newTestSession(t, repo)
	logins := countSignal(bus, SignalLoggedIn)

	require.NoError(t, s.Login(context.Background(), "alice", "secret"))

	assert.Equal(t, "tok123", store.Token())
	assert.Equal(t, "alice", store.Username())
	assert.True(t, store.Authenticated())
	assert.True(t, store.EventDispatched())
	assert.Equal(t, 1, *logins)

	// A later verification must not re-announce the login.
	store.SetAuthenticated(false)
	assert.True(t, s.CheckStatus())
	assert.Equal(t, 1, *logins)
}

func TestLogin_PropagatesFailure(t *testing.T) {
	repo := &fakeAuthRepo{loginErr: domain.ErrAuthFailed}
	s, store, bus := newTestSession(t, repo)
	logins := countSignal(bus, SignalLoggedIn)

	err := s.Login(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, domain.ErrAuthFailed)
	assert.Empty(t, store.Token())
	assert.Zero(t, *logins)
}

func TestLogout_ClearsAndSignals(t *testing.T) {
	repo := &fakeAuthRepo{loginToken: "tok123"}
	s, store, bus := newTestSession(t, repo)
	logouts := countSignal(bus, SignalLoggedOut)

	require.NoError(t, s.Login(context.Background(), "alice", "secret"))
	s.Logout()

	assert.Empty(t, store.Token())
	assert.False(t, store.Authenticated())
	assert.False(t, store.EventDispatched())
	assert.Equal(t, 1, *logouts)
	assert.False(t, s.CheckStatus())
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()
	assert.True(t, tokenExpired(expiredJWT(t), now))
	assert.False(t, tokenExpired("opaque-token", now))

	live := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": now.Add(time.Hour).Unix(),
	})
	signed, err := live.SignedString([]byte("test-key"))
	require.NoError(t, err)
	assert.False(t, tokenExpired(signed, now))
}
