package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollis/cantata/internal/domain"
	"github.com/hollis/cantata/internal/log"
)

func newTestClient(t *testing.T, token string, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, func() string { return token }, log.NullLogger())
}

func TestLogin(t *testing.T) {
	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/login", r.URL.Path)
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("username") == "alice" && r.PostForm.Get("password") == "secret" {
			json.NewEncoder(w).Encode(map[string]string{"access_token": "tok123", "token_type": "bearer"})
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	})

	token, err := c.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok123", token)

	_, err = c.Login(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, domain.ErrAuthFailed)
}

func TestLogin_ServerDetail(t *testing.T) {
	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"detail":"account disabled"}`)
	})

	_, err := c.Login(context.Background(), "bob", "pw")
	require.Error(t, err)
	assert.Equal(t, "account disabled", err.Error())
}

func TestLogin_ServerOffline(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", func() string { return "" }, log.NullLogger())
	_, err := c.Login(context.Background(), "alice", "secret")
	assert.ErrorIs(t, err, domain.ErrServerOffline)
}

func TestMe_SendsBearerToken(t *testing.T) {
	c := newTestClient(t, "tok123", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/me", r.URL.Path)
		require.Equal(t, "Bearer tok123", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{"username": "alice", "role": "admin"})
	})

	user, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.True(t, user.IsAdmin())
}

func TestMe_Unauthorized(t *testing.T) {
	c := newTestClient(t, "stale", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.Me(context.Background())
	assert.ErrorIs(t, err, domain.ErrAuthFailed)
}

func TestListTracks(t *testing.T) {
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/list-files", r.URL.Path)
		io.WriteString(w, `{"files":["song_one.mp3",{"file_name":"live.mp3","title":"Live Set","artist":"DJ A","audio_length":83}]}`)
	})

	tracks, err := c.ListTracks(context.Background())
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "song one", tracks[0].Title)
	assert.Equal(t, "1:23", tracks[1].Duration)
}

func TestStreamAndDownload(t *testing.T) {
	payload := []byte("not really audio")
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/stream/track.mp3", "/download/track.mp3":
			w.Write(payload)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	data, err := c.Stream(context.Background(), "track.mp3")
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	// Path prefixes get stripped before building the URL
	data, err = c.Download(context.Background(), "uploads/track.mp3")
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	_, err = c.Stream(context.Background(), "gone.mp3")
	assert.ErrorIs(t, err, domain.ErrTrackNotFound)
}

func TestStream_ContextDeadline(t *testing.T) {
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte("late"))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Stream(ctx, "slow.mp3")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDeleteTrack(t *testing.T) {
	var deleted string
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		if !strings.HasPrefix(r.URL.Path, "/delete/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		deleted = strings.TrimPrefix(r.URL.Path, "/delete/")
		io.WriteString(w, `{"message":"deleted"}`)
	})

	require.NoError(t, c.DeleteTrack(context.Background(), "track.mp3"))
	assert.Equal(t, "track.mp3", deleted)
}

func TestUpload(t *testing.T) {
	var percents []int
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1 << 20))
		assert.Equal(t, "music", r.FormValue("audio_category"))
		assert.Equal(t, "a demo", r.FormValue("audio_description"))
		assert.Equal(t, "12.5", r.FormValue("audio_length"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "demo.mp3", header.Filename)

		json.NewEncoder(w).Encode(map[string]string{"filename": "stored-demo.mp3"})
	})

	req := domain.UploadRequest{
		FilePath:        "/tmp/demo.mp3",
		Description:     "a demo",
		Category:        "music",
		DurationSeconds: 12.5,
	}
	content := strings.NewReader("ID3 fake audio bytes")
	name, err := c.Upload(context.Background(), req, content, int64(content.Len()), func(pct int) {
		percents = append(percents, pct)
	})
	require.NoError(t, err)
	assert.Equal(t, "stored-demo.mp3", name)
	require.NotEmpty(t, percents)
	assert.Equal(t, 100, percents[len(percents)-1])
}

func TestUpload_ServerError(t *testing.T) {
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, "not json")
	})

	req := domain.UploadRequest{FilePath: "/tmp/demo.mp3", Category: "music"}
	_, err := c.Upload(context.Background(), req, strings.NewReader("x"), 1, nil)
	require.Error(t, err)
	assert.Equal(t, "upload failed (status 500)", err.Error())
}

func TestUpload_Cancelled(t *testing.T) {
	started := make(chan struct{})
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		close(started)
		time.Sleep(500 * time.Millisecond)
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	req := domain.UploadRequest{FilePath: "/tmp/demo.mp3", Category: "music"}
	_, err := c.Upload(ctx, req, strings.NewReader("payload"), 7, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUserAdministration(t *testing.T) {
	var created, updated domain.UserAccount
	var removed string
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/users/":
			io.WriteString(w, `[{"username":"alice","role":"admin"},{"username":"bob"}]`)
		case r.Method == http.MethodPost && r.URL.Path == "/users/create":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&created))
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPut && r.URL.Path == "/users/update":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&updated))
		case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/users/"):
			removed = strings.TrimPrefix(r.URL.Path, "/users/")
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	users, err := c.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.True(t, users[0].IsAdmin())
	assert.False(t, users[1].IsAdmin())

	account := domain.UserAccount{Username: "carol", Password: "pw", Role: "admin"}
	require.NoError(t, c.CreateUser(context.Background(), account))
	assert.Equal(t, "carol", created.Username)

	require.NoError(t, c.UpdateUser(context.Background(), account))
	assert.Equal(t, "carol", updated.Username)

	require.NoError(t, c.DeleteUser(context.Background(), "bob"))
	assert.Equal(t, "bob", removed)
}

func TestListUsers_WrappedPayload(t *testing.T) {
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"users":[{"username":"alice"}]}`)
	})

	users, err := c.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Username)
}

func TestServerError_Fallback(t *testing.T) {
	err := serverError(503, []byte("<html>bad gateway</html>"), "request failed")
	assert.Equal(t, "request failed (status 503)", err.Error())

	err = serverError(400, []byte(`{"detail":"bad category"}`), "request failed")
	assert.Equal(t, "bad category", err.Error())
}

func TestProgressReader_WholePercents(t *testing.T) {
	var seen []int
	data := strings.Repeat("a", 400)
	pr := &progressReader{r: strings.NewReader(data), total: int64(len(data)), report: func(pct int) {
		seen = append(seen, pct)
	}}

	buf := make([]byte, 100)
	for {
		if _, err := pr.Read(buf); err != nil {
			require.ErrorIs(t, err, io.EOF)
			break
		}
	}

	assert.Equal(t, []int{25, 50, 75, 100}, seen)
}
