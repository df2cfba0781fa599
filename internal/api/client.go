package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hollis/cantata/internal/domain"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "Cantata/1.0"
)

// TokenProvider returns the current bearer token, empty when logged out.
// The client never caches the token itself; every request reads through
// the provider so a logout takes effect immediately.
type TokenProvider func() string

// Client talks to the audio server. It implements domain.AuthRepository,
// domain.TrackRepository, and domain.UserRepository.
type Client struct {
	baseURL string
	token   TokenProvider
	// jsonClient carries its own timeout for small JSON calls; mediaClient
	// has none because stream/download/upload deadlines come from the
	// caller's context.
	jsonClient  *http.Client
	mediaClient *http.Client
	logger      *slog.Logger
}

// NewClient creates a client for the given server base URL.
func NewClient(baseURL string, token TokenProvider, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if token == nil {
		token = func() string { return "" }
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		token:       token,
		jsonClient:  &http.Client{Timeout: defaultTimeout},
		mediaClient: &http.Client{},
		logger:      logger,
	}
}

// Login exchanges form-encoded credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.jsonClient.Do(req)
	if err != nil {
		c.logger.Error("login request failed", "error", err)
		return "", domain.ErrServerOffline
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return "", domain.ErrAuthFailed
	}
	if resp.StatusCode != http.StatusOK {
		return "", serverError(resp.StatusCode, body, "login failed")
	}

	var loginResp loginResponse
	if err := json.Unmarshal(body, &loginResp); err != nil {
		return "", fmt.Errorf("failed to parse login response: %w", err)
	}
	if loginResp.AccessToken == "" {
		return "", fmt.Errorf("login response missing access token")
	}
	return loginResp.AccessToken, nil
}

// Me returns the account behind the current token.
func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/users/me", nil)
	if err != nil {
		return nil, err
	}
	var user domain.User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to parse user: %w", err)
	}
	return &user, nil
}

// ListTracks fetches /list-files and normalizes the entries.
func (c *Client) ListTracks(ctx context.Context) ([]domain.Track, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/list-files", nil)
	if err != nil {
		return nil, err
	}
	var listResp listFilesResponse
	if err := json.Unmarshal(body, &listResp); err != nil {
		return nil, fmt.Errorf("failed to parse file list: %w", err)
	}
	return MapTracks(listResp.Files), nil
}

// Stream fetches the raw audio bytes for playback. The caller's context
// carries the deadline.
func (c *Client) Stream(ctx context.Context, fileName string) ([]byte, error) {
	return c.fetchBinary(ctx, "/stream/"+url.PathEscape(path.Base(fileName)))
}

// Download fetches the raw audio bytes for saving locally.
func (c *Client) Download(ctx context.Context, fileName string) ([]byte, error) {
	return c.fetchBinary(ctx, "/download/"+url.PathEscape(path.Base(fileName)))
}

// DeleteTrack removes a file on the server.
func (c *Client) DeleteTrack(ctx context.Context, fileName string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "/delete/"+url.PathEscape(path.Base(fileName)), nil)
	return err
}

// Upload sends a multipart form with the audio file and its metadata.
// The body is buffered first so the total size is known and progress can
// be reported as an integer percentage of bytes sent.
func (c *Client) Upload(ctx context.Context, req domain.UploadRequest, content io.Reader, size int64, progress func(int)) (string, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	part, err := form.CreateFormFile("file", filepath.Base(req.FilePath))
	if err != nil {
		return "", fmt.Errorf("failed to build form: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	form.WriteField("audio_description", req.Description)
	form.WriteField("audio_category", req.Category)
	form.WriteField("audio_length", strconv.FormatFloat(req.DurationSeconds, 'f', -1, 64))
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize form: %w", err)
	}

	total := int64(buf.Len())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &progressReader{r: &buf, total: total, report: progress})
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.ContentLength = total
	httpReq.Header.Set("Content-Type", form.FormDataContentType())
	c.setAuth(httpReq)

	resp, err := c.mediaClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		c.logger.Error("upload request failed", "error", err)
		return "", domain.ErrServerOffline
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return "", domain.ErrAuthFailed
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", serverError(resp.StatusCode, body, "upload failed")
	}

	var uploadResp uploadResponse
	if err := json.Unmarshal(body, &uploadResp); err != nil {
		return "", fmt.Errorf("failed to parse upload response: %w", err)
	}
	if progress != nil {
		progress(100)
	}
	return uploadResp.Filename, nil
}

// ListUsers returns all accounts (admin only).
func (c *Client) ListUsers(ctx context.Context) ([]domain.User, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/users/", nil)
	if err != nil {
		return nil, err
	}
	var users []domain.User
	if err := json.Unmarshal(body, &users); err != nil {
		// Some deployments wrap the list in {"users": [...]}
		var wrapped struct {
			Users []domain.User `json:"users"`
		}
		if err2 := json.Unmarshal(body, &wrapped); err2 != nil {
			return nil, fmt.Errorf("failed to parse user list: %w", err)
		}
		users = wrapped.Users
	}
	return users, nil
}

// CreateUser creates an account (admin only).
func (c *Client) CreateUser(ctx context.Context, account domain.UserAccount) error {
	_, err := c.doRequest(ctx, http.MethodPost, "/users/create", account)
	return err
}

// UpdateUser updates an account (admin only).
func (c *Client) UpdateUser(ctx context.Context, account domain.UserAccount) error {
	_, err := c.doRequest(ctx, http.MethodPut, "/users/update", account)
	return err
}

// DeleteUser removes an account (admin only).
func (c *Client) DeleteUser(ctx context.Context, username string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "/users/"+url.PathEscape(username), nil)
	return err
}

// doRequest performs an authenticated JSON request and maps error statuses
// to domain sentinels.
func (c *Client) doRequest(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuth(req)

	c.logger.Debug("api request", "method", method, "path", path)

	resp, err := c.jsonClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Error("api request failed", "method", method, "path", path, "error", err)
		return nil, domain.ErrServerOffline
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, domain.ErrAuthFailed
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrTrackNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.logger.Error("api request error", "method", method, "path", path, "status", resp.StatusCode)
		return nil, serverError(resp.StatusCode, body, "request failed")
	}
	return body, nil
}

// fetchBinary performs an authenticated GET for a binary body. No client
// timeout; the caller's context deadline governs.
func (c *Client) fetchBinary(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setAuth(req)

	resp, err := c.mediaClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Error("binary fetch failed", "path", path, "error", err)
		return nil, domain.ErrServerOffline
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, domain.ErrAuthFailed
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrTrackNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, serverError(resp.StatusCode, body, "fetch failed")
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return data, nil
}

func (c *Client) setAuth(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// serverError extracts the structured {"detail": ...} message, falling
// back to a generic message when the body is not parseable JSON.
func serverError(status int, body []byte, fallback string) error {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Detail != "" {
		return errors.New(errResp.Detail)
	}
	return fmt.Errorf("%s (status %d)", fallback, status)
}

// progressReader reports whole-percent progress as the request body is
// consumed by the transport.
type progressReader struct {
	r      io.Reader
	total  int64
	sent   int64
	last   int
	report func(int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.sent += int64(n)
	if p.report != nil && p.total > 0 {
		pct := int(p.sent * 100 / p.total)
		if pct > 100 {
			pct = 100
		}
		if pct != p.last {
			p.last = pct
			p.report(pct)
		}
	}
	return n, err
}
