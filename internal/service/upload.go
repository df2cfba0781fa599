package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/hollis/cantata/internal/domain"
)

// userVerifier re-checks the current user before a transfer starts.
type userVerifier interface {
	CurrentUser(ctx context.Context, force bool) (*domain.User, error)
}

// UploadService validates and sends audio uploads with progress
// reporting.
type UploadService struct {
	repo    domain.TrackRepository
	session userVerifier
	logger  *slog.Logger
}

// NewUploadService creates the upload service.
func NewUploadService(repo domain.TrackRepository, session userVerifier, logger *slog.Logger) *UploadService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadService{
		repo:    repo,
		session: session,
		logger:  logger,
	}
}

// Upload validates the request locally, re-verifies the session, and
// transfers the file. progress, when non-nil, receives integer
// percentages. Cancelling the context yields ErrUploadCancelled; an
// unauthenticated session yields ErrAuthFailed before any transfer.
// Returns the server-assigned file name.
func (s *UploadService) Upload(ctx context.Context, req domain.UploadRequest, progress func(int)) (string, error) {
	// Local validation blocks the operation before any network call.
	if strings.TrimSpace(req.FilePath) == "" {
		return "", domain.ErrNoFileSelected
	}
	if strings.TrimSpace(req.Category) == "" {
		return "", domain.ErrNoCategory
	}
	if !isAudioFile(req.FilePath) {
		return "", domain.ErrNotAudioFile
	}

	user, err := s.session.CurrentUser(ctx, false)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", domain.ErrAuthFailed
	}

	f, err := os.Open(req.FilePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat file: %w", err)
	}

	s.logger.Info("upload started", "file", req.FilePath, "size", info.Size(), "category", req.Category)

	name, err := s.repo.Upload(ctx, req, f, info.Size(), progress)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			s.logger.Info("upload cancelled", "file", req.FilePath)
			return "", domain.ErrUploadCancelled
		}
		s.logger.Error("upload failed", "file", req.FilePath, "error", err)
		return "", err
	}

	s.logger.Info("upload complete", "file", name)
	return name, nil
}

// isAudioFile accepts files whose extension maps to an audio MIME type,
// falling back to content sniffing for unknown extensions.
func isAudioFile(path string) bool {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); t != "" {
		return strings.HasPrefix(t, "audio/")
	}

	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	head := make([]byte, 512)
	n, _ := f.Read(head)
	return strings.HasPrefix(http.DetectContentType(head[:n]), "audio/")
}
