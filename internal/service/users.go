package service

import (
	"context"
	"log/slog"

	"github.com/hollis/cantata/internal/domain"
)

// UsersService handles the admin user management views.
type UsersService struct {
	repo   domain.UserRepository
	logger *slog.Logger
}

// NewUsersService creates the admin users service.
func NewUsersService(repo domain.UserRepository, logger *slog.Logger) *UsersService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UsersService{repo: repo, logger: logger}
}

// List returns all accounts.
func (s *UsersService) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		return nil, err
	}
	return users, nil
}

// Create adds an account.
func (s *UsersService) Create(ctx context.Context, account domain.UserAccount) error {
	if err := s.repo.CreateUser(ctx, account); err != nil {
		s.logger.Error("failed to create user", "username", account.Username, "error", err)
		return err
	}
	s.logger.Info("user created", "username", account.Username)
	return nil
}

// Update modifies an account.
func (s *UsersService) Update(ctx context.Context, account domain.UserAccount) error {
	if err := s.repo.UpdateUser(ctx, account); err != nil {
		s.logger.Error("failed to update user", "username", account.Username, "error", err)
		return err
	}
	s.logger.Info("user updated", "username", account.Username)
	return nil
}

// Delete removes an account.
func (s *UsersService) Delete(ctx context.Context, username string) error {
	if err := s.repo.DeleteUser(ctx, username); err != nil {
		s.logger.Error("failed to delete user", "username", username, "error", err)
		return err
	}
	s.logger.Info("user deleted", "username", username)
	return nil
}
