package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/univera/univera/internal/shared"
)

// ErrInvalidInput marks writes rejected by business rules.
var ErrInvalidInput = errors.New("users: invalid input")

// Service handles account management logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns a page of accounts.
func (s *Service) List(ctx context.Context, search string, page, limit int) ([]User, int, error) {
	return s.repo.List(ctx, strings.TrimSpace(search), page, limit)
}

// Get fetches an account by ID.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

// GetByEmail fetches an account by normalized email.
func (s *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return s.repo.GetByEmail(ctx, normalizeEmail(email))
}

// Create hashes the password and inserts a new account.
func (s *Service) Create(ctx context.Context, email, fullName, password string) (User, error) {
	email = normalizeEmail(email)
	fullName = strings.TrimSpace(fullName)
	if email == "" || fullName == "" {
		return User{}, fmt.Errorf("%w: email and full name required", ErrInvalidInput)
	}
	if len(password) < 8 {
		return User{}, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	return s.repo.Create(ctx, User{
		Email:        email,
		FullName:     fullName,
		PasswordHash: string(hash),
		Status:       StatusActive,
	})
}

// Update changes an account's full name.
func (s *Service) Update(ctx context.Context, id int64, fullName string) (User, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return User{}, fmt.Errorf("%w: full name required", ErrInvalidInput)
	}
	return s.repo.Update(ctx, User{ID: id, FullName: fullName})
}

// ChangePassword verifies the current password and stores a new hash.
func (s *Service) ChangePassword(ctx context.Context, id int64, current, next string) error {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
		return fmt.Errorf("%w: current password does not match", ErrInvalidInput)
	}
	if len(next) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, id, string(hash))
}

// Disable blocks an account from signing in.
func (s *Service) Disable(ctx context.Context, id int64) error {
	return s.repo.SetStatus(ctx, id, StatusDisabled)
}

// Enable reactivates a disabled account.
func (s *Service) Enable(ctx context.Context, id int64) error {
	return s.repo.SetStatus(ctx, id, StatusActive)
}

func normalizeEmail(email string) string {
	return shared.FoldCase(email)
}
