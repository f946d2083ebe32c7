package auth

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/univera/univera/internal/users"
)

var (
	// ErrInvalidCredentials covers unknown emails and wrong passwords alike.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrAccountDisabled indicates the account exists but may not sign in.
	ErrAccountDisabled = errors.New("auth: account disabled")
)

// UserSource resolves accounts for authentication.
type UserSource interface {
	GetByEmail(ctx context.Context, email string) (users.User, error)
	Get(ctx context.Context, id int64) (users.User, error)
}

// Service handles credential verification.
type Service struct {
	users UserSource
}

// NewService builds Service instance.
func NewService(userSource UserSource) *Service {
	return &Service{users: userSource}
}

// Authenticate verifies an email/password pair. Unknown accounts and wrong
// passwords return the same error so responses cannot be used to probe for
// registered emails.
func (s *Service) Authenticate(ctx context.Context, email, password string) (users.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return users.User{}, ErrInvalidCredentials
		}
		return users.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return users.User{}, ErrInvalidCredentials
	}
	if user.Status != users.StatusActive {
		return users.User{}, ErrAccountDisabled
	}
	return user, nil
}

// CurrentUser loads the account behind a session user id.
func (s *Service) CurrentUser(ctx context.Context, id int64) (users.User, error) {
	return s.users.Get(ctx, id)
}
