package users

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/univera/univera/internal/rbac"
	"github.com/univera/univera/jobs"
)

type memoryUsersRepo struct {
	users  map[int64]User
	nextID int64
}

func newMemoryUsersRepo() *memoryUsersRepo {
	return &memoryUsersRepo{users: make(map[int64]User)}
}

func (r *memoryUsersRepo) List(ctx context.Context, search string, page, limit int) ([]User, int, error) {
	var out []User
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, len(out), nil
}

func (r *memoryUsersRepo) Get(ctx context.Context, id int64) (User, error) {
	u, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (r *memoryUsersRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *memoryUsersRepo) Create(ctx context.Context, user User) (User, error) {
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return User{}, ErrDuplicate
		}
	}
	r.nextID++
	user.ID = r.nextID
	r.users[user.ID] = user
	return user, nil
}

func (r *memoryUsersRepo) Update(ctx context.Context, user User) (User, error) {
	existing, ok := r.users[user.ID]
	if !ok {
		return User{}, ErrNotFound
	}
	existing.FullName = user.FullName
	r.users[user.ID] = existing
	return existing, nil
}

func (r *memoryUsersRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = hash
	r.users[id] = u
	return nil
}

func (r *memoryUsersRepo) SetStatus(ctx context.Context, id int64, status string) error {
	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Status = status
	r.users[id] = u
	return nil
}

var _ RepositoryPort = (*memoryUsersRepo)(nil)

func TestCreateUserQueuesWelcomeEmail(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := jobs.NewClient(asynq.RedisClientOpt{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, NewService(newMemoryUsersRepo()), nil, rbac.Middleware{}, client)

	body := `{"email":"ada@univera.test","full_name":"Ada Lovelace","password":"correct horse"}`
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.create(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotEmpty(t, mr.Keys(), "the welcome email must land in the queue")
}

func TestCreateUserWithoutQueueClient(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, NewService(newMemoryUsersRepo()), nil, rbac.Middleware{}, nil)

	body := `{"email":"ada@univera.test","full_name":"Ada Lovelace","password":"correct horse"}`
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.create(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
}
