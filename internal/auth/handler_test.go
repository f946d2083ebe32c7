package auth

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/univera/univera/internal/shared"
	"github.com/univera/univera/internal/users"
)

type stubUserSource struct {
	byEmail map[string]users.User
	byID    map[int64]users.User
}

func (s *stubUserSource) GetByEmail(ctx context.Context, email string) (users.User, error) {
	user, ok := s.byEmail[email]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return user, nil
}

func (s *stubUserSource) Get(ctx context.Context, id int64) (users.User, error) {
	user, ok := s.byID[id]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return user, nil
}

func fixtureUsers(t *testing.T) *stubUserSource {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	active := users.User{ID: 1, Email: "ada@univera.test", FullName: "Ada Lovelace", PasswordHash: string(hash), Status: users.StatusActive}
	disabled := users.User{ID: 2, Email: "off@univera.test", FullName: "Disabled", PasswordHash: string(hash), Status: users.StatusDisabled}
	return &stubUserSource{
		byEmail: map[string]users.User{active.Email: active, disabled.Email: disabled},
		byID:    map[int64]users.User{active.ID: active, disabled.ID: disabled},
	}
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := NewService(fixtureUsers(t))

	user, err := svc.Authenticate(ctx, "ada@univera.test", "correct horse")
	require.NoError(t, err)
	require.Equal(t, int64(1), user.ID)

	_, err = svc.Authenticate(ctx, "ada@univera.test", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@univera.test", "correct horse")
	require.ErrorIs(t, err, ErrInvalidCredentials, "unknown email and wrong password are indistinguishable")

	_, err = svc.Authenticate(ctx, "off@univera.test", "correct horse")
	require.ErrorIs(t, err, ErrAccountDisabled)
}

func testSessionManager(t *testing.T) *shared.SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return shared.NewSessionManager(client, "univera_session", "test-secret", time.Hour, false)
}

func testHandler(t *testing.T, sessions *shared.SessionManager) *Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(logger, NewService(fixtureUsers(t)), nil, sessions, nil)
}

func doLogin(t *testing.T, h *Handler, sessions *shared.SessionManager, body string) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	sess, err := sessions.Load(req.Context(), req)
	require.NoError(t, err)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	rec := httptest.NewRecorder()
	h.login(rec, req)
	return rec, sess
}

func TestLoginSetsSessionUser(t *testing.T) {
	sessions := testSessionManager(t)
	h := testHandler(t, sessions)

	rec, sess := doLogin(t, h, sessions, `{"email":"ada@univera.test","password":"correct horse"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "1", sess.User())
	require.Contains(t, rec.Body.String(), "ada@univera.test")
	require.NotContains(t, rec.Body.String(), "password_hash")
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	sessions := testSessionManager(t)
	h := testHandler(t, sessions)

	rec, sess := doLogin(t, h, sessions, `{"email":"ada@univera.test","password":"wrong"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Empty(t, sess.User())
}

func TestLoginRejectsDisabledAccount(t *testing.T) {
	sessions := testSessionManager(t)
	h := testHandler(t, sessions)

	rec, _ := doLogin(t, h, sessions, `{"email":"off@univera.test","password":"correct horse"}`)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLoginRejectsMalformedBody(t *testing.T) {
	sessions := testSessionManager(t)
	h := testHandler(t, sessions)

	rec, _ := doLogin(t, h, sessions, `{"email":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
