package hr

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/univera/univera/internal/authz"
	"github.com/univera/univera/internal/org"
	"github.com/univera/univera/internal/rbac"
	"github.com/univera/univera/internal/shared"
)

type stubPermSource struct {
	sets map[int64]rbac.PermissionSet
}

func (s stubPermSource) EffectivePermissions(ctx context.Context, userID int64) (rbac.PermissionSet, error) {
	return s.sets[userID], nil
}

type stubHierarchySource struct {
	hierarchy *org.Hierarchy
}

func (s stubHierarchySource) Snapshot(ctx context.Context) (*org.Hierarchy, error) {
	return s.hierarchy, nil
}

// scopedHandlerFixture builds a handler where user 2 manages Faculty A
// (unit 10): qualification/training edit permissions plus one active
// assignment there. Employee Ada (user 3) sits in Faculty A, employee Bob
// (user 4) in Faculty B (unit 20).
type scopedHandlerFixture struct {
	handler *Handler
	service *Service
	ada     Employee
	bob     Employee
}

func newScopedHandlerFixture(t *testing.T) scopedHandlerFixture {
	t.Helper()
	repo := newMemoryHRRepo()
	svc := NewService(repo)

	manager := seedEmployee(t, repo, 2, "E100", "Faculty A Manager")
	seedAssignment(t, repo, manager.ID, 10, false)
	ada := seedEmployee(t, repo, 3, "E101", "Ada Lovelace")
	seedAssignment(t, repo, ada.ID, 10, false)
	bob := seedEmployee(t, repo, 4, "E102", "Bob Babbage")
	seedAssignment(t, repo, bob.ID, 20, false)

	perms := stubPermSource{sets: map[int64]rbac.PermissionSet{
		2: rbac.NewPermissionSet([]string{shared.PermQualificationsEdit, shared.PermTrainingsEdit}),
	}}
	hierarchy := stubHierarchySource{hierarchy: org.NewHierarchy([]org.Unit{
		{ID: 10, Code: "FA", Name: "Faculty A"},
		{ID: 20, Code: "FB", Name: "Faculty B"},
	})}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	resolver := authz.NewResolver(logger, perms, hierarchy, svc, authz.DefaultPolicies())
	return scopedHandlerFixture{
		handler: NewHandler(logger, svc, resolver, nil, rbac.Middleware{}),
		service: svc,
		ada:     ada,
		bob:     bob,
	}
}

// doAsUser issues a request with a session for the given user and a chi
// route parameter "id".
func doAsUser(t *testing.T, userID, pathID int64, handle http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sessions := shared.NewSessionManager(client, "univera_session", "test-secret", time.Hour, false)

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	sess, err := sessions.Load(req.Context(), req)
	require.NoError(t, err)
	sess.SetUser(strconv.FormatInt(userID, 10))

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", strconv.FormatInt(pathID, 10))
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = shared.ContextWithSession(ctx, sess)
	req = req.WithContext(ctx)

	rec := httptest.NewRecorder()
	handle(rec, req)
	return rec
}

func TestRemoveQualificationOutsideScope(t *testing.T) {
	ctx := context.Background()
	fix := newScopedHandlerFixture(t)

	qual, err := fix.service.AddQualification(ctx, Qualification{EmployeeID: fix.bob.ID, Kind: "degree", Title: "BSc"})
	require.NoError(t, err)

	rec := doAsUser(t, 2, qual.ID, fix.handler.removeQualification)
	require.Equal(t, http.StatusNotFound, rec.Code)

	kept, err := fix.service.GetQualification(ctx, qual.ID)
	require.NoError(t, err, "out-of-scope delete must not remove the record")
	require.Equal(t, qual.ID, kept.ID)
}

func TestRemoveQualificationInsideScope(t *testing.T) {
	ctx := context.Background()
	fix := newScopedHandlerFixture(t)

	qual, err := fix.service.AddQualification(ctx, Qualification{EmployeeID: fix.ada.ID, Kind: "degree", Title: "BSc"})
	require.NoError(t, err)

	rec := doAsUser(t, 2, qual.ID, fix.handler.removeQualification)
	require.Equal(t, http.StatusNoContent, rec.Code)

	_, err = fix.service.GetQualification(ctx, qual.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveTrainingOutsideScope(t *testing.T) {
	ctx := context.Background()
	fix := newScopedHandlerFixture(t)

	tr, err := fix.service.AddTraining(ctx, Training{EmployeeID: fix.bob.ID, Title: "First Aid", Hours: 8})
	require.NoError(t, err)

	rec := doAsUser(t, 2, tr.ID, fix.handler.removeTraining)
	require.Equal(t, http.StatusNotFound, rec.Code)

	kept, err := fix.service.GetTraining(ctx, tr.ID)
	require.NoError(t, err)
	require.Equal(t, tr.ID, kept.ID)
}

func TestRemoveTrainingInsideScope(t *testing.T) {
	ctx := context.Background()
	fix := newScopedHandlerFixture(t)

	tr, err := fix.service.AddTraining(ctx, Training{EmployeeID: fix.ada.ID, Title: "First Aid", Hours: 8})
	require.NoError(t, err)

	rec := doAsUser(t, 2, tr.ID, fix.handler.removeTraining)
	require.Equal(t, http.StatusNoContent, rec.Code)

	_, err = fix.service.GetTraining(ctx, tr.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
