package jobs

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/univera/univera/internal/rbac"
)

func TestTriggerCatalogSyncEnqueues(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewClient(asynq.RedisClientOpt{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(nil, client, rbac.Middleware{}, logger)

	req := httptest.NewRequest(http.MethodPost, "/catalog-sync", nil)
	rec := httptest.NewRecorder()
	h.triggerCatalogSync(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Contains(t, rec.Body.String(), TaskCatalogSync)
	require.NotEmpty(t, mr.Keys(), "the task must land in the queue")
}

func TestTriggerCatalogSyncWithoutClient(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(nil, nil, rbac.Middleware{}, logger)

	req := httptest.NewRequest(http.MethodPost, "/catalog-sync", nil)
	rec := httptest.NewRecorder()
	h.triggerCatalogSync(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
