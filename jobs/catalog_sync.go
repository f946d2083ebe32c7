package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/univera/univera/internal/jobs"
	"github.com/univera/univera/internal/rbac"
	"github.com/univera/univera/internal/shared"
)

// CatalogSyncJob upserts every declared permission code into the catalog so
// role editors always see the full set, then drops cached resolutions.
type CatalogSyncJob struct {
	rbac    *rbac.Service
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewCatalogSyncJob constructs the job.
func NewCatalogSyncJob(rbacSvc *rbac.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *CatalogSyncJob {
	return &CatalogSyncJob{rbac: rbacSvc, logger: logger, metrics: metrics}
}

// DeclaredScopes lists every permission code the binaries know about.
func DeclaredScopes() []string {
	var scopes []string
	scopes = append(scopes, shared.CoreScopes()...)
	scopes = append(scopes, shared.OrgScopes()...)
	scopes = append(scopes, shared.HRScopes()...)
	scopes = append(scopes, shared.AcademicsScopes()...)
	return scopes
}

// Handle processes TaskCatalogSync tasks.
func (j *CatalogSyncJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track("rbac_catalog_sync")
	ensured := 0
	for _, code := range DeclaredScopes() {
		if _, err := j.rbac.EnsurePermission(ctx, code, ""); err != nil {
			j.logger.Error("ensure permission", slog.String("code", code), slog.Any("error", err))
			return tracker.End(err)
		}
		ensured++
	}
	j.rbac.InvalidatePermissions()
	j.metrics.AddEnsuredPermissions(ensured)
	j.logger.Info("permission catalog synced", slog.Int("codes", ensured))
	return tracker.End(nil)
}
