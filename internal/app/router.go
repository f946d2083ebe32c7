package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/univera/univera/internal/academics"
	"github.com/univera/univera/internal/auth"
	"github.com/univera/univera/internal/hr"
	"github.com/univera/univera/internal/observability"
	"github.com/univera/univera/internal/org"
	"github.com/univera/univera/internal/platform/httpx"
	"github.com/univera/univera/internal/rbac"
	"github.com/univera/univera/internal/shared"
	"github.com/univera/univera/internal/users"
	"github.com/univera/univera/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	AuthHandler      *auth.Handler
	AccessHandler    *rbac.Handler
	OrgHandler       *org.Handler
	HRHandler        *hr.Handler
	AcademicsHandler *academics.Handler
	UsersHandler     *users.Handler
	JobHandler       *jobs.Handler

	Pool    *pgxpool.Pool
	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with Univera defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Clients fetch a token here before their first mutating request.
	r.Get("/csrf", func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		token, err := params.CSRFManager.EnsureToken(r.Context(), sess)
		if err != nil {
			params.Logger.Error("issue csrf token", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"token": token})
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	if params.AccessHandler != nil {
		r.Route("/access", func(r chi.Router) {
			params.AccessHandler.MountRoutes(r)
		})
	}
	if params.OrgHandler != nil {
		r.Route("/org", func(r chi.Router) {
			params.OrgHandler.MountRoutes(r)
		})
	}
	if params.HRHandler != nil {
		r.Route("/hr", func(r chi.Router) {
			params.HRHandler.MountRoutes(r)
		})
	}
	if params.AcademicsHandler != nil {
		r.Route("/academics", func(r chi.Router) {
			params.AcademicsHandler.MountRoutes(r)
		})
	}
	if params.UsersHandler != nil {
		r.Route("/users", func(r chi.Router) {
			params.UsersHandler.MountRoutes(r)
		})
	}
	if params.JobHandler != nil {
		r.Route("/jobs", func(r chi.Router) {
			params.JobHandler.MountRoutes(r)
		})
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
