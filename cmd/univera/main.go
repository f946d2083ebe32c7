package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/univera/univera/internal/academics"
	"github.com/univera/univera/internal/app"
	"github.com/univera/univera/internal/auth"
	"github.com/univera/univera/internal/authz"
	"github.com/univera/univera/internal/hr"
	"github.com/univera/univera/internal/observability"
	"github.com/univera/univera/internal/org"
	"github.com/univera/univera/internal/platform/cache"
	"github.com/univera/univera/internal/rbac"
	"github.com/univera/univera/internal/shared"
	"github.com/univera/univera/internal/users"
	"github.com/univera/univera/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "univera_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(dbpool)
	metrics := observability.NewMetrics()

	rbacRepo := rbac.NewRepository(dbpool)
	rbacService := rbac.NewService(rbacRepo, rbac.NewPermissionCache(cfg.PermissionCacheTTL))
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	orgRepo := org.NewRepository(dbpool)
	orgService := org.NewService(orgRepo)

	hrRepo := hr.NewRepository(dbpool)
	hrService := hr.NewService(hrRepo)

	resolver := authz.NewResolver(logger, rbacService, orgService, hrService, authz.DefaultPolicies())
	resolver.OnDecision = metrics.ObserveDecision

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo)

	authService := auth.NewService(usersService)
	authHandler := auth.NewHandler(logger, authService, rbacService, sessionManager, auditLogger)

	academicsRepo := academics.NewRepository(dbpool)
	academicsService := academics.NewService(academicsRepo)

	accessHandler := rbac.NewHandler(logger, rbacService, auditLogger, rbacMiddleware)
	orgHandler := org.NewHandler(logger, orgService, auditLogger, rbacMiddleware)
	hrHandler := hr.NewHandler(logger, hrService, resolver, auditLogger, rbacMiddleware)
	academicsHandler := academics.NewHandler(logger, academicsService, resolver, auditLogger, rbacMiddleware)
	queueClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	usersHandler := users.NewHandler(logger, usersService, auditLogger, rbacMiddleware, queueClient)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, queueClient, rbacMiddleware, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		AuthHandler:      authHandler,
		AccessHandler:    accessHandler,
		OrgHandler:       orgHandler,
		HRHandler:        hrHandler,
		AcademicsHandler: academicsHandler,
		UsersHandler:     usersHandler,
		JobHandler:       jobHandler,
		Pool:             dbpool,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
