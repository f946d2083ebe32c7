package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/univera/univera/internal/app"
	"github.com/univera/univera/internal/hr"
	jobmetrics "github.com/univera/univera/internal/jobs"
	"github.com/univera/univera/internal/rbac"
	"github.com/univera/univera/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := jobmetrics.NewMetrics(nil)

	rbacService := rbac.NewService(rbac.NewRepository(pool), rbac.NewPermissionCache(cfg.PermissionCacheTTL))
	hrService := hr.NewService(hr.NewRepository(pool))

	catalogSync := jobs.NewCatalogSyncJob(rbacService, logger, metrics)
	assignmentSweep := jobs.NewAssignmentSweepJob(hrService, logger, metrics)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskCatalogSync, Handler: catalogSync.Handle},
			{Type: jobs.TaskAssignmentSweep, Handler: assignmentSweep.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "10 3 * * *", Task: jobs.NewCatalogSyncTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "40 3 * * *", Task: jobs.NewAssignmentSweepTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
