package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/bookshelf-cms/bookshelf/internal/app"
	"github.com/bookshelf-cms/bookshelf/internal/auth"
	jobmetrics "github.com/bookshelf-cms/bookshelf/internal/jobs"
	"github.com/bookshelf-cms/bookshelf/internal/platform/db"
	"github.com/bookshelf-cms/bookshelf/internal/shared"
	"github.com/bookshelf-cms/bookshelf/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	maintenance := &jobs.Maintenance{
		Sessions:  auth.NewRepository(pool),
		Audit:     shared.NewAuditLogger(pool),
		Retention: cfg.AuditRetention,
		Logger:    logger,
		Metrics:   jobmetrics.NewMetrics(nil),
	}

	pruneTask, err := jobs.NewAuditPruneTask(jobs.AuditPrunePayload{})
	if err != nil {
		logger.Error("build audit prune task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Maintenance: maintenance,
		Cron: []jobs.CronRegistration{
			{Spec: "45 * * * *", Task: jobs.NewSessionPurgeTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 3 * * *", Task: pruneTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	// Kick off one purge immediately instead of waiting for the first
	// cron tick after a deploy.
	client := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if _, err := client.EnqueueSessionPurge(ctx); err != nil {
		logger.Warn("enqueue session purge", slog.Any("error", err))
	}
	if _, err := client.EnqueueAuditPrune(ctx, jobs.AuditPrunePayload{}); err != nil {
		logger.Warn("enqueue audit prune", slog.Any("error", err))
	}
	if err := client.Close(); err != nil {
		logger.Warn("close queue client", slog.Any("error", err))
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
