package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/condohub/condohub/internal/app"
	"github.com/condohub/condohub/internal/billing"
	jobmetrics "github.com/condohub/condohub/internal/jobs"
	"github.com/condohub/condohub/internal/platform/cache"
	"github.com/condohub/condohub/internal/platform/db"
	"github.com/condohub/condohub/internal/structure"
	"github.com/condohub/condohub/internal/targeting"
	"github.com/condohub/condohub/jobs"
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
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	// Warming is pointless without the cache, so Redis is required here.
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

	structureService := structure.NewService(structure.NewRepository(pool))
	campaigns := billing.NewRepository(pool)
	previewCache := billing.NewCache(redisClient, cfg.PreviewCacheTTL)
	billingService := billing.NewService(structureService, campaigns, previewCache, targeting.NewMemo(cfg.ResolveMemoSize))

	warmupJob := jobs.NewPreviewWarmupJob(billingService, campaigns, logger, jobmetrics.NewMetrics(nil))

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskBillingPreviewWarmup, Handler: warmupJob.Handle},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker", slog.Int("concurrency", cfg.WorkerConcurrency))
	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
