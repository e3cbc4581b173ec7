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

	"github.com/condohub/condohub/internal/app"
	"github.com/condohub/condohub/internal/billing"
	billinghttp "github.com/condohub/condohub/internal/billing/http"
	"github.com/condohub/condohub/internal/observability"
	"github.com/condohub/condohub/internal/platform/cache"
	"github.com/condohub/condohub/internal/platform/db"
	"github.com/condohub/condohub/internal/structure"
	"github.com/condohub/condohub/internal/targeting"
	targetinghttp "github.com/condohub/condohub/internal/targeting/http"
	"github.com/condohub/condohub/internal/visibility"
	visibilityhttp "github.com/condohub/condohub/internal/visibility/http"
	"github.com/condohub/condohub/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, previews will not be cached", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()

	structureService := structure.NewService(structure.NewRepository(dbpool))

	memo := targeting.NewMemo(cfg.ResolveMemoSize)
	memo.OnLookup = metrics.ObserveMemoLookup

	previewCache := billing.NewCache(redisClient, cfg.PreviewCacheTTL)
	if err := previewCache.ListenForInvalidation(ctx, ""); err != nil {
		logger.Warn("preview cache invalidation listener", slog.Any("error", err))
	}
	billingService := billing.NewService(structureService, billing.NewRepository(dbpool), previewCache, memo).
		WithObserver(metrics)

	visibilityService := visibility.NewService(structureService, visibility.NewRepository(dbpool), visibility.Options{
		PrivateRepresentativesOnly: cfg.VisibilityPrivateRepresentativesOnly,
	})

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobsClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		TargetingHandler:  targetinghttp.NewHandler(logger, structureService, memo, cfg.RateLimitPerMinute),
		BillingHandler:    billinghttp.NewHandler(logger, billingService, jobsClient, cfg.RateLimitPerMinute),
		VisibilityHandler: visibilityhttp.NewHandler(logger, visibilityService),
		JobHandler:        jobs.NewHandler(inspector, logger),
		Metrics:           metrics,
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
