package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/odyssey-erp/quadro/internal/app"
	jobmetrics "github.com/odyssey-erp/quadro/internal/jobs"
	"github.com/odyssey-erp/quadro/internal/loader"
	"github.com/odyssey-erp/quadro/internal/platform/cache"
	"github.com/odyssey-erp/quadro/internal/registry"
	"github.com/odyssey-erp/quadro/jobs"
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
	if !cfg.RedisEnabled() {
		logger.Error("worker requires REDIS_ADDR")
		os.Exit(1)
	}

	redisOpts, err := cache.AsynqOptions(cfg.RedisAddr)
	if err != nil {
		logger.Error("redis options", slog.Any("error", err))
		os.Exit(1)
	}

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

	build := loader.New(loader.Options{
		Driver:   cfg.StoreDriver,
		Encoding: cfg.SourceEncoding,
		Logger:   logger,
	})
	store := cfg.StorePath
	if cfg.StoreDriver == loader.DriverPostgres {
		store = cfg.PGDSN
	}
	rebuildJob := jobs.NewStoreRebuildJob(
		build,
		registry.NewRedisCache(redisClient, cfg.CacheTTL),
		jobs.StoreRebuildConfig{
			Driver:     cfg.StoreDriver,
			SourcePath: cfg.SourcePath,
			StorePath:  store,
			ServeDir:   cfg.ServeDir,
		},
		logger,
		jobmetrics.NewMetrics(nil),
	)

	var cron []jobs.CronRegistration
	if cfg.RebuildCron != "" {
		task, err := jobs.NewStoreRebuildTask(jobs.StoreRebuildPayload{})
		if err != nil {
			logger.Error("build rebuild task", slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{Spec: cfg.RebuildCron, Task: task, Options: jobs.RebuildOptions()})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskStoreRebuild, Handler: rebuildJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker", slog.String("driver", cfg.StoreDriver), slog.String("cron", cfg.RebuildCron))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
