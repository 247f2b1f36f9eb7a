package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/quadro/internal/app"
	"github.com/odyssey-erp/quadro/internal/loader"
	"github.com/odyssey-erp/quadro/internal/observability"
	"github.com/odyssey-erp/quadro/internal/platform/cache"
	"github.com/odyssey-erp/quadro/internal/platform/db"
	"github.com/odyssey-erp/quadro/internal/registry"
	"github.com/odyssey-erp/quadro/jobs"
)

const shutdownTimeout = 10 * time.Second

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
	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("quadro", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	metrics := observability.NewMetrics()
	group, ctx := errgroup.WithContext(ctx)

	var repo registry.Repository
	var handle *db.SQLiteHandle
	switch cfg.StoreDriver {
	case loader.DriverPostgres:
		pool, err := db.New(ctx, cfg.PGDSN, int32(cfg.StoreMaxConns))
		if err != nil {
			return err
		}
		defer pool.Close()
		repo = registry.NewPostgresRepository(pool)
	default:
		storePath := loader.ServePath(cfg.ServeDir, loader.NormalizeStorePath(cfg.StorePath))
		h, err := db.NewSQLiteHandle(ctx, db.SQLiteOptions{
			Path:          storePath,
			MaxOpenConns:  cfg.StoreMaxConns,
			RequiredTable: registry.TableName,
			Logger:        logger,
		})
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer func() {
			if err := h.Close(); err != nil {
				logger.Warn("store close", slog.Any("error", err))
			}
		}()
		handle = h
		repo = registry.NewSQLiteRepository(h)
	}

	local := registry.NewMemoryCache(cfg.CacheSize, cfg.CacheTTL)
	var resultCache registry.Cache = local
	var inspector *asynq.Inspector
	if cfg.RedisEnabled() {
		redisClient, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		tiered := registry.NewTieredCache(local, registry.NewRedisCache(redisClient, cfg.CacheTTL))
		if err := tiered.Listen(ctx); err != nil {
			logger.Warn("cache invalidation listener", slog.Any("error", err))
		}
		resultCache = tiered

		redisOpts, err := cache.AsynqOptions(cfg.RedisAddr)
		if err != nil {
			return err
		}
		inspector = asynq.NewInspector(redisOpts)
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
	}

	service := registry.NewService(repo, resultCache)
	var queue jobs.QueueInspector
	if inspector != nil {
		queue = inspector
	}

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		RegistryHandler: registry.NewHandler(logger, service),
		JobHandler:      jobs.NewHandler(queue, logger),
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	if handle != nil {
		group.Go(func() error {
			return handle.Watch(ctx, func() {
				metrics.ObserveStoreSwap()
				if err := service.Invalidate(ctx); err != nil {
					logger.Warn("invalidate cache after swap", slog.Any("error", err))
				}
			})
		})
	}

	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("driver", cfg.StoreDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
