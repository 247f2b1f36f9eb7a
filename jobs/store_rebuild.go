package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/quadro/internal/jobs"
	"github.com/odyssey-erp/quadro/internal/loader"
	"github.com/odyssey-erp/quadro/internal/shared"
)

// Builder is the part of loader.Loader a rebuild needs.
type Builder interface {
	Build(ctx context.Context, sourcePath, store string) (loader.Result, error)
}

// Invalidator drops cached lookup results once a new store is in place.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// StoreRebuildConfig carries the defaults used when a payload leaves fields empty.
type StoreRebuildConfig struct {
	Driver     string
	SourcePath string
	StorePath  string
	ServeDir   string
}

// StoreRebuildJob runs loader builds from the queue.
type StoreRebuildJob struct {
	builder Builder
	cache   Invalidator
	cfg     StoreRebuildConfig
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewStoreRebuildJob constructs the job. cache and metrics may be nil.
func NewStoreRebuildJob(builder Builder, cache Invalidator, cfg StoreRebuildConfig, logger *slog.Logger, metrics *jobmetrics.Metrics) *StoreRebuildJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreRebuildJob{builder: builder, cache: cache, cfg: cfg, logger: logger, metrics: metrics}
}

// Handle processes TaskStoreRebuild tasks.
func (j *StoreRebuildJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track(TaskStoreRebuild)
	payload, err := decodeRebuildPayload(t)
	if err != nil {
		return tracker.End(err)
	}
	return tracker.End(j.Run(ctx, payload))
}

// Run builds, relocates and invalidates caches for one payload.
func (j *StoreRebuildJob) Run(ctx context.Context, payload StoreRebuildPayload) error {
	source := firstNonEmpty(payload.SourcePath, j.cfg.SourcePath, loader.DefaultSourcePath)
	store := firstNonEmpty(payload.StorePath, j.cfg.StorePath, loader.DefaultStorePath)
	serveDir := firstNonEmpty(payload.ServeDir, j.cfg.ServeDir)
	sqlite := j.cfg.Driver == "" || j.cfg.Driver == loader.DriverSQLite
	if sqlite {
		store = loader.NormalizeStorePath(store)
	}

	result, err := j.builder.Build(ctx, source, store)
	if err != nil {
		if errors.Is(err, shared.ErrSchema) || errors.Is(err, shared.ErrIO) {
			// Retrying cannot fix the source file.
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	}
	j.metrics.AddRows(TaskStoreRebuild, result.Rows)

	if sqlite && serveDir != "" {
		if err := loader.Relocate(store, loader.ServePath(serveDir, store)); err != nil {
			return err
		}
	}

	if j.cache != nil {
		if err := j.cache.Invalidate(ctx); err != nil {
			j.logger.Warn("invalidate cache after rebuild", slog.Any("error", err))
		}
	}
	j.logger.Info("store rebuild finished",
		slog.String("build_id", result.BuildID),
		slog.Int64("rows", result.Rows),
		slog.Duration("duration", result.Duration))
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
