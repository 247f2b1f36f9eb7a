// Package loader builds the relationship store from a tab-delimited source file.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/quadro/internal/shared"
)

// Supported store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const (
	// DefaultSourcePath is the source file name used when none is given.
	DefaultSourcePath = "ReceitaFederal_QuadroSocietario.csv"
	// DefaultStorePath is the store file name used when none is given.
	DefaultStorePath = "database.db"

	progressEvery = 100000
)

// RowSource yields data rows; Next returns io.EOF after the last one.
type RowSource interface {
	Next() ([]string, error)
	Line() int
}

type target interface {
	Rebuild(ctx context.Context, rows RowSource) (int64, error)
	Close() error
}

// Options configures a Loader.
type Options struct {
	// Driver selects the store backend; empty means sqlite.
	Driver string
	// Encoding names the source text encoding; empty means UTF-8.
	Encoding string
	// BatchSize bounds queued inserts per Postgres round trip.
	BatchSize int
	// PostgresPool, when set, is used instead of dialing the store argument as a DSN.
	PostgresPool *pgxpool.Pool
	Logger       *slog.Logger
}

// Result summarises a successful build.
type Result struct {
	BuildID  string
	Rows     int64
	Duration time.Duration
}

// Loader drops, recreates and fills the store table, then indexes it.
type Loader struct {
	opts   Options
	logger *slog.Logger
}

// New constructs a Loader.
func New(opts Options) *Loader {
	if opts.Driver == "" {
		opts.Driver = DriverSQLite
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{opts: opts, logger: logger}
}

// Build reads sourcePath and rebuilds the store. For the sqlite driver store is a file
// path; for postgres it is a DSN (ignored when Options.PostgresPool is set). The rebuild
// runs in one transaction, so a failure leaves any previous table untouched.
func (l *Loader) Build(ctx context.Context, sourcePath, store string) (Result, error) {
	start := time.Now()
	buildID := uuid.NewString()
	logger := l.logger.With(slog.String("build_id", buildID), slog.String("driver", l.opts.Driver))

	source, err := OpenSource(sourcePath, l.opts.Encoding)
	if err != nil {
		return Result{}, err
	}
	defer source.Close()

	tgt, err := l.openTarget(ctx, store)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if err := tgt.Close(); err != nil {
			logger.Warn("close store", slog.Any("error", err))
		}
	}()

	logger.Info("building store", slog.String("source", sourcePath), slog.String("store", redact(store)))
	if err := source.SkipHeader(); err != nil {
		return Result{}, err
	}

	rows, err := tgt.Rebuild(ctx, &progressSource{RowSource: source, logger: logger})
	if err != nil {
		logger.Error("build failed", slog.Int("line", source.Line()), slog.Any("error", err))
		return Result{}, err
	}

	result := Result{BuildID: buildID, Rows: rows, Duration: time.Since(start)}
	logger.Info("store built", slog.Int64("rows", rows), slog.Duration("duration", result.Duration))
	return result, nil
}

func (l *Loader) openTarget(ctx context.Context, store string) (target, error) {
	switch l.opts.Driver {
	case DriverSQLite:
		return openSQLiteTarget(ctx, store)
	case DriverPostgres:
		if l.opts.PostgresPool != nil {
			return newPostgresTarget(l.opts.PostgresPool, false, l.opts.BatchSize), nil
		}
		return openPostgresTarget(ctx, store, l.opts.BatchSize)
	default:
		return nil, fmt.Errorf("loader: unsupported driver %q", l.opts.Driver)
	}
}

// NormalizeStorePath appends the .db suffix to SQLite store names that lack it.
func NormalizeStorePath(name string) string {
	if name == "" {
		return DefaultStorePath
	}
	if strings.HasSuffix(name, ".db") {
		return name
	}
	return name + ".db"
}

// classify keeps taxonomy errors as they are and files anything else under ErrStorage.
func classify(err error) error {
	switch {
	case errors.Is(err, shared.ErrSchema),
		errors.Is(err, shared.ErrIO),
		errors.Is(err, shared.ErrStorage),
		errors.Is(err, shared.ErrBusy),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("loader: %w: %w", shared.ErrStorage, err)
}

// redact hides credentials when the store argument is a DSN.
func redact(store string) string {
	if i := strings.Index(store, "@"); i >= 0 && strings.Contains(store, "://") {
		return store[:strings.Index(store, "://")+3] + "***" + store[i:]
	}
	return store
}

type progressSource struct {
	RowSource
	logger *slog.Logger
	count  int64
}

func (p *progressSource) Next() ([]string, error) {
	row, err := p.RowSource.Next()
	if err == nil {
		p.count++
		if p.count%progressEvery == 0 {
			p.logger.Info("rows read", slog.Int64("rows", p.count))
		}
	}
	return row, err
}
