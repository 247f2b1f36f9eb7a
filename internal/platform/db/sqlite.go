package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	_ "modernc.org/sqlite" // pure Go driver, registers "sqlite"
)

const sqliteDriver = "sqlite"

var (
	// ErrStoreMissing is returned when a serving store file does not exist.
	ErrStoreMissing = errors.New("platform/db: store file not found")
	// ErrStoreClosed is returned by Acquire after Close.
	ErrStoreClosed = errors.New("platform/db: store closed")
)

// OpenSQLiteWriter opens (creating when needed) a SQLite file for a rebuild.
// A single connection is used so DDL and inserts share one transaction.
func OpenSQLiteWriter(ctx context.Context, path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("platform/db: create directory %s: %w", dir, err)
		}
	}

	conn, err := sql.Open(sqliteDriver, path)
	if err != nil {
		return nil, fmt.Errorf("platform/db: open sqlite: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	// The artifact is moved after the build, so it must not depend on -wal/-shm side files.
	pragmas := []string{
		"PRAGMA journal_mode = DELETE",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA cache_size = -65536",
	}
	for _, pragma := range pragmas {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("platform/db: set pragma: %w", err)
		}
	}
	return conn, nil
}

// OpenSQLiteReader opens an existing store in query-only mode.
func OpenSQLiteReader(ctx context.Context, path string, maxOpenConns int) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrStoreMissing, path)
		}
		return nil, fmt.Errorf("platform/db: stat store: %w", err)
	}

	dsn := "file:" + path + "?_pragma=query_only(1)&_pragma=busy_timeout(5000)"
	conn, err := sql.Open(sqliteDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("platform/db: open sqlite: %w", err)
	}
	if maxOpenConns > 0 {
		conn.SetMaxOpenConns(maxOpenConns)
		conn.SetMaxIdleConns(maxOpenConns)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("platform/db: ping sqlite: %w", err)
	}
	return conn, nil
}

// SQLiteOptions configures a SQLiteHandle.
type SQLiteOptions struct {
	Path          string
	MaxOpenConns  int
	RequiredTable string
	Logger        *slog.Logger
}

// sqlitePool is one generation of the serving pool. It is closed once it has been
// retired and its last borrower has released it.
type sqlitePool struct {
	db      *sql.DB
	refs    atomic.Int64
	retired atomic.Bool
	once    sync.Once
	logger  *slog.Logger
}

func (p *sqlitePool) release() {
	if p.refs.Add(-1) == 0 && p.retired.Load() {
		p.close()
	}
}

func (p *sqlitePool) retire() {
	p.retired.Store(true)
	if p.refs.Load() == 0 {
		p.close()
	}
}

func (p *sqlitePool) close() {
	p.once.Do(func() {
		if err := p.db.Close(); err != nil {
			p.logger.Warn("close previous store", slog.Any("error", err))
		}
	})
}

// SQLiteHandle serves a read-only store and swaps to a fresh connection pool when the
// store file is replaced on disk.
type SQLiteHandle struct {
	path          string
	maxOpenConns  int
	requiredTable string
	logger        *slog.Logger

	mu      sync.Mutex
	current atomic.Pointer[sqlitePool]
}

// NewSQLiteHandle opens the store at opts.Path.
func NewSQLiteHandle(ctx context.Context, opts SQLiteOptions) (*SQLiteHandle, error) {
	path, err := filepath.Abs(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("platform/db: resolve path: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &SQLiteHandle{
		path:          path,
		maxOpenConns:  opts.MaxOpenConns,
		requiredTable: opts.RequiredTable,
		logger:        logger,
	}
	conn, err := h.open(ctx)
	if err != nil {
		return nil, err
	}
	h.current.Store(&sqlitePool{db: conn, logger: logger})
	return h, nil
}

// Path returns the absolute store path.
func (h *SQLiteHandle) Path() string {
	return h.path
}

// Acquire borrows the pool currently serving queries. The pool stays open until release
// is called, even if a newer store is swapped in meanwhile.
func (h *SQLiteHandle) Acquire() (*sql.DB, func(), error) {
	for {
		p := h.current.Load()
		if p == nil {
			return nil, nil, ErrStoreClosed
		}
		p.refs.Add(1)
		if h.current.Load() == p {
			return p.db, p.release, nil
		}
		// Swapped between Load and Add; the pool may already be retiring.
		p.release()
	}
}

// Reopen opens the store again and swaps it in. On failure the previous pool keeps serving.
func (h *SQLiteHandle) Reopen(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.current.Load() == nil {
		return ErrStoreClosed
	}
	conn, err := h.open(ctx)
	if err != nil {
		return err
	}
	if old := h.current.Swap(&sqlitePool{db: conn, logger: h.logger}); old != nil {
		old.retire()
	}
	h.logger.Info("store reopened", slog.String("path", h.path))
	return nil
}

// Watch blocks until ctx is cancelled, reopening the store whenever a new file is moved
// into place. onSwap runs after every successful swap.
func (h *SQLiteHandle) Watch(ctx context.Context, onSwap func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("platform/db: new watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(h.path)); err != nil {
		return fmt.Errorf("platform/db: watch %s: %w", filepath.Dir(h.path), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != h.path || !event.Has(fsnotify.Create) {
				continue
			}
			if err := h.Reopen(ctx); err != nil {
				h.logger.Error("reopen store", slog.String("path", h.path), slog.Any("error", err))
				continue
			}
			if onSwap != nil {
				onSwap()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			h.logger.Warn("store watcher", slog.Any("error", err))
		}
	}
}

// Close retires the current pool; it is closed once outstanding borrowers release it.
func (h *SQLiteHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if p := h.current.Swap(nil); p != nil {
		p.retire()
	}
	return nil
}

func (h *SQLiteHandle) open(ctx context.Context) (*sql.DB, error) {
	conn, err := OpenSQLiteReader(ctx, h.path, h.maxOpenConns)
	if err != nil {
		return nil, err
	}
	if h.requiredTable == "" {
		return conn, nil
	}
	var count int
	err = conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ? COLLATE NOCASE`,
		h.requiredTable,
	).Scan(&count)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("platform/db: inspect schema: %w", err)
	}
	if count == 0 {
		_ = conn.Close()
		return nil, fmt.Errorf("platform/db: table %s missing in %s", h.requiredTable, h.path)
	}
	return conn, nil
}
