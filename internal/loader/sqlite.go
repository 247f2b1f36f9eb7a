package loader

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/odyssey-erp/quadro/internal/platform/db"
	"github.com/odyssey-erp/quadro/internal/registry"
	"github.com/odyssey-erp/quadro/internal/shared"
)

// sqliteTarget writes a fresh file beside the store and renames it over the store once
// the build commits. A store that is being served is never written in place.
type sqliteTarget struct {
	path    string
	staging string
	conn    *sql.DB
	lock    *flock.Flock
}

// StagingPath names the hidden file a build of path is written to before it is moved
// into place.
func StagingPath(path string) string {
	return filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+uuid.NewString()+".building")
}

// openSQLiteTarget takes the store lock and opens a staging file for writing.
func openSQLiteTarget(ctx context.Context, path string) (*sqliteTarget, error) {
	lock, err := lockStore(path)
	if err != nil {
		return nil, err
	}
	staging := StagingPath(path)
	conn, err := db.OpenSQLiteWriter(ctx, staging)
	if err != nil {
		_ = lock.Unlock()
		_ = os.Remove(staging)
		return nil, fmt.Errorf("loader: open store %s: %w: %w", path, shared.ErrStorage, err)
	}
	return &sqliteTarget{path: path, staging: staging, conn: conn, lock: lock}, nil
}

func (t *sqliteTarget) Rebuild(ctx context.Context, rows RowSource) (int64, error) {
	var inserted int64
	err := db.WithSQLTx(ctx, t.conn, func(tx *sql.Tx) error {
		for _, ddl := range []string{registry.DropTableSQL, registry.CreateTableSQL} {
			if _, err := tx.ExecContext(ctx, ddl); err != nil {
				return fmt.Errorf("loader: reset table: %w: %w", shared.ErrStorage, err)
			}
		}

		stmt, err := tx.PrepareContext(ctx, registry.InsertSQL(func(int) string { return "?" }))
		if err != nil {
			return fmt.Errorf("loader: prepare insert: %w: %w", shared.ErrStorage, err)
		}
		defer stmt.Close()

		args := make([]any, registry.ColumnCount)
		for {
			row, err := rows.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return err
			}
			for i, value := range row {
				args[i] = value
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("loader: insert line %d: %w: %w", rows.Line(), shared.ErrStorage, err)
			}
			inserted++
		}

		for _, ddl := range registry.CreateIndexSQL {
			if _, err := tx.ExecContext(ctx, ddl); err != nil {
				return fmt.Errorf("loader: create index: %w: %w", shared.ErrStorage, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, classify(err)
	}
	if err := t.publish(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// publish closes the staging file and renames it over the store path.
func (t *sqliteTarget) publish() error {
	err := t.conn.Close()
	t.conn = nil
	if err != nil {
		return fmt.Errorf("loader: close staging store: %w: %w", shared.ErrStorage, err)
	}
	if err := os.Rename(t.staging, t.path); err != nil {
		return fmt.Errorf("loader: replace %s: %w: %w", t.path, shared.ErrStorage, err)
	}
	return nil
}

func (t *sqliteTarget) Close() error {
	var err error
	if t.conn != nil {
		err = t.conn.Close()
	}
	if rmErr := os.Remove(t.staging); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
		err = rmErr
	}
	_ = os.Remove(t.staging + "-journal")
	if unlockErr := t.lock.Unlock(); unlockErr != nil && err == nil {
		err = unlockErr
	}
	return err
}
