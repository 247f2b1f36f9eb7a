package loader

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/quadro/internal/platform/db"
	"github.com/odyssey-erp/quadro/internal/registry"
	"github.com/odyssey-erp/quadro/internal/shared"
)

// DefaultBatchSize is the number of inserts queued per round trip to Postgres.
const DefaultBatchSize = 1000

// integerColumns are cast server side; empty values become NULL.
var integerColumns = map[string]bool{
	"in_cpf_cnpj":           true,
	"cd_qualificacao_socio": true,
}

var rebuildLockKey = func() int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("quadro:" + registry.TableName + ":rebuild"))
	return int64(h.Sum64())
}()

type postgresTarget struct {
	pool      *pgxpool.Pool
	ownsPool  bool
	batchSize int
}

func openPostgresTarget(ctx context.Context, dsn string, batchSize int) (*postgresTarget, error) {
	pool, err := db.New(ctx, dsn, 2)
	if err != nil {
		return nil, fmt.Errorf("loader: open store: %w: %w", shared.ErrStorage, err)
	}
	return newPostgresTarget(pool, true, batchSize), nil
}

func newPostgresTarget(pool *pgxpool.Pool, ownsPool bool, batchSize int) *postgresTarget {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &postgresTarget{pool: pool, ownsPool: ownsPool, batchSize: batchSize}
}

func postgresInsertSQL() string {
	return registry.InsertSQL(func(i int) string {
		if integerColumns[registry.Columns[i-1]] {
			return fmt.Sprintf("NULLIF($%d, '')::integer", i)
		}
		return fmt.Sprintf("$%d", i)
	})
}

func (t *postgresTarget) Rebuild(ctx context.Context, rows RowSource) (int64, error) {
	var inserted int64
	insert := postgresInsertSQL()
	err := db.WithTx(ctx, t.pool, func(tx pgx.Tx) error {
		var acquired bool
		if err := tx.QueryRow(ctx, `SELECT pg_try_advisory_xact_lock($1)`, rebuildLockKey).Scan(&acquired); err != nil {
			return fmt.Errorf("loader: advisory lock: %w: %w", shared.ErrStorage, err)
		}
		if !acquired {
			return fmt.Errorf("loader: %s: %w", registry.TableName, shared.ErrBusy)
		}

		for _, ddl := range []string{registry.DropTableSQL, registry.CreateTableSQL} {
			if _, err := tx.Exec(ctx, ddl); err != nil {
				return fmt.Errorf("loader: reset table: %w: %w", shared.ErrStorage, err)
			}
		}

		batch := &pgx.Batch{}
		flush := func() error {
			if batch.Len() == 0 {
				return nil
			}
			results := tx.SendBatch(ctx, batch)
			for i := 0; i < batch.Len(); i++ {
				if _, err := results.Exec(); err != nil {
					_ = results.Close()
					return insertError(rows.Line(), err)
				}
			}
			if err := results.Close(); err != nil {
				return insertError(rows.Line(), err)
			}
			inserted += int64(batch.Len())
			batch = &pgx.Batch{}
			return nil
		}

		for {
			row, err := rows.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return err
			}
			args := make([]any, len(row))
			for i, value := range row {
				args[i] = value
			}
			batch.Queue(insert, args...)
			if batch.Len() >= t.batchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		if err := flush(); err != nil {
			return err
		}

		for _, ddl := range registry.CreateIndexSQL {
			if _, err := tx.Exec(ctx, ddl); err != nil {
				return fmt.Errorf("loader: create index: %w: %w", shared.ErrStorage, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, classify(err)
	}
	return inserted, nil
}

func (t *postgresTarget) Close() error {
	if t.ownsPool {
		t.pool.Close()
	}
	return nil
}

// insertError maps data exceptions (SQLSTATE class 22, e.g. a non-numeric value for an
// integer column) to ErrSchema and everything else to ErrStorage.
func insertError(line int, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "22") {
		return fmt.Errorf("loader: insert batch ending line %d: %w: %w", line, shared.ErrSchema, err)
	}
	return fmt.Errorf("loader: insert batch ending line %d: %w: %w", line, shared.ErrStorage, err)
}
