package registry

import (
	"context"
	"database/sql"
)

const (
	sqliteOperatorsByCompany = `SELECT nm_socio FROM ` + TableName + ` WHERE nm_fantasia = ? LIMIT ? OFFSET ?`

	sqliteCompaniesByOperator = `SELECT nm_fantasia FROM ` + TableName + ` WHERE nm_socio = ? LIMIT ? OFFSET ?`

	sqliteCompaniesSharingOperators = `WITH seed AS (
	SELECT nm_socio FROM ` + TableName + ` WHERE nm_fantasia = ?
)
SELECT DISTINCT ` + TableName + `.nm_fantasia
FROM ` + TableName + `
INNER JOIN seed ON ` + TableName + `.nm_socio = seed.nm_socio
LIMIT ? OFFSET ?`
)

// SQLiteSource lends out the pool currently serving the store until release is called.
type SQLiteSource interface {
	Acquire() (conn *sql.DB, release func(), err error)
}

type sqliteRepository struct {
	source SQLiteSource
}

// NewSQLiteRepository builds a Repository over a SQLite store.
func NewSQLiteRepository(source SQLiteSource) Repository {
	return &sqliteRepository{source: source}
}

func (r *sqliteRepository) OperatorsByCompany(ctx context.Context, company string, page Page) ([]string, error) {
	names, err := r.names(ctx, sqliteOperatorsByCompany, company, page)
	if err != nil {
		return nil, storageError("operators by company", err)
	}
	return names, nil
}

func (r *sqliteRepository) CompaniesByOperator(ctx context.Context, operator string, page Page) ([]string, error) {
	names, err := r.names(ctx, sqliteCompaniesByOperator, operator, page)
	if err != nil {
		return nil, storageError("companies by operator", err)
	}
	return names, nil
}

func (r *sqliteRepository) CompaniesSharingOperators(ctx context.Context, company string, page Page) ([]string, error) {
	names, err := r.names(ctx, sqliteCompaniesSharingOperators, company, page)
	if err != nil {
		return nil, storageError("companies sharing operators", err)
	}
	return names, nil
}

func (r *sqliteRepository) names(ctx context.Context, query, key string, page Page) ([]string, error) {
	conn, release, err := r.source.Acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := conn.QueryContext(ctx, query, key, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name sql.NullString
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name.String)
	}
	return names, rows.Err()
}
