package registry

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgOperatorsByCompany = `SELECT nm_socio FROM ` + TableName + ` WHERE nm_fantasia = $1 LIMIT $2 OFFSET $3`

	pgCompaniesByOperator = `SELECT nm_fantasia FROM ` + TableName + ` WHERE nm_socio = $1 LIMIT $2 OFFSET $3`

	pgCompaniesSharingOperators = `WITH seed AS (
	SELECT nm_socio FROM ` + TableName + ` WHERE nm_fantasia = $1
)
SELECT DISTINCT ` + TableName + `.nm_fantasia
FROM ` + TableName + `
INNER JOIN seed ON ` + TableName + `.nm_socio = seed.nm_socio
LIMIT $2 OFFSET $3`
)

type postgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository builds a Repository over a Postgres table.
func NewPostgresRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) OperatorsByCompany(ctx context.Context, company string, page Page) ([]string, error) {
	names, err := r.names(ctx, pgOperatorsByCompany, company, page)
	if err != nil {
		return nil, storageError("operators by company", err)
	}
	return names, nil
}

func (r *postgresRepository) CompaniesByOperator(ctx context.Context, operator string, page Page) ([]string, error) {
	names, err := r.names(ctx, pgCompaniesByOperator, operator, page)
	if err != nil {
		return nil, storageError("companies by operator", err)
	}
	return names, nil
}

func (r *postgresRepository) CompaniesSharingOperators(ctx context.Context, company string, page Page) ([]string, error) {
	names, err := r.names(ctx, pgCompaniesSharingOperators, company, page)
	if err != nil {
		return nil, storageError("companies sharing operators", err)
	}
	return names, nil
}

func (r *postgresRepository) names(ctx context.Context, query, key string, page Page) ([]string, error) {
	rows, err := r.pool.Query(ctx, query, key, int64(page.Limit), int64(page.Offset))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name pgtype.Text
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name.String)
	}
	return names, rows.Err()
}
