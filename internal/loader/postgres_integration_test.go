//go:build integration

package loader_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/odyssey-erp/quadro/internal/loader"
	"github.com/odyssey-erp/quadro/internal/platform/db"
	"github.com/odyssey-erp/quadro/internal/registry"
	"github.com/odyssey-erp/quadro/internal/shared"
)

const postgresImage = "postgres:16-alpine"

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	ctr, err := postgres.Run(ctx,
		postgresImage,
		postgres.WithUsername("quadro"),
		postgres.WithPassword("quadro"),
		postgres.WithDatabase("quadro"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func writeTSV(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.csv")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func TestPostgresBuildAndLookups(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	source := writeTSV(t,
		strings.Join(registry.Columns, "\t"),
		"1\tAcme\tSP\t1\t9\t1\tOwner\tAlice",
		"2\tBeta\tRJ\t1\t9\t1\tOwner\tAlice",
		"3\tGamma\tMG\t\t7\t\tOwner\tCarol",
	)
	l := loader.New(loader.Options{Driver: loader.DriverPostgres, BatchSize: 2})
	result, err := l.Build(ctx, source, dsn)
	require.NoError(t, err)
	require.Equal(t, int64(3), result.Rows)

	pool, err := db.New(ctx, dsn, 4)
	require.NoError(t, err)
	defer pool.Close()
	repo := registry.NewPostgresRepository(pool)

	names, err := repo.CompaniesByOperator(ctx, "Alice", registry.DefaultPage())
	require.NoError(t, err)
	require.Equal(t, []string{"Acme", "Beta"}, names)

	names, err = repo.CompaniesByOperator(ctx, "Alice", registry.Page{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Equal(t, []string{"Beta"}, names)

	names, err = repo.CompaniesSharingOperators(ctx, "Acme", registry.DefaultPage())
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"Acme", "Beta"}, names)

	names, err = repo.OperatorsByCompany(ctx, "Nobody", registry.DefaultPage())
	require.NoError(t, err)
	require.Equal(t, []string{}, names)

	var nulls int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM brazil WHERE in_cpf_cnpj IS NULL`).Scan(&nulls))
	require.Equal(t, 1, nulls)
}

func TestPostgresBuildRejectsNonNumericCodesAndKeepsTable(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()
	l := loader.New(loader.Options{Driver: loader.DriverPostgres})

	_, err := l.Build(ctx, writeTSV(t, "h", "1\tAcme\tSP\t1\t9\t1\tOwner\tAlice"), dsn)
	require.NoError(t, err)

	_, err = l.Build(ctx, writeTSV(t, "h", "2\tBeta\tRJ\tX\t9\t1\tOwner\tBob"), dsn)
	require.ErrorIs(t, err, shared.ErrSchema)

	pool, err := db.New(ctx, dsn, 1)
	require.NoError(t, err)
	defer pool.Close()
	names, err := registry.NewPostgresRepository(pool).CompaniesByOperator(ctx, "Alice", registry.DefaultPage())
	require.NoError(t, err)
	require.Equal(t, []string{"Acme"}, names)
}
