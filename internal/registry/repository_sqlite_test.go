package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/quadro/internal/shared"
)

func TestSQLiteRepositoryFixtureRoundTrip(t *testing.T) {
	repo := NewSQLiteRepository(newSQLiteStore(t, fixture...))
	ctx := context.Background()

	companies, err := repo.CompaniesByOperator(ctx, "Alice", DefaultPage())
	require.NoError(t, err)
	require.Equal(t, []string{"Acme", "Beta"}, companies)

	related, err := repo.CompaniesSharingOperators(ctx, "Acme", DefaultPage())
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"Acme", "Beta"}, related)

	operators, err := repo.OperatorsByCompany(ctx, "Acme", DefaultPage())
	require.NoError(t, err)
	require.Equal(t, []string{"Alice"}, operators)
}

func TestSQLiteRepositoryPagination(t *testing.T) {
	repo := NewSQLiteRepository(newSQLiteStore(t, fixture...))

	names, err := repo.CompaniesByOperator(context.Background(), "Alice", Page{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Equal(t, []string{"Beta"}, names)

	names, err = repo.CompaniesByOperator(context.Background(), "Alice", Page{Limit: 0, Offset: 0})
	require.NoError(t, err)
	require.NotNil(t, names)
	require.Empty(t, names)
}

func TestSQLiteRepositoryKeepsDuplicates(t *testing.T) {
	repo := NewSQLiteRepository(newSQLiteStore(t,
		edge("Acme", "Alice"),
		edge("Acme", "Alice"),
		edge("Acme", "Bob"),
	))

	operators, err := repo.OperatorsByCompany(context.Background(), "Acme", DefaultPage())
	require.NoError(t, err)
	require.Equal(t, []string{"Alice", "Alice", "Bob"}, operators)

	companies, err := repo.CompaniesByOperator(context.Background(), "Alice", DefaultPage())
	require.NoError(t, err)
	require.Equal(t, []string{"Acme", "Acme"}, companies)
}

func TestSQLiteRepositorySharingIsDistinctAndOneHop(t *testing.T) {
	repo := NewSQLiteRepository(newSQLiteStore(t,
		edge("Acme", "Alice"),
		edge("Acme", "Bob"),
		edge("Beta", "Alice"),
		edge("Beta", "Bob"),
		edge("Gamma", "Bob"),
		edge("Gamma", "Carol"),
		edge("Delta", "Carol"),
	))

	names, err := repo.CompaniesSharingOperators(context.Background(), "Acme", DefaultPage())
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"Acme", "Beta", "Gamma"}, names)
}

func TestSQLiteRepositoryIsCaseSensitive(t *testing.T) {
	repo := NewSQLiteRepository(newSQLiteStore(t, fixture...))

	names, err := repo.OperatorsByCompany(context.Background(), "acme", DefaultPage())
	require.NoError(t, err)
	require.Equal(t, []string{}, names)
}

func TestSQLiteRepositoryUnknownKeyReturnsEmpty(t *testing.T) {
	repo := NewSQLiteRepository(newSQLiteStore(t, fixture...))

	names, err := repo.CompaniesSharingOperators(context.Background(), "Nope", DefaultPage())
	require.NoError(t, err)
	require.Equal(t, []string{}, names)
}

func TestSQLiteRepositoryClosedStoreIsStorageError(t *testing.T) {
	handle := newSQLiteStore(t, fixture...)
	repo := NewSQLiteRepository(handle)
	require.NoError(t, handle.Close())

	_, err := repo.OperatorsByCompany(context.Background(), "Acme", DefaultPage())
	require.Error(t, err)
	require.True(t, errors.Is(err, shared.ErrStorage))
}
