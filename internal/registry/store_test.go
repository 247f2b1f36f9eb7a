package registry

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/quadro/internal/platform/db"
)

// fixture is the two-row store used throughout the lookup tests.
var fixture = []Record{
	{TaxID: "1", CompanyName: "Acme", State: "SP", PersonType: 1, OperatorTaxID: "9", QualificationCode: 1, QualificationDesc: "Owner", OperatorName: "Alice"},
	{TaxID: "2", CompanyName: "Beta", State: "RJ", PersonType: 1, OperatorTaxID: "9", QualificationCode: 1, QualificationDesc: "Owner", OperatorName: "Alice"},
}

// newSQLiteStore writes records into a fresh store file and opens it read-only.
func newSQLiteStore(t *testing.T, records ...Record) *db.SQLiteHandle {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "database.db")

	writer, err := db.OpenSQLiteWriter(ctx, path)
	require.NoError(t, err)
	_, err = writer.ExecContext(ctx, CreateTableSQL)
	require.NoError(t, err)
	insert := InsertSQL(func(int) string { return "?" })
	for _, rec := range records {
		args := make([]any, 0, ColumnCount)
		for _, f := range rec.Fields() {
			args = append(args, f)
		}
		_, err = writer.ExecContext(ctx, insert, args...)
		require.NoError(t, err)
	}
	for _, stmt := range CreateIndexSQL {
		_, err = writer.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	handle, err := db.NewSQLiteHandle(ctx, db.SQLiteOptions{Path: path, MaxOpenConns: 2, RequiredTable: TableName})
	require.NoError(t, err)
	t.Cleanup(func() { _ = handle.Close() })
	return handle
}

func edge(company, operator string) Record {
	return Record{TaxID: "0", CompanyName: company, State: "SP", PersonType: 2, OperatorTaxID: "0", QualificationCode: 49, QualificationDesc: "Sócio-Administrador", OperatorName: operator}
}
