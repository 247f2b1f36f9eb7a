package main

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/quadro/internal/registry"
)

func TestGenerateWritesHeaderAndEightFieldRows(t *testing.T) {
	var buf bytes.Buffer
	rows, err := generate(&buf, options{Companies: 20, Operators: 10, PerCompany: 3, Seed: 7})
	require.NoError(t, err)
	require.Positive(t, rows)

	r := csv.NewReader(&buf)
	r.Comma = '\t'
	records, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, rows+1)
	require.Equal(t, registry.Columns, records[0])
	for _, rec := range records[1:] {
		require.Len(t, rec, registry.ColumnCount)
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	opts := options{Companies: 5, Operators: 5, PerCompany: 2, Seed: 42}
	var a, b bytes.Buffer
	_, err := generate(&a, opts)
	require.NoError(t, err)
	_, err = generate(&b, opts)
	require.NoError(t, err)
	require.Equal(t, a.String(), b.String())
}

func TestGenerateRejectsEmptyPools(t *testing.T) {
	_, err := generate(&bytes.Buffer{}, options{Companies: 1})
	require.Error(t, err)
}
