//go:build duckdb || all_adapters

package duckdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoader_CSVFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "customers.csv")
	require.NoError(t, os.WriteFile(path, []byte("customer_id,email\n1,a@x.io\n2,b@x.io\n"), 0644))

	cfg, err := FromMap(map[string]any{"files": []any{path}})
	require.NoError(t, err)

	loader, err := NewLoader(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer loader.Close()

	tables, err := loader.LoadTables(context.Background())
	require.NoError(t, err)
	require.Len(t, tables, 1)

	assert.Equal(t, "customers", tables[0].Name())
	assert.Equal(t, []string{"customer_id", "email"}, tables[0].Columns())
	assert.Equal(t, 2, tables[0].RowCount())

	emails, err := tables[0].Values("email")
	require.NoError(t, err)
	assert.Equal(t, "a@x.io", *emails[0])
}
