//go:build sqlite || all_adapters

package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-relate/pkg/adapters/datasource"
)

func createDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clinic.db")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE owners (id INTEGER PRIMARY KEY, name TEXT);
		CREATE TABLE pets (id INTEGER PRIMARY KEY, owner_id INTEGER, weight REAL);
		INSERT INTO owners VALUES (1, 'Ann'), (2, 'Bob');
		INSERT INTO pets VALUES (10, 1, 4.5), (11, 1, NULL), (12, 2, 30);
	`)
	require.NoError(t, err)
	return path
}

func TestLoader_LoadTables(t *testing.T) {
	path := createDB(t)

	factory := datasource.NewLoaderFactory(zap.NewNop())
	tables, err := factory.LoadTables(context.Background(), "sqlite", map[string]any{"path": path})
	require.NoError(t, err)
	require.Len(t, tables, 2)

	assert.Equal(t, "owners", tables[0].Name())
	assert.Equal(t, "pets", tables[1].Name())

	ownerIDs, err := tables[1].Values("owner_id")
	require.NoError(t, err)
	require.Len(t, ownerIDs, 3)
	assert.Equal(t, "1", *ownerIDs[0])

	weights, err := tables[1].Values("weight")
	require.NoError(t, err)
	assert.Equal(t, "4.5", *weights[0])
	assert.Nil(t, weights[1])
}

func TestLoader_RowLimit(t *testing.T) {
	path := createDB(t)

	cfg := &Config{Path: path}
	cfg.RowLimit = 1
	cfg.Tables = []string{"pets"}

	loader, err := NewLoader(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer loader.Close()

	tables, err := loader.LoadTables(context.Background())
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, 1, tables[0].RowCount())
}
