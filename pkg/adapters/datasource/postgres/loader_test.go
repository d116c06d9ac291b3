//go:build integration && (postgres || all_adapters)

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-relate/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-relate/pkg/testhelpers"
)

func TestLoader_LoadTables(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	schema := "loader_" + uuid.New().String()[:8]
	_, err := testDB.Pool.Exec(ctx, fmt.Sprintf(`
		CREATE SCHEMA %[1]s;
		CREATE TABLE %[1]s.patients (id integer PRIMARY KEY, name text);
		CREATE TABLE %[1]s.pets (id integer PRIMARY KEY, patient_id integer, born date);
		INSERT INTO %[1]s.patients VALUES (1, 'Ann'), (2, NULL);
		INSERT INTO %[1]s.pets VALUES (101, 1, '2020-01-02'), (102, 1, NULL), (103, 2, NULL);
	`, schema))
	require.NoError(t, err)
	t.Cleanup(func() {
		testDB.Pool.Exec(context.Background(), "DROP SCHEMA "+schema+" CASCADE")
	})

	factory := datasource.NewLoaderFactory(zap.NewNop())
	tables, err := factory.LoadTables(ctx, "postgres", map[string]any{
		"url":    testDB.ConnStr,
		"schema": schema,
	})
	require.NoError(t, err)
	require.Len(t, tables, 2)

	assert.Equal(t, "patients", tables[0].Name())
	assert.Equal(t, "pets", tables[1].Name())
	assert.Equal(t, []string{"id", "patient_id", "born"}, tables[1].Columns())
	assert.Equal(t, 3, tables[1].RowCount())

	names, err := tables[0].Values("name")
	require.NoError(t, err)
	require.Len(t, names, 2)
	assert.Nil(t, names[1])

	born, err := tables[1].Values("born")
	require.NoError(t, err)
	require.NotNil(t, born[0])
	assert.Equal(t, "2020-01-02", *born[0])
}

func TestLoader_RowLimitAndFilter(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	ctx := context.Background()

	schema := "limit_" + uuid.New().String()[:8]
	_, err := testDB.Pool.Exec(ctx, fmt.Sprintf(`
		CREATE SCHEMA %[1]s;
		CREATE TABLE %[1]s.a (x integer);
		CREATE TABLE %[1]s.b (y integer);
		INSERT INTO %[1]s.a SELECT generate_series(1, 50);
	`, schema))
	require.NoError(t, err)
	t.Cleanup(func() {
		testDB.Pool.Exec(context.Background(), "DROP SCHEMA "+schema+" CASCADE")
	})

	cfg := &Config{URL: testDB.ConnStr, Schema: schema}
	cfg.RowLimit = 10
	cfg.Tables = []string{"a"}

	loader, err := NewLoader(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer loader.Close()

	tables, err := loader.LoadTables(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, 10, tables[0].RowCount())
}
