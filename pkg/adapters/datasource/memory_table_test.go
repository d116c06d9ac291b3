package datasource

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-relate/pkg/apperrors"
)

func s(v string) *string { return &v }

func TestNewMemoryTable(t *testing.T) {
	table, err := NewMemoryTable("pets", []string{"id", "name"}, [][]*string{
		{s("1"), s("Rex")},
		{s("2"), nil},
	})
	require.NoError(t, err)

	assert.Equal(t, "pets", table.Name())
	assert.Equal(t, []string{"id", "name"}, table.Columns())
	assert.Equal(t, 2, table.RowCount())

	names, err := table.Values("name")
	require.NoError(t, err)
	assert.Equal(t, "Rex", *names[0])
	assert.Nil(t, names[1])
}

func TestNewMemoryTable_Errors(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		columns []string
		rows    [][]*string
	}{
		{"empty name", "", []string{"a"}, nil},
		{"duplicate column", "t", []string{"a", "a"}, nil},
		{"short row", "t", []string{"a", "b"}, [][]*string{{s("1")}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMemoryTable(tt.table, tt.columns, tt.rows)
			require.Error(t, err)
		})
	}
}

func TestMemoryTable_UnknownColumn(t *testing.T) {
	table, err := NewMemoryTable("t", []string{"a"}, nil)
	require.NoError(t, err)

	_, err = table.Values("missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrColumnNotFound))
}

func TestMemoryTable_ColumnsIsACopy(t *testing.T) {
	table, err := NewMemoryTable("t", []string{"a", "b"}, nil)
	require.NoError(t, err)

	cols := table.Columns()
	cols[0] = "changed"
	assert.Equal(t, []string{"a", "b"}, table.Columns())
}

func TestNewMemoryTableFromColumns(t *testing.T) {
	table, err := NewMemoryTableFromColumns("t", []string{"a", "b"}, map[string][]*string{
		"a": {s("1"), s("2")},
		"b": {nil, s("x")},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, table.RowCount())

	_, err = NewMemoryTableFromColumns("t", []string{"a", "b"}, map[string][]*string{
		"a": {s("1")},
		"b": {s("1"), s("2")},
	})
	require.Error(t, err)

	_, err = NewMemoryTableFromColumns("t", []string{"a"}, map[string][]*string{})
	assert.True(t, errors.Is(err, apperrors.ErrColumnNotFound))
}
