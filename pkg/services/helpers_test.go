package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-relate/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-relate/pkg/models"
)

// null marks a missing value in test columns.
const null = "\x00null"

func ptrs(values ...string) []*string {
	out := make([]*string, len(values))
	for i, v := range values {
		if v == null {
			continue
		}
		out[i] = &v
	}
	return out
}

// memTable builds a table from column-oriented test data.
func memTable(t *testing.T, name string, columns []string, values ...[]string) datasource.Table {
	t.Helper()
	require.Len(t, values, len(columns))
	data := make(map[string][]*string, len(columns))
	for i, col := range columns {
		data[col] = ptrs(values[i]...)
	}
	table, err := datasource.NewMemoryTableFromColumns(name, columns, data)
	require.NoError(t, err)
	return table
}

// input profiles a column for the scorer and direction tests.
func input(t *testing.T, table, column string, isPK bool, values ...string) ScoringInput {
	t.Helper()
	raw := ptrs(values...)
	profiler := NewColumnProfiler(ProfilerOptions{}, zap.NewNop())
	return ScoringInput{
		Profile: profiler.Profile(table, column, raw),
		Values:  ValueSet(raw),
		IsPK:    isPK,
	}
}

func candidate(srcTable, srcCol, tgtTable, tgtCol string, confidence float64) *models.RelationshipCandidate {
	return &models.RelationshipCandidate{
		SourceTable:  srcTable,
		SourceColumn: srcCol,
		TargetTable:  tgtTable,
		TargetColumn: tgtCol,
		Confidence:   confidence,
	}
}
