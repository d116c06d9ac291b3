package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-relate/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-relate/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-relate/pkg/models"
)

// mockLoaderFactory serves in-memory tables for the "csv" source type.
type mockLoaderFactory struct {
	tables     []datasource.Table
	err        error
	lastConfig map[string]any
}

func (m *mockLoaderFactory) NewLoader(ctx context.Context, sourceType string, config map[string]any) (datasource.TableLoader, error) {
	return nil, errors.New("not used")
}

func (m *mockLoaderFactory) LoadTables(ctx context.Context, sourceType string, config map[string]any) ([]datasource.Table, error) {
	m.lastConfig = config
	if sourceType != "csv" {
		return nil, apperrors.ErrUnsupportedSource
	}
	return m.tables, m.err
}

func (m *mockLoaderFactory) ListTypes() []datasource.LoaderInfo {
	return []datasource.LoaderInfo{
		{Type: "csv", DisplayName: "CSV files"},
		{Type: "postgres", DisplayName: "PostgreSQL"},
	}
}

// mockRunRepository keeps saved runs in memory.
type mockRunRepository struct {
	saved map[uuid.UUID]*models.AnalysisResult
	order []uuid.UUID
}

func newMockRunRepository() *mockRunRepository {
	return &mockRunRepository{saved: map[uuid.UUID]*models.AnalysisResult{}}
}

func (m *mockRunRepository) Save(ctx context.Context, sourceType string, result *models.AnalysisResult) error {
	m.saved[result.RunID] = result
	m.order = append(m.order, result.RunID)
	return nil
}

func (m *mockRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AnalysisResult, error) {
	if r, ok := m.saved[id]; ok {
		return r, nil
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockRunRepository) List(ctx context.Context, limit int) ([]*models.AnalysisRun, error) {
	var runs []*models.AnalysisRun
	for i := len(m.order) - 1; i >= 0 && len(runs) < limit; i-- {
		r := m.saved[m.order[i]]
		runs = append(runs, &models.AnalysisRun{ID: r.RunID, SourceType: "csv", Tables: r.Tables, Summary: r.Summary})
	}
	return runs, nil
}

func (m *mockRunRepository) Delete(ctx context.Context, id uuid.UUID) error {
	delete(m.saved, id)
	return nil
}

func ptrs(values ...string) []*string {
	out := make([]*string, len(values))
	for i := range values {
		if values[i] != "" {
			out[i] = &values[i]
		}
	}
	return out
}

// clinicTables is a small clinic: pets belong to patients, a table without a key.
func clinicTables(t *testing.T) []datasource.Table {
	t.Helper()
	patients, err := datasource.NewMemoryTableFromColumns("patients", []string{"id", "name"}, map[string][]*string{
		"id":   ptrs("1", "2", "3", "4", "5"),
		"name": ptrs("ana", "bo", "cy", "di", "ed"),
	})
	require.NoError(t, err)
	pets, err := datasource.NewMemoryTableFromColumns("pets", []string{"id", "patient_id", "species"}, map[string][]*string{
		"id":         ptrs("101", "102", "103", "104", "105"),
		"patient_id": ptrs("1", "1", "2", "3", "4"),
		"species":    ptrs("dog", "dog", "cat", "dog", "cat"),
	})
	require.NoError(t, err)
	notes, err := datasource.NewMemoryTableFromColumns("notes", []string{"body"}, map[string][]*string{
		"body": ptrs("hello", "hello", ""),
	})
	require.NoError(t, err)
	return []datasource.Table{patients, pets, notes}
}
