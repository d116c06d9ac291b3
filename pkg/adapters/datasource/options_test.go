package datasource

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsFromMap(t *testing.T) {
	tests := []struct {
		name    string
		config  map[string]any
		want    LoaderOptions
		wantErr bool
	}{
		{name: "empty", config: map[string]any{}, want: LoaderOptions{}},
		{name: "json number", config: map[string]any{"row_limit": float64(100)}, want: LoaderOptions{RowLimit: 100}},
		{name: "int", config: map[string]any{"row_limit": 5}, want: LoaderOptions{RowLimit: 5}},
		{name: "string", config: map[string]any{"row_limit": "7"}, want: LoaderOptions{RowLimit: 7}},
		{name: "tables any", config: map[string]any{"tables": []any{"a", "b"}}, want: LoaderOptions{Tables: []string{"a", "b"}}},
		{name: "tables strings", config: map[string]any{"tables": []string{"a"}}, want: LoaderOptions{Tables: []string{"a"}}},
		{name: "negative", config: map[string]any{"row_limit": -1}, wantErr: true},
		{name: "bad string", config: map[string]any{"row_limit": "lots"}, wantErr: true},
		{name: "bad table entry", config: map[string]any{"tables": []any{1}}, wantErr: true},
		{name: "bad tables type", config: map[string]any{"tables": "a,b"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := OptionsFromMap(tt.config)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoaderOptions_Wants(t *testing.T) {
	assert.True(t, LoaderOptions{}.Wants("anything"))
	assert.True(t, LoaderOptions{Tables: []string{"a"}}.Wants("a"))
	assert.False(t, LoaderOptions{Tables: []string{"a"}}.Wants("b"))
}

func TestFormatValue(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		want *string
	}{
		{"nil", nil, nil},
		{"string", "abc", s("abc")},
		{"bytes", []byte("xyz"), s("xyz")},
		{"int64", int64(42), s("42")},
		{"float", 1.5, s("1.5")},
		{"whole float", float64(3), s("3")},
		{"bool", true, s("true")},
		{"time", ts, s("2024-03-01T12:00:00Z")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatValue(tt.in))
		})
	}
}
