package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-relate/pkg/models"
)

func TestColumnProfiler_InferredType(t *testing.T) {
	p := NewColumnProfiler(ProfilerOptions{}, zap.NewNop())

	tests := []struct {
		name     string
		values   []string
		expected models.InferredType
	}{
		{"integers", []string{"1", "2", "30"}, models.InferredTypeNumeric},
		{"decimals and negatives", []string{"1.5", "-2", "3e2"}, models.InferredTypeNumeric},
		{"zero and one are numeric before boolean", []string{"0", "1", "1"}, models.InferredTypeNumeric},
		{"dates", []string{"2024-01-02", "2024-02-03"}, models.InferredTypeDatetime},
		{"timestamps", []string{"2024-01-02T10:00:00Z", "2024-01-02 11:30:00"}, models.InferredTypeDatetime},
		{"booleans", []string{"true", "FALSE", "yes", "no"}, models.InferredTypeBoolean},
		{"text", []string{"rex", "fido"}, models.InferredTypeText},
		{"mixed numeric and text", []string{"1", "two"}, models.InferredTypeText},
		{"nulls ignored", []string{"1", null, "2"}, models.InferredTypeNumeric},
		{"all null", []string{null, null}, models.InferredTypeText},
		{"NaN is not a number", []string{"NaN", "1"}, models.InferredTypeText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := p.Profile("t", "c", ptrs(tt.values...))
			assert.Equal(t, tt.expected, profile.InferredType)
		})
	}
}

func TestColumnProfiler_Counts(t *testing.T) {
	p := NewColumnProfiler(ProfilerOptions{}, zap.NewNop())

	profile := p.Profile("pets", "patient_id", ptrs("1", "1", "2", null, "3", "4", "1.0", " 2 "))

	assert.Equal(t, "pets", profile.Table)
	assert.Equal(t, "patient_id", profile.Column)
	assert.Equal(t, 8, profile.TotalCount)
	assert.Equal(t, 1, profile.NullCount)
	assert.Equal(t, 4, profile.UniqueCount, "1, 1.0 and padded 2 collapse to canonical values")
	assert.Equal(t, []string{"1", "2", "3", "4"}, profile.SampleValues)
	assert.InDelta(t, 4.0/7.0, profile.UniquenessRatio(), 1e-9)
	assert.False(t, profile.IsPrimaryKeyEligible())

	require.NotNil(t, profile.NumericStats)
	assert.Equal(t, 1.0, profile.NumericStats.Min)
	assert.Equal(t, 4.0, profile.NumericStats.Max)
	assert.InDelta(t, 14.0/7.0, profile.NumericStats.Mean, 1e-9)
}

func TestColumnProfiler_EmptyColumn(t *testing.T) {
	p := NewColumnProfiler(ProfilerOptions{}, zap.NewNop())

	profile := p.Profile("t", "c", ptrs(null, null))

	assert.True(t, profile.IsEmpty())
	assert.Equal(t, 0, profile.UniqueCount)
	assert.Equal(t, 0.0, profile.UniquenessRatio())
	assert.Empty(t, profile.PatternHistogram)
	assert.Nil(t, profile.NumericStats)
	assert.Equal(t, models.PatternKind(""), profile.DominantPattern())
}

func TestColumnProfiler_PatternHistogram(t *testing.T) {
	p := NewColumnProfiler(ProfilerOptions{}, zap.NewNop())

	tests := []struct {
		name     string
		value    string
		expected models.PatternKind
	}{
		{"digits", "12345", models.PatternNumeric},
		{"uuid", "3f2504e0-4f89-11d3-9a0c-0305e82c3301", models.PatternUUID},
		{"email", "vet@clinic.org", models.PatternEmail},
		{"date", "2024-05-01", models.PatternDate},
		{"phone", "+1(555)123-4567", models.PatternPhone},
		{"short digits with dash are not a phone", "12-34", models.PatternAlphanumeric},
		{"word", "rex", models.PatternAlphanumeric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := p.Profile("t", "c", ptrs(tt.value))
			assert.Equal(t, map[models.PatternKind]int{tt.expected: 1}, profile.PatternHistogram)
			assert.Equal(t, tt.expected, profile.DominantPattern())
		})
	}
}

func TestColumnProfiler_Options(t *testing.T) {
	t.Run("pattern sample size bounds the histogram", func(t *testing.T) {
		p := NewColumnProfiler(ProfilerOptions{PatternSampleSize: 3}, zap.NewNop())
		profile := p.Profile("t", "c", ptrs("1", "2", "3", "4", "5"))
		assert.Equal(t, 3, profile.PatternHistogram[models.PatternNumeric])
	})

	t.Run("sample value count", func(t *testing.T) {
		p := NewColumnProfiler(ProfilerOptions{SampleValues: 2}, zap.NewNop())
		profile := p.Profile("t", "c", ptrs("a", "a", "b", "c"))
		assert.Equal(t, []string{"a", "b"}, profile.SampleValues)
	})

	t.Run("custom rules are tried in order", func(t *testing.T) {
		rules := []PatternRule{
			{Kind: models.PatternPhone, Match: func(v string) bool { return strings.HasPrefix(v, "tel:") }},
			{Kind: models.PatternNumeric, Match: func(v string) bool { return v != "" }},
		}
		p := NewColumnProfiler(ProfilerOptions{Rules: rules}, zap.NewNop())
		profile := p.Profile("t", "c", ptrs("tel:123", "abc"))
		assert.Equal(t, 1, profile.PatternHistogram[models.PatternPhone])
		assert.Equal(t, 1, profile.PatternHistogram[models.PatternNumeric])
	})
}

func TestColumnProfiler_ProfileTable(t *testing.T) {
	p := NewColumnProfiler(ProfilerOptions{}, zap.NewNop())
	table := memTable(t, "patients",
		[]string{"id", "name"},
		[]string{"1", "2", "3"},
		[]string{"ana", "bo", null},
	)

	profiles, err := p.ProfileTable(context.Background(), table)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "id", profiles[0].Column)
	assert.True(t, profiles[0].IsPrimaryKeyEligible())
	assert.Equal(t, "name", profiles[1].Column)
	assert.Equal(t, 1, profiles[1].NullCount)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.ProfileTable(ctx, table)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCanonicalValue(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1", "1"},
		{"1.0", "1"},
		{"1e3", "1000"},
		{" 2.50 ", "2.5"},
		{"-0.125", "-0.125"},
		{"01234", "01234"},
		{"1234567890123456781", "1234567890123456781"},
		{"12345678901234567890123", "12345678901234567890123"},
		{" abc ", "abc"},
		{"NaN", "NaN"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalValue(tt.in))
		})
	}

	set := ValueSet(ptrs("1", "1.0", null, "x"))
	assert.Len(t, set, 2)
	assert.Contains(t, set, "1")
	assert.Contains(t, set, "x")
}

func TestValueSet_KeepsDistinctIntegers(t *testing.T) {
	assert.Len(t, ValueSet(ptrs("01234", "1234")), 2)
	assert.Len(t, ValueSet(ptrs("1234567890123456781", "1234567890123456782", "1234567890123456783")), 3)
}

func TestColumnProfiler_LargeIntegerIDs(t *testing.T) {
	p := NewColumnProfiler(ProfilerOptions{}, zap.NewNop())
	values := ptrs("1234567890123456781", "1234567890123456782", "1234567890123456783")

	profile := p.Profile("orders", "id", values)

	assert.Equal(t, 3, profile.UniqueCount)
	assert.Equal(t, 3, profile.TotalCount)
	assert.True(t, profile.IsPrimaryKeyEligible())
	assert.Equal(t, models.InferredTypeNumeric, profile.InferredType)
}
