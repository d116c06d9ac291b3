package models

import (
	"slices"
)

// ============================================================================
// Inferred Types
// ============================================================================

// InferredType is the value type decided for a column from its observed data.
type InferredType string

const (
	InferredTypeNumeric  InferredType = "numeric"
	InferredTypeDatetime InferredType = "datetime"
	InferredTypeBoolean  InferredType = "boolean"
	InferredTypeText     InferredType = "text"
)

// ValidInferredTypes lists inferred types in detection priority order.
var ValidInferredTypes = []InferredType{
	InferredTypeNumeric,
	InferredTypeDatetime,
	InferredTypeBoolean,
	InferredTypeText,
}

// IsValidInferredType checks if the given type is valid.
func IsValidInferredType(t InferredType) bool {
	return slices.Contains(ValidInferredTypes, t)
}

// IsNumericFamily reports whether the type compares like a number.
func (t InferredType) IsNumericFamily() bool {
	return t == InferredTypeNumeric || t == InferredTypeBoolean
}

// IsTextFamily reports whether the type compares like a string.
func (t InferredType) IsTextFamily() bool {
	return t == InferredTypeText || t == InferredTypeDatetime
}

// ============================================================================
// Value Patterns
// ============================================================================

// PatternKind is the shape bucket a sampled value falls into.
type PatternKind string

const (
	PatternNumeric      PatternKind = "numeric"
	PatternUUID         PatternKind = "uuid"
	PatternEmail        PatternKind = "email"
	PatternDate         PatternKind = "date"
	PatternPhone        PatternKind = "phone"
	PatternAlphanumeric PatternKind = "alphanumeric"
)

// ValidPatternKinds lists pattern kinds in classification priority order.
var ValidPatternKinds = []PatternKind{
	PatternNumeric,
	PatternUUID,
	PatternEmail,
	PatternDate,
	PatternPhone,
	PatternAlphanumeric,
}

// IsValidPatternKind checks if the given kind is valid.
func IsValidPatternKind(k PatternKind) bool {
	return slices.Contains(ValidPatternKinds, k)
}

// ============================================================================
// Column Profile
// ============================================================================

// NumericStats summarizes the parseable numeric values of a column.
type NumericStats struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

// ColumnProfile holds the statistics computed for one column of one table.
// Profiles are built once per analysis run and never modified afterwards.
type ColumnProfile struct {
	Table            string              `json:"table"`
	Column           string              `json:"column"`
	InferredType     InferredType        `json:"inferred_type"`
	UniqueCount      int                 `json:"unique_count"`
	NullCount        int                 `json:"null_count"`
	TotalCount       int                 `json:"total_count"`
	SampleValues     []string            `json:"sample_values,omitempty"`
	PatternHistogram map[PatternKind]int `json:"pattern_histogram"`
	NumericStats     *NumericStats       `json:"numeric_stats,omitempty"`
}

// QualifiedName returns "table.column".
func (p *ColumnProfile) QualifiedName() string {
	return p.Table + "." + p.Column
}

// NonNullCount is the number of values that are present.
func (p *ColumnProfile) NonNullCount() int {
	return p.TotalCount - p.NullCount
}

// IsEmpty reports whether the column has no non-null values.
func (p *ColumnProfile) IsEmpty() bool {
	return p.NonNullCount() <= 0
}

// UniquenessRatio is unique_count / non-null count, or 0 for empty columns.
func (p *ColumnProfile) UniquenessRatio() float64 {
	n := p.NonNullCount()
	if n <= 0 {
		return 0
	}
	return float64(p.UniqueCount) / float64(n)
}

// IsPrimaryKeyEligible reports whether every row carries a distinct non-null value.
func (p *ColumnProfile) IsPrimaryKeyEligible() bool {
	return p.TotalCount > 0 && p.NullCount == 0 && p.UniqueCount == p.TotalCount
}

// DominantPattern returns the most frequent pattern bucket.
// Ties resolve to the kind that comes first in ValidPatternKinds.
// Returns "" when the histogram is empty.
func (p *ColumnProfile) DominantPattern() PatternKind {
	var best PatternKind
	bestCount := 0
	for _, kind := range ValidPatternKinds {
		if c := p.PatternHistogram[kind]; c > bestCount {
			best = kind
			bestCount = c
		}
	}
	return best
}
