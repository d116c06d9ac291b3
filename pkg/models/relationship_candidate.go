package models

import (
	"slices"
)

// ============================================================================
// Confidence Tiers
// ============================================================================

// ConfidenceTier buckets a confidence score for presentation.
type ConfidenceTier string

const (
	ConfidenceTierHigh   ConfidenceTier = "high"
	ConfidenceTierMedium ConfidenceTier = "medium"
	ConfidenceTierLow    ConfidenceTier = "low"
)

// ValidConfidenceTiers lists tiers from strongest to weakest.
var ValidConfidenceTiers = []ConfidenceTier{
	ConfidenceTierHigh,
	ConfidenceTierMedium,
	ConfidenceTierLow,
}

// IsValidConfidenceTier checks if the given tier is valid.
func IsValidConfidenceTier(t ConfidenceTier) bool {
	return slices.Contains(ValidConfidenceTiers, t)
}

// TierThresholds holds the lower bounds of the high and medium tiers.
// Anything below Medium (and above the engine cutoff) is low.
type TierThresholds struct {
	High   float64 `json:"high" yaml:"high"`
	Medium float64 `json:"medium" yaml:"medium"`
}

// DefaultTierThresholds returns high >= 0.8, medium >= 0.6.
func DefaultTierThresholds() TierThresholds {
	return TierThresholds{High: 0.8, Medium: 0.6}
}

// TierFor returns the tier a confidence falls into.
func (t TierThresholds) TierFor(confidence float64) ConfidenceTier {
	switch {
	case confidence >= t.High:
		return ConfidenceTierHigh
	case confidence >= t.Medium:
		return ConfidenceTierMedium
	default:
		return ConfidenceTierLow
	}
}

// ============================================================================
// Direction Rules
// ============================================================================

// DirectionRule names the tie-break rule that decided which side is the foreign key.
type DirectionRule string

const (
	DirectionRulePrimaryKey  DirectionRule = "primary_key"
	DirectionRuleUniqueness  DirectionRule = "uniqueness_ratio"
	DirectionRuleNamePattern DirectionRule = "fk_name_pattern"
	DirectionRuleUniqueCount DirectionRule = "unique_count"
)

// ValidDirectionRules lists rules in the order they are tried.
var ValidDirectionRules = []DirectionRule{
	DirectionRulePrimaryKey,
	DirectionRuleUniqueness,
	DirectionRuleNamePattern,
	DirectionRuleUniqueCount,
}

// IsValidDirectionRule checks if the given rule is valid.
func IsValidDirectionRule(r DirectionRule) bool {
	return slices.Contains(ValidDirectionRules, r)
}

// ============================================================================
// Cardinality
// ============================================================================

// Cardinality values for a resolved relationship, written FK side first.
const (
	Cardinality1To1 = "1:1"
	CardinalityNTo1 = "N:1"
	Cardinality1ToN = "1:N"
	CardinalityNToM = "N:M"

	CardinalityUnknown = "unknown"
)

// ============================================================================
// Relationship Candidate
// ============================================================================

// Evidence is the breakdown of signals that produced a candidate's confidence.
// Signal scores are pre-weight values in [0,1]; Confidence on the candidate is the
// weighted sum plus Bonus and Penalty.
type Evidence struct {
	NameSimilarity     float64 `json:"name_similarity"`
	SemanticSimilarity float64 `json:"semantic_similarity,omitempty"`
	TypeCompatibility  float64 `json:"type_compatibility"`
	ValueOverlap       float64 `json:"value_overlap"`
	OverlapRatio       float64 `json:"overlap_ratio"`
	OverlapPercentage  float64 `json:"overlap_percentage"`
	OverlapCount       int     `json:"overlap_count"`
	PatternSimilarity  float64 `json:"pattern_similarity"`

	// Structural deltas applied on top of the weighted sum.
	Bonus      float64  `json:"bonus,omitempty"`
	Penalty    float64  `json:"penalty,omitempty"`
	Adjustment []string `json:"adjustments,omitempty"`

	SourceIsPK bool `json:"source_is_pk"`
	TargetIsPK bool `json:"target_is_pk"`

	DirectionRule DirectionRule `json:"direction_rule,omitempty"`
}

// RelationshipCandidate is a scored, directional FK -> PK relationship between two
// columns in different tables. Source is the referencing (FK) side.
type RelationshipCandidate struct {
	SourceTable  string   `json:"source_table"`
	SourceColumn string   `json:"source_column"`
	TargetTable  string   `json:"target_table"`
	TargetColumn string   `json:"target_column"`
	Confidence   float64  `json:"confidence"`
	Cardinality  string   `json:"cardinality,omitempty"`
	Evidence     Evidence `json:"evidence"`
}

// Source returns "table.column" of the FK side.
func (c *RelationshipCandidate) Source() string {
	return c.SourceTable + "." + c.SourceColumn
}

// Target returns "table.column" of the PK side.
func (c *RelationshipCandidate) Target() string {
	return c.TargetTable + "." + c.TargetColumn
}

// ColumnRef names one column of one table.
type ColumnRef struct {
	Table  string
	Column string
}

func (r ColumnRef) less(o ColumnRef) bool {
	if r.Table != o.Table {
		return r.Table < o.Table
	}
	return r.Column < o.Column
}

// String returns "table.column".
func (r ColumnRef) String() string {
	return r.Table + "." + r.Column
}

// ColumnPair is an unordered pair of columns. Table and column names stay in
// separate fields, so names containing dots cannot collide.
type ColumnPair struct {
	A, B ColumnRef
}

// String returns "table.column|table.column".
func (p ColumnPair) String() string {
	return p.A.String() + "|" + p.B.String()
}

// PairKey identifies the unordered column pair, so A->B and B->A share a key.
func (c *RelationshipCandidate) PairKey() ColumnPair {
	a := ColumnRef{Table: c.SourceTable, Column: c.SourceColumn}
	b := ColumnRef{Table: c.TargetTable, Column: c.TargetColumn}
	if b.less(a) {
		a, b = b, a
	}
	return ColumnPair{A: a, B: b}
}
