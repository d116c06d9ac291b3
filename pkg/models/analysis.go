package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Primary Keys
// ============================================================================

// PrimaryKey is the column inferred to identify rows of a table.
type PrimaryKey struct {
	Column string `json:"column"`
	Tier   int    `json:"tier"`
	Score  int    `json:"score"`
}

// PrimaryKeyAssignment maps a table name to its inferred primary key.
// A table appears at most once; tables without an eligible column are absent.
type PrimaryKeyAssignment map[string]PrimaryKey

// IsPrimaryKey reports whether table.column is the table's inferred PK.
func (a PrimaryKeyAssignment) IsPrimaryKey(table, column string) bool {
	pk, ok := a[table]
	return ok && pk.Column == column
}

// ============================================================================
// Validation
// ============================================================================

// ValidationJudgment is an external validator's opinion on one candidate.
// It annotates a candidate and never changes its rank.
type ValidationJudgment struct {
	SourceTable          string  `json:"source_table"`
	SourceColumn         string  `json:"source_column"`
	TargetTable          string  `json:"target_table"`
	TargetColumn         string  `json:"target_column"`
	IsValid              bool    `json:"is_valid"`
	Confidence           float64 `json:"confidence"`
	Explanation          string  `json:"explanation,omitempty"`
	SuggestedCardinality string  `json:"suggested_cardinality,omitempty"`
	Recommendation       string  `json:"recommendation,omitempty"`
	Error                string  `json:"error,omitempty"`
}

// ============================================================================
// Degraded Mode
// ============================================================================

// Components that may run degraded when their collaborator is unavailable.
const (
	ComponentEmbedding = "embedding"
	ComponentValidator = "validator"
)

// DegradedMode records that an optional collaborator did not contribute to a run.
type DegradedMode struct {
	Component string `json:"component"`
	Reason    string `json:"reason"`
}

// ============================================================================
// Analysis Result
// ============================================================================

// AnalysisSummary holds counts for a finished run.
type AnalysisSummary struct {
	Tables           int                    `json:"tables"`
	Columns          int                    `json:"columns"`
	PrimaryKeys      int                    `json:"primary_keys"`
	PairsScored      int                    `json:"pairs_scored"`
	Candidates       int                    `json:"candidates"`
	CandidatesByTier map[ConfidenceTier]int `json:"candidates_by_tier"`
}

// AnalysisResult is the complete output of one engine run.
type AnalysisResult struct {
	RunID       uuid.UUID                `json:"run_id"`
	Tables      []string                 `json:"tables"`
	Profiles    []*ColumnProfile         `json:"profiles"`
	PrimaryKeys PrimaryKeyAssignment     `json:"primary_keys"`
	Candidates  []*RelationshipCandidate `json:"candidates"`
	Judgments   []*ValidationJudgment    `json:"judgments,omitempty"`
	Degraded    []DegradedMode           `json:"degraded,omitempty"`
	Summary     AnalysisSummary          `json:"summary"`
	StartedAt   time.Time                `json:"started_at"`
	FinishedAt  time.Time                `json:"finished_at"`
}

// IsDegraded reports whether any optional collaborator failed during the run.
func (r *AnalysisResult) IsDegraded() bool {
	return len(r.Degraded) > 0
}

// ProfileFor returns the profile of table.column, or nil.
func (r *AnalysisResult) ProfileFor(table, column string) *ColumnProfile {
	for _, p := range r.Profiles {
		if p.Table == table && p.Column == column {
			return p
		}
	}
	return nil
}

// AnalysisRun is the stored header of an analysis run, without its candidates.
type AnalysisRun struct {
	ID         uuid.UUID       `json:"id"`
	SourceType string          `json:"source_type"`
	Tables     []string        `json:"tables"`
	Summary    AnalysisSummary `json:"summary"`
	Degraded   bool            `json:"degraded"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}
