// Package report turns an analysis result into a presentation document and
// renders it as JSON, YAML or a terminal summary.
package report

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-relate/pkg/models"
	"github.com/ekaya-inc/ekaya-relate/pkg/services"
)

// Format selects a renderer.
type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatTerminal Format = "text"
)

// ValidFormats lists supported output formats.
var ValidFormats = []Format{FormatTerminal, FormatJSON, FormatYAML}

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range ValidFormats {
		if f == v {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q (want text, json or yaml)", s)
}

// Options filters and labels a document.
type Options struct {
	Tiers models.TierThresholds
	// MinConfidence drops candidates below it. It never lowers the engine cutoff.
	MinConfidence float64
	// Tier keeps only candidates in this tier when set.
	Tier models.ConfidenceTier
	// Limit keeps the first N ranked candidates when positive.
	Limit int
	// Profiles includes column profiles in the document.
	Profiles bool
}

// Document is the presentation form of an analysis result.
type Document struct {
	RunID         string             `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Tables        []string           `json:"tables" yaml:"tables"`
	Summary       Summary            `json:"summary" yaml:"summary"`
	PrimaryKeys   []PrimaryKey       `json:"primary_keys" yaml:"primary_keys"`
	Relationships []Relationship     `json:"relationships" yaml:"relationships"`
	ReferencedBy  []Reference        `json:"referenced_by,omitempty" yaml:"referenced_by,omitempty"`
	Profiles      []*ColumnProfile   `json:"profiles,omitempty" yaml:"profiles,omitempty"`
	Degraded      []Degraded         `json:"degraded,omitempty" yaml:"degraded,omitempty"`
	Tiers         TierBounds         `json:"tiers" yaml:"tiers"`
	StartedAt     *time.Time         `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	Elapsed       string             `json:"elapsed,omitempty" yaml:"elapsed,omitempty"`
	Validation    *ValidationSummary `json:"validation,omitempty" yaml:"validation,omitempty"`
}

// Summary holds run counts.
type Summary struct {
	Tables      int            `json:"tables" yaml:"tables"`
	Columns     int            `json:"columns" yaml:"columns"`
	PrimaryKeys int            `json:"primary_keys" yaml:"primary_keys"`
	PairsScored int            `json:"pairs_scored" yaml:"pairs_scored"`
	Candidates  int            `json:"candidates" yaml:"candidates"`
	ByTier      map[string]int `json:"by_tier" yaml:"by_tier"`
	Shown       int            `json:"shown" yaml:"shown"`
}

// TierBounds echoes the thresholds used for labelling.
type TierBounds struct {
	High   float64 `json:"high" yaml:"high"`
	Medium float64 `json:"medium" yaml:"medium"`
}

// PrimaryKey is one inferred primary key.
type PrimaryKey struct {
	Table  string `json:"table" yaml:"table"`
	Column string `json:"column" yaml:"column"`
	Tier   int    `json:"tier" yaml:"tier"`
	Score  int    `json:"score" yaml:"score"`
}

// Relationship is one ranked FK -> PK candidate.
type Relationship struct {
	Rank          int         `json:"rank" yaml:"rank"`
	Source        string      `json:"source" yaml:"source"`
	Target        string      `json:"target" yaml:"target"`
	Confidence    float64     `json:"confidence" yaml:"confidence"`
	Tier          string      `json:"tier" yaml:"tier"`
	Cardinality   string      `json:"cardinality,omitempty" yaml:"cardinality,omitempty"`
	DirectionRule string      `json:"direction_rule,omitempty" yaml:"direction_rule,omitempty"`
	Evidence      Evidence    `json:"evidence" yaml:"evidence"`
	Validation    *Validation `json:"validation,omitempty" yaml:"validation,omitempty"`
}

// Evidence is the signal breakdown of a candidate.
type Evidence struct {
	NameSimilarity     float64  `json:"name_similarity" yaml:"name_similarity"`
	SemanticSimilarity float64  `json:"semantic_similarity,omitempty" yaml:"semantic_similarity,omitempty"`
	TypeCompatibility  float64  `json:"type_compatibility" yaml:"type_compatibility"`
	ValueOverlap       float64  `json:"value_overlap" yaml:"value_overlap"`
	OverlapPercentage  float64  `json:"overlap_percentage" yaml:"overlap_percentage"`
	OverlapCount       int      `json:"overlap_count" yaml:"overlap_count"`
	PatternSimilarity  float64  `json:"pattern_similarity" yaml:"pattern_similarity"`
	Bonus              float64  `json:"bonus,omitempty" yaml:"bonus,omitempty"`
	Penalty            float64  `json:"penalty,omitempty" yaml:"penalty,omitempty"`
	Adjustments        []string `json:"adjustments,omitempty" yaml:"adjustments,omitempty"`
}

// Validation is the validator's opinion on a shown candidate.
type Validation struct {
	IsValid              bool    `json:"is_valid" yaml:"is_valid"`
	Confidence           float64 `json:"confidence" yaml:"confidence"`
	Explanation          string  `json:"explanation,omitempty" yaml:"explanation,omitempty"`
	SuggestedCardinality string  `json:"suggested_cardinality,omitempty" yaml:"suggested_cardinality,omitempty"`
	Recommendation       string  `json:"recommendation,omitempty" yaml:"recommendation,omitempty"`
	Error                string  `json:"error,omitempty" yaml:"error,omitempty"`
}

// ValidationSummary counts validator verdicts over shown candidates.
type ValidationSummary struct {
	Confirmed int `json:"confirmed" yaml:"confirmed"`
	Rejected  int `json:"rejected" yaml:"rejected"`
	Failed    int `json:"failed" yaml:"failed"`
}

// Reference lists the relationships pointing at one primary key, written
// from the referenced table's point of view.
type Reference struct {
	Target string          `json:"target" yaml:"target"`
	From   []ReferenceSide `json:"from" yaml:"from"`
}

// ReferenceSide is one incoming relationship.
type ReferenceSide struct {
	Source      string  `json:"source" yaml:"source"`
	Cardinality string  `json:"cardinality,omitempty" yaml:"cardinality,omitempty"`
	Confidence  float64 `json:"confidence" yaml:"confidence"`
}

// ColumnProfile is the presented subset of a column profile.
type ColumnProfile struct {
	Table      string   `json:"table" yaml:"table"`
	Column     string   `json:"column" yaml:"column"`
	DataType   string   `json:"data_type" yaml:"data_type"`
	Rows       int      `json:"rows" yaml:"rows"`
	Nulls      int      `json:"nulls" yaml:"nulls"`
	Unique     int      `json:"unique" yaml:"unique"`
	Uniqueness float64  `json:"uniqueness" yaml:"uniqueness"`
	Pattern    string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Samples    []string `json:"samples,omitempty" yaml:"samples,omitempty"`
	PrimaryKey bool     `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
}

// Degraded records an optional collaborator that did not contribute.
type Degraded struct {
	Component string `json:"component" yaml:"component"`
	Reason    string `json:"reason" yaml:"reason"`
}

// Build converts a result into a document. Filtering never reorders candidates.
func Build(result *models.AnalysisResult, opts Options) *Document {
	tiers := opts.Tiers
	if tiers == (models.TierThresholds{}) {
		tiers = models.DefaultTierThresholds()
	}

	doc := &Document{
		Tables: result.Tables,
		Tiers:  TierBounds{High: tiers.High, Medium: tiers.Medium},
		Summary: Summary{
			Tables:      result.Summary.Tables,
			Columns:     result.Summary.Columns,
			PrimaryKeys: result.Summary.PrimaryKeys,
			PairsScored: result.Summary.PairsScored,
			Candidates:  result.Summary.Candidates,
			ByTier:      map[string]int{},
		},
		PrimaryKeys:   []PrimaryKey{},
		Relationships: []Relationship{},
	}
	if result.RunID != uuid.Nil {
		doc.RunID = result.RunID.String()
	}
	if !result.StartedAt.IsZero() {
		started := result.StartedAt
		doc.StartedAt = &started
	}
	if !result.FinishedAt.IsZero() {
		doc.Elapsed = result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond).String()
	}

	for table, pk := range result.PrimaryKeys {
		doc.PrimaryKeys = append(doc.PrimaryKeys, PrimaryKey{Table: table, Column: pk.Column, Tier: pk.Tier, Score: pk.Score})
	}
	sort.Slice(doc.PrimaryKeys, func(i, j int) bool { return doc.PrimaryKeys[i].Table < doc.PrimaryKeys[j].Table })

	for rank, c := range result.Candidates {
		tier := tiers.TierFor(c.Confidence)
		doc.Summary.ByTier[string(tier)]++

		if c.Confidence < opts.MinConfidence {
			continue
		}
		if opts.Tier != "" && tier != opts.Tier {
			continue
		}
		if opts.Limit > 0 && len(doc.Relationships) >= opts.Limit {
			continue
		}

		rel := Relationship{
			Rank:          rank + 1,
			Source:        c.Source(),
			Target:        c.Target(),
			Confidence:    round(c.Confidence),
			Tier:          string(tier),
			Cardinality:   c.Cardinality,
			DirectionRule: string(c.Evidence.DirectionRule),
			Evidence:      evidence(c.Evidence),
		}
		if rank < len(result.Judgments) && result.Judgments[rank] != nil {
			rel.Validation = validation(result.Judgments[rank])
			doc.countVerdict(rel.Validation)
		}
		doc.Relationships = append(doc.Relationships, rel)
	}
	doc.Summary.Shown = len(doc.Relationships)
	doc.ReferencedBy = referencedBy(doc.Relationships)

	if opts.Profiles {
		for _, p := range result.Profiles {
			doc.Profiles = append(doc.Profiles, profile(p, result.PrimaryKeys.IsPrimaryKey(p.Table, p.Column)))
		}
	}

	for _, d := range result.Degraded {
		doc.Degraded = append(doc.Degraded, Degraded{Component: d.Component, Reason: d.Reason})
	}
	return doc
}

// BuildProfile converts a profiling-only run into a document with no relationships.
func BuildProfile(result *services.ProfileResult) *Document {
	var tables []string
	for _, p := range result.Profiles {
		if len(tables) == 0 || tables[len(tables)-1] != p.Table {
			tables = append(tables, p.Table)
		}
	}
	return Build(&models.AnalysisResult{
		Tables:      tables,
		Profiles:    result.Profiles,
		PrimaryKeys: result.PrimaryKeys,
		Summary: models.AnalysisSummary{
			Tables:      len(tables),
			Columns:     len(result.Profiles),
			PrimaryKeys: len(result.PrimaryKeys),
		},
	}, Options{Profiles: true})
}

func (d *Document) countVerdict(v *Validation) {
	if d.Validation == nil {
		d.Validation = &ValidationSummary{}
	}
	switch {
	case v.Error != "":
		d.Validation.Failed++
	case v.IsValid:
		d.Validation.Confirmed++
	default:
		d.Validation.Rejected++
	}
}

// referencedBy groups shown relationships by target, keeping rank order within
// each group and ordering groups by target name.
func referencedBy(rels []Relationship) []Reference {
	groups := map[string][]ReferenceSide{}
	for _, r := range rels {
		groups[r.Target] = append(groups[r.Target], ReferenceSide{
			Source:      r.Source,
			Cardinality: services.ReverseCardinality(r.Cardinality),
			Confidence:  r.Confidence,
		})
	}
	refs := make([]Reference, 0, len(groups))
	for target, from := range groups {
		refs = append(refs, Reference{Target: target, From: from})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Target < refs[j].Target })
	return refs
}

func evidence(e models.Evidence) Evidence {
	return Evidence{
		NameSimilarity:     round(e.NameSimilarity),
		SemanticSimilarity: round(e.SemanticSimilarity),
		TypeCompatibility:  round(e.TypeCompatibility),
		ValueOverlap:       round(e.ValueOverlap),
		OverlapPercentage:  round(e.OverlapPercentage),
		OverlapCount:       e.OverlapCount,
		PatternSimilarity:  round(e.PatternSimilarity),
		Bonus:              e.Bonus,
		Penalty:            e.Penalty,
		Adjustments:        e.Adjustment,
	}
}

func validation(j *models.ValidationJudgment) *Validation {
	return &Validation{
		IsValid:              j.IsValid,
		Confidence:           round(j.Confidence),
		Explanation:          j.Explanation,
		SuggestedCardinality: j.SuggestedCardinality,
		Recommendation:       j.Recommendation,
		Error:                j.Error,
	}
}

func profile(p *models.ColumnProfile, isPK bool) *ColumnProfile {
	return &ColumnProfile{
		Table:      p.Table,
		Column:     p.Column,
		DataType:   string(p.InferredType),
		Rows:       p.TotalCount,
		Nulls:      p.NullCount,
		Unique:     p.UniqueCount,
		Uniqueness: round(p.UniquenessRatio()),
		Pattern:    string(p.DominantPattern()),
		Samples:    p.SampleValues,
		PrimaryKey: isPK,
	}
}

// round keeps four decimals so documents stay diffable.
func round(v float64) float64 {
	return math.Round(v*10000) / 10000
}
