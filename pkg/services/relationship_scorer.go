package services

import (
	"math"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-relate/pkg/models"
)

// Evidence adjustment labels.
const (
	AdjustmentFKNameMatchesTable = "fk_name_matches_table"
	AdjustmentBothPrimaryKeys    = "both_primary_keys"
	AdjustmentSemanticName       = "semantic_replaces_name"
)

// ScoringWeights are the signal weights and structural deltas of the scorer.
type ScoringWeights struct {
	Name      float64 `yaml:"name"`
	Type      float64 `yaml:"type"`
	Overlap   float64 `yaml:"overlap"`
	Pattern   float64 `yaml:"pattern"`
	FKBonus   float64 `yaml:"fk_bonus"`
	PKPenalty float64 `yaml:"pk_penalty"`
}

// DefaultScoringWeights returns name 0.3, type 0.1, overlap 0.5, pattern 0.1,
// FK bonus +0.2 and PK-PK penalty -0.5.
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		Name:      0.3,
		Type:      0.1,
		Overlap:   0.5,
		Pattern:   0.1,
		FKBonus:   0.2,
		PKPenalty: -0.5,
	}
}

// ScoringInput is everything the scorer knows about one column.
type ScoringInput struct {
	Profile *models.ColumnProfile
	// Values is the set of distinct canonical non-null values (see ValueSet).
	Values map[string]struct{}
	IsPK   bool
	// Embedding is the column description vector, nil when unavailable.
	Embedding []float32
}

// Table returns the column's table name.
func (in ScoringInput) Table() string { return in.Profile.Table }

// Column returns the column name.
func (in ScoringInput) Column() string { return in.Profile.Column }

// RelationshipScorer scores one oriented column pair.
type RelationshipScorer interface {
	// Score returns a candidate with src as the FK side and tgt as the PK side,
	// or false when no signal supports a relationship.
	Score(src, tgt ScoringInput) (*models.RelationshipCandidate, bool)
}

type relationshipScorer struct {
	heuristics *NameHeuristics
	weights    ScoringWeights
	logger     *zap.Logger
}

// NewRelationshipScorer creates a RelationshipScorer.
func NewRelationshipScorer(heuristics *NameHeuristics, weights ScoringWeights, logger *zap.Logger) RelationshipScorer {
	return &relationshipScorer{
		heuristics: heuristics,
		weights:    weights,
		logger:     logger.Named("relationship-scorer"),
	}
}

var _ RelationshipScorer = (*relationshipScorer)(nil)

func (s *relationshipScorer) Score(src, tgt ScoringInput) (*models.RelationshipCandidate, bool) {
	if src.Profile == nil || tgt.Profile == nil {
		return nil, false
	}
	if src.Table() == tgt.Table() {
		return nil, false
	}
	if src.Profile.IsEmpty() || tgt.Profile.IsEmpty() {
		return nil, false
	}

	ev := models.Evidence{
		SourceIsPK: src.IsPK,
		TargetIsPK: tgt.IsPK,
	}

	name := s.heuristics.NameSimilarity(
		NameSide{Table: src.Table(), Column: src.Column(), IsPK: src.IsPK},
		NameSide{Table: tgt.Table(), Column: tgt.Column(), IsPK: tgt.IsPK},
	)
	ev.NameSimilarity = name.Score

	nameSignal := name.Score
	if src.Embedding != nil && tgt.Embedding != nil {
		ev.SemanticSimilarity = CosineSimilarity(src.Embedding, tgt.Embedding)
		if ev.SemanticSimilarity > nameSignal {
			nameSignal = ev.SemanticSimilarity
			ev.Adjustment = append(ev.Adjustment, AdjustmentSemanticName)
		}
	}

	ev.TypeCompatibility = TypeCompatibility(src.Profile.InferredType, tgt.Profile.InferredType)

	ev.OverlapCount, ev.OverlapRatio = ValueOverlap(src.Values, tgt.Values)
	ev.OverlapPercentage = ev.OverlapRatio * 100
	ev.ValueOverlap = OverlapScore(ev.OverlapRatio)

	ev.PatternSimilarity = PatternSimilarity(src.Profile.DominantPattern(), tgt.Profile.DominantPattern())

	// Type and pattern agreement alone do not make a relationship, and neither
	// does semantic similarity: it can only lift a pair the name heuristics or
	// shared values already admit.
	if name.Score <= 0 && ev.OverlapCount == 0 {
		return nil, false
	}

	if tgt.IsPK && !src.IsPK {
		stripped := s.heuristics.StrippedName(src.Column())
		if stripped != "" && stripped == s.heuristics.Singular(tgt.Table()) {
			ev.Bonus += s.weights.FKBonus
			ev.Adjustment = append(ev.Adjustment, AdjustmentFKNameMatchesTable)
		}
	}
	if src.IsPK && tgt.IsPK {
		ev.Penalty += s.weights.PKPenalty
		ev.Adjustment = append(ev.Adjustment, AdjustmentBothPrimaryKeys)
	}

	confidence := s.weights.Name*nameSignal +
		s.weights.Type*ev.TypeCompatibility +
		s.weights.Overlap*ev.ValueOverlap +
		s.weights.Pattern*ev.PatternSimilarity +
		ev.Bonus + ev.Penalty

	if confidence <= 0 {
		s.logger.Debug("Pair suppressed",
			zap.String("source", src.Profile.QualifiedName()),
			zap.String("target", tgt.Profile.QualifiedName()),
			zap.Float64("confidence", confidence))
		return nil, false
	}

	return &models.RelationshipCandidate{
		SourceTable:  src.Table(),
		SourceColumn: src.Column(),
		TargetTable:  tgt.Table(),
		TargetColumn: tgt.Column(),
		Confidence:   confidence,
		Evidence:     ev,
	}, true
}

// TypeCompatibility is 1.0 for identical inferred types, 0.8 within the numeric
// or text family, else 0.
func TypeCompatibility(a, b models.InferredType) float64 {
	switch {
	case a == b:
		return 1.0
	case a.IsNumericFamily() && b.IsNumericFamily():
		return 0.8
	case a.IsTextFamily() && b.IsTextFamily():
		return 0.8
	default:
		return 0
	}
}

// ValueOverlap returns the size of the intersection of two value sets and its ratio
// to the smaller set.
func ValueOverlap(a, b map[string]struct{}) (int, float64) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	count := 0
	for v := range small {
		if _, ok := large[v]; ok {
			count++
		}
	}
	return count, float64(count) / float64(len(small))
}

// OverlapScore maps an overlap ratio onto the value-overlap signal.
func OverlapScore(ratio float64) float64 {
	switch {
	case ratio > 0.8:
		return 1.0
	case ratio > 0.5:
		return 0.8
	case ratio > 0.2:
		return 0.5
	case ratio > 0.05:
		return 0.3
	default:
		return ratio
	}
}

var compatiblePatterns = map[models.PatternKind][]models.PatternKind{
	models.PatternNumeric:      {models.PatternAlphanumeric, models.PatternPhone},
	models.PatternUUID:         {models.PatternAlphanumeric},
	models.PatternPhone:        {models.PatternNumeric},
	models.PatternAlphanumeric: {models.PatternNumeric, models.PatternUUID},
}

// PatternSimilarity compares dominant pattern buckets: identical 1.0, compatible
// 0.7, else 0.
func PatternSimilarity(a, b models.PatternKind) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1.0
	}
	for _, k := range compatiblePatterns[a] {
		if k == b {
			return 0.7
		}
	}
	return 0
}

// CosineSimilarity of two vectors, clamped to [0,1]. Mismatched or zero vectors
// score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return math.Max(0, math.Min(1, sim))
}
