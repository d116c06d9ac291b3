package services

import (
	"cmp"
	"slices"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-relate/pkg/models"
)

// DefaultMinConfidence is the cutoff below which candidates are not reported.
const DefaultMinConfidence = 0.3

// CandidateAggregator deduplicates, filters and ranks directional candidates.
type CandidateAggregator interface {
	// Aggregate returns the surviving candidates ordered by confidence descending.
	Aggregate(candidates []*models.RelationshipCandidate) []*models.RelationshipCandidate

	// GroupByTier buckets ranked candidates for presentation.
	GroupByTier(candidates []*models.RelationshipCandidate) map[models.ConfidenceTier][]*models.RelationshipCandidate
}

type candidateAggregator struct {
	minConfidence float64
	tiers         models.TierThresholds
	logger        *zap.Logger
}

// NewCandidateAggregator creates a CandidateAggregator.
func NewCandidateAggregator(minConfidence float64, tiers models.TierThresholds, logger *zap.Logger) CandidateAggregator {
	return &candidateAggregator{
		minConfidence: minConfidence,
		tiers:         tiers,
		logger:        logger.Named("candidate-aggregator"),
	}
}

var _ CandidateAggregator = (*candidateAggregator)(nil)

func (a *candidateAggregator) Aggregate(candidates []*models.RelationshipCandidate) []*models.RelationshipCandidate {
	byPair := make(map[models.ColumnPair]*models.RelationshipCandidate, len(candidates))
	var order []models.ColumnPair

	for _, c := range candidates {
		if c == nil || c.SourceTable == c.TargetTable {
			continue
		}
		key := c.PairKey()
		existing, ok := byPair[key]
		if !ok {
			byPair[key] = c
			order = append(order, key)
			continue
		}
		if c.Confidence > existing.Confidence {
			byPair[key] = c
		}
	}

	result := make([]*models.RelationshipCandidate, 0, len(order))
	dropped := 0
	for _, key := range order {
		c := byPair[key]
		if c.Confidence < a.minConfidence {
			dropped++
			continue
		}
		result = append(result, c)
	}

	slices.SortStableFunc(result, compareCandidates)

	a.logger.Debug("Aggregated candidates",
		zap.Int("input", len(candidates)),
		zap.Int("unique_pairs", len(order)),
		zap.Int("below_cutoff", dropped),
		zap.Int("output", len(result)))

	return result
}

// compareCandidates orders by confidence descending, then by names.
func compareCandidates(x, y *models.RelationshipCandidate) int {
	if c := cmp.Compare(y.Confidence, x.Confidence); c != 0 {
		return c
	}
	if c := cmp.Compare(x.SourceTable, y.SourceTable); c != 0 {
		return c
	}
	if c := cmp.Compare(x.SourceColumn, y.SourceColumn); c != 0 {
		return c
	}
	if c := cmp.Compare(x.TargetTable, y.TargetTable); c != 0 {
		return c
	}
	return cmp.Compare(x.TargetColumn, y.TargetColumn)
}

func (a *candidateAggregator) GroupByTier(candidates []*models.RelationshipCandidate) map[models.ConfidenceTier][]*models.RelationshipCandidate {
	groups := make(map[models.ConfidenceTier][]*models.RelationshipCandidate, len(models.ValidConfidenceTiers))
	for _, c := range candidates {
		tier := a.tiers.TierFor(c.Confidence)
		groups[tier] = append(groups[tier], c)
	}
	return groups
}
