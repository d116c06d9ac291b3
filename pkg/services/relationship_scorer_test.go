package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-relate/pkg/models"
)

func newTestScorer(weights ScoringWeights) RelationshipScorer {
	return NewRelationshipScorer(DefaultNameHeuristics(), weights, zap.NewNop())
}

func TestRelationshipScorer_ClassicForeignKey(t *testing.T) {
	scorer := newTestScorer(DefaultScoringWeights())

	src := input(t, "pets", "patient_id", false, "1", "1", "2", "3", "4")
	tgt := input(t, "patients", "id", true, "1", "2", "3", "4", "5")

	c, ok := scorer.Score(src, tgt)
	require.True(t, ok)

	assert.Equal(t, "pets", c.SourceTable)
	assert.Equal(t, "patient_id", c.SourceColumn)
	assert.Equal(t, "patients", c.TargetTable)
	assert.Equal(t, "id", c.TargetColumn)

	// 0.3*0.9 + 0.1*1 + 0.5*1 + 0.1*1 + 0.2
	assert.InDelta(t, 1.17, c.Confidence, 1e-9)
	assert.InDelta(t, 0.9, c.Evidence.NameSimilarity, 1e-9)
	assert.Equal(t, 1.0, c.Evidence.TypeCompatibility)
	assert.Equal(t, 4, c.Evidence.OverlapCount)
	assert.Equal(t, 1.0, c.Evidence.OverlapRatio)
	assert.Equal(t, 100.0, c.Evidence.OverlapPercentage)
	assert.Equal(t, 1.0, c.Evidence.PatternSimilarity)
	assert.InDelta(t, 0.2, c.Evidence.Bonus, 1e-9)
	assert.Contains(t, c.Evidence.Adjustment, AdjustmentFKNameMatchesTable)
	assert.False(t, c.Evidence.SourceIsPK)
	assert.True(t, c.Evidence.TargetIsPK)

	reverse, ok := scorer.Score(tgt, src)
	require.True(t, ok)
	assert.Less(t, reverse.Confidence, c.Confidence, "the FK bonus applies only toward the PK side")
	assert.NotContains(t, reverse.Evidence.Adjustment, AdjustmentFKNameMatchesTable)
}

func TestRelationshipScorer_NoCandidate(t *testing.T) {
	scorer := newTestScorer(DefaultScoringWeights())

	tests := []struct {
		name string
		src  ScoringInput
		tgt  ScoringInput
	}{
		{
			name: "same table",
			src:  input(t, "pets", "owner_id", false, "1", "2"),
			tgt:  input(t, "pets", "id", true, "1", "2"),
		},
		{
			name: "empty source column",
			src:  input(t, "pets", "patient_id", false, null, null),
			tgt:  input(t, "patients", "id", true, "1", "2"),
		},
		{
			name: "disjoint primary keys",
			src:  input(t, "pets", "id", true, "101", "102", "103", "104", "105"),
			tgt:  input(t, "patients", "id", true, "1", "2", "3", "4", "5"),
		},
		{
			name: "no name signal and no shared values",
			src:  input(t, "weather", "temp", false, "12", "25"),
			tgt:  input(t, "books", "pages", false, "100", "200"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := scorer.Score(tt.src, tt.tgt)
			assert.False(t, ok)
			assert.Nil(t, c)
		})
	}
}

func TestRelationshipScorer_PrimaryKeyPairPenalty(t *testing.T) {
	src := input(t, "pets", "id", true, "1", "2", "3", "4", "5")
	tgt := input(t, "patients", "id", true, "1", "2", "3", "4", "5")

	penalized, ok := newTestScorer(DefaultScoringWeights()).Score(src, tgt)
	require.True(t, ok)

	noPenalty := DefaultScoringWeights()
	noPenalty.PKPenalty = 0
	plain, ok := newTestScorer(noPenalty).Score(src, tgt)
	require.True(t, ok)

	assert.Less(t, penalized.Confidence, plain.Confidence)
	assert.InDelta(t, 0.5, plain.Confidence-penalized.Confidence, 1e-9)
	assert.Equal(t, 0.0, penalized.Evidence.NameSimilarity)
	assert.Contains(t, penalized.Evidence.Adjustment, AdjustmentBothPrimaryKeys)
}

func TestRelationshipScorer_OverlapMonotonic(t *testing.T) {
	scorer := newTestScorer(DefaultScoringWeights())

	target := make([]string, 20)
	for i := range target {
		target[i] = fmt.Sprint(i + 1)
	}
	tgt := input(t, "owners", "id", true, target...)

	prev := -1.0
	for shared := 0; shared <= 20; shared++ {
		values := make([]string, 20)
		for i := range values {
			if i < shared {
				values[i] = fmt.Sprint(i + 1)
			} else {
				values[i] = fmt.Sprint(1000 + i)
			}
		}
		src := input(t, "pets", "owner_id", false, values...)

		c, ok := scorer.Score(src, tgt)
		require.True(t, ok, "owner_id -> owners.id has a name signal at every overlap")
		assert.GreaterOrEqual(t, c.Confidence, prev, "overlap %d/20", shared)
		prev = c.Confidence
	}
}

func TestRelationshipScorer_SemanticSignal(t *testing.T) {
	scorer := newTestScorer(DefaultScoringWeights())

	src := input(t, "visits", "attending", false, "7", "8", "9")
	tgt := input(t, "doctors", "badge", false, "7", "8", "9")
	base, ok := scorer.Score(src, tgt)
	require.True(t, ok)

	src.Embedding = []float32{1, 0, 0}
	tgt.Embedding = []float32{1, 0, 0}
	semantic, ok := scorer.Score(src, tgt)
	require.True(t, ok)

	assert.Equal(t, 1.0, semantic.Evidence.SemanticSimilarity)
	assert.Contains(t, semantic.Evidence.Adjustment, AdjustmentSemanticName)
	assert.Greater(t, semantic.Confidence, base.Confidence)

	tgt.Embedding = []float32{0, 1, 0}
	orthogonal, ok := scorer.Score(src, tgt)
	require.True(t, ok)
	assert.Equal(t, base.Confidence, orthogonal.Confidence)
	assert.NotContains(t, orthogonal.Evidence.Adjustment, AdjustmentSemanticName)
}

func TestRelationshipScorer_SemanticSignalAloneDoesNotAdmit(t *testing.T) {
	scorer := newTestScorer(DefaultScoringWeights())

	src := input(t, "cars", "color", false, "red", "blue", "green")
	tgt := input(t, "books", "title", false, "dune", "emma", "ulysses")
	_, ok := scorer.Score(src, tgt)
	require.False(t, ok)

	src.Embedding = []float32{1, 0, 0}
	tgt.Embedding = []float32{1, 0, 0}
	_, ok = scorer.Score(src, tgt)
	assert.False(t, ok, "no shared values and no name correlation")
}

func TestTypeCompatibility(t *testing.T) {
	tests := []struct {
		a, b     models.InferredType
		expected float64
	}{
		{models.InferredTypeNumeric, models.InferredTypeNumeric, 1.0},
		{models.InferredTypeNumeric, models.InferredTypeBoolean, 0.8},
		{models.InferredTypeText, models.InferredTypeDatetime, 0.8},
		{models.InferredTypeNumeric, models.InferredTypeText, 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.a)+"_"+string(tt.b), func(t *testing.T) {
			assert.Equal(t, tt.expected, TypeCompatibility(tt.a, tt.b))
			assert.Equal(t, tt.expected, TypeCompatibility(tt.b, tt.a))
		})
	}
}

func TestValueOverlap(t *testing.T) {
	set := func(values ...string) map[string]struct{} { return ValueSet(ptrs(values...)) }

	count, ratio := ValueOverlap(set("1", "2", "3", "4"), set("1", "2", "3", "4", "5"))
	assert.Equal(t, 4, count)
	assert.Equal(t, 1.0, ratio, "denominator is the smaller set")

	count, ratio = ValueOverlap(set("1", "2", "9", "10"), set("1", "2"))
	assert.Equal(t, 2, count)
	assert.Equal(t, 1.0, ratio)

	count, ratio = ValueOverlap(set("1", "2", "3", "4"), set("4", "5", "6", "7"))
	assert.Equal(t, 1, count)
	assert.Equal(t, 0.25, ratio)

	count, ratio = ValueOverlap(set(), set("1"))
	assert.Equal(t, 0, count)
	assert.Equal(t, 0.0, ratio)
}

func TestOverlapScore(t *testing.T) {
	tests := []struct {
		ratio    float64
		expected float64
	}{
		{1.0, 1.0},
		{0.81, 1.0},
		{0.8, 0.8},
		{0.51, 0.8},
		{0.5, 0.5},
		{0.21, 0.5},
		{0.2, 0.3},
		{0.06, 0.3},
		{0.05, 0.05},
		{0.01, 0.01},
		{0, 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.ratio), func(t *testing.T) {
			assert.Equal(t, tt.expected, OverlapScore(tt.ratio))
		})
	}
}

func TestPatternSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, PatternSimilarity(models.PatternUUID, models.PatternUUID))
	assert.Equal(t, 0.7, PatternSimilarity(models.PatternNumeric, models.PatternAlphanumeric))
	assert.Equal(t, 0.7, PatternSimilarity(models.PatternAlphanumeric, models.PatternNumeric))
	assert.Equal(t, 0.7, PatternSimilarity(models.PatternPhone, models.PatternNumeric))
	assert.Equal(t, 0.0, PatternSimilarity(models.PatternEmail, models.PatternDate))
	assert.Equal(t, 0.0, PatternSimilarity("", models.PatternNumeric))
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2, 3}, []float32{2, 4, 6}), 1e-6)
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), "negative similarity clamps to zero")
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 0}))
	assert.Equal(t, 0.0, CosineSimilarity(nil, nil))
}
