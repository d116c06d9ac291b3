package services

import (
	"math"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-relate/pkg/models"
)

// uniquenessGap is how far apart two uniqueness ratios must be to decide direction.
const uniquenessGap = 0.2

// DirectionResolver decides which column of a pair is the foreign key.
type DirectionResolver interface {
	// Resolve returns the FK and PK sides and the rule that decided them.
	// ok is false when no rule applies; such pairs are dropped.
	Resolve(a, b ScoringInput) (fk, pk ScoringInput, rule models.DirectionRule, ok bool)
}

type directionResolver struct {
	heuristics *NameHeuristics
	logger     *zap.Logger
}

// NewDirectionResolver creates a DirectionResolver.
func NewDirectionResolver(heuristics *NameHeuristics, logger *zap.Logger) DirectionResolver {
	return &directionResolver{
		heuristics: heuristics,
		logger:     logger.Named("direction-resolver"),
	}
}

var _ DirectionResolver = (*directionResolver)(nil)

func (r *directionResolver) Resolve(a, b ScoringInput) (ScoringInput, ScoringInput, models.DirectionRule, bool) {
	// 1. Exactly one side is its table's primary key.
	if a.IsPK != b.IsPK {
		if a.IsPK {
			return b, a, models.DirectionRulePrimaryKey, true
		}
		return a, b, models.DirectionRulePrimaryKey, true
	}

	// 2. Clearly more unique side is referenced.
	ra, rb := a.Profile.UniquenessRatio(), b.Profile.UniquenessRatio()
	if math.Abs(ra-rb) > uniquenessGap {
		if ra > rb {
			return b, a, models.DirectionRuleUniqueness, true
		}
		return a, b, models.DirectionRuleUniqueness, true
	}

	// 3. Exactly one side is named like a foreign key.
	fa := r.heuristics.MatchesFKPattern(a.Column())
	fb := r.heuristics.MatchesFKPattern(b.Column())
	if fa != fb {
		if fa {
			return a, b, models.DirectionRuleNamePattern, true
		}
		return b, a, models.DirectionRuleNamePattern, true
	}

	// 4. More distinct values is referenced.
	if a.Profile.UniqueCount != b.Profile.UniqueCount {
		if a.Profile.UniqueCount > b.Profile.UniqueCount {
			return b, a, models.DirectionRuleUniqueCount, true
		}
		return a, b, models.DirectionRuleUniqueCount, true
	}

	r.logger.Debug("Direction unresolved",
		zap.String("a", a.Profile.QualifiedName()),
		zap.String("b", b.Profile.QualifiedName()))
	return ScoringInput{}, ScoringInput{}, "", false
}
