package services

import (
	"github.com/ekaya-inc/ekaya-relate/pkg/models"
)

// CardinalityUniqueThreshold is the uniqueness ratio at or above which a side is
// treated as holding one row per value.
const CardinalityUniqueThreshold = 0.95

// InferCardinality determines the cardinality (1:1, N:1, 1:N, N:M) of an FK -> PK
// relationship from the uniqueness of both sides.
//
// - 1:1: both sides unique
// - N:1: FK side repeats, PK side unique (typical FK)
// - 1:N: FK side unique, PK side repeats
// - N:M: neither side unique
func InferCardinality(fk, pk *models.ColumnProfile) string {
	if fk == nil || pk == nil || fk.IsEmpty() || pk.IsEmpty() {
		return models.CardinalityUnknown
	}

	fkUnique := fk.UniquenessRatio() >= CardinalityUniqueThreshold
	pkUnique := pk.UniquenessRatio() >= CardinalityUniqueThreshold

	switch {
	case fkUnique && pkUnique:
		return models.Cardinality1To1
	case !fkUnique && pkUnique:
		return models.CardinalityNTo1
	case fkUnique && !pkUnique:
		return models.Cardinality1ToN
	default:
		return models.CardinalityNToM
	}
}

// ReverseCardinality returns the cardinality value for the reverse direction of a relationship.
// N:1 becomes 1:N and vice versa. Symmetric cardinalities (1:1, N:M, unknown) remain unchanged.
func ReverseCardinality(cardinality string) string {
	switch cardinality {
	case models.CardinalityNTo1:
		return models.Cardinality1ToN
	case models.Cardinality1ToN:
		return models.CardinalityNTo1
	default:
		return cardinality // 1:1, N:M, unknown stay the same
	}
}
