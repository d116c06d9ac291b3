package services

import (
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-relate/pkg/models"
)

// minTableFormLen is the shortest table form a column name is searched for.
const minTableFormLen = 3

// Primary-key priority tiers. Higher wins.
const (
	PKTierCanonicalName = 6
	PKTierTableIDName   = 5
	PKTierKeywordTable  = 4
	PKTierKeyword       = 3
	PKTierNumeric       = 2
	PKTierUnique        = 1
)

var pkTierScores = map[int]int{
	PKTierCanonicalName: 100,
	PKTierTableIDName:   95,
	PKTierKeywordTable:  85,
	PKTierKeyword:       70,
	PKTierNumeric:       40,
	PKTierUnique:        20,
}

// PrimaryKeyInferencer picks at most one primary key per table.
type PrimaryKeyInferencer interface {
	// Infer assigns a primary key to each table that has an eligible column.
	// profiles must be grouped per table in column order.
	Infer(profiles map[string][]*models.ColumnProfile) models.PrimaryKeyAssignment

	// Rank returns the tier of one column, or 0 when the column is not eligible.
	Rank(table string, profile *models.ColumnProfile) int
}

type primaryKeyInferencer struct {
	heuristics *NameHeuristics
	logger     *zap.Logger
}

// NewPrimaryKeyInferencer creates a PrimaryKeyInferencer.
func NewPrimaryKeyInferencer(heuristics *NameHeuristics, logger *zap.Logger) PrimaryKeyInferencer {
	return &primaryKeyInferencer{
		heuristics: heuristics,
		logger:     logger.Named("pk-inference"),
	}
}

var _ PrimaryKeyInferencer = (*primaryKeyInferencer)(nil)

func (i *primaryKeyInferencer) Infer(profiles map[string][]*models.ColumnProfile) models.PrimaryKeyAssignment {
	assignment := make(models.PrimaryKeyAssignment, len(profiles))

	for table, columns := range profiles {
		best := models.PrimaryKey{}
		for _, p := range columns {
			tier := i.Rank(table, p)
			// Strictly greater keeps the first column on ties.
			if tier > best.Tier {
				best = models.PrimaryKey{Column: p.Column, Tier: tier, Score: pkTierScores[tier]}
			}
		}
		if best.Tier == 0 {
			i.logger.Debug("No primary key candidate", zap.String("table", table))
			continue
		}
		assignment[table] = best
		i.logger.Debug("Inferred primary key",
			zap.String("table", table),
			zap.String("column", best.Column),
			zap.Int("tier", best.Tier))
	}

	return assignment
}

func (i *primaryKeyInferencer) Rank(table string, p *models.ColumnProfile) int {
	if !p.IsPrimaryKeyEligible() {
		return 0
	}

	name := strings.ToLower(p.Column)
	if i.heuristics.IsCanonicalPKName(name) {
		return PKTierCanonicalName
	}

	forms := i.heuristics.TableForms(table)
	for _, form := range forms {
		if name == form+"_id" || name == form+"id" {
			return PKTierTableIDName
		}
	}

	if i.heuristics.HasIDKeyword(p.Column) {
		for _, form := range forms {
			if len(form) >= minTableFormLen && strings.Contains(name, form) {
				return PKTierKeywordTable
			}
		}
		return PKTierKeyword
	}

	if p.InferredType == models.InferredTypeNumeric {
		return PKTierNumeric
	}
	return PKTierUnique
}
