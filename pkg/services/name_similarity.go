package services

import (
	"slices"
	"strings"

	"github.com/jinzhu/inflection"
)

// Name similarity scores.
const (
	nameScoreTableReference = 0.9
	nameScoreSynonym        = 0.85
	nameScoreSharedIDBase   = 0.8
	nameScoreIdentical      = 0.9
	nameScoreGeneric        = 0.1
	nameFuzzyThreshold      = 0.85
	nameFuzzyFactor         = 0.7
)

// NameSide is one endpoint of a name comparison.
type NameSide struct {
	Table  string
	Column string
	IsPK   bool
}

// NameMatch is the result of comparing two column names.
type NameMatch struct {
	Score float64
	Rule  string
}

// NameSimilarity scores how strongly two column names suggest a relationship.
// Rules are tried in order and the first that fires wins.
func (h *NameHeuristics) NameSimilarity(src, tgt NameSide) NameMatch {
	if src.IsPK && tgt.IsPK {
		return NameMatch{Rule: "both_primary_keys"}
	}

	sc := h.Components(src.Column)
	tc := h.Components(tgt.Column)

	if tgt.IsPK && !src.IsPK {
		if m, ok := h.tableReference(sc, tgt.Table); ok {
			return m
		}
	}
	if src.IsPK && !tgt.IsPK {
		if m, ok := h.tableReference(tc, src.Table); ok {
			return m
		}
	}

	if sc.HasIDComponent && tc.HasIDComponent && sharesWord(sc.BaseWords, tc.BaseWords) {
		return NameMatch{Score: nameScoreSharedIDBase, Rule: "shared_id_base"}
	}

	srcGeneric := h.IsGeneric(src.Column)
	tgtGeneric := h.IsGeneric(tgt.Column)

	if !srcGeneric && !tgtGeneric {
		if strings.EqualFold(src.Column, tgt.Column) {
			return NameMatch{Score: nameScoreIdentical, Rule: "identical_name"}
		}
		if len(sc.BaseWords) > 0 && sameWordSet(baseTokens(sc), baseTokens(tc)) {
			return NameMatch{Score: nameScoreIdentical, Rule: "identical_base"}
		}
	}

	if srcGeneric && tgtGeneric {
		return NameMatch{Score: nameScoreGeneric, Rule: "both_generic"}
	}

	if best := h.bestTokenRatio(sc, tc); best > nameFuzzyThreshold {
		return NameMatch{Score: best * nameFuzzyFactor, Rule: "fuzzy"}
	}

	return NameMatch{}
}

// tableReference checks whether a column's base words point at table.
func (h *NameHeuristics) tableReference(c NameComponents, table string) (NameMatch, bool) {
	singular := h.Singular(table)
	for _, w := range c.BaseWords {
		if h.lexicallyRelated(w, singular) {
			return NameMatch{Score: nameScoreTableReference, Rule: "table_reference"}, true
		}
	}
	for _, w := range c.BaseWords {
		if h.sameSynonymGroup(w, singular) {
			return NameMatch{Score: nameScoreSynonym, Rule: "synonym"}, true
		}
	}
	return NameMatch{}, false
}

func (h *NameHeuristics) lexicallyRelated(a, b string) bool {
	if a == b || a+"s" == b || b+"s" == a {
		return true
	}
	if inflection.Singular(a) == inflection.Singular(b) {
		return true
	}
	if len(a) >= 3 && len(b) >= 3 && (strings.Contains(a, b) || strings.Contains(b, a)) {
		return true
	}
	return StringSimilarity(a, b) > nameFuzzyThreshold
}

func (h *NameHeuristics) sameSynonymGroup(a, b string) bool {
	for _, g := range h.wordGroups[a] {
		if slices.Contains(h.wordGroups[b], g) {
			return true
		}
	}
	return false
}

// bestTokenRatio is the highest character ratio between any pair of tokens,
// including the two whole names.
func (h *NameHeuristics) bestTokenRatio(a, b NameComponents) float64 {
	best := StringSimilarity(strings.ToLower(a.Original), strings.ToLower(b.Original))
	for _, wa := range a.BaseWords {
		for _, wb := range b.BaseWords {
			best = max(best, StringSimilarity(wa, wb))
		}
	}
	return best
}

// baseTokens returns the singular form of each non-keyword token of a name.
func baseTokens(c NameComponents) []string {
	var out []string
	for _, w := range c.Words {
		if slices.Contains(c.BaseWords, w) {
			out = appendUnique(out, inflection.Singular(w))
		}
	}
	return out
}

// StrippedName is a column name with identifier keywords removed, singularized and
// joined with "_": "patient_id" and "PatientID" both become "patient".
func (h *NameHeuristics) StrippedName(column string) string {
	c := h.Components(column)
	return inflection.Singular(strings.Join(baseTokens(c), "_"))
}

func sharesWord(a, b []string) bool {
	for _, w := range a {
		if slices.Contains(b, w) {
			return true
		}
	}
	return false
}

func sameWordSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for _, w := range a {
		if !slices.Contains(b, w) {
			return false
		}
	}
	return true
}
