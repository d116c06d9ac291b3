package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameHeuristics_NameSimilarity(t *testing.T) {
	h := DefaultNameHeuristics()

	tests := []struct {
		name  string
		src   NameSide
		tgt   NameSide
		score float64
		rule  string
	}{
		{
			name:  "FK column names the target table",
			src:   NameSide{Table: "pets", Column: "patient_id"},
			tgt:   NameSide{Table: "patients", Column: "id", IsPK: true},
			score: 0.9,
			rule:  "table_reference",
		},
		{
			name:  "camel case FK column names the target table",
			src:   NameSide{Table: "pets", Column: "PatientID"},
			tgt:   NameSide{Table: "patients", Column: "id", IsPK: true},
			score: 0.9,
			rule:  "table_reference",
		},
		{
			name:  "source is the PK side",
			src:   NameSide{Table: "patients", Column: "id", IsPK: true},
			tgt:   NameSide{Table: "pets", Column: "patient_id"},
			score: 0.9,
			rule:  "table_reference",
		},
		{
			name:  "synonym of the target table",
			src:   NameSide{Table: "visits", Column: "client_id"},
			tgt:   NameSide{Table: "patients", Column: "id", IsPK: true},
			score: 0.85,
			rule:  "synonym",
		},
		{
			name:  "both primary keys",
			src:   NameSide{Table: "pets", Column: "id", IsPK: true},
			tgt:   NameSide{Table: "patients", Column: "id", IsPK: true},
			score: 0,
			rule:  "both_primary_keys",
		},
		{
			name:  "shared identifier base",
			src:   NameSide{Table: "orders", Column: "customer_id"},
			tgt:   NameSide{Table: "invoices", Column: "customerKey"},
			score: 0.8,
			rule:  "shared_id_base",
		},
		{
			name:  "identical non-generic names",
			src:   NameSide{Table: "users", Column: "email"},
			tgt:   NameSide{Table: "contacts", Column: "Email"},
			score: 0.9,
			rule:  "identical_name",
		},
		{
			name:  "same base tokens in another order",
			src:   NameSide{Table: "a", Column: "zip_postal"},
			tgt:   NameSide{Table: "b", Column: "postalZips"},
			score: 0.9,
			rule:  "identical_base",
		},
		{
			name:  "both generic",
			src:   NameSide{Table: "a", Column: "status"},
			tgt:   NameSide{Table: "b", Column: "status"},
			score: 0.1,
			rule:  "both_generic",
		},
		{
			name:  "fuzzy spelling",
			src:   NameSide{Table: "a", Column: "colour"},
			tgt:   NameSide{Table: "b", Column: "color"},
			score: 10.0 / 11.0 * 0.7,
			rule:  "fuzzy",
		},
		{
			name:  "unrelated",
			src:   NameSide{Table: "a", Column: "price"},
			tgt:   NameSide{Table: "b", Column: "email"},
			score: 0,
			rule:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := h.NameSimilarity(tt.src, tt.tgt)
			assert.InDelta(t, tt.score, m.Score, 1e-9)
			assert.Equal(t, tt.rule, m.Rule)
		})
	}
}

func TestNameHeuristics_StrippedName(t *testing.T) {
	h := DefaultNameHeuristics()

	tests := []struct {
		column   string
		expected string
	}{
		{"patient_id", "patient"},
		{"PatientID", "patient"},
		{"owners_key", "owner"},
		{"id", ""},
		{"billing_address_id", "billing_address"},
	}

	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			assert.Equal(t, tt.expected, h.StrippedName(tt.column))
		})
	}
}
