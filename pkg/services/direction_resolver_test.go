package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-relate/pkg/models"
)

func TestDirectionResolver_Resolve(t *testing.T) {
	r := NewDirectionResolver(DefaultNameHeuristics(), zap.NewNop())

	tests := []struct {
		name   string
		a      ScoringInput
		b      ScoringInput
		wantFK string
		rule   models.DirectionRule
	}{
		{
			name:   "primary key side is referenced",
			a:      input(t, "patients", "id", true, "1", "2", "3"),
			b:      input(t, "pets", "patient_id", false, "1", "1", "2"),
			wantFK: "pets.patient_id",
			rule:   models.DirectionRulePrimaryKey,
		},
		{
			name:   "primary key rule ignores uniqueness",
			a:      input(t, "pets", "tag", false, "a", "b", "c", "d"),
			b:      input(t, "tags", "code", true, "a", "b"),
			wantFK: "pets.tag",
			rule:   models.DirectionRulePrimaryKey,
		},
		{
			name:   "clearly more unique side is referenced",
			a:      input(t, "orders", "region", false, "n", "n", "n", "s"),
			b:      input(t, "regions", "region", false, "n", "s", "e", "w"),
			wantFK: "orders.region",
			rule:   models.DirectionRuleUniqueness,
		},
		{
			name:   "both keys fall through to uniqueness",
			a:      input(t, "a", "id", true, "1", "2", "3", "4"),
			b:      input(t, "b", "id", true, "1", "2", "3", "4"),
			wantFK: "",
		},
		{
			name:   "FK-named side references the other",
			a:      input(t, "clinics", "city", false, "oslo", "rome", "oslo", "rome", "nice"),
			b:      input(t, "visits", "city_ref", false, "oslo", "rome", "nice", "oslo"),
			wantFK: "visits.city_ref",
			rule:   models.DirectionRuleNamePattern,
		},
		{
			name:   "more distinct values is referenced",
			a:      input(t, "a", "region", false, "n", "s", "e", "w", "n"),
			b:      input(t, "b", "region", false, "n", "s", "e", "n"),
			wantFK: "b.region",
			rule:   models.DirectionRuleUniqueCount,
		},
		{
			name:   "identical uniqueness and no FK name is unresolved",
			a:      input(t, "shipments", "region", false, "north", "south", "north", "south"),
			b:      input(t, "stores", "region", false, "south", "north", "south", "north"),
			wantFK: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fk, pk, rule, ok := r.Resolve(tt.a, tt.b)
			if tt.wantFK == "" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.wantFK, fk.Profile.QualifiedName())
			assert.NotEqual(t, fk.Profile.QualifiedName(), pk.Profile.QualifiedName())
			assert.Equal(t, tt.rule, rule)

			// Argument order does not change the outcome.
			fk2, _, rule2, ok2 := r.Resolve(tt.b, tt.a)
			require.True(t, ok2)
			assert.Equal(t, tt.wantFK, fk2.Profile.QualifiedName())
			assert.Equal(t, tt.rule, rule2)
		})
	}
}
