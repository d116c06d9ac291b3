package services

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-relate/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-relate/pkg/models"
)

const (
	// DefaultPatternSampleSize is how many non-null values feed the pattern histogram.
	DefaultPatternSampleSize = 100
	// DefaultSampleValueCount is how many distinct values a profile keeps for display.
	DefaultSampleValueCount = 5
)

// PatternRule classifies a value into a PatternKind. Rules are tried in order and
// the first match wins.
type PatternRule struct {
	Kind  models.PatternKind
	Match func(value string) bool
}

var (
	numericPattern = regexp.MustCompile(`^\d+$`)
	uuidPattern    = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	datePattern    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	phonePattern   = regexp.MustCompile(`^[\d\-\+\(\)]+$`)
)

// DefaultPatternRules returns the built-in classification cascade:
// numeric, uuid, email, date, phone. Values matching none are alphanumeric.
func DefaultPatternRules() []PatternRule {
	return []PatternRule{
		{Kind: models.PatternNumeric, Match: numericPattern.MatchString},
		{Kind: models.PatternUUID, Match: uuidPattern.MatchString},
		{Kind: models.PatternEmail, Match: func(v string) bool {
			return strings.Contains(v, "@") && strings.Contains(v, ".")
		}},
		{Kind: models.PatternDate, Match: datePattern.MatchString},
		{Kind: models.PatternPhone, Match: func(v string) bool {
			return len(v) >= 7 && phonePattern.MatchString(v)
		}},
	}
}

// datetimeLayouts are the layouts a value may use to count as a datetime.
var datetimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
}

// ColumnProfiler computes per-column statistics from raw table values.
type ColumnProfiler interface {
	// Profile computes the profile of one column.
	Profile(table, column string, values []*string) *models.ColumnProfile

	// ProfileTable profiles every column of a table, in column order.
	ProfileTable(ctx context.Context, table datasource.Table) ([]*models.ColumnProfile, error)
}

// ProfilerOptions tunes a ColumnProfiler. Zero values select the defaults.
type ProfilerOptions struct {
	PatternSampleSize int
	SampleValues      int
	Rules             []PatternRule
}

type columnProfiler struct {
	rules       []PatternRule
	patternSize int
	sampleCount int
	logger      *zap.Logger
}

// NewColumnProfiler creates a profiler.
func NewColumnProfiler(opts ProfilerOptions, logger *zap.Logger) ColumnProfiler {
	p := &columnProfiler{
		rules:       opts.Rules,
		patternSize: opts.PatternSampleSize,
		sampleCount: opts.SampleValues,
		logger:      logger.Named("column-profiler"),
	}
	if p.rules == nil {
		p.rules = DefaultPatternRules()
	}
	if p.patternSize <= 0 {
		p.patternSize = DefaultPatternSampleSize
	}
	if p.sampleCount <= 0 {
		p.sampleCount = DefaultSampleValueCount
	}
	return p
}

var _ ColumnProfiler = (*columnProfiler)(nil)

func (p *columnProfiler) ProfileTable(ctx context.Context, table datasource.Table) ([]*models.ColumnProfile, error) {
	columns := table.Columns()
	profiles := make([]*models.ColumnProfile, 0, len(columns))

	for _, column := range columns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		values, err := table.Values(column)
		if err != nil {
			return nil, fmt.Errorf("read %s.%s: %w", table.Name(), column, err)
		}
		profiles = append(profiles, p.Profile(table.Name(), column, values))
	}

	p.logger.Debug("Profiled table",
		zap.String("table", table.Name()),
		zap.Int("columns", len(profiles)),
		zap.Int("rows", table.RowCount()))

	return profiles, nil
}

func (p *columnProfiler) Profile(table, column string, values []*string) *models.ColumnProfile {
	profile := &models.ColumnProfile{
		Table:            table,
		Column:           column,
		TotalCount:       len(values),
		PatternHistogram: make(map[models.PatternKind]int),
	}

	seen := make(map[string]struct{})
	var nonNull []string
	for _, v := range values {
		if v == nil {
			profile.NullCount++
			continue
		}
		s := strings.TrimSpace(*v)
		nonNull = append(nonNull, s)

		key := CanonicalValue(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		if len(profile.SampleValues) < p.sampleCount {
			profile.SampleValues = append(profile.SampleValues, s)
		}
	}
	profile.UniqueCount = len(seen)

	profile.InferredType = inferType(nonNull)
	if profile.InferredType == models.InferredTypeNumeric {
		profile.NumericStats = numericStats(nonNull)
	}

	limit := min(len(nonNull), p.patternSize)
	for _, v := range nonNull[:limit] {
		profile.PatternHistogram[p.classify(v)]++
	}

	return profile
}

// classify returns the first matching rule's kind, or alphanumeric.
func (p *columnProfiler) classify(value string) models.PatternKind {
	for _, rule := range p.rules {
		if rule.Match(value) {
			return rule.Kind
		}
	}
	return models.PatternAlphanumeric
}

// inferType picks the narrowest type every non-null value satisfies, trying
// numeric, datetime and boolean before falling back to text.
func inferType(values []string) models.InferredType {
	if len(values) == 0 {
		return models.InferredTypeText
	}
	if allMatch(values, isNumber) {
		return models.InferredTypeNumeric
	}
	if allMatch(values, isDatetime) {
		return models.InferredTypeDatetime
	}
	if allMatch(values, isBoolean) {
		return models.InferredTypeBoolean
	}
	return models.InferredTypeText
}

func allMatch(values []string, fn func(string) bool) bool {
	for _, v := range values {
		if !fn(v) {
			return false
		}
	}
	return true
}

func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func isNumber(s string) bool {
	_, ok := parseNumber(s)
	return ok
}

func isDatetime(s string) bool {
	for _, layout := range datetimeLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func isBoolean(s string) bool {
	switch strings.ToLower(s) {
	case "true", "false", "yes", "no", "0", "1":
		return true
	}
	return false
}

func numericStats(values []string) *models.NumericStats {
	stats := &models.NumericStats{Min: math.Inf(1), Max: math.Inf(-1)}
	var sum float64
	for _, v := range values {
		f, _ := parseNumber(v)
		stats.Min = math.Min(stats.Min, f)
		stats.Max = math.Max(stats.Max, f)
		sum += f
	}
	stats.Mean = sum / float64(len(values))
	return stats
}

// CanonicalValue is the form values take when compared across columns.
// Integer text is kept as written so large IDs and zero-padded codes stay
// distinct. Decimal and exponent forms are reduced exactly, so "1.0" and "1"
// compare equal and "2.50" becomes "2.5". Other values are trimmed text.
func CanonicalValue(s string) string {
	s = strings.TrimSpace(s)
	if integerText.MatchString(s) {
		return s
	}
	if !isNumber(s) {
		return s
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return s
	}
	if r.IsInt() {
		return r.Num().String()
	}
	return exactDecimal(r)
}

var integerText = regexp.MustCompile(`^[+-]?\d+$`)

// maxDecimalPlaces bounds the expansion of a non-integer rational.
const maxDecimalPlaces = 64

// exactDecimal renders r with the fewest decimal places that represent it
// exactly. Values parsed from decimal text always terminate.
func exactDecimal(r *big.Rat) string {
	scaled := new(big.Rat).Set(r)
	ten := big.NewRat(10, 1)
	for places := 1; places <= maxDecimalPlaces; places++ {
		scaled.Mul(scaled, ten)
		if scaled.IsInt() {
			return r.FloatString(places)
		}
	}
	return r.RatString()
}

// ValueSet returns the distinct canonical non-null values of a column.
func ValueSet(values []*string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == nil {
			continue
		}
		set[CanonicalValue(*v)] = struct{}{}
	}
	return set
}
