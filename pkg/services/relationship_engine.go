package services

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ekaya-inc/ekaya-relate/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-relate/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-relate/pkg/models"
)

// ProgressCallback reports stage progress. Calls are serialized.
type ProgressCallback func(current, total int, message string)

// EngineConfig tunes one RelationshipEngine.
type EngineConfig struct {
	MinConfidence float64
	Tiers         models.TierThresholds
	// Workers bounds parallel profiling and pair scoring. Zero means GOMAXPROCS.
	Workers  int
	Weights  ScoringWeights
	Profiler ProfilerOptions
}

// DefaultEngineConfig returns the default cutoff, tiers and weights.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MinConfidence: DefaultMinConfidence,
		Tiers:         models.DefaultTierThresholds(),
		Weights:       DefaultScoringWeights(),
		Profiler: ProfilerOptions{
			PatternSampleSize: DefaultPatternSampleSize,
			SampleValues:      DefaultSampleValueCount,
		},
	}
}

// RelationshipEngine infers primary keys and FK -> PK relationships from table data.
type RelationshipEngine interface {
	// Analyze runs the full pipeline. Identical tables produce identical candidates
	// in identical order; only RunID and timestamps differ between runs.
	Analyze(ctx context.Context, tables []datasource.Table) (*models.AnalysisResult, error)

	// AnalyzeWithProgress is Analyze with a progress callback.
	AnalyzeWithProgress(ctx context.Context, tables []datasource.Table, onProgress ProgressCallback) (*models.AnalysisResult, error)

	// ProfileTables runs profiling and primary-key inference only.
	ProfileTables(ctx context.Context, tables []datasource.Table) ([]*models.ColumnProfile, models.PrimaryKeyAssignment, error)
}

// EngineOption configures optional collaborators.
type EngineOption func(*relationshipEngine)

// WithEmbeddings adds the semantic signal. Embedding failures degrade the run.
func WithEmbeddings(provider EmbeddingProvider) EngineOption {
	return func(e *relationshipEngine) {
		e.embeddings = provider
	}
}

// WithValidator annotates ranked candidates with LLM judgments.
func WithValidator(validator RelationshipValidator) EngineOption {
	return func(e *relationshipEngine) {
		e.validator = validator
	}
}

type relationshipEngine struct {
	config     EngineConfig
	heuristics *NameHeuristics
	profiler   ColumnProfiler
	pks        PrimaryKeyInferencer
	scorer     RelationshipScorer
	direction  DirectionResolver
	aggregator CandidateAggregator
	embeddings EmbeddingProvider
	validator  RelationshipValidator
	logger     *zap.Logger
}

// NewRelationshipEngine creates a RelationshipEngine. heuristics may be nil for
// the built-in name rules.
func NewRelationshipEngine(config EngineConfig, heuristics *NameHeuristics, logger *zap.Logger, opts ...EngineOption) RelationshipEngine {
	if heuristics == nil {
		heuristics = DefaultNameHeuristics()
	}
	if config.Workers <= 0 {
		config.Workers = runtime.GOMAXPROCS(0)
	}
	if config.Tiers == (models.TierThresholds{}) {
		config.Tiers = models.DefaultTierThresholds()
	}
	if config.Weights == (ScoringWeights{}) {
		config.Weights = DefaultScoringWeights()
	}

	e := &relationshipEngine{
		config:     config,
		heuristics: heuristics,
		profiler:   NewColumnProfiler(config.Profiler, logger),
		pks:        NewPrimaryKeyInferencer(heuristics, logger),
		scorer:     NewRelationshipScorer(heuristics, config.Weights, logger),
		direction:  NewDirectionResolver(heuristics, logger),
		aggregator: NewCandidateAggregator(config.MinConfidence, config.Tiers, logger),
		logger:     logger.Named("relationship-engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var _ RelationshipEngine = (*relationshipEngine)(nil)

// columnData is one profiled column with its value set.
type columnData struct {
	profile *models.ColumnProfile
	values  map[string]struct{}
}

func (e *relationshipEngine) Analyze(ctx context.Context, tables []datasource.Table) (*models.AnalysisResult, error) {
	return e.AnalyzeWithProgress(ctx, tables, nil)
}

func (e *relationshipEngine) AnalyzeWithProgress(ctx context.Context, tables []datasource.Table, onProgress ProgressCallback) (*models.AnalysisResult, error) {
	progress := serializeProgress(onProgress)
	started := time.Now()

	if err := checkTables(tables); err != nil {
		return nil, err
	}

	// Stage 1: profile every column.
	columns, err := e.profileColumns(ctx, tables, progress)
	if err != nil {
		return nil, err
	}

	// Stage 2: one primary key per table.
	byTable := make(map[string][]*models.ColumnProfile, len(tables))
	profiles := make([]*models.ColumnProfile, len(columns))
	for i, c := range columns {
		profiles[i] = c.profile
		byTable[c.profile.Table] = append(byTable[c.profile.Table], c.profile)
	}
	pks := e.pks.Infer(byTable)

	inputs := make([]ScoringInput, len(columns))
	for i, c := range columns {
		inputs[i] = ScoringInput{
			Profile: c.profile,
			Values:  c.values,
			IsPK:    pks.IsPrimaryKey(c.profile.Table, c.profile.Column),
		}
	}

	result := &models.AnalysisResult{
		RunID:       uuid.New(),
		Profiles:    profiles,
		PrimaryKeys: pks,
		StartedAt:   started,
	}
	for _, t := range tables {
		result.Tables = append(result.Tables, t.Name())
	}

	if e.embeddings != nil {
		if degraded := e.attachEmbeddings(ctx, inputs); degraded != nil {
			result.Degraded = append(result.Degraded, *degraded)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	// Stage 3: score unordered pairs across tables.
	pairs := buildPairs(inputs)
	slots, err := e.scorePairs(ctx, inputs, pairs, progress)
	if err != nil {
		return nil, err
	}

	var directional []*models.RelationshipCandidate
	for _, c := range slots {
		if c != nil {
			directional = append(directional, c)
		}
	}

	// Stage 4: dedupe, cut off and rank.
	candidates := e.aggregator.Aggregate(directional)
	result.Candidates = candidates

	if e.validator != nil && len(candidates) > 0 {
		lookup := profileLookup(profiles)
		judgments, degraded, err := e.validator.Validate(ctx, candidates, lookup, progress)
		if err != nil {
			return nil, fmt.Errorf("validate candidates: %w", err)
		}
		result.Judgments = judgments
		if degraded != nil {
			result.Degraded = append(result.Degraded, *degraded)
		}
	}

	result.Summary = e.summarize(tables, profiles, pks, len(pairs), candidates)
	result.FinishedAt = time.Now()

	e.logger.Info("Analysis complete",
		zap.String("run_id", result.RunID.String()),
		zap.Int("tables", len(tables)),
		zap.Int("columns", len(profiles)),
		zap.Int("primary_keys", len(pks)),
		zap.Int("pairs", len(pairs)),
		zap.Int("candidates", len(candidates)),
		zap.Bool("degraded", result.IsDegraded()),
		zap.Duration("elapsed", result.FinishedAt.Sub(started)))

	return result, nil
}

func (e *relationshipEngine) ProfileTables(ctx context.Context, tables []datasource.Table) ([]*models.ColumnProfile, models.PrimaryKeyAssignment, error) {
	if err := checkTables(tables); err != nil {
		return nil, nil, err
	}
	columns, err := e.profileColumns(ctx, tables, nil)
	if err != nil {
		return nil, nil, err
	}
	byTable := make(map[string][]*models.ColumnProfile, len(tables))
	profiles := make([]*models.ColumnProfile, len(columns))
	for i, c := range columns {
		profiles[i] = c.profile
		byTable[c.profile.Table] = append(byTable[c.profile.Table], c.profile)
	}
	return profiles, e.pks.Infer(byTable), nil
}

func checkTables(tables []datasource.Table) error {
	if len(tables) == 0 {
		return apperrors.ErrNoTables
	}
	seen := make(map[string]bool, len(tables))
	for _, t := range tables {
		if seen[t.Name()] {
			return fmt.Errorf("%w: %s", apperrors.ErrDuplicateTable, t.Name())
		}
		seen[t.Name()] = true
	}
	return nil
}

// profileColumns profiles tables in parallel and returns columns in table order,
// then declared column order.
func (e *relationshipEngine) profileColumns(ctx context.Context, tables []datasource.Table, progress ProgressCallback) ([]columnData, error) {
	perTable := make([][]columnData, len(tables))
	var done int
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Workers)
	for i, t := range tables {
		g.Go(func() error {
			cols := t.Columns()
			data := make([]columnData, 0, len(cols))
			for _, col := range cols {
				if err := gctx.Err(); err != nil {
					return err
				}
				values, err := t.Values(col)
				if err != nil {
					return fmt.Errorf("read %s.%s: %w", t.Name(), col, err)
				}
				data = append(data, columnData{
					profile: e.profiler.Profile(t.Name(), col, values),
					values:  ValueSet(values),
				})
			}
			perTable[i] = data

			if progress != nil {
				mu.Lock()
				done++
				progress(done, len(tables), fmt.Sprintf("Profiled table %s", t.Name()))
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("profile tables: %w", err)
	}

	var columns []columnData
	for _, data := range perTable {
		columns = append(columns, data...)
	}
	return columns, nil
}

// attachEmbeddings fills ScoringInput.Embedding for every non-empty column in one
// batched call. On failure inputs are left untouched.
func (e *relationshipEngine) attachEmbeddings(ctx context.Context, inputs []ScoringInput) *models.DegradedMode {
	var idx []int
	var texts []string
	for i, in := range inputs {
		if in.Profile.IsEmpty() {
			continue
		}
		idx = append(idx, i)
		texts = append(texts, ColumnDescription(in.Profile, in.IsPK, e.heuristics.MatchesFKPattern(in.Column())))
	}
	if len(texts) == 0 {
		return nil
	}

	vectors, err := e.embeddings.Embed(ctx, texts)
	if err == nil && len(vectors) != len(texts) {
		err = fmt.Errorf("got %d vectors for %d columns", len(vectors), len(texts))
	}
	if err != nil {
		e.logger.Warn("Semantic signal unavailable, scoring on heuristics only", zap.Error(err))
		return &models.DegradedMode{
			Component: models.ComponentEmbedding,
			Reason:    err.Error(),
		}
	}

	for n, i := range idx {
		inputs[i].Embedding = vectors[n]
	}
	return nil
}

// buildPairs lists unordered column pairs (i < j) from different tables, skipping
// empty columns.
func buildPairs(inputs []ScoringInput) [][2]int {
	var pairs [][2]int
	for i := range inputs {
		if inputs[i].Profile.IsEmpty() {
			continue
		}
		for j := i + 1; j < len(inputs); j++ {
			if inputs[j].Profile.IsEmpty() || inputs[i].Table() == inputs[j].Table() {
				continue
			}
			pairs = append(pairs, [2]int{i, j})
		}
	}
	return pairs
}

// scorePairs scores each pair in both orientations, resolves direction and keeps
// the orientation that survives. Each worker writes only its own slot.
func (e *relationshipEngine) scorePairs(ctx context.Context, inputs []ScoringInput, pairs [][2]int, progress ProgressCallback) ([]*models.RelationshipCandidate, error) {
	slots := make([]*models.RelationshipCandidate, len(pairs))
	if len(pairs) == 0 {
		return slots, nil
	}

	step := max(1, len(pairs)/100)
	var done int
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Workers)
	for k, p := range pairs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[k] = e.scorePair(inputs[p[0]], inputs[p[1]])

			if progress != nil {
				mu.Lock()
				done++
				if done%step == 0 || done == len(pairs) {
					progress(done, len(pairs), "Scoring column pairs")
				}
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("score pairs: %w", err)
	}
	return slots, nil
}

// scorePair returns the candidate of the resolved orientation, or nil when neither
// orientation scores, the direction is unresolved, or the resolved orientation
// scored nothing.
func (e *relationshipEngine) scorePair(a, b ScoringInput) *models.RelationshipCandidate {
	forward, okF := e.scorer.Score(a, b)
	reverse, okR := e.scorer.Score(b, a)
	if !okF && !okR {
		return nil
	}

	fk, pk, rule, ok := e.direction.Resolve(a, b)
	if !ok {
		return nil
	}

	c := reverse
	if fk.Profile == a.Profile {
		c = forward
	}
	if c == nil {
		return nil
	}

	c.Evidence.DirectionRule = rule
	c.Cardinality = InferCardinality(fk.Profile, pk.Profile)
	return c
}

func (e *relationshipEngine) summarize(
	tables []datasource.Table,
	profiles []*models.ColumnProfile,
	pks models.PrimaryKeyAssignment,
	pairs int,
	candidates []*models.RelationshipCandidate,
) models.AnalysisSummary {
	byTier := make(map[models.ConfidenceTier]int, len(models.ValidConfidenceTiers))
	for tier, group := range e.aggregator.GroupByTier(candidates) {
		byTier[tier] = len(group)
	}
	return models.AnalysisSummary{
		Tables:           len(tables),
		Columns:          len(profiles),
		PrimaryKeys:      len(pks),
		PairsScored:      pairs,
		Candidates:       len(candidates),
		CandidatesByTier: byTier,
	}
}

func profileLookup(profiles []*models.ColumnProfile) ProfileLookup {
	index := make(map[string]*models.ColumnProfile, len(profiles))
	for _, p := range profiles {
		index[p.QualifiedName()] = p
	}
	return func(table, column string) *models.ColumnProfile {
		return index[table+"."+column]
	}
}

// serializeProgress guards a callback so workers can report concurrently.
func serializeProgress(fn ProgressCallback) ProgressCallback {
	if fn == nil {
		return nil
	}
	var mu sync.Mutex
	return func(current, total int, message string) {
		mu.Lock()
		defer mu.Unlock()
		fn(current, total, message)
	}
}
