package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-relate/pkg/jsonutil"
	"github.com/ekaya-inc/ekaya-relate/pkg/llm"
	"github.com/ekaya-inc/ekaya-relate/pkg/models"
	"github.com/ekaya-inc/ekaya-relate/pkg/retry"
)

// DefaultValidationTemperature is the sampling temperature for validation prompts.
const DefaultValidationTemperature = 0.1

// promptSampleValues is how many sample values of each column go into a prompt.
const promptSampleValues = 3

// ProfileLookup returns the profile of table.column, or nil.
type ProfileLookup func(table, column string) *models.ColumnProfile

// RelationshipValidator asks an LLM to judge ranked candidates.
type RelationshipValidator interface {
	// Validate returns one judgment per candidate, aligned by index. A candidate
	// whose call fails gets an invalid judgment with zero confidence. The returned
	// DegradedMode is non-nil when no candidate could be judged or the circuit
	// breaker opened. The error is non-nil only when ctx ends.
	Validate(
		ctx context.Context,
		candidates []*models.RelationshipCandidate,
		lookup ProfileLookup,
		onProgress func(current, total int, message string),
	) ([]*models.ValidationJudgment, *models.DegradedMode, error)
}

type relationshipValidator struct {
	llmFactory     llm.LLMClientFactory
	workerPool     *llm.WorkerPool
	circuitBreaker *llm.CircuitBreaker
	temperature    float64
	retryConfig    *retry.Config
	logger         *zap.Logger
}

// NewRelationshipValidator creates a RelationshipValidator. The worker pool and
// circuit breaker may be shared with other validators.
func NewRelationshipValidator(
	llmFactory llm.LLMClientFactory,
	workerPool *llm.WorkerPool,
	circuitBreaker *llm.CircuitBreaker,
	temperature float64,
	logger *zap.Logger,
) RelationshipValidator {
	return &relationshipValidator{
		llmFactory:     llmFactory,
		workerPool:     workerPool,
		circuitBreaker: circuitBreaker,
		temperature:    temperature,
		retryConfig: &retry.Config{
			MaxRetries:       3,
			InitialDelay:     500 * time.Millisecond,
			MaxDelay:         10 * time.Second,
			Multiplier:       2.0,
			JitterFactor:     0.1,
			MaxSameErrorType: 3,
		},
		logger: logger.Named("relationship-validator"),
	}
}

var _ RelationshipValidator = (*relationshipValidator)(nil)

// validationResponse is the JSON object the model is asked to return.
// Fields are raw so that loosely typed answers still parse.
type validationResponse struct {
	IsValid          json.RawMessage `json:"is_valid"`
	Confidence       json.RawMessage `json:"confidence"`
	Explanation      json.RawMessage `json:"explanation"`
	RelationshipType json.RawMessage `json:"relationship_type"`
	Recommendation   json.RawMessage `json:"recommendation"`
}

func (v *relationshipValidator) Validate(
	ctx context.Context,
	candidates []*models.RelationshipCandidate,
	lookup ProfileLookup,
	onProgress func(current, total int, message string),
) ([]*models.ValidationJudgment, *models.DegradedMode, error) {
	if len(candidates) == 0 {
		return nil, nil, nil
	}

	client, err := v.llmFactory.CreateChatClient()
	if err != nil {
		v.logger.Warn("Validation skipped, no LLM client", zap.Error(err))
		judgments := make([]*models.ValidationJudgment, len(candidates))
		for i, c := range candidates {
			judgments[i] = failedJudgment(c, err)
		}
		return judgments, &models.DegradedMode{
			Component: models.ComponentValidator,
			Reason:    fmt.Sprintf("create LLM client: %v", err),
		}, nil
	}

	items := make([]llm.WorkItem[*models.ValidationJudgment], len(candidates))
	for i, c := range candidates {
		items[i] = llm.WorkItem[*models.ValidationJudgment]{
			ID: c.Source() + "->" + c.Target(),
			Execute: func(ctx context.Context) (*models.ValidationJudgment, error) {
				return v.validateOne(ctx, client, c, lookup)
			},
		}
	}

	results := llm.Process(ctx, v.workerPool, items, func(completed, total int) {
		if onProgress != nil {
			onProgress(completed, total, fmt.Sprintf("Validated %d of %d candidates", completed, total))
		}
	})

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	judgments := make([]*models.ValidationJudgment, len(candidates))
	failures := 0
	circuitOpened := false
	var lastErr error
	for i, r := range results {
		if r.Err != nil {
			failures++
			lastErr = r.Err
			if errors.Is(r.Err, llm.ErrCircuitOpen) {
				circuitOpened = true
			}
			judgments[i] = failedJudgment(candidates[i], r.Err)
			continue
		}
		judgments[i] = r.Result
	}

	v.logger.Info("Validation finished",
		zap.Int("candidates", len(candidates)),
		zap.Int("failed", failures),
		zap.String("circuit_state", v.circuitBreaker.State().String()))

	var degraded *models.DegradedMode
	switch {
	case circuitOpened:
		degraded = &models.DegradedMode{
			Component: models.ComponentValidator,
			Reason:    fmt.Sprintf("circuit breaker opened after %d failed calls", v.circuitBreaker.ConsecutiveFailures()),
		}
	case failures == len(candidates):
		degraded = &models.DegradedMode{
			Component: models.ComponentValidator,
			Reason:    fmt.Sprintf("all %d validation calls failed: %v", failures, lastErr),
		}
	}

	return judgments, degraded, nil
}

func (v *relationshipValidator) validateOne(
	ctx context.Context,
	client llm.LLMClient,
	c *models.RelationshipCandidate,
	lookup ProfileLookup,
) (*models.ValidationJudgment, error) {
	if allowed, err := v.circuitBreaker.Allow(); !allowed {
		return nil, err
	}

	prompt := v.buildPrompt(c, lookup)

	var result *llm.GenerateResponseResult
	err := retry.DoIfRetryable(ctx, v.retryConfig, func() error {
		var callErr error
		result, callErr = client.GenerateResponse(ctx, prompt, v.buildSystemMessage(), v.temperature, false)
		if callErr != nil {
			classified := llm.ClassifyError(callErr)
			v.logger.Warn("Validation call failed",
				zap.String("candidate", c.Source()+"->"+c.Target()),
				zap.String("error_type", string(classified.Type)),
				zap.Bool("retryable", classified.Retryable),
				zap.Error(callErr))
			return classified
		}
		return nil
	})
	if err != nil {
		v.circuitBreaker.RecordFailure()
		return nil, fmt.Errorf("validate %s->%s: %w", c.Source(), c.Target(), err)
	}
	v.circuitBreaker.RecordSuccess()

	resp, err := llm.ParseJSONResponse[validationResponse](result.Content)
	if err != nil {
		return nil, fmt.Errorf("parse validation of %s->%s: %w", c.Source(), c.Target(), err)
	}

	return judgmentFromResponse(c, resp), nil
}

func judgmentFromResponse(c *models.RelationshipCandidate, resp validationResponse) *models.ValidationJudgment {
	confidence, _ := jsonutil.FlexibleFloatValue(resp.Confidence)
	return &models.ValidationJudgment{
		SourceTable:          c.SourceTable,
		SourceColumn:         c.SourceColumn,
		TargetTable:          c.TargetTable,
		TargetColumn:         c.TargetColumn,
		IsValid:              jsonutil.FlexibleBoolValue(resp.IsValid),
		Confidence:           NormalizeJudgmentConfidence(confidence),
		Explanation:          jsonutil.FlexibleStringValue(resp.Explanation),
		SuggestedCardinality: jsonutil.FlexibleStringValue(resp.RelationshipType),
		Recommendation:       jsonutil.FlexibleStringValue(resp.Recommendation),
	}
}

// NormalizeJudgmentConfidence maps a 0-100 answer onto [0,1]. Answers already in
// [0,1] are kept.
func NormalizeJudgmentConfidence(raw float64) float64 {
	if math.IsNaN(raw) || raw <= 0 {
		return 0
	}
	if raw > 1 {
		raw /= 100
	}
	return math.Min(raw, 1)
}

func failedJudgment(c *models.RelationshipCandidate, err error) *models.ValidationJudgment {
	return &models.ValidationJudgment{
		SourceTable:  c.SourceTable,
		SourceColumn: c.SourceColumn,
		TargetTable:  c.TargetTable,
		TargetColumn: c.TargetColumn,
		IsValid:      false,
		Confidence:   0,
		Error:        err.Error(),
	}
}

func (v *relationshipValidator) buildSystemMessage() string {
	return `You are a database relationship expert. You review one proposed foreign key relationship at a time, inferred statistically from table data without any declared constraints.

Judge whether the source column genuinely references the target column.

Reject candidates that are:
- Coincidental matches (small integers that happen to match an unrelated key)
- Measurements, counters or codes that share a value range with a key
- Relationships pointing the wrong way

Respond with a single JSON object and nothing else.`
}

func (v *relationshipValidator) buildPrompt(c *models.RelationshipCandidate, lookup ProfileLookup) string {
	var sb strings.Builder

	sb.WriteString("# Relationship Validation\n\n")
	sb.WriteString(fmt.Sprintf("Proposed: `%s` references `%s`\n\n", c.Source(), c.Target()))

	sb.WriteString("## Columns\n\n")
	writeColumnContext(&sb, "Source", c.SourceTable, c.SourceColumn, lookup)
	writeColumnContext(&sb, "Target", c.TargetTable, c.TargetColumn, lookup)

	sb.WriteString("## Evidence\n\n")
	sb.WriteString(fmt.Sprintf("- Engine confidence: %.2f\n", c.Confidence))
	sb.WriteString(fmt.Sprintf("- Name similarity: %.2f\n", c.Evidence.NameSimilarity))
	sb.WriteString(fmt.Sprintf("- Value overlap: %.1f%% (%d shared values)\n", c.Evidence.OverlapPercentage, c.Evidence.OverlapCount))
	sb.WriteString(fmt.Sprintf("- Target is primary key: %t\n", c.Evidence.TargetIsPK))
	if c.Cardinality != "" {
		sb.WriteString(fmt.Sprintf("- Cardinality: %s\n", c.Cardinality))
	}

	sb.WriteString("\n## Response Format\n\n")
	sb.WriteString("```json\n")
	sb.WriteString(`{
  "is_valid": true,
  "confidence": 85,
  "explanation": "one or two sentences",
  "relationship_type": "N:1",
  "recommendation": "accept"
}`)
	sb.WriteString("\n```\n\n")
	sb.WriteString("confidence is 0-100. relationship_type is one of 1:1, N:1, 1:N, N:M. recommendation is accept, review or reject.\n")

	return sb.String()
}

func writeColumnContext(sb *strings.Builder, label, table, column string, lookup ProfileLookup) {
	sb.WriteString(fmt.Sprintf("**%s:** `%s.%s`\n", label, table, column))
	var p *models.ColumnProfile
	if lookup != nil {
		p = lookup(table, column)
	}
	if p == nil {
		sb.WriteString("\n")
		return
	}
	sb.WriteString(fmt.Sprintf("- Rows: %d\n", p.TotalCount))
	sb.WriteString(fmt.Sprintf("- Type: %s\n", p.InferredType))
	sb.WriteString(fmt.Sprintf("- Distinct values: %d, nulls: %d\n", p.UniqueCount, p.NullCount))
	samples := p.SampleValues
	if len(samples) > promptSampleValues {
		samples = samples[:promptSampleValues]
	}
	if len(samples) > 0 {
		sb.WriteString(fmt.Sprintf("- Samples: %s\n", strings.Join(samples, ", ")))
	}
	sb.WriteString("\n")
}
