// Package tools provides MCP tool implementations for ekaya-relate.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-relate/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-relate/pkg/models"
	"github.com/ekaya-inc/ekaya-relate/pkg/report"
	"github.com/ekaya-inc/ekaya-relate/pkg/services"
)

// RelationshipToolDeps contains dependencies for the relationship tools.
type RelationshipToolDeps struct {
	Analysis services.AnalysisService
	Tiers    models.TierThresholds
	Logger   *zap.Logger
}

// RegisterRelationshipTools registers the inference tools. Stored-run tools are
// only registered when the analysis service has a results store.
func RegisterRelationshipTools(s *server.MCPServer, deps *RelationshipToolDeps) {
	registerListSourceTypesTool(s, deps)
	registerInferRelationshipsTool(s, deps)
	registerProfileColumnsTool(s, deps)
	registerGetPrimaryKeysTool(s, deps)
	if deps.Analysis.StoreEnabled() {
		registerGetAnalysisRunTool(s, deps)
		registerListAnalysisRunsTool(s, deps)
	}
}

func registerListSourceTypesTool(s *server.MCPServer, deps *RelationshipToolDeps) {
	tool := mcp.NewTool(
		"list_source_types",
		mcp.WithDescription("Lists the table sources this server can read. Use a returned type as source_type in the other tools."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(map[string]any{"source_types": deps.Analysis.SourceTypes()})
	})
}

func registerInferRelationshipsTool(s *server.MCPServer, deps *RelationshipToolDeps) {
	opts := []mcp.ToolOption{
		mcp.WithDescription(
			"Infer primary keys and foreign key relationships from the data in a source. " +
				"Every column is profiled, cross-table column pairs are scored on name similarity, type compatibility, " +
				"value overlap and pattern similarity, and each relationship is returned FK -> PK with a confidence, " +
				"tier (high/medium/low), cardinality and evidence. " +
				"Example: infer_relationships(source_type='csv', path='/data/clinic').",
		),
	}
	opts = append(opts, sourceOptions()...)
	opts = append(opts,
		mcp.WithNumber(
			"min_confidence",
			mcp.Description("Only return relationships at or above this confidence (default: all above the engine cutoff)"),
		),
		mcp.WithString(
			"tier",
			mcp.Description("Only return relationships in this tier"),
			mcp.Enum("high", "medium", "low"),
		),
		mcp.WithNumber(
			"limit",
			mcp.Description("Return at most this many ranked relationships (default: all)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)
	tool := mcp.NewTool("infer_relationships", opts...)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if _, err := req.RequireString("source_type"); err != nil {
			return nil, err
		}
		sourceReq, errResult := sourceRequest(req)
		if errResult != nil {
			return errResult, nil
		}

		reportOpts := report.Options{Tiers: deps.Tiers}
		if v, ok := getOptionalFloat(req, "min_confidence"); ok {
			if v < 0 || v > 1 {
				return NewErrorResult("invalid_parameters", "parameter 'min_confidence' must be between 0 and 1"), nil
			}
			reportOpts.MinConfidence = v
		}
		if tier := getOptionalString(req, "tier"); tier != "" {
			if !models.IsValidConfidenceTier(models.ConfidenceTier(tier)) {
				return NewErrorResult("invalid_parameters", fmt.Sprintf("parameter 'tier' must be high, medium or low, got %q", tier)), nil
			}
			reportOpts.Tier = models.ConfidenceTier(tier)
		}
		if v, ok := getOptionalFloat(req, "limit"); ok && v > 0 {
			reportOpts.Limit = int(v)
		}

		result, err := deps.Analysis.Analyze(ctx, sourceReq, nil)
		if err != nil {
			return toolError(deps, "infer_relationships", sourceReq, err)
		}
		return jsonResult(report.Build(result, reportOpts))
	})
}

func registerProfileColumnsTool(s *server.MCPServer, deps *RelationshipToolDeps) {
	opts := []mcp.ToolOption{
		mcp.WithDescription(
			"Profile every column in a source: inferred data type, null and unique counts, dominant value pattern " +
				"and sample values, plus the inferred primary key of each table. Does not score relationships.",
		),
	}
	opts = append(opts, sourceOptions()...)
	opts = append(opts,
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)
	tool := mcp.NewTool("profile_columns", opts...)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if _, err := req.RequireString("source_type"); err != nil {
			return nil, err
		}
		sourceReq, errResult := sourceRequest(req)
		if errResult != nil {
			return errResult, nil
		}

		result, err := deps.Analysis.Profile(ctx, sourceReq)
		if err != nil {
			return toolError(deps, "profile_columns", sourceReq, err)
		}
		doc := report.BuildProfile(result)
		return jsonResult(map[string]any{
			"tables":       doc.Tables,
			"primary_keys": doc.PrimaryKeys,
			"columns":      doc.Profiles,
		})
	})
}

type primaryKeysResponse struct {
	PrimaryKeys []report.PrimaryKey `json:"primary_keys"`
	// WithoutKey lists tables where no column qualified.
	WithoutKey []string `json:"tables_without_key"`
}

func registerGetPrimaryKeysTool(s *server.MCPServer, deps *RelationshipToolDeps) {
	opts := []mcp.ToolOption{
		mcp.WithDescription(
			"Infer the primary key of each table in a source. A column qualifies when every row holds a distinct " +
				"non-null value; candidates are ranked by name (id, <table>_id, *_id) and type.",
		),
	}
	opts = append(opts, sourceOptions()...)
	opts = append(opts,
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)
	tool := mcp.NewTool("get_primary_keys", opts...)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if _, err := req.RequireString("source_type"); err != nil {
			return nil, err
		}
		sourceReq, errResult := sourceRequest(req)
		if errResult != nil {
			return errResult, nil
		}

		result, err := deps.Analysis.Profile(ctx, sourceReq)
		if err != nil {
			return toolError(deps, "get_primary_keys", sourceReq, err)
		}

		doc := report.BuildProfile(result)
		resp := primaryKeysResponse{PrimaryKeys: doc.PrimaryKeys, WithoutKey: []string{}}
		for _, table := range doc.Tables {
			if _, ok := result.PrimaryKeys[table]; !ok {
				resp.WithoutKey = append(resp.WithoutKey, table)
			}
		}
		sort.Strings(resp.WithoutKey)
		return jsonResult(resp)
	})
}

func registerGetAnalysisRunTool(s *server.MCPServer, deps *RelationshipToolDeps) {
	tool := mcp.NewTool(
		"get_analysis_run",
		mcp.WithDescription("Return a stored analysis run by run_id, in the same shape infer_relationships returns."),
		mcp.WithString(
			"run_id",
			mcp.Required(),
			mcp.Description("run_id from infer_relationships or list_analysis_runs"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		runIDStr, err := req.RequireString("run_id")
		if err != nil {
			return nil, err
		}
		runID, err := uuid.Parse(trimString(runIDStr))
		if err != nil {
			return NewErrorResult("invalid_parameters", fmt.Sprintf("run_id %q is not a UUID", runIDStr)), nil
		}

		result, err := deps.Analysis.GetRun(ctx, runID)
		if err != nil {
			if errResult := errorResultFor(err); errResult != nil {
				return errResult, nil
			}
			return nil, fmt.Errorf("failed to get analysis run: %w", err)
		}
		return jsonResult(report.Build(result, report.Options{Tiers: deps.Tiers}))
	})
}

func registerListAnalysisRunsTool(s *server.MCPServer, deps *RelationshipToolDeps) {
	tool := mcp.NewTool(
		"list_analysis_runs",
		mcp.WithDescription("List stored analysis runs, newest first."),
		mcp.WithNumber(
			"limit",
			mcp.Description("Max runs to return (default: 20, max: 100)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := 20
		if v, ok := getOptionalFloat(req, "limit"); ok && v > 0 {
			limit = min(int(v), 100)
		}
		runs, err := deps.Analysis.ListRuns(ctx, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to list analysis runs: %w", err)
		}
		if runs == nil {
			runs = []*models.AnalysisRun{}
		}
		return jsonResult(map[string]any{"runs": runs})
	})
}

// toolError turns an analysis failure into an error result when the caller can
// act on it, and a Go error otherwise.
func toolError(deps *RelationshipToolDeps, toolName string, req services.AnalysisRequest, err error) (*mcp.CallToolResult, error) {
	errResult := errorResultFor(err)
	if errResult == nil {
		deps.Logger.Error("Tool failed",
			zap.String("tool", toolName),
			zap.String("source_type", req.SourceType),
			zap.Error(err))
		return nil, fmt.Errorf("%s failed: %w", toolName, err)
	}

	deps.Logger.Debug("Tool input error",
		zap.String("tool", toolName),
		zap.String("source_type", req.SourceType),
		zap.Error(err))

	if errors.Is(err, apperrors.ErrUnsupportedSource) {
		types := make([]string, 0)
		for _, info := range deps.Analysis.SourceTypes() {
			types = append(types, info.Type)
		}
		return NewErrorResultWithDetails("unsupported_source", err.Error(), map[string]any{"available": types}), nil
	}
	return errResult, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(body)), nil
}
