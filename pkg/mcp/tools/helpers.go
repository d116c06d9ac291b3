package tools

import (
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ekaya-inc/ekaya-relate/pkg/services"
)

// trimString removes leading and trailing whitespace from a string.
func trimString(s string) string {
	return strings.TrimSpace(s)
}

func arguments(req mcp.CallToolRequest) map[string]any {
	args, _ := req.Params.Arguments.(map[string]any)
	return args
}

func getOptionalString(req mcp.CallToolRequest, key string) string {
	s, _ := arguments(req)[key].(string)
	return trimString(s)
}

func getOptionalFloat(req mcp.CallToolRequest, key string) (float64, bool) {
	val, ok := arguments(req)[key].(float64)
	return val, ok
}

func getOptionalBool(req mcp.CallToolRequest, key string) (bool, bool) {
	val, ok := arguments(req)[key].(bool)
	return val, ok
}

// sourceOptions are the tool options every source-reading tool shares.
func sourceOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString(
			"source_type",
			mcp.Required(),
			mcp.Description("Loader to read tables with, e.g. 'csv', 'postgres', 'mssql', 'sqlite', 'duckdb'. See list_source_types."),
		),
		mcp.WithString(
			"path",
			mcp.Description("Shortcut for config.path: a CSV file or directory, or a SQLite/DuckDB database file"),
		),
		mcp.WithObject(
			"config",
			mcp.Description("Loader settings, e.g. {\"host\":\"db\",\"database\":\"clinic\",\"schema\":\"public\",\"tables\":[\"pets\"]}. Passwords come from the server environment."),
		),
	}
}

// sourceRequest reads source_type, path and config. The returned result is
// non-nil when the arguments are unusable.
func sourceRequest(req mcp.CallToolRequest) (services.AnalysisRequest, *mcp.CallToolResult) {
	sourceType := getOptionalString(req, "source_type")
	if sourceType == "" {
		return services.AnalysisRequest{}, NewErrorResult("invalid_parameters", "parameter 'source_type' cannot be empty")
	}

	config := map[string]any{}
	if raw, ok := arguments(req)["config"]; ok && raw != nil {
		obj, ok := raw.(map[string]any)
		if !ok {
			return services.AnalysisRequest{}, NewErrorResult("invalid_parameters", "parameter 'config' must be an object")
		}
		for k, v := range obj {
			config[k] = v
		}
	}
	if path := getOptionalString(req, "path"); path != "" {
		config["path"] = path
	}

	return services.AnalysisRequest{SourceType: strings.ToLower(sourceType), Config: config}, nil
}
