package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// HealthInfo describes which optional collaborators this server runs with.
type HealthInfo struct {
	Version    string
	Store      bool
	Embeddings bool
	Validation bool
}

type healthResult struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	Store      bool   `json:"store"`
	Embeddings bool   `json:"embeddings"`
	Validation bool   `json:"validation"`
}

// RegisterHealthTool adds a health check tool to the MCP server.
func RegisterHealthTool(s *server.MCPServer, info HealthInfo) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status, version and which optional signals are enabled"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := json.Marshal(healthResult{
			Status:     "ok",
			Version:    info.Version,
			Store:      info.Store,
			Embeddings: info.Embeddings,
			Validation: info.Validation,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal health result: %w", err)
		}
		return mcp.NewToolResultText(string(result)), nil
	})
}
