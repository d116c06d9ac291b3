package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewServer(t *testing.T) {
	s := NewServer("ekaya-relate", "1.0.0", zap.NewNop())

	require.NotNil(t, s)
	require.NotNil(t, s.mcp)
	assert.Same(t, s.mcp, s.MCP())
	assert.NotNil(t, s.NewStreamableHTTPServer())
	assert.NotNil(t, s.NewStdioServer())
}

func TestServer_Initialize(t *testing.T) {
	s := NewServer("ekaya-relate", "1.2.3", zap.NewNop())

	msg := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"0"}}}`
	raw, err := json.Marshal(s.MCP().HandleMessage(context.Background(), []byte(msg)))
	require.NoError(t, err)

	var response struct {
		Result struct {
			ServerInfo struct {
				Name    string `json:"name"`
				Version string `json:"version"`
			} `json:"serverInfo"`
			Instructions string `json:"instructions"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(raw, &response))
	assert.Equal(t, "ekaya-relate", response.Result.ServerInfo.Name)
	assert.Equal(t, "1.2.3", response.Result.ServerInfo.Version)
	assert.Contains(t, response.Result.Instructions, "infer_relationships")
}

func TestServer_RegisterTool(t *testing.T) {
	s := NewServer("ekaya-relate", "1.0.0", zap.NewNop())

	called := false
	s.RegisterTool(mcp.NewTool("echo", mcp.WithDescription("echo")), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		called = true
		return mcp.NewToolResultText("ok"), nil
	})
	assert.False(t, called, "handler should not be called during registration")

	raw, err := json.Marshal(s.MCP().HandleMessage(context.Background(),
		[]byte(`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"echo"},"id":1}`)))
	require.NoError(t, err)
	assert.True(t, called)
	assert.Contains(t, string(raw), `"ok"`)
}

func TestServer_RecoversFromPanics(t *testing.T) {
	s := NewServer("ekaya-relate", "1.0.0", zap.NewNop())
	s.RegisterTool(mcp.NewTool("boom"), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		panic("boom")
	})

	raw, err := json.Marshal(s.MCP().HandleMessage(context.Background(),
		[]byte(`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"boom"},"id":1}`)))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"error"`)
}
