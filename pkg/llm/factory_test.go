package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClientFactory_CreateChatClient(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantType any
		wantErr  string
	}{
		{
			name:     "default provider is openai",
			cfg:      Config{Endpoint: "http://localhost:8000/v1", Model: "qwen"},
			wantType: &Client{},
		},
		{
			name:     "anthropic",
			cfg:      Config{Provider: "Anthropic", Model: "claude-sonnet-4-5", APIKey: "key"},
			wantType: &AnthropicClient{},
		},
		{
			name:    "anthropic without key",
			cfg:     Config{Provider: ProviderAnthropic, Model: "claude-sonnet-4-5"},
			wantErr: "api key is required",
		},
		{
			name:    "openai without endpoint",
			cfg:     Config{Provider: ProviderOpenAI, Model: "gpt-4o"},
			wantErr: "endpoint is required",
		},
		{
			name:    "unknown provider",
			cfg:     Config{Provider: "carrier-pigeon", Model: "m"},
			wantErr: "unsupported llm provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewClientFactory(tt.cfg, Config{}, zap.NewNop())
			client, err := f.CreateChatClient()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, client)
			assert.Equal(t, tt.cfg.Model, client.GetModel())
		})
	}
}

func TestClientFactory_CreateEmbeddingClient_FallsBackToChatEndpoint(t *testing.T) {
	f := NewClientFactory(
		Config{Endpoint: "http://llm.local/v1", Model: "chat", APIKey: "k"},
		Config{},
		zap.NewNop(),
	)

	client, err := f.CreateEmbeddingClient()
	require.NoError(t, err)
	assert.Equal(t, "http://llm.local/v1", client.GetEndpoint())
	assert.Equal(t, DefaultEmbeddingModel, client.GetModel())
}

func TestClientFactory_CreateEmbeddingClient_UsesOwnConfig(t *testing.T) {
	f := NewClientFactory(
		Config{Endpoint: "http://llm.local/v1", Model: "chat"},
		Config{Endpoint: "http://embed.local/v1", Model: "nomic-embed-text"},
		zap.NewNop(),
	)

	client, err := f.CreateEmbeddingClient()
	require.NoError(t, err)
	assert.Equal(t, "http://embed.local/v1", client.GetEndpoint())
	assert.Equal(t, "nomic-embed-text", client.GetModel())
}

func TestClientFactory_AnthropicChatNeedsOwnEmbeddingEndpoint(t *testing.T) {
	f := NewClientFactory(
		Config{Provider: ProviderAnthropic, Model: "claude", APIKey: "k"},
		Config{},
		zap.NewNop(),
	)

	_, err := f.CreateEmbeddingClient()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint is required")
}

func TestAnthropicClient_CreateEmbeddingsUnsupported(t *testing.T) {
	client, err := NewAnthropicClient(&Config{Model: "claude", APIKey: "k"}, zap.NewNop())
	require.NoError(t, err)

	_, err = client.CreateEmbeddings(t.Context(), []string{"x"}, "")
	require.Error(t, err)
	assert.Equal(t, ErrorTypeModel, GetErrorType(err))
	assert.Equal(t, "https://api.anthropic.com/v1", client.GetEndpoint())
}
