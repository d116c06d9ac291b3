package llm

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Supported chat providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// LLMClientFactory creates chat and embedding clients from configuration.
// Use this interface for dependency injection and testing.
type LLMClientFactory interface {
	// CreateChatClient returns the client used for relationship validation.
	CreateChatClient() (LLMClient, error)
	// CreateEmbeddingClient returns the client used for semantic similarity.
	CreateEmbeddingClient() (LLMClient, error)
}

// ClientFactory creates LLM clients from static configuration.
type ClientFactory struct {
	chat      Config
	embedding Config
	logger    *zap.Logger
}

var _ LLMClientFactory = (*ClientFactory)(nil)

// NewClientFactory creates a new factory. The embedding config falls back to the
// chat endpoint and key when its own are empty.
func NewClientFactory(chat, embedding Config, logger *zap.Logger) *ClientFactory {
	if embedding.Endpoint == "" && !isAnthropic(chat.Provider) {
		embedding.Endpoint = chat.Endpoint
	}
	if embedding.APIKey == "" && !isAnthropic(chat.Provider) {
		embedding.APIKey = chat.APIKey
	}
	return &ClientFactory{
		chat:      chat,
		embedding: embedding,
		logger:    logger,
	}
}

func isAnthropic(provider string) bool {
	return strings.EqualFold(provider, ProviderAnthropic)
}

// CreateChatClient creates the configured chat client.
func (f *ClientFactory) CreateChatClient() (LLMClient, error) {
	switch strings.ToLower(f.chat.Provider) {
	case "", ProviderOpenAI:
		client, err := NewClient(&f.chat, f.logger)
		if err != nil {
			return nil, fmt.Errorf("create openai client: %w", err)
		}
		return client, nil
	case ProviderAnthropic:
		client, err := NewAnthropicClient(&f.chat, f.logger)
		if err != nil {
			return nil, fmt.Errorf("create anthropic client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", f.chat.Provider)
	}
}

// CreateEmbeddingClient creates an OpenAI-compatible embeddings client.
func (f *ClientFactory) CreateEmbeddingClient() (LLMClient, error) {
	cfg := f.embedding
	if cfg.Model == "" {
		cfg.Model = DefaultEmbeddingModel
	}
	client, err := NewClient(&cfg, f.logger)
	if err != nil {
		return nil, fmt.Errorf("create embedding client: %w", err)
	}
	return client, nil
}
