package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-relate/pkg/llm"
	"github.com/ekaya-inc/ekaya-relate/pkg/models"
	"github.com/ekaya-inc/ekaya-relate/pkg/retry"
)

// EmbeddingProvider turns column descriptions into vectors.
type EmbeddingProvider interface {
	// Embed returns one vector per text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Model names the embedding model, used to key cached vectors.
	Model() string
}

// ColumnDescription is the text embedded for a column, e.g.
// "column patient_id of type integer foreign key reference in table pets".
func ColumnDescription(p *models.ColumnProfile, isPK, fkNamed bool) string {
	role := ""
	switch {
	case isPK:
		role = " primary key"
	case fkNamed:
		role = " foreign key reference"
	}
	return fmt.Sprintf("column %s of type %s%s in table %s", p.Column, p.InferredType, role, p.Table)
}

type llmEmbeddingProvider struct {
	client      llm.LLMClient
	model       string
	cache       EmbeddingCache
	retryConfig *retry.Config
	logger      *zap.Logger
}

// NewEmbeddingProvider creates an EmbeddingProvider over an LLM client's embeddings
// endpoint. cache may be nil.
func NewEmbeddingProvider(client llm.LLMClient, model string, cache EmbeddingCache, logger *zap.Logger) EmbeddingProvider {
	if model == "" {
		model = llm.DefaultEmbeddingModel
	}
	return &llmEmbeddingProvider{
		client: client,
		model:  model,
		cache:  cache,
		retryConfig: &retry.Config{
			MaxRetries:   2,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     5 * time.Second,
			Multiplier:   2.0,
		},
		logger: logger.Named("embedding-provider"),
	}
}

var _ EmbeddingProvider = (*llmEmbeddingProvider)(nil)

func (p *llmEmbeddingProvider) Model() string {
	return p.model
}

func (p *llmEmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(texts))
	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = EmbeddingKey(p.model, text)
	}

	if p.cache != nil {
		cached, err := p.cache.GetMany(ctx, keys)
		if err != nil {
			// A cache outage only costs a provider call.
			p.logger.Warn("Embedding cache read failed", zap.Error(err))
		}
		for i, key := range keys {
			vectors[i] = cached[key]
		}
	}

	var missing []int
	var inputs []string
	for i, v := range vectors {
		if v == nil {
			missing = append(missing, i)
			inputs = append(inputs, texts[i])
		}
	}
	if len(missing) == 0 {
		p.logger.Debug("Embeddings served from cache", zap.Int("count", len(texts)))
		return vectors, nil
	}

	var fetched [][]float32
	err := retry.DoIfRetryable(ctx, p.retryConfig, func() error {
		var err error
		fetched, err = p.client.CreateEmbeddings(ctx, inputs, p.model)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(fetched) != len(inputs) {
		return nil, fmt.Errorf("create embeddings: got %d vectors for %d inputs", len(fetched), len(inputs))
	}

	fresh := make(map[string][]float32, len(missing))
	for n, i := range missing {
		vectors[i] = fetched[n]
		fresh[keys[i]] = fetched[n]
	}

	if p.cache != nil {
		if err := p.cache.SetMany(ctx, fresh); err != nil {
			p.logger.Warn("Embedding cache write failed", zap.Error(err))
		}
	}

	p.logger.Debug("Embeddings created",
		zap.String("model", p.model),
		zap.Int("cached", len(texts)-len(missing)),
		zap.Int("fetched", len(missing)))

	return vectors, nil
}

// EmbeddingKey identifies a vector by model and text.
func EmbeddingKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return model + ":" + hex.EncodeToString(sum[:])
}
