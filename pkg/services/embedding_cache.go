package services

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultEmbeddingTTL is how long cached vectors live.
const DefaultEmbeddingTTL = 7 * 24 * time.Hour

const embeddingKeyPrefix = "relate:embedding:"

// EmbeddingCache stores embedding vectors by EmbeddingKey.
type EmbeddingCache interface {
	// GetMany returns the vectors found; missing keys are absent from the map.
	GetMany(ctx context.Context, keys []string) (map[string][]float32, error)

	// SetMany stores vectors.
	SetMany(ctx context.Context, vectors map[string][]float32) error
}

// ============================================================================
// Redis
// ============================================================================

type redisEmbeddingCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisEmbeddingCache creates an EmbeddingCache backed by Redis.
func NewRedisEmbeddingCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) EmbeddingCache {
	if ttl <= 0 {
		ttl = DefaultEmbeddingTTL
	}
	return &redisEmbeddingCache{
		client: client,
		ttl:    ttl,
		logger: logger.Named("embedding-cache"),
	}
}

var _ EmbeddingCache = (*redisEmbeddingCache)(nil)

func (c *redisEmbeddingCache) GetMany(ctx context.Context, keys []string) (map[string][]float32, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	redisKeys := make([]string, len(keys))
	for i, k := range keys {
		redisKeys[i] = embeddingKeyPrefix + k
	}

	values, err := c.client.MGet(ctx, redisKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget embeddings: %w", err)
	}

	found := make(map[string][]float32, len(keys))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		vec, err := decodeVector([]byte(s))
		if err != nil {
			c.logger.Warn("Discarding corrupt cached embedding",
				zap.String("key", keys[i]),
				zap.Error(err))
			continue
		}
		found[keys[i]] = vec
	}
	return found, nil
}

func (c *redisEmbeddingCache) SetMany(ctx context.Context, vectors map[string][]float32) error {
	if len(vectors) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	for k, vec := range vectors {
		pipe.Set(ctx, embeddingKeyPrefix+k, encodeVector(vec), c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store embeddings: %w", err)
	}
	return nil
}

// encodeVector packs a vector as little-endian float32s.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf) == 0 || len(buf)%4 != 0 {
		return nil, errors.New("invalid vector length")
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec, nil
}

// ============================================================================
// In-memory
// ============================================================================

type memoryEmbeddingCache struct {
	mu      sync.RWMutex
	vectors map[string][]float32
}

// NewMemoryEmbeddingCache creates a process-local EmbeddingCache, used when no
// Redis is configured.
func NewMemoryEmbeddingCache() EmbeddingCache {
	return &memoryEmbeddingCache{vectors: make(map[string][]float32)}
}

var _ EmbeddingCache = (*memoryEmbeddingCache)(nil)

func (c *memoryEmbeddingCache) GetMany(_ context.Context, keys []string) (map[string][]float32, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	found := make(map[string][]float32, len(keys))
	for _, k := range keys {
		if v, ok := c.vectors[k]; ok {
			found[k] = v
		}
	}
	return found, nil
}

func (c *memoryEmbeddingCache) SetMany(_ context.Context, vectors map[string][]float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, v := range vectors {
		c.vectors[k] = v
	}
	return nil
}
