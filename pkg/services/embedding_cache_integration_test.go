//go:build integration

package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-relate/pkg/testhelpers"
)

func TestRedisEmbeddingCache(t *testing.T) {
	client := testhelpers.GetTestRedis(t)
	cache := NewRedisEmbeddingCache(client, time.Minute, zap.NewNop())
	ctx := context.Background()

	model := "test-" + uuid.NewString()
	a, b := EmbeddingKey(model, "column id of type numeric primary key in table pets"), EmbeddingKey(model, "other")

	got, err := cache.GetMany(ctx, []string{a, b})
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, cache.SetMany(ctx, map[string][]float32{a: {0.5, -0.25, 1}}))

	got, err = cache.GetMany(ctx, []string{a, b})
	require.NoError(t, err)
	assert.Equal(t, map[string][]float32{a: {0.5, -0.25, 1}}, got)

	ttl, err := client.TTL(ctx, embeddingKeyPrefix+a).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 30*time.Second)
}

func TestRedisEmbeddingCache_SkipsCorruptValues(t *testing.T) {
	client := testhelpers.GetTestRedis(t)
	cache := NewRedisEmbeddingCache(client, time.Minute, zap.NewNop())
	ctx := context.Background()

	key := EmbeddingKey("test-"+uuid.NewString(), "corrupt")
	require.NoError(t, client.Set(ctx, embeddingKeyPrefix+key, "abc", time.Minute).Err())

	got, err := cache.GetMany(ctx, []string{key})
	require.NoError(t, err)
	assert.Empty(t, got)
}
