package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir moves into dir for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	original, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(original) })
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("", "v1.2.3")
	require.NoError(t, err)

	assert.Equal(t, "v1.2.3", cfg.Version)
	assert.Equal(t, "127.0.0.1:3480", cfg.ListenAddr())
	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)

	assert.Equal(t, 0.3, cfg.Engine.MinConfidence)
	assert.Equal(t, 100, cfg.Engine.PatternSampleSize)
	assert.Equal(t, 5, cfg.Engine.SampleValues)
	assert.Equal(t, 0.8, cfg.Engine.TierHigh)
	assert.Equal(t, 0.6, cfg.Engine.TierMedium)
	assert.Equal(t, 5*time.Minute, cfg.Engine.RequestTimeout)

	assert.False(t, cfg.LLM.Validate)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 30*time.Second, cfg.LLM.CircuitReset)
	assert.False(t, cfg.Embedding.Enabled)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, 168*time.Hour, cfg.Redis.TTL)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, `
port: "4000"
env: "test"
engine:
  min_confidence: 0.5
  workers: 2
  heuristics_file: "vet.yaml"
llm:
  provider: anthropic
  model: claude-sonnet-4-5
database:
  host: "db.example.com"
  database: "relate_test"
redis:
  host: "cache.example.com"
  port: 6380
`)

	t.Setenv("PORT", "4443")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("ENGINE_MIN_CONFIDENCE", "0.4")

	cfg, err := Load(path, "dev")
	require.NoError(t, err)

	assert.Equal(t, "4443", cfg.Port, "env wins over yaml")
	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, 0.4, cfg.Engine.MinConfidence)
	assert.Equal(t, 2, cfg.Engine.Workers, "yaml wins over defaults")
	assert.Equal(t, "vet.yaml", cfg.Engine.HeuristicsFile)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "relate_test", cfg.Database.Database)
	assert.Equal(t, 6380, cfg.Redis.Port)
}

func TestLoad_SecretsOnlyFromEnv(t *testing.T) {
	path := writeConfig(t, `
llm:
  api_key: "from-yaml"
database:
  password: "from-yaml"
`)
	t.Setenv("LLM_API_KEY", "sk-env")
	t.Setenv("EMBEDDING_API_KEY", "emb-env")
	t.Setenv("PGPASSWORD", "pg-env")
	t.Setenv("REDIS_PASSWORD", "redis-env")

	cfg, err := Load(path, "dev")
	require.NoError(t, err)

	assert.Equal(t, "sk-env", cfg.LLM.APIKey)
	assert.Equal(t, "emb-env", cfg.Embedding.APIKey)
	assert.Equal(t, "pg-env", cfg.Database.Password)
	assert.Equal(t, "redis-env", cfg.Redis.Password)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), "dev")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.yaml")
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"cutoff above one", "engine:\n  min_confidence: 1.5\n", "engine.min_confidence"},
		{"tiers inverted", "engine:\n  tier_high: 0.5\n  tier_medium: 0.7\n", "engine.tier_medium"},
		{"negative workers", "engine:\n  workers: -1\n", "engine.workers"},
		{"unknown provider", "llm:\n  provider: cohere\n", "llm.provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml), "dev")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLLMConfig_ResolvedAPIKey(t *testing.T) {
	c := LLMConfig{Provider: "openai", APIKey: "sk-openai", AnthropicAPIKey: "sk-ant"}
	assert.Equal(t, "sk-openai", c.ResolvedAPIKey())

	c.Provider = "Anthropic"
	assert.Equal(t, "sk-ant", c.ResolvedAPIKey())

	c.AnthropicAPIKey = ""
	assert.Equal(t, "sk-openai", c.ResolvedAPIKey())
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	c := DatabaseConfig{Host: "db.example.com", Port: 5433, User: "u", Password: "p", Database: "d", SSLMode: "disable"}
	assert.Equal(t, "host=db.example.com port=5433 user=u password=p dbname=d sslmode=disable", c.ConnectionString())
}

func TestRedisConfig_Addr(t *testing.T) {
	c := RedisConfig{Host: "cache.example.com", Port: 6380}
	assert.Equal(t, "cache.example.com:6380", c.Addr())
}
