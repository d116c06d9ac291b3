package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultPath is the config file read when no --config flag is given.
const DefaultPath = "config.yaml"

// Config holds all configuration for ekaya-relate.
// Values come from a YAML file with environment variable overrides.
// Secrets (API keys, passwords) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3480"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Inference engine tuning
	Engine EngineConfig `yaml:"engine"`

	// Chat model used to validate candidates
	LLM LLMConfig `yaml:"llm"`

	// Embedding endpoint for the semantic signal
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Results store (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Embedding cache
	Redis RedisConfig `yaml:"redis"`
}

// EngineConfig holds the relationship engine settings.
type EngineConfig struct {
	MinConfidence     float64 `yaml:"min_confidence" env:"ENGINE_MIN_CONFIDENCE" env-default:"0.3"`
	PatternSampleSize int     `yaml:"pattern_sample_size" env:"ENGINE_PATTERN_SAMPLE_SIZE" env-default:"100"`
	SampleValues      int     `yaml:"sample_values" env:"ENGINE_SAMPLE_VALUES" env-default:"5"`
	// Workers bounds parallel scoring; 0 uses GOMAXPROCS.
	Workers int `yaml:"workers" env:"ENGINE_WORKERS" env-default:"0"`
	// Tier lower bounds
	TierHigh   float64 `yaml:"tier_high" env:"ENGINE_TIER_HIGH" env-default:"0.8"`
	TierMedium float64 `yaml:"tier_medium" env:"ENGINE_TIER_MEDIUM" env-default:"0.6"`
	// HeuristicsFile extends the built-in synonyms and generic names.
	HeuristicsFile string `yaml:"heuristics_file" env:"ENGINE_HEURISTICS_FILE" env-default:""`
	// RequestTimeout bounds one analysis run, including loading and validation.
	RequestTimeout time.Duration `yaml:"request_timeout" env:"ENGINE_REQUEST_TIMEOUT" env-default:"5m"`
}

// LLMConfig holds the validation model settings.
type LLMConfig struct {
	// Validate turns on LLM validation of ranked candidates.
	Validate          bool          `yaml:"validate" env:"LLM_VALIDATE" env-default:"false"`
	Provider          string        `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`
	BaseURL           string        `yaml:"base_url" env:"LLM_BASE_URL" env-default:"https://api.openai.com/v1"`
	Model             string        `yaml:"model" env:"LLM_MODEL" env-default:"gpt-4o-mini"`
	Temperature       float64       `yaml:"temperature" env:"LLM_TEMPERATURE" env-default:"0.1"`
	MaxConcurrent     int           `yaml:"max_concurrent" env:"LLM_MAX_CONCURRENT" env-default:"4"`
	RequestsPerSecond float64       `yaml:"requests_per_second" env:"LLM_REQUESTS_PER_SECOND" env-default:"0"`
	CircuitThreshold  int           `yaml:"circuit_threshold" env:"LLM_CIRCUIT_THRESHOLD" env-default:"5"`
	CircuitReset      time.Duration `yaml:"circuit_reset" env:"LLM_CIRCUIT_RESET" env-default:"30s"`

	APIKey          string `yaml:"-" env:"LLM_API_KEY"`       // Secret - not in YAML
	AnthropicAPIKey string `yaml:"-" env:"ANTHROPIC_API_KEY"` // Secret - not in YAML
}

// ResolvedAPIKey returns the key for the configured provider.
func (c *LLMConfig) ResolvedAPIKey() string {
	if strings.EqualFold(c.Provider, "anthropic") && c.AnthropicAPIKey != "" {
		return c.AnthropicAPIKey
	}
	return c.APIKey
}

// EmbeddingConfig holds the embedding endpoint settings.
type EmbeddingConfig struct {
	Enabled bool   `yaml:"enabled" env:"EMBEDDING_ENABLED" env-default:"false"`
	BaseURL string `yaml:"base_url" env:"EMBEDDING_BASE_URL" env-default:""` // Falls back to llm.base_url
	Model   string `yaml:"model" env:"EMBEDDING_MODEL" env-default:"text-embedding-3-small"`
	APIKey  string `yaml:"-" env:"EMBEDDING_API_KEY"` // Secret - not in YAML
}

// DatabaseConfig holds PostgreSQL results store configuration.
type DatabaseConfig struct {
	Enabled        bool   `yaml:"enabled" env:"PGENABLED" env-default:"false"`
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"ekaya"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"ekaya_relate"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`
	MaxIdleConns   int32  `yaml:"max_idle_conns" env:"PGMAX_IDLE_CONNS" env-default:"2"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// ConnectionString returns a PostgreSQL keyword/value connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		ResolveHostForDocker(c.Host), c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisConfig holds the embedding cache configuration.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled" env:"REDIS_ENABLED" env-default:"false"`
	Host     string        `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     int           `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string        `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	TTL      time.Duration `yaml:"ttl" env:"REDIS_TTL" env-default:"168h"`
}

// Addr returns host:port for the Redis client.
func (c *RedisConfig) Addr() string {
	return ResolveHostForDocker(c.Host) + ":" + strconv.Itoa(c.Port)
}

// Load reads configuration from path with environment variable overrides.
// A missing file at DefaultPath is not an error: defaults and the environment
// are used. Any other missing path is.
func Load(path, version string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	cfg := &Config{Version: version}

	_, statErr := os.Stat(path)
	switch {
	case statErr == nil:
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	case errors.Is(statErr, fs.ErrNotExist) && path == DefaultPath:
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	default:
		return nil, fmt.Errorf("config file %s: %w", path, statErr)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// validate checks ranges cleanenv cannot express.
func (c *Config) validate() error {
	e := c.Engine
	if e.MinConfidence < 0 || e.MinConfidence > 1 {
		return fmt.Errorf("engine.min_confidence must be in [0,1], got %v", e.MinConfidence)
	}
	if e.TierMedium > e.TierHigh {
		return fmt.Errorf("engine.tier_medium (%v) must not exceed engine.tier_high (%v)", e.TierMedium, e.TierHigh)
	}
	if e.PatternSampleSize < 1 {
		return fmt.Errorf("engine.pattern_sample_size must be positive, got %d", e.PatternSampleSize)
	}
	if e.Workers < 0 {
		return fmt.Errorf("engine.workers must not be negative, got %d", e.Workers)
	}
	switch strings.ToLower(c.LLM.Provider) {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("llm.provider must be openai or anthropic, got %q", c.LLM.Provider)
	}
	return nil
}

// ListenAddr returns the HTTP listen address.
func (c *Config) ListenAddr() string {
	return c.BindAddr + ":" + c.Port
}
