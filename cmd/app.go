package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-relate/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-relate/pkg/config"
	"github.com/ekaya-inc/ekaya-relate/pkg/database"
	"github.com/ekaya-inc/ekaya-relate/pkg/handlers"
	"github.com/ekaya-inc/ekaya-relate/pkg/llm"
	"github.com/ekaya-inc/ekaya-relate/pkg/models"
	"github.com/ekaya-inc/ekaya-relate/pkg/repositories"
	"github.com/ekaya-inc/ekaya-relate/pkg/services"
)

// app holds the services built from configuration.
type app struct {
	analysis services.AnalysisService
	tiers    models.TierThresholds
	backends map[string]handlers.Pinger
	closers  []func()
	logger   *zap.Logger
}

// newApp wires the engine and its optional collaborators from cfg.
// The caller must call close.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{
		backends: map[string]handlers.Pinger{},
		logger:   logger,
	}

	var heuristics *services.NameHeuristics
	if path := cfg.Engine.HeuristicsFile; path != "" {
		h, err := services.LoadNameHeuristics(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load heuristics: %w", err)
		}
		heuristics = h
		logger.Info("Loaded name heuristics", zap.String("path", path))
	}

	engineCfg := engineConfig(cfg)
	a.tiers = engineCfg.Tiers

	factory := llm.NewClientFactory(
		llm.Config{
			Provider: cfg.LLM.Provider,
			Endpoint: cfg.LLM.BaseURL,
			Model:    cfg.LLM.Model,
			APIKey:   cfg.LLM.ResolvedAPIKey(),
		},
		llm.Config{
			Provider: llm.ProviderOpenAI,
			Endpoint: cfg.Embedding.BaseURL,
			Model:    cfg.Embedding.Model,
			APIKey:   cfg.Embedding.APIKey,
		},
		logger,
	)

	var opts []services.EngineOption
	if cfg.LLM.Validate {
		pool := llm.NewWorkerPool(llm.WorkerPoolConfig{
			MaxConcurrent:     cfg.LLM.MaxConcurrent,
			RequestsPerSecond: cfg.LLM.RequestsPerSecond,
		}, logger)
		breaker := llm.NewCircuitBreaker(llm.CircuitBreakerConfig{
			Threshold:  cfg.LLM.CircuitThreshold,
			ResetAfter: cfg.LLM.CircuitReset,
		})
		opts = append(opts, services.WithValidator(
			services.NewRelationshipValidator(factory, pool, breaker, cfg.LLM.Temperature, logger)))
		logger.Info("LLM validation enabled",
			zap.String("provider", cfg.LLM.Provider),
			zap.String("model", cfg.LLM.Model))
	}

	if cfg.Embedding.Enabled {
		provider, err := a.embeddingProvider(ctx, cfg, factory)
		if err != nil {
			a.close()
			return nil, err
		}
		opts = append(opts, services.WithEmbeddings(provider))
	}

	var runs repositories.AnalysisRunRepository
	if cfg.Database.Enabled {
		db, err := database.NewConnection(ctx, &database.Config{
			URL:            cfg.Database.ConnectionString(),
			MaxConnections: cfg.Database.MaxConnections,
			MinConnections: cfg.Database.MaxIdleConns,
		}, logger)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, db.Close)

		if err := database.MigratePool(db, logger); err != nil {
			a.close()
			return nil, fmt.Errorf("failed to migrate results store: %w", err)
		}
		runs = repositories.NewAnalysisRunRepository(db)
		a.backends["store"] = handlers.PingerFunc(db.Ping)
	}

	engine := services.NewRelationshipEngine(engineCfg, heuristics, logger, opts...)
	a.analysis = services.NewAnalysisService(
		datasource.NewLoaderFactory(logger),
		engine,
		runs,
		cfg.Engine.RequestTimeout,
		logger,
	)
	return a, nil
}

// embeddingProvider builds the embeddings client, cached in Redis when configured
// and reachable, and in memory otherwise.
func (a *app) embeddingProvider(ctx context.Context, cfg *config.Config, factory llm.LLMClientFactory) (services.EmbeddingProvider, error) {
	client, err := factory.CreateEmbeddingClient()
	if err != nil {
		return nil, err
	}

	cache := services.NewMemoryEmbeddingCache()
	rdb, err := database.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		a.logger.Warn("Embedding cache unavailable, using in-memory cache", zap.Error(err))
		rdb = nil
	}
	if rdb != nil {
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		a.backends["redis"] = handlers.PingerFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
		cache = services.NewRedisEmbeddingCache(rdb, cfg.Redis.TTL, a.logger)
	}

	a.logger.Info("Embedding signal enabled",
		zap.String("model", cfg.Embedding.Model),
		zap.Bool("redis_cache", rdb != nil))
	return services.NewEmbeddingProvider(client, cfg.Embedding.Model, cache, a.logger), nil
}

// close releases connections in reverse order of creation.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// engineConfig maps the engine section of the config onto EngineConfig.
func engineConfig(cfg *config.Config) services.EngineConfig {
	ec := services.DefaultEngineConfig()
	ec.MinConfidence = cfg.Engine.MinConfidence
	ec.Workers = cfg.Engine.Workers
	ec.Tiers = models.TierThresholds{High: cfg.Engine.TierHigh, Medium: cfg.Engine.TierMedium}
	if cfg.Engine.PatternSampleSize > 0 {
		ec.Profiler.PatternSampleSize = cfg.Engine.PatternSampleSize
	}
	if cfg.Engine.SampleValues > 0 {
		ec.Profiler.SampleValues = cfg.Engine.SampleValues
	}
	return ec
}
