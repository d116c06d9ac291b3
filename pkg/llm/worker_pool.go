package llm

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// WorkerPoolConfig configures the LLM worker pool.
type WorkerPoolConfig struct {
	MaxConcurrent     int     // Maximum concurrent LLM calls (default: 4)
	RequestsPerSecond float64 // Request rate cap; 0 disables limiting
}

// DefaultWorkerPoolConfig returns 4 concurrent calls without a rate cap.
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		MaxConcurrent: 4,
	}
}

// WorkerPool runs LLM calls with bounded parallelism and an optional request rate.
type WorkerPool struct {
	config  WorkerPoolConfig
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewWorkerPool creates a new LLM worker pool.
func NewWorkerPool(config WorkerPoolConfig, logger *zap.Logger) *WorkerPool {
	if config.MaxConcurrent < 1 {
		config.MaxConcurrent = DefaultWorkerPoolConfig().MaxConcurrent
	}
	var limiter *rate.Limiter
	if config.RequestsPerSecond > 0 {
		burst := max(1, int(config.RequestsPerSecond))
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst)
	}
	return &WorkerPool{
		config:  config,
		limiter: limiter,
		logger:  logger.Named("llm-worker-pool"),
	}
}

// MaxConcurrent returns the configured parallelism.
func (p *WorkerPool) MaxConcurrent() int {
	return p.config.MaxConcurrent
}

// WorkItem represents a unit of work to be processed.
type WorkItem[T any] struct {
	ID      string                               // For logging/tracking
	Execute func(ctx context.Context) (T, error) // The work to be executed
}

// WorkResult represents the result of a work item.
type WorkResult[T any] struct {
	ID     string
	Result T
	Err    error
}

// Process executes all work items with bounded parallelism.
// Results are returned in submission order: results[i] belongs to items[i].
// Every item gets a result; items not started before ctx ends carry ctx.Err().
func Process[T any](
	ctx context.Context,
	pool *WorkerPool,
	items []WorkItem[T],
	onProgress func(completed, total int),
) []WorkResult[T] {
	if len(items) == 0 {
		return nil
	}

	results := make([]WorkResult[T], len(items))
	sem := make(chan struct{}, pool.config.MaxConcurrent)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		completed int
	)

	done := func() {
		if onProgress == nil {
			return
		}
		mu.Lock()
		completed++
		n := completed
		mu.Unlock()
		onProgress(n, len(items))
	}

	for i, item := range items {
		wg.Add(1)
		go func(i int, item WorkItem[T]) {
			defer wg.Done()
			defer done()

			results[i].ID = item.ID
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return
			}

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i].Err = ctx.Err()
				return
			}

			if pool.limiter != nil {
				if err := pool.limiter.Wait(ctx); err != nil {
					results[i].Err = err
					return
				}
			}

			results[i].Result, results[i].Err = item.Execute(ctx)
		}(i, item)
	}

	wg.Wait()

	pool.logger.Debug("Processed work items", zap.Int("count", len(items)))
	return results
}
