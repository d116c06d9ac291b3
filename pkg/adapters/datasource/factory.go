package datasource

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-relate/pkg/apperrors"
)

// LoaderFactoryService creates loaders from the registry.
type LoaderFactoryService interface {
	// NewLoader creates a loader for the given source type.
	NewLoader(ctx context.Context, sourceType string, config map[string]any) (TableLoader, error)

	// LoadTables opens a loader, reads all tables and closes it.
	LoadTables(ctx context.Context, sourceType string, config map[string]any) ([]Table, error)

	// ListTypes returns info for all registered source types.
	ListTypes() []LoaderInfo
}

type registryFactory struct {
	logger *zap.Logger
}

// NewLoaderFactory returns a factory that uses the global registry.
func NewLoaderFactory(logger *zap.Logger) LoaderFactoryService {
	return &registryFactory{
		logger: logger.Named("datasource"),
	}
}

func (f *registryFactory) NewLoader(ctx context.Context, sourceType string, config map[string]any) (TableLoader, error) {
	factory := GetFactory(sourceType)
	if factory == nil {
		return nil, fmt.Errorf("source type %q (not compiled in): %w", sourceType, apperrors.ErrUnsupportedSource)
	}
	return factory(ctx, config, f.logger.With(zap.String("source_type", sourceType)))
}

func (f *registryFactory) LoadTables(ctx context.Context, sourceType string, config map[string]any) ([]Table, error) {
	loader, err := f.NewLoader(ctx, sourceType, config)
	if err != nil {
		return nil, err
	}
	defer loader.Close()

	tables, err := loader.LoadTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s tables: %w", sourceType, err)
	}

	f.logger.Info("Loaded tables",
		zap.String("source_type", sourceType),
		zap.Int("tables", len(tables)))

	return tables, nil
}

func (f *registryFactory) ListTypes() []LoaderInfo {
	return RegisteredLoaders()
}

var _ LoaderFactoryService = (*registryFactory)(nil)
