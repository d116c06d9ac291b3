//go:build postgres || all_adapters

package postgres

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-relate/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.LoaderRegistration{
		Info: datasource.LoaderInfo{
			Type:        "postgres",
			DisplayName: "PostgreSQL",
			Description: "Read every base table of one schema from PostgreSQL 12+",
		},
		Factory: func(ctx context.Context, config map[string]any, logger *zap.Logger) (datasource.TableLoader, error) {
			cfg, err := FromMap(config)
			if err != nil {
				return nil, err
			}
			return NewLoader(ctx, cfg, logger)
		},
	})
}
