//go:build sqlite || all_adapters

package sqlite

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-relate/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.LoaderRegistration{
		Info: datasource.LoaderInfo{
			Type:        "sqlite",
			DisplayName: "SQLite",
			Description: "Read every table of a SQLite database file",
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
