//go:build mssql || all_adapters

package mssql

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-relate/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.LoaderRegistration{
		Info: datasource.LoaderInfo{
			Type:        "mssql",
			DisplayName: "Microsoft SQL Server",
			Description: "Read every base table of one schema from SQL Server 2016+ or Azure SQL",
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
