//go:build duckdb || all_adapters

package duckdb

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-relate/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.LoaderRegistration{
		Info: datasource.LoaderInfo{
			Type:        "duckdb",
			DisplayName: "DuckDB / Parquet",
			Description: "Read tables from a DuckDB file or from Parquet and CSV files via DuckDB",
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
