package csv

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-relate/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.LoaderRegistration{
		Info: datasource.LoaderInfo{
			Type:        "csv",
			DisplayName: "CSV files",
			Description: "Load a CSV file or every .csv file in a directory",
		},
		Factory: func(ctx context.Context, config map[string]any, logger *zap.Logger) (datasource.TableLoader, error) {
			cfg, err := FromMap(config)
			if err != nil {
				return nil, err
			}
			return NewLoader(cfg, logger), nil
		},
	})
}
