//go:build duckdb || all_adapters

package cmd

import (
	_ "github.com/ekaya-inc/ekaya-relate/pkg/adapters/datasource/duckdb" // Register duckdb loader
)
