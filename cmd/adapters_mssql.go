//go:build mssql || all_adapters

package cmd

import (
	_ "github.com/ekaya-inc/ekaya-relate/pkg/adapters/datasource/mssql" // Register mssql loader
)
