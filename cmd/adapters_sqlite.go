//go:build sqlite || all_adapters

package cmd

import (
	_ "github.com/ekaya-inc/ekaya-relate/pkg/adapters/datasource/sqlite" // Register sqlite loader
)
