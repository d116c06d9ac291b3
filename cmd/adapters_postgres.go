//go:build postgres || all_adapters

package cmd

import (
	_ "github.com/ekaya-inc/ekaya-relate/pkg/adapters/datasource/postgres" // Register postgres loader
)
