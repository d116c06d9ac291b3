package cmd

import (
	_ "github.com/ekaya-inc/ekaya-relate/pkg/adapters/datasource/csv" // Register csv loader
)
