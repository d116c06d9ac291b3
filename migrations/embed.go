// Package migrations holds the results store schema.
package migrations

import "embed"

// FS contains the numbered up/down SQL files applied by database.RunMigrations.
//
//go:embed *.sql
var FS embed.FS
