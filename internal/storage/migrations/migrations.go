// Package migrations embeds the SQL schema files applied by storage.Migrate.
package migrations

import "embed"

// Files holds the migration SQL files.
//
//go:embed *.sql
var Files embed.FS
