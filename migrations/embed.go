// Package migrations embeds the SQLite schema scripts into the binary.
package migrations

import "embed"

// FS holds every *.sql file in this directory, for database.DB.Migrate.
//
//go:embed *.sql
var FS embed.FS
