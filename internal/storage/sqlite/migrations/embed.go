package migrations

import "embed"

// FS contains embedded SQLite migrations for room snapshots.
//
//go:embed *.sql
var FS embed.FS
