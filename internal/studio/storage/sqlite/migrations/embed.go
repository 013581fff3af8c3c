package migrations

import "embed"

// FS contains embedded SQLite migrations for studio storage.
//
//go:embed *.sql
var FS embed.FS
