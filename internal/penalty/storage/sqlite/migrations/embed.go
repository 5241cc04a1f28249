package migrations

import "embed"

// FS contains embedded SQLite migrations for penalty storage.
//
//go:embed *.sql
var FS embed.FS
