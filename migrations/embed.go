package migrations

import "embed"

// FS holds the Postgres schema migrations applied by cmd/migrate.
//
//go:embed *.sql
var FS embed.FS
