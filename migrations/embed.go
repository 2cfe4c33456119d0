// Package migrations provides the embedded audit store schema.
// Statements are portable between PostgreSQL and SQLite.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
