// Package sqlite provides the SQLite source, backed by the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"fmt"

	"github.com/canonica-labs/engarde/internal/sources"

	_ "modernc.org/sqlite" // SQLite driver
)

// Kind is the source kind name.
const Kind = "sqlite"

// Open opens a SQLite source on the database file named by cfg.DSN.
func Open(_ context.Context, cfg sources.Config) (sources.Source, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("sqlite: dsn is required")
	}
	src, err := sources.OpenSQL(Kind, "sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	// SQLite serializes access; one connection also keeps ":memory:" coherent.
	src.DB().SetMaxOpenConns(1)
	return src, nil
}
