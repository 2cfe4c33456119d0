// Package postgres provides the PostgreSQL source.
package postgres

import (
	"context"
	"fmt"

	"github.com/canonica-labs/engarde/internal/sources"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Kind is the source kind name.
const Kind = "postgres"

// Open opens a PostgreSQL source. cfg.DSN is a lib/pq connection string or URL.
func Open(_ context.Context, cfg sources.Config) (sources.Source, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres: dsn is required")
	}
	src, err := sources.OpenSQL(Kind, "postgres", cfg.DSN)
	if err != nil {
		return nil, err
	}
	return src, nil
}
