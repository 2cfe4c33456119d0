// Package duckdb provides the DuckDB source.
// DuckDB reads local files directly, so it is the usual choice for checking
// CSV and Parquet extracts with SQL.
package duckdb

import (
	"context"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/canonica-labs/engarde/internal/sources"
)

// Kind is the source kind name.
const Kind = "duckdb"

// Open opens a DuckDB source. An empty DSN opens an in-memory database.
func Open(_ context.Context, cfg sources.Config) (sources.Source, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = ":memory:"
	}
	src, err := sources.OpenSQL(Kind, "duckdb", dsn, sources.WithConverter(decimalValue))
	if err != nil {
		return nil, err
	}
	if dsn == ":memory:" {
		// each connection of an in-memory pool would see its own database
		src.DB().SetMaxOpenConns(1)
	}
	return src, nil
}

// decimalValue turns DECIMAL cells into int64 when they carry no scale and
// float64 otherwise.
func decimalValue(v interface{}) (interface{}, bool) {
	d, ok := v.(goduckdb.Decimal)
	if !ok || d.Value == nil {
		return nil, false
	}
	if d.Scale == 0 && d.Value.IsInt64() {
		return d.Value.Int64(), true
	}
	return d.Float64(), true
}
