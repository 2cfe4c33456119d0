// Package builtin registers every source kind shipped with engarde.
package builtin

import (
	"github.com/canonica-labs/engarde/internal/sources"
	"github.com/canonica-labs/engarde/internal/sources/bigquery"
	"github.com/canonica-labs/engarde/internal/sources/csv"
	"github.com/canonica-labs/engarde/internal/sources/duckdb"
	"github.com/canonica-labs/engarde/internal/sources/postgres"
	"github.com/canonica-labs/engarde/internal/sources/snowflake"
	"github.com/canonica-labs/engarde/internal/sources/sqlite"
	"github.com/canonica-labs/engarde/internal/sources/trino"
)

// Registry returns a registry with all built-in source kinds.
func Registry() *sources.Registry {
	r := sources.NewRegistry()
	r.Register(bigquery.Kind, bigquery.Open)
	r.Register(csv.Kind, csv.Open)
	r.Register(duckdb.Kind, duckdb.Open)
	r.Register(postgres.Kind, postgres.Open)
	r.Register(snowflake.Kind, snowflake.Open)
	r.Register(sqlite.Kind, sqlite.Open)
	r.Register(trino.Kind, trino.Open)
	return r
}

// QueryKinds are the kinds whose Load takes a SQL query.
var QueryKinds = map[string]bool{
	bigquery.Kind:  true,
	duckdb.Kind:    true,
	postgres.Kind:  true,
	snowflake.Kind: true,
	sqlite.Kind:    true,
	trino.Kind:     true,
}
