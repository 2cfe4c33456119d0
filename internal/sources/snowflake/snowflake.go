// Package snowflake provides the Snowflake source.
package snowflake

import (
	"context"
	"fmt"
	"time"

	"github.com/canonica-labs/engarde/internal/sources"

	_ "github.com/snowflakedb/gosnowflake" // Snowflake driver
)

// Kind is the source kind name.
const Kind = "snowflake"

// Config describes a Snowflake account.
type Config struct {
	Account        string
	User           string
	Password       string
	Database       string
	Schema         string
	Warehouse      string
	Role           string
	ConnectTimeout time.Duration
}

// DSN builds a gosnowflake connection string.
// Format: user:password@account/database/schema?warehouse=X&role=Y
func (c Config) DSN() string {
	dsn := fmt.Sprintf("%s:%s@%s/%s/%s?warehouse=%s",
		c.User, c.Password, c.Account, c.Database, c.Schema, c.Warehouse)
	if c.Role != "" {
		dsn += fmt.Sprintf("&role=%s", c.Role)
	}
	if c.ConnectTimeout > 0 {
		dsn += fmt.Sprintf("&loginTimeout=%d", int(c.ConnectTimeout.Seconds()))
	}
	return dsn
}

// Open opens a Snowflake source on cfg.DSN.
func Open(_ context.Context, cfg sources.Config) (sources.Source, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("snowflake: dsn is required")
	}
	src, err := sources.OpenSQL(Kind, "snowflake", cfg.DSN)
	if err != nil {
		return nil, err
	}
	src.DB().SetMaxOpenConns(4)
	src.DB().SetConnMaxIdleTime(time.Minute)
	return src, nil
}
