// Package trino provides the Trino source.
package trino

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/canonica-labs/engarde/internal/sources"

	_ "github.com/trinodb/trino-go-client/trino" // Trino driver
)

// Kind is the source kind name.
const Kind = "trino"

// Config describes a Trino coordinator.
type Config struct {
	Host    string
	Port    int
	User    string
	Catalog string
	Schema  string
	SSL     bool
}

// DSN builds a driver connection string.
// Format: http[s]://user@host:port?catalog=X&schema=Y
func (c Config) DSN() string {
	scheme := "http"
	if c.SSL {
		scheme = "https"
	}
	q := url.Values{}
	if c.Catalog != "" {
		q.Set("catalog", c.Catalog)
	}
	if c.Schema != "" {
		q.Set("schema", c.Schema)
	}
	u := url.URL{
		Scheme:   scheme,
		User:     url.User(c.User),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Open opens a Trino source. cfg.DSN must be an http or https URL.
func Open(_ context.Context, cfg sources.Config) (sources.Source, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("trino: dsn is required")
	}
	u, err := url.Parse(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("trino: invalid dsn: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("trino: dsn scheme must be http or https, got %q", u.Scheme)
	}

	src, err := sources.OpenSQL(Kind, "trino", cfg.DSN)
	if err != nil {
		return nil, err
	}
	src.DB().SetConnMaxIdleTime(time.Minute)
	return src, nil
}
