package snowflake

import (
	"context"
	"testing"
	"time"

	"github.com/canonica-labs/engarde/internal/sources"
)

func TestConfig_DSN(t *testing.T) {
	cfg := Config{
		Account:        "acme-xy12345",
		User:           "etl",
		Password:       "secret",
		Database:       "SALES",
		Schema:         "PUBLIC",
		Warehouse:      "COMPUTE_WH",
		Role:           "ANALYST",
		ConnectTimeout: 30 * time.Second,
	}
	want := "etl:secret@acme-xy12345/SALES/PUBLIC?warehouse=COMPUTE_WH&role=ANALYST&loginTimeout=30"
	if got := cfg.DSN(); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestOpen_RequiresDSN(t *testing.T) {
	if _, err := Open(context.Background(), sources.Config{Kind: Kind}); err == nil {
		t.Fatal("expected error for empty dsn")
	}
}
