package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/canonica-labs/engarde/internal/sources"
)

func TestOpen_LoadsTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for _, stmt := range []string{
		`CREATE TABLE events (ts INTEGER, kind TEXT)`,
		`INSERT INTO events VALUES (1, 'a'), (2, 'b')`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	db.Close()

	src, err := Open(context.Background(), sources.Config{Kind: Kind, DSN: path})
	if err != nil {
		t.Fatalf("open source: %v", err)
	}
	defer src.Close()

	if err := src.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	tbl, err := src.Load(context.Background(), "SELECT ts, kind FROM events ORDER BY ts")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tbl.NumRows() != 2 || src.Name() != Kind {
		t.Errorf("unexpected result: %d rows from %s", tbl.NumRows(), src.Name())
	}
}

func TestOpen_RequiresDSN(t *testing.T) {
	if _, err := Open(context.Background(), sources.Config{Kind: Kind}); err == nil {
		t.Fatal("expected error for empty dsn")
	}
}
