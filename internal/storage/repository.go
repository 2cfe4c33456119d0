// Package storage persists contract run reports to the audit store and
// applies its schema.
//
// The audit store is PostgreSQL (lib/pq) or SQLite (modernc.org/sqlite).
// Every statement is written to run unchanged on both.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/canonica-labs/engarde/internal/errors"
	"github.com/canonica-labs/engarde/pkg/models"

	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver
)

// RunRepository stores run reports.
// All implementations must be:
// - Thread-safe
// - Context-aware (respecting cancellation/timeout)
// - Explicit about errors (never swallow)
type RunRepository interface {
	// Save stores a report and its check results.
	// Returns an error if the run ID already exists.
	Save(ctx context.Context, report *models.Report) error

	// Get returns a stored report by run ID.
	Get(ctx context.Context, runID string) (*models.Report, error)

	// Summary aggregates every stored run.
	Summary(ctx context.Context) (*models.RunSummary, error)

	// CheckConnectivity verifies the store is reachable.
	CheckConnectivity(ctx context.Context) error
}

// ErrRunNotFound is returned by Get for an unknown run ID.
var ErrRunNotFound = fmt.Errorf("run not found")

// topN bounds the ranked lists in a summary.
const topN = 5

// Open opens the audit store database for driver ("postgres" or "sqlite").
// SQLite parent directories are created as needed.
func Open(driver, dsn string) (*sql.DB, error) {
	switch driver {
	case "postgres":
	case "sqlite":
		if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create audit directory: %w", err)
			}
		}
	default:
		return nil, errors.NewInvalidConfig("audit.driver", fmt.Sprintf("unsupported driver %q", driver))
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit store: %w", err)
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// checkContext verifies the context is not cancelled or timed out.
func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
