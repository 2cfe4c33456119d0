package storage

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/canonica-labs/engarde/internal/errors"
	"github.com/canonica-labs/engarde/migrations"
)

const upSuffix = ".up.sql"

// MigrationRunner applies the embedded audit store schema.
type MigrationRunner struct {
	db     *sql.DB
	source fs.FS
}

// NewMigrationRunner creates a runner over the embedded migrations.
func NewMigrationRunner(db *sql.DB) *MigrationRunner {
	return &MigrationRunner{db: db, source: migrations.FS}
}

// step is one "<version>_<description>.up.sql" file.
type step struct {
	version string
	name    string
	body    string
}

// Run applies every step not yet recorded in schema_migrations, oldest
// first. A step and its bookkeeping row commit together.
func (r *MigrationRunner) Run(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version VARCHAR(255) PRIMARY KEY,
		applied_at TIMESTAMP NOT NULL
	)`); err != nil {
		return errors.NewMigrationFailed("schema_migrations", err)
	}

	done, err := r.Applied(ctx)
	if err != nil {
		return errors.NewMigrationFailed("schema_migrations", err)
	}
	seen := make(map[string]struct{}, len(done))
	for _, v := range done {
		seen[v] = struct{}{}
	}

	steps, err := r.steps()
	if err != nil {
		return errors.NewMigrationFailed("embedded", err)
	}
	for _, s := range steps {
		if _, ok := seen[s.version]; ok {
			continue
		}
		if err := r.apply(ctx, s); err != nil {
			return errors.NewMigrationFailed(s.name, err)
		}
	}
	return nil
}

// Applied returns the recorded migration versions in ascending order.
func (r *MigrationRunner) Applied(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT version FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func (r *MigrationRunner) steps() ([]step, error) {
	files, err := fs.Glob(r.source, "*"+upSuffix)
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	out := make([]step, 0, len(files))
	for _, file := range files {
		version, _, ok := strings.Cut(path.Base(file), "_")
		if !ok {
			continue
		}
		body, err := fs.ReadFile(r.source, file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		out = append(out, step{
			version: version,
			name:    strings.TrimSuffix(path.Base(file), upSuffix),
			body:    string(body),
		})
	}
	return out, nil
}

func (r *MigrationRunner) apply(ctx context.Context, s step) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range splitStatements(s.body) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", firstWords(stmt), err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, applied_at) VALUES ($1, $2)`,
		s.version, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("record version %s: %w", s.version, err)
	}
	return tx.Commit()
}

// splitStatements splits a migration on semicolons. Migrations contain no
// string literals or procedural bodies.
func splitStatements(content string) []string {
	var stmts []string
	for _, part := range strings.Split(content, ";") {
		if s := strings.TrimSpace(part); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}

func firstWords(stmt string) string {
	fields := strings.Fields(stmt)
	if len(fields) > 4 {
		fields = fields[:4]
	}
	return strings.Join(fields, " ")
}
