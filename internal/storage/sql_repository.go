package storage

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/canonica-labs/engarde/pkg/frame"
	"github.com/canonica-labs/engarde/pkg/models"
)

// SQLRunRepository implements RunRepository over database/sql.
type SQLRunRepository struct {
	db *sql.DB
}

// NewSQLRunRepository creates a repository. The schema must be migrated.
func NewSQLRunRepository(db *sql.DB) *SQLRunRepository {
	return &SQLRunRepository{db: db}
}

// Save stores a report and its check results in one transaction.
func (r *SQLRunRepository) Save(ctx context.Context, report *models.Report) error {
	if report == nil || report.RunID == "" {
		return fmt.Errorf("storage: run_id is required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO validation_runs (
			run_id, contract, source, started_at, duration_ms,
			row_count, col_count, outcome, load_retries, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		report.RunID,
		report.Contract,
		report.Source,
		report.StartedAt.UTC(),
		report.DurationMs,
		report.Rows,
		report.Cols,
		string(report.Outcome),
		report.LoadRetries,
		nullableString(report.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, res := range report.Results {
		var locations interface{}
		if len(res.Locations) > 0 {
			data, err := json.Marshal(res.Locations)
			if err != nil {
				return fmt.Errorf("failed to encode locations: %w", err)
			}
			locations = string(data)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO check_results (
				run_id, ordinal, check_name, outcome, kind,
				message, expected, observed, locations_json, duration_ms
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			report.RunID,
			res.Position,
			res.Check,
			string(res.Outcome),
			nullableString(res.Kind),
			nullableString(res.Message),
			nullableString(res.Expected),
			nullableString(res.Observed),
			locations,
			res.DurationMs,
		)
		if err != nil {
			return fmt.Errorf("failed to insert check result %d: %w", res.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// Get returns a stored report by run ID.
func (r *SQLRunRepository) Get(ctx context.Context, runID string) (*models.Report, error) {
	report := &models.Report{RunID: runID}
	var (
		outcome   string
		errMsg    sql.NullString
		startedAt time.Time
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT contract, source, started_at, duration_ms, row_count, col_count,
		       outcome, load_retries, error_message
		FROM validation_runs WHERE run_id = $1`, runID,
	).Scan(&report.Contract, &report.Source, &startedAt, &report.DurationMs,
		&report.Rows, &report.Cols, &outcome, &report.LoadRetries, &errMsg)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	report.StartedAt = startedAt.UTC()
	report.Outcome = models.Outcome(outcome)
	report.Error = errMsg.String

	rows, err := r.db.QueryContext(ctx, `
		SELECT ordinal, check_name, outcome, kind, message, expected, observed,
		       locations_json, duration_ms
		FROM check_results WHERE run_id = $1 ORDER BY ordinal`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get check results: %w", err)
	}
	defer rows.Close()

	report.Results = []models.CheckResult{}
	for rows.Next() {
		var (
			res                                     models.CheckResult
			checkOutcome                            string
			kind, message, expected, observed, locs sql.NullString
		)
		if err := rows.Scan(&res.Position, &res.Check, &checkOutcome, &kind, &message,
			&expected, &observed, &locs, &res.DurationMs); err != nil {
			return nil, fmt.Errorf("failed to scan check result: %w", err)
		}
		res.Outcome = models.CheckOutcome(checkOutcome)
		res.Kind = kind.String
		res.Message = message.String
		res.Expected = expected.String
		res.Observed = observed.String
		if locs.Valid && locs.String != "" {
			if res.Locations, err = decodeLocations(locs.String); err != nil {
				return nil, err
			}
		}
		report.Results = append(report.Results, res)
	}
	return report, rows.Err()
}

// decodeLocations restores integer row labels, which plain JSON decoding
// would turn into float64.
func decodeLocations(data string) ([]frame.Location, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()

	var locs []frame.Location
	if err := dec.Decode(&locs); err != nil {
		return nil, fmt.Errorf("failed to decode locations: %w", err)
	}
	for i, l := range locs {
		n, ok := l.Row.(json.Number)
		if !ok {
			continue
		}
		if v, err := n.Int64(); err == nil {
			locs[i].Row = v
		} else if f, err := n.Float64(); err == nil {
			locs[i].Row = f
		}
	}
	return locs, nil
}

// Summary aggregates every stored run.
func (r *SQLRunRepository) Summary(ctx context.Context) (*models.RunSummary, error) {
	summary := models.NewRunSummary()

	rows, err := r.db.QueryContext(ctx, `
		SELECT outcome, COUNT(*) FROM validation_runs GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("failed to count runs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			outcome string
			count   int
		)
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("failed to scan run counts: %w", err)
		}
		summary.TotalRuns += count
		switch models.Outcome(outcome) {
		case models.OutcomePassed:
			summary.PassedRuns = count
		case models.OutcomeViolated:
			summary.ViolatedRuns = count
		case models.OutcomeError:
			summary.ErrorRuns = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	checkRows, err := r.db.QueryContext(ctx, `
		SELECT check_name, COUNT(*) AS cnt
		FROM check_results
		WHERE outcome = $1
		GROUP BY check_name
		ORDER BY cnt DESC, check_name
		LIMIT $2`, string(models.CheckFailed), topN)
	if err != nil {
		return nil, fmt.Errorf("failed to rank checks: %w", err)
	}
	defer checkRows.Close()
	for checkRows.Next() {
		var stat models.CheckFailureStat
		if err := checkRows.Scan(&stat.Check, &stat.Count); err != nil {
			return nil, fmt.Errorf("failed to scan check ranking: %w", err)
		}
		summary.TopFailingChecks = append(summary.TopFailingChecks, stat)
	}
	if err := checkRows.Err(); err != nil {
		return nil, err
	}

	contractRows, err := r.db.QueryContext(ctx, `
		SELECT contract, COUNT(*) AS cnt
		FROM validation_runs
		WHERE outcome = $1
		GROUP BY contract
		ORDER BY cnt DESC, contract
		LIMIT $2`, string(models.OutcomeViolated), topN)
	if err != nil {
		return nil, fmt.Errorf("failed to rank contracts: %w", err)
	}
	defer contractRows.Close()
	for contractRows.Next() {
		var stat models.ContractStat
		if err := contractRows.Scan(&stat.Contract, &stat.Count); err != nil {
			return nil, fmt.Errorf("failed to scan contract ranking: %w", err)
		}
		summary.TopContracts = append(summary.TopContracts, stat)
	}
	return summary, contractRows.Err()
}

// CheckConnectivity verifies database connectivity.
func (r *SQLRunRepository) CheckConnectivity(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("audit store unreachable: %w", err)
	}
	return nil
}

// nullableString converts empty strings to nil for SQL NULL.
func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

var _ RunRepository = (*SQLRunRepository)(nil)
