package runner

import (
	"bytes"
	"context"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/canonica-labs/engarde/internal/contract"
	"github.com/canonica-labs/engarde/internal/errors"
	"github.com/canonica-labs/engarde/internal/observability"
	"github.com/canonica-labs/engarde/internal/sources"
	"github.com/canonica-labs/engarde/internal/storage"
	"github.com/canonica-labs/engarde/pkg/frame"
	"github.com/canonica-labs/engarde/pkg/models"
)

const ordersCSV = `order_id,amount,status
1,10.5,open
2,20,closed
3,-4,open
4,7,lost
`

func writeCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orders.csv")
	if err := os.WriteFile(path, []byte(ordersCSV), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func parse(t *testing.T, location, checksYAML string) *contract.Contract {
	t.Helper()
	doc := fmt.Sprintf("name: orders\nsource:\n  kind: csv\n  location: %s\n  index: order_id\nchecks:\n%s", location, checksYAML)
	c, err := contract.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return c
}

const failingChecks = `  - check: none_missing
  - check: within_set
    sets: {status: [open, closed]}
  - check: within_range
    ranges: {amount: [0, 100]}
  - check: is_shape
    rows: 4
`

// TestRun_Passes verifies a clean run end to end from a CSV file.
// Green-Flag: Every check passes and the report carries the table shape.
func TestRun_Passes(t *testing.T) {
	c := parse(t, writeCSV(t), "  - check: unique_index\n  - check: is_shape\n    rows: 4\n    cols: 2\n")
	var buf bytes.Buffer
	r := New(Config{Logger: observability.NewJSONLogger(&buf)})

	report, err := r.Run(context.Background(), c, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Outcome != models.OutcomePassed || report.Rows != 4 || report.Cols != 2 {
		t.Errorf("unexpected report: %+v", report)
	}
	if report.RunID == "" || len(report.Results) != 2 {
		t.Errorf("unexpected report: %+v", report)
	}
	if !strings.Contains(buf.String(), `"outcome":"passed"`) {
		t.Errorf("expected a logged run, got %q", buf.String())
	}
}

// TestRun_FailFast proves a run stops at the first failing check.
// Red-Flag: Later checks are skipped and the error names the first failure.
func TestRun_FailFast(t *testing.T) {
	c := parse(t, writeCSV(t), failingChecks)

	report, err := New(Config{}).Run(context.Background(), c, Options{})
	if errors.CodeOf(err) != errors.CodeViolation {
		t.Fatalf("expected violation, got %v", err)
	}
	violated, ok := err.(*errors.ErrContractViolated)
	if !ok || violated.Check != "within_set" {
		t.Fatalf("expected within_set violation, got %v", err)
	}

	outcomes := []models.CheckOutcome{models.CheckPassed, models.CheckFailed, models.CheckSkipped, models.CheckSkipped}
	if len(report.Results) != len(outcomes) {
		t.Fatalf("expected %d results, got %d", len(outcomes), len(report.Results))
	}
	for i, want := range outcomes {
		if report.Results[i].Outcome != want {
			t.Errorf("result %d: expected %s, got %s", i, want, report.Results[i].Outcome)
		}
	}

	failed := report.Results[1]
	want := frame.Location{Row: int64(4), Column: "status"}
	if failed.Kind != "cell" || len(failed.Locations) != 1 || failed.Locations[0] != want {
		t.Errorf("unexpected failure: %+v", failed)
	}
	if report.Outcome != models.OutcomeViolated || report.Error != "" {
		t.Errorf("unexpected outcome: %s %q", report.Outcome, report.Error)
	}
}

func TestRun_AllCollectsEveryFailure(t *testing.T) {
	c := parse(t, writeCSV(t), failingChecks)

	report, err := New(Config{}).Run(context.Background(), c, Options{All: true})
	violated, ok := err.(*errors.ErrContractViolated)
	if !ok || violated.Check != "within_set" {
		t.Fatalf("error must reflect the first failure, got %v", err)
	}

	failed := report.Failed()
	if len(failed) != 2 || failed[0].Check != "within_set" || failed[1].Check != "within_range" {
		t.Fatalf("unexpected failures: %+v", failed)
	}
	if report.Results[3].Outcome != models.CheckPassed {
		t.Errorf("expected is_shape to run and pass, got %s", report.Results[3].Outcome)
	}
	if report.Violations() != 2 {
		t.Errorf("expected 2 violating cells, got %d", report.Violations())
	}
}

// TestRun_ProjectsColumns verifies source.columns narrows the checked table.
// Green-Flag: Checks over all columns only see the selected ones.
func TestRun_ProjectsColumns(t *testing.T) {
	c := parse(t, writeCSV(t), "  - check: is_shape\n    rows: 4\n    cols: 1\n  - check: within_set\n    sets: {status: [open, closed, lost]}\n")
	c.Source.Columns = []string{"status"}

	report, err := New(Config{}).Run(context.Background(), c, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Cols != 1 || report.Outcome != models.OutcomePassed {
		t.Errorf("unexpected report: %+v", report)
	}

	c.Source.Columns = []string{"status", "region"}
	_, err = New(Config{}).Run(context.Background(), c, Options{})
	if errors.CodeOf(err) != errors.CodeConfig {
		t.Fatalf("expected config error for an unknown column, got %v", err)
	}
}

// TestRun_SourceErrors proves load problems are reported as errors, not violations.
// Red-Flag: A missing file or a bad index column must not look like a check failure.
func TestRun_SourceErrors(t *testing.T) {
	missing := parse(t, filepath.Join(t.TempDir(), "nope.csv"), "  - check: none_missing\n")
	report, err := New(Config{Retry: sources.RetryConfig{MaxAttempts: 1}}).Run(context.Background(), missing, Options{})
	if errors.CodeOf(err) != errors.CodeSource {
		t.Fatalf("expected source error, got %v", err)
	}
	if report.Outcome != models.OutcomeError || report.Error == "" || len(report.Results) != 0 {
		t.Errorf("unexpected report: %+v", report)
	}

	badIndex := parse(t, writeCSV(t), "  - check: none_missing\n")
	badIndex.Source.Index = "nope"
	_, err = New(Config{}).Run(context.Background(), badIndex, Options{})
	if errors.CodeOf(err) != errors.CodeConfig {
		t.Fatalf("expected config error, got %v", err)
	}

	_, err = New(Config{}).Run(context.Background(), badIndex, Options{Query: "SELECT 1"})
	if err == nil {
		t.Fatal("expected a query against a csv source to fail")
	}
}

// stubSource fails with a transient error before returning a table.
type stubSource struct {
	failures int
	calls    int
	table    *frame.Table
}

func (s *stubSource) Name() string { return "csv" }
func (s *stubSource) Load(ctx context.Context, query string) (*frame.Table, error) {
	s.calls++
	if s.calls <= s.failures {
		return nil, driver.ErrBadConn
	}
	return s.table, nil
}
func (s *stubSource) Ping(ctx context.Context) error { return nil }
func (s *stubSource) Close() error { return nil }

func TestRun_RetriesTransientLoad(t *testing.T) {
	tbl, err := frame.New(nil, frame.Column{Name: "order_id", Values: []interface{}{1, 2}})
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	stub := &stubSource{failures: 2, table: tbl}
	registry := sources.NewRegistry()
	registry.Register("csv", func(context.Context, sources.Config) (sources.Source, error) { return stub, nil })

	r := New(Config{
		Registry: registry,
		Retry:    sources.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffMultiplier: 1},
	})
	report, err := r.Run(context.Background(), parse(t, "ignored.csv", "  - check: unique_index\n"), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.LoadRetries != 2 {
		t.Errorf("expected 2 retries, got %d", report.LoadRetries)
	}
}

// TestRun_RecordsRun verifies persistence and metrics wiring.
// Green-Flag: The report reaches the audit store and the run counter.
func TestRun_RecordsRun(t *testing.T) {
	repo := storage.NewMemoryRunRepository()
	logger, err := observability.NewPersistentLogger(repo)
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	metrics := observability.NewMetrics()

	r := New(Config{Logger: logger, Metrics: metrics})
	r.newID = func() string { return "fixed-id" }

	_, runErr := r.Run(context.Background(), parse(t, writeCSV(t), failingChecks), Options{})
	if runErr == nil {
		t.Fatal("expected violation")
	}

	stored, err := repo.Get(context.Background(), "fixed-id")
	if err != nil {
		t.Fatalf("expected stored run: %v", err)
	}
	if stored.Outcome != models.OutcomeViolated {
		t.Errorf("unexpected stored outcome %s", stored.Outcome)
	}
	if n, err := testutil.GatherAndCount(metrics.Registry(), "engarde_runs_total"); err != nil || n != 1 {
		t.Errorf("expected one run series, got %d (%v)", n, err)
	}

	repo.SetPersistenceFailure(true)
	r.newID = func() string { return "second" }
	_, err = r.Run(context.Background(), parse(t, writeCSV(t), "  - check: unique_index\n"), Options{})
	if err == nil || errors.CodeOf(err) != errors.CodeSource {
		t.Fatalf("a failed save must be surfaced, got %v", err)
	}
}

func TestPing(t *testing.T) {
	r := New(Config{})
	if err := r.Ping(context.Background(), parse(t, writeCSV(t), "  - check: none_missing\n"), Options{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	missing := parse(t, filepath.Join(t.TempDir(), "nope.csv"), "  - check: none_missing\n")
	if err := r.Ping(context.Background(), missing, Options{}); errors.CodeOf(err) != errors.CodeSource {
		t.Fatalf("expected source error, got %v", err)
	}
}
