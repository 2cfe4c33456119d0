// Package observability provides structured run logging and metrics for
// engarde.
//
// Every contract run emits one log line with: run_id, contract, source, the
// loaded shape, how many checks ran and failed, the outcome, and the error
// (if any).
package observability

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/canonica-labs/engarde/internal/storage"
	"github.com/canonica-labs/engarde/pkg/models"
)

// RunLogEntry contains the fields logged for one contract run.
type RunLogEntry struct {
	// RunID is the unique identifier for this run.
	// Required.
	RunID string

	// Contract is the contract name.
	// Required.
	Contract string

	// Source is the source kind the table was loaded from.
	Source string

	// Rows and Cols are the loaded table's shape. Zero when loading failed.
	Rows int
	Cols int

	ChecksRun    int
	ChecksFailed int

	// Outcome is "passed", "violated" or "error".
	Outcome models.Outcome

	// FailedCheck is the first failing check, if any.
	FailedCheck string

	// Violations is the number of reported cell locations.
	Violations int

	// Duration is the wall time of the run.
	// Must be non-negative.
	Duration time.Duration

	// Error contains the error message if the run failed.
	Error string

	// Report is the full run report. Required by PersistentLogger only.
	Report *models.Report
}

// EntryFromReport builds the log entry for a finished run.
func EntryFromReport(r *models.Report) RunLogEntry {
	entry := RunLogEntry{
		RunID:      r.RunID,
		Contract:   r.Contract,
		Source:     r.Source,
		Rows:       r.Rows,
		Cols:       r.Cols,
		Outcome:    r.Outcome,
		Violations: r.Violations(),
		Duration:   time.Duration(r.DurationMs) * time.Millisecond,
		Error:      r.Error,
		Report:     r,
	}
	for _, res := range r.Results {
		if res.Outcome == models.CheckSkipped {
			continue
		}
		entry.ChecksRun++
		if res.Outcome == models.CheckFailed {
			entry.ChecksFailed++
			if entry.FailedCheck == "" {
				entry.FailedCheck = res.Check
			}
		}
	}
	return entry
}

// Validate checks that all required fields are present.
func (e *RunLogEntry) Validate() error {
	if e.RunID == "" {
		return fmt.Errorf("observability: run_id is required")
	}
	if e.Contract == "" {
		return fmt.Errorf("observability: contract is required")
	}
	if e.Duration < 0 {
		return fmt.Errorf("observability: duration cannot be negative")
	}
	return nil
}

// level maps the outcome to a log level.
func (e *RunLogEntry) level() Level {
	switch e.Outcome {
	case models.OutcomeError:
		return LevelError
	case models.OutcomeViolated:
		return LevelWarn
	}
	if e.Error != "" {
		return LevelError
	}
	return LevelInfo
}

// RunLogger is the interface for run logging.
type RunLogger interface {
	// LogRun logs a finished contract run.
	// Returns an error if logging fails or the entry is invalid.
	LogRun(ctx context.Context, entry RunLogEntry) error

	// Summary returns aggregated run statistics.
	Summary(ctx context.Context) (*models.RunSummary, error)
}

// Level is a log severity.
type Level = logrus.Level

const (
	LevelDebug = logrus.DebugLevel
	LevelInfo  = logrus.InfoLevel
	LevelWarn  = logrus.WarnLevel
	LevelError = logrus.ErrorLevel
)

// ParseLevel parses "debug", "info", "warn" (or "warning") and "error".
// An empty string is info.
func ParseLevel(s string) (Level, error) {
	if s == "" {
		return LevelInfo, nil
	}
	level, err := logrus.ParseLevel(s)
	if err != nil || level < LevelError || level > LevelDebug {
		return LevelInfo, fmt.Errorf("observability: unknown log level %q", s)
	}
	return level, nil
}

// newLogrus builds a logger writing "json" or "text" lines to w.
func newLogrus(w io.Writer, format string, level Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)
	if format == "text" {
		l.SetFormatter(&logrus.TextFormatter{
			DisableColors:   true,
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
			FieldMap:        logrus.FieldMap{logrus.FieldKeyTime: "timestamp"},
		})
	}
	return l
}

func (e *RunLogEntry) fields() logrus.Fields {
	f := logrus.Fields{
		"run_id":        e.RunID,
		"contract":      e.Contract,
		"rows":          e.Rows,
		"cols":          e.Cols,
		"checks_run":    e.ChecksRun,
		"checks_failed": e.ChecksFailed,
		"outcome":       string(e.Outcome),
		"violations":    e.Violations,
		"duration_ms":   e.Duration.Milliseconds(),
	}
	if e.Source != "" {
		f["source"] = e.Source
	}
	if e.FailedCheck != "" {
		f["failed_check"] = e.FailedCheck
	}
	if e.Error != "" {
		f["error"] = e.Error
	}
	return f
}

func (e *RunLogEntry) emit(l *logrus.Logger) {
	l.WithFields(e.fields()).Log(e.level(), "contract run")
}

// JSONLogger implements RunLogger with line-oriented output.
type JSONLogger struct {
	log     *logrus.Logger
	entries []RunLogEntry // Track entries for the summary
	mu      sync.RWMutex
}

// NewJSONLogger creates a logger writing JSON lines at info level.
func NewJSONLogger(w io.Writer) *JSONLogger {
	return NewLogger(w, "json", LevelInfo)
}

// NewLogger creates a logger with the given format ("json" or "text") and
// minimum level.
func NewLogger(w io.Writer, format string, level Level) *JSONLogger {
	return &JSONLogger{
		log:     newLogrus(w, format, level),
		entries: make([]RunLogEntry, 0),
	}
}

// LogRun writes the entry if its level is enabled. Every valid entry
// counts toward the summary.
func (l *JSONLogger) LogRun(ctx context.Context, entry RunLogEntry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("observability: context error: %w", err)
	}
	if err := entry.Validate(); err != nil {
		return err
	}

	entry.emit(l.log)

	l.mu.Lock()
	defer l.mu.Unlock()
	entry.Report = nil
	l.entries = append(l.entries, entry)
	return nil
}

// Summary aggregates the runs logged so far.
func (l *JSONLogger) Summary(ctx context.Context) (*models.RunSummary, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	summary := models.NewRunSummary()
	checkCounts := make(map[string]int)
	contractCounts := make(map[string]int)

	for _, entry := range l.entries {
		summary.TotalRuns++
		switch entry.Outcome {
		case models.OutcomePassed:
			summary.PassedRuns++
		case models.OutcomeViolated:
			summary.ViolatedRuns++
			contractCounts[entry.Contract]++
		case models.OutcomeError:
			summary.ErrorRuns++
		}
		if entry.FailedCheck != "" {
			checkCounts[entry.FailedCheck]++
		}
	}

	for check, count := range checkCounts {
		summary.TopFailingChecks = append(summary.TopFailingChecks, models.CheckFailureStat{Check: check, Count: count})
	}
	sort.Slice(summary.TopFailingChecks, func(i, j int) bool {
		a, b := summary.TopFailingChecks[i], summary.TopFailingChecks[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Check < b.Check
	})
	if len(summary.TopFailingChecks) > 5 {
		summary.TopFailingChecks = summary.TopFailingChecks[:5]
	}

	for contract, count := range contractCounts {
		summary.TopContracts = append(summary.TopContracts, models.ContractStat{Contract: contract, Count: count})
	}
	sort.Slice(summary.TopContracts, func(i, j int) bool {
		a, b := summary.TopContracts[i], summary.TopContracts[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Contract < b.Contract
	})
	if len(summary.TopContracts) > 5 {
		summary.TopContracts = summary.TopContracts[:5]
	}

	return summary, nil
}

// NoopLogger is a logger that discards all logs.
// Useful for testing or when logging is disabled.
type NoopLogger struct{}

// NewNoopLogger creates a new no-op logger.
func NewNoopLogger() *NoopLogger {
	return &NoopLogger{}
}

// LogRun does nothing and always succeeds.
func (l *NoopLogger) LogRun(ctx context.Context, entry RunLogEntry) error {
	return nil
}

// Summary returns an empty summary for the no-op logger.
func (l *NoopLogger) Summary(ctx context.Context) (*models.RunSummary, error) {
	return models.NewRunSummary(), nil
}

// PersistentLogger implements RunLogger over the audit store.
// Runs survive process exit and Summary reads them back.
type PersistentLogger struct {
	repo storage.RunRepository
	log  *logrus.Logger // optional: also write log lines
}

// NewPersistentLogger creates a logger that persists run reports.
func NewPersistentLogger(repo storage.RunRepository) (*PersistentLogger, error) {
	if repo == nil {
		return nil, fmt.Errorf("observability: run repository is required for persistent logging")
	}
	return &PersistentLogger{repo: repo}, nil
}

// NewPersistentLoggerWithWriter creates a logger that persists to the store and mirrors lines to w.
func NewPersistentLoggerWithWriter(repo storage.RunRepository, w io.Writer, format string) (*PersistentLogger, error) {
	l, err := NewPersistentLogger(repo)
	if err != nil {
		return nil, err
	}
	l.log = newLogrus(w, format, LevelInfo)
	return l, nil
}

// WithLevel sets the minimum level of mirrored lines. Every run is persisted
// regardless.
func (l *PersistentLogger) WithLevel(level Level) *PersistentLogger {
	if l.log != nil {
		l.log.SetLevel(level)
	}
	return l
}

// LogRun persists the entry's report, then mirrors the line to the writer.
func (l *PersistentLogger) LogRun(ctx context.Context, entry RunLogEntry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("observability: context error: %w", err)
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	if entry.Report == nil {
		return fmt.Errorf("observability: report is required for persistent logging")
	}

	if err := l.repo.Save(ctx, entry.Report); err != nil {
		return fmt.Errorf("observability: failed to persist run: %w", err)
	}

	if l.log != nil {
		entry.emit(l.log)
	}
	return nil
}

// Summary returns aggregated statistics from the audit store.
func (l *PersistentLogger) Summary(ctx context.Context) (*models.RunSummary, error) {
	return l.repo.Summary(ctx)
}

var (
	_ RunLogger = (*JSONLogger)(nil)
	_ RunLogger = (*NoopLogger)(nil)
	_ RunLogger = (*PersistentLogger)(nil)
)
