// Package runner executes contracts: it loads the contract's table from its
// source, evaluates the checks in order and records the run.
//
// A run stops at the first failing check unless Options.All is set, in
// which case every check is evaluated and every failure is reported. The
// returned error always reflects the first failure.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/canonica-labs/engarde/internal/contract"
	"github.com/canonica-labs/engarde/internal/errors"
	"github.com/canonica-labs/engarde/internal/observability"
	"github.com/canonica-labs/engarde/internal/sources"
	"github.com/canonica-labs/engarde/internal/sources/builtin"
	"github.com/canonica-labs/engarde/pkg/checks"
	"github.com/canonica-labs/engarde/pkg/frame"
	"github.com/canonica-labs/engarde/pkg/models"
)

// Config wires a Runner. Zero fields fall back to defaults.
type Config struct {
	// Registry resolves source kinds. Default: builtin.Registry().
	Registry *sources.Registry

	// Logger receives one entry per run. Default: NoopLogger.
	Logger observability.RunLogger

	// Metrics is optional.
	Metrics *observability.Metrics

	// Retry applies to the source load. Default: sources.DefaultRetryConfig().
	Retry sources.RetryConfig

	// CredentialsFile and Region are passed to BigQuery sources.
	CredentialsFile string
	Region          string
}

// Options adjusts a single run.
type Options struct {
	// All evaluates every check instead of stopping at the first failure.
	All bool

	// DSN and Query override the contract's source when set.
	DSN   string
	Query string
}

// Runner executes contracts.
type Runner struct {
	registry        *sources.Registry
	logger          observability.RunLogger
	metrics         *observability.Metrics
	retry           sources.RetryConfig
	credentialsFile string
	region          string

	now   func() time.Time
	newID func() string
}

// New creates a runner.
func New(cfg Config) *Runner {
	r := &Runner{
		registry:        cfg.Registry,
		logger:          cfg.Logger,
		metrics:         cfg.Metrics,
		retry:           cfg.Retry,
		credentialsFile: cfg.CredentialsFile,
		region:          cfg.Region,
		now:             time.Now,
		newID:           uuid.NewString,
	}
	if r.registry == nil {
		r.registry = builtin.Registry()
	}
	if r.logger == nil {
		r.logger = observability.NewNoopLogger()
	}
	if r.retry.MaxAttempts < 1 {
		r.retry = sources.DefaultRetryConfig()
	}
	return r
}

// Run executes c and returns its report. The report is non-nil whenever c is
// non-nil, including when the run fails. The error is an
// *errors.ErrContractViolated when a check failed, or the configuration or
// source error that stopped the run.
func (r *Runner) Run(ctx context.Context, c *contract.Contract, opts Options) (*models.Report, error) {
	if c == nil {
		return nil, errors.NewInvalidContract("contract", "is nil")
	}

	start := r.now()
	report := &models.Report{
		RunID:     r.newID(),
		Contract:  c.Name,
		Source:    c.Source.Kind,
		StartedAt: start.UTC(),
		Results:   []models.CheckResult{},
	}

	runErr := r.execute(ctx, c, opts, report)

	report.DurationMs = r.now().Sub(start).Milliseconds()
	switch {
	case runErr == nil:
		report.Outcome = models.OutcomePassed
	case errors.CodeOf(runErr) == errors.CodeViolation:
		report.Outcome = models.OutcomeViolated
	default:
		report.Outcome = models.OutcomeError
		report.Error = runErr.Error()
	}

	if r.metrics != nil {
		r.metrics.ObserveRun(report)
	}
	if err := r.logger.LogRun(ctx, observability.EntryFromReport(report)); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to record run %s: %w", report.RunID, err)
	}
	return report, runErr
}

func (r *Runner) execute(ctx context.Context, c *contract.Contract, opts Options, report *models.Report) error {
	built, err := c.Build()
	if err != nil {
		return err
	}

	tbl, err := r.load(ctx, c.Source, opts, report)
	if err != nil {
		return err
	}
	report.Rows, report.Cols = tbl.Shape()

	var first *checks.AssertionError
	for i, check := range built {
		if first != nil && !opts.All {
			report.Results = append(report.Results, models.CheckResult{
				Position: i,
				Check:    check.Name(),
				Outcome:  models.CheckSkipped,
			})
			continue
		}

		res, ae := evaluate(i, check, tbl)
		report.Results = append(report.Results, res)
		if ae != nil && first == nil {
			first = ae
		}
	}

	if first != nil {
		return errors.NewContractViolated(c.Name, first)
	}
	return nil
}

// load opens the source, loads the table with retries and applies the index column.
func (r *Runner) load(ctx context.Context, spec contract.SourceSpec, opts Options, report *models.Report) (*frame.Table, error) {
	if opts.DSN != "" {
		spec.DSN = opts.DSN
	}
	if opts.Query != "" {
		spec.Query = opts.Query
	}

	src, err := r.open(ctx, spec)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	tbl, result, err := sources.LoadWithRetry(ctx, src, spec.Query, r.retry)
	if result.Attempts > 1 {
		report.LoadRetries = result.Attempts - 1
	}
	if err != nil {
		if errors.CodeOf(err) != errors.CodeInternal {
			return nil, err
		}
		return nil, errors.NewSourceUnavailable(spec.Kind, err)
	}

	indexed, err := sources.WithIndex(tbl, spec.Index)
	if err != nil {
		return nil, errors.NewInvalidContract("source.index", err.Error())
	}
	projected, err := sources.Project(indexed, spec.Columns)
	if err != nil {
		return nil, errors.NewInvalidContract("source.columns", err.Error())
	}
	return projected, nil
}

func (r *Runner) open(ctx context.Context, spec contract.SourceSpec) (sources.Source, error) {
	cfg := spec.Config()
	cfg.CredentialsFile = r.credentialsFile
	cfg.Region = r.region
	return r.registry.Open(ctx, cfg)
}

// Ping opens the contract's source and checks that it is reachable.
func (r *Runner) Ping(ctx context.Context, c *contract.Contract, opts Options) error {
	spec := c.Source
	if opts.DSN != "" {
		spec.DSN = opts.DSN
	}
	src, err := r.open(ctx, spec)
	if err != nil {
		return err
	}
	defer src.Close()

	if err := src.Ping(ctx); err != nil {
		return errors.NewSourceUnavailable(spec.Kind, err)
	}
	return nil
}

// evaluate runs one check and converts its outcome to a result.
func evaluate(position int, check checks.Check, tbl *frame.Table) (models.CheckResult, *checks.AssertionError) {
	start := time.Now()
	_, err := check.Evaluate(tbl)
	res := models.CheckResult{
		Position:   position,
		Check:      check.Name(),
		Outcome:    models.CheckPassed,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err == nil {
		return res, nil
	}

	ae, ok := checks.AsAssertion(err)
	if !ok {
		ae = &checks.AssertionError{Check: check.Name(), Kind: checks.Structural, Message: err.Error()}
	}
	res.Outcome = models.CheckFailed
	res.Kind = ae.Kind.String()
	res.Message = ae.Message
	res.Expected = ae.Expected
	res.Observed = ae.Observed
	res.Locations = ae.Locations
	return res, ae
}
