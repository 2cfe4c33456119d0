package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/viant/afs"

	"github.com/canonica-labs/engarde/internal/contract"
	"github.com/canonica-labs/engarde/internal/observability"
	"github.com/canonica-labs/engarde/internal/runner"
	"github.com/canonica-labs/engarde/pkg/frame"
	"github.com/canonica-labs/engarde/pkg/models"
)

// maxListedLocations bounds the locations printed per failed check in table output.
const maxListedLocations = 10

func (c *CLI) newCheckCmd() *cobra.Command {
	var opts runner.Options

	cmd := &cobra.Command{
		Use:   "check <contract.yaml>",
		Short: "Run a contract against its source",
		Long: `Load the contract's table from its source and evaluate every check in order.

By default the run stops at the first failing check and the remaining
checks are reported as skipped. With --all every check runs and every
failure is reported.

The contract may be a local path or any URL readable by afs
(s3://, gs://, mem://, ...).`,
		Example: `  engarde check contracts/orders.yaml
  engarde check orders.yaml --all --json
  engarde check orders.yaml --dsn "postgres://ro@replica/sales?sslmode=disable"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCheck(args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "evaluate every check instead of stopping at the first failure")
	cmd.Flags().StringVar(&opts.DSN, "dsn", "", "override the contract's source DSN")
	cmd.Flags().StringVar(&opts.Query, "query", "", "override the contract's source query")

	return cmd
}

func (c *CLI) runCheck(location string, opts runner.Options) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ct, err := contract.Load(ctx, afs.New(), location)
	if err != nil {
		return err
	}
	c.debugf("contract %s: %d checks against %s\n", ct.Name, len(ct.Checks), ct.Source.Kind)

	repo, closeAudit, err := c.openAudit(ctx)
	if err != nil {
		return err
	}
	defer closeAudit()

	logger, err := c.newLogger(repo)
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics()
	report, runErr := c.newRunner(logger, metrics).Run(ctx, ct, opts)

	if path := c.cfg.Metrics.Textfile; path != "" {
		if err := metrics.WriteTextfile(path); err != nil {
			c.errorf("Warning: failed to write metrics to %s: %v\n", path, err)
		}
	}

	if report == nil {
		return runErr
	}

	if c.jsonOutput {
		c.reported = true
		if err := c.outputJSON(report); err != nil {
			return err
		}
		return runErr
	}

	c.renderReport(report)
	if runErr != nil && report.Outcome == models.OutcomeViolated {
		c.reported = true
	}
	return runErr
}

func (c *CLI) renderReport(report *models.Report) {
	c.printf("Contract: %s (%s)\n", report.Contract, report.Source)
	c.printf("Run ID:   %s\n", report.RunID)
	if report.Outcome != models.OutcomeError {
		c.printf("Table:    %d rows x %d cols\n", report.Rows, report.Cols)
	}
	if report.LoadRetries > 0 {
		c.printf("Retries:  %d\n", report.LoadRetries)
	}
	c.println("")

	if len(report.Results) > 0 && !c.quiet {
		table := tablewriter.NewWriter(c.stdout)
		table.Header("#", "Check", "Outcome", "Detail")
		for _, res := range report.Results {
			table.Append(
				fmt.Sprintf("%d", res.Position),
				res.Check,
				outcomeMark(res.Outcome),
				detail(res),
			)
		}
		table.Render()
		c.println("")
	}

	for _, res := range report.Failed() {
		if len(res.Locations) == 0 {
			continue
		}
		c.printf("%s violations (%d):\n", res.Check, len(res.Locations))
		c.printf("  %s\n", listLocations(res.Locations))
	}

	switch report.Outcome {
	case models.OutcomePassed:
		c.printf("✓ All %d checks passed (%d ms)\n", len(report.Results), report.DurationMs)
	case models.OutcomeViolated:
		c.printf("✗ %d of %d checks failed (%d ms)\n", len(report.Failed()), len(report.Results), report.DurationMs)
	}
}

func outcomeMark(o models.CheckOutcome) string {
	switch o {
	case models.CheckPassed:
		return "✓ passed"
	case models.CheckFailed:
		return "✗ failed"
	}
	return "- skipped"
}

func detail(res models.CheckResult) string {
	if res.Outcome != models.CheckFailed {
		return ""
	}
	parts := []string{res.Message}
	if res.Expected != "" {
		parts = append(parts, "expected "+res.Expected)
	}
	if res.Observed != "" {
		parts = append(parts, "observed "+res.Observed)
	}
	if n := len(res.Locations); n > 0 {
		parts = append(parts, fmt.Sprintf("%d cells", n))
	}
	return strings.Join(parts, "; ")
}

func listLocations(locs []frame.Location) string {
	if len(locs) <= maxListedLocations {
		return frame.FormatLocations(locs)
	}
	return fmt.Sprintf("%s ... and %d more", frame.FormatLocations(locs[:maxListedLocations]), len(locs)-maxListedLocations)
}
