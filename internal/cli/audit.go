package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/canonica-labs/engarde/internal/errors"
)

func (c *CLI) newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit store commands",
		Long:  `Commands over the run audit store. Requires audit.enabled.`,
	}

	cmd.AddCommand(c.newAuditSummaryCmd())
	cmd.AddCommand(c.newAuditShowCmd())

	return cmd
}

func (c *CLI) newAuditSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show aggregated run statistics",
		Long: `Display aggregated statistics over every stored run:
  - Passed, violated and errored run counts
  - Most frequently failing checks
  - Most frequently violated contracts`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runAuditSummary()
		},
	}
}

func (c *CLI) requireAudit() error {
	if !c.cfg.Audit.Enabled {
		return errors.NewInvalidConfig("audit.enabled", "the audit store is disabled")
	}
	return nil
}

func (c *CLI) runAuditSummary() error {
	if err := c.requireAudit(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, closeAudit, err := c.openAudit(ctx)
	if err != nil {
		return err
	}
	defer closeAudit()

	summary, err := repo.Summary(ctx)
	if err != nil {
		return err
	}

	if c.jsonOutput {
		return c.outputJSON(summary)
	}

	c.println("Run Summary:")
	c.printf("  Total:    %d\n", summary.TotalRuns)
	c.printf("  Passed:   %d\n", summary.PassedRuns)
	c.printf("  Violated: %d\n", summary.ViolatedRuns)
	c.printf("  Errors:   %d\n", summary.ErrorRuns)

	if len(summary.TopFailingChecks) > 0 {
		c.println("\nTop Failing Checks:")
		for _, s := range summary.TopFailingChecks {
			c.printf("  - %s: %d\n", s.Check, s.Count)
		}
	}

	if len(summary.TopContracts) > 0 {
		c.println("\nTop Violated Contracts:")
		for _, s := range summary.TopContracts {
			c.printf("  - %s: %d\n", s.Contract, s.Count)
		}
	}

	return nil
}

func (c *CLI) newAuditShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a stored run report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runAuditShow(args[0])
		},
	}
}

func (c *CLI) runAuditShow(runID string) error {
	if err := c.requireAudit(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, closeAudit, err := c.openAudit(ctx)
	if err != nil {
		return err
	}
	defer closeAudit()

	report, err := repo.Get(ctx, runID)
	if err != nil {
		return err
	}

	if c.jsonOutput {
		return c.outputJSON(report)
	}
	c.renderReport(report)
	if report.Error != "" {
		c.printf("Error: %s\n", report.Error)
	}
	return nil
}
