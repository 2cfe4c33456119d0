package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/viant/afs"

	"github.com/canonica-labs/engarde/internal/contract"
	"github.com/canonica-labs/engarde/internal/runner"
	"github.com/canonica-labs/engarde/internal/storage"
	"github.com/canonica-labs/engarde/pkg/models"
)

func (c *CLI) newDoctorCmd() *cobra.Command {
	var opts runner.Options

	cmd := &cobra.Command{
		Use:   "doctor [contract.yaml]",
		Short: "Run diagnostics",
		Long: `Run diagnostics.

Checks:
  - configuration
  - audit store connectivity and schema
  - contract validity and source connectivity (when a contract is given)`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			location := ""
			if len(args) == 1 {
				location = args[0]
			}
			return c.runDoctor(location, opts)
		},
	}

	cmd.Flags().StringVar(&opts.DSN, "dsn", "", "override the contract's source DSN")

	return cmd
}

func (c *CLI) runDoctor(location string, opts runner.Options) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var (
		results  []models.DoctorCheck
		firstErr error
	)
	record := func(name string, err error, ok string) {
		check := models.DoctorCheck{Name: name, OK: err == nil, Detail: ok}
		if err != nil {
			check.Detail = err.Error()
			if firstErr == nil {
				firstErr = err
			}
		}
		results = append(results, check)
	}

	record("Configuration", nil, fmt.Sprintf("log level %s, retry attempts %d", c.cfg.Logging.Level, c.cfg.Retry.MaxAttempts))
	detail, err := c.checkAudit(ctx)
	record("Audit store", err, detail)

	if location != "" {
		ct, err := contract.Load(ctx, afs.New(), location)
		if err != nil {
			record("Contract", err, "")
		} else {
			record("Contract", nil, fmt.Sprintf("%s: %d checks", ct.Name, len(ct.Checks)))
			err := c.newRunner(nil, nil).Ping(ctx, ct, opts)
			record("Source", err, fmt.Sprintf("%s reachable", ct.Source.Kind))
		}
	}

	c.reported = true
	if c.jsonOutput {
		if err := c.outputJSON(map[string]interface{}{
			"checks":     results,
			"all_passed": firstErr == nil,
		}); err != nil {
			return err
		}
		return firstErr
	}

	c.println("engarde diagnostics")
	c.println("===================")
	for _, check := range results {
		status := "✗"
		if check.OK {
			status = "✓"
		}
		c.printf("%s %s: %s\n", status, check.Name, firstLine(check.Detail))
	}
	c.println("")

	if firstErr != nil {
		c.println("✗ Some checks failed - see above for details")
	} else {
		c.println("✓ All checks passed")
	}
	return firstErr
}

func (c *CLI) checkAudit(ctx context.Context) (string, error) {
	if !c.cfg.Audit.Enabled {
		return "disabled", nil
	}

	db, err := storage.Open(c.cfg.Audit.Driver, c.cfg.Audit.DSN)
	if err != nil {
		return "", err
	}
	defer db.Close()

	if err := storage.NewSQLRunRepository(db).CheckConnectivity(ctx); err != nil {
		return "", err
	}
	migrator := storage.NewMigrationRunner(db)
	if err := migrator.Run(ctx); err != nil {
		return "", err
	}
	applied, err := migrator.Applied(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s, %d migrations applied", c.cfg.Audit.Driver, len(applied)), nil
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}
