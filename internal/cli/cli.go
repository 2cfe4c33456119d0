// Package cli provides the command-line interface for engarde.
// The CLI runs data contracts against their sources and reports violations.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/canonica-labs/engarde/internal/config"
	"github.com/canonica-labs/engarde/internal/errors"
	"github.com/canonica-labs/engarde/internal/observability"
	"github.com/canonica-labs/engarde/internal/runner"
	"github.com/canonica-labs/engarde/internal/sources"
	"github.com/canonica-labs/engarde/internal/sources/builtin"
	"github.com/canonica-labs/engarde/internal/storage"
	"github.com/canonica-labs/engarde/pkg/models"
)

// Exit codes. They match errors.ErrorCode.
const (
	ExitSuccess   = 0
	ExitViolation = int(errors.CodeViolation)
	ExitConfig    = int(errors.CodeConfig)
	ExitSource    = int(errors.CodeSource)
	ExitInternal  = int(errors.CodeInternal)
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// CLI holds the command-line interface state.
type CLI struct {
	rootCmd *cobra.Command
	cfg     *config.Config

	stdout io.Writer
	stderr io.Writer

	// reported is set once a command has rendered its own failure, so
	// Execute does not print it again.
	reported bool

	// Global flags
	configPath string
	jsonOutput bool
	quiet      bool
	debug      bool
}

// New creates a new CLI instance writing to the process streams.
func New() *CLI {
	return NewWithOutput(os.Stdout, os.Stderr)
}

// NewWithOutput creates a CLI writing to the given streams.
func NewWithOutput(stdout, stderr io.Writer) *CLI {
	cli := &CLI{stdout: stdout, stderr: stderr}
	cli.rootCmd = cli.newRootCmd()
	return cli
}

// SetArgs overrides the command-line arguments.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// Execute runs the CLI and returns the process exit code.
func (c *CLI) Execute() int {
	err := c.rootCmd.Execute()
	if err == nil {
		return ExitSuccess
	}
	if !c.reported {
		c.printError(err)
	}
	return int(errors.CodeOf(err))
}

func (c *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "engarde",
		Short: "engarde - contract checks for tabular data",
		Long: `engarde runs data contracts against tables loaded from databases,
warehouses and files, and reports every cell that breaks them.

A contract names a source (duckdb, sqlite, postgres, trino, snowflake,
bigquery or csv) and an ordered list of checks.

Exit codes:
  0  all checks passed
  1  a check failed
  2  invalid contract or configuration
  3  source unavailable
  4  internal error`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.initConfig()
		},
	}
	cmd.SetOut(c.stdout)
	cmd.SetErr(c.stderr)

	// Global flags
	cmd.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: ~/.engarde/config.yaml)")
	cmd.PersistentFlags().BoolVar(&c.jsonOutput, "json", false, "machine-readable JSON output")
	cmd.PersistentFlags().BoolVar(&c.quiet, "quiet", false, "suppress non-essential output")
	cmd.PersistentFlags().BoolVar(&c.debug, "debug", false, "verbose debug logs")

	cmd.AddCommand(c.newCheckCmd())
	cmd.AddCommand(c.newContractCmd())
	cmd.AddCommand(c.newSourcesCmd())
	cmd.AddCommand(c.newAuditCmd())
	cmd.AddCommand(c.newDoctorCmd())
	cmd.AddCommand(c.newVersionCmd())

	return cmd
}

func (c *CLI) initConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg

	if c.debug {
		c.cfg.Logging.Level = "debug"
	}
	c.debugf("config: audit=%v driver=%s retry=%d\n", cfg.Audit.Enabled, cfg.Audit.Driver, cfg.Retry.MaxAttempts)
	return nil
}

// Helper functions for output

func (c *CLI) printf(format string, args ...interface{}) {
	if !c.quiet {
		fmt.Fprintf(c.stdout, format, args...)
	}
}

func (c *CLI) println(args ...interface{}) {
	if !c.quiet {
		fmt.Fprintln(c.stdout, args...)
	}
}

func (c *CLI) errorf(format string, args ...interface{}) {
	fmt.Fprintf(c.stderr, format, args...)
}

func (c *CLI) debugf(format string, args ...interface{}) {
	if c.debug {
		fmt.Fprintf(c.stderr, "[DEBUG] "+format, args...)
	}
}

func (c *CLI) outputJSON(v interface{}) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printError renders err on stderr, or as an ErrorResponse on stdout with --json.
func (c *CLI) printError(err error) {
	resp := models.ErrorResponse{Error: err.Error(), Code: int(errors.CodeOf(err))}
	if base, ok := errors.Details(err); ok {
		resp.Error = base.Message
		resp.Reason = base.Reason
		resp.Suggestion = base.Suggestion
		if base.Cause != nil {
			resp.Reason = fmt.Sprintf("%s: %v", resp.Reason, base.Cause)
		}
	}

	if c.jsonOutput {
		c.outputJSON(resp)
		return
	}
	c.errorf("Error: %v\n", err)
}

// openAudit opens and migrates the audit store.
// The returned close function is always safe to call.
func (c *CLI) openAudit(ctx context.Context) (storage.RunRepository, func(), error) {
	if !c.cfg.Audit.Enabled {
		return storage.NewMemoryRunRepository(), func() {}, nil
	}

	db, err := storage.Open(c.cfg.Audit.Driver, c.cfg.Audit.DSN)
	if err != nil {
		return nil, func() {}, err
	}
	closeDB := func() { db.Close() }

	if err := storage.NewMigrationRunner(db).Run(ctx); err != nil {
		closeDB()
		return nil, func() {}, err
	}
	c.debugf("audit store ready (%s)\n", c.cfg.Audit.Driver)
	return storage.NewSQLRunRepository(db), closeDB, nil
}

// newLogger returns the run logger for the current configuration. Log lines
// go to stderr so stdout carries only the report.
func (c *CLI) newLogger(repo storage.RunRepository) (observability.RunLogger, error) {
	level, err := observability.ParseLevel(c.cfg.Logging.Level)
	if err != nil {
		return nil, errors.NewInvalidConfig("logging.level", err.Error())
	}

	var w io.Writer = c.stderr
	if c.quiet {
		w = io.Discard
	}
	if c.cfg.Audit.Enabled {
		logger, err := observability.NewPersistentLoggerWithWriter(repo, w, c.cfg.Logging.Format)
		if err != nil {
			return nil, err
		}
		return logger.WithLevel(level), nil
	}
	return observability.NewLogger(w, c.cfg.Logging.Format, level), nil
}

func (c *CLI) newRunner(logger observability.RunLogger, metrics *observability.Metrics) *runner.Runner {
	retry := sources.DefaultRetryConfig()
	retry.MaxAttempts = c.cfg.Retry.MaxAttempts
	retry.InitialDelay = c.cfg.Retry.InitialDelay

	return runner.New(runner.Config{
		Registry:        builtin.Registry(),
		Logger:          logger,
		Metrics:         metrics,
		Retry:           retry,
		CredentialsFile: c.cfg.BigQuery.CredentialsFile,
		Region:          c.cfg.BigQuery.Location,
	})
}
