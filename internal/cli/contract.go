package cli

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/viant/afs"

	"github.com/canonica-labs/engarde/internal/contract"
)

func (c *CLI) newContractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contract",
		Short: "Contract file commands",
	}

	cmd.AddCommand(c.newContractValidateCmd())

	return cmd
}

func (c *CLI) newContractValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <contract.yaml>",
		Short: "Validate a contract without running it",
		Long: `Parse the contract and build every check. The source is not contacted.

Unknown fields, unknown checks, unknown source kinds and parameters that do
not belong to a check are all rejected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runContractValidate(args[0])
		},
	}
}

// contractSummary is the JSON output of contract validate.
type contractSummary struct {
	Name   string   `json:"name"`
	Source string   `json:"source"`
	Index  string   `json:"index,omitempty"`
	Checks []string `json:"checks"`
	Valid  bool     `json:"valid"`
}

func (c *CLI) runContractValidate(location string) error {
	ct, err := contract.Load(context.Background(), afs.New(), location)
	if err != nil {
		return err
	}
	built, err := ct.Build()
	if err != nil {
		return err
	}

	summary := contractSummary{
		Name:   ct.Name,
		Source: ct.Source.Kind,
		Index:  ct.Source.Index,
		Checks: make([]string, len(built)),
		Valid:  true,
	}
	for i, check := range built {
		summary.Checks[i] = check.Name()
		if cmp, ok := check.(contract.ComparisonCheck); ok {
			summary.Checks[i] = cmp.Name() + " " + cmp.Label()
		}
	}

	if c.jsonOutput {
		return c.outputJSON(summary)
	}

	c.printf("✓ Contract %s is valid\n", summary.Name)
	c.printf("  Source: %s\n", summary.Source)
	if summary.Index != "" {
		c.printf("  Index:  %s\n", summary.Index)
	}
	c.printf("  Checks: %d\n", len(summary.Checks))
	for i, name := range summary.Checks {
		c.printf("    %d. %s\n", i, name)
	}
	return nil
}
