package cli

import (
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/canonica-labs/engarde/internal/sources/builtin"
	"github.com/canonica-labs/engarde/pkg/models"
)

var sourceDescriptions = map[string]string{
	"bigquery":  "Google BigQuery (project, optional credentials file)",
	"csv":       "CSV file at a local path or afs URL (s3://, gs://, ...)",
	"duckdb":    "DuckDB database file, or in-memory when dsn is empty",
	"postgres":  "PostgreSQL via lib/pq",
	"snowflake": "Snowflake via gosnowflake",
	"sqlite":    "SQLite database file",
	"trino":     "Trino coordinator (http or https dsn)",
}

func (c *CLI) newSourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List supported source kinds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSources()
		},
	}
}

func (c *CLI) runSources() error {
	kinds := builtin.Registry().Kinds()
	infos := make([]models.SourceInfo, len(kinds))
	for i, kind := range kinds {
		infos[i] = models.SourceInfo{
			Kind:        kind,
			Query:       builtin.QueryKinds[kind],
			Description: sourceDescriptions[kind],
		}
	}

	if c.jsonOutput {
		return c.outputJSON(infos)
	}

	table := tablewriter.NewWriter(c.stdout)
	table.Header("Kind", "Query", "Description")
	for _, info := range infos {
		query := "no"
		if info.Query {
			query = "yes"
		}
		table.Append(info.Kind, query, info.Description)
	}
	return table.Render()
}
