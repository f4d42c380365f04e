package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/semlayer/semlayer/core/domain"
	"github.com/semlayer/semlayer/core/logger"
)

var (
	queryOpts   queryFlags
	queryFormat string
	queryOutput string
	querySQL    bool
)

// queryCmd runs a semantic layer query through the gateway
var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run a semantic layer query",
	Long: `Run a semantic layer query through the gateway.

The query is scheduled as a job; the command waits for it and prints the
rows as a table, as JSON with --json, or writes the results file with --output.`,
	Example: `  semlayer query --project p1 --dimension status --metric revenue --sort revenue:desc --limit 10
  semlayer query --project p1 --time-dimension order_date:month --metric orders --filter status!=returned
  semlayer query --project p1 --metric revenue --format csv --output revenue.csv
  semlayer query --project p1 --dimension status --metric revenue --sql`,
	RunE:          runQuery,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(queryCmd)

	f := queryCmd.Flags()
	f.StringSliceVarP(&queryOpts.dimensions, "dimension", "d", nil, "Dimension to group by (repeatable)")
	f.StringSliceVarP(&queryOpts.timeDimensions, "time-dimension", "t", nil, "Time dimension as name[:granularity] (repeatable)")
	f.StringSliceVarP(&queryOpts.metrics, "metric", "m", nil, "Metric to compute (repeatable)")
	f.StringArrayVar(&queryOpts.filters, "filter", nil, "Filter as field=v1|v2 or field!=v1|v2 (repeatable)")
	f.StringSliceVar(&queryOpts.sorts, "sort", nil, "Sort as field[:asc|desc] (repeatable)")
	f.IntVarP(&queryOpts.limit, "limit", "l", 0, "Maximum number of rows (at most 5000)")
	f.StringVar(&queryOpts.timezone, "timezone", "", "Timezone applied to time dimensions")
	f.StringVar(&queryFormat, "format", string(domain.ResultsFormatJSONL), "Results file format with --output: jsonl or csv")
	f.StringVarP(&queryOutput, "output", "o", "", "Write the results file to this path ('-' for stdout)")
	f.BoolVar(&querySQL, "sql", false, "Print the compiled SQL instead of running the query")
	f.BoolVar(&jsonOutput, "json", false, "Print rows as JSON")
}

func runQuery(cmd *cobra.Command, args []string) error {
	log := logger.New("query")

	query, err := queryOpts.build()
	if err != nil {
		return log.Errorf("invalid query: %w", err)
	}
	format := domain.ResultsFormat(queryFormat)
	if format != domain.ResultsFormatJSONL && format != domain.ResultsFormatCSV {
		return log.Errorf("invalid format %q: expected jsonl or csv", queryFormat)
	}

	c, project, err := newAPIClient("query")
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	out := cmd.OutOrStdout()

	if querySQL {
		sql, err := c.SQL(ctx, project, query)
		if err != nil {
			return log.Errorf("failed to compile query: %w", err)
		}
		_, err = out.Write([]byte(sql + "\n"))
		return err
	}

	if queryOutput != "" {
		jobID, err := c.Run(ctx, project, query, format)
		if err != nil {
			return log.Errorf("failed to schedule query: %w", err)
		}
		log.Debugf("Scheduled job %s", jobID)
		status, err := c.WaitForJob(ctx, jobID)
		if err != nil {
			return log.Errorf("query failed: %w", err)
		}

		if queryOutput == "-" {
			return c.Download(ctx, status.Details.FileURL, out)
		}
		file, err := os.Create(queryOutput)
		if err != nil {
			return log.Errorf("failed to create %s: %w", queryOutput, err)
		}
		defer file.Close()
		if err := c.Download(ctx, status.Details.FileURL, file); err != nil {
			return log.Errorf("failed to download results: %w", err)
		}
		log.Successf("Wrote %d row(s) to %s", status.Details.RowCount, queryOutput)
		return nil
	}

	rows, err := c.Query(ctx, project, query)
	if err != nil {
		return log.Errorf("query failed: %w", err)
	}
	if jsonOutput {
		return writeJSON(out, rows)
	}

	columns := resultColumns(query, rows)
	tableRows := make([][]any, 0, len(rows))
	for _, row := range rows {
		values := make([]any, len(columns))
		for i, col := range columns {
			values[i] = row[col]
		}
		tableRows = append(tableRows, values)
	}
	if err := renderTable(out, columns, tableRows); err != nil {
		return err
	}
	log.Infof("%d row(s)", len(rows))
	return nil
}
