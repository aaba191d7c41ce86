package cmds

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fraugster/parquet-connector/duckdbsink"
)

var (
	ingestTable     string
	ingestBatchSize int
)

func init() {
	ingestCmd.Flags().StringVarP(&ingestTable, "table", "t", "", "Target table (default from profile)")
	ingestCmd.Flags().IntVarP(&ingestBatchSize, "batch-size", "b", 0, "Rows per batch (default from profile)")
	rootCmd.AddCommand(ingestCmd)
}

var ingestCmd = &cobra.Command{
	Use:   "ingest location database.duckdb",
	Short: "Streams a parquet file or URL into a DuckDB table",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		tableName := profile.Ingest.Table
		if ingestTable != "" {
			tableName = ingestTable
		}
		batchSize := profile.Ingest.BatchSize
		if ingestBatchSize > 0 {
			batchSize = ingestBatchSize
		}

		c, err := newConnector(args[0])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		sink, err := duckdbsink.Open(ctx, args[1], tableName, duckdbsink.WithLogger(logger))
		if err != nil {
			return err
		}
		defer func() {
			if cerr := sink.Close(); err == nil {
				err = cerr
			}
		}()

		rows, err := c.GetStorageData(ctx, sink, batchSize)
		if err != nil {
			return err
		}
		if err := sink.Flush(ctx); err != nil {
			return err
		}
		stats, err := sink.Stats(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "appended %d rows to %s\n", rows, tableName)
		_, _ = fmt.Fprintf(out, "table rows: %d, database size: %d bytes\n", stats.TotalRows, stats.EstimatedBytes)
		return nil
	},
}
