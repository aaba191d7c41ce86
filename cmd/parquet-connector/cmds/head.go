package cmds

import (
	"github.com/spf13/cobra"

	"github.com/fraugster/parquet-connector/table"
)

var recordCount int

func init() {
	headCmd.Flags().IntVarP(&recordCount, "records", "n", 5, "The number of records to show")
	rootCmd.AddCommand(headCmd)
}

var headCmd = &cobra.Command{
	Use:   "head location",
	Short: "Prints the first n records of a parquet file or URL, n <= 0 prints nothing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		resolver, err := newResolver()
		if err != nil {
			return err
		}
		src, err := resolver.Resolve(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer func() {
			if cerr := src.Close(); err == nil {
				err = cerr
			}
		}()

		br, err := newReader().ReadBatches(cmd.Context(), src, max(recordCount, 1))
		if err != nil {
			return err
		}

		t, err := table.New(br.Columns()...)
		if err != nil {
			return err
		}
		for t.RowCount() < recordCount && br.Next() {
			for _, row := range br.Batch().Rows {
				if t.RowCount() == recordCount {
					break
				}
				if err := t.AppendRow(row); err != nil {
					return err
				}
			}
		}
		if err := br.Err(); err != nil {
			return err
		}

		printRows(cmd.OutOrStdout(), t, 0, -1, false)
		return nil
	},
}
