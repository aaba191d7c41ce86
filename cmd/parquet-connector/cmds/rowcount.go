package cmds

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(rowCountCmd)
}

var rowCountCmd = &cobra.Command{
	Use:   "rowcount location",
	Short: "Prints the count of rows in a parquet file or URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newConnector(args[0])
		if err != nil {
			return err
		}
		info, err := c.GetSchema(cmd.Context())
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Total RowCount:", info.NumRows)
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Row groups:", len(info.RowGroups))
		return nil
	},
}
