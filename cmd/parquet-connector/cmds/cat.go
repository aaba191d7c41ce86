package cmds

import (
	"github.com/spf13/cobra"
)

var catRaw bool

func init() {
	catCmd.Flags().BoolVar(&catRaw, "raw", false, "Dump the Go values of every row")
	rootCmd.AddCommand(catCmd)
}

var catCmd = &cobra.Command{
	Use:   "cat location",
	Short: "Prints all rows of a parquet file or URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newConnector(args[0])
		if err != nil {
			return err
		}
		t, err := c.GetData(cmd.Context())
		if err != nil {
			return err
		}
		printRows(cmd.OutOrStdout(), t, 0, -1, catRaw)
		return nil
	},
}
