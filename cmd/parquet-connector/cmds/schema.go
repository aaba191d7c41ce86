package cmds

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	connector "github.com/fraugster/parquet-connector"
)

var showRowGroups bool

func init() {
	schemaCmd.Flags().BoolVarP(&showRowGroups, "row-groups", "g", false, "Also print the row groups and their codecs")
	rootCmd.AddCommand(schemaCmd)
}

var schemaCmd = &cobra.Command{
	Use:   "schema location",
	Short: "Print the schema of a parquet file or URL as seen by the connector",
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

		w := cmd.OutOrStdout()
		printSchema(w, info.Schema)
		if showRowGroups {
			if err := printInfo(w, info); err != nil {
				return err
			}
		}
		return nil
	},
}

func printInfo(w io.Writer, info *connector.FileInfo) error {
	tw := tabwriter.NewWriter(w, 8, 8, 1, '\t', 0)
	_, _ = fmt.Fprintf(tw, "\ncreated by:\t%s\n", info.CreatedBy)
	keys := make([]string, 0, len(info.MetaData))
	for k := range info.MetaData {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		_, _ = fmt.Fprintf(tw, "meta %s:\t%s\n", k, info.MetaData[k])
	}
	for _, rg := range info.RowGroups {
		_, _ = fmt.Fprintf(tw, "row group %d:\trows=%d\toffset=%d\tsize=%d\tcodecs=%v\n", rg.Index, rg.NumRows, rg.Offset, rg.CompressedSize, rg.Codecs)
	}
	return tw.Flush()
}
