package cmds

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	connector "github.com/fraugster/parquet-connector"
)

var (
	convertCompression  string
	convertRowGroupRows int
	keepRowGroup        bool
)

func init() {
	convertCmd.Flags().StringVarP(&convertCompression, "compression", "c", "", "Compression method, valid values are snappy, gzip, none (default from profile)")
	convertCmd.Flags().IntVarP(&convertRowGroupRows, "row-group-rows", "r", 0, "Rows per row group (default from profile)")
	convertCmd.Flags().BoolVar(&keepRowGroup, "keep-row-group", false, "Keep the row group provenance column in the output")
	rootCmd.AddCommand(convertCmd)
}

var convertCmd = &cobra.Command{
	Use:   "convert location target.parquet",
	Short: "Reads a parquet file or URL and writes it to a local parquet file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		compName := profile.Writer.Compression
		if convertCompression != "" {
			compName = convertCompression
		}
		comp, err := connector.ParseCompression(compName)
		if err != nil {
			return err
		}
		rows := profile.Writer.RowGroupRows
		if convertRowGroupRows > 0 {
			rows = convertRowGroupRows
		}

		c, err := newConnector(args[0])
		if err != nil {
			return err
		}
		t, err := c.GetData(cmd.Context())
		if err != nil {
			return err
		}
		if !keepRowGroup {
			if t, err = t.DropColumn(profile.Reader.RowGroupColumn); err != nil {
				return err
			}
		}

		out, err := os.Create(filepath.Clean(args[1]))
		if err != nil {
			return err
		}
		defer func() {
			if cerr := out.Close(); err == nil {
				err = cerr
			}
		}()

		w := connector.NewWriter(
			connector.WithRowGroupRows(rows),
			connector.WithCreator(profile.Writer.Creator),
			connector.WithMetaData(map[string]string{"source": args[0]}),
			connector.WithWriteLogger(logger),
		)
		skipped, err := w.WriteTo(cmd.Context(), out, t, comp)
		if err != nil {
			return err
		}
		for _, name := range skipped {
			logger.Warn("column not written", slog.String("column", name))
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s (%s), skipped %d columns\n", t.RowCount(), args[1], comp, len(skipped))
		return nil
	},
}
