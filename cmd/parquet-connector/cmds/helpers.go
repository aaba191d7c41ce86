package cmds

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"

	"github.com/fraugster/parquet-connector/table"
)

var acceptableSuffix = map[string]int64{
	"KB":  1000,
	"KiB": 1024,
	"MB":  1000 * 1000,
	"MiB": 1024 * 1024,
	"GB":  1000 * 1000 * 1000,
	"GiB": 1024 * 1024 * 1024,
	"TB":  1000 * 1000 * 1000 * 1000,
	"TiB": 1024 * 1024 * 1024 * 1024,
}

// humanToByte parses sizes like "512", "64KiB" or "10MB".
func humanToByte(in string) (int64, error) {
	in = strings.Trim(in, " \n\t")
	if b, err := strconv.ParseInt(in, 10, 64); err == nil {
		if b < 0 {
			return 0, fmt.Errorf("negative size")
		}
		return b, nil
	}

	for _, suffix := range []string{"KiB", "MiB", "GiB", "TiB", "KB", "MB", "GB", "TB"} {
		if strings.HasSuffix(in, suffix) {
			b, err := strconv.ParseInt(strings.TrimSuffix(in, suffix), 10, 64)
			if err != nil {
				return 0, err
			}
			if b < 0 {
				return 0, fmt.Errorf("negative size")
			}
			return b * acceptableSuffix[suffix], nil
		}
	}

	return 0, fmt.Errorf("invalid format")
}

// formatValue renders a single host value for display.
func formatValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "<null>"
	case string:
		return t
	case []byte:
		return fmt.Sprintf("%x", t)
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case table.Decimal:
		return t.String()
	case float32:
		return strconv.FormatFloat(float64(t), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// printRows writes up to n rows of src starting at row first; n < 0 prints
// all remaining rows.
func printRows(w io.Writer, src table.RowSource, first, n int, raw bool) {
	cols := src.Columns()
	for i := first; i < src.RowCount() && (n < 0 || i < first+n); i++ {
		row := src.Row(i)
		if raw {
			spew.Fdump(w, row)
			continue
		}
		for j, c := range cols {
			_, _ = fmt.Fprintln(w, c.Name+" = "+formatValue(row[j]))
		}
		_, _ = fmt.Fprintln(w)
	}
}

func printSchema(w io.Writer, schema table.Schema) {
	for _, c := range schema {
		_, _ = fmt.Fprintln(w, c.String())
	}
}
