package cmds

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	connector "github.com/fraugster/parquet-connector"
	"github.com/fraugster/parquet-connector/table"
)

func writeTestFile(t *testing.T, dir string, rows int) string {
	t.Helper()
	tbl, err := table.New(
		table.Column{Name: "id", Type: table.TypeInt64},
		table.Column{Name: "name", Type: table.TypeString},
	)
	require.NoError(t, err)
	for i := 0; i < rows; i++ {
		require.NoError(t, tbl.AppendRow([]interface{}{int64(i), fmt.Sprintf("n%d", i)}))
	}

	path := filepath.Join(dir, "input.parquet")
	fl, err := os.Create(path)
	require.NoError(t, err)
	defer fl.Close()
	_, err = connector.NewWriter(connector.WithRowGroupRows(10)).WriteTo(context.Background(), fl, tbl, connector.Snappy)
	require.NoError(t, err)
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	profilePath, logLevel = "", ""
	catRaw, showRowGroups, keepRowGroup = false, false, false
	recordCount = 5
	convertCompression, convertRowGroupRows = "", 0
	ingestTable, ingestBatchSize = "", 0

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommands(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeTestFile(t, dir, 25)

	out, err := run(t, "rowcount", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Total RowCount: 25")
	assert.Contains(t, out, "Row groups: 3")

	out, err = run(t, "schema", "--row-groups", path)
	require.NoError(t, err)
	assert.Contains(t, out, "id int64\nname string\n")
	assert.Contains(t, out, "row group 3:")

	out, err = run(t, "head", "-n", "2", path)
	require.NoError(t, err)
	assert.Equal(t, "RowGroup = 1\nid = 0\nname = n0\n\nRowGroup = 1\nid = 1\nname = n1\n\n", out)

	out, err = run(t, "head", "-n", "0", path)
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = run(t, "head", "-n", "-3", path)
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = run(t, "cat", path)
	require.NoError(t, err)
	assert.Contains(t, out, "RowGroup = 3\nid = 24\nname = n24\n")

	target := filepath.Join(dir, "output.parquet")
	out, err = run(t, "convert", "-c", "gzip", "-r", "5", path, target)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 25 rows")

	out, err = run(t, "rowcount", target)
	require.NoError(t, err)
	assert.Contains(t, out, "Row groups: 5")

	out, err = run(t, "schema", target)
	require.NoError(t, err)
	assert.Equal(t, "id int64\nname string\n", out, "the provenance column is not written")

	out, err = run(t, "ingest", "-t", "items", "-b", "4", path, filepath.Join(dir, "test.duckdb"))
	require.NoError(t, err)
	assert.Contains(t, out, "appended 25 rows to items")
	assert.Contains(t, out, "table rows: 25")
}

func TestCommandErrors(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	_, err := run(t, "rowcount", filepath.Join(dir, "missing.parquet"))
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))

	_, err = run(t, "cat", "ftp://example.com/data.parquet")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))

	path := writeTestFile(t, dir, 3)
	_, err = run(t, "convert", "-c", "brotli", path, filepath.Join(dir, "out.parquet"))
	require.Error(t, err)
	assert.Equal(t, 1, exitCode(err))
}
