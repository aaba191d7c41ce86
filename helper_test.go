package connector

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fraugster/parquet-connector/table"
)

var sampleColumns = []table.Column{
	{Name: "id", Type: table.TypeInt64},
	{Name: "small", Type: table.TypeInt32},
	{Name: "ratio", Type: table.TypeFloat32},
	{Name: "score", Type: table.TypeFloat64},
	{Name: "price", Type: table.TypeDecimal, Precision: 9, Scale: 2},
	{Name: "amount", Type: table.TypeDecimal, Precision: 18, Scale: 3},
	{Name: "balance", Type: table.TypeDecimal, Precision: 38, Scale: 4},
	{Name: "active", Type: table.TypeBoolean},
	{Name: "name", Type: table.TypeString},
	{Name: "seen", Type: table.TypeTimestamp},
	{Name: "payload", Type: table.TypeBytes},
}

var sampleEpoch = time.Date(2021, 6, 1, 8, 0, 0, 0, time.UTC)

// sampleRow returns row i of the sample data. Every seventh row holds
// nulls in all nullable columns.
func sampleRow(i int) []interface{} {
	if i%7 == 6 {
		return []interface{}{int64(i), nil, nil, nil, nil, nil, nil, nil, nil, nil, nil}
	}
	return []interface{}{
		int64(i),
		int32(i - 500),
		float32(i) / 4,
		float64(i) * 1.5,
		table.NewDecimal(int64(i)*101-5000, 9, 2),
		table.NewDecimal(int64(i)*1000003, 18, 3),
		table.NewDecimal(-int64(i)*7, 38, 4),
		i%2 == 0,
		fmt.Sprintf("name-%05d", i),
		sampleEpoch.Add(time.Duration(i) * time.Second),
		[]byte{byte(i), byte(i >> 8)},
	}
}

func sampleTable(t *testing.T, rows int) *table.Table {
	t.Helper()
	tbl, err := table.New(sampleColumns...)
	require.NoError(t, err)
	for i := 0; i < rows; i++ {
		require.NoError(t, tbl.AppendRow(sampleRow(i)))
	}
	return tbl
}

func writeParquet(t *testing.T, src table.RowSource, compression Compression, opts ...WriterOption) []byte {
	t.Helper()
	data, err := NewWriter(opts...).Write(context.Background(), src, compression)
	require.NoError(t, err, "writing parquet failed")
	return data
}

func writeParquetFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func readParquet(t *testing.T, data []byte, opts ...ReaderOption) *table.Table {
	t.Helper()
	tbl, err := NewReader(opts...).ReadAll(context.Background(), bytes.NewReader(data))
	require.NoError(t, err, "reading parquet failed")
	return tbl
}

// requireSameValue compares host values, using Equal for decimals and
// timestamps.
func requireSameValue(t *testing.T, want, got interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	switch w := want.(type) {
	case table.Decimal:
		g, ok := got.(table.Decimal)
		require.True(t, ok, msgAndArgs...)
		require.Truef(t, w.Equal(g), "want %s, got %s", w, g)
	case time.Time:
		g, ok := got.(time.Time)
		require.True(t, ok, msgAndArgs...)
		require.True(t, w.Equal(g), msgAndArgs...)
		require.Equal(t, time.UTC, g.Location(), msgAndArgs...)
	default:
		require.Equal(t, want, got, msgAndArgs...)
	}
}
