package duckdbsink

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fraugster/parquet-connector/table"
)

var testColumns = []table.Column{
	{Name: "RowGroup", Type: table.TypeInt32},
	{Name: "id", Type: table.TypeInt64},
	{Name: "price", Type: table.TypeDecimal, Precision: 10, Scale: 2},
	{Name: "name", Type: table.TypeString},
	{Name: "seen", Type: table.TypeTimestamp},
	{Name: "ok", Type: table.TypeBoolean},
}

func TestSinkLoggerDefault(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.duckdb")

	s, err := Open(ctx, path, "events")
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, slog.DiscardHandler, s.log.Handler(), "the sink is silent unless a logger is given")

	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	s2, err := Open(ctx, filepath.Join(t.TempDir(), "other.duckdb"), "events", WithLogger(l))
	require.NoError(t, err)
	defer s2.Close()
	assert.Same(t, l, s2.log)
}

func TestSinkAppend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.duckdb")

	s, err := Open(ctx, path, "events")
	require.NoError(t, err)
	defer s.Close()

	ts := time.Date(2022, 3, 4, 5, 6, 7, 8000, time.UTC)
	require.NoError(t, s.AppendBatch(ctx, &table.Batch{
		RowGroup: 1,
		Columns:  testColumns,
		Rows: [][]interface{}{
			{int32(1), int64(10), table.NewDecimal(12345, 10, 2), "a", ts, true},
			{int32(1), int64(11), nil, nil, nil, nil},
		},
	}))
	require.NoError(t, s.AppendBatch(ctx, &table.Batch{
		RowGroup: 2,
		Columns:  testColumns,
		Rows: [][]interface{}{
			{int32(2), int64(12), table.NewDecimal(-1, 10, 2), "c", ts, false},
		},
	}))
	require.NoError(t, s.Flush(ctx))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalRows)
	assert.Equal(t, int64(3), stats.ActiveRows)
	assert.Equal(t, 1, stats.FileCount)
	assert.Greater(t, stats.EstimatedBytes, int64(0))

	var price string
	require.NoError(t, s.DB().QueryRowContext(ctx, `SELECT CAST(price AS VARCHAR) FROM "events" WHERE id = 10`).Scan(&price))
	assert.Equal(t, "123.45", price)

	var nulls int
	require.NoError(t, s.DB().QueryRowContext(ctx, `SELECT count(*) FROM "events" WHERE name IS NULL`).Scan(&nulls))
	assert.Equal(t, 1, nulls)
}

func TestSinkRejectsOtherColumns(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, "", "t")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.AppendBatch(ctx, &table.Batch{Columns: testColumns[:2], Rows: [][]interface{}{{int32(1), int64(1)}}}))

	var rejected *table.RejectedError
	err = s.AppendBatch(ctx, &table.Batch{Columns: testColumns[:3], Rows: [][]interface{}{{int32(1), int64(1), nil}}})
	require.True(t, errors.As(err, &rejected))

	err = s.AppendBatch(ctx, &table.Batch{Columns: testColumns[:2], Rows: [][]interface{}{{int32(1)}}})
	require.True(t, errors.As(err, &rejected))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalRows)
	assert.Equal(t, 0, stats.FileCount)
}

func TestSQLType(t *testing.T) {
	assert.Equal(t, "DECIMAL(38,4)", sqlType(table.Column{Type: table.TypeDecimal, Precision: 38, Scale: 4}))
	assert.Equal(t, "VARCHAR", sqlType(table.Column{Type: table.TypeDecimal, Precision: 40}))
	assert.Equal(t, "VARCHAR", sqlType(table.Column{Type: table.TypeTable}))
	assert.Equal(t, "BLOB", sqlType(table.Column{Type: table.TypeBytes}))
	assert.Equal(t, `"a""b"`, quoteIdent(`a"b`))
}
