package memsink

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fraugster/parquet-connector/table"
)

var testColumns = []table.Column{
	{Name: "RowGroup", Type: table.TypeInt32},
	{Name: "name", Type: table.TypeString},
}

func batch(rg int, names ...string) *table.Batch {
	b := &table.Batch{RowGroup: rg, Columns: testColumns}
	for _, n := range names {
		b.Rows = append(b.Rows, []interface{}{int32(rg), n})
	}
	return b
}

func TestSinkAppendAndFlush(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.AppendBatch(ctx, batch(1, "a", "b")))
	require.NoError(t, s.AppendBatch(ctx, batch(2, "cc")))
	assert.Equal(t, 2, s.Batches())
	assert.Equal(t, testColumns, s.Columns())
	assert.Equal(t, int64(0), s.Flushed())

	require.NoError(t, s.Flush(ctx))
	assert.Equal(t, int64(3), s.Flushed())

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalRows)
	assert.Equal(t, int64(3), stats.ActiveRows)
	assert.Equal(t, int64(3*4+4), stats.EstimatedBytes)

	rows := s.Rows()
	require.Len(t, rows, 3)
	assert.Equal(t, []interface{}{int32(2), "cc"}, rows[2])
}

func TestSinkRejects(t *testing.T) {
	ctx := context.Background()
	s := New(WithCapacity(3))

	require.NoError(t, s.AppendBatch(ctx, batch(1, "a", "b")))

	err := s.AppendBatch(ctx, batch(2, "c", "d"))
	var rejected *table.RejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Contains(t, rejected.Reason, "capacity")
	assert.Len(t, s.Rows(), 2, "a rejected batch leaves no rows behind")

	other := &table.Batch{Columns: []table.Column{{Name: "x", Type: table.TypeInt64}}, Rows: [][]interface{}{{int64(1)}}}
	require.True(t, errors.As(s.AppendBatch(ctx, other), &rejected))

	short := &table.Batch{Columns: testColumns, Rows: [][]interface{}{{int32(1)}}}
	require.True(t, errors.As(s.AppendBatch(ctx, short), &rejected))
	assert.Len(t, s.Rows(), 2)
}

func TestSinkCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New().AppendBatch(ctx, batch(1, "a"))
	require.ErrorIs(t, err, context.Canceled)
}
