// Package memsink provides an in-memory table.BatchSink. It keeps every
// appended row and is mostly useful for tests and dry runs.
package memsink

import (
	"context"
	"fmt"
	"sync"

	"github.com/fraugster/parquet-connector/table"
)

// Sink is an in-memory batch sink. It is safe for concurrent use.
type Sink struct {
	mu       sync.Mutex
	columns  []table.Column
	rows     [][]interface{}
	batches  int
	flushed  int64
	capacity int
	size     int64
}

// Option configures a Sink.
type Option func(*Sink)

// WithCapacity makes the sink reject any batch that would grow it beyond
// rows rows.
func WithCapacity(rows int) Option {
	return func(s *Sink) {
		s.capacity = rows
	}
}

// New creates an empty sink.
func New(opts ...Option) *Sink {
	s := &Sink{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AppendBatch appends all rows of b or none of them. The first batch fixes
// the column set; later batches must carry the same columns.
func (s *Sink) AppendBatch(ctx context.Context, b *table.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.columns == nil {
		s.columns = append([]table.Column(nil), b.Columns...)
	} else if !sameColumns(s.columns, b.Columns) {
		return &table.RejectedError{Reason: "column set does not match earlier batches"}
	}

	if s.capacity > 0 && len(s.rows)+b.Len() > s.capacity {
		return &table.RejectedError{Reason: fmt.Sprintf("capacity of %d rows exceeded", s.capacity)}
	}

	for _, row := range b.Rows {
		if len(row) != len(s.columns) {
			return &table.RejectedError{Reason: fmt.Sprintf("row has %d values, expected %d", len(row), len(s.columns))}
		}
	}

	for _, row := range b.Rows {
		s.rows = append(s.rows, row)
		s.size += estimateRow(row)
	}
	s.batches++
	return nil
}

// Flush marks all appended rows as flushed.
func (s *Sink) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushed = int64(len(s.rows))
	return nil
}

// Stats returns the current sink statistics.
func (s *Sink) Stats(ctx context.Context) (table.SinkStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return table.SinkStats{
		TotalRows:      int64(len(s.rows)),
		ActiveRows:     int64(len(s.rows)),
		EstimatedBytes: s.size,
	}, nil
}

// Rows returns a copy of all appended rows.
func (s *Sink) Rows() [][]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]interface{}(nil), s.rows...)
}

// Columns returns the column set fixed by the first batch.
func (s *Sink) Columns() []table.Column {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.columns
}

// Batches returns the number of accepted batches.
func (s *Sink) Batches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batches
}

// Flushed returns the number of rows covered by the last Flush.
func (s *Sink) Flushed() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushed
}

func sameColumns(a, b []table.Column) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func estimateRow(row []interface{}) int64 {
	var n int64
	for _, v := range row {
		switch x := v.(type) {
		case nil:
		case string:
			n += int64(len(x))
		case []byte:
			n += int64(len(x))
		case bool:
			n++
		case int32, float32:
			n += 4
		default:
			n += 8
		}
	}
	return n
}
