package table

import (
	"context"
)

// Batch is a bounded set of rows for a fixed column set. All rows of a batch
// originate from the same row group.
type Batch struct {
	RowGroup int
	Columns  []Column
	Rows     [][]interface{}
}

// Len returns the number of rows in the batch.
func (b *Batch) Len() int {
	return len(b.Rows)
}

// BatchSink is a storage target that accepts batches one at a time.
// AppendBatch returns once the batch is buffered; Flush is the durability
// barrier. A sink rejecting a batch returns a *RejectedError.
type BatchSink interface {
	AppendBatch(ctx context.Context, b *Batch) error
	Flush(ctx context.Context) error
	Stats(ctx context.Context) (SinkStats, error)
}

// SinkStats describes the content of a batch sink.
type SinkStats struct {
	TotalRows      int64
	ActiveRows     int64
	DeletedRows    int64
	FileCount      int
	EstimatedBytes int64
}

// RejectedError is returned by a BatchSink that refuses a batch.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return "batch rejected: " + e.Reason
}
