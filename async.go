package connector

import (
	"context"

	"github.com/fraugster/parquet-connector/table"
)

// DataResult is delivered by GetDataAsync.
type DataResult struct {
	Table *table.Table
	Err   error
}

// StorageResult is delivered by GetStorageDataAsync.
type StorageResult struct {
	Rows int64
	Err  error
}

// GetDataAsync runs GetData in a new goroutine. The returned channel
// receives exactly one result and is closed afterwards.
func (c *DataConnector) GetDataAsync(ctx context.Context) <-chan DataResult {
	ch := make(chan DataResult, 1)
	go func() {
		defer close(ch)
		t, err := c.GetData(ctx)
		ch <- DataResult{Table: t, Err: err}
	}()
	return ch
}

// GetStorageDataAsync runs GetStorageData in a new goroutine. Batches are
// appended in the same order as with the synchronous call. Cancelling ctx
// stops the stream between batches.
func (c *DataConnector) GetStorageDataAsync(ctx context.Context, sink table.BatchSink, batchSize int) <-chan StorageResult {
	ch := make(chan StorageResult, 1)
	go func() {
		defer close(ch)
		rows, err := c.GetStorageData(ctx, sink, batchSize)
		ch <- StorageResult{Rows: rows, Err: err}
	}()
	return ch
}
