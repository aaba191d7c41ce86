package connector

import (
	"io"

	"github.com/fraugster/parquet-connector/table"
)

// BatchReader iterates over the batches of a parquet file. It is
// forward-only: once Next returned false the reader is exhausted, and
// reading again requires reopening the source.
//
//	br, err := reader.ReadBatches(ctx, src, 1000)
//	// ...
//	for br.Next() {
//		batch := br.Batch()
//		// ...
//	}
//	if err := br.Err(); err != nil {
//		// ...
//	}
type BatchReader struct {
	cur       *groupCursor
	batchSize int

	batch *table.Batch
	err   error
	done  bool
}

// Next decodes the next batch. It returns false at the end of the file or
// on error; Err tells both cases apart.
func (b *BatchReader) Next() bool {
	if b.done {
		return false
	}

	for b.cur.remaining == 0 {
		if err := b.cur.nextGroup(); err != nil {
			b.finish(err)
			return false
		}
	}

	n := b.cur.remaining
	if n > int64(b.batchSize) {
		n = int64(b.batchSize)
	}

	rows := make([][]interface{}, 0, n)
	for i := int64(0); i < n; i++ {
		row, err := b.cur.nextRow()
		if err != nil {
			b.finish(err)
			return false
		}
		rows = append(rows, row)
	}

	b.batch = &table.Batch{
		RowGroup: b.cur.group,
		Columns:  b.cur.columns,
		Rows:     rows,
	}
	return true
}

func (b *BatchReader) finish(err error) {
	b.done = true
	b.batch = nil
	if err != io.EOF {
		b.err = err
	}
}

// Batch returns the batch decoded by the last successful call to Next.
func (b *BatchReader) Batch() *table.Batch {
	return b.batch
}

// Err returns the error that stopped the iteration, or nil at end of file.
func (b *BatchReader) Err() error {
	return b.err
}

// Columns returns the column set shared by every batch, starting with the
// provenance column.
func (b *BatchReader) Columns() []table.Column {
	return b.cur.columns
}

// Info returns the footer information of the file being read.
func (b *BatchReader) Info() *FileInfo {
	return b.cur.info
}
