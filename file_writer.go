package connector

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"log/slog"
	"maps"
	"slices"

	"github.com/apache/thrift/lib/go/thrift"
	goparquet "github.com/fraugster/parquet-go"
	"github.com/fraugster/parquet-go/parquet"
	"github.com/pkg/errors"

	"github.com/fraugster/parquet-connector/table"
)

var parquetMagic = []byte("PAR1")

// DefaultRowGroupRows is the number of rows written per row group unless
// configured otherwise.
const DefaultRowGroupRows = 10000

// Writer encodes tables into parquet files.
type Writer struct {
	rowGroupRows int
	createdBy    string
	metaData     map[string]string
	log          *slog.Logger
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// NewWriter creates a new writer.
func NewWriter(opts ...WriterOption) *Writer {
	w := &Writer{
		rowGroupRows: DefaultRowGroupRows,
		createdBy:    "parquet-connector",
		log:          discardLogger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WithRowGroupRows sets the number of rows per written row group. Values
// below 1 keep the default.
func WithRowGroupRows(n int) WriterOption {
	return func(w *Writer) {
		if n > 0 {
			w.rowGroupRows = n
		}
	}
}

// WithCreator sets the CreatedBy field of written files.
func WithCreator(createdBy string) WriterOption {
	return func(w *Writer) {
		w.createdBy = createdBy
	}
}

// WithMetaData sets key/value metadata stored in the footer.
func WithMetaData(data map[string]string) WriterOption {
	return func(w *Writer) {
		w.metaData = data
	}
}

// WithWriteLogger sets the logger used by the writer.
func WithWriteLogger(l *slog.Logger) WriterOption {
	return func(w *Writer) {
		if l != nil {
			w.log = l
		}
	}
}

// Write encodes src with the given compression and returns the file bytes.
// Columns whose type has no parquet representation are left out.
func (w *Writer) Write(ctx context.Context, src table.RowSource, compression Compression) ([]byte, error) {
	data, _, err := w.WriteWithSkipped(ctx, src, compression)
	return data, err
}

// WriteWithSkipped is like Write but also returns the names of the columns
// that were left out, in their original order.
func (w *Writer) WriteWithSkipped(ctx context.Context, src table.RowSource, compression Compression) ([]byte, []string, error) {
	var buf bytes.Buffer
	skipped, err := w.WriteTo(ctx, &buf, src, compression)
	if err != nil {
		return nil, nil, err
	}
	return buf.Bytes(), skipped, nil
}

// WriteTo encodes src into out and returns the names of skipped columns.
// A source without rows yields a valid file with no row groups. When no
// column has a parquet representation the file holds only the footer
// schema and zero rows.
func (w *Writer) WriteTo(ctx context.Context, out io.Writer, src table.RowSource, compression Compression) ([]string, error) {
	const op = "write"

	codec, err := compression.codec()
	if err != nil {
		return nil, newError(KindConfiguration, op, err)
	}

	cols := src.Columns()
	plan, err := planWrite(cols)
	if err != nil {
		return nil, newError(KindSerialization, op, err)
	}
	if len(plan.skipped) > 0 {
		w.log.Warn("skipping columns with unsupported types", slog.Any("columns", plan.skipped))
	}

	if len(plan.kept) == 0 {
		if err := w.writeFooterOnly(ctx, out); err != nil {
			return nil, classify(KindIO, op, err)
		}
		return plan.skipped, nil
	}

	opts := []goparquet.FileWriterOption{
		goparquet.WithSchemaDefinition(plan.definition),
		goparquet.WithCompressionCodec(codec),
		goparquet.WithCreator(w.createdBy),
		goparquet.WithCRC(true),
	}
	if len(w.metaData) > 0 {
		opts = append(opts, goparquet.WithMetaData(w.metaData))
	}
	fw := goparquet.NewFileWriter(out, opts...)

	numRows := src.RowCount()
	pending := 0
	for i := 0; i < numRows; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row := src.Row(i)
		if len(row) != len(cols) {
			return nil, newError(KindSerialization, op, errors.Errorf("row %d has %d values, expected %d", i, len(row), len(cols)))
		}

		data := make(map[string]interface{}, len(plan.kept))
		for j, idx := range plan.kept {
			v := row[idx]
			if v == nil {
				continue
			}
			pv, err := plan.encoders[j](v)
			if err != nil {
				return nil, newError(KindSerialization, op, errors.Wrapf(err, "column %q row %d", cols[idx].Name, i))
			}
			data[cols[idx].Name] = pv
		}

		if err := fw.AddData(data); err != nil {
			return nil, classify(KindSerialization, op, errors.Wrapf(err, "adding row %d failed", i))
		}

		pending++
		if pending == w.rowGroupRows {
			if err := fw.FlushRowGroup(); err != nil {
				return nil, classify(KindIO, op, errors.Wrap(err, "flushing row group failed"))
			}
			w.log.Debug("flushed row group", slog.Int("rows", pending), slog.Int64("fileSize", fw.CurrentFileSize()))
			pending = 0
		}
	}

	// goparquet writes the header magic with the first row group only.
	if numRows == 0 {
		if _, err := out.Write(parquetMagic); err != nil {
			return nil, classify(KindIO, op, errors.Wrap(err, "writing file header failed"))
		}
	}

	if err := fw.Close(); err != nil {
		return nil, classify(KindIO, op, errors.Wrap(err, "closing parquet writer failed"))
	}

	return plan.skipped, nil
}

// writeFooterOnly writes a file whose schema has no leaf columns and which
// therefore carries no row groups.
func (w *Writer) writeFooterOnly(ctx context.Context, out io.Writer) error {
	numChildren := int32(0)
	meta := &parquet.FileMetaData{
		Version:   1,
		Schema:    []*parquet.SchemaElement{{Name: rootColumnName, NumChildren: &numChildren}},
		RowGroups: []*parquet.RowGroup{},
		CreatedBy: &w.createdBy,
	}
	for _, k := range slices.Sorted(maps.Keys(w.metaData)) {
		v := w.metaData[k]
		meta.KeyValueMetadata = append(meta.KeyValueMetadata, &parquet.KeyValue{Key: k, Value: &v})
	}

	mem := thrift.NewTMemoryBuffer()
	proto := thrift.NewTCompactProtocolFactoryConf(&thrift.TConfiguration{}).GetProtocol(mem)
	if err := meta.Write(ctx, proto); err != nil {
		return errors.Wrap(err, "encoding footer failed")
	}
	if err := proto.Flush(ctx); err != nil {
		return errors.Wrap(err, "encoding footer failed")
	}

	footer := mem.Bytes()
	buf := make([]byte, 0, len(footer)+12)
	buf = append(buf, parquetMagic...)
	buf = append(buf, footer...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(footer)))
	buf = append(buf, parquetMagic...)

	if _, err := out.Write(buf); err != nil {
		return errors.Wrap(err, "writing file failed")
	}
	return nil
}
