package connector

import (
	"context"
	"io"
	"log/slog"

	goparquet "github.com/fraugster/parquet-go"
	"github.com/fraugster/parquet-go/parquet"
	"github.com/pkg/errors"

	"github.com/fraugster/parquet-connector/table"
)

// DefaultRowGroupColumn is the name of the provenance column injected by
// the reader.
const DefaultRowGroupColumn = "RowGroup"

// FileInfo is what the footer of a parquet file tells about it.
type FileInfo struct {
	Schema    table.Schema
	NumRows   int64
	RowGroups []RowGroupInfo
	MetaData  map[string]string
	CreatedBy string
}

// RowGroupInfo describes a single row group. Index is 1-based.
type RowGroupInfo struct {
	Index          int
	NumRows        int64
	Offset         int64
	CompressedSize int64
	Codecs         []parquet.CompressionCodec
}

// Reader decodes parquet files into host tables and batches. A Reader holds
// no per-file state and can be shared.
type Reader struct {
	rowGroupColumn string
	validateCRC    bool
	log            *slog.Logger
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// NewReader creates a new reader.
func NewReader(opts ...ReaderOption) *Reader {
	r := &Reader{
		rowGroupColumn: DefaultRowGroupColumn,
		validateCRC:    true,
		log:            discardLogger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithRowGroupColumn sets the name of the injected provenance column.
func WithRowGroupColumn(name string) ReaderOption {
	return func(r *Reader) {
		r.rowGroupColumn = name
	}
}

// WithCRCValidation enables or disables page checksum verification. It is
// enabled by default.
func WithCRCValidation(enable bool) ReaderOption {
	return func(r *Reader) {
		r.validateCRC = enable
	}
}

// WithReadLogger sets the logger used for per row group debug output.
func WithReadLogger(l *slog.Logger) ReaderOption {
	return func(r *Reader) {
		if l != nil {
			r.log = l
		}
	}
}

// RowGroupColumn returns the provenance column descriptor.
func (r *Reader) RowGroupColumn() table.Column {
	return table.Column{Name: r.rowGroupColumn, Type: table.TypeInt32}
}

// OpenSchema reads the footer of rs without touching any row group payload.
func (r *Reader) OpenSchema(ctx context.Context, rs io.ReadSeeker) (*FileInfo, error) {
	info, _, err := r.openSchema(ctx, rs)
	return info, err
}

func (r *Reader) openSchema(ctx context.Context, rs io.ReadSeeker) (*FileInfo, []decodeFunc, error) {
	const op = "open schema"

	meta, err := goparquet.ReadFileMetaDataWithContext(ctx, rs, true)
	if err != nil {
		return nil, nil, classify(KindCorruptSchema, op, err)
	}

	sd, err := definitionFromMeta(meta.Schema)
	if err != nil {
		return nil, nil, newError(KindCorruptSchema, op, err)
	}

	schema, decoders, err := hostSchema(sd)
	if err != nil {
		return nil, nil, newError(KindCorruptSchema, op, err)
	}

	info := &FileInfo{
		Schema:    schema,
		NumRows:   meta.NumRows,
		RowGroups: make([]RowGroupInfo, 0, len(meta.RowGroups)),
		MetaData:  make(map[string]string, len(meta.KeyValueMetadata)),
		CreatedBy: meta.GetCreatedBy(),
	}

	var total int64
	for i, rg := range meta.RowGroups {
		if rg == nil || rg.NumRows < 0 {
			return nil, nil, newError(KindCorruptSchema, op, errors.Errorf("row group %d has invalid metadata", i+1))
		}
		rgi := RowGroupInfo{Index: i + 1, NumRows: rg.NumRows}
		for j, cc := range rg.Columns {
			if cc == nil || cc.MetaData == nil {
				return nil, nil, newError(KindCorruptSchema, op, errors.Errorf("row group %d column %d has no metadata", i+1, j))
			}
			if j == 0 {
				rgi.Offset = cc.MetaData.DataPageOffset
				if cc.MetaData.DictionaryPageOffset != nil && *cc.MetaData.DictionaryPageOffset < rgi.Offset {
					rgi.Offset = *cc.MetaData.DictionaryPageOffset
				}
			}
			rgi.CompressedSize += cc.MetaData.TotalCompressedSize
			rgi.Codecs = append(rgi.Codecs, cc.MetaData.Codec)
		}
		total += rg.NumRows
		info.RowGroups = append(info.RowGroups, rgi)
	}
	if total != meta.NumRows {
		return nil, nil, newError(KindCorruptSchema, op, errors.Errorf("row groups hold %d rows, footer claims %d", total, meta.NumRows))
	}

	for _, kv := range meta.KeyValueMetadata {
		if kv != nil {
			info.MetaData[kv.Key] = kv.GetValue()
		}
	}

	return info, decoders, nil
}

// ReadAll decodes every row group of rs into a new table. The first column
// of the result is the 1-based row group index of each row.
func (r *Reader) ReadAll(ctx context.Context, rs io.ReadSeeker) (*table.Table, error) {
	t := &table.Table{}
	if _, err := r.ReadInto(ctx, rs, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ReadInto decodes every row group of rs into sink and returns the number
// of rows appended. The provenance column is added first, followed by the
// file's columns in schema order.
func (r *Reader) ReadInto(ctx context.Context, rs io.ReadSeeker, sink table.RowSink) (int64, error) {
	const op = "read"

	cur, err := r.openCursor(ctx, rs)
	if err != nil {
		return 0, err
	}

	for _, col := range cur.columns {
		if err := sink.AddColumn(col); err != nil {
			return 0, newError(KindIO, op, err)
		}
	}

	var rows int64
	for {
		if err := cur.nextGroup(); err != nil {
			if err == io.EOF {
				return rows, nil
			}
			return rows, err
		}
		for cur.remaining > 0 {
			row, err := cur.nextRow()
			if err != nil {
				return rows, err
			}
			if err := sink.AppendRow(row); err != nil {
				return rows, newError(KindIO, op, err)
			}
			rows++
		}
	}
}

// ReadBatches returns a forward-only iterator over batches of at most
// batchSize rows. A batch never spans two row groups.
func (r *Reader) ReadBatches(ctx context.Context, rs io.ReadSeeker, batchSize int) (*BatchReader, error) {
	if batchSize < 1 {
		return nil, newError(KindConfiguration, "read batches", errors.Errorf("invalid batch size %d", batchSize))
	}

	cur, err := r.openCursor(ctx, rs)
	if err != nil {
		return nil, err
	}

	return &BatchReader{cur: cur, batchSize: batchSize}, nil
}

func (r *Reader) openCursor(ctx context.Context, rs io.ReadSeeker) (*groupCursor, error) {
	info, decoders, err := r.openSchema(ctx, rs)
	if err != nil {
		return nil, err
	}

	if info.Schema.Index(r.rowGroupColumn) >= 0 {
		return nil, newError(KindColumnConflict, "read", errors.Errorf("source already has a column named %q, choose another row group column name", r.rowGroupColumn))
	}

	// A file without row groups has nothing to decode, and its schema may
	// have no leaf columns at all.
	var fr *goparquet.FileReader
	if len(info.RowGroups) > 0 {
		fr, err = goparquet.NewFileReaderWithOptions(rs,
			goparquet.WithReaderContext(ctx),
			goparquet.WithCRC32Validation(r.validateCRC),
		)
		if err != nil {
			return nil, classify(KindCorruptSchema, "read", err)
		}
	}

	columns := make([]table.Column, 0, len(info.Schema)+1)
	columns = append(columns, r.RowGroupColumn())
	columns = append(columns, info.Schema...)

	return &groupCursor{
		ctx:      ctx,
		fr:       fr,
		info:     info,
		columns:  columns,
		decoders: decoders,
		log:      r.log,
	}, nil
}

// groupCursor walks the row groups of a file strictly in order.
type groupCursor struct {
	ctx      context.Context
	fr       *goparquet.FileReader
	info     *FileInfo
	columns  []table.Column
	decoders []decodeFunc
	log      *slog.Logger

	group     int
	remaining int64
}

// nextGroup loads the next row group. It returns io.EOF after the last one.
func (c *groupCursor) nextGroup() error {
	if err := c.ctx.Err(); err != nil {
		return err
	}
	if c.group >= len(c.info.RowGroups) {
		return io.EOF
	}

	rg := c.info.RowGroups[c.group]
	if err := checkCodecs(rg); err != nil {
		return err
	}

	n, err := c.fr.RowGroupNumRows()
	c.group++
	if err == io.EOF {
		return newError(KindCorruptRowGroup, "read", errors.Errorf("row group %d is missing", rg.Index))
	}
	if err != nil {
		return classify(KindCorruptRowGroup, "read", errors.Wrapf(err, "decoding row group %d failed", rg.Index))
	}
	if n != rg.NumRows {
		return newError(KindCorruptRowGroup, "read", errors.Errorf("row group %d holds %d rows, footer claims %d", rg.Index, n, rg.NumRows))
	}

	c.remaining = n
	c.log.Debug("decoding row group", slog.Int("rowGroup", rg.Index), slog.Int64("rows", n), slog.Int64("compressedBytes", rg.CompressedSize))
	return nil
}

// nextRow decodes the next row of the current row group.
func (c *groupCursor) nextRow() ([]interface{}, error) {
	if err := c.ctx.Err(); err != nil {
		return nil, err
	}

	data, err := c.fr.NextRow()
	if err != nil {
		return nil, classify(KindCorruptRowGroup, "read", errors.Wrapf(err, "reading row of group %d failed", c.group))
	}
	c.remaining--

	row := make([]interface{}, len(c.columns))
	row[0] = int32(c.group)
	for i, dec := range c.decoders {
		col := c.columns[i+1]
		v, ok := data[col.Name]
		if !ok || v == nil {
			continue
		}
		hv, err := dec(v)
		if err != nil {
			return nil, newError(KindCorruptRowGroup, "read", errors.Wrapf(err, "row group %d column %q", c.group, col.Name))
		}
		row[i+1] = hv
	}
	return row, nil
}

func checkCodecs(rg RowGroupInfo) error {
	for _, codec := range rg.Codecs {
		if !readableCodecs[codec] {
			return newError(KindUnsupportedCodec, "read", errors.Errorf("row group %d uses codec %s", rg.Index, codec))
		}
	}
	return nil
}
