package connector

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/fraugster/parquet-connector/table"
)

var discardLogger = slog.New(slog.DiscardHandler)

// State is the lifecycle state of a DataConnector.
type State int32

// The connector states. A connector starts in Validated (Created is only
// observable while New runs); each operation moves it through Loading or
// Streaming to Done, or to Failed.
const (
	StateCreated State = iota
	StateValidated
	StateLoading
	StateStreaming
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateValidated:
		return "validated"
	case StateLoading:
		return "loading"
	case StateStreaming:
		return "streaming"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DataConnector reads the parquet source of a Configuration either into an
// in-memory table or batch by batch into a BatchSink.
type DataConnector struct {
	cfg    *Configuration
	opener SourceOpener
	reader *Reader
	log    *slog.Logger

	state atomic.Int32
}

// Option configures a DataConnector.
type Option func(*DataConnector)

// WithSourceOpener replaces the default Resolver.
func WithSourceOpener(o SourceOpener) Option {
	return func(c *DataConnector) {
		if o != nil {
			c.opener = o
		}
	}
}

// WithReader replaces the default Reader, e.g. to rename the row group
// column.
func WithReader(r *Reader) Option {
	return func(c *DataConnector) {
		if r != nil {
			c.reader = r
		}
	}
}

// WithLogger sets the logger of the connector.
func WithLogger(l *slog.Logger) Option {
	return func(c *DataConnector) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a connector for cfg. The configuration is validated right
// away; an invalid configuration fails with a configuration error before
// any I/O happens.
func New(cfg *Configuration, opts ...Option) (*DataConnector, error) {
	c := &DataConnector{
		cfg: cfg,
		log: discardLogger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.opener == nil {
		c.opener = NewResolver(WithResolverLogger(c.log))
	}
	if c.reader == nil {
		c.reader = NewReader(WithReadLogger(c.log))
	}

	if res := Validate(cfg); !res.Valid {
		c.setState(StateFailed)
		err := newError(KindConfiguration, "new connector", errors.New(res.Reason))
		if cfg != nil && cfg.ErrorHandler() != nil {
			cfg.ErrorHandler().ObserveError(err)
		}
		return nil, err
	}

	c.setState(StateValidated)
	c.log = c.log.With(slog.String("connector", cfg.ID()))
	return c, nil
}

// GetConnectorID returns the id of the configuration.
func (c *DataConnector) GetConnectorID() string {
	return c.cfg.ID()
}

// Configuration returns the configuration of the connector.
func (c *DataConnector) Configuration() *Configuration {
	return c.cfg
}

// State returns the current state.
func (c *DataConnector) State() State {
	return State(c.state.Load())
}

func (c *DataConnector) setState(s State) {
	c.state.Store(int32(s))
}

// GetSchema reads only the footer of the source.
func (c *DataConnector) GetSchema(ctx context.Context) (info *FileInfo, err error) {
	defer func() { err = c.observe(err) }()

	src, err := c.opener.Resolve(ctx, c.cfg.Source())
	if err != nil {
		return nil, err
	}
	defer closeSource(src, &err)

	return c.reader.OpenSchema(ctx, src)
}

// GetData reads the whole source into a table. The first column of the
// table is the row group provenance column.
func (c *DataConnector) GetData(ctx context.Context) (t *table.Table, err error) {
	c.setState(StateLoading)
	defer func() { err = c.finish(err) }()

	src, err := c.opener.Resolve(ctx, c.cfg.Source())
	if err != nil {
		return nil, err
	}
	defer closeSource(src, &err)

	t, err = c.reader.ReadAll(ctx, src)
	if err != nil {
		return nil, err
	}

	c.log.Info("loaded parquet source", slog.String("source", src.Location()), slog.Int("rows", t.RowCount()))
	return t, nil
}

// GetStorageData streams the source into sink in batches of at most
// batchSize rows and returns the number of rows appended. A rejected batch
// aborts the operation; batches appended before stay in the sink. Flushing
// the sink is left to the caller.
func (c *DataConnector) GetStorageData(ctx context.Context, sink table.BatchSink, batchSize int) (rows int64, err error) {
	c.setState(StateStreaming)
	defer func() { err = c.finish(err) }()

	if sink == nil {
		return 0, newError(KindConfiguration, "storage data", errors.New("no sink given"))
	}

	src, err := c.opener.Resolve(ctx, c.cfg.Source())
	if err != nil {
		return 0, err
	}
	defer closeSource(src, &err)

	br, err := c.reader.ReadBatches(ctx, src, batchSize)
	if err != nil {
		return 0, err
	}

	batches := 0
	for br.Next() {
		b := br.Batch()
		if err := sink.AppendBatch(ctx, b); err != nil {
			return rows, classify(KindIO, "storage data", errors.Wrapf(err, "appending batch %d of row group %d failed", batches+1, b.RowGroup))
		}
		rows += int64(b.Len())
		batches++
	}
	if err := br.Err(); err != nil {
		return rows, err
	}

	c.log.Info("streamed parquet source", slog.String("source", src.Location()), slog.Int64("rows", rows), slog.Int("batches", batches))
	return rows, nil
}

func (c *DataConnector) finish(err error) error {
	if err != nil {
		c.setState(StateFailed)
		return c.observe(err)
	}
	c.setState(StateDone)
	return nil
}

// observe hands err to the configured observer and returns it unchanged.
func (c *DataConnector) observe(err error) error {
	if err == nil {
		return nil
	}
	c.log.Error("parquet connector operation failed", slog.String("error", err.Error()))
	if h := c.cfg.ErrorHandler(); h != nil {
		h.ObserveError(err)
	}
	return err
}

func closeSource(src Source, err *error) {
	if cerr := src.Close(); cerr != nil && *err == nil {
		*err = newError(KindIO, "close source", cerr)
	}
}
