// Package duckdbsink stores streamed batches in a DuckDB table.
package duckdbsink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	_ "github.com/marcboeker/go-duckdb/v2"
	"github.com/pkg/errors"

	"github.com/fraugster/parquet-connector/table"
)

// Sink appends batches to a single DuckDB table. Each batch is written in
// its own transaction, so a failed batch leaves no partial rows behind.
type Sink struct {
	db        *sql.DB
	path      string
	tableName string
	log       *slog.Logger

	mu      sync.Mutex
	columns []table.Column
	insert  string
}

// Option configures a Sink.
type Option func(*Sink)

// WithLogger sets the logger of the sink.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sink) {
		if l != nil {
			s.log = l
		}
	}
}

// Open opens (or creates) the DuckDB database at path. An empty path opens
// an in-memory database. The target table is created with the column set of
// the first batch.
func Open(ctx context.Context, path, tableName string, opts ...Option) (*Sink, error) {
	if tableName == "" {
		return nil, errors.New("table name is required")
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(err, "opening duckdb failed")
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "connecting to duckdb failed")
	}

	s := &Sink{
		db:        db,
		path:      path,
		tableName: tableName,
		log:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// AppendBatch inserts all rows of b in one transaction.
func (s *Sink) AppendBatch(ctx context.Context, b *table.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.columns == nil {
		if err := s.createTable(ctx, b.Columns); err != nil {
			return err
		}
	} else if !sameColumns(s.columns, b.Columns) {
		return &table.RejectedError{Reason: "column set does not match the target table"}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "starting transaction failed")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, s.insert)
	if err != nil {
		return errors.Wrap(err, "preparing insert failed")
	}
	defer stmt.Close()

	args := make([]interface{}, len(s.columns))
	for i, row := range b.Rows {
		if len(row) != len(s.columns) {
			return &table.RejectedError{Reason: fmt.Sprintf("row %d has %d values, expected %d", i, len(row), len(s.columns))}
		}
		for j, v := range row {
			if args[j], err = toSQLValue(s.columns[j], v); err != nil {
				return &table.RejectedError{Reason: fmt.Sprintf("row %d column %q: %v", i, s.columns[j].Name, err)}
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return errors.Wrapf(err, "inserting row %d failed", i)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "committing batch failed")
	}

	s.log.Debug("appended batch to duckdb", slog.String("table", s.tableName), slog.Int("rowGroup", b.RowGroup), slog.Int("rows", b.Len()))
	return nil
}

func (s *Sink) createTable(ctx context.Context, cols []table.Column) error {
	defs := make([]string, len(cols))
	params := make([]string, len(cols))
	for i, c := range cols {
		typ := sqlType(c)
		defs[i] = quoteIdent(c.Name) + " " + typ
		params[i] = "CAST(? AS " + typ + ")"
	}

	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(s.tableName), strings.Join(defs, ", "))
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return errors.Wrapf(err, "creating table %s failed", s.tableName)
	}

	s.columns = append([]table.Column(nil), cols...)
	s.insert = fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(s.tableName), strings.Join(params, ", "))
	return nil
}

// Flush forces a checkpoint so that appended rows reach the database file.
func (s *Sink) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return errors.Wrap(err, "checkpoint failed")
	}
	return nil
}

// Stats returns row counts of the target table and the size of the
// database file.
func (s *Sink) Stats(ctx context.Context) (table.SinkStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats table.SinkStats
	if s.columns != nil {
		row := s.db.QueryRowContext(ctx, "SELECT count(*) FROM "+quoteIdent(s.tableName))
		if err := row.Scan(&stats.TotalRows); err != nil {
			return stats, errors.Wrap(err, "counting rows failed")
		}
		stats.ActiveRows = stats.TotalRows
	}

	if s.path != "" {
		if st, err := os.Stat(s.path); err == nil {
			stats.FileCount = 1
			stats.EstimatedBytes = st.Size()
		}
	}
	return stats, nil
}

// DB returns the underlying database handle.
func (s *Sink) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Sink) Close() error {
	return s.db.Close()
}

func sqlType(c table.Column) string {
	switch c.Type {
	case table.TypeInt32:
		return "INTEGER"
	case table.TypeInt64:
		return "BIGINT"
	case table.TypeFloat32:
		return "REAL"
	case table.TypeFloat64:
		return "DOUBLE"
	case table.TypeDecimal:
		if c.Precision > 0 && c.Precision <= 38 {
			return fmt.Sprintf("DECIMAL(%d,%d)", c.Precision, c.Scale)
		}
		return "VARCHAR"
	case table.TypeBoolean:
		return "BOOLEAN"
	case table.TypeTimestamp:
		return "TIMESTAMP"
	case table.TypeBytes:
		return "BLOB"
	default:
		return "VARCHAR"
	}
}

func toSQLValue(c table.Column, v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch c.Type {
	case table.TypeDecimal:
		d, ok := v.(table.Decimal)
		if !ok {
			return nil, errors.Errorf("expected decimal, got %T", v)
		}
		return d.String(), nil
	case table.TypeTable:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	}
	return v, nil
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
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
