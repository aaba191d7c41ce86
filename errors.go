package connector

import (
	"context"
	"fmt"
	"io"
	"io/fs"

	"github.com/pkg/errors"

	"github.com/fraugster/parquet-connector/table"
)

// Kind classifies the errors returned by this package.
type Kind int

// The error kinds. Configuration errors are raised before any I/O happens,
// the decode kinds abort the whole read, serialization errors abort the
// whole write.
const (
	KindUnknown Kind = iota
	KindConfiguration
	KindSourceNotFound
	KindUnsupportedScheme
	KindTransport
	KindCorruptSchema
	KindCorruptRowGroup
	KindUnsupportedCodec
	KindSerialization
	KindIO
	KindColumnConflict
	KindSinkRejected
)

var kindNames = [...]string{
	KindUnknown:           "unknown error",
	KindConfiguration:     "configuration error",
	KindSourceNotFound:    "source not found",
	KindUnsupportedScheme: "unsupported scheme",
	KindTransport:         "transport error",
	KindCorruptSchema:     "corrupt schema",
	KindCorruptRowGroup:   "corrupt row group",
	KindUnsupportedCodec:  "unsupported codec",
	KindSerialization:     "serialization error",
	KindIO:                "i/o error",
	KindColumnConflict:    "column conflict",
	KindSinkRejected:      "sink rejected batch",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Error is the error type returned by the connector, reader, writer and
// resolver. Op names the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels below, so errors.Is(err, ErrCorruptSchema)
// works regardless of Op and cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for use with errors.Is.
var (
	ErrConfiguration     = &Error{Kind: KindConfiguration}
	ErrSourceNotFound    = &Error{Kind: KindSourceNotFound}
	ErrUnsupportedScheme = &Error{Kind: KindUnsupportedScheme}
	ErrTransport         = &Error{Kind: KindTransport}
	ErrCorruptSchema     = &Error{Kind: KindCorruptSchema}
	ErrCorruptRowGroup   = &Error{Kind: KindCorruptRowGroup}
	ErrUnsupportedCodec  = &Error{Kind: KindUnsupportedCodec}
	ErrSerialization     = &Error{Kind: KindSerialization}
	ErrIO                = &Error{Kind: KindIO}
	ErrColumnConflict    = &Error{Kind: KindColumnConflict}
	ErrSinkRejected      = &Error{Kind: KindSinkRejected}
)

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func newError(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// classify attaches kind to err unless err already carries a kind or is a
// context error. File system errors become KindIO, truncated input inside a
// row group stays whatever kind the caller chose.
func classify(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindUnknown {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var pe *fs.PathError
	if errors.As(err, &pe) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return newError(KindIO, op, err)
	}
	var re *table.RejectedError
	if errors.As(err, &re) {
		return newError(KindSinkRejected, op, err)
	}
	return newError(kind, op, err)
}
