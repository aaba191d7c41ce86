package connector

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fraugster/parquet-connector/table"
)

func TestErrorKinds(t *testing.T) {
	err := newError(KindCorruptSchema, "open schema", io.ErrUnexpectedEOF)
	assert.Equal(t, "open schema: corrupt schema: unexpected EOF", err.Error())
	assert.ErrorIs(t, err, ErrCorruptSchema)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.NotErrorIs(t, err, ErrCorruptRowGroup)

	wrapped := errors.Wrap(err, "loading")
	assert.Equal(t, KindCorruptSchema, KindOf(wrapped))
	assert.ErrorIs(t, wrapped, ErrCorruptSchema)

	assert.Equal(t, KindUnknown, KindOf(io.EOF))
	assert.Equal(t, KindUnknown, KindOf(nil))
	assert.Equal(t, "Kind(99)", Kind(99).String())
	assert.Equal(t, "sink rejected batch", KindSinkRejected.String())
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify(KindIO, "op", nil))

	kept := newError(KindTransport, "resolve", io.EOF)
	assert.Same(t, kept, classify(KindCorruptRowGroup, "read", kept))

	assert.Equal(t, context.Canceled, classify(KindIO, "read", context.Canceled))
	assert.ErrorIs(t, classify(KindIO, "read", errors.Wrap(context.DeadlineExceeded, "x")), context.DeadlineExceeded)
	assert.Equal(t, KindUnknown, KindOf(classify(KindIO, "read", context.Canceled)))

	_, statErr := os.Stat("/definitely/not/here")
	assert.Equal(t, KindIO, KindOf(classify(KindCorruptSchema, "read", statErr)))

	rejected := errors.Wrap(&table.RejectedError{Reason: "full"}, "append")
	assert.Equal(t, KindSinkRejected, KindOf(classify(KindIO, "store", rejected)))

	assert.Equal(t, KindCorruptRowGroup, KindOf(classify(KindCorruptRowGroup, "read", io.ErrUnexpectedEOF)))
}

func TestErrorIsRequiresSentinel(t *testing.T) {
	a := newError(KindIO, "a", io.EOF)
	b := newError(KindIO, "b", io.EOF)
	require.NotErrorIs(t, a, b, "only the kind sentinels match by kind")
}
