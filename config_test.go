package connector

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigurationID(t *testing.T) {
	cfg := NewConfiguration("a.parquet", WithID("orders"))
	assert.Equal(t, "orders", cfg.ID())
	assert.True(t, cfg.HasExplicitID())

	gen := NewConfiguration("a.parquet")
	assert.False(t, gen.HasExplicitID())
	_, err := uuid.Parse(gen.ID())
	require.NoError(t, err, "generated ids are uuids")
	assert.Equal(t, gen.ID(), gen.ID(), "the id is fixed at construction")

	other := NewConfiguration("a.parquet")
	assert.NotEqual(t, gen.ID(), other.ID())

	empty := NewConfiguration("a.parquet", WithID(""))
	assert.False(t, empty.HasExplicitID())
	assert.NotEmpty(t, empty.ID())
}

func TestConfigurationErrorHandler(t *testing.T) {
	assert.Nil(t, NewConfiguration("a.parquet").ErrorHandler())

	var seen error
	cfg := NewConfiguration("a.parquet", WithErrorHandlerFunc(func(err error) { seen = err }))
	require.NotNil(t, cfg.ErrorHandler())
	boom := errors.New("boom")
	cfg.ErrorHandler().ObserveError(boom)
	assert.Equal(t, boom, seen)

	assert.Nil(t, NewConfiguration("a.parquet", WithErrorHandlerFunc(nil)).ErrorHandler())
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	existing := writeParquetFile(t, dir, "data.parquet", []byte("not checked here"))
	upper := writeParquetFile(t, dir, "DATA.PARQUET", []byte("x"))
	csv := writeParquetFile(t, dir, "data.csv", []byte("x"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir.parquet"), 0o755))

	data := []struct {
		Name   string
		Cfg    *Configuration
		Valid  bool
		Reason string
	}{
		{Name: "nil", Cfg: nil, Reason: "source is required"},
		{Name: "empty", Cfg: NewConfiguration(""), Reason: "source is required"},
		{Name: "local", Cfg: NewConfiguration(existing), Valid: true},
		{Name: "file uri", Cfg: NewConfiguration("file://" + existing), Valid: true},
		{Name: "upper case extension", Cfg: NewConfiguration(upper), Valid: true},
		{Name: "missing", Cfg: NewConfiguration(filepath.Join(dir, "missing.parquet")), Reason: "does not exist"},
		{Name: "directory", Cfg: NewConfiguration(filepath.Join(dir, "dir.parquet")), Reason: "is a directory"},
		{Name: "wrong extension", Cfg: NewConfiguration(csv), Reason: "does not end in .parquet"},
		{Name: "http", Cfg: NewConfiguration("http://example.com/data.parquet"), Valid: true},
		{Name: "https with query", Cfg: NewConfiguration("https://example.com/data.parquet?sig=abc"), Valid: true},
		{Name: "http wrong extension", Cfg: NewConfiguration("https://example.com/data.json"), Reason: "does not end in .parquet"},
		{Name: "ftp", Cfg: NewConfiguration("ftp://example.com/data.parquet"), Reason: `scheme "ftp" is not allowed`},
		{Name: "s3", Cfg: NewConfiguration("s3://bucket/data.parquet"), Reason: `scheme "s3" is not allowed`},
	}

	for _, fix := range data {
		t.Run(fix.Name, func(t *testing.T) {
			res := Validate(fix.Cfg)
			assert.Equal(t, fix.Valid, res.Valid)
			if fix.Valid {
				assert.Empty(t, res.Reason)
			} else {
				assert.Contains(t, res.Reason, fix.Reason)
			}
		})
	}
}
