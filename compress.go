package connector

import (
	"strings"

	goparquet "github.com/fraugster/parquet-go"
	"github.com/fraugster/parquet-go/parquet"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// Compression is the block compression applied to every column chunk
// of a written file.
type Compression int

// The compression methods available for writing. Snappy is the default.
const (
	Snappy Compression = iota
	None
	Gzip
)

// DefaultCompression is used when no compression is chosen explicitly.
const DefaultCompression = Snappy

var compressionCodecs = map[Compression]parquet.CompressionCodec{
	None:   parquet.CompressionCodec_UNCOMPRESSED,
	Snappy: parquet.CompressionCodec_SNAPPY,
	Gzip:   parquet.CompressionCodec_GZIP,
}

func (c Compression) codec() (parquet.CompressionCodec, error) {
	codec, ok := compressionCodecs[c]
	if !ok {
		return 0, errors.Errorf("invalid compression %d", int(c))
	}
	return codec, nil
}

func (c Compression) String() string {
	switch c {
	case None:
		return "none"
	case Snappy:
		return "snappy"
	case Gzip:
		return "gzip"
	default:
		return "invalid"
	}
}

// ParseCompression parses a compression name. Accepted values are none,
// uncompressed, snappy and gzip, in any case.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "uncompressed":
		return None, nil
	case "snappy", "":
		return Snappy, nil
	case "gzip":
		return Gzip, nil
	default:
		return 0, errors.Errorf("unsupported compression %q, valid values are none, snappy, gzip", s)
	}
}

// readableCodecs lists the codecs that have a block compressor registered
// with goparquet. goparquet ships UNCOMPRESSED, SNAPPY and GZIP; ZSTD is
// registered below so files from other writers can be decoded.
var readableCodecs = map[parquet.CompressionCodec]bool{
	parquet.CompressionCodec_UNCOMPRESSED: true,
	parquet.CompressionCodec_SNAPPY:       true,
	parquet.CompressionCodec_GZIP:         true,
	parquet.CompressionCodec_ZSTD:         true,
}

type zstdCompressor struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func (z zstdCompressor) CompressBlock(block []byte) ([]byte, error) {
	return z.enc.EncodeAll(block, nil), nil
}

func (z zstdCompressor) DecompressBlock(block []byte) ([]byte, error) {
	return z.dec.DecodeAll(block, nil)
}

func newZstdCompressor() (zstdCompressor, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return zstdCompressor{}, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return zstdCompressor{}, err
	}
	return zstdCompressor{enc: enc, dec: dec}, nil
}

func init() {
	z, err := newZstdCompressor()
	if err != nil {
		panic(err)
	}
	goparquet.RegisterBlockCompressor(parquet.CompressionCodec_ZSTD, z)
}
