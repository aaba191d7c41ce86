package connector

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Source is a seekable byte stream resolved from a location. Closing it
// releases the underlying file or connection state.
type Source interface {
	io.ReadSeeker
	io.Closer
	Size() int64
	Location() string
}

// SourceOpener turns a location into a Source.
type SourceOpener interface {
	Resolve(ctx context.Context, location string) (Source, error)
}

const defaultReadAhead = 1 << 20

// Resolver resolves local paths, file:// URIs and http(s):// URLs. It does
// not retry.
type Resolver struct {
	client    *http.Client
	readAhead int
	tempDir   string
	log       *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// NewResolver creates a new resolver.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		client:    http.DefaultClient,
		readAhead: defaultReadAhead,
		log:       discardLogger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithHTTPClient sets the client used for http(s) sources.
func WithHTTPClient(c *http.Client) ResolverOption {
	return func(r *Resolver) {
		if c != nil {
			r.client = c
		}
	}
}

// WithReadAhead sets the minimum number of bytes fetched per range request.
func WithReadAhead(n int) ResolverOption {
	return func(r *Resolver) {
		if n > 0 {
			r.readAhead = n
		}
	}
}

// WithSpoolDir sets the directory for temporary files used when a server
// does not support range requests. Defaults to os.TempDir.
func WithSpoolDir(dir string) ResolverOption {
	return func(r *Resolver) {
		r.tempDir = dir
	}
}

// WithResolverLogger sets the logger used by the resolver.
func WithResolverLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// Resolve opens location for reading.
func (r *Resolver) Resolve(ctx context.Context, location string) (Source, error) {
	const op = "resolve"

	u, err := parseLocation(location)
	if err != nil {
		return nil, newError(KindConfiguration, op, err)
	}

	switch u.Scheme {
	case "file":
		return openFileSource(u.Path)
	case "http", "https":
		return openHTTPSource(ctx, r, u.String())
	default:
		return nil, newError(KindUnsupportedScheme, op, errors.Errorf("scheme %q is not supported", u.Scheme))
	}
}

// parseLocation parses a location into a URL. Locations without a scheme
// are local paths and get the file scheme.
func parseLocation(location string) (*url.URL, error) {
	if location == "" {
		return nil, errors.New("empty location")
	}

	if !strings.Contains(location, "://") {
		return &url.URL{Scheme: "file", Path: location}, nil
	}

	u, err := url.Parse(location)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid location %q", location)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme == "file" {
		// file://relative/path puts the first segment into Host.
		u.Path = u.Host + u.Path
		u.Host = ""
		if u.Path == "" {
			return nil, errors.Errorf("location %q has no path", location)
		}
	}
	return u, nil
}

type fileSource struct {
	*os.File
	size int64
}

func openFileSource(path string) (Source, error) {
	const op = "resolve"

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, newError(KindIO, op, err)
	}

	f, err := os.Open(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, newError(KindSourceNotFound, op, err)
	}
	if err != nil {
		return nil, newError(KindIO, op, err)
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, newError(KindIO, op, err)
	}
	if st.IsDir() {
		f.Close()
		return nil, newError(KindSourceNotFound, op, errors.Errorf("%s is a directory", abs))
	}

	return &fileSource{File: f, size: st.Size()}, nil
}

func (f *fileSource) Size() int64 {
	return f.size
}

func (f *fileSource) Location() string {
	return f.File.Name()
}
