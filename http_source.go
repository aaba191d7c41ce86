package connector

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/pkg/errors"
)

const opHTTP = "http source"

// openHTTPSource opens url for reading. Servers announcing byte ranges are
// read lazily through range requests. Other servers, and servers refusing
// HEAD, are streamed into a temporary file first.
func openHTTPSource(ctx context.Context, r *Resolver, url string) (Source, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, newError(KindConfiguration, opHTTP, err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	_ = resp.Body.Close()

	if headRefused(resp.StatusCode) {
		r.log.Debug("HEAD refused, spooling http source to disk", slog.String("url", url), slog.Int("status", resp.StatusCode))
		return spoolHTTPSource(ctx, r, url)
	}
	if err := checkStatus(resp, url); err != nil {
		return nil, err
	}

	if strings.EqualFold(resp.Header.Get("Accept-Ranges"), "bytes") && resp.ContentLength >= 0 {
		r.log.Debug("reading http source with range requests", slog.String("url", url), slog.Int64("size", resp.ContentLength))
		return &httpSource{
			ctx:       ctx,
			client:    r.client,
			url:       url,
			size:      resp.ContentLength,
			readAhead: r.readAhead,
		}, nil
	}

	r.log.Debug("spooling http source to disk", slog.String("url", url))
	return spoolHTTPSource(ctx, r, url)
}

// headRefused reports whether a HEAD status only says the server does not
// answer HEAD for this URL, e.g. presigned GET URLs. A plain GET may still
// succeed.
func headRefused(code int) bool {
	switch code {
	case http.StatusForbidden, http.StatusMethodNotAllowed, http.StatusNotImplemented:
		return true
	}
	return false
}

func checkStatus(resp *http.Response, url string) error {
	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return newError(KindSourceNotFound, opHTTP, errors.Errorf("%s: %s", url, resp.Status))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return newError(KindTransport, opHTTP, errors.Errorf("%s: unexpected status %s", url, resp.Status))
	}
	return nil
}

func transportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return newError(KindTransport, opHTTP, err)
}

// httpSource is an io.ReadSeeker over HTTP range requests. It keeps one
// read-ahead window in memory.
type httpSource struct {
	ctx       context.Context
	client    *http.Client
	url       string
	size      int64
	readAhead int

	pos    int64
	buf    []byte
	bufOff int64
}

func (s *httpSource) Read(p []byte) (int, error) {
	if s.pos >= s.size {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}

	if s.pos < s.bufOff || s.pos >= s.bufOff+int64(len(s.buf)) {
		if err := s.fetch(s.pos, len(p)); err != nil {
			return 0, err
		}
	}

	n := copy(p, s.buf[s.pos-s.bufOff:])
	s.pos += int64(n)
	return n, nil
}

func (s *httpSource) fetch(off int64, want int) error {
	if want < s.readAhead {
		want = s.readAhead
	}
	end := off + int64(want) - 1
	if end >= s.size {
		end = s.size - 1
	}

	req, err := http.NewRequestWithContext(s.ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return newError(KindTransport, opHTTP, err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", off, end))

	resp, err := s.client.Do(req)
	if err != nil {
		return transportError(s.ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPartialContent {
		if err := checkStatus(resp, s.url); err != nil {
			return err
		}
		return newError(KindTransport, opHTTP, errors.Errorf("%s: range request answered with %s", s.url, resp.Status))
	}

	buf := make([]byte, end-off+1)
	if _, err := io.ReadFull(resp.Body, buf); err != nil {
		return transportError(s.ctx, errors.Wrapf(err, "reading bytes %d-%d failed", off, end))
	}

	s.buf = buf
	s.bufOff = off
	return nil
}

func (s *httpSource) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = s.pos + offset
	case io.SeekEnd:
		abs = s.size + offset
	default:
		return 0, errors.Errorf("invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, errors.Errorf("negative position %d", abs)
	}
	s.pos = abs
	return abs, nil
}

func (s *httpSource) Close() error {
	s.buf = nil
	return nil
}

func (s *httpSource) Size() int64 {
	return s.size
}

func (s *httpSource) Location() string {
	return s.url
}

// spooledSource is a remote file streamed into a temporary file. The file
// is removed on Close.
type spooledSource struct {
	*os.File
	url  string
	size int64
}

func spoolHTTPSource(ctx context.Context, r *Resolver, url string) (Source, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, newError(KindConfiguration, opHTTP, err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, url); err != nil {
		return nil, err
	}

	f, err := os.CreateTemp(r.tempDir, "parquet-connector-*.parquet")
	if err != nil {
		return nil, newError(KindIO, opHTTP, err)
	}
	cleanup := func() {
		f.Close()
		os.Remove(f.Name())
	}

	n, err := io.Copy(f, resp.Body)
	if err != nil {
		cleanup()
		return nil, transportError(ctx, errors.Wrap(err, "downloading source failed"))
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		cleanup()
		return nil, newError(KindIO, opHTTP, err)
	}

	return &spooledSource{File: f, url: url, size: n}, nil
}

func (s *spooledSource) Close() error {
	err := s.File.Close()
	if rmErr := os.Remove(s.File.Name()); rmErr != nil && err == nil {
		err = rmErr
	}
	return err
}

func (s *spooledSource) Size() int64 {
	return s.size
}

func (s *spooledSource) Location() string {
	return s.url
}
