package endpoint

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sync"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	stdinName  = "<stdin>"
	stdoutName = "<stdout>"
	stderrName = "<stderr>"
)

// Provider is a source of bytes for one pipeline input.
type Provider interface {
	// ID is the input's pipeline-unique identifier.
	ID() string

	// Location is the path used for format inference. Standard streams
	// report "" unless a name hint was supplied.
	Location() string

	// Open returns a reader over the source. The caller must close it.
	Open(ctx context.Context) (io.ReadCloser, error)
}

// ReadAll opens p and reads it to the end, always releasing the reader.
// Failures after the open are *IOError values with Op "read" or "close";
// see IsReadFailure.
func ReadAll(ctx context.Context, p Provider) (data []byte, err error) {
	rc, err := p.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rc.Close(); cerr != nil && err == nil {
			err = readFailure("close", describe(p.Location(), p.ID()), cerr)
		}
	}()

	data, err = io.ReadAll(rc)
	if err != nil {
		return nil, readFailure("read", describe(p.Location(), p.ID()), err)
	}
	return data, nil
}

// readFailure classifies an error raised after a successful open. Context
// errors are wrapped too, so Op always tells a failed read from a failed open.
func readFailure(op, location string, err error) error {
	if isContextErr(err) {
		return &IOError{Code: ErrCodeOther, Op: op, Location: location, Err: err}
	}
	return Classify(op, location, err)
}

// File reads a file from disk.
type File struct {
	id   string
	path string
}

// NewFile creates a file provider.
func NewFile(id, path string) *File {
	return &File{id: id, path: path}
}

// ID implements Provider.
func (f *File) ID() string { return f.id }

// Location implements Provider.
func (f *File) Location() string { return f.path }

// Open implements Provider.
func (f *File) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fh, err := os.Open(f.path)
	if err != nil {
		return nil, Classify("open", f.path, err)
	}
	return wrapReader(ctx, fh, fh), nil
}

// streamGuard enforces the single-open rule of a standard stream.
type streamGuard struct {
	mu     sync.Mutex
	opened bool
}

func (g *streamGuard) claim() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.opened {
		return false
	}
	g.opened = true
	return true
}

// processStdin guards os.Stdin for the whole process.
var processStdin streamGuard

// Stdin reads a standard-input stream. It can be opened at most once: a
// second Open fails with ErrCodeAlreadyOpened rather than rereading.
type Stdin struct {
	id    string
	name  string
	r     io.Reader
	guard *streamGuard
}

// NewStdin returns a provider for the process standard input. All such
// providers share one guard, so only the first Open in the process succeeds.
func NewStdin(id string) *Stdin {
	return &Stdin{id: id, r: os.Stdin, guard: &processStdin}
}

// NewStream returns a single-open provider over r with its own guard.
// name, if non-empty, is used as the location for format inference.
func NewStream(id, name string, r io.Reader) *Stdin {
	return &Stdin{id: id, name: name, r: r, guard: &streamGuard{}}
}

// StreamSource hands out providers over one reader that share a single
// open, the way every NewStdin provider shares os.Stdin.
type StreamSource struct {
	r     io.Reader
	guard streamGuard
}

// NewStreamSource creates a source over r.
func NewStreamSource(r io.Reader) *StreamSource {
	return &StreamSource{r: r}
}

// Provider returns a provider over the source's reader. Only the first
// Open among all providers of one source succeeds.
func (s *StreamSource) Provider(id, name string) *Stdin {
	return &Stdin{id: id, name: name, r: s.r, guard: &s.guard}
}

// ID implements Provider.
func (s *Stdin) ID() string { return s.id }

// Location implements Provider.
func (s *Stdin) Location() string { return s.name }

// Open implements Provider. Closing the returned reader leaves the
// underlying stream open.
func (s *Stdin) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.guard.claim() {
		return nil, &IOError{Code: ErrCodeAlreadyOpened, Op: "open", Location: describe(s.name, stdinName)}
	}
	return wrapReader(ctx, s.r, nopCloser{}), nil
}

// Memory serves a fixed byte slice. It can be opened any number of times.
type Memory struct {
	id   string
	name string
	data []byte
}

// NewMemory creates an in-memory provider. name, if non-empty, is used as
// the location for format inference (e.g. "inline.json").
func NewMemory(id, name string, data []byte) *Memory {
	return &Memory{id: id, name: name, data: data}
}

// ID implements Provider.
func (m *Memory) ID() string { return m.id }

// Location implements Provider.
func (m *Memory) Location() string { return m.name }

// Open implements Provider.
func (m *Memory) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return wrapReader(ctx, bytes.NewReader(m.data), nopCloser{}), nil
}

// wrapReader layers cancellation checks and BOM handling over r. Input
// without a byte order mark passes through unchanged.
func wrapReader(ctx context.Context, r io.Reader, c io.Closer) io.ReadCloser {
	bom := unicode.BOMOverride(transform.Nop)
	return &readCloser{
		Reader: transform.NewReader(&ctxReader{ctx: ctx, r: r}, bom),
		Closer: c,
	}
}

type readCloser struct {
	io.Reader
	io.Closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// ctxReader fails reads once its context is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func describe(location, fallback string) string {
	if location != "" {
		return location
	}
	return fallback
}
