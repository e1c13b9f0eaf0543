package endpoint

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Target is a sink for one pipeline output. Write receives the complete
// encoded payload; a target either stores all of it or none of it.
type Target interface {
	ID() string

	// Location is the path used for format inference, "" for streams.
	Location() string

	Write(ctx context.Context, data []byte) error
}

// ExistsPolicy decides what a file target does when its path exists.
type ExistsPolicy string

const (
	// Overwrite replaces the existing file atomically.
	Overwrite ExistsPolicy = "overwrite"

	// Append adds the payload after the existing content.
	Append ExistsPolicy = "append"

	// FailIfExists refuses to touch an existing file.
	FailIfExists ExistsPolicy = "error"
)

// ParseExistsPolicy parses "overwrite", "append" or "error". The empty
// string means Overwrite.
func ParseExistsPolicy(s string) (ExistsPolicy, error) {
	switch p := ExistsPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return Overwrite, nil
	case Overwrite, Append, FailIfExists:
		return p, nil
	default:
		return "", fmt.Errorf("unknown file_exists policy %q (want overwrite, append or error)", s)
	}
}

// FileTarget writes to a path, creating parent directories as needed.
type FileTarget struct {
	id     string
	path   string
	policy ExistsPolicy
}

// NewFileTarget creates a file target. An empty policy means Overwrite.
func NewFileTarget(id, path string, policy ExistsPolicy) *FileTarget {
	if policy == "" {
		policy = Overwrite
	}
	return &FileTarget{id: id, path: path, policy: policy}
}

// ID implements Target.
func (f *FileTarget) ID() string { return f.id }

// Location implements Target.
func (f *FileTarget) Location() string { return f.path }

// Policy returns the exists policy.
func (f *FileTarget) Policy() ExistsPolicy { return f.policy }

// Write implements Target.
func (f *FileTarget) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return Classify("write", f.path, err)
	}

	var err error
	switch f.policy {
	case Append:
		err = f.append(data)
	case FailIfExists:
		err = f.create(data)
	default:
		err = f.replace(ctx, data)
	}
	return Classify("write", f.path, err)
}

// replace writes data to a temporary sibling and renames it over the
// target, so readers see either the old or the new content.
func (f *FileTarget) replace(ctx context.Context, data []byte) (err error) {
	mode := fs.FileMode(0o644)
	if info, statErr := os.Stat(f.path); statErr == nil {
		if info.IsDir() {
			return fmt.Errorf("%w: path is a directory", fs.ErrExist)
		}
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), "."+filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Chmod(mode); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	// Last chance to abandon the write before the target changes.
	if err = ctx.Err(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

func (f *FileTarget) append(data []byte) error {
	fh, err := os.OpenFile(f.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if _, err := fh.Write(data); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}

func (f *FileTarget) create(data []byte) error {
	fh, err := os.OpenFile(f.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := fh.Write(data); err != nil {
		fh.Close()
		os.Remove(f.path)
		return err
	}
	return fh.Close()
}

// StreamTarget writes to a process stream or any io.Writer. Writes are
// serialized so concurrent outputs sharing a stream do not interleave.
type StreamTarget struct {
	id   string
	name string
	mu   *sync.Mutex
	w    io.Writer
}

var (
	stdoutMu sync.Mutex
	stderrMu sync.Mutex
)

// NewStdout returns a target for the process standard output.
func NewStdout(id string) *StreamTarget {
	return &StreamTarget{id: id, w: os.Stdout, mu: &stdoutMu}
}

// NewStderr returns a target for the process standard error.
func NewStderr(id string) *StreamTarget {
	return &StreamTarget{id: id, w: os.Stderr, mu: &stderrMu}
}

// NewWriterTarget returns a target over w. name, if non-empty, is used as
// the location for format inference.
func NewWriterTarget(id, name string, w io.Writer) *StreamTarget {
	return &StreamTarget{id: id, name: name, w: w, mu: &sync.Mutex{}}
}

// ID implements Target.
func (s *StreamTarget) ID() string { return s.id }

// Location implements Target.
func (s *StreamTarget) Location() string { return s.name }

// Write implements Target.
func (s *StreamTarget) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(data); err != nil {
		return Classify("write", describe(s.name, s.streamName()), err)
	}
	return nil
}

func (s *StreamTarget) streamName() string {
	switch s.w {
	case os.Stdout:
		return stdoutName
	case os.Stderr:
		return stderrName
	default:
		return "<" + s.id + ">"
	}
}

// MemoryTarget keeps the last payload written to it.
type MemoryTarget struct {
	id   string
	name string

	mu      sync.Mutex
	data    []byte
	written bool
}

// NewMemoryTarget creates an in-memory target. name, if non-empty, is used
// as the location for format inference.
func NewMemoryTarget(id, name string) *MemoryTarget {
	return &MemoryTarget{id: id, name: name}
}

// ID implements Target.
func (m *MemoryTarget) ID() string { return m.id }

// Location implements Target.
func (m *MemoryTarget) Location() string { return m.name }

// Write implements Target. Each write replaces the previous payload.
func (m *MemoryTarget) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = bytes.Clone(data)
	m.written = true
	return nil
}

// Bytes returns a copy of the stored payload.
func (m *MemoryTarget) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return bytes.Clone(m.data)
}

// Written reports whether any payload has been stored.
func (m *MemoryTarget) Written() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.written
}

// IsExists reports whether err means a target refused an existing path.
func IsExists(err error) bool {
	return HasCode(err, ErrCodeExists) || errors.Is(err, fs.ErrExist)
}
