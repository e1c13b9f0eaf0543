package records

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/roach88/multiio/internal/config"
	"github.com/roach88/multiio/internal/format"
	"github.com/roach88/multiio/internal/value"
)

// Item is one element of a Stream: a decoded value or an in-band failure.
type Item struct {
	Value value.Value
	Err   error

	// SourceID names the source the item came from.
	SourceID string

	// Index is the 0-based record position within the source. Failures to
	// open a source carry Index -1.
	Index int

	// Line is the 1-based line the record started on, 0 when unknown.
	Line int
}

// OpenFunc opens a source lazily, when the stream first reaches it. The
// closer, if non-nil, is called once the source is exhausted or the
// stream is closed.
type OpenFunc func(ctx context.Context) (format.RecordDecoder, io.Closer, error)

// Source is one named input of a Stream.
type Source struct {
	ID   string
	Open OpenFunc
}

type cursor struct {
	id     string
	open   OpenFunc
	dec    format.RecordDecoder
	closer io.Closer
	index  int
}

// Stream is a lazy, single-pass, forward-only sequence of records drawn
// from its sources in order. It is not safe for concurrent use and cannot
// be restarted.
type Stream struct {
	policy  config.ErrorPolicy
	cur     *cursor
	pending []*cursor
	done    bool
}

// New creates a stream over sources, read in the given order. No source is
// opened until Next reaches it.
func New(policy config.ErrorPolicy, sources ...Source) *Stream {
	s := &Stream{policy: policy}
	for _, src := range sources {
		s.pending = append(s.pending, &cursor{id: src.ID, open: src.Open})
	}
	return s
}

// Merge concatenates streams into one, preserving their order and any
// progress already made. The merged streams are drained by the call and
// must not be used afterwards.
func Merge(policy config.ErrorPolicy, streams ...*Stream) *Stream {
	merged := &Stream{policy: policy}
	for _, st := range streams {
		if st.cur != nil {
			merged.pending = append(merged.pending, st.cur)
		}
		merged.pending = append(merged.pending, st.pending...)
		st.cur, st.pending, st.done = nil, nil, true
	}
	return merged
}

// Next returns the next item, or false once the stream is exhausted.
//
// Under Accumulate a decode failure is returned as an error item and the
// stream continues with the following record. A failure that leaves the
// source unreadable ends that source and the stream moves on to the next
// one. Under FastFail any error item is the last item of the stream.
// Cancellation of ctx yields one error item and ends the stream.
func (s *Stream) Next(ctx context.Context) (Item, bool) {
	for {
		if s.done {
			return Item{}, false
		}
		if err := ctx.Err(); err != nil {
			item := Item{Err: err, Index: -1}
			if s.cur != nil {
				item.SourceID, item.Index = s.cur.id, s.cur.index
			}
			s.Close()
			return item, true
		}

		if s.cur == nil {
			if len(s.pending) == 0 {
				s.done = true
				return Item{}, false
			}
			s.cur, s.pending = s.pending[0], s.pending[1:]
			if s.cur.dec == nil {
				dec, closer, err := s.cur.open(ctx)
				if err != nil {
					item := Item{SourceID: s.cur.id, Index: -1, Err: err}
					s.cur = nil
					if s.policy.IsFastFail() {
						s.Close()
					}
					return item, true
				}
				s.cur.dec, s.cur.closer = dec, closer
			}
		}

		v, err := s.cur.dec.Next()
		if err == io.EOF {
			s.closeCurrent()
			continue
		}

		item := Item{SourceID: s.cur.id, Index: s.cur.index, Value: v, Err: err}
		if lr, ok := s.cur.dec.(lineReporter); ok {
			item.Line = lr.Line()
		}
		s.cur.index++
		if err == nil {
			return item, true
		}

		item.Value = nil
		var de *format.DecodeError
		if errors.As(err, &de) && de.Line > 0 {
			item.Line = de.Line
		}
		switch {
		case s.policy.IsFastFail():
			s.Close()
		case de == nil:
			s.closeCurrent()
		}
		return item, true
	}
}

func (s *Stream) closeCurrent() {
	if s.cur != nil && s.cur.closer != nil {
		s.cur.closer.Close()
	}
	s.cur = nil
}

// Close releases every open source and ends the stream. It is safe to call
// more than once.
func (s *Stream) Close() error {
	var err error
	if s.cur != nil && s.cur.closer != nil {
		err = s.cur.closer.Close()
	}
	s.cur, s.pending, s.done = nil, nil, true
	return err
}

// All returns an iterator over the remaining records. Failures are yielded
// as a *RecordError with a nil value. Breaking out of the loop closes the
// stream.
func (s *Stream) All(ctx context.Context) iter.Seq2[value.Value, error] {
	return func(yield func(value.Value, error) bool) {
		defer s.Close()
		for {
			item, ok := s.Next(ctx)
			if !ok {
				return
			}
			if item.Err != nil {
				if !yield(nil, item.RecordError()) {
					return
				}
				continue
			}
			if !yield(item.Value, nil) {
				return
			}
		}
	}
}

// Collect drains the stream. It returns every value if no failure occurred.
// Otherwise the values are discarded and the error is the single
// *RecordError (FastFail) or an Errors list of every failure (Accumulate).
func (s *Stream) Collect(ctx context.Context) ([]value.Value, error) {
	var vals []value.Value
	var errs Errors
	for v, err := range s.All(ctx) {
		if err != nil {
			errs = append(errs, err.(*RecordError))
			continue
		}
		vals = append(vals, v)
	}
	switch {
	case len(errs) == 0:
		return vals, nil
	case s.policy.IsFastFail():
		return nil, errs[0]
	default:
		return nil, errs
	}
}

// RecordError returns the item's failure tagged with its position, or nil.
func (it Item) RecordError() *RecordError {
	if it.Err == nil {
		return nil
	}
	return &RecordError{SourceID: it.SourceID, Index: it.Index, Line: it.Line, Err: it.Err}
}

// RecordError is a stream failure tagged with where it happened.
type RecordError struct {
	SourceID string
	Index    int
	Line     int
	Err      error
}

// Error implements the error interface.
func (e *RecordError) Error() string {
	switch {
	case e.Index < 0:
		return fmt.Sprintf("%s: %v", e.SourceID, e.Err)
	case e.Line > 0:
		return fmt.Sprintf("%s: record %d (line %d): %v", e.SourceID, e.Index, e.Line, e.Err)
	default:
		return fmt.Sprintf("%s: record %d: %v", e.SourceID, e.Index, e.Err)
	}
}

// Unwrap returns the underlying cause.
func (e *RecordError) Unwrap() error {
	return e.Err
}

// Errors aggregates the failures of an accumulating stream.
type Errors []*RecordError

// Error implements the error interface.
func (es Errors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d record errors:\n  %s", len(es), strings.Join(msgs, "\n  "))
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (es Errors) Unwrap() []error {
	out := make([]error, len(es))
	for i, e := range es {
		out[i] = e
	}
	return out
}
