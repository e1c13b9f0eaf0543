package engine

import (
	"context"
	"fmt"
	"io"

	"github.com/roach88/multiio/internal/format"
	"github.com/roach88/multiio/internal/records"
)

// ReadRecords returns a lazy record stream over the input with the given
// id. The input is not opened until the stream's first Next.
func (e *Engine) ReadRecords(ctx context.Context, inputID string) (*records.Stream, error) {
	for i, in := range e.inputs {
		if in.Provider.ID() == inputID {
			return records.New(e.policy, e.recordSource(i)), nil
		}
	}
	return nil, fmt.Errorf("no input with id %q", inputID)
}

// ReadRecordsAuto merges one stream per input into a single stream, in
// declaration order, each decoded in its own format.
func (e *Engine) ReadRecordsAuto(ctx context.Context) *records.Stream {
	streams := make([]*records.Stream, len(e.inputs))
	for i := range e.inputs {
		streams[i] = records.New(e.policy, e.recordSource(i))
	}
	return records.Merge(e.policy, streams...)
}

func (e *Engine) recordSource(i int) records.Source {
	in := e.inputs[i]
	id := in.Provider.ID()
	return records.Source{
		ID: id,
		Open: func(ctx context.Context) (format.RecordDecoder, io.Closer, error) {
			fail := func(stage Stage, err error) error {
				return &ItemError{Stage: stage, ID: id, Position: i, Location: in.Provider.Location(), Err: err}
			}
			codec, err := e.codecFor(in.Provider.Location(), in.Format)
			if err != nil {
				return nil, nil, fail(StageResolve, err)
			}
			rc, err := in.Provider.Open(ctx)
			if err != nil {
				return nil, nil, fail(StageOpen, err)
			}
			e.logger.Debug("record stream opened", "id", id, "position", i, "format", codec.Kind().String())
			return records.NewDecoder(codec, rc), rc, nil
		},
	}
}
