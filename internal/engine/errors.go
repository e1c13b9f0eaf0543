package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Stage identifies where in an item's lifecycle a failure happened.
type Stage string

const (
	StageResolve Stage = "resolve"
	StageOpen    Stage = "open"
	StageRead    Stage = "read"
	StageDecode  Stage = "decode"
	StageConvert Stage = "convert"
	StageEncode  Stage = "encode"
	StageWrite   Stage = "write"
)

// Direction tells whether a stage belongs to reading or writing.
func (s Stage) Direction() string {
	switch s {
	case StageEncode, StageWrite:
		return "output"
	default:
		return "input"
	}
}

// ItemError is the failure of one input or output, tagged with its
// originating id and declaration position.
type ItemError struct {
	Stage Stage

	// ID is the input or output id.
	ID string

	// Position is the 0-based declaration index among inputs or outputs.
	Position int

	// Location is the path being read or written, if any.
	Location string

	Err error
}

// Error implements the error interface.
func (e *ItemError) Error() string {
	where := fmt.Sprintf("%s %q (#%d)", e.Stage.Direction(), e.ID, e.Position)
	if e.Location != "" && e.Location != e.ID {
		where += " " + e.Location
	}
	return fmt.Sprintf("%s: %s: %v", where, e.Stage, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ItemError) Unwrap() error {
	return e.Err
}

// Canceled reports whether the item failed because its context ended.
func (e *ItemError) Canceled() bool {
	return errors.Is(e.Err, context.Canceled) || errors.Is(e.Err, context.DeadlineExceeded)
}

// PipelineError aggregates every failure of an accumulating operation, in
// declaration order. Successes from the same call are never returned
// alongside it.
type PipelineError struct {
	Errors []*ItemError
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	lines := make([]string, len(e.Errors))
	for i, ie := range e.Errors {
		lines[i] = "  - " + ie.Error()
	}
	return fmt.Sprintf("%d items failed:\n%s", len(e.Errors), strings.Join(lines, "\n"))
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *PipelineError) Unwrap() []error {
	out := make([]error, len(e.Errors))
	for i, ie := range e.Errors {
		out[i] = ie
	}
	return out
}

// Failures flattens err into its item errors: the list of a *PipelineError,
// the single *ItemError, or nil for anything else.
func Failures(err error) []*ItemError {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Errors
	}
	var ie *ItemError
	if errors.As(err, &ie) {
		return []*ItemError{ie}
	}
	return nil
}

// IsStage reports whether err contains an item failure at stage.
func IsStage(err error, stage Stage) bool {
	for _, ie := range Failures(err) {
		if ie.Stage == stage {
			return true
		}
	}
	return false
}
