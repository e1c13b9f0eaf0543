package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigErrorCode categorizes a configuration problem.
type ConfigErrorCode string

const (
	// ErrCodeEmptyInputs indicates a pipeline with no inputs.
	ErrCodeEmptyInputs ConfigErrorCode = "EMPTY_INPUTS"

	// ErrCodeEmptyOutputs indicates a pipeline with no outputs.
	ErrCodeEmptyOutputs ConfigErrorCode = "EMPTY_OUTPUTS"

	// ErrCodeDuplicateID indicates two inputs, or two outputs, sharing an id.
	ErrCodeDuplicateID ConfigErrorCode = "DUPLICATE_ID"

	// ErrCodeUnresolvableFormat indicates a location and explicit format
	// that do not resolve to a registered format.
	ErrCodeUnresolvableFormat ConfigErrorCode = "UNRESOLVABLE_FORMAT"

	// ErrCodeInvalidEndpoint indicates a spec that cannot be turned into
	// a provider or target: unknown kind, missing path or id, bad
	// file_exists policy.
	ErrCodeInvalidEndpoint ConfigErrorCode = "INVALID_ENDPOINT"

	// ErrCodeInvalidFormat indicates a custom codec or format order entry
	// that could not be registered.
	ErrCodeInvalidFormat ConfigErrorCode = "INVALID_FORMAT"
)

// Problem is one configuration mistake.
type Problem struct {
	Code ConfigErrorCode

	// Field locates the mistake, e.g. "inputs[1].format".
	Field string

	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (p Problem) Error() string {
	if p.Field == "" {
		return fmt.Sprintf("[%s] %s", p.Code, p.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", p.Code, p.Field, p.Message)
}

// Unwrap returns the underlying cause.
func (p Problem) Unwrap() error {
	return p.Err
}

// ConfigError lists every problem found while validating a pipeline.
// Validation never stops at the first problem, whatever the error policy.
type ConfigError struct {
	Problems []Problem
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid pipeline configuration: " + e.Problems[0].Error()
	}
	lines := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		lines[i] = "  - " + p.Error()
	}
	return fmt.Sprintf("invalid pipeline configuration (%d problems):\n%s", len(e.Problems), strings.Join(lines, "\n"))
}

// Unwrap exposes the problems to errors.Is and errors.As.
func (e *ConfigError) Unwrap() []error {
	out := make([]error, len(e.Problems))
	for i, p := range e.Problems {
		out[i] = p
	}
	return out
}

// Codes returns the problem codes in order.
func (e *ConfigError) Codes() []ConfigErrorCode {
	codes := make([]ConfigErrorCode, len(e.Problems))
	for i, p := range e.Problems {
		codes[i] = p.Code
	}
	return codes
}

// IsConfigError reports whether err is (or wraps) a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
