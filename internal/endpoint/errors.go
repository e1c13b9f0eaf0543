package endpoint

import (
	"errors"
	"fmt"
	"io/fs"
)

// IOErrorCode categorizes capability failures.
type IOErrorCode string

const (
	// ErrCodeNotFound indicates the source path does not exist.
	ErrCodeNotFound IOErrorCode = "NOT_FOUND"

	// ErrCodePermissionDenied indicates the OS refused access.
	ErrCodePermissionDenied IOErrorCode = "PERMISSION_DENIED"

	// ErrCodeExists indicates a target exists and its policy forbids replacing it.
	ErrCodeExists IOErrorCode = "EXISTS"

	// ErrCodeAlreadyOpened indicates a second open of the process standard input.
	ErrCodeAlreadyOpened IOErrorCode = "ALREADY_OPENED"

	// ErrCodeOther covers every other I/O failure.
	ErrCodeOther IOErrorCode = "OTHER"
)

// IOError is a capability-level failure.
type IOError struct {
	Code IOErrorCode

	// Op is the operation that failed: "open", "read" or "write".
	Op string

	// Location is the path, or a stream name such as "<stdin>".
	Location string

	Err error
}

// Error implements the error interface.
func (e *IOError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Location, e.Code)
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Location, e.Code, e.Err)
}

// Unwrap returns the underlying cause.
func (e *IOError) Unwrap() error {
	return e.Err
}

// Classify wraps err as an *IOError, deriving the code from the fs sentinel
// errors. An err that already is an *IOError is returned unchanged; context
// cancellation passes through unwrapped.
func Classify(op, location string, err error) error {
	if err == nil {
		return nil
	}
	var ioe *IOError
	if errors.As(err, &ioe) {
		return err
	}
	if isContextErr(err) {
		return err
	}

	code := ErrCodeOther
	switch {
	case errors.Is(err, fs.ErrNotExist):
		code = ErrCodeNotFound
	case errors.Is(err, fs.ErrPermission):
		code = ErrCodePermissionDenied
	case errors.Is(err, fs.ErrExist):
		code = ErrCodeExists
	}
	return &IOError{Code: code, Op: op, Location: location, Err: err}
}

// IsReadFailure reports whether err happened while reading or closing a
// source that had opened successfully.
func IsReadFailure(err error) bool {
	var ioe *IOError
	if errors.As(err, &ioe) {
		return ioe.Op == "read" || ioe.Op == "close"
	}
	return false
}

// HasCode reports whether err is an *IOError with the given code.
func HasCode(err error, code IOErrorCode) bool {
	var ioe *IOError
	if errors.As(err, &ioe) {
		return ioe.Code == code
	}
	return false
}
