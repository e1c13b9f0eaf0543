package format

import (
	"errors"
	"fmt"
	"strings"
)

// FormatErrorCode categorizes resolution and registration errors.
type FormatErrorCode string

const (
	// ErrCodeUnsupportedFormat indicates no registered format matches.
	ErrCodeUnsupportedFormat FormatErrorCode = "UNSUPPORTED_FORMAT"

	// ErrCodeAmbiguousFormat indicates several formats claim an extension
	// and the format order does not break the tie.
	ErrCodeAmbiguousFormat FormatErrorCode = "AMBIGUOUS_FORMAT"

	// ErrCodeDuplicateFormat indicates a kind or custom name is already registered.
	ErrCodeDuplicateFormat FormatErrorCode = "DUPLICATE_FORMAT"

	// ErrCodeRegistryFrozen indicates a registration after an engine was built.
	ErrCodeRegistryFrozen FormatErrorCode = "REGISTRY_FROZEN"
)

// FormatError represents a resolution-time or registration-time failure.
type FormatError struct {
	// Code identifies the error category.
	Code FormatErrorCode

	// Kind is the format involved, if any.
	Kind Kind

	// Location is the path being resolved, if any.
	Location string

	// Extension is the lower-cased extension that was looked up.
	Extension string

	// Candidates lists the competing formats for AmbiguousFormat.
	Candidates []Kind
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	switch e.Code {
	case ErrCodeUnsupportedFormat:
		if !e.Kind.IsZero() {
			return fmt.Sprintf("%s: format %q is not registered", e.Code, e.Kind)
		}
		if e.Extension == "" {
			return fmt.Sprintf("%s: %q has no extension and no explicit format", e.Code, e.Location)
		}
		return fmt.Sprintf("%s: no format claims extension %q (%s)", e.Code, e.Extension, e.Location)
	case ErrCodeAmbiguousFormat:
		names := make([]string, len(e.Candidates))
		for i, c := range e.Candidates {
			names[i] = c.String()
		}
		return fmt.Sprintf("%s: extension %q is claimed by %s; set an explicit format or format order",
			e.Code, e.Extension, strings.Join(names, ", "))
	case ErrCodeDuplicateFormat:
		return fmt.Sprintf("%s: format %q is already registered", e.Code, e.Kind)
	case ErrCodeRegistryFrozen:
		if e.Kind.IsZero() {
			return fmt.Sprintf("%s: registry is frozen", e.Code)
		}
		return fmt.Sprintf("%s: cannot register %q after an engine was built from the registry", e.Code, e.Kind)
	default:
		return string(e.Code)
	}
}

// IsUnsupported returns true if err is an UnsupportedFormat error.
// Uses errors.As to handle wrapped errors.
func IsUnsupported(err error) bool {
	return hasCode(err, ErrCodeUnsupportedFormat)
}

// IsAmbiguous returns true if err is an AmbiguousFormat error.
func IsAmbiguous(err error) bool {
	return hasCode(err, ErrCodeAmbiguousFormat)
}

// IsDuplicate returns true if err is a DuplicateFormat error.
func IsDuplicate(err error) bool {
	return hasCode(err, ErrCodeDuplicateFormat)
}

func hasCode(err error, code FormatErrorCode) bool {
	var fe *FormatError
	if errors.As(err, &fe) {
		return fe.Code == code
	}
	return false
}

// Sentinel causes carried inside DecodeError and EncodeError.
var (
	// ErrRowArity is the cause of a CSV row whose column count differs from the header.
	ErrRowArity = errors.New("row arity mismatch")

	// ErrUnrepresentable is the cause when a value has no encoding in the target format.
	ErrUnrepresentable = errors.New("value not representable in format")

	// ErrUnsupportedOperation is the cause when a custom strategy lacks encode or decode.
	ErrUnsupportedOperation = errors.New("operation not supported by format")
)

// DecodeError is a codec failure while turning bytes into a value.
// Position fields are zero when unknown.
type DecodeError struct {
	Kind Kind

	// Offset is the byte offset of the failure.
	Offset int64

	// Line and Column are 1-based text positions.
	Line   int
	Column int

	// Row is the 1-based data row (CSV) or record index.
	Row int

	Err error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	var pos []string
	if e.Row > 0 {
		pos = append(pos, fmt.Sprintf("row %d", e.Row))
	}
	if e.Line > 0 {
		if e.Column > 0 {
			pos = append(pos, fmt.Sprintf("line %d:%d", e.Line, e.Column))
		} else {
			pos = append(pos, fmt.Sprintf("line %d", e.Line))
		}
	}
	if e.Offset > 0 && e.Line == 0 {
		pos = append(pos, fmt.Sprintf("offset %d", e.Offset))
	}
	if len(pos) == 0 {
		return fmt.Sprintf("decode %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("decode %s (%s): %v", e.Kind, strings.Join(pos, ", "), e.Err)
}

// Unwrap returns the underlying cause.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EncodeError is a codec failure while turning a value into bytes.
type EncodeError struct {
	Kind Kind

	// Path locates the offending value, e.g. "[2].address".
	Path string

	Err error
}

// Error implements the error interface.
func (e *EncodeError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("encode %s at %s: %v", e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("encode %s: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *EncodeError) Unwrap() error {
	return e.Err
}

// unrepresentable builds an EncodeError for a value the format cannot hold.
func unrepresentable(kind Kind, path, format string, args ...any) *EncodeError {
	return &EncodeError{
		Kind: kind,
		Path: path,
		Err:  fmt.Errorf("%w: %s", ErrUnrepresentable, fmt.Sprintf(format, args...)),
	}
}

// lineAt converts a byte offset into a 1-based line number.
func lineAt(data []byte, offset int64) int {
	if offset <= 0 {
		return 1
	}
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	line := 1
	for _, b := range data[:offset] {
		if b == '\n' {
			line++
		}
	}
	return line
}

// joinPath appends a key or index segment to a value path.
func joinPath(path string, seg any) string {
	switch s := seg.(type) {
	case int:
		return fmt.Sprintf("%s[%d]", path, s)
	default:
		if path == "" {
			return fmt.Sprint(s)
		}
		return fmt.Sprintf("%s.%v", path, s)
	}
}
