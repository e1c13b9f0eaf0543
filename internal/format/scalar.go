package format

import (
	"regexp"
	"strconv"

	"github.com/roach88/multiio/internal/value"
)

var (
	intPattern   = regexp.MustCompile(`^[+-]?\d+$`)
	floatPattern = regexp.MustCompile(`^[+-]?(\d+\.\d*|\.\d+|\d+)([eE][+-]?\d+)?$`)
)

// ClassifyScalar types an untyped text cell (CSV, INI, XML text).
//
// Precedence is Number, then Bool, then String. Integers that fit in int64
// stay Int; larger integers and decimals become Float. Only the exact
// literals "true" and "false" are Bool. The empty string stays an empty
// String: untyped formats cannot tell absent from empty.
func ClassifyScalar(s string) value.Value {
	if s == "" {
		return value.String("")
	}
	if intPattern.MatchString(s) {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return value.Int(n)
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return value.Float(f)
		}
	}
	if floatPattern.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return value.Float(f)
		}
	}
	switch s {
	case "true":
		return value.Bool(true)
	case "false":
		return value.Bool(false)
	}
	return value.String(s)
}

// ScalarText renders a scalar as the text ClassifyScalar reads back.
// Null renders as "". Arrays and objects report ok=false.
func ScalarText(v value.Value) (text string, ok bool) {
	switch t := v.(type) {
	case nil, value.Null:
		return "", true
	case value.Bool:
		return strconv.FormatBool(bool(t)), true
	case value.Int:
		return strconv.FormatInt(int64(t), 10), true
	case value.Float:
		s, err := value.FormatFloat(float64(t))
		if err != nil {
			return "", false
		}
		return s, true
	case value.String:
		return string(t), true
	default:
		return "", false
	}
}

// reclassifies reports whether a String would come back as another type
// after a round trip through untyped text.
func reclassifies(s string) bool {
	_, isString := ClassifyScalar(s).(value.String)
	return !isString
}
