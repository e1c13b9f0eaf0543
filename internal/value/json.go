package value

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ParseJSON decodes a single JSON document into a Value, preserving object
// key order. Trailing non-whitespace data is an error.
func ParseJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := ReadJSON(dec)
	if err != nil {
		return nil, truncated(err)
	}
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("unexpected trailing data at offset %d", dec.InputOffset())
		}
		return nil, err
	}
	return v, nil
}

// ReadJSON decodes the next JSON value from dec. The decoder should have
// UseNumber enabled so integers survive without a float round-trip.
//
// ReadJSON returns io.EOF only when dec holds no further value. Input that
// ends inside a value yields io.ErrUnexpectedEOF.
func ReadJSON(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return readJSONToken(dec, tok)
}

// readNested reads a value that must be present, such as an array element.
func readNested(dec *json.Decoder) (Value, error) {
	v, err := ReadJSON(dec)
	return v, truncated(err)
}

func truncated(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

func readJSONToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		return parseNumber(string(t))
	case float64:
		return Float(t), nil
	case json.Delim:
		switch t {
		case '[':
			arr := Array{}
			for dec.More() {
				elem, err := readNested(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, elem)
			}
			if _, err := dec.Token(); err != nil { // closing ]
				return nil, truncated(err)
			}
			return arr, nil
		case '{':
			obj := NewObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, truncated(err)
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is %T, not string", keyTok)
				}
				elem, err := readNested(dec)
				if err != nil {
					return nil, fmt.Errorf("object[%q]: %w", key, err)
				}
				obj.Set(key, elem)
			}
			if _, err := dec.Token(); err != nil { // closing }
				return nil, truncated(err)
			}
			return obj, nil
		}
	}
	return nil, fmt.Errorf("unexpected JSON token %v", tok)
}

// parseNumber keeps integers lossless when they fit in int64 and falls back
// to float64 otherwise.
func parseNumber(s string) (Value, error) {
	if !strings.ContainsAny(s, ".eE") {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Int(n), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return Float(f), nil
}

// MarshalJSON encodes v as compact JSON with object keys in insertion order.
func MarshalJSON(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, v, "", ""); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalIndentJSON encodes v as indented JSON with object keys in insertion order.
func MarshalIndentJSON(v Value, indent string) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, v, indent, ""); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalJSON implements json.Marshaler so an Object can sit inside plain Go
// structures without losing key order.
func (o *Object) MarshalJSON() ([]byte, error) {
	return MarshalJSON(o)
}

// UnmarshalJSON implements json.Unmarshaler for Object.
func (o *Object) UnmarshalJSON(data []byte) error {
	v, err := ParseJSON(data)
	if err != nil {
		return err
	}
	obj, ok := v.(*Object)
	if !ok {
		return fmt.Errorf("cannot unmarshal JSON %s into object", Kind(v))
	}
	*o = *obj
	return nil
}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// ErrNonFinite is returned when a NaN or infinite float is marshaled.
var ErrNonFinite = errors.New("non-finite float cannot be represented")

func writeJSON(buf *bytes.Buffer, v Value, indent, prefix string) error {
	switch val := v.(type) {
	case nil, Null:
		buf.WriteString("null")
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	case Int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case Float:
		s, err := FormatFloat(float64(val))
		if err != nil {
			return err
		}
		buf.WriteString(s)
	case String:
		buf.Write(QuoteJSON(string(val)))
	case Array:
		if len(val) == 0 {
			buf.WriteString("[]")
			return nil
		}
		inner := prefix + indent
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			newline(buf, indent, inner)
			if err := writeJSON(buf, elem, indent, inner); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		newline(buf, indent, prefix)
		buf.WriteByte(']')
	case *Object:
		if val.Len() == 0 {
			buf.WriteString("{}")
			return nil
		}
		inner := prefix + indent
		buf.WriteByte('{')
		i := 0
		for k, elem := range val.All() {
			if i > 0 {
				buf.WriteByte(',')
			}
			i++
			newline(buf, indent, inner)
			buf.Write(QuoteJSON(k))
			buf.WriteByte(':')
			if indent != "" {
				buf.WriteByte(' ')
			}
			if err := writeJSON(buf, elem, indent, inner); err != nil {
				return fmt.Errorf("object[%q]: %w", k, err)
			}
		}
		newline(buf, indent, prefix)
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unknown Value type: %T", v)
	}
	return nil
}

func newline(buf *bytes.Buffer, indent, prefix string) {
	if indent == "" {
		return
	}
	buf.WriteByte('\n')
	buf.WriteString(prefix)
}

// FormatFloat renders f so that it reads back as a float: integral values
// keep a trailing ".0".
func FormatFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("%w: %v", ErrNonFinite, f)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s, nil
}

// QuoteJSON produces a JSON string literal without HTML escaping
// (<, >, & are NOT escaped).
func QuoteJSON(s string) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s) // strings always encode

	// json.Encoder adds trailing newline, remove it
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
}
