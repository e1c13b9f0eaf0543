package format

import (
	"encoding/json"
	"errors"

	"github.com/roach88/multiio/internal/value"
)

// jsonCodec reads one JSON document and writes it with two-space indent.
type jsonCodec struct{}

func (jsonCodec) Kind() Kind           { return JSON }
func (jsonCodec) Extensions() []string { return []string{"json"} }

func (jsonCodec) Decode(data []byte) (value.Value, error) {
	v, err := value.ParseJSON(data)
	if err != nil {
		return nil, jsonDecodeError(data, err)
	}
	return v, nil
}

func (jsonCodec) Encode(v value.Value) ([]byte, error) {
	out, err := value.MarshalIndentJSON(v, "  ")
	if err != nil {
		return nil, &EncodeError{Kind: JSON, Err: err}
	}
	return append(out, '\n'), nil
}

// jsonDecodeError attaches the byte offset and line of a JSON syntax error.
func jsonDecodeError(data []byte, err error) *DecodeError {
	de := &DecodeError{Kind: JSON, Err: err}
	var syn *json.SyntaxError
	var typ *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syn):
		de.Offset = syn.Offset
		de.Line = lineAt(data, syn.Offset)
	case errors.As(err, &typ):
		de.Offset = typ.Offset
		de.Line = lineAt(data, typ.Offset)
	}
	return de
}
