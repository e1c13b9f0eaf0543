package format

import (
	"bytes"

	"github.com/roach88/multiio/internal/value"
)

// plaintextCodec reads text that happens to hold JSON as that JSON, and
// anything else as one String. Strings are written raw unless the raw text
// would itself parse as JSON; other values are written as pretty JSON.
type plaintextCodec struct{}

func (plaintextCodec) Kind() Kind           { return Plaintext }
func (plaintextCodec) Extensions() []string { return []string{"txt", "text"} }

func (plaintextCodec) Decode(data []byte) (value.Value, error) {
	if len(bytes.TrimSpace(data)) > 0 {
		if v, err := value.ParseJSON(data); err == nil {
			return v, nil
		}
	}
	return value.String(data), nil
}

func (plaintextCodec) Encode(v value.Value) ([]byte, error) {
	if s, ok := v.(value.String); ok {
		if _, err := value.ParseJSON([]byte(s)); err != nil {
			return []byte(s), nil
		}
		return append(value.QuoteJSON(string(s)), '\n'), nil
	}
	out, err := value.MarshalIndentJSON(v, "  ")
	if err != nil {
		return nil, &EncodeError{Kind: Plaintext, Err: err}
	}
	return append(out, '\n'), nil
}
