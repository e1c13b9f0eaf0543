package format

import (
	"fmt"
	"io"
	"strings"

	"github.com/roach88/multiio/internal/value"
)

// Codec is a single format's encode/decode pair plus the file extensions it
// recognizes (lower-case, no leading dot).
//
// For any value the format can represent, Decode(Encode(v)) must be
// semantically equal to v. Values the format cannot represent fail Encode
// with an *EncodeError wrapping ErrUnrepresentable.
type Codec interface {
	Kind() Kind
	Extensions() []string
	Decode(data []byte) (value.Value, error)
	Encode(v value.Value) ([]byte, error)
}

// Strategy is the caller-supplied behavior behind a custom format.
type Strategy interface {
	Decode(data []byte) (value.Value, error)
	Encode(v value.Value) ([]byte, error)
}

// RecordDecoder yields successive records from one source.
//
// Next returns io.EOF when the source is exhausted. A *DecodeError means the
// record was skipped and the decoder can continue; any other error is
// terminal.
type RecordDecoder interface {
	Next() (value.Value, error)
}

// StreamStrategy is an optional extension of Strategy for custom formats
// that can decode incrementally.
type StreamStrategy interface {
	Strategy
	NewRecordDecoder(r io.Reader) RecordDecoder
}

// StrategyFuncs adapts a pair of functions to the Strategy interface.
// A nil function makes that direction fail with ErrUnsupportedOperation.
type StrategyFuncs struct {
	DecodeFunc func(data []byte) (value.Value, error)
	EncodeFunc func(v value.Value) ([]byte, error)
}

// Decode implements Strategy.
func (s StrategyFuncs) Decode(data []byte) (value.Value, error) {
	if s.DecodeFunc == nil {
		return nil, ErrUnsupportedOperation
	}
	return s.DecodeFunc(data)
}

// Encode implements Strategy.
func (s StrategyFuncs) Encode(v value.Value) ([]byte, error) {
	if s.EncodeFunc == nil {
		return nil, ErrUnsupportedOperation
	}
	return s.EncodeFunc(v)
}

// CustomCodec wraps a Strategy as a Codec for a custom format.
type CustomCodec struct {
	kind       Kind
	extensions []string
	strategy   Strategy
}

// NewCustom creates a custom codec named name, claiming the given extensions.
func NewCustom(name string, extensions []string, strategy Strategy) *CustomCodec {
	return &CustomCodec{
		kind:       Custom(name),
		extensions: normalizeExtensions(extensions),
		strategy:   strategy,
	}
}

// Kind implements Codec.
func (c *CustomCodec) Kind() Kind { return c.kind }

// Extensions implements Codec.
func (c *CustomCodec) Extensions() []string { return c.extensions }

// Strategy returns the underlying strategy.
func (c *CustomCodec) Strategy() Strategy { return c.strategy }

// Decode implements Codec. Strategy failures are wrapped in a DecodeError
// unless the strategy already returned one.
func (c *CustomCodec) Decode(data []byte) (value.Value, error) {
	v, err := c.strategy.Decode(data)
	if err != nil {
		return nil, asDecodeError(c.kind, err)
	}
	if v == nil {
		v = value.Null{}
	}
	return v, nil
}

// Encode implements Codec.
func (c *CustomCodec) Encode(v value.Value) ([]byte, error) {
	data, err := c.strategy.Encode(v)
	if err != nil {
		return nil, asEncodeError(c.kind, err)
	}
	return data, nil
}

func asDecodeError(kind Kind, err error) error {
	if de, ok := err.(*DecodeError); ok {
		return de
	}
	return &DecodeError{Kind: kind, Err: err}
}

func asEncodeError(kind Kind, err error) error {
	if ee, ok := err.(*EncodeError); ok {
		return ee
	}
	return &EncodeError{Kind: kind, Err: err}
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}

// NewBuiltin returns the builtin codec for kind.
func NewBuiltin(kind Kind) (Codec, error) {
	switch kind {
	case JSON:
		return jsonCodec{}, nil
	case YAML:
		return yamlCodec{}, nil
	case CSV:
		return csvCodec{}, nil
	case XML:
		return xmlCodec{}, nil
	case TOML:
		return tomlCodec{}, nil
	case INI:
		return iniCodec{}, nil
	case Plaintext:
		return plaintextCodec{}, nil
	default:
		return nil, fmt.Errorf("%q is not a builtin format", kind)
	}
}
