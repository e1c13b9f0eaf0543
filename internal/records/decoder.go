package records

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/multiio/internal/format"
	"github.com/roach88/multiio/internal/value"
)

// lineReporter is implemented by decoders that know where the last record
// started.
type lineReporter interface {
	Line() int
}

// NewDecoder returns the incremental decoder for codec's format over r.
func NewDecoder(codec format.Codec, r io.Reader) format.RecordDecoder {
	switch codec.Kind() {
	case format.JSON:
		return newJSONDecoder(r)
	case format.CSV:
		return format.NewCSVDecoder(r)
	case format.YAML:
		return &yamlDecoder{dec: yaml.NewDecoder(r)}
	case format.Plaintext:
		return &lineDecoder{br: bufio.NewReader(r)}
	}
	if custom, ok := codec.(*format.CustomCodec); ok {
		if ss, ok := custom.Strategy().(format.StreamStrategy); ok {
			return ss.NewRecordDecoder(r)
		}
	}
	return &wholeDecoder{codec: codec, r: r}
}

// jsonDecoder reads JSON Lines, or the elements of a top-level array when
// the first non-space byte is '['.
type jsonDecoder struct {
	br    *bufio.Reader
	arr   *json.Decoder
	line  int // lines consumed so far
	start int // line of the last record
	init  bool
	done  bool
}

func newJSONDecoder(r io.Reader) *jsonDecoder {
	return &jsonDecoder{br: bufio.NewReader(r)}
}

func (d *jsonDecoder) Line() int { return d.start }

func (d *jsonDecoder) Next() (value.Value, error) {
	if d.done {
		return nil, io.EOF
	}
	if !d.init {
		d.init = true
		if err := d.sniff(); err != nil {
			d.done = true
			return nil, err
		}
	}
	if d.arr != nil {
		return d.nextElement()
	}
	return d.nextLine()
}

// sniff skips leading whitespace and switches to array mode on '['.
func (d *jsonDecoder) sniff() error {
	for {
		c, err := d.br.ReadByte()
		if err != nil {
			return err
		}
		switch c {
		case ' ', '\t', '\r':
			continue
		case '\n':
			d.line++
			continue
		}
		if err := d.br.UnreadByte(); err != nil {
			return err
		}
		if c == '[' {
			d.arr = json.NewDecoder(d.br)
			d.arr.UseNumber()
			if _, err := d.arr.Token(); err != nil {
				return &format.DecodeError{Kind: format.JSON, Err: err}
			}
		}
		return nil
	}
}

func (d *jsonDecoder) nextLine() (value.Value, error) {
	for {
		raw, err := d.br.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			d.done = true
			return nil, err
		}
		if len(raw) == 0 {
			d.done = true
			return nil, io.EOF
		}
		d.line++
		if err != nil {
			d.done = true // last line has no terminator
		}

		text := bytes.TrimSpace(raw)
		if len(text) == 0 {
			if d.done {
				return nil, io.EOF
			}
			continue
		}

		d.start = d.line
		v, perr := value.ParseJSON(text)
		if perr != nil {
			return nil, &format.DecodeError{Kind: format.JSON, Line: d.line, Err: perr}
		}
		return v, nil
	}
}

func (d *jsonDecoder) nextElement() (value.Value, error) {
	if !d.arr.More() {
		d.done = true
		if _, err := d.arr.Token(); err != nil {
			return nil, &format.DecodeError{Kind: format.JSON, Offset: d.arr.InputOffset(), Err: err}
		}
		return nil, io.EOF
	}
	v, err := value.ReadJSON(d.arr)
	if err != nil {
		// The token stream cannot resynchronize inside an array.
		d.done = true
		return nil, &format.DecodeError{Kind: format.JSON, Offset: d.arr.InputOffset(), Err: err}
	}
	return v, nil
}

// yamlDecoder yields one document per '---' separated section. A syntax
// error ends the source: the parser cannot resume past it.
type yamlDecoder struct {
	dec  *yaml.Decoder
	line int
	done bool
}

func (d *yamlDecoder) Line() int { return d.line }

func (d *yamlDecoder) Next() (value.Value, error) {
	if d.done {
		return nil, io.EOF
	}
	var node yaml.Node
	if err := d.dec.Decode(&node); err != nil {
		d.done = true
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		de := format.YAMLDecodeError(err)
		d.line = de.Line
		return nil, de
	}
	d.line = node.Line
	if len(node.Content) > 0 {
		d.line = node.Content[0].Line
	}
	return format.FromYAMLNode(&node)
}

// lineDecoder yields each line of text as a String, without its line ending.
type lineDecoder struct {
	br   *bufio.Reader
	line int
	done bool
}

func (d *lineDecoder) Line() int { return d.line }

func (d *lineDecoder) Next() (value.Value, error) {
	if d.done {
		return nil, io.EOF
	}
	s, err := d.br.ReadString('\n')
	if err != nil {
		d.done = true
		if !errors.Is(err, io.EOF) {
			return nil, err
		}
		if s == "" {
			return nil, io.EOF
		}
	}
	d.line++
	s = strings.TrimSuffix(strings.TrimSuffix(s, "\n"), "\r")
	return value.String(s), nil
}

// wholeDecoder decodes the entire source on first use. An Array yields its
// elements; any other value is a single record.
type wholeDecoder struct {
	codec   format.Codec
	r       io.Reader
	pending value.Array
	loaded  bool
}

func (d *wholeDecoder) Next() (value.Value, error) {
	if !d.loaded {
		d.loaded = true
		data, err := io.ReadAll(d.r)
		if err != nil {
			return nil, err
		}
		v, err := d.codec.Decode(data)
		if err != nil {
			return nil, err
		}
		if arr, ok := v.(value.Array); ok {
			d.pending = arr
		} else {
			d.pending = value.Array{v}
		}
	}
	if len(d.pending) == 0 {
		return nil, io.EOF
	}
	v := d.pending[0]
	d.pending = d.pending[1:]
	return v, nil
}
