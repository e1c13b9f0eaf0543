package format

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/roach88/multiio/internal/value"
)

// csvCodec reads a header row followed by data rows. Each data row becomes
// an Object keyed by the header; cells are typed with ClassifyScalar.
type csvCodec struct{}

func (csvCodec) Kind() Kind           { return CSV }
func (csvCodec) Extensions() []string { return []string{"csv"} }

// Decode returns an Array of row Objects. The first malformed row fails the
// whole document; use a CSVDecoder to skip past bad rows.
func (csvCodec) Decode(data []byte) (value.Value, error) {
	dec := NewCSVDecoder(bytes.NewReader(data))
	rows := value.Array{}
	for {
		row, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}

// Encode accepts an Array of flat Objects or a single flat Object. The first
// object's key order becomes the header; every other row must carry the same
// key set. Null cells are written empty.
func (csvCodec) Encode(v value.Value) ([]byte, error) {
	var rows value.Array
	switch t := v.(type) {
	case value.Array:
		rows = t
	case *value.Object:
		rows = value.Array{t}
	default:
		return nil, unrepresentable(CSV, "", "top level must be an array of objects, got %s", value.Kind(v))
	}

	var buf bytes.Buffer
	if len(rows) == 0 {
		return buf.Bytes(), nil
	}

	w := csv.NewWriter(&buf)
	var header []string
	for i, r := range rows {
		path := joinPath("", i)
		obj, ok := r.(*value.Object)
		if !ok {
			return nil, unrepresentable(CSV, path, "row must be an object, got %s", value.Kind(r))
		}
		if header == nil {
			header = obj.Keys()
			if err := writeCSVRecord(w, &buf, header); err != nil {
				return nil, &EncodeError{Kind: CSV, Err: err}
			}
		}
		if !sameKeySet(header, obj) {
			return nil, unrepresentable(CSV, path, "row keys %v differ from header %v", obj.Keys(), header)
		}

		record := make([]string, len(header))
		for j, key := range header {
			cell, _ := obj.Get(key)
			text, ok := ScalarText(cell)
			if !ok {
				return nil, unrepresentable(CSV, joinPath(path, key), "cell must be a finite scalar, got %s", value.Kind(cell))
			}
			record[j] = text
		}
		if err := writeCSVRecord(w, &buf, record); err != nil {
			return nil, &EncodeError{Kind: CSV, Path: path, Err: err}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, &EncodeError{Kind: CSV, Err: err}
	}
	return buf.Bytes(), nil
}

// writeCSVRecord writes record through w. A lone empty field is written
// as "" because csv.Reader skips blank lines.
func writeCSVRecord(w *csv.Writer, buf *bytes.Buffer, record []string) error {
	if len(record) != 1 || record[0] != "" {
		return w.Write(record)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	buf.WriteString("\"\"\n")
	return nil
}

func sameKeySet(header []string, obj *value.Object) bool {
	if obj.Len() != len(header) {
		return false
	}
	for _, k := range header {
		if !obj.Has(k) {
			return false
		}
	}
	return true
}

// CSVDecoder yields one typed row Object per call. It implements
// RecordDecoder.
//
// A row whose field count differs from the header, or that fails to parse,
// is returned as a *DecodeError and the decoder moves on to the next row.
// A bad header is terminal: it is reported once and Next then returns io.EOF.
type CSVDecoder struct {
	r      *csv.Reader
	header []string
	row    int
	line   int
	done   bool
}

// NewCSVDecoder creates a decoder reading CSV text from r.
func NewCSVDecoder(r io.Reader) *CSVDecoder {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // arity is checked against the header per row
	return &CSVDecoder{r: cr}
}

// Next returns the next data row, or io.EOF.
func (d *CSVDecoder) Next() (value.Value, error) {
	if d.done {
		return nil, io.EOF
	}
	if d.header == nil {
		if err := d.readHeader(); err != nil {
			d.done = true
			return nil, err
		}
	}

	rec, err := d.r.Read()
	if errors.Is(err, io.EOF) {
		d.done = true
		return nil, io.EOF
	}
	d.row++
	if err != nil {
		de := csvDecodeError(d.row, err)
		d.line = de.Line
		return nil, de
	}

	d.line, _ = d.r.FieldPos(0)
	if len(rec) != len(d.header) {
		return nil, &DecodeError{
			Kind: CSV,
			Row:  d.row,
			Line: d.line,
			Err:  fmt.Errorf("%w: header has %d fields, row has %d", ErrRowArity, len(d.header), len(rec)),
		}
	}

	obj := value.NewObject()
	for i, cell := range rec {
		obj.Set(d.header[i], ClassifyScalar(cell))
	}
	return obj, nil
}

// Line returns the 1-based line on which the last row started.
func (d *CSVDecoder) Line() int {
	return d.line
}

// Header returns the header row once the first Next call has read it.
func (d *CSVDecoder) Header() []string {
	return slices.Clone(d.header)
}

func (d *CSVDecoder) readHeader() error {
	header, err := d.r.Read()
	if errors.Is(err, io.EOF) {
		return io.EOF
	}
	if err != nil {
		return csvDecodeError(0, err)
	}
	seen := make(map[string]bool, len(header))
	for _, h := range header {
		if seen[h] {
			return &DecodeError{Kind: CSV, Line: 1, Err: fmt.Errorf("duplicate header %q", h)}
		}
		seen[h] = true
	}
	d.header = header
	return nil
}

func csvDecodeError(row int, err error) *DecodeError {
	de := &DecodeError{Kind: CSV, Row: row, Err: err}
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		de.Line = pe.Line
		de.Column = pe.Column
	}
	return de
}
