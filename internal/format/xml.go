package format

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/roach88/multiio/internal/value"
)

const (
	xmlRootName = "root"
	xmlItemName = "item"
	xmlTextKey  = "#text"
	xmlAttrMark = "@"
)

// xmlCodec maps values onto a <root> element. Arrays are tagged
// type="array" with <item> children, empty objects type="object", nulls
// nil="true", and strings that would read back as another type
// type="string". Untagged elements from foreign documents decode by shape:
// attributes become "@name" keys, repeated children collect into arrays,
// and mixed text lands under "#text".
type xmlCodec struct{}

func (xmlCodec) Kind() Kind           { return XML }
func (xmlCodec) Extensions() []string { return []string{"xml"} }

func (xmlCodec) Decode(data []byte) (value.Value, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil, &DecodeError{Kind: XML, Err: errors.New("no root element")}
		}
		if err != nil {
			return nil, xmlDecodeError(dec, err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			return decodeXMLElement(dec, start)
		}
	}
}

var xmlTypeTags = map[string]bool{"array": true, "object": true, "string": true}

func decodeXMLElement(dec *xml.Decoder, start xml.StartElement) (value.Value, error) {
	var typ string
	var isNil bool
	var attrs []xml.Attr
	for _, a := range start.Attr {
		switch {
		case a.Name.Space == "" && a.Name.Local == "type" && xmlTypeTags[a.Value]:
			typ = a.Value
		case a.Name.Space == "" && a.Name.Local == "nil" && a.Value == "true":
			isNil = true
		default:
			attrs = append(attrs, a)
		}
	}

	type child struct {
		name string
		val  value.Value
	}
	var children []child
	var text strings.Builder

loop:
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return nil, xmlDecodeError(dec, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			v, err := decodeXMLElement(dec, t)
			if err != nil {
				return nil, err
			}
			children = append(children, child{name: t.Name.Local, val: v})
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			break loop
		}
	}

	switch {
	case isNil:
		return value.Null{}, nil
	case typ == "array":
		arr := make(value.Array, 0, len(children))
		for _, c := range children {
			arr = append(arr, c.val)
		}
		return arr, nil
	case typ == "string":
		return value.String(text.String()), nil
	case len(children) == 0 && len(attrs) == 0 && typ != "object":
		return ClassifyScalar(text.String()), nil
	}

	obj := value.NewObject()
	for _, a := range attrs {
		obj.Set(xmlAttrMark+a.Name.Local, ClassifyScalar(a.Value))
	}
	collected := make(map[string]bool)
	for _, c := range children {
		prev, exists := obj.Get(c.name)
		switch {
		case !exists:
			obj.Set(c.name, c.val)
		case collected[c.name]:
			obj.Set(c.name, append(prev.(value.Array), c.val))
		default:
			obj.Set(c.name, value.Array{prev, c.val})
			collected[c.name] = true
		}
	}
	if s := strings.TrimSpace(text.String()); s != "" {
		obj.Set(xmlTextKey, ClassifyScalar(s))
	}
	return obj, nil
}

func xmlDecodeError(dec *xml.Decoder, err error) *DecodeError {
	de := &DecodeError{Kind: XML, Err: err, Offset: dec.InputOffset()}
	var syn *xml.SyntaxError
	if errors.As(err, &syn) {
		de.Line = syn.Line
	} else {
		de.Line, de.Column = dec.InputPos()
	}
	return de
}

func (xmlCodec) Encode(v value.Value) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := encodeXMLElement(enc, xmlRootName, v, ""); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, &EncodeError{Kind: XML, Err: err}
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

var xmlNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9._-]*$`)

func validXMLName(name string) bool {
	return xmlNamePattern.MatchString(name) && !strings.HasPrefix(strings.ToLower(name), "xml")
}

func encodeXMLElement(enc *xml.Encoder, name string, v value.Value, path string) error {
	start := xml.StartElement{Name: xml.Name{Local: name}}
	var text string
	var children func() error

	switch t := v.(type) {
	case nil, value.Null:
		start.Attr = append(start.Attr, xmlAttr("nil", "true"))
	case value.String:
		text = string(t)
		if reclassifies(text) {
			start.Attr = append(start.Attr, xmlAttr("type", "string"))
		}
	case value.Bool, value.Int, value.Float:
		s, ok := ScalarText(t)
		if !ok {
			return unrepresentable(XML, path, "non-finite number %v", t)
		}
		text = s
	case value.Array:
		start.Attr = append(start.Attr, xmlAttr("type", "array"))
		children = func() error {
			for i, elem := range t {
				if err := encodeXMLElement(enc, xmlItemName, elem, joinPath(path, i)); err != nil {
					return err
				}
			}
			return nil
		}
	case *value.Object:
		if t.Len() == 0 {
			start.Attr = append(start.Attr, xmlAttr("type", "object"))
		}
		for k, elem := range t.All() {
			switch {
			case strings.HasPrefix(k, xmlAttrMark):
				attr := strings.TrimPrefix(k, xmlAttrMark)
				s, ok := ScalarText(elem)
				reserved := (attr == "type" && xmlTypeTags[s]) || (attr == "nil" && s == "true")
				if !validXMLName(attr) || !ok || reserved {
					return unrepresentable(XML, joinPath(path, k), "cannot encode key as attribute")
				}
				start.Attr = append(start.Attr, xmlAttr(attr, s))
			case k == xmlTextKey:
				s, ok := ScalarText(elem)
				if !ok {
					return unrepresentable(XML, joinPath(path, k), "text content must be a scalar")
				}
				text = s
			case !validXMLName(k):
				return unrepresentable(XML, joinPath(path, k), "%q is not a valid element name", k)
			}
		}
		children = func() error {
			for k, elem := range t.All() {
				if strings.HasPrefix(k, xmlAttrMark) || k == xmlTextKey {
					continue
				}
				if err := encodeXMLElement(enc, k, elem, joinPath(path, k)); err != nil {
					return err
				}
			}
			return nil
		}
	default:
		return &EncodeError{Kind: XML, Path: path, Err: fmt.Errorf("unknown value type %T", v)}
	}

	if err := enc.EncodeToken(start); err != nil {
		return &EncodeError{Kind: XML, Path: path, Err: err}
	}
	if text != "" {
		if err := enc.EncodeToken(xml.CharData(text)); err != nil {
			return &EncodeError{Kind: XML, Path: path, Err: err}
		}
	}
	if children != nil {
		if err := children(); err != nil {
			return err
		}
	}
	if err := enc.EncodeToken(start.End()); err != nil {
		return &EncodeError{Kind: XML, Path: path, Err: err}
	}
	return nil
}

func xmlAttr(name, val string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: val}
}
