package format

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/multiio/internal/value"
)

// corpus holds values every structured format must round-trip.
func corpus() map[string]value.Value {
	return map[string]value.Value{
		"nested_object": value.NewObject(
			value.P("user", value.NewObject(
				value.P("name", value.String("Ada")),
				value.P("tags", value.Array{value.String("math"), value.String("engines")}),
			)),
			value.P("version", value.Int(3)),
		),
		"array_of_objects": value.Array{
			value.NewObject(value.P("id", value.Int(1))),
			value.NewObject(value.P("id", value.Int(2))),
		},
		"scalars": value.NewObject(
			value.P("yes", value.Bool(true)),
			value.P("no", value.Bool(false)),
			value.P("int", value.Int(-42)),
			value.P("big", value.Int(9007199254740993)),
			value.P("float", value.Float(3.25)),
			value.P("whole_float", value.Float(2)),
		),
		"special_strings": value.NewObject(
			value.P("markup", value.String(`a<b>&c "q" 'x'`)),
			value.P("multiline", value.String("line1\nline2")),
			value.P("unicode", value.String("héllo wörld ✓")),
			value.P("numeric_text", value.String("42")),
			value.P("bool_text", value.String("true")),
			value.P("empty", value.String("")),
		),
		"nulls_and_empties": value.NewObject(
			value.P("nothing", value.Null{}),
			value.P("list", value.Array{}),
			value.P("map", value.NewObject()),
			value.P("mixed", value.Array{value.Null{}, value.Int(1), value.String("two")}),
		),
	}
}

func roundTrip(t *testing.T, kind Kind, v value.Value) value.Value {
	t.Helper()
	codec, err := NewBuiltin(kind)
	require.NoError(t, err)

	data, err := codec.Encode(v)
	require.NoError(t, err)
	got, err := codec.Decode(data)
	require.NoError(t, err, "encoded:\n%s", data)
	return got
}

func TestRoundTripFullModel(t *testing.T) {
	for _, kind := range []Kind{JSON, YAML, XML} {
		for name, v := range corpus() {
			t.Run(kind.String()+"/"+name, func(t *testing.T) {
				got := roundTrip(t, kind, v)
				assert.True(t, value.Equal(v, got), "want %s\ngot  %s", mustJSON(v), mustJSON(got))
			})
		}
	}
}

func TestRoundTripTOML(t *testing.T) {
	// TOML has no null.
	v := value.NewObject(
		value.P("name", value.String("svc")),
		value.P("ports", value.Array{value.Int(80), value.Int(443)}),
		value.P("ratio", value.Float(0.5)),
		value.P("server", value.NewObject(
			value.P("host", value.String("localhost")),
			value.P("tls", value.Bool(true)),
		)),
		value.P("text", value.String("42")),
	)
	got := roundTrip(t, TOML, v)
	assert.True(t, value.Equal(v, got), "got %s", mustJSON(got))
}

func TestTOMLDecodeKeepsDocumentOrder(t *testing.T) {
	doc := `zeta = 1
alpha = { y = 1, b = 2 }
mid.q = true
mid.a = false

[server]
port = 80
host = "h"

[[jobs]]
name = "x"
at = 1
`
	codec, _ := NewBuiltin(TOML)
	v, err := codec.Decode([]byte(doc))
	require.NoError(t, err)

	obj := v.(*value.Object)
	assert.Equal(t, []string{"zeta", "alpha", "mid", "server", "jobs"}, obj.Keys())

	keysOf := func(v value.Value, _ bool) []string { return v.(*value.Object).Keys() }
	assert.Equal(t, []string{"y", "b"}, keysOf(obj.Get("alpha")))
	assert.Equal(t, []string{"q", "a"}, keysOf(obj.Get("mid")))
	assert.Equal(t, []string{"port", "host"}, keysOf(obj.Get("server")))

	jobs, _ := obj.Get("jobs")
	assert.Equal(t, []string{"name", "at"}, jobs.(value.Array)[0].(*value.Object).Keys())
}

func TestTOMLRejectsNull(t *testing.T) {
	codec, _ := NewBuiltin(TOML)
	_, err := codec.Encode(value.NewObject(value.P("a", value.NewObject(value.P("b", value.Null{})))))

	var ee *EncodeError
	require.ErrorAs(t, err, &ee)
	assert.ErrorIs(t, err, ErrUnrepresentable)
	assert.Equal(t, "a.b", ee.Path)
}

func TestTOMLRejectsNonTable(t *testing.T) {
	codec, _ := NewBuiltin(TOML)
	_, err := codec.Encode(value.Array{value.Int(1)})
	assert.ErrorIs(t, err, ErrUnrepresentable)
}

func TestTOMLDecodeErrorPosition(t *testing.T) {
	codec, _ := NewBuiltin(TOML)
	_, err := codec.Decode([]byte("a = 1\nb = = 2\n"))

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 2, de.Line)
}

func TestTOMLDatesDecodeAsText(t *testing.T) {
	codec, _ := NewBuiltin(TOML)
	v, err := codec.Decode([]byte("when = 1979-05-27T07:32:00Z\nday = 1979-05-27\n"))
	require.NoError(t, err)

	obj := v.(*value.Object)
	when, _ := obj.Get("when")
	day, _ := obj.Get("day")
	assert.Equal(t, value.String("1979-05-27T07:32:00Z"), when)
	assert.Equal(t, value.String("1979-05-27"), day)
}

func TestJSONDecodeErrorLine(t *testing.T) {
	codec, _ := NewBuiltin(JSON)
	_, err := codec.Decode([]byte("{\n  \"a\": 1,\n  \"b\": ]\n}"))

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, JSON, de.Kind)
	assert.Equal(t, 3, de.Line)
}

func TestYAMLMultiDocument(t *testing.T) {
	codec, _ := NewBuiltin(YAML)
	v, err := codec.Decode([]byte("a: 1\n---\nb: 2\n"))
	require.NoError(t, err)

	want := value.Array{
		value.NewObject(value.P("a", value.Int(1))),
		value.NewObject(value.P("b", value.Int(2))),
	}
	assert.True(t, value.Equal(want, v))
}

func TestYAMLPreservesOrderAndAliases(t *testing.T) {
	codec, _ := NewBuiltin(YAML)
	v, err := codec.Decode([]byte("z: &anchor 1\na: *anchor\nm: [x, y]\n"))
	require.NoError(t, err)

	obj := v.(*value.Object)
	assert.Equal(t, []string{"z", "a", "m"}, obj.Keys())
	a, _ := obj.Get("a")
	assert.Equal(t, value.Int(1), a)
}

func TestYAMLRecursiveAlias(t *testing.T) {
	codec, _ := NewBuiltin(YAML)
	_, err := codec.Decode([]byte("a: &x [*x]\n"))

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Contains(t, err.Error(), "recursive alias")
}

func TestYAMLAliasExpansionIsBounded(t *testing.T) {
	doc := `a: &a ["x","x","x","x","x","x","x","x","x","x"]
b: &b [*a,*a,*a,*a,*a,*a,*a,*a,*a,*a]
c: &c [*b,*b,*b,*b,*b,*b,*b,*b,*b,*b]
d: &d [*c,*c,*c,*c,*c,*c,*c,*c,*c,*c]
e: &e [*d,*d,*d,*d,*d,*d,*d,*d,*d,*d]
f: &f [*e,*e,*e,*e,*e,*e,*e,*e,*e,*e]
g: &g [*f,*f,*f,*f,*f,*f,*f,*f,*f,*f]
h: &h [*g,*g,*g,*g,*g,*g,*g,*g,*g,*g]
i: &i [*h,*h,*h,*h,*h,*h,*h,*h,*h,*h]
`
	codec, _ := NewBuiltin(YAML)
	_, err := codec.Decode([]byte(doc))

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Contains(t, err.Error(), "excessive aliasing")
}

func TestYAMLDecodeErrorLine(t *testing.T) {
	codec, _ := NewBuiltin(YAML)
	_, err := codec.Decode([]byte("a: 1\nb: [unclosed\n"))

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Positive(t, de.Line)
}

func TestCSVDecodeTyping(t *testing.T) {
	codec, _ := NewBuiltin(CSV)
	v, err := codec.Decode([]byte("a,b,c,d,e\n42,3.14,true,,42a\n"))
	require.NoError(t, err)

	want := value.Array{value.NewObject(
		value.P("a", value.Int(42)),
		value.P("b", value.Float(3.14)),
		value.P("c", value.Bool(true)),
		value.P("d", value.String("")),
		value.P("e", value.String("42a")),
	)}
	assert.True(t, value.Equal(want, v), "got %s", mustJSON(v))
}

func TestCSVRowArity(t *testing.T) {
	codec, _ := NewBuiltin(CSV)
	_, err := codec.Decode([]byte("a,b\n1,2\n3\n"))

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.ErrorIs(t, err, ErrRowArity)
	assert.Equal(t, 2, de.Row)
	assert.Equal(t, 3, de.Line)
}

func TestCSVDecoderSkipsBadRows(t *testing.T) {
	dec := NewCSVDecoder(strings.NewReader("a,b\n1,2\n3\n4,5\n"))

	var rows []value.Value
	var errs []error
	for {
		row, err := dec.Next()
		if err != nil {
			var de *DecodeError
			if !errors.As(err, &de) {
				break
			}
			errs = append(errs, err)
			continue
		}
		rows = append(rows, row)
	}
	assert.Len(t, rows, 2)
	assert.Len(t, errs, 1)
	assert.Equal(t, []string{"a", "b"}, dec.Header())
}

func TestCSVDuplicateHeader(t *testing.T) {
	codec, _ := NewBuiltin(CSV)
	_, err := codec.Decode([]byte("a,a\n1,2\n"))

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Contains(t, err.Error(), "duplicate header")
}

func TestCSVEncodeRejectsNested(t *testing.T) {
	codec, _ := NewBuiltin(CSV)
	_, err := codec.Encode(value.Array{
		value.NewObject(value.P("name", value.String("a")), value.P("address", value.NewObject())),
	})

	var ee *EncodeError
	require.ErrorAs(t, err, &ee)
	assert.ErrorIs(t, err, ErrUnrepresentable)
	assert.Equal(t, "[0].address", ee.Path)
}

func TestCSVEncodeRejectsMismatchedRows(t *testing.T) {
	codec, _ := NewBuiltin(CSV)
	_, err := codec.Encode(value.Array{
		value.NewObject(value.P("a", value.Int(1))),
		value.NewObject(value.P("b", value.Int(2))),
	})
	assert.ErrorIs(t, err, ErrUnrepresentable)
}

func TestCSVEncodeSingleObjectAndNull(t *testing.T) {
	codec, _ := NewBuiltin(CSV)
	out, err := codec.Encode(value.NewObject(value.P("a", value.Null{}), value.P("b", value.String("x,y"))))
	require.NoError(t, err)
	assert.Equal(t, "a,b\n,\"x,y\"\n", string(out))
}

func TestCSVSingleColumnEmptyCells(t *testing.T) {
	codec, _ := NewBuiltin(CSV)
	out, err := codec.Encode(value.Array{
		value.NewObject(value.P("name", value.String(""))),
		value.NewObject(value.P("name", value.String("x"))),
		value.NewObject(value.P("name", value.Null{})),
	})
	require.NoError(t, err)
	assert.Equal(t, "name\n\"\"\nx\n\"\"\n", string(out))

	v, err := codec.Decode(out)
	require.NoError(t, err)
	want := value.Array{
		value.NewObject(value.P("name", value.String(""))),
		value.NewObject(value.P("name", value.String("x"))),
		value.NewObject(value.P("name", value.String(""))),
	}
	assert.True(t, value.Equal(want, v), "got %s", mustJSON(v))
}

func TestINIRoundTrip(t *testing.T) {
	v := value.NewObject(
		value.P("name", value.String("app")),
		value.P("debug", value.Bool(true)),
		value.P("server", value.NewObject(
			value.P("host", value.String("localhost")),
			value.P("port", value.Int(8080)),
		)),
		value.P("paths", value.NewObject(
			value.P("home", value.String("https://example.com/#top")),
		)),
	)
	got := roundTrip(t, INI, v)
	assert.True(t, value.Equal(v, got), "got %s", mustJSON(got))
}

func TestINIRejectsDeepNesting(t *testing.T) {
	codec, _ := NewBuiltin(INI)
	_, err := codec.Encode(value.NewObject(
		value.P("s", value.NewObject(value.P("deep", value.NewObject()))),
	))

	var ee *EncodeError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "s.deep", ee.Path)

	_, err = codec.Encode(value.NewObject(value.P("list", value.Array{value.Int(1)})))
	assert.ErrorIs(t, err, ErrUnrepresentable)
}

func TestXMLForeignDocument(t *testing.T) {
	codec, _ := NewBuiltin(XML)
	v, err := codec.Decode([]byte(`<?xml version="1.0"?>
<catalog id="7">
  <book lang="en">Dune</book>
  <book>Emma</book>
  <input type="text"/>
</catalog>`))
	require.NoError(t, err)

	want := value.NewObject(
		value.P("@id", value.Int(7)),
		value.P("book", value.Array{
			value.NewObject(value.P("@lang", value.String("en")), value.P("#text", value.String("Dune"))),
			value.String("Emma"),
		}),
		value.P("input", value.NewObject(value.P("@type", value.String("text")))),
	)
	assert.True(t, value.Equal(want, v), "got %s", mustJSON(v))
}

func TestXMLRejectsInvalidNames(t *testing.T) {
	codec, _ := NewBuiltin(XML)
	_, err := codec.Encode(value.NewObject(value.P("has space", value.Int(1))))
	assert.ErrorIs(t, err, ErrUnrepresentable)
}

func TestXMLDecodeErrorLine(t *testing.T) {
	codec, _ := NewBuiltin(XML)
	_, err := codec.Decode([]byte("<root>\n  <a>1</b>\n</root>"))

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 2, de.Line)
}

func TestPlaintext(t *testing.T) {
	codec, _ := NewBuiltin(Plaintext)

	v, err := codec.Decode([]byte("just words\n"))
	require.NoError(t, err)
	assert.Equal(t, value.String("just words\n"), v)

	v, err = codec.Decode([]byte(`{"a": 1}`))
	require.NoError(t, err)
	assert.True(t, value.Equal(value.NewObject(value.P("a", value.Int(1))), v))

	out, err := codec.Encode(value.String("hello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out))

	// Text that would parse as JSON is quoted so it reads back as a string.
	got := roundTrip(t, Plaintext, value.String("42"))
	assert.Equal(t, value.String("42"), got)
}

func TestMarkdown(t *testing.T) {
	codec := Markdown()

	v, err := codec.Decode([]byte("# Data\n\nSome prose.\n\n```json\n{\"a\": [1, 2]}\n```\n"))
	require.NoError(t, err)
	assert.True(t, value.Equal(value.NewObject(value.P("a", value.Array{value.Int(1), value.Int(2)})), v))

	v, err = codec.Decode([]byte("```yaml\nname: x\n```\n"))
	require.NoError(t, err)
	assert.True(t, value.Equal(value.NewObject(value.P("name", value.String("x"))), v))

	v, err = codec.Decode([]byte("no fences here"))
	require.NoError(t, err)
	assert.Equal(t, value.String("no fences here"), v)

	out, err := codec.Encode(value.NewObject(value.P("a", value.Int(1))))
	require.NoError(t, err)
	assert.Equal(t, "```json\n{\n  \"a\": 1\n}\n```\n", string(out))
}

func mustJSON(v value.Value) string {
	data, err := value.MarshalJSON(v)
	if err != nil {
		return err.Error()
	}
	return string(data)
}
