package value

import (
	"encoding/json"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONPreservesOrder(t *testing.T) {
	v, err := ParseJSON([]byte(`{"z":1,"a":{"y":true,"b":null},"m":[1,2.5,"s"]}`))
	require.NoError(t, err)

	obj, ok := v.(*Object)
	require.True(t, ok)
	assert.Equal(t, []string{"z", "a", "m"}, obj.Keys())

	inner, _ := obj.Get("a")
	assert.Equal(t, []string{"y", "b"}, inner.(*Object).Keys())

	m, _ := obj.Get("m")
	assert.Equal(t, Array{Int(1), Float(2.5), String("s")}, m)
}

func TestParseJSONNumbers(t *testing.T) {
	tests := []struct {
		in   string
		want Value
	}{
		{"42", Int(42)},
		{"-7", Int(-7)},
		{"3.14", Float(3.14)},
		{"1e3", Float(1000)},
		{"9223372036854775807", Int(math.MaxInt64)},
		{"92233720368547758070", Float(92233720368547758070)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, err := ParseJSON([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestParseJSONRejectsTrailingData(t *testing.T) {
	_, err := ParseJSON([]byte(`{} {}`))
	require.Error(t, err)

	_, err = ParseJSON([]byte(`{"a":1} x`))
	require.Error(t, err)
}

func TestParseJSONMalformed(t *testing.T) {
	_, err := ParseJSON([]byte(`{"a":`))
	require.Error(t, err)
}

func TestParseJSONTruncatedIsNotEOF(t *testing.T) {
	for _, input := range []string{`{"id":`, `[1, 2`, `{"a": [true`, ``} {
		_, err := ParseJSON([]byte(input))
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF, "input %q", input)
		assert.NotErrorIs(t, err, io.EOF, "input %q", input)
	}
}

func TestMarshalJSONCompact(t *testing.T) {
	v := NewObject(
		P("name", String("a<b>&c")),
		P("n", Int(1)),
		P("f", Float(2)),
		P("list", Array{Bool(true), Null{}}),
		P("empty", NewObject()),
	)

	data, err := MarshalJSON(v)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"a<b>&c","n":1,"f":2.0,"list":[true,null],"empty":{}}`, string(data))
}

func TestMarshalIndentJSON(t *testing.T) {
	v := NewObject(P("a", Array{Int(1), Int(2)}), P("b", Array{}))

	data, err := MarshalIndentJSON(v, "  ")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": [\n    1,\n    2\n  ],\n  \"b\": []\n}", string(data))
}

func TestMarshalJSONRejectsNaN(t *testing.T) {
	_, err := MarshalJSON(Array{Float(math.NaN())})
	require.ErrorIs(t, err, ErrNonFinite)
}

func TestObjectJSONMarshalerInterop(t *testing.T) {
	wrapper := map[string]any{"obj": NewObject(P("b", Int(1)), P("a", Int(2)))}

	data, err := json.Marshal(wrapper)
	require.NoError(t, err)
	assert.Equal(t, `{"obj":{"b":1,"a":2}}`, string(data))

	var obj Object
	require.NoError(t, json.Unmarshal([]byte(`{"y":1,"x":2}`), &obj))
	assert.Equal(t, []string{"y", "x"}, obj.Keys())
}

func TestJSONRoundTrip(t *testing.T) {
	corpus := []Value{
		NewObject(
			P("nested", NewObject(P("deep", Array{Int(1), NewObject(P("k", String("v")))}))),
			P("nil", Null{}),
		),
		Array{Bool(true), Bool(false), Int(-3), Float(0.5), String("tab\tquote\"newline\n")},
		String("unicode ✓ ü"),
	}

	for _, v := range corpus {
		data, err := MarshalJSON(v)
		require.NoError(t, err)
		back, err := ParseJSON(data)
		require.NoError(t, err)
		assert.True(t, Equal(v, back), "round trip mismatch: %s", data)
	}
}
