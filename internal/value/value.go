package value

import (
	"fmt"
	"math"
)

// Value is a sealed interface representing the closed set of intermediate types.
// Only Null, Bool, Int, Float, String, Array and *Object implement it.
type Value interface {
	isValue() // Sealed - only these types implement it
}

// Null represents an absent value.
// Using an explicit type ensures every Value satisfies the sealed interface.
type Null struct{}

func (Null) isValue() {}

// Bool represents a boolean value.
type Bool bool

func (Bool) isValue() {}

// Int represents an integral number that fits in 64 bits.
type Int int64

func (Int) isValue() {}

// Float represents a non-integral (or out of int64 range) number.
type Float float64

func (Float) isValue() {}

// String represents a string value.
type String string

func (String) isValue() {}

// Array represents an ordered sequence of values.
type Array []Value

func (Array) isValue() {}

func (*Object) isValue() {}

// NewArray creates an Array from values.
func NewArray(vals ...Value) Array {
	if vals == nil {
		return Array{}
	}
	return Array(vals)
}

// Kind returns a short type name for diagnostics ("null", "bool", "int",
// "float", "string", "array", "object").
func Kind(v Value) string {
	switch v.(type) {
	case nil, Null:
		return "null"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	case Array:
		return "array"
	case *Object:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// IsScalar reports whether v is neither an Array nor an Object.
func IsScalar(v Value) bool {
	switch v.(type) {
	case Array, *Object:
		return false
	default:
		return true
	}
}

// Equal reports whether a and b are semantically equal.
//
// Int and Float compare numerically, so Int(3) equals Float(3.0). Objects
// compare keys, values AND key order. A nil Value is treated as Null.
func Equal(a, b Value) bool {
	if a == nil {
		a = Null{}
	}
	if b == nil {
		b = Null{}
	}

	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Int, Float:
		af, aok := numeric(a)
		bf, bok := numeric(b)
		if !aok || !bok {
			return false
		}
		if ai, ok := a.(Int); ok {
			if bi, ok := b.(Int); ok {
				return ai == bi
			}
		}
		return af == bf
	case Array:
		bv, ok := b.(Array)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case *Object:
		bv, ok := b.(*Object)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		ak, bk := av.Keys(), bv.Keys()
		for i := range ak {
			if ak[i] != bk[i] {
				return false
			}
			x, _ := av.Get(ak[i])
			y, _ := bv.Get(bk[i])
			if !Equal(x, y) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// numeric returns the float64 view of a number value.
func numeric(v Value) (float64, bool) {
	switch n := v.(type) {
	case Int:
		return float64(n), true
	case Float:
		return float64(n), true
	default:
		return 0, false
	}
}

// IsFinite reports whether v contains only finite floats.
// JSON, YAML and TOML output reject NaN and infinities.
func IsFinite(v Value) bool {
	switch n := v.(type) {
	case Float:
		return !math.IsNaN(float64(n)) && !math.IsInf(float64(n), 0)
	case Array:
		for _, e := range n {
			if !IsFinite(e) {
				return false
			}
		}
	case *Object:
		for _, k := range n.Keys() {
			e, _ := n.Get(k)
			if !IsFinite(e) {
				return false
			}
		}
	}
	return true
}
