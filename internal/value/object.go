package value

import (
	"iter"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Object is an insertion-ordered mapping of string keys to values.
//
// Setting an existing key replaces its value in place; the key keeps its
// original position. The zero Object is empty and ready to use.
type Object struct {
	m *orderedmap.OrderedMap[string, Value]
}

// Pair represents a key-value pair for ordered Object construction.
type Pair struct {
	Key   string
	Value Value
}

// P is a shorthand for Pair for ergonomic construction.
// Example: NewObject(P("name", String("cart")), P("count", Int(5)))
func P(key string, v Value) Pair {
	return Pair{Key: key, Value: v}
}

// NewObject creates an Object from pairs, preserving their order.
func NewObject(pairs ...Pair) *Object {
	obj := &Object{m: orderedmap.New[string, Value](len(pairs))}
	for _, p := range pairs {
		obj.Set(p.Key, p.Value)
	}
	return obj
}

func (o *Object) init() {
	if o.m == nil {
		o.m = orderedmap.New[string, Value]()
	}
}

// Set stores v under key. A nil v is stored as Null.
func (o *Object) Set(key string, v Value) {
	o.init()
	if v == nil {
		v = Null{}
	}
	o.m.Set(key, v)
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil || o.m == nil {
		return nil, false
	}
	return o.m.Get(key)
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Delete removes key, reporting whether it was present.
func (o *Object) Delete(key string) bool {
	if o == nil || o.m == nil {
		return false
	}
	_, ok := o.m.Delete(key)
	return ok
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil || o.m == nil {
		return 0
	}
	return o.m.Len()
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	keys := make([]string, 0, o.Len())
	for k := range o.All() {
		keys = append(keys, k)
	}
	return keys
}

// All iterates over key-value pairs in insertion order.
func (o *Object) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if o == nil || o.m == nil {
			return
		}
		for p := o.m.Oldest(); p != nil; p = p.Next() {
			if !yield(p.Key, p.Value) {
				return
			}
		}
	}
}

// Clone returns a deep copy of o.
func (o *Object) Clone() *Object {
	out := NewObject()
	for k, v := range o.All() {
		out.Set(k, Clone(v))
	}
	return out
}

// Clone returns a deep copy of v. Scalars are returned as-is.
func Clone(v Value) Value {
	switch val := v.(type) {
	case Array:
		out := make(Array, len(val))
		for i, e := range val {
			out[i] = Clone(e)
		}
		return out
	case *Object:
		return val.Clone()
	default:
		return v
	}
}
