package value

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"time"
)

// FromGo converts a plain Go value to a Value.
//
// Maps have no inherent order, so map keys are sorted. Types outside the
// directly supported set go through encoding/json (struct fields keep their
// declaration order).
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint:
		if uint64(val) > math.MaxInt64 {
			return Float(val), nil
		}
		return Int(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return Float(val), nil
		}
		return Int(val), nil
	case float32:
		return Float(val), nil
	case float64:
		return Float(val), nil
	case json.Number:
		return parseNumber(string(val))
	case time.Time:
		return String(val.Format(time.RFC3339Nano)), nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			e, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = e
		}
		return arr, nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		obj := NewObject()
		for _, k := range keys {
			e, err := FromGo(val[k])
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj.Set(k, e)
		}
		return obj, nil
	default:
		return Encode(v)
	}
}

// ToGo converts a Value to plain Go values: nil, bool, int64, float64,
// string, []any and map[string]any. Object order is lost.
func ToGo(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case Bool:
		return bool(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case String:
		return string(val)
	case Array:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = ToGo(e)
		}
		return out
	case *Object:
		out := make(map[string]any, val.Len())
		for k, e := range val.All() {
			out[k] = ToGo(e)
		}
		return out
	default:
		return nil
	}
}

// Encode converts any JSON-marshalable Go value (typically a caller-defined
// record struct) into a Value.
func Encode(v any) (Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return ParseJSON(data)
}

// Decode converts v into the caller's record type T by structural field
// matching. Unknown and missing fields follow encoding/json rules.
func Decode[T any](v Value) (T, error) {
	var out T
	data, err := MarshalJSON(v)
	if err != nil {
		return out, fmt.Errorf("decode into %T: %w", out, err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode into %T: %w", out, err)
	}
	return out, nil
}
