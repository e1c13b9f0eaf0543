package format

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pelletier/go-toml/v2/unstable"

	"github.com/roach88/multiio/internal/value"
)

// tomlCodec decodes values through go-toml's map decoding and takes key
// order from a second pass of its document parser, so tables keep their
// document order. Dates and times decode to their RFC 3339 text. TOML has
// no null, so Null anywhere fails Encode.
type tomlCodec struct{}

func (tomlCodec) Kind() Kind           { return TOML }
func (tomlCodec) Extensions() []string { return []string{"toml"} }

func (tomlCodec) Decode(data []byte) (value.Value, error) {
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		de := &DecodeError{Kind: TOML, Err: err}
		var te *toml.DecodeError
		if errors.As(err, &te) {
			de.Line, de.Column = te.Position()
		}
		return nil, de
	}
	return fromTOML(doc, "", tomlKeyOrder(data)), nil
}

// tomlKeyOrder ranks every key path by where it first appears in data.
// Array elements share their array's path.
func tomlKeyOrder(data []byte) map[string]int {
	order := make(map[string]int)
	see := func(path string) {
		if _, ok := order[path]; !ok {
			order[path] = len(order)
		}
	}

	var p unstable.Parser
	p.Reset(data)
	table := ""
	for p.NextExpression() {
		expr := p.Expression()
		switch expr.Kind {
		case unstable.Table, unstable.ArrayTable:
			table = tomlKeyPath("", expr.Key(), see)
		case unstable.KeyValue:
			path := tomlKeyPath(table, expr.Key(), see)
			tomlValueOrder(path, expr.Value(), see)
		}
	}
	return order
}

func tomlKeyPath(base string, key unstable.Iterator, see func(string)) string {
	path := base
	for key.Next() {
		path = joinKey(path, string(key.Node().Data))
		see(path)
	}
	return path
}

func tomlValueOrder(path string, n *unstable.Node, see func(string)) {
	switch n.Kind {
	case unstable.InlineTable:
		children := n.Children()
		for children.Next() {
			kv := children.Node()
			if kv.Kind != unstable.KeyValue {
				continue
			}
			tomlValueOrder(tomlKeyPath(path, kv.Key(), see), kv.Value(), see)
		}
	case unstable.Array:
		children := n.Children()
		for children.Next() {
			tomlValueOrder(path, children.Node(), see)
		}
	}
}

func joinKey(path, key string) string {
	if path == "" {
		return key
	}
	return path + "\x00" + key
}

func fromTOML(v any, path string, order map[string]int) value.Value {
	switch t := v.(type) {
	case nil:
		return value.Null{}
	case bool:
		return value.Bool(t)
	case int64:
		return value.Int(t)
	case float64:
		return value.Float(t)
	case string:
		return value.String(t)
	case time.Time:
		return value.String(t.Format(time.RFC3339Nano))
	case toml.LocalDate:
		return value.String(t.String())
	case toml.LocalTime:
		return value.String(t.String())
	case toml.LocalDateTime:
		return value.String(t.String())
	case []any:
		arr := make(value.Array, 0, len(t))
		for _, elem := range t {
			arr = append(arr, fromTOML(elem, path, order))
		}
		return arr
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		slices.SortFunc(keys, func(a, b string) int {
			ra, okA := order[joinKey(path, a)]
			rb, okB := order[joinKey(path, b)]
			switch {
			case okA && okB:
				return ra - rb
			case okA:
				return -1
			case okB:
				return 1
			}
			return strings.Compare(a, b)
		})
		obj := value.NewObject()
		for _, k := range keys {
			obj.Set(k, fromTOML(t[k], joinKey(path, k), order))
		}
		return obj
	default:
		return value.String(fmt.Sprint(t))
	}
}

func (tomlCodec) Encode(v value.Value) ([]byte, error) {
	if _, ok := v.(*value.Object); !ok {
		return nil, unrepresentable(TOML, "", "top level must be a table, got %s", value.Kind(v))
	}
	doc, err := toTOML(v, "")
	if err != nil {
		return nil, err
	}
	out, err := toml.Marshal(doc)
	if err != nil {
		return nil, &EncodeError{Kind: TOML, Err: err}
	}
	return out, nil
}

func toTOML(v value.Value, path string) (any, error) {
	switch t := v.(type) {
	case nil, value.Null:
		return nil, unrepresentable(TOML, path, "null has no TOML representation")
	case value.Bool:
		return bool(t), nil
	case value.Int:
		return int64(t), nil
	case value.Float:
		return float64(t), nil
	case value.String:
		return string(t), nil
	case value.Array:
		out := make([]any, 0, len(t))
		for i, elem := range t {
			e, err := toTOML(elem, joinPath(path, i))
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		}
		return out, nil
	case *value.Object:
		out := make(map[string]any, t.Len())
		for k, elem := range t.All() {
			e, err := toTOML(elem, joinPath(path, k))
			if err != nil {
				return nil, err
			}
			out[k] = e
		}
		return out, nil
	default:
		return nil, &EncodeError{Kind: TOML, Path: path, Err: fmt.Errorf("unknown value type %T", v)}
	}
}
