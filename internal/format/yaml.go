package format

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/roach88/multiio/internal/value"
)

// yamlCodec maps through the yaml.v3 node tree so mapping order survives in
// both directions. A multi-document source decodes to an Array of documents.
type yamlCodec struct{}

func (yamlCodec) Kind() Kind           { return YAML }
func (yamlCodec) Extensions() []string { return []string{"yaml", "yml"} }

func (yamlCodec) Decode(data []byte) (value.Value, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))

	var docs []value.Value
	for {
		var node yaml.Node
		err := dec.Decode(&node)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, YAMLDecodeError(err)
		}
		v, err := FromYAMLNode(&node)
		if err != nil {
			return nil, err
		}
		docs = append(docs, v)
	}

	switch len(docs) {
	case 0:
		return value.Null{}, nil
	case 1:
		return docs[0], nil
	default:
		return value.Array(docs), nil
	}
}

func (yamlCodec) Encode(v value.Value) ([]byte, error) {
	node, err := toYAMLNode(v, "")
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return nil, &EncodeError{Kind: YAML, Err: err}
	}
	if err := enc.Close(); err != nil {
		return nil, &EncodeError{Kind: YAML, Err: err}
	}
	return buf.Bytes(), nil
}

var yamlLinePattern = regexp.MustCompile(`line (\d+)`)

// YAMLDecodeError wraps a yaml.v3 error, recovering the line number from
// its message when present.
func YAMLDecodeError(err error) *DecodeError {
	de := &DecodeError{Kind: YAML, Err: err}
	if m := yamlLinePattern.FindStringSubmatch(err.Error()); m != nil {
		de.Line, _ = strconv.Atoi(m[1])
	}
	return de
}

// FromYAMLNode converts a decoded yaml.v3 node into a Value. Aliases are
// expanded in place. A recursive alias, or a document that grows mostly
// through alias expansion, is a *DecodeError.
func FromYAMLNode(n *yaml.Node) (value.Value, error) {
	c := &yamlConverter{active: make(map[*yaml.Node]bool)}
	return c.convert(n)
}

// yamlConverter tracks alias expansion for one document.
type yamlConverter struct {
	active  map[*yaml.Node]bool // anchors being expanded
	nodes   int
	aliased int // nodes produced under an alias
}

// allowedAliasRatio follows yaml.v3's limit for decoding into Go values:
// small documents may alias freely, large ones may not.
func allowedAliasRatio(nodes int) float64 {
	switch {
	case nodes <= 400_000:
		return 0.99
	case nodes >= 4_000_000:
		return 0.10
	default:
		return 0.99 - 0.89*(float64(nodes-400_000)/3_600_000)
	}
}

func (c *yamlConverter) convert(n *yaml.Node) (value.Value, error) {
	c.nodes++
	if len(c.active) > 0 {
		c.aliased++
	}
	if c.aliased > 100 && c.nodes > 1000 && float64(c.aliased)/float64(c.nodes) > allowedAliasRatio(c.nodes) {
		return nil, &DecodeError{Kind: YAML, Line: n.Line, Column: n.Column,
			Err: errors.New("document contains excessive aliasing")}
	}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return value.Null{}, nil
		}
		return c.convert(n.Content[0])

	case yaml.AliasNode:
		if n.Alias == nil || c.active[n.Alias] {
			return nil, &DecodeError{Kind: YAML, Line: n.Line, Column: n.Column,
				Err: fmt.Errorf("recursive alias *%s", n.Value)}
		}
		c.active[n.Alias] = true
		v, err := c.convert(n.Alias)
		delete(c.active, n.Alias)
		return v, err

	case yaml.SequenceNode:
		arr := make(value.Array, 0, len(n.Content))
		for _, child := range n.Content {
			v, err := c.convert(child)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil

	case yaml.MappingNode:
		obj := value.NewObject()
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, vn := n.Content[i], n.Content[i+1]
			if k.Kind == yaml.AliasNode && k.Alias != nil {
				k = k.Alias
			}
			if k.Kind != yaml.ScalarNode {
				return nil, &DecodeError{Kind: YAML, Line: k.Line, Column: k.Column,
					Err: errors.New("mapping keys must be scalars")}
			}
			v, err := c.convert(vn)
			if err != nil {
				return nil, err
			}
			obj.Set(k.Value, v)
		}
		return obj, nil

	case yaml.ScalarNode:
		return yamlScalar(n)

	default:
		return nil, &DecodeError{Kind: YAML, Line: n.Line, Column: n.Column,
			Err: fmt.Errorf("unexpected node kind %d", n.Kind)}
	}
}

func yamlScalar(n *yaml.Node) (value.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return value.Null{}, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, &DecodeError{Kind: YAML, Line: n.Line, Column: n.Column, Err: err}
		}
		return value.Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return value.Int(i), nil
		}
		var f float64
		if err := n.Decode(&f); err == nil {
			return value.Float(f), nil
		}
		if f, err := strconv.ParseFloat(n.Value, 64); err == nil {
			return value.Float(f), nil
		}
		return value.String(n.Value), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, &DecodeError{Kind: YAML, Line: n.Line, Column: n.Column, Err: err}
		}
		return value.Float(f), nil
	default:
		// !!str, !!timestamp, !!binary and application tags keep their text.
		return value.String(n.Value), nil
	}
}

func toYAMLNode(v value.Value, path string) (*yaml.Node, error) {
	switch t := v.(type) {
	case nil, value.Null:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case value.Bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(bool(t))}, nil
	case value.Int:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(int64(t), 10)}, nil
	case value.Float:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: yamlFloat(float64(t))}, nil
	case value.String:
		// A !!str tag makes the encoder quote text that would otherwise
		// resolve to another type ("true", "42", "null").
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(t)}, nil
	case value.Array:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		if len(t) == 0 {
			node.Style = yaml.FlowStyle
		}
		for i, elem := range t {
			c, err := toYAMLNode(elem, joinPath(path, i))
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, c)
		}
		return node, nil
	case *value.Object:
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		if t.Len() == 0 {
			node.Style = yaml.FlowStyle
		}
		for k, elem := range t.All() {
			c, err := toYAMLNode(elem, joinPath(path, k))
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, c)
		}
		return node, nil
	default:
		return nil, &EncodeError{Kind: YAML, Path: path, Err: fmt.Errorf("unknown value type %T", v)}
	}
}

func yamlFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	s, _ := value.FormatFloat(f) // finite
	return s
}
