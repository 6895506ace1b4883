package rasterprofile

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Local YAML tags for the non-scalar kinds.
const (
	yamlTransformTag = "!transform"
	yamlCRSTag       = "!crs"
)

// MarshalYAML writes p as a mapping in key order. Scalars carry explicit tags
// where YAML would otherwise resolve them to another kind, so a float 0 stays
// a float on reload.
func (p *Profile) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for k, v := range p.All() {
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}
		val, err := valueNode(v)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		node.Content = append(node.Content, key, val)
	}
	return node, nil
}

// UnmarshalYAML replaces p with the mapping in node. Every key passes the
// same validation as Set.
func (p *Profile) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: line %d: profile must be a mapping", ErrInvalidData, node.Line)
	}

	out := &Profile{values: make(map[string]Value, len(node.Content)/2)}
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, vn := node.Content[i], node.Content[i+1]
		v, err := nodeValue(vn)
		if err != nil {
			return fmt.Errorf("key %q: %w", k.Value, err)
		}
		if err := out.Set(k.Value, v); err != nil {
			return err
		}
	}
	*p = *out
	return nil
}

func scalarNode(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func formatYAMLFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func valueNode(v Value) (*yaml.Node, error) {
	switch v.kind {
	case KindNull:
		return scalarNode("!!null", "null"), nil
	case KindBool:
		b, _ := v.Bool()
		return scalarNode("!!bool", strconv.FormatBool(b)), nil
	case KindInt:
		i, _ := v.Int()
		return scalarNode("!!int", strconv.FormatInt(i, 10)), nil
	case KindFloat:
		f, _ := v.Float()
		return scalarNode("!!float", formatYAMLFloat(f)), nil
	case KindString:
		return scalarNode("!!str", v.str), nil
	case KindTransform:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: yamlTransformTag, Style: yaml.FlowStyle}
		for _, f := range v.t {
			seq.Content = append(seq.Content, scalarNode("!!float", formatYAMLFloat(f)))
		}
		return seq, nil
	case KindCRS:
		m := &yaml.Node{Kind: yaml.MappingNode, Tag: yamlCRSTag}
		if v.crs.Code != 0 {
			m.Content = append(m.Content, scalarNode("!!str", "code"), scalarNode("!!int", strconv.Itoa(v.crs.Code)))
		}
		if v.crs.Name != "" {
			m.Content = append(m.Content, scalarNode("!!str", "name"), scalarNode("!!str", v.crs.Name))
		}
		if v.crs.WKT != "" {
			m.Content = append(m.Content, scalarNode("!!str", "wkt"), scalarNode("!!str", v.crs.WKT))
		}
		return m, nil
	}
	return nil, fmt.Errorf("%w: kind %s", ErrUnsupportedValue, v.kind)
}

func nodeValue(n *yaml.Node) (Value, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return scalarValue(n)

	case yaml.SequenceNode:
		if len(n.Content) != 6 {
			return Value{}, fmt.Errorf("%w: line %d: transform needs 6 numbers, got %d", ErrInvalidData, n.Line, len(n.Content))
		}
		var t Transform
		for i, c := range n.Content {
			if err := c.Decode(&t[i]); err != nil {
				return Value{}, fmt.Errorf("%w: line %d: %v", ErrInvalidData, c.Line, err)
			}
		}
		return Affine(t), nil

	case yaml.MappingNode:
		var c struct {
			Code int    `yaml:"code"`
			Name string `yaml:"name"`
			WKT  string `yaml:"wkt"`
		}
		if err := n.Decode(&c); err != nil {
			return Value{}, fmt.Errorf("%w: line %d: %v", ErrInvalidData, n.Line, err)
		}
		return CRSValue(CRS{Code: c.Code, Name: c.Name, WKT: c.WKT}), nil

	case yaml.AliasNode:
		return nodeValue(n.Alias)
	}
	return Value{}, fmt.Errorf("%w: line %d: unsupported yaml node", ErrUnsupportedValue, n.Line)
}

func scalarValue(n *yaml.Node) (Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return Null(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return Value{}, fmt.Errorf("%w: line %d: %v", ErrInvalidData, n.Line, err)
		}
		return Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return Value{}, fmt.Errorf("%w: line %d: %v", ErrInvalidData, n.Line, err)
		}
		return Int(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return Value{}, fmt.Errorf("%w: line %d: %v", ErrInvalidData, n.Line, err)
		}
		return Float(f), nil
	case "!!str", "!!timestamp", "!!binary":
		return String(n.Value), nil
	}
	return Value{}, fmt.Errorf("%w: line %d: tag %s", ErrUnsupportedValue, n.Line, n.ShortTag())
}

// ParseValue resolves s as a YAML value: "256" is an int, "true" a bool,
// "0.0" a float and "[0, 1, 0, 0, 0, 1]" a transform. Anything else is a
// string. The empty string is null.
func ParseValue(s string) (Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(s), &doc); err != nil {
		return Value{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if len(doc.Content) == 0 {
		return Null(), nil
	}
	return nodeValue(doc.Content[0])
}

// ParseItem parses a KEY=VALUE assignment. The key is lower-cased to match
// the profile keys; the value is resolved by ParseValue.
func ParseItem(s string) (Item, error) {
	key, raw, ok := strings.Cut(s, "=")
	key = strings.ToLower(strings.TrimSpace(key))
	if !ok || key == "" {
		return Item{}, fmt.Errorf("%w: %q is not KEY=VALUE", ErrInvalidData, s)
	}
	v, err := ParseValue(raw)
	if err != nil {
		return Item{}, fmt.Errorf("key %q: %w", key, err)
	}
	if err := validate(key, v); err != nil {
		return Item{}, err
	}
	return KV(key, v), nil
}
