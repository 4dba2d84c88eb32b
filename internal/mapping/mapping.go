// Package mapping applies named custom mappings on top of the default
// normalized and concrete oedatamodel formats.
//
// A mapping file "<name>.json" declares the mapping it builds on and a tree of
// JMESPath expressions:
//
//	{
//	    "base_mapping": "concrete",
//	    "mapping": {
//	        "scenario": "oed_scenario.name",
//	        "capacities": {"east": "oed_scalars[?region=='east'].value"}
//	    }
//	}
//
// The base mapping is applied first (recursively, until one of the default
// mappings is reached), then every leaf expression is evaluated against the
// base result. Object keys keep the order of the mapping file.
//
// Besides the JMESPath standard functions, expressions may call items, zip,
// from_items, group_by, to_object, unique, exclude and group_dict_by.
//
// Integers that a float64 cannot hold exactly (beyond 2^53) pass through
// projections and filters unchanged but are not numbers to functions or
// comparisons.
package mapping

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/JonMunkholm/oedatamodel/internal/core"
	"github.com/jmespath-community/go-jmespath"
)

// Default mapping names resolved without a mapping file.
const (
	Normalized = "normalized"
	Concrete   = "concrete"
)

var (
	// ErrMappingNotFound is returned when no mapping file exists for a name.
	ErrMappingNotFound = errors.New("mapping not found")

	// ErrMappingCycle is returned when base mappings refer back to a mapping
	// already being applied.
	ErrMappingCycle = errors.New("mapping cycle")

	// ErrInvalidMapping is returned for unreadable mapping files and bad
	// expressions.
	ErrInvalidMapping = errors.New("invalid mapping")
)

// Definition is the content of a mapping file.
type Definition struct {
	BaseMapping string          `json:"base_mapping"`
	Mapping     json.RawMessage `json:"mapping"`
}

// Loader resolves a mapping name to its definition.
type Loader interface {
	Load(name string) (*Definition, error)
}

// Mapper applies custom and default mappings to raw responses.
type Mapper struct {
	loader Loader
}

// New creates a Mapper that reads custom mappings from loader.
func New(loader Loader) *Mapper {
	return &Mapper{loader: loader}
}

// IsDefault reports whether name is one of the built-in mappings.
func IsDefault(name string) bool {
	return name == Normalized || name == Concrete
}

// Apply applies the mapping called name to raw.
func (m *Mapper) Apply(raw *core.RawResponse, name string) (any, error) {
	return m.apply(raw, name, map[string]bool{})
}

// ApplyDefinition applies an inline definition to raw.
func (m *Mapper) ApplyDefinition(raw *core.RawResponse, def *Definition) (any, error) {
	return m.applyDefinition(raw, def, map[string]bool{})
}

func (m *Mapper) apply(raw *core.RawResponse, name string, chain map[string]bool) (any, error) {
	switch name {
	case Normalized:
		normalized, err := core.Normalize(raw)
		if err != nil {
			return nil, err
		}
		return normalized, nil
	case Concrete:
		concrete, err := core.Concretize(raw)
		if err != nil {
			return nil, err
		}
		return concrete, nil
	}

	if chain[name] {
		return nil, fmt.Errorf("%w: %q is its own base", ErrMappingCycle, name)
	}
	chain[name] = true

	def, err := m.loader.Load(name)
	if err != nil {
		return nil, err
	}
	result, err := m.applyDefinition(raw, def, chain)
	if err != nil {
		return nil, fmt.Errorf("mapping %q: %w", name, err)
	}
	return result, nil
}

func (m *Mapper) applyDefinition(raw *core.RawResponse, def *Definition, chain map[string]bool) (any, error) {
	if def.BaseMapping == "" {
		return nil, fmt.Errorf("%w: base_mapping is required", ErrInvalidMapping)
	}

	tree, err := parseNode(def.Mapping)
	if err != nil {
		return nil, err
	}

	base, err := m.apply(raw, def.BaseMapping, chain)
	if err != nil {
		return nil, err
	}
	data, err := toGeneric(base)
	if err != nil {
		return nil, err
	}

	return tree.eval(data)
}

// node is either a compiled leaf expression or an ordered object of nodes.
type node struct {
	expr     jmespath.JMESPath
	source   string
	keys     []string
	children []*node
}

func parseNode(raw json.RawMessage) (*node, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: mapping is required", ErrInvalidMapping)
	}

	switch trimmed[0] {
	case '"':
		var source string
		if err := json.Unmarshal(trimmed, &source); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMapping, err)
		}
		expr, err := jmespath.Compile(source, customFunctions...)
		if err != nil {
			return nil, fmt.Errorf("%w: expression %q: %v", ErrInvalidMapping, source, err)
		}
		return &node{expr: expr, source: source}, nil

	case '{':
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMapping, err)
		}

		n := &node{}
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidMapping, err)
			}
			key := tok.(string)

			var child json.RawMessage
			if err := dec.Decode(&child); err != nil {
				return nil, fmt.Errorf("%w: %q: %v", ErrInvalidMapping, key, err)
			}
			parsed, err := parseNode(child)
			if err != nil {
				return nil, fmt.Errorf("%q: %w", key, err)
			}
			n.keys = append(n.keys, key)
			n.children = append(n.children, parsed)
		}
		return n, nil

	default:
		return nil, fmt.Errorf("%w: values must be expressions or objects", ErrInvalidMapping)
	}
}

func (n *node) eval(data any) (any, error) {
	if n.expr != nil {
		result, err := n.expr.Search(data)
		if err != nil {
			return nil, fmt.Errorf("%w: expression %q: %v", ErrInvalidMapping, n.source, err)
		}
		return result, nil
	}

	out := core.NewRecord(len(n.keys))
	for i, key := range n.keys {
		v, err := n.children[i].eval(data)
		if err != nil {
			return nil, err
		}
		out.Set(key, v)
	}
	return out, nil
}

// toGeneric converts a mapping result into plain maps, slices and float64
// numbers, the data model JMESPath evaluates against. Integers a float64
// cannot represent exactly stay json.Number so their digits survive.
func toGeneric(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode base mapping: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode base mapping: %w", err)
	}
	return convertNumbers(out), nil
}

func convertNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = convertNumbers(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = convertNumbers(e)
		}
		return t
	case json.Number:
		return numberValue(t)
	default:
		return v
	}
}

// maxExactInt is the largest magnitude up to which every integer is a float64.
const maxExactInt = 1 << 53

func numberValue(n json.Number) any {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil || i > maxExactInt || i < -maxExactInt {
			return n
		}
		return float64(i)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) {
		return n
	}
	return f
}
