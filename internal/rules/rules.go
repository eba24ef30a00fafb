// Package rules maps component type ids to the pair of functions that move a
// component between markup and its structured form.
package rules

import (
	"fmt"
	"sort"

	"github.com/starford/fuma/internal/apperr"
	"github.com/starford/fuma/internal/codec"
	"github.com/starford/fuma/internal/frontmatter"
	"github.com/starford/fuma/internal/mdx"
)

// FrontmatterKey is the markup key of the YAML block at the head of a document.
const FrontmatterKey = "yaml"

// ComponentNode is a void component instance.
type ComponentNode struct {
	Type  string            `json:"type"`
	Props *codec.Properties `json:"fsProps"`
}

// NodeType tells the markup node shapes apart.
type NodeType string

const (
	NodeElement NodeType = "mdxJsxFlowElement"
	NodeYAML    NodeType = FrontmatterKey
)

// Node is the markup side of a component: a JSX element or a raw YAML block.
type Node struct {
	Type    NodeType
	Element *mdx.Element
	Value   string
}

// Key is the name a node is looked up by.
func (n Node) Key() string {
	if n.Type == NodeYAML {
		return FrontmatterKey
	}
	if n.Element == nil {
		return ""
	}
	return n.Element.Name
}

type (
	SerializeFunc   func(c *ComponentNode) (Node, error)
	DeserializeFunc func(n Node) (*ComponentNode, error)
)

type ruleKind int

const (
	kindDefault ruleKind = iota
	kindCustom
	kindSerializeOnly
)

// Rule is resolved once at registration: Default, Custom or SerializeOnly.
type Rule struct {
	kind ruleKind
	ser  SerializeFunc
	de   DeserializeFunc
	key  string
}

// Default uses the attribute codec in both directions.
func Default() Rule { return Rule{kind: kindDefault} }

// Custom supplies both directions. A nil deserializer falls back to the default one.
func Custom(ser SerializeFunc, de DeserializeFunc) Rule {
	if de == nil {
		return SerializeOnly(ser)
	}
	return Rule{kind: kindCustom, ser: ser, de: de}
}

// SerializeOnly supplies the markup direction and reads with the default deserializer.
func SerializeOnly(ser SerializeFunc) Rule {
	return Rule{kind: kindSerializeOnly, ser: ser}
}

// Matching binds the rule to a markup key other than its type id.
func (r Rule) Matching(key string) Rule {
	r.key = key
	return r
}

type entry struct {
	typeID string
	rule   Rule
}

// Registry holds the rules of one compiler or editor.
type Registry struct {
	byMarkup map[string]entry
	byType   map[string]entry
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{byMarkup: map[string]entry{}, byType: map[string]entry{}}
}

// NewRegistry registers every rule in rules.
func NewRegistry(rules map[string]Rule) (*Registry, error) {
	r := New()
	ids := make([]string, 0, len(rules))
	for id := range rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := r.Register(id, rules[id]); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a rule for typeID.
func (r *Registry) Register(typeID string, rule Rule) error {
	if typeID == "" {
		return fmt.Errorf("rules: register: empty type id")
	}
	if rule.kind != kindDefault && rule.ser == nil {
		return fmt.Errorf("rules: register %q: missing serializer", typeID)
	}
	key := rule.key
	if key == "" {
		key = typeID
	}
	if _, ok := r.byType[typeID]; ok {
		return fmt.Errorf("rules: %w: type %q", apperr.ErrDuplicateComponent, typeID)
	}
	if _, ok := r.byMarkup[key]; ok {
		return fmt.Errorf("rules: %w: markup key %q", apperr.ErrDuplicateComponent, key)
	}
	e := entry{typeID: typeID, rule: rule}
	r.byType[typeID] = e
	r.byMarkup[key] = e
	return nil
}

// Has reports whether a rule is registered for typeID.
func (r *Registry) Has(typeID string) bool {
	_, ok := r.byType[typeID]
	return ok
}

// HasKey reports whether a rule matches the markup key.
func (r *Registry) HasKey(key string) bool {
	_, ok := r.byMarkup[key]
	return ok
}

// IDs returns the registered type ids, sorted.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.byType))
	for id := range r.byType {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Deserialize converts a markup node. ok is false when no rule matches and
// the node should pass through untouched.
func (r *Registry) Deserialize(n Node) (c *ComponentNode, ok bool, err error) {
	e, found := r.byMarkup[n.Key()]
	if !found {
		return nil, false, nil
	}
	if e.rule.kind == kindCustom {
		c, err = e.rule.de(n)
	} else {
		c, err = DefaultDeserialize(e.typeID, n)
	}
	if err != nil {
		return nil, true, err
	}
	return c, true, nil
}

// Serialize converts a component back to markup. ok is false when its type is
// not registered.
func (r *Registry) Serialize(c *ComponentNode) (n Node, ok bool, err error) {
	e, found := r.byType[c.Type]
	if !found {
		return Node{}, false, nil
	}
	if e.rule.kind == kindDefault {
		n, err = DefaultSerialize(c)
	} else {
		n, err = e.rule.ser(c)
	}
	return n, true, err
}

// DefaultDeserialize reads a self-closing element's attributes into a
// component of type typeID.
func DefaultDeserialize(typeID string, n Node) (*ComponentNode, error) {
	if n.Element == nil {
		return nil, fmt.Errorf("rules: %q: not an element", typeID)
	}
	if !n.Element.SelfClosing {
		return nil, fmt.Errorf("rules: <%s>: %w", n.Element.Name, apperr.ErrUnsupportedChildContent)
	}
	props, err := codec.Decode(n.Element.Attributes)
	if err != nil {
		return nil, fmt.Errorf("rules: <%s>: %w", n.Element.Name, err)
	}
	return &ComponentNode{Type: typeID, Props: props}, nil
}

// DefaultSerialize writes c as a self-closing element named after its type.
func DefaultSerialize(c *ComponentNode) (Node, error) {
	attrs, err := codec.Encode(c.Props)
	if err != nil {
		return Node{}, fmt.Errorf("rules: <%s>: %w", c.Type, err)
	}
	return Node{
		Type:    NodeElement,
		Element: &mdx.Element{Name: c.Type, Attributes: attrs, SelfClosing: true},
	}, nil
}

// FrontmatterRule maps the YAML block to a component of type typeID whose
// properties keep the YAML key order.
func FrontmatterRule(typeID string) Rule {
	ser := func(c *ComponentNode) (Node, error) {
		raw, err := frontmatter.EncodeProperties(c.Props)
		if err != nil {
			return Node{}, err
		}
		return Node{Type: NodeYAML, Value: string(raw)}, nil
	}
	de := func(n Node) (*ComponentNode, error) {
		props, err := frontmatter.DecodeProperties([]byte(n.Value))
		if err != nil {
			return nil, err
		}
		return &ComponentNode{Type: typeID, Props: props}, nil
	}
	return Custom(ser, de).Matching(FrontmatterKey)
}
