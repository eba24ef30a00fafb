// Package editor converts MDX documents to and from the block model an editor
// works on: a frontmatter component followed by Markdown and component blocks.
package editor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark/text"

	"github.com/starford/fuma/internal/codec"
	"github.com/starford/fuma/internal/frontmatter"
	"github.com/starford/fuma/internal/mdx"
	"github.com/starford/fuma/internal/rules"
)

// DefaultFrontmatterType is the component type frontmatter gets when the
// registry has no rule for the YAML block.
const DefaultFrontmatterType = "frontmatter"

// Block is either a component or a chunk of Markdown.
type Block struct {
	Component *rules.ComponentNode `json:"component,omitempty"`
	Markdown  string               `json:"markdown,omitempty"`
}

// IsComponent reports whether b holds a component.
func (b Block) IsComponent() bool { return b.Component != nil }

// Document is an editable MDX document.
type Document struct {
	Frontmatter *rules.ComponentNode `json:"frontmatter,omitempty"`
	Blocks      []Block              `json:"blocks"`
}

// Deserialize reads source into a Document. Top-level component tags with a
// rule in reg become component blocks; everything between them, inline
// components included, stays Markdown.
func Deserialize(reg *rules.Registry, source string) (*Document, error) {
	doc := &Document{Blocks: []Block{}}
	body := []byte(source)

	if block, rest, ok := frontmatter.Split(body); ok {
		fm, err := deserializeFrontmatter(reg, block)
		if err != nil {
			return nil, fmt.Errorf("editor: %w", err)
		}
		doc.Frontmatter = fm
		body = rest
	}

	md := mdx.NewMarkdown(&mdx.Extension{Claim: reg.HasKey})
	root := md.Parser().Parse(text.NewReader(body))

	prev := 0
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		fe, ok := n.(*mdx.FlowElement)
		if !ok || !reg.HasKey(fe.Element.Name) {
			continue
		}
		c, _, err := reg.Deserialize(rules.Node{Type: rules.NodeElement, Element: fe.Element})
		if err != nil {
			return nil, fmt.Errorf("editor: %w", err)
		}
		start, stop := fe.Span()
		doc.appendMarkdown(body[prev:start])
		doc.Blocks = append(doc.Blocks, Block{Component: c})
		prev = stop
	}
	doc.appendMarkdown(body[prev:])
	return doc, nil
}

func (d *Document) appendMarkdown(chunk []byte) {
	chunk = bytes.Trim(chunk, "\r\n")
	if len(bytes.TrimSpace(chunk)) == 0 {
		return
	}
	d.Blocks = append(d.Blocks, Block{Markdown: string(chunk)})
}

func deserializeFrontmatter(reg *rules.Registry, block []byte) (*rules.ComponentNode, error) {
	node := rules.Node{Type: rules.NodeYAML, Value: string(block)}
	if !reg.HasKey(rules.FrontmatterKey) {
		reg = fallbackRegistry(DefaultFrontmatterType)
	}
	c, _, err := reg.Deserialize(node)
	return c, err
}

func fallbackRegistry(typeID string) *rules.Registry {
	reg := rules.New()
	_ = reg.Register(typeID, rules.FrontmatterRule(typeID))
	return reg
}

// Serialize writes doc back to MDX. Component types without a rule in reg are
// written with the default rule.
func Serialize(reg *rules.Registry, doc *Document) (string, error) {
	parts := make([]string, 0, len(doc.Blocks))
	for i, b := range doc.Blocks {
		if !b.IsComponent() {
			parts = append(parts, b.Markdown)
			continue
		}
		markup, err := serializeComponent(reg, b.Component)
		if err != nil {
			return "", fmt.Errorf("editor: block %d: %w", i, err)
		}
		parts = append(parts, markup)
	}
	body := ""
	if len(parts) > 0 {
		body = strings.Join(parts, "\n\n") + "\n"
	}

	if doc.Frontmatter == nil {
		return body, nil
	}
	n, ok, err := reg.Serialize(doc.Frontmatter)
	if !ok {
		n, _, err = fallbackRegistry(doc.Frontmatter.Type).Serialize(doc.Frontmatter)
	}
	if err != nil {
		return "", fmt.Errorf("editor: frontmatter: %w", err)
	}
	if n.Type != rules.NodeYAML {
		return "", fmt.Errorf("editor: frontmatter rule produced %q, want yaml", n.Type)
	}
	if n.Value == "" {
		return body, nil
	}
	return string(frontmatter.Join([]byte(n.Value), []byte(body))), nil
}

func serializeComponent(reg *rules.Registry, c *rules.ComponentNode) (string, error) {
	n, ok, err := reg.Serialize(c)
	if !ok {
		n, err = rules.DefaultSerialize(c)
	}
	if err != nil {
		return "", err
	}
	if n.Element == nil {
		return "", fmt.Errorf("<%s>: rule produced no element", c.Type)
	}
	return n.Element.Markup(), nil
}

// SetProps replaces the properties of the component at block i.
func (d *Document) SetProps(i int, props *codec.Properties) error {
	if i < 0 || i >= len(d.Blocks) {
		return fmt.Errorf("editor: block %d out of range", i)
	}
	if !d.Blocks[i].IsComponent() {
		return fmt.Errorf("editor: block %d is not a component", i)
	}
	d.Blocks[i].Component.Props = props.Clone()
	return nil
}

// Remove deletes block i.
func (d *Document) Remove(i int) error {
	if i < 0 || i >= len(d.Blocks) {
		return fmt.Errorf("editor: block %d out of range", i)
	}
	d.Blocks = append(d.Blocks[:i], d.Blocks[i+1:]...)
	return nil
}

// Components returns the component blocks in order.
func (d *Document) Components() []*rules.ComponentNode {
	var out []*rules.ComponentNode
	for _, b := range d.Blocks {
		if b.IsComponent() {
			out = append(out, b.Component)
		}
	}
	return out
}
