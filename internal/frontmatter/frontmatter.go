// Package frontmatter splits, decodes and encodes the YAML block at the head
// of a document.
package frontmatter

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/starford/fuma/internal/apperr"
	"github.com/starford/fuma/internal/codec"
)

const delim = "---"

// Policy decides what a malformed block does to the surrounding operation.
type Policy string

const (
	// Strict fails the operation with apperr.ErrFrontmatterParse.
	Strict Policy = "strict"
	// Lenient drops the block and treats the whole source as body.
	Lenient Policy = "lenient"
)

// Split separates a leading --- fenced YAML block from the body. Leading blank
// lines are tolerated; without a closing fence there is no frontmatter and the
// whole input is body.
func Split(data []byte) (block []byte, body []byte, ok bool) {
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, data, false
	}
	rest := trimmed[len(delim):]
	// The opening fence must be alone on its line.
	nl := bytes.IndexByte(rest, '\n')
	if nl < 0 || len(bytes.TrimSpace(rest[:nl])) != 0 {
		return nil, data, false
	}
	rest = rest[nl+1:]

	// The closing fence is the first line that is exactly the delimiter,
	// ignoring trailing whitespace.
	for end := 0; end < len(rest); {
		line := rest[end:]
		next := len(rest)
		if i := bytes.IndexByte(line, '\n'); i >= 0 {
			line, next = line[:i], end+i+1
		}
		if string(bytes.TrimRight(line, " \t\r")) == delim {
			return rest[:end], bytes.TrimLeft(rest[next:], "\n\r"), true
		}
		end = next
	}
	return nil, data, false
}

// Join rebuilds a document from an encoded block and a body.
func Join(block, body []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(delim + "\n")
	buf.Write(block)
	if len(block) > 0 && block[len(block)-1] != '\n' {
		buf.WriteByte('\n')
	}
	buf.WriteString(delim + "\n")
	if len(body) > 0 {
		buf.WriteByte('\n')
		buf.Write(body)
	}
	return buf.Bytes()
}

// Decode parses a YAML block into a plain map. An empty block yields an empty
// map.
func Decode(block []byte) (map[string]any, error) {
	fm := map[string]any{}
	if len(bytes.TrimSpace(block)) == 0 {
		return fm, nil
	}
	if err := yaml.Unmarshal(block, &fm); err != nil {
		return nil, fmt.Errorf("frontmatter: %w: %v", apperr.ErrFrontmatterParse, err)
	}
	return fm, nil
}

// Encode writes a map as canonical YAML with two-space indentation.
func Encode(fm map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(fm); err != nil {
		return nil, fmt.Errorf("frontmatter: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("frontmatter: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeProperties parses a YAML mapping into properties, keeping key order.
// Timestamps stay strings; null values fail with apperr.ErrUnserializableValue.
func DecodeProperties(block []byte) (*codec.Properties, error) {
	props := codec.NewProperties()
	if len(bytes.TrimSpace(block)) == 0 {
		return props, nil
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(block, &doc); err != nil {
		return nil, fmt.Errorf("frontmatter: %w: %v", apperr.ErrFrontmatterParse, err)
	}
	if len(doc.Content) == 0 {
		return props, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("frontmatter: %w: top level is not a mapping", apperr.ErrFrontmatterParse)
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, valNode := root.Content[i], root.Content[i+1]
		keepTimestampsAsStrings(valNode)
		var raw any
		if err := valNode.Decode(&raw); err != nil {
			return nil, fmt.Errorf("frontmatter: %w: key %q: %v", apperr.ErrFrontmatterParse, key.Value, err)
		}
		v, err := codec.ValueOf(raw)
		if err != nil {
			return nil, fmt.Errorf("frontmatter: key %q: %w", key.Value, err)
		}
		props.Set(key.Value, v)
	}
	return props, nil
}

// EncodeProperties writes properties as a YAML mapping in property order.
func EncodeProperties(props *codec.Properties) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	var err error
	props.Each(func(name string, v codec.Value) {
		if err != nil {
			return
		}
		var val yaml.Node
		if err = val.Encode(v.Interface()); err != nil {
			return
		}
		root.Content = append(root.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name}, &val)
	})
	if err != nil {
		return nil, fmt.Errorf("frontmatter: encode: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("frontmatter: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("frontmatter: encode: %w", err)
	}
	return buf.Bytes(), nil
}

func keepTimestampsAsStrings(n *yaml.Node) {
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!timestamp" {
		n.Tag = "!!str"
	}
	for _, c := range n.Content {
		keepTimestampsAsStrings(c)
	}
}
