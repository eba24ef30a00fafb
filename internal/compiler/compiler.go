// Package compiler turns MDX source into rendered output, resolving the
// component tags a caller allows and extracting the frontmatter.
package compiler

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"

	"github.com/starford/fuma/internal/apperr"
	"github.com/starford/fuma/internal/frontmatter"
	"github.com/starford/fuma/internal/mdx"
	"github.com/starford/fuma/internal/naming"
	"github.com/starford/fuma/internal/rules"
)

// Option configures a Compiler.
type Option func(*Compiler)

// WithRegistry sets the rules used to read component tags. Allowed tags with
// no rule are read with the default rule. A nil registry is ignored.
func WithRegistry(reg *rules.Registry) Option {
	return func(c *Compiler) {
		if reg != nil {
			c.registry = reg
		}
	}
}

// WithFrontmatterPolicy sets what a malformed frontmatter block does.
func WithFrontmatterPolicy(p frontmatter.Policy) Option {
	return func(c *Compiler) {
		c.policy = p
	}
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) {
		if l != nil {
			c.logger = l
		}
	}
}

// Compiler is safe for concurrent use; every Compile builds its own parser.
type Compiler struct {
	registry *rules.Registry
	policy   frontmatter.Policy
	logger   *slog.Logger
}

// New returns a Compiler with a strict frontmatter policy and an empty registry.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		registry: rules.New(),
		policy:   frontmatter.Strict,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Result is the outcome of one compile.
type Result struct {
	// Content is the rendered HTML.
	Content string
	// Frontmatter is nil when the document has none.
	Frontmatter map[string]any
	// Components lists the resolved components in document order.
	Components []*rules.ComponentNode
	// Document is the parsed tree with component tags renamed to render case.
	Document ast.Node
	// Source is the body the tree was parsed from.
	Source []byte
}

// Compile parses source, renames the allowed component tags to render case,
// and renders the document. Tags outside components pass through untouched.
func (c *Compiler) Compile(source string, components Components) (*Result, error) {
	ids := make([]string, 0, len(components))
	for id := range components {
		ids = append(ids, id)
	}
	allowed, err := naming.NewIndex(ids)
	if err != nil {
		return nil, fmt.Errorf("compiler: %w", err)
	}

	res := &Result{}
	body := []byte(source)
	if block, rest, ok := frontmatter.Split(body); ok {
		fm, err := frontmatter.Decode(block)
		switch {
		case err == nil:
			res.Frontmatter = fm
			body = rest
		case c.policy == frontmatter.Lenient:
			c.logger.Warn("Ignoring malformed frontmatter", slog.String("error", err.Error()))
		default:
			return nil, fmt.Errorf("compiler: %w", err)
		}
	}
	res.Source = body

	nr := &nodeRenderer{resolved: map[ast.Node]resolved{}}
	md := mdx.NewMarkdown(
		&mdx.Extension{Claim: allowed.Contains, Renderer: nr},
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
	doc := md.Parser().Parse(text.NewReader(body))

	for _, el := range mdx.Elements(doc) {
		jsx := el.JSX()
		id := jsx.Name
		if !allowed.Contains(id) {
			continue
		}
		if !jsx.SelfClosing {
			return nil, fmt.Errorf("compiler: <%s>: %w", id, apperr.ErrUnsupportedChildContent)
		}
		node := rules.Node{Type: rules.NodeElement, Element: jsx}
		comp, ok, err := c.registry.Deserialize(node)
		if !ok {
			comp, err = rules.DefaultDeserialize(id, node)
		}
		if err != nil {
			return nil, fmt.Errorf("compiler: %w", err)
		}
		jsx.Name, _ = allowed.Render(id)

		r := components[id]
		if r == nil {
			r = JSONRenderer{}
		}
		nr.resolved[el] = resolved{component: comp, renderer: r}
		res.Components = append(res.Components, comp)
	}
	res.Document = doc

	var buf bytes.Buffer
	if err := md.Renderer().Render(&buf, body, doc); err != nil {
		return nil, err
	}
	res.Content = buf.String()

	c.logger.Debug("Compiled document",
		slog.Int("components", len(res.Components)),
		slog.Bool("frontmatter", res.Frontmatter != nil))
	return res, nil
}
