package compiler

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"

	"github.com/starford/fuma/internal/mdx"
	"github.com/starford/fuma/internal/naming"
	"github.com/starford/fuma/internal/rules"
)

// Renderer turns one component into output.
type Renderer interface {
	Render(w io.Writer, c *rules.ComponentNode) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(w io.Writer, c *rules.ComponentNode) error

func (f RendererFunc) Render(w io.Writer, c *rules.ComponentNode) error { return f(w, c) }

// Components maps lowercase component ids to their renderers. The keys are
// also the set of tags treated as components.
type Components map[string]Renderer

// Allow builds a Components set that renders every id with JSONRenderer.
func Allow(ids ...string) Components {
	c := make(Components, len(ids))
	for _, id := range ids {
		c[id] = JSONRenderer{}
	}
	return c
}

// IDs returns the component ids of c, sorted.
func IDs(c Components) []string {
	ids := make([]string, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// JSONRenderer writes a component as an inert card holding its properties.
type JSONRenderer struct{}

func (JSONRenderer) Render(w io.Writer, c *rules.ComponentNode) error {
	props, err := json.Marshal(c.Props)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, `<div data-component="%s" data-props="%s"></div>`,
		naming.ToRenderCase(c.Type), util.EscapeHTML(props))
	return err
}

type resolved struct {
	component *rules.ComponentNode
	renderer  Renderer
}

// nodeRenderer renders resolved components and writes every other JSX tag
// back unchanged.
type nodeRenderer struct {
	resolved map[ast.Node]resolved
}

func (r *nodeRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(mdx.KindFlowElement, r.render)
	reg.Register(mdx.KindTextElement, r.render)
}

func (r *nodeRenderer) render(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	res, ok := r.resolved[n]
	if !ok {
		return mdx.RenderRaw(w, source, n, entering)
	}
	if err := res.renderer.Render(w, res.component); err != nil {
		return ast.WalkStop, fmt.Errorf("compiler: render <%s>: %w", res.component.Type, err)
	}
	if n.Type() == ast.TypeBlock {
		_ = w.WriteByte('\n')
	}
	return ast.WalkContinue, nil
}
