package mdx

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

var (
	// KindFlowElement is a JSX tag standing alone on its own line(s).
	KindFlowElement = ast.NewNodeKind("MdxJsxFlowElement")
	// KindTextElement is a JSX tag inside a paragraph.
	KindTextElement = ast.NewNodeKind("MdxJsxTextElement")
)

// ElementNode is implemented by both JSX node kinds.
type ElementNode interface {
	ast.Node
	JSX() *Element
	// Raw returns the tag exactly as it appeared in the source.
	Raw() []byte
	// Span returns the byte offsets of the tag in the parsed source.
	Span() (start, stop int)
}

// FlowElement is a block-level JSX tag.
type FlowElement struct {
	ast.BaseBlock
	Element     *Element
	start, stop int
	raw         []byte
}

func (n *FlowElement) Kind() ast.NodeKind     { return KindFlowElement }
func (n *FlowElement) JSX() *Element          { return n.Element }
func (n *FlowElement) Raw() []byte            { return n.raw }
func (n *FlowElement) Span() (start, stop int) { return n.start, n.stop }

func (n *FlowElement) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Name": n.Element.Name}, nil)
}

// TextElement is an inline JSX tag.
type TextElement struct {
	ast.BaseInline
	Element     *Element
	start, stop int
	raw         []byte
}

func (n *TextElement) Kind() ast.NodeKind     { return KindTextElement }
func (n *TextElement) JSX() *Element          { return n.Element }
func (n *TextElement) Raw() []byte            { return n.raw }
func (n *TextElement) Span() (start, stop int) { return n.start, n.stop }

func (n *TextElement) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Name": n.Element.Name}, nil)
}

// Extension teaches goldmark to read JSX tags. Self-closing tags are always
// parsed; tags with an opening form only when Claim reports their name, so
// ordinary HTML such as <div> keeps its default handling while callers can
// still reject children on the tags they own.
type Extension struct {
	Claim func(name string) bool
	// Renderer renders both JSX node kinds; nil writes them back verbatim.
	Renderer renderer.NodeRenderer
}

// Extend implements goldmark.Extender.
func (e *Extension) Extend(m goldmark.Markdown) {
	claim := e.Claim
	if claim == nil {
		claim = func(string) bool { return false }
	}
	m.Parser().AddOptions(
		parser.WithBlockParsers(util.Prioritized(&flowParser{claim: claim}, 850)),
		parser.WithInlineParsers(util.Prioritized(&textParser{claim: claim}, 350)),
	)
	r := e.Renderer
	if r == nil {
		r = RawRenderer{}
	}
	m.Renderer().AddOptions(renderer.WithNodeRenderers(util.Prioritized(r, 500)))
}

// NewMarkdown returns a GFM goldmark instance with the JSX extension installed.
func NewMarkdown(ext *Extension, opts ...goldmark.Option) goldmark.Markdown {
	opts = append(opts, goldmark.WithExtensions(extension.GFM, ext))
	return goldmark.New(opts...)
}

// Parse parses source into a goldmark tree.
func Parse(md goldmark.Markdown, source []byte) ast.Node {
	return md.Parser().Parse(text.NewReader(source))
}

// Elements returns every JSX node under root in document order.
func Elements(root ast.Node) []ElementNode {
	var out []ElementNode
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if el, ok := n.(ElementNode); ok {
			out = append(out, el)
		}
		return ast.WalkContinue, nil
	})
	return out
}

type flowParser struct {
	claim func(string) bool
}

func (p *flowParser) Trigger() []byte { return []byte{'<'} }

func (p *flowParser) Open(parent ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	if pc.BlockIndent() > 3 {
		return nil, parser.NoChildren
	}
	line, seg := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 || pos >= len(line) || line[pos] != '<' {
		return nil, parser.NoChildren
	}
	source := reader.Source()
	start := seg.Start + pos
	el, n, err := ParseTag(source[start:])
	if err != nil {
		return nil, parser.NoChildren
	}
	if !el.SelfClosing && !p.claim(el.Name) {
		return nil, parser.NoChildren
	}
	stop := start + n
	if !blankToEOL(source, stop) {
		// Something follows the tag on its last line: leave it to the
		// paragraph and inline parsers.
		return nil, parser.NoChildren
	}
	node := &FlowElement{Element: el, start: start, stop: stop, raw: source[start:stop]}
	if l := seg.Len(); l > 0 {
		reader.Advance(l - 1)
	}
	return node, parser.NoChildren
}

func (p *flowParser) Continue(node ast.Node, reader text.Reader, pc parser.Context) parser.State {
	fe := node.(*FlowElement)
	_, seg := reader.PeekLine()
	if seg.Start < fe.stop {
		// Still inside a tag that spans several lines.
		if l := seg.Len(); l > 0 {
			reader.Advance(l - 1)
		}
		return parser.Continue | parser.NoChildren
	}
	return parser.Close
}

func (p *flowParser) Close(node ast.Node, reader text.Reader, pc parser.Context) {}

func (p *flowParser) CanInterruptParagraph() bool { return false }

func (p *flowParser) CanAcceptIndentedLine() bool { return false }

type textParser struct {
	claim func(string) bool
}

func (p *textParser) Trigger() []byte { return []byte{'<'} }

func (p *textParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, seg := block.PeekLine()
	el, n, err := ParseTag(line)
	if err != nil {
		return nil
	}
	if !el.SelfClosing && !p.claim(el.Name) {
		return nil
	}
	node := &TextElement{
		Element: el,
		start:   seg.Start,
		stop:    seg.Start + n,
		raw:     append([]byte(nil), line[:n]...),
	}
	block.Advance(n)
	return node
}

func blankToEOL(source []byte, i int) bool {
	for ; i < len(source); i++ {
		switch source[i] {
		case '\n':
			return true
		case ' ', '\t', '\r':
		default:
			return false
		}
	}
	return true
}

// RawRenderer writes JSX nodes back exactly as they were written.
type RawRenderer struct{}

// RegisterFuncs implements renderer.NodeRenderer.
func (RawRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindFlowElement, RenderRaw)
	reg.Register(KindTextElement, RenderRaw)
}

// RenderRaw is a renderer.NodeRendererFunc that emits the original tag text.
func RenderRaw(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	el, ok := n.(ElementNode)
	if !ok {
		return ast.WalkContinue, nil
	}
	_, _ = w.Write(el.Raw())
	if n.Type() == ast.TypeBlock {
		_ = w.WriteByte('\n')
	}
	return ast.WalkContinue, nil
}
