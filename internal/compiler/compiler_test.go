package compiler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/fuma/internal/apperr"
	"github.com/starford/fuma/internal/codec"
	"github.com/starford/fuma/internal/frontmatter"
	"github.com/starford/fuma/internal/mdx"
	"github.com/starford/fuma/internal/rules"
)

// bracket renders a component as [type props-json].
var bracket = RendererFunc(func(w io.Writer, c *rules.ComponentNode) error {
	props, err := json.Marshal(c.Props)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "[%s %s]", c.Type, props)
	return err
})

func TestCompile_FrontmatterAndComponent(t *testing.T) {
	src := "---\ntitle: Example\n---\n<fs_component name=\"emmanuel\" age={30} arr={[]} />\n"

	res, err := New().Compile(src, Components{"fs_component": bracket})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"title": "Example"}, res.Frontmatter)
	require.Len(t, res.Components, 1)
	c := res.Components[0]
	assert.Equal(t, "fs_component", c.Type)
	want, _ := codec.PropertiesOf("name", "emmanuel", "age", 30, "arr", []any{})
	assert.True(t, c.Props.Equal(want), "props = %v", c.Props.Map())
	assert.Equal(t, `[fs_component {"name":"emmanuel","age":30,"arr":[]}]`+"\n", res.Content)
}

func TestNew_IgnoresNilOptions(t *testing.T) {
	c := New(WithRegistry(nil), WithLogger(nil))
	res, err := c.Compile("<fs_component n={1} />\n", Components{"fs_component": bracket})
	require.NoError(t, err)
	require.Len(t, res.Components, 1)
	assert.Equal(t, `[fs_component {"n":1}]`+"\n", res.Content)
}

func TestCompile_NoFrontmatter(t *testing.T) {
	res, err := New().Compile("# Title\n", nil)
	require.NoError(t, err)
	assert.Nil(t, res.Frontmatter)
	assert.Equal(t, "<h1>Title</h1>\n", res.Content)
}

func TestCompile_OnlyAllowedTagsAreRenamed(t *testing.T) {
	src := "<fs_component name=\"a\" />\n\n<my_widget color=\"red\" />\n\nSome <fs_component name=\"inline\" /> text.\n"

	res, err := New().Compile(src, Components{"fs_component": bracket})
	require.NoError(t, err)

	names := []string{}
	for _, el := range mdx.Elements(res.Document) {
		names = append(names, el.JSX().Name)
	}
	assert.Equal(t, []string{"FsComponent", "my_widget", "FsComponent"}, names)

	assert.Contains(t, res.Content, `[fs_component {"name":"a"}]`)
	assert.Contains(t, res.Content, `<my_widget color="red" />`)
	assert.Contains(t, res.Content, `<p>Some [fs_component {"name":"inline"}] text.</p>`)
	assert.Len(t, res.Components, 2)
}

func TestCompile_OtherHTMLPassesThrough(t *testing.T) {
	res, err := New().Compile("<div>\nhello\n</div>\n", Allow("fs_component"))
	require.NoError(t, err)
	assert.Contains(t, res.Content, "<div>")
	assert.Empty(t, res.Components)
}

func TestCompile_RejectsChildren(t *testing.T) {
	src := "<fs_component name=\"x\">\nhello\n</fs_component>\n"
	_, err := New().Compile(src, Allow("fs_component"))
	assert.ErrorIs(t, err, apperr.ErrUnsupportedChildContent)
}

func TestCompile_IgnoresCode(t *testing.T) {
	src := "```\n<fs_component name=\"x\" />\n```\n\nInline `<fs_component />` code.\n"
	res, err := New().Compile(src, Allow("fs_component"))
	require.NoError(t, err)
	assert.Empty(t, res.Components)
}

func TestCompile_UnsupportedExpression(t *testing.T) {
	_, err := New().Compile("<fs_component value={props.x} />\n", Allow("fs_component"))
	assert.ErrorIs(t, err, apperr.ErrUnsupportedExpression)
}

func TestCompile_NameCollision(t *testing.T) {
	_, err := New().Compile("text\n", Allow("fs_component", "fs__component"))
	assert.ErrorIs(t, err, apperr.ErrDuplicateComponent)
}

func TestCompile_FrontmatterPolicy(t *testing.T) {
	src := "---\ntitle: [unclosed\n---\nBody\n"

	_, err := New().Compile(src, nil)
	assert.ErrorIs(t, err, apperr.ErrFrontmatterParse)

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	res, err := New(WithFrontmatterPolicy(frontmatter.Lenient), WithLogger(logger)).Compile(src, nil)
	require.NoError(t, err)
	assert.Nil(t, res.Frontmatter)
	assert.Equal(t, src, string(res.Source))
	assert.Contains(t, logs.String(), "Ignoring malformed frontmatter")
}

func TestCompile_CustomRule(t *testing.T) {
	de := func(n rules.Node) (*rules.ComponentNode, error) {
		c, err := rules.DefaultDeserialize("fs_card", n)
		if err != nil {
			return nil, err
		}
		c.Props.Set("seen", codec.Bool(true))
		return c, nil
	}
	reg := rules.New()
	require.NoError(t, reg.Register("fs_card", rules.Custom(rules.DefaultSerialize, de)))

	res, err := New(WithRegistry(reg)).Compile("<fs_card title=\"t\" />\n", Components{"fs_card": bracket})
	require.NoError(t, err)
	assert.Equal(t, `[fs_card {"title":"t","seen":true}]`+"\n", res.Content)
}

func TestJSONRenderer(t *testing.T) {
	res, err := New().Compile("<fs_badge label=\"new\" />\n", Allow("fs_badge"))
	require.NoError(t, err)
	assert.Equal(t, `<div data-component="FsBadge" data-props="{&quot;label&quot;:&quot;new&quot;}"></div>`+"\n", res.Content)
}
