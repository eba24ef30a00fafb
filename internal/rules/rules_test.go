package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/fuma/internal/apperr"
	"github.com/starford/fuma/internal/codec"
	"github.com/starford/fuma/internal/mdx"
)

func element(t *testing.T, tag string) Node {
	t.Helper()
	el, _, err := mdx.ParseTag([]byte(tag))
	require.NoError(t, err)
	return Node{Type: NodeElement, Element: el}
}

func TestDefaultRule_RoundTrip(t *testing.T) {
	reg, err := NewRegistry(map[string]Rule{"fs_component": Default()})
	require.NoError(t, err)

	c, ok, err := reg.Deserialize(element(t, `<fs_component name="emmanuel" age={30} arr={[]} />`))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "fs_component", c.Type)
	assert.Equal(t, []string{"name", "age", "arr"}, c.Props.Keys())

	n, ok, err := reg.Serialize(c)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `<fs_component name="emmanuel" age={30} arr={[]} />`, n.Element.Markup())

	again, _, err := reg.Deserialize(n)
	require.NoError(t, err)
	assert.True(t, again.Props.Equal(c.Props))
}

func TestUnregisteredPassesThrough(t *testing.T) {
	reg := New()
	c, ok, err := reg.Deserialize(element(t, `<my_widget a="1" />`))
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, c)

	_, ok, err = reg.Serialize(&ComponentNode{Type: "my_widget", Props: codec.NewProperties()})
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestDefaultRule_RejectsChildren(t *testing.T) {
	reg, _ := NewRegistry(map[string]Rule{"fs_component": Default()})
	_, ok, err := reg.Deserialize(element(t, `<fs_component name="x">`))
	assert.True(t, ok)
	assert.ErrorIs(t, err, apperr.ErrUnsupportedChildContent)
}

func TestSerializeOnly_UsesDefaultDeserializer(t *testing.T) {
	ser := func(c *ComponentNode) (Node, error) {
		n, err := DefaultSerialize(c)
		if err != nil {
			return Node{}, err
		}
		n.Element.Attributes = append(n.Element.Attributes, mdx.Attribute{Name: "custom", Kind: mdx.AttrBool})
		return n, nil
	}
	reg := New()
	require.NoError(t, reg.Register("fs_card", Custom(ser, nil)))

	c, _, err := reg.Deserialize(element(t, `<fs_card title="t" />`))
	require.NoError(t, err)
	n, _, err := reg.Serialize(c)
	require.NoError(t, err)
	assert.Equal(t, `<fs_card title="t" custom />`, n.Element.Markup())
}

func TestCustomRule(t *testing.T) {
	de := func(n Node) (*ComponentNode, error) {
		p := codec.NewProperties()
		p.Set("raw", codec.String(n.Element.Markup()))
		return &ComponentNode{Type: "fs_raw", Props: p}, nil
	}
	ser := func(c *ComponentNode) (Node, error) {
		return Node{Type: NodeElement, Element: &mdx.Element{Name: "fs_raw", SelfClosing: true}}, nil
	}
	reg := New()
	require.NoError(t, reg.Register("fs_raw", Custom(ser, de)))

	c, ok, err := reg.Deserialize(element(t, `<fs_raw a={1} />`))
	require.NoError(t, err)
	require.True(t, ok)
	v, _ := c.Props.Get("raw")
	assert.Equal(t, `<fs_raw a={1} />`, v.Interface())
}

func TestRegister_Duplicate(t *testing.T) {
	reg := New()
	require.NoError(t, reg.Register("fs_component", Default()))
	assert.ErrorIs(t, reg.Register("fs_component", Default()), apperr.ErrDuplicateComponent)

	require.NoError(t, reg.Register("frontmatter", FrontmatterRule("frontmatter")))
	assert.ErrorIs(t, reg.Register("meta", FrontmatterRule("meta")), apperr.ErrDuplicateComponent)
	assert.Equal(t, []string{"frontmatter", "fs_component"}, reg.IDs())
	assert.True(t, reg.HasKey(FrontmatterKey))
	assert.False(t, reg.Has(FrontmatterKey))
}

func TestRegister_MissingSerializer(t *testing.T) {
	assert.Error(t, New().Register("fs_x", SerializeOnly(nil)))
}

func TestFrontmatterRule(t *testing.T) {
	reg, err := NewRegistry(map[string]Rule{"frontmatter": FrontmatterRule("frontmatter")})
	require.NoError(t, err)

	c, ok, err := reg.Deserialize(Node{Type: NodeYAML, Value: "title: Example\norder: 2\n"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "frontmatter", c.Type)
	assert.Equal(t, []string{"title", "order"}, c.Props.Keys())

	c.Props.Set("title", codec.String("Changed"))
	n, ok, err := reg.Serialize(c)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, NodeYAML, n.Type)
	assert.Equal(t, "title: Changed\norder: 2\n", n.Value)
}
