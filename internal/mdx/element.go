// Package mdx models MDX-JSX component tags and plugs them into goldmark.
package mdx

import "strings"

// AttrKind distinguishes the three attribute shapes a JSX tag can carry.
type AttrKind int

const (
	AttrBool AttrKind = iota
	AttrString
	AttrExpr
)

// Attribute is a single attribute of a JSX tag.
type Attribute struct {
	Name string
	Kind AttrKind
	// Value is the literal string (AttrString) or the expression source
	// between the braces (AttrExpr). Empty for AttrBool.
	Value string
}

// Element is a JSX tag as written in the source.
type Element struct {
	Name        string
	Attributes  []Attribute
	SelfClosing bool
}

// Markup writes the element back as a tag. String values containing a double
// quote are written with single quotes; JSX strings have no escapes, so a value
// holding both quote kinds must be stored as an expression instead.
func (e *Element) Markup() string {
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(e.Name)
	for _, a := range e.Attributes {
		b.WriteByte(' ')
		b.WriteString(a.Name)
		switch a.Kind {
		case AttrString:
			q := byte('"')
			if strings.IndexByte(a.Value, '"') >= 0 {
				q = '\''
			}
			b.WriteByte('=')
			b.WriteByte(q)
			b.WriteString(a.Value)
			b.WriteByte(q)
		case AttrExpr:
			b.WriteString("={")
			b.WriteString(a.Value)
			b.WriteByte('}')
		}
	}
	if e.SelfClosing {
		b.WriteString(" />")
	} else {
		b.WriteByte('>')
	}
	return b.String()
}

// Attr returns the first attribute with the given name.
func (e *Element) Attr(name string) (Attribute, bool) {
	for _, a := range e.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}
