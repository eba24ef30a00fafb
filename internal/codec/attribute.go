package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/starford/fuma/internal/apperr"
	"github.com/starford/fuma/internal/mdx"
)

// Decode converts tag attributes into properties. String attributes become
// strings, expression attributes are parsed as JSON literals and valueless
// attributes become true. Text is never sniffed: {30} is a number, "30" a
// string.
func Decode(attrs []mdx.Attribute) (*Properties, error) {
	p := NewProperties()
	for _, a := range attrs {
		switch a.Kind {
		case mdx.AttrBool:
			p.Set(a.Name, Bool(true))
		case mdx.AttrString:
			p.Set(a.Name, String(a.Value))
		case mdx.AttrExpr:
			v, err := decodeExpr(a.Value)
			if err != nil {
				return nil, fmt.Errorf("codec: attribute %q: %w", a.Name, err)
			}
			p.Set(a.Name, v)
		default:
			return nil, fmt.Errorf("codec: attribute %q: unknown kind %d", a.Name, a.Kind)
		}
	}
	return p, nil
}

func decodeExpr(src string) (Value, error) {
	dec := json.NewDecoder(strings.NewReader(src))
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Value{}, fmt.Errorf("%w: %s", apperr.ErrUnsupportedExpression, src)
	}
	if dec.More() {
		return Value{}, fmt.Errorf("%w: trailing content in %s", apperr.ErrUnsupportedExpression, src)
	}
	if raw == nil {
		return Value{}, fmt.Errorf("%w: null", apperr.ErrUnsupportedExpression)
	}
	return ValueOf(raw)
}

// Encode converts properties into tag attributes in property order. Strings
// become string attributes; every other kind becomes an expression holding
// its JSON text.
func Encode(p *Properties) ([]mdx.Attribute, error) {
	attrs := make([]mdx.Attribute, 0, p.Len())
	var err error
	p.Each(func(name string, v Value) {
		if err != nil {
			return
		}
		var a mdx.Attribute
		a, err = encodeOne(name, v)
		attrs = append(attrs, a)
	})
	if err != nil {
		return nil, err
	}
	return attrs, nil
}

func encodeOne(name string, v Value) (mdx.Attribute, error) {
	if v.kind == KindString {
		s := v.v.(string)
		if !strings.Contains(s, `"`) || !strings.Contains(s, "'") {
			return mdx.Attribute{Name: name, Kind: mdx.AttrString, Value: s}, nil
		}
	}
	if v.kind == KindInvalid {
		return mdx.Attribute{}, fmt.Errorf("codec: property %q: %w", name, apperr.ErrUnserializableValue)
	}
	payload := v.v
	if v.kind == KindArray || v.kind == KindObject {
		// Array and Object take raw containers; nested values are checked here.
		n, err := normalize(v.v)
		if err != nil {
			return mdx.Attribute{}, fmt.Errorf("codec: property %q: %w", name, err)
		}
		payload = n
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return mdx.Attribute{}, fmt.Errorf("codec: property %q: %w: %v", name, apperr.ErrUnserializableValue, err)
	}
	return mdx.Attribute{
		Name:  name,
		Kind:  mdx.AttrExpr,
		Value: strings.TrimSuffix(buf.String(), "\n"),
	}, nil
}
