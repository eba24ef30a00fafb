package codec

import (
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Properties is an insertion-ordered property bag. The zero value is not
// usable; call NewProperties.
type Properties struct {
	m *orderedmap.OrderedMap[string, Value]
}

// NewProperties returns an empty property bag.
func NewProperties() *Properties {
	return &Properties{m: orderedmap.New[string, Value]()}
}

// PropertiesOf builds a bag from alternating name/value pairs converted with
// ValueOf.
func PropertiesOf(pairs ...any) (*Properties, error) {
	p := NewProperties()
	for i := 0; i+1 < len(pairs); i += 2 {
		name, _ := pairs[i].(string)
		v, err := ValueOf(pairs[i+1])
		if err != nil {
			return nil, err
		}
		p.Set(name, v)
	}
	return p, nil
}

// Set stores v under name. A name that is already present keeps its position.
func (p *Properties) Set(name string, v Value) {
	p.m.Set(name, v)
}

// Get returns the value stored under name.
func (p *Properties) Get(name string) (Value, bool) {
	return p.m.Get(name)
}

// Delete removes name.
func (p *Properties) Delete(name string) {
	p.m.Delete(name)
}

// Len returns the number of properties.
func (p *Properties) Len() int {
	if p == nil || p.m == nil {
		return 0
	}
	return p.m.Len()
}

// Keys returns property names in insertion order.
func (p *Properties) Keys() []string {
	keys := make([]string, 0, p.Len())
	p.Each(func(name string, _ Value) {
		keys = append(keys, name)
	})
	return keys
}

// Each calls fn for every property in insertion order.
func (p *Properties) Each(fn func(name string, v Value)) {
	if p == nil || p.m == nil {
		return
	}
	for pair := p.m.Oldest(); pair != nil; pair = pair.Next() {
		fn(pair.Key, pair.Value)
	}
}

// Map returns the properties as plain Go values.
func (p *Properties) Map() map[string]any {
	out := make(map[string]any, p.Len())
	p.Each(func(name string, v Value) {
		out[name] = v.Interface()
	})
	return out
}

// Clone returns a shallow copy with the same order.
func (p *Properties) Clone() *Properties {
	c := NewProperties()
	p.Each(c.Set)
	return c
}

// Equal reports whether both bags hold the same names, in the same order, with
// equal values.
func (p *Properties) Equal(o *Properties) bool {
	if p.Len() != o.Len() {
		return false
	}
	a, b := p.Keys(), o.Keys()
	for i := range a {
		if a[i] != b[i] {
			return false
		}
		va, _ := p.Get(a[i])
		vb, _ := o.Get(b[i])
		if !va.Equal(vb) {
			return false
		}
	}
	return true
}

// MarshalJSON writes the properties as a JSON object in insertion order.
func (p *Properties) MarshalJSON() ([]byte, error) {
	if p == nil || p.m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p.m)
}

// UnmarshalJSON reads a JSON object, keeping key order.
func (p *Properties) UnmarshalJSON(data []byte) error {
	m := orderedmap.New[string, Value]()
	if err := json.Unmarshal(data, m); err != nil {
		return err
	}
	p.m = m
	return nil
}
