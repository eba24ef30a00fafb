// Package codec converts between JSX attributes and typed component properties.
package codec

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"

	"github.com/starford/fuma/internal/apperr"
)

// Kind is the shape of a property value.
type Kind int

const (
	KindInvalid Kind = iota
	KindString
	KindNumber
	KindBool
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	}
	return "invalid"
}

// Value is a property value: a string, number, boolean, JSON array or JSON
// object. The zero Value is invalid and cannot be encoded.
type Value struct {
	kind Kind
	v    any
}

func String(s string) Value { return Value{kind: KindString, v: s} }
func Number(f float64) Value { return Value{kind: KindNumber, v: f} }
func Bool(b bool) Value      { return Value{kind: KindBool, v: b} }

// Array wraps a JSON array. Elements must be JSON-shaped (see ValueOf).
func Array(items []any) Value {
	if items == nil {
		items = []any{}
	}
	return Value{kind: KindArray, v: items}
}

// Object wraps a JSON object. Values must be JSON-shaped (see ValueOf).
func Object(m map[string]any) Value {
	if m == nil {
		m = map[string]any{}
	}
	return Value{kind: KindObject, v: m}
}

// Kind returns the value's shape.
func (v Value) Kind() Kind { return v.kind }

// Interface returns the underlying Go value: string, float64, bool, []any or
// map[string]any.
func (v Value) Interface() any { return v.v }

// Equal reports deep equality of kind and content.
func (v Value) Equal(o Value) bool {
	return v.kind == o.kind && reflect.DeepEqual(v.v, o.v)
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindInvalid {
		return nil, fmt.Errorf("codec: %w: invalid value", apperr.ErrUnserializableValue)
	}
	return json.Marshal(v.v)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	val, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

// ValueOf converts a Go value into a Value. Strings, booleans, every integer
// and float kind, []any and map[string]any are accepted, recursively; nil,
// functions, channels, structs, pointers and non-finite numbers fail with
// apperr.ErrUnserializableValue.
func ValueOf(x any) (Value, error) {
	switch t := x.(type) {
	case Value:
		if t.kind == KindInvalid {
			return Value{}, unserializable(x)
		}
		return t, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case []any:
		items, err := normalizeSlice(t)
		if err != nil {
			return Value{}, err
		}
		return Array(items), nil
	case map[string]any:
		m, err := normalizeMap(t)
		if err != nil {
			return Value{}, err
		}
		return Object(m), nil
	}
	if f, ok := toFloat(x); ok {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Value{}, unserializable(x)
		}
		return Number(f), nil
	}
	return Value{}, unserializable(x)
}

// normalize turns a nested JSON-shaped value into the canonical form produced
// by encoding/json (float64 numbers), rejecting anything JSON cannot hold.
func normalize(x any) (any, error) {
	switch t := x.(type) {
	case nil:
		return nil, nil
	case string, bool:
		return t, nil
	case []any:
		return normalizeSlice(t)
	case map[string]any:
		return normalizeMap(t)
	}
	if f, ok := toFloat(x); ok && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f, nil
	}
	return nil, unserializable(x)
}

func normalizeSlice(in []any) ([]any, error) {
	out := make([]any, len(in))
	for i, item := range in {
		v, err := normalize(item)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func normalizeMap(in map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(in))
	for k, item := range in {
		v, err := normalize(item)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func toFloat(x any) (float64, bool) {
	switch n := x.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func unserializable(x any) error {
	return fmt.Errorf("codec: %w: %T", apperr.ErrUnserializableValue, x)
}
