package document

import (
	"slices"
	"strings"
)

// Prop is one attribute of an element. Numbers are stored as float64 so a
// document compares equal to its JSON round trip.
type Prop struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// Props keeps attributes in source order. Methods never modify the
// receiver; they return a new list.
type Props []Prop

func (p Props) Clone() Props {
	if p == nil {
		return nil
	}
	return slices.Clone(p)
}

func (p Props) Get(key string) (any, bool) {
	for _, prop := range p {
		if prop.Key == key {
			return prop.Value, true
		}
	}
	return nil, false
}

// Number returns a numeric prop. Strings such as "20px" are not parsed.
func (p Props) Number(key string) (float64, bool) {
	v, ok := p.Get(key)
	if !ok {
		return 0, false
	}
	f, ok := NormalizeValue(v).(float64)
	return f, ok
}

func (p Props) String(key string) (string, bool) {
	v, ok := p.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (p Props) Has(key string) bool {
	_, ok := p.Get(key)
	return ok
}

// Set replaces an existing key in place or appends a new one.
func (p Props) Set(key string, value any) Props {
	value = NormalizeValue(value)
	out := slices.Clone(p)
	for i := range out {
		if out[i].Key == key {
			out[i].Value = value
			return out
		}
	}
	return append(out, Prop{Key: key, Value: value})
}

func (p Props) Delete(keys ...string) Props {
	out := make(Props, 0, len(p))
	for _, prop := range p {
		if !slices.Contains(keys, prop.Key) {
			out = append(out, prop)
		}
	}
	return out
}

func (p Props) Keys() []string {
	out := make([]string, len(p))
	for i, prop := range p {
		out[i] = prop.Key
	}
	return out
}

// NormalizeValue converts Go numeric types to float64.
func NormalizeValue(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	default:
		return v
	}
}

const stylePrefix = "style."

// SplitPropPath maps "style.left" to the style list and key "left"; any
// other path addresses a plain prop.
func SplitPropPath(path string) (isStyle bool, key string) {
	if rest, ok := strings.CutPrefix(path, stylePrefix); ok {
		return true, rest
	}
	return false, path
}

// GetProp reads a prop path from el.
func (e Element) GetProp(path string) (any, bool) {
	if isStyle, key := SplitPropPath(path); isStyle {
		return e.Style.Get(key)
	}
	return e.Props.Get(path)
}
