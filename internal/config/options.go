package config

import (
	"encoding/json"
	"sort"
)

// Options is a free-form map decoded from a plan's "input" object. The typed
// getters return the default when a key is absent or holds another type.
type Options map[string]any

// inputKeys are the keys the delimited-text readers understand.
var inputKeys = map[string]bool{"encoding": true, "comma": true, "na_values": true}

func get[T any](o Options, key string) (T, bool) {
	v, ok := o[key].(T)
	return v, ok
}

// String returns the string value for key or def.
func (o Options) String(key, def string) string {
	if s, ok := get[string](o, key); ok {
		return s
	}
	return def
}

// Rune returns the first rune of the string value for key, or def.
func (o Options) Rune(key string, def rune) rune {
	for _, r := range o.String(key, "") {
		return r
	}
	return def
}

// StringSlice returns the string elements of a list value. JSON and YAML
// both decode lists as []any; non-string elements are skipped.
func (o Options) StringSlice(key string) []string {
	if ss, ok := get[[]string](o, key); ok {
		return ss
	}
	raw, ok := get[[]any](o, key)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, x := range raw {
		if s, ok := x.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// unknownKeys lists keys outside inputKeys, sorted.
func (o Options) unknownKeys() []string {
	var out []string
	for k := range o {
		if !inputKeys[k] {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// UnmarshalJSON turns a null object into an empty map.
func (o *Options) UnmarshalJSON(b []byte) error {
	m := map[string]any{}
	if string(b) != "null" {
		if err := json.Unmarshal(b, &m); err != nil {
			return err
		}
	}
	*o = m
	return nil
}
