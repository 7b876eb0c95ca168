package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Args are the decoded arguments of a tool call. Numbers arrive as float64
// from JSON; the accessors convert them.
type Args map[string]any

// Has reports whether name was given and is not null.
func (a Args) Has(name string) bool {
	v, ok := a[name]
	return ok && v != nil
}

// String returns a string argument.
func (a Args) String(name string) (string, bool) {
	s, ok := a[name].(string)
	return s, ok
}

// StringOr returns a string argument or def.
func (a Args) StringOr(name, def string) string {
	if s, ok := a.String(name); ok {
		return s
	}
	return def
}

// Int returns an integer argument.
func (a Args) Int(name string) (int64, bool) {
	return toInt(a[name])
}

// IntOr returns an integer argument or def.
func (a Args) IntOr(name string, def int64) int64 {
	if n, ok := a.Int(name); ok {
		return n
	}
	return def
}

// IntPtr returns an integer argument, or nil when absent.
func (a Args) IntPtr(name string) *int64 {
	if n, ok := a.Int(name); ok {
		return &n
	}
	return nil
}

// Bool returns a boolean argument.
func (a Args) Bool(name string) (bool, bool) {
	b, ok := a[name].(bool)
	return b, ok
}

// Strings returns a string array argument.
func (a Args) Strings(name string) []string {
	raw, ok := a[name].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Ints returns an integer array argument. Non-integer elements are an error.
func (a Args) Ints(name string) ([]int64, error) {
	raw, ok := a[name].([]any)
	if !ok {
		return nil, nil
	}
	out := make([]int64, 0, len(raw))
	for i, v := range raw {
		n, ok := toInt(v)
		if !ok {
			return nil, fmt.Errorf("%s[%d] is not an integer", name, i)
		}
		out = append(out, n)
	}
	return out, nil
}

// Object returns an object argument.
func (a Args) Object(name string) map[string]any {
	m, _ := a[name].(map[string]any)
	return m
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}
