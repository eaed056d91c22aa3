// Package fieldpath provides typed dotted-path access into nested state records.
//
// A Path is parsed once, at node construction time, and then used for every
// read and write. Intermediate records are map[string]any, which is also what
// JSON and YAML decoding produce.
package fieldpath

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/copystructure"
	"github.com/spf13/cast"
)

// ErrEmptyPath is returned when parsing an empty path or segment.
var ErrEmptyPath = errors.New("empty field path")

// Path is a parsed dotted path such as "customer.first_name".
type Path struct {
	segments []string
}

// Parse splits a dotted path and rejects empty segments.
func Parse(raw string) (Path, error) {
	if strings.TrimSpace(raw) == "" {
		return Path{}, ErrEmptyPath
	}
	parts := strings.Split(raw, ".")
	for i, p := range parts {
		if p == "" {
			return Path{}, fmt.Errorf("%w: segment %d of %q", ErrEmptyPath, i, raw)
		}
	}
	return Path{segments: parts}, nil
}

// MustParse is like Parse but panics on error. Intended for static paths.
func MustParse(raw string) Path {
	p, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the dotted form.
func (p Path) String() string {
	return strings.Join(p.segments, ".")
}

// IsZero reports whether the path was never parsed.
func (p Path) IsZero() bool {
	return len(p.segments) == 0
}

// Leaf returns the last segment.
func (p Path) Leaf() string {
	if p.IsZero() {
		return ""
	}
	return p.segments[len(p.segments)-1]
}

// Parent returns the path without its leaf. The parent of a single segment is zero.
func (p Path) Parent() Path {
	if len(p.segments) <= 1 {
		return Path{}
	}
	return Path{segments: append([]string(nil), p.segments[:len(p.segments)-1]...)}
}

// Child appends one segment.
func (p Path) Child(name string) Path {
	segs := make([]string, 0, len(p.segments)+1)
	segs = append(segs, p.segments...)
	return Path{segments: append(segs, name)}
}

// WithSuffix returns a sibling path whose leaf carries suffix,
// e.g. "vehicle.options" + "_metadata" -> "vehicle.options_metadata".
func (p Path) WithSuffix(suffix string) Path {
	if p.IsZero() {
		return Path{segments: []string{strings.TrimPrefix(suffix, "_")}}
	}
	segs := append([]string(nil), p.segments...)
	segs[len(segs)-1] += suffix
	return Path{segments: segs}
}

// Segments returns a copy of the path segments.
func (p Path) Segments() []string {
	return append([]string(nil), p.segments...)
}

// Lookup walks root along p and reports whether every segment resolved.
func Lookup(root map[string]any, p Path) (any, bool) {
	if p.IsZero() || root == nil {
		return nil, false
	}
	var cur any = root
	for _, seg := range p.segments {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Get returns the value at p or nil.
func Get(root map[string]any, p Path) any {
	v, _ := Lookup(root, p)
	return v
}

// Exists reports whether p resolves to a non-nil, non-empty-string value.
func Exists(root map[string]any, p Path) bool {
	v, ok := Lookup(root, p)
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr && s == "" {
		return false
	}
	return true
}

// Set writes value at p, replacing any non-record intermediate with a new record.
func Set(root map[string]any, p Path, value any) {
	if p.IsZero() || root == nil {
		return
	}
	cur := root
	for _, seg := range p.segments[:len(p.segments)-1] {
		next, ok := cur[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[seg] = next
		}
		cur = next
	}
	cur[p.Leaf()] = value
}

// Delete removes the leaf at p if present.
func Delete(root map[string]any, p Path) {
	if p.IsZero() {
		return
	}
	parent := root
	if pp := p.Parent(); !pp.IsZero() {
		m, ok := Get(root, pp).(map[string]any)
		if !ok {
			return
		}
		parent = m
	}
	delete(parent, p.Leaf())
}

// Record returns the map stored at p, or nil when absent or not a record.
func Record(root map[string]any, p Path) map[string]any {
	m, _ := Get(root, p).(map[string]any)
	return m
}

// Float reads a numeric value at p. Strings and integers are coerced.
func Float(root map[string]any, p Path) (float64, bool) {
	v, ok := Lookup(root, p)
	if !ok || v == nil {
		return 0, false
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Clone deep-copies a record tree.
func Clone(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	c, err := copystructure.Copy(m)
	if err != nil {
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out
	}
	return c.(map[string]any)
}
