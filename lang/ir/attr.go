package ir

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/exp/slices"
)

// AttrKind distinguishes the four attribute forms spec.md §3.1 allows:
// a bare name, a name with argument literals, an integer literal, or a
// string literal.
type AttrKind int

const (
	AttrName AttrKind = iota
	AttrNameArgs
	AttrInt
	AttrStr
)

// Attr is one element of a Type's sorted, deduplicated attribute set, e.g.
// from `__attribute__((packed))` or `__attribute__((aligned(16)))`.
type Attr struct {
	Kind AttrKind
	Name string   // AttrName, AttrNameArgs
	Args []string // AttrNameArgs: the argument literals' source text
	Int  int64    // AttrInt
	Str  string   // AttrStr
}

// key returns the string used to order and deduplicate attributes: spec.md
// §3.1 requires the set be "ordered by attribute name", which for the
// literal forms (no name) is taken to be the literal's own rendering.
func (a Attr) key() string {
	switch a.Kind {
	case AttrName:
		return a.Name
	case AttrNameArgs:
		return a.Name + "(" + strings.Join(a.Args, ",") + ")"
	case AttrInt:
		return fmt.Sprintf("#%d", a.Int)
	case AttrStr:
		return fmt.Sprintf("%q", a.Str)
	default:
		return ""
	}
}

func (a Attr) String() string { return a.key() }

// sortAttrs returns a sorted copy of attrs with exact duplicates (same key)
// removed, preserving the "sorted unique" invariant of spec.md §3.1.
func sortAttrs(attrs []Attr) []Attr {
	if len(attrs) == 0 {
		return nil
	}
	out := slices.Clone(attrs)
	sort.Slice(out, func(i, j int) bool { return out[i].key() < out[j].key() })
	out = slices.CompactFunc(out, func(a, b Attr) bool { return a.key() == b.key() })
	return out
}

// WithAttrs returns a new sorted attribute set containing the union of base
// and add. Per spec.md §8, WithAttrs(t, nil) is a no-op on the attribute
// list (callers check this to decide whether a fresh Type handle is even
// needed).
func WithAttrs(base []Attr, add []Attr) []Attr {
	if len(add) == 0 {
		return base
	}
	return sortAttrs(append(append([]Attr{}, base...), add...))
}

// RemoveAttrs returns base with every attribute whose key matches one in
// remove dropped.
func RemoveAttrs(base []Attr, remove []Attr) []Attr {
	if len(remove) == 0 {
		return base
	}
	drop := make(map[string]struct{}, len(remove))
	for _, a := range remove {
		drop[a.key()] = struct{}{}
	}
	var out []Attr
	for _, a := range base {
		if _, ok := drop[a.key()]; !ok {
			out = append(out, a)
		}
	}
	return out
}

// ReplaceAttrs returns a brand new sorted attribute set, discarding base
// entirely.
func ReplaceAttrs(attrs []Attr) []Attr { return sortAttrs(attrs) }

// attrsEqual reports whether two sorted attribute sets are identical.
func attrsEqual(a, b []Attr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].key() != b[i].key() {
			return false
		}
	}
	return true
}
