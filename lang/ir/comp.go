package ir

import "github.com/dolthub/swiss"

// CompKind distinguishes struct from union tags (spec.md §3.2).
type CompKind int

const (
	Struct CompKind = iota
	Union
)

// CompField is one member of a Comp: a name, its type, and an optional
// bitfield width (nil means "not a bitfield").
type CompField struct {
	Name     string
	Type     TypeID
	BitWidth *int
}

// Comp is a mutable struct/union tag object. Unlike Type, a Comp may be
// forward-declared (IsDefined == false) and later mutated in place when its
// body is parsed (spec.md §4.4).
type Comp struct {
	Name      string
	Kind      CompKind
	IsDefined bool
	Fields    []CompField
}

// isoKey packs an ordered pair of CompIDs into a single map key.
type isoKey uint64

func packIso(a, b CompID) isoKey {
	if a > b {
		a, b = b, a
	}
	return isoKey(uint64(a)<<32 | uint64(b))
}

// IsoSet tracks the pair-isomorphism relation "a is assumed structurally
// equal to b" recorded during Combine of two composite types (spec.md
// §3.2, §4.1). It breaks infinite recursion on self-referential comps: a
// deep-equality check that revisits a pair already marked assumes it holds,
// per spec.md §9's open question ("the externally visible semantics are
// unchanged" whether the backing table grows or is hash-addressed with a
// fixed capacity, as the original C source does).
type IsoSet struct {
	pairs *swiss.Map[isoKey, struct{}]
}

// NewIsoSet returns an empty isomorphism set.
func NewIsoSet() *IsoSet {
	return &IsoSet{pairs: swiss.NewMap[isoKey, struct{}](64)}
}

// MarkIsomorphic records that a and b are (provisionally) assumed equal.
func (s *IsoSet) MarkIsomorphic(a, b CompID) { s.pairs.Put(packIso(a, b), struct{}{}) }

// UnmarkIsomorphic removes the assumption, called when a deep comparison
// that depended on it turns out to fail.
func (s *IsoSet) UnmarkIsomorphic(a, b CompID) { s.pairs.Delete(packIso(a, b)) }

// IsIsomorphic reports whether a and b are currently assumed equal.
func (s *IsoSet) IsIsomorphic(a, b CompID) bool {
	if a == b {
		return true
	}
	_, ok := s.pairs.Get(packIso(a, b))
	return ok
}
