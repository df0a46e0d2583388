// Package ir implements the core data model of spec.md §3: handle arenas for
// every IR kind, the type algebra, composite layout, the value algebra,
// three-address statements, and Expr/Cond code blocks.
//
// Every mutable IR object is identified by a small integer handle into a
// per-kind arena (component A). Handle zero is reserved as "none"; a handle
// never owns or duplicates content on copy.
package ir

// TypeID identifies a Type in the type arena. Zero means "no type" (used,
// e.g., as an Array's unknown length sentinel's neighbor, or a Var's
// not-yet-inferred type).
type TypeID uint32

// CompID identifies a Comp (struct/union tag) in the comp arena.
type CompID uint32

// EnumID identifies an Enum (enum tag) in the enum arena.
type EnumID uint32

// EnumItemID identifies one (name, value) member of an Enum.
type EnumItemID uint32

// TypedefID identifies a Typedef (name, type) pair.
type TypedefID uint32

// VarID identifies a Var (global or local variable, or function).
type VarID uint32

// StmtID identifies a Stmt in the statement arena.
type StmtID uint32

// CodeID identifies a Code block (Expr or Cond).
type CodeID uint32

// None is the shared zero value for every handle kind: "no object".
const None = 0

// Arena is a dense, append-only table mapping a handle kind H to its stored
// value T. Index 0 is reserved and never returned by New, so the zero value
// of H continues to mean "none" for every arena.
type Arena[H ~uint32, T any] struct {
	items []T
}

// NewArena returns an Arena with its reserved slot 0 already filled.
func NewArena[H ~uint32, T any]() *Arena[H, T] {
	return &Arena[H, T]{items: make([]T, 1)}
}

// New appends v and returns its handle.
func (a *Arena[H, T]) New(v T) H {
	a.items = append(a.items, v)
	return H(len(a.items) - 1)
}

// Get returns a pointer to the stored value for h, so callers can mutate
// mutable IR kinds (Comp, Enum, Var) in place. Get panics if h is out of
// range; h == 0 ("none") is always out of range for this purpose.
func (a *Arena[H, T]) Get(h H) *T {
	if int(h) <= 0 || int(h) >= len(a.items) {
		panic("ir: invalid handle dereferenced")
	}
	return &a.items[h]
}

// Valid reports whether h identifies a live entry (i.e. is not None and was
// actually allocated).
func (a *Arena[H, T]) Valid(h H) bool {
	return int(h) > 0 && int(h) < len(a.items)
}

// Len returns the number of live entries (excluding the reserved slot 0).
func (a *Arena[H, T]) Len() int { return len(a.items) - 1 }

// All iterates every live handle in allocation order.
func (a *Arena[H, T]) All(fn func(h H, v *T)) {
	for i := 1; i < len(a.items); i++ {
		fn(H(i), &a.items[i])
	}
}
