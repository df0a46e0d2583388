package ir

import "github.com/mna/cirstage/lang/target"

// Context gathers every arena, the machine model, and the isomorphism set
// into the single threaded-through record spec.md §9's design notes call
// for, replacing implicit global state. The environment and loop/switch
// stacks (package env) and the JIT state (package jit) are layered on top
// of a Context; they are not part of the IR core itself.
type Context struct {
	Machine *target.Machine

	Types    *TypeArena
	Comps    *Arena[CompID, Comp]
	Enums    *Arena[EnumID, Enum]
	EnumItems *Arena[EnumItemID, EnumItem]
	Typedefs *Arena[TypedefID, Typedef]
	Vars     *Arena[VarID, Var]
	Stmts    *Arena[StmtID, Stmt]

	// Codes holds finished function bodies: once the parser (lang/cparser)
	// finishes a function definition, its *Code is sealed into this arena and the
	// resulting CodeID is stored in the function's Var.Body. Code blocks still
	// under construction stay as bare *Code values passed between builder
	// calls; they only enter this arena once complete.
	Codes *Arena[CodeID, Code]

	Iso *IsoSet

	// UserValueSeq and UserStmtSeq are the two user-kind ID counters spec.md
	// §9 calls out: staging assigns monotonically increasing IDs from these
	// when it mints a User value or User statement.
	UserValueSeq int64
	UserStmtSeq  int64
}

// NewContext returns an empty Context targeting m.
func NewContext(m *target.Machine) *Context {
	return &Context{
		Machine:   m,
		Types:     NewTypeArena(),
		Comps:     NewArena[CompID, Comp](),
		Enums:     NewArena[EnumID, Enum](),
		EnumItems: NewArena[EnumItemID, EnumItem](),
		Typedefs:  NewArena[TypedefID, Typedef](),
		Vars:      NewArena[VarID, Var](),
		Stmts:     NewArena[StmtID, Stmt](),
		Codes:     NewArena[CodeID, Code](),
		Iso:       NewIsoSet(),
	}
}

// NextUserValueID mints the next staging value-splice ID.
func (c *Context) NextUserValueID() int64 {
	c.UserValueSeq++
	return c.UserValueSeq
}

// NextUserStmtID mints the next staging statement-splice ID.
func (c *Context) NextUserStmtID() int64 {
	c.UserStmtSeq++
	return c.UserStmtSeq
}

// Sizeof and Alignof are thin conveniences over TypeArena's, binding in
// this Context's own Machine/Comps/Typedefs so callers outside the ir
// package don't have to thread four arguments through every call site.
func (c *Context) Sizeof(t TypeID) int {
	return c.Types.Sizeof(t, c.Machine, c.Comps, c.Typedefs)
}

func (c *Context) Alignof(t TypeID) int {
	return c.Types.Alignof(t, c.Machine, c.Comps, c.Typedefs)
}

func (c *Context) Unroll(t TypeID) TypeID { return c.Types.Unroll(t, c.Typedefs) }

func (c *Context) UnrollDeep(t TypeID) TypeID { return c.Types.UnrollDeep(t, c.Typedefs) }

func (c *Context) TypesEqual(a, b TypeID) bool { return c.Types.Equal(a, b, c.Typedefs, c.Iso) }

func (c *Context) LvalConv(t TypeID) TypeID { return c.Types.LvalConv(t, c.Typedefs) }

func (c *Context) Combine(old, newT TypeID) (TypeID, bool) {
	return c.Types.Combine(old, newT, c.Comps, c.Typedefs, c.Iso)
}
