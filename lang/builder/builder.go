// Package builder implements the CirBuild_* operators of spec.md §4.2: each
// one takes one or two operand Code blocks plus the ambient ir.Context and
// returns a result Code, performing constant folding, the usual arithmetic
// conversions, short-circuit backpatching, and three-address statement
// emission. It is the glue between the parser-facing layer (which hands it
// already-lowered operand Codes) and the raw Stmt/Code primitives in
// package ir.
package builder

import (
	"github.com/mna/cirstage/lang/diag"
	"github.com/mna/cirstage/lang/ir"
)

// Builder threads an ir.Context through every operator. It is deliberately
// thin — it owns no state of its own beyond the Context — matching the
// "single Context record" design note of spec.md §9.
type Builder struct {
	Ctx *ir.Context
}

// New returns a Builder over ctx.
func New(ctx *ir.Context) *Builder { return &Builder{Ctx: ctx} }

// newTemp allocates a fresh function-scope local of type t and records it
// as owned by code. The caller is responsible for ensuring code is the
// enclosing function's top-level code block (or a block whose ownership
// will ultimately flow there via AppendCode).
func (b *Builder) newTemp(code *ir.Code, t ir.TypeID) ir.VarID {
	v := b.Ctx.Vars.New(ir.Var{Type: t})
	code.Owns = append(code.Owns, v)
	return v
}

// emit appends stmt (built via one of ir.NewXxx) as a new orphan statement
// into code and returns its handle.
func (b *Builder) emit(code *ir.Code, stmt ir.Stmt) ir.StmtID {
	h := b.Ctx.Stmts.New(stmt)
	ir.AppendStmt(b.Ctx.Stmts, code, h)
	return h
}

// ToExpr implements spec.md §4.3's to_expr: the only way a value is
// produced from a Cond. dropValue, when code is already an Expr, clears its
// result value (used when a statement context discards an expression's
// value, e.g. a bare expression statement).
func (b *Builder) ToExpr(code *ir.Code, dropValue bool) *ir.Code {
	if code.Kind == ir.CodeExpr {
		if dropValue {
			code.HasValue = false
		}
		return code
	}

	hasTrue := len(code.TrueJumps) > 0
	hasFalse := len(code.FalseJumps) > 0
	switch {
	case !hasTrue && !hasFalse:
		diag.Bug("to_expr: cond has neither truejumps nor falsejumps")
	case hasTrue && !hasFalse:
		return ir.NewExprValue(ir.NewInt(b.Ctx.Types.Int(ir.IInt), 1))
	case !hasTrue && hasFalse:
		return ir.NewExprValue(ir.NewInt(b.Ctx.Types.Int(ir.IInt), 0))
	}

	intType := b.Ctx.Types.Int(ir.IInt)
	temp := b.Ctx.Vars.New(ir.Var{Type: intType})
	code.Owns = append(code.Owns, temp)

	// Patch every truejump to "temp = 1; goto end", every falsejump to
	// "temp = 0" (which falls straight through to end).
	setTrue := b.emit(code, ir.NewUnOp(temp, ir.UIdentity, ir.NewInt(intType, 1)))
	gotoEnd := b.emit(code, ir.NewGoto())
	setFalse := b.emit(code, ir.NewUnOp(temp, ir.UIdentity, ir.NewInt(intType, 0)))
	end := b.emit(code, ir.NewNop())

	b.patchJumps(code.TrueJumps, setTrue)
	b.patchJumps(code.FalseJumps, setFalse)
	b.Ctx.Stmts.Get(gotoEnd).JumpTarget = end

	return &ir.Code{
		Kind:     ir.CodeExpr,
		First:    code.First,
		Last:     code.Last,
		Owns:     code.Owns,
		HasValue: true,
		Value:    ir.NewVar(intType, temp),
	}
}

// patchJumps sets JumpTarget on every statement handle in jumps to target.
func (b *Builder) patchJumps(jumps []ir.StmtID, target ir.StmtID) {
	for _, j := range jumps {
		b.Ctx.Stmts.Get(j).JumpTarget = target
	}
}

// ToCond, PatchJumps, NewTemp, Emit, and CoerceTo re-export this package's
// internal Cond/backpatch/temp primitives for the parser-facing layer: a
// concrete grammar occasionally needs to lower a control construct (e.g.
// do/while, switch) that spec.md's build_op vocabulary doesn't name
// directly, using the same Cmp+Goto backpatch shape the named operators
// use rather than inventing a second one.

// ToCond coerces any Code into a Cond, exactly as the named operators do
// internally before backpatching.
func (b *Builder) ToCond(code *ir.Code) *ir.Code { return b.toCond(code) }

// PatchJumps sets JumpTarget on every statement handle in jumps to target.
func (b *Builder) PatchJumps(jumps []ir.StmtID, target ir.StmtID) { b.patchJumps(jumps, target) }

// NewTemp allocates a fresh function-scope local of type t, owned by code.
func (b *Builder) NewTemp(code *ir.Code, t ir.TypeID) ir.VarID { return b.newTemp(code, t) }

// Emit appends stmt as a new orphan statement into code.
func (b *Builder) Emit(code *ir.Code, stmt ir.Stmt) ir.StmtID { return b.emit(code, stmt) }

// CoerceTo converts v (produced within code) to target's type, following
// the same constant-reinterpret-or-relabel rule the arithmetic operators
// apply to their operands.
func (b *Builder) CoerceTo(code *ir.Code, v ir.Value, target ir.TypeID) ir.Value {
	return b.coerceInt(code, v, target)
}

// SnapshotToTemp evaluates v once into a fresh temporary owned by code and
// returns a Value referring to that temporary, so a value computed once
// (e.g. a switch's subject expression) can be compared against repeatedly
// without re-running any side effects it carried.
func (b *Builder) SnapshotToTemp(code *ir.Code, v ir.Value) ir.Value {
	dst := b.newTemp(code, v.Type)
	b.emit(code, ir.NewUnOp(dst, ir.UIdentity, v))
	return ir.NewVar(v.Type, dst)
}

// isConstInt reports whether c is an Expr code whose value is a compile-time
// integer constant, returning the value for convenience.
func isConstInt(c *ir.Code) (ir.Value, bool) {
	if c.Kind == ir.CodeExpr && c.HasValue && c.Value.Kind == ir.VInt {
		return c.Value, true
	}
	return ir.Value{}, false
}
