package builder

import "github.com/mna/cirstage/lang/ir"

// Assign implements simple `dstVar = rhs` (spec.md §4.2's build_op contract
// applied to the one assignment shape the ir package's Stmt.Dst can express:
// a plain variable, never a dereferenced pointer or a struct/array member).
// rhs converts to Expr and coerces to dstType; the result value is dstVar's
// new value, so a chained assignment `a = b = c` keeps working.
func (b *Builder) Assign(dstVar ir.VarID, dstType ir.TypeID, rhs *ir.Code) *ir.Code {
	r := b.ToExpr(rhs, false)
	out := &ir.Code{Kind: ir.CodeExpr}
	ir.AppendCode(b.Ctx.Stmts, out, r)
	v := b.coerceInt(r, r.Value, dstType)
	b.emit(out, ir.NewUnOp(dstVar, ir.UIdentity, v))
	out.HasValue = true
	out.Value = ir.NewVar(dstType, dstVar)
	return out
}

// CompoundAssign implements `dstVar op= rhs`: read dstVar's current value,
// combine it with rhs via BuildArith, and store the result back, matching
// how spec.md §4.2 treats a compound assignment as built_op followed by a
// simple assignment of the fold/emit result.
func (b *Builder) CompoundAssign(op ArithOp, dstVar ir.VarID, dstType ir.TypeID, rhs *ir.Code) *ir.Code {
	cur := &ir.Code{Kind: ir.CodeExpr, HasValue: true, Value: ir.NewVar(dstType, dstVar)}
	combined := b.BuildArith(op, cur, rhs)
	return b.Assign(dstVar, dstType, combined)
}

// IncDec implements `++x`/`--x`/`x++`/`x--`. prefix selects whether the
// expression's own value is the updated value (prefix) or the value
// observed before the update (postfix); delta is +1 or -1.
func (b *Builder) IncDec(dstVar ir.VarID, dstType ir.TypeID, delta int64, prefix bool) *ir.Code {
	one := &ir.Code{Kind: ir.CodeExpr, HasValue: true, Value: ir.NewInt(dstType, delta)}
	if prefix {
		return b.CompoundAssign(OpPlus, dstVar, dstType, one)
	}

	out := &ir.Code{Kind: ir.CodeExpr}
	old := b.newTemp(out, dstType)
	b.emit(out, ir.NewUnOp(old, ir.UIdentity, ir.NewVar(dstType, dstVar)))
	updated := b.CompoundAssign(OpPlus, dstVar, dstType, one)
	ir.AppendCode(b.Ctx.Stmts, out, updated)
	out.HasValue = true
	out.Value = ir.NewVar(dstType, old)
	return out
}
