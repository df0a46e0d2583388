package builder

import (
	"github.com/mna/cirstage/lang/diag"
	"github.com/mna/cirstage/lang/ir"
)

// Neg and BitNot implement unary `-` and `~`: fold a constant operand,
// otherwise emit a single UnOp into a fresh temporary, the same shape
// BuildArith uses for binary operators.
func (b *Builder) Neg(operand *ir.Code) *ir.Code {
	e := b.ToExpr(operand, false)
	out := &ir.Code{Kind: ir.CodeExpr}
	ir.AppendCode(b.Ctx.Stmts, out, e)
	if e.Value.Kind == ir.VInt {
		ik := b.Ctx.Types.Get(e.Value.Type).IKind
		out.HasValue = true
		out.Value = ir.NewInt(e.Value.Type, int64(ik.Truncate(uint64(-e.Value.Int), b.Ctx.Machine)))
		return out
	}
	dst := b.newTemp(out, e.Value.Type)
	b.emit(out, ir.NewUnOp(dst, ir.UNeg, e.Value))
	out.HasValue = true
	out.Value = ir.NewVar(e.Value.Type, dst)
	return out
}

func (b *Builder) BitNot(operand *ir.Code) *ir.Code {
	e := b.ToExpr(operand, false)
	out := &ir.Code{Kind: ir.CodeExpr}
	ir.AppendCode(b.Ctx.Stmts, out, e)
	if e.Value.Kind == ir.VInt {
		ik := b.Ctx.Types.Get(e.Value.Type).IKind
		out.HasValue = true
		out.Value = ir.NewInt(e.Value.Type, int64(ik.Truncate(^uint64(e.Value.Int), b.Ctx.Machine)))
		return out
	}
	dst := b.newTemp(out, e.Value.Type)
	b.emit(out, ir.NewUnOp(dst, ir.UBitNot, e.Value))
	out.HasValue = true
	out.Value = ir.NewVar(e.Value.Type, dst)
	return out
}

// Addr implements unary `&`: operand must already be an lvalue-carrying
// Expr code (the caller — lang/cparser — is responsible for rejecting a
// non-lvalue operand with a user-facing diagnostic before calling this;
// reaching here with one anyway is a Bug, not a Fatal, since the front end
// is supposed to have already checked).
func (b *Builder) Addr(operand *ir.Code) *ir.Code {
	if operand.Kind != ir.CodeExpr || !operand.HasValue || !operand.Value.IsLvalue() {
		diag.Bug("build_op: & operand is not an lvalue")
	}
	resultType := b.Ctx.Types.Ptr(operand.Value.Type)
	out := &ir.Code{Kind: ir.CodeExpr}
	ir.AppendCode(b.Ctx.Stmts, out, operand)
	dst := b.newTemp(out, resultType)
	b.emit(out, ir.NewUnOp(dst, ir.UAddr, operand.Value))
	out.HasValue = true
	out.Value = ir.NewVar(resultType, dst)
	return out
}

// Deref implements unary `*`: operand's type must unroll to a Ptr.
func (b *Builder) Deref(operand *ir.Code) *ir.Code {
	e := b.ToExpr(operand, false)
	unrolled := b.Ctx.Unroll(e.Value.Type)
	ty := b.Ctx.Types.Get(unrolled)
	if ty.Kind != ir.KPtr {
		diag.Bug("build_op: * operand is not a pointer")
	}
	resultType := ty.Base
	out := &ir.Code{Kind: ir.CodeExpr}
	ir.AppendCode(b.Ctx.Stmts, out, e)
	dst := b.newTemp(out, resultType)
	b.emit(out, ir.NewUnOp(dst, ir.UDeref, e.Value))
	out.HasValue = true
	out.Value = ir.NewVar(resultType, dst)
	return out
}

// Cast implements an explicit `(T)expr` conversion: it reinterprets a
// constant's bit pattern at T's width (truncating/sign-extending) and
// simply relabels a non-constant value's static Type, matching
// coerceInt's existing reinterpret-in-place semantics for the usual
// arithmetic conversions.
func (b *Builder) Cast(operand *ir.Code, t ir.TypeID) *ir.Code {
	e := b.ToExpr(operand, false)
	e.Value = b.coerceInt(e, e.Value, t)
	return e
}
