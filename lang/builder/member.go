package builder

import (
	"github.com/mna/cirstage/lang/diag"
	"github.com/mna/cirstage/lang/ir"
)

// Call implements a function call: every argument converts to Expr left to
// right, then a single Call statement is emitted. A `void`-returning callee
// produces a valueless Expr; anything else emits into a fresh temporary of
// the unrolled return type.
func (b *Builder) Call(target *ir.Code, args []*ir.Code) *ir.Code {
	t := b.ToExpr(target, false)
	out := &ir.Code{Kind: ir.CodeExpr}
	ir.AppendCode(b.Ctx.Stmts, out, t)

	argVals := make([]ir.Value, len(args))
	for i, a := range args {
		ae := b.ToExpr(a, false)
		ir.AppendCode(b.Ctx.Stmts, out, ae)
		argVals[i] = ae.Value
	}

	fnType := b.Ctx.Types.Get(b.Ctx.Unroll(t.Value.Type))
	if fnType.Kind == ir.KPtr {
		fnType = b.Ctx.Types.Get(b.Ctx.Unroll(fnType.Base))
	}
	if fnType.Kind != ir.KFun {
		diag.Bug("build_op: call target is not a function")
	}
	retType := fnType.Base
	if b.Ctx.Types.Get(b.Ctx.Unroll(retType)).Kind == ir.KVoid {
		b.emit(out, ir.NewCall(0, false, t.Value, argVals))
		return out
	}

	dst := b.newTemp(out, retType)
	b.emit(out, ir.NewCall(dst, true, t.Value, argVals))
	out.HasValue = true
	out.Value = ir.NewVar(retType, dst)
	return out
}

// Index implements `arr[idx]` as `*(arr + idx)`: an array operand decays to
// a pointer to its first element (via UAddr, since the array's own storage
// is the element data, not a stored pointer), a pointer operand is used
// as-is, then BuildArith's existing pointer-arithmetic path plus Deref do
// the rest.
func (b *Builder) Index(arr, idx *ir.Code) *ir.Code {
	e := b.ToExpr(arr, false)
	ty := b.Ctx.Types.Get(b.Ctx.Unroll(e.Value.Type))
	switch ty.Kind {
	case ir.KArray:
		ptrType := b.Ctx.Types.Ptr(ty.Base)
		out := &ir.Code{Kind: ir.CodeExpr}
		ir.AppendCode(b.Ctx.Stmts, out, e)
		dst := b.newTemp(out, ptrType)
		b.emit(out, ir.NewUnOp(dst, ir.UAddr, e.Value))
		out.HasValue = true
		out.Value = ir.NewVar(ptrType, dst)
		e = out
	case ir.KPtr:
		// already usable as the pointer operand
	default:
		diag.Bug("build_op: [] operand is not an array or pointer")
	}
	return b.Deref(b.BuildArith(OpPlus, e, idx))
}

// Member implements `.`/`->`: arrow selects whether obj's value is already
// the base pointer (a struct accessed through a pointer) or must first have
// its address taken (a struct object accessed directly). offset is the
// field's byte offset within the composite, fieldType its declared type;
// the caller (lang/cparser) resolves both via ir.CompLayout before calling
// this, since composite layout is a parser-level, not builder-level,
// concern.
func (b *Builder) Member(obj *ir.Code, offset int64, fieldType ir.TypeID, arrow bool) *ir.Code {
	e := b.ToExpr(obj, false)
	out := &ir.Code{Kind: ir.CodeExpr}
	ir.AppendCode(b.Ctx.Stmts, out, e)

	var baseVar ir.VarID
	if arrow {
		if e.Value.Kind == ir.VVar {
			baseVar = e.Value.Var
		} else {
			baseVar = b.newTemp(out, e.Value.Type)
			b.emit(out, ir.NewUnOp(baseVar, ir.UIdentity, e.Value))
		}
	} else {
		if !e.Value.IsLvalue() {
			diag.Bug("build_op: . operand is not an lvalue")
		}
		ptrType := b.Ctx.Types.Ptr(e.Value.Type)
		baseVar = b.newTemp(out, ptrType)
		b.emit(out, ir.NewUnOp(baseVar, ir.UAddr, e.Value))
	}

	out.HasValue = true
	out.Value = ir.NewMem(fieldType, baseVar, offset)
	return out
}
