package builder

import (
	"github.com/mna/cirstage/lang/ir"
)

// BuildCompare implements the relational/equality half of spec.md §4.2:
// both operands convert to Expr and the usual arithmetic conversions
// apply; a constant comparison folds directly to an Expr(0/1); otherwise
// it emits a single Cmp statement plus a Goto and returns a Cond code
// whose truejumps contain the Cmp (the taken/"equal" edge) and whose
// falsejumps contain the Goto (the fallthrough edge).
func (b *Builder) BuildCompare(op ir.CmpOp, lhs, rhs *ir.Code) *ir.Code {
	l := b.ToExpr(lhs, false)
	r := b.ToExpr(rhs, false)
	lv, rv := l.Value, r.Value

	resultType := b.arithResultType(lv.Type, rv.Type)
	lv = b.coerceInt(l, lv, resultType)
	rv = b.coerceInt(r, rv, resultType)

	out := &ir.Code{Kind: ir.CodeCond}
	ir.AppendCode(b.Ctx.Stmts, out, l)
	ir.AppendCode(b.Ctx.Stmts, out, r)

	if lv.Kind == ir.VInt && rv.Kind == ir.VInt {
		truth := foldCompare(op, lv.Int, rv.Int)
		return boolExpr(out, b.Ctx.Types.Int(ir.IInt), truth)
	}

	cmp := b.emit(out, ir.NewCmp(op, lv, rv))
	goTo := b.emit(out, ir.NewGoto())
	out.TrueJumps = []ir.StmtID{cmp}
	out.FalseJumps = []ir.StmtID{goTo}
	return out
}

// boolExpr converts a statement-carrying Cond shell with no conditional
// statements emitted into a folded Expr(0/1), reusing whatever side-effect
// statements were already spliced in from the operands.
func boolExpr(shell *ir.Code, intType ir.TypeID, truth bool) *ir.Code {
	shell.Kind = ir.CodeExpr
	shell.HasValue = true
	bit := int64(0)
	if truth {
		bit = 1
	}
	shell.Value = ir.NewInt(intType, bit)
	return shell
}

func foldCompare(op ir.CmpOp, a, b int64) bool {
	switch op {
	case ir.CmpEq:
		return a == b
	case ir.CmpNe:
		return a != b
	case ir.CmpLt:
		return a < b
	case ir.CmpLe:
		return a <= b
	case ir.CmpGt:
		return a > b
	case ir.CmpGe:
		return a >= b
	default:
		return false
	}
}

// toCond coerces any Code into a Cond: an existing Cond passes through; an
// Expr emits `Cmp value != 0` plus `Goto` (spec.md §4.3 "coerce lhs into a
// Cond").
func (b *Builder) toCond(code *ir.Code) *ir.Code {
	if code.Kind == ir.CodeCond {
		return code
	}
	if !code.HasValue {
		panic("ir: cannot coerce a valueless Expr to Cond")
	}
	zero := ir.NewInt(code.Value.Type, 0)
	out := &ir.Code{Kind: ir.CodeCond}
	ir.AppendCode(b.Ctx.Stmts, out, code)
	cmp := b.emit(out, ir.NewCmp(ir.CmpNe, code.Value, zero))
	goTo := b.emit(out, ir.NewGoto())
	out.TrueJumps = []ir.StmtID{cmp}
	out.FalseJumps = []ir.StmtID{goTo}
	return out
}

// LogicalAnd implements spec.md §4.3's `&&` lowering.
func (b *Builder) LogicalAnd(lhs, rhs *ir.Code) *ir.Code {
	if v, ok := isConstInt(lhs); ok {
		if v.Int == 0 {
			return &ir.Code{Kind: ir.CodeExpr, HasValue: true, Value: ir.NewInt(b.Ctx.Types.Int(ir.IInt), 0)}
		}
		return b.normalizeBool(rhs)
	}

	l := b.toCond(lhs)
	r := b.toCond(rhs)
	b.patchJumps(l.TrueJumps, firstStmt(r))
	merged := &ir.Code{Kind: ir.CodeCond}
	ir.AppendCode(b.Ctx.Stmts, merged, l)
	ir.AppendCode(b.Ctx.Stmts, merged, r)
	merged.TrueJumps = r.TrueJumps
	merged.FalseJumps = append(append([]ir.StmtID{}, l.FalseJumps...), r.FalseJumps...)
	return merged
}

// LogicalOr implements spec.md §4.3's `||` lowering, symmetric to
// LogicalAnd: it backpatches falsejumps instead of truejumps.
func (b *Builder) LogicalOr(lhs, rhs *ir.Code) *ir.Code {
	if v, ok := isConstInt(lhs); ok {
		if v.Int != 0 {
			return &ir.Code{Kind: ir.CodeExpr, HasValue: true, Value: ir.NewInt(b.Ctx.Types.Int(ir.IInt), 1)}
		}
		return b.normalizeBool(rhs)
	}

	l := b.toCond(lhs)
	r := b.toCond(rhs)
	b.patchJumps(l.FalseJumps, firstStmt(r))
	merged := &ir.Code{Kind: ir.CodeCond}
	ir.AppendCode(b.Ctx.Stmts, merged, l)
	ir.AppendCode(b.Ctx.Stmts, merged, r)
	merged.FalseJumps = r.FalseJumps
	merged.TrueJumps = append(append([]ir.StmtID{}, l.TrueJumps...), r.TrueJumps...)
	return merged
}

// normalizeBool converts rhs to an Expr with a 0/1 int value, per spec.md
// §4.3's "result = rhs (converted to Expr with 0/1 normalization if it was
// a Cond)".
func (b *Builder) normalizeBool(rhs *ir.Code) *ir.Code { return b.ToExpr(rhs, false) }

// firstStmt returns the handle of c's first statement; c must be
// non-empty, which toCond/BuildCompare always guarantee (every Cond they
// build carries at least a Cmp).
func firstStmt(c *ir.Code) ir.StmtID { return c.First }

// LogicalNot implements spec.md §4.3's `!`: swaps a Cond's truejump and
// falsejump lists; folds a constant Expr; otherwise coerces to Cond first
// and then swaps.
func (b *Builder) LogicalNot(operand *ir.Code) *ir.Code {
	if v, ok := isConstInt(operand); ok {
		truth := int64(0)
		if v.Int == 0 {
			truth = 1
		}
		return &ir.Code{Kind: ir.CodeExpr, HasValue: true, Value: ir.NewInt(b.Ctx.Types.Int(ir.IInt), truth)}
	}
	c := b.toCond(operand)
	c.TrueJumps, c.FalseJumps = c.FalseJumps, c.TrueJumps
	return c
}

// firstStmtOrNop returns body's first statement, inserting a leading Nop
// first if body is empty so there is always a concrete statement handle to
// backpatch a jump to.
func firstStmtOrNop(b *Builder, body *ir.Code) ir.StmtID {
	if body.First != 0 {
		return body.First
	}
	nop := b.Ctx.Stmts.New(ir.NewNop())
	ir.AppendStmt(b.Ctx.Stmts, body, nop)
	return nop
}

// If implements spec.md §4.3's `if (c) then else` lowering: coerce c to
// Cond, splice `then` after backpatching truejumps to its first statement,
// optionally emit a `Goto rest`, splice `else` after backpatching
// falsejumps. All remaining truejumps/falsejumps backpatch to a single
// `rest` statement appended at the end. elseCode may be nil for a
// bodyless else.
func (b *Builder) If(cond, thenCode, elseCode *ir.Code) *ir.Code {
	if v, ok := isConstInt(cond); ok {
		if v.Int != 0 {
			return thenCode
		}
		if elseCode != nil {
			return elseCode
		}
		return ir.NewEmptyExpr()
	}

	c := b.toCond(cond)
	out := &ir.Code{Kind: ir.CodeExpr}
	ir.AppendCode(b.Ctx.Stmts, out, c)

	b.patchJumps(c.TrueJumps, firstStmtOrNop(b, thenCode))
	ir.AppendCode(b.Ctx.Stmts, out, thenCode)

	var skipElse ir.StmtID
	if elseCode != nil {
		skipElse = b.emit(out, ir.NewGoto())
		b.patchJumps(c.FalseJumps, firstStmtOrNop(b, elseCode))
		ir.AppendCode(b.Ctx.Stmts, out, elseCode)
	}

	rest := b.emit(out, ir.NewNop())
	if elseCode != nil {
		b.Ctx.Stmts.Get(skipElse).JumpTarget = rest
	} else {
		b.patchJumps(c.FalseJumps, rest)
	}
	return out
}

// Ternary implements the `cond ? then : else` operator: both branches must
// produce a value, so it follows If's backpatch shape but additionally
// merges the two branch values into one fresh temporary, the way ToExpr
// merges a Cond's truejumps/falsejumps into a 0/1 temporary.
func (b *Builder) Ternary(cond, thenCode, elseCode *ir.Code) *ir.Code {
	if v, ok := isConstInt(cond); ok {
		if v.Int != 0 {
			return b.ToExpr(thenCode, false)
		}
		return b.ToExpr(elseCode, false)
	}

	then := b.ToExpr(thenCode, false)
	els := b.ToExpr(elseCode, false)
	resultType := then.Value.Type
	if then.Value.Type != els.Value.Type {
		resultType = b.arithResultType(then.Value.Type, els.Value.Type)
	}

	c := b.toCond(cond)
	out := &ir.Code{Kind: ir.CodeExpr}
	ir.AppendCode(b.Ctx.Stmts, out, c)
	temp := b.newTemp(out, resultType)

	b.patchJumps(c.TrueJumps, firstStmtOrNop(b, then))
	ir.AppendCode(b.Ctx.Stmts, out, then)
	b.emit(out, ir.NewUnOp(temp, ir.UIdentity, b.coerceInt(then, then.Value, resultType)))
	skipElse := b.emit(out, ir.NewGoto())

	b.patchJumps(c.FalseJumps, firstStmtOrNop(b, els))
	ir.AppendCode(b.Ctx.Stmts, out, els)
	b.emit(out, ir.NewUnOp(temp, ir.UIdentity, b.coerceInt(els, els.Value, resultType)))

	end := b.emit(out, ir.NewNop())
	b.Ctx.Stmts.Get(skipElse).JumpTarget = end

	out.HasValue = true
	out.Value = ir.NewVar(resultType, temp)
	return out
}

// LoopAnchors are the two orphan Nop statements the caller must allocate
// and push via env.PushLoop *before* lowering a loop's body, so that any
// `continue`/`break` encountered while lowering the body can already emit
// a Goto whose JumpTarget is one of these handles. ForLoop places the same
// handles into the final statement chain at the positions those jumps
// actually need to reach (spec.md §9 fixes the contract to always own the
// rest/break statement this way, rather than the source's inconsistent
// alternate signature).
type LoopAnchors struct {
	Continue ir.StmtID
	Break    ir.StmtID
}

// NewLoopAnchors allocates a fresh pair of orphan Nop statements for a
// loop about to be parsed.
func (b *Builder) NewLoopAnchors() LoopAnchors {
	return LoopAnchors{
		Continue: b.Ctx.Stmts.New(ir.NewNop()),
		Break:    b.Ctx.Stmts.New(ir.NewNop()),
	}
}

// ForLoop implements spec.md §4.3's three-part `for` lowering. init may be
// nil. cond may be nil (treated as constant-true). step may be nil, in
// which case anchors.Continue sits directly before the condition re-check
// instead of before step.
func (b *Builder) ForLoop(init, cond, step, body *ir.Code, anchors LoopAnchors) *ir.Code {
	out := &ir.Code{Kind: ir.CodeExpr}
	if init != nil {
		ir.AppendCode(b.Ctx.Stmts, out, init)
	}

	if cond != nil {
		if v, ok := isConstInt(cond); ok && v.Int == 0 {
			// constant-false condition: loop body never executes, but its
			// locals were already declared in the now-discarded body code, so
			// nothing further needs splicing.
			ir.AppendStmt(b.Ctx.Stmts, out, anchors.Break)
			return out
		}
	}

	head := b.emit(out, ir.NewNop())

	var falseJumps []ir.StmtID
	if cond != nil {
		c := b.toCond(cond)
		ir.AppendCode(b.Ctx.Stmts, out, c)
		b.patchJumps(c.TrueJumps, firstStmtOrNop(b, body))
		falseJumps = c.FalseJumps
	}

	ir.AppendCode(b.Ctx.Stmts, out, body)

	ir.AppendStmt(b.Ctx.Stmts, out, anchors.Continue)
	if step != nil {
		ir.AppendCode(b.Ctx.Stmts, out, step)
	}
	backEdge := b.emit(out, ir.NewGoto())
	b.Ctx.Stmts.Get(backEdge).JumpTarget = head

	b.patchJumps(falseJumps, anchors.Break)
	ir.AppendStmt(b.Ctx.Stmts, out, anchors.Break)
	return out
}
