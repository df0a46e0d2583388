package builder_test

import (
	"testing"

	"github.com/mna/cirstage/lang/builder"
	"github.com/mna/cirstage/lang/ir"
	"github.com/mna/cirstage/lang/target"
)

func newTestBuilder() *builder.Builder {
	return builder.New(ir.NewContext(target.LinuxAMD64GCC()))
}

func constExpr(b *builder.Builder, v int64) *ir.Code {
	return ir.NewExprValue(ir.NewInt(b.Ctx.Types.Int(ir.IInt), v))
}

func runtimeExpr(b *builder.Builder, t ir.TypeID) *ir.Code {
	v := b.Ctx.Vars.New(ir.Var{Type: t})
	return ir.NewExprValue(ir.NewVar(t, v))
}

// TestConstFold is spec.md §8 scenario 1: `1 + 2 * 3` folds entirely to a
// literal, with no BinOp statement emitted.
func TestConstFold(t *testing.T) {
	b := newTestBuilder()
	mul := b.BuildArith(builder.OpMul, constExpr(b, 2), constExpr(b, 3))
	sum := b.BuildArith(builder.OpPlus, constExpr(b, 1), mul)

	if !sum.HasValue || sum.Value.Kind != ir.VInt {
		t.Fatalf("expected a folded constant value, got %+v", sum.Value)
	}
	if sum.Value.Int != 7 {
		t.Errorf("1 + 2*3 = %d, want 7", sum.Value.Int)
	}
	if sum.First != ir.None {
		t.Errorf("constant folding must not emit any statement, but code has First=%v", sum.First)
	}
}

// TestArithEmitsStatementForRuntimeOperand checks the non-constant path:
// a BinOp statement must be emitted into a fresh temporary.
func TestArithEmitsStatementForRuntimeOperand(t *testing.T) {
	b := newTestBuilder()
	intType := b.Ctx.Types.Int(ir.IInt)
	sum := b.BuildArith(builder.OpPlus, runtimeExpr(b, intType), constExpr(b, 1))

	if sum.Value.Kind != ir.VVar {
		t.Fatalf("expected result in a fresh temp, got kind %v", sum.Value.Kind)
	}
	if sum.First == ir.None {
		t.Error("expected a BinOp statement to have been emitted")
	}
	stmt := b.Ctx.Stmts.Get(sum.Last)
	if stmt.Kind != ir.SBinOp {
		t.Errorf("expected the last statement to be a BinOp, got %v", stmt.Kind)
	}
}

// TestPointerArithScalesRuntimeIndex covers spec.md §4.6's ptr+int scaling
// contract for a non-constant index: the emitted statement sequence must
// scale the index by the pointee's element size via an explicit BMul before
// the pointer BPlus, not leave the scale implicit for codegen to infer.
func TestPointerArithScalesRuntimeIndex(t *testing.T) {
	b := newTestBuilder()
	intType := b.Ctx.Types.Int(ir.IInt)
	ptrType := b.Ctx.Types.Ptr(intType) // pointee size 4 on this target

	sum := b.BuildArith(builder.OpPlus, runtimeExpr(b, ptrType), runtimeExpr(b, intType))
	if sum.Value.Kind != ir.VVar {
		t.Fatalf("expected result in a fresh temp, got kind %v", sum.Value.Kind)
	}

	var kinds []ir.StmtKind
	ir.Walk(b.Ctx.Stmts, sum, func(_ ir.StmtID, s *ir.Stmt) { kinds = append(kinds, s.Kind) })
	if len(kinds) != 2 || kinds[0] != ir.SBinOp || kinds[1] != ir.SBinOp {
		t.Fatalf("expected exactly two BinOp statements (scale then add), got %v", kinds)
	}

	scaleStmt := b.Ctx.Stmts.Get(sum.First)
	if scaleStmt.BOp != ir.BMul || scaleStmt.B.Kind != ir.VInt || scaleStmt.B.Int != 4 {
		t.Errorf("expected the index scaled by the pointee size (4) via BMul, got %+v", scaleStmt)
	}

	addStmt := b.Ctx.Stmts.Get(sum.Last)
	if addStmt.BOp != ir.BPlus || addStmt.B.Kind != ir.VVar || addStmt.B.Var != scaleStmt.Dst {
		t.Errorf("expected the pointer add to use the scaled temp as its right operand, got %+v", addStmt)
	}
}

// TestPointerArithByteSizedElemSkipsScale covers the scale-by-1 fast path
// (e.g. char* arithmetic): no BMul should be emitted since scaling by 1 is
// a no-op, only the pointer BPlus.
func TestPointerArithByteSizedElemSkipsScale(t *testing.T) {
	b := newTestBuilder()
	charType := b.Ctx.Types.Int(ir.IChar)
	ptrType := b.Ctx.Types.Ptr(charType)

	sum := b.BuildArith(builder.OpPlus, runtimeExpr(b, ptrType), runtimeExpr(b, charType))

	var kinds []ir.StmtKind
	ir.Walk(b.Ctx.Stmts, sum, func(_ ir.StmtID, s *ir.Stmt) { kinds = append(kinds, s.Kind) })
	if len(kinds) != 1 || kinds[0] != ir.SBinOp {
		t.Fatalf("expected exactly one BinOp statement (the add, no scale), got %v", kinds)
	}
	if b.Ctx.Stmts.Get(sum.Last).BOp != ir.BPlus {
		t.Error("expected the sole statement to be the pointer add")
	}
}

// TestToExprIdempotent is spec.md §8's `to_expr(to_expr(c,d),d) == to_expr(c,d)`.
func TestToExprIdempotent(t *testing.T) {
	b := newTestBuilder()
	intType := b.Ctx.Types.Int(ir.IInt)
	cond := b.BuildCompare(ir.CmpLt, runtimeExpr(b, intType), constExpr(b, 10))

	once := b.ToExpr(cond, false)
	if once.Kind != ir.CodeExpr {
		t.Fatalf("expected ToExpr to produce an Expr code, got %v", once.Kind)
	}
	if once.Value.Type != intType {
		t.Errorf("to_expr's merged temp must have kind int, got type %v", once.Value.Type)
	}

	twice := b.ToExpr(once, false)
	if twice != once {
		t.Error("ToExpr on an already-Expr code must be the identity (same pointer, no new temp)")
	}
}

// TestShortCircuitAndConstantTrue covers spec.md §4.3's `&&` fold: a
// constant-true lhs discards itself and takes rhs's value (converted if
// rhs was itself a Cond).
func TestShortCircuitAndConstantTrue(t *testing.T) {
	b := newTestBuilder()
	intType := b.Ctx.Types.Int(ir.IInt)
	rhs := b.BuildCompare(ir.CmpNe, runtimeExpr(b, intType), constExpr(b, 0))

	result := b.LogicalAnd(constExpr(b, 1), rhs)
	if result.Kind != ir.CodeExpr {
		t.Fatalf("constant-true && cond should normalize to Expr, got %v", result.Kind)
	}
}

// TestShortCircuitAndConstantFalse: a constant-false lhs drops rhs entirely
// and folds to Expr(0).
func TestShortCircuitAndConstantFalse(t *testing.T) {
	b := newTestBuilder()
	intType := b.Ctx.Types.Int(ir.IInt)
	rhs := b.BuildCompare(ir.CmpNe, runtimeExpr(b, intType), constExpr(b, 0))

	result := b.LogicalAnd(constExpr(b, 0), rhs)
	if !result.HasValue || result.Value.Kind != ir.VInt || result.Value.Int != 0 {
		t.Fatalf("constant-false && should fold to Expr(0), got %+v", result.Value)
	}
}

// TestShortCircuitAndRuntimeBackpatch exercises the general case: both
// operands runtime, lhs's truejumps must be backpatched to point at rhs's
// first statement (spec.md §4.3), and the merged Cond carries rhs's
// truejumps plus both falsejump lists.
func TestShortCircuitAndRuntimeBackpatch(t *testing.T) {
	b := newTestBuilder()
	intType := b.Ctx.Types.Int(ir.IInt)
	lhs := b.BuildCompare(ir.CmpNe, runtimeExpr(b, intType), constExpr(b, 0))
	rhs := b.BuildCompare(ir.CmpNe, runtimeExpr(b, intType), constExpr(b, 0))
	rhsFirst := rhs.First

	merged := b.LogicalAnd(lhs, rhs)
	if merged.Kind != ir.CodeCond {
		t.Fatalf("&& of two runtime conds must stay a Cond, got %v", merged.Kind)
	}

	// the lhs's Cmp (its sole truejump) must now target rhs's first statement
	lhsCmp := lhs.TrueJumps[0]
	if got := b.Ctx.Stmts.Get(lhsCmp).JumpTarget; got != rhsFirst {
		t.Errorf("lhs truejump should be backpatched to rhs's first statement %v, got %v", rhsFirst, got)
	}
	if len(merged.TrueJumps) != 1 {
		t.Errorf("merged truejumps should be exactly rhs's (1), got %d", len(merged.TrueJumps))
	}
	if len(merged.FalseJumps) != 2 {
		t.Errorf("merged falsejumps should be lhs's + rhs's (2), got %d", len(merged.FalseJumps))
	}
}

// TestLogicalNotSwapsJumps covers `!`: on a runtime Cond it swaps
// truejumps/falsejumps; on a constant it folds.
func TestLogicalNotSwapsJumps(t *testing.T) {
	b := newTestBuilder()
	intType := b.Ctx.Types.Int(ir.IInt)
	cond := b.BuildCompare(ir.CmpLt, runtimeExpr(b, intType), constExpr(b, 10))
	trueJumps, falseJumps := cond.TrueJumps, cond.FalseJumps

	notted := b.LogicalNot(cond)
	if len(notted.TrueJumps) != len(falseJumps) || len(notted.FalseJumps) != len(trueJumps) {
		t.Error("LogicalNot must swap truejump/falsejump lists")
	}

	folded := b.LogicalNot(constExpr(b, 0))
	if folded.Value.Int != 1 {
		t.Errorf("!0 should fold to 1, got %d", folded.Value.Int)
	}
}

// TestIfConstantConditionReducesToOneBranch: spec.md §4.3 "Constant c
// reduces to one branch only."
func TestIfConstantConditionReducesToOneBranch(t *testing.T) {
	b := newTestBuilder()
	then := constExpr(b, 1)
	els := constExpr(b, 2)

	if got := b.If(constExpr(b, 1), then, els); got != then {
		t.Error("constant-true if should reduce to the then branch")
	}
	if got := b.If(constExpr(b, 0), constExpr(b, 1), els); got != els {
		t.Error("constant-false if should reduce to the else branch")
	}
}

func TestForLoopConstantFalseSkipsBody(t *testing.T) {
	b := newTestBuilder()
	anchors := b.NewLoopAnchors()
	body := constExpr(b, 0) // never executed
	loop := b.ForLoop(nil, constExpr(b, 0), nil, body, anchors)
	if loop.First != anchors.Break {
		t.Errorf("a constant-false for-loop should reduce to just the break anchor, got First=%v want %v", loop.First, anchors.Break)
	}
}
