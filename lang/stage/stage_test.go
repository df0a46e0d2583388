package stage_test

import (
	"testing"

	"github.com/mna/cirstage/lang/ir"
	"github.com/mna/cirstage/lang/stage"
	"github.com/mna/cirstage/lang/target"
)

// TestRewriteVarsReplacesOperands covers spec.md §4.7's statement-splice
// rewrite: every VVar/VMem operand (and every Dst) naming a variable
// present in the Rewrite table must be replaced with the host-side
// variable; anything absent from the table passes through unchanged.
func TestRewriteVarsReplacesOperands(t *testing.T) {
	ctx := ir.NewContext(target.LinuxAMD64GCC())
	intType := ctx.Types.Int(ir.IInt)

	const (
		stagedTmp ir.VarID = 1
		stagedArg ir.VarID = 2
		hostTmp   ir.VarID = 100
		unrelated ir.VarID = 3
	)

	stmt := ir.NewBinOp(stagedTmp, ir.BPlus, ir.NewVar(intType, stagedArg), ir.NewVar(intType, unrelated))
	sh := ctx.Stmts.New(stmt)
	code := ir.NewEmptyExpr()
	ir.AppendStmt(ctx.Stmts, code, sh)

	ss := stage.StmtSplice{
		Code:    code,
		Rewrite: map[ir.VarID]ir.VarID{stagedTmp: hostTmp, stagedArg: hostTmp + 1},
	}
	ss.RewriteVars(ctx.Stmts)

	got := ctx.Stmts.Get(sh)
	if got.Dst != hostTmp {
		t.Errorf("Dst should be rewritten to the host var, got %v want %v", got.Dst, hostTmp)
	}
	if got.A.Var != hostTmp+1 {
		t.Errorf("operand A naming a rewritten staged var should be remapped, got %v", got.A.Var)
	}
	if got.B.Var != unrelated {
		t.Errorf("operand B naming a var absent from the rewrite table must be left unchanged, got %v", got.B.Var)
	}
}

// TestSpliceValueAndSpliceStmtUseIndependentCounters checks the two splice
// counters (UserValueSeq/UserStmtSeq) are separate sequences, per spec.md
// §9's "two user-kind ID counters": minting a statement splice must not
// advance the value-splice counter, and vice versa.
func TestSpliceValueAndSpliceStmtUseIndependentCounters(t *testing.T) {
	ctx := ir.NewContext(target.LinuxAMD64GCC())
	s := stage.New(ctx, nil)
	intType := ctx.Types.Int(ir.IInt)

	v1 := s.SpliceValue(ir.NewEmptyExpr(), ir.NewInt(intType, 1))
	v2 := s.SpliceValue(ir.NewEmptyExpr(), ir.NewInt(intType, 2))
	if v1.User == v2.User {
		t.Error("two distinct SpliceValue calls must mint distinct ids")
	}
	if ctx.UserStmtSeq != 0 {
		t.Errorf("SpliceValue must not advance the statement-splice counter, got UserStmtSeq=%d", ctx.UserStmtSeq)
	}

	id1 := s.SpliceStmt(ir.NewEmptyExpr(), nil)
	id2 := s.SpliceStmt(ir.NewEmptyExpr(), nil)
	if id1 == id2 {
		t.Error("two distinct SpliceStmt calls must mint distinct ids")
	}
	if ctx.UserValueSeq != int64(2) {
		t.Errorf("SpliceStmt must not advance the value-splice counter, expected UserValueSeq to stay at 2, got %d", ctx.UserValueSeq)
	}
}
