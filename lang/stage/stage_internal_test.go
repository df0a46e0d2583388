package stage

import (
	"testing"

	"github.com/mna/cirstage/lang/ir"
	"github.com/mna/cirstage/lang/target"
)

// TestClassifyReturnVoidIsResultNone covers spec.md §4.7 rule 5's `void`
// case: a staged function returning void always yields ResultNone,
// regardless of the raw register value.
func TestClassifyReturnVoidIsResultNone(t *testing.T) {
	ctx := ir.NewContext(target.LinuxAMD64GCC())
	s := New(ctx, nil)
	funType := ctx.Types.Fun(ctx.Types.Void(), nil, false)
	vid := ctx.Vars.New(ir.Var{Name: "f", Type: funType})

	res, err := s.classifyReturn(ctx.Vars.Get(vid), 0xdeadbeef)
	if err != nil {
		t.Fatalf("classifyReturn: %v", err)
	}
	if res.Kind != ResultNone {
		t.Errorf("expected ResultNone for a void-returning staged call, got %v", res.Kind)
	}
}

// TestClassifyReturnOrdinaryScalar covers the default rule 5 case: a
// non-void return with no matching splice-table entry is an ordinary
// ResultValue carrying the raw bits reinterpreted at the return type.
func TestClassifyReturnOrdinaryScalar(t *testing.T) {
	ctx := ir.NewContext(target.LinuxAMD64GCC())
	s := New(ctx, nil)
	intType := ctx.Types.Int(ir.IInt)
	funType := ctx.Types.Fun(intType, nil, false)
	vid := ctx.Vars.New(ir.Var{Name: "f", Type: funType})

	res, err := s.classifyReturn(ctx.Vars.Get(vid), 42)
	if err != nil {
		t.Fatalf("classifyReturn: %v", err)
	}
	if res.Kind != ResultValue || res.Value.Int != 42 {
		t.Errorf("expected ResultValue(42), got %+v", res)
	}
}

// TestClassifyReturnValueSpliceSentinel covers the value-splice case: once
// SpliceValue has registered an id, a raw return equal to that id must be
// recognized instead of read as a literal scalar.
func TestClassifyReturnValueSpliceSentinel(t *testing.T) {
	ctx := ir.NewContext(target.LinuxAMD64GCC())
	s := New(ctx, nil)
	intType := ctx.Types.Int(ir.IInt)
	funType := ctx.Types.Fun(intType, nil, false)
	vid := ctx.Vars.New(ir.Var{Name: "f", Type: funType})

	inner := ir.NewInt(intType, 7)
	sentinel := s.SpliceValue(ir.NewExprValue(inner), inner)

	res, err := s.classifyReturn(ctx.Vars.Get(vid), uintptr(sentinel.User))
	if err != nil {
		t.Fatalf("classifyReturn: %v", err)
	}
	if res.Kind != ResultValueSplice {
		t.Fatalf("expected ResultValueSplice, got %v", res.Kind)
	}
	if res.ValueSplice.Inner.Int != 7 {
		t.Errorf("expected the registered splice's inner value to round-trip, got %+v", res.ValueSplice.Inner)
	}
}

// TestClassifyReturnStmtSpliceSentinel mirrors the above for the
// statement-splice case.
func TestClassifyReturnStmtSpliceSentinel(t *testing.T) {
	ctx := ir.NewContext(target.LinuxAMD64GCC())
	s := New(ctx, nil)
	funType := ctx.Types.Fun(ctx.Types.Int(ir.IInt), nil, false)
	vid := ctx.Vars.New(ir.Var{Name: "f", Type: funType})

	id := s.SpliceStmt(ir.NewEmptyExpr(), map[ir.VarID]ir.VarID{1: 2})

	res, err := s.classifyReturn(ctx.Vars.Get(vid), uintptr(id))
	if err != nil {
		t.Fatalf("classifyReturn: %v", err)
	}
	if res.Kind != ResultStmtSplice {
		t.Fatalf("expected ResultStmtSplice, got %v", res.Kind)
	}
	if got := res.StmtSplice.Rewrite[1]; got != 2 {
		t.Errorf("expected the registered rewrite table to round-trip, got %v", got)
	}
}
