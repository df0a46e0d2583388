package jit_test

import (
	"testing"

	"github.com/mna/cirstage/lang/ir"
	"github.com/mna/cirstage/lang/jit"
	"github.com/mna/cirstage/lang/target"
)

func newTestBackend(t *testing.T) (*jit.Backend, *ir.Context) {
	t.Helper()
	ctx := ir.NewContext(target.LinuxAMD64GCC())
	b, err := jit.NewBackend(ctx, jit.NewHostSymbols())
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	return b, ctx
}

// TestResolveGlobalVariableAllocatesArenaSpace covers spec.md §4.6's
// resolve(var) for a plain, non-extern global: it must land in
// AllocGlobal with a GlobalOffset sized/aligned from the var's type, and
// resolving the same var twice must be idempotent (same allocation, not a
// second reservation).
func TestResolveGlobalVariableAllocatesArenaSpace(t *testing.T) {
	b, ctx := newTestBackend(t)
	vid := ctx.Vars.New(ir.Var{Name: "counter", Type: ctx.Types.Int(ir.IInt)})

	a, err := b.Resolve(vid)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if a.Status != jit.AllocGlobal {
		t.Fatalf("expected AllocGlobal, got %v", a.Status)
	}

	again, err := b.Resolve(vid)
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if again != a || again.GlobalOffset != a.GlobalOffset {
		t.Error("resolving an already-resolved var must return the same allocation, not reserve new space")
	}
}

// TestResolveFunctionWithBodyEnqueuesForCompilation checks a defined
// function lands in AllocCompiling and is pushed onto the LIFO queue,
// without ever needing to actually run the generated code.
func TestResolveFunctionWithBodyEnqueuesForCompilation(t *testing.T) {
	b, ctx := newTestBackend(t)
	funType := ctx.Types.Fun(ctx.Types.Void(), nil, false)
	code := ir.NewEmptyExpr()
	bodyID := ctx.Codes.New(*code)
	vid := ctx.Vars.New(ir.Var{Name: "f", Type: funType, Body: bodyID})

	a, err := b.Resolve(vid)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if a.Status != jit.AllocCompiling {
		t.Errorf("expected AllocCompiling for a function with a body, got %v", a.Status)
	}
}

// TestResolveStaticFunctionWithoutBodyIsFatal: a static function prototype
// with no definition is a translation-unit error (Fatal), not an internal
// Bug, per backend.go's doc comment.
func TestResolveStaticFunctionWithoutBodyIsFatal(t *testing.T) {
	b, ctx := newTestBackend(t)
	funType := ctx.Types.Fun(ctx.Types.Void(), nil, false)
	vid := ctx.Vars.New(ir.Var{Name: "helper", Type: funType, Storage: ir.SCStatic})

	if _, err := b.Resolve(vid); err == nil {
		t.Error("a static function declared but never defined must fail to resolve")
	}
}

// TestResolveExternFunctionUsesHostSymbol covers the extern path: a
// function with no body resolves against the HostSymbols table.
func TestResolveExternFunctionUsesHostSymbol(t *testing.T) {
	ctx := ir.NewContext(target.LinuxAMD64GCC())
	symbols := jit.NewHostSymbols()
	symbols.RegisterStatic("puts", 0x4000)
	b, err := jit.NewBackend(ctx, symbols)
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}

	funType := ctx.Types.Fun(ctx.Types.Void(), nil, true)
	vid := ctx.Vars.New(ir.Var{Name: "puts", Type: funType, Storage: ir.SCExtern})

	a, err := b.Resolve(vid)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if a.Status != jit.AllocExternal || a.HostAddr != 0x4000 {
		t.Errorf("expected AllocExternal at the registered host address, got status=%v addr=%#x", a.Status, a.HostAddr)
	}
}

// TestResolveUnresolvedExternIsFatal: an extern declaration with no
// matching host symbol and no definition must fail.
func TestResolveUnresolvedExternIsFatal(t *testing.T) {
	b, ctx := newTestBackend(t)
	vid := ctx.Vars.New(ir.Var{Name: "missing", Type: ctx.Types.Int(ir.IInt), Storage: ir.SCExtern})

	if _, err := b.Resolve(vid); err == nil {
		t.Error("an unresolved extern variable must fail to resolve")
	}
}

// TestDrainWithEmptyQueueIsNoop: Drain with nothing queued must not
// allocate a code page or error.
func TestDrainWithEmptyQueueIsNoop(t *testing.T) {
	b, _ := newTestBackend(t)
	if err := b.Drain(); err != nil {
		t.Errorf("Drain on an empty queue should be a no-op, got error: %v", err)
	}
}
