package render_test

import (
	"strings"
	"testing"

	"github.com/mna/cirstage/lang/ir"
	"github.com/mna/cirstage/lang/render"
	"github.com/mna/cirstage/lang/target"
)

func newTestContext() *ir.Context {
	return ir.NewContext(target.LinuxAMD64GCC())
}

// TestRenderGlobalVarDeclaration covers spec.md §6's simplest render root: a
// non-static global keeps its raw source name, and a global with no Init
// gets no initializer text.
func TestRenderGlobalVarDeclaration(t *testing.T) {
	ctx := newTestContext()
	intType := ctx.Types.Int(ir.IInt)
	ctx.Vars.New(ir.Var{Name: "x", Type: intType})

	out, err := render.New(ctx).Render()
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(out, "int x;") {
		t.Errorf("expected a plain %q declaration, got:\n%s", "int x;", out)
	}
}

// TestRenderStaticGlobalIsNotARoot checks that a static global which no
// rendered function uses is not a render root and is not emitted at all.
func TestRenderStaticGlobalIsNotARoot(t *testing.T) {
	ctx := newTestContext()
	intType := ctx.Types.Int(ir.IInt)
	ctx.Vars.New(ir.Var{Name: "hidden", Type: intType, Storage: ir.SCStatic})

	out, err := render.New(ctx).Render()
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("a static global with no reachable use is not a render root and must not appear, got:\n%s", out)
	}
}

// TestRenderFunctionDefinition builds `int f(void) { return 0; }` directly
// in the IR and checks the emitted shape: the `(void)` parameter list and
// the return statement, whose integer constant is printed with a cast to
// its type.
func TestRenderFunctionDefinition(t *testing.T) {
	ctx := newTestContext()
	intType := ctx.Types.Int(ir.IInt)
	funType := ctx.Types.Fun(intType, nil, false)

	retStmt := ctx.Stmts.New(ir.NewReturn(ir.NewInt(intType, 0), true))
	code := ir.NewEmptyExpr()
	ir.AppendStmt(ctx.Stmts, code, retStmt)
	bodyID := ctx.Codes.New(*code)

	ctx.Vars.New(ir.Var{Name: "f", Type: funType, Body: bodyID})

	out, err := render.New(ctx).Render()
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(out, "f(void)") {
		t.Errorf("expected a %q parameter list for a no-param function, got:\n%s", "f(void)", out)
	}
	if !strings.Contains(out, "return (int)0;") {
		t.Errorf("expected the function body to contain %q, got:\n%s", "return (int)0;", out)
	}
}

// TestRenderEnumPrintedUpFront covers printEnums: every defined enum is
// emitted once, unconditionally, before any other item, since the renderer
// never forward-declares or cycle-breaks enums.
func TestRenderEnumPrintedUpFront(t *testing.T) {
	ctx := newTestContext()
	eid := ctx.Enums.New(ir.Enum{Name: "Color", IsDefined: true})
	iid := ctx.EnumItems.New(ir.EnumItem{Name: "RED", Value: 0})
	ctx.Enums.Get(eid).Items = []ir.EnumItemID{iid}

	out, err := render.New(ctx).Render()
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(out, "enum eid1_Color") {
		t.Errorf("expected the enum tag to be printed with its synthetic eidN name, got:\n%s", out)
	}
	if !strings.Contains(out, "RED = 0,") {
		t.Errorf("expected the enum item to be printed, got:\n%s", out)
	}
}
