package cparser_test

import (
	"testing"

	"github.com/mna/cirstage/lang/builder"
	"github.com/mna/cirstage/lang/cparser"
	"github.com/mna/cirstage/lang/diag"
	"github.com/mna/cirstage/lang/env"
	"github.com/mna/cirstage/lang/ir"
	"github.com/mna/cirstage/lang/jit"
	"github.com/mna/cirstage/lang/stage"
	"github.com/mna/cirstage/lang/target"
	"github.com/mna/cirstage/lang/token"
)

// parseSrc parses src as one translation unit against a fresh Context,
// mirroring internal/maincmd/pipeline.go's newPipeline+parseFiles wiring,
// and returns the Context plus any diagnostics recorded.
func parseSrc(t *testing.T, src string) (*ir.Context, *diag.List) {
	t.Helper()
	ctx := ir.NewContext(target.LinuxAMD64GCC())
	e := env.New()
	e.PushGlobal()
	b := builder.New(ctx)
	backend, err := jit.NewBackend(ctx, jit.NewHostSymbols())
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	stager := stage.New(ctx, backend)

	fset := token.NewFileSet()
	file := fset.AddFile("test.c", -1, len(src))
	diags := &diag.List{}
	p := cparser.New(file, []byte(src), ctx, e, b, stager, diags)
	// ParseTranslationUnit's error return is just diags.Err(): callers that
	// expect a clean parse check diags.Len() == 0 themselves, and the
	// malformed-input test expects a non-nil diags on purpose.
	p.ParseTranslationUnit()
	return ctx, diags
}

// TestParseGlobalVarDeclaration covers the simplest external declaration:
// `int x;` must install exactly one global Var named "x" of type int.
func TestParseGlobalVarDeclaration(t *testing.T) {
	ctx, diags := parseSrc(t, "int x;\n")
	if diags.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags.Entries())
	}
	if ctx.Vars.Len() != 1 {
		t.Fatalf("expected exactly one global var, got %d", ctx.Vars.Len())
	}
	v := ctx.Vars.Get(ir.VarID(1))
	if v.Name != "x" {
		t.Errorf("expected the declared var's name to be %q, got %q", "x", v.Name)
	}
	ty := ctx.Types.Get(ctx.Unroll(v.Type))
	if ty.Kind != ir.KInt || ty.IKind != ir.IInt {
		t.Errorf("expected plain int, got kind=%v ikind=%v", ty.Kind, ty.IKind)
	}
}

// TestParseFunctionDefinitionWithReturn covers a minimal function
// definition: `int f(void) { return 1; }` must install a function Var with
// a non-nil Body containing a single SReturn statement.
func TestParseFunctionDefinitionWithReturn(t *testing.T) {
	ctx, diags := parseSrc(t, "int f(void) { return 1; }\n")
	if diags.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags.Entries())
	}

	var fn *ir.Var
	for i := 1; i <= ctx.Vars.Len(); i++ {
		v := ctx.Vars.Get(ir.VarID(i))
		if v.Name == "f" {
			fn = v
		}
	}
	if fn == nil {
		t.Fatal("expected a global var named \"f\"")
	}
	if fn.Body == ir.None {
		t.Fatal("expected f to have a body")
	}

	code := ctx.Codes.Get(fn.Body)
	if code.First == ir.None {
		t.Fatal("expected at least one statement in f's body")
	}
	found := false
	ir.Walk(ctx.Stmts, code, func(_ ir.StmtID, s *ir.Stmt) {
		if s.Kind == ir.SReturn {
			found = true
			if !s.HasValue || s.Value.Int != 1 {
				t.Errorf("expected return 1, got %+v", s.Value)
			}
		}
	})
	if !found {
		t.Error("expected a return statement in f's body")
	}
}

// TestParseStructDeclaration covers a tagged struct definition with two
// fields, checking the Comp arena records both field names.
func TestParseStructDeclaration(t *testing.T) {
	ctx, diags := parseSrc(t, "struct point { int x; int y; };\n")
	if diags.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags.Entries())
	}
	if ctx.Comps.Len() != 1 {
		t.Fatalf("expected exactly one composite, got %d", ctx.Comps.Len())
	}
	c := ctx.Comps.Get(ir.CompID(1))
	if c.Name != "point" || len(c.Fields) != 2 {
		t.Fatalf("expected struct point with 2 fields, got name=%q fields=%d", c.Name, len(c.Fields))
	}
	if c.Fields[0].Name != "x" || c.Fields[1].Name != "y" {
		t.Errorf("expected fields x, y in order, got %q, %q", c.Fields[0].Name, c.Fields[1].Name)
	}
}

// TestParseMalformedDeclarationRecordsFatalAndResyncs covers the
// resyncToDeclBoundary contract: a malformed external declaration must be
// recorded as a diagnostic, and parsing must still pick up the next,
// well-formed declaration rather than aborting the whole file.
func TestParseMalformedDeclarationRecordsFatalAndResyncs(t *testing.T) {
	ctx, diags := parseSrc(t, "int += 1;\nint y;\n")
	if diags.Len() == 0 {
		t.Fatal("expected the malformed declaration to record a diagnostic")
	}

	found := false
	for i := 1; i <= ctx.Vars.Len(); i++ {
		if ctx.Vars.Get(ir.VarID(i)).Name == "y" {
			found = true
		}
	}
	if !found {
		t.Error("expected parsing to resync and still declare y after the malformed declaration")
	}
}
