package ir_test

import (
	"testing"

	"github.com/mna/cirstage/lang/ir"
)

func TestCombineFunctionParamNameWins(t *testing.T) {
	// void g(int); void g(int x); -> void g(int x): the new declaration's
	// parameter name wins when present (spec.md §4.1).
	ta, comps, typedefs := newTestArenas()
	iso := ir.NewIsoSet()

	unnamed := ta.Fun(ta.Void(), []ir.FunParam{{Name: "", Type: ta.Int(ir.IInt)}}, false)
	named := ta.Fun(ta.Void(), []ir.FunParam{{Name: "x", Type: ta.Int(ir.IInt)}}, false)

	combined, ok := ta.Combine(unnamed, named, comps, typedefs, iso)
	if !ok {
		t.Fatal("combining two compatible prototypes must succeed")
	}
	if got := ta.Get(combined).Params[0].Name; got != "x" {
		t.Errorf("expected the new declaration's parameter name to win, got %q", got)
	}
}

func TestCombineFunctionArityMismatch(t *testing.T) {
	ta, comps, typedefs := newTestArenas()
	iso := ir.NewIsoSet()

	oneParam := ta.Fun(ta.Void(), []ir.FunParam{{Type: ta.Int(ir.IInt)}}, false)
	twoParams := ta.Fun(ta.Void(), []ir.FunParam{{Type: ta.Int(ir.IInt)}, {Type: ta.Int(ir.IInt)}}, false)
	if _, ok := ta.Combine(oneParam, twoParams, comps, typedefs, iso); ok {
		t.Error("combining prototypes of different arity must fail")
	}
}

func TestCombineCommutativeAndIdempotent(t *testing.T) {
	ta, comps, typedefs := newTestArenas()
	iso := ir.NewIsoSet()

	a := ta.Int(ir.IInt)
	b := ta.WithAttrs(ta.Int(ir.IInt), []ir.Attr{{Kind: ir.AttrName, Name: "const"}}, typedefs)

	ab, okAB := ta.Combine(a, b, comps, typedefs, iso)
	ba, okBA := ta.Combine(b, a, comps, typedefs, iso)
	if okAB != okBA {
		t.Fatalf("Combine(a,b) success=%v but Combine(b,a) success=%v", okAB, okBA)
	}
	if okAB && !ta.Equal(ab, ba, typedefs, iso) {
		t.Error("Combine(a,b) and Combine(b,a) should describe the same resulting type")
	}

	same, ok := ta.Combine(a, a, comps, typedefs, iso)
	if !ok || same != a {
		t.Error("Combine(a,a) should succeed and be idempotent (identical input is already interned)")
	}
}

func TestCombineConflictingIntKinds(t *testing.T) {
	ta, comps, typedefs := newTestArenas()
	iso := ir.NewIsoSet()

	intT := ta.Int(ir.IInt)
	charT := ta.Int(ir.IChar)
	if _, ok := ta.Combine(intT, charT, comps, typedefs, iso); ok {
		t.Error("combining int with char must fail: not the same declared entity type")
	}
}

func TestCombineRecursiveStruct(t *testing.T) {
	// struct L { struct L *next; int v; }; combined with itself must
	// terminate instead of recursing forever (the shared comp handle is
	// recognized before any field is compared).
	ta, comps, typedefs := newTestArenas()
	iso := ir.NewIsoSet()

	cid := comps.New(ir.Comp{Name: "L", Kind: ir.Struct})
	selfPtr := ta.Ptr(ta.Comp(cid))
	comps.Get(cid).Fields = []ir.CompField{
		{Name: "next", Type: selfPtr},
		{Name: "v", Type: ta.Int(ir.IInt)},
	}
	comps.Get(cid).IsDefined = true

	ct := ta.Comp(cid)
	result, ok := ta.Combine(ct, ct, comps, typedefs, iso)
	if !ok {
		t.Fatal("combining a recursive struct with itself must succeed and terminate")
	}
	if !ta.Equal(result, ct, typedefs, iso) {
		t.Error("Combine result should be equal to the original comp type")
	}
}
