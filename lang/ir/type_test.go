package ir_test

import (
	"testing"

	"github.com/mna/cirstage/lang/ir"
	"github.com/mna/cirstage/lang/target"
)

func newTestArenas() (*ir.TypeArena, *ir.Arena[ir.CompID, ir.Comp], *ir.Arena[ir.TypedefID, ir.Typedef]) {
	return ir.NewTypeArena(), ir.NewArena[ir.CompID, ir.Comp](), ir.NewArena[ir.TypedefID, ir.Typedef]()
}

func TestInternedLeavesShareHandle(t *testing.T) {
	ta, _, _ := newTestArenas()
	if ta.Int(ir.IInt) != ta.Int(ir.IInt) {
		t.Error("two requests for int should intern to the same handle")
	}
	if ta.Void() != ta.Void() {
		t.Error("two requests for void should intern to the same handle")
	}
	if ta.Int(ir.IInt) == ta.Int(ir.ILong) {
		t.Error("distinct int kinds must not share a handle")
	}
}

func TestPtrNeverInterned(t *testing.T) {
	ta, _, _ := newTestArenas()
	base := ta.Int(ir.IInt)
	if ta.Ptr(base) == ta.Ptr(base) {
		t.Error("Ptr should bump-allocate a fresh handle on every call")
	}
}

func TestUnrollIdempotent(t *testing.T) {
	ta, _, typedefs := newTestArenas()
	inner := ta.Int(ir.IInt)
	td := typedefs.New(ir.Typedef{Name: "myint", Type: inner})
	named := ta.Named(td)

	once := ta.Unroll(named, typedefs)
	twice := ta.Unroll(once, typedefs)
	if once != twice {
		t.Errorf("Unroll must be idempotent: Unroll(t)=%v, Unroll(Unroll(t))=%v", once, twice)
	}
	if ta.Get(once).Kind != ir.KInt {
		t.Errorf("expected unrolled kind KInt, got %v", ta.Get(once).Kind)
	}
}

func TestWithAttrsRoundTrip(t *testing.T) {
	ta, _, typedefs := newTestArenas()
	base := ta.Int(ir.IInt)

	// WithAttrs(t, nil) returns t unchanged.
	if got := ta.WithAttrs(base, nil, typedefs); got != base {
		t.Errorf("WithAttrs with no attrs to add should return the same handle, got %v != %v", got, base)
	}

	attrs := []ir.Attr{{Kind: ir.AttrName, Name: "const"}}
	withC := ta.WithAttrs(base, attrs, typedefs)
	if withC == base {
		t.Error("WithAttrs with a non-empty addition must allocate a new handle")
	}
	back := ta.RemoveAttrs(withC, attrs)
	if back != base {
		t.Errorf("RemoveAttrs(WithAttrs(t, A), A) should equal t when A is disjoint from t's attrs, got %v != %v want %v", back, back, base)
	}
}

func TestIntegralPromotion(t *testing.T) {
	m := target.LinuxAMD64GCC()
	if got := ir.IntegralPromotion(ir.IBool, m); got != ir.IInt {
		t.Errorf("_Bool should promote to int, got %v", got)
	}
	if got := ir.IntegralPromotion(ir.IShort, m); got != ir.IInt {
		t.Errorf("short should promote to int, got %v", got)
	}
	if got := ir.IntegralPromotion(ir.ILong, m); got != ir.ILong {
		t.Errorf("long should not be promoted, got %v", got)
	}
}

func TestArithmeticConversion(t *testing.T) {
	m := target.LinuxAMD64GCC()
	cases := []struct {
		a, b ir.IKind
		want ir.IKind
	}{
		{ir.IInt, ir.IInt, ir.IInt},
		{ir.IInt, ir.ILong, ir.ILong},
		{ir.IUInt, ir.IInt, ir.IUInt},
		{ir.IInt, ir.IUInt, ir.IUInt},
		{ir.ILong, ir.IULong, ir.IULong},
		{ir.IULong, ir.IInt, ir.IULong},
	}
	for _, c := range cases {
		if got := ir.ArithmeticConversion(c.a, c.b, m); got != c.want {
			t.Errorf("ArithmeticConversion(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestSizeofAlignofComp(t *testing.T) {
	ta, comps, typedefs := newTestArenas()
	m := target.LinuxAMD64GCC()

	comp := ir.Comp{
		Name:      "S",
		Kind:      ir.Struct,
		IsDefined: true,
		Fields: []ir.CompField{
			{Name: "a", Type: ta.Int(ir.IChar)},
			{Name: "b", Type: ta.Int(ir.IInt)},
		},
	}
	cid := comps.New(comp)
	ct := ta.Comp(cid)

	size := ta.Sizeof(ct, m, comps, typedefs)
	align := ta.Alignof(ct, m, comps, typedefs)

	if size%align != 0 {
		t.Errorf("sizeof(S)=%d is not a multiple of alignof(S)=%d", size, align)
	}
	// char at 0, then int aligned to 4: offset 4, size 4 -> total 8, align 4.
	if size != 8 || align != 4 {
		t.Errorf("got size=%d align=%d, want size=8 align=4", size, align)
	}
}

func TestCompLayoutBitfields(t *testing.T) {
	ta, comps, typedefs := newTestArenas()
	m := target.LinuxAMD64GCC()

	w1, w2 := 3, 5
	comp := ir.Comp{
		Name:      "BF",
		Kind:      ir.Struct,
		IsDefined: true,
		Fields: []ir.CompField{
			{Name: "a", Type: ta.Int(ir.IUInt), BitWidth: &w1},
			{Name: "b", Type: ta.Int(ir.IUInt), BitWidth: &w2},
		},
	}
	cid := comps.New(comp)
	layout := ir.CompLayout(comps.Get(cid), ta, m, comps, typedefs)
	if len(layout.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(layout.Fields))
	}
	if layout.Fields[0].Offset != layout.Fields[1].Offset {
		t.Errorf("both bitfields should share the same storage-unit offset, got %d and %d",
			layout.Fields[0].Offset, layout.Fields[1].Offset)
	}
	if layout.Fields[1].BitOffset != w1 {
		t.Errorf("second bitfield should start at bit %d, got %d", w1, layout.Fields[1].BitOffset)
	}
	for _, f := range layout.Fields {
		if f.Offset+layout.Align > layout.Size+layout.Align {
			t.Errorf("field offset %d overruns struct size %d", f.Offset, layout.Size)
		}
	}
}
