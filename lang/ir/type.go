package ir

import (
	"fmt"

	"github.com/dolthub/swiss"
	"github.com/mna/cirstage/lang/target"
)

// TypeKind is the variant tag of a Type (spec.md §3.1).
type TypeKind int

const (
	KVoid TypeKind = iota
	KInt
	KFloat
	KPtr
	KArray
	KFun
	KNamed
	KComp
	KEnum
	KVaList
)

// FunParam is one formal parameter of a Fun type: a name (may be empty for
// an unnamed/prototype-only parameter) and a type.
type FunParam struct {
	Name string
	Type TypeID
}

// Type is an immutable, structurally-described C type. Leaves with no
// attributes (Void, Int, Float, VaList) are interned to a single instance
// per TypeArena; every other construction — including a leaf that does
// carry attributes — bump-allocates a fresh, still-immutable handle
// (spec.md §3.1).
type Type struct {
	Kind TypeKind

	IKind IKind // KInt
	FKind FKind // KFloat

	Base     TypeID // KPtr, KArray (element type), KFun (return type)
	ArrayLen *int64 // KArray: nil means an incomplete (unknown-length) array

	Params   []FunParam // KFun
	Variadic bool       // KFun

	Typedef TypedefID // KNamed
	Comp    CompID    // KComp
	Enum    EnumID    // KEnum

	Attrs []Attr
}

// TypeArena owns every Type ever constructed plus the intern table for
// attribute-free leaves.
type TypeArena struct {
	types   *Arena[TypeID, Type]
	interns *swiss.Map[internKey, TypeID]
}

type internKey struct {
	kind  TypeKind
	ikind IKind
	fkind FKind
}

// NewTypeArena returns an empty TypeArena.
func NewTypeArena() *TypeArena {
	return &TypeArena{
		types:   NewArena[TypeID, Type](),
		interns: swiss.NewMap[internKey, TypeID](32),
	}
}

// Get dereferences h. It panics (via Arena.Get) if h is None.
func (ta *TypeArena) Get(h TypeID) Type { return *ta.types.Get(h) }

func (ta *TypeArena) intern(key internKey, mk func() Type) TypeID {
	if id, ok := ta.interns.Get(key); ok {
		return id
	}
	id := ta.types.New(mk())
	ta.interns.Put(key, id)
	return id
}

func (ta *TypeArena) Void() TypeID {
	return ta.intern(internKey{kind: KVoid}, func() Type { return Type{Kind: KVoid} })
}

func (ta *TypeArena) Int(k IKind) TypeID {
	return ta.intern(internKey{kind: KInt, ikind: k}, func() Type { return Type{Kind: KInt, IKind: k} })
}

func (ta *TypeArena) Float(k FKind) TypeID {
	return ta.intern(internKey{kind: KFloat, fkind: k}, func() Type { return Type{Kind: KFloat, FKind: k} })
}

func (ta *TypeArena) VaList() TypeID {
	return ta.intern(internKey{kind: KVaList}, func() Type { return Type{Kind: KVaList} })
}

// Ptr, Array, Fun, Named, Comp, and Enum are never interned, even with no
// attributes: each call bump-allocates a fresh, still-immutable handle.
func (ta *TypeArena) Ptr(base TypeID, attrs ...Attr) TypeID {
	return ta.types.New(Type{Kind: KPtr, Base: base, Attrs: sortAttrs(attrs)})
}

func (ta *TypeArena) Array(base TypeID, length *int64, attrs ...Attr) TypeID {
	return ta.types.New(Type{Kind: KArray, Base: base, ArrayLen: length, Attrs: sortAttrs(attrs)})
}

func (ta *TypeArena) Fun(ret TypeID, params []FunParam, variadic bool, attrs ...Attr) TypeID {
	return ta.types.New(Type{Kind: KFun, Base: ret, Params: params, Variadic: variadic, Attrs: sortAttrs(attrs)})
}

func (ta *TypeArena) Named(td TypedefID, attrs ...Attr) TypeID {
	return ta.types.New(Type{Kind: KNamed, Typedef: td, Attrs: sortAttrs(attrs)})
}

func (ta *TypeArena) Comp(c CompID, attrs ...Attr) TypeID {
	return ta.types.New(Type{Kind: KComp, Comp: c, Attrs: sortAttrs(attrs)})
}

func (ta *TypeArena) Enum(e EnumID, attrs ...Attr) TypeID {
	return ta.types.New(Type{Kind: KEnum, Enum: e, Attrs: sortAttrs(attrs)})
}

// WithAttrs returns a type identical to t but with add merged into its
// attribute set. Per spec.md §8, WithAttrs(t, nil) returns t unchanged (no
// new handle).
func (ta *TypeArena) WithAttrs(t TypeID, add []Attr, typedefs *Arena[TypedefID, Typedef]) TypeID {
	if len(add) == 0 {
		return t
	}
	ty := ta.Get(t)
	ty.Attrs = WithAttrs(ty.Attrs, add)
	return ta.rebuild(ty)
}

// RemoveAttrs returns a type identical to t but without any attribute
// matching one in remove.
func (ta *TypeArena) RemoveAttrs(t TypeID, remove []Attr) TypeID {
	ty := ta.Get(t)
	newAttrs := RemoveAttrs(ty.Attrs, remove)
	if attrsEqual(newAttrs, ty.Attrs) {
		return t
	}
	ty.Attrs = newAttrs
	return ta.rebuild(ty)
}

// ReplaceAttrs returns a type identical to t but with its attribute set
// replaced wholesale.
func (ta *TypeArena) ReplaceAttrs(t TypeID, attrs []Attr) TypeID {
	ty := ta.Get(t)
	ty.Attrs = ReplaceAttrs(attrs)
	return ta.rebuild(ty)
}

// rebuild allocates a fresh handle for a modified copy of ty, going through
// the interning path for attribute-free leaves so a WithAttrs/RemoveAttrs
// round trip back to no-attrs still shares the canonical instance.
func (ta *TypeArena) rebuild(ty Type) TypeID {
	if len(ty.Attrs) == 0 {
		switch ty.Kind {
		case KVoid:
			return ta.Void()
		case KInt:
			return ta.Int(ty.IKind)
		case KFloat:
			return ta.Float(ty.FKind)
		case KVaList:
			return ta.VaList()
		}
	}
	return ta.types.New(ty)
}

// Unroll repeatedly replaces a Named(typedef) arm with its underlying type,
// merging the Named type's own attributes into the result, until the arm is
// no longer Named. Typedef expansion cannot be cyclic by construction (a
// typedef can only name types that existed before it), so this always
// terminates.
func (ta *TypeArena) Unroll(t TypeID, typedefs *Arena[TypedefID, Typedef]) TypeID {
	for {
		ty := ta.Get(t)
		if ty.Kind != KNamed {
			return t
		}
		inner := typedefs.Get(ty.Typedef).Type
		t = ta.WithAttrs(inner, ty.Attrs, typedefs)
		// WithAttrs may have returned the same handle as inner (if ty had no
		// attrs); guard against a typedef naming itself indirectly, which
		// would be a Bug (front end should reject it at declaration time).
		if ta.Get(t).Kind == KNamed && ta.Get(t).Typedef == ty.Typedef {
			panic("ir: cyclic typedef reached Unroll")
		}
	}
}

// UnrollDeep unrolls t, and if the result is a Ptr/Array, unrolls its base
// too (one extra level), which callers use when they need to see through a
// `typedef struct S *PS;` to the pointee's structure.
func (ta *TypeArena) UnrollDeep(t TypeID, typedefs *Arena[TypedefID, Typedef]) TypeID {
	t = ta.Unroll(t, typedefs)
	ty := ta.Get(t)
	if ty.Kind == KPtr || ty.Kind == KArray {
		base := ta.Unroll(ty.Base, typedefs)
		if base != ty.Base {
			ty.Base = base
			return ta.rebuildNonLeaf(ty)
		}
	}
	return t
}

func (ta *TypeArena) rebuildNonLeaf(ty Type) TypeID {
	switch ty.Kind {
	case KPtr:
		return ta.types.New(Type{Kind: KPtr, Base: ty.Base, Attrs: ty.Attrs})
	case KArray:
		return ta.types.New(Type{Kind: KArray, Base: ty.Base, ArrayLen: ty.ArrayLen, Attrs: ty.Attrs})
	default:
		return ta.types.New(ty)
	}
}

// LvalConv implements the lvalue conversions of spec.md §4.1:
// function-to-pointer, array-to-pointer (inheriting the array's
// attributes), and stripping top-level const/volatile/restrict from
// anything else.
func (ta *TypeArena) LvalConv(t TypeID, typedefs *Arena[TypedefID, Typedef]) TypeID {
	unrolled := ta.Unroll(t, typedefs)
	ty := ta.Get(unrolled)
	switch ty.Kind {
	case KFun:
		return ta.Ptr(unrolled)
	case KArray:
		return ta.Ptr(ty.Base, ty.Attrs...)
	default:
		return ta.RemoveAttrs(t, cvrQualifiers)
	}
}

var cvrQualifiers = []Attr{
	{Kind: AttrName, Name: "const"},
	{Kind: AttrName, Name: "volatile"},
	{Kind: AttrName, Name: "restrict"},
}

// IntegralPromotion implements spec.md §4.1: _Bool and anything of lower
// rank than int promotes to int. On every Machine this compiler targets,
// int is wide enough to represent every value of a narrower kind, so the
// "or unsigned int" branch of C99 §6.3.1.1 never triggers here; it would
// only apply on a target where char is as wide as int.
func IntegralPromotion(k IKind, m *target.Machine) IKind {
	if k == IBool || k.Rank() < IInt.Rank() {
		return IInt
	}
	return k
}

// ArithmeticConversion implements the usual arithmetic conversions of
// spec.md §4.1 for two integer kinds: promote both, then apply the
// same-signedness / rank / representability ladder of C99 §6.3.1.8.
func ArithmeticConversion(a, b IKind, m *target.Machine) IKind {
	a = IntegralPromotion(a, m)
	b = IntegralPromotion(b, m)
	if a == b {
		return a
	}
	if a.IsSigned() == b.IsSigned() {
		if a.Rank() >= b.Rank() {
			return a
		}
		return b
	}
	// Different signedness: the unsigned operand wins if its rank is >= the
	// signed operand's rank, or if the signed type cannot represent every
	// value of the unsigned type; otherwise the signed type's rank wins but
	// the result is converted to its unsigned counterpart only if needed.
	var signed, unsigned IKind
	if a.IsSigned() {
		signed, unsigned = a, b
	} else {
		signed, unsigned = b, a
	}
	if unsigned.Rank() >= signed.Rank() {
		return unsigned
	}
	if signed.Size(m) > unsigned.Size(m) {
		return signed
	}
	return signed.Unsigned()
}

// Sizeof and Alignof are dispatched by arm, per spec.md §4.1. A composite's
// size and alignment come from this package's own CompLayout.
func (ta *TypeArena) Sizeof(t TypeID, m *target.Machine, comps *Arena[CompID, Comp], typedefs *Arena[TypedefID, Typedef]) int {
	ty := ta.Get(ta.Unroll(t, typedefs))
	switch ty.Kind {
	case KVoid:
		return 1 // GCC extension: sizeof(void) == 1
	case KInt:
		return ty.IKind.Size(m)
	case KFloat:
		return ty.FKind.Size(m)
	case KPtr:
		return m.SizeofPtr
	case KArray:
		if ty.ArrayLen == nil {
			panic("ir: sizeof of incomplete array type")
		}
		return int(*ty.ArrayLen) * ta.Sizeof(ty.Base, m, comps, typedefs)
	case KFun:
		if m.Compiler != target.GCC {
			panic("ir: sizeof(function) is undefined outside GCC mode")
		}
		return m.SizeofFun
	case KComp:
		return CompLayout(comps.Get(ty.Comp), ta, m, comps, typedefs).Size
	case KEnum:
		return m.SizeofInt
	case KVaList:
		return m.SizeofVaList
	default:
		panic(fmt.Sprintf("ir: sizeof: unhandled type kind %v", ty.Kind))
	}
}

func (ta *TypeArena) Alignof(t TypeID, m *target.Machine, comps *Arena[CompID, Comp], typedefs *Arena[TypedefID, Typedef]) int {
	ty := ta.Get(ta.Unroll(t, typedefs))
	switch ty.Kind {
	case KVoid:
		return 1
	case KInt:
		return ty.IKind.Align(m)
	case KFloat:
		return ty.FKind.Align(m)
	case KPtr:
		return m.AlignofPtr
	case KArray:
		return ta.Alignof(ty.Base, m, comps, typedefs)
	case KFun:
		if m.Compiler != target.GCC {
			panic("ir: alignof(function) is undefined outside GCC mode")
		}
		return 1
	case KComp:
		return CompLayout(comps.Get(ty.Comp), ta, m, comps, typedefs).Align
	case KEnum:
		return m.SizeofInt
	case KVaList:
		return m.AlignofVaList
	default:
		panic(fmt.Sprintf("ir: alignof: unhandled type kind %v", ty.Kind))
	}
}

// Equal reports deep structural equality of two types, unrolling Named
// arms and treating iso-marked Comp pairs as equal (to terminate on
// recursive structs), per spec.md §3.2.
func (ta *TypeArena) Equal(a, b TypeID, typedefs *Arena[TypedefID, Typedef], iso *IsoSet) bool {
	if a == b {
		return true
	}
	ua, ub := ta.Unroll(a, typedefs), ta.Unroll(b, typedefs)
	ta_, tb := ta.Get(ua), ta.Get(ub)
	if ta_.Kind != tb.Kind || !attrsEqual(ta_.Attrs, tb.Attrs) {
		return false
	}
	switch ta_.Kind {
	case KVoid, KVaList:
		return true
	case KInt:
		return ta_.IKind == tb.IKind
	case KFloat:
		return ta_.FKind == tb.FKind
	case KPtr:
		return ta.Equal(ta_.Base, tb.Base, typedefs, iso)
	case KArray:
		if (ta_.ArrayLen == nil) != (tb.ArrayLen == nil) {
			return false
		}
		if ta_.ArrayLen != nil && *ta_.ArrayLen != *tb.ArrayLen {
			return false
		}
		return ta.Equal(ta_.Base, tb.Base, typedefs, iso)
	case KFun:
		if ta_.Variadic != tb.Variadic || len(ta_.Params) != len(tb.Params) {
			return false
		}
		if !ta.Equal(ta_.Base, tb.Base, typedefs, iso) {
			return false
		}
		for i := range ta_.Params {
			if !ta.Equal(ta_.Params[i].Type, tb.Params[i].Type, typedefs, iso) {
				return false
			}
		}
		return true
	case KComp:
		return iso.IsIsomorphic(ta_.Comp, tb.Comp)
	case KEnum:
		return ta_.Enum == tb.Enum
	default:
		return false
	}
}
