package ir

// ValueKind is the variant tag of a Value (spec.md §3.4).
type ValueKind int

const (
	VInt ValueKind = iota
	VStr
	VVar
	VMem
	VUser
	VType
	VBuiltin
)

func (k ValueKind) String() string {
	switch k {
	case VInt:
		return "int"
	case VStr:
		return "str"
	case VVar:
		return "var"
	case VMem:
		return "mem"
	case VUser:
		return "user"
	case VType:
		return "type"
	case VBuiltin:
		return "builtin"
	default:
		return "value?"
	}
}

// BuiltinID names a compiler intrinsic a Builtin value refers to (e.g.
// `__builtin_va_start`); the staging/builder layer maps these to codegen
// sequences, not the ir package itself.
type BuiltinID int

// Value is a small immutable record describing the result of an
// expression: unlike Type/Comp/Enum/Var/Stmt/Code, it is not
// arena-allocated — it is copied by value wherever it is needed (in a
// Stmt's operand fields, or as a Code block's trailing result), per
// spec.md §3.4.
type Value struct {
	Kind ValueKind
	Type TypeID

	Int int64  // VInt: the constant's bit pattern, truncated to Type's IKind width
	Str string // VStr: the string literal's decoded bytes

	Var VarID // VVar: the variable this value names (an lvalue)

	// VMem: a memory reference, Base + Offset, at Type. Base is None for an
	// absolute/static address (e.g. a string literal's backing storage,
	// tracked by the staging layer rather than here).
	Base   VarID
	Offset int64

	User int64 // VUser: an opaque staging-assigned ID (spec.md §7)

	// VType: the value names a type itself (used by `_Generic`-like
	// metaprogramming and by @-staged type arguments); TypeVal is the named
	// type, distinct from Type (the value's own type, typically `void`).
	TypeVal TypeID

	Builtin BuiltinID // VBuiltin
}

// IsLvalue reports whether v denotes an object that can be assigned to or
// have its address taken (spec.md §4.1's lvalue conversion callers use this
// to decide whether to apply LvalConv at all).
func (v Value) IsLvalue() bool {
	return v.Kind == VVar || v.Kind == VMem
}

// NewInt builds a VInt value of type t holding bits as given; it does not
// truncate bits to t's width. Callers
// needing a specific declared type (e.g. after a cast) wrap the result with
// a different Type field directly; NewInt's Type is the natural int-kind
// type looked up by the caller via TypeArena.Int.
func NewInt(t TypeID, bits int64) Value { return Value{Kind: VInt, Type: t, Int: bits} }

func NewStr(t TypeID, s string) Value { return Value{Kind: VStr, Type: t, Str: s} }

func NewVar(t TypeID, v VarID) Value { return Value{Kind: VVar, Type: t, Var: v} }

func NewMem(t TypeID, base VarID, offset int64) Value {
	return Value{Kind: VMem, Type: t, Base: base, Offset: offset}
}

func NewUser(t TypeID, id int64) Value { return Value{Kind: VUser, Type: t, User: id} }

func NewTypeValue(t TypeID, named TypeID) Value { return Value{Kind: VType, Type: t, TypeVal: named} }

func NewBuiltin(t TypeID, b BuiltinID) Value { return Value{Kind: VBuiltin, Type: t, Builtin: b} }
