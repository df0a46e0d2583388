package ir

import "github.com/mna/cirstage/lang/target"

// IKind enumerates the integer kinds a Type's Int arm, or a Value's Int
// kind, can carry.
type IKind int

const (
	IBool IKind = iota
	IChar
	ISChar
	IUChar
	IShort
	IUShort
	IInt
	IUInt
	ILong
	IULong
	ILongLong
	IULongLong
)

func (k IKind) String() string {
	switch k {
	case IBool:
		return "_Bool"
	case IChar:
		return "char"
	case ISChar:
		return "signed char"
	case IUChar:
		return "unsigned char"
	case IShort:
		return "short"
	case IUShort:
		return "unsigned short"
	case IInt:
		return "int"
	case IUInt:
		return "unsigned int"
	case ILong:
		return "long"
	case IULong:
		return "unsigned long"
	case ILongLong:
		return "long long"
	case IULongLong:
		return "unsigned long long"
	default:
		return "int?"
	}
}

// IsSigned reports whether k's range includes negative values. Plain `char`
// is treated as signed, matching the x86-64 System V ABI's default.
func (k IKind) IsSigned() bool {
	switch k {
	case IUChar, IUShort, IUInt, IULong, IULongLong, IBool:
		return false
	default:
		return true
	}
}

// Unsigned returns the unsigned counterpart of k (itself, if already
// unsigned).
func (k IKind) Unsigned() IKind {
	switch k {
	case IChar, ISChar:
		return IUChar
	case IShort:
		return IUShort
	case IInt:
		return IUInt
	case ILong:
		return IULong
	case ILongLong:
		return IULongLong
	default:
		return k
	}
}

// Rank implements the integer conversion rank order of C99 §6.3.1.1,
// collapsing signed/unsigned pairs to the same rank (callers compare rank
// then break ties via signedness, per arithmetic_conversion).
func (k IKind) Rank() int {
	switch k {
	case IBool:
		return 0
	case IChar, ISChar, IUChar:
		return 1
	case IShort, IUShort:
		return 2
	case IInt, IUInt:
		return 3
	case ILong, IULong:
		return 4
	case ILongLong, IULongLong:
		return 5
	default:
		return 3
	}
}

// Size returns the byte size of k under m.
func (k IKind) Size(m *target.Machine) int {
	switch k {
	case IBool:
		return m.SizeofBool
	case IChar, ISChar, IUChar:
		return 1
	case IShort, IUShort:
		return m.SizeofShort
	case IInt, IUInt:
		return m.SizeofInt
	case ILong, IULong:
		return m.SizeofLong
	case ILongLong, IULongLong:
		return m.SizeofLongLong
	default:
		return m.SizeofInt
	}
}

// Align returns the byte alignment of k under m (same as Size for all
// built-in integer kinds on every target this compiler supports).
func (k IKind) Align(m *target.Machine) int { return k.Size(m) }

// Mask returns the all-ones bit pattern for k's width, used to truncate
// constant-folded arithmetic to the target width (spec.md §4.2 step 4).
func (k IKind) Mask(m *target.Machine) uint64 {
	bits := k.Size(m) * 8
	if bits >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(bits)) - 1
}

// Truncate masks and, for signed kinds, sign-extends x to k's width.
func (k IKind) Truncate(x uint64, m *target.Machine) uint64 {
	mask := k.Mask(m)
	x &= mask
	bits := k.Size(m) * 8
	if k.IsSigned() && bits < 64 && x&(uint64(1)<<uint(bits-1)) != 0 {
		x |= ^mask
	}
	return x
}

// FKind enumerates floating-point kinds. No codegen is implemented for
// these (spec.md §1 Non-goals: floating-point codegen); the kind still
// participates in type algebra (sizeof/alignof, arithmetic_conversion
// ranking) so that declarations involving floats can be parsed and rendered
// even though they cannot be JIT-compiled.
type FKind int

const (
	FFloat FKind = iota
	FDouble
	FLongDouble
)

func (k FKind) String() string {
	switch k {
	case FFloat:
		return "float"
	case FDouble:
		return "double"
	case FLongDouble:
		return "long double"
	default:
		return "float?"
	}
}

func (k FKind) Size(m *target.Machine) int {
	switch k {
	case FFloat:
		return m.SizeofFloat
	case FDouble:
		return m.SizeofDouble
	case FLongDouble:
		return m.SizeofLongDouble
	default:
		return m.SizeofDouble
	}
}

func (k FKind) Align(m *target.Machine) int {
	switch k {
	case FFloat:
		return m.AlignofFloat
	case FDouble:
		return m.AlignofDouble
	case FLongDouble:
		return m.AlignofLongDouble
	default:
		return m.AlignofDouble
	}
}
