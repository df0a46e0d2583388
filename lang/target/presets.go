package target

// LinuxAMD64GCC returns the Machine preset this compiler actually runs
// against: x86-64 Linux under the System V ABI, GCC layout rules. This is
// the only preset the JIT back end (lang/jit) and the composite layout
// algorithm (ir.CompLayout) accept; every other Machine value is only ever
// used to exercise the "reject MSVC" fatal paths spec.md §4.1/§6 call for.
func LinuxAMD64GCC() *Machine {
	return &Machine{
		Compiler: GCC,

		SizeofShort:      2,
		SizeofInt:        4,
		SizeofBool:       1,
		SizeofLong:       8,
		SizeofLongLong:   8,
		SizeofPtr:        8,
		SizeofFloat:      4,
		SizeofDouble:     8,
		SizeofLongDouble: 16,
		SizeofVaList:     24,
		SizeofFun:        1,

		AlignofShort:      2,
		AlignofInt:        4,
		AlignofBool:       1,
		AlignofLong:       8,
		AlignofLongLong:   8,
		AlignofPtr:        8,
		AlignofEnum:       4,
		AlignofFloat:      4,
		AlignofDouble:     8,
		AlignofLongDouble: 16,
		AlignofVaList:     8,
		AlignofFun:        1,

		CharIsUnsigned: false,
	}
}

// WindowsAMD64MSVC returns the x86-64 Windows/MSVC preset. It exists so the
// front end has a second, structurally different Machine to reject:
// CompLayout and TypeArena.Sizeof/Alignof both panic on MSVC's function and
// composite layout paths (spec.md §4.1 "otherwise fatal"), and a caller
// needs a real non-GCC Machine value to exercise that without fabricating
// one ad hoc.
func WindowsAMD64MSVC() *Machine {
	return &Machine{
		Compiler: MSVC,

		SizeofShort:      2,
		SizeofInt:        4,
		SizeofBool:       1,
		SizeofLong:       4,
		SizeofLongLong:   8,
		SizeofPtr:        8,
		SizeofFloat:      4,
		SizeofDouble:     8,
		SizeofLongDouble: 8,
		SizeofVaList:     8,
		SizeofFun:        0,

		AlignofShort:      2,
		AlignofInt:        4,
		AlignofBool:       1,
		AlignofLong:       4,
		AlignofLongLong:   8,
		AlignofPtr:        8,
		AlignofEnum:       4,
		AlignofFloat:      4,
		AlignofDouble:     8,
		AlignofLongDouble: 8,
		AlignofVaList:     8,
		AlignofFun:        0,

		CharIsUnsigned: false,
	}
}
