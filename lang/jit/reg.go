// Package jit implements the x86-64 System V back end of spec.md §4.6: a
// growable machine-code buffer, a register/encoding layer grounded on the
// other example pack's scm-jit back end, an mmap/mprotect page manager,
// cross-function and intra-function backpatch tables, and the call stub
// that bridges a generic argument vector into the ABI.
package jit

// Reg is a hardware general-purpose register index, encoded exactly as the
// x86-64 ModRM/REX scheme expects (0-7 direct, 8-15 needing REX.B/.R/.X).
type Reg uint8

const (
	RAX Reg = iota
	RCX
	RDX
	RBX
	RSP
	RBP
	RSI
	RDI
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
)

// GBase is the pinned callee-safe register holding the global arena's base
// address across a compiled function's body (spec.md §4.6 calls this
// convention out by name).
const GBase = R10

// argRegs is the System V integer argument-passing order, used both by the
// prologue (spilling incoming args to their stack slots) and by Call
// emission (loading up to six arguments before the `call`).
var argRegs = [6]Reg{RDI, RSI, RDX, RCX, R8, R9}

func (r Reg) needsREX() bool { return r >= R8 }

// low3 returns the register's 3-bit field value for ModRM/opcode encoding.
func (r Reg) low3() byte { return byte(r) & 0x7 }
