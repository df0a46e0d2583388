package jit

// BuildCallStub assembles the small, position-independent trampoline
// spec.md §4.6 and §7 describe for invoking a JIT-compiled function from
// the staging layer with a single, uniformly-typed argument: a pointer to
// an argument vector. Offset 0 of that vector holds the target function
// pointer; offsets 8, 16, 24, 32, 40, 48 hold up to six System V integer
// arguments, loaded into RDI, RSI, RDX, RCX, R8, R9 in that order before a
// tail jump to the target. The stub itself takes its one argument in RDI
// (the vector pointer), matching the standard ABI entry convention, so no
// prologue/epilogue is needed: it never returns to its own caller, it jumps
// directly into the target and lets the target's `ret` return to whatever
// called the stub.
func BuildCallStub() []byte {
	enc := &Encoder{}

	vec := RAX
	enc.MovRegReg(vec, RDI)

	offsets := [6]int32{8, 16, 24, 32, 40, 48}
	for i, reg := range argRegs {
		enc.MovMemToReg(reg, vec, offsets[i])
	}

	target := R11
	enc.MovMemToReg(target, vec, 0)

	enc.emitJmpReg(target)

	return enc.Buf
}

// emitJmpReg emits `jmp reg` (FF /4), a tail call that never returns to the
// stub's own frame.
func (e *Encoder) emitJmpReg(r Reg) {
	if r.needsREX() {
		e.emit(rex(false, false, false, true))
	}
	e.emit(0xFF, modrm(3, 4, byte(r)))
}

// PlaceCallStub compiles and places the call stub on page, returning its
// entry address. Callers typically place one stub per CodePage and reuse
// it for every JIT-compiled function invoked from the staging layer.
func PlaceCallStub(page *CodePage) (uintptr, error) {
	code := BuildCallStub()
	addr, _, err := page.Place(code)
	return addr, err
}
