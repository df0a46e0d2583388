package jit

import "encoding/binary"

// Encoder accumulates emitted machine code bytes for one compilation batch,
// in the style of the pack's scm-jit back end (jitCompileExprBody's `code
// []byte`, byte literals with an inline asm-syntax comment). Offsets
// recorded via Here are later used to resolve backpatch targets.
type Encoder struct {
	Buf []byte
}

// Here returns the current write offset, usable as a jump target or the
// origin of a backpatch slot.
func (e *Encoder) Here() int { return len(e.Buf) }

func (e *Encoder) emit(b ...byte) { e.Buf = append(e.Buf, b...) }

func rex(w, r, x, b bool) byte {
	v := byte(0x40)
	if w {
		v |= 0x08
	}
	if r {
		v |= 0x04
	}
	if x {
		v |= 0x02
	}
	if b {
		v |= 0x01
	}
	return v
}

func modrm(mod, reg, rm byte) byte { return mod<<6 | (reg&7)<<3 | rm&7 }

// MovImm64 emits `movabs reg, imm64` and returns the offset of the 8-byte
// immediate field, which callers use as a cross-function address backpatch
// slot (spec.md §4.6).
func (e *Encoder) MovImm64(dst Reg, imm uint64) (immOffset int) {
	e.emit(rex(true, false, false, dst.needsREX()), 0xB8+dst.low3())
	immOffset = e.Here()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], imm)
	e.emit(buf[:]...)
	return immOffset
}

// PatchImm64 overwrites the 8-byte slot at offset (as returned by
// MovImm64) with value.
func (e *Encoder) PatchImm64(offset int, value uint64) {
	binary.LittleEndian.PutUint64(e.Buf[offset:offset+8], value)
}

// MovRegReg emits `mov dst, src` (64-bit).
func (e *Encoder) MovRegReg(dst, src Reg) {
	e.emit(rex(true, src.needsREX(), false, dst.needsREX()), 0x89, modrm(3, byte(src), byte(dst)))
}

// MovMemToReg emits `mov dst, [base+disp32]`.
func (e *Encoder) MovMemToReg(dst, base Reg, disp int32) {
	e.emit(rex(true, dst.needsREX(), false, base.needsREX()), 0x8B)
	e.emitModRMDisp32(dst, base, disp)
}

// MovRegToMem emits `mov [base+disp32], src`.
func (e *Encoder) MovRegToMem(base Reg, disp int32, src Reg) {
	e.emit(rex(true, src.needsREX(), false, base.needsREX()), 0x89)
	e.emitModRMDisp32(src, base, disp)
}

func (e *Encoder) emitModRMDisp32(reg, base Reg, disp int32) {
	e.emit(modrm(2, byte(reg), byte(base)))
	if base.low3() == 4 { // RSP/R12 need a SIB byte
		e.emit(0x24)
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(disp))
	e.emit(buf[:]...)
}

// AddImm32 emits `add dst, imm32`.
func (e *Encoder) AddImm32(dst Reg, imm int32) {
	e.emit(rex(true, false, false, dst.needsREX()), 0x81, modrm(3, 0, byte(dst)))
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(imm))
	e.emit(buf[:]...)
}

// SubImm32 emits `sub dst, imm32`.
func (e *Encoder) SubImm32(dst Reg, imm int32) {
	e.emit(rex(true, false, false, dst.needsREX()), 0x81, modrm(3, 5, byte(dst)))
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(imm))
	e.emit(buf[:]...)
}

// AddRegReg emits `add dst, src`.
func (e *Encoder) AddRegReg(dst, src Reg) {
	e.emit(rex(true, src.needsREX(), false, dst.needsREX()), 0x01, modrm(3, byte(src), byte(dst)))
}

// SubRegReg emits `sub dst, src`.
func (e *Encoder) SubRegReg(dst, src Reg) {
	e.emit(rex(true, src.needsREX(), false, dst.needsREX()), 0x29, modrm(3, byte(src), byte(dst)))
}

// IMulRegReg emits `imul dst, src`.
func (e *Encoder) IMulRegReg(dst, src Reg) {
	e.emit(rex(true, dst.needsREX(), false, src.needsREX()), 0x0F, 0xAF, modrm(3, byte(dst), byte(src)))
}

// NegReg emits `neg dst` (two's complement negation).
func (e *Encoder) NegReg(dst Reg) {
	e.emit(rex(true, false, false, dst.needsREX()), 0xF7, modrm(3, 3, byte(dst)))
}

// Cqo emits `cqo`, sign-extending RAX into RDX:RAX ahead of a 64-bit IDiv.
func (e *Encoder) Cqo() {
	e.emit(rex(true, false, false, false), 0x99)
}

// IDivReg emits `idiv divisor`, dividing RDX:RAX by divisor; quotient lands
// in RAX, remainder in RDX. Callers must emit Cqo first.
func (e *Encoder) IDivReg(divisor Reg) {
	e.emit(rex(true, false, false, divisor.needsREX()), 0xF7, modrm(3, 7, byte(divisor)))
}

// XorRegReg emits `xor dst, src`.
func (e *Encoder) XorRegReg(dst, src Reg) {
	e.emit(rex(true, src.needsREX(), false, dst.needsREX()), 0x31, modrm(3, byte(src), byte(dst)))
}

// AndRegReg emits `and dst, src`.
func (e *Encoder) AndRegReg(dst, src Reg) {
	e.emit(rex(true, src.needsREX(), false, dst.needsREX()), 0x21, modrm(3, byte(src), byte(dst)))
}

// OrRegReg emits `or dst, src`.
func (e *Encoder) OrRegReg(dst, src Reg) {
	e.emit(rex(true, src.needsREX(), false, dst.needsREX()), 0x09, modrm(3, byte(src), byte(dst)))
}

// ShlRegCL emits `shl dst, cl`.
func (e *Encoder) ShlRegCL(dst Reg) {
	e.emit(rex(true, false, false, dst.needsREX()), 0xD3, modrm(3, 4, byte(dst)))
}

// ShrRegCL emits `sar dst, cl` (arithmetic shift, matching signed-int `>>`).
func (e *Encoder) ShrRegCL(dst Reg) {
	e.emit(rex(true, false, false, dst.needsREX()), 0xD3, modrm(3, 7, byte(dst)))
}

// CmpRegReg emits `cmp a, b`.
func (e *Encoder) CmpRegReg(a, b Reg) {
	e.emit(rex(true, b.needsREX(), false, a.needsREX()), 0x39, modrm(3, byte(b), byte(a)))
}

// JccKind selects the conditional-jump mnemonic; spec.md §4.6 picks
// signed vs. unsigned variants from the operands' converted arithmetic
// type, and je/jne regardless of signedness.
type JccKind byte

const (
	JE  JccKind = 0x84
	JNE JccKind = 0x85
	JL  JccKind = 0x8C
	JGE JccKind = 0x8D
	JLE JccKind = 0x8E
	JG  JccKind = 0x8F
	JB  JccKind = 0x82
	JAE JccKind = 0x83
	JBE JccKind = 0x86
	JA  JccKind = 0x87
)

// Jcc emits a near conditional jump (0F 8x, rel32) and returns the offset
// of the 4-byte displacement, an intra-function relative-jump backpatch
// slot (spec.md §4.6).
func (e *Encoder) Jcc(kind JccKind) (dispOffset int) {
	e.emit(0x0F, byte(kind))
	dispOffset = e.Here()
	e.emit(0, 0, 0, 0)
	return dispOffset
}

// Jmp emits a near unconditional jump (E9, rel32) and returns the
// displacement offset.
func (e *Encoder) Jmp() (dispOffset int) {
	e.emit(0xE9)
	dispOffset = e.Here()
	e.emit(0, 0, 0, 0)
	return dispOffset
}

// PatchRel32 overwrites the 4-byte displacement at dispOffset so the jump
// lands at targetOffset: `target - (slot + 4)` (spec.md §4.6).
func (e *Encoder) PatchRel32(dispOffset, targetOffset int) {
	rel := int32(targetOffset - (dispOffset + 4))
	binary.LittleEndian.PutUint32(e.Buf[dispOffset:dispOffset+4], uint32(rel))
}

// CallReg emits `call reg`.
func (e *Encoder) CallReg(r Reg) {
	if r.needsREX() {
		e.emit(rex(false, false, false, true))
	}
	e.emit(0xFF, modrm(3, 2, byte(r)))
}

// Ret emits `ret`.
func (e *Encoder) Ret() { e.emit(0xC3) }

// Push emits `push reg`.
func (e *Encoder) Push(r Reg) {
	if r.needsREX() {
		e.emit(rex(false, false, false, true))
	}
	e.emit(0x50 + r.low3())
}

// Pop emits `pop reg`.
func (e *Encoder) Pop(r Reg) {
	if r.needsREX() {
		e.emit(rex(false, false, false, true))
	}
	e.emit(0x58 + r.low3())
}
