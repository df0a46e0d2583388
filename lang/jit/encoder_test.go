package jit_test

import (
	"testing"

	"github.com/mna/cirstage/lang/jit"
)

// TestMovImm64EncodesRexAndOpcode checks the low register (RAX, no REX.B)
// and a high register (R9, needs REX.B) both encode the spec.md §4.6
// `movabs` form, with the 8-byte immediate landing exactly at the offset
// MovImm64 reports.
func TestMovImm64EncodesRexAndOpcode(t *testing.T) {
	var e jit.Encoder
	off := e.MovImm64(jit.RAX, 0x1122334455667788)
	if off != 2 {
		t.Fatalf("expected the immediate to start right after REX+opcode (offset 2), got %d", off)
	}
	if len(e.Buf) != 10 {
		t.Fatalf("movabs reg64, imm64 is 10 bytes, got %d", len(e.Buf))
	}
	if e.Buf[0] != 0x48 || e.Buf[1] != 0xB8 {
		t.Errorf("expected REX.W (0x48) + 0xB8 for RAX, got % x", e.Buf[:2])
	}

	var e2 jit.Encoder
	e2.MovImm64(jit.R9, 0)
	if e2.Buf[0] != 0x49 {
		t.Errorf("R9 needs REX.B set (0x49), got %#x", e2.Buf[0])
	}
	if e2.Buf[1] != 0xB8+1 {
		t.Errorf("R9's opcode low3 is 1, expected 0xB9, got %#x", e2.Buf[1])
	}
}

// TestPatchImm64Roundtrip is the cross-function backpatch slot's contract
// (spec.md §4.6): PatchImm64 at the offset MovImm64 returned must replace
// exactly those 8 bytes and nothing else.
func TestPatchImm64Roundtrip(t *testing.T) {
	var e jit.Encoder
	off := e.MovImm64(jit.RDI, 0)
	e.Ret() // trailing byte that must survive the patch untouched

	e.PatchImm64(off, 0xdeadbeefcafef00d)
	if e.Buf[len(e.Buf)-1] != 0xC3 {
		t.Error("PatchImm64 must not touch bytes outside its 8-byte slot")
	}

	var want [8]byte
	for i := range want {
		want[i] = byte(0xdeadbeefcafef00d >> (8 * i))
	}
	got := e.Buf[off : off+8]
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("patched immediate mismatch at byte %d: got %#x want %#x", i, got[i], want[i])
		}
	}
}

// TestJccAndPatchRel32 covers the intra-function jump backpatch slot:
// PatchRel32's displacement must satisfy target == dispOffset+4+rel.
func TestJccAndPatchRel32(t *testing.T) {
	var e jit.Encoder
	e.Push(jit.RBX) // pad so the jump isn't at offset 0
	dispOffset := e.Jcc(jit.JE)
	e.Ret()
	target := e.Here()

	e.PatchRel32(dispOffset, target)

	rel := int32(e.Buf[dispOffset]) | int32(e.Buf[dispOffset+1])<<8 |
		int32(e.Buf[dispOffset+2])<<16 | int32(e.Buf[dispOffset+3])<<24
	if got := dispOffset + 4 + int(rel); got != target {
		t.Errorf("jump target = dispOffset+4+rel = %d, want %d", got, target)
	}
}

// TestJmpUnconditionalOpcode checks Jmp emits the single-byte E9 opcode
// (as opposed to Jcc's two-byte 0F8x form).
func TestJmpUnconditionalOpcode(t *testing.T) {
	var e jit.Encoder
	dispOffset := e.Jmp()
	if e.Buf[0] != 0xE9 {
		t.Errorf("expected opcode 0xE9 for an unconditional jmp, got %#x", e.Buf[0])
	}
	if dispOffset != 1 {
		t.Errorf("expected the displacement to start right after the 1-byte opcode, got %d", dispOffset)
	}
}

// TestCallRegNeedsRexForHighRegisters checks CallReg only emits a REX
// prefix when the register index requires REX.B (R8-R15).
func TestCallRegNeedsRexForHighRegisters(t *testing.T) {
	var low jit.Encoder
	low.CallReg(jit.RAX)
	if len(low.Buf) != 2 {
		t.Fatalf("call rax should be 2 bytes (FF /2), got %d: % x", len(low.Buf), low.Buf)
	}

	var high jit.Encoder
	high.CallReg(jit.R10)
	if len(high.Buf) != 3 {
		t.Fatalf("call r10 needs a REX.B prefix (3 bytes), got %d: % x", len(high.Buf), high.Buf)
	}
	if high.Buf[0] != 0x41 {
		t.Errorf("expected REX.B (0x41) before call r10, got %#x", high.Buf[0])
	}
}
