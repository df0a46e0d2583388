package jit

import (
	"bytes"
	"testing"

	"github.com/mna/cirstage/lang/ir"
	"github.com/mna/cirstage/lang/target"
)

// TestEmitBinOpScaledAddSequence covers the JIT half of spec.md §4.6's
// ptr+int scaling contract. lang/builder pre-scales a runtime index via an
// explicit BMul statement (see lang/builder/arith.go's scaleValue) before
// emitting the pointer BPlus, so by the time emitBinOp reaches the add the
// index is already in bytes: the two statements must encode as a plain
// IMul followed by a plain Add, with no separate scaled-lea instruction
// selection in this package.
func TestEmitBinOpScaledAddSequence(t *testing.T) {
	ctx := ir.NewContext(target.LinuxAMD64GCC())
	b, err := NewBackend(ctx, NewHostSymbols())
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}

	intType := ctx.Types.Int(ir.IInt)
	idx := ctx.Vars.New(ir.Var{Type: intType})
	scaled := ctx.Vars.New(ir.Var{Type: intType})
	ptrResult := ctx.Vars.New(ir.Var{Type: ctx.Types.Ptr(intType)})
	offsets := map[ir.VarID]int{idx: -8, scaled: -16, ptrResult: -24}
	batch := &pendingBatch{crossPatches: map[ir.VarID][]int{}}

	var enc Encoder
	scaleStmt := ir.NewBinOp(scaled, ir.BMul, ir.NewVar(intType, idx), ir.NewInt(intType, 4))
	b.emitBinOp(&enc, &scaleStmt, offsets, batch)
	scaleBytes := append([]byte(nil), enc.Buf...)

	addStmt := ir.NewBinOp(ptrResult, ir.BPlus, ir.NewInt(intType, 0x1000), ir.NewVar(intType, scaled))
	addStart := len(enc.Buf)
	b.emitBinOp(&enc, &addStmt, offsets, batch)
	addBytes := enc.Buf[addStart:]

	var wantIMul Encoder
	wantIMul.IMulRegReg(RAX, RCX)
	if !bytes.Contains(scaleBytes, wantIMul.Buf) {
		t.Errorf("expected the scale statement to encode an IMul %x, got % x", wantIMul.Buf, scaleBytes)
	}

	var wantAdd Encoder
	wantAdd.AddRegReg(RAX, RCX)
	if !bytes.Contains(addBytes, wantAdd.Buf) {
		t.Errorf("expected the pointer-add statement to encode a plain Add %x, got % x", wantAdd.Buf, addBytes)
	}
}
