package jit

import (
	"github.com/mna/cirstage/lang/diag"
	"github.com/mna/cirstage/lang/ir"
)

// computeFrame assigns each owned local a naturally aligned offset from RBP
// (negative, growing down, per System V convention) and returns the total
// frame size rounded up to 16. The return address pushed by the `call` that
// entered this function and the prologue's `push rbp` take 16 bytes
// together, so a frame that is a multiple of 16 keeps RSP 16-byte aligned
// at every `call` site.
func computeFrame(ctx *ir.Context, owns []ir.VarID) (int, map[ir.VarID]int) {
	offsets := make(map[ir.VarID]int, len(owns))
	cursor := 0
	for _, v := range owns {
		vr := ctx.Vars.Get(v)
		size := ctx.Sizeof(vr.Type)
		align := ctx.Alignof(vr.Type)
		cursor = alignUp(cursor+size, align)
		offsets[v] = -cursor
	}
	frame := alignUp(cursor, 16)
	return frame, offsets
}

// compileFunction lowers one function var's sealed body to machine code,
// appending it to batch and recording the function's entry offset so other
// functions in the same batch (or a later one) can call it.
func (b *Backend) compileFunction(v ir.VarID, batch *pendingBatch) error {
	vr := b.Ctx.Vars.Get(v)
	if vr.Body == ir.None {
		diag.Bug("jit: compileFunction: %q has no body", vr.Name)
	}
	body := b.Ctx.Codes.Get(vr.Body)

	a := b.allocOf(v)
	a.Status = AllocCompiling
	a.BatchOffset = batch.enc.Here()

	frame, offsets := computeFrame(b.Ctx, body.Owns)
	enc := batch.enc

	enc.Push(RBP)
	enc.MovRegReg(RBP, RSP)
	if frame > 0 {
		enc.SubImm32(RSP, int32(frame))
	}
	enc.MovImm64(GBase, uint64(b.Globals.Base()))

	for i, p := range vr.Params {
		if i >= len(argRegs) {
			break // TODO: stack-passed arguments beyond the sixth are not implemented
		}
		if off, ok := offsets[p]; ok {
			enc.MovRegToMem(RBP, int32(off), argRegs[i])
		}
	}

	ir.Walk(b.Ctx.Stmts, body, func(h ir.StmtID, s *ir.Stmt) {
		batch.jumpOffsets[h] = enc.Here()
		b.emitStmt(enc, s, offsets, batch)
	})

	enc.MovRegReg(RSP, RBP)
	enc.Pop(RBP)
	enc.Ret()
	return nil
}

func (b *Backend) emitStmt(enc *Encoder, s *ir.Stmt, offsets map[ir.VarID]int, batch *pendingBatch) {
	switch s.Kind {
	case ir.SNop, ir.SLabel:
		// no code; SLabel's name has already been resolved to direct
		// Goto/Cmp JumpTarget handles by the time the backend sees it.

	case ir.SUnOp:
		b.emitUnOp(enc, s, offsets, batch)

	case ir.SBinOp:
		b.emitBinOp(enc, s, offsets, batch)

	case ir.SCall:
		b.emitCall(enc, s, offsets, batch)

	case ir.SReturn:
		if s.HasValue {
			b.loadValue(enc, s.Value, RAX, offsets, batch)
		}
		enc.MovRegReg(RSP, RBP)
		enc.Pop(RBP)
		enc.Ret()

	case ir.SCmp:
		b.loadValue(enc, s.A, RAX, offsets, batch)
		b.loadValue(enc, s.B, RCX, offsets, batch)
		enc.CmpRegReg(RAX, RCX)
		kind := jccFor(s.COp, isSignedValue(b.Ctx, s.A))
		slot := enc.Jcc(kind)
		batch.jumpPatches = append(batch.jumpPatches, jumpPatch{dispOffset: slot, target: s.JumpTarget})

	case ir.SGoto:
		slot := enc.Jmp()
		batch.jumpPatches = append(batch.jumpPatches, jumpPatch{dispOffset: slot, target: s.JumpTarget})

	case ir.SGotoLabel:
		diag.Bug("jit: unresolved goto-by-name reached codegen")

	case ir.SUser:
		diag.Bug("jit: unresolved staged statement reached codegen")
	}
}

func (b *Backend) emitUnOp(enc *Encoder, s *ir.Stmt, offsets map[ir.VarID]int, batch *pendingBatch) {
	switch s.UOp {
	case ir.UIdentity:
		b.loadValue(enc, s.A, RAX, offsets, batch)
		b.storeVar(enc, s.Dst, RAX, offsets, batch)

	case ir.UNeg:
		b.loadValue(enc, s.A, RAX, offsets, batch)
		enc.NegReg(RAX)
		b.storeVar(enc, s.Dst, RAX, offsets, batch)

	case ir.UBitNot:
		b.loadValue(enc, s.A, RAX, offsets, batch)
		enc.NegReg(RAX)
		enc.SubImm32(RAX, 1) // ~x == -x-1
		b.storeVar(enc, s.Dst, RAX, offsets, batch)

	case ir.ULogicalNot:
		b.loadValue(enc, s.A, RAX, offsets, batch)
		enc.MovImm64(RCX, 0)
		enc.CmpRegReg(RAX, RCX)
		jeSlot := enc.Jcc(JE)
		enc.MovImm64(RAX, 0)
		jmpSlot := enc.Jmp()
		trueAt := enc.Here()
		enc.PatchRel32(jeSlot, trueAt)
		enc.MovImm64(RAX, 1)
		endAt := enc.Here()
		enc.PatchRel32(jmpSlot, endAt)
		b.storeVar(enc, s.Dst, RAX, offsets, batch)

	case ir.UAddr:
		b.loadAddr(enc, s.A, RAX, offsets, batch)
		b.storeVar(enc, s.Dst, RAX, offsets, batch)

	case ir.UDeref:
		b.loadValue(enc, s.A, RAX, offsets, batch)
		enc.MovMemToReg(RAX, RAX, 0)
		b.storeVar(enc, s.Dst, RAX, offsets, batch)
	}
}

func (b *Backend) emitBinOp(enc *Encoder, s *ir.Stmt, offsets map[ir.VarID]int, batch *pendingBatch) {
	b.loadValue(enc, s.A, RAX, offsets, batch)
	b.loadValue(enc, s.B, RCX, offsets, batch)
	switch s.BOp {
	case ir.BPlus:
		enc.AddRegReg(RAX, RCX)
	case ir.BMinus:
		enc.SubRegReg(RAX, RCX)
	case ir.BMul:
		enc.IMulRegReg(RAX, RCX)
	case ir.BDiv:
		enc.Cqo()
		enc.IDivReg(RCX)
	case ir.BMod:
		enc.Cqo()
		enc.IDivReg(RCX)
		enc.MovRegReg(RAX, RDX)
	case ir.BBitAnd:
		enc.AndRegReg(RAX, RCX)
	case ir.BBitOr:
		enc.OrRegReg(RAX, RCX)
	case ir.BBitXor:
		enc.XorRegReg(RAX, RCX)
	case ir.BShl:
		enc.MovRegReg(RCX, RCX) // shift count already in cl (low byte of rcx)
		enc.ShlRegCL(RAX)
	case ir.BShr:
		enc.ShrRegCL(RAX)
	}
	b.storeVar(enc, s.Dst, RAX, offsets, batch)
}

func (b *Backend) emitCall(enc *Encoder, s *ir.Stmt, offsets map[ir.VarID]int, batch *pendingBatch) {
	for i, arg := range s.Args {
		if i >= len(argRegs) {
			break // TODO: stack-passed arguments beyond the sixth are not implemented
		}
		b.loadValue(enc, arg, argRegs[i], offsets, batch)
	}
	b.loadValue(enc, s.Target, R11, offsets, batch)
	enc.CallReg(R11)
	if s.HasDst {
		b.storeVar(enc, s.Dst, RAX, offsets, batch)
	}
}

// loadValue loads v's runtime value into dst.
func (b *Backend) loadValue(enc *Encoder, v ir.Value, dst Reg, offsets map[ir.VarID]int, batch *pendingBatch) {
	switch v.Kind {
	case ir.VInt:
		enc.MovImm64(dst, uint64(v.Int))
	case ir.VVar:
		b.loadVar(enc, v.Var, dst, offsets, batch)
	case ir.VMem:
		if v.Base == ir.None {
			diag.Bug("jit: VMem with an absolute (staging-tracked) base is not supported by this backend")
		}
		b.loadVar(enc, v.Base, dst, offsets, batch)
		enc.MovMemToReg(dst, dst, int32(v.Offset))
	default:
		diag.Bug("jit: value kind %s reached codegen unstaged", v.Kind)
	}
}

// loadAddr loads the address of an lvalue v into dst, for UAddr.
func (b *Backend) loadAddr(enc *Encoder, v ir.Value, dst Reg, offsets map[ir.VarID]int, batch *pendingBatch) {
	switch v.Kind {
	case ir.VVar:
		b.loadVarAddr(enc, v.Var, dst, offsets, batch)
	case ir.VMem:
		if v.Base == ir.None {
			diag.Bug("jit: address-of a VMem with an absolute base is not supported by this backend")
		}
		b.loadVar(enc, v.Base, dst, offsets, batch)
		if v.Offset != 0 {
			enc.AddImm32(dst, int32(v.Offset))
		}
	default:
		diag.Bug("jit: UAddr operand %s is not an lvalue", v.Kind)
	}
}

// loadVar loads the value *stored in* vid into dst: a stack slot's
// contents, a global's contents, or (for a function var) the function's own
// entry address, since a function value is already "the function", not a
// pointer to load through.
func (b *Backend) loadVar(enc *Encoder, vid ir.VarID, dst Reg, offsets map[ir.VarID]int, batch *pendingBatch) {
	if off, ok := offsets[vid]; ok {
		enc.MovMemToReg(dst, RBP, int32(off))
		return
	}
	a := b.mustResolve(vid)
	vr := b.Ctx.Vars.Get(vid)
	isFun := vr.IsFunction(b.Ctx.Types, b.Ctx.Typedefs)
	switch a.Status {
	case AllocGlobal:
		enc.MovMemToReg(dst, GBase, int32(a.GlobalOffset))
	case AllocExternal:
		enc.MovImm64(dst, uint64(a.HostAddr))
		if !isFun {
			enc.MovMemToReg(dst, dst, 0)
		}
	case AllocCompiling:
		slot := enc.MovImm64(dst, 0)
		batch.crossPatches[vid] = append(batch.crossPatches[vid], slot)
		if !isFun {
			enc.MovMemToReg(dst, dst, 0)
		}
	default:
		diag.Bug("jit: variable %q has no allocation", vr.Name)
	}
}

// loadVarAddr loads the address *of* vid itself into dst (used by UAddr,
// through loadAddr).
func (b *Backend) loadVarAddr(enc *Encoder, vid ir.VarID, dst Reg, offsets map[ir.VarID]int, batch *pendingBatch) {
	if off, ok := offsets[vid]; ok {
		enc.MovRegReg(dst, RBP)
		enc.AddImm32(dst, int32(off))
		return
	}
	a := b.mustResolve(vid)
	switch a.Status {
	case AllocGlobal:
		enc.MovRegReg(dst, GBase)
		enc.AddImm32(dst, int32(a.GlobalOffset))
	case AllocExternal:
		enc.MovImm64(dst, uint64(a.HostAddr))
	case AllocCompiling:
		slot := enc.MovImm64(dst, 0)
		batch.crossPatches[vid] = append(batch.crossPatches[vid], slot)
	default:
		diag.Bug("jit: variable has no allocation")
	}
}

// storeVar writes src into vid's storage.
func (b *Backend) storeVar(enc *Encoder, vid ir.VarID, src Reg, offsets map[ir.VarID]int, batch *pendingBatch) {
	if off, ok := offsets[vid]; ok {
		enc.MovRegToMem(RBP, int32(off), src)
		return
	}
	a := b.mustResolve(vid)
	tmp := RAX
	if src == RAX {
		tmp = RCX
	}
	switch a.Status {
	case AllocGlobal:
		enc.MovRegToMem(GBase, int32(a.GlobalOffset), src)
	case AllocExternal:
		enc.MovImm64(tmp, uint64(a.HostAddr))
		enc.MovRegToMem(tmp, 0, src)
	case AllocCompiling:
		slot := enc.MovImm64(tmp, 0)
		batch.crossPatches[vid] = append(batch.crossPatches[vid], slot)
		enc.MovRegToMem(tmp, 0, src)
	default:
		diag.Bug("jit: variable has no allocation")
	}
}

func isSignedValue(ctx *ir.Context, v ir.Value) bool {
	t := ctx.Unroll(v.Type)
	ty := ctx.Types.Get(t)
	if ty.Kind != ir.KInt {
		return true // pointers and other comparable kinds compare as signed pointers' bit pattern here
	}
	return ty.IKind.IsSigned()
}

func jccFor(op ir.CmpOp, signed bool) JccKind {
	switch op {
	case ir.CmpEq:
		return JE
	case ir.CmpNe:
		return JNE
	case ir.CmpLt:
		if signed {
			return JL
		}
		return JB
	case ir.CmpLe:
		if signed {
			return JLE
		}
		return JBE
	case ir.CmpGt:
		if signed {
			return JG
		}
		return JA
	case ir.CmpGe:
		if signed {
			return JGE
		}
		return JAE
	default:
		diag.Bug("jit: unknown CmpOp %d", op)
		return JE
	}
}
