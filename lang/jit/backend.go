package jit

import (
	"fmt"

	"github.com/dolthub/swiss"
	"github.com/mna/cirstage/lang/ir"
)

// AllocStatus is the per-variable state spec.md §4.6 tracks during
// resolution and compilation.
type AllocStatus int

const (
	AllocNone AllocStatus = iota
	AllocStack
	AllocGlobal
	AllocExternal
	AllocCompiling
)

// VarAlloc is the stored state per variable (spec.md §4.6): exactly one of
// StackOffset, GlobalOffset, HostAddr, or BatchOffset is meaningful,
// selected by Status.
type VarAlloc struct {
	Status AllocStatus

	StackOffset  int     // AllocStack: offset from rsp within its function's frame
	GlobalOffset int     // AllocGlobal: offset into the GlobalArena
	HostAddr     uintptr // AllocExternal: resolved host pointer
	BatchOffset  int     // AllocCompiling: code offset inside the pending batch buffer
}

// Backend is the on-demand x86-64 compiler (component I): it owns the
// compile queue, the global data arena, the growable per-batch code
// buffer, and the two backpatch tables (spec.md §4.6).
type Backend struct {
	Ctx     *ir.Context
	Symbols *HostSymbols
	Globals *GlobalArena

	allocs *swiss.Map[ir.VarID, *VarAlloc]
	queue  []ir.VarID // LIFO compile queue (spec.md §5)

	pages    []*CodePage
	stubAddr uintptr
}

// NewBackend returns a Backend with a fresh 1 MiB global arena.
func NewBackend(ctx *ir.Context, symbols *HostSymbols) (*Backend, error) {
	g, err := NewGlobalArena(DefaultGlobalArenaSize)
	if err != nil {
		return nil, err
	}
	return &Backend{
		Ctx:     ctx,
		Symbols: symbols,
		Globals: g,
		allocs:  swiss.NewMap[ir.VarID, *VarAlloc](64),
	}, nil
}

// fatalResolve wraps a Resolve error so it can cross the deeply nested
// codegen call stack as a panic and be recovered at Drain's boundary,
// matching the teacher's own use of panic/recover to unwind a multi-level
// parse or compile without threading an error return through every call.
type fatalResolve struct{ err error }

// mustResolve resolves v or panics with a fatalResolve, recovered by Drain.
func (b *Backend) mustResolve(v ir.VarID) *VarAlloc {
	a, err := b.Resolve(v)
	if err != nil {
		panic(fatalResolve{err})
	}
	return a
}

func (b *Backend) allocOf(v ir.VarID) *VarAlloc {
	a, ok := b.allocs.Get(v)
	if !ok {
		a = &VarAlloc{}
		b.allocs.Put(v, a)
	}
	return a
}

// Resolve implements spec.md §4.6's resolve(var): it decides how var's
// storage will be materialized and, for a function with a body, enqueues
// it for compilation. A function declared static with no definition, or an
// extern whose host symbol cannot be found, is a Fatal miscompile rather
// than an internal Bug: it reflects an error in the translation unit being
// compiled, so it is returned as an error instead of panicking.
func (b *Backend) Resolve(v ir.VarID) (*VarAlloc, error) {
	a := b.allocOf(v)
	if a.Status != AllocNone {
		return a, nil
	}
	vr := b.Ctx.Vars.Get(v)
	isFun := vr.IsFunction(b.Ctx.Types, b.Ctx.Typedefs)

	switch {
	case isFun && vr.Body != ir.None:
		a.Status = AllocCompiling
		b.queue = append(b.queue, v)
		return a, nil

	case isFun && vr.Storage == ir.SCStatic:
		return a, fmt.Errorf("static function %q has no definition", vr.Name)

	case isFun:
		addr, ok := b.Symbols.Find(vr.Name)
		if !ok {
			return a, fmt.Errorf("unresolved external symbol: %s", vr.Name)
		}
		a.Status = AllocExternal
		a.HostAddr = addr
		return a, nil

	default:
		if vr.Storage != ir.SCStatic {
			if addr, ok := b.Symbols.Find(vr.Name); ok {
				a.Status = AllocExternal
				a.HostAddr = addr
				return a, nil
			}
			if vr.Storage == ir.SCExtern {
				return a, fmt.Errorf("unresolved external symbol: %s", vr.Name)
			}
		}
		size := b.Ctx.Sizeof(vr.Type)
		align := b.Ctx.Alignof(vr.Type)
		a.Status = AllocGlobal
		a.GlobalOffset = b.Globals.Alloc(size, align)
		return a, nil
	}
}

// Drain compiles every function currently on the queue (and any further
// functions Resolve enqueues as a side effect of compiling them), in LIFO
// order, then places the accumulated batch into one or more executable
// pages and performs both backpatch passes (spec.md §4.6).
func (b *Backend) Drain() (err error) {
	defer func() {
		if r := recover(); r != nil {
			if fr, ok := r.(fatalResolve); ok {
				err = fr.err
				return
			}
			panic(r)
		}
	}()

	batch := &pendingBatch{
		enc:          &Encoder{},
		crossPatches: make(map[ir.VarID][]int),
		jumpOffsets:  make(map[ir.StmtID]int),
	}

	var compiled []ir.VarID
	for len(b.queue) > 0 {
		v := b.queue[len(b.queue)-1]
		b.queue = b.queue[:len(b.queue)-1]
		if err := b.compileFunction(v, batch); err != nil {
			return err
		}
		compiled = append(compiled, v)
	}

	if len(batch.enc.Buf) == 0 {
		return nil
	}
	page, err := NewCodePage(len(batch.enc.Buf))
	if err != nil {
		return err
	}
	base, _, err := page.Place(batch.enc.Buf)
	if err != nil {
		return err
	}

	for v, slots := range batch.crossPatches {
		a := b.allocOf(v)
		if a.Status != AllocCompiling {
			return fmt.Errorf("jit: cross-patch target %d not in Compiling state", v)
		}
		addr := base + uintptr(a.BatchOffset)
		for _, slot := range slots {
			batch.enc.PatchImm64(slot, uint64(addr))
		}
		a.Status = AllocExternal
		a.HostAddr = addr
	}
	// Every function compiled in this batch, called from it or not, now lives
	// at its offset inside the placed page.
	for _, v := range compiled {
		a := b.allocOf(v)
		a.Status = AllocExternal
		a.HostAddr = base + uintptr(a.BatchOffset)
	}
	for _, p := range batch.jumpPatches {
		target, ok := batch.jumpOffsets[p.target]
		if !ok {
			return fmt.Errorf("jit: intra-function jump target statement %d never emitted", p.target)
		}
		batch.enc.PatchRel32(p.dispOffset, target)
	}

	// Re-copy the patched buffer since Place already copied it before
	// patching; patch in place on the page's backing memory too.
	copy(page.mem[:len(batch.enc.Buf)], batch.enc.Buf)

	if err := page.MakeExecutable(); err != nil {
		return err
	}
	b.pages = append(b.pages, page)
	return nil
}

type jumpPatch struct {
	dispOffset int
	target     ir.StmtID
}

// pendingBatch accumulates one Drain's worth of emitted code and its two
// backpatch tables before pages are placed.
type pendingBatch struct {
	enc          *Encoder
	crossPatches map[ir.VarID][]int   // dest var -> movabs imm slot offsets
	jumpOffsets  map[ir.StmtID]int    // statement -> its own code offset
	jumpPatches  []jumpPatch
}
