package jit

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// PageSize is the allocation granularity for executable batches (spec.md
// §4.6: "a page-sized (or larger) region is mapped RW").
const PageSize = 4096

// CodePage is one mmap'd region backing a batch of compiled functions. It
// starts life RW, accepts emitted bytes, and transitions once to RX before
// becoming live; per spec.md §5, that transition is atomic per batch and
// pages are never unmapped once allocated.
type CodePage struct {
	mem  []byte
	used int
	base uintptr
}

// NewCodePage mmaps a zeroed, anonymous RW region of at least size bytes,
// rounded up to a page.
func NewCodePage(size int) (*CodePage, error) {
	n := ((size + PageSize - 1) / PageSize) * PageSize
	if n == 0 {
		n = PageSize
	}
	mem, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("jit: mmap code page: %w", err)
	}
	return &CodePage{mem: mem, base: addrOf(mem)}, nil
}

// Remaining reports how many bytes are still free in this page.
func (p *CodePage) Remaining() int { return len(p.mem) - p.used }

// Place copies code into the page (the page must still be RW) and returns
// the absolute address the code now lives at.
func (p *CodePage) Place(code []byte) (addr uintptr, offset int, err error) {
	if len(code) > p.Remaining() {
		return 0, 0, fmt.Errorf("jit: code page out of space: need %d, have %d", len(code), p.Remaining())
	}
	offset = p.used
	copy(p.mem[p.used:], code)
	p.used += len(code)
	return p.base + uintptr(offset), offset, nil
}

// MakeExecutable switches the page's protection RW -> RX. Called once per
// batch after every pending function in it has been placed.
func (p *CodePage) MakeExecutable() error {
	if err := unix.Mprotect(p.mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return fmt.Errorf("jit: mprotect RX: %w", err)
	}
	return nil
}

// Base returns the page's absolute base address.
func (p *CodePage) Base() uintptr { return p.base }
