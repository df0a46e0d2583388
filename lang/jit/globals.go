package jit

import (
	"fmt"

	"github.com/mna/cirstage/lang/diag"
	"golang.org/x/sys/unix"
)

// GlobalArena is the fixed, page-mapped region backing every non-function
// global variable the JIT allocates storage for (spec.md §4.6: "a fixed
// page-mapped region, default 1 MiB"). It is distinct from CodePage: it
// stays RW for the whole run, since global variables are read and written
// by compiled code, never executed.
type GlobalArena struct {
	mem  []byte
	used int
}

// DefaultGlobalArenaSize is the 1 MiB default spec.md §4.6 calls out.
const DefaultGlobalArenaSize = 1 << 20

// NewGlobalArena mmaps a zeroed RW region of size bytes.
func NewGlobalArena(size int) (*GlobalArena, error) {
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("jit: mmap global arena: %w", err)
	}
	return &GlobalArena{mem: mem}, nil
}

// Alloc reserves size bytes aligned to align and returns the byte offset
// from the arena's base. It is a Bug (not Fatal) to overflow: spec.md §5
// calls the arena "guarded against overflow", and overflowing it means the
// front end failed to size it for the translation unit being compiled.
func (g *GlobalArena) Alloc(size, align int) int {
	off := alignUp(g.used, align)
	if off+size > len(g.mem) {
		diag.Bug("jit: global arena exhausted")
	}
	g.used = off + size
	return off
}

// Base returns the arena's absolute base address.
func (g *GlobalArena) Base() uintptr { return addrOf(g.mem) }

func alignUp(n, align int) int {
	if align <= 0 {
		return n
	}
	return (n + align - 1) / align * align
}
