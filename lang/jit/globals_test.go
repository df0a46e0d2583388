package jit_test

import (
	"testing"

	"github.com/mna/cirstage/lang/jit"
)

// TestGlobalArenaAllocAligns covers spec.md §4.6's alignment contract:
// successive allocations must round up to the requested alignment and
// never overlap.
func TestGlobalArenaAllocAligns(t *testing.T) {
	g, err := jit.NewGlobalArena(jit.DefaultGlobalArenaSize)
	if err != nil {
		t.Fatalf("NewGlobalArena: %v", err)
	}

	first := g.Alloc(1, 1) // a lone char
	second := g.Alloc(8, 8) // a double, needs 8-byte alignment
	if first != 0 {
		t.Errorf("first allocation should start at offset 0, got %d", first)
	}
	if second%8 != 0 {
		t.Errorf("8-byte-aligned allocation landed at unaligned offset %d", second)
	}
	if second < first+1 {
		t.Errorf("second allocation at %d overlaps the first (size 1 at %d)", second, first)
	}
}

// TestGlobalArenaOverflowPanics: spec.md §5 calls overflow a Bug, not a
// recoverable Fatal error, since it reflects the front end mis-sizing the
// arena for the translation unit.
func TestGlobalArenaOverflowPanics(t *testing.T) {
	g, err := jit.NewGlobalArena(16)
	if err != nil {
		t.Fatalf("NewGlobalArena: %v", err)
	}
	defer func() {
		if recover() == nil {
			t.Error("allocating past the arena's capacity must panic")
		}
	}()
	g.Alloc(32, 1)
}
