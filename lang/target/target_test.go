package target_test

import (
	"testing"

	"github.com/mna/cirstage/lang/target"
)

func TestAlignUp(t *testing.T) {
	cases := []struct {
		n, align, want int
	}{
		{0, 4, 0},
		{1, 4, 4},
		{4, 4, 4},
		{5, 4, 8},
		{3, 8, 8},
		{10, 1, 10},
	}
	for _, c := range cases {
		if got := target.AlignUp(c.n, c.align); got != c.want {
			t.Errorf("AlignUp(%d, %d) = %d, want %d", c.n, c.align, got, c.want)
		}
	}
}

func TestLinuxAMD64GCCIsGCC(t *testing.T) {
	m := target.LinuxAMD64GCC()
	if m.Compiler != target.GCC {
		t.Errorf("LinuxAMD64GCC preset must use GCC layout rules, got %v", m.Compiler)
	}
	if m.SizeofPtr != 8 || m.SizeofInt != 4 || m.SizeofLong != 8 {
		t.Errorf("unexpected x86-64 sizes: ptr=%d int=%d long=%d", m.SizeofPtr, m.SizeofInt, m.SizeofLong)
	}
}

func TestWindowsAMD64MSVCIsMSVC(t *testing.T) {
	m := target.WindowsAMD64MSVC()
	if m.Compiler != target.MSVC {
		t.Errorf("WindowsAMD64MSVC preset must use MSVC layout rules, got %v", m.Compiler)
	}
	if m.SizeofLong != 4 {
		t.Errorf("MSVC's long should be 4 bytes, got %d", m.SizeofLong)
	}
}
