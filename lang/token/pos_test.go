package token

import (
	"fmt"
	"testing"
)

type startEnd struct {
	s, e Pos
}

func (se startEnd) Span() (start, end Pos) { return se.s, se.e }

func TestFileLineCol(t *testing.T) {
	fs := NewFileSet()
	f := fs.AddFile("test.c", -1, 10)
	f.AddLine(3)
	f.AddLine(5)
	f.AddLine(8)

	cases := []struct {
		offset   int
		wantLine int
		wantCol  int
	}{
		{0, 1, 1},
		{3, 1, 4},
		{4, 2, 1},
		{5, 2, 2},
		{6, 3, 1},
		{8, 3, 3},
		{9, 4, 1},
	}
	for _, c := range cases {
		t.Run(fmt.Sprintf("offset=%d", c.offset), func(t *testing.T) {
			line, col := f.LineCol(f.Pos(c.offset))
			if line != c.wantLine || col != c.wantCol {
				t.Errorf("got (%d,%d), want (%d,%d)", line, col, c.wantLine, c.wantCol)
			}
		})
	}
}

func TestFileSetFileLookup(t *testing.T) {
	fs := NewFileSet()
	f0 := fs.AddFile("a.c", -1, 10)
	f1 := fs.AddFile("b.c", -1, 5)

	if got := fs.File(f0.Pos(0)); got != f0 {
		t.Errorf("expected f0 for first file's first pos")
	}
	if got := fs.File(f1.Pos(0)); got != f1 {
		t.Errorf("expected f1 for second file's first pos")
	}
	if got := fs.File(NoPos); got != nil {
		t.Errorf("expected nil for NoPos, got %v", got)
	}
}

func TestPosInside(t *testing.T) {
	cases := []struct {
		ref, test startEnd
		want      bool
	}{
		{startEnd{1, 2}, startEnd{3, 4}, false},
		{startEnd{1, 3}, startEnd{3, 4}, false},
		{startEnd{1, 4}, startEnd{3, 4}, true},
		{startEnd{2, 4}, startEnd{3, 4}, true},
		{startEnd{3, 4}, startEnd{3, 4}, true},
		{startEnd{4, 5}, startEnd{3, 4}, false},
	}
	for _, c := range cases {
		t.Run(fmt.Sprintf("%v-%v", c.ref, c.test), func(t *testing.T) {
			got := PosInside(c.ref, c.test)
			if c.want != got {
				t.Errorf("want %t, got %t", c.want, got)
			}
		})
	}
}

func TestFormatPos(t *testing.T) {
	fs := NewFileSet()
	f0 := fs.AddFile("test", -1, 10)
	f1 := fs.AddFile("test_next", -1, 10)

	cases := []struct {
		pos          Pos
		mode         PosMode
		file         *File
		withFilename bool
		want         string
	}{
		{NoPos, PosLong, f0, true, "test:-:-"},
		{NoPos, PosOffsets, f0, true, "-"},
		{NoPos, PosRaw, f0, true, "0"},
		{NoPos, PosNone, f0, true, ""},
		{f0.Pos(0), PosLong, f0, true, "test:1:1"},
		{f0.Pos(0), PosOffsets, f0, true, "0"},
		{f0.Pos(1), PosLong, f0, true, "test:1:2"},
		{f1.Pos(0), PosLong, f1, true, "test_next:1:1"},
		{f1.Pos(0), PosLong, f1, false, ":1:1"},
	}

	for _, c := range cases {
		t.Run(fmt.Sprintf("%d:%s", c.pos, c.mode), func(t *testing.T) {
			got := FormatPos(c.mode, c.file, c.pos, c.withFilename)
			if got != c.want {
				t.Errorf("want %q, got %q", c.want, got)
			}
		})
	}
}
