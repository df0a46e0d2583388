package diag_test

import (
	"testing"

	"github.com/mna/cirstage/lang/diag"
	"github.com/mna/cirstage/lang/token"
)

func TestListErrNilOnEmpty(t *testing.T) {
	var l diag.List
	if err := l.Err(); err != nil {
		t.Errorf("an empty List must report a nil error, got %v", err)
	}
	l.Add(token.Position{Filename: "a.c", Line: 1}, nil, "boom")
	if err := l.Err(); err == nil {
		t.Error("a List with one entry must report a non-nil error")
	}
}

func TestListSortOrdersByFileThenLineThenColumn(t *testing.T) {
	var l diag.List
	l.Add(token.Position{Filename: "b.c", Line: 1, Column: 1}, nil, "third")
	l.Add(token.Position{Filename: "a.c", Line: 5, Column: 1}, nil, "second")
	l.Add(token.Position{Filename: "a.c", Line: 1, Column: 2}, nil, "first-ish")
	l.Add(token.Position{Filename: "a.c", Line: 1, Column: 1}, nil, "first")
	l.Sort()

	entries := l.Entries()
	want := []string{"first", "first-ish", "second", "third"}
	for i, w := range want {
		if entries[i].Msg != w {
			t.Errorf("entry %d: got msg %q, want %q", i, entries[i].Msg, w)
		}
	}
}

func TestRecoverConvertsBugErrorOnly(t *testing.T) {
	func() {
		defer func() {
			err := diag.Recover(recover())
			if err == nil {
				t.Error("Recover must convert a Bug panic into a non-nil error")
			}
		}()
		diag.Bug("invariant %d violated", 42)
	}()
}

func TestRecoverReraisesNonBugPanics(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected a non-BugError panic to propagate past Recover")
		}
		if _, ok := r.(*diag.BugError); ok {
			t.Error("a plain panic must not be misreported as a BugError")
		}
	}()
	func() {
		defer func() {
			diag.Recover(recover())
		}()
		panic("not a compiler bug")
	}()
}
