// Package diag implements two error kinds of spec.md §7: Bug (an internal
// invariant violation, which aborts with a stack trace) and Fatal (a
// user-visible miscompile, accumulated and reported with a location
// trace). There is no separate Warning kind: every Entry added to a List
// is reported as an error.
//
// The shape mirrors the teacher's reuse of go/scanner's Error/ErrorList for
// lang/scanner: a single concrete error list type that sorts by position and
// implements error via a formatted message list.
package diag

import (
	"fmt"
	"runtime/debug"
	"sort"
	"strings"

	"github.com/mna/cirstage/lang/token"
)

// An Entry is one diagnostic: a position, an include-chain (innermost last),
// and a message.
type Entry struct {
	Pos   token.Position
	Chain []token.LocationFrame
	Msg   string
}

func (e Entry) String() string {
	var sb strings.Builder
	for _, fr := range e.Chain[:max(0, len(e.Chain)-1)] {
		fmt.Fprintf(&sb, "in file included from %s:%d:\n", fr.Filename, fr.Line)
	}
	fmt.Fprintf(&sb, "%s: %s", e.Pos, e.Msg)
	return sb.String()
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// A List accumulates Fatal entries and implements error.
type List struct {
	entries []Entry
}

// Add appends one diagnostic to the list.
func (l *List) Add(pos token.Position, chain []token.LocationFrame, format string, args ...interface{}) {
	l.entries = append(l.entries, Entry{Pos: pos, Chain: chain, Msg: fmt.Sprintf(format, args...)})
}

// Len reports the number of accumulated diagnostics.
func (l *List) Len() int { return len(l.entries) }

// Entries returns the accumulated diagnostics, in insertion order.
func (l *List) Entries() []Entry { return l.entries }

// Sort orders entries by filename, then line, then column.
func (l *List) Sort() {
	sort.SliceStable(l.entries, func(i, j int) bool {
		a, b := l.entries[i].Pos, l.entries[j].Pos
		if a.Filename != b.Filename {
			return a.Filename < b.Filename
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
}

// Err returns l as an error if it has any entries, else nil. This is the
// idiom used throughout the compiler: accumulate into a List, then return
// list.Err() from the phase function.
func (l *List) Err() error {
	if l == nil || len(l.entries) == 0 {
		return nil
	}
	return l
}

func (l *List) Error() string {
	switch len(l.entries) {
	case 0:
		return "no errors"
	case 1:
		return l.entries[0].String()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (and %d more)", l.entries[0], len(l.entries)-1)
	return sb.String()
}

// PrintAll writes every entry, one per line, to w.
func (l *List) PrintAll(w interface{ Write([]byte) (int, error) }) {
	for _, e := range l.entries {
		fmt.Fprintln(w, e.String())
	}
}

// Bug panics with a formatted message and the current stack trace. It is
// reserved for internal invariant violations: conditions that indicate a
// defect in the compiler itself, never user input.
func Bug(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	panic(&BugError{Msg: msg, Stack: debug.Stack()})
}

// A BugError is the panic value raised by Bug. The top-level driver recovers
// it, prints Msg and Stack, and exits with a failure code.
type BugError struct {
	Msg   string
	Stack []byte
}

func (e *BugError) Error() string {
	return fmt.Sprintf("internal error: %s\n%s", e.Msg, e.Stack)
}

// Recover turns a recovered BugError into an error, for use in a deferred recover() at the top of the driver's main
// loop. Non-BugError panics are re-panicked: only the compiler's own
// Bug-raised panics are diagnostics.
func Recover(r interface{}) error {
	if r == nil {
		return nil
	}
	if be, ok := r.(*BugError); ok {
		return be
	}
	panic(r)
}
