// Package token defines source positions and the C lexical token set shared
// by the lexer, parser, builder, and diagnostics packages.
package token

import "fmt"

// Pos is a compact source position: a byte offset into the concatenated
// address space of a FileSet. The zero value, NoPos, means "no position".
type Pos int32

// NoPos is the zero Pos value; it carries no location information.
const NoPos Pos = 0

// PosMode controls how FormatPos renders a Pos.
type PosMode int

const (
	PosNone    PosMode = iota // empty string
	PosRaw                    // raw Pos value, e.g. "123"
	PosOffsets                // 0-based byte offset within its file, e.g. "42"
	PosLong                   // "file:line:col"
)

func (m PosMode) String() string {
	switch m {
	case PosNone:
		return "none"
	case PosRaw:
		return "raw"
	case PosOffsets:
		return "offsets"
	case PosLong:
		return "long"
	default:
		return "unknown"
	}
}

// Position is the decoded, human-readable form of a Pos.
type Position struct {
	Filename string
	Offset   int // 0-based byte offset within the file
	Line     int // 1-based
	Column   int // 1-based
}

func (p Position) IsValid() bool { return p.Line > 0 }

func (p Position) String() string {
	if !p.IsValid() {
		return p.Filename
	}
	if p.Filename == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
}

// FormatPos renders pos according to mode. withFilename controls whether the
// PosLong form includes the filename (diagnostics that repeat the same file
// on every line often omit it).
func FormatPos(mode PosMode, f *File, pos Pos, withFilename bool) string {
	switch mode {
	case PosRaw:
		return fmt.Sprintf("%d", pos)
	case PosOffsets:
		if pos == NoPos || f == nil {
			return "-"
		}
		return fmt.Sprintf("%d", f.Offset(pos))
	case PosLong:
		if pos == NoPos || f == nil {
			name := ""
			if withFilename && f != nil {
				name = f.Name()
			}
			return fmt.Sprintf("%s:-:-", name)
		}
		line, col := f.LineCol(pos)
		name := ""
		if withFilename {
			name = f.Name()
		}
		return fmt.Sprintf("%s:%d:%d", name, line, col)
	default:
		return ""
	}
}

// Spanner is implemented by AST and IR nodes that carry a source span.
type Spanner interface {
	Span() (start, end Pos)
}

// PosInside reports whether test's span is fully contained within ref's span
// (inclusive).
func PosInside(ref, test Spanner) bool {
	rs, re := ref.Span()
	ts, te := test.Span()
	return rs <= ts && te <= re
}

// PosAdjacent reports whether two spans are on the same line or on
// consecutive lines, in either order; used to decide whether two string
// literals or comments should be treated as touching.
func PosAdjacent(ref, test Spanner, f *File) bool {
	rs, re := ref.Span()
	ts, te := test.Span()

	var a, b Pos
	if rs <= ts {
		a, b = re, ts
	} else {
		a, b = te, rs
	}
	if a > b {
		a, b = b, a
	}
	aLine, _ := f.LineCol(a)
	bLine, _ := f.LineCol(b)
	return bLine-aLine <= 1
}
