package token

// A LineMarkerFlag is the optional flag following a preprocessor line-marker
// directive: `# <line> "<file>" <flags>`.
type LineMarkerFlag int

const (
	// LineMarkerSet means no flag was present: the directive only updates
	// the current file's reported line/name without changing the include
	// stack.
	LineMarkerSet LineMarkerFlag = iota
	// LineMarkerPush (flag 1) means the named file is being entered, e.g.
	// via #include; push a new frame onto the location stack.
	LineMarkerPush
	// LineMarkerPop (flag 2) means the named file is being resumed after an
	// inclusion; pop the current frame off the location stack.
	LineMarkerPop
)

// A LocationFrame records the reported (possibly virtual, per line-marker
// directives) filename and line number for one level of the include chain,
// independently of the underlying FileSet's physical Pos bookkeeping.
type LocationFrame struct {
	Filename string
	Line     int
}

// LocationStack tracks the include-chain implied by line-marker directives
// in a preprocessed translation unit, per spec.md §6. Diagnostics report the
// full chain, outermost frame first; the innermost frame is the current,
// topmost entry: Chain()[len-1], also returned by Current.
type LocationStack struct {
	frames []LocationFrame
}

// NewLocationStack returns a stack seeded with the given physical file name,
// starting at line 1.
func NewLocationStack(filename string) *LocationStack {
	return &LocationStack{frames: []LocationFrame{{Filename: filename, Line: 1}}}
}

// Apply updates the stack per a `# line "file" flag` directive.
func (ls *LocationStack) Apply(line int, filename string, flag LineMarkerFlag) {
	switch flag {
	case LineMarkerPush:
		ls.frames = append(ls.frames, LocationFrame{Filename: filename, Line: line})
	case LineMarkerPop:
		if len(ls.frames) > 1 {
			ls.frames = ls.frames[:len(ls.frames)-1]
		}
		ls.setTop(line, filename)
	default:
		ls.setTop(line, filename)
	}
}

func (ls *LocationStack) setTop(line int, filename string) {
	top := &ls.frames[len(ls.frames)-1]
	top.Line = line
	if filename != "" {
		top.Filename = filename
	}
}

// AdvanceLine bumps the current (topmost) frame's reported line count by
// one, called by the lexer on every physical newline it scans.
func (ls *LocationStack) AdvanceLine() {
	ls.frames[len(ls.frames)-1].Line++
}

// Current returns the topmost (innermost) frame, i.e. the file and line the
// lexer should currently attribute tokens to.
func (ls *LocationStack) Current() LocationFrame {
	return ls.frames[len(ls.frames)-1]
}

// Chain returns the full include chain, outermost first, for diagnostics
// that want to print "in file included from...".
func (ls *LocationStack) Chain() []LocationFrame {
	out := make([]LocationFrame, len(ls.frames))
	copy(out, ls.frames)
	return out
}
