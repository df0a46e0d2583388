// Package lexer implements the C token stream spec.md §6 describes as the
// parser subsystem's input contract: identifiers, integer and
// character literals with size-promoted ikind, adjacent-concatenated string
// literals, the full operator set, the `@` stage trigger, `__typeval(T)`,
// and line-marker directive handling that drives a token.LocationStack.
// Typedef names come out as plain IDENT tokens; the parser (lang/cparser)
// decides which identifiers name types.
// This is the one subsystem spec.md §1 calls "out of core scope" (a
// preprocessed translation unit is assumed); it is built anyway, in the
// teacher's own scanner idiom, because a runnable tool needs an actual
// front door and the original implementation this spec was distilled from
// has one.
package lexer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mna/cirstage/lang/ir"
	"github.com/mna/cirstage/lang/target"
	"github.com/mna/cirstage/lang/token"
)

// TokenValue is a scanned token's payload: the position/raw/string/int
// fields the token package already models, plus the one piece of
// C-specific interpretation (an integer literal's promoted ikind) that
// belongs above the token package's layer.
type TokenValue struct {
	token.Value
	IntKind ir.IKind // INT, CHAR: the literal's promoted integer kind
}

// Lexer tokenizes one source file for the parser. Its scanning loop is
// grounded on the teacher's lang/scanner.Scanner (same advance/peek/error
// shape, same "always make progress" discipline in the default case),
// adapted to C lexical rules: C comments and escapes, C integer literal
// suffixes and base prefixes, line-marker directives instead of Lua-style
// long strings/comments.
type Lexer struct {
	file *token.File
	src  []byte
	m    *target.Machine
	err  func(token.Position, string)

	loc *token.LocationStack

	cur rune
	off int
	roff int

	atLineStart bool // true when the next non-whitespace byte would start a new physical line
}

// New returns a Lexer ready to tokenize src, which must have the same
// length as file.Size(). m supplies the sizes used to derive an integer
// literal's promoted kind (C99 §6.4.4.1).
func New(file *token.File, src []byte, m *target.Machine, errHandler func(token.Position, string)) *Lexer {
	l := &Lexer{
		file:        file,
		src:         src,
		m:           m,
		err:         errHandler,
		loc:         token.NewLocationStack(file.Name()),
		cur:         ' ',
		atLineStart: true,
	}
	l.advance()
	return l
}

// Location returns the lexer's current include-chain location stack, for a
// caller (the builder/diag layer) constructing an Entry's Chain field.
func (l *Lexer) Location() *token.LocationStack { return l.loc }

func (l *Lexer) error(off int, format string, args ...interface{}) {
	if l.err != nil {
		l.err(l.file.Position(l.file.Pos(off)), fmt.Sprintf(format, args...))
	}
}

func (l *Lexer) peek() byte {
	if l.roff < len(l.src) {
		return l.src[l.roff]
	}
	return 0
}

func (l *Lexer) advance() {
	if l.cur == '\n' {
		l.file.AddLine(l.roff - 1)
		l.loc.AdvanceLine()
	}
	if l.roff >= len(l.src) {
		l.off = len(l.src)
		l.cur = -1
		return
	}
	l.off = l.roff
	r, w := rune(l.src[l.roff]), 1
	if r >= utf8.RuneSelf {
		r, w = utf8.DecodeRune(l.src[l.roff:])
		if r == utf8.RuneError && w == 1 {
			l.error(l.off, "illegal UTF-8 encoding")
		}
	}
	l.roff += w
	l.cur = r
}

func (l *Lexer) advanceIf(b byte) bool {
	if l.cur == rune(b) {
		l.advance()
		return true
	}
	return false
}

// Scan returns the next token, skipping whitespace, comments, and
// transparently applying any line-marker directive it encounters.
func (l *Lexer) Scan() (token.Token, TokenValue) {
	for {
		l.skipWhitespaceAndComments()
		if l.cur == '#' && l.atLineStart {
			if l.scanLineMarker() {
				continue
			}
		}
		break
	}
	l.atLineStart = false

	pos := l.file.Pos(l.off)
	start := l.off

	switch {
	case isLetter(l.cur):
		lit := l.identRest()
		tok := token.IDENT
		if kw, ok := token.Keywords[lit]; ok {
			tok = kw
		}
		return tok, TokenValue{Value: token.Value{Raw: lit, Pos: pos}}

	case isDigit(l.cur) || (l.cur == '.' && isDigit(rune(l.peek()))):
		return l.scanNumber(pos, start)

	case l.cur == '"':
		return l.scanString(pos)

	case l.cur == '\'':
		return l.scanChar(pos)
	}

	return l.scanPunct(pos, start)
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case l.cur == '\n':
			l.atLineStart = true
			l.advance()
		case l.cur == ' ' || l.cur == '\t' || l.cur == '\r':
			l.advance()
		case l.cur == '/' && l.peek() == '/':
			for l.cur != '\n' && l.cur != -1 {
				l.advance()
			}
		case l.cur == '/' && l.peek() == '*':
			l.advance()
			l.advance()
			l.skipBlockComment()
		default:
			return
		}
	}
}

func (l *Lexer) skipBlockComment() {
	start := l.off
	for {
		if l.cur == -1 {
			l.error(start, "unterminated comment")
			return
		}
		if l.cur == '*' && l.peek() == '/' {
			l.advance()
			l.advance()
			return
		}
		l.advance()
	}
}

// scanLineMarker consumes a `# <line> "<file>" <flags>` preprocessor
// directive and applies it to the location stack. Returns false (having
// consumed nothing further) if '#' was not in fact followed by a digit,
// i.e. it wasn't a line-marker directive after all (a bare `#` never
// appears in a preprocessed C translation unit otherwise, but this keeps
// the lexer from wedging on malformed input).
func (l *Lexer) scanLineMarker() bool {
	save := *l
	l.advance() // '#'
	for l.cur == ' ' || l.cur == '\t' {
		l.advance()
	}
	if !isDigit(l.cur) {
		*l = save
		return false
	}
	lineStart := l.off
	for isDigit(l.cur) {
		l.advance()
	}
	line, _ := strconv.Atoi(string(l.src[lineStart:l.off]))

	for l.cur == ' ' || l.cur == '\t' {
		l.advance()
	}
	var filename string
	if l.cur == '"' {
		var sb strings.Builder
		l.advance()
		for l.cur != '"' && l.cur != -1 && l.cur != '\n' {
			sb.WriteRune(l.cur)
			l.advance()
		}
		l.advanceIf('"')
		filename = sb.String()
	}

	flag := token.LineMarkerSet
	for l.cur != '\n' && l.cur != -1 {
		for l.cur == ' ' || l.cur == '\t' {
			l.advance()
		}
		switch l.cur {
		case '1':
			flag = token.LineMarkerPush
		case '2':
			flag = token.LineMarkerPop
		}
		for isDigit(l.cur) {
			l.advance()
		}
	}

	// The directive names the number of the line that follows it; the
	// newline ending the directive advances the stack onto that line.
	l.loc.Apply(line-1, filename, flag)
	l.atLineStart = true
	return true
}

func isLetter(r rune) bool {
	return 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || r == '_' ||
		r >= utf8.RuneSelf && unicode.IsLetter(r)
}

func isDigit(r rune) bool { return '0' <= r && r <= '9' }

func isHexDigit(r rune) bool {
	return isDigit(r) || 'a' <= r && r <= 'f' || 'A' <= r && r <= 'F'
}

func (l *Lexer) identRest() string {
	start := l.off
	for isLetter(l.cur) || isDigit(l.cur) {
		l.advance()
	}
	return string(l.src[start:l.off])
}
