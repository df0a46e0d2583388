package lexer

import (
	"strings"

	"github.com/mna/cirstage/lang/ir"
	"github.com/mna/cirstage/lang/token"
)

// scanString lexes a `"..."` string literal, decoding escapes, then
// transparently concatenates any further string literals separated only by
// whitespace/comments (C99 §6.4.5's adjacent string-literal concatenation,
// spec.md §6).
func (l *Lexer) scanString(pos token.Pos) (token.Token, TokenValue) {
	var sb strings.Builder
	var raw strings.Builder

	for {
		start := l.off
		l.advance() // opening '"'
		for l.cur != '"' {
			if l.cur == -1 || l.cur == '\n' {
				l.error(start, "unterminated string literal")
				break
			}
			if l.cur == '\\' {
				sb.WriteRune(l.scanEscape(start))
				continue
			}
			sb.WriteRune(l.cur)
			l.advance()
		}
		raw.WriteString(string(l.src[start:l.off]))
		l.advanceIf('"')

		save := *l
		l.skipWhitespaceAndComments()
		if l.cur != '"' {
			*l = save
			break
		}
	}

	return token.STRING, TokenValue{Value: token.Value{Raw: raw.String(), Pos: pos, Str: sb.String()}}
}

// scanChar lexes a `'...'` character constant. A multi-byte char constant
// (e.g. 'ab') is accepted per GCC's extension and yields the last byte, with
// the ikind promoted to plain int per C99 §6.4.4.4 (an integer character
// constant's type is always int, never char).
func (l *Lexer) scanChar(pos token.Pos) (token.Token, TokenValue) {
	start := l.off
	l.advance() // opening '\''
	var v int64
	empty := true
	for l.cur != '\'' {
		if l.cur == -1 || l.cur == '\n' {
			l.error(start, "unterminated character literal")
			break
		}
		empty = false
		if l.cur == '\\' {
			v = int64(byte(l.scanEscape(start)))
		} else {
			v = int64(byte(l.cur))
			l.advance()
		}
	}
	if empty {
		l.error(start, "empty character literal")
	}
	lit := string(l.src[start:l.off])
	l.advanceIf('\'')
	return token.CHAR, TokenValue{
		Value:   token.Value{Raw: lit, Pos: pos, Int: v},
		IntKind: ir.IInt,
	}
}

// scanEscape consumes one backslash escape sequence and returns the rune it
// decodes to. Called with l.cur == '\\'.
func (l *Lexer) scanEscape(litStart int) rune {
	l.advance() // '\\'
	switch l.cur {
	case 'n':
		l.advance()
		return '\n'
	case 't':
		l.advance()
		return '\t'
	case 'r':
		l.advance()
		return '\r'
	case 'a':
		l.advance()
		return '\a'
	case 'b':
		l.advance()
		return '\b'
	case 'f':
		l.advance()
		return '\f'
	case 'v':
		l.advance()
		return '\v'
	case '\\', '\'', '"', '?':
		r := l.cur
		l.advance()
		return r
	case 'x':
		l.advance()
		var v rune
		for isHexDigit(l.cur) {
			v = v*16 + rune(hexVal(byte(l.cur)))
			l.advance()
		}
		return v
	case '0', '1', '2', '3', '4', '5', '6', '7':
		var v rune
		for i := 0; i < 3 && l.cur >= '0' && l.cur <= '7'; i++ {
			v = v*8 + (l.cur - '0')
			l.advance()
		}
		return v
	default:
		l.error(litStart, "unknown escape sequence")
		r := l.cur
		l.advance()
		return r
	}
}

func hexVal(b byte) int {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0')
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10
	default:
		return int(b-'A') + 10
	}
}
