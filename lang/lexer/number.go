package lexer

import (
	"strconv"

	"github.com/mna/cirstage/lang/ir"
	"github.com/mna/cirstage/lang/target"
	"github.com/mna/cirstage/lang/token"
)

// scanNumber lexes an integer or float literal starting at the lexer's
// current position. Floats are lexed (so a mixed-content file can still be
// tokenized end to end) but spec.md §1's Non-goals exclude float codegen;
// the parser rejects a FLOAT token wherever an operand is required.
func (l *Lexer) scanNumber(pos token.Pos, start int) (token.Token, TokenValue) {
	base := 10
	if l.cur == '0' {
		switch {
		case l.peek() == 'x' || l.peek() == 'X':
			base = 16
			l.advance()
			l.advance()
			for isHexDigit(l.cur) {
				l.advance()
			}
		case isDigit(rune(l.peek())):
			base = 8
			l.advance()
			for l.cur >= '0' && l.cur <= '7' {
				l.advance()
			}
		default:
			l.advance()
		}
	} else {
		for isDigit(l.cur) {
			l.advance()
		}
	}

	isFloat := false
	if base == 10 {
		if l.cur == '.' {
			isFloat = true
			l.advance()
			for isDigit(l.cur) {
				l.advance()
			}
		}
		if l.cur == 'e' || l.cur == 'E' {
			isFloat = true
			l.advance()
			if l.cur == '+' || l.cur == '-' {
				l.advance()
			}
			for isDigit(l.cur) {
				l.advance()
			}
		}
	}

	digitsEnd := l.off
	if isFloat {
		if l.cur == 'f' || l.cur == 'F' || l.cur == 'l' || l.cur == 'L' {
			l.advance()
		}
		lit := string(l.src[start:l.off])
		return token.FLOAT, TokenValue{Value: token.Value{Raw: lit, Pos: pos}}
	}

	unsigned, kind := l.scanIntSuffix()
	lit := string(l.src[start:l.off])
	digits := string(l.src[start:digitsEnd])

	bits, err := strconv.ParseUint(stripBasePrefix(digits, base), base, 64)
	if err != nil {
		l.error(start, "integer literal %q out of range", lit)
	}
	ikind := l.promoteIntKind(bits, unsigned, kind, base)
	return token.INT, TokenValue{
		Value:   token.Value{Raw: lit, Pos: pos, Int: int64(bits)},
		IntKind: ikind,
	}
}

func stripBasePrefix(digits string, base int) string {
	if base == 16 {
		return digits[2:] // "0x"/"0X"
	}
	return digits
}

// intSuffixKind records which of the three suffix letters (u, l, ll) were
// present, independent of order or case, mirroring the combinations C99
// §6.4.4.1 permits.
type intSuffixKind int

const (
	suffixNone intSuffixKind = iota
	suffixLong
	suffixLongLong
)

func (l *Lexer) scanIntSuffix() (unsigned bool, kind intSuffixKind) {
	for {
		switch {
		case l.cur == 'u' || l.cur == 'U':
			unsigned = true
			l.advance()
		case (l.cur == 'l' || l.cur == 'L') && kind == suffixNone:
			kind = suffixLong
			mark := l.cur
			l.advance()
			if l.cur == mark {
				kind = suffixLongLong
				l.advance()
			}
		default:
			return unsigned, kind
		}
	}
}

// promoteIntKind derives the literal's type per C99 §6.4.4.1: try each
// kind in the "at least as wide, right signedness" list for the given
// suffix and base, in order, picking the first that can represent bits.
func (l *Lexer) promoteIntKind(bits uint64, unsigned bool, kind intSuffixKind, base int) ir.IKind {
	candidates := l.candidateKinds(unsigned, kind)
	for _, k := range candidates {
		if base == 10 && !unsigned && !k.IsSigned() {
			continue // a decimal literal without a u suffix only takes signed kinds
		}
		if fits(bits, k, l.m) {
			return k
		}
	}
	last := candidates[len(candidates)-1]
	return last
}

func (l *Lexer) candidateKinds(unsigned bool, kind intSuffixKind) []ir.IKind {
	switch kind {
	case suffixLongLong:
		if unsigned {
			return []ir.IKind{ir.IULongLong}
		}
		return []ir.IKind{ir.ILongLong, ir.IULongLong}
	case suffixLong:
		if unsigned {
			return []ir.IKind{ir.IULong, ir.IULongLong}
		}
		return []ir.IKind{ir.ILong, ir.IULong, ir.ILongLong, ir.IULongLong}
	default:
		if unsigned {
			return []ir.IKind{ir.IUInt, ir.IULong, ir.IULongLong}
		}
		return []ir.IKind{ir.IInt, ir.IUInt, ir.ILong, ir.IULong, ir.ILongLong, ir.IULongLong}
	}
}

func fits(bits uint64, k ir.IKind, m *target.Machine) bool {
	size := k.Size(m)
	if size >= 8 {
		if !k.IsSigned() {
			return true
		}
		return bits <= uint64(1)<<63-1
	}
	max := uint64(1)<<(uint(size)*8) - 1
	if k.IsSigned() {
		max = uint64(1)<<(uint(size)*8-1) - 1
	}
	return bits <= max
}
