package lexer_test

import (
	"testing"

	"github.com/mna/cirstage/lang/lexer"
	"github.com/mna/cirstage/lang/target"
	"github.com/mna/cirstage/lang/token"
)

func tokensOf(t *testing.T, src string) []token.Token {
	t.Helper()
	fset := token.NewFileSet()
	file := fset.AddFile("test.c", -1, len(src))
	var errs []string
	l := lexer.New(file, []byte(src), target.LinuxAMD64GCC(), func(pos token.Position, msg string) {
		errs = append(errs, msg)
	})
	var toks []token.Token
	for {
		tok, _ := l.Scan()
		toks = append(toks, tok)
		if tok == token.EOF {
			break
		}
	}
	if len(errs) > 0 {
		t.Fatalf("unexpected lex errors: %v", errs)
	}
	return toks
}

func TestScanBasicDeclaration(t *testing.T) {
	got := tokensOf(t, "int x = 1 + 2;")
	want := []token.Token{
		token.INT_KW, token.IDENT, token.ASSIGN, token.INT, token.PLUS, token.INT, token.SEMI, token.EOF,
	}
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestScanOperatorLongestMatch(t *testing.T) {
	got := tokensOf(t, "a <<= b >> c")
	want := []token.Token{token.IDENT, token.SHLEQ, token.IDENT, token.SHR, token.IDENT, token.EOF}
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestScanStageTrigger(t *testing.T) {
	got := tokensOf(t, "@f(1)")
	want := []token.Token{token.AT, token.IDENT, token.LPAREN, token.INT, token.RPAREN, token.EOF}
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestScanAdjacentStringConcatenation(t *testing.T) {
	fset := token.NewFileSet()
	src := `"foo" "bar"`
	file := fset.AddFile("test.c", -1, len(src))
	var errs []string
	l := lexer.New(file, []byte(src), target.LinuxAMD64GCC(), func(pos token.Position, msg string) {
		errs = append(errs, msg)
	})
	tok, val := l.Scan()
	if len(errs) > 0 {
		t.Fatalf("unexpected lex errors: %v", errs)
	}
	if tok != token.STRING {
		t.Fatalf("expected a single STRING token, got %v", tok)
	}
	if val.Str != "foobar" {
		t.Errorf("adjacent string literals should concatenate to %q, got %q", "foobar", val.Str)
	}
	next, _ := l.Scan()
	if next != token.EOF {
		t.Errorf("expected EOF after the concatenated string, got %v", next)
	}
}

func TestScanLineMarkerDirective(t *testing.T) {
	src := "# 5 \"included.h\" 1\nint x;\n"
	fset := token.NewFileSet()
	file := fset.AddFile("test.c", -1, len(src))
	var errs []string
	l := lexer.New(file, []byte(src), target.LinuxAMD64GCC(), func(pos token.Position, msg string) {
		errs = append(errs, msg)
	})
	tok, _ := l.Scan()
	if len(errs) > 0 {
		t.Fatalf("unexpected lex errors: %v", errs)
	}
	if tok != token.INT_KW {
		t.Fatalf("expected the line directive to be consumed as whitespace, first real token INT_KW, got %v", tok)
	}

	frame := l.Location().Current()
	if frame.Line != 5 || frame.Filename != "included.h" {
		t.Errorf("flag 1 should push included.h at line 5, got %+v", frame)
	}
}
