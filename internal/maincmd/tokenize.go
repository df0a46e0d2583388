package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/mna/cirstage/lang/lexer"
	"github.com/mna/cirstage/lang/target"
	"github.com/mna/cirstage/lang/token"
)

// Tokenize runs only the scanner phase (spec.md §6's token contract) over
// each file and prints its token stream, one token per line.
func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	for _, name := range args {
		if err := tokenizeFile(stdio, name); err != nil {
			return err
		}
	}
	return nil
}

func tokenizeFile(stdio mainer.Stdio, name string) error {
	src, err := os.ReadFile(name)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}

	fset := token.NewFileSet()
	file := fset.AddFile(name, -1, len(src))

	var scanErr error
	errHandler := func(pos token.Position, msg string) {
		if scanErr == nil {
			scanErr = fmt.Errorf("%s: %s", pos, msg)
		}
		fmt.Fprintf(stdio.Stderr, "%s: %s\n", pos, msg)
	}

	l := lexer.New(file, src, target.LinuxAMD64GCC(), errHandler)
	for {
		tok, val := l.Scan()
		pos := file.Position(val.Pos)
		fmt.Fprintf(stdio.Stdout, "%s: %s", pos, tok)
		switch {
		case val.Raw != "":
			fmt.Fprintf(stdio.Stdout, " %s", val.Raw)
		case tok == token.STRING:
			fmt.Fprintf(stdio.Stdout, " %q", val.Str)
		}
		fmt.Fprintln(stdio.Stdout)
		if tok == token.EOF {
			break
		}
	}
	return scanErr
}
