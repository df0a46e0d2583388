package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"
)

// Parse runs the scanner and parser phases (spec.md §3's parser subsystem,
// including every @f(args) staging trigger the files contain) and reports
// success, or the first Fatal diagnostic, without building anything past
// the finished IR.
func (c *Cmd) Parse(ctx context.Context, stdio mainer.Stdio, args []string) error {
	p, err := newPipeline()
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}
	if err := p.parseFiles(args); err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}
	fmt.Fprintf(stdio.Stdout, "%d file(s) parsed, %d global(s), %d statement(s)\n",
		len(args), p.ctx.Vars.Len(), p.ctx.Stmts.Len())
	return nil
}
