package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"

	"github.com/mna/cirstage/lang/render"
)

// Emit builds the translation unit and prints the renderer's topologically
// ordered C text (spec.md §6's renderer-output contract) to stdout.
func (c *Cmd) Emit(ctx context.Context, stdio mainer.Stdio, args []string) error {
	p, err := build(stdio, args)
	if err != nil {
		return err
	}

	out, err := render.New(p.ctx).Render()
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}
	fmt.Fprint(stdio.Stdout, out)
	return nil
}
