package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"

	"github.com/mna/cirstage/lang/ir"
)

// Build runs the parser phase, then resolves and JIT-compiles every
// function definition in the translation unit (spec.md §4.6's resolve/
// compile duty), without executing or rendering anything. It is the
// "does this whole program actually compile" check: `run` and `emit` both
// build on top of it but only exercise the functions reachable from `main`
// or the renderer's topological walk respectively.
func (c *Cmd) Build(ctx context.Context, stdio mainer.Stdio, args []string) error {
	p, err := build(stdio, args)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdio.Stdout, "%d global(s) compiled\n", p.ctx.Vars.Len())
	return nil
}

// build runs the shared parse+resolve+compile sequence every one of the
// build/run/emit subcommands needs, returning the populated pipeline.
func build(stdio mainer.Stdio, args []string) (*pipeline, error) {
	p, err := newPipeline()
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return nil, err
	}
	if err := p.parseFiles(args); err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return nil, err
	}

	var resolveErr error
	p.ctx.Vars.All(func(vid ir.VarID, v *ir.Var) {
		if resolveErr != nil {
			return
		}
		if v.Owner != ir.None || !v.IsFunction(p.ctx.Types, p.ctx.Typedefs) || v.Body == ir.None {
			return
		}
		if _, err := p.backend.Resolve(vid); err != nil {
			resolveErr = fmt.Errorf("%s: %w", v.Name, err)
		}
	})
	if resolveErr != nil {
		fmt.Fprintln(stdio.Stderr, resolveErr)
		return nil, resolveErr
	}

	if err := p.backend.Drain(); err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return nil, err
	}
	return p, nil
}
