package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"

	"github.com/mna/cirstage/lang/env"
	"github.com/mna/cirstage/lang/jit"
)

// Run builds the translation unit, then resolves and JIT-executes its
// "main" function through the shared call stub (spec.md §4.6's
// "compile-time execution happens through a narrow call stub" contract),
// printing its return value the way a shell would report $?.
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	p, err := build(stdio, args)
	if err != nil {
		return err
	}

	binding, ok := p.env.FindGlobalName("main")
	if !ok || binding.Kind != env.NameVar {
		err := fmt.Errorf("no \"main\" function found")
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}
	mainVar := binding.Var

	alloc, err := p.backend.Resolve(mainVar)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}
	if err := p.backend.Drain(); err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}
	// Drain may have moved main from AllocCompiling to AllocExternal; refetch
	// its allocation to get the now-valid host address.
	alloc, err = p.backend.Resolve(mainVar)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}

	stubAddr, err := p.backend.EnsureStub()
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}

	ret := jit.CallStub(stubAddr, alloc.HostAddr, nil)
	fmt.Fprintf(stdio.Stdout, "%d\n", int64(ret))
	return nil
}
