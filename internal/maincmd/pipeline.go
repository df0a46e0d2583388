package maincmd

import (
	"fmt"
	"os"

	"github.com/mna/cirstage/lang/builder"
	"github.com/mna/cirstage/lang/cparser"
	"github.com/mna/cirstage/lang/diag"
	"github.com/mna/cirstage/lang/env"
	"github.com/mna/cirstage/lang/ir"
	"github.com/mna/cirstage/lang/jit"
	"github.com/mna/cirstage/lang/stage"
	"github.com/mna/cirstage/lang/target"
	"github.com/mna/cirstage/lang/token"
)

// pipeline is the shared set of collaborators every subcommand threads a
// translation unit through: one Context, one global Env, one Builder, and
// the JIT Backend/Stager pair a `@f(args)` trigger needs even during a
// plain parse (spec.md §4.7 triggers run their staged function as soon as
// the parser reaches the call site, not as a separate later phase).
type pipeline struct {
	ctx     *ir.Context
	env     *env.Env
	build   *builder.Builder
	symbols *jit.HostSymbols
	backend *jit.Backend
	stager  *stage.Stager
	fset    *token.FileSet
}

// newPipeline constructs a pipeline targeting the one Machine preset the
// JIT back end supports (spec.md §4.6): x86-64 Linux/GCC.
func newPipeline() (*pipeline, error) {
	m := target.LinuxAMD64GCC()
	ctx := ir.NewContext(m)
	e := env.New()
	e.PushGlobal()
	b := builder.New(ctx)
	symbols := jit.NewHostSymbols()
	backend, err := jit.NewBackend(ctx, symbols)
	if err != nil {
		return nil, fmt.Errorf("jit backend: %w", err)
	}
	stager := stage.New(ctx, backend)

	return &pipeline{
		ctx:     ctx,
		env:     e,
		build:   b,
		symbols: symbols,
		backend: backend,
		stager:  stager,
		fset:    token.NewFileSet(),
	}, nil
}

// parseFiles reads and parses every file into this pipeline's shared
// Context, as one linked translation unit: later files see the globals
// earlier ones declared, the way separately-compiled objects of the same
// program would once merged for staging purposes. Parsing stops at the
// first file with Fatal diagnostics; a file's @-triggers may already have
// run JIT-compiled code by that point, which is unavoidable since rule 5
// runs staged calls inline as the parser reaches them.
func (p *pipeline) parseFiles(files []string) error {
	for _, name := range files {
		src, err := os.ReadFile(name)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

		file := p.fset.AddFile(name, -1, len(src))
		prs := cparser.New(file, src, p.ctx, p.env, p.build, p.stager, &diag.List{})
		if err := prs.ParseTranslationUnit(); err != nil {
			return err
		}
	}
	return nil
}
