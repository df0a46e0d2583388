package cparser

import (
	"github.com/mna/cirstage/lang/env"
	"github.com/mna/cirstage/lang/ir"
	"github.com/mna/cirstage/lang/token"
)

// parseExternalDeclaration parses one top-level declaration: a typedef, a
// bare tag declaration (`struct Foo;`), one or more variable declarations
// (optionally initialized), or a function definition. This is component H
// ("parser-facing glue") of spec.md §4.4 wired to its grammar productions,
// following the teacher's external-declaration loop
// (lang/parser/chunk.go's ParseFile) generalized from statement sequences
// to C's declaration/definition mix.
func (p *Parser) parseExternalDeclaration() {
	if p.accept(token.SEMI) {
		return
	}

	ds := p.parseDeclarationSpecifiers()
	if p.accept(token.SEMI) {
		// A bare `struct Foo { ... };` or `enum E { ... };` with no declarator:
		// the tag installation already happened inside parseDeclarationSpecifiers.
		return
	}

	for {
		pos := p.pos()
		name, apply := p.parseDeclarator()
		if name == "" {
			p.fatalf(pos, "expected a declarator name in an external declaration")
		}
		t := apply(ds.Type)

		if ds.IsTypedef {
			p.declareTypedef(pos, name, t)
			if !p.accept(token.COMMA) {
				p.expect(token.SEMI)
				return
			}
			continue
		}

		ty := p.Ctx.Types.Get(p.Ctx.Unroll(t))
		if ty.Kind == ir.KFun && p.at(token.LBRACE) {
			p.parseFunctionDefinition(pos, name, t, ds.Storage)
			return
		}

		vid := p.declareGlobalVar(pos, name, t, ds.Storage)
		if p.accept(token.ASSIGN) {
			p.parseGlobalInitializer(pos, vid, t)
		}

		if !p.accept(token.COMMA) {
			break
		}
	}
	p.expect(token.SEMI)
}

// declareTypedef installs name as a typedef of t, applying spec.md §4.4's
// combine rule when the same name is already a typedef in the current
// scope (two forward `typedef`s of a compatible type are allowed; an
// incompatible one is Fatal; re-use as a different kind of name is
// Fatal).
func (p *Parser) declareTypedef(pos token.Pos, name string, t ir.TypeID) {
	if b, ok := p.Env.FindCurrentScopeName(name); ok {
		if b.Kind != env.NameTypedef {
			p.fatalf(pos, "%q redeclared as a different kind of symbol", name)
		}
		existing := p.Ctx.Typedefs.Get(b.Typedef)
		if _, ok := p.Ctx.Combine(existing.Type, t); !ok {
			p.fatalf(pos, "conflicting typedef redeclaration of %q", name)
		}
		return
	}
	tid := p.Ctx.Typedefs.New(ir.Typedef{Name: name, Type: t})
	p.Env.DeclareName(name, env.NameBinding{Kind: env.NameTypedef, Typedef: tid})
}

// declareGlobalVar installs or combines a global variable declaration, per
// spec.md §4.4: redeclaration in the global scope is allowed when the two
// types combine; the prior Var handle is reused and its Type updated
// in place so every earlier reference to it observes the combined type.
func (p *Parser) declareGlobalVar(pos token.Pos, name string, t ir.TypeID, storage ir.StorageClass) ir.VarID {
	if b, ok := p.Env.FindCurrentScopeName(name); ok {
		if b.Kind != env.NameVar {
			p.fatalf(pos, "%q redeclared as a different kind of symbol", name)
		}
		vr := p.Ctx.Vars.Get(b.Var)
		combined, ok := p.Ctx.Combine(vr.Type, t)
		if !ok {
			p.fatalf(pos, "conflicting redeclaration of %q", name)
		}
		vr.Type = combined
		if storage != ir.SCExtern {
			vr.Storage = storage
		}
		return b.Var
	}
	vid := p.Ctx.Vars.New(ir.Var{Name: name, Type: t, Storage: storage})
	p.Env.DeclareName(name, env.NameBinding{Kind: env.NameVar, Var: vid})
	return vid
}

// parseGlobalInitializer parses a global variable's `= <const-expr>`
// initializer. This backend only supports a scalar compile-time-constant
// initializer (spec.md's Non-goals exclude a general initializer/aggregate
// literal facility); the folded constant is stored in the Var's Init field,
// and lang/render prints it after the declarator as `= (T)N`.
func (p *Parser) parseGlobalInitializer(pos token.Pos, vid ir.VarID, t ir.TypeID) {
	code := p.parseAssignment()
	e := p.B.ToExpr(code, false)
	if e.First != ir.None || !e.HasValue || e.Value.Kind != ir.VInt {
		p.fatalf(pos, "global initializer for %q must be a compile-time constant", p.Ctx.Vars.Get(vid).Name)
	}
	vr := p.Ctx.Vars.Get(vid)
	vr.Init = &e.Value
}

// parseFunctionDefinition parses a function body and seals it as the
// function Var's Body. The formal parameters become function-scope locals
// of the new top-level scope before the compound statement is parsed, per
// spec.md §3.6 ("formal-parameter handles when the type is a function").
func (p *Parser) parseFunctionDefinition(pos token.Pos, name string, t ir.TypeID, storage ir.StorageClass) {
	vid := p.declareGlobalVar(pos, name, t, storage)
	vr := p.Ctx.Vars.Get(vid)
	if vr.Body != ir.None {
		p.fatalf(pos, "redefinition of function %q", name)
	}

	ty := p.Ctx.Types.Get(p.Ctx.Unroll(t))

	savedRet, savedVoid := p.funcReturnType, p.funcReturnsVoid
	p.funcReturnType = ty.Base
	p.funcReturnsVoid = p.Ctx.Types.Get(p.Ctx.Unroll(ty.Base)).Kind == ir.KVoid
	p.funcDepth++

	p.Env.PushLocal()
	params := make([]ir.VarID, len(ty.Params))
	for i, fp := range ty.Params {
		pv := p.Ctx.Vars.New(ir.Var{Name: fp.Name, Type: fp.Type})
		params[i] = pv
		if fp.Name != "" {
			p.Env.DeclareName(fp.Name, env.NameBinding{Kind: env.NameVar, Var: pv})
		}
	}

	body := p.parseCompoundStatementNoScope()
	body.Owns = append(params, body.Owns...)
	p.Env.Pop()

	p.funcDepth--
	p.funcReturnType, p.funcReturnsVoid = savedRet, savedVoid

	cid := p.Ctx.Codes.New(*body)
	for _, v := range body.Owns {
		p.Ctx.Vars.Get(v).Owner = cid
	}
	vr.Body = cid
	vr.Params = params
}
