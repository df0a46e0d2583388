package cparser

import (
	"github.com/mna/cirstage/lang/env"
	"github.com/mna/cirstage/lang/ir"
	"github.com/mna/cirstage/lang/token"
)

// parseCompoundStatement parses a `{ ... }` block as its own nested scope
// (spec.md §3.7's push_local/pop bracketing a block's lifetime).
func (p *Parser) parseCompoundStatement() *ir.Code {
	p.Env.PushLocal()
	body := p.parseCompoundStatementNoScope()
	p.Env.Pop()
	return body
}

// parseCompoundStatementNoScope parses a `{ ... }` block's contents without
// opening a new scope, used for a function's outermost body so its formal
// parameters and its top-level locals share one scope, matching ordinary C
// block-scope rules for parameters.
func (p *Parser) parseCompoundStatementNoScope() *ir.Code {
	p.expect(token.LBRACE)
	out := &ir.Code{Kind: ir.CodeExpr}
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		p.parseBlockItemRecovering(out)
	}
	p.expect(token.RBRACE)
	return out
}

// parseBlockItemRecovering parses one declaration-or-statement, resyncing
// to the next statement boundary on a Fatal diagnostic so one malformed
// statement doesn't abort the rest of the function body, mirroring
// parseExternalDeclarationRecovering's per-item recovery granularity.
func (p *Parser) parseBlockItemRecovering(out *ir.Code) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(parseAbort); ok {
				p.resyncToDeclBoundary()
				return
			}
			panic(r)
		}
	}()
	p.parseBlockItem(out)
}

func (p *Parser) parseBlockItem(out *ir.Code) {
	if p.atDeclarationSpecifierStart() {
		p.parseLocalDeclaration(out)
		return
	}
	stmt := p.parseStatement()
	if stmt != nil {
		ir.AppendCode(p.Ctx.Stmts, out, stmt)
	}
}

// parseLocalDeclaration parses a block-scope declaration: one or more
// declarators sharing a declaration-specifier list, each optionally
// initialized. A local's initializer lowers to an ordinary assignment
// statement spliced into out, unlike a global's compile-time-constant-only
// Var.Init slot.
func (p *Parser) parseLocalDeclaration(out *ir.Code) {
	ds := p.parseDeclarationSpecifiers()
	if p.accept(token.SEMI) {
		return
	}
	for {
		pos := p.pos()
		name, apply := p.parseDeclarator()
		if name == "" {
			p.fatalf(pos, "expected a declarator name in a local declaration")
		}
		t := apply(ds.Type)

		if ds.IsTypedef {
			p.declareTypedef(pos, name, t)
		} else {
			vid := p.declareLocalVar(pos, name, t, ds.Storage, out)
			if p.accept(token.ASSIGN) {
				rhs := p.parseAssignment()
				assign := p.B.Assign(vid, t, rhs)
				assign = p.B.ToExpr(assign, true)
				ir.AppendCode(p.Ctx.Stmts, out, assign)
			}
		}
		if !p.accept(token.COMMA) {
			break
		}
	}
	p.expect(token.SEMI)
}

// declareLocalVar installs name as a new function-scope local owned by
// out. Per spec.md §4.4, redeclaration in the current (non-global) scope
// is always an error, unlike the global scope's combine-and-reuse rule.
func (p *Parser) declareLocalVar(pos token.Pos, name string, t ir.TypeID, storage ir.StorageClass, out *ir.Code) ir.VarID {
	if _, ok := p.Env.FindCurrentScopeName(name); ok {
		p.fatalf(pos, "redeclaration of %q in the same scope", name)
	}
	vid := p.Ctx.Vars.New(ir.Var{Name: name, Type: t, Storage: storage})
	p.declareEnvVar(name, vid)
	out.Owns = append(out.Owns, vid)
	return vid
}

func (p *Parser) declareEnvVar(name string, vid ir.VarID) {
	p.Env.DeclareName(name, env.NameBinding{Kind: env.NameVar, Var: vid})
}

// parseStatement parses one statement production. A bare `;` yields no
// Code at all (nil), distinguishing "nothing to splice" from an empty
// compound statement (which still yields an empty *ir.Code so its owned
// locals, if any, are not lost — though a `{}` with no declarations also
// has none).
//
// This grammar deliberately has no `goto`/label statement: distinguishing
// `IDENT:` (a label) from an identifier starting an expression-statement
// needs two tokens of lookahead, and this parser (like the teacher's) only
// ever holds one. ir.SLabel/SGotoLabel remain part of the IR for staging's
// statement-splice rewriting; this front end simply never emits them from
// concrete syntax.
func (p *Parser) parseStatement() *ir.Code {
	switch p.tok {
	case token.LBRACE:
		return p.parseCompoundStatement()
	case token.IF:
		return p.parseIfStatement()
	case token.FOR:
		return p.parseForStatement()
	case token.WHILE:
		return p.parseWhileStatement()
	case token.DO:
		return p.parseDoWhileStatement()
	case token.RETURN:
		return p.parseReturnStatement()
	case token.BREAK:
		return p.parseBreakStatement()
	case token.CONTINUE:
		return p.parseContinueStatement()
	case token.SWITCH:
		return p.parseSwitchStatement()
	case token.CASE:
		return p.parseCaseStatement()
	case token.DEFAULT:
		return p.parseDefaultStatement()
	case token.SEMI:
		p.advance()
		return nil
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) parseExpressionStatement() *ir.Code {
	e := p.parseExpression()
	p.expect(token.SEMI)
	return p.B.ToExpr(e, true)
}

// parseIfStatement implements spec.md §4.3's `if (c) then [else]`.
func (p *Parser) parseIfStatement() *ir.Code {
	p.expect(token.IF)
	p.expect(token.LPAREN)
	cond := p.parseExpression()
	p.expect(token.RPAREN)
	then := p.parseStatementAsCode()

	var els *ir.Code
	if p.accept(token.ELSE) {
		els = p.parseStatementAsCode()
	}
	return p.B.If(cond, then, els)
}

// parseStatementAsCode parses one statement and normalizes a bare `;` (nil)
// to an empty Expr, since builder.If/ForLoop always expect a non-nil body.
func (p *Parser) parseStatementAsCode() *ir.Code {
	s := p.parseStatement()
	if s == nil {
		return ir.NewEmptyExpr()
	}
	return s
}

// parseForStatement implements spec.md §4.3's three-part `for` lowering,
// opening a scope for the loop (a declaration in `init` is block-scoped to
// the loop, per C99) and pre-allocating the loop's anchors before the body
// is parsed so a `break`/`continue` inside it can already target them
// (spec.md §9's fixed for-loop contract).
func (p *Parser) parseForStatement() *ir.Code {
	p.expect(token.FOR)
	p.expect(token.LPAREN)
	p.Env.PushLocal()

	var init *ir.Code
	switch {
	case p.accept(token.SEMI):
		// no init clause
	case p.atDeclarationSpecifierStart():
		init = &ir.Code{Kind: ir.CodeExpr}
		p.parseLocalDeclaration(init)
	default:
		e := p.parseExpression()
		init = p.B.ToExpr(e, true)
		p.expect(token.SEMI)
	}

	var cond *ir.Code
	if !p.at(token.SEMI) {
		cond = p.parseExpression()
	}
	p.expect(token.SEMI)

	var step *ir.Code
	if !p.at(token.RPAREN) {
		e := p.parseExpression()
		step = p.B.ToExpr(e, true)
	}
	p.expect(token.RPAREN)

	anchors := p.B.NewLoopAnchors()
	p.Env.PushLoop(env.LoopTargets(anchors))
	body := p.parseStatementAsCode()
	p.Env.PopLoop()

	out := p.B.ForLoop(init, cond, step, body, anchors)
	p.Env.Pop()
	return out
}

// parseWhileStatement desugars to ForLoop with no init/step.
func (p *Parser) parseWhileStatement() *ir.Code {
	p.expect(token.WHILE)
	p.expect(token.LPAREN)
	cond := p.parseExpression()
	p.expect(token.RPAREN)

	anchors := p.B.NewLoopAnchors()
	p.Env.PushLoop(env.LoopTargets(anchors))
	body := p.parseStatementAsCode()
	p.Env.PopLoop()

	return p.B.ForLoop(nil, cond, nil, body, anchors)
}

// parseDoWhileStatement lowers `do body while (cond);` by hand: unlike
// ForLoop (which tests the condition before the first iteration), a
// do-while always runs the body once, so it is built directly from Stmt
// primitives instead of reusing the Builder's for-loop shell. continue
// targets the condition recheck; break targets the statement after the
// loop, matching spec.md §3.7's loop-target contract.
func (p *Parser) parseDoWhileStatement() *ir.Code {
	p.expect(token.DO)

	anchors := p.B.NewLoopAnchors()
	p.Env.PushLoop(env.LoopTargets(anchors))
	body := p.parseStatementAsCode()
	p.Env.PopLoop()

	p.expect(token.WHILE)
	p.expect(token.LPAREN)
	cond := p.parseExpression()
	p.expect(token.RPAREN)
	p.expect(token.SEMI)

	out := &ir.Code{Kind: ir.CodeExpr}
	head := p.emitNop(out)
	ir.AppendCode(p.Ctx.Stmts, out, body)
	ir.AppendStmt(p.Ctx.Stmts, out, anchors.Continue)

	c := p.B.ToCond(cond)
	ir.AppendCode(p.Ctx.Stmts, out, c)
	p.B.PatchJumps(c.TrueJumps, head)
	p.B.PatchJumps(c.FalseJumps, anchors.Break)
	ir.AppendStmt(p.Ctx.Stmts, out, anchors.Break)
	return out
}

func (p *Parser) emitNop(out *ir.Code) ir.StmtID {
	h := p.Ctx.Stmts.New(ir.NewNop())
	ir.AppendStmt(p.Ctx.Stmts, out, h)
	return h
}

// parseReturnStatement coerces the returned expression (if any) to the
// enclosing function's declared return type, per spec.md §4.2's usual
// conversion rule applied at a return boundary.
func (p *Parser) parseReturnStatement() *ir.Code {
	pos := p.pos()
	p.expect(token.RETURN)
	if p.accept(token.SEMI) {
		if !p.funcReturnsVoid {
			p.fatalf(pos, "non-void function must return a value")
		}
		out := &ir.Code{Kind: ir.CodeExpr}
		h := p.Ctx.Stmts.New(ir.NewReturn(ir.Value{}, false))
		ir.AppendStmt(p.Ctx.Stmts, out, h)
		return out
	}

	e := p.parseExpression()
	p.expect(token.SEMI)
	if p.funcReturnsVoid {
		p.fatalf(pos, "void function must not return a value")
	}

	v := p.B.ToExpr(e, false)
	out := &ir.Code{Kind: ir.CodeExpr}
	ir.AppendCode(p.Ctx.Stmts, out, v)
	coerced := p.B.CoerceTo(v, v.Value, p.funcReturnType)
	p.emitReturn(out, coerced)
	return out
}

func (p *Parser) emitReturn(out *ir.Code, v ir.Value) {
	h := p.Ctx.Stmts.New(ir.NewReturn(v, true))
	ir.AppendStmt(p.Ctx.Stmts, out, h)
}

// parseBreakStatement targets whichever of the innermost loop or innermost
// switch was opened most recently (spec.md §3.7's two parallel stacks).
func (p *Parser) parseBreakStatement() *ir.Code {
	pos := p.pos()
	p.expect(token.BREAK)
	p.expect(token.SEMI)

	target, ok := p.Env.CurrentBreakTarget()
	if !ok {
		p.fatalf(pos, "break statement not within a loop or switch")
	}
	out := &ir.Code{Kind: ir.CodeExpr}
	h := p.Ctx.Stmts.New(ir.NewGoto())
	p.Ctx.Stmts.Get(h).JumpTarget = target
	ir.AppendStmt(p.Ctx.Stmts, out, h)
	return out
}

func (p *Parser) parseContinueStatement() *ir.Code {
	pos := p.pos()
	p.expect(token.CONTINUE)
	p.expect(token.SEMI)

	lt, ok := p.Env.CurrentLoop()
	if !ok {
		p.fatalf(pos, "continue statement not within a loop")
	}
	out := &ir.Code{Kind: ir.CodeExpr}
	h := p.Ctx.Stmts.New(ir.NewGoto())
	p.Ctx.Stmts.Get(h).JumpTarget = lt.Continue
	ir.AppendStmt(p.Ctx.Stmts, out, h)
	return out
}

// parseSwitchStatement lowers `switch (e) { case C: ...; default: ...; }`
// to a chain of equality compares against e, one per case label, falling
// through to the default body (or past the switch if there is none) when
// none match. This shape is not spelled out by spec.md's §4.3 (which only
// covers if/for/while/&&/||/!); it is this front end's own design, built
// from the same Cmp+Goto backpatch primitives those lowerings use.
func (p *Parser) parseSwitchStatement() *ir.Code {
	p.expect(token.SWITCH)
	p.expect(token.LPAREN)
	subjectCode := p.parseExpression()
	p.expect(token.RPAREN)

	subject := p.B.ToExpr(subjectCode, false)
	out := &ir.Code{Kind: ir.CodeExpr}
	ir.AppendCode(p.Ctx.Stmts, out, subject)
	subjectVar := p.B.SnapshotToTemp(out, subject.Value)

	breakTarget := p.Ctx.Stmts.New(ir.NewNop())
	p.Env.PushSwitch(env.SwitchTarget{Break: breakTarget})
	p.switchSubjects = append(p.switchSubjects, subjectVar)

	p.expect(token.LBRACE)
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		p.parseBlockItemRecovering(out)
	}
	p.expect(token.RBRACE)

	p.switchSubjects = p.switchSubjects[:len(p.switchSubjects)-1]
	p.Env.PopSwitch()
	ir.AppendStmt(p.Ctx.Stmts, out, breakTarget)
	return out
}

// parseCaseStatement emits `if (subject == C) goto here`, where "here" is
// simply the next statement emitted (a case label has no separate body
// delimiter in C — it falls through to whatever statement follows). The
// comparison's false edge falls through to the next case test, exactly
// like a real switch/jump-table miss falling to the next candidate.
func (p *Parser) parseCaseStatement() *ir.Code {
	pos := p.pos()
	p.expect(token.CASE)
	val := p.parseConstIntExpr()
	p.expect(token.COLON)

	if len(p.switchSubjects) == 0 {
		p.fatalf(pos, "case label not within a switch")
	}
	subjectVar := p.switchSubjects[len(p.switchSubjects)-1]

	out := &ir.Code{Kind: ir.CodeExpr}
	here := p.emitNop(out)
	cmpVal := ir.NewInt(subjectVar.Type, val)
	h := p.Ctx.Stmts.New(ir.NewCmp(ir.CmpEq, subjectVar, cmpVal))
	p.Ctx.Stmts.Get(h).JumpTarget = here
	// splice the Cmp *before* `here`: AppendStmt only appends, so build the
	// comparison into its own shell first and prepend by swapping order.
	shell := &ir.Code{Kind: ir.CodeExpr}
	ir.AppendStmt(p.Ctx.Stmts, shell, h)
	ir.AppendCode(p.Ctx.Stmts, shell, out)
	return shell
}

func (p *Parser) parseDefaultStatement() *ir.Code {
	p.expect(token.DEFAULT)
	p.expect(token.COLON)
	// A default label needs no test: falling through to it from the chain
	// of failed `case` comparisons above is exactly the semantics C gives
	// it, so it lowers to a no-op marker statement purely for position.
	out := &ir.Code{Kind: ir.CodeExpr}
	p.emitNop(out)
	return out
}
