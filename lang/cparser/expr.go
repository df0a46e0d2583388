package cparser

import (
	"github.com/mna/cirstage/lang/builder"
	"github.com/mna/cirstage/lang/env"
	"github.com/mna/cirstage/lang/ir"
	"github.com/mna/cirstage/lang/stage"
	"github.com/mna/cirstage/lang/token"
)

// parseExpression parses a full comma-expression (spec.md §4.4's top-level
// expression-statement grammar): each operand but the last has its value
// dropped, and the last operand's shape (Expr or Cond) survives unchanged
// so `if ((x, y))`-style conditions still work.
func (p *Parser) parseExpression() *ir.Code {
	left := p.parseAssignment()
	for p.accept(token.COMMA) {
		right := p.parseAssignment()
		left = p.sequence(left, right)
	}
	return left
}

// sequence splices left (dropping its value) before right and adopts
// right's own Kind/Value/jump lists wholesale.
func (p *Parser) sequence(left, right *ir.Code) *ir.Code {
	left = p.B.ToExpr(left, true)
	out := &ir.Code{Kind: right.Kind}
	ir.AppendCode(p.Ctx.Stmts, out, left)
	ir.AppendCode(p.Ctx.Stmts, out, right)
	out.HasValue = right.HasValue
	out.Value = right.Value
	out.TrueJumps = right.TrueJumps
	out.FalseJumps = right.FalseJumps
	return out
}

// parseAssignment parses an assignment-expression: a conditional-expression,
// optionally followed by `=` or a compound-assignment operator and a
// right-associative recursive call. The left operand must reduce to a bare
// variable reference (spec.md §9: ir.Stmt.Dst is always a VarID, so `*p = v`,
// `a[i] = v`, and `s.f = v` are out of scope for this backend).
func (p *Parser) parseAssignment() *ir.Code {
	left := p.parseConditional()
	if !p.tok.IsAssignOp() {
		return left
	}
	op := p.tok
	pos := p.pos()
	p.advance()
	rhs := p.parseAssignment()

	dstVar, dstType := p.lvalueVar(pos, left)
	switch op {
	case token.ASSIGN:
		return p.B.Assign(dstVar, dstType, rhs)
	case token.PLUSEQ:
		return p.B.CompoundAssign(builder.OpPlus, dstVar, dstType, rhs)
	case token.MINUSEQ:
		return p.B.CompoundAssign(builder.OpMinus, dstVar, dstType, rhs)
	case token.STAREQ:
		return p.B.CompoundAssign(builder.OpMul, dstVar, dstType, rhs)
	case token.SLASHEQ:
		return p.B.CompoundAssign(builder.OpDiv, dstVar, dstType, rhs)
	case token.PERCENTEQ:
		return p.B.CompoundAssign(builder.OpMod, dstVar, dstType, rhs)
	case token.AMPEQ:
		return p.B.CompoundAssign(builder.OpBitAnd, dstVar, dstType, rhs)
	case token.PIPEEQ:
		return p.B.CompoundAssign(builder.OpBitOr, dstVar, dstType, rhs)
	case token.CARETEQ:
		return p.B.CompoundAssign(builder.OpBitXor, dstVar, dstType, rhs)
	case token.SHLEQ:
		return p.B.CompoundAssign(builder.OpShl, dstVar, dstType, rhs)
	case token.SHREQ:
		return p.B.CompoundAssign(builder.OpShr, dstVar, dstType, rhs)
	}
	p.bug("parseAssignment: unhandled assignment operator %#v", op)
	return nil
}

// lvalueVar demands that code is a bare variable reference with no
// accumulated side-effect statements (a single identifier, not a
// dereference/index/member expression) and returns its VarID and type.
func (p *Parser) lvalueVar(pos token.Pos, code *ir.Code) (ir.VarID, ir.TypeID) {
	if code.Kind != ir.CodeExpr || code.First != ir.None || !code.HasValue || code.Value.Kind != ir.VVar {
		p.fatalf(pos, "assignment target must be a plain variable; `*p`, `a[i]`, and `s.f` are not supported on the left of `=` by this backend")
	}
	return code.Value.Var, code.Value.Type
}

// parseConditional parses `cond ? then : else`, right-associative in the
// else branch per the C grammar.
func (p *Parser) parseConditional() *ir.Code {
	cond := p.parseBinary(1)
	if !p.accept(token.QUESTION) {
		return cond
	}
	then := p.parseExpression()
	p.expect(token.COLON)
	els := p.parseConditional()
	return p.B.Ternary(cond, then, els)
}

// parseBinary implements precedence climbing over token.BinaryPrecedence's
// table, bottoming out at parseCast (spec.md §4.4's unary/cast-expression
// level).
func (p *Parser) parseBinary(minPrec int) *ir.Code {
	left := p.parseCast()
	for {
		prec := p.tok.BinaryPrecedence()
		if prec == 0 || prec < minPrec {
			return left
		}
		op := p.tok
		pos := p.pos()
		p.advance()
		right := p.parseBinary(prec + 1)
		left = p.applyBinary(pos, op, left, right)
	}
}

func (p *Parser) applyBinary(pos token.Pos, op token.Token, left, right *ir.Code) *ir.Code {
	switch op {
	case token.OROR:
		return p.B.LogicalOr(left, right)
	case token.ANDAND:
		return p.B.LogicalAnd(left, right)
	case token.PIPE:
		return p.B.BuildArith(builder.OpBitOr, left, right)
	case token.CARET:
		return p.B.BuildArith(builder.OpBitXor, left, right)
	case token.AMP:
		return p.B.BuildArith(builder.OpBitAnd, left, right)
	case token.EQEQ:
		return p.B.BuildCompare(ir.CmpEq, left, right)
	case token.NE:
		return p.B.BuildCompare(ir.CmpNe, left, right)
	case token.LT:
		return p.B.BuildCompare(ir.CmpLt, left, right)
	case token.GT:
		return p.B.BuildCompare(ir.CmpGt, left, right)
	case token.LE:
		return p.B.BuildCompare(ir.CmpLe, left, right)
	case token.GE:
		return p.B.BuildCompare(ir.CmpGe, left, right)
	case token.SHL:
		return p.B.BuildArith(builder.OpShl, left, right)
	case token.SHR:
		return p.B.BuildArith(builder.OpShr, left, right)
	case token.PLUS:
		return p.B.BuildArith(builder.OpPlus, left, right)
	case token.MINUS:
		return p.B.BuildArith(builder.OpMinus, left, right)
	case token.STAR:
		return p.B.BuildArith(builder.OpMul, left, right)
	case token.SLASH:
		return p.B.BuildArith(builder.OpDiv, left, right)
	case token.PERCENT:
		return p.B.BuildArith(builder.OpMod, left, right)
	}
	p.fatalf(pos, "unhandled binary operator %#v", op)
	return nil
}

// parseCast parses a cast-expression: either a prefix unary operator, a
// `(type-name)` cast, sizeof/__typeval/@-stage forms, or a plain
// postfix-expression. `(` is consumed eagerly and disambiguated afterward
// since the lexer has no un-scan (the same constraint parseParamList works
// around in types.go).
func (p *Parser) parseCast() *ir.Code {
	switch p.tok {
	case token.LPAREN:
		p.advance()
		if p.atDeclarationSpecifierStart() {
			t := p.parseTypeName()
			p.expect(token.RPAREN)
			operand := p.parseCast()
			return p.B.Cast(operand, t)
		}
		inner := p.parseExpression()
		p.expect(token.RPAREN)
		return p.parsePostfixSuffixes(inner)
	case token.PLUS:
		p.advance()
		return p.parseCast()
	case token.MINUS:
		p.advance()
		return p.B.Neg(p.parseCast())
	case token.BANG:
		p.advance()
		return p.B.LogicalNot(p.parseCast())
	case token.TILDE:
		p.advance()
		return p.B.BitNot(p.parseCast())
	case token.AMP:
		pos := p.pos()
		p.advance()
		return p.addrOf(pos, p.parseCast())
	case token.STAR:
		p.advance()
		return p.B.Deref(p.parseCast())
	case token.INC:
		pos := p.pos()
		p.advance()
		return p.prefixIncDec(pos, p.parseCast(), 1)
	case token.DEC:
		pos := p.pos()
		p.advance()
		return p.prefixIncDec(pos, p.parseCast(), -1)
	case token.SIZEOF:
		return p.parseSizeof()
	case token.TYPEVAL:
		return p.parseTypeval()
	case token.AT:
		return p.parseStageTrigger()
	default:
		return p.parsePostfix()
	}
}

// addrOf checks operand is an lvalue before handing off to builder.Addr,
// which treats a non-lvalue operand as an internal Bug on the assumption
// the front end already rejected it.
func (p *Parser) addrOf(pos token.Pos, operand *ir.Code) *ir.Code {
	if operand.Kind != ir.CodeExpr || !operand.HasValue || !operand.Value.IsLvalue() {
		p.fatalf(pos, "cannot take the address of a non-lvalue expression")
	}
	return p.B.Addr(operand)
}

// prefixIncDec and postfixIncDec restrict ++/-- to a plain variable operand,
// the same scope boundary parseAssignment enforces.
func (p *Parser) prefixIncDec(pos token.Pos, operand *ir.Code, delta int64) *ir.Code {
	v, t := p.lvalueVar(pos, operand)
	return p.B.IncDec(v, t, delta, true)
}

func (p *Parser) postfixIncDec(pos token.Pos, operand *ir.Code, delta int64) *ir.Code {
	v, t := p.lvalueVar(pos, operand)
	return p.B.IncDec(v, t, delta, false)
}

// parseSizeof implements both `sizeof(type-name)` and `sizeof expr`,
// disambiguating the parenthesized form the same way a cast does. The
// operand expression (when present) is parsed and then discarded without
// being spliced into the surrounding code, since sizeof never evaluates its
// operand in this language subset (no VLAs).
func (p *Parser) parseSizeof() *ir.Code {
	p.expect(token.SIZEOF)
	var t ir.TypeID
	if p.accept(token.LPAREN) {
		if p.atDeclarationSpecifierStart() {
			t = p.parseTypeName()
			p.expect(token.RPAREN)
		} else {
			inner := p.parseExpression()
			p.expect(token.RPAREN)
			e := p.B.ToExpr(inner, true)
			t = e.Value.Type
		}
	} else {
		operand := p.parseCast()
		e := p.B.ToExpr(operand, true)
		t = e.Value.Type
	}
	size := p.Ctx.Sizeof(t)
	return &ir.Code{Kind: ir.CodeExpr, HasValue: true, Value: ir.NewInt(p.Ctx.Types.Int(ir.IULong), int64(size))}
}

// parseTypeval implements `__typeval(type-name)`, producing a VType value
// for the compile-time type-introspection forms spec.md §4.7 builds on.
func (p *Parser) parseTypeval() *ir.Code {
	p.expect(token.TYPEVAL)
	p.expect(token.LPAREN)
	t := p.parseTypeName()
	p.expect(token.RPAREN)
	return &ir.Code{Kind: ir.CodeExpr, HasValue: true, Value: ir.NewTypeValue(p.Ctx.Types.Void(), t)}
}

// parseStageTrigger implements `@IDENT(args)` (spec.md §4.7): every argument
// must itself fold to a compile-time constant integer, since they cross
// into the staged call as raw uintptrs.
func (p *Parser) parseStageTrigger() *ir.Code {
	pos := p.pos()
	p.expect(token.AT)
	name := p.expectIdent()
	p.expect(token.LPAREN)
	var argCodes []*ir.Code
	if !p.at(token.RPAREN) {
		for {
			argCodes = append(argCodes, p.parseAssignment())
			if !p.accept(token.COMMA) {
				break
			}
		}
	}
	p.expect(token.RPAREN)

	args := make([]uintptr, len(argCodes))
	for i, a := range argCodes {
		e := p.B.ToExpr(a, false)
		if !e.HasValue || e.Value.Kind != ir.VInt {
			p.fatalf(pos, "argument %d to @%s must be a compile-time constant", i+1, name)
		}
		args[i] = uintptr(e.Value.Int)
	}

	result, err := p.Stager.Invoke(p.Env, name, args)
	if err != nil {
		p.fatalf(pos, "%s", err)
	}

	switch result.Kind {
	case stage.ResultNone:
		return ir.NewEmptyExpr()
	case stage.ResultValue:
		return &ir.Code{Kind: ir.CodeExpr, HasValue: true, Value: result.Value}
	case stage.ResultValueSplice:
		vs := result.ValueSplice
		out := &ir.Code{Kind: ir.CodeExpr}
		ir.AppendCode(p.Ctx.Stmts, out, vs.Code)
		out.HasValue = true
		out.Value = vs.Inner
		return out
	case stage.ResultStmtSplice:
		ss := result.StmtSplice
		ss.RewriteVars(p.Ctx.Stmts)
		out := &ir.Code{Kind: ir.CodeExpr}
		ir.AppendCode(p.Ctx.Stmts, out, ss.Code)
		return out
	}
	p.bug("parseStageTrigger: unhandled stage.ResultKind %v", result.Kind)
	return nil
}

// parsePostfix parses a postfix-expression: a primary-expression followed
// by any number of call/index/member/inc-dec suffixes.
func (p *Parser) parsePostfix() *ir.Code {
	return p.parsePostfixSuffixes(p.parsePrimary())
}

func (p *Parser) parsePostfixSuffixes(e *ir.Code) *ir.Code {
	for {
		switch {
		case p.accept(token.LPAREN):
			e = p.parseCallSuffix(e)
		case p.accept(token.LBRACK):
			idx := p.parseExpression()
			p.expect(token.RBRACK)
			e = p.B.Index(e, idx)
		case p.accept(token.DOT):
			name := p.expectIdent()
			e = p.memberAccess(e, name, false)
		case p.at(token.ARROW):
			p.advance()
			name := p.expectIdent()
			e = p.memberAccess(e, name, true)
		case p.at(token.INC):
			pos := p.pos()
			p.advance()
			e = p.postfixIncDec(pos, e, 1)
		case p.at(token.DEC):
			pos := p.pos()
			p.advance()
			e = p.postfixIncDec(pos, e, -1)
		default:
			return e
		}
	}
}

func (p *Parser) parseCallSuffix(callee *ir.Code) *ir.Code {
	var args []*ir.Code
	if !p.at(token.RPAREN) {
		for {
			args = append(args, p.parseAssignment())
			if !p.accept(token.COMMA) {
				break
			}
		}
	}
	p.expect(token.RPAREN)
	return p.B.Call(callee, args)
}

// memberAccess resolves `.`/`->` by looking up name in obj's composite type
// (spec.md §4.4); composite layout is computed here, not in lang/builder,
// since it is a type-system concern the parser already owns (types.go's
// struct/union parsing).
func (p *Parser) memberAccess(obj *ir.Code, name string, arrow bool) *ir.Code {
	pos := p.pos()
	e := p.B.ToExpr(obj, false)
	compType := e.Value.Type
	if arrow {
		ptr := p.Ctx.Types.Get(p.Ctx.Unroll(compType))
		if ptr.Kind != ir.KPtr {
			p.fatalf(pos, "`->` operand is not a pointer")
		}
		compType = ptr.Base
	}
	ct := p.Ctx.Types.Get(p.Ctx.Unroll(compType))
	if ct.Kind != ir.KComp {
		p.fatalf(pos, "member reference is not to a struct or union")
	}
	comp := p.Ctx.Comps.Get(ct.Comp)
	if !comp.IsDefined {
		p.fatalf(pos, "member access on incomplete type %q", comp.Name)
	}

	idx := -1
	for i, f := range comp.Fields {
		if f.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		p.fatalf(pos, "no member named %q", name)
	}
	if comp.Fields[idx].BitWidth != nil {
		p.fatalf(pos, "bitfield member access is not supported by this backend")
	}

	layout := ir.CompLayout(comp, p.Ctx.Types, p.Ctx.Machine, p.Ctx.Comps, p.Ctx.Typedefs)
	return p.B.Member(e, int64(layout.Fields[idx].Offset), comp.Fields[idx].Type, arrow)
}

// parsePrimary parses an identifier, literal, or parenthesized expression.
func (p *Parser) parsePrimary() *ir.Code {
	pos := p.pos()
	switch p.tok {
	case token.IDENT:
		name := p.val.Raw
		p.advance()
		return p.resolveIdent(pos, name)

	case token.INT, token.CHAR:
		t := p.Ctx.Types.Int(p.val.IntKind)
		v := p.val.Int
		p.advance()
		return &ir.Code{Kind: ir.CodeExpr, HasValue: true, Value: ir.NewInt(t, v)}

	case token.FLOAT:
		p.fatalf(pos, "floating-point literals are not supported by this backend")

	case token.STRING:
		p.fatalf(pos, "string literals are not supported by this backend")

	case token.LPAREN:
		p.advance()
		inner := p.parseExpression()
		p.expect(token.RPAREN)
		return inner
	}
	p.fatalf(pos, "expected expression, found %#v", p.tok)
	return nil
}

func (p *Parser) resolveIdent(pos token.Pos, name string) *ir.Code {
	b, ok := p.Env.FindLocalName(name)
	if !ok {
		p.fatalf(pos, "undeclared identifier %q", name)
	}
	switch b.Kind {
	case env.NameVar:
		vr := p.Ctx.Vars.Get(b.Var)
		return &ir.Code{Kind: ir.CodeExpr, HasValue: true, Value: ir.NewVar(vr.Type, b.Var)}
	case env.NameEnumItem:
		item := p.Ctx.EnumItems.Get(b.EnumItem)
		return &ir.Code{Kind: ir.CodeExpr, HasValue: true, Value: ir.NewInt(p.Ctx.Types.Int(ir.IInt), item.Value)}
	default:
		p.fatalf(pos, "%q is a type name, not a value", name)
	}
	return nil
}
