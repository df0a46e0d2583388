package cparser

import (
	"github.com/mna/cirstage/lang/env"
	"github.com/mna/cirstage/lang/ir"
	"github.com/mna/cirstage/lang/token"
)

// declSpecs is the accumulated result of parsing a declaration-specifier
// list (spec.md §4.4): the resolved type plus the storage class and
// typedef-ness the following declarators share.
type declSpecs struct {
	Type      ir.TypeID
	Storage   ir.StorageClass
	IsTypedef bool
	Inline    bool
}

// baseSpec accumulates the basic-type keywords (`int`, `long long unsigned`,
// etc.) seen so far, following the same counting approach as a standard
// recursive-descent C parser: keywords are orthogonal until resolveIKind
// folds them into a single IKind at the end.
type baseSpec struct {
	explicit ir.TypeID // set by struct/union/enum/typedef-name/__builtin_va_list/void

	void, boolKind, char, floatKind, doubleKind bool
	short                                       bool
	long                                        int
	signed, unsigned                            bool
}

func (p *Parser) hasExplicitType(bs *baseSpec) bool {
	return bs.explicit != ir.None || bs.void || bs.boolKind || bs.char || bs.floatKind || bs.doubleKind ||
		bs.short || bs.long > 0 || bs.signed || bs.unsigned
}

// parseDeclarationSpecifiers parses the storage-class/type-qualifier/
// type-specifier keyword run that precedes every declarator in an
// external or block declaration.
func (p *Parser) parseDeclarationSpecifiers() declSpecs {
	var ds declSpecs
	var bs baseSpec
	var attrs []ir.Attr
	haveStorage := false

	for {
		switch p.tok {
		case token.TYPEDEF:
			ds.IsTypedef = true
			p.advance()
		case token.STATIC:
			ds.Storage, haveStorage = ir.SCStatic, true
			p.advance()
		case token.EXTERN:
			ds.Storage, haveStorage = ir.SCExtern, true
			p.advance()
		case token.REGISTER:
			ds.Storage, haveStorage = ir.SCRegister, true
			p.advance()
		case token.AUTO:
			p.advance() // storage class `auto`; no ir.StorageClass arm needed beyond SCNone
		case token.INLINE:
			ds.Inline = true
			p.advance()
		case token.CONST:
			attrs = append(attrs, ir.Attr{Kind: ir.AttrName, Name: "const"})
			p.advance()
		case token.VOLATILE:
			attrs = append(attrs, ir.Attr{Kind: ir.AttrName, Name: "volatile"})
			p.advance()
		case token.RESTRICT:
			attrs = append(attrs, ir.Attr{Kind: ir.AttrName, Name: "restrict"})
			p.advance()
		case token.ATTRIBUTE_KW:
			attrs = append(attrs, p.parseAttributeSpecifier()...)
		case token.VOID:
			bs.void = true
			p.advance()
		case token.UNDERSCORE_BOOL:
			bs.boolKind = true
			p.advance()
		case token.CHAR_KW:
			bs.char = true
			p.advance()
		case token.SHORT:
			bs.short = true
			p.advance()
		case token.INT_KW:
			p.advance() // plain `int`; contributes nothing beyond default IInt
		case token.LONG:
			bs.long++
			p.advance()
		case token.FLOAT_KW:
			bs.floatKind = true
			p.advance()
		case token.DOUBLE:
			bs.doubleKind = true
			p.advance()
		case token.SIGNED:
			bs.signed = true
			p.advance()
		case token.UNSIGNED:
			bs.unsigned = true
			p.advance()
		case token.VA_LIST_KW:
			bs.explicit = p.Ctx.Types.VaList()
			p.advance()
		case token.STRUCT, token.UNION:
			bs.explicit = p.parseStructOrUnionSpecifier()
		case token.ENUM:
			bs.explicit = p.parseEnumSpecifier()
		case token.IDENT:
			if p.hasExplicitType(&bs) || !p.isTypeName(p.val.Raw) {
				goto done
			}
			binding, _ := p.Env.FindLocalName(p.val.Raw)
			bs.explicit = p.Ctx.Types.Named(binding.Typedef)
			p.advance()
		default:
			goto done
		}
	}
done:
	if !haveStorage {
		ds.Storage = ir.SCNone
	}
	ds.Type = p.resolveBaseType(&bs)
	if len(attrs) > 0 {
		ds.Type = p.Ctx.Types.WithAttrs(ds.Type, attrs, p.Ctx.Typedefs)
	}
	return ds
}

// atDeclarationSpecifierStart reports whether the current token can begin a
// declaration-specifier list, used to disambiguate a cast/compound-literal
// from a plain parenthesized expression and a declaration from a statement.
func (p *Parser) atDeclarationSpecifierStart() bool {
	switch p.tok {
	case token.TYPEDEF, token.STATIC, token.EXTERN, token.REGISTER, token.AUTO, token.INLINE,
		token.CONST, token.VOLATILE, token.RESTRICT, token.ATTRIBUTE_KW,
		token.VOID, token.UNDERSCORE_BOOL, token.CHAR_KW, token.SHORT, token.INT_KW, token.LONG,
		token.FLOAT_KW, token.DOUBLE, token.SIGNED, token.UNSIGNED, token.VA_LIST_KW,
		token.STRUCT, token.UNION, token.ENUM:
		return true
	case token.IDENT:
		return p.isTypeName(p.val.Raw)
	}
	return false
}

func (p *Parser) resolveBaseType(bs *baseSpec) ir.TypeID {
	if bs.explicit != ir.None {
		return bs.explicit
	}
	if bs.void {
		return p.Ctx.Types.Void()
	}
	if bs.floatKind {
		return p.Ctx.Types.Float(ir.FFloat)
	}
	if bs.doubleKind {
		if bs.long > 0 {
			return p.Ctx.Types.Float(ir.FLongDouble)
		}
		return p.Ctx.Types.Float(ir.FDouble)
	}
	if bs.boolKind {
		return p.Ctx.Types.Int(ir.IBool)
	}
	if bs.char {
		switch {
		case bs.signed:
			return p.Ctx.Types.Int(ir.ISChar)
		case bs.unsigned:
			return p.Ctx.Types.Int(ir.IUChar)
		default:
			return p.Ctx.Types.Int(ir.IChar)
		}
	}
	if bs.short {
		if bs.unsigned {
			return p.Ctx.Types.Int(ir.IUShort)
		}
		return p.Ctx.Types.Int(ir.IShort)
	}
	switch {
	case bs.long >= 2:
		if bs.unsigned {
			return p.Ctx.Types.Int(ir.IULongLong)
		}
		return p.Ctx.Types.Int(ir.ILongLong)
	case bs.long == 1:
		if bs.unsigned {
			return p.Ctx.Types.Int(ir.IULong)
		}
		return p.Ctx.Types.Int(ir.ILong)
	default:
		if bs.unsigned {
			return p.Ctx.Types.Int(ir.IUInt)
		}
		return p.Ctx.Types.Int(ir.IInt)
	}
}

// parseAttributeSpecifier parses one `__attribute__ (( ... ))` group, per
// spec.md §3.1's four attribute forms.
func (p *Parser) parseAttributeSpecifier() []ir.Attr {
	p.expect(token.ATTRIBUTE_KW)
	p.expect(token.LPAREN)
	p.expect(token.LPAREN)
	var attrs []ir.Attr
	for !p.at(token.RPAREN) {
		name := p.expectIdent()
		var args []string
		if p.accept(token.LPAREN) {
			for !p.at(token.RPAREN) {
				args = append(args, p.parseAttrArgLiteral())
				if !p.accept(token.COMMA) {
					break
				}
			}
			p.expect(token.RPAREN)
		}
		if args == nil {
			attrs = append(attrs, ir.Attr{Kind: ir.AttrName, Name: name})
		} else {
			attrs = append(attrs, ir.Attr{Kind: ir.AttrNameArgs, Name: name, Args: args})
		}
		if !p.accept(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN)
	p.expect(token.RPAREN)
	return attrs
}

func (p *Parser) parseAttrArgLiteral() string {
	lit := p.val.Raw
	switch p.tok {
	case token.INT:
		p.advance()
		return lit
	case token.STRING:
		s := p.val.Str
		p.advance()
		return s
	default:
		name := p.expectIdent()
		return name
	}
}

// parseStructOrUnionSpecifier parses `struct|union [tag] [{ fields }]`,
// installing or updating the tag in the current scope per spec.md §4.4's
// forward-declaration/redefinition rules.
func (p *Parser) parseStructOrUnionSpecifier() ir.TypeID {
	kind := ir.Struct
	if p.tok == token.UNION {
		kind = ir.Union
	}
	p.advance()

	name := ""
	if p.at(token.IDENT) {
		name = p.expectIdent()
	}

	var cid ir.CompID
	if name != "" {
		if b, ok := p.Env.FindCurrentScopeTag(name); ok && b.Kind == env.TagComp {
			cid = b.Comp
		} else if b, ok := p.Env.FindLocalTag(name); ok && b.Kind == env.TagComp && !p.at(token.LBRACE) {
			cid = b.Comp
		} else {
			cid = p.Ctx.Comps.New(ir.Comp{Name: name, Kind: kind})
			p.Env.DeclareTag(name, env.TagBinding{Kind: env.TagComp, Comp: cid})
		}
	} else {
		cid = p.Ctx.Comps.New(ir.Comp{Kind: kind})
	}

	if p.accept(token.LBRACE) {
		var fields []ir.CompField
		for !p.at(token.RBRACE) {
			fields = append(fields, p.parseFieldDeclaration()...)
		}
		p.expect(token.RBRACE)
		c := p.Ctx.Comps.Get(cid)
		c.Kind = kind
		c.IsDefined = true
		c.Fields = fields
	}

	return p.Ctx.Types.Comp(cid)
}

func (p *Parser) parseFieldDeclaration() []ir.CompField {
	ds := p.parseDeclarationSpecifiers()
	var fields []ir.CompField
	for {
		name, apply := p.parseDeclaratorMaybeAbstract()
		t := apply(ds.Type)
		var width *int
		if p.accept(token.COLON) {
			w := int(p.parseConstIntExpr())
			width = &w
		}
		fields = append(fields, ir.CompField{Name: name, Type: t, BitWidth: width})
		if !p.accept(token.COMMA) {
			break
		}
	}
	p.expect(token.SEMI)
	return fields
}

// parseEnumSpecifier parses `enum [tag] [{ items }]` per spec.md §4.4,
// sharing Comp's forward-declaration shape.
func (p *Parser) parseEnumSpecifier() ir.TypeID {
	p.expect(token.ENUM)
	name := ""
	if p.at(token.IDENT) {
		name = p.expectIdent()
	}

	var eid ir.EnumID
	if name != "" {
		if b, ok := p.Env.FindCurrentScopeTag(name); ok && b.Kind == env.TagEnum {
			eid = b.Enum
		} else if b, ok := p.Env.FindLocalTag(name); ok && b.Kind == env.TagEnum && !p.at(token.LBRACE) {
			eid = b.Enum
		} else {
			eid = p.Ctx.Enums.New(ir.Enum{Name: name, Underlying: ir.IInt})
			p.Env.DeclareTag(name, env.TagBinding{Kind: env.TagEnum, Enum: eid})
		}
	} else {
		eid = p.Ctx.Enums.New(ir.Enum{Underlying: ir.IInt})
	}

	if p.accept(token.LBRACE) {
		next := int64(0)
		var items []ir.EnumItemID
		for !p.at(token.RBRACE) {
			itemName := p.expectIdent()
			if p.accept(token.ASSIGN) {
				next = p.parseConstIntExpr()
			}
			iid := p.Ctx.EnumItems.New(ir.EnumItem{Name: itemName, Value: next})
			items = append(items, iid)
			p.Env.DeclareName(itemName, env.NameBinding{Kind: env.NameEnumItem, EnumItem: iid})
			next++
			if !p.accept(token.COMMA) {
				break
			}
		}
		p.expect(token.RBRACE)
		e := p.Ctx.Enums.Get(eid)
		e.IsDefined = true
		e.Items = items
	}

	return p.Ctx.Types.Enum(eid)
}

// parseConstIntExpr parses a conditional-expression and demands it folds to
// a compile-time integer constant (array dimensions, enumerator values,
// bitfield widths, and case labels all require this).
func (p *Parser) parseConstIntExpr() int64 {
	pos := p.pos()
	code := p.parseConditional()
	e := p.B.ToExpr(code, false)
	if !e.HasValue || e.Value.Kind != ir.VInt {
		p.fatalf(pos, "expected a compile-time constant integer expression")
	}
	return e.Value.Int
}

// parseDeclaratorMaybeAbstract parses a declarator that may omit its name
// (used by struct fields with only a bitfield, and by abstract declarators
// in sizeof/__typeval/cast type-names and function parameters).
func (p *Parser) parseDeclaratorMaybeAbstract() (string, func(ir.TypeID) ir.TypeID) {
	if p.at(token.COLON) || p.at(token.SEMI) || p.at(token.COMMA) || p.at(token.RPAREN) {
		return "", func(t ir.TypeID) ir.TypeID { return t }
	}
	return p.parseDeclarator()
}

// parseDeclarator parses pointer/array/function declarator syntax and
// returns the declared name (empty for an abstract declarator) plus a
// function that, given the eventual base type, produces the full declared
// type — the standard "build the type from the identifier outward"
// algorithm (original_source/CirParse.c's declarator()/doType()).
func (p *Parser) parseDeclarator() (string, func(ir.TypeID) ir.TypeID) {
	ptrApply := p.parsePointerPrefix()
	name, directApply := p.parseDirectDeclarator()
	return name, func(base ir.TypeID) ir.TypeID { return directApply(ptrApply(base)) }
}

func (p *Parser) parsePointerPrefix() func(ir.TypeID) ir.TypeID {
	if !p.accept(token.STAR) {
		return func(t ir.TypeID) ir.TypeID { return t }
	}
	var attrs []ir.Attr
	for {
		switch p.tok {
		case token.CONST:
			attrs = append(attrs, ir.Attr{Kind: ir.AttrName, Name: "const"})
			p.advance()
		case token.VOLATILE:
			attrs = append(attrs, ir.Attr{Kind: ir.AttrName, Name: "volatile"})
			p.advance()
		case token.RESTRICT:
			attrs = append(attrs, ir.Attr{Kind: ir.AttrName, Name: "restrict"})
			p.advance()
		default:
			goto done
		}
	}
done:
	rest := p.parsePointerPrefix()
	return func(t ir.TypeID) ir.TypeID {
		ptr := p.Ctx.Types.Ptr(t, attrs...)
		return rest(ptr)
	}
}

func (p *Parser) parseDirectDeclarator() (string, func(ir.TypeID) ir.TypeID) {
	name := ""
	inner := func(t ir.TypeID) ir.TypeID { return t }

	switch {
	case p.accept(token.LPAREN):
		name, inner = p.parseDeclarator()
		p.expect(token.RPAREN)
	case p.at(token.IDENT):
		name = p.expectIdent()
	}

	suffix := p.parseDeclaratorSuffixes()
	return name, func(base ir.TypeID) ir.TypeID { return inner(suffix(base)) }
}

type declaratorSuffix struct {
	isArray  bool
	dim      *int64
	isFunc   bool
	params   []ir.FunParam
	variadic bool
}

func (p *Parser) parseDeclaratorSuffixes() func(ir.TypeID) ir.TypeID {
	var suffixes []declaratorSuffix
	for {
		switch {
		case p.accept(token.LBRACK):
			var dim *int64
			if !p.at(token.RBRACK) {
				v := p.parseConstIntExpr()
				dim = &v
			}
			p.expect(token.RBRACK)
			suffixes = append(suffixes, declaratorSuffix{isArray: true, dim: dim})
		case p.accept(token.LPAREN):
			params, variadic := p.parseParamList()
			p.expect(token.RPAREN)
			suffixes = append(suffixes, declaratorSuffix{isFunc: true, params: params, variadic: variadic})
		default:
			return func(base ir.TypeID) ir.TypeID {
				t := base
				for i := len(suffixes) - 1; i >= 0; i-- {
					s := suffixes[i]
					if s.isArray {
						t = p.Ctx.Types.Array(t, s.dim)
					} else {
						t = p.Ctx.Types.Fun(t, s.params, s.variadic)
					}
				}
				return t
			}
		}
	}
}

// parseParamList parses a function declarator's parameter-type-list,
// recognizing a bare `(void)` as the empty list. The lexer has no
// un-scan, so unlike a backtracking lookahead this handles `void` as the
// first parameter's base type directly rather than speculatively
// re-parsing it.
func (p *Parser) parseParamList() ([]ir.FunParam, bool) {
	if p.at(token.RPAREN) {
		return nil, false
	}
	if p.tok == token.VOID {
		p.advance()
		if p.at(token.RPAREN) {
			return nil, false
		}
		name, apply := p.parseDeclaratorMaybeAbstract()
		params := []ir.FunParam{{Name: name, Type: apply(p.Ctx.Types.Void())}}
		return p.finishParamList(params)
	}
	return p.finishParamList(nil)
}

// finishParamList parses the comma-separated remainder of a parameter
// list already holding params (possibly empty), ending at an `...` or at
// the first token that isn't a comma.
func (p *Parser) finishParamList(params []ir.FunParam) ([]ir.FunParam, bool) {
	if len(params) > 0 && !p.accept(token.COMMA) {
		return params, false
	}
	variadic := false
	for {
		if p.accept(token.ELLIPSIS) {
			variadic = true
			break
		}
		ds := p.parseDeclarationSpecifiers()
		name, apply := p.parseDeclaratorMaybeAbstract()
		params = append(params, ir.FunParam{Name: name, Type: apply(ds.Type)})
		if !p.accept(token.COMMA) {
			break
		}
	}
	return params, variadic
}

// parseTypeName parses an abstract type-name, used by sizeof(T), __typeval(T),
// and a cast's parenthesized type.
func (p *Parser) parseTypeName() ir.TypeID {
	ds := p.parseDeclarationSpecifiers()
	_, apply := p.parseDeclaratorMaybeAbstract()
	return apply(ds.Type)
}
