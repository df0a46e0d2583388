package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/mna/cirstage/lang/diag"
	"github.com/mna/cirstage/lang/ir"
)

// printComp emits a struct/union tag, either as a forward declaration
// (def == false) or its full field list (def == true), grounded on
// CirRender.c's renderComp.
func (r *Renderer) printComp(buf *bytes.Buffer, cid ir.CompID, def bool) {
	c := r.ctx.Comps.Get(cid)
	kw := "struct"
	if c.Kind == ir.Union {
		kw = "union"
	}
	fmt.Fprintf(buf, "%s cid%d", kw, cid)
	if c.Name != "" {
		fmt.Fprintf(buf, "_%s", c.Name)
	}
	if !def {
		buf.WriteString(";\n")
		return
	}

	buf.WriteString(" {\n")
	for _, f := range c.Fields {
		buf.WriteString("    ")
		r.printType(buf, f.Type, f.Name, nil)
		if f.BitWidth != nil {
			fmt.Fprintf(buf, " : %d", *f.BitWidth)
		}
		buf.WriteString(";\n")
	}
	buf.WriteString("};\n")
}

// printTypedef emits one `typedef <decl>;` line, grounded on
// CirRender.c's renderTypedef.
func (r *Renderer) printTypedef(buf *bytes.Buffer, tid ir.TypedefID) {
	td := r.ctx.Typedefs.Get(tid)
	buf.WriteString("typedef ")
	r.printType(buf, td.Type, fmt.Sprintf("tid%d_%s", tid, td.Name), nil)
	buf.WriteString(";\n")
}

// printVarItem emits a render root's declaration (def == false) or full
// definition (def == true: a function body, the only kind of "definition"
// this language's var model separates from a plain declaration — see
// ir.Var.Init's doc comment), grounded on CirRender.c's renderVar. A
// declaration whose Var has an Init gets it printed as `= <value>`.
func (r *Renderer) printVarItem(buf *bytes.Buffer, vid ir.VarID, def bool) {
	r.printVarDecl(buf, vid, true)
	if !def {
		if iv := r.ctx.Vars.Get(vid).Init; iv != nil {
			buf.WriteString(" = ")
			r.printValue(buf, *iv)
		}
		buf.WriteString(";\n")
		return
	}

	v := r.ctx.Vars.Get(vid)
	code := r.ctx.Codes.Get(v.Body)
	buf.WriteString("\n{\n")

	isFormal := make(map[ir.VarID]bool, len(v.Params))
	for _, p := range v.Params {
		isFormal[p] = true
	}
	printedDecl := false
	for _, local := range code.Owns {
		if r.varStatus[local] != visited || isFormal[local] {
			continue
		}
		printedDecl = true
		buf.WriteString("    ")
		r.printVarDecl(buf, local, true)
		buf.WriteString(";\n")
	}
	if printedDecl {
		buf.WriteString("\n")
	}

	ir.Walk(r.ctx.Stmts, code, func(h ir.StmtID, s *ir.Stmt) {
		if r.labeled[h] {
			fmt.Fprintf(buf, "sid%d:\n", h)
		}
		buf.WriteString("    ")
		r.printStmt(buf, h, s)
	})
	buf.WriteString("}\n")
}

// printVarDecl renders one variable's storage class, name, and type as a
// declarator, grounded on CirVar_printDecl. forRender is always true for
// this package's only caller but is kept as a parameter to document the
// original's forRender/non-forRender distinction (the non-forRender path,
// used by the original's debug logger, always prefixes a vidN, even for a
// render-root global — this package has no debug-log use for that path).
func (r *Renderer) printVarDecl(buf *bytes.Buffer, vid ir.VarID, forRender bool) {
	v := r.ctx.Vars.Get(vid)
	switch v.Storage {
	case ir.SCStatic:
		buf.WriteString("static ")
	case ir.SCRegister:
		buf.WriteString("register ")
	case ir.SCExtern:
		buf.WriteString("extern ")
	}

	var params []ir.VarID
	if len(v.Params) > 0 {
		params = v.Params
	}
	r.printType(buf, v.Type, r.varDeclName(vid, forRender), params)
}

// varDeclName computes the declarator name: a non-static global keeps its
// raw source name for linker compatibility, every other var (local,
// static global, or unnamed) gets the stable vidN/vidN_name synthetic
// name spec.md's rendering contract requires.
func (r *Renderer) varDeclName(vid ir.VarID, forRender bool) string {
	v := r.ctx.Vars.Get(vid)
	if forRender && v.Storage != ir.SCStatic && v.Owner == ir.None {
		return v.Name
	}
	if v.Name != "" {
		return fmt.Sprintf("vid%d_%s", vid, v.Name)
	}
	return fmt.Sprintf("vid%d", vid)
}

// varRefName is varDeclName specialized to an expression context (always
// forRender), used when printing a Value that names a variable.
func (r *Renderer) varRefName(vid ir.VarID) string { return r.varDeclName(vid, true) }

// printType prints a full C declarator for t with the given name (may be
// empty, for an abstract declarator such as a cast's operand type).
// params, when non-nil, supplies the actual formal-parameter Vars of a
// function type so each parameter prints with its own storage/name
// (CirVar_printDecl) instead of the bare (type, name) pair a prototype
// with no associated Code falls back to.
func (r *Renderer) printType(buf *bytes.Buffer, t ir.TypeID, name string, params []ir.VarID) {
	r.printTypeLhs(buf, t, name != "")
	buf.WriteString(name)
	r.printTypeRhs(buf, t, params)
}

// printTypeLhs is the Go translation of CirType_printLhs: the part of a
// declarator that comes before the name (base type keyword, and any
// pointer stars working outward from the name).
func (r *Renderer) printTypeLhs(buf *bytes.Buffer, t ir.TypeID, needSpace bool) {
	ty := r.ctx.Types.Get(t)
	switch ty.Kind {
	case ir.KVoid:
		buf.WriteString("void")
	case ir.KVaList:
		buf.WriteString("__builtin_va_list")
	case ir.KInt:
		buf.WriteString(ty.IKind.String())
	case ir.KFloat:
		buf.WriteString(ty.FKind.String())
	case ir.KNamed:
		td := r.ctx.Typedefs.Get(ty.Typedef)
		fmt.Fprintf(buf, "tid%d_%s", ty.Typedef, td.Name)
	case ir.KComp:
		c := r.ctx.Comps.Get(ty.Comp)
		kw := "struct"
		if c.Kind == ir.Union {
			kw = "union"
		}
		fmt.Fprintf(buf, "%s cid%d", kw, ty.Comp)
		if c.Name != "" {
			fmt.Fprintf(buf, "_%s", c.Name)
		}
	case ir.KEnum:
		e := r.ctx.Enums.Get(ty.Enum)
		fmt.Fprintf(buf, "enum eid%d", ty.Enum)
		if e.Name != "" {
			fmt.Fprintf(buf, "_%s", e.Name)
		}
	case ir.KPtr:
		bt := r.ctx.Types.Get(ty.Base)
		needParen := bt.Kind == ir.KFun || bt.Kind == ir.KArray
		r.printTypeLhs(buf, ty.Base, true)
		if needParen {
			buf.WriteString("(*")
		} else {
			buf.WriteString("*")
		}
		if len(ty.Attrs) > 0 {
			r.printAttrs(buf, ty.Attrs)
			buf.WriteString(" ")
		}
		return
	case ir.KArray, ir.KFun:
		r.printTypeLhs(buf, ty.Base, needSpace)
		return
	default:
		diag.Bug("render: printTypeLhs: unhandled type kind %v", ty.Kind)
	}

	if len(ty.Attrs) > 0 {
		buf.WriteString(" ")
		r.printAttrs(buf, ty.Attrs)
	}
	if needSpace {
		buf.WriteString(" ")
	}
}

// printTypeRhs is the Go translation of CirType_printRhs: the part of a
// declarator that comes after the name (array brackets and function
// parameter lists, working outward from the name; trailing pointer stars
// are handled entirely by printTypeLhs's "spiral rule" recursion).
func (r *Renderer) printTypeRhs(buf *bytes.Buffer, t ir.TypeID, params []ir.VarID) {
	for {
		ty := r.ctx.Types.Get(t)
		switch ty.Kind {
		case ir.KVoid, ir.KVaList, ir.KInt, ir.KFloat, ir.KNamed, ir.KComp, ir.KEnum:
			return
		case ir.KPtr:
			bt := r.ctx.Types.Get(ty.Base)
			if bt.Kind == ir.KFun || bt.Kind == ir.KArray {
				buf.WriteString(")")
			}
			t = ty.Base
		case ir.KArray:
			if ty.ArrayLen != nil {
				fmt.Fprintf(buf, "[%d]", *ty.ArrayLen)
			} else {
				buf.WriteString("[]")
			}
			t = ty.Base
		case ir.KFun:
			r.printParamList(buf, ty.Params, ty.Variadic, params)
			t = ty.Base
		default:
			diag.Bug("render: printTypeRhs: unhandled type kind %v", ty.Kind)
		}
	}
}

func (r *Renderer) printParamList(buf *bytes.Buffer, formal []ir.FunParam, variadic bool, params []ir.VarID) {
	switch {
	case len(formal) > 0:
		buf.WriteString("(")
		for i, p := range formal {
			if i > 0 {
				buf.WriteString(", ")
			}
			if params != nil && i < len(params) {
				r.printVarDecl(buf, params[i], true)
			} else {
				r.printType(buf, p.Type, p.Name, nil)
			}
		}
		if variadic {
			buf.WriteString(", ...")
		}
		buf.WriteString(")")
	case variadic:
		buf.WriteString("(...)")
	default:
		buf.WriteString("(void)")
	}
}

// printAttrs renders a sorted attribute set as a single
// __attribute__((...)) clause.
func (r *Renderer) printAttrs(buf *bytes.Buffer, attrs []ir.Attr) {
	parts := make([]string, len(attrs))
	for i, a := range attrs {
		parts[i] = a.String()
	}
	fmt.Fprintf(buf, "__attribute__((%s))", strings.Join(parts, ", "))
}
