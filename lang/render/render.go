// Package render implements the topological C emitter of spec.md §6's
// "Renderer output": given a finished ir.Context, it walks every render
// root (a non-static global variable or a non-static function with a body)
// and emits a single C translation unit that recompiles to the same
// program. It is grounded on original_source/CirRender.c, CirType.c,
// CirVar.c, CirStmt.c, and CirValue.c — the teacher repo's own printer
// (lang/ast/printer.go) is a debug AST dumper, not a C-text emitter, so
// this package has no teacher analog and is built directly from the
// original implementation's algorithm instead.
//
// The core trick, copied from the original: composites, typedefs, and
// variables form a dependency graph that can contain cycles (a linked
// list's node type points at itself through a pointer), so a plain
// depth-first emission order does not exist. Ordering is done with a
// four-state visit status per id (not visited / visiting / visiting but
// already forward-declared / visited) exactly as CirRender.c's orderComp
// and orderVar do, falling back to a forward declaration whenever a cycle
// is hit and a full definition is not strictly required at that point.
package render

import (
	"bytes"
	"fmt"

	"github.com/mna/cirstage/lang/diag"
	"github.com/mna/cirstage/lang/ir"
)

// status is the four-state visit marker orderComp/orderTypedef/orderVar
// each keep per id, named after CirRender.c's STATUS_* constants.
type status int

const (
	notVisited status = iota
	visiting
	visitingDeclared
	visited
)

// itemKind distinguishes the five shapes a pending render item can take,
// mirroring CirRender.c's RenderItem.type enum.
type itemKind int

const (
	itemCompDef itemKind = iota
	itemCompDecl
	itemTypedef
	itemVarDecl
	itemFunDef
)

type item struct {
	kind    itemKind
	comp    ir.CompID
	typedef ir.TypedefID
	v       ir.VarID
}

// Renderer walks an ir.Context and accumulates the ordered list of
// declarations/definitions to print. A Renderer is single-use: construct
// one per Context, call Render once.
type Renderer struct {
	ctx *ir.Context

	compStatus    map[ir.CompID]status
	typedefStatus map[ir.TypedefID]status
	varStatus     map[ir.VarID]status

	// labeled records which statement handles are the target of some Cmp or
	// Goto, so the print pass knows which statements need a leading `sidN:`
	// label (spec.md's rendering never emits a label it doesn't need).
	labeled map[ir.StmtID]bool

	items []item
}

// New returns a Renderer over ctx.
func New(ctx *ir.Context) *Renderer {
	return &Renderer{
		ctx:           ctx,
		compStatus:    make(map[ir.CompID]status),
		typedefStatus: make(map[ir.TypedefID]status),
		varStatus:     make(map[ir.VarID]status),
		labeled:       make(map[ir.StmtID]bool),
	}
}

// Render produces the full C translation unit text. Internal invariant
// violations (an unpatched jump target, a type kind this package does not
// know how to print) surface as diag.Bug panics; Render recovers those and
// reports them through its error return instead of crashing the caller,
// matching the top-level driver's usual Bug-recovery idiom (spec.md §7).
func (r *Renderer) Render() (out string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if be, ok := rec.(*diag.BugError); ok {
				err = be
				return
			}
			panic(rec)
		}
	}()

	r.order()

	var buf bytes.Buffer
	r.printEnums(&buf)
	for _, it := range r.items {
		r.printItem(&buf, it)
	}
	return buf.String(), nil
}

// order walks every render root var, in arena allocation order, building
// r.items. It is the Go translation of CirRender.c's driver loop.
func (r *Renderer) order() {
	n := r.ctx.Vars.Len()
	for i := 1; i <= n; i++ {
		vid := ir.VarID(i)
		if r.isRenderRoot(vid) {
			r.orderVar(vid)
		}
	}
}

// isRenderRoot mirrors CirRender.c's isRenderRoot: a render root is a
// global (Owner == None) that is either a non-static function with a body,
// or a non-static, non-extern plain variable.
func (r *Renderer) isRenderRoot(vid ir.VarID) bool {
	v := r.ctx.Vars.Get(vid)
	if v.Owner != ir.None {
		return false
	}
	if v.Type == ir.None {
		return false
	}
	unrolled := r.ctx.Unroll(v.Type)
	ty := r.ctx.Types.Get(unrolled)
	if ty.Kind == ir.KFun {
		return v.Storage != ir.SCStatic && v.Body != ir.None
	}
	return v.Storage != ir.SCStatic && v.Storage != ir.SCExtern
}

// orderType walks a type's structure, recursively ordering every Comp or
// Typedef it reaches. mustDef demands a full definition rather than a
// forward declaration be available at this point (e.g. a field stored by
// value, as opposed to a pointer to it).
func (r *Renderer) orderType(t ir.TypeID, mustDef bool) {
	ty := r.ctx.Types.Get(t)
	switch ty.Kind {
	case ir.KVoid, ir.KInt, ir.KFloat, ir.KVaList, ir.KEnum:
		// Leaves: built-ins need no declaration, and enums (spec.md's
		// rendering has no self-referential enum case to break) are printed
		// unconditionally up front by printEnums instead of being ordered.
	case ir.KPtr:
		r.orderType(ty.Base, false)
	case ir.KArray:
		r.orderType(ty.Base, mustDef)
	case ir.KFun:
		r.orderType(ty.Base, false)
		for _, p := range ty.Params {
			r.orderType(p.Type, false)
		}
	case ir.KNamed:
		r.orderTypedef(ty.Typedef, mustDef)
	case ir.KComp:
		r.orderComp(ty.Comp, mustDef)
	default:
		diag.Bug("render: orderType: unhandled type kind %v", ty.Kind)
	}
}

func (r *Renderer) orderTypedef(tid ir.TypedefID, mustDef bool) {
	switch r.typedefStatus[tid] {
	case visited:
		return
	case visiting, visitingDeclared:
		diag.Bug("render: circular typedef dependency on %s", r.ctx.Typedefs.Get(tid).Name)
	}

	r.typedefStatus[tid] = visiting
	td := r.ctx.Typedefs.Get(tid)
	r.orderType(td.Type, mustDef)
	r.items = append(r.items, item{kind: itemTypedef, typedef: tid})
	r.typedefStatus[tid] = visited
}

func (r *Renderer) orderComp(cid ir.CompID, mustDef bool) {
	switch r.compStatus[cid] {
	case visited:
		return
	case visiting, visitingDeclared:
		if mustDef {
			diag.Bug("render: composite %s stored by value inside itself", r.ctx.Comps.Get(cid).Name)
		}
		if r.compStatus[cid] == visitingDeclared {
			return
		}
		r.items = append(r.items, item{kind: itemCompDecl, comp: cid})
		r.compStatus[cid] = visitingDeclared
		return
	}

	c := r.ctx.Comps.Get(cid)
	if !c.IsDefined {
		if mustDef {
			diag.Bug("render: composite %s is used but never defined", c.Name)
		}
		r.items = append(r.items, item{kind: itemCompDecl, comp: cid})
		r.compStatus[cid] = visited
		return
	}

	r.compStatus[cid] = visiting
	for _, f := range c.Fields {
		r.orderType(f.Type, mustDef)
	}
	r.items = append(r.items, item{kind: itemCompDef, comp: cid})
	r.compStatus[cid] = visited
}

// orderValue visits whatever var a value reaches (parent is the var whose
// own body is being ordered, so a self-reference inside it is not
// re-entered).
func (r *Renderer) orderValue(v ir.Value, parent ir.VarID) {
	switch v.Kind {
	case ir.VInt, ir.VStr, ir.VUser, ir.VBuiltin:
		// Nothing to order.
	case ir.VType:
		r.orderType(v.TypeVal, false)
	case ir.VVar:
		r.orderVarRef(v.Var, parent)
	case ir.VMem:
		r.orderVarRef(v.Base, parent)
	default:
		diag.Bug("render: orderValue: unhandled value kind %v", v.Kind)
	}
}

func (r *Renderer) orderVarRef(vid, parent ir.VarID) {
	if vid != ir.None && vid != parent {
		r.orderVar(vid)
	}
}

// orderVar is the Go translation of CirRender.c's orderVar, with one
// deliberate deviation: where the original falls through after pushing a
// forward declaration for a var it finds already "visiting" (reachable
// only through mutual recursion between two global function bodies) and
// re-walks that var's statements a second time — which pushes a second,
// duplicate RENDER_FUN_DEF for it once the outer call finishes — this
// version returns immediately after the forward declaration. The forward
// declaration is all the cycle-breaking the rest of the algorithm actually
// needs; re-walking and double-emitting the body would just produce
// invalid C (a redefinition) for any pair of mutually recursive globals.
func (r *Renderer) orderVar(vid ir.VarID) {
	switch r.varStatus[vid] {
	case visited:
		return
	case visiting, visitingDeclared:
		if r.varStatus[vid] == visitingDeclared {
			return
		}
		r.items = append(r.items, item{kind: itemVarDecl, v: vid})
		r.varStatus[vid] = visitingDeclared
		return
	}

	v := r.ctx.Vars.Get(vid)

	if v.Owner != ir.None {
		// A local: the var itself needs no top-level declaration (it is
		// declared inside its owning function's body instead), but its type
		// must be fully known wherever the function is emitted.
		if v.Type != ir.None {
			r.orderType(v.Type, true)
		}
		r.varStatus[vid] = visited
		return
	}

	r.varStatus[vid] = visiting
	if v.Type != ir.None {
		r.orderType(v.Type, false)
	}

	if v.Body != ir.None {
		code := r.ctx.Codes.Get(v.Body)
		ir.Walk(r.ctx.Stmts, code, func(h ir.StmtID, s *ir.Stmt) {
			r.orderStmt(h, s, vid)
		})
		r.items = append(r.items, item{kind: itemFunDef, v: vid})
	} else {
		r.items = append(r.items, item{kind: itemVarDecl, v: vid})
	}
	r.varStatus[vid] = visited
}

func (r *Renderer) orderStmt(h ir.StmtID, s *ir.Stmt, parent ir.VarID) {
	switch s.Kind {
	case ir.SUnOp:
		r.orderValue(s.A, parent)
		r.orderVarRef(s.Dst, parent)
	case ir.SBinOp:
		r.orderValue(s.A, parent)
		r.orderValue(s.B, parent)
		r.orderVarRef(s.Dst, parent)
	case ir.SCall:
		r.orderValue(s.Target, parent)
		for _, a := range s.Args {
			r.orderValue(a, parent)
		}
		if s.HasDst {
			r.orderVarRef(s.Dst, parent)
		}
	case ir.SReturn:
		if s.HasValue {
			r.orderValue(s.Value, parent)
		}
	case ir.SCmp:
		r.labeled[s.JumpTarget] = true
		r.orderValue(s.A, parent)
		r.orderValue(s.B, parent)
	case ir.SGoto:
		r.labeled[s.JumpTarget] = true
	case ir.SNop, ir.SLabel, ir.SGotoLabel, ir.SUser:
		// Contribute nothing to the ordering.
	default:
		diag.Bug("render: orderStmt: unhandled stmt kind %v", s.Kind)
	}
}

func (r *Renderer) printItem(buf *bytes.Buffer, it item) {
	switch it.kind {
	case itemCompDef:
		r.printComp(buf, it.comp, true)
	case itemCompDecl:
		r.printComp(buf, it.comp, false)
	case itemTypedef:
		r.printTypedef(buf, it.typedef)
	case itemVarDecl:
		r.printVarItem(buf, it.v, false)
	case itemFunDef:
		r.printVarItem(buf, it.v, true)
	default:
		diag.Bug("render: printItem: unhandled item kind %v", it.kind)
	}
}

// printEnums emits every defined enum's full definition up front. The
// original renderer never forward-declares or re-orders enums (a C enum
// can only ever hold integer constants, so it cannot participate in the
// pointer-based cycles composites and typedefs can), and CirType_print's
// own enum arm only ever emits the bare `enum eidN_name` tag reference, so
// a defining `enum eidN_name { ... };` must be emitted somewhere before
// that tag's first use; this package does it in one pass at the top of
// the unit rather than threading an extra per-enum status array through
// the ordering pass for no cycle-breaking benefit.
func (r *Renderer) printEnums(buf *bytes.Buffer) {
	n := r.ctx.Enums.Len()
	for i := 1; i <= n; i++ {
		eid := ir.EnumID(i)
		e := r.ctx.Enums.Get(eid)
		if !e.IsDefined {
			continue
		}
		fmt.Fprintf(buf, "enum eid%d", eid)
		if e.Name != "" {
			fmt.Fprintf(buf, "_%s", e.Name)
		}
		buf.WriteString(" {\n")
		for _, iid := range e.Items {
			it := r.ctx.EnumItems.Get(iid)
			fmt.Fprintf(buf, "    %s = %d,\n", it.Name, it.Value)
		}
		buf.WriteString("};\n")
	}
}
