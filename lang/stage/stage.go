// Package stage implements the compile-time metaprogramming protocol of
// spec.md §4.7: the `@f(args)` staging trigger, which runs f as ordinary
// JIT-compiled machine code during compilation of its own call site and
// splices the result back into the IR being built. Two kinds of splice
// result (value and statement) reuse the ir package's User value/statement
// kinds as opaque carriers; this package owns interpreting their payloads,
// which the ir package itself stays ignorant of (ir.Value's User field and
// ir.Stmt's Ptr field are deliberately untyped at that layer).
package stage

import (
	"fmt"

	"github.com/mna/cirstage/lang/env"
	"github.com/mna/cirstage/lang/ir"
	"github.com/mna/cirstage/lang/jit"
)

// ValueSplice is the payload behind a VUser value minted by a staged call
// that returns a spliced expression result (spec.md §4.7 rule 5, case
// "value"): Code is the Expr code block to splice in place of the `@`
// expression, Inner is that code's trailing value, and InnerType is its
// static type, already known at stage time since the staged function ran
// to completion before the splice is constructed.
type ValueSplice struct {
	Code      *ir.Code
	Inner     ir.Value
	InnerType ir.TypeID
}

// StmtSplice is the payload behind a SUser statement minted by a staged
// call that returns a spliced statement sequence (spec.md §4.7 rule 5, case
// "stmt"): Code is the sequence to splice in, and Rewrite maps every
// variable handle the staged code allocated in its own (private) Context to
// the corresponding variable already live in the host compilation's
// Context, since the two never share a Vars arena.
type StmtSplice struct {
	Code    *ir.Code
	Rewrite map[ir.VarID]ir.VarID
}

// Stager drives `@f(args)` call sites: it owns the host Context and JIT
// backend the staged function runs against, plus the side tables mapping a
// User value/statement's opaque ID back to its splice payload.
type Stager struct {
	Ctx     *ir.Context
	Backend *jit.Backend

	valueSplices map[int64]ValueSplice
	stmtSplices  map[int64]StmtSplice
}

// New returns a Stager bound to ctx and backend. Both must already be fully
// initialized; New does not construct them so that front end and staging
// layer share the very same Context (spec.md §4.7's splices operate on
// handles from one Context, never two).
func New(ctx *ir.Context, backend *jit.Backend) *Stager {
	return &Stager{
		Ctx:          ctx,
		Backend:      backend,
		valueSplices: make(map[int64]ValueSplice),
		stmtSplices:  make(map[int64]StmtSplice),
	}
}

// ResultKind tells Invoke's caller how to interpret a staged call's return
// (spec.md §4.7 rule 5): as an ordinary value, a value splice, a statement
// splice, or nothing (a bare compile-time side effect).
type ResultKind int

const (
	ResultNone ResultKind = iota
	ResultValue
	ResultValueSplice
	ResultStmtSplice
)

// Result is what Invoke returns: exactly one of Value (ResultValue),
// ValueSplice (ResultValueSplice), or StmtSplice (ResultStmtSplice) is
// meaningful, selected by Kind.
type Result struct {
	Kind ResultKind

	Value       ir.Value
	ValueSplice ValueSplice
	StmtSplice  StmtSplice
}

// Invoke implements spec.md §4.7's `@IDENT(args)` form: it looks up name as
// a global function, evaluates the call by resolving and JIT-compiling it
// (draining any functions it transitively calls along with it), invokes it
// through the shared call stub, and classifies the return per rule 5.
//
// args are already-evaluated host-side operands (ints, or addresses of
// already-materialized globals); spec.md §4.7 rule 2 requires every
// argument to `@f` to itself be a compile-time constant, which the caller
// (the parser, at the `@` call site) is responsible for having checked
// before calling Invoke.
func (s *Stager) Invoke(e *env.Env, name string, args []uintptr) (Result, error) {
	binding, ok := e.FindGlobalName(name)
	if !ok || binding.Kind != env.NameVar {
		return Result{}, fmt.Errorf("stage: %q is not a known global function", name)
	}
	fv := binding.Var
	vr := s.Ctx.Vars.Get(fv)
	if !vr.IsFunction(s.Ctx.Types, s.Ctx.Typedefs) {
		return Result{}, fmt.Errorf("stage: %q is not a function", name)
	}

	if _, err := s.Backend.Resolve(fv); err != nil {
		return Result{}, err
	}
	if err := s.Backend.Drain(); err != nil {
		return Result{}, err
	}
	stubAddr, err := s.Backend.EnsureStub()
	if err != nil {
		return Result{}, err
	}
	alloc, err := s.Backend.Resolve(fv)
	if err != nil {
		return Result{}, err
	}

	raw := jit.CallStub(stubAddr, alloc.HostAddr, args)
	return s.classifyReturn(vr, raw)
}

// classifyReturn implements rule 5's dispatch on the staged function's
// declared return type: `void` is ResultNone, a User-tagged return
// (recognized by a sentinel stored in the matching side table) is one of
// the two splice kinds, anything else is an ordinary scalar ResultValue.
func (s *Stager) classifyReturn(vr *ir.Var, raw uintptr) (Result, error) {
	retType := s.returnType(vr)
	if retType == ir.None || s.Ctx.Types.Get(s.Ctx.Unroll(retType)).Kind == ir.KVoid {
		return Result{Kind: ResultNone}, nil
	}

	id := int64(raw)
	if vs, ok := s.valueSplices[id]; ok {
		return Result{Kind: ResultValueSplice, ValueSplice: vs}, nil
	}
	if ss, ok := s.stmtSplices[id]; ok {
		return Result{Kind: ResultStmtSplice, StmtSplice: ss}, nil
	}
	return Result{Kind: ResultValue, Value: ir.NewInt(retType, int64(raw))}, nil
}

func (s *Stager) returnType(vr *ir.Var) ir.TypeID {
	t := s.Ctx.Unroll(vr.Type)
	return s.Ctx.Types.Get(t).Base
}

// SpliceValue registers a value splice and returns the VUser value that
// names it; a staged function's own IR-building code (running inside the
// JIT-compiled call, constructing further IR through the same Context)
// calls this to produce the sentinel id classifyReturn later recognizes.
func (s *Stager) SpliceValue(code *ir.Code, inner ir.Value) ir.Value {
	id := s.Ctx.NextUserValueID()
	s.valueSplices[id] = ValueSplice{Code: code, Inner: inner, InnerType: inner.Type}
	return ir.NewUser(inner.Type, id)
}

// SpliceStmt registers a statement splice and returns its id, used as the
// staged function's raw uintptr return value so classifyReturn can find it
// back in stmtSplices.
func (s *Stager) SpliceStmt(code *ir.Code, rewrite map[ir.VarID]ir.VarID) int64 {
	id := s.Ctx.NextUserStmtID()
	s.stmtSplices[id] = StmtSplice{Code: code, Rewrite: rewrite}
	return id
}

// RewriteVars applies a StmtSplice's Rewrite table to every variable handle
// reachable from its Code's statements, producing host-Context-valid
// operands before the result is spliced into the call site's surrounding
// code (spec.md §4.7's "statement splice ... rewrites the staged code's
// private variable handles to the host's").
func (ss StmtSplice) RewriteVars(stmts *ir.Arena[ir.StmtID, ir.Stmt]) {
	rewriteVar := func(v ir.VarID) ir.VarID {
		if nv, ok := ss.Rewrite[v]; ok {
			return nv
		}
		return v
	}
	rewriteValue := func(v ir.Value) ir.Value {
		switch v.Kind {
		case ir.VVar:
			v.Var = rewriteVar(v.Var)
		case ir.VMem:
			v.Base = rewriteVar(v.Base)
		}
		return v
	}
	ir.Walk(stmts, ss.Code, func(_ ir.StmtID, st *ir.Stmt) {
		if st.HasDst || st.Kind == ir.SUnOp || st.Kind == ir.SBinOp {
			st.Dst = rewriteVar(st.Dst)
		}
		st.A = rewriteValue(st.A)
		st.B = rewriteValue(st.B)
		st.Target = rewriteValue(st.Target)
		for i, a := range st.Args {
			st.Args[i] = rewriteValue(a)
		}
		if st.HasValue {
			st.Value = rewriteValue(st.Value)
		}
	})
}
