// Package env implements the lexical environment that sits on top of an
// ir.Context: a stack of scopes mapping names to variables, typedefs, and
// enum items, a parallel stack of tags mapping to composites and enums, and
// the loop/switch target stacks that break/continue/goto consult (spec.md
// §3.7, §4.4). The design mirrors the teacher's resolver scope-stack (a
// linked list of blocks, each holding its own lookup table), adapted from a
// static binding resolver to a live, mutating declaration environment: a
// scope here is pushed and popped as the parser actually enters and leaves
// a C block, and its tables are consulted and written to in the same pass.
package env

import (
	"github.com/dolthub/swiss"
	"github.com/mna/cirstage/lang/ir"
)

// NameKind discriminates what a name scope entry denotes.
type NameKind int

const (
	NameVar NameKind = iota
	NameTypedef
	NameEnumItem
)

// NameBinding is one entry in a scope's names table.
type NameBinding struct {
	Kind     NameKind
	Var      ir.VarID
	Typedef  ir.TypedefID
	EnumItem ir.EnumItemID
}

// TagKind discriminates what a tag scope entry denotes.
type TagKind int

const (
	TagComp TagKind = iota
	TagEnum
)

// TagBinding is one entry in a scope's tags table.
type TagBinding struct {
	Kind TagKind
	Comp ir.CompID
	Enum ir.EnumID
}

// scope is one lexical block: a pair of name/tag swiss.Maps plus a link to
// its parent. Every scope, including the global one, uses the same table
// type; only the seed capacity differs (globalScopeCapacity vs.
// localScopeCapacity), matching spec.md §3.7's "the global scope uses a
// larger table".
type scope struct {
	parent *scope
	names  *swiss.Map[string, NameBinding]
	tags   *swiss.Map[string, TagBinding]
}

// globalScopeCapacity seeds the global scope's tables larger than a nested
// block's, matching spec.md §3.7's "the global scope uses a larger table".
const globalScopeCapacity = 256
const localScopeCapacity = 8

func newScope(parent *scope) *scope {
	capacity := localScopeCapacity
	if parent == nil {
		capacity = globalScopeCapacity
	}
	return &scope{
		parent: parent,
		names:  swiss.NewMap[string, NameBinding](uint32(capacity)),
		tags:   swiss.NewMap[string, TagBinding](uint32(capacity)),
	}
}

// LoopTargets are the statement handles break/continue patch into, for the
// innermost loop.
type LoopTargets struct {
	Continue ir.StmtID
	Break    ir.StmtID
}

// SwitchTarget is the statement handle break patches into, for the
// innermost switch.
type SwitchTarget struct {
	Break ir.StmtID
}

// Env is the scope stack plus the loop/switch target stacks (spec.md
// §3.7). The global scope is pushed once, at construction, and is never
// popped.
type Env struct {
	top    *scope
	global *scope

	loops    []LoopTargets
	switches []SwitchTarget

	// breakKinds records the interleaved push order of loops and switches
	// (true = loop, false = switch) so CurrentBreakTarget can tell which of
	// the two parallel stacks was opened most recently even when both have
	// the same depth (e.g. a switch directly nested in a loop).
	breakKinds []bool
}

// New returns an Env with only the global scope pushed.
func New() *Env {
	g := newScope(nil)
	return &Env{top: g, global: g}
}

// PushGlobal is a no-op beyond construction: there is exactly one global
// scope for the life of an Env, matching spec.md §3.7's single "global
// scope uses a larger table" description. It exists as an explicit method
// so callers mirroring the spec's push_global/push_local/pop vocabulary
// have a symmetric API; calling it while a local scope is open panics, and
// calling it again at global level does nothing.
func (e *Env) PushGlobal() {
	if e.top != e.global {
		panic("env: PushGlobal called with scopes already open")
	}
}

// PushLocal opens a new nested scope.
func (e *Env) PushLocal() { e.top = newScope(e.top) }

// Pop closes the innermost scope. Popping the global scope is a Bug.
func (e *Env) Pop() {
	if e.top == e.global {
		panic("env: Pop called on the global scope")
	}
	e.top = e.top.parent
}

// Depth reports how many scopes are open, including the global scope.
func (e *Env) Depth() int {
	n := 0
	for s := e.top; s != nil; s = s.parent {
		n++
	}
	return n
}

// FindLocalName searches from the innermost scope outward to (and
// including) the global scope.
func (e *Env) FindLocalName(name string) (NameBinding, bool) {
	for s := e.top; s != nil; s = s.parent {
		if b, ok := s.names.Get(name); ok {
			return b, true
		}
	}
	return NameBinding{}, false
}

// FindGlobalName looks only in the global scope.
func (e *Env) FindGlobalName(name string) (NameBinding, bool) {
	return e.global.names.Get(name)
}

// FindCurrentScopeName looks only in the innermost (current) scope.
func (e *Env) FindCurrentScopeName(name string) (NameBinding, bool) {
	return e.top.names.Get(name)
}

// DeclareName installs a name binding in the current scope. Per spec.md
// §4.4, redeclaration in the current scope is an error except in the
// global scope, where the caller is expected to have already combined the
// type and is just re-pointing the name at the (possibly identical)
// handle; DeclareName itself does not run combine — it only manages table
// occupancy — so the caller must call FindCurrentScopeName first to decide
// whether a redeclaration is legal.
func (e *Env) DeclareName(name string, b NameBinding) { e.top.names.Put(name, b) }

// FindLocalTag, FindGlobalTag, FindCurrentScopeTag, and DeclareTag mirror
// the name-table methods above for the tags namespace (struct/union/enum
// tags live in their own namespace from ordinary identifiers in C).
func (e *Env) FindLocalTag(name string) (TagBinding, bool) {
	for s := e.top; s != nil; s = s.parent {
		if b, ok := s.tags.Get(name); ok {
			return b, true
		}
	}
	return TagBinding{}, false
}

func (e *Env) FindGlobalTag(name string) (TagBinding, bool) {
	return e.global.tags.Get(name)
}

func (e *Env) FindCurrentScopeTag(name string) (TagBinding, bool) {
	return e.top.tags.Get(name)
}

func (e *Env) DeclareTag(name string, b TagBinding) { e.top.tags.Put(name, b) }

// LoopDepth reports how many loops are currently open.
func (e *Env) LoopDepth() int { return len(e.loops) }

// SwitchDepth reports how many switches are currently open.
func (e *Env) SwitchDepth() int { return len(e.switches) }

// PushLoop opens a new innermost loop's continue/break targets.
func (e *Env) PushLoop(t LoopTargets) {
	e.loops = append(e.loops, t)
	e.breakKinds = append(e.breakKinds, true)
}

// PopLoop closes the innermost loop.
func (e *Env) PopLoop() {
	e.loops = e.loops[:len(e.loops)-1]
	e.breakKinds = e.breakKinds[:len(e.breakKinds)-1]
}

// CurrentLoop returns the innermost loop's targets. The second return is
// false outside any loop.
func (e *Env) CurrentLoop() (LoopTargets, bool) {
	if len(e.loops) == 0 {
		return LoopTargets{}, false
	}
	return e.loops[len(e.loops)-1], true
}

// PushSwitch opens a new innermost switch's break target.
func (e *Env) PushSwitch(t SwitchTarget) {
	e.switches = append(e.switches, t)
	e.breakKinds = append(e.breakKinds, false)
}

// PopSwitch closes the innermost switch.
func (e *Env) PopSwitch() {
	e.switches = e.switches[:len(e.switches)-1]
	e.breakKinds = e.breakKinds[:len(e.breakKinds)-1]
}

// CurrentSwitch returns the innermost switch's target. The second return
// is false outside any switch.
func (e *Env) CurrentSwitch() (SwitchTarget, bool) {
	if len(e.switches) == 0 {
		return SwitchTarget{}, false
	}
	return e.switches[len(e.switches)-1], true
}

// CurrentBreakTarget resolves a `break` statement to whichever of the
// innermost loop or innermost switch was opened most recently (spec.md
// §3.7 keeps loops and switches as two parallel stacks rather than one
// interleaved stack, so this consults breakKinds — the actual push order
// — instead of comparing the two stacks' lengths, which is ambiguous when
// both are the same depth).
func (e *Env) CurrentBreakTarget() (ir.StmtID, bool) {
	if len(e.breakKinds) == 0 {
		return ir.None, false
	}
	if e.breakKinds[len(e.breakKinds)-1] {
		return e.loops[len(e.loops)-1].Break, true
	}
	return e.switches[len(e.switches)-1].Break, true
}
