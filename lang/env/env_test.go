package env_test

import (
	"testing"

	"github.com/mna/cirstage/lang/env"
	"github.com/mna/cirstage/lang/ir"
)

func TestDeclareAndFindScoping(t *testing.T) {
	e := env.New()
	e.DeclareName("x", env.NameBinding{Kind: env.NameVar, Var: 1})

	e.PushLocal()
	defer e.Pop()
	e.DeclareName("y", env.NameBinding{Kind: env.NameVar, Var: 2})

	if _, ok := e.FindCurrentScopeName("x"); ok {
		t.Error("x was declared in the outer scope; it must not appear in the current (inner) scope lookup")
	}
	if _, ok := e.FindLocalName("x"); !ok {
		t.Error("FindLocalName must search outward and find x in the global scope")
	}
	if _, ok := e.FindLocalName("y"); !ok {
		t.Error("FindLocalName must find y in the current scope")
	}
	if _, ok := e.FindGlobalName("y"); ok {
		t.Error("y was declared locally; FindGlobalName must not see it")
	}
}

func TestPopUnwindsInnerDeclarations(t *testing.T) {
	e := env.New()
	e.PushLocal()
	e.DeclareName("tmp", env.NameBinding{Kind: env.NameVar, Var: 1})
	e.Pop()

	if _, ok := e.FindLocalName("tmp"); ok {
		t.Error("a name declared in a popped scope must no longer be visible")
	}
}

func TestPopGlobalScopeIsBug(t *testing.T) {
	e := env.New()
	defer func() {
		if recover() == nil {
			t.Error("popping the global scope must panic")
		}
	}()
	e.Pop()
}

func TestBreakTargetPrefersMostRecentlyOpened(t *testing.T) {
	e := env.New()
	e.PushLoop(env.LoopTargets{Continue: 1, Break: 2})
	e.PushSwitch(env.SwitchTarget{Break: 3})

	target, ok := e.CurrentBreakTarget()
	if !ok {
		t.Fatal("expected a break target with a switch open")
	}
	if target != 3 {
		t.Errorf("break inside a switch nested in a loop must target the switch's break (3), got %v", target)
	}

	e.PopSwitch()
	target, ok = e.CurrentBreakTarget()
	if !ok || target != 2 {
		t.Errorf("after popping the switch, break should target the loop's break (2), got %v, ok=%v", target, ok)
	}
}

func TestTagNamespaceIsSeparateFromNames(t *testing.T) {
	e := env.New()
	e.DeclareName("S", env.NameBinding{Kind: env.NameVar, Var: 1})
	e.DeclareTag("S", env.TagBinding{Kind: env.TagComp, Comp: ir.CompID(1)})

	if _, ok := e.FindGlobalName("S"); !ok {
		t.Error("the ordinary-identifier \"S\" must still resolve")
	}
	tag, ok := e.FindGlobalTag("S")
	if !ok || tag.Comp != ir.CompID(1) {
		t.Error("the tag \"S\" must resolve independently in its own namespace")
	}
}
