//go:build cgo && z3
// +build cgo,z3

package capi

import (
	"testing"

	"github.com/vhavlena/z3safe/engine"
)

// mustAST returns a checker that fails t on a constructor error.
func mustAST(t *testing.T) func(engine.AST, error) engine.AST {
	return func(a engine.AST, err error) engine.AST {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return a
	}
}

func TestCheckAndEval(t *testing.T) {
	eng, err := New()
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	c, err := eng.MkContext(nil)
	if err != nil {
		t.Fatalf("context: %v", err)
	}
	defer eng.DelContext(c)

	intSort, err := eng.MkIntSort(c)
	if err != nil {
		t.Fatalf("int sort: %v", err)
	}
	name, _ := eng.MkStringSymbol(c, "x")
	x := mustAST(t)(eng.MkConst(c, name, intSort))
	eng.IncRef(c, x)
	defer eng.DecRef(c, x)
	seven := mustAST(t)(eng.MkInt64(c, 7, intSort))
	eng.IncRef(c, seven)
	defer eng.DecRef(c, seven)
	eq := mustAST(t)(eng.MkEq(c, x, seven))
	eng.IncRef(c, eq)
	defer eng.DecRef(c, eq)

	s, err := eng.MkSolver(c)
	if err != nil {
		t.Fatalf("solver: %v", err)
	}
	eng.SolverIncRef(c, s)
	defer eng.SolverDecRef(c, s)
	if err := eng.SolverAssert(c, s, eq); err != nil {
		t.Fatalf("assert: %v", err)
	}
	if r := eng.SolverCheck(c, s); r != engine.LTrue {
		t.Fatalf("expected sat, got %v", r)
	}
	m, err := eng.SolverModel(c, s)
	if err != nil {
		t.Fatalf("model: %v", err)
	}
	eng.ModelIncRef(c, m)
	defer eng.ModelDecRef(c, m)
	v, ok := eng.ModelEval(c, m, x, true)
	if !ok {
		t.Fatalf("eval failed")
	}
	eng.IncRef(c, v)
	defer eng.DecRef(c, v)
	if n, ok := eng.NumeralInt64(c, v); !ok || n != 7 {
		t.Fatalf("expected x = 7, got %d (%v)", n, ok)
	}
}

func TestSortErrorIsReported(t *testing.T) {
	eng, _ := New()
	c, err := eng.MkContext(nil)
	if err != nil {
		t.Fatalf("context: %v", err)
	}
	defer eng.DelContext(c)
	intSort, _ := eng.MkIntSort(c)
	tru := mustAST(t)(eng.MkTrue(c))
	one := mustAST(t)(eng.MkInt64(c, 1, intSort))
	if _, err := eng.MkEq(c, tru, one); err == nil {
		t.Fatalf("expected sort error for (= true 1)")
	}
}
