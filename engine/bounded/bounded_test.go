package bounded

import (
	"errors"
	"strings"
	"testing"

	"github.com/vhavlena/z3safe/engine"
)

type fixture struct {
	t   *testing.T
	e   *Engine
	c   engine.Context
	int engine.Sort
}

func newFixture(t *testing.T, params map[string]string) *fixture {
	t.Helper()
	e := New()
	c, err := e.MkContext(params)
	if err != nil {
		t.Fatalf("MkContext: %v", err)
	}
	t.Cleanup(func() { e.DelContext(c) })
	s, err := e.MkIntSort(c)
	if err != nil {
		t.Fatalf("MkIntSort: %v", err)
	}
	return &fixture{t: t, e: e, c: c, int: s}
}

func (f *fixture) ok(a engine.AST, err error) engine.AST {
	f.t.Helper()
	if err != nil {
		f.t.Fatalf("unexpected error: %v", err)
	}
	return a
}

func (f *fixture) konst(name string) engine.AST {
	sym, _ := f.e.MkStringSymbol(f.c, name)
	return f.ok(f.e.MkConst(f.c, sym, f.int))
}

func (f *fixture) num(v int64) engine.AST { return f.ok(f.e.MkInt64(f.c, v, f.int)) }

func (f *fixture) check(assertions ...engine.AST) (engine.LBool, engine.Solver) {
	f.t.Helper()
	s, err := f.e.MkSolver(f.c)
	if err != nil {
		f.t.Fatalf("MkSolver: %v", err)
	}
	f.e.SolverIncRef(f.c, s)
	f.t.Cleanup(func() { f.e.SolverDecRef(f.c, s) })
	for _, a := range assertions {
		if err := f.e.SolverAssert(f.c, s, a); err != nil {
			f.t.Fatalf("SolverAssert: %v", err)
		}
	}
	return f.e.SolverCheck(f.c, s), s
}

func TestContextParameters(t *testing.T) {
	e := New()
	for _, bad := range []map[string]string{
		{ParamWidth: "1"},
		{ParamWidth: "64"},
		{ParamWidth: "x"},
		{ParamMaxInstances: "0"},
	} {
		if _, err := e.MkContext(bad); !errors.Is(err, engine.ErrInvalidArgument) {
			t.Fatalf("expected %v to be rejected, got %v", bad, err)
		}
	}
	c, err := e.MkContext(map[string]string{ParamWidth: "8", "model": "true"})
	if err != nil {
		t.Fatalf("MkContext: %v", err)
	}
	if e.Stats().Contexts != 1 {
		t.Fatalf("expected one context, got %d", e.Stats().Contexts)
	}
	e.DelContext(c)
	if e.Stats().Contexts != 0 {
		t.Fatalf("expected no contexts, got %d", e.Stats().Contexts)
	}
}

func TestHashConsing(t *testing.T) {
	f := newFixture(t, nil)
	x1, x2 := f.konst("x"), f.konst("x")
	if x1 != x2 || !f.e.IsEqAST(f.c, x1, x2) {
		t.Fatalf("expected the same handle for equal constants")
	}
	y := f.konst("y")
	s1 := f.ok(f.e.MkAdd(f.c, []engine.AST{x1, y}))
	s2 := f.ok(f.e.MkAdd(f.c, []engine.AST{x2, y}))
	if s1 != s2 || f.e.ASTHash(f.c, s1) != f.e.ASTHash(f.c, s2) {
		t.Fatalf("expected structural sharing for equal sums")
	}
	if f.e.IsEqAST(f.c, s1, x1) {
		t.Fatalf("expected different terms to differ")
	}
	if got := f.e.ASTString(f.c, f.num(-3)); got != "(- 3)" {
		t.Fatalf("expected (- 3), got %s", got)
	}
}

func TestNumeralRange(t *testing.T) {
	f := newFixture(t, nil)
	for _, v := range []int64{-32, 31} {
		if n, ok := f.e.NumeralInt64(f.c, f.num(v)); !ok || n != v {
			t.Fatalf("expected numeral %d, got %d (ok=%v)", v, n, ok)
		}
	}
	before := len(f.e.ctx(f.c).nodes)
	for _, v := range []int64{-33, 32, 40, 100} {
		if _, err := f.e.MkInt64(f.c, v, f.int); !errors.Is(err, engine.ErrInvalidArgument) {
			t.Fatalf("expected %d to be rejected at width 6, got %v", v, err)
		}
	}
	if after := len(f.e.ctx(f.c).nodes); after != before {
		t.Fatalf("expected rejected numerals to create no nodes, got %d new", after-before)
	}
}

func TestReferenceCounting(t *testing.T) {
	f := newFixture(t, nil)
	x := f.konst("x")
	f.e.IncRef(f.c, x)
	sum := f.ok(f.e.MkAdd(f.c, []engine.AST{x, f.num(1)}))
	f.e.IncRef(f.c, sum)

	f.e.DecRef(f.c, x)
	if f.e.node(f.c, x) == nil {
		t.Fatalf("expected x to stay alive while sum refers to it")
	}
	f.e.DecRef(f.c, sum)
	if f.e.node(f.c, sum) != nil || f.e.node(f.c, x) != nil {
		t.Fatalf("expected sum and x to be freed")
	}
	st := f.e.Stats()
	if st.IncRefs != 2 || st.DecRefs != 2 || st.Underflows != 0 {
		t.Fatalf("unexpected stats %+v", st)
	}

	f.e.DecRef(f.c, sum)
	f.e.IncRef(f.c, engine.AST(9999))
	st = f.e.Stats()
	if st.Underflows != 1 || st.Invalid != 1 {
		t.Fatalf("expected one underflow and one invalid call, got %+v", st)
	}
}

func TestSolverScopes(t *testing.T) {
	f := newFixture(t, nil)
	x := f.konst("x")
	one := f.ok(f.e.MkEq(f.c, x, f.num(1)))
	r, s := f.check(one)
	if r != engine.LTrue {
		t.Fatalf("expected sat, got %d", r)
	}
	if err := f.e.SolverPush(f.c, s); err != nil {
		t.Fatalf("SolverPush: %v", err)
	}
	two := f.ok(f.e.MkEq(f.c, x, f.num(2)))
	if err := f.e.SolverAssert(f.c, s, two); err != nil {
		t.Fatalf("SolverAssert: %v", err)
	}
	if r := f.e.SolverCheck(f.c, s); r != engine.LFalse {
		t.Fatalf("expected unsat inside the scope, got %d", r)
	}
	if err := f.e.SolverPop(f.c, s, 1); err != nil {
		t.Fatalf("SolverPop: %v", err)
	}
	if f.e.node(f.c, two) != nil {
		t.Fatalf("expected the popped assertion to be freed")
	}
	if n := f.e.SolverNumScopes(f.c, s); n != 0 {
		t.Fatalf("expected no scopes, got %d", n)
	}
	if r := f.e.SolverCheck(f.c, s); r != engine.LTrue {
		t.Fatalf("expected sat after pop, got %d", r)
	}
	if err := f.e.SolverPop(f.c, s, 1); !errors.Is(err, engine.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestSortChecks(t *testing.T) {
	f := newFixture(t, nil)
	tru := f.ok(f.e.MkTrue(f.c))
	if _, err := f.e.MkEq(f.c, tru, f.num(1)); !errors.Is(err, engine.ErrInvalidArgument) {
		t.Fatalf("expected sort mismatch, got %v", err)
	}
	if _, err := f.e.MkAdd(f.c, []engine.AST{tru}); !errors.Is(err, engine.ErrInvalidArgument) {
		t.Fatalf("expected Bool in addition to be rejected, got %v", err)
	}
	if _, err := f.e.MkNot(f.c, f.num(1)); !errors.Is(err, engine.ErrInvalidArgument) {
		t.Fatalf("expected Int in negation to be rejected, got %v", err)
	}
	sym, _ := f.e.MkStringSymbol(f.c, "g")
	g, err := f.e.MkFuncDecl(f.c, sym, []engine.Sort{f.int}, f.int)
	if err != nil {
		t.Fatalf("MkFuncDecl: %v", err)
	}
	if _, err := f.e.MkApp(f.c, g, []engine.AST{tru}); !errors.Is(err, engine.ErrInvalidArgument) {
		t.Fatalf("expected argument sort mismatch, got %v", err)
	}
	if _, err := f.e.MkPattern(f.c, []engine.AST{f.num(1)}); !errors.Is(err, engine.ErrInvalidArgument) {
		t.Fatalf("expected a numeral pattern to be rejected, got %v", err)
	}
}

func TestFreshDeclarations(t *testing.T) {
	f := newFixture(t, nil)
	taken, _ := f.e.MkStringSymbol(f.c, "inv!0")
	if _, err := f.e.MkFuncDecl(f.c, taken, nil, f.int); err != nil {
		t.Fatalf("MkFuncDecl: %v", err)
	}
	d, err := f.e.MkFreshFuncDecl(f.c, "inv", []engine.Sort{f.int}, f.int)
	if err != nil {
		t.Fatalf("MkFreshFuncDecl: %v", err)
	}
	if name := f.e.SymbolString(f.c, f.e.DeclName(f.c, d)); name != "inv!1" {
		t.Fatalf("expected inv!1 to skip the taken name, got %s", name)
	}
}

func TestCheck(t *testing.T) {
	f := newFixture(t, nil)
	x, y := f.konst("x"), f.konst("y")

	sum := f.ok(f.e.MkAdd(f.c, []engine.AST{x, y}))
	r, s := f.check(
		f.ok(f.e.MkEq(f.c, sum, f.num(7))),
		f.ok(f.e.MkGt(f.c, x, f.num(2))),
		f.ok(f.e.MkGt(f.c, y, f.num(2))),
	)
	if r != engine.LTrue {
		t.Fatalf("expected sat, got %v", r)
	}
	m, err := f.e.SolverModel(f.c, s)
	if err != nil {
		t.Fatalf("SolverModel: %v", err)
	}
	f.e.ModelIncRef(f.c, m)
	defer f.e.ModelDecRef(f.c, m)
	xv, _ := f.e.ModelEval(f.c, m, x, true)
	yv, _ := f.e.ModelEval(f.c, m, y, true)
	a, _ := f.e.NumeralInt64(f.c, xv)
	b, _ := f.e.NumeralInt64(f.c, yv)
	if a+b != 7 || a <= 2 || b <= 2 {
		t.Fatalf("model violates constraints: x=%d y=%d", a, b)
	}
	if !strings.Contains(f.e.ModelString(f.c, m), "x -> ") {
		t.Fatalf("expected x in model rendering:\n%s", f.e.ModelString(f.c, m))
	}

	r, s = f.check(
		f.ok(f.e.MkLt(f.c, x, y)),
		f.ok(f.e.MkLt(f.c, y, x)),
	)
	if r != engine.LFalse {
		t.Fatalf("expected unsat, got %v", r)
	}
	if _, err := f.e.SolverModel(f.c, s); err == nil {
		t.Fatalf("expected no model after unsat")
	}
}

func TestWrapAroundArithmetic(t *testing.T) {
	f := newFixture(t, map[string]string{ParamWidth: "4"})
	x := f.konst("x")
	// At width 4, x + 1 < x holds only for x = 7.
	r, s := f.check(f.ok(f.e.MkLt(f.c, f.ok(f.e.MkAdd(f.c, []engine.AST{x, f.num(1)})), x)))
	if r != engine.LTrue {
		t.Fatalf("expected sat, got %v", r)
	}
	m, _ := f.e.SolverModel(f.c, s)
	f.e.ModelIncRef(f.c, m)
	defer f.e.ModelDecRef(f.c, m)
	v, _ := f.e.ModelEval(f.c, m, x, true)
	if n, _ := f.e.NumeralInt64(f.c, v); n != 7 {
		t.Fatalf("expected x = 7, got %d", n)
	}

	prod := f.ok(f.e.MkMul(f.c, []engine.AST{x, f.num(3)}))
	// 3x = 5 modulo 16 only for x = 7; 3x = -3 only for x = -1.
	r, _ = f.check(f.ok(f.e.MkEq(f.c, prod, f.num(5))), f.ok(f.e.MkGe(f.c, x, f.num(0))))
	if r != engine.LTrue {
		t.Fatalf("expected 3x = 5 to be solvable, got %v", r)
	}
	r, _ = f.check(f.ok(f.e.MkEq(f.c, prod, f.num(-3))), f.ok(f.e.MkGe(f.c, x, f.num(0))))
	if r != engine.LFalse {
		t.Fatalf("expected 3x = -3 to have no non-negative solution, got %v", r)
	}
}

func TestCongruence(t *testing.T) {
	f := newFixture(t, nil)
	sym, _ := f.e.MkStringSymbol(f.c, "g")
	g, _ := f.e.MkFuncDecl(f.c, sym, []engine.Sort{f.int}, f.int)
	x, y := f.konst("x"), f.konst("y")
	gx := f.ok(f.e.MkApp(f.c, g, []engine.AST{x}))
	gy := f.ok(f.e.MkApp(f.c, g, []engine.AST{y}))
	notEq := f.ok(f.e.MkNot(f.c, f.ok(f.e.MkEq(f.c, gx, gy))))
	r, _ := f.check(f.ok(f.e.MkEq(f.c, x, y)), notEq)
	if r != engine.LFalse {
		t.Fatalf("expected x = y and g(x) != g(y) to be unsat, got %v", r)
	}
}

func TestQuantifierGrounding(t *testing.T) {
	f := newFixture(t, map[string]string{ParamWidth: "3", ParamMaxInstances: "64"})
	v0 := f.ok(f.e.MkBound(f.c, 0, f.int))
	v1 := f.ok(f.e.MkBound(f.c, 1, f.int))
	n0, _ := f.e.MkIntSymbol(f.c, 0)
	n1, _ := f.e.MkIntSymbol(f.c, 1)
	sorts := []engine.Sort{f.int, f.int}
	names := []engine.Symbol{n0, n1}

	// forall a b. (a - b) + b = a, with a = (:var 1) and b = (:var 0)
	diff := f.ok(f.e.MkSub(f.c, []engine.AST{v1, v0}))
	back := f.ok(f.e.MkAdd(f.c, []engine.AST{diff, v0}))
	law := f.ok(f.e.MkQuantifier(f.c, true, 0, nil, sorts, names, f.ok(f.e.MkEq(f.c, back, v1))))
	if r, _ := f.check(law); r != engine.LTrue {
		t.Fatalf("expected the subtraction law to hold, got %v", r)
	}
	if f.e.QuantifierNumBound(f.c, law) != 2 || !f.e.IsQuantifierForall(f.c, law) {
		t.Fatalf("unexpected quantifier shape")
	}

	// forall a b. a < b is false.
	lt := f.ok(f.e.MkQuantifier(f.c, true, 0, nil, sorts, names, f.ok(f.e.MkLt(f.c, v1, v0))))
	if r, _ := f.check(lt); r != engine.LFalse {
		t.Fatalf("expected forall a b. a < b to be unsat, got %v", r)
	}

	// Three variables need 512 instances, over the budget.
	three := f.ok(f.e.MkQuantifier(f.c, true, 0, nil,
		[]engine.Sort{f.int, f.int, f.int}, []engine.Symbol{n0, n1, n0}, f.ok(f.e.MkLt(f.c, v1, v0))))
	r, s := f.check(three)
	if r != engine.LUndef {
		t.Fatalf("expected unknown, got %v", r)
	}
	if reason := f.e.SolverReasonUnknown(f.c, s); reason != "quantifier grounding limit" {
		t.Fatalf("expected grounding limit, got %q", reason)
	}
}

func TestOptimize(t *testing.T) {
	f := newFixture(t, nil)
	x := f.konst("x")
	o, err := f.e.MkOptimize(f.c)
	if err != nil {
		t.Fatalf("MkOptimize: %v", err)
	}
	f.e.OptimizeIncRef(f.c, o)
	defer f.e.OptimizeDecRef(f.c, o)
	// x*x <= 20 with wrap-around products kept in check by -5 <= x <= 5
	sq := f.ok(f.e.MkMul(f.c, []engine.AST{x, x}))
	for _, a := range []engine.AST{
		f.ok(f.e.MkLe(f.c, sq, f.num(20))),
		f.ok(f.e.MkGe(f.c, x, f.num(-5))),
		f.ok(f.e.MkLe(f.c, x, f.num(5))),
	} {
		if err := f.e.OptimizeAssert(f.c, o, a); err != nil {
			t.Fatalf("OptimizeAssert: %v", err)
		}
	}
	if _, err := f.e.OptimizeMinimize(f.c, o, x); err != nil {
		t.Fatalf("OptimizeMinimize: %v", err)
	}
	if r := f.e.OptimizeCheck(f.c, o); r != engine.LTrue {
		t.Fatalf("expected sat, got %v", r)
	}
	m, err := f.e.OptimizeModel(f.c, o)
	if err != nil {
		t.Fatalf("OptimizeModel: %v", err)
	}
	f.e.ModelIncRef(f.c, m)
	defer f.e.ModelDecRef(f.c, m)
	v, _ := f.e.ModelEval(f.c, m, x, true)
	if n, _ := f.e.NumeralInt64(f.c, v); n != -4 {
		t.Fatalf("expected x = -4, got %d", n)
	}
}
