package z3

import (
	"errors"
	"runtime"
	"strings"
	"testing"

	"github.com/vhavlena/z3safe/engine"
	"github.com/vhavlena/z3safe/engine/bounded"
)

func TestDeclarationQueries(t *testing.T) {
	env, _ := newEnv(t, nil)
	intSort := must(t, of(env.IntSort()))
	boolSort := must(t, of(env.BoolSort()))
	name := must(t, of(env.StringSymbol("p")))
	p := must(t, of(env.DeclareFunc(name, []*Sort{intSort, boolSort}, boolSort)))

	if p.Name() != "p" {
		t.Fatalf("expected name p, got %s", p.Name())
	}
	if p.Kind() != DeclOpUninterpreted {
		t.Fatalf("expected uninterpreted, got %v", p.Kind())
	}
	if p.DomainSize() != 2 {
		t.Fatalf("expected arity 2, got %d", p.DomainSize())
	}
	if d := must(t, of(p.Domain(1))); !d.Equal(boolSort) {
		t.Fatalf("expected Bool at position 1, got %s", d)
	}
	if r := must(t, of(p.Range())); !r.Equal(boolSort) {
		t.Fatalf("expected Bool range, got %s", r)
	}
	_, err := p.Domain(2)
	var ae *ArityError
	if !errors.As(err, &ae) || ae.Index != 2 || ae.Arity != 2 {
		t.Fatalf("expected ArityError{2, 2}, got %v", err)
	}

	fresh := must(t, of(env.DeclareFreshFunc("p", nil, intSort)))
	if !strings.HasPrefix(fresh.Name(), "p") || fresh.Name() == "p" {
		t.Fatalf("expected a fresh name derived from p, got %s", fresh.Name())
	}
}

func TestApplyReportsEngineErrors(t *testing.T) {
	env, _ := newEnv(t, nil)
	intSort := must(t, of(env.IntSort()))
	name := must(t, of(env.StringSymbol("f")))
	f := must(t, of(env.DeclareFunc(name, []*Sort{intSort}, intSort)))
	tru := must(t, of(env.BoolVal(true)))

	for _, args := range [][]*Term{nil, {tru}} {
		_, err := f.Apply(args...)
		var ee *EngineError
		if !errors.As(err, &ee) || ee.Op != "MkApp" {
			t.Fatalf("expected MkApp engine error for %d args, got %v", len(args), err)
		}
		if !errors.Is(err, engine.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	}
	if env.Live() != 3 {
		t.Fatalf("failed applications must not leave handles behind, got %d live", env.Live())
	}
}

func TestInjectiveAxiomShape(t *testing.T) {
	env, _ := newEnv(t, nil)
	intSort := must(t, of(env.IntSort()))
	u := must(t, of(env.UninterpretedSort(must(t, of(env.StringSymbol("U"))))))
	name := must(t, of(env.StringSymbol("f")))
	f := must(t, of(env.DeclareFunc(name, []*Sort{intSort, u}, intSort)))

	for i := 0; i < 2; i++ {
		ax := must(t, of(f.InjectiveAxiom(i)))
		if ax.Kind() != ASTKindQuantifier || !ax.IsForall() {
			t.Fatalf("expected a universal quantifier, got %s", ax)
		}
		if ax.NumBound() != 2 || ax.NumPatterns() != 1 {
			t.Fatalf("expected 2 bound variables and 1 pattern, got %d and %d", ax.NumBound(), ax.NumPatterns())
		}
		for j, want := range []*Sort{intSort, u} {
			if s := must(t, of(ax.BoundSort(j))); !s.Equal(want) {
				t.Fatalf("expected bound sort %s at %d, got %s", want, j, s)
			}
			want := "#" + string(rune('0'+j))
			if n := must(t, of(ax.BoundName(j))); n.String() != want {
				t.Fatalf("expected bound name %s, got %s", want, n)
			}
		}

		body := must(t, of(ax.Body()))
		if d := must(t, of(body.Decl())); d.Kind() != DeclOpEq {
			t.Fatalf("expected an equation, got %s", body)
		}
		lhs := must(t, of(body.Arg(0)))
		inv := must(t, of(lhs.Decl()))
		if inv.Equal(f) || inv.Kind() != DeclOpUninterpreted || !strings.HasPrefix(inv.Name(), "inv") {
			t.Fatalf("expected a fresh inverse, got %s", inv)
		}
		if r := must(t, of(inv.Range())); !r.Equal(must(t, of(f.Domain(i)))) {
			t.Fatalf("expected inverse range to be the sort of position %d, got %s", i, r)
		}
		app := must(t, of(lhs.Arg(0)))
		if d := must(t, of(app.Decl())); !d.Equal(f) {
			t.Fatalf("expected f application under the inverse, got %s", app)
		}
		for j := 0; j < 2; j++ {
			if got := must(t, of(app.Arg(j))).VarIndex(); got != 1-j {
				t.Fatalf("expected argument %d to be (:var %d), got %d", j, 1-j, got)
			}
		}
		if got := must(t, of(body.Arg(1))).VarIndex(); got != 1-i {
			t.Fatalf("expected right-hand side (:var %d), got %d", 1-i, got)
		}
	}
}

func TestInjectiveAxiomArityError(t *testing.T) {
	env, eng := newEnv(t, nil)
	intSort := must(t, of(env.IntSort()))
	name := must(t, of(env.StringSymbol("f")))
	f := must(t, of(env.DeclareFunc(name, []*Sort{intSort, intSort}, intSort)))

	before, live := stats(eng), env.Live()
	for _, i := range []int{2, -1, 7} {
		ax, err := f.InjectiveAxiom(i)
		if ax != nil {
			t.Fatalf("expected no axiom for index %d", i)
		}
		var ae *ArityError
		if !errors.As(err, &ae) || ae.Index != i || ae.Arity != 2 {
			t.Fatalf("expected ArityError{%d, 2}, got %v", i, err)
		}
		if !errors.Is(err, ErrArity) {
			t.Fatalf("expected errors.Is(err, ErrArity)")
		}
	}
	if after := stats(eng); after != before {
		t.Fatalf("expected no reference traffic, before %+v after %+v", before, after)
	}
	if env.Live() != live {
		t.Fatalf("expected %d live handles, got %d", live, env.Live())
	}
	runtime.KeepAlive(f)
	runtime.KeepAlive(intSort)
}

func TestInjectiveAxiomBalancesIntermediates(t *testing.T) {
	env, eng := newEnv(t, nil)
	intSort := must(t, of(env.IntSort()))
	name := must(t, of(env.StringSymbol("f")))
	f := must(t, of(env.DeclareFunc(name, []*Sort{intSort, intSort, intSort}, intSort)))

	before := stats(eng)
	ax := must(t, of(f.InjectiveAxiom(1)))
	after := stats(eng)
	if got := after.Outstanding() - before.Outstanding(); got != 1 {
		t.Fatalf("expected the axiom to hold exactly one reference, got %d", got)
	}
	if after.Underflows != 0 || after.Invalid != 0 {
		t.Fatalf("expected clean reference traffic, got %+v", after)
	}
	ax.Close()
	if got := stats(eng).Outstanding(); got != before.Outstanding() {
		t.Fatalf("expected %d outstanding after close, got %d", before.Outstanding(), got)
	}
	runtime.KeepAlive(f)
	runtime.KeepAlive(intSort)
}

func TestInjectiveAxiomDecides(t *testing.T) {
	env, _ := newEnv(t, Options{bounded.ParamWidth: "4"})
	intSort := must(t, of(env.IntSort()))
	name := must(t, of(env.StringSymbol("f")))
	f := must(t, of(env.DeclareFunc(name, []*Sort{intSort}, intSort)))
	ax := must(t, of(f.InjectiveAxiom(0)))

	a := must(t, of(env.Const("a", intSort)))
	b := must(t, of(env.Const("b", intSort)))
	fa := must(t, of(f.Apply(a)))
	fb := must(t, of(f.Apply(b)))

	s := must(t, of(env.NewSolver()))
	for _, c := range []*Term{ax, must(t, of(env.Eq(fa, fb))), must(t, of(env.Distinct(a, b)))} {
		if err := s.Assert(c); err != nil {
			t.Fatalf("assert: %v", err)
		}
	}
	if o := must(t, of(s.Check())); o != Unsatisfiable {
		t.Fatalf("expected an injective f to separate a and b, got %v", o)
	}

	s2 := must(t, of(env.NewSolver()))
	for _, c := range []*Term{ax, must(t, of(env.Distinct(a, b)))} {
		if err := s2.Assert(c); err != nil {
			t.Fatalf("assert: %v", err)
		}
	}
	if ok := must(t, of(s2.IsSatisfiable())); !ok {
		t.Fatalf("expected sat without the collision")
	}
}
