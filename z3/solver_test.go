package z3

import (
	"errors"
	"strings"
	"testing"

	"github.com/vhavlena/z3safe/engine"
	"github.com/vhavlena/z3safe/engine/bounded"
)

func TestSuccessorFunction(t *testing.T) {
	env, _ := newEnv(t, nil)
	intSort := must(t, of(env.IntSort()))
	name := must(t, of(env.StringSymbol("f")))
	f := must(t, of(env.DeclareFunc(name, []*Sort{intSort}, intSort)))
	x := must(t, of(env.Const("x", intSort)))
	fx := must(t, of(f.Apply(x)))
	one := must(t, of(env.IntVal(1)))
	three := must(t, of(env.IntVal(3)))

	s := must(t, of(env.NewSolver()))
	if err := s.Assert(must(t, of(env.Eq(fx, must(t, of(env.Add(x, one))))))); err != nil {
		t.Fatalf("assert: %v", err)
	}
	if err := s.Assert(must(t, of(env.Eq(x, three)))); err != nil {
		t.Fatalf("assert: %v", err)
	}
	if o := must(t, of(s.Check())); o != Satisfiable {
		t.Fatalf("expected sat, got %v", o)
	}
	m := must(t, of(s.Model()))

	xv, ok := must(t, of(m.Eval(x, true))).Int64()
	if !ok || xv != 3 {
		t.Fatalf("expected x = 3, got %d (ok=%v)", xv, ok)
	}
	fv, ok := must(t, of(m.Eval(fx, true))).Int64()
	if !ok || fv != 4 {
		t.Fatalf("expected f(x) = 4, got %d (ok=%v)", fv, ok)
	}
	holds, ok := must(t, of(m.Eval(must(t, of(env.Gt(fx, x))), true))).Bool()
	if !ok || !holds {
		t.Fatalf("expected f(x) > x to hold in the model")
	}
	if str := m.String(); !strings.Contains(str, "x -> 3") || !strings.Contains(str, "f -> {") {
		t.Fatalf("unexpected model rendering:\n%s", str)
	}
}

func TestEvalWithoutCompletion(t *testing.T) {
	env, _ := newEnv(t, nil)
	intSort := must(t, of(env.IntSort()))
	x := must(t, of(env.Const("x", intSort)))
	z := must(t, of(env.Const("z", intSort)))
	s := must(t, of(env.NewSolver()))
	if err := s.Assert(must(t, of(env.Eq(x, must(t, of(env.IntVal(5))))))); err != nil {
		t.Fatalf("assert: %v", err)
	}
	if o := must(t, of(s.Check())); o != Satisfiable {
		t.Fatalf("expected sat, got %v", o)
	}
	m := must(t, of(s.Model()))
	if got := must(t, of(m.Eval(z, false))); !got.Equal(z) {
		t.Fatalf("expected z to stay symbolic, got %s", got)
	}
	if v, ok := must(t, of(m.Eval(z, true))).Int64(); !ok || v != 0 {
		t.Fatalf("expected completion to pick 0, got %d (ok=%v)", v, ok)
	}
	if _, err := m.Eval(unevaluable(t, env), true); !errors.Is(err, engine.ErrInvalidArgument) {
		t.Fatalf("expected evaluation of a bound variable to fail, got %v", err)
	}
}

// unevaluable returns a term the model cannot evaluate.
func unevaluable(t *testing.T, env *Environment) *Term {
	t.Helper()
	return must(t, of(env.Bound(0, must(t, of(env.IntSort())))))
}

func TestContradiction(t *testing.T) {
	env, _ := newEnv(t, nil)
	intSort := must(t, of(env.IntSort()))
	x := must(t, of(env.Const("x", intSort)))
	s := must(t, of(env.NewSolver()))
	for _, v := range []int64{1, 2} {
		if err := s.Assert(must(t, of(env.Eq(x, must(t, of(env.IntVal(v))))))); err != nil {
			t.Fatalf("assert: %v", err)
		}
	}
	if o := must(t, of(s.Check())); o != Unsatisfiable {
		t.Fatalf("expected unsat, got %v", o)
	}
	if _, err := s.Model(); !errors.Is(err, ErrNoModel) {
		t.Fatalf("expected ErrNoModel, got %v", err)
	}
	if ok := must(t, of(s.IsSatisfiable())); ok {
		t.Fatalf("expected IsSatisfiable to be false")
	}
}

func TestIntValOutOfRange(t *testing.T) {
	env, eng := newEnv(t, Options{bounded.ParamWidth: "6"})
	before, live := stats(eng), env.Live()
	for _, v := range []int64{100, -33, 32} {
		_, err := env.IntVal(v)
		var ee *EngineError
		if !errors.As(err, &ee) || ee.Op != "MkInt64" || !errors.Is(err, engine.ErrInvalidArgument) {
			t.Fatalf("expected MkInt64 to reject %d, got %v", v, err)
		}
	}
	if after := stats(eng); after != before || env.Live() != live {
		t.Fatalf("expected no references taken, got %+v (was %+v), live %d", after, before, env.Live())
	}
	if v, ok := must(t, of(env.IntVal(-32))).Int64(); !ok || v != -32 {
		t.Fatalf("expected -32 to be accepted, got %d (ok=%v)", v, ok)
	}
}

func TestPushPop(t *testing.T) {
	env, _ := newEnv(t, nil)
	intSort := must(t, of(env.IntSort()))
	x := must(t, of(env.Const("x", intSort)))
	s := must(t, of(env.NewSolver()))
	if err := s.Assert(must(t, of(env.Eq(x, must(t, of(env.IntVal(1))))))); err != nil {
		t.Fatalf("assert: %v", err)
	}
	if err := s.Push(); err != nil {
		t.Fatalf("push: %v", err)
	}
	if n := s.NumScopes(); n != 1 {
		t.Fatalf("expected 1 scope, got %d", n)
	}
	if err := s.Assert(must(t, of(env.Eq(x, must(t, of(env.IntVal(2))))))); err != nil {
		t.Fatalf("assert: %v", err)
	}
	if o := must(t, of(s.Check())); o != Unsatisfiable {
		t.Fatalf("expected unsat inside the scope, got %v", o)
	}
	if err := s.Pop(1); err != nil {
		t.Fatalf("pop: %v", err)
	}
	if s.State() != StateAsserted || s.NumScopes() != 0 {
		t.Fatalf("expected asserted with no scopes, got %v with %d", s.State(), s.NumScopes())
	}
	if o := must(t, of(s.Check())); o != Satisfiable {
		t.Fatalf("expected sat after pop, got %v", o)
	}
	if v, ok := must(t, of(must(t, of(s.Model())).Eval(x, true))).Int64(); !ok || v != 1 {
		t.Fatalf("expected x = 1, got %d (ok=%v)", v, ok)
	}
	if err := s.Pop(1); !errors.Is(err, engine.ErrInvalidArgument) {
		t.Fatalf("expected popping a missing scope to fail, got %v", err)
	}
	if s.State() != StateChecked {
		t.Fatalf("expected a failed pop to keep the state, got %v", s.State())
	}
}

func TestSolverStates(t *testing.T) {
	env, _ := newEnv(t, nil)
	s := must(t, of(env.NewSolver()))
	if s.State() != StateEmpty {
		t.Fatalf("expected empty, got %v", s.State())
	}
	if _, err := s.Model(); !errors.Is(err, ErrNoModel) {
		t.Fatalf("expected ErrNoModel before check, got %v", err)
	}
	tru := must(t, of(env.BoolVal(true)))
	if err := s.Assert(tru); err != nil {
		t.Fatalf("assert: %v", err)
	}
	if s.State() != StateAsserted {
		t.Fatalf("expected asserted, got %v", s.State())
	}
	if o := must(t, of(s.Check())); o != Satisfiable {
		t.Fatalf("expected sat, got %v", o)
	}
	if s.State() != StateChecked {
		t.Fatalf("expected checked, got %v", s.State())
	}
	must(t, of(s.Model())).Close()

	if err := s.Assert(tru); err != nil {
		t.Fatalf("assert: %v", err)
	}
	if s.State() != StateAsserted {
		t.Fatalf("expected asserted again, got %v", s.State())
	}
	if _, err := s.Model(); !errors.Is(err, ErrNoModel) {
		t.Fatalf("expected ErrNoModel after a new assertion, got %v", err)
	}

	intSort := must(t, of(env.IntSort()))
	x := must(t, of(env.Const("x", intSort)))
	err := s.Assert(x)
	var ee *EngineError
	if !errors.As(err, &ee) || ee.Op != "SolverAssert" {
		t.Fatalf("expected SolverAssert engine error for a non-Boolean assertion, got %v", err)
	}
}

func TestUnknownOutcome(t *testing.T) {
	env, _ := newEnv(t, Options{bounded.ParamMaxInstances: "8"})
	intSort := must(t, of(env.IntSort()))
	v := must(t, of(env.Bound(0, intSort)))
	n := must(t, of(env.StringSymbol("v")))
	all := must(t, of(env.Forall([]*Sort{intSort}, []*Symbol{n}, nil, must(t, of(env.Eq(v, v))))))

	s := must(t, of(env.NewSolver()))
	if err := s.Assert(all); err != nil {
		t.Fatalf("assert: %v", err)
	}
	if o := must(t, of(s.Check())); o != Unknown {
		t.Fatalf("expected unknown, got %v", o)
	}
	if r := s.ReasonUnknown(); r != "quantifier grounding limit" {
		t.Fatalf("expected grounding limit reason, got %q", r)
	}
	if _, err := s.Model(); !errors.Is(err, ErrNoModel) {
		t.Fatalf("expected ErrNoModel, got %v", err)
	}
}

func TestQuantifiers(t *testing.T) {
	env, _ := newEnv(t, Options{bounded.ParamWidth: "3"})
	intSort := must(t, of(env.IntSort()))
	x := must(t, of(env.Const("x", intSort)))
	v := must(t, of(env.Bound(0, intSort)))
	n := must(t, of(env.StringSymbol("v")))

	// x is the smallest value: forall v. x <= v
	least := must(t, of(env.Forall([]*Sort{intSort}, []*Symbol{n}, nil, must(t, of(env.Le(x, v))))))
	s := must(t, of(env.NewSolver()))
	if err := s.Assert(least); err != nil {
		t.Fatalf("assert: %v", err)
	}
	if o := must(t, of(s.Check())); o != Satisfiable {
		t.Fatalf("expected sat, got %v", o)
	}
	got, ok := must(t, of(must(t, of(s.Model())).Eval(x, true))).Int64()
	if !ok || got != -4 {
		t.Fatalf("expected x = -4 at width 3, got %d (ok=%v)", got, ok)
	}

	// no value exceeds every value
	big := must(t, of(env.Exists([]*Sort{intSort}, []*Symbol{n}, nil,
		must(t, of(env.Gt(v, must(t, of(env.IntVal(3)))))))))
	s2 := must(t, of(env.NewSolver()))
	if err := s2.Assert(big); err != nil {
		t.Fatalf("assert: %v", err)
	}
	if o := must(t, of(s2.Check())); o != Unsatisfiable {
		t.Fatalf("expected unsat, got %v", o)
	}
}

// brokenEngine answers checks with a value outside the tri-state range.
type brokenEngine struct{ *bounded.Engine }

func (brokenEngine) SolverCheck(engine.Context, engine.Solver) engine.LBool { return 2 }

func TestInvalidCheckResultPanics(t *testing.T) {
	env, err := NewEnvironment(brokenEngine{bounded.New()}, nil)
	if err != nil {
		t.Fatalf("NewEnvironment: %v", err)
	}
	defer env.Close()
	s := must(t, of(env.NewSolver()))

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("expected a panic on an out-of-range check result")
			}
		}()
		s.Check()
	}()

	// Locks were released on the way out.
	if _, err := env.BoolSort(); err != nil {
		t.Fatalf("expected environment to stay usable, got %v", err)
	}
}

func TestOptimizer(t *testing.T) {
	env, _ := newEnv(t, nil)
	intSort := must(t, of(env.IntSort()))
	x := must(t, of(env.Const("x", intSort)))
	y := must(t, of(env.Const("y", intSort)))

	o := must(t, of(env.NewOptimizer()))
	for _, c := range []*Term{
		must(t, of(env.Ge(x, must(t, of(env.IntVal(0)))))),
		must(t, of(env.Le(x, must(t, of(env.IntVal(10)))))),
		must(t, of(env.Ge(y, must(t, of(env.IntVal(-5)))))),
		must(t, of(env.Le(y, x))),
	} {
		if err := o.Assert(c); err != nil {
			t.Fatalf("assert: %v", err)
		}
	}
	if _, err := o.Model(); !errors.Is(err, ErrNoModel) {
		t.Fatalf("expected ErrNoModel before check, got %v", err)
	}
	if i := must(t, of(o.Maximize(x))); i != 0 {
		t.Fatalf("expected objective 0, got %d", i)
	}
	if i := must(t, of(o.Minimize(y))); i != 1 {
		t.Fatalf("expected objective 1, got %d", i)
	}
	if r := must(t, of(o.Check())); r != Satisfiable {
		t.Fatalf("expected sat, got %v", r)
	}
	if o.State() != StateChecked {
		t.Fatalf("expected checked, got %v", o.State())
	}
	m := must(t, of(o.Model()))
	if v, ok := must(t, of(m.Eval(x, true))).Int64(); !ok || v != 10 {
		t.Fatalf("expected max x = 10, got %d (ok=%v)", v, ok)
	}
	if v, ok := must(t, of(m.Eval(y, true))).Int64(); !ok || v != -5 {
		t.Fatalf("expected min y = -5, got %d (ok=%v)", v, ok)
	}

	tru := must(t, of(env.BoolVal(true)))
	if _, err := o.Maximize(tru); err == nil {
		t.Fatalf("expected a Boolean objective to be rejected")
	}
}

func TestOutcomeStrings(t *testing.T) {
	for o, want := range map[Outcome]string{Unsatisfiable: "unsat", Unknown: "unknown", Satisfiable: "sat"} {
		if o.String() != want {
			t.Fatalf("expected %s, got %s", want, o)
		}
	}
	if int(Unsatisfiable) != -1 || int(Unknown) != 0 || int(Satisfiable) != 1 {
		t.Fatalf("unexpected outcome encoding")
	}
}
