package z3

import (
	"runtime"

	"github.com/vhavlena/z3safe/engine"
)

// Term is a formula or expression.
type Term struct{ wrapper }

func (t *Term) base() *ref {
	if t == nil {
		return nil
	}
	return t.ref
}

// Hash returns the engine's structural hash of the term.
func (t *Term) Hash() uint32 { return t.base().hash() }

// Equal reports whether the engine considers t and o the same term.
func (t *Term) Equal(o *Term) bool { return t.base().equal(o.base()) }

// String returns an SMT-LIB-like rendering of the term.
func (t *Term) String() string { return t.base().text() }

type (
	mkUnary  func(engine.Context, engine.AST) (engine.AST, error)
	mkBinary func(engine.Context, engine.AST, engine.AST) (engine.AST, error)
	mkNary   func(engine.Context, []engine.AST) (engine.AST, error)
)

// build creates a term from operands. mk runs under the gate with the raw
// operand handles.
func (env *Environment) build(op string, operands []*Term, mk func([]engine.AST) (engine.AST, error)) (*Term, error) {
	a := env.a
	t, err := use(a, func() (*Term, error) {
		if err := a.check(refs(operands)...); err != nil {
			return nil, err
		}
		raws := make([]engine.AST, len(operands))
		for i, o := range operands {
			raws[i] = engine.AST(o.raw)
		}
		r, err := a.acquire(kindTerm, op, func() (uintptr, error) {
			h, err := mk(raws)
			return uintptr(h), err
		})
		if err != nil {
			return nil, err
		}
		return newTerm(env, r), nil
	})
	runtime.KeepAlive(operands)
	return t, err
}

func (env *Environment) unary(op string, mk mkUnary, x *Term) (*Term, error) {
	return env.build(op, []*Term{x}, func(h []engine.AST) (engine.AST, error) {
		return mk(env.a.ctx, h[0])
	})
}

func (env *Environment) binary(op string, mk mkBinary, x, y *Term) (*Term, error) {
	return env.build(op, []*Term{x, y}, func(h []engine.AST) (engine.AST, error) {
		return mk(env.a.ctx, h[0], h[1])
	})
}

func (env *Environment) nary(op string, mk mkNary, args []*Term) (*Term, error) {
	return env.build(op, args, func(h []engine.AST) (engine.AST, error) {
		return mk(env.a.ctx, h)
	})
}

// Const creates a constant called name of sort s.
func (env *Environment) Const(name string, s *Sort) (*Term, error) {
	a := env.a
	t, err := use(a, func() (*Term, error) {
		if err := a.check(s.base()); err != nil {
			return nil, err
		}
		r, err := a.acquire(kindTerm, "MkConst", func() (uintptr, error) {
			sym, err := a.eng.MkStringSymbol(a.ctx, name)
			if err != nil {
				return 0, err
			}
			h, err := a.eng.MkConst(a.ctx, sym, engine.Sort(s.raw))
			return uintptr(h), err
		})
		if err != nil {
			return nil, err
		}
		return newTerm(env, r), nil
	})
	runtime.KeepAlive(s)
	return t, err
}

// IntVal creates an integer numeral.
func (env *Environment) IntVal(v int64) (*Term, error) {
	return env.build("MkInt64", nil, func([]engine.AST) (engine.AST, error) {
		a := env.a
		s, err := a.eng.MkIntSort(a.ctx)
		if err != nil {
			return 0, err
		}
		return a.eng.MkInt64(a.ctx, v, s)
	})
}

// BoolVal creates true or false.
func (env *Environment) BoolVal(b bool) (*Term, error) {
	return env.build("MkBool", nil, func([]engine.AST) (engine.AST, error) {
		if b {
			return env.a.eng.MkTrue(env.a.ctx)
		}
		return env.a.eng.MkFalse(env.a.ctx)
	})
}

// Bound creates the bound variable with de Bruijn index i: inside a
// quantifier, index 0 is the innermost, last-declared variable.
func (env *Environment) Bound(i int, s *Sort) (*Term, error) {
	a := env.a
	t, err := use(a, func() (*Term, error) {
		if err := a.check(s.base()); err != nil {
			return nil, err
		}
		r, err := a.acquire(kindTerm, "MkBound", func() (uintptr, error) {
			h, err := a.eng.MkBound(a.ctx, i, engine.Sort(s.raw))
			return uintptr(h), err
		})
		if err != nil {
			return nil, err
		}
		return newTerm(env, r), nil
	})
	runtime.KeepAlive(s)
	return t, err
}

// Eq builds x = y.
func (env *Environment) Eq(x, y *Term) (*Term, error) { return env.binary("MkEq", env.a.eng.MkEq, x, y) }

// Not returns the logical negation of x.
func (env *Environment) Not(x *Term) (*Term, error) { return env.unary("MkNot", env.a.eng.MkNot, x) }

// And builds a conjunction; with no arguments it is true.
func (env *Environment) And(args ...*Term) (*Term, error) { return env.nary("MkAnd", env.a.eng.MkAnd, args) }

// Or builds a disjunction; with no arguments it is false.
func (env *Environment) Or(args ...*Term) (*Term, error) { return env.nary("MkOr", env.a.eng.MkOr, args) }

// Implies builds x => y.
func (env *Environment) Implies(x, y *Term) (*Term, error) {
	return env.binary("MkImplies", env.a.eng.MkImplies, x, y)
}

// Ite builds an if-then-else over c, t, and e.
func (env *Environment) Ite(c, t, e *Term) (*Term, error) {
	return env.build("MkIte", []*Term{c, t, e}, func(h []engine.AST) (engine.AST, error) {
		return env.a.eng.MkIte(env.a.ctx, h[0], h[1], h[2])
	})
}

// Distinct enforces that all arguments take pairwise different values.
func (env *Environment) Distinct(args ...*Term) (*Term, error) {
	return env.nary("MkDistinct", env.a.eng.MkDistinct, args)
}

// Add sums its arguments.
func (env *Environment) Add(args ...*Term) (*Term, error) { return env.nary("MkAdd", env.a.eng.MkAdd, args) }

// Sub subtracts the remaining arguments from the first; with one argument
// it negates.
func (env *Environment) Sub(args ...*Term) (*Term, error) { return env.nary("MkSub", env.a.eng.MkSub, args) }

// Mul multiplies its arguments.
func (env *Environment) Mul(args ...*Term) (*Term, error) { return env.nary("MkMul", env.a.eng.MkMul, args) }

// Lt builds x < y.
func (env *Environment) Lt(x, y *Term) (*Term, error) { return env.binary("MkLt", env.a.eng.MkLt, x, y) }

// Le builds x <= y.
func (env *Environment) Le(x, y *Term) (*Term, error) { return env.binary("MkLe", env.a.eng.MkLe, x, y) }

// Gt builds x > y.
func (env *Environment) Gt(x, y *Term) (*Term, error) { return env.binary("MkGt", env.a.eng.MkGt, x, y) }

// Ge builds x >= y.
func (env *Environment) Ge(x, y *Term) (*Term, error) { return env.binary("MkGe", env.a.eng.MkGe, x, y) }

// Forall quantifies body over len(sorts) variables. Inside body the variable
// declared last has index 0 (see Bound).
func (env *Environment) Forall(sorts []*Sort, names []*Symbol, patterns []*Pattern, body *Term) (*Term, error) {
	return env.quantifier(true, sorts, names, patterns, body)
}

// Exists is the existential counterpart of Forall.
func (env *Environment) Exists(sorts []*Sort, names []*Symbol, patterns []*Pattern, body *Term) (*Term, error) {
	return env.quantifier(false, sorts, names, patterns, body)
}

func (env *Environment) quantifier(forall bool, sorts []*Sort, names []*Symbol, patterns []*Pattern, body *Term) (*Term, error) {
	a := env.a
	t, err := use(a, func() (*Term, error) {
		ss, err := sortHandles(a, sorts)
		if err != nil {
			return nil, err
		}
		ns := make([]engine.Symbol, len(names))
		for i, n := range names {
			if err := n.usable(a); err != nil {
				return nil, err
			}
			ns[i] = n.raw
		}
		if err := a.check(refs(patterns)...); err != nil {
			return nil, err
		}
		ps := make([]engine.Pattern, len(patterns))
		for i, p := range patterns {
			ps[i] = engine.Pattern(p.raw)
		}
		if err := a.check(body.base()); err != nil {
			return nil, err
		}
		r, err := a.acquire(kindTerm, "MkQuantifier", func() (uintptr, error) {
			h, err := a.eng.MkQuantifier(a.ctx, forall, 0, ps, ss, ns, engine.AST(body.raw))
			return uintptr(h), err
		})
		if err != nil {
			return nil, err
		}
		return newTerm(env, r), nil
	})
	runtime.KeepAlive(sorts)
	runtime.KeepAlive(patterns)
	runtime.KeepAlive(body)
	return t, err
}
