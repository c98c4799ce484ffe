package z3

import (
	"runtime"

	"github.com/vhavlena/z3safe/engine"
)

// FuncDecl is an uninterpreted function or an interpreted operator.
type FuncDecl struct{ wrapper }

func (f *FuncDecl) base() *ref {
	if f == nil {
		return nil
	}
	return f.ref
}

// Hash returns the engine's structural hash of the declaration.
func (f *FuncDecl) Hash() uint32 { return f.base().hash() }

// Equal reports whether the engine considers f and o the same declaration.
func (f *FuncDecl) Equal(o *FuncDecl) bool { return f.base().equal(o.base()) }

func (f *FuncDecl) String() string { return f.base().text() }

// declQuery runs a read-only engine query on f.
func declQuery[T any](f *FuncDecl, q func(eng engine.Engine, c engine.Context, d engine.FuncDecl) T) (T, error) {
	r := f.base()
	if r == nil {
		var zero T
		return zero, ErrInvalidHandle
	}
	a := r.a
	v, err := use(a, func() (T, error) {
		if err := a.check(r); err != nil {
			var zero T
			return zero, err
		}
		return withLock(func() T { return q(a.eng, a.ctx, engine.FuncDecl(r.raw)) }), nil
	})
	runtime.KeepAlive(f)
	return v, err
}

// Kind returns the operator kind of f.
func (f *FuncDecl) Kind() DeclKind {
	k, err := declQuery(f, func(eng engine.Engine, c engine.Context, d engine.FuncDecl) engine.DeclKind {
		return eng.DeclKind(c, d)
	})
	if err != nil {
		return DeclOpOther
	}
	return DeclKind(k)
}

// Name returns the declared name.
func (f *FuncDecl) Name() string {
	s, err := declQuery(f, func(eng engine.Engine, c engine.Context, d engine.FuncDecl) string {
		return eng.SymbolString(c, eng.DeclName(c, d))
	})
	if err != nil {
		return ""
	}
	return s
}

// DomainSize returns the number of arguments f takes.
func (f *FuncDecl) DomainSize() int {
	n, _ := declQuery(f, func(eng engine.Engine, c engine.Context, d engine.FuncDecl) int {
		return eng.DomainSize(c, d)
	})
	return n
}

// Domain returns the sort of argument i.
func (f *FuncDecl) Domain(i int) (*Sort, error) {
	return f.sortAt("Domain", func(eng engine.Engine, c engine.Context, d engine.FuncDecl) (engine.Sort, *ArityError) {
		n := eng.DomainSize(c, d)
		if i < 0 || i >= n {
			return 0, &ArityError{Index: i, Arity: n}
		}
		return eng.Domain(c, d, i), nil
	})
}

// Range returns the result sort of f.
func (f *FuncDecl) Range() (*Sort, error) {
	return f.sortAt("Range", func(eng engine.Engine, c engine.Context, d engine.FuncDecl) (engine.Sort, *ArityError) {
		return eng.Range(c, d), nil
	})
}

func (f *FuncDecl) sortAt(op string, get func(engine.Engine, engine.Context, engine.FuncDecl) (engine.Sort, *ArityError)) (*Sort, error) {
	r := f.base()
	if r == nil {
		return nil, ErrInvalidHandle
	}
	a := r.a
	s, err := use(a, func() (*Sort, error) {
		if err := a.check(r); err != nil {
			return nil, err
		}
		var arity *ArityError
		s, err := f.env.sortOf(op, func(eng engine.Engine, c engine.Context) engine.Sort {
			h, e := get(eng, c, engine.FuncDecl(r.raw))
			arity = e
			return h
		})
		if arity != nil {
			return nil, arity
		}
		return s, err
	})
	runtime.KeepAlive(f)
	return s, err
}

// DeclareFunc declares the uninterpreted function name : domain -> rng.
func (env *Environment) DeclareFunc(name *Symbol, domain []*Sort, rng *Sort) (*FuncDecl, error) {
	return env.declare("MkFuncDecl", []*Symbol{name}, domain, rng, func(eng engine.Engine, c engine.Context, ds []engine.Sort, r engine.Sort) (engine.FuncDecl, error) {
		return eng.MkFuncDecl(c, name.raw, ds, r)
	})
}

// DeclareFreshFunc declares a function whose name starts with prefix and is
// guaranteed not to clash with any other declaration in the Environment.
func (env *Environment) DeclareFreshFunc(prefix string, domain []*Sort, rng *Sort) (*FuncDecl, error) {
	return env.declare("MkFreshFuncDecl", nil, domain, rng, func(eng engine.Engine, c engine.Context, ds []engine.Sort, r engine.Sort) (engine.FuncDecl, error) {
		return eng.MkFreshFuncDecl(c, prefix, ds, r)
	})
}

func (env *Environment) declare(op string, syms []*Symbol, domain []*Sort, rng *Sort,
	mk func(engine.Engine, engine.Context, []engine.Sort, engine.Sort) (engine.FuncDecl, error)) (*FuncDecl, error) {
	a := env.a
	f, err := use(a, func() (*FuncDecl, error) {
		for _, s := range syms {
			if err := s.usable(a); err != nil {
				return nil, err
			}
		}
		ds, err := sortHandles(a, domain)
		if err != nil {
			return nil, err
		}
		if err := a.check(rng.base()); err != nil {
			return nil, err
		}
		r, err := a.acquire(kindFuncDecl, op, func() (uintptr, error) {
			h, err := mk(a.eng, a.ctx, ds, engine.Sort(rng.raw))
			return uintptr(h), err
		})
		if err != nil {
			return nil, err
		}
		return newFuncDecl(env, r), nil
	})
	runtime.KeepAlive(domain)
	runtime.KeepAlive(rng)
	return f, err
}

// Apply builds the application f(args...). The number and sorts of args must
// match the declaration.
func (f *FuncDecl) Apply(args ...*Term) (*Term, error) {
	r := f.base()
	if r == nil {
		return nil, ErrInvalidHandle
	}
	a := r.a
	t, err := use(a, func() (*Term, error) {
		if err := a.check(r); err != nil {
			return nil, err
		}
		if err := a.check(refs(args)...); err != nil {
			return nil, err
		}
		raws := make([]engine.AST, len(args))
		for i, x := range args {
			raws[i] = engine.AST(x.raw)
		}
		nr, err := a.acquire(kindTerm, "MkApp", func() (uintptr, error) {
			h, err := a.eng.MkApp(a.ctx, engine.FuncDecl(r.raw), raws)
			return uintptr(h), err
		})
		if err != nil {
			return nil, err
		}
		return newTerm(f.env, nr), nil
	})
	runtime.KeepAlive(f)
	runtime.KeepAlive(args)
	return t, err
}

// InjectiveAxiom returns the formula stating that f is injective in argument
// i. For f : (S0, ..., Sn-1) -> R it declares a fresh inverse g : R -> Si and
// yields
//
//	forall x0:S0 ... xn-1:Sn-1. g(f(x0, ..., xn-1)) = xi
//
// with f(x0, ..., xn-1) as the only pattern. An index outside the domain
// returns an *ArityError and creates nothing.
func (f *FuncDecl) InjectiveAxiom(i int) (*Term, error) {
	r := f.base()
	if r == nil {
		return nil, ErrInvalidHandle
	}
	a := r.a
	t, err := use(a, func() (*Term, error) {
		if err := a.check(r); err != nil {
			return nil, err
		}
		q, err := withLockErr(func() (*ref, error) { return injective(a, engine.FuncDecl(r.raw), i) })
		if err != nil {
			return nil, err
		}
		a.live[q] = struct{}{}
		logger().Debug("handle acquired", "kind", q.kind, "handle", q.raw, "op", "InjectiveAxiom")
		return newTerm(f.env, q), nil
	})
	runtime.KeepAlive(f)
	return t, err
}

// injective builds the axiom inside one gate section. Every intermediate is
// held for the duration of the build and let go once the result carries its
// own reference. The gate must be held.
func injective(a *arena, d engine.FuncDecl, i int) (*ref, error) {
	eng, c := a.eng, a.ctx
	n := eng.DomainSize(c, d)
	if i < 0 || i >= n {
		return nil, &ArityError{Index: i, Arity: n}
	}

	var held []engine.AST
	hold := func(h engine.AST) {
		eng.IncRef(c, h)
		held = append(held, h)
	}
	defer func() {
		for _, h := range held {
			eng.DecRef(c, h)
		}
	}()
	fail := func(op string, err error) (*ref, error) {
		if err == nil {
			return nil, ErrInvalidHandle
		}
		return nil, &EngineError{Op: op, Err: err}
	}

	sorts := make([]engine.Sort, n)
	for j := range sorts {
		sorts[j] = eng.Domain(c, d, j)
		if sorts[j] == 0 {
			return fail("Domain", nil)
		}
	}
	rng := eng.Range(c, d)
	if rng == 0 {
		return fail("Range", nil)
	}

	inv, err := eng.MkFreshFuncDecl(c, "inv", []engine.Sort{rng}, sorts[i])
	if err != nil || inv == 0 {
		return fail("MkFreshFuncDecl", err)
	}
	hold(eng.FuncDeclToAST(c, inv))

	names := make([]engine.Symbol, n)
	vars := make([]engine.AST, n)
	for j := 0; j < n; j++ {
		if names[j], err = eng.MkIntSymbol(c, j); err != nil || names[j] == 0 {
			return fail("MkIntSymbol", err)
		}
		v, err := eng.MkBound(c, n-1-j, sorts[j])
		if err != nil || v == 0 {
			return fail("MkBound", err)
		}
		hold(v)
		vars[j] = v
	}

	app, err := eng.MkApp(c, d, vars)
	if err != nil || app == 0 {
		return fail("MkApp", err)
	}
	hold(app)
	lhs, err := eng.MkApp(c, inv, []engine.AST{app})
	if err != nil || lhs == 0 {
		return fail("MkApp", err)
	}
	hold(lhs)
	eq, err := eng.MkEq(c, lhs, vars[i])
	if err != nil || eq == 0 {
		return fail("MkEq", err)
	}
	hold(eq)
	pat, err := eng.MkPattern(c, []engine.AST{app})
	if err != nil || pat == 0 {
		return fail("MkPattern", err)
	}
	hold(eng.PatternToAST(c, pat))

	q, err := eng.MkQuantifier(c, true, 0, []engine.Pattern{pat}, sorts, names, eq)
	if err != nil || q == 0 {
		return fail("MkQuantifier", err)
	}
	out := &ref{a: a, kind: kindTerm, raw: uintptr(q)}
	out.inc()
	return out, nil
}
