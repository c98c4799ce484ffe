package z3

import "github.com/vhavlena/z3safe/engine"

// Sort is the type of a term.
type Sort struct{ wrapper }

func (s *Sort) base() *ref {
	if s == nil {
		return nil
	}
	return s.ref
}

// Hash returns the engine's structural hash of the sort.
func (s *Sort) Hash() uint32 { return s.base().hash() }

// Equal reports whether the engine considers s and o the same sort.
func (s *Sort) Equal(o *Sort) bool { return s.base().equal(o.base()) }

func (s *Sort) String() string { return s.base().text() }

// BoolSort returns the Boolean sort.
func (env *Environment) BoolSort() (*Sort, error) {
	return env.sort("MkBoolSort", nil, func(eng engine.Engine, c engine.Context) (engine.Sort, error) {
		return eng.MkBoolSort(c)
	})
}

// IntSort returns the integer sort.
func (env *Environment) IntSort() (*Sort, error) {
	return env.sort("MkIntSort", nil, func(eng engine.Engine, c engine.Context) (engine.Sort, error) {
		return eng.MkIntSort(c)
	})
}

// UninterpretedSort returns the uninterpreted sort called name.
func (env *Environment) UninterpretedSort(name *Symbol) (*Sort, error) {
	return env.sort("MkUninterpretedSort", []*Symbol{name}, func(eng engine.Engine, c engine.Context) (engine.Sort, error) {
		return eng.MkUninterpretedSort(c, name.raw)
	})
}

func (env *Environment) sort(op string, syms []*Symbol, mk func(engine.Engine, engine.Context) (engine.Sort, error)) (*Sort, error) {
	a := env.a
	return use(a, func() (*Sort, error) {
		for _, s := range syms {
			if err := s.usable(a); err != nil {
				return nil, err
			}
		}
		r, err := a.acquire(kindSort, op, func() (uintptr, error) {
			h, err := mk(a.eng, a.ctx)
			return uintptr(h), err
		})
		if err != nil {
			return nil, err
		}
		return newSort(env, r), nil
	})
}

// sortOf wraps the sort returned by get. a.mu must be held.
func (env *Environment) sortOf(op string, get func(engine.Engine, engine.Context) engine.Sort) (*Sort, error) {
	a := env.a
	r, err := a.query(kindSort, op, func() uintptr { return uintptr(get(a.eng, a.ctx)) })
	if err != nil {
		return nil, err
	}
	return newSort(env, r), nil
}

func sortHandles(a *arena, sorts []*Sort) ([]engine.Sort, error) {
	if err := a.check(refs(sorts)...); err != nil {
		return nil, err
	}
	out := make([]engine.Sort, len(sorts))
	for i, s := range sorts {
		out[i] = engine.Sort(s.raw)
	}
	return out, nil
}
