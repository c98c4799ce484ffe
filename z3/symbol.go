package z3

import "github.com/vhavlena/z3safe/engine"

// Symbol names sorts, constants, functions and bound variables. Engine
// symbols are interned and never freed, so a Symbol holds no engine
// reference; it is still tied to its Environment.
type Symbol struct {
	env *Environment
	raw engine.Symbol
}

// IntSymbol returns the integer symbol i.
func (env *Environment) IntSymbol(i int) (*Symbol, error) {
	return env.symbol("MkIntSymbol", func(eng engine.Engine, c engine.Context) (engine.Symbol, error) {
		return eng.MkIntSymbol(c, i)
	})
}

// StringSymbol returns the symbol spelled s.
func (env *Environment) StringSymbol(s string) (*Symbol, error) {
	return env.symbol("MkStringSymbol", func(eng engine.Engine, c engine.Context) (engine.Symbol, error) {
		return eng.MkStringSymbol(c, s)
	})
}

func (env *Environment) symbol(op string, mk func(engine.Engine, engine.Context) (engine.Symbol, error)) (*Symbol, error) {
	a := env.a
	return use(a, func() (*Symbol, error) {
		h, err := withLockErr(func() (engine.Symbol, error) { return mk(a.eng, a.ctx) })
		if err != nil {
			return nil, &EngineError{Op: op, Err: err}
		}
		if h == 0 {
			return nil, ErrInvalidHandle
		}
		return &Symbol{env: env, raw: h}, nil
	})
}

// usable reports whether s can be passed to an engine call on a. a.mu must
// be held.
func (s *Symbol) usable(a *arena) error {
	if s == nil || s.raw == 0 {
		return ErrInvalidHandle
	}
	if s.env.a != a {
		return ErrForeignEnvironment
	}
	return nil
}

// String returns the symbol's name; integer symbols print as "#<n>".
func (s *Symbol) String() string {
	if s == nil {
		return "<nil>"
	}
	a := s.env.a
	str, err := use(a, func() (string, error) {
		return withLock(func() string { return a.eng.SymbolString(a.ctx, s.raw) }), nil
	})
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return str
}

// Equal reports whether s and o are the same symbol.
func (s *Symbol) Equal(o *Symbol) bool {
	return s != nil && o != nil && s.env.a == o.env.a && s.raw == o.raw
}
