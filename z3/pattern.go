package z3

import (
	"runtime"

	"github.com/vhavlena/z3safe/engine"
)

// Pattern is a multi-pattern guiding quantifier instantiation.
type Pattern struct{ wrapper }

func (p *Pattern) base() *ref {
	if p == nil {
		return nil
	}
	return p.ref
}

// Hash returns the engine's structural hash of the pattern.
func (p *Pattern) Hash() uint32 { return p.base().hash() }

// Equal reports whether the engine considers p and o the same pattern.
func (p *Pattern) Equal(o *Pattern) bool { return p.base().equal(o.base()) }

func (p *Pattern) String() string { return p.base().text() }

// NewPattern groups application terms into one multi-pattern.
func (env *Environment) NewPattern(terms ...*Term) (*Pattern, error) {
	a := env.a
	p, err := use(a, func() (*Pattern, error) {
		if err := a.check(refs(terms)...); err != nil {
			return nil, err
		}
		raws := make([]engine.AST, len(terms))
		for i, t := range terms {
			raws[i] = engine.AST(t.raw)
		}
		r, err := a.acquire(kindPattern, "MkPattern", func() (uintptr, error) {
			h, err := a.eng.MkPattern(a.ctx, raws)
			return uintptr(h), err
		})
		if err != nil {
			return nil, err
		}
		return newPattern(env, r), nil
	})
	runtime.KeepAlive(terms)
	return p, err
}
