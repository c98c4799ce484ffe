package z3

import (
	"runtime"

	"github.com/vhavlena/z3safe/engine"
)

// Model is an assignment produced by a satisfiable check.
type Model struct{ wrapper }

func newModel(env *Environment, r *ref) *Model {
	m := &Model{wrapper{r, env}}
	runtime.SetFinalizer(m, (*Model).Close)
	return m
}

func (m *Model) base() *ref {
	if m == nil {
		return nil
	}
	return m.ref
}

// Eval evaluates t in the model. With completion, symbols the model leaves
// open are given default values; without it they stay symbolic.
func (m *Model) Eval(t *Term, completion bool) (*Term, error) {
	r := m.base()
	if r == nil {
		return nil, ErrInvalidHandle
	}
	a := r.a
	v, err := use(a, func() (*Term, error) {
		if err := a.check(r, t.base()); err != nil {
			return nil, err
		}
		nr, err := a.acquire(kindTerm, "ModelEval", func() (uintptr, error) {
			h, ok := a.eng.ModelEval(a.ctx, engine.Model(r.raw), engine.AST(t.raw), completion)
			if !ok {
				return 0, engine.ErrInvalidArgument
			}
			return uintptr(h), nil
		})
		if err != nil {
			return nil, err
		}
		return newTerm(m.env, nr), nil
	})
	runtime.KeepAlive(m)
	runtime.KeepAlive(t)
	return v, err
}

// String renders the model's interpretations.
func (m *Model) String() string {
	r := m.base()
	if r == nil {
		return "<nil>"
	}
	a := r.a
	s, err := use(a, func() (string, error) {
		if err := a.check(r); err != nil {
			return "", err
		}
		return withLock(func() string { return a.eng.ModelString(a.ctx, engine.Model(r.raw)) }), nil
	})
	runtime.KeepAlive(m)
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return s
}
