package z3

import (
	"runtime"

	"github.com/vhavlena/z3safe/engine"
)

// Optimizer is a solver that also optimizes integer objectives. Objectives
// are optimized in the order they were added, lexicographically.
type Optimizer struct{ session }

// NewOptimizer creates an empty optimizer.
func (env *Environment) NewOptimizer() (*Optimizer, error) {
	a := env.a
	return use(a, func() (*Optimizer, error) {
		r, err := a.acquire(kindOptimizer, "MkOptimize", func() (uintptr, error) {
			h, err := a.eng.MkOptimize(a.ctx)
			return uintptr(h), err
		})
		if err != nil {
			return nil, err
		}
		o := &Optimizer{session{wrapper: wrapper{r, env}}}
		runtime.SetFinalizer(o, (*Optimizer).Close)
		return o, nil
	})
}

// Assert adds a hard constraint.
func (o *Optimizer) Assert(t *Term) error {
	return o.assert("OptimizeAssert", t, func(eng engine.Engine, c engine.Context, h engine.AST) error {
		return eng.OptimizeAssert(c, engine.Optimize(o.raw), h)
	})
}

// Maximize adds an objective and returns its index.
func (o *Optimizer) Maximize(t *Term) (int, error) {
	return o.objective("OptimizeMaximize", t, func(eng engine.Engine, c engine.Context, h engine.AST) (int, error) {
		return eng.OptimizeMaximize(c, engine.Optimize(o.raw), h)
	})
}

// Minimize adds an objective and returns its index.
func (o *Optimizer) Minimize(t *Term) (int, error) {
	return o.objective("OptimizeMinimize", t, func(eng engine.Engine, c engine.Context, h engine.AST) (int, error) {
		return eng.OptimizeMinimize(c, engine.Optimize(o.raw), h)
	})
}

func (o *Optimizer) objective(op string, t *Term, add func(engine.Engine, engine.Context, engine.AST) (int, error)) (int, error) {
	i, err := enter(&o.session, func(a *arena) (int, error) {
		if err := a.check(t.base()); err != nil {
			return 0, err
		}
		i, err := withLockErr(func() (int, error) { return add(a.eng, a.ctx, engine.AST(t.raw)) })
		if err != nil {
			return 0, &EngineError{Op: op, Err: err}
		}
		o.state = StateAsserted
		return i, nil
	})
	runtime.KeepAlive(t)
	return i, err
}

// Check decides the hard constraints and, when they are satisfiable, drives
// every objective to its optimum.
func (o *Optimizer) Check() (Outcome, error) {
	return o.check(func(eng engine.Engine, c engine.Context) engine.LBool {
		return eng.OptimizeCheck(c, engine.Optimize(o.raw))
	})
}

// Model returns the optimal model found by the last Satisfiable check.
func (o *Optimizer) Model() (*Model, error) {
	return o.model("OptimizeModel", func(eng engine.Engine, c engine.Context) (engine.Model, error) {
		return eng.OptimizeModel(c, engine.Optimize(o.raw))
	})
}
