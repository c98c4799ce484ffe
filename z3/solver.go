package z3

import (
	"fmt"
	"runtime"

	"github.com/vhavlena/z3safe/engine"
)

// Outcome is the result of a satisfiability check.
type Outcome int

const (
	// Unsatisfiable means the assertions have no model.
	Unsatisfiable Outcome = -1
	// Unknown means the engine gave up; see ReasonUnknown.
	Unknown Outcome = 0
	// Satisfiable means a model exists.
	Satisfiable Outcome = 1
)

func (o Outcome) String() string {
	switch o {
	case Unsatisfiable:
		return "unsat"
	case Unknown:
		return "unknown"
	case Satisfiable:
		return "sat"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// outcomeOf converts the engine's tri-state answer. Any other value means the
// engine broke its contract, which is not recoverable.
func outcomeOf(v engine.LBool) Outcome {
	switch v {
	case engine.LFalse:
		return Unsatisfiable
	case engine.LUndef:
		return Unknown
	case engine.LTrue:
		return Satisfiable
	}
	panic(fmt.Sprintf("z3: engine returned check result %d, want -1, 0 or 1", int(v)))
}

// SolverState tracks where a Solver or Optimizer is in its lifecycle.
type SolverState int

const (
	// StateEmpty is a fresh instance with no assertions.
	StateEmpty SolverState = iota
	// StateAsserted has assertions added since the last check.
	StateAsserted
	// StateChecked has run a check and remembers its outcome.
	StateChecked
)

func (s SolverState) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateAsserted:
		return "asserted"
	case StateChecked:
		return "checked"
	}
	return fmt.Sprintf("SolverState(%d)", int(s))
}

// session is the state machine shared by Solver and Optimizer.
type session struct {
	wrapper
	state SolverState // guarded by a.mu
	last  Outcome     // guarded by a.mu
}

func (s *session) base() *ref {
	if s == nil {
		return nil
	}
	return s.ref
}

// enter runs fn with the arena locked, after checking s is live.
func enter[T any](s *session, fn func(a *arena) (T, error)) (T, error) {
	r := s.base()
	if r == nil {
		var zero T
		return zero, ErrInvalidHandle
	}
	a := r.a
	return use(a, func() (T, error) {
		if err := a.check(r); err != nil {
			var zero T
			return zero, err
		}
		return fn(a)
	})
}

func (s *session) assert(op string, t *Term, add func(engine.Engine, engine.Context, engine.AST) error) error {
	_, err := enter(s, func(a *arena) (struct{}, error) {
		if err := a.check(t.base()); err != nil {
			return struct{}{}, err
		}
		if err := withLock(func() error { return add(a.eng, a.ctx, engine.AST(t.raw)) }); err != nil {
			return struct{}{}, &EngineError{Op: op, Err: err}
		}
		s.state = StateAsserted
		return struct{}{}, nil
	})
	runtime.KeepAlive(t)
	return err
}

func (s *session) check(run func(engine.Engine, engine.Context) engine.LBool) (Outcome, error) {
	return enter(s, func(a *arena) (Outcome, error) {
		o := outcomeOf(withLock(func() engine.LBool { return run(a.eng, a.ctx) }))
		s.state, s.last = StateChecked, o
		logger().Debug("check", "kind", s.kind, "handle", s.raw, "outcome", o)
		return o, nil
	})
}

func (s *session) model(op string, get func(engine.Engine, engine.Context) (engine.Model, error)) (*Model, error) {
	return enter(s, func(a *arena) (*Model, error) {
		if s.state != StateChecked || s.last != Satisfiable {
			return nil, ErrNoModel
		}
		r, err := a.acquire(kindModel, op, func() (uintptr, error) {
			m, err := get(a.eng, a.ctx)
			return uintptr(m), err
		})
		if err != nil {
			return nil, err
		}
		return newModel(s.env, r), nil
	})
}

// State returns the lifecycle state.
func (s *session) State() SolverState {
	st, err := enter(s, func(*arena) (SolverState, error) { return s.state, nil })
	if err != nil {
		return StateEmpty
	}
	return st
}

// Solver accumulates assertions and decides their satisfiability.
type Solver struct{ session }

// NewSolver creates an empty solver.
func (env *Environment) NewSolver() (*Solver, error) {
	a := env.a
	return use(a, func() (*Solver, error) {
		r, err := a.acquire(kindSolver, "MkSolver", func() (uintptr, error) {
			h, err := a.eng.MkSolver(a.ctx)
			return uintptr(h), err
		})
		if err != nil {
			return nil, err
		}
		s := &Solver{session{wrapper: wrapper{r, env}}}
		runtime.SetFinalizer(s, (*Solver).Close)
		return s, nil
	})
}

// Assert adds a Boolean formula.
func (s *Solver) Assert(t *Term) error {
	return s.assert("SolverAssert", t, func(eng engine.Engine, c engine.Context, h engine.AST) error {
		return eng.SolverAssert(c, engine.Solver(s.raw), h)
	})
}

// Check decides the conjunction of all assertions. The engine runs under the
// gate for the whole check.
func (s *Solver) Check() (Outcome, error) {
	return s.check(func(eng engine.Engine, c engine.Context) engine.LBool {
		return eng.SolverCheck(c, engine.Solver(s.raw))
	})
}

// IsSatisfiable runs Check and reports whether the outcome is Satisfiable.
func (s *Solver) IsSatisfiable() (bool, error) {
	o, err := s.Check()
	return o == Satisfiable, err
}

// Model returns a model of the assertions. It fails with ErrNoModel unless
// the most recent check was Satisfiable and nothing was asserted since.
func (s *Solver) Model() (*Model, error) {
	return s.model("SolverModel", func(eng engine.Engine, c engine.Context) (engine.Model, error) {
		return eng.SolverModel(c, engine.Solver(s.raw))
	})
}

// Push opens a backtracking scope.
func (s *Solver) Push() error {
	_, err := enter(&s.session, func(a *arena) (struct{}, error) {
		if err := withLock(func() error { return a.eng.SolverPush(a.ctx, engine.Solver(s.raw)) }); err != nil {
			return struct{}{}, &EngineError{Op: "SolverPush", Err: err}
		}
		return struct{}{}, nil
	})
	return err
}

// Pop discards the assertions of the n innermost scopes. Popping more scopes
// than are open is an engine error and changes nothing.
func (s *Solver) Pop(n int) error {
	_, err := enter(&s.session, func(a *arena) (struct{}, error) {
		if err := withLock(func() error { return a.eng.SolverPop(a.ctx, engine.Solver(s.raw), n) }); err != nil {
			return struct{}{}, &EngineError{Op: "SolverPop", Err: err}
		}
		if n > 0 {
			s.state = StateAsserted
		}
		return struct{}{}, nil
	})
	return err
}

// NumScopes returns the number of open scopes.
func (s *Solver) NumScopes() int {
	n, _ := enter(&s.session, func(a *arena) (int, error) {
		return withLock(func() int { return a.eng.SolverNumScopes(a.ctx, engine.Solver(s.raw)) }), nil
	})
	return n
}

// ReasonUnknown explains the last Unknown outcome.
func (s *Solver) ReasonUnknown() string {
	str, _ := enter(&s.session, func(a *arena) (string, error) {
		return withLock(func() string { return a.eng.SolverReasonUnknown(a.ctx, engine.Solver(s.raw)) }), nil
	})
	return str
}
