// Package z3 is a memory-safe layer over a handle-based SMT engine.
//
// The engine (see package engine) keeps every object in its own table and
// relies on manual reference counting. This package wraps every engine handle
// in a value that takes exactly one engine reference when it is created and
// gives it back exactly once: on Close, when the garbage collector finalizes
// the wrapper, or when the owning Environment is closed, whichever comes
// first. All engine calls from all Environments are serialized behind one
// process-wide lock.
//
// A typical session:
//
//	env, err := z3.NewEnvironment(bounded.New(), nil)
//	if err != nil { ... }
//	defer env.Close()
//
//	intSort, _ := env.IntSort()
//	x, _ := env.Const("x", intSort)
//	one, _ := env.IntVal(1)
//	eq, _ := env.Eq(x, one)
//
//	s, _ := env.NewSolver()
//	s.Assert(eq)
//	outcome, _ := s.Check()
package z3

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/vhavlena/z3safe/engine"
)

// arena owns one engine context and every handle issued through it. mu
// guards closed, live and the released flag of every ref; it is always
// acquired before the gate.
type arena struct {
	eng    engine.Engine
	ctx    engine.Context
	mu     sync.Mutex
	closed bool
	live   map[*ref]struct{}
}

// Environment owns one engine context. Every Symbol, Sort, Term, FuncDecl,
// Pattern, Solver, Model and Optimizer is issued by exactly one Environment
// and cannot outlive it: after Close, they all report ErrEnvironmentClosed.
//
// An Environment is safe for concurrent use.
type Environment struct {
	a *arena
}

// NewEnvironment creates a context on eng. opts are handed to the engine as
// is; an engine rejection is returned as an *EngineError.
func NewEnvironment(eng engine.Engine, opts Options) (*Environment, error) {
	if eng == nil {
		return nil, fmt.Errorf("z3: nil engine")
	}
	params := make(map[string]string, len(opts))
	for k, v := range opts {
		params[k] = v
	}
	c, err := withLockErr(func() (engine.Context, error) { return eng.MkContext(params) })
	if err != nil {
		return nil, &EngineError{Op: "MkContext", Err: err}
	}
	if c == 0 {
		return nil, ErrInvalidHandle
	}
	env := &Environment{a: &arena{eng: eng, ctx: c, live: make(map[*ref]struct{})}}
	runtime.SetFinalizer(env, (*Environment).Close)
	logger().Debug("environment created", "context", uintptr(c))
	return env, nil
}

// Close releases every handle still owned by the Environment, each exactly
// once, and deletes the engine context. It is safe to call more than once.
func (env *Environment) Close() error {
	runtime.SetFinalizer(env, nil)
	a := env.a
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	n := len(a.live)
	withLock(func() struct{} {
		for r := range a.live {
			r.released = true
			r.dec()
		}
		a.eng.DelContext(a.ctx)
		return struct{}{}
	})
	a.live = nil
	a.closed = true
	logger().Debug("environment closed", "context", uintptr(a.ctx), "released", n)
	return nil
}

// Live returns the number of handles the Environment currently owns.
func (env *Environment) Live() int {
	a := env.a
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}

// Version reports the engine's version.
func (env *Environment) Version() (Version, error) {
	return use(env.a, func() (Version, error) {
		v := withLock(func() engine.Version { return env.a.eng.Version() })
		return Version(v), nil
	})
}

// Version identifies an engine build.
type Version engine.Version

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Build, v.Revision)
}

// use runs fn with the arena locked and open.
func use[T any](a *arena, fn func() (T, error)) (T, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		var zero T
		return zero, ErrEnvironmentClosed
	}
	return fn()
}

// check verifies that every operand was issued by a and is still live.
// a.mu must be held.
func (a *arena) check(operands ...*ref) error {
	for _, r := range operands {
		if r == nil {
			return ErrInvalidHandle
		}
		if r.a != a {
			return ErrForeignEnvironment
		}
		if r.released {
			return ErrReleased
		}
	}
	return nil
}

// acquire calls mk and takes the wrapper's reference on the result, both
// inside one gate section, and registers the new ref. a.mu must be held.
func (a *arena) acquire(k handleKind, op string, mk func() (uintptr, error)) (*ref, error) {
	r, err := withLockErr(func() (*ref, error) {
		h, err := mk()
		if err != nil {
			return nil, &EngineError{Op: op, Err: err}
		}
		if h == 0 {
			return nil, ErrInvalidHandle
		}
		r := &ref{a: a, kind: k, raw: h}
		r.inc()
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	a.live[r] = struct{}{}
	logger().Debug("handle acquired", "kind", k, "handle", r.raw)
	return r, nil
}

// query wraps a handle returned by an engine accessor.
func (a *arena) query(k handleKind, op string, get func() uintptr) (*ref, error) {
	return a.acquire(k, op, func() (uintptr, error) { return get(), nil })
}
