package z3

import (
	"runtime"

	"github.com/vhavlena/z3safe/engine"
)

type handleKind int

const (
	kindTerm handleKind = iota
	kindSort
	kindFuncDecl
	kindPattern
	kindSolver
	kindModel
	kindOptimizer
)

var handleKindNames = [...]string{
	kindTerm:      "term",
	kindSort:      "sort",
	kindFuncDecl:  "func-decl",
	kindPattern:   "pattern",
	kindSolver:    "solver",
	kindModel:     "model",
	kindOptimizer: "optimizer",
}

func (k handleKind) String() string { return handleKindNames[k] }

// ref is one engine reference. It is created by arena.acquire with the
// reference already taken and gives it back exactly once.
type ref struct {
	a        *arena
	kind     handleKind
	raw      uintptr
	released bool // guarded by a.mu
}

// term is the AST form of r. Sorts, declarations and patterns are AST nodes
// inside the engine; reference counting, hashing and equality all go through
// this conversion. The gate must be held.
func (r *ref) term() engine.AST {
	a := r.a
	switch r.kind {
	case kindSort:
		return a.eng.SortToAST(a.ctx, engine.Sort(r.raw))
	case kindFuncDecl:
		return a.eng.FuncDeclToAST(a.ctx, engine.FuncDecl(r.raw))
	case kindPattern:
		return a.eng.PatternToAST(a.ctx, engine.Pattern(r.raw))
	}
	return engine.AST(r.raw)
}

// inc and dec adjust the engine reference count. The gate must be held.
func (r *ref) inc() {
	a := r.a
	switch r.kind {
	case kindSolver:
		a.eng.SolverIncRef(a.ctx, engine.Solver(r.raw))
	case kindModel:
		a.eng.ModelIncRef(a.ctx, engine.Model(r.raw))
	case kindOptimizer:
		a.eng.OptimizeIncRef(a.ctx, engine.Optimize(r.raw))
	default:
		a.eng.IncRef(a.ctx, r.term())
	}
}

func (r *ref) dec() {
	a := r.a
	switch r.kind {
	case kindSolver:
		a.eng.SolverDecRef(a.ctx, engine.Solver(r.raw))
	case kindModel:
		a.eng.ModelDecRef(a.ctx, engine.Model(r.raw))
	case kindOptimizer:
		a.eng.OptimizeDecRef(a.ctx, engine.Optimize(r.raw))
	default:
		a.eng.DecRef(a.ctx, r.term())
	}
}

// Close gives the engine reference back. Later calls, and calls after the
// Environment has been closed, do nothing.
func (r *ref) Close() {
	if r == nil {
		return
	}
	a := r.a
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || r.released {
		return
	}
	r.released = true
	delete(a.live, r)
	withLock(func() struct{} {
		r.dec()
		return struct{}{}
	})
	logger().Debug("handle released", "kind", r.kind, "handle", r.raw)
}

// hash returns the engine's structural hash, or 0 once r is unusable.
func (r *ref) hash() uint32 {
	if r == nil {
		return 0
	}
	h, _ := use(r.a, func() (uint32, error) {
		if err := r.a.check(r); err != nil {
			return 0, err
		}
		return withLock(func() uint32 { return r.a.eng.ASTHash(r.a.ctx, r.term()) }), nil
	})
	return h
}

// equal asks the engine whether r and o denote the same object. Handles from
// different Environments are never equal.
func (r *ref) equal(o *ref) bool {
	if r == nil || o == nil || r.a != o.a || r.kind != o.kind {
		return false
	}
	eq, _ := use(r.a, func() (bool, error) {
		if err := r.a.check(r, o); err != nil {
			return false, err
		}
		return withLock(func() bool {
			a := r.a
			switch r.kind {
			case kindSort:
				return a.eng.IsEqSort(a.ctx, engine.Sort(r.raw), engine.Sort(o.raw))
			case kindFuncDecl:
				return a.eng.IsEqFuncDecl(a.ctx, engine.FuncDecl(r.raw), engine.FuncDecl(o.raw))
			}
			return a.eng.IsEqAST(a.ctx, r.term(), o.term())
		}), nil
	})
	return eq
}

// text renders the object with the engine's printer.
func (r *ref) text() string {
	if r == nil {
		return "<nil>"
	}
	s, err := use(r.a, func() (string, error) {
		if err := r.a.check(r); err != nil {
			return "", err
		}
		return withLock(func() string { return r.a.eng.ASTString(r.a.ctx, r.term()) }), nil
	})
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return s
}

// wrapper is embedded in every entity. env keeps the issuing Environment
// reachable for as long as the entity is.
type wrapper struct {
	*ref
	env *Environment
}

// Environment returns the Environment that issued the value.
func (w wrapper) Environment() *Environment { return w.env }

type based interface{ base() *ref }

// refs collects the refs of operands.
func refs[T based](xs []T) []*ref {
	out := make([]*ref, len(xs))
	for i, x := range xs {
		out[i] = x.base()
	}
	return out
}

func newTerm(env *Environment, r *ref) *Term {
	t := &Term{wrapper{r, env}}
	runtime.SetFinalizer(t, (*Term).Close)
	return t
}

func newSort(env *Environment, r *ref) *Sort {
	s := &Sort{wrapper{r, env}}
	runtime.SetFinalizer(s, (*Sort).Close)
	return s
}

func newFuncDecl(env *Environment, r *ref) *FuncDecl {
	f := &FuncDecl{wrapper{r, env}}
	runtime.SetFinalizer(f, (*FuncDecl).Close)
	return f
}

func newPattern(env *Environment, r *ref) *Pattern {
	p := &Pattern{wrapper{r, env}}
	runtime.SetFinalizer(p, (*Pattern).Close)
	return p
}
