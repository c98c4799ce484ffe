// Package bounded implements engine.Engine in pure Go over a finite domain.
// It is a test and demo engine: it lets the z3 package and the examples run
// and count references without libz3, and is not a general SMT solver. Use
// engine/capi for real workloads.
//
// Int is interpreted as a fixed-width two's complement integer (wrap-around
// arithmetic) and every uninterpreted sort has the same cardinality as Int.
// Numerals outside that width are rejected.
// Satisfiability is decided by bit-blasting the assertions into an and-inverter
// circuit and handing its CNF to the gini SAT solver. Quantifiers are grounded
// over every value of their bound variables; when grounding would exceed the
// configured instance budget the check answers unknown.
//
// Every object carries an engine-side reference count, and external IncRef /
// DecRef traffic is recorded in Stats so callers can verify that handles are
// released exactly once.
//
// Like the C engine it stands in for, an Engine is not safe for concurrent
// use; callers serialize access.
package bounded

import (
	"fmt"
	"strconv"

	"github.com/vhavlena/z3safe/engine"
)

// Parameter keys understood by MkContext. Keys outside the "bounded." prefix
// are accepted and ignored so that option sets written for libz3 load
// unchanged.
const (
	ParamWidth        = "bounded.width"
	ParamMaxInstances = "bounded.max_instances"
)

const (
	defaultWidth        = 6
	defaultMaxInstances = 4096
	maxWidth            = 31
)

// Stats counts reference traffic issued by callers. Engine-internal child
// references are not included.
type Stats struct {
	IncRefs    int // IncRef, SolverIncRef, ModelIncRef, OptimizeIncRef
	DecRefs    int // matching decrements
	Underflows int // decrements of released or never-incremented handles
	Invalid    int // reference calls naming unknown handles
	Contexts   int // live contexts
}

// Outstanding is IncRefs - DecRefs.
func (s Stats) Outstanding() int { return s.IncRefs - s.DecRefs }

// Engine is the finite-domain engine. The zero value is not usable; call New.
type Engine struct {
	contexts map[engine.Context]*context
	next     uintptr
	stats    Stats
}

var _ engine.Engine = (*Engine)(nil)

// New returns an empty engine.
func New() *Engine {
	return &Engine{contexts: make(map[engine.Context]*context)}
}

// Stats returns a snapshot of the reference counters.
func (e *Engine) Stats() Stats {
	s := e.stats
	s.Contexts = len(e.contexts)
	return s
}

// Version reports the engine version.
func (e *Engine) Version() engine.Version {
	return engine.Version{Major: 0, Minor: 3, Build: 0, Revision: 0}
}

func (e *Engine) alloc() uintptr {
	e.next++
	return e.next
}

// MkContext creates a context. Recognized parameters are validated; invalid
// values are rejected with engine.ErrInvalidArgument.
func (e *Engine) MkContext(params map[string]string) (engine.Context, error) {
	width, maxInst := defaultWidth, defaultMaxInstances
	for k, v := range params {
		switch k {
		case ParamWidth:
			n, err := strconv.Atoi(v)
			if err != nil || n < 2 || n > maxWidth {
				return 0, fmt.Errorf("%w: %s=%q, want 2..%d", engine.ErrInvalidArgument, k, v, maxWidth)
			}
			width = n
		case ParamMaxInstances:
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				return 0, fmt.Errorf("%w: %s=%q", engine.ErrInvalidArgument, k, v)
			}
			maxInst = n
		}
	}
	h := engine.Context(e.alloc())
	e.contexts[h] = newContext(e, width, maxInst)
	return h, nil
}

// DelContext drops every object owned by c.
func (e *Engine) DelContext(c engine.Context) {
	delete(e.contexts, c)
}

func (e *Engine) ctx(c engine.Context) *context {
	return e.contexts[c]
}

// IncRef increments the reference count of an AST.
func (e *Engine) IncRef(c engine.Context, a engine.AST) {
	e.stats.IncRefs++
	cx := e.ctx(c)
	if cx == nil {
		e.stats.Invalid++
		return
	}
	n := cx.nodes[a]
	if n == nil {
		e.stats.Invalid++
		return
	}
	n.refs++
}

// DecRef decrements the reference count of an AST, freeing it at zero.
func (e *Engine) DecRef(c engine.Context, a engine.AST) {
	e.stats.DecRefs++
	cx := e.ctx(c)
	if cx == nil {
		e.stats.Invalid++
		return
	}
	n := cx.nodes[a]
	if n == nil || n.refs == 0 {
		e.stats.Underflows++
		return
	}
	cx.release(n)
}

// SortToAST, FuncDeclToAST and PatternToAST are identities: every object
// lives in the same AST table.
func (e *Engine) SortToAST(c engine.Context, s engine.Sort) engine.AST { return engine.AST(s) }

func (e *Engine) FuncDeclToAST(c engine.Context, d engine.FuncDecl) engine.AST {
	return engine.AST(d)
}

func (e *Engine) PatternToAST(c engine.Context, p engine.Pattern) engine.AST {
	return engine.AST(p)
}

// ASTHash returns the structural hash of a.
func (e *Engine) ASTHash(c engine.Context, a engine.AST) uint32 {
	if n := e.node(c, a); n != nil {
		return n.hash
	}
	return 0
}

// IsEqAST reports structural equality. Terms are hash-consed, so equal
// structure means equal handles.
func (e *Engine) IsEqAST(c engine.Context, a, b engine.AST) bool {
	return e.node(c, a) != nil && a == b
}

func (e *Engine) IsEqSort(c engine.Context, a, b engine.Sort) bool {
	return e.IsEqAST(c, engine.AST(a), engine.AST(b))
}

func (e *Engine) IsEqFuncDecl(c engine.Context, a, b engine.FuncDecl) bool {
	return e.IsEqAST(c, engine.AST(a), engine.AST(b))
}

func (e *Engine) node(c engine.Context, a engine.AST) *node {
	cx := e.ctx(c)
	if cx == nil {
		return nil
	}
	return cx.nodes[a]
}

// MkIntSymbol interns an integer symbol.
func (e *Engine) MkIntSymbol(c engine.Context, i int) (engine.Symbol, error) {
	cx := e.ctx(c)
	if cx == nil {
		return 0, errNoContext
	}
	return cx.symbol(symbol{isInt: true, i: i}), nil
}

// MkStringSymbol interns a string symbol.
func (e *Engine) MkStringSymbol(c engine.Context, s string) (engine.Symbol, error) {
	cx := e.ctx(c)
	if cx == nil {
		return 0, errNoContext
	}
	return cx.symbol(symbol{s: s}), nil
}

// SymbolString renders integer symbols as "#<n>".
func (e *Engine) SymbolString(c engine.Context, s engine.Symbol) string {
	cx := e.ctx(c)
	if cx == nil {
		return ""
	}
	sym, ok := cx.symbols[s]
	if !ok {
		return ""
	}
	return sym.String()
}
