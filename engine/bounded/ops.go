package bounded

import (
	"fmt"

	"github.com/vhavlena/z3safe/engine"
)

func (e *Engine) MkBoolSort(c engine.Context) (engine.Sort, error) {
	cx := e.ctx(c)
	if cx == nil {
		return 0, errNoContext
	}
	return engine.Sort(cx.boolSort()), nil
}

func (e *Engine) MkIntSort(c engine.Context) (engine.Sort, error) {
	cx := e.ctx(c)
	if cx == nil {
		return 0, errNoContext
	}
	return engine.Sort(cx.intSort()), nil
}

func (e *Engine) MkUninterpretedSort(c engine.Context, name engine.Symbol) (engine.Sort, error) {
	cx := e.ctx(c)
	if cx == nil {
		return 0, errNoContext
	}
	if _, ok := cx.symbols[name]; !ok {
		return 0, fmt.Errorf("%w: unknown symbol", engine.ErrInvalidArgument)
	}
	return engine.Sort(cx.mkSort(sortUninterpreted, name)), nil
}

func (cx *context) checkSorts(hs []engine.Sort) ([]engine.AST, error) {
	out := make([]engine.AST, len(hs))
	for i, h := range hs {
		n := cx.nodes[engine.AST(h)]
		if n == nil || n.kind != sortNode {
			return nil, fmt.Errorf("%w: argument %d is not a sort", engine.ErrInvalidArgument, i)
		}
		out[i] = engine.AST(h)
	}
	return out, nil
}

// MkFuncDecl declares an uninterpreted function. Declaring the same name and
// signature twice yields the same declaration.
func (e *Engine) MkFuncDecl(c engine.Context, name engine.Symbol, domain []engine.Sort, rng engine.Sort) (engine.FuncDecl, error) {
	cx := e.ctx(c)
	if cx == nil {
		return 0, errNoContext
	}
	if _, ok := cx.symbols[name]; !ok {
		return 0, fmt.Errorf("%w: unknown symbol", engine.ErrInvalidArgument)
	}
	sorts, err := cx.checkSorts(append(append([]engine.Sort(nil), domain...), rng))
	if err != nil {
		return 0, err
	}
	return engine.FuncDecl(cx.mkDecl(engine.DeclUninterpreted, name, sorts[:len(domain)], sorts[len(domain)])), nil
}

// MkFreshFuncDecl declares a function named prefix!N with N unique in c.
func (e *Engine) MkFreshFuncDecl(c engine.Context, prefix string, domain []engine.Sort, rng engine.Sort) (engine.FuncDecl, error) {
	cx := e.ctx(c)
	if cx == nil {
		return 0, errNoContext
	}
	for {
		name := fmt.Sprintf("%s!%d", prefix, cx.fresh)
		cx.fresh++
		if _, taken := cx.symtab[symbol{s: name}.key()]; taken {
			continue
		}
		return e.MkFuncDecl(c, cx.symbol(symbol{s: name}), domain, rng)
	}
}

func (e *Engine) decl(c engine.Context, d engine.FuncDecl) *node {
	n := e.node(c, engine.AST(d))
	if n == nil || n.kind != declNode {
		return nil
	}
	return n
}

func (e *Engine) DomainSize(c engine.Context, d engine.FuncDecl) int {
	if n := e.decl(c, d); n != nil {
		return len(n.domain)
	}
	return 0
}

func (e *Engine) Domain(c engine.Context, d engine.FuncDecl, i int) engine.Sort {
	n := e.decl(c, d)
	if n == nil || i < 0 || i >= len(n.domain) {
		return 0
	}
	return engine.Sort(n.domain[i])
}

func (e *Engine) Range(c engine.Context, d engine.FuncDecl) engine.Sort {
	if n := e.decl(c, d); n != nil {
		return engine.Sort(n.rng)
	}
	return 0
}

// DeclName returns the declaration's symbol. Interpreted operators are named
// by their SMT-LIB spelling.
func (e *Engine) DeclName(c engine.Context, d engine.FuncDecl) engine.Symbol {
	n := e.decl(c, d)
	if n == nil {
		return 0
	}
	if n.op == engine.DeclUninterpreted {
		return n.name
	}
	return e.ctx(c).symbol(symbol{s: opName(n.op)})
}

func (e *Engine) DeclKind(c engine.Context, d engine.FuncDecl) engine.DeclKind {
	if n := e.decl(c, d); n != nil {
		return n.op
	}
	return engine.DeclOther
}

// MkApp applies d to args. The argument count and sorts must match the
// declaration.
func (e *Engine) MkApp(c engine.Context, d engine.FuncDecl, args []engine.AST) (engine.AST, error) {
	cx := e.ctx(c)
	if cx == nil {
		return 0, errNoContext
	}
	dn := e.decl(c, d)
	if dn == nil {
		return 0, fmt.Errorf("%w: unknown declaration", engine.ErrInvalidArgument)
	}
	if len(args) != len(dn.domain) {
		return 0, fmt.Errorf("%w: %s expects %d arguments, got %d",
			engine.ErrInvalidArgument, cx.declName(dn), len(dn.domain), len(args))
	}
	ns, err := cx.lookupAll(args)
	if err != nil {
		return 0, err
	}
	for i, n := range ns {
		if n.sort != dn.domain[i] {
			return 0, fmt.Errorf("%w: argument %d of %s has sort %s, want %s",
				engine.ErrInvalidArgument, i, cx.declName(dn), cx.String(n.sort), cx.String(dn.domain[i]))
		}
	}
	if dn.op != engine.DeclUninterpreted {
		return cx.builtin(dn.op, args)
	}
	return cx.mkApp(dn, args), nil
}

func (e *Engine) MkConst(c engine.Context, name engine.Symbol, s engine.Sort) (engine.AST, error) {
	d, err := e.MkFuncDecl(c, name, nil, s)
	if err != nil {
		return 0, err
	}
	return e.MkApp(c, d, nil)
}

// MkBound creates the de Bruijn variable with the given index.
func (e *Engine) MkBound(c engine.Context, index int, s engine.Sort) (engine.AST, error) {
	cx := e.ctx(c)
	if cx == nil {
		return 0, errNoContext
	}
	if index < 0 {
		return 0, fmt.Errorf("%w: negative variable index", engine.ErrInvalidArgument)
	}
	if _, err := cx.checkSorts([]engine.Sort{s}); err != nil {
		return 0, err
	}
	key := fmt.Sprintf("var:%d:%d", index, s)
	return cx.internNode(&node{kind: varNode, key: key, sort: engine.AST(s), index: index}), nil
}

// MkInt64 creates a numeral. Values outside the signed range of the context
// width are rejected; only arithmetic wraps.
func (e *Engine) MkInt64(c engine.Context, v int64, s engine.Sort) (engine.AST, error) {
	cx := e.ctx(c)
	if cx == nil {
		return 0, errNoContext
	}
	n := cx.nodes[engine.AST(s)]
	if n == nil || n.kind != sortNode || n.sk == sortBool {
		return 0, fmt.Errorf("%w: numeral needs an Int or uninterpreted sort", engine.ErrInvalidArgument)
	}
	if cx.norm(v) != v {
		lo, hi := cx.bounds()
		return 0, fmt.Errorf("%w: numeral %d outside [%d, %d] at width %d", engine.ErrInvalidArgument, v, lo, hi, cx.width)
	}
	return cx.mkNum(v, engine.AST(s)), nil
}

func (e *Engine) mk(c engine.Context, op engine.DeclKind, args ...engine.AST) (engine.AST, error) {
	cx := e.ctx(c)
	if cx == nil {
		return 0, errNoContext
	}
	return cx.builtin(op, args)
}

func (e *Engine) MkTrue(c engine.Context) (engine.AST, error)  { return e.mk(c, engine.DeclTrue) }
func (e *Engine) MkFalse(c engine.Context) (engine.AST, error) { return e.mk(c, engine.DeclFalse) }

func (e *Engine) MkEq(c engine.Context, a, b engine.AST) (engine.AST, error) {
	return e.mk(c, engine.DeclEq, a, b)
}

func (e *Engine) MkNot(c engine.Context, a engine.AST) (engine.AST, error) {
	return e.mk(c, engine.DeclNot, a)
}

func (e *Engine) MkIte(c engine.Context, cond, t, f engine.AST) (engine.AST, error) {
	return e.mk(c, engine.DeclIte, cond, t, f)
}

func (e *Engine) MkImplies(c engine.Context, a, b engine.AST) (engine.AST, error) {
	return e.mk(c, engine.DeclImplies, a, b)
}

func (e *Engine) MkAnd(c engine.Context, args []engine.AST) (engine.AST, error) {
	if len(args) == 0 {
		return e.MkTrue(c)
	}
	return e.mk(c, engine.DeclAnd, args...)
}

func (e *Engine) MkOr(c engine.Context, args []engine.AST) (engine.AST, error) {
	if len(args) == 0 {
		return e.MkFalse(c)
	}
	return e.mk(c, engine.DeclOr, args...)
}

func (e *Engine) MkDistinct(c engine.Context, args []engine.AST) (engine.AST, error) {
	return e.mk(c, engine.DeclDistinct, args...)
}

func (e *Engine) MkAdd(c engine.Context, args []engine.AST) (engine.AST, error) {
	return e.mk(c, engine.DeclAdd, args...)
}

func (e *Engine) MkSub(c engine.Context, args []engine.AST) (engine.AST, error) {
	return e.mk(c, engine.DeclSub, args...)
}

func (e *Engine) MkMul(c engine.Context, args []engine.AST) (engine.AST, error) {
	return e.mk(c, engine.DeclMul, args...)
}

func (e *Engine) MkLt(c engine.Context, a, b engine.AST) (engine.AST, error) {
	return e.mk(c, engine.DeclLT, a, b)
}

func (e *Engine) MkLe(c engine.Context, a, b engine.AST) (engine.AST, error) {
	return e.mk(c, engine.DeclLE, a, b)
}

func (e *Engine) MkGt(c engine.Context, a, b engine.AST) (engine.AST, error) {
	return e.mk(c, engine.DeclGT, a, b)
}

func (e *Engine) MkGe(c engine.Context, a, b engine.AST) (engine.AST, error) {
	return e.mk(c, engine.DeclGE, a, b)
}

// MkPattern groups application terms into a multi-pattern.
func (e *Engine) MkPattern(c engine.Context, terms []engine.AST) (engine.Pattern, error) {
	cx := e.ctx(c)
	if cx == nil {
		return 0, errNoContext
	}
	if len(terms) == 0 {
		return 0, fmt.Errorf("%w: empty pattern", engine.ErrInvalidArgument)
	}
	ns, err := cx.lookupAll(terms)
	if err != nil {
		return 0, err
	}
	for i, n := range ns {
		if n.kind != appNode {
			return 0, fmt.Errorf("%w: pattern term %d is not an application", engine.ErrInvalidArgument, i)
		}
	}
	key := "pat:" + joinIDs(terms)
	h := cx.internNode(&node{kind: patNode, key: key, terms: append([]engine.AST(nil), terms...)})
	return engine.Pattern(h), nil
}

// MkQuantifier builds a quantifier. Variable index 0 in body refers to the
// last entry of sorts.
func (e *Engine) MkQuantifier(c engine.Context, forall bool, weight int, patterns []engine.Pattern,
	sorts []engine.Sort, names []engine.Symbol, body engine.AST) (engine.AST, error) {
	cx := e.ctx(c)
	if cx == nil {
		return 0, errNoContext
	}
	if len(sorts) != len(names) {
		return 0, fmt.Errorf("%w: %d sorts for %d names", engine.ErrInvalidArgument, len(sorts), len(names))
	}
	if len(sorts) == 0 {
		return 0, fmt.Errorf("%w: quantifier binds no variables", engine.ErrInvalidArgument)
	}
	bs, err := cx.checkSorts(sorts)
	if err != nil {
		return 0, err
	}
	for i, nm := range names {
		if _, ok := cx.symbols[nm]; !ok {
			return 0, fmt.Errorf("%w: bound name %d is not a symbol", engine.ErrInvalidArgument, i)
		}
	}
	b, err := cx.lookup(body)
	if err != nil {
		return 0, err
	}
	if b.kind == sortNode || b.kind == declNode || b.kind == patNode || !cx.isBool(b.sort) {
		return 0, fmt.Errorf("%w: quantifier body is not Bool", engine.ErrInvalidArgument)
	}
	pats := make([]engine.AST, len(patterns))
	for i, p := range patterns {
		pn := cx.nodes[engine.AST(p)]
		if pn == nil || pn.kind != patNode {
			return 0, fmt.Errorf("%w: argument %d is not a pattern", engine.ErrInvalidArgument, i)
		}
		pats[i] = engine.AST(p)
	}
	nameIDs := make([]engine.AST, len(names))
	for i, nm := range names {
		nameIDs[i] = engine.AST(nm)
	}
	key := fmt.Sprintf("quant:%t:%d:%s:%s:%s:%d", forall, weight, joinIDs(pats), joinIDs(bs), joinIDs(nameIDs), body)
	return cx.internNode(&node{
		kind:     quantNode,
		key:      key,
		sort:     cx.boolSort(),
		forall:   forall,
		weight:   weight,
		patterns: pats,
		bsorts:   bs,
		bnames:   append([]engine.Symbol(nil), names...),
		body:     body,
	}), nil
}
