package z3

import (
	"runtime"
	"strconv"

	"github.com/vhavlena/z3safe/engine"
)

// ASTKind classifies terms.
type ASTKind int

// Enumeration of supported AST kinds.
const (
	ASTKindUnknown ASTKind = iota
	ASTKindNumeral
	ASTKindApp
	ASTKindVar
	ASTKindQuantifier
	ASTKindSort
	ASTKindFuncDecl
)

var astKindNames = map[ASTKind]string{
	ASTKindNumeral:    "numeral",
	ASTKindApp:        "app",
	ASTKindVar:        "var",
	ASTKindQuantifier: "quantifier",
	ASTKindSort:       "sort",
	ASTKindFuncDecl:   "func-decl",
	ASTKindUnknown:    "unknown",
}

func (k ASTKind) String() string {
	if s, ok := astKindNames[k]; ok {
		return s
	}
	return "ASTKind(" + strconv.Itoa(int(k)) + ")"
}

var astKinds = map[engine.ASTKind]ASTKind{
	engine.KindNumeral:    ASTKindNumeral,
	engine.KindApp:        ASTKindApp,
	engine.KindVar:        ASTKindVar,
	engine.KindQuantifier: ASTKindQuantifier,
	engine.KindSort:       ASTKindSort,
	engine.KindFuncDecl:   ASTKindFuncDecl,
}

// DeclKind classifies function declarations.
type DeclKind int

const (
	DeclOpOther DeclKind = iota
	DeclOpUninterpreted
	DeclOpTrue
	DeclOpFalse
	DeclOpEq
	DeclOpDistinct
	DeclOpIte
	DeclOpAnd
	DeclOpOr
	DeclOpNot
	DeclOpImplies
	DeclOpAdd
	DeclOpSub
	DeclOpMul
	DeclOpLE
	DeclOpGE
	DeclOpLT
	DeclOpGT
)

var declKindNames = map[DeclKind]string{
	DeclOpOther:         "other",
	DeclOpUninterpreted: "uninterpreted",
	DeclOpTrue:          "true",
	DeclOpFalse:         "false",
	DeclOpEq:            "eq",
	DeclOpDistinct:      "distinct",
	DeclOpIte:           "ite",
	DeclOpAnd:           "and",
	DeclOpOr:            "or",
	DeclOpNot:           "not",
	DeclOpImplies:       "implies",
	DeclOpAdd:           "add",
	DeclOpSub:           "sub",
	DeclOpMul:           "mul",
	DeclOpLE:            "le",
	DeclOpGE:            "ge",
	DeclOpLT:            "lt",
	DeclOpGT:            "gt",
}

func (k DeclKind) String() string {
	if s, ok := declKindNames[k]; ok {
		return s
	}
	return "DeclKind(" + strconv.Itoa(int(k)) + ")"
}

// inspect runs a read-only engine query on t.
func inspect[T any](t *Term, q func(eng engine.Engine, c engine.Context, h engine.AST) T) (T, error) {
	r := t.base()
	if r == nil {
		var zero T
		return zero, ErrInvalidHandle
	}
	a := r.a
	v, err := use(a, func() (T, error) {
		if err := a.check(r); err != nil {
			var zero T
			return zero, err
		}
		return withLock(func() T { return q(a.eng, a.ctx, engine.AST(r.raw)) }), nil
	})
	runtime.KeepAlive(t)
	return v, err
}

// derive wraps an object reached from t, such as a child or its sort.
func derive[T any](t *Term, k handleKind, op string, get func(eng engine.Engine, c engine.Context, h engine.AST) uintptr, wrap func(*Environment, *ref) T) (T, error) {
	var zero T
	r := t.base()
	if r == nil {
		return zero, ErrInvalidHandle
	}
	a := r.a
	v, err := use(a, func() (T, error) {
		if err := a.check(r); err != nil {
			return zero, err
		}
		nr, err := a.query(k, op, func() uintptr { return get(a.eng, a.ctx, engine.AST(r.raw)) })
		if err != nil {
			return zero, err
		}
		return wrap(t.env, nr), nil
	})
	runtime.KeepAlive(t)
	return v, err
}

// Kind returns the kind of the term.
func (t *Term) Kind() ASTKind {
	k, err := inspect(t, func(eng engine.Engine, c engine.Context, h engine.AST) engine.ASTKind {
		return eng.ASTKind(c, h)
	})
	if err != nil {
		return ASTKindUnknown
	}
	if v, ok := astKinds[k]; ok {
		return v
	}
	return ASTKindUnknown
}

// IsApp reports whether the term is an application node.
func (t *Term) IsApp() bool { return t.Kind() == ASTKindApp }

// NumArgs returns the number of arguments of an application, 0 otherwise.
func (t *Term) NumArgs() int {
	n, _ := inspect(t, func(eng engine.Engine, c engine.Context, h engine.AST) int {
		return eng.AppNumArgs(c, h)
	})
	return n
}

// Arg returns the ith argument of an application.
func (t *Term) Arg(i int) (*Term, error) {
	n := t.NumArgs()
	if i < 0 || i >= n {
		return nil, &ArityError{Index: i, Arity: n}
	}
	return derive(t, kindTerm, "AppArg", func(eng engine.Engine, c engine.Context, h engine.AST) uintptr {
		return uintptr(eng.AppArg(c, h, i))
	}, newTerm)
}

// Args returns all arguments of an application.
func (t *Term) Args() ([]*Term, error) {
	n := t.NumArgs()
	out := make([]*Term, 0, n)
	for i := 0; i < n; i++ {
		a, err := t.Arg(i)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// Decl returns the declaration applied by an application term.
func (t *Term) Decl() (*FuncDecl, error) {
	return derive(t, kindFuncDecl, "AppDecl", func(eng engine.Engine, c engine.Context, h engine.AST) uintptr {
		return uintptr(eng.AppDecl(c, h))
	}, newFuncDecl)
}

// Sort returns the sort of the term.
func (t *Term) Sort() (*Sort, error) {
	return derive(t, kindSort, "SortOf", func(eng engine.Engine, c engine.Context, h engine.AST) uintptr {
		return uintptr(eng.SortOf(c, h))
	}, newSort)
}

// VarIndex returns the de Bruijn index of a bound variable, or -1.
func (t *Term) VarIndex() int {
	i, err := inspect(t, func(eng engine.Engine, c engine.Context, h engine.AST) int {
		return eng.VarIndex(c, h)
	})
	if err != nil {
		return -1
	}
	return i
}

// IsForall reports whether the term is a universal quantifier.
func (t *Term) IsForall() bool {
	ok, _ := inspect(t, func(eng engine.Engine, c engine.Context, h engine.AST) bool {
		return eng.IsQuantifierForall(c, h)
	})
	return ok
}

// NumBound returns the number of variables a quantifier binds.
func (t *Term) NumBound() int {
	n, _ := inspect(t, func(eng engine.Engine, c engine.Context, h engine.AST) int {
		return eng.QuantifierNumBound(c, h)
	})
	return n
}

// BoundSort returns the sort of the ith bound variable, in declaration order.
func (t *Term) BoundSort(i int) (*Sort, error) {
	n := t.NumBound()
	if i < 0 || i >= n {
		return nil, &ArityError{Index: i, Arity: n}
	}
	return derive(t, kindSort, "QuantifierBoundSort", func(eng engine.Engine, c engine.Context, h engine.AST) uintptr {
		return uintptr(eng.QuantifierBoundSort(c, h, i))
	}, newSort)
}

// BoundName returns the name of the ith bound variable.
func (t *Term) BoundName(i int) (*Symbol, error) {
	n := t.NumBound()
	if i < 0 || i >= n {
		return nil, &ArityError{Index: i, Arity: n}
	}
	s, err := inspect(t, func(eng engine.Engine, c engine.Context, h engine.AST) engine.Symbol {
		return eng.QuantifierBoundName(c, h, i)
	})
	if err != nil {
		return nil, err
	}
	if s == 0 {
		return nil, ErrInvalidHandle
	}
	return &Symbol{env: t.env, raw: s}, nil
}

// Body returns the body of a quantifier.
func (t *Term) Body() (*Term, error) {
	return derive(t, kindTerm, "QuantifierBody", func(eng engine.Engine, c engine.Context, h engine.AST) uintptr {
		return uintptr(eng.QuantifierBody(c, h))
	}, newTerm)
}

// NumPatterns returns the number of patterns attached to a quantifier.
func (t *Term) NumPatterns() int {
	n, _ := inspect(t, func(eng engine.Engine, c engine.Context, h engine.AST) int {
		return eng.QuantifierNumPatterns(c, h)
	})
	return n
}

// Int64 reads the term as an integer numeral.
func (t *Term) Int64() (int64, bool) {
	type res struct {
		v  int64
		ok bool
	}
	r, err := inspect(t, func(eng engine.Engine, c engine.Context, h engine.AST) res {
		v, ok := eng.NumeralInt64(c, h)
		return res{v, ok}
	})
	return r.v, err == nil && r.ok
}

// Bool reads the term as a Boolean literal.
func (t *Term) Bool() (bool, bool) {
	v, err := inspect(t, func(eng engine.Engine, c engine.Context, h engine.AST) engine.LBool {
		return eng.BoolValue(c, h)
	})
	if err != nil {
		return false, false
	}
	switch v {
	case engine.LTrue:
		return true, true
	case engine.LFalse:
		return false, true
	}
	return false, false
}

// VisitFunc controls traversal; returning false skips the node's children.
type VisitFunc func(*Term) bool

// Walk performs a depth-first, pre-order traversal over application
// arguments and quantifier bodies. Every visited node is a fresh wrapper
// owned by the caller.
func (t *Term) Walk(fn VisitFunc) error {
	if fn == nil {
		return nil
	}
	stack := []*Term{t}
	for len(stack) > 0 {
		idx := len(stack) - 1
		node := stack[idx]
		stack = stack[:idx]
		if !fn(node) {
			continue
		}
		var children []*Term
		switch node.Kind() {
		case ASTKindApp:
			args, err := node.Args()
			if err != nil {
				return err
			}
			children = args
		case ASTKindQuantifier:
			body, err := node.Body()
			if err != nil {
				return err
			}
			children = []*Term{body}
		}
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return nil
}
