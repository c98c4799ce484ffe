package bounded

import "github.com/vhavlena/z3safe/engine"

func (e *Engine) ASTString(c engine.Context, a engine.AST) string {
	cx := e.ctx(c)
	if cx == nil {
		return "<invalid>"
	}
	return cx.String(a)
}

func (e *Engine) ASTKind(c engine.Context, a engine.AST) engine.ASTKind {
	n := e.node(c, a)
	if n == nil {
		return engine.KindUnknown
	}
	switch n.kind {
	case sortNode:
		return engine.KindSort
	case declNode:
		return engine.KindFuncDecl
	case appNode:
		return engine.KindApp
	case numNode:
		return engine.KindNumeral
	case varNode:
		return engine.KindVar
	case quantNode:
		return engine.KindQuantifier
	}
	return engine.KindUnknown
}

func (e *Engine) SortOf(c engine.Context, a engine.AST) engine.Sort {
	n := e.node(c, a)
	if n == nil {
		return 0
	}
	switch n.kind {
	case appNode, numNode, varNode, quantNode:
		return engine.Sort(n.sort)
	}
	return 0
}

func (e *Engine) app(c engine.Context, a engine.AST) *node {
	n := e.node(c, a)
	if n == nil || n.kind != appNode {
		return nil
	}
	return n
}

func (e *Engine) AppDecl(c engine.Context, a engine.AST) engine.FuncDecl {
	if n := e.app(c, a); n != nil {
		return engine.FuncDecl(n.decl)
	}
	return 0
}

func (e *Engine) AppNumArgs(c engine.Context, a engine.AST) int {
	if n := e.app(c, a); n != nil {
		return len(n.args)
	}
	return 0
}

func (e *Engine) AppArg(c engine.Context, a engine.AST, i int) engine.AST {
	n := e.app(c, a)
	if n == nil || i < 0 || i >= len(n.args) {
		return 0
	}
	return n.args[i]
}

func (e *Engine) VarIndex(c engine.Context, a engine.AST) int {
	n := e.node(c, a)
	if n == nil || n.kind != varNode {
		return -1
	}
	return n.index
}

func (e *Engine) quant(c engine.Context, a engine.AST) *node {
	n := e.node(c, a)
	if n == nil || n.kind != quantNode {
		return nil
	}
	return n
}

func (e *Engine) IsQuantifierForall(c engine.Context, a engine.AST) bool {
	n := e.quant(c, a)
	return n != nil && n.forall
}

func (e *Engine) QuantifierNumBound(c engine.Context, a engine.AST) int {
	if n := e.quant(c, a); n != nil {
		return len(n.bsorts)
	}
	return 0
}

func (e *Engine) QuantifierBoundSort(c engine.Context, a engine.AST, i int) engine.Sort {
	n := e.quant(c, a)
	if n == nil || i < 0 || i >= len(n.bsorts) {
		return 0
	}
	return engine.Sort(n.bsorts[i])
}

func (e *Engine) QuantifierBoundName(c engine.Context, a engine.AST, i int) engine.Symbol {
	n := e.quant(c, a)
	if n == nil || i < 0 || i >= len(n.bnames) {
		return 0
	}
	return n.bnames[i]
}

func (e *Engine) QuantifierBody(c engine.Context, a engine.AST) engine.AST {
	if n := e.quant(c, a); n != nil {
		return n.body
	}
	return 0
}

func (e *Engine) QuantifierNumPatterns(c engine.Context, a engine.AST) int {
	if n := e.quant(c, a); n != nil {
		return len(n.patterns)
	}
	return 0
}

func (e *Engine) NumeralInt64(c engine.Context, a engine.AST) (int64, bool) {
	n := e.node(c, a)
	if n == nil || n.kind != numNode {
		return 0, false
	}
	return n.val, true
}

func (e *Engine) BoolValue(c engine.Context, a engine.AST) engine.LBool {
	n := e.app(c, a)
	if n == nil {
		return engine.LUndef
	}
	switch e.ctx(c).nodes[n.decl].op {
	case engine.DeclTrue:
		return engine.LTrue
	case engine.DeclFalse:
		return engine.LFalse
	}
	return engine.LUndef
}
