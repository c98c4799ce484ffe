package bounded

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/vhavlena/z3safe/engine"
)

var errNoContext = fmt.Errorf("%w: unknown context", engine.ErrInvalidArgument)

type nodeKind int

const (
	sortNode nodeKind = iota
	declNode
	appNode
	numNode
	varNode
	quantNode
	patNode
)

type sortKind int

const (
	sortBool sortKind = iota
	sortInt
	sortUninterpreted
)

type symbol struct {
	isInt bool
	i     int
	s     string
}

func (s symbol) String() string {
	if s.isInt {
		return "#" + strconv.Itoa(s.i)
	}
	return s.s
}

func (s symbol) key() string {
	if s.isInt {
		return "i:" + strconv.Itoa(s.i)
	}
	return "s:" + s.s
}

// node is one entry of the AST table. Which fields are meaningful depends on
// kind.
type node struct {
	id   engine.AST
	kind nodeKind
	key  string
	hash uint32
	refs int

	// sortNode
	sk   sortKind
	name engine.Symbol

	// declNode (name shared with sortNode)
	op     engine.DeclKind
	domain []engine.AST
	rng    engine.AST

	// appNode, numNode, varNode: sort of the term; quantNode: Bool
	sort  engine.AST
	decl  engine.AST
	args  []engine.AST
	val   int64
	index int

	// quantNode
	forall   bool
	weight   int
	patterns []engine.AST
	bsorts   []engine.AST
	bnames   []engine.Symbol
	body     engine.AST

	// patNode
	terms []engine.AST
}

// children lists the nodes this node keeps alive.
func (n *node) children() []engine.AST {
	var out []engine.AST
	switch n.kind {
	case declNode:
		out = append(out, n.domain...)
		out = append(out, n.rng)
	case appNode:
		out = append(out, n.decl)
		out = append(out, n.args...)
	case numNode, varNode:
		out = append(out, n.sort)
	case quantNode:
		out = append(out, n.sort)
		out = append(out, n.patterns...)
		out = append(out, n.bsorts...)
		out = append(out, n.body)
	case patNode:
		out = append(out, n.terms...)
	}
	return out
}

type context struct {
	eng          *Engine
	width        int
	maxInstances int

	nodes   map[engine.AST]*node
	intern  map[string]engine.AST
	symbols map[engine.Symbol]symbol
	symtab  map[string]engine.Symbol
	fresh   int

	solvers    map[engine.Solver]*solver
	models     map[engine.Model]*model
	optimizers map[engine.Optimize]*optimizer
}

func newContext(e *Engine, width, maxInstances int) *context {
	return &context{
		eng:          e,
		width:        width,
		maxInstances: maxInstances,
		nodes:        make(map[engine.AST]*node),
		intern:       make(map[string]engine.AST),
		symbols:      make(map[engine.Symbol]symbol),
		symtab:       make(map[string]engine.Symbol),
		solvers:      make(map[engine.Solver]*solver),
		models:       make(map[engine.Model]*model),
		optimizers:   make(map[engine.Optimize]*optimizer),
	}
}

func (cx *context) symbol(s symbol) engine.Symbol {
	k := s.key()
	if h, ok := cx.symtab[k]; ok {
		return h
	}
	h := engine.Symbol(cx.eng.alloc())
	cx.symtab[k] = h
	cx.symbols[h] = s
	return h
}

func (cx *context) symbolName(h engine.Symbol) string {
	return cx.symbols[h].String()
}

// intern returns the existing node with n's key, or registers n. A new node
// takes one internal reference on each child.
func (cx *context) internNode(n *node) engine.AST {
	if h, ok := cx.intern[n.key]; ok {
		return h
	}
	n.id = engine.AST(cx.eng.alloc())
	hf := fnv.New32a()
	hf.Write([]byte(n.key))
	n.hash = hf.Sum32()
	cx.nodes[n.id] = n
	cx.intern[n.key] = n.id
	for _, ch := range n.children() {
		cx.nodes[ch].refs++
	}
	return n.id
}

// release drops one reference from n and frees it, and transitively its
// children, when the count reaches zero.
func (cx *context) release(n *node) {
	stack := []*node{n}
	for len(stack) > 0 {
		m := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		m.refs--
		if m.refs > 0 {
			continue
		}
		delete(cx.nodes, m.id)
		delete(cx.intern, m.key)
		for _, ch := range m.children() {
			if c := cx.nodes[ch]; c != nil {
				stack = append(stack, c)
			}
		}
	}
}

func (cx *context) retain(hs []engine.AST) {
	for _, h := range hs {
		if n := cx.nodes[h]; n != nil {
			n.refs++
		}
	}
}

func (cx *context) drop(hs []engine.AST) {
	for _, h := range hs {
		if n := cx.nodes[h]; n != nil {
			cx.release(n)
		}
	}
}

func joinIDs(hs []engine.AST) string {
	parts := make([]string, len(hs))
	for i, h := range hs {
		parts[i] = strconv.FormatUint(uint64(h), 10)
	}
	return strings.Join(parts, ",")
}

// lookup returns the node for h or an invalid-argument error.
func (cx *context) lookup(h engine.AST) (*node, error) {
	n := cx.nodes[h]
	if n == nil {
		return nil, fmt.Errorf("%w: unknown handle %d", engine.ErrInvalidArgument, h)
	}
	return n, nil
}

func (cx *context) lookupAll(hs []engine.AST) ([]*node, error) {
	out := make([]*node, len(hs))
	for i, h := range hs {
		n, err := cx.lookup(h)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func (cx *context) mkSort(sk sortKind, name engine.Symbol) engine.AST {
	var key string
	switch sk {
	case sortBool:
		key = "sort:Bool"
	case sortInt:
		key = "sort:Int"
	default:
		key = "sort:u:" + cx.symbols[name].key()
	}
	return cx.internNode(&node{kind: sortNode, key: key, sk: sk, name: name})
}

func (cx *context) boolSort() engine.AST { return cx.mkSort(sortBool, 0) }
func (cx *context) intSort() engine.AST  { return cx.mkSort(sortInt, 0) }

func (cx *context) sortKindOf(s engine.AST) sortKind {
	if n := cx.nodes[s]; n != nil {
		return n.sk
	}
	return sortBool
}

func (cx *context) isBool(s engine.AST) bool { return cx.sortKindOf(s) == sortBool }
func (cx *context) isInt(s engine.AST) bool  { return cx.sortKindOf(s) == sortInt }

func (cx *context) mkDecl(op engine.DeclKind, name engine.Symbol, domain []engine.AST, rng engine.AST) engine.AST {
	var key string
	if op == engine.DeclUninterpreted {
		key = fmt.Sprintf("decl:u:%s:%s:%d", cx.symbols[name].key(), joinIDs(domain), rng)
	} else {
		key = fmt.Sprintf("decl:b:%d:%s:%d", op, joinIDs(domain), rng)
	}
	dom := append([]engine.AST(nil), domain...)
	return cx.internNode(&node{kind: declNode, key: key, op: op, name: name, domain: dom, rng: rng})
}

func (cx *context) mkApp(decl *node, args []engine.AST) engine.AST {
	key := fmt.Sprintf("app:%d:%s", decl.id, joinIDs(args))
	return cx.internNode(&node{
		kind: appNode,
		key:  key,
		sort: decl.rng,
		decl: decl.id,
		args: append([]engine.AST(nil), args...),
	})
}

// builtin creates an application of an interpreted operator after checking
// argument sorts.
func (cx *context) builtin(op engine.DeclKind, args []engine.AST) (engine.AST, error) {
	ns, err := cx.lookupAll(args)
	if err != nil {
		return 0, err
	}
	sorts := make([]engine.AST, len(ns))
	for i, n := range ns {
		if n.kind == sortNode || n.kind == declNode || n.kind == patNode {
			return 0, fmt.Errorf("%w: operand %d is not a term", engine.ErrInvalidArgument, i)
		}
		sorts[i] = n.sort
	}
	rng := cx.boolSort()
	switch op {
	case engine.DeclTrue, engine.DeclFalse:
	case engine.DeclNot, engine.DeclAnd, engine.DeclOr, engine.DeclImplies:
		for i, s := range sorts {
			if !cx.isBool(s) {
				return 0, fmt.Errorf("%w: operand %d of %s is not Bool", engine.ErrInvalidArgument, i, opName(op))
			}
		}
	case engine.DeclEq, engine.DeclDistinct:
		if len(sorts) == 0 {
			return 0, fmt.Errorf("%w: %s needs operands", engine.ErrInvalidArgument, opName(op))
		}
		for i, s := range sorts {
			if s != sorts[0] {
				return 0, fmt.Errorf("%w: operand %d of %s has a different sort", engine.ErrInvalidArgument, i, opName(op))
			}
		}
	case engine.DeclIte:
		if !cx.isBool(sorts[0]) || sorts[1] != sorts[2] {
			return 0, fmt.Errorf("%w: ite expects (Bool, T, T)", engine.ErrInvalidArgument)
		}
		rng = sorts[1]
	case engine.DeclAdd, engine.DeclSub, engine.DeclMul, engine.DeclLT, engine.DeclLE, engine.DeclGT, engine.DeclGE:
		if len(sorts) == 0 {
			return 0, fmt.Errorf("%w: %s needs operands", engine.ErrInvalidArgument, opName(op))
		}
		for i, s := range sorts {
			if !cx.isInt(s) {
				return 0, fmt.Errorf("%w: operand %d of %s is not Int", engine.ErrInvalidArgument, i, opName(op))
			}
		}
		if op == engine.DeclAdd || op == engine.DeclSub || op == engine.DeclMul {
			rng = cx.intSort()
		}
	default:
		return 0, fmt.Errorf("%w: unsupported operator %d", engine.ErrInvalidArgument, op)
	}
	decl := cx.nodes[cx.mkDecl(op, 0, sorts, rng)]
	return cx.mkApp(decl, args), nil
}

// norm wraps v into the signed range of the context width.
func (cx *context) norm(v int64) int64 {
	shift := 64 - uint(cx.width)
	return (v << shift) >> shift
}

// bounds returns the smallest and largest value of the context width.
func (cx *context) bounds() (int64, int64) {
	hi := int64(1)<<(cx.width-1) - 1
	return -hi - 1, hi
}

func (cx *context) mkNum(v int64, sort engine.AST) engine.AST {
	v = cx.norm(v)
	key := fmt.Sprintf("num:%d:%d", sort, v)
	return cx.internNode(&node{kind: numNode, key: key, sort: sort, val: v})
}

func (cx *context) mkBool(b bool) engine.AST {
	op := engine.DeclFalse
	if b {
		op = engine.DeclTrue
	}
	h, _ := cx.builtin(op, nil)
	return h
}

// mkValue turns an evaluated value back into a term of sort s.
func (cx *context) mkValue(v int64, s engine.AST) engine.AST {
	if cx.isBool(s) {
		return cx.mkBool(v != 0)
	}
	return cx.mkNum(v, s)
}

var opNames = map[engine.DeclKind]string{
	engine.DeclTrue:     "true",
	engine.DeclFalse:    "false",
	engine.DeclEq:       "=",
	engine.DeclDistinct: "distinct",
	engine.DeclIte:      "ite",
	engine.DeclAnd:      "and",
	engine.DeclOr:       "or",
	engine.DeclNot:      "not",
	engine.DeclImplies:  "=>",
	engine.DeclAdd:      "+",
	engine.DeclSub:      "-",
	engine.DeclMul:      "*",
	engine.DeclLE:       "<=",
	engine.DeclGE:       ">=",
	engine.DeclLT:       "<",
	engine.DeclGT:       ">",
}

func opName(op engine.DeclKind) string {
	if s, ok := opNames[op]; ok {
		return s
	}
	return "op" + strconv.Itoa(int(op))
}

// String renders n in SMT-LIB style.
func (cx *context) String(h engine.AST) string {
	var sb strings.Builder
	cx.write(&sb, h)
	return sb.String()
}

func (cx *context) write(sb *strings.Builder, h engine.AST) {
	n := cx.nodes[h]
	if n == nil {
		sb.WriteString("<invalid>")
		return
	}
	switch n.kind {
	case sortNode:
		switch n.sk {
		case sortBool:
			sb.WriteString("Bool")
		case sortInt:
			sb.WriteString("Int")
		default:
			sb.WriteString(cx.symbolName(n.name))
		}
	case declNode:
		sb.WriteString("(declare-fun ")
		sb.WriteString(cx.declName(n))
		sb.WriteString(" (")
		for i, d := range n.domain {
			if i > 0 {
				sb.WriteByte(' ')
			}
			cx.write(sb, d)
		}
		sb.WriteString(") ")
		cx.write(sb, n.rng)
		sb.WriteByte(')')
	case numNode:
		if n.val < 0 {
			fmt.Fprintf(sb, "(- %d)", -n.val)
		} else {
			sb.WriteString(strconv.FormatInt(n.val, 10))
		}
	case varNode:
		fmt.Fprintf(sb, "(:var %d)", n.index)
	case appNode:
		d := cx.nodes[n.decl]
		if len(n.args) == 0 {
			sb.WriteString(cx.declName(d))
			return
		}
		sb.WriteByte('(')
		sb.WriteString(cx.declName(d))
		for _, a := range n.args {
			sb.WriteByte(' ')
			cx.write(sb, a)
		}
		sb.WriteByte(')')
	case quantNode:
		if n.forall {
			sb.WriteString("(forall (")
		} else {
			sb.WriteString("(exists (")
		}
		for i := range n.bsorts {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteByte('(')
			sb.WriteString(cx.symbolName(n.bnames[i]))
			sb.WriteByte(' ')
			cx.write(sb, n.bsorts[i])
			sb.WriteByte(')')
		}
		sb.WriteString(") ")
		if len(n.patterns) == 0 {
			cx.write(sb, n.body)
		} else {
			sb.WriteString("(! ")
			cx.write(sb, n.body)
			for _, p := range n.patterns {
				sb.WriteString(" :pattern ")
				cx.write(sb, p)
			}
			sb.WriteByte(')')
		}
		sb.WriteByte(')')
	case patNode:
		sb.WriteByte('(')
		for i, t := range n.terms {
			if i > 0 {
				sb.WriteByte(' ')
			}
			cx.write(sb, t)
		}
		sb.WriteByte(')')
	}
}

func (cx *context) declName(d *node) string {
	if d == nil {
		return "<invalid>"
	}
	if d.op == engine.DeclUninterpreted {
		return cx.symbolName(d.name)
	}
	return opName(d.op)
}
