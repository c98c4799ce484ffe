package bounded

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-air/gini"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"

	"github.com/vhavlena/z3safe/engine"
)

var errGroundingLimit = errors.New("quantifier grounding limit")

// vec is a little-endian bit vector of circuit literals. Bool terms are
// vectors of length one.
type vec []z.Lit

type appInst struct {
	args []vec
	out  vec
}

// blaster translates terms into a gini circuit. Uninterpreted applications
// become fresh vectors tied together by Ackermann congruence constraints.
type blaster struct {
	cx     *context
	c      *logic.C
	budget int

	memo  map[engine.AST]vec
	loose map[engine.AST]int

	consts     map[engine.AST]vec
	constOrder []engine.AST
	insts      map[engine.AST][]*appInst
	instIndex  map[string]*appInst
	declOrder  []engine.AST

	roots []z.Lit
	side  []z.Lit
	fixed []z.Lit
}

func newBlaster(cx *context) *blaster {
	return &blaster{
		cx:        cx,
		c:         logic.NewC(),
		budget:    cx.maxInstances,
		memo:      make(map[engine.AST]vec),
		loose:     make(map[engine.AST]int),
		consts:    make(map[engine.AST]vec),
		insts:     make(map[engine.AST][]*appInst),
		instIndex: make(map[string]*appInst),
	}
}

func (b *blaster) bits(sort engine.AST) int {
	if b.cx.isBool(sort) {
		return 1
	}
	return b.cx.width
}

func (b *blaster) fresh(sort engine.AST) vec {
	v := make(vec, b.bits(sort))
	for i := range v {
		v[i] = b.c.Lit()
	}
	return v
}

func (b *blaster) constVec(val int64, sort engine.AST) vec {
	v := make(vec, b.bits(sort))
	for i := range v {
		if (uint64(val)>>uint(i))&1 == 1 {
			v[i] = b.c.T
		} else {
			v[i] = b.c.F
		}
	}
	return v
}

func (b *blaster) isConst(v vec) bool {
	for _, m := range v {
		if m != b.c.T && m != b.c.F {
			return false
		}
	}
	return true
}

// looseVars returns one more than the largest de Bruijn index that is free
// in h, or zero for closed terms.
func (b *blaster) looseVars(h engine.AST) int {
	if r, ok := b.loose[h]; ok {
		return r
	}
	n := b.cx.nodes[h]
	r := 0
	switch n.kind {
	case varNode:
		r = n.index + 1
	case appNode:
		for _, a := range n.args {
			if l := b.looseVars(a); l > r {
				r = l
			}
		}
	case quantNode:
		r = b.looseVars(n.body) - len(n.bsorts)
		if r < 0 {
			r = 0
		}
	}
	b.loose[h] = r
	return r
}

func (b *blaster) encode(h engine.AST, env []vec) (vec, error) {
	n := b.cx.nodes[h]
	if n == nil {
		return nil, fmt.Errorf("%w: unknown handle %d", engine.ErrInvalidArgument, h)
	}
	closed := b.looseVars(h) == 0
	if closed {
		if v, ok := b.memo[h]; ok {
			return v, nil
		}
	}
	var (
		v   vec
		err error
	)
	switch n.kind {
	case numNode:
		v = b.constVec(n.val, n.sort)
	case varNode:
		if n.index >= len(env) {
			return nil, fmt.Errorf("%w: free variable (:var %d)", engine.ErrInvalidArgument, n.index)
		}
		v = env[len(env)-1-n.index]
	case appNode:
		v, err = b.app(n, env)
	case quantNode:
		v, err = b.quant(n, env)
	default:
		return nil, fmt.Errorf("%w: handle %d is not a term", engine.ErrInvalidArgument, h)
	}
	if err != nil {
		return nil, err
	}
	if closed {
		b.memo[h] = v
	}
	return v, nil
}

func (b *blaster) app(n *node, env []vec) (vec, error) {
	d := b.cx.nodes[n.decl]
	args := make([]vec, len(n.args))
	for i, a := range n.args {
		v, err := b.encode(a, env)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	c := b.c
	switch d.op {
	case engine.DeclUninterpreted:
		return b.uninterpreted(d, args), nil
	case engine.DeclTrue:
		return vec{c.T}, nil
	case engine.DeclFalse:
		return vec{c.F}, nil
	case engine.DeclEq:
		m := c.T
		for _, a := range args[1:] {
			m = c.And(m, b.eq(args[0], a))
		}
		return vec{m}, nil
	case engine.DeclDistinct:
		m := c.T
		for i := range args {
			for j := i + 1; j < len(args); j++ {
				m = c.And(m, b.eq(args[i], args[j]).Not())
			}
		}
		return vec{m}, nil
	case engine.DeclNot:
		return vec{args[0][0].Not()}, nil
	case engine.DeclAnd:
		m := c.T
		for _, a := range args {
			m = c.And(m, a[0])
		}
		return vec{m}, nil
	case engine.DeclOr:
		m := c.F
		for _, a := range args {
			m = c.Or(m, a[0])
		}
		return vec{m}, nil
	case engine.DeclImplies:
		return vec{c.Implies(args[0][0], args[1][0])}, nil
	case engine.DeclIte:
		out := make(vec, len(args[1]))
		for i := range out {
			out[i] = c.Choice(args[0][0], args[1][i], args[2][i])
		}
		return out, nil
	case engine.DeclAdd:
		acc := args[0]
		for _, a := range args[1:] {
			acc = b.add(acc, a, c.F)
		}
		return acc, nil
	case engine.DeclSub:
		if len(args) == 1 {
			return b.add(b.not(args[0]), b.constVec(0, n.sort), c.T), nil
		}
		acc := args[0]
		for _, a := range args[1:] {
			acc = b.add(acc, b.not(a), c.T)
		}
		return acc, nil
	case engine.DeclMul:
		acc := args[0]
		for _, a := range args[1:] {
			acc = b.mul(acc, a)
		}
		return acc, nil
	case engine.DeclLT, engine.DeclLE, engine.DeclGT, engine.DeclGE:
		m := c.T
		for i := 0; i+1 < len(args); i++ {
			m = c.And(m, b.compare(d.op, args[i], args[i+1]))
		}
		return vec{m}, nil
	}
	return nil, fmt.Errorf("%w: unsupported operator %s", engine.ErrInvalidArgument, opName(d.op))
}

func instKey(decl engine.AST, args []vec) string {
	var sb strings.Builder
	sb.WriteString(strconv.FormatUint(uint64(decl), 10))
	for _, a := range args {
		sb.WriteByte('|')
		for _, m := range a {
			sb.WriteString(strconv.FormatUint(uint64(m), 36))
			sb.WriteByte('.')
		}
	}
	return sb.String()
}

func (b *blaster) uninterpreted(d *node, args []vec) vec {
	if len(args) == 0 {
		if v, ok := b.consts[d.id]; ok {
			return v
		}
		v := b.fresh(d.rng)
		b.consts[d.id] = v
		b.constOrder = append(b.constOrder, d.id)
		return v
	}
	key := instKey(d.id, args)
	if inst, ok := b.instIndex[key]; ok {
		return inst.out
	}
	inst := &appInst{args: args, out: b.fresh(d.rng)}
	allConst := true
	for _, a := range args {
		allConst = allConst && b.isConst(a)
	}
	for _, o := range b.insts[d.id] {
		// Distinct constant argument tuples can never coincide.
		if allConst && b.allConst(o.args) {
			continue
		}
		same := b.c.T
		for i := range args {
			same = b.c.And(same, b.eq(args[i], o.args[i]))
		}
		if same == b.c.F {
			continue
		}
		b.side = append(b.side, b.c.Implies(same, b.eq(inst.out, o.out)))
	}
	if len(b.insts[d.id]) == 0 {
		b.declOrder = append(b.declOrder, d.id)
	}
	b.insts[d.id] = append(b.insts[d.id], inst)
	b.instIndex[key] = inst
	return inst.out
}

func (b *blaster) allConst(vs []vec) bool {
	for _, v := range vs {
		if !b.isConst(v) {
			return false
		}
	}
	return true
}

// domain lists every value of a sort in ascending order.
func (cx *context) domain(sort engine.AST) []int64 {
	if cx.isBool(sort) {
		return []int64{0, 1}
	}
	lo := -(int64(1) << uint(cx.width-1))
	out := make([]int64, 0, 1<<uint(cx.width))
	for v := lo; v < -lo; v++ {
		out = append(out, v)
	}
	return out
}

// instances returns the size of the cross product of the bound sorts, or an
// error once it exceeds limit.
func (cx *context) instances(sorts []engine.AST, limit int) (int, error) {
	total := 1
	for _, s := range sorts {
		size := 2
		if !cx.isBool(s) {
			size = 1 << uint(cx.width)
		}
		if total > limit/size {
			return 0, errGroundingLimit
		}
		total *= size
	}
	if total > limit {
		return 0, errGroundingLimit
	}
	return total, nil
}

// forEachAssignment calls fn with every assignment of values to sorts, in
// declaration order, stopping at the first error.
func (cx *context) forEachAssignment(sorts []engine.AST, fn func(vals []int64) error) error {
	doms := make([][]int64, len(sorts))
	for i, s := range sorts {
		doms[i] = cx.domain(s)
	}
	idx := make([]int, len(sorts))
	vals := make([]int64, len(sorts))
	for {
		for i := range vals {
			vals[i] = doms[i][idx[i]]
		}
		if err := fn(vals); err != nil {
			return err
		}
		i := len(idx) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(doms[i]) {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			return nil
		}
	}
}

func (b *blaster) quant(n *node, env []vec) (vec, error) {
	total, err := b.cx.instances(n.bsorts, b.budget)
	if err != nil {
		return nil, err
	}
	b.budget -= total
	lits := make([]z.Lit, 0, total)
	err = b.cx.forEachAssignment(n.bsorts, func(vals []int64) error {
		scope := make([]vec, len(env), len(env)+len(vals))
		copy(scope, env)
		for i, v := range vals {
			scope = append(scope, b.constVec(v, n.bsorts[i]))
		}
		body, err := b.encode(n.body, scope)
		if err != nil {
			return err
		}
		lits = append(lits, body[0])
		return nil
	})
	if err != nil {
		return nil, err
	}
	if n.forall {
		return vec{b.c.Ands(lits...)}, nil
	}
	return vec{b.c.Ors(lits...)}, nil
}

func (b *blaster) eq(x, y vec) z.Lit {
	m := b.c.T
	for i := range x {
		m = b.c.And(m, b.c.Xor(x[i], y[i]).Not())
	}
	return m
}

func (b *blaster) not(x vec) vec {
	out := make(vec, len(x))
	for i, m := range x {
		out[i] = m.Not()
	}
	return out
}

// add is a ripple-carry adder; the final carry is dropped.
func (b *blaster) add(x, y vec, carry z.Lit) vec {
	c := b.c
	out := make(vec, len(x))
	for i := range x {
		t := c.Xor(x[i], y[i])
		out[i] = c.Xor(t, carry)
		carry = c.Or(c.And(x[i], y[i]), c.And(carry, t))
	}
	return out
}

func (b *blaster) mul(x, y vec) vec {
	c := b.c
	acc := make(vec, len(x))
	for i := range acc {
		acc[i] = c.F
	}
	for i := range y {
		partial := make(vec, len(x))
		for j := range partial {
			if j < i {
				partial[j] = c.F
			} else {
				partial[j] = c.And(y[i], x[j-i])
			}
		}
		acc = b.add(acc, partial, c.F)
	}
	return acc
}

// slt is signed less-than: flip the sign bits and compare unsigned.
func (b *blaster) slt(x, y vec) z.Lit {
	c := b.c
	msb := len(x) - 1
	lt := c.F
	for i := range x {
		xi, yi := x[i], y[i]
		if i == msb {
			xi, yi = xi.Not(), yi.Not()
		}
		lt = c.Or(c.And(xi.Not(), yi), c.And(c.Xor(xi, yi).Not(), lt))
	}
	return lt
}

func (b *blaster) compare(op engine.DeclKind, x, y vec) z.Lit {
	switch op {
	case engine.DeclLT:
		return b.slt(x, y)
	case engine.DeclGT:
		return b.slt(y, x)
	case engine.DeclLE:
		return b.slt(y, x).Not()
	default:
		return b.slt(x, y).Not()
	}
}

// solve runs gini on the circuit with roots, congruence constraints, fixed
// objective values and extra all asserted.
func (b *blaster) solve(extra ...z.Lit) (int, *gini.Gini) {
	g := gini.New()
	b.c.ToCnf(g)
	unit := func(m z.Lit) {
		g.Add(m)
		g.Add(0)
	}
	unit(b.c.T)
	for _, set := range [][]z.Lit{b.roots, b.side, b.fixed, extra} {
		for _, m := range set {
			unit(m)
		}
	}
	return g.Solve(), g
}

func (b *blaster) litValue(g *gini.Gini, m z.Lit) bool {
	switch {
	case m == b.c.T:
		return true
	case m == b.c.F:
		return false
	case m.Var() > g.MaxVar():
		// never constrained; read the variable as false
		return !m.IsPos()
	}
	return g.Value(m)
}

func (b *blaster) value(g *gini.Gini, v vec) int64 {
	var u uint64
	for i, m := range v {
		if b.litValue(g, m) {
			u |= 1 << uint(i)
		}
	}
	if len(v) == 1 {
		return int64(u)
	}
	return b.cx.norm(int64(u))
}

// extract reads the interpretation of every constant and function instance
// the circuit mentions.
func (b *blaster) extract(g *gini.Gini) *modelData {
	md := newModelData()
	for _, h := range b.constOrder {
		d := b.cx.nodes[h]
		md.setConst(b.cx, d, b.value(g, b.consts[h]))
	}
	for _, h := range b.declOrder {
		d := b.cx.nodes[h]
		for _, inst := range b.insts[h] {
			args := make([]int64, len(inst.args))
			for i, a := range inst.args {
				args[i] = b.value(g, a)
			}
			md.addEntry(b.cx, d, args, b.value(g, inst.out))
		}
	}
	return md
}
