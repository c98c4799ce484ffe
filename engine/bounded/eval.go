package bounded

import (
	"strconv"
	"strings"

	"github.com/vhavlena/z3safe/engine"
)

type funcEntry struct {
	args []int64
	val  int64
}

// modelData is the interpretation read back from a satisfying assignment.
// Constants and functions are keyed by declaration handle; order keeps the
// declarations in the order the circuit first mentioned them.
type modelData struct {
	consts map[engine.AST]int64
	funcs  map[engine.AST][]funcEntry
	order  []engine.AST
}

func newModelData() *modelData {
	return &modelData{
		consts: make(map[engine.AST]int64),
		funcs:  make(map[engine.AST][]funcEntry),
	}
}

func (md *modelData) setConst(cx *context, d *node, v int64) {
	if _, ok := md.consts[d.id]; !ok {
		md.order = append(md.order, d.id)
	}
	md.consts[d.id] = v
}

func (md *modelData) addEntry(cx *context, d *node, args []int64, v int64) {
	entries, seen := md.funcs[d.id]
	if !seen {
		md.order = append(md.order, d.id)
	}
	for _, e := range entries {
		if sameArgs(e.args, args) {
			return
		}
	}
	md.funcs[d.id] = append(entries, funcEntry{args: args, val: v})
}

func sameArgs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// apply looks up f(args). Arguments outside the table take the value of the
// first entry, which plays the role of the else branch.
func (md *modelData) apply(decl engine.AST, args []int64) (int64, bool) {
	entries, ok := md.funcs[decl]
	if !ok || len(entries) == 0 {
		return 0, false
	}
	for _, e := range entries {
		if sameArgs(e.args, args) {
			return e.val, true
		}
	}
	return entries[0].val, true
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// eval computes the value of h under md. Symbols md does not interpret are
// read as zero when completion is set; otherwise eval reports false.
func (cx *context) eval(md *modelData, h engine.AST, env []int64, completion bool) (int64, bool) {
	n := cx.nodes[h]
	if n == nil {
		return 0, false
	}
	switch n.kind {
	case numNode:
		return n.val, true
	case varNode:
		if n.index >= len(env) {
			return 0, false
		}
		return env[len(env)-1-n.index], true
	case quantNode:
		return cx.evalQuant(md, n, env, completion)
	case appNode:
	default:
		return 0, false
	}
	d := cx.nodes[n.decl]
	args := make([]int64, len(n.args))
	for i, a := range n.args {
		v, ok := cx.eval(md, a, env, completion)
		if !ok {
			return 0, false
		}
		args[i] = v
	}
	if d.op == engine.DeclUninterpreted {
		var (
			v  int64
			ok bool
		)
		if len(args) == 0 {
			v, ok = md.consts[d.id]
		} else {
			v, ok = md.apply(d.id, args)
		}
		if !ok && completion {
			return 0, true
		}
		return v, ok
	}
	return cx.evalBuiltin(d.op, args), true
}

func (cx *context) evalBuiltin(op engine.DeclKind, args []int64) int64 {
	switch op {
	case engine.DeclTrue:
		return 1
	case engine.DeclFalse:
		return 0
	case engine.DeclEq:
		for _, a := range args[1:] {
			if a != args[0] {
				return 0
			}
		}
		return 1
	case engine.DeclDistinct:
		for i := range args {
			for j := i + 1; j < len(args); j++ {
				if args[i] == args[j] {
					return 0
				}
			}
		}
		return 1
	case engine.DeclNot:
		return 1 - args[0]
	case engine.DeclAnd:
		for _, a := range args {
			if a == 0 {
				return 0
			}
		}
		return 1
	case engine.DeclOr:
		for _, a := range args {
			if a != 0 {
				return 1
			}
		}
		return 0
	case engine.DeclImplies:
		return boolInt(args[0] == 0 || args[1] != 0)
	case engine.DeclIte:
		if args[0] != 0 {
			return args[1]
		}
		return args[2]
	case engine.DeclAdd:
		acc := args[0]
		for _, a := range args[1:] {
			acc = cx.norm(acc + a)
		}
		return acc
	case engine.DeclSub:
		if len(args) == 1 {
			return cx.norm(-args[0])
		}
		acc := args[0]
		for _, a := range args[1:] {
			acc = cx.norm(acc - a)
		}
		return acc
	case engine.DeclMul:
		acc := args[0]
		for _, a := range args[1:] {
			acc = cx.norm(acc * a)
		}
		return acc
	case engine.DeclLT, engine.DeclLE, engine.DeclGT, engine.DeclGE:
		for i := 0; i+1 < len(args); i++ {
			x, y := args[i], args[i+1]
			var ok bool
			switch op {
			case engine.DeclLT:
				ok = x < y
			case engine.DeclLE:
				ok = x <= y
			case engine.DeclGT:
				ok = x > y
			default:
				ok = x >= y
			}
			if !ok {
				return 0
			}
		}
		return 1
	}
	return 0
}

func (cx *context) evalQuant(md *modelData, n *node, env []int64, completion bool) (int64, bool) {
	if _, err := cx.instances(n.bsorts, cx.maxInstances); err != nil {
		return 0, false
	}
	result, ok := boolInt(n.forall), true
	stop := errGroundingLimit
	err := cx.forEachAssignment(n.bsorts, func(vals []int64) error {
		scope := append(append(make([]int64, 0, len(env)+len(vals)), env...), vals...)
		v, good := cx.eval(md, n.body, scope, completion)
		if !good {
			ok = false
			return stop
		}
		if n.forall && v == 0 {
			result = 0
			return stop
		}
		if !n.forall && v != 0 {
			result = 1
			return stop
		}
		return nil
	})
	if err != nil && err != stop {
		return 0, false
	}
	return result, ok
}

func formatValue(v int64, boolean bool) string {
	switch {
	case boolean && v != 0:
		return "true"
	case boolean:
		return "false"
	case v < 0:
		return "(- " + strconv.FormatInt(-v, 10) + ")"
	}
	return strconv.FormatInt(v, 10)
}

// format renders the model one declaration per line, functions as a table
// closed by an else entry.
func (md *modelData) format(cx *context) string {
	var sb strings.Builder
	for _, h := range md.order {
		d := cx.nodes[h]
		if d == nil {
			continue
		}
		name := cx.declName(d)
		outBool := cx.isBool(d.rng)
		if v, ok := md.consts[h]; ok {
			sb.WriteString(name + " -> " + formatValue(v, outBool) + "\n")
			continue
		}
		entries := md.funcs[h]
		sb.WriteString(name + " -> {\n")
		for _, e := range entries {
			sb.WriteString("  ")
			for i, a := range e.args {
				if i > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(formatValue(a, cx.isBool(d.domain[i])))
			}
			sb.WriteString(" -> " + formatValue(e.val, outBool) + "\n")
		}
		if len(entries) > 0 {
			sb.WriteString("  else -> " + formatValue(entries[0].val, outBool) + "\n")
		}
		sb.WriteString("}\n")
	}
	return sb.String()
}
