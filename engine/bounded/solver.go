package bounded

import (
	"errors"
	"fmt"

	"github.com/go-air/gini/z"

	"github.com/vhavlena/z3safe/engine"
)

var errNoModel = fmt.Errorf("%w: no model available", engine.ErrInvalidArgument)

type solver struct {
	refs       int
	assertions []engine.AST
	scopes     []int
	result     engine.LBool
	data       *modelData
	reason     string
}

type model struct {
	refs int
	data *modelData
}

type objective struct {
	term     engine.AST
	maximize bool
}

type optimizer struct {
	solver
	objectives []objective
}

// assertable checks that a is a Bool term and takes a reference on it.
func (cx *context) assertable(a engine.AST) error {
	n, err := cx.lookup(a)
	if err != nil {
		return err
	}
	switch n.kind {
	case appNode, quantNode:
	default:
		return fmt.Errorf("%w: assertion is not a formula", engine.ErrInvalidArgument)
	}
	if !cx.isBool(n.sort) {
		return fmt.Errorf("%w: assertion is not Bool", engine.ErrInvalidArgument)
	}
	n.refs++
	return nil
}

// check decides the conjunction of assertions. Objectives are optimized in
// order: each is pushed to its best value and then held fixed while the next
// one is optimized.
func (cx *context) check(assertions []engine.AST, objectives []objective) (engine.LBool, *modelData, string) {
	b := newBlaster(cx)
	for _, a := range assertions {
		v, err := b.encode(a, nil)
		if err != nil {
			return engine.LUndef, nil, reasonOf(err)
		}
		b.roots = append(b.roots, v[0])
	}
	ovecs := make([]vec, len(objectives))
	for i, o := range objectives {
		v, err := b.encode(o.term, nil)
		if err != nil {
			return engine.LUndef, nil, reasonOf(err)
		}
		ovecs[i] = v
	}
	res, g := b.solve()
	switch res {
	case 1:
	case -1:
		return engine.LFalse, nil, ""
	default:
		return engine.LUndef, nil, "canceled"
	}
	for i, o := range objectives {
		ov := ovecs[i]
		for {
			cur := b.constVec(b.value(g, ov), cx.intSort())
			var better z.Lit
			if o.maximize {
				better = b.slt(cur, ov)
			} else {
				better = b.slt(ov, cur)
			}
			r, next := b.solve(better)
			if r != 1 {
				break
			}
			g = next
		}
		b.fixed = append(b.fixed, b.eq(ov, b.constVec(b.value(g, ov), cx.intSort())))
	}
	return engine.LTrue, b.extract(g), ""
}

func reasonOf(err error) string {
	if errors.Is(err, errGroundingLimit) {
		return errGroundingLimit.Error()
	}
	return err.Error()
}

func (e *Engine) MkSolver(c engine.Context) (engine.Solver, error) {
	cx := e.ctx(c)
	if cx == nil {
		return 0, errNoContext
	}
	h := engine.Solver(e.alloc())
	cx.solvers[h] = &solver{}
	return h, nil
}

func (e *Engine) solver(c engine.Context, s engine.Solver) (*context, *solver) {
	cx := e.ctx(c)
	if cx == nil {
		return nil, nil
	}
	return cx, cx.solvers[s]
}

func (e *Engine) SolverIncRef(c engine.Context, s engine.Solver) {
	e.stats.IncRefs++
	if _, sv := e.solver(c, s); sv != nil {
		sv.refs++
		return
	}
	e.stats.Invalid++
}

func (e *Engine) SolverDecRef(c engine.Context, s engine.Solver) {
	e.stats.DecRefs++
	cx, sv := e.solver(c, s)
	if sv == nil || sv.refs == 0 {
		e.stats.Underflows++
		return
	}
	sv.refs--
	if sv.refs == 0 {
		cx.drop(sv.assertions)
		delete(cx.solvers, s)
	}
}

func (e *Engine) SolverAssert(c engine.Context, s engine.Solver, a engine.AST) error {
	cx, sv := e.solver(c, s)
	if sv == nil {
		return fmt.Errorf("%w: unknown solver", engine.ErrInvalidArgument)
	}
	if err := cx.assertable(a); err != nil {
		return err
	}
	sv.assertions = append(sv.assertions, a)
	return nil
}

func (e *Engine) SolverCheck(c engine.Context, s engine.Solver) engine.LBool {
	cx, sv := e.solver(c, s)
	if sv == nil {
		return engine.LUndef
	}
	sv.result, sv.data, sv.reason = cx.check(sv.assertions, nil)
	return sv.result
}

// SolverPush opens a scope; SolverPop discards every assertion added since
// the matching push.
func (e *Engine) SolverPush(c engine.Context, s engine.Solver) error {
	_, sv := e.solver(c, s)
	if sv == nil {
		return fmt.Errorf("%w: unknown solver", engine.ErrInvalidArgument)
	}
	sv.scopes = append(sv.scopes, len(sv.assertions))
	return nil
}

func (e *Engine) SolverPop(c engine.Context, s engine.Solver, n int) error {
	cx, sv := e.solver(c, s)
	if sv == nil {
		return fmt.Errorf("%w: unknown solver", engine.ErrInvalidArgument)
	}
	if n < 0 || n > len(sv.scopes) {
		return fmt.Errorf("%w: pop %d of %d scopes", engine.ErrInvalidArgument, n, len(sv.scopes))
	}
	if n == 0 {
		return nil
	}
	mark := sv.scopes[len(sv.scopes)-n]
	sv.scopes = sv.scopes[:len(sv.scopes)-n]
	cx.drop(sv.assertions[mark:])
	sv.assertions = sv.assertions[:mark]
	sv.result, sv.data, sv.reason = engine.LUndef, nil, ""
	return nil
}

func (e *Engine) SolverNumScopes(c engine.Context, s engine.Solver) int {
	_, sv := e.solver(c, s)
	if sv == nil {
		return 0
	}
	return len(sv.scopes)
}

func (e *Engine) SolverModel(c engine.Context, s engine.Solver) (engine.Model, error) {
	cx, sv := e.solver(c, s)
	if sv == nil {
		return 0, fmt.Errorf("%w: unknown solver", engine.ErrInvalidArgument)
	}
	return cx.newModel(sv)
}

func (e *Engine) SolverReasonUnknown(c engine.Context, s engine.Solver) string {
	_, sv := e.solver(c, s)
	if sv == nil {
		return ""
	}
	return sv.reason
}

func (cx *context) newModel(sv *solver) (engine.Model, error) {
	if sv.result != engine.LTrue || sv.data == nil {
		return 0, errNoModel
	}
	h := engine.Model(cx.eng.alloc())
	cx.retain(sv.data.order)
	cx.models[h] = &model{data: sv.data}
	return h, nil
}

func (e *Engine) model(c engine.Context, m engine.Model) (*context, *model) {
	cx := e.ctx(c)
	if cx == nil {
		return nil, nil
	}
	return cx, cx.models[m]
}

func (e *Engine) ModelIncRef(c engine.Context, m engine.Model) {
	e.stats.IncRefs++
	if _, md := e.model(c, m); md != nil {
		md.refs++
		return
	}
	e.stats.Invalid++
}

func (e *Engine) ModelDecRef(c engine.Context, m engine.Model) {
	e.stats.DecRefs++
	cx, md := e.model(c, m)
	if md == nil || md.refs == 0 {
		e.stats.Underflows++
		return
	}
	md.refs--
	if md.refs == 0 {
		cx.drop(md.data.order)
		delete(cx.models, m)
	}
}

// ModelEval evaluates a. Without completion, a term mentioning a symbol the
// model leaves open is returned unchanged.
func (e *Engine) ModelEval(c engine.Context, m engine.Model, a engine.AST, completion bool) (engine.AST, bool) {
	cx, md := e.model(c, m)
	if md == nil {
		return 0, false
	}
	n := cx.nodes[a]
	if n == nil {
		return 0, false
	}
	switch n.kind {
	case appNode, numNode, quantNode:
	default:
		return 0, false
	}
	v, ok := cx.eval(md.data, a, nil, completion)
	if !ok {
		if completion {
			return 0, false
		}
		return a, true
	}
	return cx.mkValue(v, n.sort), true
}

func (e *Engine) ModelString(c engine.Context, m engine.Model) string {
	cx, md := e.model(c, m)
	if md == nil {
		return ""
	}
	return md.data.format(cx)
}

func (e *Engine) MkOptimize(c engine.Context) (engine.Optimize, error) {
	cx := e.ctx(c)
	if cx == nil {
		return 0, errNoContext
	}
	h := engine.Optimize(e.alloc())
	cx.optimizers[h] = &optimizer{}
	return h, nil
}

func (e *Engine) optimizer(c engine.Context, o engine.Optimize) (*context, *optimizer) {
	cx := e.ctx(c)
	if cx == nil {
		return nil, nil
	}
	return cx, cx.optimizers[o]
}

func (e *Engine) OptimizeIncRef(c engine.Context, o engine.Optimize) {
	e.stats.IncRefs++
	if _, op := e.optimizer(c, o); op != nil {
		op.refs++
		return
	}
	e.stats.Invalid++
}

func (e *Engine) OptimizeDecRef(c engine.Context, o engine.Optimize) {
	e.stats.DecRefs++
	cx, op := e.optimizer(c, o)
	if op == nil || op.refs == 0 {
		e.stats.Underflows++
		return
	}
	op.refs--
	if op.refs == 0 {
		cx.drop(op.assertions)
		for _, obj := range op.objectives {
			cx.drop([]engine.AST{obj.term})
		}
		delete(cx.optimizers, o)
	}
}

func (e *Engine) OptimizeAssert(c engine.Context, o engine.Optimize, a engine.AST) error {
	cx, op := e.optimizer(c, o)
	if op == nil {
		return fmt.Errorf("%w: unknown optimizer", engine.ErrInvalidArgument)
	}
	if err := cx.assertable(a); err != nil {
		return err
	}
	op.assertions = append(op.assertions, a)
	return nil
}

func (e *Engine) addObjective(c engine.Context, o engine.Optimize, a engine.AST, maximize bool) (int, error) {
	cx, op := e.optimizer(c, o)
	if op == nil {
		return 0, fmt.Errorf("%w: unknown optimizer", engine.ErrInvalidArgument)
	}
	n, err := cx.lookup(a)
	if err != nil {
		return 0, err
	}
	if n.kind == sortNode || n.kind == declNode || n.kind == patNode || !cx.isInt(n.sort) {
		return 0, fmt.Errorf("%w: objective is not an Int term", engine.ErrInvalidArgument)
	}
	n.refs++
	op.objectives = append(op.objectives, objective{term: a, maximize: maximize})
	return len(op.objectives) - 1, nil
}

func (e *Engine) OptimizeMaximize(c engine.Context, o engine.Optimize, a engine.AST) (int, error) {
	return e.addObjective(c, o, a, true)
}

func (e *Engine) OptimizeMinimize(c engine.Context, o engine.Optimize, a engine.AST) (int, error) {
	return e.addObjective(c, o, a, false)
}

func (e *Engine) OptimizeCheck(c engine.Context, o engine.Optimize) engine.LBool {
	cx, op := e.optimizer(c, o)
	if op == nil {
		return engine.LUndef
	}
	op.result, op.data, op.reason = cx.check(op.assertions, op.objectives)
	return op.result
}

func (e *Engine) OptimizeModel(c engine.Context, o engine.Optimize) (engine.Model, error) {
	cx, op := e.optimizer(c, o)
	if op == nil {
		return 0, fmt.Errorf("%w: unknown optimizer", engine.ErrInvalidArgument)
	}
	return cx.newModel(&op.solver)
}
