//go:build cgo
// +build cgo

// Package capi implements engine.Engine over the libz3 C API.
package capi

/*
#include <stdint.h>
#include <stdlib.h>
#include "z3.h"

// Install a no-op error handler so Z3 doesn't abort on errors; we query the
// error code from Go after each call.
static void go_z3_error_handler(Z3_context c, Z3_error_code e) {}
static void z3_set_noop_error_handler(Z3_context c) {
	Z3_set_error_handler(c, go_z3_error_handler);
}

// Z3's bool has changed type across releases; keep it out of Go.
static int model_eval_wrap(Z3_context c, Z3_model m, Z3_ast a, int completion, Z3_ast* out) {
	return Z3_model_eval(c, m, a, completion != 0, out) ? 1 : 0;
}
static int is_eq_ast(Z3_context c, Z3_ast a, Z3_ast b) { return Z3_is_eq_ast(c, a, b) ? 1 : 0; }
static int is_eq_sort(Z3_context c, Z3_sort a, Z3_sort b) { return Z3_is_eq_sort(c, a, b) ? 1 : 0; }
static int is_eq_func_decl(Z3_context c, Z3_func_decl a, Z3_func_decl b) {
	return Z3_is_eq_func_decl(c, a, b) ? 1 : 0;
}
static int is_forall(Z3_context c, Z3_ast a) { return Z3_is_quantifier_forall(c, a) ? 1 : 0; }
static int numeral_int64(Z3_context c, Z3_ast a, int64_t* out) {
	return Z3_get_numeral_int64(c, a, out) ? 1 : 0;
}
static void* handle_ptr(uintptr_t h) { return (void*)h; }
static Z3_ast mk_quantifier(Z3_context c, int forall, unsigned weight,
		unsigned np, Z3_pattern const* pats, unsigned nd, Z3_sort const* sorts,
		Z3_symbol const* names, Z3_ast body) {
	return Z3_mk_quantifier(c, forall != 0, weight, np, pats, nd, sorts, names, body);
}
*/
import "C"

import (
	"fmt"
	"strconv"
	"strings"
	"unsafe"

	"github.com/vhavlena/z3safe/engine"
)

// Engine talks to libz3. It holds no state of its own; every object lives in
// the Z3 context named by the handle.
type Engine struct{}

var _ engine.Engine = (*Engine)(nil)

// New returns the libz3 engine.
func New() (engine.Engine, error) {
	return &Engine{}, nil
}

// ptr turns an engine handle back into the libz3 pointer it was made from.
// Handles always point into libz3's heap, never Go memory; the conversion
// runs in C so Go's uintptr-to-pointer rules are never involved.
func ptr(h uintptr) unsafe.Pointer { return C.handle_ptr(C.uintptr_t(h)) }

func ctx(c engine.Context) C.Z3_context { return C.Z3_context(ptr(uintptr(c))) }
func ast(a engine.AST) C.Z3_ast { return C.Z3_ast(ptr(uintptr(a))) }
func sort(s engine.Sort) C.Z3_sort { return C.Z3_sort(ptr(uintptr(s))) }
func decl(d engine.FuncDecl) C.Z3_func_decl { return C.Z3_func_decl(ptr(uintptr(d))) }
func sym(s engine.Symbol) C.Z3_symbol { return C.Z3_symbol(ptr(uintptr(s))) }
func pattern(p engine.Pattern) C.Z3_pattern { return C.Z3_pattern(ptr(uintptr(p))) }
func solver(s engine.Solver) C.Z3_solver { return C.Z3_solver(ptr(uintptr(s))) }
func model(m engine.Model) C.Z3_model { return C.Z3_model(ptr(uintptr(m))) }
func optimize(o engine.Optimize) C.Z3_optimize { return C.Z3_optimize(ptr(uintptr(o))) }

func toAST(a C.Z3_ast) engine.AST { return engine.AST(uintptr(unsafe.Pointer(a))) }
func toSort(s C.Z3_sort) engine.Sort {
	return engine.Sort(uintptr(unsafe.Pointer(s)))
}
func toDecl(d C.Z3_func_decl) engine.FuncDecl {
	return engine.FuncDecl(uintptr(unsafe.Pointer(d)))
}
func toSym(s C.Z3_symbol) engine.Symbol { return engine.Symbol(uintptr(unsafe.Pointer(s))) }

// check returns the error for the last API call on c, or nil.
func check(c engine.Context, op string) error {
	code := C.Z3_get_error_code(ctx(c))
	if code == C.Z3_OK {
		return nil
	}
	base := engine.ErrInvalidArgument
	if code == C.Z3_MEMOUT_FAIL {
		base = engine.ErrResource
	}
	return fmt.Errorf("%w: %s: %s", base, op, C.GoString(C.Z3_get_error_msg(ctx(c), code)))
}

func astArray(args []engine.AST) (C.uint, *C.Z3_ast) {
	if len(args) == 0 {
		return 0, nil
	}
	out := make([]C.Z3_ast, len(args))
	for i, a := range args {
		out[i] = ast(a)
	}
	return C.uint(len(out)), &out[0]
}

func sortArray(ss []engine.Sort) (C.uint, *C.Z3_sort) {
	if len(ss) == 0 {
		return 0, nil
	}
	out := make([]C.Z3_sort, len(ss))
	for i, s := range ss {
		out[i] = sort(s)
	}
	return C.uint(len(out)), &out[0]
}

func (e *Engine) Version() engine.Version {
	var major, minor, build, rev C.uint
	C.Z3_get_version(&major, &minor, &build, &rev)
	return engine.Version{Major: uint(major), Minor: uint(minor), Build: uint(build), Revision: uint(rev)}
}

// MkContext creates a reference-counted context. Models are always enabled;
// params prefixed with "bounded." belong to the pure-Go engine and are skipped.
func (e *Engine) MkContext(params map[string]string) (engine.Context, error) {
	cfg := C.Z3_mk_config()
	defer C.Z3_del_config(cfg)
	set := func(k, v string) {
		ck, cv := C.CString(k), C.CString(v)
		C.Z3_set_param_value(cfg, ck, cv)
		C.free(unsafe.Pointer(ck))
		C.free(unsafe.Pointer(cv))
	}
	set("model", "true")
	for k, v := range params {
		if strings.HasPrefix(k, "bounded.") {
			continue
		}
		set(k, v)
	}
	c := C.Z3_mk_context_rc(cfg)
	if c == nil {
		return 0, fmt.Errorf("%w: Z3_mk_context_rc", engine.ErrResource)
	}
	C.z3_set_noop_error_handler(c)
	return engine.Context(uintptr(unsafe.Pointer(c))), nil
}

func (e *Engine) DelContext(c engine.Context) { C.Z3_del_context(ctx(c)) }

func (e *Engine) IncRef(c engine.Context, a engine.AST) { C.Z3_inc_ref(ctx(c), ast(a)) }
func (e *Engine) DecRef(c engine.Context, a engine.AST) { C.Z3_dec_ref(ctx(c), ast(a)) }

func (e *Engine) SortToAST(c engine.Context, s engine.Sort) engine.AST {
	return toAST(C.Z3_sort_to_ast(ctx(c), sort(s)))
}

func (e *Engine) FuncDeclToAST(c engine.Context, d engine.FuncDecl) engine.AST {
	return toAST(C.Z3_func_decl_to_ast(ctx(c), decl(d)))
}

func (e *Engine) PatternToAST(c engine.Context, p engine.Pattern) engine.AST {
	return toAST(C.Z3_pattern_to_ast(ctx(c), pattern(p)))
}

func (e *Engine) ASTHash(c engine.Context, a engine.AST) uint32 {
	return uint32(C.Z3_get_ast_hash(ctx(c), ast(a)))
}

func (e *Engine) IsEqAST(c engine.Context, a, b engine.AST) bool {
	return C.is_eq_ast(ctx(c), ast(a), ast(b)) != 0
}

func (e *Engine) IsEqSort(c engine.Context, a, b engine.Sort) bool {
	return C.is_eq_sort(ctx(c), sort(a), sort(b)) != 0
}

func (e *Engine) IsEqFuncDecl(c engine.Context, a, b engine.FuncDecl) bool {
	return C.is_eq_func_decl(ctx(c), decl(a), decl(b)) != 0
}

func (e *Engine) ASTString(c engine.Context, a engine.AST) string {
	s := C.Z3_ast_to_string(ctx(c), ast(a))
	if s == nil {
		return "<invalid>"
	}
	return C.GoString(s)
}

func (e *Engine) MkIntSymbol(c engine.Context, i int) (engine.Symbol, error) {
	s := C.Z3_mk_int_symbol(ctx(c), C.int(i))
	return toSym(s), check(c, "Z3_mk_int_symbol")
}

func (e *Engine) MkStringSymbol(c engine.Context, name string) (engine.Symbol, error) {
	cs := C.CString(name)
	defer C.free(unsafe.Pointer(cs))
	s := C.Z3_mk_string_symbol(ctx(c), cs)
	return toSym(s), check(c, "Z3_mk_string_symbol")
}

func (e *Engine) SymbolString(c engine.Context, s engine.Symbol) string {
	if C.Z3_get_symbol_kind(ctx(c), sym(s)) == C.Z3_INT_SYMBOL {
		return "#" + strconv.Itoa(int(C.Z3_get_symbol_int(ctx(c), sym(s))))
	}
	return C.GoString(C.Z3_get_symbol_string(ctx(c), sym(s)))
}

func (e *Engine) MkBoolSort(c engine.Context) (engine.Sort, error) {
	return toSort(C.Z3_mk_bool_sort(ctx(c))), check(c, "Z3_mk_bool_sort")
}

func (e *Engine) MkIntSort(c engine.Context) (engine.Sort, error) {
	return toSort(C.Z3_mk_int_sort(ctx(c))), check(c, "Z3_mk_int_sort")
}

func (e *Engine) MkUninterpretedSort(c engine.Context, name engine.Symbol) (engine.Sort, error) {
	return toSort(C.Z3_mk_uninterpreted_sort(ctx(c), sym(name))), check(c, "Z3_mk_uninterpreted_sort")
}

func (e *Engine) MkFuncDecl(c engine.Context, name engine.Symbol, domain []engine.Sort, rng engine.Sort) (engine.FuncDecl, error) {
	n, ds := sortArray(domain)
	d := C.Z3_mk_func_decl(ctx(c), sym(name), n, ds, sort(rng))
	return toDecl(d), check(c, "Z3_mk_func_decl")
}

func (e *Engine) MkFreshFuncDecl(c engine.Context, prefix string, domain []engine.Sort, rng engine.Sort) (engine.FuncDecl, error) {
	cp := C.CString(prefix)
	defer C.free(unsafe.Pointer(cp))
	n, ds := sortArray(domain)
	d := C.Z3_mk_fresh_func_decl(ctx(c), cp, n, ds, sort(rng))
	return toDecl(d), check(c, "Z3_mk_fresh_func_decl")
}

func (e *Engine) DomainSize(c engine.Context, d engine.FuncDecl) int {
	return int(C.Z3_get_domain_size(ctx(c), decl(d)))
}

func (e *Engine) Domain(c engine.Context, d engine.FuncDecl, i int) engine.Sort {
	return toSort(C.Z3_get_domain(ctx(c), decl(d), C.uint(i)))
}

func (e *Engine) Range(c engine.Context, d engine.FuncDecl) engine.Sort {
	return toSort(C.Z3_get_range(ctx(c), decl(d)))
}

func (e *Engine) DeclName(c engine.Context, d engine.FuncDecl) engine.Symbol {
	return toSym(C.Z3_get_decl_name(ctx(c), decl(d)))
}

var declKinds = map[C.Z3_decl_kind]engine.DeclKind{
	C.Z3_OP_UNINTERPRETED: engine.DeclUninterpreted,
	C.Z3_OP_TRUE:          engine.DeclTrue,
	C.Z3_OP_FALSE:         engine.DeclFalse,
	C.Z3_OP_EQ:            engine.DeclEq,
	C.Z3_OP_DISTINCT:      engine.DeclDistinct,
	C.Z3_OP_ITE:           engine.DeclIte,
	C.Z3_OP_AND:           engine.DeclAnd,
	C.Z3_OP_OR:            engine.DeclOr,
	C.Z3_OP_NOT:           engine.DeclNot,
	C.Z3_OP_IMPLIES:       engine.DeclImplies,
	C.Z3_OP_ADD:           engine.DeclAdd,
	C.Z3_OP_SUB:           engine.DeclSub,
	C.Z3_OP_MUL:           engine.DeclMul,
	C.Z3_OP_LE:            engine.DeclLE,
	C.Z3_OP_GE:            engine.DeclGE,
	C.Z3_OP_LT:            engine.DeclLT,
	C.Z3_OP_GT:            engine.DeclGT,
}

func (e *Engine) DeclKind(c engine.Context, d engine.FuncDecl) engine.DeclKind {
	if k, ok := declKinds[C.Z3_get_decl_kind(ctx(c), decl(d))]; ok {
		return k
	}
	return engine.DeclOther
}

func (e *Engine) MkApp(c engine.Context, d engine.FuncDecl, args []engine.AST) (engine.AST, error) {
	n, as := astArray(args)
	return toAST(C.Z3_mk_app(ctx(c), decl(d), n, as)), check(c, "Z3_mk_app")
}

func (e *Engine) MkConst(c engine.Context, name engine.Symbol, s engine.Sort) (engine.AST, error) {
	return toAST(C.Z3_mk_const(ctx(c), sym(name), sort(s))), check(c, "Z3_mk_const")
}

func (e *Engine) MkBound(c engine.Context, index int, s engine.Sort) (engine.AST, error) {
	return toAST(C.Z3_mk_bound(ctx(c), C.uint(index), sort(s))), check(c, "Z3_mk_bound")
}

func (e *Engine) MkInt64(c engine.Context, v int64, s engine.Sort) (engine.AST, error) {
	return toAST(C.Z3_mk_int64(ctx(c), C.int64_t(v), sort(s))), check(c, "Z3_mk_int64")
}

func (e *Engine) MkTrue(c engine.Context) (engine.AST, error) {
	return toAST(C.Z3_mk_true(ctx(c))), check(c, "Z3_mk_true")
}

func (e *Engine) MkFalse(c engine.Context) (engine.AST, error) {
	return toAST(C.Z3_mk_false(ctx(c))), check(c, "Z3_mk_false")
}

func (e *Engine) MkEq(c engine.Context, a, b engine.AST) (engine.AST, error) {
	return toAST(C.Z3_mk_eq(ctx(c), ast(a), ast(b))), check(c, "Z3_mk_eq")
}

func (e *Engine) MkNot(c engine.Context, a engine.AST) (engine.AST, error) {
	return toAST(C.Z3_mk_not(ctx(c), ast(a))), check(c, "Z3_mk_not")
}

func (e *Engine) MkIte(c engine.Context, cond, t, f engine.AST) (engine.AST, error) {
	return toAST(C.Z3_mk_ite(ctx(c), ast(cond), ast(t), ast(f))), check(c, "Z3_mk_ite")
}

func (e *Engine) MkImplies(c engine.Context, a, b engine.AST) (engine.AST, error) {
	return toAST(C.Z3_mk_implies(ctx(c), ast(a), ast(b))), check(c, "Z3_mk_implies")
}

func (e *Engine) MkAnd(c engine.Context, args []engine.AST) (engine.AST, error) {
	n, as := astArray(args)
	return toAST(C.Z3_mk_and(ctx(c), n, as)), check(c, "Z3_mk_and")
}

func (e *Engine) MkOr(c engine.Context, args []engine.AST) (engine.AST, error) {
	n, as := astArray(args)
	return toAST(C.Z3_mk_or(ctx(c), n, as)), check(c, "Z3_mk_or")
}

func (e *Engine) MkDistinct(c engine.Context, args []engine.AST) (engine.AST, error) {
	n, as := astArray(args)
	return toAST(C.Z3_mk_distinct(ctx(c), n, as)), check(c, "Z3_mk_distinct")
}

func (e *Engine) MkAdd(c engine.Context, args []engine.AST) (engine.AST, error) {
	n, as := astArray(args)
	return toAST(C.Z3_mk_add(ctx(c), n, as)), check(c, "Z3_mk_add")
}

func (e *Engine) MkSub(c engine.Context, args []engine.AST) (engine.AST, error) {
	n, as := astArray(args)
	if n == 1 {
		return toAST(C.Z3_mk_unary_minus(ctx(c), ast(args[0]))), check(c, "Z3_mk_unary_minus")
	}
	return toAST(C.Z3_mk_sub(ctx(c), n, as)), check(c, "Z3_mk_sub")
}

func (e *Engine) MkMul(c engine.Context, args []engine.AST) (engine.AST, error) {
	n, as := astArray(args)
	return toAST(C.Z3_mk_mul(ctx(c), n, as)), check(c, "Z3_mk_mul")
}

func (e *Engine) MkLt(c engine.Context, a, b engine.AST) (engine.AST, error) {
	return toAST(C.Z3_mk_lt(ctx(c), ast(a), ast(b))), check(c, "Z3_mk_lt")
}

func (e *Engine) MkLe(c engine.Context, a, b engine.AST) (engine.AST, error) {
	return toAST(C.Z3_mk_le(ctx(c), ast(a), ast(b))), check(c, "Z3_mk_le")
}

func (e *Engine) MkGt(c engine.Context, a, b engine.AST) (engine.AST, error) {
	return toAST(C.Z3_mk_gt(ctx(c), ast(a), ast(b))), check(c, "Z3_mk_gt")
}

func (e *Engine) MkGe(c engine.Context, a, b engine.AST) (engine.AST, error) {
	return toAST(C.Z3_mk_ge(ctx(c), ast(a), ast(b))), check(c, "Z3_mk_ge")
}

func (e *Engine) MkPattern(c engine.Context, terms []engine.AST) (engine.Pattern, error) {
	n, as := astArray(terms)
	p := C.Z3_mk_pattern(ctx(c), n, as)
	return engine.Pattern(uintptr(unsafe.Pointer(p))), check(c, "Z3_mk_pattern")
}

func (e *Engine) MkQuantifier(c engine.Context, forall bool, weight int, patterns []engine.Pattern,
	sorts []engine.Sort, names []engine.Symbol, body engine.AST) (engine.AST, error) {
	if len(sorts) != len(names) {
		return 0, fmt.Errorf("%w: %d sorts for %d names", engine.ErrInvalidArgument, len(sorts), len(names))
	}
	var pats *C.Z3_pattern
	if len(patterns) > 0 {
		ps := make([]C.Z3_pattern, len(patterns))
		for i, p := range patterns {
			ps[i] = pattern(p)
		}
		pats = &ps[0]
	}
	var nms *C.Z3_symbol
	if len(names) > 0 {
		ns := make([]C.Z3_symbol, len(names))
		for i, s := range names {
			ns[i] = sym(s)
		}
		nms = &ns[0]
	}
	nd, ss := sortArray(sorts)
	fa := C.int(0)
	if forall {
		fa = 1
	}
	q := C.mk_quantifier(ctx(c), fa, C.uint(weight), C.uint(len(patterns)), pats, nd, ss, nms, ast(body))
	return toAST(q), check(c, "Z3_mk_quantifier")
}

func (e *Engine) ASTKind(c engine.Context, a engine.AST) engine.ASTKind {
	switch C.Z3_get_ast_kind(ctx(c), ast(a)) {
	case C.Z3_NUMERAL_AST:
		return engine.KindNumeral
	case C.Z3_APP_AST:
		return engine.KindApp
	case C.Z3_VAR_AST:
		return engine.KindVar
	case C.Z3_QUANTIFIER_AST:
		return engine.KindQuantifier
	case C.Z3_SORT_AST:
		return engine.KindSort
	case C.Z3_FUNC_DECL_AST:
		return engine.KindFuncDecl
	}
	return engine.KindUnknown
}

func (e *Engine) SortOf(c engine.Context, a engine.AST) engine.Sort {
	return toSort(C.Z3_get_sort(ctx(c), ast(a)))
}

func (e *Engine) isApp(c engine.Context, a engine.AST) bool {
	switch C.Z3_get_ast_kind(ctx(c), ast(a)) {
	case C.Z3_APP_AST, C.Z3_NUMERAL_AST:
		return true
	}
	return false
}

func (e *Engine) AppDecl(c engine.Context, a engine.AST) engine.FuncDecl {
	if !e.isApp(c, a) {
		return 0
	}
	return toDecl(C.Z3_get_app_decl(ctx(c), C.Z3_to_app(ctx(c), ast(a))))
}

func (e *Engine) AppNumArgs(c engine.Context, a engine.AST) int {
	if !e.isApp(c, a) {
		return 0
	}
	return int(C.Z3_get_app_num_args(ctx(c), C.Z3_to_app(ctx(c), ast(a))))
}

func (e *Engine) AppArg(c engine.Context, a engine.AST, i int) engine.AST {
	if i < 0 || i >= e.AppNumArgs(c, a) {
		return 0
	}
	return toAST(C.Z3_get_app_arg(ctx(c), C.Z3_to_app(ctx(c), ast(a)), C.uint(i)))
}

func (e *Engine) VarIndex(c engine.Context, a engine.AST) int {
	if C.Z3_get_ast_kind(ctx(c), ast(a)) != C.Z3_VAR_AST {
		return -1
	}
	return int(C.Z3_get_index_value(ctx(c), ast(a)))
}

func (e *Engine) isQuant(c engine.Context, a engine.AST) bool {
	return C.Z3_get_ast_kind(ctx(c), ast(a)) == C.Z3_QUANTIFIER_AST
}

func (e *Engine) IsQuantifierForall(c engine.Context, a engine.AST) bool {
	return e.isQuant(c, a) && C.is_forall(ctx(c), ast(a)) != 0
}

func (e *Engine) QuantifierNumBound(c engine.Context, a engine.AST) int {
	if !e.isQuant(c, a) {
		return 0
	}
	return int(C.Z3_get_quantifier_num_bound(ctx(c), ast(a)))
}

func (e *Engine) QuantifierBoundSort(c engine.Context, a engine.AST, i int) engine.Sort {
	if i < 0 || i >= e.QuantifierNumBound(c, a) {
		return 0
	}
	return toSort(C.Z3_get_quantifier_bound_sort(ctx(c), ast(a), C.uint(i)))
}

func (e *Engine) QuantifierBoundName(c engine.Context, a engine.AST, i int) engine.Symbol {
	if i < 0 || i >= e.QuantifierNumBound(c, a) {
		return 0
	}
	return toSym(C.Z3_get_quantifier_bound_name(ctx(c), ast(a), C.uint(i)))
}

func (e *Engine) QuantifierBody(c engine.Context, a engine.AST) engine.AST {
	if !e.isQuant(c, a) {
		return 0
	}
	return toAST(C.Z3_get_quantifier_body(ctx(c), ast(a)))
}

func (e *Engine) QuantifierNumPatterns(c engine.Context, a engine.AST) int {
	if !e.isQuant(c, a) {
		return 0
	}
	return int(C.Z3_get_quantifier_num_patterns(ctx(c), ast(a)))
}

func (e *Engine) NumeralInt64(c engine.Context, a engine.AST) (int64, bool) {
	if C.Z3_get_ast_kind(ctx(c), ast(a)) != C.Z3_NUMERAL_AST {
		return 0, false
	}
	var v C.int64_t
	if C.numeral_int64(ctx(c), ast(a), &v) == 0 {
		return 0, false
	}
	return int64(v), true
}

func (e *Engine) BoolValue(c engine.Context, a engine.AST) engine.LBool {
	return engine.LBool(C.Z3_get_bool_value(ctx(c), ast(a)))
}

func (e *Engine) MkSolver(c engine.Context) (engine.Solver, error) {
	s := C.Z3_mk_solver(ctx(c))
	return engine.Solver(uintptr(unsafe.Pointer(s))), check(c, "Z3_mk_solver")
}

func (e *Engine) SolverIncRef(c engine.Context, s engine.Solver) {
	C.Z3_solver_inc_ref(ctx(c), solver(s))
}

func (e *Engine) SolverDecRef(c engine.Context, s engine.Solver) {
	C.Z3_solver_dec_ref(ctx(c), solver(s))
}

func (e *Engine) SolverAssert(c engine.Context, s engine.Solver, a engine.AST) error {
	C.Z3_solver_assert(ctx(c), solver(s), ast(a))
	return check(c, "Z3_solver_assert")
}

// SolverCheck returns Z3's lbool as is; callers validate it.
func (e *Engine) SolverCheck(c engine.Context, s engine.Solver) engine.LBool {
	return engine.LBool(C.Z3_solver_check(ctx(c), solver(s)))
}

func (e *Engine) SolverPush(c engine.Context, s engine.Solver) error {
	C.Z3_solver_push(ctx(c), solver(s))
	return check(c, "Z3_solver_push")
}

// SolverPop rejects n beyond the open scopes before Z3 sees it.
func (e *Engine) SolverPop(c engine.Context, s engine.Solver, n int) error {
	if k := e.SolverNumScopes(c, s); n < 0 || n > k {
		return fmt.Errorf("%w: Z3_solver_pop: pop %d of %d scopes", engine.ErrInvalidArgument, n, k)
	}
	C.Z3_solver_pop(ctx(c), solver(s), C.uint(n))
	return check(c, "Z3_solver_pop")
}

func (e *Engine) SolverNumScopes(c engine.Context, s engine.Solver) int {
	return int(C.Z3_solver_get_num_scopes(ctx(c), solver(s)))
}

func (e *Engine) SolverModel(c engine.Context, s engine.Solver) (engine.Model, error) {
	m := C.Z3_solver_get_model(ctx(c), solver(s))
	if err := check(c, "Z3_solver_get_model"); err != nil {
		return 0, err
	}
	if m == nil {
		return 0, fmt.Errorf("%w: Z3_solver_get_model: no model", engine.ErrInvalidArgument)
	}
	return engine.Model(uintptr(unsafe.Pointer(m))), nil
}

func (e *Engine) SolverReasonUnknown(c engine.Context, s engine.Solver) string {
	r := C.Z3_solver_get_reason_unknown(ctx(c), solver(s))
	if r == nil {
		return ""
	}
	return C.GoString(r)
}

func (e *Engine) ModelIncRef(c engine.Context, m engine.Model) { C.Z3_model_inc_ref(ctx(c), model(m)) }
func (e *Engine) ModelDecRef(c engine.Context, m engine.Model) { C.Z3_model_dec_ref(ctx(c), model(m)) }

func (e *Engine) ModelEval(c engine.Context, m engine.Model, a engine.AST, completion bool) (engine.AST, bool) {
	var out C.Z3_ast
	mc := C.int(0)
	if completion {
		mc = 1
	}
	if C.model_eval_wrap(ctx(c), model(m), ast(a), mc, &out) == 0 || out == nil {
		return 0, false
	}
	return toAST(out), true
}

func (e *Engine) ModelString(c engine.Context, m engine.Model) string {
	s := C.Z3_model_to_string(ctx(c), model(m))
	if s == nil {
		return "<invalid-model>"
	}
	return C.GoString(s)
}

func (e *Engine) MkOptimize(c engine.Context) (engine.Optimize, error) {
	o := C.Z3_mk_optimize(ctx(c))
	return engine.Optimize(uintptr(unsafe.Pointer(o))), check(c, "Z3_mk_optimize")
}

func (e *Engine) OptimizeIncRef(c engine.Context, o engine.Optimize) {
	C.Z3_optimize_inc_ref(ctx(c), optimize(o))
}

func (e *Engine) OptimizeDecRef(c engine.Context, o engine.Optimize) {
	C.Z3_optimize_dec_ref(ctx(c), optimize(o))
}

func (e *Engine) OptimizeAssert(c engine.Context, o engine.Optimize, a engine.AST) error {
	C.Z3_optimize_assert(ctx(c), optimize(o), ast(a))
	return check(c, "Z3_optimize_assert")
}

func (e *Engine) OptimizeMaximize(c engine.Context, o engine.Optimize, a engine.AST) (int, error) {
	i := C.Z3_optimize_maximize(ctx(c), optimize(o), ast(a))
	return int(i), check(c, "Z3_optimize_maximize")
}

func (e *Engine) OptimizeMinimize(c engine.Context, o engine.Optimize, a engine.AST) (int, error) {
	i := C.Z3_optimize_minimize(ctx(c), optimize(o), ast(a))
	return int(i), check(c, "Z3_optimize_minimize")
}

func (e *Engine) OptimizeCheck(c engine.Context, o engine.Optimize) engine.LBool {
	return engine.LBool(C.Z3_optimize_check(ctx(c), optimize(o), 0, nil))
}

func (e *Engine) OptimizeModel(c engine.Context, o engine.Optimize) (engine.Model, error) {
	m := C.Z3_optimize_get_model(ctx(c), optimize(o))
	if err := check(c, "Z3_optimize_get_model"); err != nil {
		return 0, err
	}
	return engine.Model(uintptr(unsafe.Pointer(m))), nil
}
