// Package engine defines the handle-based contract of an external SMT engine.
//
// The contract mirrors the shape of the Z3 C API: every object lives in an
// engine-side table, is addressed by an opaque handle, and is kept alive by a
// manual reference count. Implementations are not required to be safe for
// concurrent use; callers must serialize every method call.
//
// Two implementations ship with this module: engine/capi binds libz3 through
// cgo, and engine/bounded is a pure-Go finite-width engine.
package engine

import "errors"

// Handle types. The zero value of every handle type is the null handle.
type (
	Context  uintptr
	Symbol   uintptr
	AST      uintptr
	Sort     uintptr
	FuncDecl uintptr
	Pattern  uintptr
	Solver   uintptr
	Model    uintptr
	Optimize uintptr
)

// LBool is the raw tri-state result of a check. Engines promise to return
// only LFalse, LUndef or LTrue.
type LBool int

const (
	LFalse LBool = -1
	LUndef LBool = 0
	LTrue  LBool = 1
)

// ASTKind classifies AST nodes.
type ASTKind int

const (
	KindUnknown ASTKind = iota
	KindNumeral
	KindApp
	KindVar
	KindQuantifier
	KindSort
	KindFuncDecl
)

// DeclKind classifies function declarations. Only the operators the wrapper
// builds are distinguished; everything else is DeclOther.
type DeclKind int

const (
	DeclOther DeclKind = iota
	DeclUninterpreted
	DeclTrue
	DeclFalse
	DeclEq
	DeclDistinct
	DeclIte
	DeclAnd
	DeclOr
	DeclNot
	DeclImplies
	DeclAdd
	DeclSub
	DeclMul
	DeclLE
	DeclGE
	DeclLT
	DeclGT
)

// Version identifies an engine build.
type Version struct {
	Major, Minor, Build, Revision uint
}

var (
	// ErrUnavailable is returned when an engine cannot be constructed in the
	// current build (for example libz3 without cgo).
	ErrUnavailable = errors.New("engine: not available in this build")
	// ErrInvalidArgument reports a call the engine rejected: sort mismatch,
	// arity mismatch, unknown handle.
	ErrInvalidArgument = errors.New("engine: invalid argument")
	// ErrResource reports an allocation failure inside the engine.
	ErrResource = errors.New("engine: resource exhausted")
)

// Engine is the collaborator interface consumed by package z3.
type Engine interface {
	Version() Version

	MkContext(params map[string]string) (Context, error)
	DelContext(c Context)

	// AST reference counting. Sorts, declarations and patterns are counted
	// through their AST form.
	IncRef(c Context, a AST)
	DecRef(c Context, a AST)
	SortToAST(c Context, s Sort) AST
	FuncDeclToAST(c Context, d FuncDecl) AST
	PatternToAST(c Context, p Pattern) AST

	ASTHash(c Context, a AST) uint32
	IsEqAST(c Context, a, b AST) bool
	IsEqSort(c Context, a, b Sort) bool
	IsEqFuncDecl(c Context, a, b FuncDecl) bool
	ASTString(c Context, a AST) string

	MkIntSymbol(c Context, i int) (Symbol, error)
	MkStringSymbol(c Context, s string) (Symbol, error)
	SymbolString(c Context, s Symbol) string

	MkBoolSort(c Context) (Sort, error)
	MkIntSort(c Context) (Sort, error)
	MkUninterpretedSort(c Context, name Symbol) (Sort, error)

	MkFuncDecl(c Context, name Symbol, domain []Sort, rng Sort) (FuncDecl, error)
	MkFreshFuncDecl(c Context, prefix string, domain []Sort, rng Sort) (FuncDecl, error)
	DomainSize(c Context, d FuncDecl) int
	Domain(c Context, d FuncDecl, i int) Sort
	Range(c Context, d FuncDecl) Sort
	DeclName(c Context, d FuncDecl) Symbol
	DeclKind(c Context, d FuncDecl) DeclKind

	MkApp(c Context, d FuncDecl, args []AST) (AST, error)
	MkConst(c Context, name Symbol, s Sort) (AST, error)
	MkBound(c Context, index int, s Sort) (AST, error)
	MkInt64(c Context, v int64, s Sort) (AST, error)
	MkTrue(c Context) (AST, error)
	MkFalse(c Context) (AST, error)
	MkEq(c Context, a, b AST) (AST, error)
	MkNot(c Context, a AST) (AST, error)
	MkIte(c Context, cond, t, e AST) (AST, error)
	MkImplies(c Context, a, b AST) (AST, error)
	MkAnd(c Context, args []AST) (AST, error)
	MkOr(c Context, args []AST) (AST, error)
	MkDistinct(c Context, args []AST) (AST, error)
	MkAdd(c Context, args []AST) (AST, error)
	MkSub(c Context, args []AST) (AST, error)
	MkMul(c Context, args []AST) (AST, error)
	MkLt(c Context, a, b AST) (AST, error)
	MkLe(c Context, a, b AST) (AST, error)
	MkGt(c Context, a, b AST) (AST, error)
	MkGe(c Context, a, b AST) (AST, error)
	MkPattern(c Context, terms []AST) (Pattern, error)
	// MkQuantifier builds a quantifier over len(sorts) bound variables. As in
	// Z3, the variable with de Bruijn index 0 refers to the last entry of
	// sorts/names.
	MkQuantifier(c Context, forall bool, weight int, patterns []Pattern, sorts []Sort, names []Symbol, body AST) (AST, error)

	ASTKind(c Context, a AST) ASTKind
	SortOf(c Context, a AST) Sort
	AppDecl(c Context, a AST) FuncDecl
	AppNumArgs(c Context, a AST) int
	AppArg(c Context, a AST, i int) AST
	VarIndex(c Context, a AST) int
	IsQuantifierForall(c Context, a AST) bool
	QuantifierNumBound(c Context, a AST) int
	QuantifierBoundSort(c Context, a AST, i int) Sort
	QuantifierBoundName(c Context, a AST, i int) Symbol
	QuantifierBody(c Context, a AST) AST
	QuantifierNumPatterns(c Context, a AST) int
	NumeralInt64(c Context, a AST) (int64, bool)
	BoolValue(c Context, a AST) LBool

	MkSolver(c Context) (Solver, error)
	SolverIncRef(c Context, s Solver)
	SolverDecRef(c Context, s Solver)
	SolverAssert(c Context, s Solver, a AST) error
	SolverCheck(c Context, s Solver) LBool
	SolverPush(c Context, s Solver) error
	SolverPop(c Context, s Solver, n int) error
	SolverNumScopes(c Context, s Solver) int
	SolverModel(c Context, s Solver) (Model, error)
	SolverReasonUnknown(c Context, s Solver) string

	ModelIncRef(c Context, m Model)
	ModelDecRef(c Context, m Model)
	ModelEval(c Context, m Model, a AST, completion bool) (AST, bool)
	ModelString(c Context, m Model) string

	MkOptimize(c Context) (Optimize, error)
	OptimizeIncRef(c Context, o Optimize)
	OptimizeDecRef(c Context, o Optimize)
	OptimizeAssert(c Context, o Optimize, a AST) error
	OptimizeMaximize(c Context, o Optimize, a AST) (int, error)
	OptimizeMinimize(c Context, o Optimize, a AST) (int, error)
	OptimizeCheck(c Context, o Optimize) LBool
	OptimizeModel(c Context, o Optimize) (Model, error)
}
