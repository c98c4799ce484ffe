package z3

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidHandle is returned when the engine hands back a null handle.
	ErrInvalidHandle = errors.New("z3: invalid handle")
	// ErrEnvironmentClosed is returned by every operation on an Environment,
	// or on anything it issued, after Close.
	ErrEnvironmentClosed = errors.New("z3: environment closed")
	// ErrForeignEnvironment is returned when values from two Environments
	// are combined.
	ErrForeignEnvironment = errors.New("z3: value belongs to another environment")
	// ErrReleased is returned when a closed wrapper is used.
	ErrReleased = errors.New("z3: handle already released")
	// ErrNoModel is returned by Model unless the last check was satisfiable.
	ErrNoModel = errors.New("z3: no model: last check was not satisfiable")
	// ErrArity matches every *ArityError.
	ErrArity = errors.New("z3: argument index out of range")
)

// ArityError reports an argument position outside a declaration's domain.
type ArityError struct {
	Index int
	Arity int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("z3: argument index %d out of range for arity %d", e.Index, e.Arity)
}

func (e *ArityError) Is(target error) bool { return target == ErrArity }

// EngineError is a failure reported by the engine for operation Op.
type EngineError struct {
	Op  string
	Err error
}

func (e *EngineError) Error() string { return "z3: " + e.Op + ": " + e.Err.Error() }

func (e *EngineError) Unwrap() error { return e.Err }
