//go:build !cgo
// +build !cgo

// Package capi implements engine.Engine over the libz3 C API. This build has
// no cgo, so New always fails; use engine/bounded instead.
package capi

import "github.com/vhavlena/z3safe/engine"

// New reports engine.ErrUnavailable without cgo.
func New() (engine.Engine, error) {
	return nil, engine.ErrUnavailable
}
