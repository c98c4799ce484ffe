package z3

import "sync"

// gate serializes every call into an engine, process-wide. Engines only
// promise partial thread safety, so no two engine calls ever overlap, even
// across Environments.
//
// The gate is not reentrant: a function running under it must not call
// withLock again.
var gate sync.Mutex

func withLock[T any](fn func() T) T {
	gate.Lock()
	defer gate.Unlock()
	return fn()
}

func withLockErr[T any](fn func() (T, error)) (T, error) {
	gate.Lock()
	defer gate.Unlock()
	return fn()
}
