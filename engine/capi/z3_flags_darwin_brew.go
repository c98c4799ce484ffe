//go:build cgo && darwin
// +build cgo,darwin

package capi

/*
// Homebrew prefixes for Apple Silicon and Intel. Missing directories are
// harmless.
#cgo CFLAGS: -I/opt/homebrew/include -I/usr/local/include
#cgo LDFLAGS: -L/opt/homebrew/lib -L/usr/local/lib -lz3
*/
import "C"
