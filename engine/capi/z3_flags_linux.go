//go:build cgo && linux
// +build cgo,linux

package capi

/*
// libz3 from the distribution package (libz3-dev) sits on the default linker
// path. Override with CGO_LDFLAGS/CGO_CFLAGS for a custom build.
#cgo LDFLAGS: -lz3
*/
import "C"
