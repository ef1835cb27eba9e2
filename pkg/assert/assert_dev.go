//go:build !release

// Package assert provides invariant checks that panic in development builds. Build with the
// release tag to compile them out.
package assert

import "fmt"

// That panics with the formatted message when cond is false.
func That(cond bool, format string, args ...any) { //nolint:goprintffuncname // it's ok
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}
