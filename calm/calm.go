// Package calm allows users to call a function and capture any panic as an error with stack trace instead.
package calm

import (
	"fmt"

	"github.com/zircuit-labs/zkr-chromelogger/xerrors"
	"github.com/zircuit-labs/zkr-chromelogger/xerrors/errclass"
	"github.com/zircuit-labs/zkr-chromelogger/xerrors/stacktrace"
)

// frames to skip so that the stack trace of a recovered panic
// does not include the deferred recovery function itself.
const panicStackDepth = 3

// Unpanic executes the given function catching any panic and returning it as an error with stack trace.
// WARNING: It is not possible to recover from a panic in a goroutine spawned by `f()`. Users should ensure
// that any goroutines created by `f()` are likewise guarded against panics.
func Unpanic(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()

	return f()
}

// UnpanicValue is Unpanic for functions producing a value.
// When f panics, fallback is returned together with the panic error.
func UnpanicValue[T any](fallback T, f func() T) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = fallback
			err = panicError(r)
		}
	}()

	return f(), nil
}

func panicError(r any) error {
	err := fmt.Errorf("panic: %v", r)
	err = xerrors.Extend(stacktrace.GetStack(panicStackDepth+1, true), err)
	return errclass.WrapAs(err, errclass.Panic)
}
