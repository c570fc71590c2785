package stacktrace

import (
	"errors"
	"sync/atomic"

	"github.com/zircuit-labs/zkr-chromelogger/xerrors"
)

// frames to skip so that callers of Wrap don't see Wrap, wrapSingleError or runtime.Callers.
const wrapStackDepth = 4

// Disabled disables stacktrace collection in Wrap when set to true.
var Disabled atomic.Bool

// Wrap extends an error by including a stack trace at the point where this was called.
// If the error already contains a stack trace, it is not wrapped again.
// Joined errors are wrapped child by child so that their structure is kept.
func Wrap(err error) error {
	if Disabled.Load() || err == nil {
		return err
	}

	if joinedErrors := xerrors.Unjoin(err); len(joinedErrors) > 1 {
		wrappedErrors := make([]error, len(joinedErrors))
		for i, e := range joinedErrors {
			wrappedErrors[i] = Wrap(e)
		}
		return errors.Join(wrappedErrors...)
	}

	return wrapSingleError(err)
}

func wrapSingleError(err error) error {
	if _, ok := xerrors.Extract[StackTrace](err); !ok {
		return xerrors.Extend(GetStack(wrapStackDepth, true), err)
	}
	return err
}

// Extract returns the StackTrace embedded in the error if it exists.
func Extract(err error) StackTrace {
	st, ok := xerrors.Extract[StackTrace](err)
	if !ok {
		return nil
	}
	return st
}
