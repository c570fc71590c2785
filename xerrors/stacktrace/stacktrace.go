// Package stacktrace uses the go runtime to capture stack trace data.
package stacktrace

import (
	"fmt"
	"regexp"
	"runtime"
	"strings"
)

const (
	maxFrames     = 64
	runtimePrefix = "runtime."
	testingPrefix = "testing."
)

var (
	// eg `/pkg/mod/golang.org/toolchain@v0.0.1-go1.22.4.linux-amd64/src/runtime/panic.go`
	runtimeRegex = regexp.MustCompile(`go[^/]*/src/runtime/[^.]+\.(go|s)`)
	testingRegex = regexp.MustCompile(`go[^/]*/src/testing/[^.]+\.go`)
)

// Frame represents human-readable information about a frame in a stack trace.
type Frame struct {
	File       string `json:"source"`
	LineNumber int    `json:"line"`
	Function   string `json:"func"`
}

// String renders the frame as `function file:line`.
func (f Frame) String() string {
	return fmt.Sprintf("%s %s:%d", f.Function, f.File, f.LineNumber)
}

// StackTrace represents a program stack trace as a series of frames, innermost first.
type StackTrace []Frame

// GetStack captures the current program stack trace.
// skipFrames is the number of stack frames to skip, where 1 would result in GetStack itself being the first frame.
// skipRuntime when true ignores all frames that are part of the Go runtime (eg runtime.main and runtime.panic) and testing packages.
func GetStack(skipFrames int, skipRuntime bool) StackTrace {
	var stackTrace StackTrace

	pc := make([]uintptr, maxFrames)
	n := runtime.Callers(skipFrames, pc)
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pc[:n])
	for {
		frame, more := frames.Next()
		if !(skipRuntime && isRuntimeFrame(frame)) {
			stackTrace = append(stackTrace, Frame{
				File:       frame.File,
				LineNumber: frame.Line,
				Function:   frame.Function,
			})
		}
		if !more {
			break
		}
	}

	return stackTrace
}

// Caller returns the single frame skipFrames above the caller of Caller.
// Caller(0) is the function calling Caller.
func Caller(skipFrames int) (Frame, bool) {
	// +3 skips runtime.Callers, GetStack and Caller itself
	trace := GetStack(skipFrames+3, false)
	if len(trace) == 0 {
		return Frame{}, false
	}
	return trace[0], true
}

func isRuntimeFrame(frame runtime.Frame) bool {
	switch {
	case strings.HasPrefix(frame.Function, runtimePrefix):
		return runtimeRegex.MatchString(frame.File)
	case strings.HasPrefix(frame.Function, testingPrefix):
		return testingRegex.MatchString(frame.File)
	default:
		return false
	}
}
