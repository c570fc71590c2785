// Package backtrace renders call sites into display strings using a small template language.
//
// A template is free text with placeholders of the form `{name}` or `{name:width}`. The names
// known to a Frame are function, line, file, class, type, function_full and file_full. Unknown
// names render as the empty string. A width right-pads the value with spaces and never truncates.
// Widths above MaxWidth are treated as MaxWidth.
package backtrace

import (
	"fmt"
	"regexp"
	"runtime"
	"strconv"
	"strings"

	"github.com/zircuit-labs/zkr-chromelogger/xerrors/stacktrace"
)

// DefaultFormat is the template used when none is configured.
const DefaultFormat = "{function_full:30} {file} : {line}"

// Unknown is the rendition of an empty frame.
const Unknown = "Unknown"

// MaxWidth caps the width of a placeholder.
const MaxWidth = 1024

var (
	placeholderRegex = regexp.MustCompile(`{(\w+)?(:(\d+))?}`)
	closureRegex     = regexp.MustCompile(`^(func|gowrap)\d+$|^\d`)
)

// Frame is one call site. Missing parts are left empty; a zero Line is unknown.
type Frame struct {
	Function string
	Line     int
	File     string
	Class    string
	Type     string
}

// IsZero reports whether the frame carries no information at all.
func (f Frame) IsZero() bool {
	return f == Frame{}
}

// FunctionFull is the qualified function name, eg `pkg.(*Server).Serve`.
func (f Frame) FunctionFull() string {
	if f.Type == "" {
		return f.Function
	}
	return f.Class + f.Type + f.Function
}

func (f Frame) values(basePath string) map[string]string {
	line := ""
	if f.Line > 0 {
		line = strconv.Itoa(f.Line)
	}
	file := f.File
	if basePath != "" {
		file = strings.TrimPrefix(file, basePath)
	}
	return map[string]string{
		"function":      f.Function,
		"line":          line,
		"file":          file,
		"class":         f.Class,
		"type":          f.Type,
		"function_full": f.FunctionFull(),
		"file_full":     f.File,
	}
}

// Format expands template for the given frame. basePath is stripped from the start of `{file}`
// when it is a prefix of the file path; `{file_full}` is never shortened.
func Format(frame Frame, template, basePath string) string {
	values := frame.values(basePath)
	return placeholderRegex.ReplaceAllStringFunc(template, func(match string) string {
		groups := placeholderRegex.FindStringSubmatch(match)
		s := values[groups[1]]
		if groups[3] == "" {
			return s
		}
		width, err := strconv.Atoi(groups[3])
		if err != nil {
			return s
		}
		return fmt.Sprintf("%-*s", min(width, MaxWidth), s)
	})
}

// Render is Format for frames that may be missing: an empty frame renders as Unknown.
func Render(frame Frame, template, basePath string) string {
	if frame.IsZero() {
		return Unknown
	}
	return Format(frame, template, basePath)
}

// FromStack converts a runtime frame. Methods are split into receiver and method name:
// `github.com/org/repo/pkg.(*Server).Serve` becomes Class `pkg.(*Server)`, Type `.` and
// Function `Serve`. Package level functions and closures keep the package qualified name
// as Function, eg `pkg.Run.func1`.
func FromStack(frame stacktrace.Frame) Frame {
	f := Frame{
		Line: frame.LineNumber,
		File: frame.File,
	}
	f.Class, f.Type, f.Function = splitFunction(frame.Function)
	return f
}

// Caller returns the frame skip levels above the caller of Caller.
// Caller(0) is the function calling Caller.
func Caller(skip int) (Frame, bool) {
	frame, ok := stacktrace.Caller(skip + 1)
	if !ok {
		return Frame{}, false
	}
	return FromStack(frame), true
}

// FromPC returns the frame of a single program counter, such as slog.Record.PC.
func FromPC(pc uintptr) (Frame, bool) {
	if pc == 0 {
		return Frame{}, false
	}
	f, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	if f.Function == "" {
		return Frame{}, false
	}
	return FromStack(stacktrace.Frame{File: f.File, LineNumber: f.Line, Function: f.Function}), true
}

// Stack returns the frames of the current goroutine, starting skip levels above the caller
// of Stack. Frames of the Go runtime are left out.
func Stack(skip int) []Frame {
	// +3 skips runtime.Callers, stacktrace.GetStack and Stack itself
	trace := stacktrace.GetStack(skip+3, true)
	frames := make([]Frame, len(trace))
	for i, frame := range trace {
		frames[i] = FromStack(frame)
	}
	return frames
}

func splitFunction(name string) (class, typ, function string) {
	short := name
	if i := strings.LastIndex(name, "/"); i >= 0 {
		short = name[i+1:]
	}

	parts := splitTopLevel(short)
	if len(parts) < 3 {
		return "", "", short
	}

	recv := parts[1]
	if !strings.HasPrefix(recv, "(") && closureRegex.MatchString(parts[2]) {
		return "", "", short
	}
	return parts[0] + "." + recv, ".", strings.Join(parts[2:], ".")
}

// splitTopLevel splits on dots outside of brackets and parentheses, so that
// `pkg.(*List[...]).Push` yields `pkg`, `(*List[...])` and `Push`.
func splitTopLevel(s string) []string {
	var (
		parts []string
		depth int
		start int
	)
	for i, r := range s {
		switch r {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case '.':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
