package backtrace_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zircuit-labs/zkr-chromelogger/backtrace"
	"github.com/zircuit-labs/zkr-chromelogger/xerrors/stacktrace"
)

type recorder struct{}

func (*recorder) here() (backtrace.Frame, bool) {
	return backtrace.Caller(0)
}

func (recorder) there() (backtrace.Frame, bool) {
	return backtrace.Caller(0)
}

func TestFormat(t *testing.T) {
	t.Parallel()

	frame := backtrace.Frame{Function: "foo", Line: 42, File: "/a/b.go", Class: "Bar", Type: "::"}

	tests := []struct {
		name     string
		template string
		basePath string
		want     string
	}{
		{
			name:     "padded function",
			template: "{function_full:10} {file} : {line}",
			want:     "Bar::foo   /a/b.go : 42",
		},
		{
			name:     "base path stripped",
			template: "{file}",
			basePath: "/a/",
			want:     "b.go",
		},
		{
			name:     "base path not a prefix",
			template: "{file}",
			basePath: "/x/",
			want:     "/a/b.go",
		},
		{
			name:     "file_full keeps the prefix",
			template: "{file_full}",
			basePath: "/a/",
			want:     "/a/b.go",
		},
		{
			name:     "unknown placeholder",
			template: "[{nope}]",
			want:     "[]",
		},
		{
			name:     "unknown placeholder padded",
			template: "[{nope:3}]",
			want:     "[   ]",
		},
		{
			name:     "empty placeholder",
			template: "[{}]",
			want:     "[]",
		},
		{
			name:     "width never truncates",
			template: "{function_full:3}",
			want:     "Bar::foo",
		},
		{
			name:     "width is capped",
			template: "{function:9999999999}|",
			want:     "foo" + strings.Repeat(" ", backtrace.MaxWidth-3) + "|",
		},
		{
			name:     "all parts",
			template: "{class}|{type}|{function}|{line}",
			want:     "Bar|::|foo|42",
		},
		{
			name:     "no placeholders",
			template: "plain text",
			want:     "plain text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, backtrace.Format(frame, tt.template, tt.basePath))
		})
	}
}

func TestFunctionFullWithoutType(t *testing.T) {
	t.Parallel()

	frame := backtrace.Frame{Function: "main.run", Class: "ignored"}
	assert.Equal(t, "main.run", frame.FunctionFull())
	assert.Equal(t, "main.run :", backtrace.Format(frame, "{function_full} {file}:{line}", ""))
}

func TestRender(t *testing.T) {
	t.Parallel()

	assert.Equal(t, backtrace.Unknown, backtrace.Render(backtrace.Frame{}, backtrace.DefaultFormat, ""))
	assert.Equal(t, "f", backtrace.Render(backtrace.Frame{Function: "f"}, "{function}", ""))
}

func TestFromStack(t *testing.T) {
	t.Parallel()

	tests := []struct {
		function string
		want     backtrace.Frame
	}{
		{
			function: "github.com/org/repo/pkg.(*Server).Serve",
			want:     backtrace.Frame{Class: "pkg.(*Server)", Type: ".", Function: "Serve"},
		},
		{
			function: "github.com/org/repo/pkg.Server.Addr",
			want:     backtrace.Frame{Class: "pkg.Server", Type: ".", Function: "Addr"},
		},
		{
			function: "github.com/org/repo/pkg.(*List[...]).Push",
			want:     backtrace.Frame{Class: "pkg.(*List[...])", Type: ".", Function: "Push"},
		},
		{
			function: "github.com/org/repo/pkg.(*Server).Serve.func1",
			want:     backtrace.Frame{Class: "pkg.(*Server)", Type: ".", Function: "Serve.func1"},
		},
		{
			function: "github.com/org/repo/pkg.Run",
			want:     backtrace.Frame{Function: "pkg.Run"},
		},
		{
			function: "github.com/org/repo/pkg.Run.func2",
			want:     backtrace.Frame{Function: "pkg.Run.func2"},
		},
		{
			function: "github.com/org/repo/pkg.init.0",
			want:     backtrace.Frame{Function: "pkg.init.0"},
		},
		{
			function: "main.main",
			want:     backtrace.Frame{Function: "main.main"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.function, func(t *testing.T) {
			t.Parallel()
			tt.want.File = "/src/pkg/file.go"
			tt.want.Line = 7
			got := backtrace.FromStack(stacktrace.Frame{Function: tt.function, File: "/src/pkg/file.go", LineNumber: 7})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCaller(t *testing.T) {
	t.Parallel()

	frame, ok := (&recorder{}).here()
	require.True(t, ok)
	assert.Equal(t, "backtrace_test.(*recorder)", frame.Class)
	assert.Equal(t, ".", frame.Type)
	assert.Equal(t, "here", frame.Function)
	assert.True(t, strings.HasSuffix(frame.File, "backtrace_test.go"))
	assert.Positive(t, frame.Line)

	frame, ok = recorder{}.there()
	require.True(t, ok)
	assert.Equal(t, "backtrace_test.recorder.there", frame.FunctionFull())

	frame, ok = backtrace.Caller(0)
	require.True(t, ok)
	assert.Equal(t, "backtrace_test.TestCaller", frame.Function)
}

func TestStack(t *testing.T) {
	t.Parallel()

	frames := backtrace.Stack(0)
	require.NotEmpty(t, frames)
	assert.Equal(t, "backtrace_test.TestStack", frames[0].Function)
	assert.NotEqual(t, "runtime.goexit", frames[len(frames)-1].Function)
}
