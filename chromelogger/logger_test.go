package chromelogger_test

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/mock/gomock"

	"github.com/zircuit-labs/zkr-chromelogger/calm/errgroup"
	"github.com/zircuit-labs/zkr-chromelogger/chromelogger"
	"github.com/zircuit-labs/zkr-chromelogger/log"
)

type user struct {
	Name    string
	friends []*user
}

func settingsWithFormat(format string) chromelogger.Settings {
	settings := chromelogger.DefaultSettings()
	settings.BacktraceFormat = format
	return settings
}

func infoFromHelper(l *chromelogger.Logger) {
	l.Info("from helper")
}

func traceFromHelper(l *chromelogger.Logger) {
	l.Trace("a", 1)
}

func flushed(t *testing.T, l *chromelogger.Logger) []byte {
	t.Helper()

	header := http.Header{}
	require.NoError(t, l.Flush(header))
	value := header.Get(chromelogger.HeaderName)
	require.NotEmpty(t, value)

	data, err := chromelogger.Decode(value)
	require.NoError(t, err)
	return data
}

func TestRowsRepeatNoBacktrace(t *testing.T) {
	t.Parallel()

	l := chromelogger.New()
	for i := range 3 {
		l.Log("iteration", i)
	}
	l.Warn("elsewhere")

	rows := l.Rows()
	require.Len(t, rows, 4)

	require.NotNil(t, rows[0].Backtrace)
	assert.Contains(t, *rows[0].Backtrace, "chromelogger_test.TestRowsRepeatNoBacktrace")
	assert.Contains(t, *rows[0].Backtrace, "logger_test.go : ")
	assert.Nil(t, rows[1].Backtrace)
	assert.Nil(t, rows[2].Backtrace)
	require.NotNil(t, rows[3].Backtrace)
	assert.NotEqual(t, *rows[0].Backtrace, *rows[3].Backtrace)

	assert.Equal(t, []any{"iteration", 2}, rows[2].Logs)
	assert.Equal(t, chromelogger.LevelWarn, rows[3].Level)
}

func TestEmptyCallsAreIgnored(t *testing.T) {
	t.Parallel()

	l := chromelogger.New()
	l.Log()
	l.Info()
	l.Group("title")
	l.GroupEnd()

	rows := l.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, chromelogger.LevelGroup, rows[0].Level)
	assert.Nil(t, rows[0].Backtrace)
	assert.Equal(t, chromelogger.LevelGroupEnd, rows[1].Level)
	assert.Nil(t, rows[1].Backtrace)
	assert.Empty(t, rows[1].Logs)
}

func TestBacktraceLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level int
		want  string
	}{
		{level: 1, want: "chromelogger.(*Logger).Info"},
		{level: 2, want: "chromelogger_test.infoFromHelper"},
		{level: 3, want: "chromelogger_test.TestBacktraceLevel.func1"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.level), func(t *testing.T) {
			t.Parallel()

			settings := settingsWithFormat("{function_full}")
			settings.BacktraceLevel = tt.level
			l := chromelogger.New(chromelogger.WithSettings(settings))
			infoFromHelper(l)

			rows := l.Rows()
			require.Len(t, rows, 1)
			require.NotNil(t, rows[0].Backtrace)
			assert.Equal(t, tt.want, *rows[0].Backtrace)
		})
	}
}

func TestBasePath(t *testing.T) {
	t.Parallel()

	settings := settingsWithFormat("{file}|{file_full}")
	settings.BasePath = "/"
	l := chromelogger.New(chromelogger.WithSettings(settings))
	l.Log("x")

	rows := l.Rows()
	require.Len(t, rows, 1)
	parts := strings.Split(*rows[0].Backtrace, "|")
	require.Len(t, parts, 2)
	assert.False(t, strings.HasPrefix(parts[0], "/"))
	assert.Equal(t, "/"+parts[0], parts[1])
}

func TestTrace(t *testing.T) {
	t.Parallel()

	l := chromelogger.New(chromelogger.WithSettings(settingsWithFormat("{function_full}")))
	traceFromHelper(l)

	rows := l.Rows()
	require.GreaterOrEqual(t, len(rows), 4)

	assert.Equal(t, chromelogger.LevelGroup, rows[0].Level)
	assert.Equal(t, []any{`chromelogger.Trace( "a", 1 )`}, rows[0].Logs)
	assert.Nil(t, rows[0].Backtrace)

	require.NotNil(t, rows[1].Backtrace)
	assert.Equal(t, "chromelogger_test.traceFromHelper", *rows[1].Backtrace)
	require.NotNil(t, rows[2].Backtrace)
	assert.Equal(t, "chromelogger_test.TestTrace", *rows[2].Backtrace)
	assert.Empty(t, rows[1].Logs)

	last := rows[len(rows)-1]
	assert.Equal(t, chromelogger.LevelGroupEnd, last.Level)

	// trace rows do not suppress later backtraces
	traceFromHelper(l)
	again := l.Rows()[len(rows)+1]
	require.NotNil(t, again.Backtrace)
	assert.Equal(t, "chromelogger_test.traceFromHelper", *again.Backtrace)
}

func TestTraceCollapsed(t *testing.T) {
	t.Parallel()

	settings := chromelogger.DefaultSettings()
	settings.BacktraceCollapsed = true
	l := chromelogger.New(chromelogger.WithSettings(settings))
	l.Trace()

	rows := l.Rows()
	require.NotEmpty(t, rows)
	assert.Equal(t, chromelogger.LevelGroupCollapsed, rows[0].Level)
	assert.Equal(t, []any{"chromelogger.Trace(  )"}, rows[0].Logs)
}

func TestFlush(t *testing.T) {
	t.Parallel()

	l := chromelogger.New(chromelogger.WithRequestURI("/users?id=7"))
	u := &user{Name: "alice"}
	u.friends = []*user{u}
	l.Log("user", u)
	l.Group("group")
	l.GroupEnd()

	data := flushed(t, l)

	assert.Equal(t, "4.1.0", gjson.GetBytes(data, "version").String())
	assert.Equal(t, `["log","backtrace","type"]`, gjson.GetBytes(data, "columns").Raw)
	assert.Equal(t, "/users?id=7", gjson.GetBytes(data, "request_uri").String())
	assert.Equal(t, int64(3), gjson.GetBytes(data, "rows.#").Int())

	assert.Equal(t, "user", gjson.GetBytes(data, "rows.0.0.0").String())
	assert.Equal(t, "chromelogger_test.user", gjson.GetBytes(data, "rows.0.0.1.___class_name").String())
	assert.Equal(t, "alice", gjson.GetBytes(data, `rows.0.0.1.public Name`).String())
	assert.Equal(t, "recursion - parent object [chromelogger_test.user]", gjson.GetBytes(data, `rows.0.0.1.private friends.0`).String())
	assert.Equal(t, gjson.String, gjson.GetBytes(data, "rows.0.1").Type)
	assert.Equal(t, "log", gjson.GetBytes(data, "rows.0.2").String())

	assert.Equal(t, gjson.Null, gjson.GetBytes(data, "rows.1.1").Type)
	assert.Equal(t, "group", gjson.GetBytes(data, "rows.1.2").String())
	assert.Equal(t, "[]", gjson.GetBytes(data, "rows.2.0").Raw)
	assert.Equal(t, "groupEnd", gjson.GetBytes(data, "rows.2.2").String())
}

func TestFlushCompressed(t *testing.T) {
	t.Parallel()

	settings := chromelogger.DefaultSettings()
	settings.Compress = true
	l := chromelogger.New(chromelogger.WithSettings(settings))
	l.Info(strings.Repeat("compressible ", 100))

	value, err := l.Encode()
	require.NoError(t, err)
	// base64 of the gzip magic number
	assert.True(t, strings.HasPrefix(value, "H4sI"))

	data := flushed(t, l)
	assert.Equal(t, "info", gjson.GetBytes(data, "rows.0.2").String())
	assert.Equal(t, strings.Repeat("compressible ", 100), gjson.GetBytes(data, "rows.0.0.0").String())
}

func TestFlushOversized(t *testing.T) {
	t.Parallel()

	settings := chromelogger.DefaultSettings()
	settings.MaxHeaderBytes = 512
	l := chromelogger.New(chromelogger.WithSettings(settings), chromelogger.WithLogger(log.NewTestLogger(t)))
	for i := range 20 {
		l.Log(strings.Repeat("x", 100), i)
	}

	data := flushed(t, l)
	assert.Equal(t, int64(1), gjson.GetBytes(data, "rows.#").Int())
	assert.Equal(t, "warn", gjson.GetBytes(data, "rows.0.2").String())
	assert.Contains(t, gjson.GetBytes(data, "rows.0.0.0").String(), "20 rows dropped")
}

func TestFlushWithMock(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)

	header := chromelogger.NewMockHeaderWriter(ctrl)
	header.EXPECT().Set(chromelogger.HeaderName, gomock.Any()).Times(1)

	l := chromelogger.New()
	l.Error("boom")
	require.NoError(t, l.Flush(header))

	// no rows, no header
	require.NoError(t, chromelogger.New().Flush(header))
}

func TestDisabled(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	header := chromelogger.NewMockHeaderWriter(ctrl)

	settings := chromelogger.DefaultSettings()
	settings.Enabled = false
	l := chromelogger.New(chromelogger.WithSettings(settings))
	l.Log("ignored")
	l.Trace()

	assert.Empty(t, l.Rows())
	require.NoError(t, l.Flush(header))
}

func TestNilLogger(t *testing.T) {
	t.Parallel()

	l := chromelogger.FromContext(context.Background())
	assert.Nil(t, l)

	assert.NotPanics(t, func() {
		l.Log("x")
		l.Trace("y")
		l.GroupEnd()
	})
	assert.Empty(t, l.Rows())
	assert.NoError(t, l.Flush(http.Header{}))

	value, err := l.Encode()
	require.NoError(t, err)
	assert.NotEmpty(t, value)
}

func TestContext(t *testing.T) {
	t.Parallel()

	l := chromelogger.New()
	ctx := chromelogger.NewContext(context.Background(), l)
	assert.Same(t, l, chromelogger.FromContext(ctx))
}

func TestConcurrentWrites(t *testing.T) {
	t.Parallel()

	l := chromelogger.New()
	g := errgroup.New()
	for i := range 50 {
		g.Go(func() error {
			l.Log("worker", i, map[string]int{"i": i})
			return nil
		})
	}
	require.NoError(t, g.Wait())

	rows := l.Rows()
	assert.Len(t, rows, 50)
	withTrace := 0
	for _, row := range rows {
		if row.Backtrace != nil {
			withTrace++
		}
	}
	assert.Equal(t, 1, withTrace)
}
