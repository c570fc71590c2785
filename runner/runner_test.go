package runner

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zircuit-labs/zkr-chromelogger/chromelogger"
	"github.com/zircuit-labs/zkr-chromelogger/config"
	"github.com/zircuit-labs/zkr-chromelogger/log"
	"github.com/zircuit-labs/zkr-chromelogger/task"
	"github.com/zircuit-labs/zkr-chromelogger/xerrors/errclass"
)

const settingsTOML = `
[default.runner]
loglevel = "info"

[default.server.chromelogger]
backtrace_level = 3
compress = true
`

var errTest = errors.New("test error")

func settingsFS() fstest.MapFS {
	return fstest.MapFS{
		"data/settings.toml": &fstest.MapFile{Data: []byte(settingsTOML)},
	}
}

func TestProtectedRun(t *testing.T) { //nolint:paralleltest // sets the global log level
	var settings chromelogger.Settings
	cleaned := false

	run := func(cfg *config.Configuration, tm Runner, _ *slog.Logger) error {
		var err error
		settings, err = chromelogger.LoadSettings(cfg, "server.chromelogger")
		if err != nil {
			return err
		}
		tm.Cleanup(func() { cleaned = true })
		// a task that finishes straight away stops the signal task as well
		tm.Run(task.Func("once", func(context.Context) error { return nil }))
		return nil
	}

	err := protectedRun(settingsFS(), run, log.NewTestLogger(t), options{})
	require.NoError(t, err)
	assert.Equal(t, 3, settings.BacktraceLevel)
	assert.True(t, settings.Compress)
	assert.True(t, cleaned)
}

func TestProtectedRunFailure(t *testing.T) { //nolint:paralleltest // sets the global log level
	run := func(_ *config.Configuration, tm Runner, _ *slog.Logger) error {
		tm.Run(task.Func("forever", func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		}))
		return errTest
	}

	err := protectedRun(settingsFS(), run, log.NewTestLogger(t), options{})
	require.ErrorIs(t, err, errTest)
}

func TestProtectedRunTaskError(t *testing.T) { //nolint:paralleltest // sets the global log level
	run := func(_ *config.Configuration, tm Runner, _ *slog.Logger) error {
		tm.Run(task.Func("broken", func(context.Context) error { return errTest }))
		return nil
	}

	err := protectedRun(settingsFS(), run, log.NewTestLogger(t), options{})
	require.ErrorIs(t, err, errTest)
}

func TestProtectedRunMissingConfig(t *testing.T) {
	t.Parallel()

	run := func(*config.Configuration, Runner, *slog.Logger) error {
		t.Fatal("runnable must not be called")
		return nil
	}

	err := protectedRun(fstest.MapFS{}, run, log.NewTestLogger(t), options{})
	require.Error(t, err)
	assert.Equal(t, errclass.Persistent, errclass.GetClass(err))
}
