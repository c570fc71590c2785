package reload_test

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zircuit-labs/zkr-chromelogger/log"
	"github.com/zircuit-labs/zkr-chromelogger/task/reload"
	"github.com/zircuit-labs/zkr-chromelogger/xerrors/errcontext"
)

const waitTime = 500 * time.Millisecond

var errTest = errors.New("example error")

// recorder reports every call on calls and fails once failAt calls have been made.
type recorder struct {
	name   string
	calls  chan string
	count  int
	failAt int
}

func (r *recorder) Reload(context.Context) error {
	r.count++
	r.calls <- r.name
	if r.failAt > 0 && r.count >= r.failAt {
		return errTest
	}
	return nil
}

func (r *recorder) Name() string {
	return r.name
}

func start(ctx context.Context, task *reload.Task) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- task.Run(ctx)
	}()
	return errCh
}

func next(t *testing.T, calls <-chan string) string {
	t.Helper()
	select {
	case name := <-calls:
		return name
	case <-time.After(waitTime):
		t.Fatal("reloader was not called")
		return ""
	}
}

func TestTrigger(t *testing.T) {
	t.Parallel()

	calls := make(chan string, 10)
	first := &recorder{name: "first", calls: calls}
	second := &recorder{name: "second", calls: calls, failAt: 2}
	task := reload.NewTask(
		reload.WithSignals(),
		reload.WithLogger(log.NewTestLogger(t)),
		reload.WithReloader(first),
		reload.WithReloader(second),
	)
	assert.Equal(t, "reload task", task.Name())

	ctx, cancel := context.WithCancel(t.Context())
	errCh := start(ctx, task)

	for range 3 {
		task.Trigger()
		// reloaders run in registration order; errors do not stop the task
		assert.Equal(t, "first", next(t, calls))
		assert.Equal(t, "second", next(t, calls))
	}

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(waitTime):
		t.Fatal("task did not stop when its context was cancelled")
	}
	assert.Equal(t, 3, first.count)
}

func TestTerminateOnError(t *testing.T) {
	t.Parallel()

	calls := make(chan string, 10)
	failing := &recorder{name: "failing", calls: calls, failAt: 2}
	after := &recorder{name: "after", calls: calls}
	task := reload.NewTask(
		reload.WithSignals(),
		reload.WithTerminateOnError(true),
		reload.WithReloader(failing),
		reload.WithReloader(after),
	)

	errCh := start(t.Context(), task)

	task.Trigger()
	assert.Equal(t, "failing", next(t, calls))
	assert.Equal(t, "after", next(t, calls))

	task.Trigger()
	assert.Equal(t, "failing", next(t, calls))

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, errTest)
		assert.Equal(t, "failing", errcontext.Get(err)["reloader"].String())
	case <-time.After(waitTime):
		t.Fatal("task did not stop after a failed reload")
	}
	assert.Equal(t, 1, after.count)
}

func TestSignal(t *testing.T) {
	t.Parallel()

	calls := make(chan string, 10)
	// SIGWINCH is ignored by default, so a stray delivery cannot kill the test binary
	task := reload.NewTask(
		reload.WithSignals(syscall.SIGWINCH),
		reload.WithReloader(reload.Func("settings", func(context.Context) error {
			calls <- "settings"
			return nil
		})),
	)
	errCh := start(t.Context(), task)

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGWINCH))
	assert.Equal(t, "settings", next(t, calls))

	select {
	case err := <-errCh:
		t.Fatalf("task stopped unexpectedly: %v", err)
	default:
	}
}
