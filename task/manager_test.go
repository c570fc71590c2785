package task_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zircuit-labs/zkr-chromelogger/log"
	"github.com/zircuit-labs/zkr-chromelogger/task"
)

var errTest = errors.New("test error")

// untilCancelled blocks until the shared context ends and then returns err.
func untilCancelled(name string, err error) task.Task {
	return task.Func(name, func(ctx context.Context) error {
		<-ctx.Done()
		return err
	})
}

// after returns err once d has passed.
func after(name string, d time.Duration, err error) task.Task {
	return task.Func(name, func(ctx context.Context) error {
		select {
		case <-time.After(d):
			return err
		case <-ctx.Done():
			return nil
		}
	})
}

func newManager(t *testing.T) (*task.Manager, *[]string) {
	t.Helper()

	tm := task.NewManager(task.WithLogger(log.NewTestLogger(t)))
	var order []string
	tm.Cleanup(func() { order = append(order, "first") })
	tm.Cleanup(func() { order = append(order, "second") })
	return tm, &order
}

func TestStop(t *testing.T) {
	t.Parallel()

	tm, order := newManager(t)
	tm.Run(untilCancelled("a", nil), untilCancelled("b", nil))

	require.NoError(t, tm.Stop())
	assert.Equal(t, []string{"second", "first"}, *order)
	assert.Error(t, tm.Context().Err())
}

func TestStopReturnsTaskError(t *testing.T) {
	t.Parallel()

	tm, order := newManager(t)
	tm.Run(untilCancelled("a", errTest), untilCancelled("b", nil))

	err := tm.Stop()
	require.ErrorIs(t, err, errTest)
	assert.Equal(t, []string{"second", "first"}, *order)
}

func TestFailingTaskStopsOthers(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		tm, order := newManager(t)
		tm.Run(untilCancelled("a", nil), after("b", 100*time.Millisecond, errTest))

		require.ErrorIs(t, tm.Wait(), errTest)
		assert.Equal(t, []string{"second", "first"}, *order)
	})
}

func TestFinishedTaskStopsOthers(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		tm, _ := newManager(t)
		tm.Run(untilCancelled("a", nil), after("b", 100*time.Millisecond, nil))

		require.NoError(t, tm.Wait())
	})
}

func TestTerminableTask(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		tm, order := newManager(t)

		var stillRunning atomic.Bool
		tm.Run(task.Func("long", func(ctx context.Context) error {
			select {
			case <-time.After(200 * time.Millisecond):
				stillRunning.Store(ctx.Err() == nil)
				return errTest
			case <-ctx.Done():
				return nil
			}
		}))
		tm.RunTerminable(after("short", 100*time.Millisecond, nil))

		// the short task finishing does not stop the long one
		require.ErrorIs(t, tm.Wait(), errTest)
		assert.True(t, stillRunning.Load())
		assert.Equal(t, []string{"second", "first"}, *order)
	})
}

func TestPanickingTask(t *testing.T) {
	t.Parallel()

	tm, _ := newManager(t)
	tm.Run(task.Func("panics", func(context.Context) error {
		panic("boom")
	}))

	err := tm.Wait()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestFunc(t *testing.T) {
	t.Parallel()

	tk := task.Func("named", func(context.Context) error { return errTest })
	assert.Equal(t, "named", tk.Name())
	assert.ErrorIs(t, tk.Run(context.Background()), errTest)
}
