package task

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/zircuit-labs/zkr-chromelogger/calm/errgroup"
	"github.com/zircuit-labs/zkr-chromelogger/log"
)

// Manager runs tasks sharing one context. By default the first task to return stops all others.
type Manager struct {
	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
	logger *slog.Logger

	mu      sync.Mutex
	cleanup []func()
}

type options struct {
	logger *slog.Logger
}

// Option is an option func for NewManager.
type Option func(options *options)

// WithLogger sets the logger to be used.
func WithLogger(logger *slog.Logger) Option {
	return func(options *options) {
		options.logger = logger
	}
}

// NewManager creates a Manager.
func NewManager(opts ...Option) *Manager {
	options := options{
		logger: log.NewNilLogger(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		ctx:    ctx,
		cancel: cancel,
		group:  errgroup.New(),
		logger: options.logger,
	}
}

// Run starts the tasks. When any of them returns, the shared context is cancelled.
func (tm *Manager) Run(tasks ...Task) {
	for _, t := range tasks {
		// errgroup recovers panics as errors
		tm.group.Go(tm.runTask(t, true))
	}
}

// RunTerminable starts tasks that may finish on their own without stopping the others.
// An error from one of them still stops everything.
func (tm *Manager) RunTerminable(tasks ...Task) {
	for _, t := range tasks {
		tm.group.Go(tm.runTask(t, false))
	}
}

// Cleanup registers f to run once all tasks have stopped. Cleanup functions run
// in reverse order of registration.
func (tm *Manager) Cleanup(f func()) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.cleanup = append(tm.cleanup, f)
}

// Wait blocks until every task has returned, runs the cleanup functions and
// returns the first error encountered.
func (tm *Manager) Wait() error {
	err := tm.group.Wait()

	tm.mu.Lock()
	cleanup := slices.Clone(tm.cleanup)
	tm.cleanup = nil
	tm.mu.Unlock()

	for _, f := range slices.Backward(cleanup) {
		f()
	}
	return err
}

// Stop cancels the shared context and waits for the tasks to return.
func (tm *Manager) Stop() error {
	tm.cancel()
	return tm.Wait()
}

// Context returns the context shared by all tasks.
func (tm *Manager) Context() context.Context {
	return tm.ctx
}

func (tm *Manager) runTask(t Task, stopOthers bool) func() error {
	return func() error {
		logger := tm.logger.With(slog.String("task", t.Name()))
		logger.Info("task starting")

		if err := t.Run(tm.ctx); err != nil {
			logger.Error("task failed", log.ErrAttr(err))
			tm.cancel()
			return err
		}
		if stopOthers {
			tm.cancel()
		}

		logger.Info("task stopped")
		return nil
	}
}
