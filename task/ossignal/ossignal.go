// Package ossignal provides a Task that ends when the process is asked to stop.
package ossignal

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/zircuit-labs/zkr-chromelogger/log"
)

// DefaultSignals end the task unless overridden with WithSignals.
var DefaultSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
	syscall.SIGQUIT,
}

// Task waits for one of its signals and then returns, stopping the other tasks of its manager.
type Task struct {
	sigCh    chan os.Signal
	received atomic.Value
	logger   *slog.Logger
}

type options struct {
	signals []os.Signal
	logger  *slog.Logger
}

// Option is an option func for NewTask.
type Option func(options *options)

// WithLogger sets the logger to be used.
func WithLogger(logger *slog.Logger) Option {
	return func(options *options) {
		options.logger = logger
	}
}

// WithSignals replaces DefaultSignals.
func WithSignals(signals ...os.Signal) Option {
	return func(options *options) {
		options.signals = signals
	}
}

// NewTask creates a Task. Signals are captured from this point on, even before Run is called.
func NewTask(opts ...Option) *Task {
	options := options{
		signals: DefaultSignals,
		logger:  log.NewNilLogger(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	t := &Task{
		sigCh:  make(chan os.Signal, 1),
		logger: options.logger,
	}
	signal.Notify(t.sigCh, options.signals...)
	return t
}

// Name returns the name of this task.
func (t *Task) Name() string {
	return "os signal task"
}

// Received returns the signal that ended the task, or nil.
func (t *Task) Received() os.Signal {
	sig, _ := t.received.Load().(os.Signal)
	return sig
}

// Run blocks until a signal arrives or ctx is done.
func (t *Task) Run(ctx context.Context) error {
	defer signal.Stop(t.sigCh)

	select {
	case sig := <-t.sigCh:
		t.received.Store(sig)
		// an unexpected stop is worth an alert, so this is not logged as info
		t.logger.Error("os signal received", slog.String("signal", sig.String()))
	case <-ctx.Done():
	}
	return nil
}
