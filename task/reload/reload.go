// Package reload provides a Task that re-reads configuration, on SIGHUP or on demand,
// without restarting the process.
package reload

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/zircuit-labs/zkr-chromelogger/log"
	"github.com/zircuit-labs/zkr-chromelogger/xerrors/errcontext"
	"github.com/zircuit-labs/zkr-chromelogger/xerrors/stacktrace"
)

// DefaultSignals trigger a reload unless overridden with WithSignals.
var DefaultSignals = []os.Signal{syscall.SIGHUP}

// Reloader applies fresh configuration to a running component.
type Reloader interface {
	// Reload should honor ctx if it may take a while.
	Reload(ctx context.Context) error

	// Name identifies the reloader in logs.
	Name() string
}

type funcReloader struct {
	name   string
	reload func(context.Context) error
}

func (r funcReloader) Reload(ctx context.Context) error {
	return r.reload(ctx)
}

func (r funcReloader) Name() string {
	return r.name
}

// Func adapts a function to the Reloader interface.
func Func(name string, reload func(context.Context) error) Reloader {
	return funcReloader{name: name, reload: reload}
}

// Task runs its reloaders, in order, every time it is triggered.
type Task struct {
	sigCh            chan os.Signal
	triggerCh        chan struct{}
	reloaders        []Reloader
	terminateOnError bool
	logger           *slog.Logger
}

type options struct {
	signals          []os.Signal
	reloaders        []Reloader
	terminateOnError bool
	logger           *slog.Logger
}

// Option is an option func for NewTask.
type Option func(options *options)

// WithLogger sets the logger to be used.
func WithLogger(logger *slog.Logger) Option {
	return func(options *options) {
		options.logger = logger
	}
}

// WithTerminateOnError makes the task return the first reload error. By default errors are
// logged and the previous configuration stays in place.
func WithTerminateOnError(terminate bool) Option {
	return func(options *options) {
		options.terminateOnError = terminate
	}
}

// WithSignals replaces DefaultSignals. With no signals the task only reloads on Trigger.
func WithSignals(signals ...os.Signal) Option {
	return func(options *options) {
		options.signals = signals
	}
}

// WithReloader adds a reloader.
func WithReloader(r Reloader) Option {
	return func(options *options) {
		options.reloaders = append(options.reloaders, r)
	}
}

// NewTask creates a reload Task.
func NewTask(opts ...Option) *Task {
	options := options{
		signals: DefaultSignals,
		logger:  log.NewNilLogger(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	t := &Task{
		sigCh:            make(chan os.Signal, 1),
		triggerCh:        make(chan struct{}, 1),
		reloaders:        options.reloaders,
		terminateOnError: options.terminateOnError,
		logger:           options.logger,
	}
	if len(options.signals) > 0 {
		signal.Notify(t.sigCh, options.signals...)
	}
	return t
}

// Name returns the name of this task.
func (t *Task) Name() string {
	return "reload task"
}

// Trigger requests a reload. Requests made while one is pending are merged.
func (t *Task) Trigger() {
	select {
	case t.triggerCh <- struct{}{}:
	default:
	}
}

// Run reloads on every trigger until ctx is done or, with WithTerminateOnError, a reload fails.
func (t *Task) Run(ctx context.Context) error {
	defer signal.Stop(t.sigCh)

	for {
		select {
		case sig := <-t.sigCh:
			t.logger.Info("signal received, reloading", slog.String("signal", sig.String()))
		case <-t.triggerCh:
			t.logger.Info("reload triggered")
		case <-ctx.Done():
			return nil
		}

		if err := t.reload(ctx); err != nil {
			return err
		}
	}
}

func (t *Task) reload(ctx context.Context) error {
	for _, r := range t.reloaders {
		if err := r.Reload(ctx); err != nil {
			t.logger.Error("reload failed", log.ErrAttr(err), slog.String("reloader", r.Name()))
			if t.terminateOnError {
				return errcontext.Add(stacktrace.Wrap(err), slog.String("reloader", r.Name()))
			}
			continue
		}
		t.logger.Debug("reloaded", slog.String("reloader", r.Name()))
	}
	return nil
}
