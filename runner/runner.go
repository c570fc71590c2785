// Package runner hosts the boilerplate shared by every binary: logging, configuration,
// panic protection and task management.
package runner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/zircuit-labs/zkr-chromelogger/calm"
	"github.com/zircuit-labs/zkr-chromelogger/config"
	"github.com/zircuit-labs/zkr-chromelogger/log"
	"github.com/zircuit-labs/zkr-chromelogger/log/identity"
	"github.com/zircuit-labs/zkr-chromelogger/task"
	"github.com/zircuit-labs/zkr-chromelogger/task/ossignal"
	"github.com/zircuit-labs/zkr-chromelogger/version"
	"github.com/zircuit-labs/zkr-chromelogger/xerrors/errclass"
	"github.com/zircuit-labs/zkr-chromelogger/xerrors/stacktrace"
)

const (
	exitError = 1
	exitPanic = 2 // go standard exit code on panic
	cfgPath   = "runner"

	serviceNameEnv = "SERVICE_NAME"
)

type runnerConfig struct {
	LogLevel string
}

type options struct {
	useProvidedName bool
	configOptions   []config.Option
}

// Option is an option func for Run.
type Option func(options *options)

// UseProvidedName ignores the SERVICE_NAME environment variable.
func UseProvidedName() Option {
	return func(options *options) {
		options.useProvidedName = true
	}
}

// WithConfigOptions passes options through to config.NewConfiguration.
func WithConfigOptions(opts ...config.Option) Option {
	return func(options *options) {
		options.configOptions = append(options.configOptions, opts...)
	}
}

// Runner limits task manager interface.
type Runner interface {
	Run(tasks ...task.Task)
	RunTerminable(tasks ...task.Task)
	Cleanup(f func())
	Context() context.Context
}

// Runnable is a func that takes arguments provided by Run.
type Runnable func(cfg *config.Configuration, tm Runner, logger *slog.Logger) error

// Run abstracts away common boilerplate from `main()` for standardized services.
func Run(serviceName string, f fs.FS, run Runnable, opts ...Option) {
	options := options{}
	for _, opt := range opts {
		opt(&options)
	}

	// Get the service name from the environment.
	name, ok := os.LookupEnv(serviceNameEnv)
	// If does not exist or option set, use provide name instead.
	if !ok || options.useProvidedName {
		name = serviceName
	}
	identity.SetServiceName(name)
	n, id := identity.WhoAmI()

	// create logger
	logger, err := log.NewLogger(
		log.WithServiceName(n),
		log.WithInstanceID(id),
		log.WithVersion(&version.Info),
	)
	if err != nil {
		fmt.Printf("failed to create logger: %s\n", err)
		os.Exit(exitError) //revive:disable:deep-exit // intentional
	}

	// execute the core run logic protected from direct panics.
	// NOTE: goroutines spawned by `run` must be themselves protected.
	err = calm.Unpanic(func() error {
		return protectedRun(f, run, logger, options)
	})

	switch errclass.GetClass(err) {
	case errclass.Nil:
		logger.Info("service exited normally")
	case errclass.Panic:
		logger.Error("service failed with panic", log.ErrAttr(err))
		os.Exit(exitPanic) //revive:disable:deep-exit // intentional
	default:
		logger.Error("service failed with error", log.ErrAttr(err))
		os.Exit(exitError) //revive:disable:deep-exit // intentional
	}
}

func protectedRun(f fs.FS, run Runnable, logger *slog.Logger, opts options) error {
	// get config information
	cfg, err := config.NewConfiguration(f, opts.configOptions...)
	if err != nil {
		return stacktrace.Wrap(err)
	}

	serverConfig := runnerConfig{}
	if err := cfg.Unmarshal(cfgPath, &serverConfig); err != nil {
		return stacktrace.Wrap(err)
	}

	if err := log.SetLogLevel(serverConfig.LogLevel); err != nil {
		logger.Error("failed to set log level", log.ErrAttr(err))
	}

	// create task manager
	tm := task.NewManager(task.WithLogger(logger))

	// start os signal task
	tm.Run(ossignal.NewTask(ossignal.WithLogger(logger)))

	// execute the Runnable
	err = run(cfg, tm, logger)
	// if the Runnable fails, stop any running tasks and terminate now
	if err != nil {
		_ = tm.Stop() // ignore any error from Stop()
		return err
	}

	// otherwise wait for running tasks to complete
	return tm.Wait()
}
