// Command chromelogger-demo serves a few endpoints that send their debug output to the
// browser console through the X-ChromeLogger-Data header.
package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/zircuit-labs/zkr-chromelogger/chromelogger"
	"github.com/zircuit-labs/zkr-chromelogger/config"
	"github.com/zircuit-labs/zkr-chromelogger/http/echotask"
	"github.com/zircuit-labs/zkr-chromelogger/runner"
	"github.com/zircuit-labs/zkr-chromelogger/task"
	"github.com/zircuit-labs/zkr-chromelogger/task/reload"
	"github.com/zircuit-labs/zkr-chromelogger/xerrors/stacktrace"
)

const (
	serviceName = "chromelogger-demo"
	serverPath  = "server"

	dirFlag  = "dir"
	fileFlag = "settings"
)

type flagData struct {
	dir      string
	settings string
}

func addFlags(flags *pflag.FlagSet, data *flagData) {
	flags.StringVar(&data.dir, dirFlag, ".", "directory the settings file is read from")
	flags.StringVar(&data.settings, fileFlag, "data/settings.toml", "settings file, relative to --dir")
}

func newMainCommand() *cobra.Command {
	var data flagData
	cmd := &cobra.Command{
		Use:   serviceName,
		Short: "Serve endpoints that log to the browser console",
		Long: `Serve endpoints that log to the browser console.

Open the routes under /demo with a ChromeLogger capable browser extension installed.
Send SIGHUP to re-read the chromelogger section of the settings file.`,
		Args: cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if _, err := os.Stat(data.dir); err != nil {
				return stacktrace.Wrap(err)
			}
			f := os.DirFS(data.dir)
			runner.Run(serviceName, f, serve(f, data.settings), runner.WithConfigOptions(config.WithFilePath(data.settings)))
			return nil
		},
	}
	addFlags(cmd.Flags(), &data)
	return cmd
}

// serve builds the Runnable starting the http server and the settings reload task.
func serve(f fs.FS, settingsPath string) runner.Runnable {
	return func(cfg *config.Configuration, tm runner.Runner, logger *slog.Logger) error {
		// records logged with a request context also reach the browser console
		logger = slog.New(chromelogger.NewHandler(logger.Handler()))

		srv, err := echotask.NewServer(cfg, serverPath,
			echotask.WithName(serviceName),
			echotask.WithRoutes(demoRoutes{logger: logger}),
			echotask.WithHealthCheck(alwaysHealthy{}),
			echotask.WithLogger(logger),
		)
		if err != nil {
			return err
		}

		tasks := []task.Task{srv}
		if store := srv.ChromeLoggerSettings(); store != nil {
			tasks = append(tasks, reload.NewTask(
				reload.WithLogger(logger),
				reload.WithReloader(reload.Func("chromelogger settings", func(context.Context) error {
					fresh, err := config.NewConfiguration(f, config.WithFilePath(settingsPath))
					if err != nil {
						return err
					}
					return store.Reload(fresh, serverPath+".chromelogger")
				})),
			))
		}

		for _, t := range tasks {
			tm.Run(t)
		}
		logger.Info("listening", slog.Int("port", srv.Port()))
		return nil
	}
}

type alwaysHealthy struct{}

func (alwaysHealthy) HealthCheck(context.Context) error {
	return nil
}

func main() {
	if err := newMainCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
