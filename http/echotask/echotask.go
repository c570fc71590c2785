// Package echotask wraps an http server using the echo framework as a task, with ChromeLogger
// output available to every handler.
package echotask

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/zircuit-labs/zkr-chromelogger/calm/errgroup"
	"github.com/zircuit-labs/zkr-chromelogger/chromelogger"
	"github.com/zircuit-labs/zkr-chromelogger/config"
	"github.com/zircuit-labs/zkr-chromelogger/http/echotask/healthcheck"
	"github.com/zircuit-labs/zkr-chromelogger/http/port"
	"github.com/zircuit-labs/zkr-chromelogger/log"
	"github.com/zircuit-labs/zkr-chromelogger/xerrors/errclass"
	"github.com/zircuit-labs/zkr-chromelogger/xerrors/stacktrace"
)

// RouteRegistrant is able to register URI routes only.
type RouteRegistrant interface {
	CONNECT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	DELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	HEAD(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	OPTIONS(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	PATCH(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	POST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	PUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	TRACE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

const (
	healthCheckRoute = "/healthcheck"
	metricsRoute     = "/metrics"

	chromeLoggerPath = "chromelogger"
)

// RouteRegistration registers routes.
type RouteRegistration interface {
	RegisterRoutes(RouteRegistrant) error
}

type echoServerConfig struct {
	Port               int
	TLS                bool
	DisableCompression bool `koanf:"nogzip"`
	Prometheus         string
}

type options struct {
	name         string
	routes       []RouteRegistration
	middlewares  []echo.MiddlewareFunc
	cleanup      func()
	healthcheck  healthcheck.Checker
	chromeLogger *chromelogger.Settings
	logger       *slog.Logger
}

// Option is an option func for NewServer.
type Option func(options *options)

// WithLogger sets the logger to be used.
func WithLogger(logger *slog.Logger) Option {
	return func(options *options) {
		options.logger = logger
	}
}

// WithName sets the name of the task.
func WithName(name string) Option {
	return func(options *options) {
		options.name = name
	}
}

// WithRoutes adds routes to be served.
func WithRoutes(routes RouteRegistration) Option {
	return func(options *options) {
		options.routes = append(options.routes, routes)
	}
}

// WithHealthCheck adds a healthcheck route to be served.
func WithHealthCheck(checker healthcheck.Checker) Option {
	return func(options *options) {
		options.healthcheck = checker
	}
}

// WithCleanup sets a cleanup func to be called after server shutdown.
func WithCleanup(f func()) Option {
	return func(options *options) {
		options.cleanup = f
	}
}

// WithMiddleware adds a middleware applied to every route, after the built-in ones.
func WithMiddleware(m echo.MiddlewareFunc) Option {
	return func(options *options) {
		options.middlewares = append(options.middlewares, m)
	}
}

// WithChromeLogger enables ChromeLogger output using the given settings, taking precedence
// over a `chromelogger` section in the server config.
func WithChromeLogger(settings chromelogger.Settings) Option {
	return func(options *options) {
		options.chromeLogger = &settings
	}
}

// Server is an HTTP(S) server using the echo framework.
type Server struct {
	e            *echo.Echo
	name         string
	port         int
	cleanup      func()
	chromeLogger *chromelogger.SettingsStore
	logger       *slog.Logger
}

// NewServer creates an HTTP(S) server using the echo framework that implements the Task interface.
func NewServer(cfg *config.Configuration, cfgPath string, opts ...Option) (*Server, error) {
	// Parse and validate server config
	serverConfig := echoServerConfig{}
	if err := cfg.Unmarshal(cfgPath, &serverConfig); err != nil {
		return nil, err
	}

	// Set up default options
	options := options{
		name:   "echo server",
		logger: log.NewNilLogger(),
	}

	// Apply provided options
	for _, opt := range opts {
		opt(&options)
	}

	// Determine appropriate port
	var p int
	var err error
	if serverConfig.Port != 0 {
		p = serverConfig.Port
	} else {
		p, err = port.AvailablePort()
		if err != nil {
			return nil, err
		}
	}

	if serverConfig.TLS {
		return nil, errclass.WrapAs(stacktrace.Wrap(errors.New("tls is not supported")), errclass.Persistent)
	}

	// ChromeLogger output is available when configured, or when requested explicitly
	var chromeLoggerSettings *chromelogger.SettingsStore
	switch {
	case options.chromeLogger != nil:
		chromeLoggerSettings = chromelogger.NewSettingsStore(*options.chromeLogger)
	case cfg.Exists(joinPath(cfgPath, chromeLoggerPath)):
		settings, err := chromelogger.LoadSettings(cfg, joinPath(cfgPath, chromeLoggerPath))
		if err != nil {
			return nil, err
		}
		chromeLoggerSettings = chromelogger.NewSettingsStore(settings)
	}

	// create the echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.CORS())
	// must run before Recover so that recovered panics reach the console
	if chromeLoggerSettings != nil {
		e.Use(ChromeLoggerFromStore(chromeLoggerSettings, options.logger))
	}
	e.Use(Recover(options.logger))
	e.Pre(middleware.RemoveTrailingSlash())

	// enable gzip compression
	if !serverConfig.DisableCompression {
		e.Use(middleware.Gzip())
	}

	// Apply middlewares
	for _, m := range options.middlewares {
		e.Use(m)
	}

	if serverConfig.Prometheus != "" {
		e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
			Subsystem:                 serverConfig.Prometheus,
			DoNotUseRequestPathFor404: true,
		}))
		e.GET(metricsRoute, echoprometheus.NewHandler()) // register route for getting gathered metrics
	}

	// register routes
	for _, r := range options.routes {
		if err := r.RegisterRoutes(e); err != nil {
			return nil, err
		}
	}

	if options.healthcheck != nil {
		e.GET(healthCheckRoute, healthcheck.New(options.healthcheck).Handle)
	}

	return &Server{
		e:            e,
		port:         p,
		name:         options.name,
		cleanup:      options.cleanup,
		chromeLogger: chromeLoggerSettings,
		logger:       options.logger,
	}, nil
}

// Run implements the Task interface.
func (t *Server) Run(ctx context.Context) error {
	if t.cleanup != nil {
		defer t.cleanup()
	}

	g := errgroup.New()

	// Start the server
	// This is a blocking call, so run it in a goroutine
	g.Go(func() error {
		err := t.e.Start(fmt.Sprintf(":%d", t.port))
		// ErrServerClosed is returned on graceful shutdown
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return stacktrace.Wrap(err)
	})

	// Wait for the Run context to complete
	// This is also blocking
	g.Go(func() error {
		<-ctx.Done()
		return t.e.Shutdown(context.Background())
	})

	return g.Wait()
}

// Handler returns the http.Handler serving all routes.
func (t *Server) Handler() http.Handler {
	return t.e
}

// ChromeLoggerSettings returns the settings used for new requests, or nil when ChromeLogger
// output was not configured. Storing new settings affects subsequent requests.
func (t *Server) ChromeLoggerSettings() *chromelogger.SettingsStore {
	return t.chromeLogger
}

// Port returns the port the server listens on.
func (t *Server) Port() int {
	return t.port
}

// Name returns the name of this task.
func (t *Server) Name() string {
	return fmt.Sprintf("%s on :%d", t.name, t.port)
}

func joinPath(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, ".")
}
