package echotask

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/zircuit-labs/zkr-chromelogger/chromelogger"
	"github.com/zircuit-labs/zkr-chromelogger/log"
)

// ChromeLoggerKey is the echo context key holding the request's *chromelogger.Logger.
const ChromeLoggerKey = "chromelogger"

// ChromeLogger attaches a fresh chromelogger.Logger to every request, both to the echo context
// and to the request context, and writes the X-ChromeLogger-Data header just before the
// response is committed.
func ChromeLogger(settings chromelogger.Settings, logger *slog.Logger) echo.MiddlewareFunc {
	return ChromeLoggerFromStore(chromelogger.NewSettingsStore(settings), logger)
}

// ChromeLoggerFromStore is ChromeLogger reading the settings from store at the start of each request.
func ChromeLoggerFromStore(store *chromelogger.SettingsStore, logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			cl := chromelogger.New(
				chromelogger.WithSettings(store.Load()),
				chromelogger.WithRequestURI(req.RequestURI),
				chromelogger.WithLogger(logger),
			)

			c.Set(ChromeLoggerKey, cl)
			c.SetRequest(req.WithContext(chromelogger.NewContext(req.Context(), cl)))

			res := c.Response()
			res.Before(func() {
				if err := cl.Flush(res.Header()); err != nil {
					logger.Warn("chromelogger header not written", slog.String("uri", req.RequestURI), log.ErrAttr(err))
				}
			})

			return next(c)
		}
	}
}

// Logger returns the request's chromelogger.Logger, or nil when the middleware is not installed.
// The nil Logger is safe to use and records nothing.
func Logger(c echo.Context) *chromelogger.Logger {
	if cl, ok := c.Get(ChromeLoggerKey).(*chromelogger.Logger); ok {
		return cl
	}
	return chromelogger.FromContext(c.Request().Context())
}
