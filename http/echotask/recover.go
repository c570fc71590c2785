package echotask

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/zircuit-labs/zkr-chromelogger/calm"
	"github.com/zircuit-labs/zkr-chromelogger/log"
	"github.com/zircuit-labs/zkr-chromelogger/xerrors/errclass"
)

// Recover converts panics in handlers into errors. A recovered panic is logged, and also shown
// in the browser console as an error row when the ChromeLogger middleware runs before Recover.
func Recover(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := calm.Unpanic(func() error {
				return next(c)
			})
			switch errclass.GetClass(err) {
			case errclass.Nil:
				return nil
			case errclass.Panic:
				logger.Error("middleware recovered from panic", log.ErrAttr(err))
				Logger(c).Error("recovered from panic", err)
				c.Error(err)
				return nil
			default:
				c.Error(err)
				return err
			}
		}
	}
}
