package healthcheck

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/zircuit-labs/zkr-chromelogger/chromelogger"
)

//go:generate mockgen -source handler.go -destination mock_handler.go -package healthcheck

type (
	GetHealthCheck struct {
		checker Checker
	}

	Checker interface {
		HealthCheck(ctx context.Context) error
	}
)

func New(checker Checker) *GetHealthCheck {
	return &GetHealthCheck{checker: checker}
}

// Handle reports the result of the check, and mirrors it to the browser console
// when the request carries a chromelogger.Logger.
func (g GetHealthCheck) Handle(c echo.Context) error {
	ctx := c.Request().Context()
	cl := chromelogger.FromContext(ctx)

	if err := g.checker.HealthCheck(ctx); err != nil {
		cl.Error("healthcheck failed", err)
		return c.NoContent(http.StatusInternalServerError)
	}

	resp := NewHealthCheck(time.Now().UTC().String())
	cl.Info("healthcheck", resp)

	return c.JSON(http.StatusOK, resp)
}
