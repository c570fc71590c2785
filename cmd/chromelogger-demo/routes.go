package main

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/zircuit-labs/zkr-chromelogger/http/echotask"
	"github.com/zircuit-labs/zkr-chromelogger/xerrors/errclass"
	"github.com/zircuit-labs/zkr-chromelogger/xerrors/errcontext"
	"github.com/zircuit-labs/zkr-chromelogger/xerrors/stacktrace"
)

type author struct {
	Name  string
	Books []*book
}

type book struct {
	Title     string
	Published time.Time
	Author    *author
	isbn      string
}

type demoRoutes struct {
	logger *slog.Logger
}

func (d demoRoutes) RegisterRoutes(r echotask.RouteRegistrant) error {
	r.GET("/demo/scalars", scalars)
	r.GET("/demo/objects", objects)
	r.GET("/demo/groups", groups)
	r.GET("/demo/trace", trace)
	r.GET("/demo/error", failure)
	r.GET("/demo/slog", d.structured)
	return nil
}

func scalars(c echo.Context) error {
	cl := echotask.Logger(c)
	cl.Log("a string", 42, 3.14, true, nil)
	cl.Info("request from", c.RealIP())
	cl.Warn("slow request threshold", 250*time.Millisecond)
	cl.Error("not really an error")
	return c.String(http.StatusOK, "scalars logged\n")
}

func objects(c echo.Context) error {
	cl := echotask.Logger(c)

	// the author and the book point at each other
	a := &author{Name: "Ursula K. Le Guin"}
	a.Books = []*book{
		{Title: "The Dispossessed", Published: time.Date(1974, time.May, 1, 0, 0, 0, 0, time.UTC), Author: a, isbn: "0-06-012563-2"},
	}
	cl.Log("author", a)
	cl.Log("headers", c.Request().Header)
	cl.Log("attrs", slog.GroupValue(slog.String("route", c.Path()), slog.Int("status", http.StatusOK)))
	return c.String(http.StatusOK, "objects logged\n")
}

func groups(c echo.Context) error {
	cl := echotask.Logger(c)
	cl.Group("request")
	cl.Log("method", c.Request().Method)
	cl.GroupCollapsed("query")
	for key, values := range c.QueryParams() {
		cl.Log(key, values)
	}
	cl.GroupEnd()
	cl.GroupEnd()
	cl.Table([]map[string]any{
		{"name": "alpha", "value": 1},
		{"name": "beta", "value": 2},
	})
	return c.String(http.StatusOK, "groups logged\n")
}

func trace(c echo.Context) error {
	echotask.Logger(c).Trace("trace", c.Path())
	return c.String(http.StatusOK, "trace logged\n")
}

func failure(c echo.Context) error {
	err := errcontext.Add(
		errclass.WrapAs(stacktrace.Wrap(errors.New("lookup failed")), errclass.Transient),
		slog.String("path", c.Path()),
	)
	echotask.Logger(c).Error("handler error", err)
	return c.String(http.StatusOK, "error logged\n")
}

func (d demoRoutes) structured(c echo.Context) error {
	ctx := c.Request().Context()
	logger := d.logger.With(slog.String("route", c.Path()))
	logger.DebugContext(ctx, "only in the console")
	logger.InfoContext(ctx, "handled", slog.Group("request", slog.String("method", c.Request().Method)))
	return c.String(http.StatusOK, "slog records logged\n")
}
