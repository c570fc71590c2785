package log

import (
	"context"
	"log/slog"
)

// NewNilLogger creates a logger that discards all logs.
func NewNilLogger() *slog.Logger {
	return slog.New(NilHandler{})
}

// NilHandler is a slog.Handler that is never enabled.
type NilHandler struct{}

func (NilHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (NilHandler) Handle(context.Context, slog.Record) error { return nil }
func (h NilHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h NilHandler) WithGroup(string) slog.Handler           { return h }
