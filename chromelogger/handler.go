package chromelogger

import (
	"context"
	"log/slog"
	"slices"

	"github.com/zircuit-labs/zkr-chromelogger/backtrace"
)

// Handler is a slog.Handler copying records into the Logger carried by the context they are
// logged with, before passing them on to the next handler. Records logged without such a
// context only reach the next handler.
//
// The row holds the message, followed by an object of the record's attributes when there are
// any. The backtrace is the call site of the slog method.
type Handler struct {
	next   slog.Handler
	attrs  []slog.Attr
	groups []string
}

var _ slog.Handler = (*Handler)(nil)

// NewHandler wraps next.
func NewHandler(next slog.Handler) *Handler {
	return &Handler{next: next}
}

// Enabled reports whether either the next handler or the console wants the record.
func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level) || FromContext(ctx).enabled()
}

// Handle writes the record to the console and to the next handler.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	if cl := FromContext(ctx); cl.enabled() {
		var recordAttrs []slog.Attr
		r.Attrs(func(a slog.Attr) bool {
			recordAttrs = append(recordAttrs, a)
			return true
		})
		attrs := mergeAttrs(slices.Clone(h.attrs), h.groups, recordAttrs)

		args := []any{r.Message}
		if len(attrs) > 0 {
			args = append(args, slog.GroupValue(attrs...))
		}
		frame, _ := backtrace.FromPC(r.PC)
		cl.writeFrame(levelOf(r.Level), frame, args)
	}

	if !h.next.Enabled(ctx, r.Level) {
		return nil
	}
	return h.next.Handle(ctx, r)
}

// WithAttrs returns a Handler adding attrs, inside the groups opened so far, to every record.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return &Handler{
		next:   h.next.WithAttrs(attrs),
		attrs:  mergeAttrs(slices.Clone(h.attrs), h.groups, attrs),
		groups: h.groups,
	}
}

// WithGroup returns a Handler nesting later attributes under name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &Handler{
		next:   h.next.WithGroup(name),
		attrs:  h.attrs,
		groups: append(slices.Clip(h.groups), name),
	}
}

func levelOf(level slog.Level) Level {
	switch {
	case level >= slog.LevelError:
		return LevelError
	case level >= slog.LevelWarn:
		return LevelWarn
	case level >= slog.LevelInfo:
		return LevelInfo
	default:
		return LevelLog
	}
}

// mergeAttrs adds attrs to dst under the nested groups path. Groups without attributes are dropped.
func mergeAttrs(dst []slog.Attr, groups []string, attrs []slog.Attr) []slog.Attr {
	if len(attrs) == 0 {
		return dst
	}
	if len(groups) == 0 {
		return append(dst, attrs...)
	}

	name := groups[0]
	for i := len(dst) - 1; i >= 0; i-- {
		if dst[i].Key == name && dst[i].Value.Kind() == slog.KindGroup {
			inner := mergeAttrs(slices.Clone(dst[i].Value.Group()), groups[1:], attrs)
			dst[i] = slog.Attr{Key: name, Value: slog.GroupValue(inner...)}
			return dst
		}
	}
	inner := mergeAttrs(nil, groups[1:], attrs)
	return append(dst, slog.Attr{Key: name, Value: slog.GroupValue(inner...)})
}
