package chromelogger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zircuit-labs/zkr-chromelogger/log"
)

//go:generate mockgen -source header.go -destination mock_header.go -package chromelogger

// HeaderWriter receives the encoded header. http.Header satisfies it.
type HeaderWriter interface {
	Set(key, value string)
}

// Flush writes the rows recorded so far to w. Nothing is written when there are no rows.
// A value larger than MaxHeaderBytes is replaced by a single warn row reporting its size.
func (l *Logger) Flush(w HeaderWriter) error {
	if !l.enabled() {
		return nil
	}

	payload := l.Payload()
	if len(payload.Rows) == 0 {
		return nil
	}

	value, err := l.Encode()
	if err != nil {
		return err
	}

	if limit := l.settings.MaxHeaderBytes; limit > 0 && len(value) > limit {
		l.logger.Warn("chromelogger header exceeds size limit",
			slog.Int("size", len(value)),
			slog.Int("limit", limit),
			slog.Int("rows", len(payload.Rows)),
		)

		notice := fmt.Sprintf("chromelogger: %d rows dropped, header of %d bytes exceeds the limit of %d bytes",
			len(payload.Rows), len(value), limit)
		overflow := NewPayload(payload.RequestURI)
		overflow.Rows = []Row{{Logs: []any{notice}, Level: LevelWarn}}

		value, err = overflow.Encode(l.settings.Compress)
		if err != nil {
			l.logger.Error("chromelogger payload could not be encoded", log.ErrAttr(err))
			return err
		}
	}

	w.Set(HeaderName, value)
	return nil
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying l.
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext returns the Logger carried by ctx. When there is none it returns nil,
// which is a valid Logger that records nothing.
func FromContext(ctx context.Context) *Logger {
	l, _ := ctx.Value(contextKey{}).(*Logger)
	return l
}
