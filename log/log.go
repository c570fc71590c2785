// Package log builds the slog loggers used for diagnostics, backed by zerolog.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/neilotoole/slogt"
	"github.com/rs/zerolog"
	slogcommon "github.com/samber/slog-common"
	slogzerolog "github.com/samber/slog-zerolog/v2"

	"github.com/zircuit-labs/zkr-chromelogger/log/identity"
	"github.com/zircuit-labs/zkr-chromelogger/version"
	"github.com/zircuit-labs/zkr-chromelogger/xerrors"
	"github.com/zircuit-labs/zkr-chromelogger/xerrors/errclass"
	"github.com/zircuit-labs/zkr-chromelogger/xerrors/errcontext"
	"github.com/zircuit-labs/zkr-chromelogger/xerrors/stacktrace"
)

const (
	ErrorKey      = "error"
	SourceKey     = "source"
	StackTraceKey = "stacktrace"
	ErrClassKey   = "class"
)

var logLevel = &slog.LevelVar{}

// SetLogLevel parses level (debug, info, warn, error) and applies it to all loggers from NewLogger.
// An empty level leaves the current level unchanged.
func SetLogLevel(level string) error {
	if level != "" {
		return logLevel.UnmarshalText([]byte(level))
	}
	return nil
}

// ErrAttr is a helper for logging error values.
func ErrAttr(err error) slog.Attr {
	return slog.Any(ErrorKey, err)
}

type options struct {
	writer      io.Writer
	serviceName string
	instanceID  string
	version     *version.Information
}

// Option is an option func for NewLogger.
type Option func(options *options)

// WithWriter sets the destination of the log output. Defaults to stdout.
func WithWriter(w io.Writer) Option {
	return func(options *options) {
		options.writer = w
	}
}

// WithServiceName overrides the service name taken from the global identity.
func WithServiceName(name string) Option {
	return func(options *options) {
		options.serviceName = name
	}
}

// WithInstanceID overrides the instance id taken from the global identity.
func WithInstanceID(id string) Option {
	return func(options *options) {
		options.instanceID = id
	}
}

// WithVersion adds build information to every log line.
func WithVersion(info *version.Information) Option {
	return func(options *options) {
		options.version = info
	}
}

// NewTestLogger creates a new logger for testing.
// NOTE: Since this logger uses the testing t.Log method,
// it will only log when the test fails. Additionally,
// it will cause a panic if the logger is called after the
// test has completed. This can be helpful for finding race conditions.
func NewTestLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slogt.New(t, slogt.JSON()).With(slog.String("test", t.Name()))
}

// NewLogger creates a new slog logger backed by zerolog with some standard defaults.
func NewLogger(opts ...Option) (*slog.Logger, error) {
	serviceName, instanceID := identity.WhoAmI()
	options := options{
		writer:      os.Stdout,
		serviceName: serviceName,
		instanceID:  instanceID,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.writer == nil {
		return nil, stacktrace.Wrap(fmt.Errorf("log writer must not be nil"))
	}

	// ms granularity should be sufficient
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	zctx := zerolog.New(options.writer).With().
		Timestamp().
		Str("service", options.serviceName).
		Str("instance", options.instanceID)
	if options.version != nil {
		zctx = zctx.
			Str("git_commit", options.version.GitCommit).
			Str("version", options.version.Version)
	}
	zlogger := zctx.Logger()

	return slog.New(slogzerolog.Option{
		Converter: CustomSlogConverter,
		Level:     logLevel,
		Logger:    &zlogger,
	}.NewZerologHandler()), nil
}

// CustomSlogConverter is a copy of slogcommon.DefaultConverter, except that errors are expanded by replaceError.
func CustomSlogConverter(addSource bool, replaceAttr func(groups []string, a slog.Attr) slog.Attr, loggerAttr []slog.Attr, groups []string, record *slog.Record) map[string]any {
	attrs := slogcommon.AppendRecordAttrsToAttrs(loggerAttr, groups, record)

	attrs = replaceError(attrs)
	if addSource {
		attrs = append(attrs, slogcommon.Source(SourceKey, record))
	}
	attrs = slogcommon.ReplaceAttrs(replaceAttr, []string{}, attrs...)

	return slogcommon.AttrsToMap(attrs...)
}

/*
replaceError looks for a top level "error" attribute and expands it:

	{
		"error": err.Error(),
		"error_context": {
			"error": err.Error(),
			"stacktrace": <the error stacktrace if it exists>,
			"class": <the error class if it exists>,
			"key": <value>, // for each key/value in the error context
		},
	}

Joined errors produce a list of messages under "error" and one
"error_<n>" group per child inside "error_context".
*/
func replaceError(attrs []slog.Attr) []slog.Attr {
	var groupedAttrs [][]any
	replaceAttr := func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) > 1 || a.Key != ErrorKey {
			return a
		}

		err, ok := a.Value.Any().(error)
		if !ok || err == nil {
			return a
		}

		joinedErrs := xerrors.Unjoin(err)
		groupedAttrs = make([][]any, len(joinedErrs))
		errorStrings := make([]string, 0, len(joinedErrs))
		for i, joinedErr := range joinedErrs {
			groupedAttrs[i] = append(groupedAttrs[i], slog.String(ErrorKey, joinedErr.Error()))
			errorStrings = append(errorStrings, joinedErr.Error())

			if trace := stacktrace.StackTraceMarshaler(joinedErr); trace != nil {
				groupedAttrs[i] = append(groupedAttrs[i], slog.Any(StackTraceKey, trace))
			}
			if class := errclass.GetClass(joinedErr); class != errclass.Unknown {
				groupedAttrs[i] = append(groupedAttrs[i], slog.String(ErrClassKey, class.String()))
			}
			for _, attr := range errcontext.Get(joinedErr).Flatten() {
				groupedAttrs[i] = append(groupedAttrs[i], attr)
			}
		}

		if len(joinedErrs) == 1 {
			return slog.String(ErrorKey, err.Error())
		}
		return slog.Any(a.Key, errorStrings)
	}
	results := slogcommon.ReplaceAttrs(replaceAttr, []string{}, attrs...)

	switch len(groupedAttrs) {
	case 0:
		return results
	case 1:
		if len(groupedAttrs[0]) > 1 {
			results = append(results, slog.Group("error_context", groupedAttrs[0]...))
		}
		return results
	}

	groups := make([]slog.Attr, len(groupedAttrs))
	for i, group := range groupedAttrs {
		groups[i] = slog.Group(fmt.Sprintf("error_%d", i), group...)
	}
	return append(results, slog.Any("error_context", groups))
}
