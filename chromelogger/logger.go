// Package chromelogger collects console rows during a request and encodes them into the
// X-ChromeLogger-Data response header read by the ChromeLogger browser extension.
//
// A Logger belongs to one request. Values passed to it are serialized immediately, so later
// changes to them do not affect the output. All methods are safe on a nil *Logger.
package chromelogger

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/zircuit-labs/zkr-chromelogger/backtrace"
	"github.com/zircuit-labs/zkr-chromelogger/collections"
	"github.com/zircuit-labs/zkr-chromelogger/log"
	"github.com/zircuit-labs/zkr-chromelogger/serialize"
)

// write sits between callSite and the public logging method
const callSiteDepth = 1

type options struct {
	settings   Settings
	requestURI string
	logger     *slog.Logger
	serializer *serialize.Serializer
}

// Option is an option func for New.
type Option func(options *options)

// WithSettings replaces the default settings.
func WithSettings(settings Settings) Option {
	return func(options *options) {
		options.settings = settings.normalize()
	}
}

// WithRequestURI records the URI of the request the rows belong to.
func WithRequestURI(uri string) Option {
	return func(options *options) {
		options.requestURI = uri
	}
}

// WithLogger sets the logger used to report encoding problems.
func WithLogger(logger *slog.Logger) Option {
	return func(options *options) {
		options.logger = logger
	}
}

// WithSerializer replaces the serializer applied to logged values.
func WithSerializer(serializer *serialize.Serializer) Option {
	return func(options *options) {
		options.serializer = serializer
	}
}

// Logger accumulates rows for a single response.
type Logger struct {
	settings   Settings
	serializer *serialize.Serializer
	logger     *slog.Logger

	mu         sync.Mutex
	payload    Payload
	backtraces collections.Set[string]
}

// New creates a Logger.
func New(opts ...Option) *Logger {
	options := options{
		settings: DefaultSettings(),
		logger:   log.NewNilLogger(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.serializer == nil {
		options.serializer = serialize.New(serialize.WithLogger(options.logger))
	}

	return &Logger{
		settings:   options.settings,
		serializer: options.serializer,
		logger:     options.logger,
		payload:    NewPayload(options.requestURI),
		backtraces: collections.NewSet[string](),
	}
}

// Settings returns the settings of the logger.
func (l *Logger) Settings() Settings {
	if l == nil {
		return Settings{}
	}
	return l.settings
}

// Write records one row at the given level. Calls without arguments are ignored,
// except for LevelGroupEnd which takes none.
func (l *Logger) Write(level Level, args ...any) {
	l.write(level, args)
}

// Log records a plain console.log row.
func (l *Logger) Log(args ...any) {
	l.write(LevelLog, args)
}

// Info records a console.info row.
func (l *Logger) Info(args ...any) {
	l.write(LevelInfo, args)
}

// Warn records a console.warn row.
func (l *Logger) Warn(args ...any) {
	l.write(LevelWarn, args)
}

// Error records a console.error row.
func (l *Logger) Error(args ...any) {
	l.write(LevelError, args)
}

// Group opens an expanded group titled by args.
func (l *Logger) Group(args ...any) {
	l.write(LevelGroup, args)
}

// GroupCollapsed opens a collapsed group titled by args.
func (l *Logger) GroupCollapsed(args ...any) {
	l.write(LevelGroupCollapsed, args)
}

// GroupEnd closes the innermost open group.
func (l *Logger) GroupEnd(args ...any) {
	l.write(LevelGroupEnd, args)
}

// Table records a console.table row.
func (l *Logger) Table(args ...any) {
	l.write(LevelTable, args)
}

func (l *Logger) write(level Level, args []any) {
	if !l.enabled() {
		return
	}
	if len(args) == 0 && level != LevelGroupEnd {
		return
	}

	var site string
	if !level.IsGroup() {
		site = l.callSite()
	}
	l.record(level, site, args)
}

// writeFrame records a row attributed to frame instead of the caller.
func (l *Logger) writeFrame(level Level, frame backtrace.Frame, args []any) {
	if !l.enabled() || len(args) == 0 {
		return
	}
	var site string
	if !level.IsGroup() {
		site = backtrace.Render(frame, l.settings.BacktraceFormat, l.settings.BasePath)
	}
	l.record(level, site, args)
}

func (l *Logger) record(level Level, site string, args []any) {
	logs := l.serializer.Values(args...)

	var trace *string
	if !level.IsGroup() {
		trace = &site
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.addRow(logs, trace, level, true)
}

// callSite renders the frame selected by BacktraceLevel. It must be called from write.
func (l *Logger) callSite() string {
	frame, _ := backtrace.Caller(callSiteDepth + l.settings.BacktraceLevel)
	return backtrace.Render(frame, l.settings.BacktraceFormat, l.settings.BasePath)
}

// Trace records the current call stack as a group holding one row per frame, starting at
// the frame selected by BacktraceLevel. The group is titled with the JSON of args.
func (l *Logger) Trace(args ...any) {
	if !l.enabled() {
		return
	}

	// Stack(0) is Trace itself, which is level 1
	frames := backtrace.Stack(l.settings.BacktraceLevel - 1)

	encoded := make([]string, len(args))
	for i, v := range l.serializer.Values(args...) {
		data, err := json.Marshal(v)
		if err != nil {
			l.logger.Warn("trace argument could not be encoded", log.ErrAttr(err))
			data = []byte("null")
		}
		encoded[i] = string(data)
	}
	title := fmt.Sprintf("chromelogger.Trace( %s )", strings.Join(encoded, ", "))

	start := LevelGroup
	if l.settings.BacktraceCollapsed {
		start = LevelGroupCollapsed
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.addRow([]any{title}, nil, start, true)
	for _, frame := range frames {
		site := backtrace.Render(frame, l.settings.BacktraceFormat, l.settings.BasePath)
		l.addRow([]any{}, &site, LevelLog, false)
	}
	l.addRow([]any{}, nil, LevelGroupEnd, true)
}

// addRow appends a row. A call site that was already shown is replaced by nil, so that rows
// logged in a loop repeat no backtrace. Trace rows are not deduplicated and are not remembered.
func (l *Logger) addRow(logs []any, trace *string, level Level, unique bool) {
	if unique && trace != nil && l.backtraces.Contains(*trace) {
		trace = nil
	}
	if level.IsGroup() {
		trace = nil
	}
	if unique && trace != nil {
		l.backtraces.Add(*trace)
	}
	l.payload.Rows = append(l.payload.Rows, Row{Logs: logs, Backtrace: trace, Level: level})
}

// Rows returns a copy of the rows recorded so far.
func (l *Logger) Rows() []Row {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Row(nil), l.payload.Rows...)
}

// Payload returns a snapshot of the document that would be sent.
func (l *Logger) Payload() Payload {
	if l == nil {
		return NewPayload("")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	p := l.payload
	p.Rows = append([]Row{}, l.payload.Rows...)
	return p
}

// Encode returns the header value for the rows recorded so far.
func (l *Logger) Encode() (string, error) {
	if l == nil {
		return NewPayload("").Encode(false)
	}
	value, err := l.Payload().Encode(l.Settings().Compress)
	if err != nil {
		l.logger.Error("chromelogger payload could not be encoded", log.ErrAttr(err))
		return "", err
	}
	return value, nil
}

func (l *Logger) enabled() bool {
	return l != nil && l.settings.Enabled
}
