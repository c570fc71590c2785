package stacktrace

import "strconv"

const (
	stackSourceFileName     = "source"
	stackSourceLineName     = "line"
	stackSourceFunctionName = "func"
)

// StackTraceMarshaler formats the stack trace of err for structured logging.
// It returns nil when err carries no stack trace.
func StackTraceMarshaler(err error) any {
	trace := Extract(err)
	if trace == nil {
		return nil
	}
	return trace.Maps()
}

// Maps converts the trace into a list of string maps, one per frame.
func (s StackTrace) Maps() []map[string]string {
	out := make([]map[string]string, 0, len(s))
	for _, frame := range s {
		out = append(out, map[string]string{
			stackSourceFileName:     frame.File,
			stackSourceLineName:     strconv.Itoa(frame.LineNumber),
			stackSourceFunctionName: frame.Function,
		})
	}
	return out
}
