package serialize

import (
	"log/slog"
	"net"
	"os"
	"reflect"
	"time"

	"github.com/zircuit-labs/zkr-chromelogger/xerrors/errclass"
	"github.com/zircuit-labs/zkr-chromelogger/xerrors/errcontext"
	"github.com/zircuit-labs/zkr-chromelogger/xerrors/stacktrace"
)

const (
	errorMessageKey    = "message"
	errorClassKey      = "class"
	errorStackTraceKey = "stacktrace"
	errorContextKey    = "context"
)

var (
	fileType     = reflect.TypeFor[*os.File]()
	connType     = reflect.TypeFor[net.Conn]()
	listenerType = reflect.TypeFor[net.Listener]()
	resourceIfc  = reflect.TypeFor[Resource]()
)

// resourceType names handles to external resources and values that only make sense in-process.
func resourceType(v reflect.Value) (string, bool) {
	t := v.Type()
	switch {
	case t.Kind() == reflect.Chan, t.Kind() == reflect.Func:
		return t.String(), true
	case t.Kind() == reflect.UnsafePointer:
		return "unsafe.Pointer", true
	case v.CanInterface() && t.Implements(resourceIfc) && !isNilPointer(v):
		return v.Interface().(Resource).ResourceType(), true
	case t == fileType:
		return "stream", true
	case t.Implements(connType), t.Implements(listenerType):
		return "socket", true
	}
	return "", false
}

// errorObject renders an error the way the console shows exceptions: its message plus
// whatever stack trace, class and context were attached to it.
func (w *walker) errorObject(v reflect.Value) *Object {
	err := v.Interface().(error)

	obj := NewObject()
	obj.Set(ClassNameKey, typeString(v.Type()))
	obj.Set(errorMessageKey, err.Error())
	if class := errclass.GetClass(err); class > errclass.Unknown {
		obj.Set(errorClassKey, class.String())
	}
	if trace := stacktrace.Extract(err); trace != nil {
		frames := make([]any, len(trace))
		for i, frame := range trace {
			frames[i] = frame.String()
		}
		obj.Set(errorStackTraceKey, frames)
	}
	if ctx := errcontext.Get(err); len(ctx) > 0 {
		obj.Set(errorContextKey, w.value(reflect.ValueOf(ctx.Map()), true))
	}
	return obj
}

func (w *walker) slogValue(sv slog.Value) any {
	sv = sv.Resolve()
	switch sv.Kind() {
	case slog.KindGroup:
		obj := NewObject()
		for _, attr := range sv.Group() {
			obj.Set(attr.Key, w.slogValue(attr.Value))
		}
		return obj
	case slog.KindDuration:
		return sv.Duration().String()
	case slog.KindTime:
		return sv.Time().Format(time.RFC3339Nano)
	default:
		return w.value(reflect.ValueOf(sv.Any()), true)
	}
}
