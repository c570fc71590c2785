// Package serialize converts arbitrary Go values into finite, JSON-safe trees for the ChromeLogger console.
//
// Scalars are returned as they are. Slices and arrays become []any, maps and structs become ordered
// *Object nodes. Struct fields are keyed by their decorated name (`public Name`, `private count`,
// `protected Embedded`, `public static Version`) and every struct object starts with a ClassNameKey
// entry naming its type. Reference cycles are broken by tracking the identity of every pointer, map,
// slice and addressable struct entered during a single call; a repeated reference is replaced by a
// marker string.
//
// Serialization never fails: anything that cannot be represented degrades to a descriptive string.
package serialize

import (
	"cmp"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"reflect"
	"slices"
	"strconv"
	"time"

	"github.com/zircuit-labs/zkr-chromelogger/calm"
	"github.com/zircuit-labs/zkr-chromelogger/collections"
	"github.com/zircuit-labs/zkr-chromelogger/log"
)

const (
	recursionMarker   = "recursion"
	resourcePrefix    = "Resource Type: "
	unserializableFmt = "unserializable value [%s]"
)

// LogValuer is implemented by types that provide their own console representation.
// The returned value is serialized in place of the receiver.
type LogValuer interface {
	LogValue() any
}

// Dynamic is implemented by types carrying fields that are not declared in the struct,
// such as attributes collected at runtime. Names clashing with declared fields are ignored.
type Dynamic interface {
	DynamicFields() map[string]any
}

// Resource is implemented by types wrapping an external handle that must never be traversed.
type Resource interface {
	ResourceType() string
}

type options struct {
	fields FieldEnumerator
	logger *slog.Logger
}

// Option is an option func for New.
type Option func(options *options)

// WithFieldEnumerator replaces the reflection based field discovery.
func WithFieldEnumerator(fields FieldEnumerator) Option {
	return func(options *options) {
		options.fields = fields
	}
}

// WithLogger sets the logger used to report values that could not be serialized.
func WithLogger(logger *slog.Logger) Option {
	return func(options *options) {
		options.logger = logger
	}
}

// Serializer converts values into JSON-safe trees. It holds no per-call state and is safe for concurrent use.
type Serializer struct {
	fields FieldEnumerator
	logger *slog.Logger
}

// New creates a Serializer.
func New(opts ...Option) *Serializer {
	options := options{
		fields: defaultReflector,
		logger: log.NewNilLogger(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return &Serializer{fields: options.fields, logger: options.logger}
}

var defaultSerializer = New()

// Value serializes v with the default Serializer.
func Value(v any) any {
	return defaultSerializer.Value(v)
}

// Value serializes v. Each call tracks visited references on its own.
func (s *Serializer) Value(v any) any {
	fallback := fmt.Sprintf(unserializableFmt, typeString(reflect.TypeOf(v)))
	out, err := calm.UnpanicValue[any](fallback, func() any {
		w := &walker{
			fields:  s.fields,
			logger:  s.logger,
			visited: collections.NewSet[identity](),
			valuing: collections.NewSet[reflect.Type](),
		}
		return w.value(reflect.ValueOf(v), true)
	})
	if err != nil {
		s.logger.Warn("value could not be serialized", log.ErrAttr(err))
	}
	return out
}

// Values serializes each argument independently.
func (s *Serializer) Values(args ...any) []any {
	out := make([]any, len(args))
	for i, arg := range args {
		out[i] = s.Value(arg)
	}
	return out
}

// identity distinguishes references by address, not by content. The type is part of the key
// since a struct and its first field share an address; the length tells apart slices sharing
// a backing array.
type identity struct {
	ptr uintptr
	typ reflect.Type
	len int
}

type walker struct {
	fields  FieldEnumerator
	logger  *slog.Logger
	visited collections.Set[identity]
	// types whose LogValue is running on the current path
	valuing collections.Set[reflect.Type]
}

var (
	timeType      = reflect.TypeFor[time.Time]()
	errorType     = reflect.TypeFor[error]()
	stringerType  = reflect.TypeFor[fmt.Stringer]()
	logValuer     = reflect.TypeFor[LogValuer]()
	slogValuer    = reflect.TypeFor[slog.LogValuer]()
	slogValueType = reflect.TypeFor[slog.Value]()
	dynamicType   = reflect.TypeFor[Dynamic]()
)

func (w *walker) value(v reflect.Value, hooks bool) any {
	if !v.IsValid() {
		return nil
	}
	v = accessible(v)
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		return w.value(v.Elem(), hooks)
	}

	if desc, ok := resourceType(v); ok {
		return resource(desc)
	}
	if hooks && v.CanInterface() {
		if out, ok := w.hook(v); ok {
			return out
		}
	}

	switch v.Kind() {
	case reflect.Bool:
		return v.Bool()
	case reflect.Int:
		return int(v.Int())
	case reflect.Int8:
		return int8(v.Int())
	case reflect.Int16:
		return int16(v.Int())
	case reflect.Int32:
		return int32(v.Int())
	case reflect.Int64:
		return v.Int()
	case reflect.Uint:
		return uint(v.Uint())
	case reflect.Uint8:
		return uint8(v.Uint())
	case reflect.Uint16:
		return uint16(v.Uint())
	case reflect.Uint32:
		return uint32(v.Uint())
	case reflect.Uint64:
		return v.Uint()
	case reflect.Uintptr:
		return uintptr(v.Uint())
	case reflect.Float32:
		return finite(v.Float(), float32(v.Float()))
	case reflect.Float64:
		return finite(v.Float(), v.Float())
	case reflect.Complex64, reflect.Complex128:
		return strconv.FormatComplex(v.Complex(), 'g', -1, v.Type().Bits())
	case reflect.String:
		return v.String()
	case reflect.Pointer:
		return w.pointer(v)
	case reflect.Map:
		return w.mapValue(v)
	case reflect.Slice:
		return w.slice(v)
	case reflect.Array:
		return w.elements(v)
	case reflect.Struct:
		return w.object(v)
	default:
		return fmt.Sprintf(unserializableFmt, typeString(v.Type()))
	}
}

// hook applies the custom representation a type may provide. Hooks run code of the logged
// type, so a panicking hook only degrades the value it was asked for.
func (w *walker) hook(v reflect.Value) (any, bool) {
	if isNilPointer(v) {
		return nil, false
	}
	apply := w.hookFor(v.Type())
	if apply == nil {
		return nil, false
	}

	fallback := fmt.Sprintf(unserializableFmt, typeString(v.Type()))
	out, err := calm.UnpanicValue[any](fallback, func() any { return apply(v) })
	if err != nil {
		w.logger.Warn("custom representation failed", slog.String("type", typeString(v.Type())), log.ErrAttr(err))
	}
	return out, true
}

func (w *walker) hookFor(t reflect.Type) func(reflect.Value) any {
	switch {
	case t.Implements(logValuer):
		return w.logValue
	case t.Implements(errorType):
		return func(v reflect.Value) any { return w.errorObject(v) }
	case t.Implements(slogValuer):
		return func(v reflect.Value) any { return w.slogValue(v.Interface().(slog.LogValuer).LogValue()) }
	case t == slogValueType:
		return func(v reflect.Value) any { return w.slogValue(v.Interface().(slog.Value)) }
	case t == timeType:
		return func(v reflect.Value) any { return v.Interface().(time.Time).Format(time.RFC3339Nano) }
	case t.Implements(stringerType) && !isStructLike(t) && !isScalar(t.Kind()):
		return func(v reflect.Value) any { return v.Interface().(fmt.Stringer).String() }
	default:
		return nil
	}
}

func (w *walker) logValue(v reflect.Value) any {
	t := structType(v.Type())
	// a representation leading back to a type being represented is serialized structurally
	if !w.valuing.Insert(t) {
		return w.value(v, false)
	}
	defer w.valuing.Remove(t)

	out := v.Interface().(LogValuer).LogValue()
	ot := reflect.TypeOf(out)
	return w.value(reflect.ValueOf(out), ot == nil || structType(ot) != t)
}

// enter records the identity of a reference and reports whether it is new to this call.
// Empty and zero-sized referents share addresses without being the same value, and cannot
// lead back to an ancestor, so they are not tracked.
func (w *walker) enter(v reflect.Value, length int) bool {
	t := v.Type()
	if length == 0 || t.Kind() == reflect.Pointer && t.Elem().Size() == 0 || t.Kind() == reflect.Slice && t.Elem().Size() == 0 {
		return true
	}
	return w.visited.Insert(identity{ptr: v.Pointer(), typ: t, len: length})
}

// enterStruct is enter for addressable struct values, which can be reached without a pointer,
// for instance through a static field holding a value of its own type.
func (w *walker) enterStruct(v reflect.Value) bool {
	if !v.CanAddr() || v.Type().Size() == 0 {
		return true
	}
	return w.visited.Insert(identity{ptr: v.UnsafeAddr(), typ: v.Type(), len: 1})
}

func (w *walker) pointer(v reflect.Value) any {
	if v.IsNil() {
		return nil
	}
	if !w.enter(v, 1) {
		return recursion(v.Type().Elem())
	}
	return w.value(v.Elem(), true)
}

func (w *walker) slice(v reflect.Value) any {
	if v.IsNil() {
		return nil
	}
	if v.Type().Elem().Kind() == reflect.Uint8 {
		return string(v.Bytes())
	}
	if !w.enter(v, v.Len()) {
		return recursion(v.Type())
	}
	return w.elements(v)
}

func (w *walker) elements(v reflect.Value) []any {
	out := make([]any, v.Len())
	for i := range out {
		out[i] = w.value(v.Index(i), true)
	}
	return out
}

func (w *walker) mapValue(v reflect.Value) any {
	if v.IsNil() {
		return nil
	}
	if !w.enter(v, v.Len()) {
		return recursion(v.Type())
	}

	keys := v.MapKeys()
	slices.SortFunc(keys, compareKeys)

	if isSequence(keys) {
		out := make([]any, len(keys))
		for i, k := range keys {
			out[i] = w.value(v.MapIndex(k), true)
		}
		return out
	}

	obj := NewObject()
	for _, k := range keys {
		name := fmt.Sprint(k)
		if obj.Has(name) {
			// distinct keys printing alike, such as 1 and "1"
			name = fmt.Sprintf("%s (%s)", name, typeString(mapKey(k).Type()))
		}
		obj.Set(name, w.value(v.MapIndex(k), true))
	}
	return obj
}

func (w *walker) object(v reflect.Value) any {
	v = addressable(v)
	t := v.Type()
	if !w.enterStruct(v) {
		return recursion(t)
	}

	obj := NewObject()
	obj.Set(ClassNameKey, typeString(t))

	declared := collections.NewSet[string]()
	for _, f := range w.fields.Fields(v) {
		declared.Add(f.Name)
		obj.Set(f.Key(), w.value(f.Value, true))
	}

	if dyn, ok := dynamicFields(v); ok {
		for _, name := range slices.Sorted(maps.Keys(dyn)) {
			if declared.Contains(name) {
				continue
			}
			declared.Add(name)
			obj.Set(name, w.value(reflect.ValueOf(dyn[name]), true))
		}
	}
	return obj
}

func dynamicFields(v reflect.Value) (map[string]any, bool) {
	switch {
	case v.CanInterface() && v.Type().Implements(dynamicType):
		return v.Interface().(Dynamic).DynamicFields(), true
	case v.CanAddr() && v.Addr().CanInterface() && v.Addr().Type().Implements(dynamicType):
		return v.Addr().Interface().(Dynamic).DynamicFields(), true
	default:
		return nil, false
	}
}

func recursion(t reflect.Type) string {
	if st := structType(t); st.Kind() == reflect.Struct {
		return fmt.Sprintf("%s - parent object [%s]", recursionMarker, typeString(st))
	}
	return recursionMarker
}

func resource(desc string) *Object {
	obj := NewObject()
	obj.Set(ClassNameKey, resourcePrefix+desc)
	return obj
}

// finite keeps finite values as they are; NaN and infinities have no JSON representation.
func finite[T float32 | float64](f float64, v T) any {
	switch {
	case math.IsNaN(f):
		return "NAN"
	case math.IsInf(f, 1):
		return "INF"
	case math.IsInf(f, -1):
		return "-INF"
	default:
		return v
	}
}

// mapKey unwraps keys of maps keyed by an interface type.
func mapKey(k reflect.Value) reflect.Value {
	if k.Kind() == reflect.Interface && !k.IsNil() {
		return k.Elem()
	}
	return k
}

// isSequence reports whether keys, in sorted order, are exactly 0..n-1. No keys at all qualify.
func isSequence(keys []reflect.Value) bool {
	for i, k := range keys {
		k = mapKey(k)
		switch k.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if k.Int() != int64(i) {
				return false
			}
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			if k.Uint() != uint64(i) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func compareKeys(a, b reflect.Value) int {
	a, b = mapKey(a), mapKey(b)
	if a.Kind() == b.Kind() {
		switch a.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return cmp.Compare(a.Int(), b.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			return cmp.Compare(a.Uint(), b.Uint())
		case reflect.Float32, reflect.Float64:
			return cmp.Compare(a.Float(), b.Float())
		case reflect.String:
			return cmp.Compare(a.String(), b.String())
		}
	}
	return cmp.Or(
		cmp.Compare(fmt.Sprint(a), fmt.Sprint(b)),
		cmp.Compare(typeString(a.Type()), typeString(b.Type())),
	)
}

func isScalar(k reflect.Kind) bool {
	switch k {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

func isStructLike(t reflect.Type) bool {
	return structType(t).Kind() == reflect.Struct
}

func isNilPointer(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}

func typeString(t reflect.Type) string {
	if t == nil {
		return "nil"
	}
	return t.String()
}
