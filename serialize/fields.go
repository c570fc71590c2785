package serialize

import (
	"go/token"
	"reflect"
	"strings"
	"sync"
	"unsafe"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// TagName is the struct tag consulted by the Reflector. `chromelogger:"-"` hides a field.
	TagName = "chromelogger"

	defaultPlanCacheSize = 512
)

// Visibility is the declared visibility of a field.
type Visibility int

const (
	Public Visibility = iota
	Protected
	Private
)

// String implements fmt.Stringer.
func (v Visibility) String() string {
	switch v {
	case Public:
		return "public"
	case Protected:
		return "protected"
	default:
		return "private"
	}
}

// FieldInfo describes one declared field of a type.
type FieldInfo struct {
	Name       string
	Visibility Visibility
	Static     bool
}

// Key returns the decorated field name, eg `private static counter`.
func (f FieldInfo) Key() string {
	var b strings.Builder
	b.WriteString(f.Visibility.String())
	if f.Static {
		b.WriteString(" static")
	}
	b.WriteByte(' ')
	b.WriteString(f.Name)
	return b.String()
}

// FieldValue is a declared field together with its current value.
type FieldValue struct {
	FieldInfo
	Value reflect.Value
}

// FieldEnumerator lists the declared fields of a struct value, instance fields first, then static fields.
type FieldEnumerator interface {
	Fields(v reflect.Value) []FieldValue
}

type fieldPlan struct {
	FieldInfo
	index int
}

type staticField struct {
	FieldInfo
	ptr reflect.Value
}

// Reflector is the default FieldEnumerator. It discovers instance fields by reflection
// and caches the per-type field plans.
type Reflector struct {
	plans *lru.Cache[reflect.Type, []fieldPlan]

	mu      sync.RWMutex
	statics map[reflect.Type][]staticField
}

// NewReflector creates a Reflector caching the field plans of up to cacheSize types.
func NewReflector(cacheSize int) *Reflector {
	if cacheSize <= 0 {
		cacheSize = defaultPlanCacheSize
	}
	// New only fails for a non-positive size
	plans, _ := lru.New[reflect.Type, []fieldPlan](cacheSize)
	return &Reflector{
		plans:   plans,
		statics: map[reflect.Type][]staticField{},
	}
}

var defaultReflector = NewReflector(defaultPlanCacheSize)

// RegisterStatic registers the package level variable pointed to by ptr as a static field of T
// on the default Reflector. See Reflector.RegisterStatic.
func RegisterStatic[T any](name string, ptr any) {
	defaultReflector.RegisterStatic(reflect.TypeFor[T](), name, ptr)
}

// RegisterStatic registers the variable pointed to by ptr as a static field named name of type t.
// The variable is read each time a value of type t is serialized. Registering a name twice
// replaces the earlier registration. Non-pointer values are ignored.
func (r *Reflector) RegisterStatic(t reflect.Type, name string, ptr any) {
	pv := reflect.ValueOf(ptr)
	if pv.Kind() != reflect.Pointer || pv.IsNil() {
		return
	}
	t = structType(t)

	field := staticField{
		FieldInfo: FieldInfo{Name: name, Visibility: visibilityOf(name, false), Static: true},
		ptr:       pv,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	fields := r.statics[t]
	for i, f := range fields {
		if f.Name == name {
			fields[i] = field
			return
		}
	}
	r.statics[t] = append(fields, field)
}

// Fields implements FieldEnumerator. v must be a struct.
func (r *Reflector) Fields(v reflect.Value) []FieldValue {
	t := v.Type()
	plan := r.plan(t)

	r.mu.RLock()
	statics := r.statics[t]
	r.mu.RUnlock()

	out := make([]FieldValue, 0, len(plan)+len(statics))
	for _, p := range plan {
		out = append(out, FieldValue{FieldInfo: p.FieldInfo, Value: accessible(v.Field(p.index))})
	}
	for _, s := range statics {
		out = append(out, FieldValue{FieldInfo: s.FieldInfo, Value: s.ptr.Elem()})
	}
	return out
}

func (r *Reflector) plan(t reflect.Type) []fieldPlan {
	if plan, ok := r.plans.Get(t); ok {
		return plan
	}

	plan := make([]fieldPlan, 0, t.NumField())
	for i := range t.NumField() {
		f := t.Field(i)
		if f.Name == "_" || f.Tag.Get(TagName) == "-" {
			continue
		}
		plan = append(plan, fieldPlan{
			FieldInfo: FieldInfo{Name: f.Name, Visibility: visibilityOf(f.Name, f.Anonymous)},
			index:     i,
		})
	}
	r.plans.Add(t, plan)
	return plan
}

// embedded structs are the closest thing Go has to inherited state
func visibilityOf(name string, embedded bool) Visibility {
	switch {
	case embedded:
		return Protected
	case token.IsExported(name):
		return Public
	default:
		return Private
	}
}

func structType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// accessible lifts the read-only restriction reflect places on values reached through
// unexported fields, so that their methods can be inspected. Values that are not
// addressable stay read-only and are serialized through their kind accessors only.
func accessible(v reflect.Value) reflect.Value {
	if !v.IsValid() || v.CanInterface() || !v.CanAddr() {
		return v
	}
	return reflect.NewAt(v.Type(), unsafe.Pointer(v.UnsafeAddr())).Elem()
}

// addressable returns an addressable copy of a struct value so that its fields can be made accessible.
func addressable(v reflect.Value) reflect.Value {
	if v.CanAddr() || !v.CanInterface() {
		return v
	}
	c := reflect.New(v.Type()).Elem()
	c.Set(v)
	return c
}
