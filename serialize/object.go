package serialize

import (
	"bytes"
	"encoding/json"
)

// ClassNameKey is the key of the leading entry naming the type of a serialized object.
const ClassNameKey = "___class_name"

// Field is a single entry of an Object.
type Field struct {
	Key   string
	Value any
}

// Object is an ordered key/value node. It marshals to a JSON object with its keys in insertion order.
type Object struct {
	fields []Field
	index  map[string]int
}

// NewObject returns an empty Object.
func NewObject() *Object {
	return &Object{index: map[string]int{}}
}

// Set adds key, or replaces its value if the key is already present.
func (o *Object) Set(key string, value any) {
	if i, ok := o.index[key]; ok {
		o.fields[i].Value = value
		return
	}
	o.index[key] = len(o.fields)
	o.fields = append(o.fields, Field{Key: key, Value: value})
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (any, bool) {
	i, ok := o.index[key]
	if !ok {
		return nil, false
	}
	return o.fields[i].Value, true
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.index[key]
	return ok
}

// ClassName returns the type name recorded in the object, if any.
func (o *Object) ClassName() string {
	name, _ := o.Get(ClassNameKey)
	s, _ := name.(string)
	return s
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	keys := make([]string, len(o.fields))
	for i, f := range o.fields {
		keys[i] = f.Key
	}
	return keys
}

// Fields returns a copy of the entries in insertion order.
func (o *Object) Fields() []Field {
	return append([]Field(nil), o.fields...)
}

// Len returns the number of entries.
func (o *Object) Len() int {
	return len(o.fields)
}

// MarshalJSON implements json.Marshaler.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range o.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
