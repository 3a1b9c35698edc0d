package gojabridge

import (
	"fmt"
	"reflect"
)

// Kind enumerates the closed set of boundary value categories. Every
// value crossing the boundary is classified into exactly one kind; a
// value matching none is [KindUnknown] and cannot cross.
type Kind int

const (
	KindUnknown Kind = iota
	KindBoolean
	KindInteger
	KindLong
	KindFloat
	KindDouble
	KindString
	KindObject
	KindDeferred
)

func (k Kind) String() string {
	switch k {
	case KindBoolean:
		return "boolean"
	case KindInteger:
		return "integer"
	case KindLong:
		return "long"
	case KindFloat:
		return "float"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	case KindDeferred:
		return "deferred"
	default:
		return "unknown"
	}
}

// TypeDispatcher classifies host values into kinds and maps kinds to
// their converters. The classification table is keyed on concrete
// [reflect.Type] and built once at construction; dispatch is a map
// lookup, never a type-name string comparison.
type TypeDispatcher struct {
	table      map[reflect.Type]Kind
	converters map[Kind]Converter
}

func newTypeDispatcher(m *Module) *TypeDispatcher {
	d := &TypeDispatcher{
		table: map[reflect.Type]Kind{
			reflect.TypeOf(false):               KindBoolean,
			reflect.TypeOf(int32(0)):            KindInteger,
			reflect.TypeOf(int64(0)):            KindLong,
			reflect.TypeOf(int(0)):              KindLong,
			reflect.TypeOf(float32(0)):          KindFloat,
			reflect.TypeOf(float64(0)):          KindDouble,
			reflect.TypeOf(""):                  KindString,
			reflect.TypeOf((*JSONObject)(nil)):  KindObject,
			reflect.TypeOf(map[string]any(nil)): KindObject,
			reflect.TypeOf([]any(nil)):          KindObject,
			reflect.TypeOf((*Deferred)(nil)):    KindDeferred,
		},
	}
	object := &objectConverter{m: m, json: &jsonConverter{m: m}}
	d.converters = map[Kind]Converter{
		KindBoolean:  &boxedConverter{component: &boolConverter{m: m}},
		KindInteger:  &boxedConverter{component: &intConverter{m: m}},
		KindLong:     &boxedConverter{component: &longConverter{m: m}},
		KindFloat:    &boxedConverter{component: &floatConverter{m: m}},
		KindDouble:   &boxedConverter{component: &doubleConverter{m: m}},
		KindString:   &stringConverter{m: m},
		KindObject:   object,
		KindDeferred: &deferredConverter{m: m, component: object},
	}
	return d
}

// Classify maps a host value to its kind. Handles are unwrapped to
// their referenced value first. nil classifies as [KindObject] (it
// crosses as script null). Unrecognized types classify as
// [KindUnknown].
func (d *TypeDispatcher) Classify(v any) Kind {
	if h, ok := v.(*ObjectHandle); ok {
		v = h.Value()
	}
	if v == nil {
		return KindObject
	}
	if k, ok := d.table[reflect.TypeOf(v)]; ok {
		return k
	}
	return KindUnknown
}

// ConverterFor returns the converter for a kind.
func (d *TypeDispatcher) ConverterFor(k Kind) (Converter, error) {
	c, ok := d.converters[k]
	if !ok {
		return nil, &TypeError{RuntimeType: k.String()}
	}
	return c, nil
}

// Dispatch classifies a host value and returns its converter, or a
// [TypeError] naming the offending type.
func (d *TypeDispatcher) Dispatch(v any) (Converter, error) {
	k := d.Classify(v)
	if k == KindUnknown {
		return nil, &TypeError{RuntimeType: fmt.Sprintf("%T", v)}
	}
	return d.converters[k], nil
}
