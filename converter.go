package gojabridge

import (
	"fmt"
	"math"
	"reflect"

	"github.com/dop251/goja"
)

// Converter transforms values in both directions across the boundary.
// Implementations are stateless and safe to share; both methods must be
// called on the script thread (they touch script values).
//
// Parametrized converters (boxed, deferred) hold their component
// converter as a field fixed at construction. Callers never pass
// component type information per call.
type Converter interface {
	// Kind identifies the category the converter handles.
	Kind() Kind
	// ToHost converts a script value to its host representation.
	ToHost(v goja.Value) (any, error)
	// ToScript converts a host value to its script representation.
	ToScript(v any) (goja.Value, error)
}

// converterHolder boxes a component converter so it can be stored in a
// hidden slot on a script object and recovered at completion time.
type converterHolder struct {
	component Converter
}

type boolConverter struct{ m *Module }

func (c *boolConverter) Kind() Kind { return KindBoolean }

func (c *boolConverter) ToHost(v goja.Value) (any, error) {
	return v.ToBoolean(), nil
}

func (c *boolConverter) ToScript(v any) (goja.Value, error) {
	b, ok := v.(bool)
	if !ok {
		return nil, &ConversionError{Kind: KindBoolean, Cause: fmt.Errorf("expected bool, got %T", v)}
	}
	return c.m.runtime.ToValue(b), nil
}

type intConverter struct{ m *Module }

func (c *intConverter) Kind() Kind { return KindInteger }

func (c *intConverter) ToHost(v goja.Value) (any, error) {
	f := v.ToFloat()
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return nil, &ConversionError{Kind: KindInteger, Cause: fmt.Errorf("%s is not a 32-bit integer", v.String())}
	}
	return int32(f), nil
}

func (c *intConverter) ToScript(v any) (goja.Value, error) {
	i, ok := v.(int32)
	if !ok {
		return nil, &ConversionError{Kind: KindInteger, Cause: fmt.Errorf("expected int32, got %T", v)}
	}
	return c.m.runtime.ToValue(i), nil
}

type longConverter struct{ m *Module }

func (c *longConverter) Kind() Kind { return KindLong }

func (c *longConverter) ToHost(v goja.Value) (any, error) {
	f := v.ToFloat()
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil, &ConversionError{Kind: KindLong, Cause: fmt.Errorf("%s is not an integer", v.String())}
	}
	return v.ToInteger(), nil
}

func (c *longConverter) ToScript(v any) (goja.Value, error) {
	switch t := v.(type) {
	case int64:
		return c.m.runtime.ToValue(t), nil
	case int:
		return c.m.runtime.ToValue(int64(t)), nil
	default:
		return nil, &ConversionError{Kind: KindLong, Cause: fmt.Errorf("expected int64, got %T", v)}
	}
}

type floatConverter struct{ m *Module }

func (c *floatConverter) Kind() Kind { return KindFloat }

func (c *floatConverter) ToHost(v goja.Value) (any, error) {
	return float32(v.ToFloat()), nil
}

func (c *floatConverter) ToScript(v any) (goja.Value, error) {
	f, ok := v.(float32)
	if !ok {
		return nil, &ConversionError{Kind: KindFloat, Cause: fmt.Errorf("expected float32, got %T", v)}
	}
	return c.m.runtime.ToValue(float64(f)), nil
}

type doubleConverter struct{ m *Module }

func (c *doubleConverter) Kind() Kind { return KindDouble }

func (c *doubleConverter) ToHost(v goja.Value) (any, error) {
	return v.ToFloat(), nil
}

func (c *doubleConverter) ToScript(v any) (goja.Value, error) {
	f, ok := v.(float64)
	if !ok {
		return nil, &ConversionError{Kind: KindDouble, Cause: fmt.Errorf("expected float64, got %T", v)}
	}
	return c.m.runtime.ToValue(f), nil
}

type stringConverter struct{ m *Module }

func (c *stringConverter) Kind() Kind { return KindString }

func (c *stringConverter) ToHost(v goja.Value) (any, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	if et := v.ExportType(); et == nil || et.Kind() != reflect.String {
		return nil, &ConversionError{Kind: KindString, Cause: fmt.Errorf("expected string, got %s", v.String())}
	}
	return v.String(), nil
}

func (c *stringConverter) ToScript(v any) (goja.Value, error) {
	if v == nil {
		return goja.Null(), nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, &ConversionError{Kind: KindString, Cause: fmt.Errorf("expected string, got %T", v)}
	}
	return c.m.runtime.ToValue(s), nil
}

// boxedConverter wraps a primitive converter with nullability: script
// null or undefined crosses as host nil, and host nil crosses back as
// script null. The primitive conversion is delegated to the component.
type boxedConverter struct {
	component Converter
}

func (c *boxedConverter) Kind() Kind { return c.component.Kind() }

func (c *boxedConverter) ToHost(v goja.Value) (any, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	return c.component.ToHost(v)
}

func (c *boxedConverter) ToScript(v any) (goja.Value, error) {
	if v == nil {
		return goja.Null(), nil
	}
	return c.component.ToScript(v)
}

// JSONObject is the host representation of a structured script object:
// the object's JSON text, produced by the engine's own serializer. It
// is opaque to the bridge; the host side decodes it however it likes.
type JSONObject struct {
	Data string
}

func (o *JSONObject) String() string { return o.Data }

// jsonConverter carries structured objects across the boundary as JSON
// text, using the engine's JSON.stringify and JSON.parse. Host-side
// maps and slices are converted directly by the runtime instead.
type jsonConverter struct{ m *Module }

func (c *jsonConverter) Kind() Kind { return KindObject }

func (c *jsonConverter) ToHost(v goja.Value) (any, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	res, err := c.m.jsonStringify(c.m.jsonObj, v)
	if err != nil {
		return nil, &ConversionError{Kind: KindObject, Cause: err}
	}
	if goja.IsUndefined(res) {
		return nil, &ConversionError{Kind: KindObject, Cause: fmt.Errorf("value is not serializable")}
	}
	return &JSONObject{Data: res.String()}, nil
}

func (c *jsonConverter) ToScript(v any) (goja.Value, error) {
	switch t := v.(type) {
	case nil:
		return goja.Null(), nil
	case *JSONObject:
		if t == nil || t.Data == "" {
			return goja.Null(), nil
		}
		parsed, err := c.m.jsonParse(c.m.jsonObj, c.m.runtime.ToValue(t.Data))
		if err != nil {
			return nil, &ConversionError{Kind: KindObject, Cause: err}
		}
		return parsed, nil
	case map[string]any, []any:
		return c.m.runtime.ToValue(t), nil
	default:
		return nil, &ConversionError{Kind: KindObject, Cause: fmt.Errorf("expected structured object, got %T", v)}
	}
}

// objectConverter handles the untyped position: values whose category
// is only known at runtime. Script-side it classifies by the value's
// own type (boolean, number, string, structured object); host-side it
// defers to the dispatcher. Numbers cross as double.
type objectConverter struct {
	m    *Module
	json *jsonConverter
}

func (c *objectConverter) Kind() Kind { return KindObject }

func (c *objectConverter) ToHost(v goja.Value) (any, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	if et := v.ExportType(); et != nil {
		switch et.Kind() {
		case reflect.Bool:
			return v.ToBoolean(), nil
		case reflect.Int64, reflect.Float64:
			return v.ToFloat(), nil
		case reflect.String:
			return v.String(), nil
		}
	}
	if _, ok := v.(*goja.Object); ok {
		return c.json.ToHost(v)
	}
	return nil, &TypeError{RuntimeType: "script value " + v.String()}
}

func (c *objectConverter) ToScript(v any) (goja.Value, error) {
	if h, ok := v.(*ObjectHandle); ok {
		v = h.Value()
	}
	if v == nil {
		return goja.Null(), nil
	}
	switch v.(type) {
	case *JSONObject, map[string]any, []any:
		return c.json.ToScript(v)
	}
	conv, err := c.m.dispatcher.Dispatch(v)
	if err != nil {
		return nil, err
	}
	return conv.ToScript(v)
}

// deferredConverter carries asynchronous values: script promises become
// host deferreds, host deferreds become script promises. The component
// converter fixed at construction converts the eventual value.
type deferredConverter struct {
	m         *Module
	component Converter
}

func (c *deferredConverter) Kind() Kind { return KindDeferred }

func (c *deferredConverter) ToHost(v goja.Value) (any, error) {
	h, err := c.m.ToHostDeferred(v, c.component)
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (c *deferredConverter) ToScript(v any) (goja.Value, error) {
	switch t := v.(type) {
	case nil:
		return goja.Null(), nil
	case *ObjectHandle:
		return c.m.ToScriptPromise(t, c.component)
	case *Deferred:
		h := c.m.handles.NewLocal(t)
		defer h.Release()
		return c.m.ToScriptPromise(h, c.component)
	default:
		return nil, &TypeError{RuntimeType: fmt.Sprintf("%T", v)}
	}
}
