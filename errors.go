package gojabridge

import (
	"fmt"

	"github.com/dop251/goja"
)

// TypeError reports a boundary value whose runtime type is not part of
// the supported conversion set. It surfaces synchronously to the caller
// attempting the crossing; it never crashes the process.
type TypeError struct {
	// RuntimeType is the Go type name of the offending value, or a
	// description of the script value when the crossing originates
	// script-side.
	RuntimeType string
}

func (e *TypeError) Error() string {
	return "gojabridge: cannot convert unsupported type " + e.RuntimeType
}

// ConversionError reports a component converter failing on a concrete
// value. It surfaces synchronously to the caller of the conversion
// operation.
type ConversionError struct {
	Cause error
	Kind  Kind
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("gojabridge: %s conversion failed: %v", e.Kind, e.Cause)
}

func (e *ConversionError) Unwrap() error { return e.Cause }

// BridgeProtocolError reports a malformed bridge state: a missing
// registry entry, a missing or malformed component-converter slot, or a
// non-callable resolve/reject slot. These conditions are logged and
// absorbed by the completion entry point, since no caller waits
// synchronously on a completion notification; the type is exported for
// tests and diagnostics.
type BridgeProtocolError struct {
	BridgeID string
	Reason   string
}

func (e *BridgeProtocolError) Error() string {
	return "gojabridge: bridge " + e.BridgeID + ": " + e.Reason
}

// HostInteropError reports a failure in the underlying engine machinery
// during a crossing, e.g. the promise's then capability throwing
// synchronously, or the Promise constructor failing. During the to-host
// direction it becomes a rejection of the produced deferred; before the
// deferred exists it propagates to the caller.
type HostInteropError struct {
	Cause error
	Op    string
}

func (e *HostInteropError) Error() string {
	return fmt.Sprintf("gojabridge: %s: %v", e.Op, e.Cause)
}

func (e *HostInteropError) Unwrap() error { return e.Cause }

// ScriptError is the host representation of a script-side exception or
// rejection reason.
type ScriptError struct {
	// Value is the exported rejection reason or thrown value.
	Value any
	// Name is the error's name property, if the value was an Error-like
	// object ("Error", "TypeError", ...).
	Name string
	// Message is the error's message property, or a string rendering of
	// the value.
	Message string
	// Stack is the script stack trace, when available.
	Stack string
}

func (e *ScriptError) Error() string {
	if e.Name != "" {
		return e.Name + ": " + e.Message
	}
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("script error: %v", e.Value)
}

// newScriptError builds a [ScriptError] from a script value, extracting
// name/message/stack when the value is Error-shaped.
func newScriptError(rt *goja.Runtime, v goja.Value) *ScriptError {
	se := &ScriptError{}
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return se
	}
	se.Value = v.Export()
	if obj, ok := v.(*goja.Object); ok {
		if nameV := obj.Get("name"); nameV != nil && !goja.IsUndefined(nameV) {
			se.Name = nameV.String()
		}
		if msgV := obj.Get("message"); msgV != nil && !goja.IsUndefined(msgV) {
			se.Message = msgV.String()
		}
		if stackV := obj.Get("stack"); stackV != nil && !goja.IsUndefined(stackV) {
			se.Stack = stackV.String()
		}
		return se
	}
	se.Message = v.String()
	return se
}
