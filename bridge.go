package gojabridge

import (
	"fmt"
	"sync/atomic"

	"github.com/dop251/goja"
)

// componentSlot is the hidden, non-enumerable property on a
// pending-bridge object holding the boxed component converter.
const componentSlot = "__bridge_component"

// completionPayload carries everything a promise callback needs to
// complete a host deferred: the deferred (retained via a global-scope
// handle) and the component converter for the eventual value. The
// fulfillment and rejection callbacks share one payload; whichever
// claims it first wins, and the loser becomes a no-op. The payload is
// tracked by its module until claimed or disposed, so [Module.Close]
// can release handles for promises that never settle.
type completionPayload struct {
	m         *Module
	deferred  *ObjectHandle
	component Converter
	consumed  atomic.Bool
}

// tryConsume claims the payload, releasing the retained handle and
// returning the deferred and converter. Losing the claim is legitimate:
// a callback may fire after then threw synchronously, or after
// [Module.Close] disposed the payload.
func (p *completionPayload) tryConsume() (*Deferred, Converter, bool) {
	if !p.consumed.CompareAndSwap(false, true) {
		return nil, nil, false
	}
	d := p.deferred.Value().(*Deferred)
	p.deferred.Release()
	p.m.forgetPayload(p)
	return d, p.component, true
}

// dispose claims the payload without settling the deferred, dropping
// the retained handle. Used by [Module.Close] for promises that have
// not settled.
func (p *completionPayload) dispose() {
	if !p.consumed.CompareAndSwap(false, true) {
		return
	}
	p.deferred.Release()
	p.m.forgetPayload(p)
}

// promiseShape reports whether v is thenable: an object with a callable
// then property. Detection is structural; any thenable bridges, not
// just native promises.
func promiseShape(v goja.Value) (goja.Callable, *goja.Object, bool) {
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil, nil, false
	}
	thenFn, ok := goja.AssertFunction(obj.Get("then"))
	return thenFn, obj, ok
}

// ToHostDeferred bridges a script value to a host deferred. If v is
// thenable, the returned deferred settles when the promise does, with
// the fulfillment value converted through component (or the rejection
// reason as a [*ScriptError]). Any other value takes the fast path: it
// is converted immediately and the deferred returned already resolved,
// with no bridge registration or callback round trip.
//
// The returned handle is local scope; callers keeping the deferred
// beyond the current call must upgrade it. A fast-path conversion
// failure surfaces synchronously and no deferred is produced.
//
// Must be called on the script thread.
func (m *Module) ToHostDeferred(v goja.Value, component Converter) (*ObjectHandle, error) {
	if component == nil {
		panic("gojabridge: component converter must not be nil")
	}

	thenFn, obj, thenable := promiseShape(v)
	if !thenable {
		hv, err := component.ToHost(v)
		if err != nil {
			return nil, err
		}
		d := NewDeferred()
		d.Resolve(hv)
		return m.handles.NewLocal(d), nil
	}

	d := NewDeferred()
	payload := &completionPayload{m: m, deferred: m.handles.NewGlobal(d), component: component}
	m.trackPayload(payload)

	onFulfilled := m.runtime.ToValue(func(call goja.FunctionCall) goja.Value {
		dd, conv, ok := payload.tryConsume()
		if !ok {
			m.logger.Warning().Log("dropping promise fulfillment: bridge already settled or closed")
			return goja.Undefined()
		}
		hv, err := conv.ToHost(call.Argument(0))
		if err != nil {
			dd.Reject(err)
		} else {
			dd.Resolve(hv)
		}
		return goja.Undefined()
	})
	onRejected := m.runtime.ToValue(func(call goja.FunctionCall) goja.Value {
		dd, _, ok := payload.tryConsume()
		if !ok {
			m.logger.Warning().Log("dropping promise rejection: bridge already settled or closed")
			return goja.Undefined()
		}
		dd.Reject(newScriptError(m.runtime, call.Argument(0)))
		return goja.Undefined()
	})

	if _, err := thenFn(obj, onFulfilled, onRejected); err != nil {
		// then threw synchronously; fail the deferred unless a
		// callback already claimed it.
		if dd, _, ok := payload.tryConsume(); ok {
			dd.Reject(&HostInteropError{Op: "Promise.then", Cause: err})
		}
	}

	return m.handles.NewLocal(d), nil
}

// ToScriptPromise bridges a host deferred to a script promise. The
// handle must reference a [*Deferred] (or nil, which crosses as null).
// The promise settles after the deferred does: settlement is observed
// via the deferred's callback, marshaled onto the script thread through
// the scheduler, and delivered through [Module.Complete] under a fresh
// bridge id. The fulfillment value is converted through component.
//
// The handle is borrowed, not retained; the deferred itself is retained
// by the pending-bridge machinery until completion or [Module.Close].
//
// Must be called on the script thread.
func (m *Module) ToScriptPromise(h *ObjectHandle, component Converter) (goja.Value, error) {
	if component == nil {
		panic("gojabridge: component converter must not be nil")
	}
	if h == nil || h.Value() == nil {
		return goja.Null(), nil
	}
	d, ok := h.Value().(*Deferred)
	if !ok {
		return nil, &TypeError{RuntimeType: fmt.Sprintf("%T", h.Value())}
	}

	obj := m.runtime.NewObject()
	holder := m.runtime.ToValue(&converterHolder{component: component})
	if err := obj.DefineDataProperty(componentSlot, holder, goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_FALSE); err != nil {
		return nil, &HostInteropError{Op: "define component slot", Cause: err}
	}

	// The executor runs synchronously inside the constructor, so the
	// resolve/reject slots are populated before New returns.
	executor := m.runtime.ToValue(func(call goja.FunctionCall) goja.Value {
		_ = obj.Set("resolve", call.Argument(0))
		_ = obj.Set("reject", call.Argument(1))
		return goja.Undefined()
	})
	promiseObj, err := m.runtime.New(m.promiseCtor, executor)
	if err != nil {
		return nil, &HostInteropError{Op: "promise constructor", Cause: err}
	}

	id := m.registry.NextID()
	m.registry.store(id, &pendingBridge{obj: obj, handle: m.handles.NewValue(obj)})

	d.OnSettle(func(fulfilled bool, value any, failure error) {
		var v any
		if fulfilled {
			v = value
		} else {
			v = failure
		}
		if err := m.scheduler.Submit(func() { m.Complete(id, fulfilled, v) }); err != nil {
			m.logger.Warning().Str("bridge_id", id).Err(err).Log("dropping completion notification: scheduler rejected submit")
		}
	})

	return promiseObj, nil
}

// Complete settles the bridged promise registered under bridgeID. On
// fulfillment, value is converted through the bridge's component
// converter and passed to the promise's resolve; on rejection, value
// (an error or script value) becomes the rejection reason. A bridgeID
// with no pending record is a logged no-op, which makes duplicate or
// stale notifications harmless. Conversion failures reject the promise
// rather than leaving it forever pending. Exceptions thrown by the
// settlement capabilities are logged and discarded.
//
// Must be called on the script thread; host code reaches it through
// the scheduler.
func (m *Module) Complete(bridgeID string, isFulfilled bool, value any) {
	pb, ok := m.registry.consume(bridgeID)
	if !ok {
		m.logger.Warning().Str("bridge_id", bridgeID).Log("no pending bridge for completion (already completed or stale notification)")
		return
	}
	defer pb.release()

	var holder *converterHolder
	if slot := pb.obj.Get(componentSlot); slot != nil {
		holder, _ = slot.Export().(*converterHolder)
	}
	if holder == nil || holder.component == nil {
		m.logger.Warning().Err(&BridgeProtocolError{BridgeID: bridgeID, Reason: "missing component converter slot"}).Log("missing component converter slot")
		return
	}

	slotName := "reject"
	if isFulfilled {
		slotName = "resolve"
	}
	fn, ok := goja.AssertFunction(pb.obj.Get(slotName))
	if !ok {
		m.logger.Warning().Err(&BridgeProtocolError{BridgeID: bridgeID, Reason: slotName + " slot is not callable"}).Log("completion slot is not callable")
		return
	}

	var arg goja.Value
	if isFulfilled {
		converted, err := holder.component.ToScript(value)
		if err != nil {
			m.logger.Warning().Str("bridge_id", bridgeID).Err(err).Log("completion value conversion failed; rejecting")
			rejectFn, ok := goja.AssertFunction(pb.obj.Get("reject"))
			if !ok {
				m.logger.Warning().Str("bridge_id", bridgeID).Log("reject slot is not callable")
				return
			}
			if _, callErr := rejectFn(goja.Undefined(), m.runtime.NewGoError(err)); callErr != nil {
				m.logger.Warning().Str("bridge_id", bridgeID).Err(callErr).Log("reject capability threw; discarding")
			}
			return
		}
		arg = converted
	} else {
		arg = m.failureValue(value)
	}

	if _, err := fn(goja.Undefined(), arg); err != nil {
		m.logger.Warning().Str("bridge_id", bridgeID).Err(err).Log("completion capability threw; discarding")
	}
}

// failureValue renders a host-side failure as a script rejection
// reason.
func (m *Module) failureValue(value any) goja.Value {
	switch t := value.(type) {
	case nil:
		return goja.Null()
	case goja.Value:
		return t
	case error:
		return m.runtime.NewGoError(t)
	default:
		return m.runtime.NewGoError(fmt.Errorf("%v", t))
	}
}
