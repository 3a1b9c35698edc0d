package gojabridge

import (
	"errors"
	"sync"

	"github.com/dop251/goja"
	"github.com/joeycumines/logiface"
)

// Module bridges asynchronous values between a [goja.Runtime] and host
// code. Each Module instance is bound to a single runtime and uses a
// [Scheduler] to marshal host-originated completions onto the script
// thread, a [PendingBridgeRegistry] to track unsettled bridged
// promises, and a [HandleTable] to account for live handles.
//
// All methods must be called on the script thread; host code reaches
// [Module.Complete] indirectly through the scheduler.
type Module struct {
	runtime    *goja.Runtime
	scheduler  Scheduler
	registry   *PendingBridgeRegistry
	handles    *HandleTable
	dispatcher *TypeDispatcher
	logger     *logiface.Logger[logiface.Event]

	promiseCtor   goja.Value
	jsonObj       *goja.Object
	jsonStringify goja.Callable
	jsonParse     goja.Callable

	// payloads tracks outstanding script-to-host bridges whose promise
	// has not settled, so Close can release their retained handles.
	payloadMu sync.Mutex
	payloads  map[*completionPayload]struct{}
}

// New creates a new [Module] bound to the given [goja.Runtime].
//
// New panics if runtime is nil, as this is a programming error
// (invariant violation). It returns an error if option validation
// fails, if required options are missing, or if the runtime lacks the
// Promise or JSON intrinsics.
//
// The scheduler must be provided via [WithScheduler]; the registry,
// handle table, and logger are optional.
func New(runtime *goja.Runtime, opts ...Option) (*Module, error) {
	if runtime == nil {
		panic("gojabridge: runtime must not be nil")
	}

	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	promiseCtor := runtime.Get("Promise")
	if promiseCtor == nil || goja.IsUndefined(promiseCtor) {
		return nil, errors.New("gojabridge: runtime has no Promise constructor")
	}

	jsonV := runtime.Get("JSON")
	if jsonV == nil || goja.IsUndefined(jsonV) {
		return nil, errors.New("gojabridge: runtime has no JSON object")
	}
	jsonObj := jsonV.ToObject(runtime)
	jsonStringify, ok := goja.AssertFunction(jsonObj.Get("stringify"))
	if !ok {
		return nil, errors.New("gojabridge: JSON.stringify is not callable")
	}
	jsonParse, ok := goja.AssertFunction(jsonObj.Get("parse"))
	if !ok {
		return nil, errors.New("gojabridge: JSON.parse is not callable")
	}

	m := &Module{
		runtime:       runtime,
		scheduler:     cfg.scheduler,
		registry:      cfg.registry,
		handles:       cfg.handles,
		logger:        cfg.logger,
		promiseCtor:   promiseCtor,
		jsonObj:       jsonObj,
		jsonStringify: jsonStringify,
		jsonParse:     jsonParse,
		payloads:      make(map[*completionPayload]struct{}),
	}
	m.dispatcher = newTypeDispatcher(m)
	return m, nil
}

// Runtime returns the [goja.Runtime] this module is bound to.
func (m *Module) Runtime() *goja.Runtime {
	return m.runtime
}

// Registry returns the pending-bridge registry.
func (m *Module) Registry() *PendingBridgeRegistry {
	return m.registry
}

// Handles returns the handle table.
func (m *Module) Handles() *HandleTable {
	return m.handles
}

// Dispatcher returns the type dispatcher.
func (m *Module) Dispatcher() *TypeDispatcher {
	return m.dispatcher
}

// Close releases all pending-bridge records and outstanding completion
// payloads, dropping their retained script values and deferred handles.
// Bridged promises and deferreds that have not settled will never
// settle after Close; a late settlement on either side is a logged
// no-op. Must be called on the script thread.
func (m *Module) Close() {
	for _, pb := range m.registry.drain() {
		pb.release()
	}
	m.payloadMu.Lock()
	outstanding := make([]*completionPayload, 0, len(m.payloads))
	for p := range m.payloads {
		outstanding = append(outstanding, p)
	}
	m.payloadMu.Unlock()
	for _, p := range outstanding {
		p.dispose()
	}
}

func (m *Module) trackPayload(p *completionPayload) {
	m.payloadMu.Lock()
	m.payloads[p] = struct{}{}
	m.payloadMu.Unlock()
}

func (m *Module) forgetPayload(p *completionPayload) {
	m.payloadMu.Lock()
	delete(m.payloads, p)
	m.payloadMu.Unlock()
}
