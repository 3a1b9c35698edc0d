// Package gojabridge bridges asynchronous values between native Go and
// the goja JavaScript runtime. A JavaScript promise can be exposed to Go
// as a [Deferred], and a Go [Deferred] can be exposed to JavaScript as a
// Promise, with completion propagating correctly regardless of which side
// settles first and which goroutine performs the settlement.
//
// # Overview
//
// The module has two tightly coupled halves:
//
//   - The async value bridge: [Module.ToHostDeferred] wraps a script
//     promise as a host deferred; [Module.ToScriptPromise] wraps a host
//     deferred as a script promise, registering it in a
//     [PendingBridgeRegistry] so a later completion event can locate it
//     by id. [Module.Complete] is the completion entry point invoked on
//     the script thread when a host deferred settles.
//   - The dynamic type dispatcher: [TypeDispatcher] classifies an untyped
//     value crossing the boundary by its runtime identity and selects the
//     matching [Converter], recursively for nested untyped values.
//
// All values stay in-process; conversion is in-memory representation
// conversion only. There is no wire protocol and no serialization for
// persistence.
//
// # Threading
//
// The goja runtime is not thread-safe and executes cooperatively on a
// single goroutine, typically a [github.com/dop251/goja_nodejs/eventloop]
// loop. Go deferreds may settle on any goroutine. The bridge is the seam
// between the two models:
//
//   - [Module.ToHostDeferred], [Module.ToScriptPromise], and
//     [Module.Complete] must only be called on the script thread.
//   - When a deferred settles off the script thread, the settle
//     notification is marshaled onto the script thread through the
//     configured [Scheduler] before [Module.Complete] runs. The bridge
//     never blocks a goroutine waiting for a result: both directions are
//     event-driven.
//
// # Completion semantics
//
// Each deferred and each bridged promise settles at most once. The fast
// path (non-promise-shaped input) and the callback path of
// [Module.ToHostDeferred] are mutually exclusive; settling a [Deferred]
// twice is a programming error and panics. Duplicate completion
// notifications for the same bridge id are logged and ignored.
//
// Cancellation is not supported: once a bridge is established the only
// termination paths are normal completion or abandonment. [Module.Close]
// releases bridges that will never complete (engine teardown).
//
// # Usage
//
//	loop := eventloop.NewEventLoop()
//	loop.Start()
//	defer loop.Stop()
//
//	loop.RunOnLoop(func(vm *goja.Runtime) {
//	    mod, err := gojabridge.New(vm,
//	        gojabridge.WithScheduler(gojabridge.NewLoopScheduler(loop)),
//	    )
//	    // ...
//
//	    // Script promise -> host deferred.
//	    v, _ := vm.RunString(`somePromise`)
//	    conv, _ := mod.Dispatcher().ConverterFor(gojabridge.KindObject)
//	    h, err := mod.ToHostDeferred(v, conv)
//	    d := h.Value().(*gojabridge.Deferred)
//	    go func() {
//	        result, err := d.Wait(ctx)
//	        // ...
//	    }()
//
//	    // Host deferred -> script promise.
//	    d2 := gojabridge.NewDeferred()
//	    p, err := mod.ToScriptPromise(mod.Handles().NewLocal(d2), conv)
//	    _ = vm.Set("pending", p)
//	})
package gojabridge
