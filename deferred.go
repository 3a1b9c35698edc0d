package gojabridge

import (
	"context"
	"sync"
)

// Deferred is the host-side handle to a result produced asynchronously.
// It settles exactly once, with either a value or a failure; settling
// twice is a programming error and panics. Unlike script-side promises
// it is safe for concurrent use: any goroutine may settle it, wait on
// it, or register settle callbacks.
type Deferred struct {
	value     any
	failure   error
	done      chan struct{}
	callbacks []func(fulfilled bool, value any, failure error)
	mu        sync.Mutex
	settled   bool
	fulfilled bool
}

// NewDeferred creates an unsettled deferred.
func NewDeferred() *Deferred {
	return &Deferred{done: make(chan struct{})}
}

// Resolve settles the deferred with a value. Panics if already settled.
func (d *Deferred) Resolve(value any) {
	d.settle(true, value, nil)
}

// Reject settles the deferred with a failure. Panics if already settled.
func (d *Deferred) Reject(failure error) {
	d.settle(false, nil, failure)
}

func (d *Deferred) settle(fulfilled bool, value any, failure error) {
	d.mu.Lock()
	if d.settled {
		d.mu.Unlock()
		panic("gojabridge: deferred settled twice")
	}
	d.settled = true
	d.fulfilled = fulfilled
	d.value = value
	d.failure = failure
	callbacks := d.callbacks
	d.callbacks = nil
	close(d.done)
	d.mu.Unlock()

	// Callbacks run on the settling goroutine; each callback is
	// responsible for marshaling onto the script thread if it needs it.
	for _, fn := range callbacks {
		fn(fulfilled, value, failure)
	}
}

// OnSettle registers a callback invoked once when the deferred settles.
// If the deferred is already settled the callback runs synchronously on
// the calling goroutine; otherwise it runs on the settling goroutine.
func (d *Deferred) OnSettle(fn func(fulfilled bool, value any, failure error)) {
	d.mu.Lock()
	if !d.settled {
		d.callbacks = append(d.callbacks, fn)
		d.mu.Unlock()
		return
	}
	fulfilled, value, failure := d.fulfilled, d.value, d.failure
	d.mu.Unlock()
	fn(fulfilled, value, failure)
}

// Settled reports whether the deferred has settled.
func (d *Deferred) Settled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settled
}

// Result returns the outcome. ok is false while unsettled.
func (d *Deferred) Result() (value any, failure error, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.settled {
		return nil, nil, false
	}
	return d.value, d.failure, true
}

// Wait blocks until the deferred settles or ctx is done. On fulfillment
// it returns the value; on rejection it returns the failure.
func (d *Deferred) Wait(ctx context.Context) (any, error) {
	select {
	case <-d.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.fulfilled {
		return nil, d.failure
	}
	return d.value, nil
}
