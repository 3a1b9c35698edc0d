package gojabridge

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/dop251/goja"
)

// bridgeIDPrefix prefixes every generated bridge id, making ids
// self-describing in logs.
const bridgeIDPrefix = "__bridge_promiseobject_"

// pendingBridge is the registry record for an unsettled bridged promise:
// the script-side plain object carrying the resolve/reject slots and the
// hidden component-converter slot, retained via an owned [ValueHandle].
type pendingBridge struct {
	obj    *goja.Object
	handle *ValueHandle
}

// release frees the retained script value. Must run on the script
// thread (the handle references a script value).
func (p *pendingBridge) release() {
	p.handle.Release()
}

// PendingBridgeRegistry maps generated bridge ids to the pending-bridge
// records needed to complete them later. It is an explicit service
// object injected into the bridge rather than engine-global state.
//
// Id generation is atomic and safe from any goroutine: bridges may be
// created concurrently from multiple call sites even though each
// individual registry's map is only mutated from its script thread.
type PendingBridgeRegistry struct {
	entries map[string]*pendingBridge
	mu      sync.Mutex
	next    atomic.Uint64
}

// NewPendingBridgeRegistry creates an empty registry.
func NewPendingBridgeRegistry() *PendingBridgeRegistry {
	return &PendingBridgeRegistry{entries: make(map[string]*pendingBridge)}
}

// NextID issues a process-unique, monotonically increasing bridge id.
// An id is never reused while a bridge with that id is unresolved.
func (r *PendingBridgeRegistry) NextID() string {
	return bridgeIDPrefix + strconv.FormatUint(r.next.Add(1), 10)
}

func (r *PendingBridgeRegistry) store(id string, pb *pendingBridge) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = pb
}

// consume looks up and removes the record for id. A completed bridge id
// must not linger; a second consume of the same id misses.
func (r *PendingBridgeRegistry) consume(id string) (*pendingBridge, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pb, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	return pb, ok
}

// drain removes and returns all pending records, for engine teardown.
func (r *PendingBridgeRegistry) drain() []*pendingBridge {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*pendingBridge, 0, len(r.entries))
	for id, pb := range r.entries {
		out = append(out, pb)
		delete(r.entries, id)
	}
	return out
}

// Len returns the number of unsettled bridges.
func (r *PendingBridgeRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
