package gojabridge

import (
	"sync"

	"github.com/dop251/goja"
)

// Scope describes the lifetime of an [ObjectHandle].
type Scope uint8

const (
	// ScopeLocal handles are valid only for the duration of the
	// originating call.
	ScopeLocal Scope = iota
	// ScopeGlobal handles remain valid until explicitly released. A
	// handle stored in a longer-lived structure must be upgraded to
	// global scope before the originating call returns.
	ScopeGlobal
)

func (s Scope) String() string {
	switch s {
	case ScopeLocal:
		return "local"
	case ScopeGlobal:
		return "global"
	default:
		return "invalid"
	}
}

// HandleTable tracks live handles on both sides of the boundary. Every
// handle created through the table is accounted for until released,
// which makes retain/release imbalances observable: after all bridges
// complete, [HandleTable.Live] returns to the number of handles the
// caller still legitimately holds.
//
// The table itself is safe for concurrent use; the values referenced by
// script-side handles are not, and must only be touched on the script
// thread.
type HandleTable struct {
	entries map[uint64]Scope
	mu      sync.Mutex
	next    uint64
}

// NewHandleTable creates an empty table.
func NewHandleTable() *HandleTable {
	return &HandleTable{entries: make(map[uint64]Scope)}
}

func (t *HandleTable) register(scope Scope) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	t.entries[t.next] = scope
	return t.next
}

func (t *HandleTable) upgrade(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[id]; ok {
		t.entries[id] = ScopeGlobal
	}
}

// release removes the entry, reporting whether it was still live.
func (t *HandleTable) release(id uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[id]; !ok {
		return false
	}
	delete(t.entries, id)
	return true
}

// Live returns the number of handles not yet released.
func (t *HandleTable) Live() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// ObjectHandle is an ownership-tracked reference to a host-side value.
// Each handle is released exactly once; releasing twice is a programming
// error and panics.
type ObjectHandle struct {
	value any
	table *HandleTable
	id    uint64
	scope Scope
}

// NewLocal creates a locally-scoped handle to a host value.
func (t *HandleTable) NewLocal(value any) *ObjectHandle {
	return &ObjectHandle{value: value, table: t, id: t.register(ScopeLocal), scope: ScopeLocal}
}

// NewGlobal creates a globally-scoped handle to a host value.
func (t *HandleTable) NewGlobal(value any) *ObjectHandle {
	return &ObjectHandle{value: value, table: t, id: t.register(ScopeGlobal), scope: ScopeGlobal}
}

// Value returns the referenced host value.
func (h *ObjectHandle) Value() any { return h.value }

// Scope returns the handle's current scope.
func (h *ObjectHandle) Scope() Scope { return h.scope }

// Global upgrades the handle to global scope and returns it. Upgrading
// an already-global handle is a no-op.
func (h *ObjectHandle) Global() *ObjectHandle {
	if h.scope != ScopeGlobal {
		h.scope = ScopeGlobal
		h.table.upgrade(h.id)
	}
	return h
}

// Release frees the handle. It must be called exactly once.
func (h *ObjectHandle) Release() {
	if !h.table.release(h.id) {
		panic("gojabridge: object handle released twice")
	}
	h.value = nil
}

// ValueHandle is an ownership-tracked reference to a script-side value
// retained beyond the current call, e.g. the pending-bridge object held
// by the registry until completion. The referenced value must only be
// touched on the script thread.
type ValueHandle struct {
	value goja.Value
	table *HandleTable
	id    uint64
}

// NewValue creates a handle retaining a script value.
func (t *HandleTable) NewValue(v goja.Value) *ValueHandle {
	return &ValueHandle{value: v, table: t, id: t.register(ScopeGlobal)}
}

// Value returns the retained script value.
func (h *ValueHandle) Value() goja.Value { return h.value }

// Dup creates an additional, independently released retention of the
// same script value.
func (h *ValueHandle) Dup() *ValueHandle {
	return h.table.NewValue(h.value)
}

// Release frees the retention. It must be called exactly once per
// handle.
func (h *ValueHandle) Release() {
	if !h.table.release(h.id) {
		panic("gojabridge: value handle released twice")
	}
	h.value = nil
}
