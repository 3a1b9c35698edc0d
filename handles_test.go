package gojabridge

import (
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleTable_Accounting(t *testing.T) {
	table := NewHandleTable()
	assert.Equal(t, 0, table.Live())

	h1 := table.NewLocal("a")
	h2 := table.NewGlobal("b")
	assert.Equal(t, 2, table.Live())

	h1.Release()
	assert.Equal(t, 1, table.Live())
	h2.Release()
	assert.Equal(t, 0, table.Live())
}

func TestObjectHandle_ValueAndScope(t *testing.T) {
	table := NewHandleTable()

	local := table.NewLocal("x")
	assert.Equal(t, "x", local.Value())
	assert.Equal(t, ScopeLocal, local.Scope())

	global := table.NewGlobal("y")
	assert.Equal(t, ScopeGlobal, global.Scope())

	local.Release()
	global.Release()
}

func TestObjectHandle_GlobalUpgrade(t *testing.T) {
	table := NewHandleTable()

	h := table.NewLocal("x")
	require.Equal(t, ScopeLocal, h.Scope())

	assert.Same(t, h, h.Global())
	assert.Equal(t, ScopeGlobal, h.Scope())

	// Upgrading again is a no-op.
	h.Global()
	assert.Equal(t, ScopeGlobal, h.Scope())
	assert.Equal(t, 1, table.Live())

	h.Release()
	assert.Equal(t, 0, table.Live())
}

func TestObjectHandle_DoubleReleasePanics(t *testing.T) {
	table := NewHandleTable()
	h := table.NewLocal("x")
	h.Release()
	assert.PanicsWithValue(t, "gojabridge: object handle released twice", h.Release)
}

func TestValueHandle_RetainAndRelease(t *testing.T) {
	table := NewHandleTable()
	rt := goja.New()

	h := table.NewValue(rt.ToValue("retained"))
	assert.Equal(t, "retained", h.Value().String())
	assert.Equal(t, 1, table.Live())

	h.Release()
	assert.Nil(t, h.Value())
	assert.Equal(t, 0, table.Live())
}

func TestValueHandle_DupIsIndependent(t *testing.T) {
	table := NewHandleTable()
	rt := goja.New()

	h := table.NewValue(rt.ToValue("v"))
	dup := h.Dup()
	assert.Equal(t, 2, table.Live())

	h.Release()
	assert.Equal(t, 1, table.Live())
	assert.Equal(t, "v", dup.Value().String())

	dup.Release()
	assert.Equal(t, 0, table.Live())
}

func TestValueHandle_DoubleReleasePanics(t *testing.T) {
	table := NewHandleTable()
	rt := goja.New()
	h := table.NewValue(rt.ToValue(1))
	h.Release()
	assert.PanicsWithValue(t, "gojabridge: value handle released twice", h.Release)
}

func TestScope_String(t *testing.T) {
	assert.Equal(t, "local", ScopeLocal.String())
	assert.Equal(t, "global", ScopeGlobal.String())
	assert.Equal(t, "invalid", Scope(99).String())
}
