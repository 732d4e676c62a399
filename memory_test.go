package wavm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/a4a881d4/WAVM/ir"
	"github.com/a4a881d4/WAVM/platform"
)

func TestMemoryGrowThenReadIsZeroed(t *testing.T) {
	c := NewCompartment()
	m, err := c.CreateMemory(ir.MemoryType{Size: ir.SizeConstraints{Min: 1, Max: 4}})
	require.NoError(t, err)
	require.EqualValues(t, 1, m.Size())

	old, ok := m.Grow(2)
	require.True(t, ok)
	require.EqualValues(t, 1, old)
	require.EqualValues(t, 3, m.Size())

	grown := m.Bytes()[WasmPageSize : 3*WasmPageSize]
	for _, b := range grown {
		require.Equal(t, byte(0), b)
	}
}

func TestMemoryGrowBeyondMaxFails(t *testing.T) {
	c := NewCompartment()
	m, err := c.CreateMemory(ir.MemoryType{Size: ir.SizeConstraints{Min: 1, Max: 1}})
	require.NoError(t, err)
	_, ok := m.Grow(1)
	require.False(t, ok)
}

func TestMemoryWriteAtRejectsOutOfRangeAtomically(t *testing.T) {
	c := NewCompartment()
	m, err := c.CreateMemory(ir.MemoryType{Size: ir.SizeConstraints{Min: 1, Max: 1}})
	require.NoError(t, err)

	ok := m.WriteAt(WasmPageSize-2, []byte{1, 2, 3, 4})
	require.False(t, ok)
	for _, b := range m.Bytes() {
		require.Equal(t, byte(0), b)
	}
}

func TestMemoryWriteAtWithinRange(t *testing.T) {
	c := NewCompartment()
	m, err := c.CreateMemory(ir.MemoryType{Size: ir.SizeConstraints{Min: 1, Max: 1}})
	require.NoError(t, err)

	require.True(t, m.WriteAt(10, []byte{0xAA, 0xBB}))
	require.Equal(t, byte(0xAA), m.Bytes()[10])
	require.Equal(t, byte(0xBB), m.Bytes()[11])
}

func TestMemoryBaseAddressStableAcrossGrow(t *testing.T) {
	c := NewCompartment()
	m, err := c.CreateMemory(ir.MemoryType{Size: ir.SizeConstraints{Min: 1, Max: 4}})
	require.NoError(t, err)

	before := &m.Bytes()[0]
	_, ok := m.Grow(1)
	require.True(t, ok)
	after := &m.Bytes()[0]
	require.Same(t, before, after)
}

func TestMemoryAccessAfterFreeFaults(t *testing.T) {
	c := NewCompartment()
	m, err := c.CreateMemory(ir.MemoryType{Size: ir.SizeConstraints{Min: 1, Max: 1}})
	require.NoError(t, err)
	// Drop the root registration an instance attachment would otherwise have
	// cleared, so the sweep below treats m as unreachable and actually frees
	// its reservation rather than leaving it live.
	c.clearRoot(m)

	c.CollectGarbage()
	_, _, _, memories, _, _ := c.Stats()
	require.Equal(t, 0, memories, "an unrooted, unreferenced memory must be swept and freed")

	handled := platform.CatchSignals(func() {
		t.Log(m.Bytes()[0]) // passing the byte on forces the load; a discarded read is compiled away
	}, func(sig platform.Signal, stack platform.CallStack) bool {
		return true
	})
	require.True(t, handled, "a freed memory's address range must fault on access rather than silently reading stale or foreign pages")
}
