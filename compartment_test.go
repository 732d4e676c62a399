package wavm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/a4a881d4/WAVM/ir"
)

func TestNewCompartmentHasUniqueID(t *testing.T) {
	a := NewCompartment()
	b := NewCompartment()
	require.NotEqual(t, a.ID, b.ID)
}

func TestCompartmentStatsReflectsCreatedObjects(t *testing.T) {
	c := NewCompartment()
	c.CreateTable(ir.TableType{Element: ir.ValueTypeAnyFunc, Size: ir.SizeConstraints{Min: 0, Max: 1}})
	c.CreateGlobal(ir.GlobalType{ValueType: ir.ValueTypeI32, Mutable: false}, I32Value(0))
	newTestFunction(c)

	instances, functions, tables, memories, globals, exceptionTypes := c.Stats()
	require.Equal(t, 0, instances)
	require.Equal(t, 1, functions)
	require.Equal(t, 1, tables)
	require.Equal(t, 0, memories)
	require.Equal(t, 1, globals)
	require.Equal(t, 0, exceptionTypes)
}

func TestCompartmentDestroyFreesMemories(t *testing.T) {
	c := NewCompartment()
	_, err := c.CreateMemory(ir.MemoryType{Size: ir.SizeConstraints{Min: 1, Max: 1}})
	require.NoError(t, err)
	c.Destroy()
	_, _, _, memories, _, _ := c.Stats()
	require.Equal(t, 0, memories)
}

func TestRequireSameCompartmentDetectsCrossCompartmentReference(t *testing.T) {
	c1 := NewCompartment()
	c2 := NewCompartment()
	require.Panics(t, func() { requireSameCompartment(c1.ID, c2.ID) })
	require.NotPanics(t, func() { requireSameCompartment(c1.ID, c1.ID) })
}

func TestDumpStateDoesNotPanic(t *testing.T) {
	c := NewCompartment()
	newTestFunction(c)
	require.NotPanics(t, func() { c.DumpState() })
}
