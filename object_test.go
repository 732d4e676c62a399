package wavm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/a4a881d4/WAVM/ir"
)

func TestAsObjectTypeMatchesEachKind(t *testing.T) {
	c := NewCompartment()

	fn := newTestFunction(c)
	require.Equal(t, ir.ObjectKindFunction, asObjectType(fn).Kind())

	tbl := c.CreateTable(ir.TableType{Element: ir.ValueTypeAnyFunc, Size: ir.SizeConstraints{Min: 1, Max: 1}})
	require.Equal(t, ir.ObjectKindTable, asObjectType(tbl).Kind())

	mem, err := c.CreateMemory(ir.MemoryType{Size: ir.SizeConstraints{Min: 1, Max: 1}})
	require.NoError(t, err)
	require.Equal(t, ir.ObjectKindMemory, asObjectType(mem).Kind())

	g := c.CreateGlobal(ir.GlobalType{ValueType: ir.ValueTypeI32}, I32Value(0))
	require.Equal(t, ir.ObjectKindGlobal, asObjectType(g).Kind())
}

func TestFunctionInstanceBackReferenceIsNilForStandaloneFunctions(t *testing.T) {
	c := NewCompartment()
	fn := newTestFunction(c)
	require.Nil(t, fn.Instance())
}

func TestFunctionInstanceBackReferenceAfterInstantiation(t *testing.T) {
	module := &ir.Module{
		Functions: []ir.FunctionDef{{Type: ir.InternFunctionType(ir.InternTuple([]ir.ValueType{ir.ValueTypeI64}), ir.EmptyTuple()), Code: constI64Code(0)}},
		Exports:   []ir.Export{{Name: "f", Kind: ir.ObjectKindFunction, Index: 0}},
	}

	c := NewCompartment()
	inst, err := InstantiateModule(c, module, nil, "m", NewRuntimeConfig())
	require.NoError(t, err)

	fn := inst.GetExport("f").(*Function)
	require.Same(t, inst, fn.Instance())
}
