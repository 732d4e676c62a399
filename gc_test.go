package wavm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/a4a881d4/WAVM/compiledfunc"
	"github.com/a4a881d4/WAVM/ir"
)

func mustCompileZeroResult(t *testing.T) (ir.FunctionType, compiledfunc.CompiledFunction) {
	ft := ir.InternFunctionType(ir.EmptyTuple(), ir.EmptyTuple())
	compiled, err := compiledfunc.StubCompiler{}.Compile(ft, compiledfunc.ZeroResultsCode(0))
	require.NoError(t, err)
	return ft, compiled
}

func TestCollectGarbageSweepsUnreachableFunction(t *testing.T) {
	c := NewCompartment()
	newTestFunction(c) // registered directly, owned by no instance

	ft, compiled := mustCompileZeroResult(t)
	owned := newFunction(c.ID, ft, compiled, "owned", nil)
	c.registerFunction(owned)

	inst := newModuleInstance(c.ID, "m")
	inst.Functions = append(inst.Functions, owned)
	c.registerInstance(inst)

	c.CollectGarbage()

	_, functions, _, _, _, _ := c.Stats()
	require.Equal(t, 1, functions, "only the instance-owned function should survive")
	require.Equal(t, gcBlack, owned.color)
}

func TestCollectGarbageKeepsExportedObjects(t *testing.T) {
	c := NewCompartment()
	ft, compiled := mustCompileZeroResult(t)
	fn := newFunction(c.ID, ft, compiled, "exported", nil)
	c.registerFunction(fn)

	inst := newModuleInstance(c.ID, "m")
	inst.Exports["f"] = fn
	c.registerInstance(inst)

	c.CollectGarbage()

	require.Same(t, fn, inst.GetExport("f"))
	_, functions, _, _, _, _ := c.Stats()
	require.Equal(t, 1, functions)
}

func TestCollectGarbageKeepsTableElementReferences(t *testing.T) {
	c := NewCompartment()
	ft, compiled := mustCompileZeroResult(t)
	fn := newFunction(c.ID, ft, compiled, "referenced", nil)
	c.registerFunction(fn)

	tbl := c.CreateTable(ir.TableType{Element: ir.ValueTypeAnyFunc, Size: ir.SizeConstraints{Min: 1, Max: 1}})
	tbl.Set(0, fn)

	inst := newModuleInstance(c.ID, "m")
	inst.Tables = append(inst.Tables, tbl)
	c.registerInstance(inst)

	c.CollectGarbage()

	_, functions, tables, _, _, _ := c.Stats()
	require.Equal(t, 1, functions, "a function referenced only from a table slot must survive")
	require.Equal(t, 1, tables)
}

func TestCollectGarbageKeepsRootedObjectsNotYetAttachedToAnInstance(t *testing.T) {
	c := NewCompartment()
	m, err := c.CreateMemory(ir.MemoryType{Size: ir.SizeConstraints{Min: 1, Max: 1}})
	require.NoError(t, err)
	tbl := c.CreateTable(ir.TableType{Element: ir.ValueTypeAnyFunc, Size: ir.SizeConstraints{Min: 1, Max: 1}})
	g := c.CreateGlobal(ir.GlobalType{ValueType: ir.ValueTypeI32, Mutable: true}, I32Value(0))
	// None of m, tbl, g is owned by or reachable from any ModuleInstance yet —
	// a caller can hold a freshly created handle across any number of
	// CollectGarbage calls before ever instantiating a module with it.

	c.CollectGarbage()

	_, _, tables, memories, globals, _ := c.Stats()
	require.Equal(t, 1, memories, "a compartment-rooted memory must survive a sweep before any instance owns it")
	require.Equal(t, 1, tables, "a compartment-rooted table must survive a sweep before any instance owns it")
	require.Equal(t, 1, globals, "a compartment-rooted global must survive a sweep before any instance owns it")
	require.EqualValues(t, 1, m.Size(), "the surviving memory must still be usable, not freed out from under its handle")
	require.NotPanics(t, func() { tbl.Set(0, nil) })
	require.NotPanics(t, func() { g.Set(I32Value(1)) })
}

func TestCollectGarbageSweepsRegisteredButUnownedFunction(t *testing.T) {
	c := NewCompartment()
	ft, compiled := mustCompileZeroResult(t)
	fn := newFunction(c.ID, ft, compiled, "f", nil)
	c.registerFunction(fn)
	// fn is registered on the compartment but no instance owns or exports it.

	c.CollectGarbage()

	_, functions, _, _, _, _ := c.Stats()
	require.Equal(t, 0, functions)
}
