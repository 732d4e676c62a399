package wavm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/a4a881d4/WAVM/compiledfunc"
	"github.com/a4a881d4/WAVM/ir"
)

// constI64Code builds a StubCompiler program that returns a single constant
// i64 result, the only kind of "computation" the placeholder compiler can
// perform — used here to exercise the export→invoke path end to end without
// a real JIT backend.
func constI64Code(v uint64) []byte {
	code := make([]byte, 9)
	code[0] = byte(compiledfunc.OpConstI64)
	for i := 0; i < 8; i++ {
		code[1+i] = byte(v >> (8 * i))
	}
	return append(code, byte(compiledfunc.OpReturn))
}

func i32i32ToI32() ir.FunctionType {
	return ir.InternFunctionType(
		ir.InternTuple([]ir.ValueType{ir.ValueTypeI32}),
		ir.InternTuple([]ir.ValueType{ir.ValueTypeI32, ir.ValueTypeI32}),
	)
}

// TestInstantiateExportedFunctionIsInvocable covers spec.md §8 scenario E1:
// a module with one exported function is instantiated, its export is
// invoked, and the call returns without trapping.
func TestInstantiateExportedFunctionIsInvocable(t *testing.T) {
	ft := i32i32ToI32()
	module := &ir.Module{
		DebugName: "add",
		Functions: []ir.FunctionDef{{Type: ft, Code: constI64Code(5)}},
		Exports:   []ir.Export{{Name: "add", Kind: ir.ObjectKindFunction, Index: 0}},
	}

	c := NewCompartment()
	inst, err := InstantiateModule(c, module, nil, "add", NewRuntimeConfig())
	require.NoError(t, err)

	fn, ok := inst.GetExport("add").(*Function)
	require.True(t, ok)

	results, trap := InvokeFunction(NewRuntimeConfig().Context(), fn, []uint64{2, 3})
	require.Nil(t, trap)
	require.Equal(t, []uint64{5}, results)
}

// TestInstantiateStartFunctionTrapReportsRuntimeTrap covers spec.md §8
// scenario E2: a start function that executes unreachable aborts
// instantiation with a RuntimeTrap carrying a non-empty call stack.
func TestInstantiateStartFunctionTrapReportsRuntimeTrap(t *testing.T) {
	ft := ir.InternFunctionType(ir.EmptyTuple(), ir.EmptyTuple())
	start := uint32(0)
	module := &ir.Module{
		DebugName: "crashes-on-start",
		Functions: []ir.FunctionDef{{Type: ft, Code: compiledfunc.UnreachableCode()}},
		Start:     &start,
	}

	c := NewCompartment()
	_, err := InstantiateModule(c, module, nil, "crashes-on-start", NewRuntimeConfig())
	require.Error(t, err)

	trap, ok := err.(*InstantiationTrap)
	require.True(t, ok)
	require.Equal(t, TrapStartFunctionTrap, trap.Kind)

	runtimeTrap, ok := trap.Cause.(*RuntimeTrap)
	require.True(t, ok)
	require.Equal(t, TrapUnreachable, runtimeTrap.Kind)
}

// TestLinkModuleReportsKindMismatch covers spec.md §8 scenario E3: a module
// imports a function but the resolver supplies a global.
func TestLinkModuleReportsKindMismatch(t *testing.T) {
	ft := ir.InternFunctionType(ir.InternTuple([]ir.ValueType{ir.ValueTypeI32}), ir.InternTuple([]ir.ValueType{ir.ValueTypeI32}))
	module := &ir.Module{
		Imports: []ir.Import{{ModuleName: "env", ExportName: "foo", Type: ir.NewFunctionObjectType(ft)}},
	}

	c := NewCompartment()
	resolver := &fixedResolver{obj: c.CreateGlobal(ir.GlobalType{ValueType: ir.ValueTypeI32}, I32Value(0))}
	result := LinkModule(module, resolver)

	require.False(t, result.Success)
	require.Len(t, result.Mismatches, 1)
	require.Equal(t, "env", result.Mismatches[0].Import.ModuleName)
	require.Equal(t, "foo", result.Mismatches[0].Import.ExportName)
}

type fixedResolver struct{ obj Object }

func (r *fixedResolver) Resolve(moduleName, exportName string, expectedType ir.ObjectType) (bool, Object) {
	return true, r.obj
}

// TestInstantiateWithGCAfterEveryInstantiateSweepsUnreachableLeftovers
// covers config.go's gcAfterEveryInstantiate option: a compartment already
// holding a registered but unowned function should have it swept the
// moment a module instantiated with the option finishes.
func TestInstantiateWithGCAfterEveryInstantiateSweepsUnreachableLeftovers(t *testing.T) {
	ft := ir.InternFunctionType(ir.EmptyTuple(), ir.EmptyTuple())
	module := &ir.Module{
		DebugName: "empty",
		Functions: []ir.FunctionDef{{Type: ft, Code: compiledfunc.ZeroResultsCode(0)}},
		Exports:   []ir.Export{{Name: "f", Kind: ir.ObjectKindFunction, Index: 0}},
	}

	c := NewCompartment()
	newTestFunction(c) // registered directly, owned by no instance; GC bait

	cfg := NewRuntimeConfig().WithGCAfterEveryInstantiate(true)
	_, err := InstantiateModule(c, module, nil, "empty", cfg)
	require.NoError(t, err)

	_, functions, _, _, _, _ := c.Stats()
	require.Equal(t, 1, functions, "the bait function should have been swept, leaving only the instance's own")
}

// TestMemoryGrowBeyondMaxLeavesSizeUnchanged covers spec.md §8 scenario E4.
func TestMemoryGrowBeyondMaxLeavesSizeUnchanged(t *testing.T) {
	c := NewCompartment()
	m, err := c.CreateMemory(ir.MemoryType{Size: ir.SizeConstraints{Min: 1, Max: 2}})
	require.NoError(t, err)

	_, ok := m.Grow(2)
	require.False(t, ok)
	require.EqualValues(t, 1, m.Size())
}

// TestInstantiateOutOfBoundsDataSegmentTraps covers spec.md §8 scenario E5:
// a data segment that does not fit aborts instantiation without writing
// any bytes.
func TestInstantiateOutOfBoundsDataSegmentTraps(t *testing.T) {
	module := &ir.Module{
		DebugName: "oob-data",
		Memories:  []ir.MemoryType{{Size: ir.SizeConstraints{Min: 1, Max: 1}}},
		Data: []ir.DataSegment{{
			MemoryIndex: 0,
			Offset:      ir.ConstantExpr{Op: ir.ConstExprI32Const, I64: int64(WasmPageSize - 3)},
			Init:        []byte{1, 2, 3, 4, 5},
		}},
	}

	c := NewCompartment()
	_, err := InstantiateModule(c, module, nil, "oob-data", NewRuntimeConfig())
	require.Error(t, err)
	trap, ok := err.(*InstantiationTrap)
	require.True(t, ok)
	require.Equal(t, TrapSegmentOutOfBounds, trap.Kind)

	// Nothing should have been registered on the compartment: rollback ran.
	_, _, _, memories, _, _ := c.Stats()
	require.Equal(t, 0, memories)
}

// TestGarbageCollectingOneCompartmentLeavesAnotherUntouched covers spec.md
// §8 scenario E6: two compartments each instantiate the same module;
// collecting garbage in one leaves the other's instance fully live.
func TestGarbageCollectingOneCompartmentLeavesAnotherUntouched(t *testing.T) {
	ft := i32i32ToI32()
	module := &ir.Module{
		DebugName: "shared-shape",
		Functions: []ir.FunctionDef{{Type: ft, Code: constI64Code(7)}},
		Exports:   []ir.Export{{Name: "f", Kind: ir.ObjectKindFunction, Index: 0}},
	}

	a := NewCompartment()
	b := NewCompartment()

	_, err := InstantiateModule(a, module, nil, "shared-shape", NewRuntimeConfig())
	require.NoError(t, err)
	instB, err := InstantiateModule(b, module, nil, "shared-shape", NewRuntimeConfig())
	require.NoError(t, err)

	a.CollectGarbage()

	fnB, ok := instB.GetExport("f").(*Function)
	require.True(t, ok)
	results, trap := InvokeFunction(NewRuntimeConfig().Context(), fnB, []uint64{1, 1})
	require.Nil(t, trap)
	require.Equal(t, []uint64{7}, results)

	_, functionsB, _, _, _, _ := b.Stats()
	require.Equal(t, 1, functionsB)
}
