package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSizeConstraintsIsSubset(t *testing.T) {
	require.True(t, IsSubset(SizeConstraints{Min: 1, Max: 10}, SizeConstraints{Min: 0, Max: 10}))
	require.False(t, IsSubset(SizeConstraints{Min: 1, Max: 20}, SizeConstraints{Min: 0, Max: 10}))
	require.True(t, IsSubset(SizeConstraints{Min: 1, Max: 10}, SizeConstraints{Min: 0, Max: UnboundedSize}))
}

func TestObjectTypeAccessorsPanicOnKindMismatch(t *testing.T) {
	ft := InternFunctionType(EmptyTuple(), EmptyTuple())
	ot := NewFunctionObjectType(ft)

	require.Equal(t, ObjectKindFunction, ot.Kind())
	require.NotPanics(t, func() { ot.AsFunctionType() })
	require.Panics(t, func() { ot.AsTableType() })
	require.Panics(t, func() { ot.AsMemoryType() })
	require.Panics(t, func() { ot.AsGlobalType() })
	require.Panics(t, func() { ot.AsExceptionType() })
}

func TestIsSubtypeObjectRequiresMatchingKind(t *testing.T) {
	table := NewTableObjectType(TableType{Element: ValueTypeAnyFunc, Size: SizeConstraints{Min: 1, Max: 1}})
	memory := NewMemoryObjectType(MemoryType{Size: SizeConstraints{Min: 1, Max: 1}})
	require.False(t, IsSubtypeObject(table, memory))
}

func TestIsSubtypeObjectTable(t *testing.T) {
	wide := NewTableObjectType(TableType{Element: ValueTypeAnyFunc, Size: SizeConstraints{Min: 0, Max: UnboundedSize}})
	narrow := NewTableObjectType(TableType{Element: ValueTypeAnyFunc, Size: SizeConstraints{Min: 5, Max: 10}})

	require.True(t, IsSubtypeObject(narrow, wide))
	require.False(t, IsSubtypeObject(wide, narrow))
}

func TestIsSubtypeObjectGlobalRequiresExactMutability(t *testing.T) {
	mutable := NewGlobalObjectType(GlobalType{ValueType: ValueTypeI32, Mutable: true})
	immutable := NewGlobalObjectType(GlobalType{ValueType: ValueTypeI32, Mutable: false})
	require.False(t, IsSubtypeObject(mutable, immutable))
	require.False(t, IsSubtypeObject(immutable, mutable))
}

func TestIsSubtypeObjectFunctionRequiresExactSignature(t *testing.T) {
	a := NewFunctionObjectType(InternFunctionType(InternTuple([]ValueType{ValueTypeI32}), EmptyTuple()))
	b := NewFunctionObjectType(InternFunctionType(InternTuple([]ValueType{ValueTypeI64}), EmptyTuple()))
	require.True(t, IsSubtypeObject(a, a))
	require.False(t, IsSubtypeObject(a, b))
}

func TestObjectKindString(t *testing.T) {
	require.Equal(t, "function", ObjectKindFunction.String())
	require.Equal(t, "invalid", ObjectKindInvalid.String())
}
