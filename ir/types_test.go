package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsSubtypeReflexive(t *testing.T) {
	for t1 := ValueTypeNone; t1 < valueTypeCount; t1++ {
		require.True(t, IsSubtype(t1, t1), "%s should be a subtype of itself", t1)
	}
}

func TestIsSubtypeLattice(t *testing.T) {
	require.True(t, IsSubtype(ValueTypeNullRef, ValueTypeAnyFunc))
	require.True(t, IsSubtype(ValueTypeNullRef, ValueTypeAnyRef))
	require.True(t, IsSubtype(ValueTypeAnyFunc, ValueTypeAnyRef))
	require.False(t, IsSubtype(ValueTypeAnyRef, ValueTypeAnyFunc))
	require.False(t, IsSubtype(ValueTypeAnyFunc, ValueTypeNullRef))
	require.True(t, IsSubtype(ValueTypeI32, ValueTypeAny))
	require.False(t, IsSubtype(ValueTypeI32, ValueTypeI64))
}

func TestJoinMeetAreConsistentWithIsSubtype(t *testing.T) {
	refs := []ValueType{ValueTypeAnyRef, ValueTypeAnyFunc, ValueTypeNullRef}
	for _, a := range refs {
		for _, b := range refs {
			j := Join(a, b)
			m := Meet(a, b)
			require.True(t, IsSubtype(a, j), "Join(%s,%s)=%s must be a supertype of %s", a, b, j, a)
			require.True(t, IsSubtype(b, j), "Join(%s,%s)=%s must be a supertype of %s", a, b, j, b)
			require.True(t, IsSubtype(m, a), "Meet(%s,%s)=%s must be a subtype of %s", a, b, m, a)
			require.True(t, IsSubtype(m, b), "Meet(%s,%s)=%s must be a subtype of %s", a, b, m, b)
		}
	}
}

func TestJoinMeetUnrelatedNumericTypes(t *testing.T) {
	require.Equal(t, ValueTypeAny, Join(ValueTypeI32, ValueTypeF64))
	require.Equal(t, ValueTypeNone, Meet(ValueTypeI32, ValueTypeF64))
}

func TestGetTypeByteWidth(t *testing.T) {
	require.EqualValues(t, 4, GetTypeByteWidth(ValueTypeI32))
	require.EqualValues(t, 8, GetTypeByteWidth(ValueTypeI64))
	require.EqualValues(t, 16, GetTypeByteWidth(ValueTypeV128))
	require.EqualValues(t, 8, GetTypeByteWidth(ValueTypeAnyRef))
}
