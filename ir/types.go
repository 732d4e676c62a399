// Package ir defines the WebAssembly type system used throughout this
// module: value types, the reference-type subtyping lattice, hash-consed
// type tuples and function types, and the runtime object-type union that
// describes functions, tables, memories, globals and exception types.
//
// None of this package validates untrusted input; it is the shared
// vocabulary that the linker, compartment and instantiator build on once a
// module has already been validated by an external front end.
package ir

import "fmt"

// ValueType is the type of a single WebAssembly operand.
//
// See https://www.w3.org/TR/wasm-core-1/#value-types and spec.md §3.
type ValueType uint8

const (
	// ValueTypeNone is the empty type: it appears only as a placeholder, never as an actual operand.
	ValueTypeNone ValueType = iota
	// ValueTypeAny is the universal top of the lattice, used only internally (never a valid Wasm operand).
	ValueTypeAny
	ValueTypeI32
	ValueTypeI64
	ValueTypeF32
	ValueTypeF64
	ValueTypeV128
	// ValueTypeAnyRef is the top of the reference-type sublattice.
	ValueTypeAnyRef
	// ValueTypeAnyFunc is a subtype of ValueTypeAnyRef.
	ValueTypeAnyFunc
	// ValueTypeNullRef is a subtype of both ValueTypeAnyFunc and ValueTypeAnyRef.
	ValueTypeNullRef

	valueTypeCount
)

// ReferenceType is the subset of ValueType that denotes a reference.
type ReferenceType = ValueType

func (t ValueType) String() string {
	switch t {
	case ValueTypeNone:
		return "none"
	case ValueTypeAny:
		return "any"
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	case ValueTypeV128:
		return "v128"
	case ValueTypeAnyRef:
		return "anyref"
	case ValueTypeAnyFunc:
		return "anyfunc"
	case ValueTypeNullRef:
		return "nullref"
	default:
		panic(fmt.Sprintf("BUG: unknown ValueType %d", uint8(t)))
	}
}

// IsReferenceType reports whether t is one of anyref, anyfunc or nullref.
func IsReferenceType(t ValueType) bool {
	return t == ValueTypeAnyRef || t == ValueTypeAnyFunc || t == ValueTypeNullRef
}

// IsSubtype reports whether every value of type sub is also a value of type super.
//
// The lattice (spec.md §3, ported from original_source's WAVM/IR/Types.h
// isSubtype/join/meet, which predates the finalized reference-types
// proposal — see SPEC_FULL.md §9's Open Question resolution):
//
//	any is top.
//	anyref is a supertype of anyfunc and nullref.
//	anyfunc is a supertype of nullref.
//	every other relation holds only between a type and itself.
func IsSubtype(sub, super ValueType) bool {
	if sub == super {
		return true
	}
	switch super {
	case ValueTypeAny:
		return true
	case ValueTypeAnyRef:
		return sub == ValueTypeAnyFunc || sub == ValueTypeNullRef
	case ValueTypeAnyFunc:
		return sub == ValueTypeNullRef
	default:
		return false
	}
}

// Join returns the least upper bound of a and b: the smallest type of which both a and b are subtypes.
func Join(a, b ValueType) ValueType {
	if a == b {
		return a
	}
	if IsReferenceType(a) && IsReferenceType(b) {
		if a == ValueTypeNullRef {
			return b
		}
		if b == ValueTypeNullRef {
			return a
		}
		// Neither is nullref and a != b, so one is anyref and the other anyfunc.
		return ValueTypeAnyRef
	}
	return ValueTypeAny
}

// Meet returns the greatest lower bound of a and b: the largest type that is a subtype of both.
//
// Meet of two unequal, non-reference types is ValueTypeNone (there is no value common to both).
func Meet(a, b ValueType) ValueType {
	if a == b {
		return a
	}
	if IsReferenceType(a) && IsReferenceType(b) {
		if a == ValueTypeNullRef || b == ValueTypeNullRef {
			return ValueTypeNullRef
		}
		if a == ValueTypeAnyRef {
			return b
		}
		return a // b must be anyref, a must be anyfunc.
	}
	return ValueTypeNone
}

// GetTypeByteWidth returns the width in bytes of a value of type t.
//
// Reference types are reported at pointer width (8), matching the ABI
// convention spec.md §3 calls out explicitly for 64-bit targets.
func GetTypeByteWidth(t ValueType) uint8 {
	switch t {
	case ValueTypeI32, ValueTypeF32:
		return 4
	case ValueTypeI64, ValueTypeF64:
		return 8
	case ValueTypeV128:
		return 16
	case ValueTypeAnyRef, ValueTypeAnyFunc, ValueTypeNullRef:
		return 8
	default:
		panic(fmt.Sprintf("BUG: no byte width for ValueType %s", t))
	}
}
