package ir

import (
	"fmt"
	"math"
)

// SizeConstraints is a range of expected sizes for a size-constrained type
// (a table's element count or a memory's page count). Max == UnboundedSize
// means the maximum size is unbounded (spec.md §3).
type SizeConstraints struct {
	Min uint64
	Max uint64
}

// UnboundedSize is the sentinel SizeConstraints.Max value meaning "no upper bound".
const UnboundedSize = math.MaxUint64

// IsSubset reports whether sub ⊆ super: every size satisfying sub also satisfies super.
func IsSubset(sub, super SizeConstraints) bool {
	return sub.Min >= super.Min && sub.Max <= super.Max
}

func (s SizeConstraints) String() string {
	if s.Max == UnboundedSize {
		return fmt.Sprintf("%d..", s.Min)
	}
	return fmt.Sprintf("%d..%d", s.Min, s.Max)
}

// TableType describes a table: its element type (anyref or anyfunc), whether
// it is shared across threads, and its size constraints (spec.md §3).
type TableType struct {
	Element ReferenceType
	Shared  bool
	Size    SizeConstraints
}

// IsSubtypeTable reports whether sub may be substituted wherever super is expected
// (e.g. when resolving an imported table).
func IsSubtypeTable(sub, super TableType) bool {
	return sub.Element == super.Element && sub.Shared == super.Shared && IsSubset(sub.Size, super.Size)
}

func (t TableType) String() string {
	shared := ""
	if t.Shared {
		shared = "shared "
	}
	return fmt.Sprintf("%s%stable %s", shared, t.Element, t.Size)
}

// MemoryType describes a linear memory: whether it is shared, and its size
// constraints in units of 64 KiB pages (spec.md §3).
type MemoryType struct {
	Shared bool
	Size   SizeConstraints
}

// IsSubtypeMemory reports whether sub may be substituted wherever super is expected.
func IsSubtypeMemory(sub, super MemoryType) bool {
	return sub.Shared == super.Shared && IsSubset(sub.Size, super.Size)
}

func (m MemoryType) String() string {
	shared := ""
	if m.Shared {
		shared = " shared"
	}
	return fmt.Sprintf("memory %s%s", m.Size, shared)
}

// GlobalType describes a global variable's value type and mutability (spec.md §3).
type GlobalType struct {
	ValueType ValueType
	Mutable   bool
}

// IsSubtypeGlobal reports whether sub may be substituted wherever super is
// expected: mutabilities must match exactly, and the value type must be a subtype.
func IsSubtypeGlobal(sub, super GlobalType) bool {
	return sub.Mutable == super.Mutable && IsSubtype(sub.ValueType, super.ValueType)
}

func (g GlobalType) String() string {
	if g.Mutable {
		return "global " + g.ValueType.String()
	}
	return "immutable " + g.ValueType.String()
}

// ExceptionType describes the parameter tuple carried by an exception (spec.md §3).
type ExceptionType struct {
	Params TypeTuple
}

func (e ExceptionType) String() string { return "exception_type " + e.Params.String() }

// ObjectKind discriminates the five kinds of runtime object that may be
// imported or exported from a module (spec.md §3). Values match the
// original_source ordering (WAVM/IR/Types.h ObjectKind) so debug output and
// wire-level intuition line up with the source this was ported from.
type ObjectKind uint8

const (
	ObjectKindFunction ObjectKind = iota
	ObjectKindTable
	ObjectKindMemory
	ObjectKindGlobal
	ObjectKindExceptionType
	// ObjectKindInvalid marks an ObjectType that does not describe any object.
	ObjectKindInvalid ObjectKind = 0xff
)

func (k ObjectKind) String() string {
	switch k {
	case ObjectKindFunction:
		return "function"
	case ObjectKindTable:
		return "table"
	case ObjectKindMemory:
		return "memory"
	case ObjectKindGlobal:
		return "global"
	case ObjectKindExceptionType:
		return "exceptionType"
	case ObjectKindInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("ObjectKind(%d)", uint8(k))
	}
}

// ObjectType is a discriminated union over the five object kinds, used
// wherever an import's or export's expected or actual type must be compared
// (spec.md §3, design note "polymorphism over object kinds" in spec.md §9).
//
// The zero value has kind ObjectKindFunction with an invalid (zero)
// FunctionType, not ObjectKindInvalid; construct via the NewXxxObjectType
// functions.
type ObjectType struct {
	kind     ObjectKind
	function FunctionType
	table    TableType
	memory   MemoryType
	global   GlobalType
	excType  ExceptionType
}

// NewFunctionObjectType wraps a FunctionType as an ObjectType.
func NewFunctionObjectType(t FunctionType) ObjectType { return ObjectType{kind: ObjectKindFunction, function: t} }

// NewTableObjectType wraps a TableType as an ObjectType.
func NewTableObjectType(t TableType) ObjectType { return ObjectType{kind: ObjectKindTable, table: t} }

// NewMemoryObjectType wraps a MemoryType as an ObjectType.
func NewMemoryObjectType(t MemoryType) ObjectType { return ObjectType{kind: ObjectKindMemory, memory: t} }

// NewGlobalObjectType wraps a GlobalType as an ObjectType.
func NewGlobalObjectType(t GlobalType) ObjectType { return ObjectType{kind: ObjectKindGlobal, global: t} }

// NewExceptionObjectType wraps an ExceptionType as an ObjectType.
func NewExceptionObjectType(t ExceptionType) ObjectType {
	return ObjectType{kind: ObjectKindExceptionType, excType: t}
}

// Kind returns which of the five kinds this ObjectType describes.
func (t ObjectType) Kind() ObjectKind { return t.kind }

// AsFunctionType asserts that t describes a function and returns it.
// Using the wrong kind is an InvariantViolation: the type system is expected
// to make this unreachable at the boundary (spec.md §4.D).
func (t ObjectType) AsFunctionType() FunctionType {
	if t.kind != ObjectKindFunction {
		panic(fmt.Sprintf("BUG: AsFunctionType on ObjectType with kind %s", t.kind))
	}
	return t.function
}

// AsTableType asserts that t describes a table and returns it.
func (t ObjectType) AsTableType() TableType {
	if t.kind != ObjectKindTable {
		panic(fmt.Sprintf("BUG: AsTableType on ObjectType with kind %s", t.kind))
	}
	return t.table
}

// AsMemoryType asserts that t describes a memory and returns it.
func (t ObjectType) AsMemoryType() MemoryType {
	if t.kind != ObjectKindMemory {
		panic(fmt.Sprintf("BUG: AsMemoryType on ObjectType with kind %s", t.kind))
	}
	return t.memory
}

// AsGlobalType asserts that t describes a global and returns it.
func (t ObjectType) AsGlobalType() GlobalType {
	if t.kind != ObjectKindGlobal {
		panic(fmt.Sprintf("BUG: AsGlobalType on ObjectType with kind %s", t.kind))
	}
	return t.global
}

// AsExceptionType asserts that t describes an exception type and returns it.
func (t ObjectType) AsExceptionType() ExceptionType {
	if t.kind != ObjectKindExceptionType {
		panic(fmt.Sprintf("BUG: AsExceptionType on ObjectType with kind %s", t.kind))
	}
	return t.excType
}

// IsSubtypeObject reports whether sub may be substituted wherever super is
// expected. Kinds must match; the per-kind subtyping rule is applied
// otherwise (spec.md §4.F import resolution uses exactly this check).
func IsSubtypeObject(sub, super ObjectType) bool {
	if sub.kind != super.kind {
		return false
	}
	switch sub.kind {
	case ObjectKindFunction:
		return sub.function.Equal(super.function)
	case ObjectKindTable:
		return IsSubtypeTable(sub.table, super.table)
	case ObjectKindMemory:
		return IsSubtypeMemory(sub.memory, super.memory)
	case ObjectKindGlobal:
		return IsSubtypeGlobal(sub.global, super.global)
	case ObjectKindExceptionType:
		return sub.excType.Params.Equal(super.excType.Params)
	default:
		return false
	}
}

func (t ObjectType) String() string {
	switch t.kind {
	case ObjectKindFunction:
		return "func " + t.function.String()
	case ObjectKindTable:
		return t.table.String()
	case ObjectKindMemory:
		return t.memory.String()
	case ObjectKindGlobal:
		return t.global.String()
	case ObjectKindExceptionType:
		return t.excType.String()
	default:
		return "invalid"
	}
}
