package wavm

import (
	"github.com/google/uuid"

	"github.com/a4a881d4/WAVM/ir"
)

// gcColor is the tri-color mark collectGarbage uses (spec.md §4.E).
type gcColor uint8

const (
	gcWhite gcColor = iota // not yet visited this collection
	gcGray                 // visited, children not yet scanned
	gcBlack                // visited, children scanned
)

// object is embedded at the head of every runtime object (spec.md §4.D:
// "every Object begins with {kind, compartmentId, gcColor}"). Host code
// never touches it directly; each kind's own type exposes Kind and
// CompartmentID.
type object struct {
	kind          ir.ObjectKind
	compartmentID uuid.UUID
	color         gcColor
}

// Object is the interface every runtime object (Function, Table, Memory,
// Global, ExceptionType) satisfies. ModuleInstance does not: it is not one
// of the five importable/exportable kinds, though it is GC-managed the same way.
type Object interface {
	Kind() ir.ObjectKind
	CompartmentID() uuid.UUID
}

func (o *object) Kind() ir.ObjectKind      { return o.kind }
func (o *object) CompartmentID() uuid.UUID { return o.compartmentID }
func (o *object) markColor() *gcColor      { return &o.color }

// requireSameCompartment panics with an InvariantViolation if a and b belong
// to different compartments. Every operation that lets one object reference
// another (a table slot holding a function, a module instance owning its
// objects) calls this first: cross-compartment reference is a precondition
// violation the type system is meant to make unreachable, per spec.md §4.E
// ("Cross-compartment transfer is forbidden").
func requireSameCompartment(a, b uuid.UUID) {
	if a != b {
		invariantViolation("cross-compartment reference: %s vs %s", a, b)
	}
}

// asObjectType returns o's ObjectType, for subtype checks during linking.
func asObjectType(o Object) ir.ObjectType {
	switch v := o.(type) {
	case *Function:
		return ir.NewFunctionObjectType(v.Type)
	case *Table:
		return ir.NewTableObjectType(v.Type)
	case *Memory:
		return ir.NewMemoryObjectType(v.Type)
	case *Global:
		return ir.NewGlobalObjectType(v.Type)
	case *ExceptionType:
		return ir.NewExceptionObjectType(v.Type)
	default:
		invariantViolation("asObjectType: unknown Object implementation %T", o)
		panic("unreachable")
	}
}
