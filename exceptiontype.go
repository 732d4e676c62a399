package wavm

import (
	"github.com/google/uuid"

	"github.com/a4a881d4/WAVM/ir"
)

// ExceptionType is a runtime exception-type object: a parameter tuple and a
// debug name, used both for module-declared exception types and for the
// fresh ones StubResolver fabricates to satisfy an unresolved import
// (spec.md §4.D, §4.F).
type ExceptionType struct {
	object
	Type      ir.ExceptionType
	DebugName string
}

func newExceptionType(compartmentID uuid.UUID, t ir.ExceptionType, debugName string) *ExceptionType {
	return &ExceptionType{
		object:    object{kind: ir.ObjectKindExceptionType, compartmentID: compartmentID},
		Type:      t,
		DebugName: debugName,
	}
}
