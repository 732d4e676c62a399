package wavm

import (
	"github.com/google/uuid"

	"github.com/a4a881d4/WAVM/compiledfunc"
	"github.com/a4a881d4/WAVM/ir"
)

// Function is a runtime function object: its signature, its compiled body,
// and a strong back-reference to the instance that owns its code memory
// (spec.md §4.D). The instance→function ownership and function→instance
// back-reference form a cycle that is resolved by compartment-rooted GC
// (spec.md §9 "Cyclic ownership"), not reference counting.
type Function struct {
	object
	Type      ir.FunctionType
	DebugName string
	Code      compiledfunc.CompiledFunction
	instance  *ModuleInstance
}

func newFunction(compartmentID uuid.UUID, ft ir.FunctionType, code compiledfunc.CompiledFunction, debugName string, inst *ModuleInstance) *Function {
	return &Function{
		object:    object{kind: ir.ObjectKindFunction, compartmentID: compartmentID},
		Type:      ft,
		DebugName: debugName,
		Code:      code,
		instance:  inst,
	}
}

// Instance returns the ModuleInstance that owns this function's code.
func (f *Function) Instance() *ModuleInstance { return f.instance }
