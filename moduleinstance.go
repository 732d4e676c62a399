package wavm

import (
	"github.com/google/uuid"
)

// ModuleInstance is the runtime incarnation of a Module after imports are
// resolved and local definitions are allocated (spec.md §4.D, glossary
// "Instance / Module Instance"). It owns every object it allocated at
// instantiation time — imports it merely references — and is itself a
// GC-managed node: collectGarbage's sweep walks instances before the
// objects they own (spec.md §4.E).
type ModuleInstance struct {
	color         gcColor
	ID            uuid.UUID
	CompartmentID uuid.UUID
	DebugName     string

	Functions      []*Function
	Tables         []*Table
	Memories       []*Memory
	Globals        []*Global
	ExceptionTypes []*ExceptionType

	Exports map[string]Object
}

func newModuleInstance(compartmentID uuid.UUID, debugName string) *ModuleInstance {
	return &ModuleInstance{
		ID:            uuid.New(),
		CompartmentID: compartmentID,
		DebugName:     debugName,
		Exports:       make(map[string]Object),
	}
}

// GetExport returns the named export, or nil if this instance has none by
// that name (spec.md §6 getInstanceExport).
func (m *ModuleInstance) GetExport(name string) Object {
	return m.Exports[name]
}

// ownedObjects returns every object reachable through this instance's
// per-kind index spaces, imports and locally-defined objects alike — an
// import is mechanism (b) of spec.md §4.D's keep-alive set ("reachability
// from a live module-instance's import/export vectors") exactly as much as
// a local definition is — for collectGarbage's mark phase.
func (m *ModuleInstance) ownedObjects() []Object {
	out := make([]Object, 0, len(m.Functions)+len(m.Tables)+len(m.Memories)+len(m.Globals)+len(m.ExceptionTypes))
	for _, f := range m.Functions {
		out = append(out, f)
	}
	for _, t := range m.Tables {
		out = append(out, t)
	}
	for _, mem := range m.Memories {
		out = append(out, mem)
	}
	for _, g := range m.Globals {
		out = append(out, g)
	}
	for _, e := range m.ExceptionTypes {
		out = append(out, e)
	}
	return out
}
