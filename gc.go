package wavm

import (
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

// CollectGarbage performs a stop-the-world tri-color mark over c's root set
// followed by a type-ordered sweep (spec.md §4.E): instances, then
// tables/memories/globals, then exception types, then function definitions.
// A swept memory's backing virtual-memory pages are freed as that memory is
// swept.
//
// Roots are every object registered directly on the compartment plus every
// module instance (spec.md §5: "roots: compartment-registered handles +
// currently-executing stacks scanned for object references"); this
// placeholder has no JIT stack to scan, so c.roots (populated by
// CreateMemory/CreateTable/CreateGlobal for a handle not yet owned by any
// instance) and c.instances are the whole root set. Everything else is
// reachable only via some instance's ownership or export map, or via a
// table slot referencing a function.
func (c *Compartment) CollectGarbage() {
	c.mu.Lock()
	defer c.mu.Unlock()

	before := len(c.instances) + len(c.functions) + len(c.tables) + len(c.memories) + len(c.globals) + len(c.exceptionTypes)

	for _, inst := range c.instances {
		inst.color = gcWhite
	}
	for _, f := range c.functions {
		*f.markColor() = gcWhite
	}
	for _, t := range c.tables {
		*t.markColor() = gcWhite
	}
	for _, m := range c.memories {
		*m.markColor() = gcWhite
	}
	for _, g := range c.globals {
		*g.markColor() = gcWhite
	}
	for _, e := range c.exceptionTypes {
		*e.markColor() = gcWhite
	}

	for obj := range c.roots {
		markObject(obj)
	}

	gray := make([]*ModuleInstance, 0, len(c.instances))
	for _, inst := range c.instances {
		inst.color = gcGray
		gray = append(gray, inst)
	}

	for len(gray) > 0 {
		inst := gray[len(gray)-1]
		gray = gray[:len(gray)-1]

		for _, obj := range inst.ownedObjects() {
			markObject(obj)
		}
		for _, obj := range inst.Exports {
			markObject(obj)
		}
		// A table's elements are references discovered only at scan time,
		// not at ownership time, so they are walked here rather than via
		// ownedObjects.
		for _, t := range inst.Tables {
			for _, ref := range t.elemsSnapshot() {
				markObject(ref)
			}
		}
		inst.color = gcBlack
	}

	c.sweep()

	after := len(c.instances) + len(c.functions) + len(c.tables) + len(c.memories) + len(c.globals) + len(c.exceptionTypes)
	Logger().Debug("collectGarbage: sweep complete",
		zap.Int("liveBefore", before), zap.Int("liveAfter", after), zap.Int("swept", before-after))
}

func markObject(o Object) {
	if o == nil {
		return
	}
	switch v := o.(type) {
	case *Function:
		*v.markColor() = gcBlack
	case *Table:
		if *v.markColor() == gcBlack {
			return // already scanned; avoid re-walking a shared table's elements
		}
		*v.markColor() = gcBlack
		for _, ref := range v.elemsSnapshot() {
			markObject(ref)
		}
	case *Memory:
		*v.markColor() = gcBlack
	case *Global:
		*v.markColor() = gcBlack
	case *ExceptionType:
		*v.markColor() = gcBlack
	default:
		invariantViolation("markObject: unknown Object implementation %T", o)
	}
}

// sweep removes every unreached object from c's pools, in the type order
// spec.md §4.E specifies, freeing memories' virtual-memory reservations as
// it goes. Caller holds c.mu.
func (c *Compartment) sweep() {
	c.instances = slices.DeleteFunc(c.instances, func(i *ModuleInstance) bool { return i.color != gcBlack })
	c.tables = slices.DeleteFunc(c.tables, func(t *Table) bool { return t.color != gcBlack })

	c.memories = slices.DeleteFunc(c.memories, func(m *Memory) bool {
		if m.color == gcBlack {
			return false
		}
		m.free()
		return true
	})

	c.globals = slices.DeleteFunc(c.globals, func(g *Global) bool { return g.color != gcBlack })
	c.exceptionTypes = slices.DeleteFunc(c.exceptionTypes, func(e *ExceptionType) bool { return e.color != gcBlack })
	c.functions = slices.DeleteFunc(c.functions, func(f *Function) bool { return f.color != gcBlack })
}
