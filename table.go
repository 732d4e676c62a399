package wavm

import (
	"sync"

	"github.com/google/uuid"

	"github.com/a4a881d4/WAVM/ir"
)

// Table is a runtime table object: a growable array of references, typed
// anyref or anyfunc (spec.md §4.D). Type.Shared is recorded but does not
// change locking: every operation takes t.mu regardless of it. A nil element
// means the reference is null.
type Table struct {
	object
	mu    sync.Mutex
	Type  ir.TableType
	elems []Object
}

func newTable(compartmentID uuid.UUID, t ir.TableType) *Table {
	return &Table{
		object: object{kind: ir.ObjectKindTable, compartmentID: compartmentID},
		Type:   t,
		elems:  make([]Object, t.Size.Min),
	}
}

// Size returns the table's current element count.
func (t *Table) Size() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return uint64(len(t.elems))
}

// Get returns the reference at index, and panics with an InvariantViolation
// if index is out of bounds — bounds-checking at the call_indirect/table.get boundary
// is a caller responsibility documented in spec.md §4.D; Get itself trusts it.
func (t *Table) Get(index uint64) Object {
	t.mu.Lock()
	defer t.mu.Unlock()
	if index >= uint64(len(t.elems)) {
		invariantViolation("table.Get: index %d out of bounds (size %d)", index, len(t.elems))
	}
	return t.elems[index]
}

// Set stores ref at index. ref, if non-nil, must belong to the same
// compartment as t.
func (t *Table) Set(index uint64, ref Object) {
	if ref != nil {
		requireSameCompartment(t.compartmentID, ref.CompartmentID())
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if index >= uint64(len(t.elems)) {
		invariantViolation("table.Set: index %d out of bounds (size %d)", index, len(t.elems))
	}
	t.elems[index] = ref
}

// Grow appends delta null elements, returning the table's size before
// growth, or (size before growth, false) if growth would exceed Type.Size.Max (spec.md §4.D,
// mirroring Memory.Grow's -1-on-failure contract as a boolean).
func (t *Table) Grow(delta uint64) (oldSize uint64, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	old := uint64(len(t.elems))
	if t.Type.Size.Max != ir.UnboundedSize && old+delta > t.Type.Size.Max {
		return old, false
	}
	t.elems = append(t.elems, make([]Object, delta)...)
	return old, true
}

// elemsSnapshot returns a copy of the current element slice, for GC
// scanning without holding t.mu across the mark phase.
func (t *Table) elemsSnapshot() []Object {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Object, len(t.elems))
	copy(out, t.elems)
	return out
}
