package wavm

import (
	"sync"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"

	"github.com/a4a881d4/WAVM/ir"
)

// Compartment is a process-local isolation domain: objects inside it may
// reference only other objects in the same compartment (spec.md §4.E). It
// owns every object allocated through it and is the root set collectGarbage
// marks from.
type Compartment struct {
	ID uuid.UUID

	mu             sync.Mutex
	instances      []*ModuleInstance
	functions      []*Function
	tables         []*Table
	memories       []*Memory
	globals        []*Global
	exceptionTypes []*ExceptionType

	// roots holds every object kept alive by compartment root registration
	// (spec.md §4.D mechanism (a), §4.E "roots: compartment-registered
	// handles"), independent of reachability from any ModuleInstance
	// (mechanism (b)). CreateMemory/CreateTable/CreateGlobal add the object
	// they return here, since the caller now holds a live handle to it
	// before any instance references it; instantiateModule clears the entry
	// once the object is installed into an instance's index space, handing
	// its keep-alive duty over to mechanism (b).
	roots map[Object]struct{}
}

// NewCompartment creates an empty compartment with a fresh identity.
func NewCompartment() *Compartment {
	return &Compartment{ID: uuid.New(), roots: make(map[Object]struct{})}
}

// Stats reports the current size of each of c's owned-object pools, for
// diagnostics such as cmd/wavmrun's --gc-after report (spec.md §8 scenario
// E6: "garbage collection reclaims unreachable objects").
func (c *Compartment) Stats() (instances, functions, tables, memories, globals, exceptionTypes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.instances), len(c.functions), len(c.tables), len(c.memories), len(c.globals), len(c.exceptionTypes)
}

// DumpState renders a human-readable snapshot of every pool c owns, for
// diagnosing an InvariantViolation panic. Nothing in this module calls it
// itself.
// Never used on a hot path: spew's reflection-based formatting is strictly
// a debugging aid, the same role it plays in this module's retrieval pack's
// own test helpers.
func (c *Compartment) DumpState() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return spew.Sdump(struct {
		Instances      []*ModuleInstance
		Functions      []*Function
		Tables         []*Table
		Memories       []*Memory
		Globals        []*Global
		ExceptionTypes []*ExceptionType
	}{c.instances, c.functions, c.tables, c.memories, c.globals, c.exceptionTypes})
}

// Destroy releases every virtual-memory reservation this compartment's
// memories hold. After Destroy, the compartment must not be used again —
// there is no notion of resurrecting a destroyed compartment.
func (c *Compartment) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.memories {
		m.free()
	}
	c.instances = nil
	c.functions = nil
	c.tables = nil
	c.memories = nil
	c.globals = nil
	c.exceptionTypes = nil
	c.roots = make(map[Object]struct{})
}

// CreateMemory allocates a fresh Memory in c, sized per t (spec.md §6
// createMemory). It fails with ErrOutOfMemory if the virtual-memory
// reservation cannot be satisfied.
func (c *Compartment) CreateMemory(t ir.MemoryType) (*Memory, error) {
	m, err := newMemory(c.ID, t)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.memories = append(c.memories, m)
	c.roots[m] = struct{}{}
	c.mu.Unlock()
	return m, nil
}

// CreateTable allocates a fresh Table in c, sized per t (spec.md §6 analogue
// of createMemory).
func (c *Compartment) CreateTable(t ir.TableType) *Table {
	tbl := newTable(c.ID, t)
	c.mu.Lock()
	c.tables = append(c.tables, tbl)
	c.roots[tbl] = struct{}{}
	c.mu.Unlock()
	return tbl
}

// CreateGlobal allocates a fresh Global in c with the given initial value.
func (c *Compartment) CreateGlobal(t ir.GlobalType, initial UntaggedValue) *Global {
	g := newGlobal(c.ID, t, initial)
	c.mu.Lock()
	c.globals = append(c.globals, g)
	c.roots[g] = struct{}{}
	c.mu.Unlock()
	return g
}

// clearRoot removes obj from c's root registration set, handing its
// keep-alive duty over to reachability from a ModuleInstance (mechanism
// (b)). Called by instantiateModule once it installs a Table/Memory/Global
// into an instance's index space.
func (c *Compartment) clearRoot(obj Object) {
	c.mu.Lock()
	delete(c.roots, obj)
	c.mu.Unlock()
}

// GrowMemory grows m by delta pages, returning the size before growth, or
// -1 if growth failed (spec.md §6 growMemory's literal (oldSize|-1) contract).
func GrowMemory(m *Memory, delta uint64) int64 {
	old, ok := m.Grow(delta)
	if !ok {
		return -1
	}
	return int64(old)
}

// GrowTable grows t by delta elements, returning the size before growth, or
// -1 if growth failed.
func GrowTable(t *Table, delta uint64) int64 {
	old, ok := t.Grow(delta)
	if !ok {
		return -1
	}
	return int64(old)
}

// registerFunction appends fn to c's owned-object pools. Called only from
// the instantiator and from StubResolver while synthesizing stub instances.
func (c *Compartment) registerFunction(fn *Function) {
	c.mu.Lock()
	c.functions = append(c.functions, fn)
	c.mu.Unlock()
}

func (c *Compartment) registerExceptionType(e *ExceptionType) {
	c.mu.Lock()
	c.exceptionTypes = append(c.exceptionTypes, e)
	c.mu.Unlock()
}

func (c *Compartment) registerInstance(inst *ModuleInstance) {
	c.mu.Lock()
	c.instances = append(c.instances, inst)
	c.mu.Unlock()
}
