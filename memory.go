package wavm

import (
	"sync"

	"github.com/google/uuid"

	"github.com/a4a881d4/WAVM/ir"
	"github.com/a4a881d4/WAVM/platform"
)

// WasmPageSize is the unit of linear memory size: 64 KiB, fixed by the Wasm
// spec regardless of the host OS's own page size.
const WasmPageSize = 65536

// DefaultUnboundedMaxPages bounds how much address space newMemory reserves
// for a memory whose declared maximum is unbounded (ir.UnboundedSize): the
// full 32-bit address range Wasm 1.0 permits, matching the value this
// module's teacher uses for the same purpose (internal/wasm.MemoryMaxPages).
const DefaultUnboundedMaxPages = 65536

// Memory is a runtime linear memory object backed by a single guard-paged
// virtual-memory reservation (spec.md §4.D, §4.B): the whole range up to
// Type.Size.Max (or DefaultUnboundedMaxPages) is reserved once at creation
// with no backing store, and Grow commits additional pages read-write
// without ever moving the base address — so a pointer into memory stays
// valid across a grow, and an access past the committed prefix but inside
// the reservation faults deterministically rather than silently reading
// adjacent heap.
type Memory struct {
	object
	mu           sync.Mutex
	Type         ir.MemoryType
	reservation  []byte // the full platform.Allocate'd range, PROT_NONE beyond committed
	padded       []byte // pass to platform.FreeAligned; equals reservation unless over-aligned
	currentPages uint64
	maxPages     uint64
}

func newMemory(compartmentID uuid.UUID, t ir.MemoryType) (*Memory, error) {
	maxPages := t.Size.Max
	if maxPages == ir.UnboundedSize {
		maxPages = DefaultUnboundedMaxPages
	}
	reserveBytes := maxPages * WasmPageSize
	osPages := (reserveBytes + platform.PageSize() - 1) / platform.PageSize()

	aligned, padded := platform.AllocateAligned(osPages, platform.PageSizeLog2())
	if aligned == nil {
		return nil, ErrOutOfMemory
	}

	m := &Memory{
		object:      object{kind: ir.ObjectKindMemory, compartmentID: compartmentID},
		Type:        t,
		reservation: aligned,
		padded:      padded,
		maxPages:    maxPages,
	}
	if t.Size.Min > 0 {
		if !m.commitThrough(t.Size.Min) {
			platform.FreeAligned(padded)
			return nil, ErrOutOfMemory
		}
		m.currentPages = t.Size.Min
	}
	return m, nil
}

// commitThrough commits pages [0, pages) read-write. Called from newMemory
// before m is shared, and from Grow with m.mu held.
func (m *Memory) commitThrough(pages uint64) bool {
	bytesLen := pages * WasmPageSize
	osBytesLen := (bytesLen + platform.PageSize() - 1) / platform.PageSize() * platform.PageSize()
	if osBytesLen == 0 {
		return true
	}
	return platform.Commit(m.reservation[:osBytesLen], platform.AccessReadWrite)
}

// Size returns the memory's current size in pages.
func (m *Memory) Size() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentPages
}

// Grow commits delta additional pages, returning the size before growth.
// It fails (false) without side effects if current+delta exceeds the
// memory's maximum or if the commit itself fails (spec.md §4.D, §8 property 4).
func (m *Memory) Grow(delta uint64) (oldPages uint64, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old := m.currentPages
	if delta == 0 {
		return old, true
	}
	if old+delta > m.maxPages {
		return old, false
	}
	if !m.commitThrough(old + delta) {
		return old, false
	}
	m.currentPages = old + delta
	return old, true
}

// Bytes returns the committed prefix of the memory as a slice. Callers must
// not retain it across a Grow: growth never moves the base address, but the
// slice's length reflects only the size at the time Bytes was called.
func (m *Memory) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reservation[:m.currentPages*WasmPageSize]
}

// hasRange reports whether [offset, offset+length) lies within the
// committed prefix.
func (m *Memory) hasRange(offset, length uint64) bool {
	committed := m.currentPages * WasmPageSize
	end := offset + length
	return end >= offset && end <= committed
}

// WriteAt copies data into the memory at offset. It returns false without
// writing anything if the range does not fit — the atomicity segment
// application needs (spec.md §4.G step 6, §8 property 10).
func (m *Memory) WriteAt(offset uint64, data []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasRange(offset, uint64(len(data))) {
		return false
	}
	copy(m.reservation[offset:offset+uint64(len(data))], data)
	return true
}

// free releases the memory's virtual-address reservation. Called from
// collectGarbage's sweep phase once the memory is unreachable, from
// Compartment.Destroy, and from instantiation rollback.
func (m *Memory) free() {
	platform.FreeAligned(m.padded)
}
