package platform

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Access describes the permissions a range of committed pages should have.
type Access uint8

const (
	AccessNone Access = iota
	AccessReadOnly
	AccessReadWrite
	AccessExecute
	AccessReadWriteExecute
)

func (a Access) prot() int {
	switch a {
	case AccessNone:
		return unix.PROT_NONE
	case AccessReadOnly:
		return unix.PROT_READ
	case AccessReadWrite:
		return unix.PROT_READ | unix.PROT_WRITE
	case AccessExecute:
		return unix.PROT_READ | unix.PROT_EXEC
	case AccessReadWriteExecute:
		return unix.PROT_READ | unix.PROT_WRITE | unix.PROT_EXEC
	default:
		panic(fmt.Sprintf("BUG: unknown Access %d", uint8(a)))
	}
}

// Allocate reserves numPages contiguous, page-aligned pages of address
// space with no backing store (PROT_NONE). It returns nil if the
// reservation could not be satisfied — this is a legitimate
// out-of-memory condition, not a fatal error (spec.md §4.B, §7).
func Allocate(numPages uint64) []byte {
	size := int(numPages * PageSize())
	if size == 0 {
		return []byte{}
	}
	b, err := unix.Mmap(-1, 0, size, unix.PROT_NONE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil
	}
	return b
}

// Free releases a range previously returned by Allocate. Freeing a range
// that was not obtained from this package, or whose address is not
// page-aligned, is an InvariantViolation (spec.md §7): it indicates a bug
// in the caller, not a recoverable condition.
func Free(region []byte) {
	if len(region) == 0 {
		return
	}
	if err := unix.Munmap(region); err != nil {
		panic(fmt.Sprintf("BUG: munmap of region that was not a live mapping: %v", err))
	}
}

// AllocateAligned reserves numPages such that the returned slice's base
// address satisfies addr mod 2^alignLog2 == 0, per spec.md §4.B.
//
// When alignLog2 is no larger than the page size's own alignment, a plain
// Allocate already satisfies the constraint. Otherwise this reserves
// numPages + 2^alignLog2 of padding and slices out the aligned interior
// range, mirroring the "if still failing, returns the padded allocation
// with aligned pointer inside" fallback of spec.md §4.B and
// original_source's allocateAlignedVirtualPages
// (Lib/Platform/Windows.cpp): since Go's mmap wrapper cannot request a
// fixed address to retry an exact-size reservation in place, this module
// always takes that deterministic padded path rather than racing a
// free-and-re-reserve. On success the second return value is the full
// padded region that must be passed to FreeAligned; it is nil only on
// legitimate out-of-memory.
func AllocateAligned(numPages uint64, alignLog2 uint) (aligned []byte, padded []byte) {
	if alignLog2 <= PageSizeLog2() {
		b := Allocate(numPages)
		return b, b
	}

	size := numPages * PageSize()
	alignBytes := uint64(1) << alignLog2

	probeSize := size + alignBytes
	probe, err := unix.Mmap(-1, 0, int(probeSize), unix.PROT_NONE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil
	}

	base := uintptr(unsafe.Pointer(&probe[0]))
	alignedBase := (base + uintptr(alignBytes) - 1) &^ (uintptr(alignBytes) - 1)
	offset := alignedBase - base
	return probe[offset : offset+uintptr(size) : offset+uintptr(size)], probe
}

// FreeAligned releases a region obtained from AllocateAligned. Callers must
// pass the padded slice returned alongside the aligned one, not the aligned
// slice itself, mirroring freeAligned's contract in spec.md §4.B.
func FreeAligned(padded []byte) {
	Free(padded)
}

// Commit makes pages readable/writable (or per access) and backed by zeroed
// memory, via mprotect on the already-reserved region. Growth of a linear
// memory commits additional pages this way without moving the base address
// (spec.md §3 "Linear memory buffer").
func Commit(region []byte, access Access) bool {
	if len(region) == 0 {
		return true
	}
	if err := unix.Mprotect(region, access.prot()); err != nil {
		return false
	}
	return true
}

// SetAccess changes the protection of an already-committed range.
func SetAccess(region []byte, access Access) bool {
	return Commit(region, access)
}

// Decommit returns pages to PROT_NONE, releasing their backing store back
// to the OS without freeing the address-space reservation. Decommitting a
// range outside a live mapping is an InvariantViolation (spec.md §7).
func Decommit(region []byte) bool {
	if len(region) == 0 {
		return true
	}
	if err := unix.Mprotect(region, unix.PROT_NONE); err != nil {
		panic(fmt.Sprintf("BUG: decommit of invalid range: %v", err))
	}
	// MADV_DONTNEED lets the OS reclaim the physical pages; an access before
	// the range is re-committed faults against the PROT_NONE protection set
	// above, and once re-committed with access the pages read back zeroed.
	_ = unix.Madvise(region, unix.MADV_DONTNEED)
	return true
}
